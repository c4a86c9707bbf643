package btree

import (
	"math/rand"
	"testing"
)

// Insert a random permutation of 1..200 at order 16 and check the full set
// of ordering invariants.
func TestShuffledInsert(t *testing.T) {
	tree, _ := openTestTree(t, 16)
	rng := rand.New(rand.NewSource(42))

	const n = 200
	for _, i := range rng.Perm(n) {
		key := int32(i + 1)
		mustInsert(t, tree, key, key*2)
	}

	count, err := tree.CountKeys(tree.Root())
	if err != nil {
		t.Fatal(err)
	}
	if count != n {
		t.Fatalf("count = %d, want %d", count, n)
	}

	keys, err := tree.Keys()
	if err != nil {
		t.Fatal(err)
	}
	if len(keys) != n {
		t.Fatalf("len(keys) = %d, want %d", len(keys), n)
	}
	for i, key := range keys {
		if key != int32(i+1) {
			t.Fatalf("keys[%d] = %d, want %d", i, key, i+1)
		}
	}

	mustZombieFree(t, tree)
	if ghosts, err := tree.CountGhost(); err != nil || ghosts != 0 {
		t.Fatalf("ghosts = %d, err = %v", ghosts, err)
	}
	if err := tree.ValidateIntegrity(); err != nil {
		t.Fatalf("integrity: %v", err)
	}
}

func TestShuffledInsertThenDelete(t *testing.T) {
	tree, _ := openTestTree(t, 16)
	rng := rand.New(rand.NewSource(99))

	const n = 500
	for _, i := range rng.Perm(n) {
		mustInsert(t, tree, int32(i), int32(i))
	}
	for _, i := range rng.Perm(n) {
		if i%2 == 0 {
			if err := tree.Delete(int32(i), 0); err != nil {
				t.Fatalf("delete %d: %v", i, err)
			}
		}
	}

	keys, err := tree.Keys()
	if err != nil {
		t.Fatal(err)
	}
	if len(keys) != n/2 {
		t.Fatalf("len(keys) = %d, want %d", len(keys), n/2)
	}
	for _, key := range keys {
		if key%2 == 0 {
			t.Fatalf("even key %d survived", key)
		}
	}
	mustZombieFree(t, tree)
	if err := tree.ValidateIntegrity(); err != nil {
		t.Fatalf("integrity: %v", err)
	}
}
