package btree

import (
	"math/rand"
	"testing"
)

func TestIteratorEmptyTree(t *testing.T) {
	tree, _ := openTestTree(t, 4)

	it, err := tree.Scan()
	if err != nil {
		t.Fatal(err)
	}
	defer it.Close()

	if it.Next() {
		t.Fatal("Next returned true on empty tree")
	}
	if it.Err() != nil {
		t.Fatalf("err: %v", it.Err())
	}
}

func TestIteratorOrder(t *testing.T) {
	tree, _ := openTestTree(t, 8)
	rng := rand.New(rand.NewSource(3))

	const n = 300
	for _, i := range rng.Perm(n) {
		mustInsert(t, tree, int32(i), int32(i*7))
	}

	it, err := tree.Scan()
	if err != nil {
		t.Fatal(err)
	}
	defer it.Close()

	want := int32(0)
	for it.Next() {
		e := it.Element()
		if e.Key != want {
			t.Fatalf("iterator yielded %d, want %d", e.Key, want)
		}
		if e.Data != want*7 {
			t.Fatalf("key %d: data = %d, want %d", e.Key, e.Data, want*7)
		}
		want++
	}
	if it.Err() != nil {
		t.Fatalf("err: %v", it.Err())
	}
	if want != n {
		t.Fatalf("iterator stopped after %d of %d keys", want, n)
	}
}

func TestElements(t *testing.T) {
	tree, _ := openTestTree(t, 4)

	mustInsert(t, tree, 3, 30)
	mustInsert(t, tree, 1, 10)
	mustInsert(t, tree, 2, 20)

	elems, err := tree.Elements()
	if err != nil {
		t.Fatal(err)
	}
	want := []Element{{1, 10}, {2, 20}, {3, 30}}
	if len(elems) != len(want) {
		t.Fatalf("len = %d, want %d", len(elems), len(want))
	}
	for i := range want {
		if elems[i] != want[i] {
			t.Fatalf("elems[%d] = %+v, want %+v", i, elems[i], want[i])
		}
	}
}

func TestKeysSingleNode(t *testing.T) {
	tree, _ := openTestTree(t, 8)
	mustInsert(t, tree, 5, 50)

	keys, err := tree.Keys()
	if err != nil {
		t.Fatal(err)
	}
	if len(keys) != 1 || keys[0] != 5 {
		t.Fatalf("keys = %v", keys)
	}
}
