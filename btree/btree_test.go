package btree

import (
	"errors"
	"testing"

	"github.com/LandSharkFive/DiskTwo/common"
	"github.com/LandSharkFive/DiskTwo/common/testutil"
)

func openTestTree(t *testing.T, order int) (*Tree, string) {
	t.Helper()
	path := testutil.TempFile(t, "tree.db")
	tree, err := Open(path, order)
	if err != nil {
		t.Fatalf("open tree: %v", err)
	}
	t.Cleanup(func() { tree.Close() })
	return tree, path
}

func mustInsert(t *testing.T, tree *Tree, key, data int32) {
	t.Helper()
	if err := tree.InsertKey(key, data); err != nil {
		t.Fatalf("insert %d: %v", key, err)
	}
}

func mustSearch(t *testing.T, tree *Tree, key, data int32) {
	t.Helper()
	e, ok, err := tree.TrySearch(key)
	if err != nil {
		t.Fatalf("search %d: %v", key, err)
	}
	if !ok {
		t.Fatalf("key %d not found", key)
	}
	if e.Data != data {
		t.Fatalf("key %d: data = %d, want %d", key, e.Data, data)
	}
}

func mustZombieFree(t *testing.T, tree *Tree) {
	t.Helper()
	zombies, err := tree.CountZombies()
	if err != nil {
		t.Fatalf("count zombies: %v", err)
	}
	if zombies != 0 {
		t.Fatalf("found %d zombies", zombies)
	}
}

func TestEmptyTree(t *testing.T) {
	tree, _ := openTestTree(t, 4)

	if _, ok, err := tree.TrySearch(1); err != nil || ok {
		t.Fatalf("search empty tree: ok=%v err=%v", ok, err)
	}
	if _, ok, _ := tree.FindMin(); ok {
		t.Fatal("min on empty tree")
	}
	if _, ok, _ := tree.FindMax(); ok {
		t.Fatal("max on empty tree")
	}
	if n, err := tree.CountKeys(tree.Root()); err != nil || n != 0 {
		t.Fatalf("count = %d, err = %v", n, err)
	}
}

// Small-order walkthrough: eight inserts at order 4 split the leaf root and
// then two more leaves, ending with a three-key root over four leaves.
func TestSmallOrder(t *testing.T) {
	tree, _ := openTestTree(t, 4)

	for i := int32(1); i <= 8; i++ {
		mustInsert(t, tree, i*10, i*100)
	}

	mustSearch(t, tree, 50, 500)

	if err := tree.Delete(10, 100); err != nil {
		t.Fatalf("delete: %v", err)
	}

	min, ok, err := tree.FindMin()
	if err != nil || !ok || min != (Element{20, 200}) {
		t.Fatalf("min = %+v ok=%v err=%v", min, ok, err)
	}
	max, ok, err := tree.FindMax()
	if err != nil || !ok || max != (Element{80, 800}) {
		t.Fatalf("max = %+v ok=%v err=%v", max, ok, err)
	}
	mustZombieFree(t, tree)
}

func TestSequentialInsert(t *testing.T) {
	tree, _ := openTestTree(t, 4)

	for i := int32(1); i <= 100; i++ {
		mustInsert(t, tree, i, i*10)
	}
	for i := int32(1); i <= 100; i++ {
		mustSearch(t, tree, i, i*10)
	}
	if tree.Root() < 0 {
		t.Fatal("root id unset")
	}
	mustZombieFree(t, tree)
	if err := tree.ValidateIntegrity(); err != nil {
		t.Fatalf("integrity: %v", err)
	}
}

func TestUpsert(t *testing.T) {
	tree, _ := openTestTree(t, 4)

	for i := int32(1); i <= 40; i++ {
		mustInsert(t, tree, i, i)
	}
	// Overwrite a key that lives in an internal node and one in a leaf.
	mustInsert(t, tree, 20, 999)
	mustInsert(t, tree, 1, 111)

	mustSearch(t, tree, 20, 999)
	mustSearch(t, tree, 1, 111)

	if n, err := tree.CountKeys(tree.Root()); err != nil || n != 40 {
		t.Fatalf("count after upsert = %d, err = %v", n, err)
	}
}

func TestPersistence(t *testing.T) {
	path := testutil.TempFile(t, "persist.db")

	tree, err := Open(path, 4)
	if err != nil {
		t.Fatal(err)
	}
	for i := int32(1); i <= 50; i++ {
		mustInsert(t, tree, i, i*2)
	}
	if err := tree.Close(); err != nil {
		t.Fatal(err)
	}

	tree, err = Open(path, 4)
	if err != nil {
		t.Fatal(err)
	}
	defer tree.Close()

	for i := int32(1); i <= 50; i++ {
		mustSearch(t, tree, i, i*2)
	}
}

// A slot freed before close must be reused by the first post-open insert
// without growing the node count.
func TestFreeSlotReuseAcrossReopen(t *testing.T) {
	path := testutil.TempFile(t, "reuse.db")

	tree, err := Open(path, 4)
	if err != nil {
		t.Fatal(err)
	}
	for i := int32(1); i <= 10; i++ {
		mustInsert(t, tree, i, i)
	}
	if err := tree.Delete(1, 0); err != nil {
		t.Fatal(err)
	}
	if err := tree.Delete(2, 0); err != nil {
		t.Fatal(err)
	}
	if tree.FreeCount() == 0 {
		t.Fatal("expected merges to free at least one page")
	}
	countBefore := tree.NodeCount()
	if err := tree.Close(); err != nil {
		t.Fatal(err)
	}

	tree, err = Open(path, 4)
	if err != nil {
		t.Fatal(err)
	}
	defer tree.Close()

	mustInsert(t, tree, 1000, 1000)
	if tree.NodeCount() != countBefore {
		t.Fatalf("node count grew from %d to %d despite free slots", countBefore, tree.NodeCount())
	}
}

func TestClosedTree(t *testing.T) {
	tree, _ := openTestTree(t, 4)
	mustInsert(t, tree, 1, 1)
	if err := tree.Close(); err != nil {
		t.Fatal(err)
	}
	if err := tree.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}

	if err := tree.InsertKey(2, 2); !errors.Is(err, common.ErrClosed) {
		t.Errorf("insert after close: got %v", err)
	}
	if _, _, err := tree.TrySearch(1); !errors.Is(err, common.ErrClosed) {
		t.Errorf("search after close: got %v", err)
	}
	if err := tree.Delete(1, 0); !errors.Is(err, common.ErrClosed) {
		t.Errorf("delete after close: got %v", err)
	}
}

func TestCommit(t *testing.T) {
	tree, _ := openTestTree(t, 8)
	for i := int32(1); i <= 20; i++ {
		mustInsert(t, tree, i, i)
	}
	if err := tree.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
}

func TestNewFromConfig(t *testing.T) {
	config := DefaultConfig(testutil.TempFile(t, "config.db"))
	tree, err := New(config)
	if err != nil {
		t.Fatal(err)
	}
	defer tree.Close()

	if tree.Order() != config.Order {
		t.Fatalf("order = %d, want %d", tree.Order(), config.Order)
	}
	mustInsert(t, tree, 1, 1)
	mustSearch(t, tree, 1, 1)
}

func TestNegativeKeyIsLegal(t *testing.T) {
	tree, _ := openTestTree(t, 4)

	mustInsert(t, tree, -1, 42)
	mustInsert(t, tree, 0, 7)
	mustSearch(t, tree, -1, 42)
	mustSearch(t, tree, 0, 7)
}

func BenchmarkInsert(b *testing.B) {
	dir := b.TempDir()
	tree, err := Open(dir+"/bench.db", 32)
	if err != nil {
		b.Fatal(err)
	}
	defer tree.Close()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := tree.InsertKey(int32(i), int32(i)); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkSearch(b *testing.B) {
	dir := b.TempDir()
	tree, err := Open(dir+"/bench.db", 32)
	if err != nil {
		b.Fatal(err)
	}
	defer tree.Close()

	const n = 10000
	for i := 0; i < n; i++ {
		if err := tree.InsertKey(int32(i), int32(i)); err != nil {
			b.Fatal(err)
		}
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, _, err := tree.TrySearch(int32(i % n)); err != nil {
			b.Fatal(err)
		}
	}
}
