package btree

import "testing"

func TestNodeVacatedSlots(t *testing.T) {
	n := newNode(8, 3, true)
	n.Keys[0] = Element{Key: 10, Data: 100}
	n.Keys[1] = Element{Key: 20, Data: 200}
	n.NumKeys = 2

	buf := make([]byte, nodeSize(8))
	n.encode(buf)
	got := decodeNode(buf, 8)

	if !got.Leaf || got.ID != 3 || got.NumKeys != 2 {
		t.Fatalf("header fields lost: %+v", got)
	}
	if got.Keys[0] != (Element{10, 100}) || got.Keys[1] != (Element{20, 200}) {
		t.Fatalf("keys lost: %+v", got.Keys[:2])
	}
	for i := int32(2); i < 8; i++ {
		if got.Keys[i] != sentinel {
			t.Fatalf("slot %d not vacated: %+v", i, got.Keys[i])
		}
	}
	for i, kid := range got.Kids {
		if kid != NilPage {
			t.Fatalf("leaf child slot %d serialized as %d, want %d", i, kid, NilPage)
		}
	}
}

func TestNodeSearch(t *testing.T) {
	n := newNode(8, 0, true)
	for i, k := range []int32{10, 20, 30} {
		n.Keys[i] = Element{Key: k, Data: k}
	}
	n.NumKeys = 3

	cases := []struct {
		key  int32
		want int32
	}{
		{5, 0}, {10, 0}, {15, 1}, {20, 1}, {30, 2}, {35, 3},
	}
	for _, c := range cases {
		if got := n.search(c.key); got != c.want {
			t.Errorf("search(%d) = %d, want %d", c.key, got, c.want)
		}
	}
}
