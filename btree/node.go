package btree

import (
	"encoding/binary"
	"sort"
)

const (
	// Node body layout: leaf(4) | numKeys(4) | id(4) | keys[m]{key,data} | kids[m+1].
	nodeHeaderSize = 12
	elementSize    = 8
	childSize      = 4

	// NilPage denotes "no node".
	NilPage int32 = -1
)

// nodeSize returns the encoded size of one node page for the given order.
func nodeSize(order int32) int64 {
	return int64(nodeHeaderSize) + int64(order)*elementSize + int64(order+1)*childSize
}

// Node is the in-memory view of one fixed-size page. Keys has one physical
// slot beyond the logical maximum of order-1 so a node can transiently hold
// order keys between a merge and the split that thins it back down. Kids is
// unused on leaves and serializes to NilPage there.
type Node struct {
	ID      int32
	Leaf    bool
	NumKeys int32
	Keys    []Element
	Kids    []int32
}

// newNode returns a node with all slots vacated.
func newNode(order, id int32, leaf bool) *Node {
	n := &Node{
		ID:   id,
		Leaf: leaf,
		Keys: make([]Element, order),
		Kids: make([]int32, order+1),
	}
	for i := range n.Keys {
		n.Keys[i] = sentinel
	}
	for i := range n.Kids {
		n.Kids[i] = NilPage
	}
	return n
}

// encode writes the node into buf, which must be nodeSize(order) bytes.
func (n *Node) encode(buf []byte) {
	leaf := uint32(0)
	if n.Leaf {
		leaf = 1
	}
	binary.LittleEndian.PutUint32(buf[0:4], leaf)
	binary.LittleEndian.PutUint32(buf[4:8], uint32(n.NumKeys))
	binary.LittleEndian.PutUint32(buf[8:12], uint32(n.ID))

	off := nodeHeaderSize
	for _, e := range n.Keys {
		binary.LittleEndian.PutUint32(buf[off:off+4], uint32(e.Key))
		binary.LittleEndian.PutUint32(buf[off+4:off+8], uint32(e.Data))
		off += elementSize
	}
	for _, kid := range n.Kids {
		binary.LittleEndian.PutUint32(buf[off:off+4], uint32(kid))
		off += childSize
	}
}

// decodeNode reads a node back from its page image.
func decodeNode(buf []byte, order int32) *Node {
	n := &Node{
		Leaf:    binary.LittleEndian.Uint32(buf[0:4]) != 0,
		NumKeys: int32(binary.LittleEndian.Uint32(buf[4:8])),
		ID:      int32(binary.LittleEndian.Uint32(buf[8:12])),
		Keys:    make([]Element, order),
		Kids:    make([]int32, order+1),
	}

	off := nodeHeaderSize
	for i := range n.Keys {
		n.Keys[i] = Element{
			Key:  int32(binary.LittleEndian.Uint32(buf[off : off+4])),
			Data: int32(binary.LittleEndian.Uint32(buf[off+4 : off+8])),
		}
		off += elementSize
	}
	for i := range n.Kids {
		n.Kids[i] = int32(binary.LittleEndian.Uint32(buf[off : off+4]))
		off += childSize
	}
	return n
}

// search returns the least index i with Keys[i].Key >= key, or NumKeys if no
// such key exists.
func (n *Node) search(key int32) int32 {
	i := sort.Search(int(n.NumKeys), func(i int) bool {
		return n.Keys[i].Key >= key
	})
	return int32(i)
}

// contains reports whether the key at index i matches key.
func (n *Node) contains(i int32, key int32) bool {
	return i < n.NumKeys && n.Keys[i].Key == key
}

// insertKeyAt shifts Keys[i..] right by one and places e at i.
func (n *Node) insertKeyAt(i int32, e Element) {
	for j := n.NumKeys; j > i; j-- {
		n.Keys[j] = n.Keys[j-1]
	}
	n.Keys[i] = e
	n.NumKeys++
}

// removeKeyAt shifts Keys[i+1..NumKeys) left by one and vacates the tail slot.
func (n *Node) removeKeyAt(i int32) {
	for j := i; j < n.NumKeys-1; j++ {
		n.Keys[j] = n.Keys[j+1]
	}
	n.Keys[n.NumKeys-1] = sentinel
	n.NumKeys--
}

// removeChildAt shifts Kids[i+1..NumKeys+1) left by one and vacates the tail
// slot. Callers pair it with removeKeyAt during a merge.
func (n *Node) removeChildAt(i int32) {
	for j := i; j < n.NumKeys; j++ {
		n.Kids[j] = n.Kids[j+1]
	}
	n.Kids[n.NumKeys] = NilPage
}
