package btree

import "github.com/LandSharkFive/DiskTwo/common"

// Iterator walks the tree in key order without materializing it. Peak
// memory is one frame per level of the tree.
type Iterator struct {
	tree  *Tree
	stack []iterFrame
	cur   Element
	err   error
}

// iterFrame tracks one node on the descent path. pos is the next key to
// emit; inChild reports whether the subtree left of that key has already
// been walked.
type iterFrame struct {
	node    *Node
	pos     int32
	inChild bool
}

// Scan returns an in-order iterator over the whole tree.
func (t *Tree) Scan() (*Iterator, error) {
	if t.closed {
		return nil, common.ErrClosed
	}

	it := &Iterator{tree: t}
	rootID := t.pager.RootID()
	if rootID == NilPage {
		return it, nil
	}
	root, err := t.pager.ReadNode(rootID)
	if err != nil {
		return nil, err
	}
	it.stack = append(it.stack, iterFrame{node: root})
	return it, nil
}

// Next advances the iterator and reports whether a current element exists.
func (it *Iterator) Next() bool {
	if it.err != nil {
		return false
	}

	for len(it.stack) > 0 {
		f := &it.stack[len(it.stack)-1]

		if f.node.Leaf {
			if f.pos < f.node.NumKeys {
				it.cur = f.node.Keys[f.pos]
				f.pos++
				return true
			}
			it.stack = it.stack[:len(it.stack)-1]
			continue
		}

		if !f.inChild {
			f.inChild = true
			child, err := it.tree.pager.ReadNode(f.node.Kids[f.pos])
			if err != nil {
				it.err = err
				return false
			}
			it.stack = append(it.stack, iterFrame{node: child})
			continue
		}

		if f.pos < f.node.NumKeys {
			it.cur = f.node.Keys[f.pos]
			f.pos++
			f.inChild = false
			return true
		}
		it.stack = it.stack[:len(it.stack)-1]
	}
	return false
}

// Element returns the element at the current position.
func (it *Iterator) Element() Element {
	return it.cur
}

// Err returns the first error encountered during iteration.
func (it *Iterator) Err() error {
	return it.err
}

// Close releases the iterator.
func (it *Iterator) Close() {
	it.stack = nil
}

// Keys returns every key in ascending order.
func (t *Tree) Keys() ([]int32, error) {
	it, err := t.Scan()
	if err != nil {
		return nil, err
	}
	defer it.Close()

	var keys []int32
	for it.Next() {
		keys = append(keys, it.Element().Key)
	}
	return keys, it.Err()
}

// Elements returns every element in ascending key order.
func (t *Tree) Elements() ([]Element, error) {
	it, err := t.Scan()
	if err != nil {
		return nil, err
	}
	defer it.Close()

	var elems []Element
	for it.Next() {
		elems = append(elems, it.Element())
	}
	return elems, it.Err()
}
