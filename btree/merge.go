package btree

import (
	"fmt"

	"github.com/LandSharkFive/DiskTwo/common"
)

// Deletion is single-pass top-down: every node stepped into that holds fewer
// than minDegree keys is first thickened by borrowing one key from a sibling
// or merging with one, so removal at the bottom never has to walk back up.

// Delete removes the element stored under key. Matching is by key alone;
// data is accepted for symmetry with Insert but does not participate.
// Deleting an absent key is a no-op.
func (t *Tree) Delete(key, data int32) error {
	_ = data

	if err := t.errClosed(); err != nil {
		return err
	}

	rootID := t.pager.RootID()
	if rootID == NilPage {
		return nil
	}

	root, err := t.pager.ReadNode(rootID)
	if err != nil {
		return err
	}
	if err := t.deleteFrom(root, key); err != nil {
		return err
	}

	// Root collapse: an internal root drained to zero keys hands its sole
	// child the root role and retires.
	root, err = t.pager.ReadNode(t.pager.RootID())
	if err != nil {
		return err
	}
	if !root.Leaf && root.NumKeys == 0 {
		child := root.Kids[0]
		if err := t.pager.Zero(root.ID); err != nil {
			return err
		}
		t.pager.Free(root.ID)
		return t.pager.SetRootID(child)
	}
	return nil
}

// deleteFrom removes key from the subtree rooted at x.
func (t *Tree) deleteFrom(x *Node, key int32) error {
	i := x.search(key)

	if x.contains(i, key) {
		if x.Leaf {
			x.removeKeyAt(i)
			return t.pager.WriteNode(x)
		}
		return t.deleteInternal(x, i, key)
	}

	if x.Leaf {
		return nil
	}

	child, err := t.pager.ReadNode(x.Kids[i])
	if err != nil {
		return err
	}
	if child.NumKeys < t.minDegree() {
		i, err = t.fill(x, i)
		if err != nil {
			return err
		}
		child, err = t.pager.ReadNode(x.Kids[i])
		if err != nil {
			return err
		}
	}
	return t.deleteFrom(child, key)
}

// deleteInternal removes the key sitting at position i of internal node x.
// A thick neighbor donates its extreme element as the replacement separator;
// when both neighbors are thin they merge and deletion continues inside the
// merged child.
func (t *Tree) deleteInternal(x *Node, i int32, key int32) error {
	d := t.minDegree()

	left, err := t.pager.ReadNode(x.Kids[i])
	if err != nil {
		return err
	}
	if left.NumKeys >= d {
		pred, err := t.deleteMax(left)
		if err != nil {
			return err
		}
		x.Keys[i] = pred
		return t.pager.WriteNode(x)
	}

	right, err := t.pager.ReadNode(x.Kids[i+1])
	if err != nil {
		return err
	}
	if right.NumKeys >= d {
		succ, err := t.deleteMin(right)
		if err != nil {
			return err
		}
		x.Keys[i] = succ
		return t.pager.WriteNode(x)
	}

	if err := t.mergeChildren(x, i); err != nil {
		return err
	}
	merged, err := t.pager.ReadNode(x.Kids[i])
	if err != nil {
		return err
	}
	return t.deleteFrom(merged, key)
}

// deleteMax removes and returns the largest element under x.
func (t *Tree) deleteMax(x *Node) (Element, error) {
	if x.Leaf {
		if x.NumKeys == 0 {
			return Element{}, fmt.Errorf("btree: empty leaf %d on max descent: %w", x.ID, common.ErrCorrupt)
		}
		e := x.Keys[x.NumKeys-1]
		x.Keys[x.NumKeys-1] = sentinel
		x.NumKeys--
		if err := t.pager.WriteNode(x); err != nil {
			return Element{}, err
		}
		return e, nil
	}

	i := x.NumKeys
	child, err := t.pager.ReadNode(x.Kids[i])
	if err != nil {
		return Element{}, err
	}
	if child.NumKeys < t.minDegree() {
		i, err = t.fill(x, i)
		if err != nil {
			return Element{}, err
		}
		child, err = t.pager.ReadNode(x.Kids[i])
		if err != nil {
			return Element{}, err
		}
	}
	return t.deleteMax(child)
}

// deleteMin removes and returns the smallest element under x.
func (t *Tree) deleteMin(x *Node) (Element, error) {
	if x.Leaf {
		if x.NumKeys == 0 {
			return Element{}, fmt.Errorf("btree: empty leaf %d on min descent: %w", x.ID, common.ErrCorrupt)
		}
		e := x.Keys[0]
		x.removeKeyAt(0)
		if err := t.pager.WriteNode(x); err != nil {
			return Element{}, err
		}
		return e, nil
	}

	var i int32
	child, err := t.pager.ReadNode(x.Kids[0])
	if err != nil {
		return Element{}, err
	}
	if child.NumKeys < t.minDegree() {
		i, err = t.fill(x, 0)
		if err != nil {
			return Element{}, err
		}
		child, err = t.pager.ReadNode(x.Kids[i])
		if err != nil {
			return Element{}, err
		}
	}
	return t.deleteMin(child)
}

// fill thickens the thin child at position i of x, by rotating in one key
// from a sibling holding at least minDegree keys or else by merging it with a
// sibling. A child that held minDegree-1 keys ends with at least minDegree;
// one that held fewer gains one key from a rotation. It returns the
// position the descent should continue through, which
// shifts left by one when the child merges into its left sibling.
func (t *Tree) fill(x *Node, i int32) (int32, error) {
	d := t.minDegree()

	if i > 0 {
		left, err := t.pager.ReadNode(x.Kids[i-1])
		if err != nil {
			return i, err
		}
		if left.NumKeys >= d {
			return i, t.borrowFromLeft(x, i, left)
		}
	}
	if i < x.NumKeys {
		right, err := t.pager.ReadNode(x.Kids[i+1])
		if err != nil {
			return i, err
		}
		if right.NumKeys >= d {
			return i, t.borrowFromRight(x, i, right)
		}
	}

	if i < x.NumKeys {
		return i, t.mergeChildren(x, i)
	}
	return i - 1, t.mergeChildren(x, i-1)
}

// borrowFromLeft right-rotates one element through the separator at i-1:
// the separator drops into the child and the left sibling's last element
// replaces it.
func (t *Tree) borrowFromLeft(x *Node, i int32, left *Node) error {
	child, err := t.pager.ReadNode(x.Kids[i])
	if err != nil {
		return err
	}

	for j := child.NumKeys; j > 0; j-- {
		child.Keys[j] = child.Keys[j-1]
	}
	child.Keys[0] = x.Keys[i-1]
	if !child.Leaf {
		for j := child.NumKeys + 1; j > 0; j-- {
			child.Kids[j] = child.Kids[j-1]
		}
		child.Kids[0] = left.Kids[left.NumKeys]
		left.Kids[left.NumKeys] = NilPage
	}
	child.NumKeys++

	x.Keys[i-1] = left.Keys[left.NumKeys-1]
	left.Keys[left.NumKeys-1] = sentinel
	left.NumKeys--

	if err := t.pager.WriteNode(left); err != nil {
		return err
	}
	if err := t.pager.WriteNode(child); err != nil {
		return err
	}
	return t.pager.WriteNode(x)
}

// borrowFromRight left-rotates one element through the separator at i.
func (t *Tree) borrowFromRight(x *Node, i int32, right *Node) error {
	child, err := t.pager.ReadNode(x.Kids[i])
	if err != nil {
		return err
	}

	child.Keys[child.NumKeys] = x.Keys[i]
	if !child.Leaf {
		child.Kids[child.NumKeys+1] = right.Kids[0]
	}
	child.NumKeys++

	x.Keys[i] = right.Keys[0]
	right.removeKeyAt(0)
	if !right.Leaf {
		// right.NumKeys is already decremented; drop its first child.
		for j := int32(0); j <= right.NumKeys; j++ {
			right.Kids[j] = right.Kids[j+1]
		}
		right.Kids[right.NumKeys+1] = NilPage
	}

	if err := t.pager.WriteNode(child); err != nil {
		return err
	}
	if err := t.pager.WriteNode(right); err != nil {
		return err
	}
	return t.pager.WriteNode(x)
}

// mergeChildren pulls the separator at i down between child i and child i+1,
// concatenates the pair into the left node, and retires the right one. The
// merged node can transiently hold order keys; the next insert descent
// splits it back below capacity.
func (t *Tree) mergeChildren(x *Node, i int32) error {
	left, err := t.pager.ReadNode(x.Kids[i])
	if err != nil {
		return err
	}
	right, err := t.pager.ReadNode(x.Kids[i+1])
	if err != nil {
		return err
	}

	left.Keys[left.NumKeys] = x.Keys[i]
	for j := int32(0); j < right.NumKeys; j++ {
		left.Keys[left.NumKeys+1+j] = right.Keys[j]
	}
	if !left.Leaf {
		for j := int32(0); j <= right.NumKeys; j++ {
			left.Kids[left.NumKeys+1+j] = right.Kids[j]
		}
	}
	left.NumKeys += 1 + right.NumKeys

	x.removeChildAt(i + 1)
	x.removeKeyAt(i)

	if err := t.pager.WriteNode(left); err != nil {
		return err
	}
	if err := t.pager.Zero(right.ID); err != nil {
		return err
	}
	t.pager.Free(right.ID)
	return t.pager.WriteNode(x)
}
