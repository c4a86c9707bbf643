package btree

import (
	"fmt"
	"os"

	"github.com/LandSharkFive/DiskTwo/common"
)

// Builder loads a sorted, duplicate-free element list into a fresh index
// file, writing nodes bottom-up in post-order so ids increase monotonically.
// It owns its own pager for the duration of one build.
type Builder struct {
	pager      *Pager
	order      int32
	leafTarget int32
}

// Build bulk-loads elems into the file named by config, honoring its fill
// factor.
func Build(elems []Element, config Config) error {
	return BuildFromSorted(elems, config.Path, config.Order, config.Fill)
}

// BuildFromSorted bulk-loads a sorted, duplicate-free element list into a
// newly created index file at path. fill sets the target leaf density in
// [0.5, 1.0]. Any existing file at path is replaced.
func BuildFromSorted(elems []Element, path string, order int, fill float64) error {
	if fill < 0.5 || fill > 1.0 {
		return fmt.Errorf("builder: fill %v outside [0.5, 1.0]: %w", fill, common.ErrInvalidArgument)
	}
	for i := 1; i < len(elems); i++ {
		if elems[i].Key <= elems[i-1].Key {
			return fmt.Errorf("builder: input not sorted and unique at index %d: %w", i, common.ErrInvalidArgument)
		}
	}

	// The output is always a fresh file; a stale index at the target path
	// would otherwise be opened and appended to.
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("builder: remove stale output: %w", err)
	}

	pager, err := OpenPager(path, order)
	if err != nil {
		return err
	}

	b := &Builder{
		pager:      pager,
		order:      int32(order),
		leafTarget: leafTarget(int32(order), fill),
	}

	if len(elems) > 0 {
		rootID, err := b.build(elems)
		if err != nil {
			pager.Close()
			return err
		}
		if err := pager.SetRootID(rootID); err != nil {
			pager.Close()
			return err
		}
	}
	return pager.Close()
}

// leafTarget clamps the per-leaf key target to [1, order-1].
func leafTarget(order int32, fill float64) int32 {
	target := int32(float64(order-1) * fill)
	if target < 1 {
		target = 1
	}
	if target > order-1 {
		target = order - 1
	}
	return target
}

// height returns the least h >= 1 such that leafTarget * order^(h-1) >= n.
func (b *Builder) height(n int) int {
	h := 1
	capacity := int64(b.leafTarget)
	for capacity < int64(n) {
		capacity *= int64(b.order)
		h++
	}
	return h
}

// build writes the subtree for elems and returns its root id. Children are
// written before their parent, so a parent id is always larger than every
// id below it.
func (b *Builder) build(elems []Element) (int32, error) {
	n := len(elems)

	// A range this small is a single leaf. The n < 3 clause keeps the
	// internal branch from ever needing a separator with nothing left for
	// the trailing child.
	if n <= int(b.leafTarget) || n < 3 {
		return b.writeLeaf(elems)
	}

	h := b.height(n)
	childCap := int(b.leafTarget)
	for i := 0; i < h-2; i++ {
		childCap *= int(b.order)
	}

	maxSeps := int(b.order) - 1
	var seps []Element
	var kids []int32

	lo := 0
	for {
		remaining := n - lo
		if len(seps) == maxSeps || remaining <= childCap {
			// Trailing child takes whatever is left, with no separator.
			id, err := b.build(elems[lo:])
			if err != nil {
				return NilPage, err
			}
			kids = append(kids, id)
			break
		}

		take := childCap
		if remaining == childCap+1 {
			// Promoting a separator after a full carve would leave nothing
			// for the trailing child; shorten this carve by one. This also
			// forces a separator when the whole range is one carve plus one:
			// height minimality guarantees childCap < n, so the first carve
			// lands here rather than in the trailing branch.
			take = childCap - 1
			if take < 1 {
				id, err := b.build(elems[lo:])
				if err != nil {
					return NilPage, err
				}
				kids = append(kids, id)
				break
			}
		}

		id, err := b.build(elems[lo : lo+take])
		if err != nil {
			return NilPage, err
		}
		kids = append(kids, id)
		seps = append(seps, elems[lo+take])
		lo += take + 1
	}

	id, err := b.pager.Allocate()
	if err != nil {
		return NilPage, err
	}
	node := newNode(b.order, id, false)
	node.NumKeys = int32(len(seps))
	copy(node.Keys, seps)
	copy(node.Kids, kids)
	if err := b.pager.WriteNode(node); err != nil {
		return NilPage, err
	}
	return id, nil
}

func (b *Builder) writeLeaf(elems []Element) (int32, error) {
	id, err := b.pager.Allocate()
	if err != nil {
		return NilPage, err
	}
	node := newNode(b.order, id, true)
	node.NumKeys = int32(len(elems))
	copy(node.Keys, elems)
	if err := b.pager.WriteNode(node); err != nil {
		return NilPage, err
	}
	return id, nil
}
