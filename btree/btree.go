package btree

import (
	"fmt"

	"github.com/LandSharkFive/DiskTwo/common"
)

// DefaultFill is the builder's target leaf density when none is given.
const DefaultFill = 0.8

// Config holds configuration for a tree
type Config struct {
	Path  string
	Order int     // Max children per node; max keys per node is Order-1
	Fill  float64 // Target leaf density for bulk load
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig(path string) Config {
	return Config{
		Path:  path,
		Order: 32, // ~400-byte pages; keeps trees shallow for integer payloads
		Fill:  DefaultFill,
	}
}

// Tree is a single-file classic B-tree index. Every node, internal nodes
// included, carries payload data. All mutating operations go through the
// pager; there is no page cache because every modification must reach the
// file before a dependent read at another node.
type Tree struct {
	pager  *Pager
	order  int32
	closed bool
}

// New creates or opens a tree from a Config.
func New(config Config) (*Tree, error) {
	return Open(config.Path, config.Order)
}

// Open creates or opens the index file at path with the given order.
func Open(path string, order int) (*Tree, error) {
	pager, err := OpenPager(path, order)
	if err != nil {
		return nil, err
	}
	return &Tree{pager: pager, order: pager.Order()}, nil
}

// maxKeys is the logical key capacity of one node.
func (t *Tree) maxKeys() int32 {
	return t.order - 1
}

// minDegree returns ceil(order/2); non-root nodes keep at least minDegree-1
// keys.
func (t *Tree) minDegree() int32 {
	return (t.order + 1) / 2
}

// Order returns the branching factor.
func (t *Tree) Order() int {
	return int(t.order)
}

// Root returns the root node id, NilPage when the tree is empty.
func (t *Tree) Root() int32 {
	return t.pager.RootID()
}

// NodeCount returns the allocation high-water mark of the backing file.
func (t *Tree) NodeCount() int32 {
	return t.pager.NodeCount()
}

// FreeCount returns the number of reclaimable page ids.
func (t *Tree) FreeCount() int {
	return t.pager.FreeCount()
}

// TrySearch returns the element stored under key, if any.
func (t *Tree) TrySearch(key int32) (Element, bool, error) {
	if t.closed {
		return Element{}, false, common.ErrClosed
	}

	id := t.pager.RootID()
	for id != NilPage {
		node, err := t.pager.ReadNode(id)
		if err != nil {
			return Element{}, false, err
		}
		i := node.search(key)
		if node.contains(i, key) {
			return node.Keys[i], true, nil
		}
		if node.Leaf {
			break
		}
		id = node.Kids[i]
	}
	return Element{}, false, nil
}

// FindMin returns the smallest element in the tree.
func (t *Tree) FindMin() (Element, bool, error) {
	if t.closed {
		return Element{}, false, common.ErrClosed
	}

	id := t.pager.RootID()
	if id == NilPage {
		return Element{}, false, nil
	}
	for {
		node, err := t.pager.ReadNode(id)
		if err != nil {
			return Element{}, false, err
		}
		if node.Leaf {
			if node.NumKeys == 0 {
				return Element{}, false, nil
			}
			return node.Keys[0], true, nil
		}
		id = node.Kids[0]
	}
}

// FindMax returns the largest element in the tree.
func (t *Tree) FindMax() (Element, bool, error) {
	if t.closed {
		return Element{}, false, common.ErrClosed
	}

	id := t.pager.RootID()
	if id == NilPage {
		return Element{}, false, nil
	}
	for {
		node, err := t.pager.ReadNode(id)
		if err != nil {
			return Element{}, false, err
		}
		if node.Leaf {
			if node.NumKeys == 0 {
				return Element{}, false, nil
			}
			return node.Keys[node.NumKeys-1], true, nil
		}
		id = node.Kids[node.NumKeys]
	}
}

// CountKeys returns the number of keys in the subtree rooted at id.
func (t *Tree) CountKeys(id int32) (int, error) {
	if t.closed {
		return 0, common.ErrClosed
	}
	if id == NilPage {
		return 0, nil
	}
	node, err := t.pager.ReadNode(id)
	if err != nil {
		return 0, err
	}
	total := int(node.NumKeys)
	if !node.Leaf {
		for i := int32(0); i <= node.NumKeys; i++ {
			sub, err := t.CountKeys(node.Kids[i])
			if err != nil {
				return 0, err
			}
			total += sub
		}
	}
	return total, nil
}

// Commit persists the header and flushes OS buffers.
func (t *Tree) Commit() error {
	if t.closed {
		return common.ErrClosed
	}
	return t.pager.Commit()
}

// Close persists the free list and header and releases the file. Closing
// twice is a no-op.
func (t *Tree) Close() error {
	if t.closed {
		return nil
	}
	t.closed = true
	return t.pager.Close()
}

// errClosed is shared by the mutating entry points.
func (t *Tree) errClosed() error {
	if t.closed {
		return fmt.Errorf("btree: %w", common.ErrClosed)
	}
	return nil
}
