package btree

import (
	"fmt"
	"os"

	"github.com/LandSharkFive/DiskTwo/common"
)

// Compact rewrites the index into a file with no zombies, no free list, and
// a contiguous live-node labeling [0, reachable). The rewrite goes to a
// temporary file which then replaces the source via rename, keeping a
// backup until the swap has succeeded.
func (t *Tree) Compact() error {
	if err := t.errClosed(); err != nil {
		return err
	}

	nodeCount := t.pager.NodeCount()
	live := make([]bool, nodeCount)
	rootID := t.pager.RootID()
	if rootID != NilPage {
		if err := t.markLive(rootID, live); err != nil {
			return err
		}
	}

	// Number live nodes in ascending original-id order.
	remap := make([]int32, nodeCount)
	next := int32(0)
	for id := int32(0); id < nodeCount; id++ {
		remap[id] = NilPage
		if live[id] {
			remap[id] = next
			next++
		}
	}

	path := t.pager.path
	tmpPath := path + ".tmp"
	if err := os.Remove(tmpPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("compact: remove stale temp file: %w", err)
	}

	dst, err := OpenPager(tmpPath, int(t.order))
	if err != nil {
		return err
	}

	for id := int32(0); id < nodeCount; id++ {
		if !live[id] {
			continue
		}
		node, err := t.pager.ReadNode(id)
		if err != nil {
			dst.Close()
			return err
		}
		node.ID = remap[id]
		if !node.Leaf {
			for j := int32(0); j <= node.NumKeys; j++ {
				node.Kids[j] = remap[node.Kids[j]]
			}
		}
		if _, err := dst.Allocate(); err != nil {
			dst.Close()
			return err
		}
		if err := dst.WriteNode(node); err != nil {
			dst.Close()
			return err
		}
	}

	newRoot := NilPage
	if rootID != NilPage {
		newRoot = remap[rootID]
	}
	if err := dst.SetRootID(newRoot); err != nil {
		dst.Close()
		return err
	}
	if err := dst.Close(); err != nil {
		return err
	}

	if err := t.pager.Close(); err != nil {
		return err
	}

	backupPath := path + ".bak"
	if err := os.Rename(path, backupPath); err != nil {
		return fmt.Errorf("compact: back up source: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		// Put the source back so the tree is still usable.
		os.Rename(backupPath, path)
		t.pager, _ = OpenPager(path, int(t.order))
		return fmt.Errorf("compact: swap in rewritten file: %w", err)
	}
	if err := os.Remove(backupPath); err != nil {
		return fmt.Errorf("compact: remove backup: %w", err)
	}

	pager, err := OpenPager(path, int(t.order))
	if err != nil {
		return err
	}
	t.pager = pager
	return nil
}

// markLive flags every node reachable from id. Revisiting a node means a
// cycle, which aborts the scan.
func (t *Tree) markLive(id int32, live []bool) error {
	if id < 0 || int(id) >= len(live) {
		return fmt.Errorf("compact: child id %d outside [0, %d): %w", id, len(live), common.ErrCorrupt)
	}
	if live[id] {
		return fmt.Errorf("compact: cycle through node %d: %w", id, common.ErrCorrupt)
	}
	live[id] = true

	node, err := t.pager.ReadNode(id)
	if err != nil {
		return err
	}
	if node.Leaf {
		return nil
	}
	for j := int32(0); j <= node.NumKeys; j++ {
		if err := t.markLive(node.Kids[j], live); err != nil {
			return err
		}
	}
	return nil
}
