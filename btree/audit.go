package btree

import (
	"fmt"
	"math"

	"github.com/LandSharkFive/DiskTwo/common"
)

// Report summarizes one structural audit pass.
type Report struct {
	Height         int
	ReachableNodes int
	TotalKeys      int
	AverageDensity float64
	GhostCount     int // child ids pointing outside the allocated range
	ZombieCount    int // allocated ids neither reachable nor on the free list
}

// auditState accumulates one recursive walk from the root.
type auditState struct {
	visited []bool
	height  int
	keys    int
	ghosts  int
}

// PerformFullAudit walks the tree once and reports height, reachability,
// key totals, density, and the ghost and zombie counts.
func (t *Tree) PerformFullAudit() (Report, error) {
	if t.closed {
		return Report{}, common.ErrClosed
	}

	st := &auditState{visited: make([]bool, t.pager.NodeCount())}
	rootID := t.pager.RootID()
	if rootID != NilPage {
		if err := t.auditWalk(rootID, 1, st); err != nil {
			return Report{}, err
		}
	}

	reachable := 0
	zombies := 0
	for id, seen := range st.visited {
		if seen {
			reachable++
		} else if !t.pager.IsFree(int32(id)) {
			zombies++
		}
	}

	density := 0.0
	if reachable > 0 {
		density = float64(st.keys) / (float64(reachable) * float64(t.maxKeys()))
	}

	return Report{
		Height:         st.height,
		ReachableNodes: reachable,
		TotalKeys:      st.keys,
		AverageDensity: density,
		GhostCount:     st.ghosts,
		ZombieCount:    zombies,
	}, nil
}

func (t *Tree) auditWalk(id int32, depth int, st *auditState) error {
	if id < 0 || int(id) >= len(st.visited) {
		st.ghosts++
		return nil
	}
	if st.visited[id] {
		return fmt.Errorf("audit: cycle through node %d: %w", id, common.ErrCorrupt)
	}
	st.visited[id] = true

	node, err := t.pager.ReadNode(id)
	if err != nil {
		return err
	}
	st.keys += int(node.NumKeys)
	if depth > st.height {
		st.height = depth
	}
	if node.Leaf {
		return nil
	}
	for j := int32(0); j <= node.NumKeys; j++ {
		if err := t.auditWalk(node.Kids[j], depth+1, st); err != nil {
			return err
		}
	}
	return nil
}

// CountZombies returns the number of allocated ids that are neither
// reachable from the root nor on the free list.
func (t *Tree) CountZombies() (int, error) {
	report, err := t.PerformFullAudit()
	if err != nil {
		return 0, err
	}
	return report.ZombieCount, nil
}

// CountGhost returns the number of child ids that point outside the
// allocated range.
func (t *Tree) CountGhost() (int, error) {
	report, err := t.PerformFullAudit()
	if err != nil {
		return 0, err
	}
	return report.GhostCount, nil
}

// ReclaimOrphans moves every zombie onto the free list, zeroing its page,
// and returns how many were reclaimed.
func (t *Tree) ReclaimOrphans() (int, error) {
	if t.closed {
		return 0, common.ErrClosed
	}

	st := &auditState{visited: make([]bool, t.pager.NodeCount())}
	rootID := t.pager.RootID()
	if rootID != NilPage {
		if err := t.auditWalk(rootID, 1, st); err != nil {
			return 0, err
		}
	}

	reclaimed := 0
	for id, seen := range st.visited {
		if seen || t.pager.IsFree(int32(id)) {
			continue
		}
		if err := t.pager.Zero(int32(id)); err != nil {
			return reclaimed, err
		}
		t.pager.Free(int32(id))
		reclaimed++
	}
	return reclaimed, nil
}

// CheckGhost fails if any non-root node holds zero keys.
func (t *Tree) CheckGhost() error {
	if t.closed {
		return common.ErrClosed
	}
	rootID := t.pager.RootID()
	if rootID == NilPage {
		return nil
	}
	return t.checkGhostWalk(rootID, rootID)
}

func (t *Tree) checkGhostWalk(id, rootID int32) error {
	node, err := t.pager.ReadNode(id)
	if err != nil {
		return err
	}
	if node.NumKeys == 0 && id != rootID {
		return fmt.Errorf("audit: ghost node %d holds zero keys: %w", id, common.ErrCorrupt)
	}
	if node.Leaf {
		return nil
	}
	for j := int32(0); j <= node.NumKeys; j++ {
		if err := t.checkGhostWalk(node.Kids[j], rootID); err != nil {
			return err
		}
	}
	return nil
}

// ValidateIntegrity runs the full structural checks: cycles, ghost ids,
// ghost nodes, in-node key ordering, parent key-range bounds, and non-root
// underflow. The first violation is returned; the file is left untouched.
func (t *Tree) ValidateIntegrity() error {
	if t.closed {
		return common.ErrClosed
	}
	rootID := t.pager.RootID()
	if rootID == NilPage {
		return nil
	}
	visited := make([]bool, t.pager.NodeCount())
	return t.validateWalk(rootID, rootID, math.MinInt64, math.MaxInt64, visited)
}

func (t *Tree) validateWalk(id, rootID int32, lo, hi int64, visited []bool) error {
	if id < 0 || int(id) >= len(visited) {
		return fmt.Errorf("audit: child id %d outside [0, %d): %w", id, len(visited), common.ErrCorrupt)
	}
	if visited[id] {
		return fmt.Errorf("audit: cycle through node %d: %w", id, common.ErrCorrupt)
	}
	visited[id] = true

	node, err := t.pager.ReadNode(id)
	if err != nil {
		return err
	}

	if id != rootID {
		if node.NumKeys == 0 {
			return fmt.Errorf("audit: ghost node %d holds zero keys: %w", id, common.ErrCorrupt)
		}
		if node.NumKeys < t.minDegree()-1 {
			return fmt.Errorf("audit: node %d underflows with %d keys: %w", id, node.NumKeys, common.ErrCorrupt)
		}
	}

	for j := int32(0); j < node.NumKeys; j++ {
		k := int64(node.Keys[j].Key)
		if k <= lo || k >= hi {
			return fmt.Errorf("audit: key %d in node %d escapes (%d, %d): %w", k, id, lo, hi, common.ErrCorrupt)
		}
		if j > 0 && node.Keys[j-1].Key >= node.Keys[j].Key {
			return fmt.Errorf("audit: keys out of order in node %d at index %d: %w", id, j, common.ErrCorrupt)
		}
	}

	if node.Leaf {
		return nil
	}
	for j := int32(0); j <= node.NumKeys; j++ {
		childLo, childHi := lo, hi
		if j > 0 {
			childLo = int64(node.Keys[j-1].Key)
		}
		if j < node.NumKeys {
			childHi = int64(node.Keys[j].Key)
		}
		if err := t.validateWalk(node.Kids[j], rootID, childLo, childHi, visited); err != nil {
			return err
		}
	}
	return nil
}
