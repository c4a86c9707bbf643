package btree

// Insertion is single-pass top-down: every full node met on the descent is
// split before stepping into it, so no split ever needs to revisit an
// ancestor. Children are always persisted before the parent that points at
// them.

// Insert adds e to the tree, or updates the payload in place when the key is
// already present.
func (t *Tree) Insert(e Element) error {
	if err := t.errClosed(); err != nil {
		return err
	}

	rootID := t.pager.RootID()
	if rootID == NilPage {
		id, err := t.pager.Allocate()
		if err != nil {
			return err
		}
		root := newNode(t.order, id, true)
		root.Keys[0] = e
		root.NumKeys = 1
		if err := t.pager.WriteNode(root); err != nil {
			return err
		}
		return t.pager.SetRootID(id)
	}

	root, err := t.pager.ReadNode(rootID)
	if err != nil {
		return err
	}

	if root.NumKeys >= t.maxKeys() {
		// Grow the tree by one level: the old root becomes child 0 of a
		// fresh internal root, then splits.
		id, err := t.pager.Allocate()
		if err != nil {
			return err
		}
		newRoot := newNode(t.order, id, false)
		newRoot.Kids[0] = rootID
		if err := t.splitChild(newRoot, 0); err != nil {
			return err
		}
		if err := t.pager.SetRootID(id); err != nil {
			return err
		}
		return t.insertNonfull(newRoot, e)
	}

	return t.insertNonfull(root, e)
}

// InsertKey is shorthand for Insert with a bare pair.
func (t *Tree) InsertKey(key, data int32) error {
	return t.Insert(Element{Key: key, Data: data})
}

// splitChild splits the full child at position i of x. The child keeps the
// first minDegree-1 keys, the median moves up into x, and a new right
// sibling takes the remainder. Persists child, sibling, then x.
func (t *Tree) splitChild(x *Node, i int32) error {
	y, err := t.pager.ReadNode(x.Kids[i])
	if err != nil {
		return err
	}

	d := t.minDegree()
	zid, err := t.pager.Allocate()
	if err != nil {
		return err
	}
	z := newNode(t.order, zid, y.Leaf)

	// Move keys [d..NumKeys) and, for internal nodes, kids [d..NumKeys] to
	// the new sibling. Vacated donor slots get sentinels.
	z.NumKeys = y.NumKeys - d
	for j := int32(0); j < z.NumKeys; j++ {
		z.Keys[j] = y.Keys[d+j]
		y.Keys[d+j] = sentinel
	}
	if !y.Leaf {
		for j := int32(0); j <= z.NumKeys; j++ {
			z.Kids[j] = y.Kids[d+j]
			y.Kids[d+j] = NilPage
		}
	}

	median := y.Keys[d-1]
	y.Keys[d-1] = sentinel
	y.NumKeys = d - 1

	// Make room in x for the median and the new sibling pointer.
	for j := x.NumKeys; j > i; j-- {
		x.Keys[j] = x.Keys[j-1]
	}
	for j := x.NumKeys + 1; j > i+1; j-- {
		x.Kids[j] = x.Kids[j-1]
	}
	x.Keys[i] = median
	x.Kids[i+1] = z.ID
	x.NumKeys++

	if err := t.pager.WriteNode(y); err != nil {
		return err
	}
	if err := t.pager.WriteNode(z); err != nil {
		return err
	}
	return t.pager.WriteNode(x)
}

// insertNonfull places e somewhere under x, which is known to have room.
func (t *Tree) insertNonfull(x *Node, e Element) error {
	i := x.search(e.Key)
	if x.contains(i, e.Key) {
		x.Keys[i].Data = e.Data
		return t.pager.WriteNode(x)
	}

	if x.Leaf {
		x.insertKeyAt(i, e)
		return t.pager.WriteNode(x)
	}

	child, err := t.pager.ReadNode(x.Kids[i])
	if err != nil {
		return err
	}
	if child.NumKeys >= t.maxKeys() {
		if err := t.splitChild(x, i); err != nil {
			return err
		}
		// The median just moved into x; re-pick between the two halves.
		if e.Key == x.Keys[i].Key {
			x.Keys[i].Data = e.Data
			return t.pager.WriteNode(x)
		}
		if e.Key > x.Keys[i].Key {
			i++
		}
		child, err = t.pager.ReadNode(x.Kids[i])
		if err != nil {
			return err
		}
	}
	return t.insertNonfull(child, e)
}
