package btree

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/LandSharkFive/DiskTwo/common"
)

const (
	// Header block (page 0) layout
	HeaderSize           = 4096
	headerOffsetMagic    = 0  // 4 bytes
	headerOffsetOrder    = 4  // 4 bytes
	headerOffsetRoot     = 8  // 4 bytes
	headerOffsetPageSize = 12 // 4 bytes
	headerOffsetCount    = 16 // 4 bytes
	headerOffsetFreeNum  = 20 // 4 bytes
	headerOffsetFreeOff  = 24 // 8 bytes

	HeaderMagic = 0x42542145 // "BT!E" in hex

	// MinOrder is the smallest branching factor the engine accepts.
	MinOrder = 4
)

// Header is the persistent metadata block at file offset 0. The in-memory
// copy is authoritative; it is written through on every mutation of the root
// id or the node count.
type Header struct {
	Magic      uint32
	Order      int32
	RootID     int32
	PageSize   int32
	NodeCount  int32
	FreeCount  int32
	FreeOffset int64
}

// Pager maps logical node ids to byte offsets in a single file and owns the
// reclamation free list. Node id occupies [HeaderSize + id*pageSize,
// HeaderSize + (id+1)*pageSize).
type Pager struct {
	file     *os.File
	path     string
	header   Header
	free     map[int32]struct{}
	pageSize int64
	closed   bool
}

// OpenPager creates or opens the index file at path. An empty file is
// initialized with a fresh header; an existing file has its header validated
// and its persisted free list loaded and truncated away.
func OpenPager(path string, order int) (*Pager, error) {
	if path == "" {
		return nil, fmt.Errorf("pager: empty path: %w", common.ErrInvalidArgument)
	}
	if order < MinOrder {
		return nil, fmt.Errorf("pager: order %d below minimum %d: %w", order, MinOrder, common.ErrInvalidArgument)
	}

	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("pager: open %s: %w", path, err)
	}

	p := &Pager{
		file:     file,
		path:     path,
		free:     make(map[int32]struct{}),
		pageSize: nodeSize(int32(order)),
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("pager: stat %s: %w", path, err)
	}

	if info.Size() == 0 {
		p.header = Header{
			Magic:    HeaderMagic,
			Order:    int32(order),
			RootID:   NilPage,
			PageSize: int32(p.pageSize),
		}
		if err := p.writeHeader(); err != nil {
			file.Close()
			return nil, err
		}
		return p, nil
	}

	if err := p.load(int32(order), info.Size()); err != nil {
		file.Close()
		return nil, err
	}
	return p, nil
}

// load reads and validates the header of an existing file, then pulls the
// persisted free list into memory and truncates it off the tail.
func (p *Pager) load(order int32, size int64) error {
	if size < HeaderSize {
		return fmt.Errorf("pager: file truncated below header block: %w", common.ErrFormat)
	}

	buf := make([]byte, HeaderSize)
	if _, err := p.file.ReadAt(buf, 0); err != nil {
		return fmt.Errorf("pager: read header: %w", err)
	}

	h := Header{
		Magic:      binary.LittleEndian.Uint32(buf[headerOffsetMagic:]),
		Order:      int32(binary.LittleEndian.Uint32(buf[headerOffsetOrder:])),
		RootID:     int32(binary.LittleEndian.Uint32(buf[headerOffsetRoot:])),
		PageSize:   int32(binary.LittleEndian.Uint32(buf[headerOffsetPageSize:])),
		NodeCount:  int32(binary.LittleEndian.Uint32(buf[headerOffsetCount:])),
		FreeCount:  int32(binary.LittleEndian.Uint32(buf[headerOffsetFreeNum:])),
		FreeOffset: int64(binary.LittleEndian.Uint64(buf[headerOffsetFreeOff:])),
	}

	if h.Magic != HeaderMagic {
		return fmt.Errorf("pager: bad magic %#x: %w", h.Magic, common.ErrFormat)
	}
	if h.Order != order {
		return fmt.Errorf("pager: file order %d does not match requested %d: %w", h.Order, order, common.ErrFormat)
	}
	if int64(h.PageSize) != p.pageSize {
		return fmt.Errorf("pager: page size %d does not match order %d: %w", h.PageSize, order, common.ErrFormat)
	}

	p.header = h

	if h.FreeCount > 0 {
		end := h.FreeOffset + int64(h.FreeCount)*4
		if h.FreeOffset < HeaderSize || end > size {
			return fmt.Errorf("pager: free list outside file bounds: %w", common.ErrFormat)
		}
		ids := make([]byte, h.FreeCount*4)
		if _, err := p.file.ReadAt(ids, h.FreeOffset); err != nil {
			return fmt.Errorf("pager: read free list: %w", err)
		}
		for i := int32(0); i < h.FreeCount; i++ {
			id := int32(binary.LittleEndian.Uint32(ids[i*4:]))
			p.free[id] = struct{}{}
		}
		if err := p.file.Truncate(h.FreeOffset); err != nil {
			return fmt.Errorf("pager: truncate free list: %w", err)
		}
	}
	p.header.FreeCount = 0
	p.header.FreeOffset = 0
	return nil
}

// writeHeader encodes the in-memory header into the 4096-byte block at
// offset 0. Bytes past the fields stay zero.
func (p *Pager) writeHeader() error {
	buf := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint32(buf[headerOffsetMagic:], p.header.Magic)
	binary.LittleEndian.PutUint32(buf[headerOffsetOrder:], uint32(p.header.Order))
	binary.LittleEndian.PutUint32(buf[headerOffsetRoot:], uint32(p.header.RootID))
	binary.LittleEndian.PutUint32(buf[headerOffsetPageSize:], uint32(p.header.PageSize))
	binary.LittleEndian.PutUint32(buf[headerOffsetCount:], uint32(p.header.NodeCount))
	binary.LittleEndian.PutUint32(buf[headerOffsetFreeNum:], uint32(p.header.FreeCount))
	binary.LittleEndian.PutUint64(buf[headerOffsetFreeOff:], uint64(p.header.FreeOffset))

	if _, err := p.file.WriteAt(buf, 0); err != nil {
		return fmt.Errorf("pager: write header: %w", err)
	}
	return nil
}

func (p *Pager) offset(id int32) int64 {
	return HeaderSize + int64(id)*p.pageSize
}

// check validates an id against the allocated range.
func (p *Pager) check(id int32) error {
	if p.closed {
		return common.ErrClosed
	}
	if id < 0 {
		return fmt.Errorf("pager: negative page id %d: %w", id, common.ErrInvalidArgument)
	}
	if id >= p.header.NodeCount {
		return fmt.Errorf("pager: page %d beyond allocated count %d: %w", id, p.header.NodeCount, common.ErrInvalidState)
	}
	return nil
}

// ReadNode loads and decodes the node at id.
func (p *Pager) ReadNode(id int32) (*Node, error) {
	if err := p.check(id); err != nil {
		return nil, err
	}
	buf := make([]byte, p.pageSize)
	if _, err := p.file.ReadAt(buf, p.offset(id)); err != nil {
		return nil, fmt.Errorf("pager: read page %d: %w", id, err)
	}
	return decodeNode(buf, p.header.Order), nil
}

// WriteNode encodes the node and writes it to its page.
func (p *Pager) WriteNode(n *Node) error {
	if err := p.check(n.ID); err != nil {
		return err
	}
	buf := make([]byte, p.pageSize)
	n.encode(buf)
	if _, err := p.file.WriteAt(buf, p.offset(n.ID)); err != nil {
		return fmt.Errorf("pager: write page %d: %w", n.ID, err)
	}
	return nil
}

// Zero overwrites the full page with zero bytes. Retired nodes are zeroed
// before their id enters the free list.
func (p *Pager) Zero(id int32) error {
	if err := p.check(id); err != nil {
		return err
	}
	if _, err := p.file.WriteAt(make([]byte, p.pageSize), p.offset(id)); err != nil {
		return fmt.Errorf("pager: zero page %d: %w", id, err)
	}
	return nil
}

// Allocate pops any member of the free list, or extends the high-water mark.
func (p *Pager) Allocate() (int32, error) {
	if p.closed {
		return NilPage, common.ErrClosed
	}
	for id := range p.free {
		delete(p.free, id)
		return id, nil
	}
	id := p.header.NodeCount
	p.header.NodeCount++
	if err := p.writeHeader(); err != nil {
		return NilPage, err
	}
	return id, nil
}

// Free adds id to the free list. Adding an id twice is a no-op.
func (p *Pager) Free(id int32) {
	if id >= 0 && id < p.header.NodeCount {
		p.free[id] = struct{}{}
	}
}

// IsFree reports whether id is on the free list.
func (p *Pager) IsFree(id int32) bool {
	_, ok := p.free[id]
	return ok
}

// FreeCount returns the number of ids on the free list.
func (p *Pager) FreeCount() int {
	return len(p.free)
}

// NodeCount returns the allocation high-water mark.
func (p *Pager) NodeCount() int32 {
	return p.header.NodeCount
}

// RootID returns the current root node id, NilPage when the tree is empty.
func (p *Pager) RootID() int32 {
	return p.header.RootID
}

// SetRootID records a new root and writes the header through.
func (p *Pager) SetRootID(id int32) error {
	if p.closed {
		return common.ErrClosed
	}
	p.header.RootID = id
	return p.writeHeader()
}

// Order returns the branching factor the file was created with.
func (p *Pager) Order() int32 {
	return p.header.Order
}

// Commit persists the header and flushes OS buffers.
func (p *Pager) Commit() error {
	if p.closed {
		return common.ErrClosed
	}
	if err := p.writeHeader(); err != nil {
		return err
	}
	if err := p.file.Sync(); err != nil {
		return fmt.Errorf("pager: sync: %w", err)
	}
	return nil
}

// Close appends the free list after the last node page, records its locator
// in the header, and releases the file. Closing twice is a no-op.
func (p *Pager) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true

	if len(p.free) > 0 {
		end, err := p.file.Seek(0, io.SeekEnd)
		if err != nil {
			return fmt.Errorf("pager: seek end: %w", err)
		}
		ids := make([]int32, 0, len(p.free))
		for id := range p.free {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

		buf := make([]byte, len(ids)*4)
		for i, id := range ids {
			binary.LittleEndian.PutUint32(buf[i*4:], uint32(id))
		}
		if _, err := p.file.WriteAt(buf, end); err != nil {
			return fmt.Errorf("pager: write free list: %w", err)
		}
		p.header.FreeCount = int32(len(ids))
		p.header.FreeOffset = end
	} else {
		p.header.FreeCount = 0
		p.header.FreeOffset = 0
	}

	if err := p.writeHeader(); err != nil {
		return err
	}
	if err := p.file.Sync(); err != nil {
		return fmt.Errorf("pager: sync on close: %w", err)
	}
	return p.file.Close()
}
