package storage

import (
	"encoding/binary"

	"pagedb/io"
)

// LeafPage is a typed view over a raw page buffer holding
// (key, RecordID) slots in strictly increasing key order, plus a
// next_page_id link chaining leaves in key order (InvalidPageID for
// the last leaf).
type LeafPage struct {
	commonHeader
}

// NewLeafPage wraps data as a leaf page view. It does not initialize
// the header; call Init for a fresh page.
func NewLeafPage(data []byte) *LeafPage {
	return &LeafPage{commonHeader{data}}
}

// Init sets up a fresh leaf page's header.
func (p *LeafPage) Init(pageID, parentID io.PageID, maxSize int) {
	p.setPageType(LeafPageType)
	p.SetLSN(0)
	p.SetSize(0)
	p.setMaxSize(maxSize)
	p.SetParentPageID(parentID)
	p.setPageID(pageID)
	p.SetNextPageID(io.InvalidPageID)
}

// MinSize is ceil(max_size/2); the root is exempt from this bound.
func (p *LeafPage) MinSize() int {
	return (p.MaxSize() + 1) / 2
}

func (p *LeafPage) NextPageID() io.PageID {
	return io.PageID(int32(binary.BigEndian.Uint32(p.data[offsetNextPageID : offsetNextPageID+4])))
}

func (p *LeafPage) SetNextPageID(v io.PageID) {
	binary.BigEndian.PutUint32(p.data[offsetNextPageID:offsetNextPageID+4], uint32(v))
}

func (p *LeafPage) slotOffset(i int) int {
	return leafHeaderSize + i*leafSlotSize
}

func (p *LeafPage) KeyAt(i int) int64 {
	off := p.slotOffset(i)
	return int64(binary.BigEndian.Uint64(p.data[off : off+8]))
}

func (p *LeafPage) SetKeyAt(i int, key int64) {
	off := p.slotOffset(i)
	binary.BigEndian.PutUint64(p.data[off:off+8], uint64(key))
}

func (p *LeafPage) ValueAt(i int) RecordID {
	off := p.slotOffset(i) + 8
	return RecordID{
		PageID:  io.PageID(int32(binary.BigEndian.Uint32(p.data[off : off+4]))),
		SlotNum: binary.BigEndian.Uint32(p.data[off+4 : off+8]),
	}
}

func (p *LeafPage) SetValueAt(i int, v RecordID) {
	off := p.slotOffset(i) + 8
	binary.BigEndian.PutUint32(p.data[off:off+4], uint32(v.PageID))
	binary.BigEndian.PutUint32(p.data[off+4:off+8], v.SlotNum)
}

// FindKeyIndex returns (index, true) for an exact match, or
// (insertion point, false) — the first index whose key is >= key, or
// Size() if none — when absent.
func (p *LeafPage) FindKeyIndex(key int64) (int, bool) {
	size := p.Size()
	lo, hi := 0, size
	for lo < hi {
		mid := (lo + hi) / 2
		if p.KeyAt(mid) < key {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo < size && p.KeyAt(lo) == key {
		return lo, true
	}
	return lo, false
}

// InsertAt shifts slots [i, size) right by one and installs
// (key, value) at i.
func (p *LeafPage) InsertAt(i int, key int64, v RecordID) {
	size := p.Size()
	for j := size; j > i; j-- {
		p.SetKeyAt(j, p.KeyAt(j-1))
		p.SetValueAt(j, p.ValueAt(j-1))
	}
	p.SetKeyAt(i, key)
	p.SetValueAt(i, v)
	p.SetSize(size + 1)
}

// DeleteAt removes slot i, shifting the tail left.
func (p *LeafPage) DeleteAt(i int) {
	size := p.Size()
	for j := i; j < size-1; j++ {
		p.SetKeyAt(j, p.KeyAt(j+1))
		p.SetValueAt(j, p.ValueAt(j+1))
	}
	p.SetSize(size - 1)
}

// SplitTo moves the upper ceil(size/2) slots to other (which the
// caller must already have Init'd, with its page id and parent page
// id), links the two leaves via next_page_id, and returns the
// separator key: the new leaf's first key.
func (p *LeafPage) SplitTo(other *LeafPage) int64 {
	size := p.Size()
	upper := (size + 1) / 2
	mid := size - upper
	for j := mid; j < size; j++ {
		newIdx := j - mid
		other.SetKeyAt(newIdx, p.KeyAt(j))
		other.SetValueAt(newIdx, p.ValueAt(j))
	}
	other.SetSize(upper)
	p.SetSize(mid)

	other.SetNextPageID(p.NextPageID())
	p.SetNextPageID(other.PageID())
	return other.KeyAt(0)
}

// MergeWith appends donor's entries to p in order and adopts donor's
// next_page_id link.
func (p *LeafPage) MergeWith(donor *LeafPage) {
	size := p.Size()
	donorSize := donor.Size()
	for j := 0; j < donorSize; j++ {
		p.SetKeyAt(size+j, donor.KeyAt(j))
		p.SetValueAt(size+j, donor.ValueAt(j))
	}
	p.SetSize(size + donorSize)
	p.SetNextPageID(donor.NextPageID())
}

// PopBack removes and returns the last slot, for redistribution.
func (p *LeafPage) PopBack() (int64, RecordID) {
	size := p.Size()
	k, v := p.KeyAt(size-1), p.ValueAt(size-1)
	p.SetSize(size - 1)
	return k, v
}

// PopFront removes and returns the first slot, for redistribution.
func (p *LeafPage) PopFront() (int64, RecordID) {
	k, v := p.KeyAt(0), p.ValueAt(0)
	p.DeleteAt(0)
	return k, v
}

// PushBack appends a slot, for redistribution.
func (p *LeafPage) PushBack(key int64, v RecordID) {
	p.InsertAt(p.Size(), key, v)
}

// PushFront prepends a slot, for redistribution.
func (p *LeafPage) PushFront(key int64, v RecordID) {
	p.InsertAt(0, key, v)
}
