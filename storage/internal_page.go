package storage

import (
	"encoding/binary"

	"pagedb/io"
)

// InternalPage is a typed view over a raw page buffer holding
// (key, child_page_id) slots. Slot 0's key is never read (sentinel
// "-infinity"): slot 0's child covers keys strictly less than slot
// 1's key; for i >= 1, slot i's child covers keys k with
// key[i] <= k < key[i+1]. Keys are strictly increasing from slot 1 on.
type InternalPage struct {
	commonHeader
}

// NewInternalPage wraps data (normally a Frame's Data slice) as an
// internal page view. It does not initialize the header; call Init
// for a fresh page.
func NewInternalPage(data []byte) *InternalPage {
	return &InternalPage{commonHeader{data}}
}

// Init sets up a fresh internal page's header.
func (p *InternalPage) Init(pageID, parentID io.PageID, maxSize int) {
	p.setPageType(InternalPageType)
	p.SetLSN(0)
	p.SetSize(0)
	p.setMaxSize(maxSize)
	p.SetParentPageID(parentID)
	p.setPageID(pageID)
}

// MinSize is ceil((max_size+1)/2); the root is exempt from this
// bound.
func (p *InternalPage) MinSize() int {
	return (p.MaxSize() + 2) / 2
}

func (p *InternalPage) slotOffset(i int) int {
	return internalHeaderSize + i*internalSlotSize
}

func (p *InternalPage) KeyAt(i int) int64 {
	off := p.slotOffset(i)
	return int64(binary.BigEndian.Uint64(p.data[off : off+8]))
}

func (p *InternalPage) SetKeyAt(i int, key int64) {
	off := p.slotOffset(i)
	binary.BigEndian.PutUint64(p.data[off:off+8], uint64(key))
}

func (p *InternalPage) ValueAt(i int) io.PageID {
	off := p.slotOffset(i) + 8
	return io.PageID(int32(binary.BigEndian.Uint32(p.data[off : off+4])))
}

func (p *InternalPage) SetValueAt(i int, v io.PageID) {
	off := p.slotOffset(i) + 8
	binary.BigEndian.PutUint32(p.data[off:off+4], uint32(v))
}

// IndexOfValue returns the slot index whose child is pageID, or -1.
func (p *InternalPage) IndexOfValue(pageID io.PageID) int {
	for i := 0; i < p.Size(); i++ {
		if p.ValueAt(i) == pageID {
			return i
		}
	}
	return -1
}

// FindLowerBound returns the index of the last slot whose key is <=
// key, treating slot 0 as negative infinity. The tree descends
// through ValueAt of the returned index.
func (p *InternalPage) FindLowerBound(key int64) int {
	size := p.Size()
	lo, hi, res := 1, size-1, 0
	for lo <= hi {
		mid := (lo + hi) / 2
		if p.KeyAt(mid) <= key {
			res = mid
			lo = mid + 1
		} else {
			hi = mid - 1
		}
	}
	return res
}

// InsertAt shifts slots [i, size) right by one and installs
// (key, value) at i.
func (p *InternalPage) InsertAt(i int, key int64, value io.PageID) {
	size := p.Size()
	for j := size; j > i; j-- {
		p.SetKeyAt(j, p.KeyAt(j-1))
		p.SetValueAt(j, p.ValueAt(j-1))
	}
	p.SetKeyAt(i, key)
	p.SetValueAt(i, value)
	p.SetSize(size + 1)
}

// DeleteAt removes slot i, shifting the tail left.
func (p *InternalPage) DeleteAt(i int) {
	size := p.Size()
	for j := i; j < size-1; j++ {
		p.SetKeyAt(j, p.KeyAt(j+1))
		p.SetValueAt(j, p.ValueAt(j+1))
	}
	p.SetSize(size - 1)
}

// SplitTo moves the upper half of p's slots to other (which must
// already be Init'd) and returns the separator key to propagate to
// the parent: the key that was associated with the first migrated
// slot, which becomes other's unused slot-0 sentinel.
func (p *InternalPage) SplitTo(other *InternalPage) int64 {
	size := p.Size()
	mid := (size + 1) / 2
	separator := p.KeyAt(mid)
	for j := mid; j < size; j++ {
		newIdx := j - mid
		other.SetKeyAt(newIdx, p.KeyAt(j))
		other.SetValueAt(newIdx, p.ValueAt(j))
	}
	other.SetSize(size - mid)
	p.SetSize(mid)
	return separator
}

// PopBackInternal removes and returns the last slot's (key, child),
// for redistribution into a right sibling's front.
func (p *InternalPage) PopBackInternal() (int64, io.PageID) {
	size := p.Size()
	k, v := p.KeyAt(size-1), p.ValueAt(size-1)
	p.SetSize(size - 1)
	return k, v
}

// MergeWith appends donor's entries to p. separatorKey is the parent's
// key for donor, since donor's slot 0 carries no key of its own.
func (p *InternalPage) MergeWith(donor *InternalPage, separatorKey int64) {
	size := p.Size()
	donorSize := donor.Size()

	p.SetKeyAt(size, separatorKey)
	p.SetValueAt(size, donor.ValueAt(0))
	for j := 1; j < donorSize; j++ {
		p.SetKeyAt(size+j, donor.KeyAt(j))
		p.SetValueAt(size+j, donor.ValueAt(j))
	}
	p.SetSize(size + donorSize)
}
