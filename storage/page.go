// Package storage defines typed views over a raw page buffer: the
// B+Tree common header, internal and leaf page layouts, and the
// header (directory) page. Every multi-byte field is big-endian.
package storage

import (
	"encoding/binary"

	"pagedb/io"
)

// PageType distinguishes internal from leaf B+Tree pages on disk.
type PageType uint32

const (
	InvalidPageType  PageType = 0
	LeafPageType     PageType = 1
	InternalPageType PageType = 2
)

// Common header layout, shared by internal and leaf pages:
//
//	offset  0: page_type      (u32)
//	offset  4: lsn             (u32, opaque — no WAL exists to interpret it)
//	offset  8: size            (u32)
//	offset 12: max_size        (u32)
//	offset 16: parent_page_id  (i32)
//	offset 20: page_id         (i32)
const (
	offsetPageType   = 0
	offsetLSN        = 4
	offsetSize       = 8
	offsetMaxSize    = 12
	offsetParentID   = 16
	offsetPageID     = 20
	commonHeaderSize = 24
)

// Leaf pages add next_page_id (i32) immediately after the common
// header.
const (
	offsetNextPageID = commonHeaderSize
	leafHeaderSize   = commonHeaderSize + 4
)

const internalHeaderSize = commonHeaderSize

// Slot widths. A leaf slot is (key int64, RecordID) = 8 + 8 bytes; an
// internal slot is (key int64, child page_id int32) = 8 + 4 bytes.
const (
	leafSlotSize     = 8 + recordIDSize
	internalSlotSize = 8 + 4
	recordIDSize     = 4 + 4
)

// RecordID identifies a tuple's location: its page and its slot
// within that page.
type RecordID struct {
	PageID  io.PageID
	SlotNum uint32
}

// GetPageType reads a page's type without constructing a typed view,
// used to decide which view to build.
func GetPageType(data []byte) PageType {
	return PageType(binary.BigEndian.Uint32(data[offsetPageType : offsetPageType+4]))
}

// GetParentPageID reads the parent pointer common to both page kinds.
func GetParentPageID(data []byte) io.PageID {
	return io.PageID(int32(binary.BigEndian.Uint32(data[offsetParentID : offsetParentID+4])))
}

// SetParentPageID writes the parent pointer common to both page
// kinds, used when reparenting a migrated child without building a
// full typed view.
func SetParentPageID(data []byte, pageID io.PageID) {
	binary.BigEndian.PutUint32(data[offsetParentID:offsetParentID+4], uint32(pageID))
}

// GetPageID reads a page's own id from its header.
func GetPageID(data []byte) io.PageID {
	return io.PageID(int32(binary.BigEndian.Uint32(data[offsetPageID : offsetPageID+4])))
}

// commonHeader is embedded by InternalPage and LeafPage to share
// header field accessors.
type commonHeader struct {
	data []byte
}

func (h commonHeader) PageType() PageType {
	return GetPageType(h.data)
}

func (h commonHeader) setPageType(t PageType) {
	binary.BigEndian.PutUint32(h.data[offsetPageType:offsetPageType+4], uint32(t))
}

func (h commonHeader) LSN() uint32 {
	return binary.BigEndian.Uint32(h.data[offsetLSN : offsetLSN+4])
}

func (h commonHeader) SetLSN(v uint32) {
	binary.BigEndian.PutUint32(h.data[offsetLSN:offsetLSN+4], v)
}

func (h commonHeader) Size() int {
	return int(binary.BigEndian.Uint32(h.data[offsetSize : offsetSize+4]))
}

func (h commonHeader) SetSize(v int) {
	binary.BigEndian.PutUint32(h.data[offsetSize:offsetSize+4], uint32(v))
}

func (h commonHeader) MaxSize() int {
	return int(binary.BigEndian.Uint32(h.data[offsetMaxSize : offsetMaxSize+4]))
}

func (h commonHeader) setMaxSize(v int) {
	binary.BigEndian.PutUint32(h.data[offsetMaxSize:offsetMaxSize+4], uint32(v))
}

func (h commonHeader) ParentPageID() io.PageID {
	return GetParentPageID(h.data)
}

func (h commonHeader) SetParentPageID(v io.PageID) {
	SetParentPageID(h.data, v)
}

func (h commonHeader) PageID() io.PageID {
	return GetPageID(h.data)
}

func (h commonHeader) setPageID(v io.PageID) {
	binary.BigEndian.PutUint32(h.data[offsetPageID:offsetPageID+4], uint32(v))
}

// IsFull reports whether the page has reached its configured maximum
// occupancy.
func (h commonHeader) IsFull() bool { return h.Size() >= h.MaxSize() }
