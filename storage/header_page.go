package storage

import (
	"encoding/binary"

	"pagedb/io"
)

// HeaderPage is the page-0 directory: an ordered list of
// (index_name, root_page_id) records. The in-memory representation is
// opaque to callers; the on-disk layout only needs to round-trip.
//
// Layout: a u32 record count, followed by each record as
// (u32 name length, name bytes, i32 root_page_id).
type HeaderPage struct {
	data []byte
}

func NewHeaderPage(data []byte) *HeaderPage {
	return &HeaderPage{data}
}

type headerRecord struct {
	name       string
	rootPageID io.PageID
}

func (h *HeaderPage) readAll() []headerRecord {
	count := int(binary.BigEndian.Uint32(h.data[0:4]))
	recs := make([]headerRecord, 0, count)
	off := 4
	for i := 0; i < count; i++ {
		nameLen := int(binary.BigEndian.Uint32(h.data[off : off+4]))
		off += 4
		name := string(h.data[off : off+nameLen])
		off += nameLen
		root := io.PageID(int32(binary.BigEndian.Uint32(h.data[off : off+4])))
		off += 4
		recs = append(recs, headerRecord{name, root})
	}
	return recs
}

func (h *HeaderPage) writeAll(recs []headerRecord) {
	binary.BigEndian.PutUint32(h.data[0:4], uint32(len(recs)))
	off := 4
	for _, r := range recs {
		binary.BigEndian.PutUint32(h.data[off:off+4], uint32(len(r.name)))
		off += 4
		off += copy(h.data[off:], r.name)
		binary.BigEndian.PutUint32(h.data[off:off+4], uint32(r.rootPageID))
		off += 4
	}
}

// InsertRecord adds a new (name, rootPageID) record. Returns false if
// name already has a record.
func (h *HeaderPage) InsertRecord(name string, rootPageID io.PageID) bool {
	recs := h.readAll()
	for _, r := range recs {
		if r.name == name {
			return false
		}
	}
	recs = append(recs, headerRecord{name, rootPageID})
	h.writeAll(recs)
	return true
}

// UpdateRecord replaces an existing record's root page id. Returns
// false if name has no record.
func (h *HeaderPage) UpdateRecord(name string, rootPageID io.PageID) bool {
	recs := h.readAll()
	for i, r := range recs {
		if r.name == name {
			recs[i].rootPageID = rootPageID
			h.writeAll(recs)
			return true
		}
	}
	return false
}

// GetRootPageID looks up name's current root page id.
func (h *HeaderPage) GetRootPageID(name string) (io.PageID, bool) {
	for _, r := range h.readAll() {
		if r.name == name {
			return r.rootPageID, true
		}
	}
	return io.InvalidPageID, false
}
