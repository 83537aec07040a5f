package memory

import (
	"sync"

	"pagedb/io"
)

// FrameID addresses a slot in the buffer pool's fixed-size frame
// array: 0 <= FrameID < pool size.
type FrameID = int

// Frame is an in-memory cell owning one page image. Frames live for
// the lifetime of the manager and are repeatedly rebound to different
// page ids as pages are evicted and fetched.
//
// Latch guards page contents; pin count and the dirty bit are pool
// metadata guarded by the Buffer Pool Manager's own mutex, not by
// Latch.
type Frame struct {
	ID       FrameID
	PageID   io.PageID
	IsDirty  bool
	pinCount int
	Latch    sync.RWMutex
	Data     []byte
}

func newFrame(id FrameID) *Frame {
	return &Frame{
		ID:     id,
		PageID: io.InvalidPageID,
		Data:   make([]byte, io.PageSize),
	}
}

// Pinned reports whether any caller currently holds a reservation on
// this frame.
func (f *Frame) Pinned() bool { return f.pinCount > 0 }

// PinCount returns the frame's current pin count.
func (f *Frame) PinCount() int { return f.pinCount }

// reset clears a frame's identity and contents so it can be rebound to
// a different page id.
func (f *Frame) reset() {
	f.PageID = io.InvalidPageID
	f.IsDirty = false
	f.pinCount = 0
	for i := range f.Data {
		f.Data[i] = 0
	}
}
