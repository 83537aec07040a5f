// Package memory implements the buffer pool: frames, the page table,
// LRU-K eviction, and the manager that ties them together with a
// single process-wide mutex.
package memory

import (
	"fmt"
	"log/slog"
	"sync"

	"pagedb/io"
)

var (
	ErrOutOfFrames = fmt.Errorf("bufferpool: no free or evictable frame")
	ErrNotResident = fmt.Errorf("bufferpool: page is not resident")
	ErrPagePinned  = fmt.Errorf("bufferpool: page is pinned")
)

// BufferPoolManager orchestrates a fixed-size array of frames, the
// page table that maps resident page ids to frames, a free-frame
// list, and an LRU-K replacer, delegating disk I/O to a DiskManager.
//
// One mutex serializes every operation end-to-end; callers may not
// re-enter.
type BufferPoolManager struct {
	mu        sync.Mutex
	frames    []*Frame
	pageTable map[io.PageID]FrameID
	freeList  []FrameID
	replacer  *LruKReplacer
	disk      io.DiskManager
	log       *slog.Logger
}

// NewBufferPoolManager constructs a pool of poolSize frames backed by
// disk, with an LRU-K replacer of history depth k.
func NewBufferPoolManager(poolSize int, disk io.DiskManager, k int) *BufferPoolManager {
	frames := make([]*Frame, poolSize)
	freeList := make([]FrameID, poolSize)
	for i := 0; i < poolSize; i++ {
		frames[i] = newFrame(i)
		freeList[i] = i
	}
	return &BufferPoolManager{
		frames:    frames,
		pageTable: make(map[io.PageID]FrameID, poolSize),
		freeList:  freeList,
		replacer:  NewLruKReplacer(poolSize, k),
		disk:      disk,
		log:       slog.Default().With("component", "bufferpool"),
	}
}

// NewPage allocates a fresh page and pins it.
func (b *BufferPoolManager) NewPage() (io.PageID, *Frame, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	frameID, err := b.acquireFrame()
	if err != nil {
		return io.InvalidPageID, nil, err
	}

	pageID := b.disk.AllocatePage()
	f := b.frames[frameID]
	f.reset()
	f.PageID = pageID
	f.pinCount = 1

	b.pageTable[pageID] = frameID
	b.replacer.recordAccess(frameID)
	b.replacer.setEvictable(frameID, false)

	b.log.Debug("new page", "page_id", pageID, "frame_id", frameID)
	return pageID, f, nil
}

// FetchPage returns the frame holding pageID, reading it from disk if
// it is not already resident, and pins it.
func (b *BufferPoolManager) FetchPage(pageID io.PageID) (*Frame, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if frameID, ok := b.pageTable[pageID]; ok {
		f := b.frames[frameID]
		f.pinCount++
		b.replacer.recordAccess(frameID)
		b.replacer.setEvictable(frameID, false)
		return f, nil
	}

	frameID, err := b.acquireFrame()
	if err != nil {
		return nil, err
	}

	f := b.frames[frameID]
	f.reset()
	if err := b.disk.ReadPage(pageID, f.Data); err != nil {
		// Return the frame to the free list; nothing was installed.
		b.freeList = append(b.freeList, frameID)
		return nil, fmt.Errorf("bufferpool: fetch page %d: %w", pageID, err)
	}
	f.PageID = pageID
	f.pinCount = 1

	b.pageTable[pageID] = frameID
	b.replacer.recordAccess(frameID)
	b.replacer.setEvictable(frameID, false)

	b.log.Debug("fetch page", "page_id", pageID, "frame_id", frameID)
	return f, nil
}

// UnpinPage releases one pin on pageID. isDirty is OR-ed into the
// frame's dirty flag and never clears it.
func (b *BufferPoolManager) UnpinPage(pageID io.PageID, isDirty bool) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	frameID, ok := b.pageTable[pageID]
	if !ok {
		return false
	}
	f := b.frames[frameID]
	if f.pinCount == 0 {
		return false
	}
	f.pinCount--
	f.IsDirty = f.IsDirty || isDirty
	if f.pinCount == 0 {
		b.replacer.setEvictable(frameID, true)
	}
	return true
}

// FlushPage writes pageID's contents to disk if resident, clearing its
// dirty flag. Pinning is unaffected.
func (b *BufferPoolManager) FlushPage(pageID io.PageID) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.flushLocked(pageID)
}

func (b *BufferPoolManager) flushLocked(pageID io.PageID) bool {
	frameID, ok := b.pageTable[pageID]
	if !ok {
		return false
	}
	f := b.frames[frameID]
	if err := b.disk.WritePage(pageID, f.Data); err != nil {
		b.log.Error("flush page failed", "page_id", pageID, "err", err)
		return false
	}
	f.IsDirty = false
	return true
}

// FlushAllPages writes every resident page to disk.
func (b *BufferPoolManager) FlushAllPages() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for pageID := range b.pageTable {
		b.flushLocked(pageID)
	}
}

// DeletePage frees pageID's frame back to the pool. Returns true if
// the page is not resident (nothing to do), false if it is resident
// but pinned.
func (b *BufferPoolManager) DeletePage(pageID io.PageID) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	frameID, ok := b.pageTable[pageID]
	if !ok {
		return true, nil
	}
	f := b.frames[frameID]
	if f.Pinned() {
		return false, ErrPagePinned
	}

	delete(b.pageTable, pageID)
	b.replacer.remove(frameID)
	f.reset()
	b.freeList = append(b.freeList, frameID)
	b.disk.DeallocatePage(pageID)

	b.log.Debug("delete page", "page_id", pageID, "frame_id", frameID)
	return true, nil
}

// acquireFrame returns a frame ready for reuse: from the free list if
// one is available, else the replacer's chosen victim (flushed first
// if dirty). Caller must hold b.mu.
func (b *BufferPoolManager) acquireFrame() (FrameID, error) {
	if n := len(b.freeList); n > 0 {
		frameID := b.freeList[n-1]
		b.freeList = b.freeList[:n-1]
		return frameID, nil
	}

	victim, err := b.replacer.evict()
	if err != nil {
		return 0, ErrOutOfFrames
	}
	f := b.frames[victim]
	if f.IsDirty {
		if err := b.disk.WritePage(f.PageID, f.Data); err != nil {
			return 0, fmt.Errorf("bufferpool: flush victim page %d: %w", f.PageID, err)
		}
	}
	delete(b.pageTable, f.PageID)
	b.log.Debug("evicted victim", "page_id", f.PageID, "frame_id", victim)
	return victim, nil
}
