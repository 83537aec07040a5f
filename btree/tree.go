// Package btree implements a disk-resident B+Tree index on top of the
// buffer pool: page-granular search, insertion with splitting, removal
// with merging/redistribution/root adjustment, and ordered iteration.
package btree

import (
	"fmt"
	"log/slog"

	"pagedb/io"
	"pagedb/memory"
	"pagedb/storage"
)

// Ordered is the set of key types the tree can be instantiated over.
// The on-disk slot layout is fixed at an 8-byte integer; any
// fixed-width ordered integer type converts losslessly to and from
// int64, so only the comparator and key-typed API surface need to be
// generic.
type Ordered interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64
}

var (
	ErrOutOfFrames = memory.ErrOutOfFrames
)

// pathEntry is one write- or read-latched, pinned page on the current
// descent's ancestor stack.
type pathEntry struct {
	frame  *memory.Frame
	pageID io.PageID
}

// Tree is a B+Tree index: index name, root page id, leaf/internal max
// size, backed by a buffer pool manager.
type Tree[K Ordered] struct {
	name            string
	bpm             *memory.BufferPoolManager
	leafMaxSize     int
	internalMaxSize int
	rootPageID      io.PageID
	log             *slog.Logger
}

// New opens (or creates, if absent) the named index against bpm. The
// header page (page 0) is consulted/updated for the index's root page
// id across the tree's lifetime.
func New[K Ordered](name string, bpm *memory.BufferPoolManager, leafMaxSize, internalMaxSize int) (*Tree[K], error) {
	hframe, err := bpm.FetchPage(io.HeaderPageID)
	if err != nil {
		return nil, fmt.Errorf("btree: fetch header page: %w", err)
	}
	hp := storage.NewHeaderPage(hframe.Data)
	root, ok := hp.GetRootPageID(name)
	dirty := false
	if !ok {
		hp.InsertRecord(name, io.InvalidPageID)
		root = io.InvalidPageID
		dirty = true
	}
	bpm.UnpinPage(io.HeaderPageID, dirty)

	return &Tree[K]{
		name:            name,
		bpm:             bpm,
		leafMaxSize:     leafMaxSize,
		internalMaxSize: internalMaxSize,
		rootPageID:      root,
		log:             slog.Default().With("component", "btree", "index", name),
	}, nil
}

// IsEmpty reports whether the tree currently has no root page.
func (t *Tree[K]) IsEmpty() bool {
	return t.rootPageID == io.InvalidPageID
}

func (t *Tree[K]) updateHeaderRoot() error {
	hframe, err := t.bpm.FetchPage(io.HeaderPageID)
	if err != nil {
		return fmt.Errorf("btree: fetch header page: %w", err)
	}
	storage.NewHeaderPage(hframe.Data).UpdateRecord(t.name, t.rootPageID)
	t.bpm.UnpinPage(io.HeaderPageID, true)
	return nil
}

func (t *Tree[K]) release(entries []pathEntry, dirty bool) {
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		e.frame.Latch.Unlock()
		t.bpm.UnpinPage(e.pageID, dirty)
	}
}

func (t *Tree[K]) unpinWriteLocked(e pathEntry, dirty bool) {
	e.frame.Latch.Unlock()
	t.bpm.UnpinPage(e.pageID, dirty)
}

func (t *Tree[K]) setChildParent(childID, parentID io.PageID) error {
	f, err := t.bpm.FetchPage(childID)
	if err != nil {
		return fmt.Errorf("btree: fetch child %d to reparent: %w", childID, err)
	}
	f.Latch.Lock()
	storage.SetParentPageID(f.Data, parentID)
	f.Latch.Unlock()
	t.bpm.UnpinPage(childID, true)
	return nil
}

// GetValue looks up key, descending with read-coupled latches
// (release the parent as soon as the child is latched). Every fetched
// page is unpinned before return with dirty=false.
func (t *Tree[K]) GetValue(key K) (storage.RecordID, bool, error) {
	var zero storage.RecordID
	if t.IsEmpty() {
		return zero, false, nil
	}

	pageID := t.rootPageID
	var prev *memory.Frame
	var prevID io.PageID

	for {
		frame, err := t.bpm.FetchPage(pageID)
		if err != nil {
			if prev != nil {
				prev.Latch.RUnlock()
				t.bpm.UnpinPage(prevID, false)
			}
			return zero, false, fmt.Errorf("btree: fetch page %d: %w", pageID, err)
		}
		frame.Latch.RLock()
		if prev != nil {
			prev.Latch.RUnlock()
			t.bpm.UnpinPage(prevID, false)
		}

		if storage.GetPageType(frame.Data) == storage.LeafPageType {
			leaf := storage.NewLeafPage(frame.Data)
			idx, found := leaf.FindKeyIndex(int64(key))
			var rid storage.RecordID
			if found {
				rid = leaf.ValueAt(idx)
			}
			frame.Latch.RUnlock()
			t.bpm.UnpinPage(pageID, false)
			return rid, found, nil
		}

		internal := storage.NewInternalPage(frame.Data)
		childID := internal.ValueAt(internal.FindLowerBound(int64(key)))
		prev, prevID = frame, pageID
		pageID = childID
	}
}
