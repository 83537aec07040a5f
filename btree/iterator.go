package btree

import (
	"fmt"

	"pagedb/io"
	"pagedb/memory"
	"pagedb/storage"
)

// Iterator is a forward cursor over (key, RecordID) pairs in
// ascending key order. It pins exactly one leaf at a time; advancing
// past the leaf's last slot fetches the next_page_id leaf (unpinning
// the current one first) or becomes the end cursor when no successor
// exists. A dereference is valid until the next Next call or Close.
type Iterator[K Ordered] struct {
	bpm    *memory.BufferPoolManager
	frame  *memory.Frame
	pageID io.PageID
	idx    int
}

// End reports whether the cursor has no current element.
func (it *Iterator[K]) End() bool {
	return it.frame == nil
}

// Key returns the current slot's key. Valid only when !End().
func (it *Iterator[K]) Key() K {
	leaf := storage.NewLeafPage(it.frame.Data)
	return K(leaf.KeyAt(it.idx))
}

// Value returns the current slot's record id. Valid only when !End().
func (it *Iterator[K]) Value() storage.RecordID {
	leaf := storage.NewLeafPage(it.frame.Data)
	return leaf.ValueAt(it.idx)
}

// Close releases the pin on the cursor's current leaf, if any. It is
// safe to call more than once and on an already-ended cursor.
func (it *Iterator[K]) Close() {
	if it.frame == nil {
		return
	}
	it.frame.Latch.RUnlock()
	it.bpm.UnpinPage(it.pageID, false)
	it.frame = nil
}

// Next advances the cursor by one slot, crossing into the next leaf
// (via next_page_id) when the current leaf is exhausted. Returns an
// error only on a buffer pool failure while crossing leaves.
func (it *Iterator[K]) Next() error {
	if it.frame == nil {
		return nil
	}
	leaf := storage.NewLeafPage(it.frame.Data)
	it.idx++
	if it.idx < leaf.Size() {
		return nil
	}

	next := leaf.NextPageID()
	it.frame.Latch.RUnlock()
	it.bpm.UnpinPage(it.pageID, false)
	it.frame = nil

	if next == io.InvalidPageID {
		return nil
	}
	frame, err := it.bpm.FetchPage(next)
	if err != nil {
		return fmt.Errorf("btree: iterator: fetch next leaf %d: %w", next, err)
	}
	frame.Latch.RLock()
	it.pageID = next
	it.idx = 0
	it.frame = frame
	return nil
}

// Begin returns a cursor positioned at the first (smallest-key) pair
// in the tree, or an already-ended cursor if the tree is empty.
func (t *Tree[K]) Begin() (*Iterator[K], error) {
	if t.IsEmpty() {
		return &Iterator[K]{bpm: t.bpm}, nil
	}
	return t.descendToLeftmostLeaf(t.rootPageID)
}

// BeginAt returns a cursor positioned at the first pair whose key is
// >= key, or an already-ended cursor if every key in the tree is
// smaller.
func (t *Tree[K]) BeginAt(key K) (*Iterator[K], error) {
	if t.IsEmpty() {
		return &Iterator[K]{bpm: t.bpm}, nil
	}

	pageID := t.rootPageID
	for {
		frame, err := t.bpm.FetchPage(pageID)
		if err != nil {
			return nil, fmt.Errorf("btree: begin at: fetch page %d: %w", pageID, err)
		}
		frame.Latch.RLock()

		if storage.GetPageType(frame.Data) == storage.LeafPageType {
			leaf := storage.NewLeafPage(frame.Data)
			idx, _ := leaf.FindKeyIndex(int64(key))
			if idx >= leaf.Size() {
				next := leaf.NextPageID()
				frame.Latch.RUnlock()
				t.bpm.UnpinPage(pageID, false)
				if next == io.InvalidPageID {
					return &Iterator[K]{bpm: t.bpm}, nil
				}
				return t.leafIterator(next, 0)
			}
			return &Iterator[K]{bpm: t.bpm, frame: frame, pageID: pageID, idx: idx}, nil
		}

		internal := storage.NewInternalPage(frame.Data)
		childID := internal.ValueAt(internal.FindLowerBound(int64(key)))
		frame.Latch.RUnlock()
		t.bpm.UnpinPage(pageID, false)
		pageID = childID
	}
}

// End returns the sentinel end-of-iteration cursor.
func (t *Tree[K]) End() *Iterator[K] {
	return &Iterator[K]{bpm: t.bpm}
}

func (t *Tree[K]) descendToLeftmostLeaf(pageID io.PageID) (*Iterator[K], error) {
	for {
		frame, err := t.bpm.FetchPage(pageID)
		if err != nil {
			return nil, fmt.Errorf("btree: begin: fetch page %d: %w", pageID, err)
		}
		frame.Latch.RLock()

		if storage.GetPageType(frame.Data) == storage.LeafPageType {
			if storage.NewLeafPage(frame.Data).Size() == 0 {
				frame.Latch.RUnlock()
				t.bpm.UnpinPage(pageID, false)
				return &Iterator[K]{bpm: t.bpm}, nil
			}
			return &Iterator[K]{bpm: t.bpm, frame: frame, pageID: pageID, idx: 0}, nil
		}

		internal := storage.NewInternalPage(frame.Data)
		childID := internal.ValueAt(0)
		frame.Latch.RUnlock()
		t.bpm.UnpinPage(pageID, false)
		pageID = childID
	}
}

func (t *Tree[K]) leafIterator(pageID io.PageID, idx int) (*Iterator[K], error) {
	frame, err := t.bpm.FetchPage(pageID)
	if err != nil {
		return nil, fmt.Errorf("btree: leaf iterator: fetch page %d: %w", pageID, err)
	}
	frame.Latch.RLock()
	return &Iterator[K]{bpm: t.bpm, frame: frame, pageID: pageID, idx: idx}, nil
}
