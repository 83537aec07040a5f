package btree

import (
	"fmt"

	"pagedb/io"
	"pagedb/storage"
)

// Insert adds (key, rid). Returns false if key already exists.
//
// Descent holds write latches down an ancestor stack, releasing an
// ancestor as soon as the just-acquired child is safe for insert — its
// size, after the local insert, is guaranteed to stay below max size
// without a split.
func (t *Tree[K]) Insert(key K, rid storage.RecordID) (bool, error) {
	if t.IsEmpty() {
		return t.insertIntoEmpty(key, rid)
	}

	stack := make([]pathEntry, 0, 8)
	pageID := t.rootPageID

	for {
		frame, err := t.bpm.FetchPage(pageID)
		if err != nil {
			t.release(stack, false)
			return false, fmt.Errorf("btree: insert: fetch page %d: %w", pageID, err)
		}
		frame.Latch.Lock()
		stack = append(stack, pathEntry{frame, pageID})

		if storage.GetPageType(frame.Data) == storage.LeafPageType {
			break
		}

		internal := storage.NewInternalPage(frame.Data)
		if internal.Size() < internal.MaxSize()-1 {
			t.release(stack[:len(stack)-1], false)
			stack = stack[len(stack)-1:]
		}
		pageID = internal.ValueAt(internal.FindLowerBound(int64(key)))
	}

	leafEntry := stack[len(stack)-1]
	leaf := storage.NewLeafPage(leafEntry.frame.Data)
	idx, found := leaf.FindKeyIndex(int64(key))
	if found {
		t.release(stack, false)
		return false, nil
	}
	leaf.InsertAt(idx, int64(key), rid)

	if !leaf.IsFull() {
		t.unpinWriteLocked(leafEntry, true)
		t.release(stack[:len(stack)-1], false)
		return true, nil
	}

	if err := t.splitLeafAndPropagate(stack); err != nil {
		return false, err
	}
	return true, nil
}

func (t *Tree[K]) insertIntoEmpty(key K, rid storage.RecordID) (bool, error) {
	pageID, frame, err := t.bpm.NewPage()
	if err != nil {
		return false, fmt.Errorf("btree: insert into empty tree: %w", err)
	}
	leaf := storage.NewLeafPage(frame.Data)
	leaf.Init(pageID, io.InvalidPageID, t.leafMaxSize)
	leaf.InsertAt(0, int64(key), rid)
	t.bpm.UnpinPage(pageID, true)

	t.rootPageID = pageID
	if err := t.updateHeaderRoot(); err != nil {
		return false, err
	}
	t.log.Debug("created root leaf", "page_id", pageID)
	return true, nil
}

// splitLeafAndPropagate splits the full leaf at the top of stack and
// propagates its separator key to the parent (or creates a new root
// if the leaf was the root).
func (t *Tree[K]) splitLeafAndPropagate(stack []pathEntry) error {
	leafEntry := stack[len(stack)-1]
	leaf := storage.NewLeafPage(leafEntry.frame.Data)

	newPageID, newFrame, err := t.bpm.NewPage()
	if err != nil {
		t.release(stack, true)
		return fmt.Errorf("btree: split leaf: %w", err)
	}
	newFrame.Latch.Lock()
	newLeaf := storage.NewLeafPage(newFrame.Data)
	newLeaf.Init(newPageID, leaf.ParentPageID(), t.leafMaxSize)
	separator := leaf.SplitTo(newLeaf)
	newFrame.Latch.Unlock()
	t.bpm.UnpinPage(newPageID, true)

	if len(stack) == 1 {
		return t.createNewRoot(leafEntry, newPageID, separator)
	}

	t.unpinWriteLocked(leafEntry, true)
	return t.insertIntoParent(stack[:len(stack)-1], leafEntry.pageID, separator, newPageID)
}

// insertIntoParent inserts (separator, rightChildID) immediately after
// the slot whose child is leftChildID, into the page at the top of
// stack (already pinned and write-latched). Splits that page again,
// recursively, if it overflows.
func (t *Tree[K]) insertIntoParent(stack []pathEntry, leftChildID io.PageID, separator int64, rightChildID io.PageID) error {
	parentEntry := stack[len(stack)-1]
	parent := storage.NewInternalPage(parentEntry.frame.Data)

	idx := parent.IndexOfValue(leftChildID)
	parent.InsertAt(idx+1, separator, rightChildID)

	if err := t.setChildParent(rightChildID, parentEntry.pageID); err != nil {
		t.release(stack, true)
		return err
	}

	if !parent.IsFull() {
		t.unpinWriteLocked(parentEntry, true)
		t.release(stack[:len(stack)-1], false)
		return nil
	}

	newPageID, newFrame, err := t.bpm.NewPage()
	if err != nil {
		t.release(stack, true)
		return fmt.Errorf("btree: split internal page: %w", err)
	}
	newFrame.Latch.Lock()
	newInternal := storage.NewInternalPage(newFrame.Data)
	newInternal.Init(newPageID, parent.ParentPageID(), t.internalMaxSize)
	newSeparator := parent.SplitTo(newInternal)

	for i := 0; i < newInternal.Size(); i++ {
		if err := t.setChildParent(newInternal.ValueAt(i), newPageID); err != nil {
			newFrame.Latch.Unlock()
			t.bpm.UnpinPage(newPageID, true)
			t.release(stack, true)
			return err
		}
	}
	newFrame.Latch.Unlock()
	t.bpm.UnpinPage(newPageID, true)

	if len(stack) == 1 {
		return t.createNewRoot(parentEntry, newPageID, newSeparator)
	}

	t.unpinWriteLocked(parentEntry, true)
	return t.insertIntoParent(stack[:len(stack)-1], parentEntry.pageID, newSeparator, newPageID)
}

// createNewRoot builds a fresh internal root over oldEntry (the
// pre-split root, still pinned/write-latched) and rightPageID, the new
// sibling produced by the split.
func (t *Tree[K]) createNewRoot(oldEntry pathEntry, rightPageID io.PageID, separator int64) error {
	rootPageID, rootFrame, err := t.bpm.NewPage()
	if err != nil {
		t.unpinWriteLocked(oldEntry, true)
		return fmt.Errorf("btree: create new root: %w", err)
	}
	root := storage.NewInternalPage(rootFrame.Data)
	root.Init(rootPageID, io.InvalidPageID, t.internalMaxSize)
	root.InsertAt(0, 0, oldEntry.pageID)
	root.InsertAt(1, separator, rightPageID)
	t.bpm.UnpinPage(rootPageID, true)

	storage.SetParentPageID(oldEntry.frame.Data, rootPageID)
	t.unpinWriteLocked(oldEntry, true)

	if err := t.setChildParent(rightPageID, rootPageID); err != nil {
		return err
	}

	t.rootPageID = rootPageID
	if err := t.updateHeaderRoot(); err != nil {
		return err
	}
	t.log.Debug("created new root", "page_id", rootPageID, "left", oldEntry.pageID, "right", rightPageID)
	return nil
}
