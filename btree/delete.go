package btree

import (
	"fmt"

	"pagedb/io"
	"pagedb/storage"
)

// Remove deletes key if present; a missing key is a no-op, not an
// error.
//
// Descent holds write latches down an ancestor stack, releasing an
// ancestor as soon as the just-acquired child is safe for delete — its
// size, after losing at most one slot to a merge below it, is
// guaranteed to stay at or above min size.
func (t *Tree[K]) Remove(key K) error {
	if t.IsEmpty() {
		return nil
	}

	stack := make([]pathEntry, 0, 8)
	pageID := t.rootPageID

	for {
		frame, err := t.bpm.FetchPage(pageID)
		if err != nil {
			t.release(stack, false)
			return fmt.Errorf("btree: remove: fetch page %d: %w", pageID, err)
		}
		frame.Latch.Lock()
		stack = append(stack, pathEntry{frame, pageID})

		if storage.GetPageType(frame.Data) == storage.LeafPageType {
			break
		}

		internal := storage.NewInternalPage(frame.Data)
		if len(stack) > 1 && internal.Size() > internal.MinSize() {
			t.release(stack[:len(stack)-1], false)
			stack = stack[len(stack)-1:]
		}
		pageID = internal.ValueAt(internal.FindLowerBound(int64(key)))
	}

	leafEntry := stack[len(stack)-1]
	leaf := storage.NewLeafPage(leafEntry.frame.Data)
	idx, found := leaf.FindKeyIndex(int64(key))
	if !found {
		t.release(stack, false)
		return nil
	}
	leaf.DeleteAt(idx)

	if len(stack) == 1 {
		// The leaf is the root: exempt from the lower bound. Only an
		// empty root needs adjustRoot.
		if leaf.Size() == 0 {
			return t.adjustRoot(leafEntry)
		}
		t.unpinWriteLocked(leafEntry, true)
		return nil
	}

	if leaf.Size() >= leaf.MinSize() {
		t.unpinWriteLocked(leafEntry, true)
		t.release(stack[:len(stack)-1], false)
		return nil
	}

	return t.mergeOrRedistribute(stack)
}

// adjustRoot handles an underflowed root: an empty root leaf is freed;
// an internal root with exactly one child promotes that child.
func (t *Tree[K]) adjustRoot(entry pathEntry) error {
	pageType := storage.GetPageType(entry.frame.Data)

	if pageType == storage.LeafPageType {
		leaf := storage.NewLeafPage(entry.frame.Data)
		if leaf.Size() > 0 {
			t.unpinWriteLocked(entry, true)
			return nil
		}
		t.unpinWriteLocked(entry, true)
		if _, err := t.bpm.DeletePage(entry.pageID); err != nil {
			return fmt.Errorf("btree: adjust root: free empty leaf root: %w", err)
		}
		t.rootPageID = io.InvalidPageID
		return t.updateHeaderRoot()
	}

	internal := storage.NewInternalPage(entry.frame.Data)
	if internal.Size() != 1 {
		t.unpinWriteLocked(entry, true)
		return nil
	}
	onlyChild := internal.ValueAt(0)
	t.unpinWriteLocked(entry, true)
	if _, err := t.bpm.DeletePage(entry.pageID); err != nil {
		return fmt.Errorf("btree: adjust root: free internal root: %w", err)
	}
	if err := t.setChildParent(onlyChild, io.InvalidPageID); err != nil {
		return err
	}
	t.rootPageID = onlyChild
	return t.updateHeaderRoot()
}

// mergeOrRedistribute resolves an underflowed, non-root page: merge
// with a sibling if the combined size fits one page, else redistribute
// one entry across the boundary. Recurses into the parent if a merge
// leaves it underflowed.
func (t *Tree[K]) mergeOrRedistribute(stack []pathEntry) error {
	entry := stack[len(stack)-1]
	if len(stack) == 1 {
		return t.adjustRoot(entry)
	}

	parentEntry := stack[len(stack)-2]
	parent := storage.NewInternalPage(parentEntry.frame.Data)
	childIdx := parent.IndexOfValue(entry.pageID)
	isLeaf := storage.GetPageType(entry.frame.Data) == storage.LeafPageType

	t.log.Debug("merge or redistribute", "page_id", entry.pageID, "parent_id", parentEntry.pageID, "child_index", childIdx)

	hasLeft := childIdx > 0
	hasRight := childIdx < parent.Size()-1

	var leftEntry, rightEntry *pathEntry
	if hasLeft {
		f, err := t.bpm.FetchPage(parent.ValueAt(childIdx - 1))
		if err != nil {
			t.release(stack, false)
			return fmt.Errorf("btree: fetch left sibling: %w", err)
		}
		f.Latch.Lock()
		e := pathEntry{f, parent.ValueAt(childIdx - 1)}
		leftEntry = &e
	}
	if hasRight {
		f, err := t.bpm.FetchPage(parent.ValueAt(childIdx + 1))
		if err != nil {
			if leftEntry != nil {
				t.unpinWriteLocked(*leftEntry, false)
			}
			t.release(stack, false)
			return fmt.Errorf("btree: fetch right sibling: %w", err)
		}
		f.Latch.Lock()
		e := pathEntry{f, parent.ValueAt(childIdx + 1)}
		rightEntry = &e
	}

	if isLeaf {
		cur := storage.NewLeafPage(entry.frame.Data)

		if leftEntry != nil {
			left := storage.NewLeafPage(leftEntry.frame.Data)
			if left.Size()+cur.Size() <= left.MaxSize() {
				left.MergeWith(cur)
				parent.DeleteAt(childIdx)
				t.unpinWriteLocked(entry, true)
				t.unpinWriteLocked(*leftEntry, true)
				if rightEntry != nil {
					t.unpinWriteLocked(*rightEntry, false)
				}
				if _, err := t.bpm.DeletePage(entry.pageID); err != nil {
					return fmt.Errorf("btree: free merged leaf: %w", err)
				}
				return t.afterParentShrink(stack, parent)
			}
		}
		if rightEntry != nil {
			right := storage.NewLeafPage(rightEntry.frame.Data)
			if cur.Size()+right.Size() <= cur.MaxSize() {
				cur.MergeWith(right)
				parent.DeleteAt(childIdx + 1)
				t.unpinWriteLocked(entry, true)
				t.unpinWriteLocked(*rightEntry, true)
				if leftEntry != nil {
					t.unpinWriteLocked(*leftEntry, false)
				}
				if _, err := t.bpm.DeletePage(rightEntry.pageID); err != nil {
					return fmt.Errorf("btree: free merged leaf: %w", err)
				}
				return t.afterParentShrink(stack, parent)
			}
		}

		// Redistribute.
		if leftEntry != nil {
			left := storage.NewLeafPage(leftEntry.frame.Data)
			k, v := left.PopBack()
			cur.PushFront(k, v)
			parent.SetKeyAt(childIdx, cur.KeyAt(0))
			t.unpinWriteLocked(entry, true)
			t.unpinWriteLocked(*leftEntry, true)
			if rightEntry != nil {
				t.unpinWriteLocked(*rightEntry, false)
			}
			t.unpinWriteLocked(parentEntry, true)
			t.release(stack[:len(stack)-2], false)
			return nil
		}
		right := storage.NewLeafPage(rightEntry.frame.Data)
		k, v := right.PopFront()
		cur.PushBack(k, v)
		parent.SetKeyAt(childIdx+1, right.KeyAt(0))
		t.unpinWriteLocked(entry, true)
		t.unpinWriteLocked(*rightEntry, true)
		if leftEntry != nil {
			t.unpinWriteLocked(*leftEntry, false)
		}
		t.unpinWriteLocked(parentEntry, true)
		t.release(stack[:len(stack)-2], false)
		return nil
	}

	// Internal page.
	cur := storage.NewInternalPage(entry.frame.Data)

	if leftEntry != nil {
		left := storage.NewInternalPage(leftEntry.frame.Data)
		if left.Size()+cur.Size() <= left.MaxSize() {
			separator := parent.KeyAt(childIdx)
			mergedFrom := left.Size()
			left.MergeWith(cur, separator)
			if err := t.reparentAll(left, mergedFrom, left.Size()); err != nil {
				return err
			}
			parent.DeleteAt(childIdx)
			t.unpinWriteLocked(entry, true)
			t.unpinWriteLocked(*leftEntry, true)
			if rightEntry != nil {
				t.unpinWriteLocked(*rightEntry, false)
			}
			if _, err := t.bpm.DeletePage(entry.pageID); err != nil {
				return fmt.Errorf("btree: free merged internal page: %w", err)
			}
			return t.afterParentShrink(stack, parent)
		}
	}
	if rightEntry != nil {
		right := storage.NewInternalPage(rightEntry.frame.Data)
		if cur.Size()+right.Size() <= cur.MaxSize() {
			separator := parent.KeyAt(childIdx + 1)
			mergedFrom := cur.Size()
			cur.MergeWith(right, separator)
			if err := t.reparentAll(cur, mergedFrom, cur.Size()); err != nil {
				return err
			}
			parent.DeleteAt(childIdx + 1)
			t.unpinWriteLocked(entry, true)
			t.unpinWriteLocked(*rightEntry, true)
			if leftEntry != nil {
				t.unpinWriteLocked(*leftEntry, false)
			}
			if _, err := t.bpm.DeletePage(rightEntry.pageID); err != nil {
				return fmt.Errorf("btree: free merged internal page: %w", err)
			}
			return t.afterParentShrink(stack, parent)
		}
	}

	// Redistribute.
	if leftEntry != nil {
		left := storage.NewInternalPage(leftEntry.frame.Data)
		oldSeparator := parent.KeyAt(childIdx)
		lastKey, lastVal := left.PopBackInternal()
		cur.InsertAt(0, 0, lastVal)
		cur.SetKeyAt(1, oldSeparator)
		parent.SetKeyAt(childIdx, lastKey)
		if err := t.setChildParent(lastVal, entry.pageID); err != nil {
			return err
		}
		t.unpinWriteLocked(entry, true)
		t.unpinWriteLocked(*leftEntry, true)
		if rightEntry != nil {
			t.unpinWriteLocked(*rightEntry, false)
		}
		t.unpinWriteLocked(parentEntry, true)
		t.release(stack[:len(stack)-2], false)
		return nil
	}
	right := storage.NewInternalPage(rightEntry.frame.Data)
	oldSeparator := parent.KeyAt(childIdx + 1)
	firstVal := right.ValueAt(0)
	newSeparator := right.KeyAt(1)
	cur.InsertAt(cur.Size(), oldSeparator, firstVal)
	right.DeleteAt(0)
	parent.SetKeyAt(childIdx+1, newSeparator)
	if err := t.setChildParent(firstVal, entry.pageID); err != nil {
		return err
	}
	t.unpinWriteLocked(entry, true)
	t.unpinWriteLocked(*rightEntry, true)
	if leftEntry != nil {
		t.unpinWriteLocked(*leftEntry, false)
	}
	t.unpinWriteLocked(parentEntry, true)
	t.release(stack[:len(stack)-2], false)
	return nil
}

// afterParentShrink checks whether the parent (having just lost one
// slot to a merge) itself underflowed, recursing if so. Internal pages
// use size <= min_size as the underflow trigger, since slot 0 carries
// no key.
func (t *Tree[K]) afterParentShrink(stack []pathEntry, parent *storage.InternalPage) error {
	rest := stack[:len(stack)-1]
	if len(rest) == 1 {
		return t.mergeOrRedistribute(rest)
	}
	if parent.Size() <= parent.MinSize() {
		return t.mergeOrRedistribute(rest)
	}
	t.unpinWriteLocked(rest[len(rest)-1], true)
	t.release(rest[:len(rest)-1], false)
	return nil
}

// reparentAll fixes the parent pointer of every child slot in
// [from, to) of page to page.PageID().
func (t *Tree[K]) reparentAll(page *storage.InternalPage, from, to int) error {
	for i := from; i < to; i++ {
		if err := t.setChildParent(page.ValueAt(i), page.PageID()); err != nil {
			return err
		}
	}
	return nil
}
