package btree

import (
	"fmt"

	"pagedb/io"
	"pagedb/storage"
)

// PrettyPrint recursively prints the tree structure from the root page,
// box-drawing each node the way a debugger would dump it. It is a
// read-only aid, latching each page for read only for the duration of
// its own print.
func (t *Tree[K]) PrettyPrint() error {
	if t.IsEmpty() {
		fmt.Println("(empty tree)")
		return nil
	}
	return t.prettyPrintNode(t.rootPageID, "", true)
}

func (t *Tree[K]) prettyPrintNode(pageID io.PageID, prefix string, isLast bool) error {
	frame, err := t.bpm.FetchPage(pageID)
	if err != nil {
		return fmt.Errorf("btree: pretty print: fetch page %d: %w", pageID, err)
	}
	frame.Latch.RLock()

	connector, childPrefix := "├── ", "│   "
	if isLast {
		connector, childPrefix = "└── ", "    "
	}

	if storage.GetPageType(frame.Data) == storage.LeafPageType {
		leaf := storage.NewLeafPage(frame.Data)
		keys := make([]int64, leaf.Size())
		for i := range keys {
			keys[i] = leaf.KeyAt(i)
		}
		fmt.Printf("%s%sLeaf[page=%d] keys=%v next=%d\n", prefix, connector, pageID, keys, leaf.NextPageID())
		frame.Latch.RUnlock()
		t.bpm.UnpinPage(pageID, false)
		return nil
	}

	internal := storage.NewInternalPage(frame.Data)
	keys := make([]int64, internal.Size())
	children := make([]io.PageID, internal.Size())
	for i := 0; i < internal.Size(); i++ {
		keys[i] = internal.KeyAt(i)
		children[i] = internal.ValueAt(i)
	}
	fmt.Printf("%s%sInternal[page=%d] keys=%v children=%v\n", prefix, connector, pageID, keys[1:], children)
	frame.Latch.RUnlock()
	t.bpm.UnpinPage(pageID, false)

	for i, childID := range children {
		if err := t.prettyPrintNode(childID, prefix+childPrefix, i == len(children)-1); err != nil {
			return err
		}
	}
	return nil
}
