package storage

import (
	"testing"

	"github.com/stretchr/testify/require"

	"pagedb/io"
)

func TestLeafPageInsertFindDelete(t *testing.T) {
	data := make([]byte, io.PageSize)
	leaf := NewLeafPage(data)
	leaf.Init(1, io.InvalidPageID, 4)

	leaf.InsertAt(0, 10, RecordID{PageID: 10, SlotNum: 0})
	leaf.InsertAt(1, 30, RecordID{PageID: 30, SlotNum: 0})
	idx, found := leaf.FindKeyIndex(20)
	require.False(t, found)
	require.Equal(t, 1, idx)
	leaf.InsertAt(idx, 20, RecordID{PageID: 20, SlotNum: 0})

	require.Equal(t, 3, leaf.Size())
	for i, want := range []int64{10, 20, 30} {
		require.Equal(t, want, leaf.KeyAt(i))
	}

	idx, found = leaf.FindKeyIndex(20)
	require.True(t, found)
	require.Equal(t, RecordID{PageID: 20, SlotNum: 0}, leaf.ValueAt(idx))

	leaf.DeleteAt(1)
	require.Equal(t, 2, leaf.Size())
	require.Equal(t, int64(30), leaf.KeyAt(1))
}

func TestLeafPageSplitKeepsOrderAndLinks(t *testing.T) {
	left := NewLeafPage(make([]byte, io.PageSize))
	left.Init(1, io.InvalidPageID, 4)
	right := NewLeafPage(make([]byte, io.PageSize))
	right.Init(2, io.InvalidPageID, 4)

	for i, k := range []int64{1, 2, 3, 4} {
		left.InsertAt(i, k, RecordID{PageID: io.PageID(k)})
	}

	sep := left.SplitTo(right)
	require.Equal(t, int64(3), sep)
	require.Equal(t, 2, left.Size())
	require.Equal(t, 2, right.Size())
	require.Equal(t, io.PageID(2), left.NextPageID())
	require.Equal(t, io.PageID(io.InvalidPageID), right.NextPageID())
	require.Equal(t, int64(3), right.KeyAt(0))
	require.Equal(t, int64(4), right.KeyAt(1))
}

func TestLeafPageRedistributePrimitives(t *testing.T) {
	leaf := NewLeafPage(make([]byte, io.PageSize))
	leaf.Init(1, io.InvalidPageID, 4)
	leaf.PushBack(5, RecordID{PageID: 5})
	leaf.PushBack(6, RecordID{PageID: 6})

	k, v := leaf.PopFront()
	require.Equal(t, int64(5), k)
	require.Equal(t, RecordID{PageID: 5}, v)
	require.Equal(t, 1, leaf.Size())

	leaf.PushFront(4, RecordID{PageID: 4})
	require.Equal(t, int64(4), leaf.KeyAt(0))
	require.Equal(t, int64(6), leaf.KeyAt(1))

	k, v = leaf.PopBack()
	require.Equal(t, int64(6), k)
	require.Equal(t, RecordID{PageID: 6}, v)
}

func TestInternalPageFindLowerBoundIgnoresSlotZero(t *testing.T) {
	p := NewInternalPage(make([]byte, io.PageSize))
	p.Init(1, io.InvalidPageID, 4)
	p.InsertAt(0, 0 /* unused sentinel */, 100)
	p.InsertAt(1, 10, 200)
	p.InsertAt(2, 20, 300)

	require.Equal(t, 0, p.FindLowerBound(5))
	require.Equal(t, 1, p.FindLowerBound(10))
	require.Equal(t, 1, p.FindLowerBound(15))
	require.Equal(t, 2, p.FindLowerBound(25))
}

func TestInternalPageSplitAndMerge(t *testing.T) {
	left := NewInternalPage(make([]byte, io.PageSize))
	left.Init(1, io.InvalidPageID, 4)
	left.InsertAt(0, 0, 10)
	left.InsertAt(1, 5, 20)
	left.InsertAt(2, 15, 30)
	left.InsertAt(3, 25, 40)

	right := NewInternalPage(make([]byte, io.PageSize))
	right.Init(2, io.InvalidPageID, 4)

	sep := left.SplitTo(right)
	require.Equal(t, int64(15), sep)
	require.Equal(t, 2, left.Size())
	require.Equal(t, 2, right.Size())
	require.Equal(t, io.PageID(30), right.ValueAt(0))
	require.Equal(t, io.PageID(40), right.ValueAt(1))
	require.Equal(t, int64(25), right.KeyAt(1))

	left.MergeWith(right, sep)
	require.Equal(t, 4, left.Size())
	require.Equal(t, io.PageID(10), left.ValueAt(0))
	require.Equal(t, io.PageID(20), left.ValueAt(1))
	require.Equal(t, io.PageID(30), left.ValueAt(2))
	require.Equal(t, io.PageID(40), left.ValueAt(3))
	require.Equal(t, int64(15), left.KeyAt(2))
	require.Equal(t, int64(25), left.KeyAt(3))
}

func TestHeaderPageInsertUpdateLookup(t *testing.T) {
	hp := NewHeaderPage(make([]byte, io.PageSize))

	require.True(t, hp.InsertRecord("idx_a", 1))
	require.False(t, hp.InsertRecord("idx_a", 2))

	root, ok := hp.GetRootPageID("idx_a")
	require.True(t, ok)
	require.Equal(t, io.PageID(1), root)

	require.True(t, hp.UpdateRecord("idx_a", 5))
	root, ok = hp.GetRootPageID("idx_a")
	require.True(t, ok)
	require.Equal(t, io.PageID(5), root)

	_, ok = hp.GetRootPageID("missing")
	require.False(t, ok)
}
