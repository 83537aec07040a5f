package memory

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"pagedb/io"
)

func newTestPool(t *testing.T, poolSize int) *BufferPoolManager {
	t.Helper()
	disk, err := io.NewDiskManager(afero.NewMemMapFs(), "/db/test.db")
	require.NoError(t, err)
	t.Cleanup(func() { _ = disk.Close() })
	return NewBufferPoolManager(poolSize, disk, 2)
}

func TestNewPagePinsAndInstalls(t *testing.T) {
	bpm := newTestPool(t, 2)

	pageID, frame, err := bpm.NewPage()
	require.NoError(t, err)
	require.True(t, frame.Pinned())
	require.Equal(t, 1, frame.PinCount())
	require.Equal(t, pageID, frame.PageID)
}

func TestFetchResidentPageIncrementsPin(t *testing.T) {
	bpm := newTestPool(t, 2)
	pageID, frame, err := bpm.NewPage()
	require.NoError(t, err)
	require.True(t, bpm.UnpinPage(pageID, false))

	again, err := bpm.FetchPage(pageID)
	require.NoError(t, err)
	require.Same(t, frame, again)
	require.Equal(t, 1, again.PinCount())
}

func TestUnpinUnknownPageFails(t *testing.T) {
	bpm := newTestPool(t, 2)
	require.False(t, bpm.UnpinPage(999, false))
}

func TestUnpinSetsEvictableOnlyAtZero(t *testing.T) {
	bpm := newTestPool(t, 1)
	pageID, _, err := bpm.NewPage()
	require.NoError(t, err)

	// Pin again via fetch so pin count is 2.
	_, err = bpm.FetchPage(pageID)
	require.NoError(t, err)

	require.True(t, bpm.UnpinPage(pageID, false))
	// still pinned once: a new page allocation should fail, the pool
	// has exactly one frame and it is not evictable yet.
	_, _, err = bpm.NewPage()
	require.ErrorIs(t, err, ErrOutOfFrames)

	require.True(t, bpm.UnpinPage(pageID, false))
	// now unpinned: allocating again must evict this page's frame.
	_, _, err = bpm.NewPage()
	require.NoError(t, err)
}

func TestDirtyBitIsOrdNeverCleared(t *testing.T) {
	bpm := newTestPool(t, 1)
	pageID, frame, err := bpm.NewPage()
	require.NoError(t, err)
	require.False(t, frame.IsDirty)

	// Pin a second time so the page can be unpinned twice.
	_, err = bpm.FetchPage(pageID)
	require.NoError(t, err)

	require.True(t, bpm.UnpinPage(pageID, true))
	require.True(t, frame.IsDirty)
	require.True(t, bpm.UnpinPage(pageID, false))
	require.True(t, frame.IsDirty)
}

func TestDeletePagePinnedFails(t *testing.T) {
	bpm := newTestPool(t, 1)
	pageID, _, err := bpm.NewPage()
	require.NoError(t, err)

	ok, err := bpm.DeletePage(pageID)
	require.False(t, ok)
	require.ErrorIs(t, err, ErrPagePinned)
}

func TestDeletePageNotResidentIsNoop(t *testing.T) {
	bpm := newTestPool(t, 1)
	ok, err := bpm.DeletePage(42)
	require.True(t, ok)
	require.NoError(t, err)
}

func TestDeletePageFreesFrameForReuse(t *testing.T) {
	bpm := newTestPool(t, 1)
	pageID, _, err := bpm.NewPage()
	require.NoError(t, err)
	require.True(t, bpm.UnpinPage(pageID, false))

	ok, err := bpm.DeletePage(pageID)
	require.True(t, ok)
	require.NoError(t, err)

	// The frame should be free, not merely evictable.
	newID, _, err := bpm.NewPage()
	require.NoError(t, err)
	require.NotEqual(t, pageID, newID)
}

func TestEvictionFlushesDirtyVictim(t *testing.T) {
	bpm := newTestPool(t, 1)
	pageID, frame, err := bpm.NewPage()
	require.NoError(t, err)
	copy(frame.Data, []byte("hello"))
	require.True(t, bpm.UnpinPage(pageID, true))

	// Forces eviction of pageID's frame since the pool has size 1.
	newID, _, err := bpm.NewPage()
	require.NoError(t, err)
	require.NotEqual(t, pageID, newID)
	// Release the new page so its frame can be reused for the refetch.
	require.True(t, bpm.UnpinPage(newID, false))

	refetched, err := bpm.FetchPage(pageID)
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), refetched.Data[:5])
}

func TestOutOfFramesWhenAllPinned(t *testing.T) {
	bpm := newTestPool(t, 1)
	_, _, err := bpm.NewPage()
	require.NoError(t, err)

	_, _, err = bpm.NewPage()
	require.ErrorIs(t, err, ErrOutOfFrames)
}

func TestFlushAllPagesClearsDirtyBits(t *testing.T) {
	bpm := newTestPool(t, 2)
	id1, f1, err := bpm.NewPage()
	require.NoError(t, err)
	id2, f2, err := bpm.NewPage()
	require.NoError(t, err)

	require.True(t, bpm.UnpinPage(id1, true))
	require.True(t, bpm.UnpinPage(id2, true))
	bpm.FlushAllPages()

	require.False(t, f1.IsDirty)
	require.False(t, f2.IsDirty)
}
