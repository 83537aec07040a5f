package btree

import (
	"math/rand"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"pagedb/io"
	"pagedb/memory"
	"pagedb/storage"
)

func newTestTree(t *testing.T, leafMax, internalMax int) *Tree[int64] {
	t.Helper()
	disk, err := io.NewDiskManager(afero.NewMemMapFs(), "/db/test.db")
	require.NoError(t, err)
	t.Cleanup(func() { _ = disk.Close() })
	bpm := memory.NewBufferPoolManager(64, disk, 2)
	tree, err := New[int64]("primary", bpm, leafMax, internalMax)
	require.NoError(t, err)
	return tree
}

func rid(k int64) storage.RecordID {
	return storage.RecordID{PageID: io.PageID(k), SlotNum: 0}
}

// Scenario 1: empty tree.
func TestEmptyTree(t *testing.T) {
	tree := newTestTree(t, 4, 4)
	require.True(t, tree.IsEmpty())

	_, found, err := tree.GetValue(42)
	require.NoError(t, err)
	require.False(t, found)
}

// Scenario 2: singleton.
func TestSingletonInsertAndLookup(t *testing.T) {
	tree := newTestTree(t, 4, 4)
	ok, err := tree.Insert(42, rid(42))
	require.NoError(t, err)
	require.True(t, ok)
	require.False(t, tree.IsEmpty())

	v, found, err := tree.GetValue(42)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, rid(42), v)
}

// Scenario 3: linear ascending insert with small max sizes forces
// splits; iteration from Begin yields every record id in order.
func TestLinearAscendingInsertAndIterate(t *testing.T) {
	tree := newTestTree(t, 2, 3)
	for k := int64(1); k <= 5; k++ {
		ok, err := tree.Insert(k, rid(k))
		require.NoError(t, err)
		require.True(t, ok)
	}

	it, err := tree.Begin()
	require.NoError(t, err)
	defer it.Close()

	var got []int64
	for !it.End() {
		got = append(got, int64(it.Value().PageID))
		require.NoError(t, it.Next())
	}
	require.Equal(t, []int64{1, 2, 3, 4, 5}, got)
}

func TestDuplicateInsertReturnsFalse(t *testing.T) {
	tree := newTestTree(t, 4, 4)
	ok, err := tree.Insert(1, rid(1))
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = tree.Insert(1, rid(99))
	require.NoError(t, err)
	require.False(t, ok)

	v, found, err := tree.GetValue(1)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, rid(1), v)
}

func TestRemoveMissingKeyIsNoop(t *testing.T) {
	tree := newTestTree(t, 4, 4)
	require.NoError(t, tree.Remove(123))
	require.True(t, tree.IsEmpty())
}

func TestInsertRemoveRoundTripEmptiesTree(t *testing.T) {
	tree := newTestTree(t, 4, 4)
	keys := rand.New(rand.NewSource(1)).Perm(30)
	for i := range keys {
		keys[i]++ // 1..30
	}

	for _, k := range keys {
		ok, err := tree.Insert(int64(k), rid(int64(k)))
		require.NoErrorf(t, err, "insert %d", k)
		require.Truef(t, ok, "insert %d", k)
	}

	removalOrder := rand.New(rand.NewSource(2)).Perm(len(keys))
	for _, idx := range removalOrder {
		k := int64(keys[idx])
		require.NoErrorf(t, tree.Remove(k), "remove %d", k)
		_, found, err := tree.GetValue(k)
		require.NoError(t, err)
		require.Falsef(t, found, "key %d should be gone after remove", k)
	}

	require.True(t, tree.IsEmpty())
}

// TestRandomPermutationInsertLookupRemove exercises the random
// permutation law: every intermediate GetValue for an inserted,
// not-yet-removed key returns its value.
func TestRandomPermutationInsertLookupRemove(t *testing.T) {
	tree := newTestTree(t, 3, 3)
	insertOrder := rand.New(rand.NewSource(7)).Perm(30)
	removeOrder := rand.New(rand.NewSource(11)).Perm(30)

	present := make(map[int64]bool)
	for _, idx := range insertOrder {
		k := int64(idx + 1)
		ok, err := tree.Insert(k, rid(k))
		require.NoError(t, err)
		require.True(t, ok)
		present[k] = true

		for other := range present {
			v, found, err := tree.GetValue(other)
			require.NoError(t, err)
			require.Truef(t, found, "key %d should still be present", other)
			require.Equal(t, rid(other), v)
		}
	}

	for _, idx := range removeOrder {
		k := int64(idx + 1)
		require.NoError(t, tree.Remove(k))
		delete(present, k)

		for other := range present {
			_, found, err := tree.GetValue(other)
			require.NoError(t, err)
			require.Truef(t, found, "key %d should still be present after removing %d", other, k)
		}
		_, found, err := tree.GetValue(k)
		require.NoError(t, err)
		require.False(t, found)
	}

	require.True(t, tree.IsEmpty())
}

func TestBeginAtSeeksToKey(t *testing.T) {
	tree := newTestTree(t, 2, 3)
	for k := int64(1); k <= 10; k += 2 {
		ok, err := tree.Insert(k, rid(k))
		require.NoError(t, err)
		require.True(t, ok)
	}

	it, err := tree.BeginAt(6)
	require.NoError(t, err)
	defer it.Close()

	require.False(t, it.End())
	require.Equal(t, int64(7), it.Key())
}

func TestBeginAtPastEndReturnsEndIterator(t *testing.T) {
	tree := newTestTree(t, 2, 3)
	ok, err := tree.Insert(1, rid(1))
	require.NoError(t, err)
	require.True(t, ok)

	it, err := tree.BeginAt(100)
	require.NoError(t, err)
	require.True(t, it.End())
}
