package trie

import (
	"testing"

	"github.com/sourcegraph/conc/pool"
	"github.com/stretchr/testify/require"
)

// Scenario 5: duplicate insert.
func TestInsertDuplicateRejected(t *testing.T) {
	tr := New()
	require.True(t, tr.Insert("abc", 1))
	require.False(t, tr.Insert("abc", 2))

	v, ok := GetValue[int](tr, "abc")
	require.True(t, ok)
	require.Equal(t, 1, v)
}

// Scenario 6: type mismatch on retrieval.
func TestGetValueTypeMismatch(t *testing.T) {
	tr := New()
	require.True(t, tr.Insert("x", 1))

	_, ok := GetValue[string](tr, "x")
	require.False(t, ok)
}

func TestInsertEmptyKeyRejected(t *testing.T) {
	tr := New()
	require.False(t, tr.Insert("", 1))
}

func TestGetValueEmptyKeyFails(t *testing.T) {
	tr := New()
	_, ok := GetValue[int](tr, "")
	require.False(t, ok)
}

func TestGetValueMissingPathFails(t *testing.T) {
	tr := New()
	require.True(t, tr.Insert("cat", 1))

	_, ok := GetValue[int](tr, "car")
	require.False(t, ok)
	_, ok = GetValue[int](tr, "ca")
	require.False(t, ok)
}

func TestPromoteKeepsSharedPrefixChildren(t *testing.T) {
	tr := New()
	require.True(t, tr.Insert("cats", 1))
	// "cat" promotes the interior node already created for "cats"'s
	// prefix; "cats" must still resolve afterward.
	require.True(t, tr.Insert("cat", 2))

	v, ok := GetValue[int](tr, "cat")
	require.True(t, ok)
	require.Equal(t, 2, v)

	v, ok = GetValue[int](tr, "cats")
	require.True(t, ok)
	require.Equal(t, 1, v)
}

func TestRemovePrunesDeadPath(t *testing.T) {
	tr := New()
	require.True(t, tr.Insert("dog", 1))

	require.True(t, tr.Remove("dog"))
	_, ok := GetValue[int](tr, "dog")
	require.False(t, ok)

	// root should have no dangling children left.
	require.Empty(t, tr.root.children)
}

func TestRemoveKeepsSiblingBranch(t *testing.T) {
	tr := New()
	require.True(t, tr.Insert("dog", 1))
	require.True(t, tr.Insert("dot", 2))

	require.True(t, tr.Remove("dog"))
	_, ok := GetValue[int](tr, "dog")
	require.False(t, ok)

	v, ok := GetValue[int](tr, "dot")
	require.True(t, ok)
	require.Equal(t, 2, v)
}

func TestRemoveDoesNotPruneTerminalPrefix(t *testing.T) {
	tr := New()
	require.True(t, tr.Insert("cat", 1))
	require.True(t, tr.Insert("cats", 2))

	require.True(t, tr.Remove("cats"))
	v, ok := GetValue[int](tr, "cat")
	require.True(t, ok)
	require.Equal(t, 1, v)
	_, ok = GetValue[int](tr, "cats")
	require.False(t, ok)
}

func TestRemoveMissingOrEmptyFails(t *testing.T) {
	tr := New()
	require.False(t, tr.Remove(""))
	require.False(t, tr.Remove("nope"))
}

func TestConcurrentReadersAndWriters(t *testing.T) {
	tr := New()
	p := pool.New().WithMaxGoroutines(16)
	for i := 0; i < 50; i++ {
		i := i
		p.Go(func() {
			key := string(rune('a' + i%26))
			tr.Insert(key, i)
			GetValue[int](tr, key)
		})
	}
	p.Wait()
}
