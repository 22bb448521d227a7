package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyComposition(t *testing.T) {
	assert.Equal(t, "expenses:42", Key(NamespaceExpenses, "42"))
	assert.Equal(t, "expenses:42:p1", Key(NamespaceExpenses, "42", "p1"))
	assert.Equal(t, "summary:42:2025-06:cat=7", Key(NamespaceSummary, "42", "2025-06", "cat=7"))
}

func TestPrefixCoversKeys(t *testing.T) {
	prefix := Prefix(NamespaceExpenses, "42")
	assert.Equal(t, "expenses:42", prefix)
	// Every key for the same namespace/owner starts with the prefix.
	assert.True(t, len(Key(NamespaceExpenses, "42", "p1")) > len(prefix))
	assert.Equal(t, prefix, Key(NamespaceExpenses, "42", "p1")[:len(prefix)])
}

func TestWritePrefixesFanOut(t *testing.T) {
	assert.Equal(t,
		[]string{"expenses:42", "summary:42"},
		WritePrefixes(NamespaceExpenses, "42"))
	assert.Equal(t,
		[]string{"categories:42", "expenses:42", "summary:42"},
		WritePrefixes(NamespaceCategories, "42"))
	// Unknown namespaces invalidate at least themselves.
	assert.Equal(t, []string{"widgets:42"}, WritePrefixes("widgets", "42"))
}

func TestInvalidateWrite(t *testing.T) {
	c := New()
	require.NoError(t, c.Set(Key(NamespaceExpenses, "42", "p1"), 1, time.Minute))
	require.NoError(t, c.Set(Key(NamespaceExpenses, "42", "p2"), 2, time.Minute))
	require.NoError(t, c.Set(Key(NamespaceSummary, "42", "2025-06"), 3, time.Minute))
	require.NoError(t, c.Set(Key(NamespaceExpenses, "7", "p1"), 4, time.Minute))

	removed := InvalidateWrite(c, NamespaceExpenses, "42")
	assert.Equal(t, 3, removed)

	// Another owner's listings survive.
	_, found := c.Get(Key(NamespaceExpenses, "7", "p1"))
	assert.True(t, found)
}

// The end-to-end read-through scenario: populate, hit, write-invalidate,
// miss before the TTL would have elapsed.
func TestWriteInvalidatesBeforeTTL(t *testing.T) {
	clock := newFakeClock()
	c := New(WithClock(clock.Now))

	require.NoError(t, c.Set("expenses:42:p1", []string{"coffee"}, 30*time.Second))

	val, found := c.Get("expenses:42:p1")
	require.True(t, found)
	assert.Equal(t, []string{"coffee"}, val)
	assert.Equal(t, int64(1), c.Stats().Hits)

	// A write to user 42's expenses lands well before the TTL.
	clock.Advance(5 * time.Second)
	InvalidateWrite(c, NamespaceExpenses, "42")

	_, found = c.Get("expenses:42:p1")
	assert.False(t, found, "invalidation must beat the TTL")
	s := c.Stats()
	assert.Equal(t, int64(1), s.Hits)
	assert.Equal(t, int64(1), s.Misses)
}
