package cache

import (
	"context"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

type user struct {
	Name  string `msgpack:"name"`
	Email string `msgpack:"email"`
}

func TestValueTypeAssertion(t *testing.T) {
	c := New()
	require.NoError(t, c.Set("u", user{Name: "alice", Email: "a@example.com"}, time.Minute))
	v, found, err := Value[user](c, "u")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "alice", v.Name)
}

func TestValueMsgpackFallback(t *testing.T) {
	c := New()
	data, err := msgpack.Marshal(user{Name: "bob", Email: "b@example.com"})
	require.NoError(t, err)
	require.NoError(t, c.Set("u", data, time.Minute))

	v, found, err := Value[user](c, "u")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "bob", v.Name)
	assert.Equal(t, "b@example.com", v.Email)
}

func TestValueMiss(t *testing.T) {
	c := New()
	v, found, err := Value[user](c, "absent")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Zero(t, v)
}

func TestValueWrongType(t *testing.T) {
	c := New()
	require.NoError(t, c.Set("n", 42, time.Minute))
	_, found, err := Value[user](c, "n")
	assert.Error(t, err)
	assert.False(t, found)
}

func TestFetchMissInvokesAndCaches(t *testing.T) {
	c := New()
	calls := 0
	invoke := func(ctx context.Context) (string, bool, error) {
		calls++
		return "fresh", true, nil
	}

	v, found, err := Fetch(context.Background(), c, "k", time.Minute, invoke)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "fresh", v)
	assert.Equal(t, 1, calls)

	// Second call is served from cache.
	v, found, err = Fetch(context.Background(), c, "k", time.Minute, invoke)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "fresh", v)
	assert.Equal(t, 1, calls)

	s := c.Stats()
	assert.Equal(t, int64(1), s.Hits)
	assert.Equal(t, int64(1), s.Misses, "only the first lookup misses")
}

// A zero TTL at the Fetch call site defers to the cache's configured
// default; it does not produce an entry that is already expired.
func TestFetchZeroTTLUsesCacheDefault(t *testing.T) {
	clock := newFakeClock()
	c := New(WithClock(clock.Now), WithDefaultTTL(10*time.Second))
	calls := 0
	invoke := func(ctx context.Context) (string, bool, error) {
		calls++
		return "fresh", true, nil
	}

	_, found, err := Fetch(context.Background(), c, "k", 0, invoke)
	require.NoError(t, err)
	require.True(t, found)

	// Still within the default TTL: served from cache.
	clock.Advance(9 * time.Second)
	_, found, err = Fetch(context.Background(), c, "k", 0, invoke)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 1, calls)

	// Past it: re-invoked.
	clock.Advance(2 * time.Second)
	_, _, err = Fetch(context.Background(), c, "k", 0, invoke)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestFetchNotFoundIsNotCached(t *testing.T) {
	c := New()
	calls := 0
	invoke := func(ctx context.Context) (string, bool, error) {
		calls++
		return "", false, nil
	}

	_, found, err := Fetch(context.Background(), c, "k", time.Minute, invoke)
	require.NoError(t, err)
	assert.False(t, found)

	_, found, err = Fetch(context.Background(), c, "k", time.Minute, invoke)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, 2, calls, "not-found results must not be cached")
	assert.Equal(t, 0, c.Size())
}

func TestFetchPropagatesInvokerError(t *testing.T) {
	c := New()
	boom := errors.New("backing store down")
	_, found, err := Fetch(context.Background(), c, "k", time.Minute,
		func(ctx context.Context) (int, bool, error) {
			return 0, false, boom
		})
	assert.ErrorIs(t, err, boom)
	assert.False(t, found)
	assert.Equal(t, 0, c.Size())
}
