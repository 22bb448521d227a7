package ratelimit

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

type fakeClock struct {
	mutex sync.Mutex
	now   time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mutex.Lock()
	f.now = f.now.Add(d)
	f.mutex.Unlock()
}

func TestLimitBoundary(t *testing.T) {
	clock := newFakeClock()
	l := New(WithClock(clock.Now))

	for i := 0; i < 5; i++ {
		allowed, err := l.Allow("/expenses", "10.0.0.1", 5)
		require.NoError(t, err)
		assert.True(t, allowed, "request %d should be admitted", i+1)
		clock.Advance(time.Second)
	}

	allowed, err := l.Allow("/expenses", "10.0.0.1", 5)
	require.NoError(t, err)
	assert.False(t, allowed, "6th request in the window must be rejected")
}

func TestRejectionDoesNotConsumeBudget(t *testing.T) {
	clock := newFakeClock()
	l := New(WithClock(clock.Now))

	for i := 0; i < 5; i++ {
		allowed, err := l.Allow("/expenses", "10.0.0.1", 5)
		require.NoError(t, err)
		require.True(t, allowed)
	}

	// Burst far past the limit; none of these may be recorded.
	for i := 0; i < 20; i++ {
		allowed, err := l.Allow("/expenses", "10.0.0.1", 5)
		require.NoError(t, err)
		require.False(t, allowed)
	}

	// Once the original 5 admissions age out, the client is evaluated
	// against an admitted count of 0, not 25. No lockout inflation.
	clock.Advance(61 * time.Second)
	allowed, err := l.Allow("/expenses", "10.0.0.1", 5)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestWindowRollover(t *testing.T) {
	clock := newFakeClock()
	l := New(WithClock(clock.Now))

	for i := 0; i < 3; i++ {
		allowed, err := l.Allow("/export", "10.0.0.1", 3)
		require.NoError(t, err)
		require.True(t, allowed)
	}
	allowed, err := l.Allow("/export", "10.0.0.1", 3)
	require.NoError(t, err)
	require.False(t, allowed)

	clock.Advance(DefaultWindow + time.Second)

	// Fully elapsed window starts from a count of 0 again.
	for i := 0; i < 3; i++ {
		allowed, err := l.Allow("/export", "10.0.0.1", 3)
		require.NoError(t, err)
		assert.True(t, allowed)
	}
}

func TestSlidingWindowPartialExpiry(t *testing.T) {
	clock := newFakeClock()
	l := New(WithClock(clock.Now))

	// Two admissions at t=0, one at t=30s.
	for i := 0; i < 2; i++ {
		allowed, err := l.Allow("/e", "c", 3)
		require.NoError(t, err)
		require.True(t, allowed)
	}
	clock.Advance(30 * time.Second)
	allowed, err := l.Allow("/e", "c", 3)
	require.NoError(t, err)
	require.True(t, allowed)

	// t=31s: all three still inside the window.
	clock.Advance(time.Second)
	allowed, err = l.Allow("/e", "c", 3)
	require.NoError(t, err)
	assert.False(t, allowed)

	// t=61s: the first two aged out, one admission remains.
	clock.Advance(30 * time.Second)
	allowed, err = l.Allow("/e", "c", 3)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestEndpointsAreIndependent(t *testing.T) {
	l := New()
	allowed, err := l.Allow("/a", "c", 1)
	require.NoError(t, err)
	require.True(t, allowed)

	allowed, err = l.Allow("/a", "c", 1)
	require.NoError(t, err)
	assert.False(t, allowed)

	// Same client, different endpoint: fresh budget.
	allowed, err = l.Allow("/b", "c", 1)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestClientsAreIndependent(t *testing.T) {
	l := New()
	allowed, err := l.Allow("/a", "c1", 1)
	require.NoError(t, err)
	require.True(t, allowed)

	allowed, err = l.Allow("/a", "c2", 1)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestFailOpenOnUnknownClient(t *testing.T) {
	l := New()
	for i := 0; i < 50; i++ {
		allowed, err := l.Allow("/a", "", 1)
		require.NoError(t, err)
		assert.True(t, allowed)
	}
	assert.Equal(t, 0, l.Stats().TrackedKeys, "anonymous requests are never recorded")
}

func TestNegativeLimitRejected(t *testing.T) {
	l := New()
	_, err := l.Allow("/a", "c", -1)
	assert.ErrorIs(t, err, ErrInvalidLimit)
}

func TestZeroLimitRejectsIdentifiedClients(t *testing.T) {
	l := New()
	allowed, err := l.Allow("/a", "c", 0)
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestReset(t *testing.T) {
	l := New()
	allowed, err := l.Allow("/a", "c", 1)
	require.NoError(t, err)
	require.True(t, allowed)
	allowed, err = l.Allow("/a", "c", 1)
	require.NoError(t, err)
	require.False(t, allowed)

	l.Reset()

	allowed, err = l.Allow("/a", "c", 1)
	require.NoError(t, err)
	assert.True(t, allowed)
	s := l.Stats()
	assert.Equal(t, int64(1), s.Allowed)
	assert.Equal(t, int64(0), s.Rejected)
}

func TestStats(t *testing.T) {
	l := New()
	for i := 0; i < 3; i++ {
		_, err := l.Allow("/a", "c", 2)
		require.NoError(t, err)
	}
	s := l.Stats()
	assert.Equal(t, int64(2), s.Allowed)
	assert.Equal(t, int64(1), s.Rejected)
	assert.Equal(t, 1, s.TrackedKeys)
}

func TestConcurrentAdmissionBound(t *testing.T) {
	const (
		callers = 64
		limit   = 10
	)
	l := New()

	var admitted atomic.Int64
	var g errgroup.Group
	for i := 0; i < callers; i++ {
		g.Go(func() error {
			allowed, err := l.Allow("/expenses", "10.0.0.1", limit)
			if err != nil {
				return err
			}
			if allowed {
				admitted.Add(1)
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, int64(limit), admitted.Load(),
		"exactly min(N, limit) concurrent callers must be admitted")
	s := l.Stats()
	assert.Equal(t, int64(limit), s.Allowed)
	assert.Equal(t, int64(callers-limit), s.Rejected)
}
