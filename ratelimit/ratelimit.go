// Package ratelimit provides an in-memory trailing-window request limiter
// keyed by (endpoint, client identity).
//
// Admission counts requests per key within a trailing window (one minute
// by default). A request is rejected once the key has already admitted
// `limit` requests inside the window; rejected requests are never recorded,
// so a client that bursts past its limit is evaluated against the same
// admitted count on its next attempt rather than being pushed further into
// lockout. Stale entries are pruned lazily on the next check for that key;
// there is no background timer.
//
// The limiter is purely advisory and process-local: state is lost on
// restart and is not shared across processes. That makes it suitable only
// for single-instance deployments, which is a deliberate limitation.
//
// Callers that cannot resolve a client identity pass an empty string and
// the request is always allowed (fail-open): a caller we cannot identify
// cannot be meaningfully throttled, and denying it would take down anonymous
// health probes along with abusers.
package ratelimit

import (
	"sync"
	"time"

	"github.com/cockroachdb/errors"
)

// ErrInvalidLimit is returned by Allow when the supplied limit is negative.
var ErrInvalidLimit = errors.New("ratelimit: limit must not be negative")

// DefaultWindow is the trailing interval over which admissions are counted.
const DefaultWindow = time.Minute

// Limiter is an in-memory per-(endpoint, client) request limiter. The zero
// value is not usable; create one with New. All methods are safe for
// concurrent use: the check-then-admit sequence for a key runs entirely
// under one mutex, so two racing requests cannot both observe "under limit"
// and overshoot it.
type Limiter struct {
	mutex    sync.Mutex
	admitted map[string][]time.Time
	window   time.Duration
	now      func() time.Time

	allowed  int64
	rejected int64
}

// Option configures a Limiter created by New.
type Option func(*Limiter)

// WithWindow sets the trailing window length. Defaults to DefaultWindow.
func WithWindow(d time.Duration) Option {
	return func(l *Limiter) {
		if d > 0 {
			l.window = d
		}
	}
}

// WithClock sets the time source used for window computation. Defaults to
// time.Now. Intended for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		if now != nil {
			l.now = now
		}
	}
}

// New returns a Limiter with an empty admission table.
func New(opts ...Option) *Limiter {
	l := &Limiter{
		admitted: make(map[string][]time.Time),
		window:   DefaultWindow,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Allow reports whether a request to endpoint from client may proceed under
// the given per-window limit. An empty client always yields true and is
// never recorded (fail-open). A negative limit returns ErrInvalidLimit; a
// zero limit rejects every identified request. At most `limit` requests are
// ever admitted within any trailing window for a key, and a rejected
// request does not consume budget.
func (l *Limiter) Allow(endpoint, client string, limit int) (bool, error) {
	if limit < 0 {
		return false, ErrInvalidLimit
	}
	if client == "" {
		return true, nil
	}

	key := endpoint + ":" + client
	cutoff := l.now().Add(-l.window)

	l.mutex.Lock()
	defer l.mutex.Unlock()

	// Lazily drop admissions that fell out of the window.
	stamps := l.admitted[key]
	live := stamps[:0]
	for _, ts := range stamps {
		if ts.After(cutoff) {
			live = append(live, ts)
		}
	}

	if len(live) >= limit {
		if len(live) == 0 {
			delete(l.admitted, key)
		} else {
			l.admitted[key] = live
		}
		l.rejected++
		return false, nil
	}

	l.admitted[key] = append(live, l.now())
	l.allowed++
	return true, nil
}

// Reset clears the admission table and the allowed/rejected counters.
// Test and ops hook; a process restart has the same effect.
func (l *Limiter) Reset() {
	l.mutex.Lock()
	l.admitted = make(map[string][]time.Time)
	l.allowed = 0
	l.rejected = 0
	l.mutex.Unlock()
}

// Stats is a point-in-time snapshot of the limiter's counters. TrackedKeys
// counts (endpoint, client) pairs that still hold at least one admission;
// pairs whose admissions have all aged out may linger until their next check.
type Stats struct {
	Allowed     int64 `json:"allowed"`
	Rejected    int64 `json:"rejected"`
	TrackedKeys int   `json:"tracked_keys"`
}

// Stats returns a snapshot of the limiter's counters.
func (l *Limiter) Stats() Stats {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	return Stats{
		Allowed:     l.allowed,
		Rejected:    l.rejected,
		TrackedKeys: len(l.admitted),
	}
}
