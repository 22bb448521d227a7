package cache

import (
	"time"

	"github.com/cockroachdb/errors"
)

// ErrInvalidTTL is returned by Set when the supplied TTL is negative.
// A zero TTL is not an error; it selects the cache's default TTL.
var ErrInvalidTTL = errors.New("cache: ttl must not be negative")

// DefaultTTL is the expiry applied when Set is called with a zero TTL and
// no default was configured via WithDefaultTTL.
const DefaultTTL = time.Minute

type Cache interface {
	// Get looks up key. It returns the stored value and true on a hit.
	// An entry whose deadline has passed is evicted on the spot and
	// reported as a miss. Get never refreshes an entry's TTL.
	Get(key string) (any, bool)

	// Set stores val under key with the given TTL, unconditionally
	// replacing any existing entry (including its deadline). A zero ttl
	// selects the configured default; a negative ttl is a programmer
	// error and returns ErrInvalidTTL.
	Set(key string, val any, ttl time.Duration) error

	// Invalidate removes every entry whose key starts with prefix and
	// returns the number of entries removed.
	Invalidate(prefix string) int

	// InvalidateAll removes every entry and returns how many there were.
	InvalidateAll() int

	// Size returns the number of entries currently stored, including
	// entries that have expired but have not yet been evicted by a Get.
	Size() int

	// Stats returns a snapshot of the operation counters.
	Stats() Stats

	// ResetStats zeroes the operation counters. Stored entries are kept.
	ResetStats()
}

// config holds the resolved configuration for a cache.
type config struct {
	defaultTTL time.Duration
	now        func() time.Time
}

// Option configures a Cache created by New.
type Option func(*config)

func defaultConfig() config {
	return config{
		defaultTTL: DefaultTTL,
		now:        time.Now,
	}
}

func applyOptions(opts []Option) config {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// WithDefaultTTL sets the TTL used when Set is called with a zero ttl.
// Defaults to DefaultTTL (1 minute).
func WithDefaultTTL(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.defaultTTL = d
		}
	}
}

// WithClock sets the time source used for expiry decisions. Defaults to
// time.Now. Intended for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(c *config) {
		if now != nil {
			c.now = now
		}
	}
}
