// Package store persists expense-tracker entities in SQLite and fronts all
// reads with an in-process TTL cache. Listings and summaries are fetched
// read-through: a miss loads from the database and populates the cache,
// and every committed write eagerly invalidates the cache prefixes whose
// contents could now be stale. Eviction is deliberately coarse: a write
// always invalidates the full prefix set for its entity type, regardless
// of which fields changed.
package store

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/Issafulldev/notbroke/cache"
)

var schema = []string{
	`PRAGMA foreign_keys = ON`,
	`CREATE TABLE IF NOT EXISTS categories (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		description TEXT NOT NULL DEFAULT '',
		parent_id INTEGER REFERENCES categories(id) ON DELETE SET NULL
	)`,
	`CREATE TABLE IF NOT EXISTS expenses (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		category_id INTEGER NOT NULL REFERENCES categories(id) ON DELETE CASCADE,
		amount REAL NOT NULL,
		currency TEXT NOT NULL DEFAULT 'EUR',
		note TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_expenses_category_created ON expenses(category_id, created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_expenses_created ON expenses(created_at)`,
}

// ownerAll is the owner scope used for cache keys. The store is
// single-tenant, so invalidation passes an empty owner to WritePrefixes,
// which widens each prefix to the whole namespace.
const ownerAll = "all"

// Store is the SQLite-backed source of truth for categories and expenses,
// with cached read paths.
type Store struct {
	db    *sql.DB
	cache cache.Cache
	ttl   time.Duration
	now   func() time.Time
	log   *zap.Logger
}

// Option configures a Store created by Open.
type Option func(*Store)

// WithCache sets the cache fronting read paths. Defaults to a fresh
// in-memory cache.
func WithCache(c cache.Cache) Option {
	return func(s *Store) {
		if c != nil {
			s.cache = c
		}
	}
}

// WithCacheTTL sets the TTL applied to cached listings and summaries.
// Zero means the cache's own default.
func WithCacheTTL(d time.Duration) Option {
	return func(s *Store) {
		if d >= 0 {
			s.ttl = d
		}
	}
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(log *zap.Logger) Option {
	return func(s *Store) {
		if log != nil {
			s.log = log
		}
	}
}

// WithClock sets the time source used for defaulting expense dates and
// resolving summary periods. Intended for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// Open opens (creating if needed) the SQLite database at path and prepares
// the schema. Use ":memory:" for an ephemeral database.
func Open(ctx context.Context, path string, opts ...Option) (*Store, error) {
	if path == "" {
		path = ":memory:"
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "store: open database")
	}

	// SQLite allows a single writer; a one-connection pool also keeps
	// ":memory:" databases from fragmenting across pool connections.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "store: enable WAL")
	}
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, errors.Wrap(err, "store: prepare schema")
		}
	}

	s := &Store{
		db:  db,
		now: time.Now,
		log: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.cache == nil {
		s.cache = cache.New()
	}

	s.log.Info("store opened", zap.String("path", path))
	return s, nil
}

// Cache exposes the cache fronting this store, for stats endpoints.
func (s *Store) Cache() cache.Cache {
	return s.cache
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// invalidate evicts every cached view affected by a write of the given
// entity namespace.
func (s *Store) invalidate(namespace string) {
	removed := cache.InvalidateWrite(s.cache, namespace, "")
	if removed > 0 {
		s.log.Debug("cache invalidated",
			zap.String("namespace", namespace),
			zap.Int("entries", removed))
	}
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func isForeignKeyViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}
