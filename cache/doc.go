// Package cache provides an in-process TTL cache with prefix invalidation,
// operation counters, and type-safe generic helpers.
//
// # Cache Interface
//
// The [Cache] interface defines the read/write operations ([Cache.Get],
// [Cache.Set]), the invalidation operations ([Cache.Invalidate],
// [Cache.InvalidateAll]), and the observability hooks ([Cache.Stats],
// [Cache.ResetStats]). The single implementation, created by [New], is an
// in-process map guarded by a mutex. Values are stored as-is (no copying),
// so mutations to stored pointers are visible through the cache; callers
// should treat stored values as immutable and replace them with a new Set.
//
// Expiry is entirely lazy: an entry past its deadline is evicted by the next
// Get that touches it and counted as a miss. There is no background sweeper
// goroutine; memory for abandoned keys is reclaimed only by invalidation.
//
// # Keys and Invalidation
//
// Keys are caller-composed strings. The cache attaches no meaning to them
// beyond prefix matching: [Cache.Invalidate] removes every entry whose key
// starts with the given prefix, which lets a writer bulk-evict all cached
// views scoped to an owner (e.g. every paginated listing for one user) with
// a single call. [Key], [Prefix], and [InvalidateWrite] implement the key
// convention used by the expense store; see keys.go.
//
// # Generic Helpers
//
// [Value] wraps [Cache.Get] with type safety:
//
//	v, found, err := cache.Value[[]Expense](c, "expenses:42:p1")
//
// For values stored in their native Go type it performs a direct type
// assertion. When the stored value is a []byte (e.g. pre-serialized rows),
// it deserializes via msgpack.
//
// [Fetch] is a cache-aside (read-through) helper that combines lookup and
// population in one call:
//
//	v, found, err := cache.Fetch(ctx, c, "expenses:42:p1", 30*time.Second,
//	    func(ctx context.Context) ([]Expense, bool, error) {
//	        rows, err := store.ListExpenses(ctx, 42)
//	        if errors.Is(err, store.ErrNotFound) {
//	            return nil, false, nil // not found, won't be cached
//	        }
//	        return rows, true, err
//	    },
//	)
//
// The [Invoker] found bool distinguishes "not found" from "found a zero
// value", preventing the cache from storing absent records. If the invoker
// succeeds but the subsequent Set fails, the value is still returned: the
// primary operation succeeded and failing to cache it is a degradation, not
// a failure.
//
// # Concurrency
//
// All operations are safe for concurrent use. Each operation holds the
// cache mutex for its full read-modify-write span; nothing inside a
// critical section blocks on I/O, so hold times are short and a single
// coarse lock is sufficient.
//
// # Consistency
//
// The cache is deliberately single-process: no cross-process sharing, no
// persistence across restarts. A read racing a concurrent write may observe
// a stale value until the writer's invalidation lands; staleness is bounded
// by the entry TTL as a fallback.
package cache
