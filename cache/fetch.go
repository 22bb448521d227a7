package cache

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/vmihailenco/msgpack/v5"
)

// Value retrieves a typed value from the cache. Values stored in their
// native Go type are returned via direct type assertion. A stored []byte
// is deserialized with msgpack, so pre-serialized payloads (e.g. rows
// cached straight off the wire) work transparently.
func Value[T any](c Cache, key string) (T, bool, error) {
	val, found := c.Get(key)
	if !found {
		var zero T
		return zero, false, nil
	}
	if typed, ok := val.(T); ok {
		return typed, true, nil
	}
	if data, ok := val.([]byte); ok {
		var result T
		if err := msgpack.Unmarshal(data, &result); err != nil {
			var zero T
			return zero, false, errors.Wrap(err, "cache: failed to unmarshal value")
		}
		return result, true, nil
	}
	var zero T
	return zero, false, errors.Newf("cache: cannot convert value of type %T to %T", val, zero)
}

// Invoker produces a value of type T on a cache miss. The bool return
// indicates whether a value was found; return false to signal "not found"
// without caching a zero value (e.g. sql.ErrNoRows scenarios).
type Invoker[T any] func(ctx context.Context) (T, bool, error)

// Fetch is a cache-aside helper. It checks the cache for key first and
// returns the cached value on a hit. On a miss it calls invoke; if invoke
// reports found, the value is stored with the given TTL (zero selects the
// cache default) and returned. If invoke reports not-found, nothing is
// cached. A Set failure after a successful invoke is swallowed; the
// caller still gets the value.
func Fetch[T any](ctx context.Context, c Cache, key string, ttl time.Duration, invoke Invoker[T]) (T, bool, error) {
	cached, found, err := Value[T](c, key)
	if err != nil {
		var zero T
		return zero, false, err
	}
	if found {
		return cached, true, nil
	}

	result, ok, err := invoke(ctx)
	if err != nil {
		var zero T
		return zero, false, err
	}
	if !ok {
		var zero T
		return zero, false, nil
	}

	_ = c.Set(key, result, ttl)

	return result, true, nil
}
