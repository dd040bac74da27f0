// Package cachestrategy implements the cache-aside strategy: check a
// Provider before running the inner operation, populate it afterward on a
// cacheable success. Ships a MemoryProvider and a go-redis-backed
// RedisProvider, grounded on the pack's direct go-redis/v8 dependency, plus
// optional singleflight-backed miss de-duplication grounded on the pack's
// JWKS fetch path.
package cachestrategy

import (
	"context"
	"time"
)

// Entry is what a Provider stores: the raw bytes of an encoded result plus
// when it was written, so callers can implement staleness policies on top.
type Entry struct {
	Value     []byte
	StoredAt  time.Time
}

// Provider is the storage backend a cache strategy reads from and writes to.
// Implementations must be safe for concurrent use. Set must treat a
// non-positive ttl as a no-op: nothing is stored, and a prior entry under
// key is left untouched.
type Provider interface {
	Get(ctx context.Context, key string) (Entry, bool, error)
	Set(ctx context.Context, key string, entry Entry, ttl time.Duration) error
}
