package cachestrategy

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/1mb-dev/resilience/internal/core"
	"github.com/1mb-dev/resilience/internal/reserr"
)

// Options configures a cache-aside strategy for result type T.
type Options[T any] struct {
	Provider Provider

	// TTL is how long a cached entry stays valid. A TTL <= 0 suppresses
	// the put entirely: next always runs and nothing is ever written back.
	TTL time.Duration

	// KeyFunc derives the cache key from the ExecutionContext. Defaults to
	// ec.OperationKey. When it returns "", the cache is bypassed entirely
	// for that call: neither Provider.Get nor Provider.Set is invoked, and
	// next runs unconditionally.
	KeyFunc func(ec *core.ExecutionContext) string

	// Encode/Decode convert between T and the bytes a Provider stores.
	// Both required.
	Encode func(T) ([]byte, error)
	Decode func([]byte) (T, error)

	// ShouldCache decides whether a successful outcome is worth writing
	// back to the Provider. Defaults to "cache every success".
	ShouldCache func(T) bool

	// DeduplicateMisses uses golang.org/x/sync/singleflight to collapse
	// concurrent cache misses for the same key into a single inner
	// execution, so a cold cache under load doesn't stampede the
	// downstream dependency.
	DeduplicateMisses bool

	// OnHit fires when a cached value was found and decoded for key.
	OnHit func(ec *core.ExecutionContext, key string)
	// OnMiss fires when no cached value was found for key (not counting a
	// Provider.Get error, which fires OnGetError instead).
	OnMiss func(ec *core.ExecutionContext, key string)
	// OnPut fires after a successful Provider.Set.
	OnPut func(ec *core.ExecutionContext, key string)
	// OnGetError fires when Provider.Get itself returns an error. The
	// lookup is treated as a miss and next still runs.
	OnGetError func(ec *core.ExecutionContext, key string, err error)
	// OnPutError fires when Encode or Provider.Set fails while populating
	// the cache. The outcome from next is still returned unchanged.
	OnPutError func(ec *core.ExecutionContext, key string, err error)
}

// Validate reports configuration errors.
func (o Options[T]) Validate() error {
	var msgs []string
	if o.Provider == nil {
		msgs = append(msgs, "Provider is required")
	}
	if o.Encode == nil {
		msgs = append(msgs, "Encode is required")
	}
	if o.Decode == nil {
		msgs = append(msgs, "Decode is required")
	}
	if o.TTL < 0 {
		msgs = append(msgs, "TTL must not be negative")
	}
	return reserr.NewValidationError(msgs)
}

func (o Options[T]) withDefaults() Options[T] {
	if o.KeyFunc == nil {
		o.KeyFunc = func(ec *core.ExecutionContext) string { return ec.OperationKey }
	}
	if o.ShouldCache == nil {
		o.ShouldCache = func(T) bool { return true }
	}
	return o
}

// Cache is the core.Strategy[T] implementation.
type Cache[T any] struct {
	opts  Options[T]
	group singleflight.Group
}

// New builds a cache strategy. Panics if opts fails Validate.
func New[T any](opts Options[T]) *Cache[T] {
	if err := opts.Validate(); err != nil {
		panic(err)
	}
	return &Cache[T]{opts: opts.withDefaults()}
}

// Execute implements core.Strategy[T].
func (c *Cache[T]) Execute(next core.Executor[T], ctx context.Context, ec *core.ExecutionContext) core.Outcome[T] {
	key := c.opts.KeyFunc(ec)
	if key == "" {
		return next(ctx, ec)
	}

	entry, ok, err := c.opts.Provider.Get(ctx, key)
	switch {
	case err != nil:
		c.invokeOnGetError(ec, key, err)
	case ok:
		if v, decodeErr := c.opts.Decode(entry.Value); decodeErr == nil {
			c.invokeOnHit(ec, key)
			return core.FromResult(v)
		}
	default:
		c.invokeOnMiss(ec, key)
	}

	if !c.opts.DeduplicateMisses {
		return c.populate(next, ctx, ec, key)
	}

	v, sfErr, _ := c.group.Do(key, func() (any, error) {
		out := c.populate(next, ctx, ec, key)
		if out.IsException() {
			return nil, out.Err()
		}
		return out.Result(), nil
	})
	if sfErr != nil {
		return core.FromError[T](sfErr)
	}
	return core.FromResult(v.(T))
}

func (c *Cache[T]) populate(next core.Executor[T], ctx context.Context, ec *core.ExecutionContext, key string) core.Outcome[T] {
	out := next(ctx, ec)
	if out.IsException() || !c.opts.ShouldCache(out.Result()) || c.opts.TTL <= 0 {
		return out
	}

	encoded, err := c.opts.Encode(out.Result())
	if err != nil {
		c.invokeOnPutError(ec, key, err)
		return out
	}
	if err := c.opts.Provider.Set(ctx, key, Entry{Value: encoded, StoredAt: time.Now()}, c.opts.TTL); err != nil {
		c.invokeOnPutError(ec, key, err)
		return out
	}
	c.invokeOnPut(ec, key)
	return out
}

// Each hook invoker recovers a panic silently: a bad callback should not
// take down the call it was only meant to observe.

func (c *Cache[T]) invokeOnHit(ec *core.ExecutionContext, key string) {
	if c.opts.OnHit == nil {
		return
	}
	defer func() { recover() }()
	c.opts.OnHit(ec, key)
}

func (c *Cache[T]) invokeOnMiss(ec *core.ExecutionContext, key string) {
	if c.opts.OnMiss == nil {
		return
	}
	defer func() { recover() }()
	c.opts.OnMiss(ec, key)
}

func (c *Cache[T]) invokeOnPut(ec *core.ExecutionContext, key string) {
	if c.opts.OnPut == nil {
		return
	}
	defer func() { recover() }()
	c.opts.OnPut(ec, key)
}

func (c *Cache[T]) invokeOnGetError(ec *core.ExecutionContext, key string, err error) {
	if c.opts.OnGetError == nil {
		return
	}
	defer func() { recover() }()
	c.opts.OnGetError(ec, key, err)
}

func (c *Cache[T]) invokeOnPutError(ec *core.ExecutionContext, key string, err error) {
	if c.opts.OnPutError == nil {
		return
	}
	defer func() { recover() }()
	c.opts.OnPutError(ec, key, err)
}

var _ core.Strategy[int] = (*Cache[int])(nil)
