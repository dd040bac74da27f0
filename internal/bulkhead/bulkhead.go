// Package bulkhead implements the bulkhead isolation strategy: a bounded
// number of concurrent executions, with a bounded wait queue for requests
// arriving while the bulkhead is full, grounded on the pack's direct use of
// golang.org/x/sync for concurrency primitives.
package bulkhead

import (
	"context"

	"golang.org/x/sync/semaphore"

	"github.com/1mb-dev/resilience/internal/core"
	"github.com/1mb-dev/resilience/internal/reserr"
)

// Options configures a bulkhead for result type T.
type Options[T any] struct {
	// MaxConcurrency is how many executions may run at once. Required;
	// must be positive.
	MaxConcurrency int

	// MaxQueue is how many additional callers may wait for a slot once
	// MaxConcurrency is saturated, beyond which calls are rejected
	// immediately. Zero means no waiting: reject as soon as the bulkhead
	// is full.
	MaxQueue int

	// OnRejected is called when a call is rejected for lack of capacity. A
	// panic inside is recovered silently.
	OnRejected func(ec *core.ExecutionContext)
}

// Validate reports configuration errors.
func (o Options[T]) Validate() error {
	var msgs []string
	if o.MaxConcurrency <= 0 {
		msgs = append(msgs, "MaxConcurrency must be positive")
	}
	if o.MaxQueue < 0 {
		msgs = append(msgs, "MaxQueue must not be negative")
	}
	return reserr.NewValidationError(msgs)
}

// Bulkhead is the core.Strategy[T] implementation. It uses a weighted
// semaphore sized MaxConcurrency+MaxQueue: the first MaxConcurrency holders
// of a permit are actually executing, while the remaining permits represent
// queued waiters. A holder that acquires a permit but falls outside the
// first MaxConcurrency still has to wait on a second, execution-only
// semaphore before running.
type Bulkhead[T any] struct {
	opts   Options[T]
	queue  *semaphore.Weighted // size MaxConcurrency + MaxQueue
	active *semaphore.Weighted // size MaxConcurrency
}

// New builds a bulkhead strategy. Panics if opts fails Validate.
func New[T any](opts Options[T]) *Bulkhead[T] {
	if err := opts.Validate(); err != nil {
		panic(err)
	}
	return &Bulkhead[T]{
		opts:   opts,
		queue:  semaphore.NewWeighted(int64(opts.MaxConcurrency + opts.MaxQueue)),
		active: semaphore.NewWeighted(int64(opts.MaxConcurrency)),
	}
}

// Execute implements core.Strategy[T].
func (b *Bulkhead[T]) Execute(next core.Executor[T], ctx context.Context, ec *core.ExecutionContext) core.Outcome[T] {
	if !b.queue.TryAcquire(1) {
		b.invokeOnRejected(ec)
		return core.FromError[T](&reserr.BulkheadRejectedError{
			StrategyError:  &reserr.StrategyError{Strategy: "bulkhead", Op: ec.OperationKey, Err: reserr.ErrBulkheadRejected},
			MaxConcurrency: b.opts.MaxConcurrency,
			MaxQueue:       b.opts.MaxQueue,
		})
	}
	defer b.queue.Release(1)

	if err := b.active.Acquire(ctx, 1); err != nil {
		return core.FromError[T](err)
	}
	defer b.active.Release(1)

	return next(ctx, ec)
}

func (b *Bulkhead[T]) invokeOnRejected(ec *core.ExecutionContext) {
	if b.opts.OnRejected == nil {
		return
	}
	defer func() { recover() }()
	b.opts.OnRejected(ec)
}

var _ core.Strategy[int] = (*Bulkhead[int])(nil)
