// Package timeoutstrategy implements the timeout strategy in its two modes:
// optimistic (relies on the inner operation observing ctx cancellation) and
// pessimistic (runs the inner operation on a goroutine and abandons it,
// discarding any late result, if it overruns the deadline).
package timeoutstrategy

import (
	"context"
	"time"

	"github.com/1mb-dev/resilience/internal/core"
	"github.com/1mb-dev/resilience/internal/reserr"
)

// Mode selects how the timeout is enforced.
type Mode int

const (
	// Optimistic derives a context.WithTimeout and trusts next to return
	// promptly once that context is done. Cheapest: no extra goroutine.
	Optimistic Mode = iota
	// Pessimistic runs next on its own goroutine and returns as soon as the
	// deadline elapses even if next hasn't returned yet. Guarantees the
	// caller is never blocked past the deadline, at the cost of a leaked
	// goroutine if next never respects cancellation.
	Pessimistic
)

// Options configures a timeout strategy for result type T.
type Options[T any] struct {
	// Timeout is the deadline applied to each execution. Required; zero or
	// negative is a validation error.
	Timeout time.Duration

	Mode Mode

	// OnTimeout is called when the deadline elapses, before the timeout
	// error is returned. A panic inside is recovered silently.
	OnTimeout func(ec *core.ExecutionContext, timeout time.Duration)
}

// Validate reports configuration errors.
func (o Options[T]) Validate() error {
	var msgs []string
	if o.Timeout <= 0 {
		msgs = append(msgs, "Timeout must be positive")
	}
	return reserr.NewValidationError(msgs)
}

// Timeout is the core.Strategy[T] implementation.
type Timeout[T any] struct {
	opts Options[T]
}

// New builds a timeout strategy. Panics if opts fails Validate — a timeout
// with no deadline is a programmer error, not a runtime condition.
func New[T any](opts Options[T]) *Timeout[T] {
	if err := opts.Validate(); err != nil {
		panic(err)
	}
	return &Timeout[T]{opts: opts}
}

// Execute implements core.Strategy[T].
func (s *Timeout[T]) Execute(next core.Executor[T], ctx context.Context, ec *core.ExecutionContext) core.Outcome[T] {
	deadlineCtx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	if s.opts.Mode == Optimistic {
		return s.optimistic(next, deadlineCtx, ec)
	}
	return s.pessimistic(next, deadlineCtx, ec)
}

func (s *Timeout[T]) optimistic(next core.Executor[T], ctx context.Context, ec *core.ExecutionContext) core.Outcome[T] {
	out := next(ctx, ec)
	if out.IsException() && ctx.Err() != nil {
		s.invokeOnTimeout(ec)
		return core.FromError[T](s.timeoutErr(ec))
	}
	return out
}

func (s *Timeout[T]) pessimistic(next core.Executor[T], ctx context.Context, ec *core.ExecutionContext) core.Outcome[T] {
	childEC := ec.Clone(ctx)

	// The goroutine owns childEC and releases it once next returns, since an
	// abandoned call may still be using it after Execute has returned.
	resultCh := make(chan core.Outcome[T], 1)
	go func() {
		defer childEC.Release()
		resultCh <- next(ctx, childEC)
	}()

	select {
	case out := <-resultCh:
		return out
	case <-ctx.Done():
		s.invokeOnTimeout(ec)
		return core.FromError[T](s.timeoutErr(ec))
	}
}

func (s *Timeout[T]) invokeOnTimeout(ec *core.ExecutionContext) {
	if s.opts.OnTimeout == nil {
		return
	}
	defer func() { recover() }()
	s.opts.OnTimeout(ec, s.opts.Timeout)
}

func (s *Timeout[T]) timeoutErr(ec *core.ExecutionContext) error {
	return &reserr.TimeoutRejectedError{
		StrategyError: &reserr.StrategyError{Strategy: "timeout", Op: ec.OperationKey, Err: reserr.ErrTimeoutRejected},
		Timeout:       s.opts.Timeout,
	}
}

var _ core.Strategy[int] = (*Timeout[int])(nil)
