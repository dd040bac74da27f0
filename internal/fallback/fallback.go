// Package fallback implements the fallback strategy: substitute an
// alternate outcome when the inner operation produces a handled fault.
package fallback

import (
	"context"

	"github.com/1mb-dev/resilience/internal/core"
	"github.com/1mb-dev/resilience/internal/reserr"
)

// Options configures a fallback strategy for result type T.
type Options[T any] struct {
	// ShouldHandle decides whether an Outcome should be replaced. Defaults
	// to "exceptions only".
	ShouldHandle core.Predicate[T]

	// Substitute produces the replacement outcome given the one being
	// replaced. Required.
	Substitute func(ctx context.Context, ec *core.ExecutionContext, faulted core.Outcome[T]) core.Outcome[T]

	// OnFallback is called immediately before Substitute runs, for
	// logging/metrics. A panic inside is recovered silently.
	OnFallback func(ec *core.ExecutionContext, faulted core.Outcome[T])
}

// Validate reports configuration errors.
func (o Options[T]) Validate() error {
	var msgs []string
	if o.Substitute == nil {
		msgs = append(msgs, "Substitute is required")
	}
	return reserr.NewValidationError(msgs)
}

func (o Options[T]) withDefaults() Options[T] {
	if o.ShouldHandle == nil {
		o.ShouldHandle = core.NewPredicateBuilder[T]().Build()
	}
	return o
}

// Fallback is the core.Strategy[T] implementation.
type Fallback[T any] struct {
	opts Options[T]
}

// New builds a fallback strategy. Panics if opts fails Validate.
func New[T any](opts Options[T]) *Fallback[T] {
	if err := opts.Validate(); err != nil {
		panic(err)
	}
	return &Fallback[T]{opts: opts.withDefaults()}
}

// Execute implements core.Strategy[T].
func (f *Fallback[T]) Execute(next core.Executor[T], ctx context.Context, ec *core.ExecutionContext) core.Outcome[T] {
	out := next(ctx, ec)
	if !f.opts.ShouldHandle(out) {
		return out
	}

	f.invokeOnFallback(ec, out)
	return f.opts.Substitute(ctx, ec, out)
}

func (f *Fallback[T]) invokeOnFallback(ec *core.ExecutionContext, out core.Outcome[T]) {
	if f.opts.OnFallback == nil {
		return
	}
	defer func() { recover() }()
	f.opts.OnFallback(ec, out)
}

var _ core.Strategy[int] = (*Fallback[int])(nil)
