package core

import (
	"context"
	"fmt"
)

// Pipeline is an immutable ordered composition of strategies, outermost
// first. Built once by a Builder and safe for concurrent use by any number
// of callers — it holds no per-execution mutable state of its own.
type Pipeline[T any] struct {
	// chain wraps the user callback with every strategy, outermost first,
	// so calling chain invokes strategies[0].Execute(strategies[1]-wrapped-next, ...).
	chain func(userFn Executor[T]) Executor[T]
}

// Execute runs userFn through every strategy in the pipeline and returns the
// final Outcome. ctx carries the caller's cancellation signal; ec is the
// ExecutionContext for this call (acquired and released by the caller).
func (p *Pipeline[T]) Execute(userFn Executor[T], ctx context.Context, ec *ExecutionContext) Outcome[T] {
	return p.chain(userFn)(ctx, ec)
}

// Builder accumulates strategies in outer-to-inner order and produces an
// immutable Pipeline. A Builder is single-use: calling Build more than once,
// or AddStrategy after Build, is a programmer error and panics.
type Builder[T any] struct {
	strategies []Strategy[T]
	built      bool
}

// NewBuilder creates an empty pipeline builder.
func NewBuilder[T any]() *Builder[T] {
	return &Builder[T]{}
}

// AddStrategy appends s as the next (more inward) layer of the pipeline.
// Adding the same strategy instance twice is a programmer error and panics —
// a strategy is stateful and must not appear twice in one pipeline.
func (b *Builder[T]) AddStrategy(s Strategy[T]) *Builder[T] {
	if b.built {
		panic("core: AddStrategy called after Build; Builder is single-use")
	}
	for _, existing := range b.strategies {
		if sameStrategyInstance(existing, s) {
			panic(fmt.Sprintf("core: strategy %T added twice to the same pipeline", s))
		}
	}
	b.strategies = append(b.strategies, s)
	return b
}

// sameStrategyInstance compares two Strategy values for identity. Strategy
// implementations are expected to be pointer types (or otherwise comparable
// per-instance); a panic recovery guards against implementations that are
// not comparable at all (e.g. hold a slice or map field).
func sameStrategyInstance[T any](a, b Strategy[T]) (same bool) {
	defer func() {
		if recover() != nil {
			same = false
		}
	}()
	return a == b
}

// Build finalizes the pipeline. It always returns a *Pipeline: an empty
// builder yields a Pipeline wrapping only NoOp, and a single strategy is
// wrapped the same way as several. The Builder cannot be reused afterward.
func (b *Builder[T]) Build() *Pipeline[T] {
	if b.built {
		panic("core: Build called twice on the same Builder")
	}
	b.built = true

	strategies := b.strategies
	if len(strategies) == 0 {
		strategies = []Strategy[T]{NoOp[T]()}
	}

	return &Pipeline[T]{chain: composeChain(strategies)}
}

// composeChain builds the outer-to-inner closure chain once, at Build time,
// so Execute pays no per-call composition cost.
func composeChain[T any](strategies []Strategy[T]) func(Executor[T]) Executor[T] {
	return func(userFn Executor[T]) Executor[T] {
		next := userFn
		for i := len(strategies) - 1; i >= 0; i-- {
			s := strategies[i]
			inner := next
			next = func(ctx context.Context, ec *ExecutionContext) Outcome[T] {
				return s.Execute(inner, ctx, ec)
			}
		}
		return next
	}
}
