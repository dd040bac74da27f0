package core

import "context"

// Executor is a continuation: either the user's callback or the next
// strategy in the pipeline. Strategies invoke it zero, one, or many times.
type Executor[T any] func(ctx context.Context, ec *ExecutionContext) Outcome[T]

// Strategy is the single operation every resilience strategy implements. A
// Strategy must either:
//   - return without invoking next (short-circuit), or
//   - invoke next exactly once and return its outcome or a transform of it, or
//   - invoke next multiple times (retry, hedging) and return the chosen outcome.
type Strategy[T any] interface {
	Execute(next Executor[T], ctx context.Context, ec *ExecutionContext) Outcome[T]
}

// StrategyFunc adapts a plain function to the Strategy interface.
type StrategyFunc[T any] func(next Executor[T], ctx context.Context, ec *ExecutionContext) Outcome[T]

// Execute implements Strategy.
func (f StrategyFunc[T]) Execute(next Executor[T], ctx context.Context, ec *ExecutionContext) Outcome[T] {
	return f(next, ctx, ec)
}

// noop is the identity strategy: it invokes next exactly once and returns
// its outcome unchanged. Returned by Builder.Build for an empty pipeline.
type noop[T any] struct{}

// NoOp returns the identity strategy for result type T.
func NoOp[T any]() Strategy[T] { return noop[T]{} }

func (noop[T]) Execute(next Executor[T], ctx context.Context, ec *ExecutionContext) Outcome[T] {
	return next(ctx, ec)
}
