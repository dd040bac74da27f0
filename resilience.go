// Package resilience provides a unified, generic execution pipeline for
// composing fault-handling strategies — retry, circuit breaker, timeout,
// bulkhead isolation, hedging, cache-aside, and fallback — around a single
// operation, so a caller can apply several of them together without each
// strategy needing to know about the others.
//
// # Quick Start
//
//	b := resilience.NewBuilder[string]().
//		AddStrategy(resilience.NewRetry[string](resilience.RetryOptions[string]{MaxAttempts: 3})).
//		AddStrategy(resilience.NewConsecutiveBreaker[string]("downstream", resilience.ConsecutiveOptions{}, resilience.BreakerConfig[string]{}))
//	pipeline := b.Build()
//
//	ec := resilience.Acquire(ctx, "fetch-widget")
//	defer ec.Release()
//	out := pipeline.Execute(func(ctx context.Context, ec *resilience.ExecutionContext) resilience.Outcome[string] {
//		return resilience.FromResult(fetchWidget(ctx))
//	}, ctx, ec)
//
// # Strategies
//
// Every strategy implements Strategy[T] and can be added to a Builder in any
// order; order matters (outermost strategies see failures from everything
// inside them, including sibling strategies). A typical ordering, outermost
// first: fallback, retry, circuit breaker, timeout, bulkhead.
//
// # Thread Safety
//
// A built Pipeline and every strategy it wraps are safe for concurrent use
// by any number of callers. ExecutionContext is not: acquire one per logical
// execution and release it on every exit path.
//
// # Implementation Note
//
// The public API here is a thin set of type aliases and constructor
// re-exports over the internal/ packages that hold the actual logic — the
// facade exists so callers depend on one import and one set of names,
// while the implementation stays organized by strategy.
package resilience

import (
	"github.com/1mb-dev/resilience/internal/breaker"
	"github.com/1mb-dev/resilience/internal/bulkhead"
	"github.com/1mb-dev/resilience/internal/cachestrategy"
	"github.com/1mb-dev/resilience/internal/core"
	"github.com/1mb-dev/resilience/internal/fallback"
	"github.com/1mb-dev/resilience/internal/hedging"
	"github.com/1mb-dev/resilience/internal/logging"
	"github.com/1mb-dev/resilience/internal/reserr"
	"github.com/1mb-dev/resilience/internal/retry"
	"github.com/1mb-dev/resilience/internal/timeoutstrategy"
)

// --- Execution substrate -----------------------------------------------

type (
	Outcome[T any]          = core.Outcome[T]
	ExecutionContext        = core.ExecutionContext
	Executor[T any]         = core.Executor[T]
	Strategy[T any]         = core.Strategy[T]
	StrategyFunc[T any]     = core.StrategyFunc[T]
	Pipeline[T any]         = core.Pipeline[T]
	Builder[T any]          = core.Builder[T]
	Predicate[T any]        = core.Predicate[T]
	PredicateBuilder[T any] = core.PredicateBuilder[T]
	PolicyResult[T any]     = core.PolicyResult[T]
	OutcomeKind             = core.OutcomeKind
	Clock                   = core.Clock
	RealClock               = core.RealClock
	UniformSource           = core.UniformSource
)

const (
	KindSuccess  = core.KindSuccess
	KindFaulted  = core.KindFaulted
	KindCanceled = core.KindCanceled

	ResultTypeVoid = core.ResultTypeVoid
)

// Acquire is non-generic and can be re-exported directly; the generic
// constructors below cannot — Go has no way to express an uninstantiated
// generic function as a package-level var, so each is a one-line forwarding
// function instead.
var Acquire = core.Acquire

// FromResult builds a successful Outcome carrying v.
func FromResult[T any](v T) Outcome[T] { return core.FromResult(v) }

// FromErr builds a failed Outcome[T]. Named distinctly from the generic
// core.FromError so it doesn't collide with the FromErrorless FromResult
// above in godoc's function listing.
func FromErr[T any](err error) Outcome[T] { return core.FromError[T](err) }

// NewBuilder creates an empty pipeline builder for result type T.
func NewBuilder[T any]() *Builder[T] { return core.NewBuilder[T]() }

// NewPredicateBuilder returns an empty predicate builder for result type T.
func NewPredicateBuilder[T any]() *PredicateBuilder[T] { return core.NewPredicateBuilder[T]() }

// ExecuteAndCapture runs userFn through p and never panics or surfaces a Go
// error from the call itself; success, fault, and cancellation are all
// captured in the returned PolicyResult.
func ExecuteAndCapture[T any](p *Pipeline[T], userFn Executor[T], ec *ExecutionContext, isCanceled func(error) bool) PolicyResult[T] {
	return core.ExecuteAndCapture(p, userFn, ec, isCanceled)
}

// --- Circuit breaker -----------------------------------------------------

type (
	CircuitState       = breaker.CircuitState
	Counts             = breaker.Counts
	StateChange        = breaker.StateChange
	ConsecutiveOptions = breaker.ConsecutiveOptions
	AdvancedOptions    = breaker.AdvancedOptions
	BreakerConfig[T any] = breaker.Config[T]
	CircuitBreaker[T any] = breaker.Breaker[T]
	ManualControl      = breaker.ManualControl
	StateProvider      = breaker.StateProvider
)

const (
	StateClosed   = breaker.StateClosed
	StateOpen     = breaker.StateOpen
	StateHalfOpen = breaker.StateHalfOpen
	StateIsolated = breaker.StateIsolated
)

func NewConsecutiveBreaker[T any](name string, opts ConsecutiveOptions, cfg BreakerConfig[T]) *CircuitBreaker[T] {
	return breaker.NewConsecutiveBreaker[T](name, opts, cfg)
}

func NewAdvancedBreaker[T any](name string, opts AdvancedOptions, cfg BreakerConfig[T]) *CircuitBreaker[T] {
	return breaker.NewAdvancedBreaker[T](name, opts, cfg)
}

var NewManualControl = breaker.NewManualControl

// --- Retry ---------------------------------------------------------------

type (
	RetryOptions[T any]  = retry.Options[T]
	BackoffKind          = retry.BackoffKind
	RetryStrategy[T any] = retry.Retry[T]
)

const (
	BackoffConstant    = retry.BackoffConstant
	BackoffLinear      = retry.BackoffLinear
	BackoffExponential = retry.BackoffExponential
)

func NewRetry[T any](opts RetryOptions[T]) *RetryStrategy[T] { return retry.New[T](opts) }

// --- Timeout ---------------------------------------------------------------

type (
	TimeoutOptions[T any]  = timeoutstrategy.Options[T]
	TimeoutMode            = timeoutstrategy.Mode
	TimeoutStrategy[T any] = timeoutstrategy.Timeout[T]
)

const (
	Optimistic  = timeoutstrategy.Optimistic
	Pessimistic = timeoutstrategy.Pessimistic
)

func NewTimeout[T any](opts TimeoutOptions[T]) *TimeoutStrategy[T] { return timeoutstrategy.New[T](opts) }

// --- Bulkhead ---------------------------------------------------------------

type (
	BulkheadOptions[T any]  = bulkhead.Options[T]
	BulkheadStrategy[T any] = bulkhead.Bulkhead[T]
)

func NewBulkhead[T any](opts BulkheadOptions[T]) *BulkheadStrategy[T] { return bulkhead.New[T](opts) }

// --- Hedging ---------------------------------------------------------------

type (
	HedgingOptions[T any]  = hedging.Options[T]
	HedgingStrategy[T any] = hedging.Hedging[T]
)

func NewHedging[T any](opts HedgingOptions[T]) *HedgingStrategy[T] { return hedging.New[T](opts) }

// --- Cache -------------------------------------------------------------

type (
	CacheOptions[T any]  = cachestrategy.Options[T]
	CacheEntry           = cachestrategy.Entry
	CacheProvider        = cachestrategy.Provider
	CacheStrategy[T any] = cachestrategy.Cache[T]
	MemoryCacheProvider  = cachestrategy.MemoryProvider
	RedisCacheProvider   = cachestrategy.RedisProvider
)

func NewCache[T any](opts CacheOptions[T]) *CacheStrategy[T] { return cachestrategy.New[T](opts) }

var (
	NewMemoryCacheProvider = cachestrategy.NewMemoryProvider
	NewRedisCacheProvider  = cachestrategy.NewRedisProvider
)

// --- Fallback ---------------------------------------------------------------

type (
	FallbackOptions[T any]  = fallback.Options[T]
	FallbackStrategy[T any] = fallback.Fallback[T]
)

func NewFallback[T any](opts FallbackOptions[T]) *FallbackStrategy[T] { return fallback.New[T](opts) }

// --- Errors -------------------------------------------------------------

var (
	ErrBrokenCircuit     = reserr.ErrBrokenCircuit
	ErrIsolatedCircuit   = reserr.ErrIsolatedCircuit
	ErrTimeoutRejected   = reserr.ErrTimeoutRejected
	ErrBulkheadRejected  = reserr.ErrBulkheadRejected
	ErrOperationCanceled = reserr.ErrOperationCanceled
)

type (
	StrategyError         = reserr.StrategyError
	ValidationError       = reserr.ValidationError
	BrokenCircuitError    = reserr.BrokenCircuitError
	TimeoutRejectedError  = reserr.TimeoutRejectedError
	BulkheadRejectedError = reserr.BulkheadRejectedError
)

// --- Logging ---------------------------------------------------------------

type Logger = logging.Logger

var NewZerologLogger = logging.NewZerolog

// NoOpLogger returns a Logger that discards everything, the default used
// throughout when a strategy's Config.Logger is left nil.
func NoOpLogger() Logger { return logging.NoOp{} }
