package breaker

import (
	"context"
	"errors"

	"github.com/1mb-dev/resilience/internal/core"
	"github.com/1mb-dev/resilience/internal/logging"
	"github.com/1mb-dev/resilience/internal/reserr"
)

// Config carries the cross-cutting settings both breaker flavors share: what
// counts as a handled fault, who hears about state transitions, and the
// injectable clock/logger used by tests and production wiring respectively.
type Config[T any] struct {
	// ShouldHandle decides whether an Outcome counts as a failure for
	// tripping purposes. Defaults to "exceptions only" when nil.
	ShouldHandle core.Predicate[T]

	// OnStateChange is invoked, in transition order, every time the
	// breaker's state changes. May be nil.
	OnStateChange func(StateChange)

	// Manual, if non-nil, attaches this breaker to a shared ManualControl
	// so Isolate/Close can be issued from outside the pipeline.
	Manual *ManualControl

	Clock  core.Clock
	Logger logging.Logger
}

// Breaker is the generic core.Strategy[T] wrapper around the non-generic
// atomic controller. The same wrapper type serves both flavors; they differ
// only in which tripDecider the controller was built with.
type Breaker[T any] struct {
	ctrl         *controller
	shouldHandle core.Predicate[T]
}

// NewConsecutiveBreaker builds a breaker that trips after a run of
// consecutive handled failures.
func NewConsecutiveBreaker[T any](name string, opts ConsecutiveOptions, cfg Config[T]) *Breaker[T] {
	return newBreaker(name, newConsecutiveTripDecider(opts), cfg)
}

// NewAdvancedBreaker builds a breaker that trips on a failure ratio over a
// rolling window, once a minimum throughput has been observed.
func NewAdvancedBreaker[T any](name string, opts AdvancedOptions, cfg Config[T]) *Breaker[T] {
	return newBreaker(name, newAdvancedTripDecider(opts), cfg)
}

func newBreaker[T any](name string, decider tripDecider, cfg Config[T]) *Breaker[T] {
	shouldHandle := cfg.ShouldHandle
	if shouldHandle == nil {
		shouldHandle = core.NewPredicateBuilder[T]().Build()
	}
	ctrl := newController(name, decider, cfg.Clock, cfg.Logger, cfg.OnStateChange)
	if cfg.Manual != nil {
		cfg.Manual.attach(ctrl)
	}
	return &Breaker[T]{ctrl: ctrl, shouldHandle: shouldHandle}
}

// Execute implements core.Strategy[T]. It short-circuits when the breaker is
// not admitting calls — with a *reserr.BrokenCircuitError carrying the last
// handled outcome when the rejection is ErrBrokenCircuit, or a plain
// *reserr.StrategyError for ErrIsolatedCircuit/ErrControlDisposed — otherwise
// runs next exactly once and records the outcome.
func (b *Breaker[T]) Execute(next core.Executor[T], ctx context.Context, ec *core.ExecutionContext) core.Outcome[T] {
	if err := b.ctrl.allow(); err != nil {
		base := &reserr.StrategyError{Strategy: "circuit-breaker", Op: ec.OperationKey, Err: err}
		if errors.Is(err, reserr.ErrBrokenCircuit) {
			return core.FromError[T](&reserr.BrokenCircuitError{
				StrategyError:         base,
				LastHandledOutcomeErr: b.ctrl.lastHandledOutcomeErr(),
				OpenedAt:              b.ctrl.openedAtTime(),
			})
		}
		return core.FromError[T](base)
	}

	out := next(ctx, ec)
	if b.shouldHandle(out) {
		b.ctrl.recordFailure(out.Err())
	} else {
		b.ctrl.recordSuccess()
	}
	return out
}

// State returns the breaker's current disposition.
func (b *Breaker[T]) State() CircuitState { return b.ctrl.State() }

// Counts returns a snapshot of the breaker's current request tally.
func (b *Breaker[T]) Counts() Counts { return b.ctrl.Counts() }

// LastHandledOutcome returns the error from the most recent handled (failed)
// outcome this breaker observed, or nil if none has been recorded yet.
func (b *Breaker[T]) LastHandledOutcome() error { return b.ctrl.lastHandledOutcomeErr() }

// StateProvider is the read-only view of a breaker's disposition, useful for
// health checks and telemetry that shouldn't hold a reference to the full
// strategy type.
type StateProvider interface {
	State() CircuitState
	Counts() Counts
	LastHandledOutcome() error
}

var (
	_ StateProvider  = (*Breaker[int])(nil)
	_ core.Strategy[int] = (*Breaker[int])(nil)
)
