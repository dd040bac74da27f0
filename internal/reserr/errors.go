// Package reserr defines the error taxonomy shared by every resilience
// strategy: sentinel errors for errors.Is checks, and a structured
// StrategyError wrapper that names which strategy and operation produced a
// given error.
package reserr

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors returned by strategies. Use errors.Is against these rather
// than comparing StrategyError values directly — a strategy error is always
// wrapped.
var (
	// ErrBrokenCircuit is returned when a circuit breaker short-circuits a
	// call because its state is Open.
	ErrBrokenCircuit = errors.New("resilience: circuit is open")

	// ErrIsolatedCircuit is returned when a circuit breaker short-circuits a
	// call because it was manually isolated via ManualControl.
	ErrIsolatedCircuit = errors.New("resilience: circuit is isolated")

	// ErrTimeoutRejected is returned when a timeout strategy's deadline
	// elapses before the inner operation completes.
	ErrTimeoutRejected = errors.New("resilience: operation timed out")

	// ErrBulkheadRejected is returned when a bulkhead has no free slot and
	// its queue is also full.
	ErrBulkheadRejected = errors.New("resilience: bulkhead rejected execution")

	// ErrOperationCanceled is returned when an operation's context was
	// canceled, distinct from a timeout strategy's own deadline firing.
	ErrOperationCanceled = errors.New("resilience: operation canceled")

	// ErrControlDisposed is returned when a strategy execution is rejected
	// because its ManualControl has been disposed.
	ErrControlDisposed = errors.New("resilience: manual control disposed")
)

// StrategyError wraps an inner error with the name of the strategy and the
// operation key that produced it, so logs and errors.As callers can recover
// that context without parsing a message string.
type StrategyError struct {
	// Strategy names the kind of strategy that produced this error, e.g.
	// "circuit-breaker", "retry", "timeout", "bulkhead", "hedging".
	Strategy string
	// Op is the ExecutionContext.OperationKey in effect when the error
	// occurred, or empty if none was set.
	Op string
	// Err is the wrapped sentinel or underlying error.
	Err error
}

func (e *StrategyError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("resilience: %s: %v", e.Strategy, e.Err)
	}
	return fmt.Sprintf("resilience: %s: op %q: %v", e.Strategy, e.Op, e.Err)
}

func (e *StrategyError) Unwrap() error { return e.Err }

// BrokenCircuitError is the typed rejection payload attached when a circuit
// breaker trips: it carries the last outcome the breaker observed before
// opening, for callers that want more than the sentinel error.
type BrokenCircuitError struct {
	*StrategyError
	LastHandledOutcomeErr error
	OpenedAt              time.Time
}

// Unwrap exposes the embedded *StrategyError to errors.Is/errors.As.
func (e *BrokenCircuitError) Unwrap() error { return e.StrategyError }

// TimeoutRejectedError carries how long the timed-out operation was allowed
// to run.
type TimeoutRejectedError struct {
	*StrategyError
	Timeout time.Duration
}

// Unwrap exposes the embedded *StrategyError to errors.Is/errors.As.
func (e *TimeoutRejectedError) Unwrap() error { return e.StrategyError }

// BulkheadRejectedError carries the bulkhead's configured limits at the time
// of rejection.
type BulkheadRejectedError struct {
	*StrategyError
	MaxConcurrency int
	MaxQueue       int
}

// Unwrap exposes the embedded *StrategyError to errors.Is/errors.As.
func (e *BulkheadRejectedError) Unwrap() error { return e.StrategyError }

// ValidationError aggregates one or more option-validation failures from a
// single Options.Validate() call.
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string {
	if len(e.Messages) == 1 {
		return fmt.Sprintf("resilience: invalid options: %s", e.Messages[0])
	}
	s := fmt.Sprintf("resilience: invalid options (%d errors):", len(e.Messages))
	for _, m := range e.Messages {
		s += "\n  - " + m
	}
	return s
}

// NewValidationError returns nil if msgs is empty, otherwise a
// *ValidationError wrapping them — lets Validate() implementations write
// `return NewValidationError(msgs)` unconditionally.
func NewValidationError(msgs []string) error {
	if len(msgs) == 0 {
		return nil
	}
	return &ValidationError{Messages: msgs}
}
