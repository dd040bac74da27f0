// Package retry implements the retry strategy: re-invoke the inner operation
// on a handled failure, with constant, linear, or exponential backoff and
// optional jitter, grounded on the exponential-backoff-with-jitter shape
// used elsewhere in the pack for outbound calls.
package retry

import (
	"time"

	"github.com/1mb-dev/resilience/internal/core"
	"github.com/1mb-dev/resilience/internal/logging"
	"github.com/1mb-dev/resilience/internal/reserr"
)

// BackoffKind selects how the delay between attempts grows.
type BackoffKind int

const (
	// BackoffExponential doubles the delay every attempt, the default.
	BackoffExponential BackoffKind = iota
	// BackoffConstant retries after the same Delay every time.
	BackoffConstant
	// BackoffLinear multiplies Delay by the attempt number.
	BackoffLinear
)

// Options configures a retry strategy for result type T.
type Options[T any] struct {
	// MaxAttempts is the total number of attempts, including the first —
	// so MaxAttempts-1 is the maximum number of retries. Zero means no
	// retry: the operation still runs exactly once. There is no implicit
	// default; callers that want retries must say how many.
	MaxAttempts int

	// Delay is the base delay used to compute backoff. Defaults to 100ms.
	Delay time.Duration

	// MaxDelay caps the computed delay, including jitter. Zero means no
	// cap.
	MaxDelay time.Duration

	// Backoff selects the growth curve. Defaults to BackoffExponential.
	Backoff BackoffKind

	// UseJitter randomizes the computed delay to avoid synchronized
	// retries across clients (thundering herd). Exponential backoff uses
	// full decorrelated jitter (AWS's algorithm); constant/linear apply a
	// +/-20% multiplicative jitter.
	UseJitter bool

	// ShouldHandle decides whether an Outcome should be retried. Defaults
	// to "exceptions only".
	ShouldHandle core.Predicate[T]

	// OnRetry is called before each sleep, with the 1-based attempt that
	// just failed, its Outcome, and the delay about to be waited. A panic
	// inside OnRetry is not recovered: it propagates out of Execute.
	OnRetry func(attempt int, out core.Outcome[T], delay time.Duration)

	// Clock abstracts sleeping for deterministic tests. Defaults to
	// core.RealClock{}.
	Clock core.Clock

	// UniformSource produces jitter randomness in [0, 1). Defaults to
	// math/rand's top-level source.
	UniformSource core.UniformSource

	Logger logging.Logger
}

func (o Options[T]) withDefaults() Options[T] {
	if o.Delay <= 0 {
		o.Delay = 100 * time.Millisecond
	}
	if o.ShouldHandle == nil {
		o.ShouldHandle = core.NewPredicateBuilder[T]().Build()
	}
	if o.Clock == nil {
		o.Clock = core.RealClock{}
	}
	if o.UniformSource == nil {
		o.UniformSource = defaultUniformSource
	}
	if o.Logger == nil {
		o.Logger = logging.NoOp{}
	}
	return o
}

// Validate reports configuration errors without applying defaults.
func (o Options[T]) Validate() error {
	var msgs []string
	if o.MaxAttempts < 0 {
		msgs = append(msgs, "MaxAttempts must not be negative")
	}
	if o.Delay < 0 {
		msgs = append(msgs, "Delay must not be negative")
	}
	if o.MaxDelay < 0 {
		msgs = append(msgs, "MaxDelay must not be negative")
	}
	if o.MaxDelay > 0 && o.Delay > o.MaxDelay {
		msgs = append(msgs, "Delay must not exceed MaxDelay")
	}
	return reserr.NewValidationError(msgs)
}
