package retry

import (
	"context"
	"math/rand"
	"time"

	"github.com/1mb-dev/resilience/internal/core"
)

func defaultUniformSource() float64 { return rand.Float64() }

// Retry is the core.Strategy[T] implementation. It re-invokes next until the
// outcome is not handled, MaxAttempts is exhausted, or the context is
// canceled while sleeping between attempts.
type Retry[T any] struct {
	opts Options[T]
}

// New builds a retry strategy from opts, applying defaults to zero fields.
func New[T any](opts Options[T]) *Retry[T] {
	return &Retry[T]{opts: opts.withDefaults()}
}

// Execute implements core.Strategy[T].
func (r *Retry[T]) Execute(next core.Executor[T], ctx context.Context, ec *core.ExecutionContext) core.Outcome[T] {
	var delay time.Duration
	var out core.Outcome[T]

	// MaxAttempts <= 0 still runs the operation once; it just never retries.
	maxAttempts := r.opts.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		out = next(ctx, ec)
		if !r.opts.ShouldHandle(out) {
			return out
		}
		if attempt == maxAttempts {
			return out
		}

		delay = r.computeDelay(attempt, delay)
		r.invokeOnRetry(attempt, out, delay)

		if err := r.opts.Clock.Sleep(ctx, delay); err != nil {
			return core.FromError[T](err)
		}
	}

	return out
}

func (r *Retry[T]) invokeOnRetry(attempt int, out core.Outcome[T], delay time.Duration) {
	if r.opts.OnRetry == nil {
		return
	}
	r.opts.OnRetry(attempt, out, delay)
}

// computeDelay derives the delay to wait before the next attempt, given the
// previous delay (zero before the first retry).
func (r *Retry[T]) computeDelay(attempt int, prevDelay time.Duration) time.Duration {
	var base time.Duration
	switch r.opts.Backoff {
	case BackoffConstant:
		base = r.opts.Delay
	case BackoffLinear:
		base = r.opts.Delay * time.Duration(attempt)
	default: // BackoffExponential
		base = r.opts.Delay * time.Duration(uint64(1)<<uint(attempt-1))
	}
	base = r.capDelay(base)

	if !r.opts.UseJitter {
		return base
	}

	if r.opts.Backoff == BackoffExponential {
		lo := r.opts.Delay
		hi := prevDelay * 3
		if hi < lo {
			hi = base * 3
		}
		if hi <= lo {
			return r.capDelay(lo)
		}
		d := lo + time.Duration(r.opts.UniformSource()*float64(hi-lo))
		return r.capDelay(d)
	}

	jitterFactor := 0.8 + r.opts.UniformSource()*0.4
	return r.capDelay(time.Duration(float64(base) * jitterFactor))
}

func (r *Retry[T]) capDelay(d time.Duration) time.Duration {
	if r.opts.MaxDelay > 0 && d > r.opts.MaxDelay {
		return r.opts.MaxDelay
	}
	if d < 0 {
		return 0
	}
	return d
}

var _ core.Strategy[int] = (*Retry[int])(nil)
