// Package hedging implements the hedging strategy: launch additional
// parallel attempts if the primary hasn't produced a non-handled outcome
// within a delay, returning whichever attempt finishes first with a result
// the caller doesn't want retried, grounded on the pack's use of
// golang.org/x/sync for fan-out/join coordination. Unlike errgroup's native
// "cancel the group on first error" semantics, a faulted attempt here never
// cancels its siblings — only a non-handled (acceptable) outcome does, or
// every attempt reporting in faulted.
package hedging

import (
	"context"
	"sync"
	"time"

	"github.com/1mb-dev/resilience/internal/core"
	"github.com/1mb-dev/resilience/internal/reserr"
)

// Options configures a hedging strategy for result type T.
type Options[T any] struct {
	// MaxHedgedAttempts is the total number of attempts that may run,
	// including the primary. Defaults to 2 (one hedge).
	MaxHedgedAttempts int

	// Delay is how long to wait after starting an attempt before starting
	// the next one, provided no attempt has yet produced a non-handled
	// outcome. Required; must be positive.
	Delay time.Duration

	// ShouldHandle decides whether an attempt's outcome should be treated
	// as a fault that warrants waiting for (or starting) another attempt.
	// Defaults to "exceptions only".
	ShouldHandle core.Predicate[T]

	// OnHedge is called every time an additional attempt is started, with
	// its 1-based attempt number. A panic inside is recovered silently.
	OnHedge func(attempt int)

	// Clock abstracts the inter-attempt delay for deterministic tests.
	// Defaults to core.RealClock{}.
	Clock core.Clock
}

func (o Options[T]) withDefaults() Options[T] {
	if o.MaxHedgedAttempts <= 0 {
		o.MaxHedgedAttempts = 2
	}
	if o.ShouldHandle == nil {
		o.ShouldHandle = core.NewPredicateBuilder[T]().Build()
	}
	if o.Clock == nil {
		o.Clock = core.RealClock{}
	}
	return o
}

// Validate reports configuration errors.
func (o Options[T]) Validate() error {
	var msgs []string
	if o.Delay <= 0 {
		msgs = append(msgs, "Delay must be positive")
	}
	if o.MaxHedgedAttempts < 0 {
		msgs = append(msgs, "MaxHedgedAttempts must not be negative")
	}
	return reserr.NewValidationError(msgs)
}

// Hedging is the core.Strategy[T] implementation.
type Hedging[T any] struct {
	opts Options[T]
}

// New builds a hedging strategy, applying defaults to zero fields.
func New[T any](opts Options[T]) *Hedging[T] {
	return &Hedging[T]{opts: opts.withDefaults()}
}

type resultMsg[T any] struct {
	outcome core.Outcome[T]
}

// Execute implements core.Strategy[T]. The primary attempt starts
// immediately. Every Delay thereafter, provided no attempt has yet returned
// a non-handled outcome and MaxHedgedAttempts hasn't been reached, another
// attempt starts racing the rest. The first non-handled outcome observed
// wins and every sibling's linked context is canceled via groupCtx. A handled
// (faulted) outcome does not stop further hedges from starting; if all
// MaxHedgedAttempts attempts are handled, the first fault observed is
// returned once every one of them has reported in.
//
// Execute does not return until every goroutine it spawned — every attempt
// and every pending hedge-delay timer — has actually exited. Canceling
// groupCtx before waiting lets well-behaved attempts, which all receive a
// context linked to it, unwind promptly instead of leaving background work
// running past Execute's return.
func (h *Hedging[T]) Execute(next core.Executor[T], ctx context.Context, ec *core.ExecutionContext) core.Outcome[T] {
	groupCtx, cancelAll := context.WithCancel(ctx)
	var wg sync.WaitGroup
	defer wg.Wait()
	defer cancelAll()

	results := make(chan resultMsg[T], h.opts.MaxHedgedAttempts)
	hedgeSignal := make(chan struct{}, h.opts.MaxHedgedAttempts)

	// Each attempt goroutine owns and releases its own cloned
	// ExecutionContext after it finishes, and marks itself done on wg so
	// Execute's deferred wg.Wait() only unblocks once every attempt has
	// actually returned.
	start := func() {
		attemptEC := ec.Clone(groupCtx)
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer attemptEC.Release()
			out := next(groupCtx, attemptEC)
			results <- resultMsg[T]{outcome: out}
		}()
	}

	scheduleHedge := func() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := h.opts.Clock.Sleep(groupCtx, h.opts.Delay); err == nil {
				select {
				case hedgeSignal <- struct{}{}:
				default:
				}
			}
		}()
	}

	start()
	started := 1
	pending := 1
	if started < h.opts.MaxHedgedAttempts {
		scheduleHedge()
	}

	var firstFault *core.Outcome[T]

	for {
		select {
		case res := <-results:
			pending--
			if !h.opts.ShouldHandle(res.outcome) {
				return res.outcome
			}
			if firstFault == nil {
				o := res.outcome
				firstFault = &o
			}
			if pending == 0 && started >= h.opts.MaxHedgedAttempts {
				return *firstFault
			}

		case <-hedgeSignal:
			if started < h.opts.MaxHedgedAttempts {
				started++
				pending++
				h.invokeOnHedge(started)
				start()
				if started < h.opts.MaxHedgedAttempts {
					scheduleHedge()
				}
			}

		case <-ctx.Done():
			return core.FromError[T](ctx.Err())
		}
	}
}

func (h *Hedging[T]) invokeOnHedge(attempt int) {
	if h.opts.OnHedge == nil {
		return
	}
	defer func() { recover() }()
	h.opts.OnHedge(attempt)
}

var _ core.Strategy[int] = (*Hedging[int])(nil)
