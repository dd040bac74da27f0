package breaker

import (
	"sync"
	"time"

	"github.com/1mb-dev/resilience/internal/reserr"
)

// ConsecutiveOptions configures the classic consecutive-failure breaker:
// trip after FailureThreshold consecutive failures, reopen after Timeout
// with HalfOpenMaxRequests trial calls.
type ConsecutiveOptions struct {
	// FailureThreshold is how many consecutive failures trip the breaker.
	// Defaults to 5.
	FailureThreshold uint32

	// Interval is how often a Closed breaker's counts are reset to zero,
	// even without a trip. Zero disables the periodic reset — counts only
	// clear on a state transition.
	Interval time.Duration

	// Timeout is how long the breaker stays Open before admitting a trial
	// request as HalfOpen. Defaults to 30s.
	Timeout time.Duration

	// HalfOpenMaxRequests caps how many trial requests are admitted while
	// HalfOpen. Defaults to 1.
	HalfOpenMaxRequests uint32

	// ReadyToTrip overrides the default "consecutive failures >= threshold"
	// check with an arbitrary predicate over the live counts.
	ReadyToTrip func(Counts) bool
}

// Validate reports configuration errors without applying defaults — zero
// values are valid and mean "use the default" (see withDefaults).
func (o ConsecutiveOptions) Validate() error {
	var msgs []string
	if o.Timeout < 0 {
		msgs = append(msgs, "Timeout must not be negative")
	}
	if o.Interval < 0 {
		msgs = append(msgs, "Interval must not be negative")
	}
	return reserr.NewValidationError(msgs)
}

func (o ConsecutiveOptions) withDefaults() ConsecutiveOptions {
	if o.FailureThreshold == 0 {
		o.FailureThreshold = 5
	}
	if o.Timeout <= 0 {
		o.Timeout = 30 * time.Second
	}
	if o.HalfOpenMaxRequests == 0 {
		o.HalfOpenMaxRequests = 1
	}
	if o.ReadyToTrip == nil {
		threshold := o.FailureThreshold
		o.ReadyToTrip = func(c Counts) bool { return c.ConsecutiveFailures >= threshold }
	}
	return o
}

type consecutiveTripDecider struct {
	opts ConsecutiveOptions

	mu            sync.Mutex
	counts        Counts
	lastClearedAt time.Time
}

func newConsecutiveTripDecider(opts ConsecutiveOptions) *consecutiveTripDecider {
	return &consecutiveTripDecider{opts: opts.withDefaults(), lastClearedAt: time.Time{}}
}

func (d *consecutiveTripDecider) maybeResetLocked(now time.Time) {
	if d.opts.Interval <= 0 {
		return
	}
	if d.lastClearedAt.IsZero() {
		d.lastClearedAt = now
		return
	}
	if now.Sub(d.lastClearedAt) >= d.opts.Interval {
		d.counts = Counts{}
		d.lastClearedAt = now
	}
}

func (d *consecutiveTripDecider) onSuccess(now time.Time) Counts {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.maybeResetLocked(now)
	d.counts.Requests++
	d.counts.TotalSuccesses++
	d.counts.ConsecutiveSuccesses++
	d.counts.ConsecutiveFailures = 0
	return d.counts
}

func (d *consecutiveTripDecider) onFailure(now time.Time) (Counts, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.maybeResetLocked(now)
	d.counts.Requests++
	d.counts.TotalFailures++
	d.counts.ConsecutiveFailures++
	d.counts.ConsecutiveSuccesses = 0
	return d.counts, d.opts.ReadyToTrip(d.counts)
}

func (d *consecutiveTripDecider) counts(time.Time) Counts {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.counts
}

func (d *consecutiveTripDecider) reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.counts = Counts{}
	d.lastClearedAt = time.Time{}
}

func (d *consecutiveTripDecider) halfOpenMaxRequests() uint32 { return d.opts.HalfOpenMaxRequests }

func (d *consecutiveTripDecider) openDuration() time.Duration { return d.opts.Timeout }
