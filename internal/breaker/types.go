// Package breaker implements the circuit breaker strategy: an atomic,
// lock-minimal state machine shared by two flavors (consecutive-failure and
// sliding-window) plus the generic core.Strategy[T] wrappers and manual
// override controls that sit on top of it.
package breaker

import "time"

// CircuitState is the breaker's current disposition. Isolated is a superset
// addition over the classic three-state machine: it is only ever entered or
// left via ManualControl, never by the trip decider.
type CircuitState int32

const (
	StateClosed CircuitState = iota
	StateOpen
	StateHalfOpen
	StateIsolated
)

func (s CircuitState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	case StateIsolated:
		return "isolated"
	default:
		return "unknown"
	}
}

// Counts is a snapshot of a breaker's request tally since it was last reset
// (on successful HalfOpen→Closed recovery, on a manual Close, or on an
// interval rollover for the consecutive flavor). Tripping to Open does not
// reset it.
type Counts struct {
	Requests             uint32
	TotalSuccesses        uint32
	TotalFailures          uint32
	ConsecutiveSuccesses uint32
	ConsecutiveFailures  uint32
}

// StateChange describes one transition, delivered to OnStateChange in the
// order the transitions actually happened.
type StateChange struct {
	Name string
	From CircuitState
	To   CircuitState
	At   time.Time
}

// tripDecider is the pluggable policy that decides, given the current
// counts, whether a Closed breaker should trip to Open, and how many trial
// requests a HalfOpen breaker should admit before deciding whether to close
// or reopen. The two implementations are consecutiveTripDecider (trip after
// N consecutive failures) and advancedTripDecider (trip on a failure ratio
// over a rolling window, gated by a minimum-throughput floor).
type tripDecider interface {
	// onSuccess records a success and returns the live counts afterward
	// (the consecutive flavor first applies its interval rollover; the
	// advanced flavor first rotates its buckets).
	onSuccess(now time.Time) Counts
	// onFailure records a failure and returns the live counts plus whether
	// the breaker should trip.
	onFailure(now time.Time) (counts Counts, shouldTrip bool)
	// counts returns the current snapshot without recording an outcome.
	counts(now time.Time) Counts
	// reset clears all tracked state, e.g. after a Closed→Open→Closed
	// round trip.
	reset()
	// halfOpenMaxRequests is how many trial calls are admitted while
	// HalfOpen before further calls are rejected.
	halfOpenMaxRequests() uint32
	// openDuration is how long the breaker stays Open before admitting a
	// HalfOpen trial.
	openDuration() time.Duration
}
