package breaker

import (
	"sync/atomic"
	"time"

	"github.com/1mb-dev/resilience/internal/core"
	"github.com/1mb-dev/resilience/internal/logging"
	"github.com/1mb-dev/resilience/internal/reserr"
)

// outcomeSnapshot wraps an error so controller.lastHandled (an atomic.Value)
// always stores the same concrete type, even for a nil error — atomic.Value
// panics if successive Store calls don't agree on the underlying type.
type outcomeSnapshot struct{ err error }

// controller is the non-generic atomic state machine shared by both breaker
// flavors. It tracks only CircuitState and the bookkeeping needed to admit or
// reject calls; outcome classification and count tracking are delegated to a
// tripDecider, and result typing is handled by the generic wrapper on top.
type controller struct {
	name    string
	decider tripDecider
	clock   core.Clock
	logger  logging.Logger

	state          atomic.Int32 // CircuitState
	stateChangedAt atomic.Int64 // unix nano
	openedAt       atomic.Int64 // unix nano

	halfOpenInflight  atomic.Uint32
	halfOpenSuccesses atomic.Uint32

	isolated     atomic.Bool
	manualClosed atomic.Bool
	disposed     atomic.Bool

	lastHandled atomic.Value // outcomeSnapshot

	events chan StateChange
	onChange func(StateChange)
}

func newController(name string, decider tripDecider, clock core.Clock, logger logging.Logger, onChange func(StateChange)) *controller {
	if clock == nil {
		clock = core.RealClock{}
	}
	if logger == nil {
		logger = logging.NoOp{}
	}
	c := &controller{
		name:     name,
		decider:  decider,
		clock:    clock,
		logger:   logger.WithComponent("circuit-breaker"),
		events:   make(chan StateChange, 64),
		onChange: onChange,
	}
	c.stateChangedAt.Store(clock.Now().UnixNano())
	go c.dispatchLoop()
	return c
}

// dispatchLoop is the single goroutine that drains the events channel, so
// OnStateChange callbacks fire strictly in the order transitions happened
// even when multiple goroutines race to trip or recover the breaker
// concurrently.
func (c *controller) dispatchLoop() {
	for sc := range c.events {
		c.invokeOnChange(sc)
	}
}

func (c *controller) invokeOnChange(sc StateChange) {
	if c.onChange == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			c.logger.Warn("onStateChange callback panicked", map[string]any{
				"breaker": c.name, "panic": r,
			})
		}
	}()
	c.onChange(sc)
}

func (c *controller) emit(from, to CircuitState) {
	now := c.clock.Now()
	c.stateChangedAt.Store(now.UnixNano())
	sc := StateChange{Name: c.name, From: from, To: to, At: now}
	select {
	case c.events <- sc:
	default:
		// Buffer full under sustained flapping; log and invoke inline
		// rather than drop, accepting out-of-order delivery in that
		// narrow case over silently losing a transition notification.
		c.logger.Warn("state change event buffer full, dispatching inline", map[string]any{"breaker": c.name})
		c.invokeOnChange(sc)
	}
}

// State returns the breaker's current disposition.
func (c *controller) State() CircuitState {
	if c.isolated.Load() {
		return StateIsolated
	}
	return CircuitState(c.state.Load())
}

// Counts returns a snapshot of the decider's current tally.
func (c *controller) Counts() Counts { return c.decider.counts(c.clock.Now()) }

// allow decides whether a new call may proceed. It returns a nil error when
// the call should run, or the sentinel error explaining why it was rejected.
func (c *controller) allow() error {
	if c.disposed.Load() {
		return reserr.ErrControlDisposed
	}
	if c.isolated.Load() {
		return reserr.ErrIsolatedCircuit
	}

	switch CircuitState(c.state.Load()) {
	case StateClosed:
		return nil
	case StateOpen:
		now := c.clock.Now()
		openedAt := time.Unix(0, c.openedAt.Load())
		if now.Sub(openedAt) < c.decider.openDuration() {
			return reserr.ErrBrokenCircuit
		}
		if c.state.CompareAndSwap(int32(StateOpen), int32(StateHalfOpen)) {
			c.halfOpenInflight.Store(0)
			c.halfOpenSuccesses.Store(0)
			c.emit(StateOpen, StateHalfOpen)
		}
		return c.admitHalfOpen()
	case StateHalfOpen:
		return c.admitHalfOpen()
	default:
		return nil
	}
}

func (c *controller) admitHalfOpen() error {
	max := c.decider.halfOpenMaxRequests()
	for {
		cur := c.halfOpenInflight.Load()
		if cur >= max {
			return reserr.ErrBrokenCircuit
		}
		if c.halfOpenInflight.CompareAndSwap(cur, cur+1) {
			return nil
		}
	}
}

// recordSuccess reports a successful call outcome.
func (c *controller) recordSuccess() {
	now := c.clock.Now()
	switch CircuitState(c.state.Load()) {
	case StateHalfOpen:
		succ := c.halfOpenSuccesses.Add(1)
		if succ >= c.decider.halfOpenMaxRequests() {
			if c.state.CompareAndSwap(int32(StateHalfOpen), int32(StateClosed)) {
				c.decider.reset()
				c.manualClosed.Store(false)
				c.emit(StateHalfOpen, StateClosed)
			}
		}
	default:
		c.decider.onSuccess(now)
	}
}

// recordFailure reports a failed (handled) call outcome and trips the
// breaker when the decider says the threshold has been reached. err is the
// handled outcome's error, recorded so a subsequent BrokenCircuit rejection
// can report what tripped the breaker.
func (c *controller) recordFailure(err error) {
	c.lastHandled.Store(outcomeSnapshot{err: err})
	now := c.clock.Now()
	switch CircuitState(c.state.Load()) {
	case StateHalfOpen:
		if c.state.CompareAndSwap(int32(StateHalfOpen), int32(StateOpen)) {
			c.openedAt.Store(now.UnixNano())
			c.emit(StateHalfOpen, StateOpen)
		}
	default:
		_, shouldTrip := c.decider.onFailure(now)
		if shouldTrip && c.state.CompareAndSwap(int32(StateClosed), int32(StateOpen)) {
			c.openedAt.Store(now.UnixNano())
			c.emit(StateClosed, StateOpen)
		}
	}
}

// lastHandledOutcomeErr returns the error from the most recent handled
// (failed) outcome this controller observed, or nil if none has been
// recorded yet.
func (c *controller) lastHandledOutcomeErr() error {
	snap, ok := c.lastHandled.Load().(outcomeSnapshot)
	if !ok {
		return nil
	}
	return snap.err
}

// openedAtTime returns when the breaker last transitioned into Open.
func (c *controller) openedAtTime() time.Time {
	return time.Unix(0, c.openedAt.Load())
}

// disposeControl permanently marks the controller as disposed: every
// subsequent allow() call is rejected with ErrControlDisposed regardless of
// circuit state or isolation.
func (c *controller) disposeControl() {
	c.disposed.Store(true)
}

// isolate forces the breaker into the Isolated state until close is called,
// regardless of outcomes recorded in the meantime.
func (c *controller) isolate() {
	if c.isolated.CompareAndSwap(false, true) {
		from := CircuitState(c.state.Load())
		c.emit(from, StateIsolated)
	}
}

// closeManually forces the breaker back to Closed, clearing isolation and
// resetting the decider.
func (c *controller) closeManually() {
	wasIsolated := c.isolated.Swap(false)
	c.decider.reset()
	prev := CircuitState(c.state.Swap(int32(StateClosed)))
	if wasIsolated || prev != StateClosed {
		from := prev
		if wasIsolated {
			from = StateIsolated
		}
		c.emit(from, StateClosed)
	}
}
