package breaker

import "sync"

// ManualControl lets an operator force one or more circuit breakers into the
// Isolated state (rejecting every call) or back to Closed, independent of
// whatever outcomes the breakers are observing. One ManualControl may be
// shared across several breakers — e.g. a "kill switch" for every breaker
// guarding calls to a single downstream dependency — in which case Isolate
// and Close fan out to all of them.
type ManualControl struct {
	mu          sync.Mutex
	controllers []*controller
	disposed    bool
}

// NewManualControl returns a control not yet attached to any breaker.
func NewManualControl() *ManualControl {
	return &ManualControl{}
}

// attach registers c to receive this control's Isolate/Close calls. Called
// once by a breaker strategy constructor when a ManualControl is supplied.
// A controller attached after Dispose is disposed immediately, so a breaker
// built against an already-disposed control starts out rejecting calls.
func (m *ManualControl) attach(c *controller) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.disposed {
		c.disposeControl()
		return
	}
	m.controllers = append(m.controllers, c)
}

// Isolate forces every attached breaker into the Isolated state. A no-op
// once the control has been disposed.
func (m *ManualControl) Isolate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.disposed {
		return
	}
	for _, c := range m.controllers {
		c.isolate()
	}
}

// Close forces every attached breaker back to Closed, clearing isolation and
// resetting counts. A no-op once the control has been disposed.
func (m *ManualControl) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.disposed {
		return
	}
	for _, c := range m.controllers {
		c.closeManually()
	}
}

// Dispose permanently disables this control and every breaker attached to
// it: subsequent strategy executions on any attached breaker fail with
// ErrControlDisposed, and further Isolate/Close calls on the control are
// no-ops. Dispose is idempotent.
func (m *ManualControl) Dispose() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.disposed {
		return
	}
	m.disposed = true
	for _, c := range m.controllers {
		c.disposeControl()
	}
}
