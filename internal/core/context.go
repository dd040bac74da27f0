package core

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// ResultTypeVoid is the ResultType marker used for operations that produce
// no meaningful value (the generic parameter is still instantiated, usually
// as struct{}, but callers use this marker for logging/telemetry rather than
// a reflect-based type name).
const ResultTypeVoid = "void"

// ExecutionContext carries per-execution state across a pipeline: the
// cancellation signal, operation metadata, and an out-of-band property bag
// used for strategy-to-strategy communication (e.g. cache key inputs).
//
// Contexts are pooled: Acquire at the outer entry point, Release on every
// exit path. Callers must not retain a *ExecutionContext past the Execute
// call that produced it.
type ExecutionContext struct {
	ctx context.Context

	// ExecutionID correlates log lines for one call through every strategy
	// in the pipeline. Stamped fresh on every Acquire.
	ExecutionID uuid.UUID

	// OperationKey optionally identifies the logical operation. Used by the
	// cache strategy for keying and by telemetry for labeling.
	OperationKey string

	// IsSynchronous is advisory: true when the outermost caller is blocking
	// on this execution rather than awaiting a future. Strategies may use it
	// to pick a blocking vs. yielding primitive where both exist.
	IsSynchronous bool

	// ResultType names the pipeline's result type for logging; ResultTypeVoid
	// for operations with no meaningful return value.
	ResultType string

	// ContinueOnCapturedContext is a no-op on this platform; present so code
	// ported from contexts with UI-thread affinity compiles unchanged.
	ContinueOnCapturedContext bool

	// props keys are typically package-level vars of a distinct named type,
	// so one strategy's property can't collide with another's.
	props map[any]any
}

var contextPool = sync.Pool{
	New: func() any { return &ExecutionContext{} },
}

// Acquire pulls an ExecutionContext from the pool (or allocates one) bound to
// parent for cancellation. Callers must call Release exactly once, on every
// exit path, including panics (use defer).
func Acquire(parent context.Context, operationKey string) *ExecutionContext {
	ec, _ := contextPool.Get().(*ExecutionContext)
	ec.ctx = parent
	ec.ExecutionID = uuid.New()
	ec.OperationKey = operationKey
	ec.IsSynchronous = false
	ec.ResultType = ""
	ec.ContinueOnCapturedContext = false
	if ec.props != nil {
		clear(ec.props)
	}
	return ec
}

// Release returns ec to the pool. ec must not be used after this call.
func (ec *ExecutionContext) Release() {
	ec.ctx = nil
	contextPool.Put(ec)
}

// Context returns the cancellation-bearing context.Context for this
// execution. Strategies that need to derive a child context (timeout,
// hedging) do so from this value.
func (ec *ExecutionContext) Context() context.Context { return ec.ctx }

// WithContext replaces the cancellation context in place — used by timeout
// and hedging strategies to install a linked child signal for the duration
// of a nested call, and to restore the parent afterward.
func (ec *ExecutionContext) WithContext(ctx context.Context) { ec.ctx = ctx }

// SetProp stores v under key in the property bag.
func (ec *ExecutionContext) SetProp(key, v any) {
	if ec.props == nil {
		ec.props = make(map[any]any)
	}
	ec.props[key] = v
}

// Prop retrieves the value stored under key, if any.
func (ec *ExecutionContext) Prop(key any) (any, bool) {
	if ec.props == nil {
		return nil, false
	}
	v, ok := ec.props[key]
	return v, ok
}

// Clone produces an independent ExecutionContext carrying the same metadata
// but a new ExecutionID and an explicitly supplied cancellation context —
// used by hedging to give each parallel attempt its own linked signal
// without attempts sharing the property bag.
func (ec *ExecutionContext) Clone(ctx context.Context) *ExecutionContext {
	clone := Acquire(ctx, ec.OperationKey)
	clone.IsSynchronous = ec.IsSynchronous
	clone.ResultType = ec.ResultType
	clone.ContinueOnCapturedContext = ec.ContinueOnCapturedContext
	for k, v := range ec.props {
		clone.SetProp(k, v)
	}
	return clone
}
