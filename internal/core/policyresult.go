package core

// OutcomeKind classifies how a PolicyResult terminated.
type OutcomeKind int

const (
	// KindSuccess means the final Outcome was a non-exception result.
	KindSuccess OutcomeKind = iota
	// KindFaulted means the final Outcome was an exception not otherwise
	// classified below.
	KindFaulted
	// KindCanceled means the final Outcome's exception represents
	// cancellation (context.Canceled / context.DeadlineExceeded / the
	// reserr.ErrOperationCanceled sentinel).
	KindCanceled
)

// PolicyResult is the structured capture returned by ExecuteAndCapture: the
// final Outcome plus a classification, so callers can branch on kind instead
// of re-deriving it from the error.
type PolicyResult[T any] struct {
	Kind    OutcomeKind
	Outcome Outcome[T]
}

// ExecuteAndCapture runs userFn through pipeline and never panics/returns an
// error from this call itself — the result and any exception are both
// captured in the returned PolicyResult.
func ExecuteAndCapture[T any](p *Pipeline[T], userFn Executor[T], ec *ExecutionContext, isCanceled func(error) bool) PolicyResult[T] {
	outcome := p.Execute(userFn, ec.Context(), ec)
	if !outcome.IsException() {
		return PolicyResult[T]{Kind: KindSuccess, Outcome: outcome}
	}
	if isCanceled != nil && isCanceled(outcome.Err()) {
		return PolicyResult[T]{Kind: KindCanceled, Outcome: outcome}
	}
	return PolicyResult[T]{Kind: KindFaulted, Outcome: outcome}
}
