package breaker_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/1mb-dev/resilience/internal/breaker"
	"github.com/1mb-dev/resilience/internal/core"
	"github.com/1mb-dev/resilience/internal/core/clocktest"
	"github.com/1mb-dev/resilience/internal/reserr"
)

func execOnce[T any](s core.Strategy[T], fn core.Executor[T]) core.Outcome[T] {
	ec := core.Acquire(context.Background(), "op")
	defer ec.Release()
	return s.Execute(fn, context.Background(), ec)
}

func failing[T any](err error) core.Executor[T] {
	return func(ctx context.Context, ec *core.ExecutionContext) core.Outcome[T] {
		return core.FromError[T](err)
	}
}

func succeeding[T any](v T) core.Executor[T] {
	return func(ctx context.Context, ec *core.ExecutionContext) core.Outcome[T] {
		return core.FromResult(v)
	}
}

func TestConsecutiveBreaker_TripsAfterThreshold(t *testing.T) {
	b := breaker.NewConsecutiveBreaker[int]("svc", breaker.ConsecutiveOptions{FailureThreshold: 3}, breaker.Config[int]{})

	boom := errors.New("boom")
	for i := 0; i < 3; i++ {
		out := execOnce[int](b, failing[int](boom))
		assert.True(t, out.IsException())
	}

	assert.Equal(t, breaker.StateOpen, b.State())

	out := execOnce[int](b, succeeding(1))
	require.True(t, out.IsException())
	var se *reserr.StrategyError
	require.ErrorAs(t, out.Err(), &se)
	assert.ErrorIs(t, se, reserr.ErrBrokenCircuit)
}

func TestConsecutiveBreaker_SuccessResetsConsecutiveCount(t *testing.T) {
	b := breaker.NewConsecutiveBreaker[int]("svc", breaker.ConsecutiveOptions{FailureThreshold: 2}, breaker.Config[int]{})

	boom := errors.New("boom")
	execOnce[int](b, failing[int](boom))
	execOnce[int](b, succeeding(1))
	execOnce[int](b, failing[int](boom))

	assert.Equal(t, breaker.StateClosed, b.State())
}

func TestConsecutiveBreaker_HalfOpenCloseOnSuccess(t *testing.T) {
	clk := &clocktest.FakeClock{}
	clk.Set(time.Unix(0, 0))

	b := breaker.NewConsecutiveBreaker[int](
		"svc",
		breaker.ConsecutiveOptions{FailureThreshold: 1, Timeout: 10 * time.Second, HalfOpenMaxRequests: 1},
		breaker.Config[int]{Clock: clk},
	)

	execOnce[int](b, failing[int](errors.New("boom")))
	require.Equal(t, breaker.StateOpen, b.State())

	clk.Advance(11 * time.Second)

	out := execOnce[int](b, succeeding(42))
	require.False(t, out.IsException())
	assert.Equal(t, breaker.StateClosed, b.State())
}

func TestConsecutiveBreaker_HalfOpenReopensOnFailure(t *testing.T) {
	clk := &clocktest.FakeClock{}
	clk.Set(time.Unix(0, 0))

	b := breaker.NewConsecutiveBreaker[int](
		"svc",
		breaker.ConsecutiveOptions{FailureThreshold: 1, Timeout: 10 * time.Second},
		breaker.Config[int]{Clock: clk},
	)

	execOnce[int](b, failing[int](errors.New("boom")))
	clk.Advance(11 * time.Second)

	execOnce[int](b, failing[int](errors.New("still broken")))
	assert.Equal(t, breaker.StateOpen, b.State())
}

func TestConsecutiveBreaker_OnStateChangeFiresInOrder(t *testing.T) {
	var transitions []breaker.StateChange
	done := make(chan struct{}, 1)

	b := breaker.NewConsecutiveBreaker[int](
		"svc",
		breaker.ConsecutiveOptions{FailureThreshold: 1},
		breaker.Config[int]{OnStateChange: func(sc breaker.StateChange) {
			transitions = append(transitions, sc)
			if sc.To == breaker.StateOpen {
				done <- struct{}{}
			}
		}},
	)

	execOnce[int](b, failing[int](errors.New("boom")))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("state change callback never fired")
	}

	require.Len(t, transitions, 1)
	assert.Equal(t, breaker.StateClosed, transitions[0].From)
	assert.Equal(t, breaker.StateOpen, transitions[0].To)
}

func TestManualControl_IsolateAndClose(t *testing.T) {
	mc := breaker.NewManualControl()
	b := breaker.NewConsecutiveBreaker[int]("svc", breaker.ConsecutiveOptions{}, breaker.Config[int]{Manual: mc})

	mc.Isolate()
	assert.Equal(t, breaker.StateIsolated, b.State())

	out := execOnce[int](b, succeeding(1))
	require.True(t, out.IsException())
	assert.ErrorIs(t, out.Err(), reserr.ErrIsolatedCircuit)

	mc.Close()
	assert.Equal(t, breaker.StateClosed, b.State())

	out = execOnce[int](b, succeeding(2))
	require.False(t, out.IsException())
	assert.Equal(t, 2, out.Result())
}

func TestManualControl_DisposeRejectsSubsequentExecutions(t *testing.T) {
	mc := breaker.NewManualControl()
	b := breaker.NewConsecutiveBreaker[int]("svc", breaker.ConsecutiveOptions{}, breaker.Config[int]{Manual: mc})

	mc.Dispose()

	out := execOnce[int](b, succeeding(1))
	require.True(t, out.IsException())
	assert.ErrorIs(t, out.Err(), reserr.ErrControlDisposed)

	// Dispose outlives Isolate/Close: both become no-ops afterward.
	mc.Close()
	out = execOnce[int](b, succeeding(1))
	require.True(t, out.IsException())
	assert.ErrorIs(t, out.Err(), reserr.ErrControlDisposed)
}

func TestManualControl_AttachAfterDisposeStartsDisposed(t *testing.T) {
	mc := breaker.NewManualControl()
	mc.Dispose()

	b := breaker.NewConsecutiveBreaker[int]("svc", breaker.ConsecutiveOptions{}, breaker.Config[int]{Manual: mc})

	out := execOnce[int](b, succeeding(1))
	require.True(t, out.IsException())
	assert.ErrorIs(t, out.Err(), reserr.ErrControlDisposed)
}

func TestBreaker_BrokenCircuitErrorCarriesLastHandledOutcome(t *testing.T) {
	b := breaker.NewConsecutiveBreaker[int]("svc", breaker.ConsecutiveOptions{FailureThreshold: 1}, breaker.Config[int]{})

	boom := errors.New("boom")
	execOnce[int](b, failing[int](boom))
	require.Equal(t, breaker.StateOpen, b.State())

	out := execOnce[int](b, succeeding(1))
	require.True(t, out.IsException())

	var bce *reserr.BrokenCircuitError
	require.ErrorAs(t, out.Err(), &bce)
	assert.ErrorIs(t, bce, reserr.ErrBrokenCircuit)
	assert.Same(t, boom, bce.LastHandledOutcomeErr)

	assert.Same(t, boom, b.LastHandledOutcome())
}

func TestAdvancedBreaker_TripsOnRatioAboveMinimumThroughput(t *testing.T) {
	b := breaker.NewAdvancedBreaker[int]("svc", breaker.AdvancedOptions{
		FailureRatio:      0.5,
		MinimumThroughput: 4,
		SamplingDuration:  time.Minute,
		BucketCount:       10,
	}, breaker.Config[int]{})

	execOnce[int](b, succeeding(1))
	execOnce[int](b, failing[int](errors.New("x")))
	assert.Equal(t, breaker.StateClosed, b.State(), "below minimum throughput, should not evaluate ratio yet")

	execOnce[int](b, failing[int](errors.New("x")))
	execOnce[int](b, failing[int](errors.New("x")))

	assert.Equal(t, breaker.StateOpen, b.State())
}

func TestAdvancedBreaker_TripsExactlyAtFailureRatio(t *testing.T) {
	b := breaker.NewAdvancedBreaker[int]("svc", breaker.AdvancedOptions{
		FailureRatio:      0.5,
		MinimumThroughput: 4,
		SamplingDuration:  time.Minute,
		BucketCount:       10,
	}, breaker.Config[int]{})

	execOnce[int](b, succeeding(1))
	execOnce[int](b, succeeding(1))
	execOnce[int](b, failing[int](errors.New("x")))
	execOnce[int](b, failing[int](errors.New("x")))

	assert.Equal(t, breaker.StateOpen, b.State(), "a ratio exactly at FailureRatio must trip, not just ratios above it")
}

func TestAdvancedBreaker_BelowMinimumThroughputNeverTrips(t *testing.T) {
	b := breaker.NewAdvancedBreaker[int]("svc", breaker.AdvancedOptions{
		FailureRatio:      0.1,
		MinimumThroughput: 100,
		SamplingDuration:  time.Minute,
		BucketCount:       10,
	}, breaker.Config[int]{})

	for i := 0; i < 10; i++ {
		execOnce[int](b, failing[int](errors.New("x")))
	}

	assert.Equal(t, breaker.StateClosed, b.State())
}

func TestConsecutiveOptions_Validate(t *testing.T) {
	assert.NoError(t, breaker.ConsecutiveOptions{}.Validate())
	assert.Error(t, breaker.ConsecutiveOptions{Timeout: -time.Second}.Validate())
}

func TestAdvancedOptions_Validate(t *testing.T) {
	assert.NoError(t, breaker.AdvancedOptions{}.Validate())
	assert.Error(t, breaker.AdvancedOptions{FailureRatio: 2}.Validate())
	assert.Error(t, breaker.AdvancedOptions{BucketCount: 3}.Validate())
}

func TestBreaker_ShouldHandlePredicateIgnoresUnhandledResults(t *testing.T) {
	b := breaker.NewConsecutiveBreaker[int]("svc", breaker.ConsecutiveOptions{FailureThreshold: 1}, breaker.Config[int]{
		ShouldHandle: core.NewPredicateBuilder[int]().HandleResult(func(v int) bool { return v < 0 }).Build(),
	})

	execOnce[int](b, failing[int](errors.New("ignored, predicate only looks at results")))
	assert.Equal(t, breaker.StateClosed, b.State())

	execOnce[int](b, succeeding(-1))
	assert.Equal(t, breaker.StateOpen, b.State())
}
