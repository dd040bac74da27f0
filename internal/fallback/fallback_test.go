package fallback_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/1mb-dev/resilience/internal/core"
	"github.com/1mb-dev/resilience/internal/fallback"
)

func TestFallback_SubstitutesOnHandledFault(t *testing.T) {
	f := fallback.New[int](fallback.Options[int]{
		Substitute: func(ctx context.Context, ec *core.ExecutionContext, faulted core.Outcome[int]) core.Outcome[int] {
			return core.FromResult(-1)
		},
	})

	ec := core.Acquire(context.Background(), "op")
	defer ec.Release()
	out := f.Execute(func(ctx context.Context, ec *core.ExecutionContext) core.Outcome[int] {
		return core.FromError[int](errors.New("boom"))
	}, context.Background(), ec)

	require.False(t, out.IsException())
	assert.Equal(t, -1, out.Result())
}

func TestFallback_PassesThroughSuccess(t *testing.T) {
	f := fallback.New[int](fallback.Options[int]{
		Substitute: func(ctx context.Context, ec *core.ExecutionContext, faulted core.Outcome[int]) core.Outcome[int] {
			return core.FromResult(-1)
		},
	})

	ec := core.Acquire(context.Background(), "op")
	defer ec.Release()
	out := f.Execute(func(ctx context.Context, ec *core.ExecutionContext) core.Outcome[int] {
		return core.FromResult(5)
	}, context.Background(), ec)

	assert.Equal(t, 5, out.Result())
}

func TestFallback_OnFallbackInvokedBeforeSubstitute(t *testing.T) {
	var called bool
	f := fallback.New[int](fallback.Options[int]{
		OnFallback: func(ec *core.ExecutionContext, faulted core.Outcome[int]) { called = true },
		Substitute: func(ctx context.Context, ec *core.ExecutionContext, faulted core.Outcome[int]) core.Outcome[int] {
			assert.True(t, called)
			return core.FromResult(0)
		},
	})

	ec := core.Acquire(context.Background(), "op")
	defer ec.Release()
	f.Execute(func(ctx context.Context, ec *core.ExecutionContext) core.Outcome[int] {
		return core.FromError[int](errors.New("boom"))
	}, context.Background(), ec)

	assert.True(t, called)
}

func TestFallback_ShouldHandleLimitsSubstitution(t *testing.T) {
	sentinel := errors.New("do not fall back")
	f := fallback.New[int](fallback.Options[int]{
		ShouldHandle: core.NewPredicateBuilder[int]().HandleError(func(err error) bool { return err.Error() != "do not fall back" }).Build(),
		Substitute: func(ctx context.Context, ec *core.ExecutionContext, faulted core.Outcome[int]) core.Outcome[int] {
			return core.FromResult(-1)
		},
	})

	ec := core.Acquire(context.Background(), "op")
	defer ec.Release()
	out := f.Execute(func(ctx context.Context, ec *core.ExecutionContext) core.Outcome[int] {
		return core.FromError[int](sentinel)
	}, context.Background(), ec)

	require.True(t, out.IsException())
	assert.Same(t, sentinel, out.Err())
}

func TestFallback_NewPanicsWithoutSubstitute(t *testing.T) {
	assert.Panics(t, func() {
		fallback.New[int](fallback.Options[int]{})
	})
}
