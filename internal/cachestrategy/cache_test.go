package cachestrategy_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/1mb-dev/resilience/internal/cachestrategy"
	"github.com/1mb-dev/resilience/internal/core"
)

func jsonEncode[T any](v T) ([]byte, error) { return json.Marshal(v) }
func jsonDecode[T any](b []byte) (T, error) {
	var v T
	err := json.Unmarshal(b, &v)
	return v, err
}

func TestCache_MissThenHit(t *testing.T) {
	provider := cachestrategy.NewMemoryProvider()
	var calls int32
	c := cachestrategy.New[int](cachestrategy.Options[int]{
		Provider: provider,
		Encode:   jsonEncode[int],
		Decode:   jsonDecode[int],
		TTL:      time.Minute,
	})

	exec := func() core.Outcome[int] {
		ec := core.Acquire(context.Background(), "key-1")
		defer ec.Release()
		return c.Execute(func(ctx context.Context, ec *core.ExecutionContext) core.Outcome[int] {
			atomic.AddInt32(&calls, 1)
			return core.FromResult(42)
		}, context.Background(), ec)
	}

	out1 := exec()
	out2 := exec()

	require.False(t, out1.IsException())
	require.False(t, out2.IsException())
	assert.Equal(t, 42, out1.Result())
	assert.Equal(t, 42, out2.Result())
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestCache_FailedOutcomeNeverCached(t *testing.T) {
	provider := cachestrategy.NewMemoryProvider()
	var calls int32
	c := cachestrategy.New[int](cachestrategy.Options[int]{
		Provider: provider,
		Encode:   jsonEncode[int],
		Decode:   jsonDecode[int],
		TTL:      time.Minute,
	})

	exec := func() core.Outcome[int] {
		ec := core.Acquire(context.Background(), "key-1")
		defer ec.Release()
		return c.Execute(func(ctx context.Context, ec *core.ExecutionContext) core.Outcome[int] {
			atomic.AddInt32(&calls, 1)
			return core.FromError[int](errors.New("boom"))
		}, context.Background(), ec)
	}

	exec()
	exec()

	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestCache_ShouldCachePredicate(t *testing.T) {
	provider := cachestrategy.NewMemoryProvider()
	var calls int32
	c := cachestrategy.New[int](cachestrategy.Options[int]{
		Provider:    provider,
		Encode:      jsonEncode[int],
		Decode:      jsonDecode[int],
		ShouldCache: func(v int) bool { return v > 0 },
		TTL:         time.Minute,
	})

	exec := func(key string) core.Outcome[int] {
		ec := core.Acquire(context.Background(), key)
		defer ec.Release()
		return c.Execute(func(ctx context.Context, ec *core.ExecutionContext) core.Outcome[int] {
			atomic.AddInt32(&calls, 1)
			return core.FromResult(-1)
		}, context.Background(), ec)
	}

	exec("negative")
	exec("negative")

	assert.Equal(t, int32(2), atomic.LoadInt32(&calls), "negative results should not be cached per ShouldCache")
}

func TestCache_EntryExpires(t *testing.T) {
	provider := cachestrategy.NewMemoryProvider()
	var calls int32
	c := cachestrategy.New[int](cachestrategy.Options[int]{
		Provider: provider,
		Encode:   jsonEncode[int],
		Decode:   jsonDecode[int],
		TTL:      5 * time.Millisecond,
	})

	exec := func() core.Outcome[int] {
		ec := core.Acquire(context.Background(), "key-1")
		defer ec.Release()
		return c.Execute(func(ctx context.Context, ec *core.ExecutionContext) core.Outcome[int] {
			atomic.AddInt32(&calls, 1)
			return core.FromResult(7)
		}, context.Background(), ec)
	}

	exec()
	time.Sleep(20 * time.Millisecond)
	exec()

	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestCache_DeduplicateMissesCollapsesConcurrentCalls(t *testing.T) {
	provider := cachestrategy.NewMemoryProvider()
	var calls int32
	c := cachestrategy.New[int](cachestrategy.Options[int]{
		Provider:          provider,
		Encode:            jsonEncode[int],
		Decode:            jsonDecode[int],
		DeduplicateMisses: true,
		TTL:               time.Minute,
	})

	start := make(chan struct{})
	done := make(chan core.Outcome[int], 5)
	for i := 0; i < 5; i++ {
		go func() {
			<-start
			ec := core.Acquire(context.Background(), "shared-key")
			defer ec.Release()
			out := c.Execute(func(ctx context.Context, ec *core.ExecutionContext) core.Outcome[int] {
				atomic.AddInt32(&calls, 1)
				time.Sleep(20 * time.Millisecond)
				return core.FromResult(99)
			}, context.Background(), ec)
			done <- out
		}()
	}
	close(start)

	for i := 0; i < 5; i++ {
		out := <-done
		require.False(t, out.IsException())
		assert.Equal(t, 99, out.Result())
	}

	assert.LessOrEqual(t, atomic.LoadInt32(&calls), int32(2), "singleflight should collapse most concurrent misses")
}

func TestCache_EmptyKeyBypassesProviderEntirely(t *testing.T) {
	provider := cachestrategy.NewMemoryProvider()
	var calls int32
	c := cachestrategy.New[int](cachestrategy.Options[int]{
		Provider: provider,
		Encode:   jsonEncode[int],
		Decode:   jsonDecode[int],
		TTL:      time.Minute,
		KeyFunc:  func(ec *core.ExecutionContext) string { return "" },
	})

	exec := func() core.Outcome[int] {
		ec := core.Acquire(context.Background(), "")
		defer ec.Release()
		return c.Execute(func(ctx context.Context, ec *core.ExecutionContext) core.Outcome[int] {
			atomic.AddInt32(&calls, 1)
			return core.FromResult(42)
		}, context.Background(), ec)
	}

	exec()
	exec()

	assert.Equal(t, int32(2), atomic.LoadInt32(&calls), "an unset key must bypass the cache, never hitting the provider")

	_, ok, err := provider.Get(context.Background(), "")
	require.NoError(t, err)
	assert.False(t, ok, "provider must never have been written to")
}

func TestCache_NonPositiveTTLNeverCaches(t *testing.T) {
	provider := cachestrategy.NewMemoryProvider()
	var calls int32
	c := cachestrategy.New[int](cachestrategy.Options[int]{
		Provider: provider,
		Encode:   jsonEncode[int],
		Decode:   jsonDecode[int],
	})

	exec := func() core.Outcome[int] {
		ec := core.Acquire(context.Background(), "key-1")
		defer ec.Release()
		return c.Execute(func(ctx context.Context, ec *core.ExecutionContext) core.Outcome[int] {
			atomic.AddInt32(&calls, 1)
			return core.FromResult(42)
		}, context.Background(), ec)
	}

	exec()
	exec()

	assert.Equal(t, int32(2), atomic.LoadInt32(&calls), "the zero-value TTL must suppress caching")
}

func TestCache_HooksFireOnMissHitAndPut(t *testing.T) {
	provider := cachestrategy.NewMemoryProvider()
	var misses, hits, puts int32
	c := cachestrategy.New[int](cachestrategy.Options[int]{
		Provider: provider,
		Encode:   jsonEncode[int],
		Decode:   jsonDecode[int],
		TTL:      time.Minute,
		OnMiss:   func(ec *core.ExecutionContext, key string) { atomic.AddInt32(&misses, 1) },
		OnHit:    func(ec *core.ExecutionContext, key string) { atomic.AddInt32(&hits, 1) },
		OnPut:    func(ec *core.ExecutionContext, key string) { atomic.AddInt32(&puts, 1) },
	})

	exec := func() core.Outcome[int] {
		ec := core.Acquire(context.Background(), "key-1")
		defer ec.Release()
		return c.Execute(func(ctx context.Context, ec *core.ExecutionContext) core.Outcome[int] {
			return core.FromResult(42)
		}, context.Background(), ec)
	}

	exec()
	exec()

	assert.Equal(t, int32(1), atomic.LoadInt32(&misses))
	assert.Equal(t, int32(1), atomic.LoadInt32(&puts))
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestCache_OnGetErrorFiresAndStillRunsNext(t *testing.T) {
	var calls, getErrors int32
	c := cachestrategy.New[int](cachestrategy.Options[int]{
		Provider:   failingGetProvider{},
		Encode:     jsonEncode[int],
		Decode:     jsonDecode[int],
		TTL:        time.Minute,
		OnGetError: func(ec *core.ExecutionContext, key string, err error) { atomic.AddInt32(&getErrors, 1) },
	})

	ec := core.Acquire(context.Background(), "key-1")
	defer ec.Release()
	out := c.Execute(func(ctx context.Context, ec *core.ExecutionContext) core.Outcome[int] {
		atomic.AddInt32(&calls, 1)
		return core.FromResult(1)
	}, context.Background(), ec)

	require.False(t, out.IsException())
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Equal(t, int32(1), atomic.LoadInt32(&getErrors))
}

type failingGetProvider struct{}

func (failingGetProvider) Get(ctx context.Context, key string) (cachestrategy.Entry, bool, error) {
	return cachestrategy.Entry{}, false, errors.New("provider unavailable")
}

func (failingGetProvider) Set(ctx context.Context, key string, entry cachestrategy.Entry, ttl time.Duration) error {
	return nil
}

func TestCacheOptions_ValidateRequiresProviderAndCodec(t *testing.T) {
	assert.Error(t, cachestrategy.Options[int]{}.Validate())
}
