package core_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/1mb-dev/resilience/internal/core"
)

func TestPredicateBuilder_DefaultHandlesExceptionsOnly(t *testing.T) {
	pred := core.NewPredicateBuilder[int]().Build()

	assert.True(t, pred(core.FromError[int](errors.New("x"))))
	assert.False(t, pred(core.FromResult(1)))
}

func TestPredicateBuilder_HandleResult(t *testing.T) {
	pred := core.NewPredicateBuilder[int]().
		HandleResult(func(v int) bool { return v < 0 }).
		Build()

	assert.True(t, pred(core.FromResult(-1)))
	assert.False(t, pred(core.FromResult(1)))
	assert.False(t, pred(core.FromError[int](errors.New("x"))))
}

func TestPredicateBuilder_HandleErrorSpecific(t *testing.T) {
	sentinel := errors.New("retryable")
	pred := core.NewPredicateBuilder[int]().
		HandleError(func(err error) bool { return errors.Is(err, sentinel) }).
		Build()

	assert.True(t, pred(core.FromError[int](sentinel)))
	assert.False(t, pred(core.FromError[int](errors.New("other"))))
}

func TestPredicateBuilder_ChecksCombineWithOR(t *testing.T) {
	pred := core.NewPredicateBuilder[int]().
		HandleResult(func(v int) bool { return v == 0 }).
		HandleAllExceptions().
		Build()

	assert.True(t, pred(core.FromResult(0)))
	assert.False(t, pred(core.FromResult(1)))
	assert.True(t, pred(core.FromError[int](errors.New("any"))))
}
