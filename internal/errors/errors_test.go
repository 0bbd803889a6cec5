package errors

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapKeepsSentinel(t *testing.T) {
	err := WrapInvalid(ErrInvalidArgument, "cache", "PutWork", "work is nil")
	require.Error(t, err)

	assert.True(t, Is(err, ErrInvalidArgument))
	assert.True(t, IsInvalid(err))
	assert.False(t, IsTransient(err))
	assert.Equal(t, "cache.PutWork: work is nil: invalid argument", err.Error())

	var ce *ClassifiedError
	require.True(t, As(err, &ce))
	assert.Equal(t, "cache", ce.Component)
	assert.Equal(t, "PutWork", ce.Operation)
}

func TestWrapNil(t *testing.T) {
	assert.NoError(t, Wrap(nil, "a", "b", "c"))
	assert.NoError(t, WrapTransient(nil, "a", "b", "c"))
	assert.NoError(t, WrapInvalid(nil, "a", "b", "c"))
	assert.NoError(t, WrapFatal(nil, "a", "b", "c"))
}

func TestClassOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Class
	}{
		{"plain", New("boom"), ClassTransient},
		{"not found", fmt.Errorf("object 7: %w", ErrNotFound), ClassInvalid},
		{"incomplete", ErrIncompleteData, ClassInvalid},
		{"config", ErrInvalidConfig, ClassFatal},
		{"classified wins", WrapTransient(ErrNotFound, "metapi", "get", "status 404"), ClassTransient},
		{"fatal", WrapFatal(New("disk"), "x", "y", "z"), ClassFatal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassOf(tt.err))
		})
	}
}

func TestContextErrorsAreNotRetried(t *testing.T) {
	assert.False(t, IsTransient(context.Canceled))
	assert.False(t, IsTransient(fmt.Errorf("get: %w", context.DeadlineExceeded)))
	assert.False(t, IsTransient(nil))
}

func TestClassString(t *testing.T) {
	assert.Equal(t, "transient", ClassTransient.String())
	assert.Equal(t, "invalid", ClassInvalid.String())
	assert.Equal(t, "fatal", ClassFatal.String())
	assert.Equal(t, "unknown", Class(42).String())
}
