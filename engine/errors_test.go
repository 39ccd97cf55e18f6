package engine

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCancelError_Error(t *testing.T) {
	err := cancelWith(ErrSuperseded, "/a/", nil)
	assert.Equal(t, "SUPERSEDED: superseded by another match (pattern=/a/)", err.Error())

	err = cancelWith(ErrUpstreamClosed, "", errors.New("broken pipe"))
	assert.Equal(t, "UPSTREAM_CLOSED: input closed: broken pipe", err.Error())

	assert.Equal(t, "TIMED_OUT: timed out", ErrTimedOut.Error())
}

func TestCancelError_IsComparesCodes(t *testing.T) {
	err := fmt.Errorf("step 2: %w", cancelWith(ErrTimedOut, "/z/", nil))

	assert.ErrorIs(t, err, ErrTimedOut)
	assert.NotErrorIs(t, err, ErrSuperseded)
	assert.NotErrorIs(t, err, ErrTimeoutCleared, "cleared is observably different from timed out")
}

func TestCancelError_UnwrapsCause(t *testing.T) {
	cause := errors.New("read failed")
	err := cancelWith(ErrUpstreamClosed, "", cause)

	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, ErrUpstreamClosed)
}

func TestIsHelpers(t *testing.T) {
	tests := []struct {
		err  error
		is   func(error) bool
		name string
	}{
		{ErrSuperseded, IsSuperseded, "superseded"},
		{ErrTimedOut, IsTimedOut, "timed out"},
		{ErrTimeoutCleared, IsTimeoutCleared, "timeout cleared"},
		{ErrUpstreamClosed, IsUpstreamClosed, "upstream closed"},
		{ErrCancelled, IsCancelled, "cancelled"},
		{ErrStopped, IsStopped, "stopped"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("wrapped: %w", cancelWith(tt.err.(*CancelError), "p", nil))
			assert.True(t, tt.is(wrapped))
			assert.False(t, tt.is(errors.New("other")))
			assert.False(t, tt.is(nil))
		})
	}
}
