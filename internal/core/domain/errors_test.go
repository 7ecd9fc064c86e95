package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPipelineError_Error(t *testing.T) {
	t.Run("with cause", func(t *testing.T) {
		cause := errors.New("connection reset")
		err := NewPipelineError(FailureEmbedding, "embed batch 3", cause)

		assert.Equal(t, "[embedding] embed batch 3: connection reset", err.Error())
	})

	t.Run("without cause", func(t *testing.T) {
		err := NewPipelineError(FailureConfiguration, "OPENAI_API_KEY not set", nil)

		assert.Equal(t, "[configuration] OPENAI_API_KEY not set", err.Error())
	})
}

func TestPipelineError_Unwrap(t *testing.T) {
	err := NewPipelineError(FailureEmbedding, "embed batch", ErrRateLimited)

	assert.ErrorIs(t, err, ErrRateLimited)
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"rate limited", ErrRateLimited, true},
		{"transient", ErrTransient, true},
		{"wrapped rate limited", fmt.Errorf("call failed: %w", ErrRateLimited), true},
		{"wrapped transient", fmt.Errorf("call failed: %w", ErrTransient), true},
		{"invalid input", ErrInvalidInput, false},
		{"missing credentials", ErrMissingCredentials, false},
		{"plain error", errors.New("boom"), false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}

func TestAsPipelineError(t *testing.T) {
	t.Run("passes through classified errors", func(t *testing.T) {
		orig := NewPipelineError(FailureStorage, "upsert", errors.New("boom"))
		wrapped := fmt.Errorf("writer: %w", orig)

		got := AsPipelineError(wrapped, FailureEmbedding, "ignored")

		require.NotNil(t, got)
		assert.Equal(t, FailureStorage, got.Kind)
		assert.Equal(t, "upsert", got.Message)
	})

	t.Run("wraps plain errors", func(t *testing.T) {
		got := AsPipelineError(errors.New("boom"), FailureEmbedding, "embed chunk")

		require.NotNil(t, got)
		assert.Equal(t, FailureEmbedding, got.Kind)
		assert.Equal(t, "embed chunk", got.Message)
		assert.EqualError(t, got.Err, "boom")
	})
}
