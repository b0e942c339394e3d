package mcp

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetrics(t *testing.T) {
	m := NewMetrics(nil)
	require.NotNil(t, m)

	// With no meter provider configured these are no-ops; they must not panic.
	ctx := context.Background()
	m.IncrementActive(ctx, "orchestrate_workflow")
	m.RecordInvocation(ctx, "orchestrate_workflow", 10*time.Millisecond, nil)
	m.RecordInvocation(ctx, "orchestrate_workflow", 10*time.Millisecond, errors.New("stage validation failed"))
	m.DecrementActive(ctx, "orchestrate_workflow")
}

func TestCategorizeError(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{errors.New("goal is invalid"), "validation_error"},
		{errors.New("no pattern available"), "not_found"},
		{errors.New("context deadline exceeded"), "timeout"},
		{errors.New("context canceled"), "cancelled"},
		{errors.New("stage workflow-generation failed"), "stage_error"},
		{errors.New("something else"), "internal_error"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, categorizeError(tt.err), "%v", tt.err)
	}
}
