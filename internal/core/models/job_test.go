package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from JobStatus
		to   JobStatus
		ok   bool
	}{
		{JobPending, JobProcessing, true},
		{JobPending, JobCompleted, true},
		{JobPending, JobFailed, true},
		{JobPending, JobCancelled, true},
		{JobProcessing, JobCompleted, true},
		{JobProcessing, JobFailed, true},
		{JobProcessing, JobCancelled, true},

		{JobProcessing, JobProcessing, false},
		{JobProcessing, JobPending, false},
		{JobCompleted, JobProcessing, false},
		{JobCompleted, JobFailed, false},
		{JobFailed, JobProcessing, false},
		{JobCancelled, JobCompleted, false},
		{JobPending, JobPending, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.ok, CanTransition(tt.from, tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestTerminal(t *testing.T) {
	assert.False(t, JobPending.Terminal())
	assert.False(t, JobProcessing.Terminal())
	assert.True(t, JobCompleted.Terminal())
	assert.True(t, JobFailed.Terminal())
	assert.True(t, JobCancelled.Terminal())
}

func TestPercentOf(t *testing.T) {
	assert.Equal(t, 0, PercentOf(0, 100))
	assert.Equal(t, 50, PercentOf(50, 100))
	assert.Equal(t, 100, PercentOf(100, 100))
	assert.Equal(t, 100, PercentOf(150, 100))
	assert.Equal(t, 33, PercentOf(1, 3))
	assert.Equal(t, 0, PercentOf(10, 0))
}
