package a2a

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTaskStateMachine(t *testing.T) {
	allowed := []struct {
		from, to TaskState
	}{
		{TaskStateSubmitted, TaskStateWorking},
		{TaskStateSubmitted, TaskStateInputRequired},
		{TaskStateSubmitted, TaskStateCanceled},
		{TaskStateWorking, TaskStateInputRequired},
		{TaskStateWorking, TaskStateCompleted},
		{TaskStateWorking, TaskStateFailed},
		{TaskStateWorking, TaskStateCanceled},
		{TaskStateInputRequired, TaskStateWorking},
		{TaskStateInputRequired, TaskStateCanceled},
	}

	for _, tc := range allowed {
		assert.True(t, tc.from.CanTransitionTo(tc.to), "%s -> %s should be allowed", tc.from, tc.to)
	}

	denied := []struct {
		from, to TaskState
	}{
		{TaskStateSubmitted, TaskStateCompleted},
		{TaskStateSubmitted, TaskStateFailed},
		{TaskStateInputRequired, TaskStateCompleted},
		{TaskStateCompleted, TaskStateWorking},
		{TaskStateCompleted, TaskStateCanceled},
		{TaskStateFailed, TaskStateCanceled},
		{TaskStateCanceled, TaskStateWorking},
		{TaskStateCanceled, TaskStateCanceled},
	}

	for _, tc := range denied {
		assert.False(t, tc.from.CanTransitionTo(tc.to), "%s -> %s should be denied", tc.from, tc.to)
	}
}

func TestTaskStateProperties(t *testing.T) {
	for _, state := range []TaskState{TaskStateCompleted, TaskStateFailed, TaskStateCanceled} {
		assert.True(t, state.Terminal())
	}

	for _, state := range []TaskState{TaskStateSubmitted, TaskStateWorking, TaskStateInputRequired} {
		assert.False(t, state.Terminal())
	}

	assert.True(t, TaskStateWorking.Known())
	assert.False(t, TaskState("PONDERING").Known())
}
