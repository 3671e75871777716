package a2a

import "time"

/*
TaskState enumerates the mutually‑exclusive states a task may be in.
*/
type TaskState string

const (
	TaskStateSubmitted     TaskState = "SUBMITTED"
	TaskStateWorking       TaskState = "WORKING"
	TaskStateInputRequired TaskState = "INPUT_REQUIRED"
	TaskStateCompleted     TaskState = "COMPLETED"
	TaskStateFailed        TaskState = "FAILED"
	TaskStateCanceled      TaskState = "CANCELED"
)

// Known reports whether the state is a member of the task state machine.
func (state TaskState) Known() bool {
	switch state {
	case TaskStateSubmitted, TaskStateWorking, TaskStateInputRequired,
		TaskStateCompleted, TaskStateFailed, TaskStateCanceled:
		return true
	}
	return false
}

// Terminal reports whether the state admits no outgoing transitions.
func (state TaskState) Terminal() bool {
	switch state {
	case TaskStateCompleted, TaskStateFailed, TaskStateCanceled:
		return true
	}
	return false
}

/*
CanTransitionTo encodes the task state machine:

	SUBMITTED → WORKING → {COMPLETED, FAILED, CANCELED}
	SUBMITTED → INPUT_REQUIRED ⇄ WORKING
	Any non-terminal → CANCELED
*/
func (state TaskState) CanTransitionTo(next TaskState) bool {
	if state.Terminal() {
		return false
	}

	if next == TaskStateCanceled {
		return true
	}

	switch state {
	case TaskStateSubmitted:
		return next == TaskStateWorking || next == TaskStateInputRequired
	case TaskStateWorking:
		return next == TaskStateInputRequired || next == TaskStateCompleted || next == TaskStateFailed
	case TaskStateInputRequired:
		return next == TaskStateWorking
	}

	return false
}

// TaskStatus pairs a state with the moment it was entered and an optional
// agent message explaining the transition.
type TaskStatus struct {
	State     TaskState `json:"state"`
	Message   *Message  `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
