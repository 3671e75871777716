package a2a

import (
	"encoding/json"
	"fmt"
	"time"
)

// SSE event names carried in the "event:" field of the stream.
const (
	EventNameStatus   = "task_status"
	EventNameMessage  = "task_message"
	EventNameArtifact = "task_artifact"

	// EventNameMessageAlias is the wire default event name; it maps to the
	// same variant as task_message.
	EventNameMessageAlias = "message"
)

/*
Event is the sum type over the three streaming update variants.  The
concrete variant is selected by the SSE event name.
*/
type Event interface {
	// EventName returns the SSE event name this variant is published under.
	EventName() string
	// Validate checks the variant against its schema.
	Validate() error
}

/*
TaskStatusUpdateEvent is sent when the agent wishes to inform the client of
a state transition.
*/
type TaskStatusUpdateEvent struct {
	TaskID    string    `json:"taskId"`
	State     TaskState `json:"state"`
	Timestamp time.Time `json:"timestamp"`
	Message   *Message  `json:"message,omitempty"`
}

func (evt TaskStatusUpdateEvent) EventName() string { return EventNameStatus }

func (evt TaskStatusUpdateEvent) Validate() error {
	if evt.TaskID == "" {
		return ErrMissingField("taskId")
	}
	if !evt.State.Known() {
		return &ValidationError{Field: "state", Reason: fmt.Sprintf("unknown task state %q", evt.State)}
	}
	return nil
}

/*
TaskMessageEvent delivers a new message produced for the task.
*/
type TaskMessageEvent struct {
	TaskID    string    `json:"taskId"`
	Message   Message   `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

func (evt TaskMessageEvent) EventName() string { return EventNameMessage }

func (evt TaskMessageEvent) Validate() error {
	if evt.TaskID == "" {
		return ErrMissingField("taskId")
	}
	if len(evt.Message.Parts) == 0 {
		return ErrMissingField("message.parts")
	}
	return nil
}

/*
TaskArtifactUpdateEvent is emitted when a new or updated artifact is
available for a task.
*/
type TaskArtifactUpdateEvent struct {
	TaskID    string    `json:"taskId"`
	Artifact  Artifact  `json:"artifact"`
	Timestamp time.Time `json:"timestamp"`
}

func (evt TaskArtifactUpdateEvent) EventName() string { return EventNameArtifact }

func (evt TaskArtifactUpdateEvent) Validate() error {
	if evt.TaskID == "" {
		return ErrMissingField("taskId")
	}
	return evt.Artifact.Validate()
}

// ErrUnknownEvent reports an SSE event name outside the protocol's variant
// set.
type ErrUnknownEvent struct {
	Name string
}

func (e *ErrUnknownEvent) Error() string {
	return fmt.Sprintf("unknown event name %q", e.Name)
}

/*
DecodeEvent dispatches raw event data to the variant selected by the SSE
event name and validates the result.  "message" is accepted as an alias
for task_message.
*/
func DecodeEvent(name string, data []byte) (Event, error) {
	var (
		evt Event
		err error
	)

	switch name {
	case EventNameStatus:
		var status TaskStatusUpdateEvent
		err = json.Unmarshal(data, &status)
		evt = status
	case EventNameMessage, EventNameMessageAlias:
		var message TaskMessageEvent
		err = json.Unmarshal(data, &message)
		evt = message
	case EventNameArtifact:
		var artifact TaskArtifactUpdateEvent
		err = json.Unmarshal(data, &artifact)
		evt = artifact
	default:
		return nil, &ErrUnknownEvent{Name: name}
	}

	if err != nil {
		return nil, err
	}

	if err := evt.Validate(); err != nil {
		return nil, err
	}

	return evt, nil
}
