package a2a

import "time"

/*
Task is a stateful, long-running conversation between a client and an
agent, identified by a server-assigned id.  It carries the ordered message
history, any produced artifacts and lifecycle timestamps.
*/
type Task struct {
	ID        string         `json:"id"`
	Status    TaskStatus     `json:"status"`
	Messages  []Message      `json:"messages,omitempty"`
	Artifacts []Artifact     `json:"artifacts,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// State is a shorthand for the current lifecycle state.
func (task *Task) State() TaskState {
	return task.Status.State
}

func (task *Task) LastMessage() *Message {
	if len(task.Messages) == 0 {
		return nil
	}

	return &task.Messages[len(task.Messages)-1]
}

// JSON-RPC method names of the task lifecycle surface.
const (
	MethodTaskSend      = "tasks/send"
	MethodTaskGet       = "tasks/get"
	MethodTaskCancel    = "tasks/cancel"
	MethodTaskSubscribe = "tasks/sendSubscribe"
)

// TaskSendParams carries the parameters of tasks/send.  A nil ID is sent
// as an explicit null and asks the server to create a fresh task; servers
// accept an absent id the same way.
type TaskSendParams struct {
	ID      *string `json:"id"`
	Message Message `json:"message"`
}

// TaskID returns the addressed task id, empty when the params ask for a
// new task.
func (p *TaskSendParams) TaskID() string {
	if p.ID == nil {
		return ""
	}
	return *p.ID
}

// TaskSendResult acknowledges a tasks/send call with the (possibly newly
// assigned) task id.
type TaskSendResult struct {
	ID string `json:"id"`
}

// TaskGetParams identifies the task for tasks/get.
type TaskGetParams struct {
	ID string `json:"id"`
}

// TaskCancelParams identifies the task for tasks/cancel.
type TaskCancelParams struct {
	ID string `json:"id"`
}

// TaskCancelResult reports whether the cancellation was applied.  A false
// Success is a successful RPC: the task could not be cancelled, typically
// because it already reached a terminal state.
type TaskCancelResult struct {
	Success bool    `json:"success"`
	Message *string `json:"message,omitempty"`
}

// TaskSubscribeParams identifies the task for tasks/sendSubscribe.
type TaskSubscribeParams struct {
	ID string `json:"id"`
}
