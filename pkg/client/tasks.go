package client

import (
	"context"

	"github.com/charmbracelet/log"

	"github.com/agentvault/agentvault-go/pkg/a2a"
	"github.com/agentvault/agentvault-go/pkg/errors"
)

/*
InitiateTask opens a new task on the remote agent seeded with the initial
message and returns the server-assigned task id.
*/
func (ac *AgentClient) InitiateTask(ctx context.Context, initial a2a.Message) (string, error) {
	if err := initial.Validate(); err != nil {
		return "", errors.Messagef("invalid initial message: %v", err)
	}

	var result a2a.TaskSendResult

	params := a2a.TaskSendParams{Message: initial}

	if err := ac.call(ctx, "init", a2a.MethodTaskSend, params, &result); err != nil {
		return "", err
	}

	if result.ID == "" {
		return "", errors.Messagef("agent acknowledged task initiation without a task id")
	}

	log.Debug("task initiated", "agent", ac.Card.Name, "task", result.ID)

	return result.ID, nil
}

// SendMessage appends a message to an existing task's conversation.
func (ac *AgentClient) SendMessage(ctx context.Context, taskID string, msg a2a.Message) error {
	if taskID == "" {
		return errors.Messagef("task id must not be empty")
	}

	if err := msg.Validate(); err != nil {
		return errors.Messagef("invalid message: %v", err)
	}

	params := a2a.TaskSendParams{ID: &taskID, Message: msg}

	return ac.call(ctx, "send", a2a.MethodTaskSend, params, nil)
}

// GetTaskStatus fetches the current snapshot of a task.
func (ac *AgentClient) GetTaskStatus(ctx context.Context, taskID string) (*a2a.Task, error) {
	if taskID == "" {
		return nil, errors.Messagef("task id must not be empty")
	}

	var task a2a.Task

	if err := ac.call(ctx, "get", a2a.MethodTaskGet, a2a.TaskGetParams{ID: taskID}, &task); err != nil {
		return nil, err
	}

	if task.ID != taskID {
		return nil, errors.Messagef(
			"agent returned task %q for a query about task %q", task.ID, taskID)
	}

	return &task, nil
}

/*
TerminateTask requests cancellation of a task.  It returns true when the
agent applied the cancellation, false when the task could not be cancelled
(typically because it already finished); both are successful calls.
*/
func (ac *AgentClient) TerminateTask(ctx context.Context, taskID string) (bool, error) {
	if taskID == "" {
		return false, errors.Messagef("task id must not be empty")
	}

	var result a2a.TaskCancelResult

	if err := ac.call(ctx, "cancel", a2a.MethodTaskCancel, a2a.TaskCancelParams{ID: taskID}, &result); err != nil {
		return false, err
	}

	if !result.Success && result.Message != nil {
		log.Debug("cancellation not applied", "task", taskID, "reason", *result.Message)
	}

	return result.Success, nil
}
