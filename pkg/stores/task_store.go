package stores

import (
	"context"

	"github.com/agentvault/agentvault-go/pkg/a2a"
	"github.com/agentvault/agentvault-go/pkg/errors"
)

/*
TaskStore maps task ids to task state and is the sole shared mutable state
on the server side: every handler-visible mutation goes through this
interface.  Implementations may be concurrent; the contracts are
synchronous from the handler's perspective.
*/
type TaskStore interface {
	// CreateTask allocates a task in state SUBMITTED seeded with the
	// initial message.
	CreateTask(ctx context.Context, initial a2a.Message) (*a2a.Task, *errors.RpcError)

	// GetTask returns a snapshot of the task, or ErrTaskNotFound.
	GetTask(ctx context.Context, id string) (*a2a.Task, *errors.RpcError)

	// AppendMessage adds a message to the task's ordered history.
	AppendMessage(ctx context.Context, id string, msg a2a.Message) *errors.RpcError

	// AppendArtifact attaches or replaces an artifact; replacing bumps the
	// artifact's version monotonically.
	AppendArtifact(ctx context.Context, id string, artifact a2a.Artifact) *errors.RpcError

	// SetState requests a state transition.  It returns false without side
	// effects when the transition is not permitted by the state machine
	// (in particular from any terminal state).
	SetState(ctx context.Context, id string, state a2a.TaskState) (bool, *errors.RpcError)

	// Subscribe returns a channel of the task's update events.  The channel
	// is closed after the terminal status event has been delivered.  Slow
	// subscribers may have events dropped.
	Subscribe(ctx context.Context, id string) (<-chan a2a.Event, *errors.RpcError)
}
