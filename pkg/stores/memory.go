package stores

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/agentvault/agentvault-go/pkg/a2a"
	"github.com/agentvault/agentvault-go/pkg/errors"
)

// subscriberBuffer is the per-subscriber channel capacity before events
// start being dropped.
const subscriberBuffer = 16

type taskRecord struct {
	task a2a.Task
	subs []chan a2a.Event
}

/*
InMemoryTaskStore is the reference TaskStore: a map under a single mutex
with per-task broadcast channels.  Events to subscribers that cannot keep
up are dropped rather than blocking the publisher.
*/
type InMemoryTaskStore struct {
	mu    sync.Mutex
	tasks map[string]*taskRecord
}

func NewInMemoryTaskStore() *InMemoryTaskStore {
	return &InMemoryTaskStore{
		tasks: make(map[string]*taskRecord),
	}
}

func (store *InMemoryTaskStore) CreateTask(ctx context.Context, initial a2a.Message) (*a2a.Task, *errors.RpcError) {
	now := time.Now().UTC()

	task := a2a.Task{
		ID: uuid.NewString(),
		Status: a2a.TaskStatus{
			State:     a2a.TaskStateSubmitted,
			Timestamp: now,
		},
		Messages:  []a2a.Message{initial},
		CreatedAt: now,
		UpdatedAt: now,
	}

	store.mu.Lock()
	store.tasks[task.ID] = &taskRecord{task: task}
	store.mu.Unlock()

	log.Info("task created", "task", task.ID)

	snapshot := task
	return &snapshot, nil
}

func (store *InMemoryTaskStore) GetTask(ctx context.Context, id string) (*a2a.Task, *errors.RpcError) {
	store.mu.Lock()
	defer store.mu.Unlock()

	rec, ok := store.tasks[id]

	if !ok {
		return nil, errors.ErrTaskNotFound
	}

	snapshot := snapshotTask(&rec.task)
	return &snapshot, nil
}

func (store *InMemoryTaskStore) AppendMessage(ctx context.Context, id string, msg a2a.Message) *errors.RpcError {
	store.mu.Lock()
	defer store.mu.Unlock()

	rec, ok := store.tasks[id]

	if !ok {
		return errors.ErrTaskNotFound
	}

	now := time.Now().UTC()
	rec.task.Messages = append(rec.task.Messages, msg)
	rec.task.UpdatedAt = now

	store.publishLocked(rec, a2a.TaskMessageEvent{
		TaskID:    id,
		Message:   msg,
		Timestamp: now,
	})

	return nil
}

func (store *InMemoryTaskStore) AppendArtifact(ctx context.Context, id string, artifact a2a.Artifact) *errors.RpcError {
	store.mu.Lock()
	defer store.mu.Unlock()

	rec, ok := store.tasks[id]

	if !ok {
		return errors.ErrTaskNotFound
	}

	now := time.Now().UTC()
	replaced := false

	for i := range rec.task.Artifacts {
		if rec.task.Artifacts[i].ID == artifact.ID {
			artifact.Version = rec.task.Artifacts[i].Version + 1
			rec.task.Artifacts[i] = artifact
			replaced = true
			break
		}
	}

	if !replaced {
		if artifact.Version == 0 {
			artifact.Version = 1
		}
		rec.task.Artifacts = append(rec.task.Artifacts, artifact)
	}

	rec.task.UpdatedAt = now

	store.publishLocked(rec, a2a.TaskArtifactUpdateEvent{
		TaskID:    id,
		Artifact:  artifact,
		Timestamp: now,
	})

	return nil
}

func (store *InMemoryTaskStore) SetState(ctx context.Context, id string, state a2a.TaskState) (bool, *errors.RpcError) {
	store.mu.Lock()
	defer store.mu.Unlock()

	rec, ok := store.tasks[id]

	if !ok {
		return false, errors.ErrTaskNotFound
	}

	if !rec.task.Status.State.CanTransitionTo(state) {
		return false, nil
	}

	now := time.Now().UTC()
	rec.task.Status = a2a.TaskStatus{State: state, Timestamp: now}
	rec.task.UpdatedAt = now

	log.Info("task state changed", "task", id, "state", state)

	evt := a2a.TaskStatusUpdateEvent{
		TaskID:    id,
		State:     state,
		Timestamp: now,
	}

	// Exactly one terminal status event is emitted per task, and it is the
	// final event a subscriber sees.  It is exempt from the slow-subscriber
	// drop policy: a full buffer sheds its oldest event to make room.
	if state.Terminal() {
		for _, sub := range rec.subs {
			deliverTerminal(sub, evt)
			close(sub)
		}
		rec.subs = nil

		return true, nil
	}

	store.publishLocked(rec, evt)

	return true, nil
}

func deliverTerminal(sub chan a2a.Event, evt a2a.Event) {
	for {
		select {
		case sub <- evt:
			return
		default:
		}

		select {
		case dropped := <-sub:
			log.Warn("dropping event for slow subscriber to deliver terminal status",
				"event", dropped.EventName())
		default:
		}
	}
}

func (store *InMemoryTaskStore) Subscribe(ctx context.Context, id string) (<-chan a2a.Event, *errors.RpcError) {
	store.mu.Lock()
	defer store.mu.Unlock()

	rec, ok := store.tasks[id]

	if !ok {
		return nil, errors.ErrTaskNotFound
	}

	ch := make(chan a2a.Event, subscriberBuffer)

	// A task that already reached a terminal state produces no further
	// events; hand back a closed channel.
	if rec.task.Status.State.Terminal() {
		close(ch)
		return ch, nil
	}

	rec.subs = append(rec.subs, ch)
	return ch, nil
}

func (store *InMemoryTaskStore) publishLocked(rec *taskRecord, evt a2a.Event) {
	for _, sub := range rec.subs {
		select {
		case sub <- evt:
		default:
			log.Warn("dropping event for slow subscriber", "event", evt.EventName())
		}
	}
}

func snapshotTask(task *a2a.Task) a2a.Task {
	snapshot := *task
	snapshot.Messages = append([]a2a.Message(nil), task.Messages...)
	snapshot.Artifacts = append([]a2a.Artifact(nil), task.Artifacts...)
	return snapshot
}
