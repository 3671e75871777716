package stores

import (
	"context"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/agentvault/agentvault-go/pkg/a2a"
	"github.com/agentvault/agentvault-go/pkg/errors"
)

func TestInMemoryTaskStoreLifecycle(t *testing.T) {
	Convey("Given an in-memory task store", t, func() {
		ctx := context.Background()
		store := NewInMemoryTaskStore()

		Convey("Creating a task seeds it in SUBMITTED with the initial message", func() {
			task, rpcErr := store.CreateTask(ctx, a2a.NewTextMessage("user", "hello"))

			So(rpcErr, ShouldBeNil)
			So(task.ID, ShouldNotBeEmpty)
			So(task.State(), ShouldEqual, a2a.TaskStateSubmitted)
			So(task.Messages, ShouldHaveLength, 1)

			Convey("And the task is retrievable by id", func() {
				got, rpcErr := store.GetTask(ctx, task.ID)

				So(rpcErr, ShouldBeNil)
				So(got.ID, ShouldEqual, task.ID)
			})
		})

		Convey("Looking up an unknown task reports task not found", func() {
			_, rpcErr := store.GetTask(ctx, "nope")

			So(rpcErr, ShouldNotBeNil)
			So(rpcErr.Code, ShouldEqual, errors.ErrTaskNotFound.Code)
		})

		Convey("Permitted transitions are applied, impermissible ones refused", func() {
			task, _ := store.CreateTask(ctx, a2a.NewTextMessage("user", "hello"))

			applied, rpcErr := store.SetState(ctx, task.ID, a2a.TaskStateWorking)
			So(rpcErr, ShouldBeNil)
			So(applied, ShouldBeTrue)

			// WORKING cannot go back to SUBMITTED.
			applied, rpcErr = store.SetState(ctx, task.ID, a2a.TaskStateSubmitted)
			So(rpcErr, ShouldBeNil)
			So(applied, ShouldBeFalse)

			got, _ := store.GetTask(ctx, task.ID)
			So(got.State(), ShouldEqual, a2a.TaskStateWorking)
		})

		Convey("Terminal states admit no further transitions", func() {
			task, _ := store.CreateTask(ctx, a2a.NewTextMessage("user", "hello"))

			store.SetState(ctx, task.ID, a2a.TaskStateWorking)
			applied, _ := store.SetState(ctx, task.ID, a2a.TaskStateCompleted)
			So(applied, ShouldBeTrue)

			applied, rpcErr := store.SetState(ctx, task.ID, a2a.TaskStateCanceled)
			So(rpcErr, ShouldBeNil)
			So(applied, ShouldBeFalse)

			got, _ := store.GetTask(ctx, task.ID)
			So(got.State(), ShouldEqual, a2a.TaskStateCompleted)
		})

		Convey("GetTask hands out snapshots, not live references", func() {
			task, _ := store.CreateTask(ctx, a2a.NewTextMessage("user", "hello"))

			snapshot, _ := store.GetTask(ctx, task.ID)
			snapshot.Messages[0].Parts[0].Text = "tampered"
			snapshot.Messages = append(snapshot.Messages, a2a.NewTextMessage("user", "extra"))

			fresh, _ := store.GetTask(ctx, task.ID)
			So(fresh.Messages, ShouldHaveLength, 1)
		})
	})
}

func TestInMemoryTaskStoreArtifacts(t *testing.T) {
	Convey("Given a task with artifacts", t, func() {
		ctx := context.Background()
		store := NewInMemoryTaskStore()
		task, _ := store.CreateTask(ctx, a2a.NewTextMessage("user", "hello"))

		Convey("A new artifact is stored at version 1", func() {
			rpcErr := store.AppendArtifact(ctx, task.ID, a2a.NewTextArtifact("a-1", "out", "v1"))
			So(rpcErr, ShouldBeNil)

			got, _ := store.GetTask(ctx, task.ID)
			So(got.Artifacts, ShouldHaveLength, 1)
			So(got.Artifacts[0].Version, ShouldEqual, 1)
		})

		Convey("Replacing an artifact bumps its version", func() {
			store.AppendArtifact(ctx, task.ID, a2a.NewTextArtifact("a-1", "out", "v1"))
			store.AppendArtifact(ctx, task.ID, a2a.NewTextArtifact("a-1", "out", "v2"))

			got, _ := store.GetTask(ctx, task.ID)
			So(got.Artifacts, ShouldHaveLength, 1)
			So(got.Artifacts[0].Version, ShouldEqual, 2)
			So(got.Artifacts[0].Parts[0].Text, ShouldEqual, "v2")
		})

		Convey("Distinct artifact ids accumulate", func() {
			store.AppendArtifact(ctx, task.ID, a2a.NewTextArtifact("a-1", "out", "v1"))
			store.AppendArtifact(ctx, task.ID, a2a.NewTextArtifact("a-2", "log", "v1"))

			got, _ := store.GetTask(ctx, task.ID)
			So(got.Artifacts, ShouldHaveLength, 2)
		})
	})
}

func TestInMemoryTaskStoreSubscriptions(t *testing.T) {
	Convey("Given a subscriber on a live task", t, func() {
		ctx := context.Background()
		store := NewInMemoryTaskStore()
		task, _ := store.CreateTask(ctx, a2a.NewTextMessage("user", "hello"))

		events, rpcErr := store.Subscribe(ctx, task.ID)
		So(rpcErr, ShouldBeNil)

		Convey("Mutations arrive in order and the terminal event closes the channel", func() {
			store.SetState(ctx, task.ID, a2a.TaskStateWorking)
			store.AppendMessage(ctx, task.ID, a2a.NewTextMessage("agent", "on it"))
			store.AppendArtifact(ctx, task.ID, a2a.NewTextArtifact("a-1", "out", "done"))
			store.SetState(ctx, task.ID, a2a.TaskStateCompleted)

			var received []a2a.Event

			for evt := range events {
				received = append(received, evt)
			}

			So(received, ShouldHaveLength, 4)

			first, ok := received[0].(a2a.TaskStatusUpdateEvent)
			So(ok, ShouldBeTrue)
			So(first.State, ShouldEqual, a2a.TaskStateWorking)

			_, ok = received[1].(a2a.TaskMessageEvent)
			So(ok, ShouldBeTrue)

			_, ok = received[2].(a2a.TaskArtifactUpdateEvent)
			So(ok, ShouldBeTrue)

			last, ok := received[3].(a2a.TaskStatusUpdateEvent)
			So(ok, ShouldBeTrue)
			So(last.State, ShouldEqual, a2a.TaskStateCompleted)
			So(last.State.Terminal(), ShouldBeTrue)
		})

		Convey("A refused transition emits no event", func() {
			store.SetState(ctx, task.ID, a2a.TaskStateWorking)
			store.SetState(ctx, task.ID, a2a.TaskStateSubmitted) // refused
			store.SetState(ctx, task.ID, a2a.TaskStateCanceled)

			var states []a2a.TaskState

			for evt := range events {
				if status, ok := evt.(a2a.TaskStatusUpdateEvent); ok {
					states = append(states, status.State)
				}
			}

			So(states, ShouldResemble, []a2a.TaskState{a2a.TaskStateWorking, a2a.TaskStateCanceled})
		})
	})

	Convey("A slow subscriber still receives the terminal event last", t, func() {
		ctx := context.Background()
		store := NewInMemoryTaskStore()
		task, _ := store.CreateTask(ctx, a2a.NewTextMessage("user", "hello"))

		events, rpcErr := store.Subscribe(ctx, task.ID)
		So(rpcErr, ShouldBeNil)

		// Overflow the subscriber buffer without draining it, then finish.
		store.SetState(ctx, task.ID, a2a.TaskStateWorking)

		for i := 0; i < 20; i++ {
			store.AppendMessage(ctx, task.ID, a2a.NewTextMessage("agent", "chatter"))
		}

		store.SetState(ctx, task.ID, a2a.TaskStateCompleted)

		var received []a2a.Event

		for evt := range events {
			received = append(received, evt)
		}

		So(received, ShouldNotBeEmpty)

		var terminals int

		for _, evt := range received {
			if status, ok := evt.(a2a.TaskStatusUpdateEvent); ok && status.State.Terminal() {
				terminals++
			}
		}

		So(terminals, ShouldEqual, 1)

		last, ok := received[len(received)-1].(a2a.TaskStatusUpdateEvent)
		So(ok, ShouldBeTrue)
		So(last.State, ShouldEqual, a2a.TaskStateCompleted)
	})

	Convey("Subscribing to a finished task yields a closed channel", t, func() {
		ctx := context.Background()
		store := NewInMemoryTaskStore()
		task, _ := store.CreateTask(ctx, a2a.NewTextMessage("user", "hello"))

		store.SetState(ctx, task.ID, a2a.TaskStateCanceled)

		events, rpcErr := store.Subscribe(ctx, task.ID)
		So(rpcErr, ShouldBeNil)

		_, open := <-events
		So(open, ShouldBeFalse)
	})

	Convey("Subscribing to an unknown task reports task not found", t, func() {
		store := NewInMemoryTaskStore()

		_, rpcErr := store.Subscribe(context.Background(), "nope")
		So(rpcErr, ShouldNotBeNil)
		So(rpcErr.Code, ShouldEqual, errors.ErrTaskNotFound.Code)
	})
}
