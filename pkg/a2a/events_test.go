package a2a

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestDecodeEvent(t *testing.T) {
	Convey("Given raw SSE event payloads", t, func() {
		Convey("A task_status payload decodes into a status update", func() {
			evt, err := DecodeEvent(EventNameStatus,
				[]byte(`{"taskId":"t-1","state":"WORKING","timestamp":"2025-01-01T00:00:00Z"}`))

			So(err, ShouldBeNil)

			status, ok := evt.(TaskStatusUpdateEvent)
			So(ok, ShouldBeTrue)
			So(status.TaskID, ShouldEqual, "t-1")
			So(status.State, ShouldEqual, TaskStateWorking)
		})

		Convey("A task_message payload decodes into a message event", func() {
			evt, err := DecodeEvent(EventNameMessage,
				[]byte(`{"taskId":"t-1","message":{"role":"agent","parts":[{"type":"text","text":"hi"}]}}`))

			So(err, ShouldBeNil)

			msg, ok := evt.(TaskMessageEvent)
			So(ok, ShouldBeTrue)
			So(msg.Message.Parts[0].Text, ShouldEqual, "hi")
		})

		Convey("The plain message event name aliases task_message", func() {
			evt, err := DecodeEvent(EventNameMessageAlias,
				[]byte(`{"taskId":"t-1","message":{"role":"agent","parts":[{"type":"text","text":"hi"}]}}`))

			So(err, ShouldBeNil)

			_, ok := evt.(TaskMessageEvent)
			So(ok, ShouldBeTrue)
		})

		Convey("A task_artifact payload decodes into an artifact update", func() {
			evt, err := DecodeEvent(EventNameArtifact,
				[]byte(`{"taskId":"t-1","artifact":{"id":"a-1","parts":[{"type":"text","text":"out"}]}}`))

			So(err, ShouldBeNil)

			artifact, ok := evt.(TaskArtifactUpdateEvent)
			So(ok, ShouldBeTrue)
			So(artifact.Artifact.ID, ShouldEqual, "a-1")
		})

		Convey("An unknown event name is reported as such", func() {
			_, err := DecodeEvent("task_telemetry", []byte(`{}`))

			So(err, ShouldNotBeNil)

			unknown, ok := err.(*ErrUnknownEvent)
			So(ok, ShouldBeTrue)
			So(unknown.Name, ShouldEqual, "task_telemetry")
		})

		Convey("A status event without a task id fails validation", func() {
			_, err := DecodeEvent(EventNameStatus, []byte(`{"state":"WORKING"}`))
			So(err, ShouldNotBeNil)
		})

		Convey("A status event with an unknown state fails validation", func() {
			_, err := DecodeEvent(EventNameStatus, []byte(`{"taskId":"t-1","state":"PONDERING"}`))
			So(err, ShouldNotBeNil)
		})

		Convey("Malformed JSON is rejected", func() {
			_, err := DecodeEvent(EventNameStatus, []byte(`{"taskId":`))
			So(err, ShouldNotBeNil)
		})
	})
}
