package client

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/agentvault/agentvault-go/pkg/a2a"
	"github.com/agentvault/agentvault-go/pkg/errors"
	"github.com/agentvault/agentvault-go/pkg/jsonrpc"
	"github.com/agentvault/agentvault-go/pkg/sse"
)

/*
EventStream is a live subscription to one task's updates.  Consume Events
until the channel closes, then check Err for the reason the stream ended:
nil after the task's terminal event, non-nil on transport or protocol
failure.
*/
type EventStream struct {
	events chan a2a.Event
	cancel context.CancelFunc

	mu  sync.Mutex
	err error
}

// Events is the stream of decoded task update events.
func (stream *EventStream) Events() <-chan a2a.Event {
	return stream.events
}

// Err reports why the stream ended.  Only meaningful after the Events
// channel has closed.
func (stream *EventStream) Err() error {
	stream.mu.Lock()
	defer stream.mu.Unlock()

	return stream.err
}

// Close tears the subscription down.  Closing an already ended stream is a
// no-op.
func (stream *EventStream) Close() {
	stream.cancel()
}

func (stream *EventStream) setErr(err error) {
	stream.mu.Lock()
	defer stream.mu.Unlock()

	if stream.err == nil {
		stream.err = err
	}
}

/*
ReceiveMessages subscribes to a task's update events over Server-Sent
Events.  The subscription request itself fails fast (task not found, auth
failure); after that, events arrive on the returned stream until the
task's terminal status event or a failure.

The stream is not bounded by the client's per-call timeout; cancel the
context or Close the stream to stop early.
*/
func (ac *AgentClient) ReceiveMessages(ctx context.Context, taskID string) (*EventStream, error) {
	if taskID == "" {
		return nil, errors.Messagef("task id must not be empty")
	}

	req, err := jsonrpc.NewRequest(
		fmt.Sprintf("req-sub-%s", uuid.NewString()),
		a2a.MethodTaskSubscribe,
		a2a.TaskSubscribeParams{ID: taskID},
	)

	if err != nil {
		return nil, errors.Messagef("failed to encode subscribe params: %v", err)
	}

	streamCtx, cancel := context.WithCancel(ctx)

	// A dedicated client without a timeout keeps long-lived streams open.
	streamClient := &http.Client{Transport: ac.httpClient.Transport}

	resp, err := ac.roundTrip(streamCtx, streamClient, req, "text/event-stream")

	if err != nil {
		cancel()
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		cancel()
		return nil, remoteHTTPError(resp.StatusCode, body)
	}

	// A JSON reply means the server declined the subscription with a
	// regular JSON-RPC envelope instead of opening a stream.
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		cancel()

		if readErr != nil {
			return nil, errors.Connectionf("failed to read subscribe response: %v", readErr)
		}

		if err := decodeEnvelope(body, nil); err != nil {
			return nil, err
		}

		return nil, errors.Messagef("agent answered a stream subscription with a plain result")
	}

	stream := &EventStream{
		events: make(chan a2a.Event),
		cancel: cancel,
	}

	go stream.consume(streamCtx, resp.Body, taskID)

	return stream, nil
}

// consume decodes SSE frames into task events until the stream ends.
func (stream *EventStream) consume(ctx context.Context, body io.ReadCloser, taskID string) {
	defer close(stream.events)
	defer body.Close()

	dec := sse.NewDecoder(body)

	for {
		frame, err := dec.Next()

		if err != nil {
			if stderrors.Is(err, io.EOF) || ctx.Err() != nil {
				return
			}

			stream.setErr(errors.Connectionf("event stream for task %s broke: %v", taskID, err))
			return
		}

		if frame.Name == "error" {
			if err := streamErrorFrame(taskID, frame.Data); err != nil {
				stream.setErr(err)
				return
			}

			continue
		}

		evt, err := a2a.DecodeEvent(frame.Name, frame.Data)

		// Defective events are dropped, not fatal: only the transport can
		// end the stream abnormally.
		if err != nil {
			var unknown *a2a.ErrUnknownEvent

			if stderrors.As(err, &unknown) {
				log.Warn("skipping unknown event type", "task", taskID, "event", unknown.Name)
			} else {
				log.Warn("skipping defective event", "task", taskID, "event", frame.Name, "error", err)
			}

			continue
		}

		select {
		case stream.events <- evt:
		case <-ctx.Done():
			return
		}
	}
}

/*
streamErrorFrame interprets a server-emitted error frame.  A
serialization_error means the server failed to format one event and kept
the stream open, so it is logged and swallowed; anything else ends the
stream and is returned as the stream's error.
*/
func streamErrorFrame(taskID string, data []byte) error {
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}

	if err := json.Unmarshal(data, &payload); err != nil {
		return errors.Messagef("agent sent an unreadable error frame for task %s", taskID)
	}

	if payload.Error == "serialization_error" {
		log.Warn("agent failed to serialize an event, skipping it",
			"task", taskID, "detail", payload.Message)
		return nil
	}

	return errors.Messagef("agent reported a stream error for task %s: %s: %s",
		taskID, payload.Error, payload.Message)
}
