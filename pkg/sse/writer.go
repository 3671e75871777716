package sse

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/charmbracelet/log"
)

/*
Writer emits Server-Sent Event frames of the form

	event: <name>\ndata: <json>\n\n

to an HTTP response, flushing after every frame.  A payload that fails to
serialise produces a single error frame and the stream continues.
*/
type Writer struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

// NewWriter prepares a response for streaming.  It sets the event-stream
// headers and returns an error if the transport cannot flush.
func NewWriter(w http.ResponseWriter) (*Writer, error) {
	flusher, ok := w.(http.Flusher)

	if !ok {
		return nil, fmt.Errorf("streaming unsupported by transport")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	return &Writer{w: w, flusher: flusher}, nil
}

// Send serialises v and writes one frame under the given event name.
func (sw *Writer) Send(name string, v any) error {
	msg, err := json.Marshal(v)

	if err != nil {
		log.Error("failed to serialize SSE event", "event", name, "error", err)
		sw.SendError("serialization_error", fmt.Sprintf("failed to format event: %v", err))
		return nil
	}

	return sw.writeFrame(name, msg)
}

// SendError writes one error frame. Used both for mid-stream
// serialisation failures (stream continues) and source failures (caller
// closes the stream afterwards).
func (sw *Writer) SendError(kind string, message string) {
	payload, err := json.Marshal(map[string]string{
		"error":   kind,
		"message": message,
	})

	if err != nil {
		log.Error("failed to format SSE error frame", "error", err)
		return
	}

	_ = sw.writeFrame("error", payload)
}

func (sw *Writer) writeFrame(name string, data []byte) error {
	if _, err := fmt.Fprintf(sw.w, "event: %s\ndata: %s\n\n", name, data); err != nil {
		return err
	}

	sw.flusher.Flush()
	return nil
}
