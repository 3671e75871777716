package sse

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWriterFrameFormat(t *testing.T) {
	rec := httptest.NewRecorder()

	sw, err := NewWriter(rec)
	assert.NoError(t, err)

	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))

	assert.NoError(t, sw.Send("task_status", map[string]string{"state": "WORKING"}))

	body := rec.Body.String()
	assert.Equal(t, "event: task_status\ndata: {\"state\":\"WORKING\"}\n\n", body)
	assert.True(t, rec.Flushed)
}

func TestWriterRoundTripsThroughDecoder(t *testing.T) {
	rec := httptest.NewRecorder()

	sw, err := NewWriter(rec)
	assert.NoError(t, err)

	assert.NoError(t, sw.Send("task_message", map[string]string{"text": "hello"}))
	assert.NoError(t, sw.Send("task_status", map[string]string{"state": "COMPLETED"}))

	dec := NewDecoder(strings.NewReader(rec.Body.String()))

	first, err := dec.Next()
	assert.NoError(t, err)
	assert.Equal(t, "task_message", first.Name)

	second, err := dec.Next()
	assert.NoError(t, err)
	assert.Equal(t, "task_status", second.Name)
}

func TestWriterSerializationFailureKeepsStreamAlive(t *testing.T) {
	rec := httptest.NewRecorder()

	sw, err := NewWriter(rec)
	assert.NoError(t, err)

	// Channels cannot be marshalled; the writer must emit an error frame
	// instead of killing the stream.
	assert.NoError(t, sw.Send("task_message", map[string]any{"ch": make(chan int)}))

	dec := NewDecoder(strings.NewReader(rec.Body.String()))

	frame, err := dec.Next()
	assert.NoError(t, err)
	assert.Equal(t, "error", frame.Name)
	assert.Contains(t, string(frame.Data), "serialization_error")
}

// noopResponseWriter deliberately lacks http.Flusher.
type noopResponseWriter struct{ header http.Header }

func (w noopResponseWriter) Header() http.Header        { return w.header }
func (w noopResponseWriter) Write(p []byte) (int, error) { return len(p), nil }
func (w noopResponseWriter) WriteHeader(int)             {}

func TestWriterRequiresFlusher(t *testing.T) {
	_, err := NewWriter(noopResponseWriter{header: http.Header{}})
	assert.Error(t, err)
}
