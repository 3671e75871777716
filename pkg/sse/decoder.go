package sse

import (
	"bufio"
	"bytes"
	"io"
	"strings"
)

// Event is a single decoded Server-Sent Event frame.
type Event struct {
	// Name is the value of the "event:" field; defaults to "message" when
	// the frame carried none.
	Name string
	// Data is the joined payload of the frame's "data:" lines.
	Data []byte
}

/*
Decoder incrementally parses a text/event-stream byte stream into frames.
Lines may be terminated by \n, \r or \r\n; multiple data: lines are joined
with a single newline; comment, id: and retry: lines are accepted and
ignored.  A trailing unterminated frame is dispatched at EOF.
*/
type Decoder struct {
	scanner *bufio.Scanner

	eventType string
	data      strings.Builder
	dirty     bool
	done      bool
}

// NewDecoder wraps a reader, typically an HTTP response body.
func NewDecoder(r io.Reader) *Decoder {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), 1<<20)
	scanner.Split(scanLines)

	return &Decoder{scanner: scanner}
}

/*
Next returns the next complete frame, io.EOF at the end of the stream, or
the transport error that terminated it.
*/
func (dec *Decoder) Next() (*Event, error) {
	if dec.done {
		return nil, io.EOF
	}

	for dec.scanner.Scan() {
		line := dec.scanner.Text()

		// Empty line dispatches the accumulated frame.
		if line == "" {
			if evt := dec.flush(); evt != nil {
				return evt, nil
			}
			continue
		}

		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, found := strings.Cut(line, ":")

		if !found {
			// Field with no colon: treated as a field name with empty value.
			field, value = line, ""
		}

		value = strings.TrimPrefix(value, " ")

		switch field {
		case "event":
			dec.eventType = value
			dec.dirty = true
		case "data":
			if dec.data.Len() > 0 {
				dec.data.WriteByte('\n')
			}
			dec.data.WriteString(value)
			dec.dirty = true
		case "id", "retry":
			// Accepted and ignored.
		}
	}

	dec.done = true

	if err := dec.scanner.Err(); err != nil {
		return nil, err
	}

	// Stream ended without a trailing blank line; dispatch what we have.
	if evt := dec.flush(); evt != nil {
		return evt, nil
	}

	return nil, io.EOF
}

func (dec *Decoder) flush() *Event {
	if !dec.dirty || dec.data.Len() == 0 {
		dec.eventType = ""
		dec.data.Reset()
		dec.dirty = false
		return nil
	}

	name := dec.eventType

	if name == "" {
		name = "message"
	}

	evt := &Event{Name: name, Data: []byte(dec.data.String())}

	dec.eventType = ""
	dec.data.Reset()
	dec.dirty = false

	return evt
}

// scanLines splits on \n, \r or \r\n without including the terminator.
func scanLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}

	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		if data[i] == '\n' {
			return i + 1, data[:i], nil
		}

		// \r at the very end of the buffer may be half of a \r\n pair.
		if i == len(data)-1 && !atEOF {
			return 0, nil, nil
		}

		if i+1 < len(data) && data[i+1] == '\n' {
			return i + 2, data[:i], nil
		}

		return i + 1, data[:i], nil
	}

	if atEOF {
		return len(data), data, nil
	}

	return 0, nil, nil
}
