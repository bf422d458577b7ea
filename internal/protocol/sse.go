package protocol

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"net/http"
)

// MaxFrameSize bounds a single SSE line. Activity snapshots carrying large
// surfaces can exceed bufio's 64KiB default.
const MaxFrameSize = 4 << 20

// Frame is one server-sent event.
type Frame struct {
	Event string
	ID    string
	Data  []byte
}

// SSEReader reads frames from a text/event-stream body.
type SSEReader struct {
	scanner *bufio.Scanner
}

// NewSSEReader wraps r.
func NewSSEReader(r io.Reader) *SSEReader {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), MaxFrameSize)
	return &SSEReader{scanner: s}
}

// Next returns the next frame with data. It returns io.EOF at the end of the
// stream. A trailing frame without a terminating blank line is still returned.
func (r *SSEReader) Next() (Frame, error) {
	var (
		frame   Frame
		data    bytes.Buffer
		hasData bool
	)
	for r.scanner.Scan() {
		line := r.scanner.Bytes()
		if len(line) == 0 {
			if hasData {
				frame.Data = append([]byte(nil), data.Bytes()...)
				return frame, nil
			}
			frame = Frame{}
			continue
		}
		if line[0] == ':' {
			continue
		}

		field, value, _ := bytes.Cut(line, []byte(":"))
		value = bytes.TrimPrefix(value, []byte(" "))
		switch string(field) {
		case "data":
			if hasData {
				data.WriteByte('\n')
			}
			data.Write(value)
			hasData = true
		case "event":
			frame.Event = string(value)
		case "id":
			frame.ID = string(value)
		}
	}
	if err := r.scanner.Err(); err != nil {
		return Frame{}, fmt.Errorf("read event stream: %w", err)
	}
	if hasData {
		frame.Data = append([]byte(nil), data.Bytes()...)
		return frame, nil
	}
	return Frame{}, io.EOF
}

// SSEWriter writes frames to an HTTP response and flushes after each one.
type SSEWriter struct {
	w       io.Writer
	flusher http.Flusher
}

// NewSSEWriter prepares w for streaming and sets the event-stream headers.
func NewSSEWriter(w http.ResponseWriter) *SSEWriter {
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	f, _ := w.(http.Flusher)
	return &SSEWriter{w: w, flusher: f}
}

// WriteData writes a single data frame. Newlines in data are split across
// multiple data lines.
func (s *SSEWriter) WriteData(data []byte) error {
	var buf bytes.Buffer
	for _, line := range bytes.Split(data, []byte("\n")) {
		buf.WriteString("data: ")
		buf.Write(line)
		buf.WriteByte('\n')
	}
	buf.WriteByte('\n')
	if _, err := s.w.Write(buf.Bytes()); err != nil {
		return err
	}
	if s.flusher != nil {
		s.flusher.Flush()
	}
	return nil
}
