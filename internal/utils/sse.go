package utils

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
)

const DoneSentinel = "[DONE]"

// SSEWriter frames `data:` events onto a streaming response and flushes
// after every event.
type SSEWriter struct {
	w http.ResponseWriter
}

func NewSSEWriter(w http.ResponseWriter) *SSEWriter {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	return &SSEWriter{w: w}
}

func (s *SSEWriter) Write(event, data string) error {
	if event != "" {
		if _, err := fmt.Fprintf(s.w, "event: %s\n", event); err != nil {
			return err
		}
	}

	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", data); err != nil {
		return err
	}

	if f, ok := s.w.(http.Flusher); ok {
		f.Flush()
	}

	return nil
}

// WriteJSON encodes v the way JSON.stringify would: no HTML escaping, no
// trailing newline.
func (s *SSEWriter) WriteJSON(v interface{}) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return s.Write("", string(bytes.TrimRight(buf.Bytes(), "\n")))
}

// Done writes the end-of-stream sentinel.
func (s *SSEWriter) Done() error {
	return s.Write("", DoneSentinel)
}
