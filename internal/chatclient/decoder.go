package chatclient

import (
	"encoding/json"
	"errors"
	"io"
	"strings"

	"webstarter-backend/pkg/logger"
)

const (
	eventPrefix  = "data: "
	doneSentinel = "[DONE]"
	readSize     = 4096
)

// ErrStreamTruncated means the body ended before the [DONE] event. The
// server drops the connection this way when the upstream fails mid-answer.
var ErrStreamTruncated = errors.New("event stream ended without [DONE]")

type streamChunk struct {
	Content string `json:"content"`
}

// EventDecoder turns a chat event stream into text fragments.
type EventDecoder struct {
	r       io.Reader
	lines   LineBuffer
	buf     []byte
	queue   []string
	done    bool
	skipped int
}

func NewEventDecoder(r io.Reader) *EventDecoder {
	return &EventDecoder{
		r:   r,
		buf: make([]byte, readSize),
	}
}

// Next returns the next non-empty fragment. It returns io.EOF once [DONE]
// has been seen and every fragment before it consumed, ErrStreamTruncated if
// the body ends first, or the underlying read error.
func (d *EventDecoder) Next() (string, error) {
	for len(d.queue) == 0 {
		if d.done {
			return "", io.EOF
		}

		n, err := d.r.Read(d.buf)
		if n > 0 {
			d.handleLines(d.lines.Feed(d.buf[:n]))
		}
		if len(d.queue) > 0 || d.done {
			continue
		}
		if errors.Is(err, io.EOF) {
			return "", ErrStreamTruncated
		}
		if err != nil {
			return "", err
		}
	}

	fragment := d.queue[0]
	d.queue = d.queue[1:]
	return fragment, nil
}

// Skipped counts malformed payloads dropped so far.
func (d *EventDecoder) Skipped() int {
	return d.skipped
}

func (d *EventDecoder) handleLines(lines []string) {
	for _, line := range lines {
		if d.done {
			return
		}
		if !strings.HasPrefix(line, eventPrefix) {
			continue
		}

		payload := line[len(eventPrefix):]
		if payload == doneSentinel {
			d.done = true
			return
		}

		var chunk streamChunk
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			d.skipped++
			logger.WithError(err).WithField("payload", payload).Warn("skipping malformed stream event")
			continue
		}
		if chunk.Content != "" {
			d.queue = append(d.queue, chunk.Content)
		}
	}
}
