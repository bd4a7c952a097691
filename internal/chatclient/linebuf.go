package chatclient

import "bytes"

type LineState int

const (
	// LineEmpty holds no bytes between reads.
	LineEmpty LineState = iota
	// LinePartial holds the tail of a line whose '\n' has not arrived yet.
	LinePartial
)

func (s LineState) String() string {
	if s == LinePartial {
		return "partial"
	}
	return "empty"
}

// LineBuffer splits a byte stream into '\n'-terminated lines. Splitting on raw
// bytes is safe for UTF-8 input: '\n' never occurs inside a multi-byte
// sequence, so a rune cut across two reads stays in the pending tail.
type LineBuffer struct {
	state   LineState
	pending []byte
}

// Feed returns every line completed by chunk, without the terminator and with
// a trailing '\r' removed. An unterminated tail is kept for the next call.
func (b *LineBuffer) Feed(chunk []byte) []string {
	if len(chunk) == 0 {
		return nil
	}

	data := chunk
	if b.state == LinePartial {
		data = append(b.pending, chunk...)
	}

	var lines []string
	for {
		i := bytes.IndexByte(data, '\n')
		if i < 0 {
			break
		}
		lines = append(lines, string(bytes.TrimSuffix(data[:i], []byte{'\r'})))
		data = data[i+1:]
	}

	if len(data) == 0 {
		b.Reset()
	} else {
		b.pending = append(b.pending[:0:0], data...)
		b.state = LinePartial
	}
	return lines
}

// Pending is the held, not yet terminated tail.
func (b *LineBuffer) Pending() string {
	return string(b.pending)
}

func (b *LineBuffer) State() LineState {
	return b.state
}

func (b *LineBuffer) Reset() {
	b.state = LineEmpty
	b.pending = nil
}
