package chatclient

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLineBuffer_Transitions(t *testing.T) {
	var b LineBuffer
	assert.Equal(t, LineEmpty, b.State())

	assert.Empty(t, b.Feed([]byte("data: {\"con")))
	assert.Equal(t, LinePartial, b.State())
	assert.Equal(t, "data: {\"con", b.Pending())

	assert.Equal(t, []string{`data: {"content":"he"}`, ""}, b.Feed([]byte("tent\":\"he\"}\n\n")))
	assert.Equal(t, LineEmpty, b.State())
	assert.Empty(t, b.Pending())

	assert.Equal(t, []string{"a", "b"}, b.Feed([]byte("a\r\nb\nc")))
	assert.Equal(t, LinePartial, b.State())
	assert.Equal(t, "c", b.Pending())

	b.Reset()
	assert.Equal(t, LineEmpty, b.State())
	assert.Empty(t, b.Pending())
}

func TestLineBuffer_EmptyChunkKeepsState(t *testing.T) {
	var b LineBuffer
	b.Feed([]byte("abc"))
	assert.Nil(t, b.Feed(nil))
	assert.Equal(t, LinePartial, b.State())
	assert.Equal(t, []string{"abcd"}, b.Feed([]byte("d\n")))
}

func TestLineBuffer_SplitRune(t *testing.T) {
	var b LineBuffer
	word := []byte("héllo\n")
	// cut inside the two-byte é
	assert.Empty(t, b.Feed(word[:2]))
	assert.Equal(t, []string{"héllo"}, b.Feed(word[2:]))
}

func TestLineBuffer_ByteAtATime(t *testing.T) {
	input := "data: one\ndata: two\n"
	var b LineBuffer
	var lines []string
	for i := 0; i < len(input); i++ {
		lines = append(lines, b.Feed([]byte{input[i]})...)
	}
	assert.Equal(t, []string{"data: one", "data: two"}, lines)
	assert.Equal(t, LineEmpty, b.State())
}

func TestLineState_String(t *testing.T) {
	assert.Equal(t, "empty", LineEmpty.String())
	assert.Equal(t, "partial", LinePartial.String())
}
