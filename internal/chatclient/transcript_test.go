package chatclient

import (
	"sync"
	"testing"

	"webstarter-backend/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranscript_AppendAndConcatenate(t *testing.T) {
	tr := NewTranscript()
	user := tr.Append(model.RoleUser, "hi", "")
	reply := tr.Append(model.RoleAssistant, "", "m")
	require.NotEqual(t, user.ID, reply.ID)

	_, err := tr.AppendContent(reply.ID, "he")
	require.NoError(t, err)
	updated, err := tr.AppendContent(reply.ID, "llo")
	require.NoError(t, err)
	assert.Equal(t, "hello", updated.Content)

	entries := tr.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "hi", entries[0].Content)
	assert.Equal(t, "hello", entries[1].Content)
	assert.Equal(t, "m", entries[1].Model)
	assert.Equal(t, []model.ChatMessage{
		{Role: model.RoleUser, Content: "hi"},
		{Role: model.RoleAssistant, Content: "hello"},
	}, tr.Messages())
}

func TestTranscript_EntriesIsSnapshot(t *testing.T) {
	tr := NewTranscript()
	tr.Append(model.RoleUser, "hi", "")

	snap := tr.Entries()
	snap[0].Content = "changed"
	assert.Equal(t, "hi", tr.Entries()[0].Content)
}

func TestTranscript_UnknownEntryAndClear(t *testing.T) {
	tr := NewTranscript()
	e := tr.Append(model.RoleAssistant, "", "")
	tr.Clear()

	assert.Zero(t, tr.Len())
	_, err := tr.AppendContent(e.ID, "x")
	assert.ErrorIs(t, err, ErrEntryNotFound)
}

func TestTranscript_ConcurrentAppendContent(t *testing.T) {
	tr := NewTranscript()
	e := tr.Append(model.RoleAssistant, "", "")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = tr.AppendContent(e.ID, "x")
		}()
	}
	wg.Wait()
	assert.Len(t, tr.Entries()[0].Content, 50)
}
