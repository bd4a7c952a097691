package chatclient

import (
	"errors"
	"sync"
	"time"

	"webstarter-backend/internal/model"

	"github.com/google/uuid"
)

var ErrEntryNotFound = errors.New("transcript entry not found")

// Entry is one displayed turn. Model is set on assistant entries only.
type Entry = model.ConversationEntry

// Transcript is the ordered conversation. All writes go through its methods;
// readers get copies.
type Transcript struct {
	mu      sync.RWMutex
	entries []Entry
}

func NewTranscript() *Transcript {
	return &Transcript{}
}

func (t *Transcript) Append(role, content, modelID string) Entry {
	e := Entry{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		Model:     modelID,
		Timestamp: time.Now(),
	}

	t.mu.Lock()
	t.entries = append(t.entries, e)
	t.mu.Unlock()
	return e
}

// AppendContent concatenates fragment onto the entry's content and returns
// the updated entry.
func (t *Transcript) AppendContent(id, fragment string) (Entry, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i := len(t.entries) - 1; i >= 0; i-- {
		if t.entries[i].ID == id {
			t.entries[i].Content += fragment
			return t.entries[i], nil
		}
	}
	return Entry{}, ErrEntryNotFound
}

func (t *Transcript) Entries() []Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Messages is the transcript as request history, in order.
func (t *Transcript) Messages() []model.ChatMessage {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]model.ChatMessage, 0, len(t.entries))
	for _, e := range t.entries {
		out = append(out, model.ChatMessage{Role: e.Role, Content: e.Content})
	}
	return out
}

func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

func (t *Transcript) Clear() {
	t.mu.Lock()
	t.entries = nil
	t.mu.Unlock()
}

// Replace swaps in a saved conversation.
func (t *Transcript) Replace(entries []Entry) {
	cp := make([]Entry, len(entries))
	copy(cp, entries)

	t.mu.Lock()
	t.entries = cp
	t.mu.Unlock()
}
