package storage

import (
	"sort"
	"sync"

	"webstarter-backend/internal/model"
)

type MemoryStorage struct {
	conversations map[string]*model.Conversation
	mu            sync.RWMutex
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		conversations: make(map[string]*model.Conversation),
	}
}

func (m *MemoryStorage) Init() error {
	return nil
}

func (m *MemoryStorage) Close() error {
	return nil
}

func (m *MemoryStorage) Save(conv *model.Conversation) error {
	if conv == nil || conv.ID == "" {
		return ErrInvalidData
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.conversations[conv.ID] = cloneConversation(conv)
	return nil
}

func (m *MemoryStorage) Get(id string) (*model.Conversation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	conv, exists := m.conversations[id]
	if !exists {
		return nil, ErrConversationNotFound
	}
	return cloneConversation(conv), nil
}

func (m *MemoryStorage) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.conversations[id]; !exists {
		return ErrConversationNotFound
	}
	delete(m.conversations, id)
	return nil
}

func (m *MemoryStorage) List() ([]*model.Conversation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*model.Conversation, 0, len(m.conversations))
	for _, conv := range m.conversations {
		out = append(out, header(conv))
	}
	sortByUpdated(out)
	return out, nil
}

func cloneConversation(conv *model.Conversation) *model.Conversation {
	cp := *conv
	cp.Entries = make([]model.ConversationEntry, len(conv.Entries))
	copy(cp.Entries, conv.Entries)
	return &cp
}

func header(conv *model.Conversation) *model.Conversation {
	return &model.Conversation{
		ID:        conv.ID,
		Title:     conv.Title,
		Model:     conv.Model,
		CreatedAt: conv.CreatedAt,
		UpdatedAt: conv.UpdatedAt,
	}
}

func sortByUpdated(convs []*model.Conversation) {
	sort.Slice(convs, func(i, j int) bool {
		return convs[i].UpdatedAt.After(convs[j].UpdatedAt)
	})
}
