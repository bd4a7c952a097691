package storage

import (
	"webstarter-backend/internal/model"
)

// Storage keeps saved chat conversations.
type Storage interface {
	// Save creates or replaces the conversation with conv.ID.
	Save(conv *model.Conversation) error
	Get(id string) (*model.Conversation, error)
	Delete(id string) error
	// List returns conversation headers, most recently updated first.
	// Entries are not loaded.
	List() ([]*model.Conversation, error)

	Init() error
	Close() error
}

// Backuper is implemented by stores that can snapshot their data.
type Backuper interface {
	// Backup returns the location of the new snapshot.
	Backup() (string, error)
}
