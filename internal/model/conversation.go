package model

import "time"

type ConversationEntry struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Model     string    `json:"model,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Conversation is a saved chat transcript.
type Conversation struct {
	ID        string              `json:"id"`
	Title     string              `json:"title"`
	Model     string              `json:"model"`
	Entries   []ConversationEntry `json:"entries"`
	CreatedAt time.Time           `json:"created_at"`
	UpdatedAt time.Time           `json:"updated_at"`
}
