package model

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the body of POST /api/ai. Messages stays nil when the field
// is missing or null, which is how absence is told apart from an empty list.
type ChatRequest struct {
	Messages    []ChatMessage `json:"messages"`
	Model       string        `json:"model"`
	Temperature *float32      `json:"temperature,omitempty"`
	MaxTokens   *int          `json:"max_tokens,omitempty"`
}

// EmailRequest carries the union of fields used by every template type.
type EmailRequest struct {
	Type       string `json:"type"`
	To         string `json:"to" binding:"required,email"`
	Name       string `json:"name" binding:"required_if=Type welcome"`
	ResetLink  string `json:"resetLink" binding:"required_if=Type password-reset"`
	Title      string `json:"title" binding:"required_if=Type notification"`
	Message    string `json:"message" binding:"required_if=Type notification"`
	ActionURL  string `json:"actionUrl"`
	ActionText string `json:"actionText"`
}
