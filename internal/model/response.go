package model

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type ChatResponse struct {
	Content string `json:"content"`
	Model   string `json:"model"`
	Usage   *Usage `json:"usage,omitempty"`
}

// StreamChunk is the payload of one `data:` line on the chat event stream.
type StreamChunk struct {
	Content string `json:"content"`
}

// EmailReceipt is what the mail provider reports back for an accepted send.
type EmailReceipt struct {
	StatusCode int    `json:"status_code"`
	MessageID  string `json:"message_id,omitempty"`
}
