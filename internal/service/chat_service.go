package service

import (
	"context"
	"errors"
	"fmt"
	"io"

	"webstarter-backend/internal/model"

	einoModel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

const (
	DefaultTemperature float32 = 0.7
	DefaultMaxTokens           = 1000
)

var (
	// ErrMissingFields rejects a request before any upstream call.
	ErrMissingFields = errors.New("missing required fields: messages and model")
	// ErrUpstream covers provider failures and completions without content.
	ErrUpstream = errors.New("failed to get response from AI model")
)

// ChatService forwards chat requests to the configured completion provider.
type ChatService struct {
	chatModel einoModel.BaseChatModel
}

func NewChatService(chatModel einoModel.BaseChatModel) *ChatService {
	return &ChatService{
		chatModel: chatModel,
	}
}

// Validate only checks presence. The model id is deliberately not looked up
// in the catalog: unknown ids are left for the provider to reject.
func (s *ChatService) Validate(req *model.ChatRequest) error {
	if req.Messages == nil || req.Model == "" {
		return ErrMissingFields
	}
	return nil
}

func (s *ChatService) Complete(ctx context.Context, req *model.ChatRequest) (*model.ChatResponse, error) {
	if err := s.Validate(req); err != nil {
		return nil, err
	}

	msg, err := s.chatModel.Generate(ctx, toSchemaMessages(req.Messages), requestOptions(req)...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	if msg == nil || msg.Content == "" {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, model.ErrEmptyCompletion)
	}

	resp := &model.ChatResponse{
		Content: msg.Content,
		Model:   req.Model,
	}
	if msg.ResponseMeta != nil && msg.ResponseMeta.Usage != nil {
		u := msg.ResponseMeta.Usage
		resp.Usage = &model.Usage{
			PromptTokens:     u.PromptTokens,
			CompletionTokens: u.CompletionTokens,
			TotalTokens:      u.TotalTokens,
		}
	}
	return resp, nil
}

// OpenStream starts an upstream token stream. The returned stream lives as
// long as ctx; the caller must Close it.
func (s *ChatService) OpenStream(ctx context.Context, req *model.ChatRequest) (*ChatStream, error) {
	if err := s.Validate(req); err != nil {
		return nil, err
	}

	reader, err := s.chatModel.Stream(ctx, toSchemaMessages(req.Messages), requestOptions(req)...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	return &ChatStream{reader: reader}, nil
}

// ChatStream yields the non-empty content fragments of one upstream stream.
type ChatStream struct {
	reader *schema.StreamReader[*schema.Message]
}

// Recv returns io.EOF after the upstream finished cleanly. Any other error
// means the upstream ended abnormally.
func (cs *ChatStream) Recv() (string, error) {
	for {
		msg, err := cs.reader.Recv()
		if errors.Is(err, io.EOF) {
			return "", io.EOF
		}
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrUpstream, err)
		}
		if msg != nil && msg.Content != "" {
			return msg.Content, nil
		}
	}
}

func (cs *ChatStream) Close() {
	cs.reader.Close()
}

// requestOptions applies the falsy defaults: an explicit zero counts as
// unspecified.
func requestOptions(req *model.ChatRequest) []einoModel.Option {
	temperature := DefaultTemperature
	if req.Temperature != nil && *req.Temperature != 0 {
		temperature = *req.Temperature
	}
	maxTokens := DefaultMaxTokens
	if req.MaxTokens != nil && *req.MaxTokens != 0 {
		maxTokens = *req.MaxTokens
	}

	return []einoModel.Option{
		einoModel.WithModel(req.Model),
		einoModel.WithTemperature(temperature),
		einoModel.WithMaxTokens(maxTokens),
	}
}

func toSchemaMessages(messages []model.ChatMessage) []*schema.Message {
	out := make([]*schema.Message, 0, len(messages))
	for _, m := range messages {
		out = append(out, &schema.Message{
			Role:    schema.RoleType(m.Role),
			Content: m.Content,
		})
	}
	return out
}
