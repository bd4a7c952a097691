package model

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	einoModel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	openai "github.com/sashabaranov/go-openai"
)

const DefaultOpenRouterBaseURL = "https://openrouter.ai/api/v1"

var ErrEmptyCompletion = errors.New("no response from AI model")

type OpenRouterConfig struct {
	APIKey  string
	BaseURL string
	// AppURL and AppName are sent as HTTP-Referer and X-Title, which
	// OpenRouter uses for attribution.
	AppURL     string
	AppName    string
	HTTPClient *http.Client
}

// OpenRouterModel talks to any OpenAI-compatible chat completions API.
type OpenRouterModel struct {
	client *openai.Client
}

var _ einoModel.BaseChatModel = (*OpenRouterModel)(nil)

func NewOpenRouterModel(cfg OpenRouterConfig) *OpenRouterModel {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	clientConfig.BaseURL = DefaultOpenRouterBaseURL
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	headers := map[string]string{}
	if cfg.AppURL != "" {
		headers["HTTP-Referer"] = cfg.AppURL
	}
	if cfg.AppName != "" {
		headers["X-Title"] = cfg.AppName
	}
	wrapped := *httpClient
	wrapped.Transport = &headerTransport{base: httpClient.Transport, headers: headers}
	clientConfig.HTTPClient = &wrapped

	return &OpenRouterModel{
		client: openai.NewClientWithConfig(clientConfig),
	}
}

func (m *OpenRouterModel) Generate(ctx context.Context, messages []*schema.Message, opts ...einoModel.Option) (*schema.Message, error) {
	req, err := buildCompletionRequest(messages, opts)
	if err != nil {
		return nil, err
	}

	resp, err := m.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, err
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return nil, ErrEmptyCompletion
	}

	out := &schema.Message{
		Role:    schema.Assistant,
		Content: resp.Choices[0].Message.Content,
	}
	if resp.Usage.TotalTokens > 0 {
		out.ResponseMeta = &schema.ResponseMeta{
			FinishReason: string(resp.Choices[0].FinishReason),
			Usage: &schema.TokenUsage{
				PromptTokens:     resp.Usage.PromptTokens,
				CompletionTokens: resp.Usage.CompletionTokens,
				TotalTokens:      resp.Usage.TotalTokens,
			},
		}
	}
	return out, nil
}

// Stream forwards every delta in arrival order. A transport failure after
// the stream opened is delivered to the reader as its final error.
func (m *OpenRouterModel) Stream(ctx context.Context, messages []*schema.Message, opts ...einoModel.Option) (*schema.StreamReader[*schema.Message], error) {
	req, err := buildCompletionRequest(messages, opts)
	if err != nil {
		return nil, err
	}
	req.Stream = true

	stream, err := m.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return nil, err
	}

	reader, writer := schema.Pipe[*schema.Message](16)

	go func() {
		defer stream.Close()
		defer writer.Close()

		for {
			response, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				writer.Send(nil, err)
				return
			}
			if len(response.Choices) == 0 {
				continue
			}

			msg := &schema.Message{
				Role:    schema.Assistant,
				Content: response.Choices[0].Delta.Content,
			}
			if closed := writer.Send(msg, nil); closed {
				return
			}
		}
	}()

	return reader, nil
}

func buildCompletionRequest(messages []*schema.Message, opts []einoModel.Option) (openai.ChatCompletionRequest, error) {
	options := einoModel.GetCommonOptions(&einoModel.Options{}, opts...)
	if options.Model == nil || *options.Model == "" {
		return openai.ChatCompletionRequest{}, fmt.Errorf("model option is required")
	}

	req := openai.ChatCompletionRequest{
		Model:    *options.Model,
		Messages: convertMessages(messages),
	}
	if options.Temperature != nil {
		req.Temperature = *options.Temperature
	}
	if options.MaxTokens != nil {
		req.MaxTokens = *options.MaxTokens
	}
	return req, nil
}

// convertMessages keeps order and content verbatim.
func convertMessages(messages []*schema.Message) []openai.ChatCompletionMessage {
	result := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, msg := range messages {
		if msg == nil {
			continue
		}
		result = append(result, openai.ChatCompletionMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
		})
	}
	return result
}

type headerTransport struct {
	base    http.RoundTripper
	headers map[string]string
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	if len(t.headers) == 0 {
		return base.RoundTrip(req)
	}

	clone := req.Clone(req.Context())
	for k, v := range t.headers {
		clone.Header.Set(k, v)
	}
	return base.RoundTrip(clone)
}
