package model

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	einoModel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Temperature float32       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
	Stream      bool          `json:"stream"`
}

func newTestModel(t *testing.T, handler http.HandlerFunc) *OpenRouterModel {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewOpenRouterModel(OpenRouterConfig{
		APIKey:  "test-key",
		BaseURL: srv.URL,
		AppURL:  "http://localhost:3000",
		AppName: "Web Starter",
	})
}

func requestOptions() []einoModel.Option {
	return []einoModel.Option{
		einoModel.WithModel("meta-llama/llama-3.1-8b-instruct:free"),
		einoModel.WithTemperature(0.7),
		einoModel.WithMaxTokens(1000),
	}
}

func TestOpenRouterModel_Generate(t *testing.T) {
	var got capturedRequest
	m := newTestModel(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "http://localhost:3000", r.Header.Get("HTTP-Referer"))
		assert.Equal(t, "Web Starter", r.Header.Get("X-Title"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"c1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"hello"},"finish_reason":"stop"}],"usage":{"prompt_tokens":3,"completion_tokens":1,"total_tokens":4}}`)
	})

	msgs := []*schema.Message{
		schema.SystemMessage("be brief"),
		schema.UserMessage("hi"),
		{Role: schema.Assistant, Content: ""},
		schema.UserMessage("again"),
	}
	out, err := m.Generate(context.Background(), msgs, requestOptions()...)
	require.NoError(t, err)

	assert.Equal(t, "hello", out.Content)
	require.NotNil(t, out.ResponseMeta)
	require.NotNil(t, out.ResponseMeta.Usage)
	assert.Equal(t, 4, out.ResponseMeta.Usage.TotalTokens)

	assert.Equal(t, "meta-llama/llama-3.1-8b-instruct:free", got.Model)
	assert.InDelta(t, 0.7, got.Temperature, 1e-6)
	assert.Equal(t, 1000, got.MaxTokens)
	assert.False(t, got.Stream)
	// order and empty content are forwarded verbatim
	assert.Equal(t, []ChatMessage{
		{Role: "system", Content: "be brief"},
		{Role: "user", Content: "hi"},
		{Role: "assistant", Content: ""},
		{Role: "user", Content: "again"},
	}, got.Messages)
}

func TestOpenRouterModel_GenerateEmptyContent(t *testing.T) {
	m := newTestModel(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"c1","object":"chat.completion","choices":[]}`)
	})

	_, err := m.Generate(context.Background(), []*schema.Message{schema.UserMessage("hi")}, requestOptions()...)
	assert.ErrorIs(t, err, ErrEmptyCompletion)
}

func TestOpenRouterModel_GenerateRequiresModel(t *testing.T) {
	m := newTestModel(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("upstream must not be called")
	})

	_, err := m.Generate(context.Background(), []*schema.Message{schema.UserMessage("hi")})
	assert.Error(t, err)
}

func TestOpenRouterModel_Stream(t *testing.T) {
	var got capturedRequest
	m := newTestModel(t, func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "text/event-stream")
		for _, delta := range []string{"he", "", "llo"} {
			fmt.Fprintf(w, "data: {\"id\":\"s1\",\"object\":\"chat.completion.chunk\",\"choices\":[{\"index\":0,\"delta\":{\"content\":%q}}]}\n\n", delta)
			w.(http.Flusher).Flush()
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	})

	reader, err := m.Stream(context.Background(), []*schema.Message{schema.UserMessage("hi")}, requestOptions()...)
	require.NoError(t, err)
	defer reader.Close()

	var parts []string
	for {
		msg, err := reader.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		parts = append(parts, msg.Content)
	}

	assert.True(t, got.Stream)
	assert.Equal(t, []string{"he", "", "llo"}, parts)
}

func TestOpenRouterModel_StreamAbortedUpstream(t *testing.T) {
	m := newTestModel(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"id\":\"s1\",\"object\":\"chat.completion.chunk\",\"choices\":[{\"index\":0,\"delta\":{\"content\":\"he\"}}]}\n\n")
		w.(http.Flusher).Flush()
		panic(http.ErrAbortHandler)
	})

	reader, err := m.Stream(context.Background(), []*schema.Message{schema.UserMessage("hi")}, requestOptions()...)
	require.NoError(t, err)
	defer reader.Close()

	msg, err := reader.Recv()
	require.NoError(t, err)
	assert.Equal(t, "he", msg.Content)

	_, err = reader.Recv()
	require.Error(t, err)
	assert.False(t, errors.Is(err, io.EOF), "abnormal termination must not look like a clean end")
}

func TestSanitizeBody(t *testing.T) {
	out := sanitizeBody([]byte(`{"model":"m","api_key":"sk-123","token":"abc"}`))
	assert.NotContains(t, out, "sk-123")
	assert.NotContains(t, out, "abc")
	assert.Contains(t, out, `"model":"m"`)
}

func TestSanitizeBody_TruncatesOnRuneBoundary(t *testing.T) {
	// the two-byte é straddles the cut
	body := strings.Repeat("a", maxLoggedBody-1) + "é" + "tail"
	out := sanitizeBody([]byte(body))

	assert.True(t, utf8.ValidString(out))
	assert.Equal(t, strings.Repeat("a", maxLoggedBody-1)+"...(truncated)", out)
}

func TestRedactHeaders(t *testing.T) {
	h := http.Header{}
	h.Set("Authorization", "Bearer secret")
	h.Set("Content-Type", "application/json")

	out := redactHeaders(h)
	assert.Equal(t, "[REDACTED]", out["Authorization"])
	assert.Equal(t, "application/json", out["Content-Type"])
}
