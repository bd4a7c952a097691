package chatclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"webstarter-backend/internal/handler"
	"webstarter-backend/internal/model"
	"webstarter-backend/internal/service"

	einoModel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type deltaModel struct {
	deltas []string
}

func (m *deltaModel) Generate(context.Context, []*schema.Message, ...einoModel.Option) (*schema.Message, error) {
	return schema.AssistantMessage("", nil), nil
}

func (m *deltaModel) Stream(_ context.Context, _ []*schema.Message, _ ...einoModel.Option) (*schema.StreamReader[*schema.Message], error) {
	return schema.StreamReaderFromArray(toMessages(m.deltas)), nil
}

func toMessages(deltas []string) []*schema.Message {
	out := make([]*schema.Message, 0, len(deltas))
	for _, d := range deltas {
		out = append(out, schema.AssistantMessage(d, nil))
	}
	return out
}

// recorder collects callbacks from the session goroutine.
type recorder struct {
	mu      sync.Mutex
	updates []Entry
	notices []string
}

func (r *recorder) update(e Entry) {
	r.mu.Lock()
	r.updates = append(r.updates, e)
	r.mu.Unlock()
}

func (r *recorder) notice(msg string) {
	r.mu.Lock()
	r.notices = append(r.notices, msg)
	r.mu.Unlock()
}

func (r *recorder) Notices() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.notices...)
}

func newSession(t *testing.T, h http.Handler, rec *recorder) *Session {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewSession(Config{
		Endpoint: srv.URL + "/api/ai",
		OnUpdate: rec.update,
		OnNotice: rec.notice,
	})
}

func assertIdle(t *testing.T, s *Session) {
	t.Helper()
	assert.False(t, s.IsLoading())
	assert.False(t, s.IsStreaming())
}

func TestSession_StreamsReplyThroughProxy(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/api/ai", handler.NewAIHandler(service.NewChatService(&deltaModel{deltas: []string{"he", "", "llo"}})).Chat)

	rec := &recorder{}
	s := newSession(t, r, rec)

	require.NoError(t, s.Send(context.Background(), "  hi  "))

	entries := s.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, model.RoleUser, entries[0].Role)
	assert.Equal(t, "hi", entries[0].Content)
	assert.Equal(t, model.RoleAssistant, entries[1].Role)
	assert.Equal(t, "hello", entries[1].Content)
	assert.Equal(t, model.DefaultModel().ID, entries[1].Model)
	assert.Empty(t, rec.Notices())
	assertIdle(t, s)

	// user, placeholder, "he", "hello"
	require.Len(t, rec.updates, 4)
	assert.Equal(t, "", rec.updates[1].Content)
	assert.Equal(t, "he", rec.updates[2].Content)
}

func TestSession_RequestCarriesHistory(t *testing.T) {
	var (
		mu      sync.Mutex
		bodies  []model.ChatRequest
		queries []string
	)
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req model.ChatRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		mu.Lock()
		bodies = append(bodies, req)
		queries = append(queries, r.URL.RawQuery)
		n := len(bodies)
		mu.Unlock()
		fmt.Fprintf(w, "data: {\"content\":\"reply%d\"}\n\ndata: [DONE]\n\n", n)
	})

	s := newSession(t, h, &recorder{})
	require.NoError(t, s.SelectModel("mistralai/mistral-7b-instruct:free"))
	require.NoError(t, s.Send(context.Background(), "one"))
	require.NoError(t, s.Send(context.Background(), "two"))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, bodies, 2)
	assert.Equal(t, []string{"stream=true", "stream=true"}, queries)
	assert.Equal(t, "mistralai/mistral-7b-instruct:free", bodies[1].Model)
	require.NotNil(t, bodies[1].Temperature)
	assert.InDelta(t, 0.7, *bodies[1].Temperature, 1e-6)
	assert.Nil(t, bodies[1].MaxTokens)
	assert.Equal(t, []model.ChatMessage{
		{Role: model.RoleUser, Content: "one"},
		{Role: model.RoleAssistant, Content: "reply1"},
		{Role: model.RoleUser, Content: "two"},
	}, bodies[1].Messages)
}

func TestSession_EmptyMessage(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})
	s := newSession(t, h, &recorder{})

	assert.ErrorIs(t, s.Send(context.Background(), " \n\t"), ErrEmptyMessage)
	assert.Empty(t, s.Entries())
}

func TestSession_TruncatedStreamIsFailure(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "data: {\"content\":\"he\"}\n\n")
	})
	rec := &recorder{}
	s := newSession(t, h, rec)

	err := s.Send(context.Background(), "hi")
	assert.ErrorIs(t, err, ErrSendFailed)
	assert.Equal(t, []string{NoticeSendFailed}, rec.Notices())
	// fragments already applied stay
	require.Len(t, s.Entries(), 2)
	assert.Equal(t, "he", s.Entries()[1].Content)
	assertIdle(t, s)
}

func TestSession_ErrorStatus(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":"Missing required fields: messages and model"}`)
	})
	rec := &recorder{}
	s := newSession(t, h, rec)

	assert.ErrorIs(t, s.Send(context.Background(), "hi"), ErrSendFailed)
	assert.Equal(t, []string{NoticeSendFailed}, rec.Notices())
	// no placeholder without a stream
	require.Len(t, s.Entries(), 1)
	assertIdle(t, s)
}

func TestSession_StopDropsBufferedFragments(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// both fragments arrive in one read
		fmt.Fprint(w, "data: {\"content\":\"he\"}\n\ndata: {\"content\":\"llo\"}\n\n")
		w.(http.Flusher).Flush()
		<-r.Context().Done()
	})

	rec := &recorder{}
	var s *Session
	s = newSession(t, h, &recorder{})
	s.onNotice = rec.notice
	s.onUpdate = func(e Entry) {
		if e.Content == "he" {
			assert.True(t, s.Stop())
		}
	}

	err := s.Send(context.Background(), "hi")
	assert.ErrorIs(t, err, ErrAborted)
	assert.Equal(t, []string{NoticeCancelled}, rec.Notices())

	entries := s.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "he", entries[1].Content)
	assertIdle(t, s)
	assert.False(t, s.Stop())
}

// stopTransport stops the session while the response headers arrive.
type stopTransport struct {
	session *Session
	rec     *recorder
	seen    int
}

func (tr *stopTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	tr.session.Stop()
	tr.rec.mu.Lock()
	tr.seen = len(tr.rec.updates)
	tr.rec.mu.Unlock()
	return &http.Response{
		StatusCode: http.StatusOK,
		Header:     http.Header{"Content-Type": []string{"text/event-stream"}},
		Body:       io.NopCloser(strings.NewReader("data: {\"content\":\"late\"}\n\ndata: [DONE]\n\n")),
		Request:    req,
	}, nil
}

func TestSession_StopBeforeHeadersAddsNoReply(t *testing.T) {
	rec := &recorder{}
	tr := &stopTransport{rec: rec}
	s := NewSession(Config{
		Endpoint:   "http://chat.invalid/api/ai",
		HTTPClient: &http.Client{Transport: tr},
		OnUpdate:   rec.update,
		OnNotice:   rec.notice,
	})
	tr.session = s

	assert.ErrorIs(t, s.Send(context.Background(), "hi"), ErrAborted)

	entries := s.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, model.RoleUser, entries[0].Role)
	rec.mu.Lock()
	assert.Len(t, rec.updates, tr.seen, "no update after Stop returned")
	rec.mu.Unlock()
	assert.Equal(t, []string{NoticeCancelled}, rec.Notices())
	assertIdle(t, s)
}

func TestSession_CancelledBeforeUserTurn(t *testing.T) {
	rec := &recorder{}
	s := NewSession(Config{
		Endpoint: "http://chat.invalid/api/ai",
		HTTPClient: &http.Client{Transport: roundTripFunc(func(*http.Request) (*http.Response, error) {
			t.Error("no request after cancellation")
			return nil, context.Canceled
		})},
		OnUpdate: rec.update,
		OnNotice: rec.notice,
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, s.Send(ctx, "hi"), ErrAborted)
	assert.Empty(t, s.Entries())
	assert.Empty(t, rec.updates)
	assertIdle(t, s)
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) { return f(req) }

func TestSession_SingleFlight(t *testing.T) {
	release := make(chan struct{})
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
			return
		}
		fmt.Fprint(w, "data: {\"content\":\"ok\"}\n\ndata: [DONE]\n\n")
	})
	s := newSession(t, h, &recorder{})

	done := make(chan error, 1)
	go func() { done <- s.Send(context.Background(), "first") }()

	require.Eventually(t, s.IsLoading, 2*time.Second, 5*time.Millisecond)
	assert.True(t, s.IsStreaming())
	assert.ErrorIs(t, s.Send(context.Background(), "second"), ErrCycleInFlight)

	close(release)
	require.NoError(t, <-done)
	assertIdle(t, s)

	entries := s.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "first", entries[0].Content)
	assert.Equal(t, "ok", entries[1].Content)
}

func TestSession_ParentContextCancelIsAbort(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.(http.Flusher).Flush()
		<-r.Context().Done()
	})
	rec := &recorder{}
	s := newSession(t, h, rec)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		for !s.IsLoading() {
			time.Sleep(time.Millisecond)
		}
		cancel()
	}()

	assert.ErrorIs(t, s.Send(ctx, "hi"), ErrAborted)
	assert.Equal(t, []string{NoticeCancelled}, rec.Notices())
	assertIdle(t, s)
}

func TestSession_ModelsAndRestore(t *testing.T) {
	s := NewSession(Config{Endpoint: "http://127.0.0.1:0/api/ai"})
	assert.Equal(t, model.DefaultModel(), s.Model())

	assert.ErrorIs(t, s.SelectModel("openai/gpt-4o"), ErrUnknownModel)
	assert.Equal(t, model.DefaultModel(), s.Model())

	conv := &model.Conversation{
		Model: "google/gemini-flash-1.5:free",
		Entries: []model.ConversationEntry{
			{ID: "1", Role: model.RoleUser, Content: "hi"},
			{ID: "2", Role: model.RoleAssistant, Content: "hello"},
		},
	}
	require.NoError(t, s.Restore(conv))
	assert.Equal(t, "google/gemini-flash-1.5:free", s.Model().ID)
	assert.Len(t, s.Entries(), 2)

	var notices []string
	s.onNotice = func(msg string) { notices = append(notices, msg) }
	s.Clear()
	assert.Empty(t, s.Entries())
	assert.Equal(t, []string{NoticeCleared}, notices)
}
