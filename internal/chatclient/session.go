package chatclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"webstarter-backend/internal/model"
	"webstarter-backend/pkg/logger"
)

const (
	NoticeCancelled  = "Request cancelled"
	NoticeSendFailed = "Failed to send message. Please try again."
	NoticeCleared    = "Chat cleared"
)

const requestTemperature float32 = 0.7

var (
	ErrEmptyMessage  = errors.New("message is empty")
	ErrCycleInFlight = errors.New("a reply is already being generated")
	ErrAborted       = errors.New("request cancelled")
	ErrSendFailed    = errors.New("failed to send message")
	ErrUnknownModel  = errors.New("unknown model")
)

type Config struct {
	// Endpoint is the chat route, e.g. http://localhost:8080/api/ai.
	Endpoint   string
	HTTPClient *http.Client
	// Token is sent as a bearer token when set.
	Token string

	// OnUpdate receives every entry added or changed.
	OnUpdate func(Entry)
	// OnNotice receives short user-facing notices.
	OnNotice func(string)
}

// Session runs one send/stream cycle at a time against the chat endpoint.
type Session struct {
	endpoint string
	client   *http.Client
	token    string
	onUpdate func(Entry)
	onNotice func(string)

	transcript *Transcript

	// mu guards the fields below and orders fragment writes against Stop.
	mu        sync.Mutex
	model     model.AIModel
	loading   bool
	streaming bool
	cycle     *cycle
}

type cycle struct {
	ctx    context.Context
	cancel context.CancelFunc
}

func NewSession(cfg Config) *Session {
	client := cfg.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	return &Session{
		endpoint:   cfg.Endpoint,
		client:     client,
		token:      cfg.Token,
		onUpdate:   cfg.OnUpdate,
		onNotice:   cfg.OnNotice,
		transcript: NewTranscript(),
		model:      model.DefaultModel(),
	}
}

// Send appends text as a user turn and streams the reply into a new
// assistant entry. It blocks until the cycle ends.
func (s *Session) Send(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyMessage
	}

	cy, modelID, err := s.begin(ctx)
	if err != nil {
		return err
	}
	defer s.finish(cy)

	err = s.run(cy, modelID, text)
	switch {
	case err == nil:
		return nil
	case errors.Is(cy.ctx.Err(), context.Canceled):
		s.emitNotice(NoticeCancelled)
		return ErrAborted
	default:
		logger.WithError(err).WithField("model", modelID).Error("chat cycle failed")
		s.emitNotice(NoticeSendFailed)
		return fmt.Errorf("%w: %v", ErrSendFailed, err)
	}
}

func (s *Session) begin(ctx context.Context) (*cycle, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loading {
		return nil, "", ErrCycleInFlight
	}

	cctx, cancel := context.WithCancel(ctx)
	cy := &cycle{ctx: cctx, cancel: cancel}
	s.cycle = cy
	s.loading = true
	s.streaming = true
	return cy, s.model.ID, nil
}

// finish leaves a newer cycle alone if Stop already handed the session over.
func (s *Session) finish(cy *cycle) {
	cy.cancel()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cycle == cy {
		s.cycle = nil
		s.loading = false
		s.streaming = false
	}
}

func (s *Session) run(cy *cycle, modelID, text string) error {
	history := s.transcript.Messages()
	turn, err := s.appendEntry(cy, model.RoleUser, text, "")
	if err != nil {
		return err
	}
	s.emitUpdate(turn)

	return s.stream(cy, modelID, append(history, model.ChatMessage{Role: model.RoleUser, Content: text}))
}

func (s *Session) stream(cy *cycle, modelID string, messages []model.ChatMessage) error {
	temperature := requestTemperature
	body, err := json.Marshal(model.ChatRequest{
		Messages:    messages,
		Model:       modelID,
		Temperature: &temperature,
	})
	if err != nil {
		return err
	}

	u, err := url.Parse(s.endpoint)
	if err != nil {
		return fmt.Errorf("parse endpoint: %w", err)
	}
	q := u.Query()
	q.Set("stream", "true")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(cy.ctx, http.MethodPost, u.String(), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	reply, err := s.appendEntry(cy, model.RoleAssistant, "", modelID)
	if err != nil {
		return err
	}
	s.emitUpdate(reply)

	dec := NewEventDecoder(resp.Body)
	for {
		fragment, err := dec.Next()
		if errors.Is(err, io.EOF) {
			s.endStreaming(cy)
			return nil
		}
		if err != nil {
			return err
		}

		updated, err := s.apply(cy, reply.ID, fragment)
		if errors.Is(err, ErrEntryNotFound) {
			// cleared mid-stream
			continue
		}
		if err != nil {
			return err
		}
		s.emitUpdate(updated)
	}
}

// appendEntry adds a new entry unless the cycle was cancelled first.
func (s *Session) appendEntry(cy *cycle, role, content, modelID string) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := cy.ctx.Err(); err != nil {
		return Entry{}, err
	}
	return s.transcript.Append(role, content, modelID), nil
}

// apply writes one fragment unless the cycle was cancelled first.
func (s *Session) apply(cy *cycle, id, fragment string) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := cy.ctx.Err(); err != nil {
		return Entry{}, err
	}
	return s.transcript.AppendContent(id, fragment)
}

func (s *Session) endStreaming(cy *cycle) {
	s.mu.Lock()
	if s.cycle == cy {
		s.streaming = false
	}
	s.mu.Unlock()
}

// Stop cancels the in-flight cycle. It reports whether there was one.
func (s *Session) Stop() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cycle == nil {
		return false
	}
	s.cycle.cancel()
	s.cycle = nil
	s.loading = false
	s.streaming = false
	return true
}

func (s *Session) SelectModel(id string) error {
	m, ok := model.GetModelByID(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownModel, id)
	}

	s.mu.Lock()
	s.model = m
	s.mu.Unlock()
	return nil
}

func (s *Session) Model() model.AIModel {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.model
}

func (s *Session) Clear() {
	s.transcript.Clear()
	s.emitNotice(NoticeCleared)
}

// Restore loads a saved conversation. Its model is selected when the catalog
// still has it.
func (s *Session) Restore(conv *model.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loading {
		return ErrCycleInFlight
	}
	s.transcript.Replace(conv.Entries)
	if m, ok := model.GetModelByID(conv.Model); ok {
		s.model = m
	}
	return nil
}

func (s *Session) Entries() []Entry {
	return s.transcript.Entries()
}

func (s *Session) IsLoading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

func (s *Session) IsStreaming() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.streaming
}

func (s *Session) emitUpdate(e Entry) {
	if s.onUpdate != nil {
		s.onUpdate(e)
	}
}

func (s *Session) emitNotice(msg string) {
	if s.onNotice != nil {
		s.onNotice(msg)
	}
}
