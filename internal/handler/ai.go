package handler

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"webstarter-backend/internal/metrics"
	"webstarter-backend/internal/middleware"
	"webstarter-backend/internal/model"
	"webstarter-backend/internal/service"
	"webstarter-backend/internal/utils"
	"webstarter-backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const (
	modeStream   = "stream"
	modeComplete = "complete"
)

type AIHandler struct {
	chatService *service.ChatService
}

func NewAIHandler(chatService *service.ChatService) *AIHandler {
	return &AIHandler{
		chatService: chatService,
	}
}

// Chat serves POST /api/ai. `?stream=true` switches to an event stream.
func (h *AIHandler) Chat(c *gin.Context) {
	mode := modeComplete
	if c.Query("stream") == "true" {
		mode = modeStream
	}

	var req model.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, mode, err)
		return
	}
	if err := h.chatService.Validate(&req); err != nil {
		h.fail(c, mode, err)
		return
	}

	if mode == modeStream {
		h.stream(c, &req)
		return
	}

	resp, err := h.chatService.Complete(c.Request.Context(), &req)
	if err != nil {
		h.fail(c, mode, err)
		return
	}

	metrics.ChatRequestsTotal.WithLabelValues(mode, "ok").Inc()
	c.JSON(http.StatusOK, resp)
}

func (h *AIHandler) stream(c *gin.Context, req *model.ChatRequest) {
	ctx := c.Request.Context()

	stream, err := h.chatService.OpenStream(ctx, req)
	if err != nil {
		h.fail(c, modeStream, err)
		return
	}
	defer stream.Close()

	sse := utils.NewSSEWriter(c.Writer)
	c.Status(http.StatusOK)
	c.Writer.Flush()

	for {
		fragment, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			if err := sse.Done(); err != nil {
				logger.WithError(err).Warn("write stream terminator")
			}
			metrics.ChatRequestsTotal.WithLabelValues(modeStream, "ok").Inc()
			return
		}
		if err != nil {
			if ctx.Err() != nil {
				metrics.ChatRequestsTotal.WithLabelValues(modeStream, "aborted").Inc()
				return
			}
			h.logEntry(c, req).WithError(err).Error("upstream stream failed")
			metrics.ChatRequestsTotal.WithLabelValues(modeStream, "upstream_error").Inc()
			// Fragments already sent stay sent. Dropping the connection without
			// [DONE] is the failure signal.
			panic(http.ErrAbortHandler)
		}

		if err := sse.WriteJSON(model.StreamChunk{Content: fragment}); err != nil {
			metrics.ChatRequestsTotal.WithLabelValues(modeStream, "aborted").Inc()
			return
		}
		metrics.ChatFragmentsTotal.Inc()
	}
}

func (h *AIHandler) fail(c *gin.Context, mode string, err error) {
	switch {
	case errors.Is(err, service.ErrMissingFields):
		metrics.ChatRequestsTotal.WithLabelValues(mode, "bad_request").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields: messages and model"})
	case errors.Is(err, service.ErrUpstream):
		logger.WithError(err).WithField("mode", mode).Error("AI upstream error")
		metrics.ChatRequestsTotal.WithLabelValues(mode, "upstream_error").Inc()
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	default:
		logger.WithError(err).WithField("mode", mode).Error("AI API error")
		metrics.ChatRequestsTotal.WithLabelValues(mode, "internal_error").Inc()
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

func (h *AIHandler) logEntry(c *gin.Context, req *model.ChatRequest) *logrus.Entry {
	fields := logrus.Fields{
		"model":    req.Model,
		"messages": len(req.Messages),
	}
	if userID := c.GetString(middleware.UserIDKey); userID != "" {
		fields["user_id"] = userID
	}
	return logger.WithFields(fields)
}

// ListModels serves GET /api/ai/models, optionally filtered by ?category=.
func (h *AIHandler) ListModels(c *gin.Context) {
	if category := c.Query("category"); category != "" {
		c.JSON(http.StatusOK, gin.H{"models": model.GetModelsByCategory(model.ModelCategory(category))})
		return
	}
	c.JSON(http.StatusOK, gin.H{"models": model.FreeModels()})
}

// GetModel serves GET /api/ai/models/*id; catalog ids contain slashes.
func (h *AIHandler) GetModel(c *gin.Context) {
	id := strings.TrimPrefix(c.Param("id"), "/")
	m, ok := model.GetModelByID(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Model not found"})
		return
	}
	c.JSON(http.StatusOK, m)
}
