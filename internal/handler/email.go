package handler

import (
	"errors"
	"net/http"

	"webstarter-backend/internal/metrics"
	"webstarter-backend/internal/model"
	"webstarter-backend/internal/service"
	"webstarter-backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

type EmailHandler struct {
	emailService *service.EmailService
}

func NewEmailHandler(emailService *service.EmailService) *EmailHandler {
	return &EmailHandler{
		emailService: emailService,
	}
}

// Send serves POST /api/email.
func (h *EmailHandler) Send(c *gin.Context) {
	var req model.EmailRequest
	err := c.ShouldBindJSON(&req)

	var verrs validator.ValidationErrors
	switch {
	case err != nil && !errors.As(err, &verrs):
		logger.WithError(err).Error("Email API error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send email"})
		return
	case !service.IsEmailType(req.Type):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid email type"})
		return
	case err != nil:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid email request", "details": verrs.Error()})
		return
	}

	receipt, err := h.emailService.Send(c.Request.Context(), &req)
	if err != nil {
		logger.WithError(err).WithField("type", req.Type).Error("Email API error")
		metrics.EmailsSentTotal.WithLabelValues(req.Type, "error").Inc()
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send email"})
		return
	}

	metrics.EmailsSentTotal.WithLabelValues(req.Type, "ok").Inc()
	c.JSON(http.StatusOK, gin.H{"success": true, "data": receipt})
}
