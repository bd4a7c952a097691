package model

import (
	"bytes"
	"io"
	"net/http"
	"regexp"
	"strings"
	"unicode/utf8"

	"webstarter-backend/pkg/logger"

	"github.com/sirupsen/logrus"
)

const maxLoggedBody = 4096

var sensitiveJSONField = regexp.MustCompile(`(?i)"(api_key|apikey|password|secret|token)"\s*:\s*"[^"]*"`)

// DebugTransport logs outbound POST requests with credentials redacted.
type DebugTransport struct {
	base    http.RoundTripper
	enabled bool
}

func NewDebugTransport(base http.RoundTripper, enabled bool) *DebugTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &DebugTransport{base: base, enabled: enabled}
}

func (t *DebugTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.enabled && req.Method == http.MethodPost {
		t.logRequest(req)
	}

	resp, err := t.base.RoundTrip(req)
	if err != nil && t.enabled {
		logger.WithError(err).WithField("url", req.URL.String()).Warn("upstream request failed")
	}
	return resp, err
}

func (t *DebugTransport) logRequest(req *http.Request) {
	fields := logrus.Fields{
		"method":  req.Method,
		"url":     req.URL.String(),
		"headers": redactHeaders(req.Header),
	}

	if req.Body != nil {
		body, err := io.ReadAll(req.Body)
		if err != nil {
			logger.WithError(err).Warn("read upstream request body")
			return
		}
		req.Body = io.NopCloser(bytes.NewReader(body))
		fields["body_size"] = len(body)
		fields["body"] = sanitizeBody(body)
	}

	logger.WithFields(fields).Debug("upstream request")
}

func redactHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for name, values := range h {
		if isSensitiveHeader(name) {
			out[name] = "[REDACTED]"
			continue
		}
		out[name] = strings.Join(values, ", ")
	}
	return out
}

func isSensitiveHeader(name string) bool {
	switch strings.ToLower(name) {
	case "authorization", "x-api-key", "x-auth-token", "cookie":
		return true
	}
	return false
}

func sanitizeBody(body []byte) string {
	s := sensitiveJSONField.ReplaceAllString(string(body), `"$1": "[REDACTED]"`)
	if len(s) > maxLoggedBody {
		cut := maxLoggedBody
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		s = s[:cut] + "...(truncated)"
	}
	return s
}
