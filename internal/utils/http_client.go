package utils

import (
	"net/http"
	"time"
)

// NewHTTPClient returns a pooled client for outbound provider calls. A zero
// timeout leaves deadlines to the request context.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}
