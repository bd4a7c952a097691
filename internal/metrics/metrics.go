package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
	// ChatRequestsTotal is labelled by mode (stream, complete) and outcome
	// (ok, bad_request, upstream_error, internal_error, aborted).
	ChatRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_requests_total",
			Help: "Chat proxy requests by mode and outcome.",
		},
		[]string{"mode", "outcome"},
	)
	ChatFragmentsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_stream_fragments_total",
			Help: "Content fragments re-emitted on chat event streams.",
		},
	)
	EmailsSentTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "emails_sent_total",
			Help: "Transactional emails by template type and outcome.",
		},
		[]string{"type", "outcome"},
	)
)

func init() {
	prometheus.MustRegister(HTTPRequestsTotal)
	prometheus.MustRegister(HTTPRequestDuration)
	prometheus.MustRegister(ChatRequestsTotal)
	prometheus.MustRegister(ChatFragmentsTotal)
	prometheus.MustRegister(EmailsSentTotal)
}
