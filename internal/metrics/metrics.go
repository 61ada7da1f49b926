package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CrushesSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fitcrush_crushes_sent_total",
		Help: "Crushes recorded.",
	})
	CrushesRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fitcrush_crushes_rejected_total",
		Help: "Crush sends rejected, by error code.",
	}, []string{"code"})
	MatchesCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fitcrush_matches_total",
		Help: "Mutual matches formed.",
	})
	MessagesSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fitcrush_messages_sent_total",
		Help: "Direct messages stored.",
	})
	WebhooksReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fitcrush_payment_webhooks_total",
		Help: "Payment webhooks, by event type and result.",
	}, []string{"event", "result"})
	OutboxDispatched = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fitcrush_outbox_dispatch_total",
		Help: "Outbox dispatch attempts, by event type and outcome.",
	}, []string{"type", "outcome"})
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fitcrush_http_requests_total",
		Help: "HTTP requests, by method, route and status.",
	}, []string{"method", "route", "status"})
	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fitcrush_http_request_duration_seconds",
		Help:    "HTTP request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})
)
