package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "studiobook",
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint.",
		},
		[]string{"endpoint"},
	)

	webhookEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "studiobook",
			Name:      "webhook_events_total",
			Help:      "Payment processor events by kind and outcome.",
		},
		[]string{"kind", "outcome"},
	)

	emailsSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "studiobook",
			Name:      "emails_sent_total",
			Help:      "Outbound notification emails by kind and outcome.",
		},
		[]string{"kind", "outcome"},
	)

	refunds = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "studiobook",
			Name:      "refunds_total",
			Help:      "Admin-initiated refunds by policy and outcome.",
		},
		[]string{"policy", "outcome"},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, webhookEvents, emailsSent, refunds)
	})
}

// IncHTTP increments the counter for an endpoint label.
func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}

// IncWebhookEvent records a processed (or failed) processor event.
func IncWebhookEvent(kind, outcome string) {
	webhookEvents.WithLabelValues(kind, outcome).Inc()
}

// IncEmail records an email send attempt outcome.
func IncEmail(kind, outcome string) {
	emailsSent.WithLabelValues(kind, outcome).Inc()
}

// IncRefund records a refund attempt outcome.
func IncRefund(policy, outcome string) {
	refunds.WithLabelValues(policy, outcome).Inc()
}
