// Package metrics exposes the Prometheus instrumentation for the API server.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "lawdesk"

var (
	// Webhook metrics.
	WebhookEventCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_events_total",
			Help:      "Total number of payment webhook events by type and outcome",
		},
		[]string{"event_type", "outcome"},
	)

	WebhookSignatureFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "webhook_signature_failures_total",
		Help:      "Total number of webhook requests rejected for a bad signature",
	})

	// Request metrics.
	RequestDurationHistogram = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "status"},
	)
)

// Outcomes for WebhookEventCounter.
const (
	OutcomeProcessed = "processed"
	OutcomeDropped   = "dropped"
	OutcomeFailed    = "failed"
	OutcomeIgnored   = "ignored"
)

// RecordWebhookEvent increments the webhook event counter.
func RecordWebhookEvent(eventType, outcome string) {
	WebhookEventCounter.With(prometheus.Labels{
		"event_type": eventType,
		"outcome":    outcome,
	}).Inc()
}

// Middleware records request duration and status for every handled request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		RequestDurationHistogram.With(prometheus.Labels{
			"method": r.Method,
			"status": strconv.Itoa(ww.Status()),
		}).Observe(time.Since(start).Seconds())
	})
}
