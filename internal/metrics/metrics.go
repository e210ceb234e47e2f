package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// WebhookRequestsTotal counts Stripe webhook requests by event type and status.
	WebhookRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "garagepro",
		Subsystem: "billing",
		Name:      "webhook_requests_total",
		Help:      "Total Stripe webhook requests by event type and HTTP status.",
	}, []string{"event_type", "status"})

	// WebhookDuration tracks Stripe webhook processing latency.
	WebhookDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "garagepro",
		Subsystem: "billing",
		Name:      "webhook_duration_seconds",
		Help:      "Stripe webhook processing duration in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"event_type"})

	// ReconcileTotal counts subscription upserts by outcome (created,
	// updated, error).
	ReconcileTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "garagepro",
		Subsystem: "billing",
		Name:      "reconcile_total",
		Help:      "Subscription reconciliations by outcome.",
	}, []string{"outcome"})

	// DroppedEventsTotal counts lifecycle events acknowledged without a write.
	DroppedEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "garagepro",
		Subsystem: "billing",
		Name:      "dropped_events_total",
		Help:      "Lifecycle events dropped by event type and reason.",
	}, []string{"event_type", "reason"})

	// InvoicesGeneratedTotal counts persisted invoices.
	InvoicesGeneratedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "garagepro",
		Subsystem: "billing",
		Name:      "invoices_generated_total",
		Help:      "Invoices persisted after a successful payment.",
	})

	// SideEffectFailuresTotal counts best-effort steps that failed after the
	// subscription state was already written.
	SideEffectFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "garagepro",
		Subsystem: "billing",
		Name:      "side_effect_failures_total",
		Help:      "Failed best-effort side effects by step.",
	}, []string{"step"})
)
