// Package metrics holds the Prometheus instruments for the decisioning core.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	VendorCalls         *prometheus.CounterVec
	WaterfallRuns       *prometheus.CounterVec
	WorkflowTransitions *prometheus.CounterVec
	WebhooksEnqueued    prometheus.Counter
	BillingEvents       prometheus.Counter
	VendorCallLatency   *prometheus.HistogramVec
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		VendorCalls: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "vouch_vendor_calls_total",
			Help: "Vendor calls dispatched, labeled by vendor and outcome",
		}, []string{"vendor", "outcome"}),
		WaterfallRuns: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "vouch_waterfall_runs_total",
			Help: "Waterfall invocations, labeled by result",
		}, []string{"result"}),
		WorkflowTransitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "vouch_workflow_transitions_total",
			Help: "Accepted workflow transitions, labeled by kind and action",
		}, []string{"kind", "action"}),
		WebhooksEnqueued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vouch_webhooks_enqueued_total",
			Help: "Webhook tasks enqueued on composite status change",
		}),
		BillingEvents: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vouch_billing_events_total",
			Help: "Billing events enqueued",
		}),
		VendorCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "vouch_vendor_call_seconds",
			Help:    "Latency of vendor calls by vendor",
			Buckets: prometheus.DefBuckets,
		}, []string{"vendor"}),
	}
}
