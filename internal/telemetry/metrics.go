package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for payment and order observability.
type Metrics struct {
	// Checkout funnel
	CheckoutStarted   prometheus.Counter
	CheckoutSubmitted *prometheus.CounterVec
	CheckoutFailed    *prometheus.CounterVec

	// Reconciliation
	ReconcileRuns             *prometheus.CounterVec
	DuplicateFinalizeAttempts prometheus.Counter
	CorrelationMismatches     prometheus.Counter

	// Orders
	OrdersFinalized *prometheus.CounterVec
	OrderValue      *prometheus.HistogramVec

	// Webhooks
	WebhookReceived *prometheus.CounterVec
	WebhookFailed   prometheus.Counter
	WebhookLatency  prometheus.Histogram

	// Side effects
	NotificationsSent    prometheus.Counter
	NotificationsFailed  prometheus.Counter
	StockDecrementFailed prometheus.Counter

	// External API performance
	GatewayLatency *prometheus.HistogramVec
}

// NewMetrics creates and registers all metrics on the default registry.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "udl"
	}

	subsystem := "store"

	return &Metrics{
		CheckoutStarted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "checkout_started_total",
			Help:      "Total checkout requests received",
		}),
		CheckoutSubmitted: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "checkout_submitted_total",
				Help:      "Total orders submitted to the payment gateway",
			},
			[]string{"currency"},
		),
		CheckoutFailed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "checkout_failed_total",
				Help:      "Total checkouts that failed before redirect",
			},
			[]string{"reason"}, // reason: validation, gateway, store
		),
		ReconcileRuns: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "reconcile_runs_total",
				Help:      "Total reconciliation invocations by trigger and resulting status",
			},
			[]string{"trigger", "status"},
		),
		DuplicateFinalizeAttempts: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "duplicate_finalize_attempts_total",
			Help:      "Total reconciliations short-circuited by an existing terminal decision",
		}),
		CorrelationMismatches: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "correlation_mismatches_total",
			Help:      "Total provider responses rejected for echoing the wrong order reference",
		}),
		OrdersFinalized: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "orders_finalized_total",
				Help:      "Total orders recorded with a terminal status",
			},
			[]string{"status"}, // status: paid, failed
		),
		OrderValue: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "order_value",
				Help:      "Distribution of finalized order totals",
				Buckets:   prometheus.ExponentialBuckets(100, 2.5, 10),
			},
			[]string{"currency"},
		),
		WebhookReceived: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "webhook_received_total",
				Help:      "Total gateway notifications received",
			},
			[]string{"result"}, // result: success, failure
		),
		WebhookFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "webhook_failed_total",
			Help:      "Total webhook deliveries that failed internal processing",
		}),
		WebhookLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "webhook_latency_seconds",
			Help:      "Webhook processing duration",
			Buckets:   prometheus.DefBuckets,
		}),
		NotificationsSent: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "notifications_sent_total",
			Help:      "Total operator notifications delivered",
		}),
		NotificationsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "notifications_failed_total",
			Help:      "Total operator notifications that failed delivery",
		}),
		StockDecrementFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "stock_decrement_failed_total",
			Help:      "Total stock decrements that failed after finalize",
		}),
		GatewayLatency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "gateway_latency_seconds",
				Help:      "Payment gateway API call duration by operation",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}
