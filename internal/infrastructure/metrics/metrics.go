// Package metrics defines the Prometheus instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics.
type Metrics struct {
	// Transfer metrics
	TransfersExecuted prometheus.Counter
	TransfersEdited   prometheus.Counter
	TransferDuration  prometheus.Histogram
	TransferAmount    prometheus.Histogram
	TransferErrors    *prometheus.CounterVec
	ContentionRetries prometheus.Counter

	// Account metrics
	AccountsCreated prometheus.Counter
	SigninAttempts  *prometheus.CounterVec

	// Notification metrics
	NotificationPolls  prometheus.Counter
	NotificationDeltas *prometheus.CounterVec

	// Outbox metrics
	EventsPublished *prometheus.CounterVec
	EventsPending   prometheus.Gauge

	// API metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Idempotency metrics
	IdempotencyReplays prometheus.Counter
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		TransfersExecuted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "peerpay_transfers_executed_total",
			Help: "Total number of transfers executed",
		}),
		TransfersEdited: promauto.NewCounter(prometheus.CounterOpts{
			Name: "peerpay_transfers_edited_total",
			Help: "Total number of transaction amount edits",
		}),
		TransferDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "peerpay_transfer_duration_seconds",
			Help:    "Duration of transfer operations",
			Buckets: prometheus.DefBuckets,
		}),
		TransferAmount: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "peerpay_transfer_amount",
			Help:    "Transfer amounts",
			Buckets: []float64{1, 10, 100, 1000, 10000, 100000, 1000000},
		}),
		TransferErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "peerpay_transfer_errors_total",
				Help: "Total number of transfer errors by type",
			},
			[]string{"error_type"},
		),
		ContentionRetries: promauto.NewCounter(prometheus.CounterOpts{
			Name: "peerpay_contention_retries_total",
			Help: "Total number of transfers retried after lock contention",
		}),

		AccountsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "peerpay_accounts_created_total",
			Help: "Total number of accounts created",
		}),
		SigninAttempts: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "peerpay_signin_attempts_total",
				Help: "Total signin attempts by result",
			},
			[]string{"result"},
		),

		NotificationPolls: promauto.NewCounter(prometheus.CounterOpts{
			Name: "peerpay_notification_polls_total",
			Help: "Total notification reconcile requests",
		}),
		NotificationDeltas: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "peerpay_notification_deltas_total",
				Help: "Notification deltas delivered by kind",
			},
			[]string{"kind"},
		),

		EventsPublished: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "peerpay_events_published_total",
				Help: "Outbox events published by type",
			},
			[]string{"event_type"},
		),
		EventsPending: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "peerpay_events_pending",
			Help: "Outbox events awaiting publication",
		}),

		HTTPRequests: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "peerpay_http_requests_total",
				Help: "Total HTTP requests by method, path and status",
			},
			[]string{"method", "path", "status"},
		),
		HTTPDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "peerpay_http_request_duration_seconds",
				Help:    "HTTP request duration by method and path",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		IdempotencyReplays: promauto.NewCounter(prometheus.CounterOpts{
			Name: "peerpay_idempotency_replays_total",
			Help: "Transfer requests answered from the idempotency store",
		}),
	}
}
