package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Marketplace counters and histograms.

var (
	// Escrow
	OrderTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "market",
		Subsystem: "escrow",
		Name:      "order_transitions_total",
		Help:      "Order status transitions applied",
	}, []string{"from", "to"})

	BuyOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "market",
		Subsystem: "escrow",
		Name:      "buy_outcomes_total",
		Help:      "Purchase attempts by result",
	}, []string{"result"})

	SweeperRefunds = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "market",
		Subsystem: "escrow",
		Name:      "sweeper_refunds_total",
		Help:      "Expired escrows refunded by the sweeper, by resulting status",
	}, []string{"status"})

	// Payments
	WebhookResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "market",
		Subsystem: "payments",
		Name:      "deposit_notifications_total",
		Help:      "Deposit notifications by source and result",
	}, []string{"source", "result"})

	DepositsCreditedAmount = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "market",
		Subsystem: "payments",
		Name:      "credited_amount_total",
		Help:      "Total amount credited by deposits",
	})

	// Outbox
	OutboxPublishResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "market",
		Subsystem: "outbox",
		Name:      "publish_total",
		Help:      "Outbox publish attempts by event type and result",
	}, []string{"event_type", "result"})

	// HTTP
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "market",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request duration",
		Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	}, []string{"method", "route", "status"})
)
