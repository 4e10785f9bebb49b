package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"route", "method", "status"},
	)

	// Ledger
	LedgerAdjustments = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_adjustments_total",
			Help: "Completed ledger adjustments",
		},
		[]string{"type", "service_type"}, // debit|credit|refund
	)
	LedgerRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_rejections_total",
			Help: "Adjustments rejected before any write",
		},
		[]string{"reason"}, // insufficient_funds|not_active|invalid_signature
	)

	// Queue consumer
	MessagesConsumed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "queue_messages_consumed_total",
			Help: "Messages acked after successful processing",
		},
		[]string{"topic"},
	)
	MessagesDeadLettered = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "queue_messages_dead_lettered_total",
			Help: "Messages routed to the dead-letter topic",
		},
		[]string{"topic"},
	)
)

// Handler serves the /metrics endpoint.
var Handler = promhttp.Handler

func Init() {
	prometheus.MustRegister(RequestsTotal)
	prometheus.MustRegister(LedgerAdjustments)
	prometheus.MustRegister(LedgerRejections)
	prometheus.MustRegister(MessagesConsumed)
	prometheus.MustRegister(MessagesDeadLettered)
}
