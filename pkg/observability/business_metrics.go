package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Inbound webhook metrics
	webhookDeliveriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "poynt_webhook_deliveries_total",
		Help: "Total Poynt webhook deliveries received",
	}, []string{
		"event_type",
		"outcome", // handled, ignored, duplicate, rejected, failed
	})

	webhookProcessingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name: "poynt_webhook_processing_duration_seconds",
		Help: "Time to validate and reconcile a webhook delivery",
		// dominated by one or two remote fetches
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25},
	}, []string{
		"event_type",
	})

	// Reconciliation metrics
	reconciliationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "poynt_reconciliations_total",
		Help: "Reconciliation outcomes per handler",
	}, []string{
		"handler", // capture, sale, authorization, refund, void
		"outcome", // handled, duplicate, unmatched, dropped, error
	})

	remoteFetchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "poynt_remote_fetches_total",
		Help: "Remote transaction fetches made while classifying webhooks",
	}, []string{
		"status", // ok, error
	})

	feeLinesAddedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "poynt_fee_lines_added_total",
		Help: "Tip and cashback fee lines injected into orders",
	}, []string{
		"label",
	})

	// Outbound sync metrics
	syncOperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "poynt_sync_operations_total",
		Help: "Outbound order sync operations",
	}, []string{
		"operation", // complete, cancel, refund
		"result",    // completed, force_completed, cancelled, refunded, voided, already_synced, skipped, failed
	})

	syncFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sync_failures_total",
		Help: "Outbound sync failures swallowed at the hook boundary",
	}, []string{
		"operation",
	})

	// Event bus
	eventsPublishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "poynt_events_published_total",
		Help: "Domain events published on the internal bus",
	}, []string{
		"event",
		"result", // ok, error
	})

	dbTransactionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "poynt_db_transactions_total",
		Help: "Write transactions by outcome",
	}, []string{
		"result", // committed, rolled_back, failed
	})
)

// RecordWebhookDelivery records one webhook delivery and its processing time
func RecordWebhookDelivery(eventType, outcome string, duration float64) {
	webhookDeliveriesTotal.WithLabelValues(eventType, outcome).Inc()
	webhookProcessingDuration.WithLabelValues(eventType).Observe(duration)
}

// RecordReconciliation records the outcome of one reconciliation handler run
func RecordReconciliation(handler, outcome string) {
	reconciliationsTotal.WithLabelValues(handler, outcome).Inc()
}

// RecordRemoteFetch records one remote transaction fetch
func RecordRemoteFetch(ok bool) {
	status := "ok"
	if !ok {
		status = "error"
	}
	remoteFetchesTotal.WithLabelValues(status).Inc()
}

// RecordFeeLineAdded records a tip or cashback fee line added to an order
func RecordFeeLineAdded(label string) {
	feeLinesAddedTotal.WithLabelValues(label).Inc()
}

// RecordSyncOperation records an outbound sync call
func RecordSyncOperation(operation, result string) {
	syncOperationsTotal.WithLabelValues(operation, result).Inc()
	if result == "failed" {
		syncFailuresTotal.WithLabelValues(operation).Inc()
	}
}

// RecordEventPublished records a domain event published on the bus
func RecordEventPublished(event string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	eventsPublishedTotal.WithLabelValues(event, result).Inc()
}

// RecordDBTransaction records how a write transaction ended
func RecordDBTransaction(result string) {
	dbTransactionsTotal.WithLabelValues(result).Inc()
}
