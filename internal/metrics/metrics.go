// Package metrics exposes Prometheus counters for the settlement pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Settlements counts successful first-time payment settlements.
	Settlements = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stitchmart_settlements_total",
		Help: "Orders settled (paid + stock deducted) for the first time.",
	})

	// DuplicateTriggers counts payment confirmations that arrived after the
	// order was already paid (safe no-ops).
	DuplicateTriggers = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stitchmart_duplicate_triggers_total",
		Help: "Payment confirmations resolved as idempotent no-ops.",
	})

	// ReplayRejections counts payment references seen bound to another order.
	ReplayRejections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stitchmart_replay_rejections_total",
		Help: "Verification requests rejected because the payment reference belongs to another order.",
	})

	// OversellRejections counts whole-order deductions aborted for stock.
	OversellRejections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stitchmart_oversell_rejections_total",
		Help: "Inventory settlements aborted because a line item exceeded available stock.",
	})

	// SettlementAlerts counts inventory failures after payment capture. These
	// require manual operator reconciliation.
	SettlementAlerts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stitchmart_settlement_alerts_total",
		Help: "Stock deductions that failed after the payment was already captured.",
	})

	// WebhookFailures counts webhook deliveries that were acked but failed
	// internal processing.
	WebhookFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stitchmart_webhook_failures_total",
		Help: "Webhook events acknowledged to the gateway but failed internally.",
	})

	// InvoicesIssued counts invoice numbers assigned to orders.
	InvoicesIssued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stitchmart_invoices_issued_total",
		Help: "Invoice numbers allocated and bound to orders.",
	})
)
