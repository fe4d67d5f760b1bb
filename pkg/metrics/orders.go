package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// OrderMetrics records checkout and stock-ledger outcomes.
type OrderMetrics struct {
	checkoutDuration *prometheus.HistogramVec
	stockConflicts   *prometheus.CounterVec
	ledgerOps        *prometheus.CounterVec
}

// NewOrderMetrics registers the order metrics on the provided registerer.
func NewOrderMetrics(reg prometheus.Registerer) *OrderMetrics {
	if reg == nil {
		return &OrderMetrics{}
	}
	checkoutDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "checkout_duration_seconds",
		Help:    "Duration of checkout transactions in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})
	stockConflicts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stock_conflicts_total",
		Help: "Operations rejected because available stock was insufficient.",
	}, []string{"operation"})
	ledgerOps := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sale_line_item_ops_total",
		Help: "Sale line-item ledger operations by kind and outcome.",
	}, []string{"operation", "outcome"})
	reg.MustRegister(checkoutDuration, stockConflicts, ledgerOps)
	return &OrderMetrics{
		checkoutDuration: checkoutDuration,
		stockConflicts:   stockConflicts,
		ledgerOps:        ledgerOps,
	}
}

// ObserveCheckout records the duration of one checkout attempt.
func (m *OrderMetrics) ObserveCheckout(outcome string, duration time.Duration) {
	if m == nil || m.checkoutDuration == nil {
		return
	}
	m.checkoutDuration.WithLabelValues(normalizeLabel(outcome)).Observe(duration.Seconds())
}

// IncStockConflict counts a rejected stock check for the named operation.
func (m *OrderMetrics) IncStockConflict(operation string) {
	if m == nil || m.stockConflicts == nil {
		return
	}
	m.stockConflicts.WithLabelValues(normalizeLabel(operation)).Inc()
}

// IncLedgerOp counts one ledger operation with its outcome.
func (m *OrderMetrics) IncLedgerOp(operation, outcome string) {
	if m == nil || m.ledgerOps == nil {
		return
	}
	m.ledgerOps.WithLabelValues(normalizeLabel(operation), normalizeLabel(outcome)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
