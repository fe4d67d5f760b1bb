package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestOrderMetricsRecordsSeries(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewOrderMetrics(reg)

	m.ObserveCheckout("success", 120*time.Millisecond)
	m.IncStockConflict("create")
	m.IncStockConflict("create")
	m.IncLedgerOp("update", "success")

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}

	byName := map[string]*dto.MetricFamily{}
	for _, fam := range families {
		byName[fam.GetName()] = fam
	}

	conflicts, ok := byName["stock_conflicts_total"]
	if !ok {
		t.Fatal("expected stock_conflicts_total to be registered")
	}
	if got := conflicts.GetMetric()[0].GetCounter().GetValue(); got != 2 {
		t.Fatalf("expected 2 conflicts, got %v", got)
	}

	if _, ok := byName["checkout_duration_seconds"]; !ok {
		t.Fatal("expected checkout_duration_seconds to be registered")
	}
	if _, ok := byName["sale_line_item_ops_total"]; !ok {
		t.Fatal("expected sale_line_item_ops_total to be registered")
	}
}

func TestOrderMetricsNilSafe(t *testing.T) {
	var m *OrderMetrics
	m.ObserveCheckout("success", time.Second)
	m.IncStockConflict("create")
	m.IncLedgerOp("remove", "error")

	empty := NewOrderMetrics(nil)
	empty.IncStockConflict("")
}
