package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestCommerceMetricsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCommerceMetrics(reg)

	m.IncOrderCreated()
	m.IncOrderCreated()
	m.IncTransition("shipped")
	m.IncPaymentCallback("duplicate")
	m.IncNotification("order.confirmation", "")
	m.AddStockDrift(3)
	m.AddStockDrift(-1)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	created := findMetricFamily(mfs, "storefront_orders_created_total")
	if created == nil || created.GetMetric()[0].GetCounter().GetValue() != 2 {
		t.Fatalf("expected two created orders")
	}
	if got, err := fetchCounterValue(mfs, "storefront_order_transitions_total", "status", "shipped"); err != nil || got != 1 {
		t.Fatalf("expected shipped transition=1, got %v err=%v", got, err)
	}
	if got, err := fetchCounterValue(mfs, "storefront_payment_callbacks_total", "outcome", "duplicate"); err != nil || got != 1 {
		t.Fatalf("expected duplicate callback=1, got %v err=%v", got, err)
	}
	if got, err := fetchCounterValue(mfs, "storefront_notifications_total", "outcome", "unknown"); err != nil || got != 1 {
		t.Fatalf("expected empty outcome to normalize to unknown, got %v err=%v", got, err)
	}
	drift := findMetricFamily(mfs, "storefront_inventory_stock_drift_total")
	if drift == nil || drift.GetMetric()[0].GetCounter().GetValue() != 3 {
		t.Fatalf("expected drift=3")
	}
}

func TestCommerceMetricsNilSafe(t *testing.T) {
	var m *CommerceMetrics
	m.IncOrderCreated()
	m.IncTransition("x")
	NewCommerceMetrics(nil).IncPaymentCallback("ok")
}
