package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// CommerceMetrics tracks the checkout, fulfillment and payment pipeline.
type CommerceMetrics struct {
	ordersCreated    prometheus.Counter
	checkoutFailures *prometheus.CounterVec
	transitions      *prometheus.CounterVec
	paymentCallbacks *prometheus.CounterVec
	notifications    *prometheus.CounterVec
	stockDrift       prometheus.Counter
}

// NewCommerceMetrics registers the commerce metrics on the provided registerer.
func NewCommerceMetrics(reg prometheus.Registerer) *CommerceMetrics {
	if reg == nil {
		return &CommerceMetrics{}
	}
	m := &CommerceMetrics{
		ordersCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "storefront_orders_created_total",
			Help: "Orders successfully created from carts.",
		}),
		checkoutFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_checkout_failures_total",
			Help: "Order creation attempts rejected, by error code.",
		}, []string{"code"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_order_transitions_total",
			Help: "Order status transitions applied, by target status.",
		}, []string{"status"}),
		paymentCallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_payment_callbacks_total",
			Help: "Payment provider callbacks processed, by outcome.",
		}, []string{"outcome"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_notifications_total",
			Help: "Notification deliveries, by template and outcome.",
		}, []string{"template", "outcome"}),
		stockDrift: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "storefront_inventory_stock_drift_total",
			Help: "Cached stock counters found out of line with the ledger.",
		}),
	}
	reg.MustRegister(m.ordersCreated, m.checkoutFailures, m.transitions, m.paymentCallbacks, m.notifications, m.stockDrift)
	return m
}

func (m *CommerceMetrics) IncOrderCreated() {
	if m == nil || m.ordersCreated == nil {
		return
	}
	m.ordersCreated.Inc()
}

func (m *CommerceMetrics) IncCheckoutFailure(code string) {
	if m == nil || m.checkoutFailures == nil {
		return
	}
	m.checkoutFailures.WithLabelValues(normalizeLabel(code)).Inc()
}

func (m *CommerceMetrics) IncTransition(status string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(status)).Inc()
}

func (m *CommerceMetrics) IncPaymentCallback(outcome string) {
	if m == nil || m.paymentCallbacks == nil {
		return
	}
	m.paymentCallbacks.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func (m *CommerceMetrics) IncNotification(template, outcome string) {
	if m == nil || m.notifications == nil {
		return
	}
	m.notifications.WithLabelValues(normalizeLabel(template), normalizeLabel(outcome)).Inc()
}

func (m *CommerceMetrics) AddStockDrift(n int) {
	if m == nil || m.stockDrift == nil || n <= 0 {
		return
	}
	m.stockDrift.Add(float64(n))
}
