package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// OrdersCreatedTotal counts checkout attempts by outcome.
	OrdersCreatedTotal *prometheus.CounterVec
	// PaymentVerifyTotal counts payment verification outcomes.
	PaymentVerifyTotal *prometheus.CounterVec
	// GatewayOrderTotal counts upstream gateway order creation outcomes.
	GatewayOrderTotal *prometheus.CounterVec
	// PendingOrdersSwept counts pending orders expired by the sweeper.
	PendingOrdersSwept prometheus.Counter
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		OrdersCreatedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_created_total",
			Help:      "Count of checkout order creation outcomes.",
		}, []string{"result"})
		PaymentVerifyTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_verify_total",
			Help:      "Count of payment verification outcomes.",
		}, []string{"result"})
		GatewayOrderTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gateway_order_total",
			Help:      "Count of payment gateway order creation outcomes.",
		}, []string{"result"})
		PendingOrdersSwept = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pending_orders_swept_total",
			Help:      "Count of abandoned pending orders marked failed by the sweeper.",
		})
		reg.MustRegister(OrdersCreatedTotal, PaymentVerifyTotal, GatewayOrderTotal, PendingOrdersSwept)
	})
}
