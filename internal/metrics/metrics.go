package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pos",
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests.",
	}, []string{"method", "route", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "pos",
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})

	salesCommitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pos",
		Subsystem: "sales",
		Name:      "committed_total",
		Help:      "Sales persisted, by payment method.",
	}, []string{"payment_method"})

	saleRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pos",
		Subsystem: "sales",
		Name:      "rejected_total",
		Help:      "Sale submissions rejected, by error kind.",
	}, []string{"kind"})

	saleReplays = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "pos",
		Subsystem: "sales",
		Name:      "replayed_total",
		Help:      "Sale submissions answered from an earlier commit with the same idempotency key.",
	})

	stockDecrements = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pos",
		Subsystem: "stock",
		Name:      "decrements_total",
		Help:      "Stock decrement attempts by path: atomic, fallback, failed.",
	}, []string{"path"})

	billingTransactions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pos",
		Subsystem: "billing",
		Name:      "transactions_total",
		Help:      "Billing ledger rows appended, by type.",
	}, []string{"type"})

	overdueNotifications = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "pos",
		Subsystem: "billing",
		Name:      "overdue_notifications_total",
		Help:      "Overdue debt notifications fired by the sweep.",
	})

	gateBlocks = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "pos",
		Subsystem: "gate",
		Name:      "blocked_requests_total",
		Help:      "Requests answered with the suspension screen.",
	})
)

// ObserveHTTPRequest records an HTTP request metric
func ObserveHTTPRequest(method, route, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, route, status).Inc()
	httpRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

func SaleCommitted(paymentMethod string) {
	salesCommitted.WithLabelValues(paymentMethod).Inc()
}

func SaleRejected(kind string) {
	saleRejections.WithLabelValues(kind).Inc()
}

func SaleReplayed() {
	saleReplays.Inc()
}

// StockDecrement records which path a decrement took.
func StockDecrement(path string) {
	stockDecrements.WithLabelValues(path).Inc()
}

func BillingTransaction(txType string) {
	billingTransactions.WithLabelValues(txType).Inc()
}

func OverdueNotification() {
	overdueNotifications.Inc()
}

func GateBlocked() {
	gateBlocks.Inc()
}
