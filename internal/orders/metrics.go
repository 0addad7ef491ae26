package orders

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ordersPlaced counts placed orders by payment method.
	ordersPlaced = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_placed_total",
		Help: "Total number of orders placed by payment method",
	}, []string{"payment_method"})

	// groupSize tracks how many store orders one checkout produced.
	groupSize = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "orders_group_size",
		Help:    "Number of store orders per checkout",
		Buckets: []float64{1, 2, 3, 4, 5, 8},
	})

	ordersCancelled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_cancelled_total",
		Help: "Total number of cancelled orders",
	})

	ordersPurged = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_purged_total",
		Help: "Total number of orders removed by retention",
	})

	// rejectedCheckouts counts checkouts refused by reason.
	rejectedCheckouts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_rejected_total",
		Help: "Total number of rejected checkouts by reason",
	}, []string{"reason"}) // reason: infeasible, invalid
)

// MetricsRecorder provides methods to record order metrics.
type MetricsRecorder struct{}

// NewMetricsRecorder creates a new metrics recorder.
func NewMetricsRecorder() *MetricsRecorder {
	return &MetricsRecorder{}
}

// RecordPlaced records a successful checkout of the given orders.
func (m *MetricsRecorder) RecordPlaced(orders []*Order) {
	for _, o := range orders {
		ordersPlaced.WithLabelValues(string(o.PaymentMethod)).Inc()
	}
	groupSize.Observe(float64(len(orders)))
}

// RecordRejected records a refused checkout.
func (m *MetricsRecorder) RecordRejected(reason string) {
	rejectedCheckouts.WithLabelValues(reason).Inc()
}

// RecordCancelled records a cancellation.
func (m *MetricsRecorder) RecordCancelled() {
	ordersCancelled.Inc()
}

// RecordPurged records orders deleted by the janitor.
func (m *MetricsRecorder) RecordPurged(count int) {
	ordersPurged.Add(float64(count))
}
