package ranking

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// operationDuration tracks the time taken by search and planning calls.
	operationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ranking_operation_duration_seconds",
		Help:    "Time taken by ranking operations by type",
		Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
	}, []string{"type"}) // type: search, split_plan

	// operationErrors tracks rejected or failed operations.
	operationErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ranking_operation_errors_total",
		Help: "Total number of failed ranking operations by type",
	}, []string{"type"})

	// requestedItems tracks the distribution of requested item counts.
	requestedItems = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ranking_requested_items_count",
		Help:    "Number of medicines requested per query",
		Buckets: []float64{1, 2, 3, 5, 8, 13, 20},
	})

	// candidateStores tracks the number of stores evaluated per query.
	candidateStores = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ranking_candidate_stores_count",
		Help:    "Number of candidate stores evaluated by type",
		Buckets: []float64{1, 5, 10, 20, 50, 100, 500},
	}, []string{"type"})

	// topScore tracks the priority score of the best ranked store.
	topScore = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ranking_top_priority_score",
		Help:    "Priority score of the first ranked store",
		Buckets: []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
	})

	// planStores tracks how many stores a feasible split plan visits.
	planStores = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ranking_split_plan_stores_count",
		Help:    "Number of stores in feasible split plans",
		Buckets: []float64{1, 2, 3, 4, 5, 8},
	})

	// infeasiblePlans counts plans that could not cover every item.
	infeasiblePlans = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ranking_split_plan_infeasible_total",
		Help: "Total number of split plans with unavailable items",
	})
)

// MetricsRecorder provides methods to record ranking metrics.
type MetricsRecorder struct{}

// NewMetricsRecorder creates a new metrics recorder.
func NewMetricsRecorder() *MetricsRecorder {
	return &MetricsRecorder{}
}

// RecordOperation records the duration of an operation.
func (m *MetricsRecorder) RecordOperation(opType string, duration time.Duration, success bool) {
	operationDuration.WithLabelValues(opType).Observe(duration.Seconds())
	if !success {
		operationErrors.WithLabelValues(opType).Inc()
	}
}

// RecordRequestedItems records the size of a query.
func (m *MetricsRecorder) RecordRequestedItems(count int) {
	requestedItems.Observe(float64(count))
}

// RecordCandidateCount records the number of stores evaluated.
func (m *MetricsRecorder) RecordCandidateCount(opType string, count int) {
	candidateStores.WithLabelValues(opType).Observe(float64(count))
}

// RecordTopScore records the score of the best ranked store.
func (m *MetricsRecorder) RecordTopScore(score float64) {
	topScore.Observe(score)
}

// RecordPlan records the outcome of a split plan.
func (m *MetricsRecorder) RecordPlan(plan *SplitOrderPlan) {
	if !plan.Feasible() {
		infeasiblePlans.Inc()
		return
	}
	planStores.Observe(float64(plan.StoreCount()))
}
