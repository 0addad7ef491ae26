package catalog

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// loadDuration tracks catalog load time by source.
	loadDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "catalog_load_duration_seconds",
		Help:    "Time taken to load the store catalog",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
	}, []string{"source"})

	// loadErrors counts failed loads by source.
	loadErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_load_errors_total",
		Help: "Total number of failed catalog loads",
	}, []string{"source"})

	// snapshotStores tracks the number of stores in the live snapshot.
	snapshotStores = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "catalog_snapshot_stores",
		Help: "Number of stores in the current catalog snapshot",
	})

	// snapshotOffers tracks the number of offers in the live snapshot.
	snapshotOffers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "catalog_snapshot_offers",
		Help: "Number of medicine offers in the current catalog snapshot",
	})

	// mirrorFallbacks counts snapshots restored from the redis mirror.
	mirrorFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catalog_mirror_fallbacks_total",
		Help: "Total number of catalog loads served from the snapshot mirror",
	})

	// circuitState exposes the breaker state (0 closed, 1 open, 2 half-open).
	circuitState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "catalog_circuit_breaker_state",
		Help: "Circuit breaker state: 0 closed, 1 open, 2 half-open",
	}, []string{"name"})
)

// MetricsRecorder provides methods to record catalog metrics.
type MetricsRecorder struct{}

// NewMetricsRecorder creates a new metrics recorder.
func NewMetricsRecorder() *MetricsRecorder {
	return &MetricsRecorder{}
}

// RecordLoad records the outcome of a load from the given source.
func (m *MetricsRecorder) RecordLoad(source string, duration time.Duration, err error) {
	loadDuration.WithLabelValues(source).Observe(duration.Seconds())
	if err != nil {
		loadErrors.WithLabelValues(source).Inc()
	}
}

// RecordSnapshot records the size of a newly installed snapshot.
func (m *MetricsRecorder) RecordSnapshot(stores, offers int) {
	snapshotStores.Set(float64(stores))
	snapshotOffers.Set(float64(offers))
}

// RecordMirrorFallback records a snapshot restored from the mirror.
func (m *MetricsRecorder) RecordMirrorFallback() {
	mirrorFallbacks.Inc()
}

// RecordCircuitState records the current breaker state.
func (m *MetricsRecorder) RecordCircuitState(name string, state CircuitState) {
	circuitState.WithLabelValues(name).Set(float64(state))
}
