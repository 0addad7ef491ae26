package orders

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Janitor periodically deletes orders past the retention period.
type Janitor struct {
	repo      Repository
	metrics   *MetricsRecorder
	retention time.Duration
	interval  time.Duration
	logger    *zerolog.Logger
	now       func() time.Time
	stopChan  chan struct{}
}

// NewJanitor creates a janitor that runs every interval.
func NewJanitor(repo Repository, logger *zerolog.Logger, retention, interval time.Duration) *Janitor {
	return &Janitor{
		repo:      repo,
		metrics:   NewMetricsRecorder(),
		retention: retention,
		interval:  interval,
		logger:    logger,
		now:       time.Now,
		stopChan:  make(chan struct{}),
	}
}

// Start runs the sweep loop until ctx is cancelled or Stop is called.
func (j *Janitor) Start(ctx context.Context) {
	j.logger.Info().
		Dur("interval", j.interval).
		Dur("retention", j.retention).
		Msg("Starting order janitor")

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			j.logger.Info().Msg("Order janitor stopping (context cancelled)")
			return
		case <-j.stopChan:
			j.logger.Info().Msg("Order janitor stopping (stop signal)")
			return
		case <-ticker.C:
			if _, err := j.Sweep(ctx); err != nil {
				j.logger.Error().Err(err).Msg("Failed to purge old orders")
			}
		}
	}
}

// Stop signals the janitor to stop.
func (j *Janitor) Stop() {
	close(j.stopChan)
}

// Sweep deletes orders created before now minus the retention period.
func (j *Janitor) Sweep(ctx context.Context) (int, error) {
	cutoff := j.now().Add(-j.retention)
	deleted, err := j.repo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	if deleted > 0 {
		j.metrics.RecordPurged(deleted)
		j.logger.Info().
			Int("deleted", deleted).
			Time("cutoff", cutoff).
			Msg("Purged old orders")
	}
	return deleted, nil
}
