package catalog

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// CircuitState represents the state of the circuit breaker.
type CircuitState int

const (
	// CircuitClosed lets loads through.
	CircuitClosed CircuitState = iota

	// CircuitOpen rejects loads until the reset timeout elapses.
	CircuitOpen

	// CircuitHalfOpen lets a limited number of trial loads through.
	CircuitHalfOpen
)

// String returns the string representation of the circuit state.
func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreakerConfig holds configuration for the circuit breaker.
type CircuitBreakerConfig struct {
	// Consecutive failures before the circuit opens
	MaxFailures int `mapstructure:"max_failures"`

	// Time spent open before trial loads are allowed
	ResetTimeout time.Duration `mapstructure:"reset_timeout"`

	// Successful trial loads needed to close again
	HalfOpenMaxCalls int `mapstructure:"half_open_max_calls"`
}

// DefaultCircuitBreakerConfig returns the default circuit breaker configuration.
func DefaultCircuitBreakerConfig() *CircuitBreakerConfig {
	return &CircuitBreakerConfig{
		MaxFailures:      5,
		ResetTimeout:     30 * time.Second,
		HalfOpenMaxCalls: 1,
	}
}

// CircuitBreaker guards catalog loads against a failing source.
type CircuitBreaker struct {
	mu              sync.Mutex
	state           CircuitState
	failureCount    int
	successCount    int
	lastFailureTime time.Time
	config          CircuitBreakerConfig
	metrics         *MetricsRecorder
	logger          zerolog.Logger
	name            string
	now             func() time.Time
}

// NewCircuitBreaker creates a new circuit breaker.
func NewCircuitBreaker(name string, config *CircuitBreakerConfig, metrics *MetricsRecorder, logger zerolog.Logger) *CircuitBreaker {
	if config == nil {
		config = DefaultCircuitBreakerConfig()
	}
	cfg := *config
	if cfg.HalfOpenMaxCalls < 1 {
		cfg.HalfOpenMaxCalls = 1
	}

	cb := &CircuitBreaker{
		state:   CircuitClosed,
		config:  cfg,
		metrics: metrics,
		logger:  logger,
		name:    name,
		now:     time.Now,
	}
	cb.publishState()
	return cb
}

// Allow reports whether a load may be attempted.
func (cb *CircuitBreaker) Allow(ctx context.Context) bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitClosed:
		return true

	case CircuitOpen:
		if cb.now().Sub(cb.lastFailureTime) >= cb.config.ResetTimeout {
			cb.transitionTo(CircuitHalfOpen)
			cb.logger.Info().
				Str("circuit_breaker", cb.name).
				Msg("Circuit breaker transitioning to half-open")
			return true
		}
		return false

	case CircuitHalfOpen:
		return cb.successCount < cb.config.HalfOpenMaxCalls

	default:
		return false
	}
}

// RecordSuccess records a successful load.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitClosed:
		cb.failureCount = 0

	case CircuitHalfOpen:
		cb.successCount++
		if cb.successCount >= cb.config.HalfOpenMaxCalls {
			cb.transitionTo(CircuitClosed)
			cb.logger.Info().
				Str("circuit_breaker", cb.name).
				Int("success_count", cb.successCount).
				Msg("Circuit breaker closing after successful recovery")
			cb.successCount = 0
			cb.failureCount = 0
		}
	}
}

// RecordFailure records a failed load.
func (cb *CircuitBreaker) RecordFailure(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failureCount++
	cb.lastFailureTime = cb.now()

	cb.logger.Error().
		Err(err).
		Str("circuit_breaker", cb.name).
		Int("failure_count", cb.failureCount).
		Msg("Circuit breaker recording failure")

	switch cb.state {
	case CircuitClosed:
		if cb.failureCount >= cb.config.MaxFailures {
			cb.transitionTo(CircuitOpen)
			cb.logger.Warn().
				Str("circuit_breaker", cb.name).
				Int("failure_count", cb.failureCount).
				Dur("reset_timeout", cb.config.ResetTimeout).
				Msg("Circuit breaker opening after max failures")
		}

	case CircuitHalfOpen:
		cb.transitionTo(CircuitOpen)
		cb.successCount = 0
		cb.logger.Warn().
			Str("circuit_breaker", cb.name).
			Msg("Circuit breaker re-opening after failure in half-open state")
	}
}

// transitionTo must be called with cb.mu held.
func (cb *CircuitBreaker) transitionTo(newState CircuitState) {
	cb.state = newState
	cb.publishState()
}

func (cb *CircuitBreaker) publishState() {
	if cb.metrics != nil {
		cb.metrics.RecordCircuitState(cb.name, cb.state)
	}
}

// State returns the current state of the circuit breaker.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// FailureCount returns the current failure count.
func (cb *CircuitBreaker) FailureCount() int {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.failureCount
}

// Reset forces the circuit breaker closed.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.transitionTo(CircuitClosed)
	cb.failureCount = 0
	cb.successCount = 0

	cb.logger.Info().
		Str("circuit_breaker", cb.name).
		Msg("Circuit breaker manually reset to closed state")
}

// WarmupGate blocks callers until the first snapshot is in place.
type WarmupGate struct {
	mu       sync.RWMutex
	ready    bool
	warmedCh chan struct{}
	logger   zerolog.Logger
}

// NewWarmupGate creates a new warmup gate.
func NewWarmupGate(logger zerolog.Logger) *WarmupGate {
	return &WarmupGate{
		warmedCh: make(chan struct{}),
		logger:   logger,
	}
}

// Wait blocks until warmup is complete or ctx is done.
// Returns false if ctx ended first.
func (g *WarmupGate) Wait(ctx context.Context) bool {
	g.mu.RLock()
	ready, ch := g.ready, g.warmedCh
	g.mu.RUnlock()

	if ready {
		return true
	}

	select {
	case <-ch:
		return true
	case <-ctx.Done():
		g.logger.Warn().Msg("Warmup gate: context done while waiting for catalog")
		return false
	}
}

// Ready marks warmup as complete. Calling it again is a no-op.
func (g *WarmupGate) Ready() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.ready {
		g.ready = true
		close(g.warmedCh)
		g.logger.Info().Msg("Warmup gate: catalog ready, allowing requests")
	}
}

// IsReady returns whether warmup is complete without blocking.
func (g *WarmupGate) IsReady() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.ready
}
