package catalog

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/meditatva/pharmacy-service/internal/ranking"
)

const (
	tracerName = "github.com/meditatva/pharmacy-service/internal/catalog"
	loadKey    = "catalog"

	// SourceMirror marks a snapshot restored from the mirror.
	SourceMirror = "mirror"
)

var (
	// ErrNotLoaded is returned when no snapshot has been installed yet.
	ErrNotLoaded = errors.New("catalog not loaded")

	// ErrCircuitOpen is returned when the circuit breaker rejects a load.
	ErrCircuitOpen = errors.New("catalog circuit breaker open")
)

// Cache serves the store catalog from an immutable in-memory snapshot.
// Loads build a new snapshot off to the side and swap it in atomically,
// so readers never block on a reload.
type Cache struct {
	loader Loader
	mirror Mirror
	config *Config

	current atomic.Pointer[Snapshot]

	// Collapses concurrent loads into one call to the loader
	sf singleflight.Group

	circuitBreaker *CircuitBreaker
	warmupGate     *WarmupGate

	metrics *MetricsRecorder
	tracer  trace.Tracer
	logger  zerolog.Logger

	// Shutdown handling
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

var _ ranking.CatalogSource = (*Cache)(nil)

// Snapshot is one immutable version of the catalog.
type Snapshot struct {
	stores   []*ranking.Store
	byID     map[string]*ranking.Store
	offers   int
	source   string
	loadedAt time.Time
}

// Option configures a Cache.
type Option func(*Cache)

// WithMirror enables snapshot mirroring and fallback.
func WithMirror(m Mirror) Option {
	return func(c *Cache) { c.mirror = m }
}

// WithMetrics replaces the metrics recorder.
func WithMetrics(m *MetricsRecorder) Option {
	return func(c *Cache) { c.metrics = m }
}

// NewCache creates a new catalog cache. Nothing is loaded until Load is called.
func NewCache(loader Loader, config *Config, opts ...Option) *Cache {
	if config == nil {
		config = DefaultConfig()
	}
	ctx, cancel := context.WithCancel(context.Background())
	logger := log.With().Str("component", "catalog_cache").Logger()

	c := &Cache{
		loader:  loader,
		config:  config,
		metrics: NewMetricsRecorder(),
		tracer:  otel.Tracer(tracerName),
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.circuitBreaker = NewCircuitBreaker("catalog", &config.Breaker, c.metrics, logger)
	c.warmupGate = NewWarmupGate(logger)
	return c
}

// Load reloads the catalog from the loader. Concurrent calls share one load,
// which runs on its own timeout so a cancelled caller does not fail the others.
//
// When the loader fails before any snapshot exists and a mirror is configured,
// the mirrored snapshot is installed instead and Load returns nil. When a
// snapshot already exists the failure is returned and the old snapshot keeps serving.
func (c *Cache) Load(ctx context.Context) error {
	if !c.circuitBreaker.Allow(ctx) {
		c.logger.Warn().
			Str("circuit_state", c.circuitBreaker.State().String()).
			Msg("Circuit breaker rejected catalog load")
		return ErrCircuitOpen
	}

	ch := c.sf.DoChan(loadKey, func() (interface{}, error) {
		loadCtx, cancel := context.WithTimeout(context.Background(), c.config.LoadTimeout)
		defer cancel()
		return nil, c.load(loadCtx)
	})

	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Cache) load(ctx context.Context) error {
	ctx, span := c.tracer.Start(ctx, "catalog.Load", trace.WithAttributes(
		attribute.String("source", c.loader.Name()),
	))
	defer span.End()

	startTime := time.Now()
	stores, err := c.loader.Load(ctx)
	c.metrics.RecordLoad(c.loader.Name(), time.Since(startTime), err)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.circuitBreaker.RecordFailure(err)

		if c.current.Load() != nil || c.mirror == nil {
			return fmt.Errorf("failed to load catalog from %s: %w", c.loader.Name(), err)
		}

		restored, restoreErr := c.mirror.Restore(ctx)
		if restoreErr != nil {
			return fmt.Errorf("failed to load catalog from %s: %w (mirror: %v)", c.loader.Name(), err, restoreErr)
		}

		c.metrics.RecordMirrorFallback()
		c.install(restored, SourceMirror)
		c.logger.Warn().
			Err(err).
			Int("stores", len(restored)).
			Msg("Catalog loader failed, serving mirrored snapshot")
		return nil
	}

	c.circuitBreaker.RecordSuccess()
	c.install(stores, c.loader.Name())
	span.SetAttributes(attribute.Int("stores", len(stores)))

	if c.mirror != nil {
		if err := c.mirror.Save(ctx, stores); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to mirror catalog snapshot")
		}
	}

	c.logger.Info().
		Str("source", c.loader.Name()).
		Int("stores", len(stores)).
		Dur("duration", time.Since(startTime)).
		Msg("Catalog snapshot loaded")
	return nil
}

func (c *Cache) install(stores []*ranking.Store, source string) {
	snap := &Snapshot{
		stores:   stores,
		byID:     make(map[string]*ranking.Store, len(stores)),
		offers:   CountOffers(stores),
		source:   source,
		loadedAt: time.Now(),
	}
	for _, s := range stores {
		snap.byID[s.ID] = s
	}

	c.current.Store(snap)
	c.metrics.RecordSnapshot(len(stores), snap.offers)
	c.warmupGate.Ready()
}

// Stores implements ranking.CatalogSource. The returned stores are shared
// with other readers and must not be modified.
func (c *Cache) Stores(ctx context.Context) ([]*ranking.Store, error) {
	snap := c.current.Load()
	if snap == nil {
		return nil, ErrNotLoaded
	}
	return snap.stores, nil
}

// Store implements ranking.CatalogSource.
func (c *Cache) Store(ctx context.Context, id string) (*ranking.Store, bool) {
	snap := c.current.Load()
	if snap == nil {
		return nil, false
	}
	s, ok := snap.byID[id]
	return s, ok
}

// IsHealthy returns whether the cache is ready to serve requests.
// It checks:
// 1. Circuit breaker state (open = unhealthy)
// 2. Warmup gate (not ready = unhealthy)
// 3. A snapshot is installed
func (c *Cache) IsHealthy(ctx context.Context) bool {
	if c.circuitBreaker.State() == CircuitOpen {
		c.logger.Debug().Msg("Catalog unhealthy: circuit breaker is open")
		return false
	}

	if !c.warmupGate.IsReady() {
		c.logger.Debug().Msg("Catalog unhealthy: warmup not complete")
		return false
	}

	return c.current.Load() != nil
}

// StartRefresh reloads the catalog every RefreshInterval until Close is called.
// It is a no-op when the interval is 0.
func (c *Cache) StartRefresh() {
	interval := c.config.RefreshInterval
	if interval <= 0 {
		return
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		c.logger.Info().Dur("interval", interval).Msg("Catalog refresh started")

		for {
			select {
			case <-c.ctx.Done():
				c.logger.Info().Msg("Catalog refresh stopped")
				return
			case <-ticker.C:
				if err := c.Load(c.ctx); err != nil && !errors.Is(err, context.Canceled) {
					c.logger.Error().Err(err).Msg("Catalog refresh failed")
				}
			}
		}
	}()
}

// Close stops background refresh.
func (c *Cache) Close() error {
	c.cancel()
	c.wg.Wait()
	return nil
}

// Freshness describes the live snapshot.
type Freshness struct {
	Loaded       bool      `json:"loaded"`
	Source       string    `json:"source,omitempty"`
	LoadedAt     time.Time `json:"loadedAt,omitempty"`
	AgeSeconds   float64   `json:"ageSeconds"`
	IsStale      bool      `json:"isStale"`
	Stores       int       `json:"stores"`
	Offers       int       `json:"offers"`
	CircuitState string    `json:"circuitState"`
}

// Freshness reports the age and size of the live snapshot.
func (c *Cache) Freshness() Freshness {
	f := Freshness{CircuitState: c.circuitBreaker.State().String()}

	snap := c.current.Load()
	if snap == nil {
		f.IsStale = true
		return f
	}

	age := time.Since(snap.loadedAt)
	f.Loaded = true
	f.Source = snap.source
	f.LoadedAt = snap.loadedAt
	f.AgeSeconds = age.Seconds()
	f.IsStale = age > c.config.TTL
	f.Stores = len(snap.stores)
	f.Offers = snap.offers
	return f
}

// CircuitState returns the current state of the circuit breaker.
func (c *Cache) CircuitState() CircuitState {
	return c.circuitBreaker.State()
}

// ResetCircuitBreaker forces the circuit breaker closed.
func (c *Cache) ResetCircuitBreaker() {
	c.circuitBreaker.Reset()
}

// WaitForWarmup blocks until the first snapshot is installed or ctx is done.
func (c *Cache) WaitForWarmup(ctx context.Context) bool {
	return c.warmupGate.Wait(ctx)
}
