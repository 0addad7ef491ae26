package catalog

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meditatva/pharmacy-service/internal/ranking"
)

// stubLoader is a controllable Loader for testing.
type stubLoader struct {
	mu     sync.Mutex
	stores []*ranking.Store
	err    error
	delay  time.Duration
	calls  atomic.Int32
}

func (l *stubLoader) Name() string { return "stub" }

func (l *stubLoader) Load(ctx context.Context) ([]*ranking.Store, error) {
	l.calls.Add(1)
	if l.delay > 0 {
		select {
		case <-time.After(l.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return nil, l.err
	}
	return l.stores, nil
}

func (l *stubLoader) fail(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.err = err
}

func testStores() []*ranking.Store {
	return []*ranking.Store{
		{ID: "apollo", Name: "Apollo", Rating: 4.5, DistanceKm: 2, Offers: []ranking.MedicineOffer{
			{Name: "Paracetamol 500mg", Price: 10, Status: ranking.InStock},
			{Name: "Cetirizine 10mg", Price: 15, Status: ranking.LowStock},
		}},
		{ID: "medplus", Name: "MedPlus", Rating: 4.2, DistanceKm: 1, Offers: []ranking.MedicineOffer{
			{Name: "Paracetamol 650mg", Price: 9, Status: ranking.InStock},
		}},
	}
}

func testConfig() *Config {
	cfg := DefaultConfig()
	cfg.LoadTimeout = 2 * time.Second
	cfg.RefreshInterval = 0
	return cfg
}

func TestCacheLoadAndServe(t *testing.T) {
	ctx := context.Background()
	loader := &stubLoader{stores: testStores()}
	cache := NewCache(loader, testConfig())
	defer cache.Close()

	assert.False(t, cache.IsHealthy(ctx), "cache should be unhealthy before first load")
	_, err := cache.Stores(ctx)
	assert.ErrorIs(t, err, ErrNotLoaded)

	require.NoError(t, cache.Load(ctx))

	assert.True(t, cache.IsHealthy(ctx))
	stores, err := cache.Stores(ctx)
	require.NoError(t, err)
	require.Len(t, stores, 2)
	assert.Equal(t, "apollo", stores[0].ID, "catalog order must be preserved")
	assert.Equal(t, "medplus", stores[1].ID)

	s, ok := cache.Store(ctx, "medplus")
	require.True(t, ok)
	assert.Equal(t, "MedPlus", s.Name)

	_, ok = cache.Store(ctx, "missing")
	assert.False(t, ok)

	f := cache.Freshness()
	assert.True(t, f.Loaded)
	assert.Equal(t, "stub", f.Source)
	assert.Equal(t, 2, f.Stores)
	assert.Equal(t, 3, f.Offers)
	assert.False(t, f.IsStale)
	assert.Equal(t, "closed", f.CircuitState)
}

// TestCacheThunderingHerd verifies that concurrent loads result in a single loader call.
func TestCacheThunderingHerd(t *testing.T) {
	ctx := context.Background()
	loader := &stubLoader{stores: testStores(), delay: 50 * time.Millisecond}
	cache := NewCache(loader, testConfig())
	defer cache.Close()

	const numRequests = 50
	var wg sync.WaitGroup
	errs := make(chan error, numRequests)

	for i := 0; i < numRequests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- cache.Load(ctx)
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, int32(1), loader.calls.Load())
}

// TestCacheCallerCancellation verifies that a cancelled caller does not
// cancel the shared load for everyone else.
func TestCacheCallerCancellation(t *testing.T) {
	loader := &stubLoader{stores: testStores(), delay: 100 * time.Millisecond}
	cache := NewCache(loader, testConfig())
	defer cache.Close()

	cancelledCtx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	var wg sync.WaitGroup
	var cancelledErr, okErr error
	wg.Add(2)
	go func() {
		defer wg.Done()
		cancelledErr = cache.Load(cancelledCtx)
	}()
	go func() {
		defer wg.Done()
		okErr = cache.Load(context.Background())
	}()
	wg.Wait()

	assert.ErrorIs(t, cancelledErr, context.Canceled)
	assert.NoError(t, okErr)
	assert.True(t, cache.IsHealthy(context.Background()))
}

func TestCacheKeepsSnapshotOnFailure(t *testing.T) {
	ctx := context.Background()
	loader := &stubLoader{stores: testStores()}
	cache := NewCache(loader, testConfig())
	defer cache.Close()

	require.NoError(t, cache.Load(ctx))

	loader.fail(errors.New("database down"))
	err := cache.Load(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database down")

	stores, err := cache.Stores(ctx)
	require.NoError(t, err)
	assert.Len(t, stores, 2)
	assert.True(t, cache.IsHealthy(ctx))
}

func TestCacheCircuitBreakerOpens(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	cfg.Breaker.MaxFailures = 2
	cfg.Breaker.ResetTimeout = time.Hour

	loader := &stubLoader{err: errors.New("unreachable")}
	cache := NewCache(loader, cfg)
	defer cache.Close()

	assert.Error(t, cache.Load(ctx))
	assert.Error(t, cache.Load(ctx))
	assert.Equal(t, CircuitOpen, cache.CircuitState())

	assert.ErrorIs(t, cache.Load(ctx), ErrCircuitOpen)
	assert.Equal(t, int32(2), loader.calls.Load(), "open circuit must not reach the loader")
	assert.False(t, cache.IsHealthy(ctx))

	cache.ResetCircuitBreaker()
	loader.fail(nil)
	loader.mu.Lock()
	loader.stores = testStores()
	loader.mu.Unlock()

	require.NoError(t, cache.Load(ctx))
	assert.True(t, cache.IsHealthy(ctx))
}

func TestCacheMirrorFallback(t *testing.T) {
	ctx := context.Background()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	mirror := NewRedisMirror(client, "test:catalog", time.Hour)

	// First process loads successfully and mirrors the snapshot
	first := NewCache(&stubLoader{stores: testStores()}, testConfig(), WithMirror(mirror))
	require.NoError(t, first.Load(ctx))
	first.Close()
	assert.True(t, mr.Exists("test:catalog"))

	// Second process cannot reach its source and falls back to the mirror
	second := NewCache(&stubLoader{err: errors.New("source offline")}, testConfig(), WithMirror(mirror))
	defer second.Close()

	require.NoError(t, second.Load(ctx))
	assert.True(t, second.IsHealthy(ctx))
	assert.Equal(t, SourceMirror, second.Freshness().Source)

	stores, err := second.Stores(ctx)
	require.NoError(t, err)
	require.Len(t, stores, 2)
	assert.Equal(t, "apollo", stores[0].ID)
}

func TestCacheMirrorFallbackWithoutMirroredSnapshot(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	cache := NewCache(&stubLoader{err: errors.New("source offline")}, testConfig(),
		WithMirror(NewRedisMirror(client, "test:catalog", time.Hour)))
	defer cache.Close()

	err = cache.Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "source offline")
	assert.False(t, cache.IsHealthy(context.Background()))
}

func TestCacheFreshnessStale(t *testing.T) {
	cfg := testConfig()
	cfg.TTL = time.Millisecond

	cache := NewCache(&stubLoader{stores: testStores()}, cfg)
	defer cache.Close()

	assert.True(t, cache.Freshness().IsStale, "unloaded cache is stale")

	require.NoError(t, cache.Load(context.Background()))
	time.Sleep(5 * time.Millisecond)
	assert.True(t, cache.Freshness().IsStale)
}

func TestCacheStartRefresh(t *testing.T) {
	cfg := testConfig()
	cfg.RefreshInterval = 10 * time.Millisecond

	loader := &stubLoader{stores: testStores()}
	cache := NewCache(loader, cfg)

	cache.StartRefresh()
	assert.Eventually(t, func() bool {
		return loader.calls.Load() >= 2
	}, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, cache.Close())
	calls := loader.calls.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, calls, loader.calls.Load(), "refresh must stop after Close")
}

func TestCacheWaitForWarmup(t *testing.T) {
	cache := NewCache(&stubLoader{stores: testStores()}, testConfig())
	defer cache.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.False(t, cache.WaitForWarmup(ctx))

	go func() {
		_ = cache.Load(context.Background())
	}()
	assert.True(t, cache.WaitForWarmup(context.Background()))
}

func TestCacheServesSearch(t *testing.T) {
	ctx := context.Background()
	cache := NewCache(EmbeddedLoader{}, testConfig())
	defer cache.Close()
	require.NoError(t, cache.Load(ctx))

	svc := ranking.NewService(cache, ranking.Defaults(), nil)
	plan, err := svc.PlanSplit(ctx, &ranking.SearchQuery{Items: []string{"Paracetamol", "Insulin Glargine", "Salbutamol"}})
	require.NoError(t, err)
	require.True(t, plan.Feasible())
	require.Len(t, plan.Entries, 2)
	assert.Equal(t, "netmeds-goregaon", plan.Entries[0].Store.ID)
	assert.Equal(t, "apollo-andheri", plan.Entries[1].Store.ID)
}
