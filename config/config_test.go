package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meditatva/pharmacy-service/internal/catalog"
)

// chdirTemp runs the test from an empty directory so no config or .env is found.
func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(wd) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, catalog.SourceEmbedded, cfg.Catalog.Source)
	assert.Equal(t, 30*time.Minute, cfg.Catalog.TTL)
	assert.Equal(t, 5, cfg.Catalog.Breaker.MaxFailures)
	assert.Equal(t, 0.40, cfg.Ranking.Scoring.RatingWeight)
	assert.Equal(t, 500.0, cfg.Ranking.Scoring.ReferencePrice)
	assert.Equal(t, 20, cfg.Ranking.MaxSearchItems)
	assert.Equal(t, "memory", cfg.Orders.Store)
	assert.Equal(t, 90*24*time.Hour, cfg.Orders.Retention)
	assert.False(t, cfg.Telemetry.Enabled)
	assert.Same(t, cfg, Get())
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := chdirTemp(t)

	path := filepath.Join(dir, "service.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 8080
catalog:
  source: file
  path: /srv/catalog.yaml
  ttl: 10m
ranking:
  scoring:
    rating_weight: 0.5
    distance_weight: 0.3
    price_weight: 0.2
    reference_price: 1000
logging:
  format: console
`), 0o644))

	t.Setenv("PORT", "9090")
	t.Setenv("PHARMACY_SERVICE_ORDERS_RETENTION", "48h")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port, "env wins over file")
	assert.Equal(t, catalog.SourceFile, cfg.Catalog.Source)
	assert.Equal(t, "/srv/catalog.yaml", cfg.Catalog.Path)
	assert.Equal(t, 10*time.Minute, cfg.Catalog.TTL)
	assert.Equal(t, 0.5, cfg.Ranking.Scoring.RatingWeight)
	assert.Equal(t, 1000.0, cfg.Ranking.Scoring.ReferencePrice)
	assert.Equal(t, 10.0, cfg.Ranking.Scoring.ReferenceDistanceKm, "unset keys keep defaults")
	assert.Equal(t, 48*time.Hour, cfg.Orders.Retention)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Redis.URL)
	assert.Equal(t, "console", cfg.Logging.Format)
}

func TestLoadDotEnv(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte(`
# local overrides
export LOG_LEVEL="debug"
INTERNAL_API_KEY='k3y'
`), 0o644))
	t.Cleanup(func() {
		os.Unsetenv("LOG_LEVEL")
		os.Unsetenv("INTERNAL_API_KEY")
	})

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "k3y", cfg.Internal.APIKey)
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		msg  string
	}{
		{"weights do not sum to one", map[string]string{"PHARMACY_SERVICE_RANKING_SCORING_PRICE_WEIGHT": "0.9"}, "weights"},
		{"postgres catalog without database", map[string]string{"PHARMACY_SERVICE_CATALOG_SOURCE": "postgres"}, "database.url"},
		{"file catalog without path", map[string]string{"PHARMACY_SERVICE_CATALOG_SOURCE": "file"}, "path"},
		{"postgres orders without database", map[string]string{"PHARMACY_SERVICE_ORDERS_STORE": "postgres"}, "database.url"},
		{"unknown orders store", map[string]string{"PHARMACY_SERVICE_ORDERS_STORE": "s3"}, "unknown store"},
		{"bad port", map[string]string{"PORT": "0"}, "server.port"},
		{"bad log format", map[string]string{"PHARMACY_SERVICE_LOGGING_FORMAT": "xml"}, "format"},
		{"zero cleanup interval", map[string]string{"PHARMACY_SERVICE_RATE_LIMIT_CLEANUP_INTERVAL": "0s"}, "cleanup_interval"},
		{"negative idle ttl", map[string]string{"PHARMACY_SERVICE_RATE_LIMIT_IDLE_TTL": "-1m"}, "idle_ttl"},
		{"zero internal rate", map[string]string{"PHARMACY_SERVICE_INTERNAL_REQUESTS_PER_SECOND": "0"}, "internal"},
		{"zero internal burst", map[string]string{"PHARMACY_SERVICE_INTERNAL_BURST_SIZE": "0"}, "internal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chdirTemp(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load("")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}
