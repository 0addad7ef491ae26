package catalog

import "time"

// Source names accepted by NewLoader.
const (
	SourceEmbedded = "embedded"
	SourceFile     = "file"
	SourcePostgres = "postgres"
	SourceXLSX     = "xlsx"
)

// Config holds the configuration for the catalog cache.
type Config struct {
	// Where stores are loaded from: embedded, file, postgres or xlsx
	Source string `mapstructure:"source"`

	// File path for the file and xlsx sources
	Path string `mapstructure:"path"`

	// Snapshot age after which the catalog is reported stale
	TTL time.Duration `mapstructure:"ttl"`

	// Periodic reload interval, 0 disables background refresh
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`

	// Upper bound for a single load
	LoadTimeout time.Duration `mapstructure:"load_timeout"`

	// Redis key and expiry of the mirrored snapshot
	MirrorKey string        `mapstructure:"mirror_key"`
	MirrorTTL time.Duration `mapstructure:"mirror_ttl"`

	Breaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
}

// DefaultConfig returns the default catalog configuration.
func DefaultConfig() *Config {
	return &Config{
		Source:          SourceEmbedded,
		TTL:             30 * time.Minute,
		RefreshInterval: 5 * time.Minute,
		LoadTimeout:     30 * time.Second,
		MirrorKey:       "pharmacy:catalog:snapshot",
		MirrorTTL:       24 * time.Hour,
		Breaker:         *DefaultCircuitBreakerConfig(),
	}
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	switch c.Source {
	case SourceEmbedded, SourcePostgres:
	case SourceFile, SourceXLSX:
		if c.Path == "" {
			return ErrInvalidConfig{Field: "path", Reason: "required for " + c.Source + " source"}
		}
	default:
		return ErrInvalidConfig{Field: "source", Reason: "must be one of embedded, file, postgres, xlsx"}
	}
	if c.TTL <= 0 {
		return ErrInvalidConfig{Field: "ttl", Reason: "must be positive"}
	}
	if c.RefreshInterval < 0 {
		return ErrInvalidConfig{Field: "refresh_interval", Reason: "must be non-negative"}
	}
	if c.LoadTimeout <= 0 {
		return ErrInvalidConfig{Field: "load_timeout", Reason: "must be positive"}
	}
	if c.Breaker.MaxFailures < 1 {
		return ErrInvalidConfig{Field: "circuit_breaker.max_failures", Reason: "must be at least 1"}
	}
	if c.Breaker.ResetTimeout <= 0 {
		return ErrInvalidConfig{Field: "circuit_breaker.reset_timeout", Reason: "must be positive"}
	}
	return nil
}

// ErrInvalidConfig is returned when the configuration is invalid.
type ErrInvalidConfig struct {
	Field  string
	Reason string
}

func (e ErrInvalidConfig) Error() string {
	return e.Field + ": " + e.Reason
}
