package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/meditatva/pharmacy-service/internal/catalog"
	"github.com/meditatva/pharmacy-service/internal/ranking"
	"github.com/meditatva/pharmacy-service/internal/telemetry"
)

// EnvPrefix prefixes every environment override, e.g. PHARMACY_SERVICE_SERVER_PORT.
const EnvPrefix = "PHARMACY_SERVICE"

// Config holds the application configuration
type Config struct {
	Server    ServerConfig     `mapstructure:"server"`
	Database  DatabaseConfig   `mapstructure:"database"`
	Redis     RedisConfig      `mapstructure:"redis"`
	Logging   LoggingConfig    `mapstructure:"logging"`
	Catalog   catalog.Config   `mapstructure:"catalog"`
	Ranking   ranking.Config   `mapstructure:"ranking"`
	Orders    OrdersConfig     `mapstructure:"orders"`
	RateLimit RateLimitConfig  `mapstructure:"rate_limit"`
	Internal  InternalConfig   `mapstructure:"internal"`
	Telemetry telemetry.Config `mapstructure:"telemetry"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	Host            string        `mapstructure:"host"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	TrustedProxies  []string      `mapstructure:"trusted_proxies"`
}

// DatabaseConfig holds database connection configuration. An empty URL runs
// the service without Postgres.
type DatabaseConfig struct {
	URL             string        `mapstructure:"url"`
	MaxConnections  int           `mapstructure:"max_connections"`
	MinConnections  int           `mapstructure:"min_connections"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
	Migrate         bool          `mapstructure:"migrate"`
}

// RedisConfig holds the catalog mirror connection. An empty URL disables the mirror.
type RedisConfig struct {
	URL string `mapstructure:"url"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level   string `mapstructure:"level"`
	Format  string `mapstructure:"format"`
	NoColor bool   `mapstructure:"no_color"`
}

// OrdersConfig holds order storage and retention settings
type OrdersConfig struct {
	Store           string        `mapstructure:"store"` // memory or postgres
	Retention       time.Duration `mapstructure:"retention"`
	JanitorInterval time.Duration `mapstructure:"janitor_interval"`
}

// RateLimitConfig holds per-client limits for the public API
type RateLimitConfig struct {
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	BurstSize         int           `mapstructure:"burst_size"`
	IdleTTL           time.Duration `mapstructure:"idle_ttl"`
	CleanupInterval   time.Duration `mapstructure:"cleanup_interval"`
}

// InternalConfig holds settings for the internal endpoints
type InternalConfig struct {
	APIKey            string  `mapstructure:"api_key"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	BurstSize         int     `mapstructure:"burst_size"`
}

var globalConfig *Config

// Load loads the configuration from file, .env, and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	// .env is optional
	if err := loadEnvFile(); err != nil {
		log.Debug().Err(err).Msg(".env file not loaded")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvVars(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	globalConfig = &cfg
	return &cfg, nil
}

// Validate checks every section.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d", c.Server.Port)
	}
	if err := c.Catalog.Validate(); err != nil {
		return fmt.Errorf("catalog: %w", err)
	}
	if c.Catalog.Source == catalog.SourcePostgres && c.Database.URL == "" {
		return errors.New("catalog: postgres source requires database.url")
	}
	if err := c.Ranking.Validate(); err != nil {
		return fmt.Errorf("ranking: %w", err)
	}
	switch c.Orders.Store {
	case "memory":
	case "postgres":
		if c.Database.URL == "" {
			return errors.New("orders: postgres store requires database.url")
		}
	default:
		return fmt.Errorf("orders: unknown store %q", c.Orders.Store)
	}
	if c.Orders.Retention <= 0 || c.Orders.JanitorInterval <= 0 {
		return errors.New("orders: retention and janitor_interval must be positive")
	}
	if c.RateLimit.RequestsPerSecond <= 0 || c.RateLimit.BurstSize < 1 {
		return errors.New("rate_limit: requests_per_second and burst_size must be positive")
	}
	if c.RateLimit.IdleTTL <= 0 || c.RateLimit.CleanupInterval <= 0 {
		return errors.New("rate_limit: idle_ttl and cleanup_interval must be positive")
	}
	if c.Internal.RequestsPerSecond <= 0 || c.Internal.BurstSize < 1 {
		return errors.New("internal: requests_per_second and burst_size must be positive")
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logging: unknown format %q", c.Logging.Format)
	}
	return nil
}

// loadEnvFile loads the first .env file found. Variables already set in the
// environment win.
func loadEnvFile() error {
	for _, path := range []string{".", "./config"} {
		envFile := path + "/.env"
		if _, err := os.Stat(envFile); err == nil {
			return godotenv.Load(envFile)
		}
	}
	return errors.New("no .env file found")
}

// bindEnvVars binds conventional unprefixed variables to config keys
func bindEnvVars(v *viper.Viper) {
	v.BindEnv("database.url", EnvPrefix+"_DATABASE_URL", "DATABASE_URL")
	v.BindEnv("redis.url", EnvPrefix+"_REDIS_URL", "REDIS_URL")
	v.BindEnv("server.port", EnvPrefix+"_SERVER_PORT", "PORT")
	v.BindEnv("logging.level", EnvPrefix+"_LOGGING_LEVEL", "LOG_LEVEL")
	v.BindEnv("catalog.path", EnvPrefix+"_CATALOG_PATH", "CATALOG_PATH")
	v.BindEnv("internal.api_key", EnvPrefix+"_INTERNAL_API_KEY", "INTERNAL_API_KEY")
	v.BindEnv("telemetry.endpoint", EnvPrefix+"_TELEMETRY_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT")
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("database.max_connections", 10)
	v.SetDefault("database.min_connections", 2)
	v.SetDefault("database.max_conn_lifetime", 1*time.Hour)
	v.SetDefault("database.max_conn_idle_time", 30*time.Minute)
	v.SetDefault("database.migrate", true)

	catalogDefaults := catalog.DefaultConfig()
	v.SetDefault("catalog.source", catalogDefaults.Source)
	v.SetDefault("catalog.ttl", catalogDefaults.TTL)
	v.SetDefault("catalog.refresh_interval", catalogDefaults.RefreshInterval)
	v.SetDefault("catalog.load_timeout", catalogDefaults.LoadTimeout)
	v.SetDefault("catalog.mirror_key", catalogDefaults.MirrorKey)
	v.SetDefault("catalog.mirror_ttl", catalogDefaults.MirrorTTL)
	v.SetDefault("catalog.circuit_breaker.max_failures", catalogDefaults.Breaker.MaxFailures)
	v.SetDefault("catalog.circuit_breaker.reset_timeout", catalogDefaults.Breaker.ResetTimeout)
	v.SetDefault("catalog.circuit_breaker.half_open_max_calls", catalogDefaults.Breaker.HalfOpenMaxCalls)

	rankingDefaults := ranking.Defaults()
	v.SetDefault("ranking.scoring.rating_weight", rankingDefaults.Scoring.RatingWeight)
	v.SetDefault("ranking.scoring.distance_weight", rankingDefaults.Scoring.DistanceWeight)
	v.SetDefault("ranking.scoring.price_weight", rankingDefaults.Scoring.PriceWeight)
	v.SetDefault("ranking.scoring.reference_distance_km", rankingDefaults.Scoring.ReferenceDistanceKm)
	v.SetDefault("ranking.scoring.reference_price", rankingDefaults.Scoring.ReferencePrice)
	v.SetDefault("ranking.scoring.max_rating", rankingDefaults.Scoring.MaxRating)
	v.SetDefault("ranking.max_search_items", rankingDefaults.MaxSearchItems)
	v.SetDefault("ranking.default_limit", rankingDefaults.DefaultLimit)
	v.SetDefault("ranking.fold_diacritics", false)

	v.SetDefault("orders.store", "memory")
	v.SetDefault("orders.retention", 90*24*time.Hour)
	v.SetDefault("orders.janitor_interval", 1*time.Hour)

	v.SetDefault("rate_limit.requests_per_second", 10)
	v.SetDefault("rate_limit.burst_size", 20)
	v.SetDefault("rate_limit.idle_ttl", 10*time.Minute)
	v.SetDefault("rate_limit.cleanup_interval", 5*time.Minute)

	v.SetDefault("internal.requests_per_second", 50)
	v.SetDefault("internal.burst_size", 100)

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", telemetry.DefaultServiceName)
	v.SetDefault("telemetry.service_version", "dev")
	v.SetDefault("telemetry.environment", "production")
	v.SetDefault("telemetry.sample_ratio", 1.0)
	v.SetDefault("telemetry.export_interval", time.Minute)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.no_color", false)
}

// Get returns the global configuration
func Get() *Config {
	return globalConfig
}
