package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/meditatva/pharmacy-service/config"
	"github.com/meditatva/pharmacy-service/internal/catalog"
	"github.com/meditatva/pharmacy-service/internal/database"
	"github.com/meditatva/pharmacy-service/internal/handlers"
	"github.com/meditatva/pharmacy-service/internal/middleware"
	"github.com/meditatva/pharmacy-service/internal/orders"
	"github.com/meditatva/pharmacy-service/internal/ranking"
	"github.com/meditatva/pharmacy-service/internal/telemetry"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger := initLogger(cfg.Logging)
	log.Logger = *logger

	logger.Info().Msg("Starting pharmacy service")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := telemetry.Init(ctx, cfg.Telemetry)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize telemetry")
	}

	if cfg.Database.URL != "" {
		if err := database.Connect(ctx, database.Options{
			URL:             cfg.Database.URL,
			MaxConns:        cfg.Database.MaxConnections,
			MinConns:        cfg.Database.MinConnections,
			MaxConnLifetime: cfg.Database.MaxConnLifetime,
			MaxConnIdleTime: cfg.Database.MaxConnIdleTime,
			Migrate:         cfg.Database.Migrate,
		}); err != nil {
			logger.Fatal().Err(err).Msg("Failed to connect to database")
		}
		defer database.Close()
		logger.Info().Msg("Database connected")
	} else {
		logger.Info().Msg("No database configured, using in-process storage")
	}

	cache, err := newCatalogCache(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create catalog")
	}
	defer cache.Close()

	// A failed first load leaves the service up and reporting unhealthy
	// until the refresh loop or /internal/catalog/refresh succeeds.
	if err := cache.Load(ctx); err != nil {
		logger.Error().Err(err).Msg("Initial catalog load failed")
	}
	cache.StartRefresh()

	searchService := ranking.NewService(cache, &cfg.Ranking, nil)

	var repo orders.Repository = orders.NewMemoryRepository()
	if cfg.Orders.Store == "postgres" {
		repo = orders.NewPostgresRepository(database.Pool())
	}
	orderService := orders.NewService(repo, nil)

	janitorLogger := logger.With().Str("component", "order_janitor").Logger()
	janitor := orders.NewJanitor(repo, &janitorLogger, cfg.Orders.Retention, cfg.Orders.JanitorInterval)
	go janitor.Start(ctx)

	handlers.InitPharmacy(cache, searchService, orderService)

	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	if err := router.SetTrustedProxies(cfg.Server.TrustedProxies); err != nil {
		logger.Fatal().Err(err).Msg("Invalid trusted proxies")
	}
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(logger))

	router.GET("/health", handlers.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/openapi/schemas.json", handlers.Schemas)
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/openapi/schemas.json")))

	limiter := middleware.NewIPRateLimiter(middleware.RateLimiterConfig{
		RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
		BurstSize:         cfg.RateLimit.BurstSize,
		IdleTTL:           cfg.RateLimit.IdleTTL,
	})
	limiter.StartCleanup(ctx, cfg.RateLimit.CleanupInterval)

	api := router.Group("/api/v1")
	api.Use(middleware.RateLimitMiddleware(limiter))
	{
		api.GET("/stores", handlers.ListStores)
		api.GET("/stores/:id", handlers.GetStore)
		api.POST("/search", handlers.Search)
		api.POST("/score", handlers.Score)
		api.POST("/split-plan", handlers.SplitPlan)

		api.POST("/orders", handlers.PlaceOrder)
		api.GET("/orders/:id", handlers.GetOrder)
		api.POST("/orders/:id/cancel", handlers.CancelOrder)
		api.GET("/order-groups/:groupId", handlers.GetOrderGroup)
	}

	internal := router.Group("/internal")
	internal.Use(middleware.InternalAuthMiddleware(cfg.Internal.APIKey))
	internal.Use(middleware.ServiceRateLimitMiddleware(cfg.Internal.RequestsPerSecond, cfg.Internal.BurstSize))
	{
		internal.GET("/health", handlers.HealthCheck)
		internal.POST("/catalog/refresh", handlers.CatalogRefresh)
		internal.GET("/catalog/health", handlers.CatalogHealth)
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info().Str("addr", addr).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	<-ctx.Done()

	logger.Info().Msg("Shutting down server...")
	janitor.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Server forced to shutdown")
	}
	if err := shutdownTelemetry(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Failed to flush telemetry")
	}

	logger.Info().Msg("Server exited")
}

// newCatalogCache builds the catalog loader and, when redis is configured,
// the snapshot mirror.
func newCatalogCache(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*catalog.Cache, error) {
	loader, err := catalog.NewLoader(&cfg.Catalog, database.Pool())
	if err != nil {
		return nil, err
	}

	var opts []catalog.Option
	if cfg.Redis.URL != "" {
		redisOpts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			return nil, fmt.Errorf("invalid redis url: %w", err)
		}
		client := redis.NewClient(redisOpts)

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			logger.Warn().Err(err).Msg("Redis unreachable, catalog mirror may be unavailable")
		}

		opts = append(opts, catalog.WithMirror(catalog.NewRedisMirror(client, cfg.Catalog.MirrorKey, cfg.Catalog.MirrorTTL)))
		logger.Info().Str("key", cfg.Catalog.MirrorKey).Msg("Catalog mirror enabled")
	}

	logger.Info().Str("source", loader.Name()).Msg("Catalog source selected")
	return catalog.NewCache(loader, &cfg.Catalog, opts...), nil
}

func initLogger(cfg config.LoggingConfig) *zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	var output io.Writer
	if cfg.Format == "json" {
		output = os.Stdout
	} else {
		output = zerolog.ConsoleWriter{Out: os.Stdout, NoColor: cfg.NoColor}
	}

	logger := zerolog.New(output).Level(level).With().Timestamp().Str("service", "pharmacy-service").Logger()
	return &logger
}
