package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/meditatva/pharmacy-service/config"
	"github.com/meditatva/pharmacy-service/internal/catalog"
	"github.com/meditatva/pharmacy-service/internal/database"
	"github.com/meditatva/pharmacy-service/internal/ranking"
)

var (
	cfgFile       string
	catalogSource string
	catalogPath   string
	jsonOutput    bool

	cfg    *config.Config
	logger *zerolog.Logger
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "pharmacy",
	Short: "Pharmacy CLI - rank stores and plan split orders from the terminal",
	Long: `A CLI for the pharmacy service. Searches the store catalog for medicines,
ranks matching stores, plans split orders across stores and imports catalog
data from spreadsheets, JSON or YAML files into Postgres or a catalog file.`,
	SilenceUsage:      true,
	PersistentPreRunE: persistentPreRun,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config/config.yaml or ./config.yaml)")
	rootCmd.PersistentFlags().StringVar(&catalogSource, "source", "", "catalog source override: embedded, file, xlsx or postgres")
	rootCmd.PersistentFlags().StringVar(&catalogPath, "catalog", "", "catalog file for the file and xlsx sources")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print results as JSON")
}

func initConfig() {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		// Commands fall back to built-in defaults
		fmt.Fprintf(os.Stderr, "Warning: failed to load config: %v\n", err)
	}
}

// persistentPreRun runs before each command and initializes dependencies
func persistentPreRun(cmd *cobra.Command, args []string) error {
	if cmd.Name() == "help" || cmd.Name() == "completion" {
		return nil
	}

	logger = initLogger()
	return nil
}

func initLogger() *zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	level := zerolog.InfoLevel
	if cfg != nil && cfg.Logging.Level != "" {
		if parsedLevel, err := zerolog.ParseLevel(cfg.Logging.Level); err == nil {
			level = parsedLevel
		}
	}

	// Logs go to stderr so command output stays parseable
	var output io.Writer
	if cfg != nil && cfg.Logging.Format == "json" {
		output = os.Stderr
	} else {
		noColor := false
		if cfg != nil {
			noColor = cfg.Logging.NoColor
		}
		output = zerolog.ConsoleWriter{Out: os.Stderr, NoColor: noColor}
	}

	log := zerolog.New(output).Level(level).With().Timestamp().Logger()
	return &log
}

func initDatabase(ctx context.Context) error {
	if cfg == nil || cfg.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL not set")
	}

	if err := database.Connect(ctx, database.Options{
		URL:             cfg.Database.URL,
		MaxConns:        cfg.Database.MaxConnections,
		MinConns:        cfg.Database.MinConnections,
		MaxConnLifetime: cfg.Database.MaxConnLifetime,
		MaxConnIdleTime: cfg.Database.MaxConnIdleTime,
		Migrate:         cfg.Database.Migrate,
	}); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	return nil
}

// catalogConfig returns the configured catalog settings with flag overrides.
func catalogConfig() *catalog.Config {
	c := catalog.DefaultConfig()
	if cfg != nil {
		copied := cfg.Catalog
		c = &copied
	}
	if catalogSource != "" {
		c.Source = catalogSource
	}
	if catalogPath != "" {
		c.Path = catalogPath
		if catalogSource == "" {
			c.Source = catalog.SourceFile
		}
	}
	// One-shot commands never refresh in the background
	c.RefreshInterval = 0
	return c
}

func rankingConfig() *ranking.Config {
	if cfg != nil {
		return &cfg.Ranking
	}
	return ranking.Defaults()
}

// openCatalog loads the catalog once and returns a cache and search service over it.
func openCatalog(ctx context.Context) (*catalog.Cache, *ranking.Service, error) {
	catalogCfg := catalogConfig()
	if err := catalogCfg.Validate(); err != nil {
		return nil, nil, err
	}

	if catalogCfg.Source == catalog.SourcePostgres {
		if err := initDatabase(ctx); err != nil {
			return nil, nil, err
		}
	}

	loader, err := catalog.NewLoader(catalogCfg, database.Pool())
	if err != nil {
		return nil, nil, err
	}

	cache := catalog.NewCache(loader, catalogCfg)
	if err := cache.Load(ctx); err != nil {
		cache.Close()
		return nil, nil, err
	}

	logger.Debug().
		Str("source", loader.Name()).
		Int("stores", cache.Freshness().Stores).
		Msg("Catalog loaded")

	return cache, ranking.NewService(cache, rankingConfig(), nil), nil
}

func main() {
	err := Execute()
	database.Close()
	if err != nil {
		os.Exit(1)
	}
}
