package database

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	pool     *pgxpool.Pool
	poolMu   sync.RWMutex
	poolOnce sync.Once
)

// Options holds connection pool settings.
type Options struct {
	URL             string
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	// Apply Schema after connecting
	Migrate bool
}

// Connect creates the shared connection pool (safe for concurrent use).
// Calling it again after a successful connect is a no-op.
func Connect(ctx context.Context, opts Options) error {
	var initErr error
	poolOnce.Do(func() {
		config, err := pgxpool.ParseConfig(opts.URL)
		if err != nil {
			initErr = fmt.Errorf("error parsing database config: %w", err)
			return
		}

		if opts.MaxConns > 0 {
			config.MaxConns = int32(opts.MaxConns)
		}
		if opts.MinConns > 0 {
			config.MinConns = int32(opts.MinConns)
		}
		if opts.MaxConnLifetime > 0 {
			config.MaxConnLifetime = opts.MaxConnLifetime
		}
		if opts.MaxConnIdleTime > 0 {
			config.MaxConnIdleTime = opts.MaxConnIdleTime
		}
		config.HealthCheckPeriod = 1 * time.Minute

		newPool, err := pgxpool.NewWithConfig(ctx, config)
		if err != nil {
			initErr = fmt.Errorf("error creating connection pool: %w", err)
			return
		}

		if err := newPool.Ping(ctx); err != nil {
			newPool.Close()
			initErr = fmt.Errorf("error connecting to database: %w", err)
			return
		}

		if opts.Migrate {
			if err := Migrate(ctx, newPool); err != nil {
				newPool.Close()
				initErr = err
				return
			}
		}

		poolMu.Lock()
		pool = newPool
		poolMu.Unlock()
	})

	if initErr != nil {
		poolOnce = sync.Once{} // reset on failure
		return initErr
	}
	return nil
}

// Close closes the database connection pool
func Close() {
	poolMu.Lock()
	defer poolMu.Unlock()
	if pool != nil {
		pool.Close()
		pool = nil
	}
	poolOnce = sync.Once{} // reset to allow reconnection
}

// Pool returns the connection pool
func Pool() *pgxpool.Pool {
	poolMu.RLock()
	defer poolMu.RUnlock()
	return pool
}

// Status returns the current status of the database connection
func Status(ctx context.Context) error {
	poolMu.RLock()
	p := pool
	poolMu.RUnlock()

	if p == nil {
		return fmt.Errorf("database not initialized")
	}
	return p.Ping(ctx)
}

// Stats returns connection pool statistics
func Stats() *pgxpool.Stat {
	poolMu.RLock()
	defer poolMu.RUnlock()
	if pool == nil {
		return nil
	}
	return pool.Stat()
}
