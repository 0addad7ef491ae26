package orders

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/meditatva/pharmacy-service/internal/database"
)

func setupTestDB(t *testing.T) (*pgxpool.Pool, func()) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:16-alpine",
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err, "Failed to start postgres container")

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "Failed to get connection string")

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err, "Failed to create connection pool")
	require.NoError(t, database.Migrate(ctx, pool), "Failed to run migrations")

	cleanup := func() {
		pool.Close()
		testcontainers.TerminateContainer(container)
	}
	return pool, cleanup
}

func TestPostgresRepository(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	exerciseRepository(t, NewPostgresRepository(db))
}

func TestPostgresRepositoryWithService(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	svc := NewService(NewPostgresRepository(db), nil)

	placed, err := svc.PlaceSplitOrder(ctx, testPlan("Paracetamol", "Insulin"), testCheckout)
	require.NoError(t, err)

	group, err := svc.ListGroup(ctx, placed[0].GroupID)
	require.NoError(t, err)
	require.Len(t, group, 2)
	require.Equal(t, placed[0].ID, group[0].ID)
	require.Equal(t, placed[1].Items, group[1].Items)
}
