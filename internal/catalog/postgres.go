package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/meditatva/pharmacy-service/internal/ranking"
)

// PostgresLoader reads the catalog from the pharmacies and medicine_offers tables.
type PostgresLoader struct {
	db *pgxpool.Pool
}

// NewPostgresLoader creates a loader over the given pool.
func NewPostgresLoader(db *pgxpool.Pool) *PostgresLoader {
	return &PostgresLoader{db: db}
}

// Name implements Loader.
func (l *PostgresLoader) Name() string { return SourcePostgres }

// Load reads stores and offers in one read-only transaction so offers always
// belong to the store set that was read.
func (l *PostgresLoader) Load(ctx context.Context) ([]*ranking.Store, error) {
	startTime := time.Now()

	tx, err := l.db.BeginTx(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	storeRows, err := tx.Query(ctx, `
		SELECT id, name, address, phone, latitude, longitude, distance_km, rating, hours
		FROM pharmacies
		ORDER BY position, id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query pharmacies: %w", err)
	}

	stores := make([]*ranking.Store, 0)
	byID := make(map[string]*ranking.Store)
	for storeRows.Next() {
		s := &ranking.Store{Offers: make([]ranking.MedicineOffer, 0)}
		if err := storeRows.Scan(&s.ID, &s.Name, &s.Address, &s.Phone,
			&s.Location.Latitude, &s.Location.Longitude, &s.DistanceKm, &s.Rating, &s.Hours); err != nil {
			storeRows.Close()
			return nil, fmt.Errorf("failed to scan pharmacy: %w", err)
		}
		stores = append(stores, s)
		byID[s.ID] = s
	}
	storeRows.Close()
	if err := storeRows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating pharmacies: %w", err)
	}

	offerRows, err := tx.Query(ctx, `
		SELECT pharmacy_id, name, price, status, quantity, category, generic_name, manufacturer
		FROM medicine_offers
		ORDER BY pharmacy_id, position
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query medicine offers: %w", err)
	}
	defer offerRows.Close()

	for offerRows.Next() {
		var storeID, status string
		var o ranking.MedicineOffer
		if err := offerRows.Scan(&storeID, &o.Name, &o.Price, &status, &o.Quantity,
			&o.Category, &o.GenericName, &o.Manufacturer); err != nil {
			return nil, fmt.Errorf("failed to scan medicine offer: %w", err)
		}
		o.Status = ranking.Availability(status)

		if s, ok := byID[storeID]; ok {
			s.Offers = append(s.Offers, o)
		}
	}
	if err := offerRows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating medicine offers: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	if err := Normalize(stores); err != nil {
		return nil, err
	}

	log.Info().
		Str("component", "catalog_postgres").
		Int("stores", len(stores)).
		Int("offers", CountOffers(stores)).
		Dur("duration", time.Since(startTime)).
		Msg("Loaded catalog from database")

	return stores, nil
}

// ReplaceCatalog swaps the stored catalog for stores in a single transaction.
// Catalog order is kept in the position columns.
func ReplaceCatalog(ctx context.Context, db *pgxpool.Pool, stores []*ranking.Store) error {
	if err := Normalize(stores); err != nil {
		return err
	}

	tx, err := db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM pharmacies`); err != nil {
		return fmt.Errorf("failed to clear pharmacies: %w", err)
	}

	batch := &pgx.Batch{}
	for i, s := range stores {
		batch.Queue(`
			INSERT INTO pharmacies (id, position, name, address, phone, latitude, longitude, distance_km, rating, hours, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())
		`, s.ID, i, s.Name, s.Address, s.Phone, s.Location.Latitude, s.Location.Longitude, s.DistanceKm, s.Rating, s.Hours)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to insert pharmacies: %w", err)
	}

	rows := make([][]any, 0, CountOffers(stores))
	for _, s := range stores {
		for j, o := range s.Offers {
			rows = append(rows, []any{s.ID, j, o.Name, o.Price, string(o.Status), o.Quantity, o.Category, o.GenericName, o.Manufacturer})
		}
	}

	if _, err := tx.CopyFrom(ctx,
		pgx.Identifier{"medicine_offers"},
		[]string{"pharmacy_id", "position", "name", "price", "status", "quantity", "category", "generic_name", "manufacturer"},
		pgx.CopyFromRows(rows),
	); err != nil {
		return fmt.Errorf("failed to copy medicine offers: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
