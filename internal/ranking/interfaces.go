package ranking

import (
	"context"
	"errors"
)

var (
	// ErrCatalogUnavailable is returned when the catalog is not loaded or is stale.
	ErrCatalogUnavailable = errors.New("catalog unavailable or stale")

	// ErrStoreNotFound is returned when a store ID is not in the catalog.
	ErrStoreNotFound = errors.New("store not found")
)

// CatalogSource defines the interface for accessing the store catalog.
// This allows the search service to be decoupled from the cache implementation.
type CatalogSource interface {
	// Stores returns every store in catalog order.
	// Callers must treat the returned stores as read-only.
	Stores(ctx context.Context) ([]*Store, error)

	// Store returns a single store by ID.
	Store(ctx context.Context, id string) (*Store, bool)

	// IsHealthy returns whether the catalog is ready to serve requests.
	IsHealthy(ctx context.Context) bool
}

// Searcher is the main interface for search and planning operations.
type Searcher interface {
	// Search ranks stores offering the requested medicines.
	Search(ctx context.Context, q *SearchQuery) ([]*StoreMatchResult, error)

	// PlanSplit allocates the requested medicines across the fewest stores.
	PlanSplit(ctx context.Context, q *SearchQuery) (*SplitOrderPlan, error)

	// MatchAt matches the query against a single store.
	MatchAt(ctx context.Context, storeID string, q *SearchQuery) (*StoreMatchResult, error)
}
