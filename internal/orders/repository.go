package orders

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Repository persists orders.
type Repository interface {
	// Create stores all orders or none.
	Create(ctx context.Context, orders []*Order) error
	Get(ctx context.Context, id string) (*Order, error)
	// ListByGroup returns the orders of a group ordered by creation.
	ListByGroup(ctx context.Context, groupID string) ([]*Order, error)
	// Cancel marks a placed order cancelled at the given time.
	Cancel(ctx context.Context, id string, at time.Time) (*Order, error)
	// DeleteOlderThan removes orders created before cutoff and returns the count.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error)
}

// MemoryRepository keeps orders in process memory.
type MemoryRepository struct {
	mu     sync.RWMutex
	orders map[string]*Order
}

var _ Repository = (*MemoryRepository)(nil)

// NewMemoryRepository creates an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{orders: make(map[string]*Order)}
}

func (r *MemoryRepository) Create(ctx context.Context, orders []*Order) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, o := range orders {
		if _, exists := r.orders[o.ID]; exists {
			return ErrInvalidOrder{Field: "id", Reason: "already exists: " + o.ID}
		}
	}
	for _, o := range orders {
		r.orders[o.ID] = o.clone()
	}
	return nil
}

func (r *MemoryRepository) Get(ctx context.Context, id string) (*Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	o, ok := r.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	return o.clone(), nil
}

func (r *MemoryRepository) ListByGroup(ctx context.Context, groupID string) ([]*Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*Order, 0)
	for _, o := range r.orders {
		if o.GroupID == groupID {
			result = append(result, o.clone())
		}
	}
	sortByCreation(result)
	return result, nil
}

func (r *MemoryRepository) Cancel(ctx context.Context, id string, at time.Time) (*Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	if o.Status == StatusCancelled {
		return nil, ErrAlreadyCancelled
	}
	o.Status = StatusCancelled
	o.CancelledAt = &at
	return o.clone(), nil
}

func (r *MemoryRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	deleted := 0
	for id, o := range r.orders {
		if o.CreatedAt.Before(cutoff) {
			delete(r.orders, id)
			deleted++
		}
	}
	return deleted, nil
}

// sortByCreation orders by creation time, then group position.
func sortByCreation(orders []*Order) {
	sort.Slice(orders, func(i, j int) bool {
		if !orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].CreatedAt.Before(orders[j].CreatedAt)
		}
		if orders[i].Sequence != orders[j].Sequence {
			return orders[i].Sequence < orders[j].Sequence
		}
		return orders[i].ID < orders[j].ID
	})
}
