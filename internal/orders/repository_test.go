package orders

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleOrder(id, group string, seq int, createdAt time.Time) *Order {
	return &Order{
		ID:            id,
		GroupID:       group,
		Sequence:      seq,
		StoreID:       "apollo",
		StoreName:     "Apollo Pharmacy",
		Status:        StatusPlaced,
		Items:         []OrderLine{{Requested: "Paracetamol", MedicineName: "Paracetamol 500mg", Price: 25}},
		Subtotal:      25,
		PaymentMethod: PaymentCard,
		Customer:      Customer{Name: "Asha Rao", Phone: "9820011223"},
		CreatedAt:     createdAt,
	}
}

// exerciseRepository runs the shared repository contract against repo.
func exerciseRepository(t *testing.T, repo Repository) {
	ctx := context.Background()
	base := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Create(ctx, []*Order{
		sampleOrder("ord_b", "g1", 1, base),
		sampleOrder("ord_a", "g1", 0, base),
		sampleOrder("ord_old", "g0", 0, base.Add(-48*time.Hour)),
	}))

	t.Run("get", func(t *testing.T) {
		o, err := repo.Get(ctx, "ord_a")
		require.NoError(t, err)
		assert.Equal(t, "g1", o.GroupID)
		assert.Equal(t, PaymentCard, o.PaymentMethod)
		assert.True(t, base.Equal(o.CreatedAt))
		require.Len(t, o.Items, 1)
		assert.Equal(t, "Paracetamol 500mg", o.Items[0].MedicineName)
		assert.Nil(t, o.CancelledAt)

		_, err = repo.Get(ctx, "ord_nope")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("list by group keeps plan order", func(t *testing.T) {
		group, err := repo.ListByGroup(ctx, "g1")
		require.NoError(t, err)
		require.Len(t, group, 2)
		assert.Equal(t, "ord_a", group[0].ID)
		assert.Equal(t, "ord_b", group[1].ID)

		empty, err := repo.ListByGroup(ctx, "g9")
		require.NoError(t, err)
		assert.Empty(t, empty)
	})

	t.Run("cancel", func(t *testing.T) {
		at := base.Add(time.Hour)
		o, err := repo.Cancel(ctx, "ord_b", at)
		require.NoError(t, err)
		assert.Equal(t, StatusCancelled, o.Status)
		require.NotNil(t, o.CancelledAt)
		assert.True(t, at.Equal(*o.CancelledAt))

		_, err = repo.Cancel(ctx, "ord_b", at)
		assert.ErrorIs(t, err, ErrAlreadyCancelled)
		_, err = repo.Cancel(ctx, "ord_nope", at)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("delete older than", func(t *testing.T) {
		deleted, err := repo.DeleteOlderThan(ctx, base.Add(-time.Hour))
		require.NoError(t, err)
		assert.Equal(t, 1, deleted)

		_, err = repo.Get(ctx, "ord_old")
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = repo.Get(ctx, "ord_a")
		assert.NoError(t, err)
	})
}

func TestMemoryRepository(t *testing.T) {
	exerciseRepository(t, NewMemoryRepository())
}

func TestMemoryRepositoryReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	o := sampleOrder("ord_a", "g1", 0, time.Now())
	require.NoError(t, repo.Create(ctx, []*Order{o}))

	o.Items[0].Price = 999
	got, err := repo.Get(ctx, "ord_a")
	require.NoError(t, err)
	assert.Equal(t, 25.0, got.Items[0].Price)

	got.Status = StatusCancelled
	again, _ := repo.Get(ctx, "ord_a")
	assert.Equal(t, StatusPlaced, again.Status)
}

func TestMemoryRepositoryCreateIsAtomic(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	require.NoError(t, repo.Create(ctx, []*Order{sampleOrder("ord_a", "g1", 0, time.Now())}))

	err := repo.Create(ctx, []*Order{
		sampleOrder("ord_new", "g2", 0, time.Now()),
		sampleOrder("ord_a", "g2", 1, time.Now()),
	})
	require.Error(t, err)

	_, err = repo.Get(ctx, "ord_new")
	assert.ErrorIs(t, err, ErrNotFound)
}
