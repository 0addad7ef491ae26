package ranking

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(id string, distanceKm, rating float64, offers ...MedicineOffer) *Store {
	return &Store{
		ID:         id,
		Name:       "Store " + id,
		DistanceKm: distanceKm,
		Rating:     rating,
		Offers:     offers,
	}
}

func offer(name string, price float64, status Availability) MedicineOffer {
	return MedicineOffer{Name: name, Price: price, Status: status, Quantity: 10}
}

func TestFirstAvailableOffer(t *testing.T) {
	store := newStore("s1", 1, 4,
		offer("Paracetamol 500mg", 12, OutOfStock),
		offer("Paracetamol 650mg", 18, LowStock),
		offer("Paracetamol Syrup", 9, InStock),
		offer("Cetirizine 10mg", 15, InStock),
	)

	t.Run("skips out of stock and takes the first listed match", func(t *testing.T) {
		got := FirstAvailableOffer(store, "paracetamol", SubstringMatcher{})
		require.NotNil(t, got)
		assert.Equal(t, "Paracetamol 650mg", got.Name)
		assert.Equal(t, 18.0, got.Price)
	})

	t.Run("case insensitive substring", func(t *testing.T) {
		got := FirstAvailableOffer(store, "CETIRI", SubstringMatcher{})
		require.NotNil(t, got)
		assert.Equal(t, "Cetirizine 10mg", got.Name)
	})

	t.Run("no match", func(t *testing.T) {
		assert.Nil(t, FirstAvailableOffer(store, "Insulin", SubstringMatcher{}))
	})

	t.Run("only out of stock listing", func(t *testing.T) {
		oos := newStore("s2", 1, 4, offer("Insulin Glargine", 900, OutOfStock))
		assert.Nil(t, FirstAvailableOffer(oos, "Insulin Glargine", SubstringMatcher{}))
	})

	t.Run("zero quantity in stock listing is still available", func(t *testing.T) {
		s := newStore("s3", 1, 4, MedicineOffer{Name: "Aspirin", Price: 5, Status: InStock})
		assert.NotNil(t, FirstAvailableOffer(s, "aspirin", SubstringMatcher{}))
	})
}

func TestFoldingMatcher(t *testing.T) {
	m := FoldingMatcher{}

	assert.True(t, m.Matches("paracetamól", "Paracetamol 500mg"))
	assert.True(t, m.Matches("paracetamol 500 mg", "PARACETAMOL  500MG Tablets"))
	assert.False(t, m.Matches("ibuprofen", "Paracetamol 500mg"))
	assert.False(t, m.Matches("   ", "Paracetamol"))

	// Plain substring matching keeps diacritics significant
	assert.False(t, SubstringMatcher{}.Matches("paracetamól", "Paracetamol 500mg"))
}

func TestMatchStore(t *testing.T) {
	store := newStore("a", 2, 4.5,
		offer("Paracetamol 500mg", 10, InStock),
		offer("Cetirizine 10mg", 15, LowStock),
		offer("Amoxicillin 250mg", 40, OutOfStock),
	)

	result := MatchStore(store, []string{"Paracetamol", "Cetirizine", "Amoxicillin"}, SubstringMatcher{}, DefaultScoringConfig())

	require.Len(t, result.Matches, 2)
	assert.Equal(t, "Paracetamol", result.Matches[0].Requested)
	assert.Equal(t, "Cetirizine", result.Matches[1].Requested)
	assert.Equal(t, []string{"Amoxicillin"}, result.Missing)
	assert.Equal(t, 25.0, result.TotalPrice)
	assert.Equal(t, 2.0, result.DistanceKm)
	assert.InDelta(t, PriorityScore(2, 25, 4.5), result.PriorityScore, 1e-9)
	assert.True(t, result.Covers("Paracetamol"))
	assert.False(t, result.Covers("Amoxicillin"))
	assert.False(t, result.Complete())
}

func TestMatchStoreNoMatches(t *testing.T) {
	store := newStore("a", 0, 5)

	result := MatchStore(store, []string{"Paracetamol"}, SubstringMatcher{}, DefaultScoringConfig())

	assert.Empty(t, result.Matches)
	assert.Equal(t, []string{"Paracetamol"}, result.Missing)
	assert.Zero(t, result.TotalPrice)
	// A store with nothing matched still scores on rating and distance
	assert.InDelta(t, 100.0, result.PriorityScore, 1e-9)
}

func TestMatchStoresKeepsCatalogOrder(t *testing.T) {
	stores := []*Store{
		newStore("c", 3, 4, offer("Paracetamol", 10, InStock)),
		newStore("a", 1, 4, offer("Paracetamol", 10, InStock)),
		newStore("b", 2, 4),
	}

	results := MatchStores(stores, []string{"Paracetamol"}, SubstringMatcher{}, DefaultScoringConfig())

	require.Len(t, results, 3)
	assert.Equal(t, "c", results[0].Store.ID)
	assert.Equal(t, "a", results[1].Store.ID)
	assert.Equal(t, "b", results[2].Store.ID)
}
