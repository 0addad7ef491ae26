package ranking

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resultFor(id string, distanceKm, totalPrice, rating float64) *StoreMatchResult {
	return &StoreMatchResult{
		Store:         &Store{ID: id, Rating: rating, DistanceKm: distanceKm},
		DistanceKm:    distanceKm,
		TotalPrice:    totalPrice,
		PriorityScore: PriorityScore(distanceKm, totalPrice, rating),
	}
}

func ids(results []*StoreMatchResult) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.Store.ID
	}
	return out
}

func TestRankStoresModes(t *testing.T) {
	results := []*StoreMatchResult{
		resultFor("near-cheap-low", 0.5, 20, 2.0),
		resultFor("far-pricey-top", 8, 300, 5.0),
		resultFor("mid", 3, 60, 4.2),
	}

	tests := []struct {
		mode     SortMode
		expected []string
	}{
		{SortPriority, []string{"mid", "near-cheap-low", "far-pricey-top"}},
		{SortDistance, []string{"near-cheap-low", "mid", "far-pricey-top"}},
		{SortPrice, []string{"near-cheap-low", "mid", "far-pricey-top"}},
		{SortRating, []string{"far-pricey-top", "mid", "near-cheap-low"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			ranked := RankStores(results, tt.mode)
			assert.Equal(t, tt.expected, ids(ranked))
		})
	}
}

func TestRankStoresIsStable(t *testing.T) {
	// Identical inputs produce identical scores
	results := []*StoreMatchResult{
		resultFor("z", 2, 50, 4),
		resultFor("best", 0, 0, 5),
		resultFor("a", 2, 50, 4),
		resultFor("m", 2, 50, 4),
	}

	ranked := RankStores(results, SortPriority)

	assert.Equal(t, []string{"best", "z", "a", "m"}, ids(ranked))
}

func TestRankStoresDoesNotMutateInput(t *testing.T) {
	results := []*StoreMatchResult{
		resultFor("low", 9, 400, 1),
		resultFor("high", 0, 0, 5),
	}

	ranked := RankStores(results, SortPriority)

	require.Len(t, ranked, 2)
	assert.Equal(t, "high", ranked[0].Store.ID)
	assert.Equal(t, "low", results[0].Store.ID)
}

func TestRankStoresOrderedByScore(t *testing.T) {
	var results []*StoreMatchResult
	for i := 0; i < 25; i++ {
		d := float64((i * 7) % 12)
		p := float64((i * 37) % 600)
		r := float64(i%6) * 0.9
		results = append(results, resultFor(string(rune('a'+i)), d, p, r))
	}

	ranked := RankStores(results, SortPriority)

	require.Len(t, ranked, len(results))
	for i := 1; i < len(ranked); i++ {
		assert.GreaterOrEqual(t, ranked[i-1].PriorityScore, ranked[i].PriorityScore)
	}
}

func TestRankStoresEmpty(t *testing.T) {
	assert.Empty(t, RankStores(nil, SortPriority))
}

func TestParseSortMode(t *testing.T) {
	tests := []struct {
		input    string
		expected SortMode
		wantErr  bool
	}{
		{"", SortPriority, false},
		{"priority", SortPriority, false},
		{" Distance ", SortDistance, false},
		{"PRICE", SortPrice, false},
		{"rating", SortRating, false},
		{"popularity", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			mode, err := ParseSortMode(tt.input)
			if tt.wantErr {
				var qErr ErrInvalidQuery
				require.ErrorAs(t, err, &qErr)
				assert.Equal(t, "sort", qErr.Field)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, mode)
		})
	}
}
