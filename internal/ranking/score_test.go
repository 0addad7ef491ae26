package ranking

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPriorityScoreBoundaries(t *testing.T) {
	tests := []struct {
		name       string
		distanceKm float64
		totalPrice float64
		rating     float64
		expected   float64
	}{
		{"best possible store", 0, 0, 5, 100},
		{"all sub-scores at zero", 10, 500, 0, 0},
		{"beyond references clamps to zero", 25, 1200, 0, 0},
		{"rating only", 10, 500, 5, 40},
		{"distance only", 0, 500, 0, 35},
		{"price only", 10, 0, 0, 25},
		{"midpoints", 5, 250, 2.5, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score := PriorityScore(tt.distanceKm, tt.totalPrice, tt.rating)
			assert.InDelta(t, tt.expected, score, 1e-9)
		})
	}
}

func TestPriorityScoreStoreA(t *testing.T) {
	// 4.5 rating, 2km, 25 total
	// rating 90*0.40 + distance 80*0.35 + price 95*0.25 = 36 + 28 + 23.75
	assert.InDelta(t, 87.75, PriorityScore(2, 25, 4.5), 1e-9)
}

func TestPriorityScoreIsBounded(t *testing.T) {
	for d := 0.0; d <= 30; d += 1.5 {
		for p := 0.0; p <= 1500; p += 75 {
			for r := 0.0; r <= 5; r += 0.5 {
				score := PriorityScore(d, p, r)
				require.GreaterOrEqual(t, score, 0.0, "d=%v p=%v r=%v", d, p, r)
				require.LessOrEqual(t, score, 100.0+1e-9, "d=%v p=%v r=%v", d, p, r)
			}
		}
	}
}

func TestPriorityScoreMonotonicity(t *testing.T) {
	t.Run("non-increasing in distance", func(t *testing.T) {
		prev := PriorityScore(0, 100, 4)
		for d := 0.5; d <= 20; d += 0.5 {
			cur := PriorityScore(d, 100, 4)
			assert.LessOrEqual(t, cur, prev, "distance %v", d)
			prev = cur
		}
	})

	t.Run("non-increasing in price", func(t *testing.T) {
		prev := PriorityScore(3, 0, 4)
		for p := 25.0; p <= 1000; p += 25 {
			cur := PriorityScore(3, p, 4)
			assert.LessOrEqual(t, cur, prev, "price %v", p)
			prev = cur
		}
	})

	t.Run("non-decreasing in rating", func(t *testing.T) {
		prev := PriorityScore(3, 100, 0)
		for r := 0.25; r <= 5; r += 0.25 {
			cur := PriorityScore(3, 100, r)
			assert.GreaterOrEqual(t, cur, prev, "rating %v", r)
			prev = cur
		}
	})
}

func TestPriorityScoreCustomConfig(t *testing.T) {
	config := &ScoringConfig{
		RatingWeight:        0.5,
		DistanceWeight:      0.5,
		PriceWeight:         0,
		ReferenceDistanceKm: 20,
		ReferencePrice:      1000,
		MaxRating:           10,
	}
	require.NoError(t, config.Validate())

	// rating 50*0.5 + distance 50*0.5
	assert.InDelta(t, 50.0, config.PriorityScore(10, 999, 5), 1e-9)
}

func TestScoringConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*ScoringConfig)
		field  string
	}{
		{"negative weight", func(c *ScoringConfig) { c.PriceWeight = -0.25; c.RatingWeight = 0.9 }, "price_weight"},
		{"weights do not sum to one", func(c *ScoringConfig) { c.RatingWeight = 0.5 }, "weights"},
		{"zero reference distance", func(c *ScoringConfig) { c.ReferenceDistanceKm = 0 }, "reference_distance_km"},
		{"zero reference price", func(c *ScoringConfig) { c.ReferencePrice = 0 }, "reference_price"},
		{"zero max rating", func(c *ScoringConfig) { c.MaxRating = 0 }, "max_rating"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultScoringConfig()
			tt.modify(config)

			err := config.Validate()
			require.Error(t, err)

			var cfgErr ErrInvalidConfig
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}

	assert.NoError(t, DefaultScoringConfig().Validate())
}

func TestConfigValidate(t *testing.T) {
	config := Defaults()
	require.NoError(t, config.Validate())

	config.MaxSearchItems = 0
	assert.Error(t, config.Validate())

	config = Defaults()
	config.DefaultLimit = 0
	assert.Error(t, config.Validate())
}
