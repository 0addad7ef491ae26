package ranking

import "math"

// ScoringConfig holds the constants of the store priority score.
// It is loaded from the ranking section of the service config.
type ScoringConfig struct {
	// Sub-score weights, must sum to 1
	RatingWeight   float64 `mapstructure:"rating_weight"`
	DistanceWeight float64 `mapstructure:"distance_weight"`
	PriceWeight    float64 `mapstructure:"price_weight"`

	// Distance at and beyond which the distance sub-score is 0
	ReferenceDistanceKm float64 `mapstructure:"reference_distance_km"`

	// Total price at and beyond which the price sub-score is 0
	ReferencePrice float64 `mapstructure:"reference_price"`

	// Top of the rating scale
	MaxRating float64 `mapstructure:"max_rating"`
}

// DefaultScoringConfig returns the default scoring constants.
func DefaultScoringConfig() *ScoringConfig {
	return &ScoringConfig{
		RatingWeight:        0.40,
		DistanceWeight:      0.35,
		PriceWeight:         0.25,
		ReferenceDistanceKm: 10,
		ReferencePrice:      500,
		MaxRating:           5,
	}
}

// Validate validates the scoring constants and returns an error if invalid.
func (c *ScoringConfig) Validate() error {
	if c.RatingWeight < 0 {
		return ErrInvalidConfig{Field: "rating_weight", Reason: "must be non-negative"}
	}
	if c.DistanceWeight < 0 {
		return ErrInvalidConfig{Field: "distance_weight", Reason: "must be non-negative"}
	}
	if c.PriceWeight < 0 {
		return ErrInvalidConfig{Field: "price_weight", Reason: "must be non-negative"}
	}
	if sum := c.RatingWeight + c.DistanceWeight + c.PriceWeight; math.Abs(sum-1) > 1e-9 {
		return ErrInvalidConfig{Field: "weights", Reason: "must sum to 1"}
	}
	if c.ReferenceDistanceKm <= 0 {
		return ErrInvalidConfig{Field: "reference_distance_km", Reason: "must be positive"}
	}
	if c.ReferencePrice <= 0 {
		return ErrInvalidConfig{Field: "reference_price", Reason: "must be positive"}
	}
	if c.MaxRating <= 0 {
		return ErrInvalidConfig{Field: "max_rating", Reason: "must be positive"}
	}
	return nil
}

// Config holds the configuration for the search service.
type Config struct {
	Scoring ScoringConfig `mapstructure:"scoring"`

	// Validation limits
	MaxSearchItems int `mapstructure:"max_search_items"`

	// Results returned when a query does not set a limit
	DefaultLimit int `mapstructure:"default_limit"`

	// Use diacritic folding instead of plain case-insensitive substring matching
	FoldDiacritics bool `mapstructure:"fold_diacritics"`
}

// Defaults returns the default configuration.
func Defaults() *Config {
	return &Config{
		Scoring:        *DefaultScoringConfig(),
		MaxSearchItems: 20,
		DefaultLimit:   50,
	}
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	if err := c.Scoring.Validate(); err != nil {
		return err
	}
	if c.MaxSearchItems < 1 {
		return ErrInvalidConfig{Field: "max_search_items", Reason: "must be at least 1"}
	}
	if c.DefaultLimit < 1 {
		return ErrInvalidConfig{Field: "default_limit", Reason: "must be at least 1"}
	}
	return nil
}

// ErrInvalidConfig is returned when the configuration is invalid.
type ErrInvalidConfig struct {
	Field  string
	Reason string
}

func (e ErrInvalidConfig) Error() string {
	return e.Field + ": " + e.Reason
}
