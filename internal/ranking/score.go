package ranking

import "math"

var defaultScoring = DefaultScoringConfig()

// PriorityScore computes the store priority score with the default constants.
func PriorityScore(distanceKm, totalPrice, rating float64) float64 {
	return defaultScoring.PriorityScore(distanceKm, totalPrice, rating)
}

// PriorityScore combines rating, distance and price sub-scores into a 0-100 score.
//
//	rating:   rating / MaxRating * 100
//	distance: max(0, 100 - distanceKm / ReferenceDistanceKm * 100)
//	price:    max(0, 100 - totalPrice / ReferencePrice * 100)
//
// Inputs are not validated; out-of-range values flow through the formula.
func (c *ScoringConfig) PriorityScore(distanceKm, totalPrice, rating float64) float64 {
	ratingScore := rating / c.MaxRating * 100
	distanceScore := math.Max(0, 100-distanceKm/c.ReferenceDistanceKm*100)
	priceScore := math.Max(0, 100-totalPrice/c.ReferencePrice*100)

	return ratingScore*c.RatingWeight +
		distanceScore*c.DistanceWeight +
		priceScore*c.PriceWeight
}
