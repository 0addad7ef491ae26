package ranking

import (
	"strings"

	"github.com/meditatva/pharmacy-service/internal/matching"
)

// NameMatcher decides whether a catalog offer name satisfies a requested name fragment.
type NameMatcher interface {
	Matches(requested, offerName string) bool
}

// SubstringMatcher matches when the offer name contains the requested
// fragment, ignoring case. No other normalization is applied.
type SubstringMatcher struct{}

// Matches implements NameMatcher.
func (SubstringMatcher) Matches(requested, offerName string) bool {
	return strings.Contains(strings.ToLower(offerName), strings.ToLower(requested))
}

// FoldingMatcher is a SubstringMatcher that also strips diacritics and
// collapses whitespace on both sides, so "paracetamól  500" matches "Paracetamol 500mg".
type FoldingMatcher struct{}

// Matches implements NameMatcher.
func (FoldingMatcher) Matches(requested, offerName string) bool {
	needle := matching.NormalizeName(requested)
	if needle == "" {
		return false
	}
	return strings.Contains(matching.NormalizeName(offerName), needle)
}

// FirstAvailableOffer returns the first offer in listing order that matches
// the requested fragment and is not out of stock. Later matching offers at the
// same store are ignored even when cheaper.
func FirstAvailableOffer(store *Store, requested string, matcher NameMatcher) *MedicineOffer {
	for i := range store.Offers {
		offer := &store.Offers[i]
		if !offer.Status.Available() {
			continue
		}
		if matcher.Matches(requested, offer.Name) {
			return offer
		}
	}
	return nil
}

// MatchStore evaluates one store against the requested items and scores it
// using the store's precomputed distance.
func MatchStore(store *Store, items []string, matcher NameMatcher, scoring *ScoringConfig) *StoreMatchResult {
	return matchStoreAt(store, items, matcher, scoring, store.DistanceKm)
}

// MatchStores evaluates every store in catalog order.
func MatchStores(stores []*Store, items []string, matcher NameMatcher, scoring *ScoringConfig) []*StoreMatchResult {
	results := make([]*StoreMatchResult, 0, len(stores))
	for _, store := range stores {
		results = append(results, MatchStore(store, items, matcher, scoring))
	}
	return results
}

func matchStoreAt(store *Store, items []string, matcher NameMatcher, scoring *ScoringConfig, distanceKm float64) *StoreMatchResult {
	items = DedupeItems(items)
	result := &StoreMatchResult{
		Store:      store,
		Matches:    make([]*OfferMatch, 0, len(items)),
		Missing:    make([]string, 0),
		DistanceKm: distanceKm,
	}

	for _, item := range items {
		offer := FirstAvailableOffer(store, item, matcher)
		if offer == nil {
			result.Missing = append(result.Missing, item)
			continue
		}
		result.Matches = append(result.Matches, &OfferMatch{Requested: item, Offer: offer})
		result.TotalPrice += offer.Price
	}

	result.PriorityScore = scoring.PriorityScore(distanceKm, result.TotalPrice, store.Rating)
	return result
}
