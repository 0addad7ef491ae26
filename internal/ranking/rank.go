package ranking

import "sort"

// RankStores returns a copy of results ordered by the given mode. The sort is
// stable: results with equal keys keep their input (catalog) order, which makes
// the output deterministic for a given catalog.
func RankStores(results []*StoreMatchResult, mode SortMode) []*StoreMatchResult {
	ranked := make([]*StoreMatchResult, len(results))
	copy(ranked, results)

	less := lessFor(mode)
	sort.SliceStable(ranked, func(i, j int) bool {
		return less(ranked[i], ranked[j])
	})
	return ranked
}

func lessFor(mode SortMode) func(a, b *StoreMatchResult) bool {
	switch mode {
	case SortDistance:
		return func(a, b *StoreMatchResult) bool { return a.DistanceKm < b.DistanceKm }
	case SortPrice:
		return func(a, b *StoreMatchResult) bool { return a.TotalPrice < b.TotalPrice }
	case SortRating:
		return func(a, b *StoreMatchResult) bool { return a.Store.Rating > b.Store.Rating }
	default:
		return func(a, b *StoreMatchResult) bool { return a.PriorityScore > b.PriorityScore }
	}
}
