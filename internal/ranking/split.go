package ranking

// PlanSplitOrder allocates the requested items across the fewest stores it can
// find using greedy set cover. Each round picks the store supplying the most
// still-unallocated items and drains every remaining item it can supply.
//
// Ties on coverage go to the higher priority score, then to the smaller store
// ID, then to the earlier position in matches. Greedy set cover is not
// guaranteed to be optimal.
//
// If any item is not supplied by any store the plan is returned with no
// entries and Unavailable listing those items in request order.
func PlanSplitOrder(items []string, matches []*StoreMatchResult) *SplitOrderPlan {
	requested := DedupeItems(items)
	plan := &SplitOrderPlan{Entries: make([]*SplitOrderEntry, 0)}

	if unavailable := uncoveredItems(requested, matches); len(unavailable) > 0 {
		plan.Unavailable = unavailable
		return plan
	}

	remaining := make(map[string]bool, len(requested))
	for _, item := range requested {
		remaining[item] = true
	}
	used := make(map[int]bool)

	for len(remaining) > 0 {
		bestIdx, bestCoverage := -1, 0
		for i, candidate := range matches {
			if used[i] {
				continue
			}
			coverage := coverageOf(candidate, requested, remaining)
			if coverage == 0 {
				continue
			}
			if bestIdx < 0 || betterCandidate(candidate, coverage, matches[bestIdx], bestCoverage) {
				bestIdx, bestCoverage = i, coverage
			}
		}

		// Unreachable once the coverage check above passed; bounds the loop regardless.
		if bestIdx < 0 {
			plan.Entries = plan.Entries[:0]
			plan.Unavailable = remainingInOrder(requested, remaining)
			return plan
		}

		best := matches[bestIdx]
		used[bestIdx] = true

		entry := &SplitOrderEntry{Store: best.Store, Items: make([]*OfferMatch, 0, bestCoverage)}
		for _, item := range requested {
			if !remaining[item] {
				continue
			}
			m := best.match(item)
			if m == nil {
				continue
			}
			entry.Items = append(entry.Items, m)
			entry.Subtotal += m.Offer.Price
			delete(remaining, item)
		}
		plan.Entries = append(plan.Entries, entry)
	}

	return plan
}

// betterCandidate reports whether candidate a beats the current best b.
func betterCandidate(a *StoreMatchResult, aCoverage int, b *StoreMatchResult, bCoverage int) bool {
	// 1. Coverage (higher is better)
	if aCoverage != bCoverage {
		return aCoverage > bCoverage
	}

	// 2. Priority score (higher is better)
	if a.PriorityScore != b.PriorityScore {
		return a.PriorityScore > b.PriorityScore
	}

	// 3. Store ID (for determinism); equal IDs keep the earlier candidate
	return a.Store.ID < b.Store.ID
}

func coverageOf(result *StoreMatchResult, requested []string, remaining map[string]bool) int {
	n := 0
	for _, item := range requested {
		if remaining[item] && result.Covers(item) {
			n++
		}
	}
	return n
}

func uncoveredItems(requested []string, matches []*StoreMatchResult) []string {
	var uncovered []string
	for _, item := range requested {
		covered := false
		for _, m := range matches {
			if m.Covers(item) {
				covered = true
				break
			}
		}
		if !covered {
			uncovered = append(uncovered, item)
		}
	}
	return uncovered
}

func remainingInOrder(requested []string, remaining map[string]bool) []string {
	out := make([]string, 0, len(remaining))
	for _, item := range requested {
		if remaining[item] {
			out = append(out, item)
		}
	}
	return out
}
