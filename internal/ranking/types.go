package ranking

import (
	"fmt"
	"strings"
)

// Availability is the stock status of a medicine offer.
type Availability string

const (
	InStock    Availability = "In Stock"
	LowStock   Availability = "Low Stock"
	OutOfStock Availability = "Out of Stock"
)

// ParseAvailability accepts the three catalog spellings case-insensitively.
func ParseAvailability(s string) (Availability, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "in stock", "in_stock", "instock":
		return InStock, nil
	case "low stock", "low_stock", "lowstock":
		return LowStock, nil
	case "out of stock", "out_of_stock", "outofstock":
		return OutOfStock, nil
	default:
		return "", fmt.Errorf("unknown availability %q", s)
	}
}

// Available reports whether an offer with this status can be ordered.
// Quantity is deliberately ignored: an out of stock listing is never available.
func (a Availability) Available() bool {
	return a == InStock || a == LowStock
}

// Location represents a store's geographic coordinates.
type Location struct {
	Latitude  float64 `json:"latitude" yaml:"latitude"`
	Longitude float64 `json:"longitude" yaml:"longitude"`
}

// Store is a pharmacy from the catalog. Stores are read-only for ranking and planning.
type Store struct {
	ID         string          `json:"id" yaml:"id"`
	Name       string          `json:"name" yaml:"name"`
	Address    string          `json:"address" yaml:"address"`
	Phone      string          `json:"phone" yaml:"phone"`
	Location   Location        `json:"location" yaml:"location"`
	DistanceKm float64         `json:"distanceKm" yaml:"distance_km"` // Precomputed distance from the requester
	Rating     float64         `json:"rating" yaml:"rating"`          // 0.0 - 5.0
	Hours      string          `json:"hours" yaml:"hours"`
	Offers     []MedicineOffer `json:"offers" yaml:"offers"`
}

// MedicineOffer is one store's listing for one medicine.
type MedicineOffer struct {
	Name         string       `json:"name" yaml:"name"`
	Price        float64      `json:"price" yaml:"price"`
	Status       Availability `json:"status" yaml:"status"`
	Quantity     int          `json:"quantity" yaml:"quantity"`
	Category     string       `json:"category,omitempty" yaml:"category,omitempty"`
	GenericName  string       `json:"genericName,omitempty" yaml:"generic_name,omitempty"`
	Manufacturer string       `json:"manufacturer,omitempty" yaml:"manufacturer,omitempty"`
}

// OfferMatch pairs a requested name fragment with the offer that satisfied it.
type OfferMatch struct {
	Requested string         `json:"requested"`
	Offer     *MedicineOffer `json:"offer"`
}

// StoreMatchResult is the per-store outcome of one search.
type StoreMatchResult struct {
	Store         *Store        `json:"store"`
	Matches       []*OfferMatch `json:"matches"`
	Missing       []string      `json:"missing"`
	TotalPrice    float64       `json:"totalPrice"`    // Sum of matched offer prices
	DistanceKm    float64       `json:"distanceKm"`    // Distance used for scoring
	PriorityScore float64       `json:"priorityScore"` // 0 - 100
}

// Covers reports whether the store supplies the requested fragment.
func (r *StoreMatchResult) Covers(requested string) bool {
	return r.match(requested) != nil
}

// Complete reports whether nothing requested is missing at this store.
func (r *StoreMatchResult) Complete() bool {
	return len(r.Missing) == 0
}

func (r *StoreMatchResult) match(requested string) *OfferMatch {
	for _, m := range r.Matches {
		if m.Requested == requested {
			return m
		}
	}
	return nil
}

// SplitOrderEntry is one store's share of a split order.
type SplitOrderEntry struct {
	Store    *Store        `json:"store"`
	Items    []*OfferMatch `json:"items"`
	Subtotal float64       `json:"subtotal"`
}

// SplitOrderPlan is the result of split order planning. A plan with
// Unavailable items is infeasible and carries no entries.
type SplitOrderPlan struct {
	Entries     []*SplitOrderEntry `json:"entries"`
	Unavailable []string           `json:"unavailable,omitempty"`
}

// Feasible reports whether every requested item was allocated.
func (p *SplitOrderPlan) Feasible() bool {
	return len(p.Unavailable) == 0
}

// Total returns the combined subtotal of all entries.
func (p *SplitOrderPlan) Total() float64 {
	total := 0.0
	for _, e := range p.Entries {
		total += e.Subtotal
	}
	return total
}

// StoreCount returns the number of stores the plan visits.
func (p *SplitOrderPlan) StoreCount() int {
	return len(p.Entries)
}

// SortMode selects the ordering applied by RankStores.
type SortMode string

const (
	SortPriority SortMode = "priority"
	SortDistance SortMode = "distance"
	SortPrice    SortMode = "price"
	SortRating   SortMode = "rating"
)

// ParseSortMode maps user input to a SortMode. Empty input selects SortPriority.
func ParseSortMode(s string) (SortMode, error) {
	switch SortMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", SortPriority:
		return SortPriority, nil
	case SortDistance:
		return SortDistance, nil
	case SortPrice:
		return SortPrice, nil
	case SortRating:
		return SortRating, nil
	default:
		return "", ErrInvalidQuery{Field: "sort", Reason: fmt.Sprintf("unknown sort mode %q", s)}
	}
}

// ParseSearchTerms splits free-text input on commas, trims each term and drops
// empty terms and case-insensitive duplicates (first occurrence wins).
func ParseSearchTerms(raw string) []string {
	parts := strings.Split(raw, ",")
	terms := make([]string, 0, len(parts))
	for _, p := range parts {
		if term := strings.TrimSpace(p); term != "" {
			terms = append(terms, term)
		}
	}
	return DedupeItems(terms)
}

// DedupeItems drops requested items that repeat an earlier one, ignoring case
// and surrounding whitespace. The first spelling is kept.
func DedupeItems(items []string) []string {
	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		key := strings.ToLower(strings.TrimSpace(item))
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, item)
	}
	return out
}

// SearchQuery contains the parameters for a catalog search or split plan.
type SearchQuery struct {
	Items         []string  // Requested medicine name fragments
	Sort          SortMode  // Ordering of ranked results
	Location      *Location // Optional requester location; recomputes distances when set
	MaxDistanceKm float64   // 0 = no limit
	RequireAll    bool      // Drop stores missing any requested item
	Limit         int       // 0 = configured default
}

// withUniqueItems returns a copy of the query with duplicate items removed.
func (q *SearchQuery) withUniqueItems() *SearchQuery {
	c := *q
	c.Items = DedupeItems(q.Items)
	return &c
}

// Validate validates the query and returns an error if invalid.
func (q *SearchQuery) Validate(maxItems int) error {
	if len(q.Items) == 0 {
		return ErrInvalidQuery{Field: "items", Reason: "must have at least one item"}
	}
	if maxItems > 0 && len(q.Items) > maxItems {
		return ErrInvalidQuery{Field: "items", Reason: "exceeds maximum allowed"}
	}
	for i, item := range q.Items {
		if strings.TrimSpace(item) == "" {
			return ErrInvalidQuery{Field: "items", Reason: fmt.Sprintf("item at index %d is empty", i)}
		}
	}
	if q.MaxDistanceKm < 0 {
		return ErrInvalidQuery{Field: "maxDistanceKm", Reason: "must be non-negative"}
	}
	if q.Limit < 0 {
		return ErrInvalidQuery{Field: "limit", Reason: "must be non-negative"}
	}
	if q.Location != nil {
		if q.Location.Latitude < -90 || q.Location.Latitude > 90 {
			return ErrInvalidQuery{Field: "location.latitude", Reason: "must be between -90 and 90"}
		}
		if q.Location.Longitude < -180 || q.Location.Longitude > 180 {
			return ErrInvalidQuery{Field: "location.longitude", Reason: "must be between -180 and 180"}
		}
	}
	return nil
}

// ErrInvalidQuery is returned when a search query is invalid.
type ErrInvalidQuery struct {
	Field  string
	Reason string
}

func (e ErrInvalidQuery) Error() string {
	return e.Field + ": " + e.Reason
}
