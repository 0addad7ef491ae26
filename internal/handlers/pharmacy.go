package handlers

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/meditatva/pharmacy-service/internal/catalog"
	"github.com/meditatva/pharmacy-service/internal/orders"
	"github.com/meditatva/pharmacy-service/internal/ranking"
)

// ============================================================================
// Store Search & Split Planning Endpoints
// ============================================================================

// Location represents a geographic location
type Location struct {
	Latitude  float64 `json:"latitude" binding:"min=-90,max=90"`
	Longitude float64 `json:"longitude" binding:"min=-180,max=180"`
}

// SearchRequest represents a medicine search. Items may be given as a list,
// as a comma separated query, or both.
type SearchRequest struct {
	Query         string    `json:"query,omitempty"`
	Items         []string  `json:"items,omitempty" binding:"omitempty,max=50"`
	Sort          string    `json:"sort,omitempty" binding:"omitempty,oneof=priority distance price rating"`
	Location      *Location `json:"location,omitempty"`
	MaxDistanceKm float64   `json:"maxDistanceKm,omitempty" binding:"omitempty,min=0"`
	RequireAll    bool      `json:"requireAll,omitempty"`
	Limit         int       `json:"limit,omitempty" binding:"omitempty,min=1,max=100"`
}

// toQuery converts the request to a ranking query.
func (r *SearchRequest) toQuery() (*ranking.SearchQuery, error) {
	sortMode, err := ranking.ParseSortMode(r.Sort)
	if err != nil {
		return nil, err
	}

	q := &ranking.SearchQuery{
		Items:         ranking.ParseSearchTerms(strings.Join(append([]string{r.Query}, r.Items...), ",")),
		Sort:          sortMode,
		MaxDistanceKm: r.MaxDistanceKm,
		RequireAll:    r.RequireAll,
		Limit:         r.Limit,
	}
	if r.Location != nil {
		q.Location = &ranking.Location{Latitude: r.Location.Latitude, Longitude: r.Location.Longitude}
	}
	return q, nil
}

// OfferResponse is a single medicine listing
type OfferResponse struct {
	Name         string  `json:"name"`
	Price        float64 `json:"price"`
	Status       string  `json:"status"`
	Quantity     int     `json:"quantity"`
	Category     string  `json:"category,omitempty"`
	GenericName  string  `json:"genericName,omitempty"`
	Manufacturer string  `json:"manufacturer,omitempty"`
}

// StoreResponse is a pharmacy as returned by the API
type StoreResponse struct {
	ID         string           `json:"id"`
	Name       string           `json:"name"`
	Address    string           `json:"address"`
	Phone      string           `json:"phone"`
	Location   Location         `json:"location"`
	DistanceKm float64          `json:"distanceKm"`
	Rating     float64          `json:"rating"`
	Hours      string           `json:"hours"`
	Offers     []*OfferResponse `json:"offers,omitempty"`
}

// MatchedItem pairs a requested fragment with the offer that satisfied it
type MatchedItem struct {
	Requested string         `json:"requested"`
	Offer     *OfferResponse `json:"offer"`
}

// StoreResult is one ranked store in a search response
type StoreResult struct {
	Store         *StoreResponse `json:"store"`
	Matches       []*MatchedItem `json:"matches"`
	Missing       []string       `json:"missing"`
	TotalPrice    float64        `json:"totalPrice"`
	DistanceKm    float64        `json:"distanceKm"`
	PriorityScore float64        `json:"priorityScore"`
	Complete      bool           `json:"complete"`
}

// SearchResponse is the ranked search result
type SearchResponse struct {
	Results []*StoreResult `json:"results"`
	Total   int            `json:"total"`
	Sort    string         `json:"sort"`
}

// SplitPlanEntry is one store's share of a split order
type SplitPlanEntry struct {
	Store    *StoreResponse `json:"store"`
	Items    []*MatchedItem `json:"items"`
	Subtotal float64        `json:"subtotal"`
}

// SplitPlanResponse is the split planning result. An infeasible plan has no
// entries and lists the unavailable items.
type SplitPlanResponse struct {
	Feasible    bool              `json:"feasible"`
	Entries     []*SplitPlanEntry `json:"entries"`
	Unavailable []string          `json:"unavailable,omitempty"`
	StoreCount  int               `json:"storeCount"`
	Total       float64           `json:"total"`
}

// ScoreRequest asks for an ad-hoc priority score
type ScoreRequest struct {
	DistanceKm float64 `json:"distanceKm" binding:"min=0"`
	TotalPrice float64 `json:"totalPrice" binding:"min=0"`
	Rating     float64 `json:"rating" binding:"min=0,max=5"`
}

// ScoreResponse is the computed priority score
type ScoreResponse struct {
	Score float64 `json:"score"`
}

// Global service instances (initialized by the application)
var (
	catalogCache  *catalog.Cache
	searchService ranking.Searcher
	scoring       *ranking.ScoringConfig
	orderService  *orders.Service
)

// InitPharmacy wires the catalog, search and order services.
// This should be called during application startup
func InitPharmacy(cache *catalog.Cache, search *ranking.Service, ordersSvc *orders.Service) {
	catalogCache = cache
	orderService = ordersSvc
	if search == nil {
		searchService = nil
		scoring = nil
		return
	}
	searchService = search
	scoring = search.Scoring()
}

// catalogReady writes a 503 and returns false when the catalog cannot serve.
func catalogReady(c *gin.Context) bool {
	if catalogCache == nil || searchService == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Catalog not initialized"})
		return false
	}
	if !catalogCache.IsHealthy(c.Request.Context()) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Catalog unavailable or stale"})
		return false
	}
	return true
}

// writeRankingError maps search errors to HTTP responses.
func writeRankingError(c *gin.Context, err error) {
	var queryErr ranking.ErrInvalidQuery
	switch {
	case errors.As(err, &queryErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "field": queryErr.Field})
	case errors.Is(err, ranking.ErrCatalogUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Catalog unavailable or stale"})
	case errors.Is(err, ranking.ErrStoreNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": "Request timed out"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// Search handles ranked store search
// POST /api/v1/search
func Search(c *gin.Context) {
	var req SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	query, err := req.toQuery()
	if err != nil {
		writeRankingError(c, err)
		return
	}

	if !catalogReady(c) {
		return
	}

	results, err := searchService.Search(c.Request.Context(), query)
	if err != nil {
		writeRankingError(c, err)
		return
	}

	response := &SearchResponse{
		Results: make([]*StoreResult, len(results)),
		Total:   len(results),
		Sort:    string(query.Sort),
	}
	for i, r := range results {
		response.Results[i] = &StoreResult{
			Store:         toStoreResponse(r.Store, false),
			Matches:       toMatchedItems(r.Matches),
			Missing:       r.Missing,
			TotalPrice:    round2(r.TotalPrice),
			DistanceKm:    round2(r.DistanceKm),
			PriorityScore: round2(r.PriorityScore),
			Complete:      r.Complete(),
		}
	}

	c.JSON(http.StatusOK, response)
}

// SplitPlan handles split order planning. Infeasible plans are a 200.
// POST /api/v1/split-plan
func SplitPlan(c *gin.Context) {
	var req SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	query, err := req.toQuery()
	if err != nil {
		writeRankingError(c, err)
		return
	}

	if !catalogReady(c) {
		return
	}

	plan, err := searchService.PlanSplit(c.Request.Context(), query)
	if err != nil {
		writeRankingError(c, err)
		return
	}

	c.JSON(http.StatusOK, toSplitPlanResponse(plan))
}

// Score handles ad-hoc priority score computation
// POST /api/v1/score
func Score(c *gin.Context) {
	var req ScoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cfg := scoring
	if cfg == nil {
		cfg = ranking.DefaultScoringConfig()
	}

	c.JSON(http.StatusOK, &ScoreResponse{
		Score: round2(cfg.PriorityScore(req.DistanceKm, req.TotalPrice, req.Rating)),
	})
}

// ListStores handles catalog listing in catalog order
// GET /api/v1/stores
func ListStores(c *gin.Context) {
	if !catalogReady(c) {
		return
	}

	stores, err := catalogCache.Stores(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	withOffers := c.Query("offers") == "true"
	response := make([]*StoreResponse, len(stores))
	for i, s := range stores {
		response[i] = toStoreResponse(s, withOffers)
	}

	c.JSON(http.StatusOK, gin.H{
		"stores": response,
		"total":  len(response),
	})
}

// GetStore handles single store lookup including offers
// GET /api/v1/stores/:id
func GetStore(c *gin.Context) {
	if !catalogReady(c) {
		return
	}

	store, ok := catalogCache.Store(c.Request.Context(), c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Store not found"})
		return
	}

	c.JSON(http.StatusOK, toStoreResponse(store, true))
}

func toOfferResponse(o *ranking.MedicineOffer) *OfferResponse {
	return &OfferResponse{
		Name:         o.Name,
		Price:        o.Price,
		Status:       string(o.Status),
		Quantity:     o.Quantity,
		Category:     o.Category,
		GenericName:  o.GenericName,
		Manufacturer: o.Manufacturer,
	}
}

func toStoreResponse(s *ranking.Store, withOffers bool) *StoreResponse {
	resp := &StoreResponse{
		ID:         s.ID,
		Name:       s.Name,
		Address:    s.Address,
		Phone:      s.Phone,
		Location:   Location{Latitude: s.Location.Latitude, Longitude: s.Location.Longitude},
		DistanceKm: s.DistanceKm,
		Rating:     s.Rating,
		Hours:      s.Hours,
	}
	if withOffers {
		resp.Offers = make([]*OfferResponse, len(s.Offers))
		for i := range s.Offers {
			resp.Offers[i] = toOfferResponse(&s.Offers[i])
		}
	}
	return resp
}

func toMatchedItems(matches []*ranking.OfferMatch) []*MatchedItem {
	items := make([]*MatchedItem, len(matches))
	for i, m := range matches {
		items[i] = &MatchedItem{Requested: m.Requested, Offer: toOfferResponse(m.Offer)}
	}
	return items
}

func toSplitPlanResponse(plan *ranking.SplitOrderPlan) *SplitPlanResponse {
	resp := &SplitPlanResponse{
		Feasible:    plan.Feasible(),
		Entries:     make([]*SplitPlanEntry, len(plan.Entries)),
		Unavailable: plan.Unavailable,
		StoreCount:  plan.StoreCount(),
		Total:       round2(plan.Total()),
	}
	for i, e := range plan.Entries {
		resp.Entries[i] = &SplitPlanEntry{
			Store:    toStoreResponse(e.Store, false),
			Items:    toMatchedItems(e.Items),
			Subtotal: round2(e.Subtotal),
		}
	}
	return resp
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
