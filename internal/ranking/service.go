package ranking

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/meditatva/pharmacy-service/internal/ranking"

// Service ranks catalog stores and plans split orders.
type Service struct {
	catalog CatalogSource
	config  *Config
	matcher NameMatcher
	metrics *MetricsRecorder
	tracer  trace.Tracer
	logger  zerolog.Logger
}

var _ Searcher = (*Service)(nil)

// NewService creates a new search service. The matcher is chosen from the
// config unless overridden with WithMatcher.
func NewService(catalog CatalogSource, config *Config, metrics *MetricsRecorder) *Service {
	if config == nil {
		config = Defaults()
	}
	if metrics == nil {
		metrics = NewMetricsRecorder()
	}

	var matcher NameMatcher = SubstringMatcher{}
	if config.FoldDiacritics {
		matcher = FoldingMatcher{}
	}

	return &Service{
		catalog: catalog,
		config:  config,
		matcher: matcher,
		metrics: metrics,
		tracer:  otel.Tracer(tracerName),
		logger:  log.With().Str("component", "ranking_service").Logger(),
	}
}

// WithMatcher replaces the name matcher.
func (s *Service) WithMatcher(m NameMatcher) *Service {
	s.matcher = m
	return s
}

// Scoring returns the scoring constants in use.
func (s *Service) Scoring() *ScoringConfig {
	return &s.config.Scoring
}

// Search ranks stores offering at least one of the requested medicines.
func (s *Service) Search(ctx context.Context, q *SearchQuery) ([]*StoreMatchResult, error) {
	startTime := time.Now()
	success := false
	defer func() {
		s.metrics.RecordOperation("search", time.Since(startTime), success)
	}()

	ctx, span := s.tracer.Start(ctx, "ranking.Search", trace.WithAttributes(
		attribute.Int("items", len(q.Items)),
		attribute.String("sort", string(q.Sort)),
	))
	defer span.End()

	if err := q.Validate(s.config.MaxSearchItems); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	q = q.withUniqueItems()
	s.metrics.RecordRequestedItems(len(q.Items))

	matches, err := s.evaluate(ctx, q, "search")
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	filtered := make([]*StoreMatchResult, 0, len(matches))
	for _, m := range matches {
		if len(m.Matches) == 0 {
			continue
		}
		if q.RequireAll && !m.Complete() {
			continue
		}
		filtered = append(filtered, m)
	}

	ranked := RankStores(filtered, q.Sort)

	limit := q.Limit
	if limit == 0 {
		limit = s.config.DefaultLimit
	}
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}

	if len(ranked) > 0 {
		s.metrics.RecordTopScore(ranked[0].PriorityScore)
	}
	span.SetAttributes(attribute.Int("results", len(ranked)))

	s.logger.Debug().
		Strs("items", q.Items).
		Int("candidates", len(matches)).
		Int("results", len(ranked)).
		Dur("duration", time.Since(startTime)).
		Msg("Search completed")

	success = true
	return ranked, nil
}

// PlanSplit plans a split order over every candidate store. An infeasible
// plan is returned as a value, not an error.
func (s *Service) PlanSplit(ctx context.Context, q *SearchQuery) (*SplitOrderPlan, error) {
	startTime := time.Now()
	success := false
	defer func() {
		s.metrics.RecordOperation("split_plan", time.Since(startTime), success)
	}()

	ctx, span := s.tracer.Start(ctx, "ranking.PlanSplit", trace.WithAttributes(
		attribute.Int("items", len(q.Items)),
	))
	defer span.End()

	if err := q.Validate(s.config.MaxSearchItems); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	q = q.withUniqueItems()
	s.metrics.RecordRequestedItems(len(q.Items))

	matches, err := s.evaluate(ctx, q, "split_plan")
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	plan := PlanSplitOrder(q.Items, matches)
	s.metrics.RecordPlan(plan)

	span.SetAttributes(
		attribute.Bool("feasible", plan.Feasible()),
		attribute.Int("stores", plan.StoreCount()),
	)

	if !plan.Feasible() {
		s.logger.Info().
			Strs("unavailable", plan.Unavailable).
			Msg("Split plan infeasible")
	} else {
		s.logger.Debug().
			Int("stores", plan.StoreCount()).
			Float64("total", plan.Total()).
			Msg("Split plan completed")
	}

	success = true
	return plan, nil
}

// MatchAt matches the query against one store regardless of the distance
// limit. It is used when the customer has already picked a store.
func (s *Service) MatchAt(ctx context.Context, storeID string, q *SearchQuery) (*StoreMatchResult, error) {
	if err := q.Validate(s.config.MaxSearchItems); err != nil {
		return nil, err
	}
	q = q.withUniqueItems()
	if !s.catalog.IsHealthy(ctx) {
		return nil, ErrCatalogUnavailable
	}

	store, ok := s.catalog.Store(ctx, storeID)
	if !ok {
		return nil, ErrStoreNotFound
	}
	return matchStoreAt(store, q.Items, s.matcher, &s.config.Scoring, distanceFor(store, q.Location)), nil
}

// evaluate matches every eligible catalog store against the query in catalog order.
func (s *Service) evaluate(ctx context.Context, q *SearchQuery, opType string) ([]*StoreMatchResult, error) {
	if !s.catalog.IsHealthy(ctx) {
		return nil, ErrCatalogUnavailable
	}

	stores, err := s.catalog.Stores(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}

	s.metrics.RecordCandidateCount(opType, len(stores))

	results := make([]*StoreMatchResult, 0, len(stores))
	for _, store := range stores {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		distance := distanceFor(store, q.Location)
		if q.MaxDistanceKm > 0 && distance > q.MaxDistanceKm {
			continue
		}

		results = append(results, matchStoreAt(store, q.Items, s.matcher, &s.config.Scoring, distance))
	}

	return results, nil
}
