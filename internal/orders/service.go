package orders

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/meditatva/pharmacy-service/internal/pkg/ids"
	"github.com/meditatva/pharmacy-service/internal/ranking"
)

// Checkout is the customer side of placing an order.
type Checkout struct {
	Customer      Customer
	PaymentMethod PaymentMethod
}

func (c Checkout) validate() error {
	if err := c.Customer.Validate(); err != nil {
		return err
	}
	if _, err := ParsePaymentMethod(string(c.PaymentMethod)); err != nil {
		return err
	}
	return nil
}

// Service turns plans and single-store matches into persisted orders.
// Stock is not reserved.
type Service struct {
	repo       Repository
	metrics    *MetricsRecorder
	now        func() time.Time
	newGroupID func() string
	logger     zerolog.Logger
}

// NewService creates an order service over repo.
func NewService(repo Repository, metrics *MetricsRecorder) *Service {
	if metrics == nil {
		metrics = NewMetricsRecorder()
	}
	return &Service{
		repo:       repo,
		metrics:    metrics,
		now:        time.Now,
		newGroupID: uuid.NewString,
		logger:     log.With().Str("component", "orders").Logger(),
	}
}

// PlaceSplitOrder creates one order per plan entry, all sharing a group ID.
// An infeasible plan is rejected with an InfeasiblePlanError.
func (s *Service) PlaceSplitOrder(ctx context.Context, plan *ranking.SplitOrderPlan, checkout Checkout) ([]*Order, error) {
	if plan == nil {
		return nil, ErrInvalidOrder{Field: "plan", Reason: "is required"}
	}
	if !plan.Feasible() {
		s.metrics.RecordRejected("infeasible")
		return nil, InfeasiblePlanError{Unavailable: append([]string(nil), plan.Unavailable...)}
	}
	if len(plan.Entries) == 0 {
		s.metrics.RecordRejected("invalid")
		return nil, ErrInvalidOrder{Field: "plan", Reason: "has no entries"}
	}
	if err := checkout.validate(); err != nil {
		s.metrics.RecordRejected("invalid")
		return nil, err
	}

	groupID := s.newGroupID()
	createdAt := s.now().UTC().Truncate(time.Microsecond)
	orders := make([]*Order, 0, len(plan.Entries))
	for i, entry := range plan.Entries {
		o := s.newOrder(groupID, createdAt, entry.Store, entry.Items, checkout)
		o.Sequence = i
		orders = append(orders, o)
	}

	return s.persist(ctx, orders)
}

// PlaceSingle creates an order for everything a single store matched. The
// match must be complete.
func (s *Service) PlaceSingle(ctx context.Context, match *ranking.StoreMatchResult, checkout Checkout) (*Order, error) {
	if match == nil || match.Store == nil || len(match.Matches) == 0 {
		s.metrics.RecordRejected("invalid")
		return nil, ErrInvalidOrder{Field: "store", Reason: "has no matched items"}
	}
	if !match.Complete() {
		s.metrics.RecordRejected("infeasible")
		return nil, InfeasiblePlanError{Unavailable: append([]string(nil), match.Missing...)}
	}
	if err := checkout.validate(); err != nil {
		s.metrics.RecordRejected("invalid")
		return nil, err
	}

	order := s.newOrder(s.newGroupID(), s.now().UTC().Truncate(time.Microsecond), match.Store, match.Matches, checkout)
	placed, err := s.persist(ctx, []*Order{order})
	if err != nil {
		return nil, err
	}
	return placed[0], nil
}

func (s *Service) newOrder(groupID string, createdAt time.Time, store *ranking.Store, items []*ranking.OfferMatch, checkout Checkout) *Order {
	payment, _ := ParsePaymentMethod(string(checkout.PaymentMethod))
	o := &Order{
		ID:            ids.NewAt(ids.Order, createdAt),
		GroupID:       groupID,
		StoreID:       store.ID,
		StoreName:     store.Name,
		Status:        StatusPlaced,
		Items:         make([]OrderLine, 0, len(items)),
		PaymentMethod: payment,
		Customer:      checkout.Customer,
		CreatedAt:     createdAt,
	}
	for _, m := range items {
		o.Items = append(o.Items, OrderLine{
			Requested:    m.Requested,
			MedicineName: m.Offer.Name,
			Price:        m.Offer.Price,
		})
		o.Subtotal += m.Offer.Price
	}
	o.Subtotal = math.Round(o.Subtotal*100) / 100
	return o
}

func (s *Service) persist(ctx context.Context, orders []*Order) ([]*Order, error) {
	if err := s.repo.Create(ctx, orders); err != nil {
		return nil, fmt.Errorf("failed to save orders: %w", err)
	}
	s.metrics.RecordPlaced(orders)

	total := 0.0
	for _, o := range orders {
		total += o.Subtotal
	}
	s.logger.Info().
		Str("group_id", orders[0].GroupID).
		Int("stores", len(orders)).
		Float64("total", total).
		Str("payment_method", string(orders[0].PaymentMethod)).
		Msg("Orders placed")

	return orders, nil
}

// Get returns a single order.
func (s *Service) Get(ctx context.Context, id string) (*Order, error) {
	return s.repo.Get(ctx, id)
}

// ListGroup returns every order placed in one checkout.
func (s *Service) ListGroup(ctx context.Context, groupID string) ([]*Order, error) {
	orders, err := s.repo.ListByGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, ErrNotFound
	}
	return orders, nil
}

// Cancel cancels a placed order.
func (s *Service) Cancel(ctx context.Context, id string) (*Order, error) {
	o, err := s.repo.Cancel(ctx, id, s.now().UTC().Truncate(time.Microsecond))
	if err != nil {
		if !errors.Is(err, ErrNotFound) && !errors.Is(err, ErrAlreadyCancelled) {
			s.logger.Error().Err(err).Str("order_id", id).Msg("Failed to cancel order")
		}
		return nil, err
	}
	s.metrics.RecordCancelled()
	s.logger.Info().Str("order_id", id).Msg("Order cancelled")
	return o, nil
}
