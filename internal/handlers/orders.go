package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/meditatva/pharmacy-service/internal/orders"
	"github.com/meditatva/pharmacy-service/internal/ranking"
)

// ============================================================================
// Order Endpoints
// ============================================================================

// CustomerRequest holds the customer's contact details
type CustomerRequest struct {
	Name    string `json:"name" binding:"required"`
	Phone   string `json:"phone" binding:"required"`
	Address string `json:"address,omitempty"`
}

// PlaceOrderRequest places orders for the requested medicines. Without a
// storeId the items are split across stores; with one, the store must carry
// every item.
type PlaceOrderRequest struct {
	SearchRequest
	StoreID       string          `json:"storeId,omitempty"`
	Customer      CustomerRequest `json:"customer" binding:"required"`
	PaymentMethod string          `json:"paymentMethod,omitempty" binding:"omitempty,oneof=cash card upi"`
}

// OrderLineResponse is one medicine on an order
type OrderLineResponse struct {
	Requested    string  `json:"requested"`
	MedicineName string  `json:"medicineName"`
	Price        float64 `json:"price"`
}

// OrderResponse is a placed order
type OrderResponse struct {
	ID            string               `json:"id"`
	GroupID       string               `json:"groupId"`
	StoreID       string               `json:"storeId"`
	StoreName     string               `json:"storeName"`
	Status        string               `json:"status"`
	Items         []*OrderLineResponse `json:"items"`
	Subtotal      float64              `json:"subtotal"`
	PaymentMethod string               `json:"paymentMethod"`
	CreatedAt     time.Time            `json:"createdAt"`
	CancelledAt   *time.Time           `json:"cancelledAt,omitempty"`
}

// PlaceOrderResponse is the result of a checkout
type PlaceOrderResponse struct {
	GroupID string           `json:"groupId"`
	Orders  []*OrderResponse `json:"orders"`
	Total   float64          `json:"total"`
}

// PlaceOrder handles checkout
// POST /api/v1/orders
func PlaceOrder(c *gin.Context) {
	var req PlaceOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	query, err := req.toQuery()
	if err != nil {
		writeRankingError(c, err)
		return
	}

	if orderService == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Orders not initialized"})
		return
	}
	if !catalogReady(c) {
		return
	}

	checkout := orders.Checkout{
		Customer: orders.Customer{
			Name:    req.Customer.Name,
			Phone:   req.Customer.Phone,
			Address: req.Customer.Address,
		},
		PaymentMethod: orders.PaymentMethod(req.PaymentMethod),
	}

	ctx := c.Request.Context()
	var placed []*orders.Order
	if req.StoreID != "" {
		match, err := searchService.MatchAt(ctx, req.StoreID, query)
		if err != nil {
			writeRankingError(c, err)
			return
		}
		order, err := orderService.PlaceSingle(ctx, match, checkout)
		if err != nil {
			writeOrderError(c, err)
			return
		}
		placed = []*orders.Order{order}
	} else {
		plan, err := searchService.PlanSplit(ctx, query)
		if err != nil {
			writeRankingError(c, err)
			return
		}
		placed, err = orderService.PlaceSplitOrder(ctx, plan, checkout)
		if err != nil {
			writeOrderError(c, err)
			return
		}
	}

	response := &PlaceOrderResponse{
		GroupID: placed[0].GroupID,
		Orders:  make([]*OrderResponse, len(placed)),
	}
	for i, o := range placed {
		response.Orders[i] = toOrderResponse(o)
		response.Total += o.Subtotal
	}
	response.Total = round2(response.Total)

	c.JSON(http.StatusCreated, response)
}

// GetOrder handles order lookup
// GET /api/v1/orders/:id
func GetOrder(c *gin.Context) {
	if orderService == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Orders not initialized"})
		return
	}

	order, err := orderService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeOrderError(c, err)
		return
	}

	c.JSON(http.StatusOK, toOrderResponse(order))
}

// GetOrderGroup handles lookup of every order placed in one checkout
// GET /api/v1/order-groups/:groupId
func GetOrderGroup(c *gin.Context) {
	if orderService == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Orders not initialized"})
		return
	}

	group, err := orderService.ListGroup(c.Request.Context(), c.Param("groupId"))
	if err != nil {
		writeOrderError(c, err)
		return
	}

	response := &PlaceOrderResponse{
		GroupID: c.Param("groupId"),
		Orders:  make([]*OrderResponse, len(group)),
	}
	for i, o := range group {
		response.Orders[i] = toOrderResponse(o)
		response.Total += o.Subtotal
	}
	response.Total = round2(response.Total)

	c.JSON(http.StatusOK, response)
}

// CancelOrder handles order cancellation
// POST /api/v1/orders/:id/cancel
func CancelOrder(c *gin.Context) {
	if orderService == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Orders not initialized"})
		return
	}

	order, err := orderService.Cancel(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeOrderError(c, err)
		return
	}

	c.JSON(http.StatusOK, toOrderResponse(order))
}

// writeOrderError maps order errors to HTTP responses.
func writeOrderError(c *gin.Context, err error) {
	var infeasible orders.InfeasiblePlanError
	var invalid orders.ErrInvalidOrder
	switch {
	case errors.As(err, &infeasible):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":       "Some medicines are not available",
			"unavailable": infeasible.Unavailable,
		})
	case errors.As(err, &invalid):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "field": invalid.Field})
	case errors.Is(err, orders.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
	case errors.Is(err, orders.ErrAlreadyCancelled):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, ranking.ErrCatalogUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Catalog unavailable or stale"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func toOrderResponse(o *orders.Order) *OrderResponse {
	resp := &OrderResponse{
		ID:            o.ID,
		GroupID:       o.GroupID,
		StoreID:       o.StoreID,
		StoreName:     o.StoreName,
		Status:        string(o.Status),
		Items:         make([]*OrderLineResponse, len(o.Items)),
		Subtotal:      o.Subtotal,
		PaymentMethod: string(o.PaymentMethod),
		CreatedAt:     o.CreatedAt,
		CancelledAt:   o.CancelledAt,
	}
	for i, line := range o.Items {
		resp.Items[i] = &OrderLineResponse{
			Requested:    line.Requested,
			MedicineName: line.MedicineName,
			Price:        line.Price,
		}
	}
	return resp
}
