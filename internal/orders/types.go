package orders

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Status is the lifecycle state of an order.
type Status string

const (
	StatusPlaced    Status = "placed"
	StatusCancelled Status = "cancelled"
)

// PaymentMethod is how the customer intends to pay. Payment is recorded,
// never charged.
type PaymentMethod string

const (
	PaymentCash PaymentMethod = "cash"
	PaymentCard PaymentMethod = "card"
	PaymentUPI  PaymentMethod = "upi"
)

// ParsePaymentMethod maps user input to a PaymentMethod. Empty input selects cash.
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	switch PaymentMethod(strings.ToLower(strings.TrimSpace(s))) {
	case "", PaymentCash:
		return PaymentCash, nil
	case PaymentCard:
		return PaymentCard, nil
	case PaymentUPI:
		return PaymentUPI, nil
	default:
		return "", ErrInvalidOrder{Field: "payment_method", Reason: fmt.Sprintf("unknown payment method %q", s)}
	}
}

// Customer holds the contact details attached to an order.
type Customer struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address,omitempty"`
}

// Validate checks the required contact fields.
func (c Customer) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrInvalidOrder{Field: "customer.name", Reason: "is required"}
	}
	digits := 0
	for _, r := range c.Phone {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == '+' || r == ' ' || r == '-':
		default:
			return ErrInvalidOrder{Field: "customer.phone", Reason: "contains invalid characters"}
		}
	}
	if digits < 7 {
		return ErrInvalidOrder{Field: "customer.phone", Reason: "must have at least 7 digits"}
	}
	return nil
}

// OrderLine is one medicine on an order.
type OrderLine struct {
	Requested    string  `json:"requested"`
	MedicineName string  `json:"medicineName"`
	Price        float64 `json:"price"`
}

// Order is a placed order at a single store. Orders created from one split
// plan share a GroupID.
type Order struct {
	ID            string        `json:"id"`
	GroupID       string        `json:"groupId"`
	Sequence      int           `json:"sequence"` // Position within the group
	StoreID       string        `json:"storeId"`
	StoreName     string        `json:"storeName"`
	Status        Status        `json:"status"`
	Items         []OrderLine   `json:"items"`
	Subtotal      float64       `json:"subtotal"`
	PaymentMethod PaymentMethod `json:"paymentMethod"`
	Customer      Customer      `json:"customer"`
	CreatedAt     time.Time     `json:"createdAt"`
	CancelledAt   *time.Time    `json:"cancelledAt,omitempty"`
}

func (o *Order) clone() *Order {
	c := *o
	c.Items = append([]OrderLine(nil), o.Items...)
	if o.CancelledAt != nil {
		t := *o.CancelledAt
		c.CancelledAt = &t
	}
	return &c
}

var (
	// ErrNotFound is returned when an order does not exist.
	ErrNotFound = errors.New("order not found")

	// ErrAlreadyCancelled is returned when cancelling a cancelled order.
	ErrAlreadyCancelled = errors.New("order already cancelled")

	// ErrInfeasiblePlan is matched by InfeasiblePlanError.
	ErrInfeasiblePlan = errors.New("plan cannot be fulfilled")
)

// InfeasiblePlanError lists the items no store could supply.
type InfeasiblePlanError struct {
	Unavailable []string
}

func (e InfeasiblePlanError) Error() string {
	return fmt.Sprintf("plan cannot be fulfilled: unavailable items %s", strings.Join(e.Unavailable, ", "))
}

// Is lets errors.Is match ErrInfeasiblePlan.
func (e InfeasiblePlanError) Is(target error) bool {
	return target == ErrInfeasiblePlan
}

// ErrInvalidOrder is returned when order input is invalid.
type ErrInvalidOrder struct {
	Field  string
	Reason string
}

func (e ErrInvalidOrder) Error() string {
	return "invalid order: " + e.Field + " " + e.Reason
}
