package order

import (
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/xenking/kitchen-storefront/internal/domain/cart"
)

// ErrEmptyCheckout is returned when checkout is attempted with an empty cart
// or a non-positive grand total. No order is created in that case.
var ErrEmptyCheckout = errors.New("cannot checkout an empty cart")

// Status enumerates the lifecycle states of a placed order. Transitions past
// Preparing are driven by the kitchen side, not by this core.
type Status string

const (
	StatusPreparing Status = "preparing"
	StatusDelivered Status = "delivered"
	StatusCancelled Status = "cancelled"
)

// ValidStatus reports whether s is one of the known order states.
func ValidStatus(s Status) bool {
	switch s {
	case StatusPreparing, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// Order is a finalized, immutable snapshot of a cart at checkout time.
type Order struct {
	OrderID     string
	Items       []cart.LineItem
	Subtotal    decimal.Decimal
	Tax         decimal.Decimal
	DeliveryFee decimal.Decimal
	GrandTotal  decimal.Decimal
	PlacedAt    time.Time
	Status      Status
}

// New builds an order from a cart snapshot and its derived totals. It returns
// ErrEmptyCheckout when there is nothing to order. Order IDs are UUIDs: the
// storefront this was modelled on used random 5-digit integers, which collide.
func New(items []cart.LineItem, totals cart.Totals, placedAt time.Time) (*Order, error) {
	if len(items) == 0 || !totals.GrandTotal.IsPositive() {
		return nil, ErrEmptyCheckout
	}
	return &Order{
		OrderID:     uuid.New().String(),
		Items:       items,
		Subtotal:    totals.Subtotal,
		Tax:         totals.Tax,
		DeliveryFee: totals.DeliveryFee,
		GrandTotal:  totals.GrandTotal,
		PlacedAt:    placedAt,
		Status:      StatusPreparing,
	}, nil
}
