// Package cart implements the in-memory cart aggregate: an insertion-ordered
// collection of customized line items with merge-on-add semantics and pure
// totals derivation. Persistence is a separate concern handled by the caller
// after each mutation.
package cart

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

// flatFee is the reference delivery fee charged on any non-empty order.
var flatFee = decimal.RequireFromString("5.00")

// FeeSchedule maps an order subtotal to a delivery fee.
type FeeSchedule func(subtotal decimal.Decimal) decimal.Decimal

// FlatFee returns a schedule that charges nothing on a zero subtotal and a
// fixed fee otherwise.
func FlatFee(fee decimal.Decimal) FeeSchedule {
	return func(subtotal decimal.Decimal) decimal.Decimal {
		if subtotal.IsZero() {
			return decimal.Zero
		}
		return fee
	}
}

// Pricing holds the configurable parts of totals derivation.
type Pricing struct {
	TaxRate     decimal.Decimal
	DeliveryFee FeeSchedule
}

// DefaultPricing is the reference behaviour: 8% tax, 5.00 flat delivery fee.
func DefaultPricing() Pricing {
	return Pricing{
		TaxRate:     decimal.RequireFromString("0.08"),
		DeliveryFee: FlatFee(flatFee),
	}
}

// Totals is the derived price breakdown of a cart. It is computed on demand
// and never stored.
type Totals struct {
	Subtotal    decimal.Decimal
	Tax         decimal.Decimal
	DeliveryFee decimal.Decimal
	GrandTotal  decimal.Decimal
}

// Cart is the aggregate of a user's current order. Items keep insertion
// order; no two items are equivalent (Add merges); every quantity is >= 1.
type Cart struct {
	Items     []LineItem
	UpdatedAt time.Time
}

// Add merges item into an equivalent existing line (summing quantities) or
// appends it as a new line. The caller validates quantity >= 1 beforehand.
func (c *Cart) Add(item LineItem, now time.Time) {
	for i := range c.Items {
		if c.Items[i].Equivalent(item) {
			c.Items[i].Quantity += item.Quantity
			c.UpdatedAt = now
			return
		}
	}
	c.Items = append(c.Items, item.clone())
	c.UpdatedAt = now
}

// SetQuantity replaces a line's quantity. A quantity <= 0 removes the line;
// an unknown lineID is a no-op.
func (c *Cart) SetQuantity(lineID string, quantity int, now time.Time) {
	for i := range c.Items {
		if c.Items[i].LineID != lineID {
			continue
		}
		if quantity <= 0 {
			c.Items = slices.Delete(c.Items, i, i+1)
		} else {
			c.Items[i].Quantity = quantity
		}
		c.UpdatedAt = now
		return
	}
}

// Remove deletes the line with the given id; unknown ids are a no-op.
func (c *Cart) Remove(lineID string, now time.Time) {
	c.SetQuantity(lineID, 0, now)
}

// Clear empties the cart.
func (c *Cart) Clear(now time.Time) {
	c.Items = nil
	c.UpdatedAt = now
}

// Quantity returns the current quantity of a line, or 0 if absent.
func (c *Cart) Quantity(lineID string) int {
	for i := range c.Items {
		if c.Items[i].LineID == lineID {
			return c.Items[i].Quantity
		}
	}
	return 0
}

// Snapshot returns a deep copy of the items, for checkout and serialization.
func (c *Cart) Snapshot() []LineItem {
	out := make([]LineItem, len(c.Items))
	for i := range c.Items {
		out[i] = c.Items[i].clone()
	}
	return out
}

// Replace swaps the full contents of the cart for an authoritative remote
// snapshot. No field-level merging is attempted.
func (c *Cart) Replace(items []LineItem, updatedAt time.Time) {
	c.Items = items
	c.UpdatedAt = updatedAt
}

// Totals derives the price breakdown from the current items. It is a pure
// function of Items and the given pricing: calling it repeatedly without
// mutation yields identical results.
func (c *Cart) Totals(p Pricing) Totals {
	subtotal := decimal.Zero
	for i := range c.Items {
		qty := decimal.NewFromInt(int64(c.Items[i].Quantity))
		subtotal = subtotal.Add(c.Items[i].UnitPrice.Mul(qty))
	}
	tax := subtotal.Mul(p.TaxRate).Round(2)
	fee := p.DeliveryFee(subtotal)
	return Totals{
		Subtotal:    subtotal,
		Tax:         tax,
		DeliveryFee: fee,
		GrandTotal:  subtotal.Add(tax).Add(fee),
	}
}
