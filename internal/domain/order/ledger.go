package order

import "sort"

// Ledger is the append-only record of finalized orders, keyed by order ID.
// Reads are re-derivable at any time from the current contents.
type Ledger struct {
	orders map[string]Order
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{orders: make(map[string]Order)}
}

// Append records an order. Re-appending the same order ID is idempotent,
// which makes hydration from at-least-once snapshot delivery safe.
func (l *Ledger) Append(o Order) {
	l.orders[o.OrderID] = o
}

// Len returns the number of recorded orders.
func (l *Ledger) Len() int {
	return len(l.orders)
}

// Sorted returns all orders, most recently placed first.
func (l *Ledger) Sorted() []Order {
	out := make([]Order, 0, len(l.orders))
	for _, o := range l.orders {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].PlacedAt.Equal(out[j].PlacedAt) {
			return out[i].PlacedAt.After(out[j].PlacedAt)
		}
		return out[i].OrderID < out[j].OrderID
	})
	return out
}
