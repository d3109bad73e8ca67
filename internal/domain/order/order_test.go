package order

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/kitchen-storefront/internal/domain/cart"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func sampleTotals() cart.Totals {
	return cart.Totals{
		Subtotal:    dec("10.00"),
		Tax:         dec("0.80"),
		DeliveryFee: dec("5.00"),
		GrandTotal:  dec("15.80"),
	}
}

func TestNew_EmptyItems(t *testing.T) {
	_, err := New(nil, sampleTotals(), time.Now())
	require.ErrorIs(t, err, ErrEmptyCheckout)
}

func TestNew_ZeroTotal(t *testing.T) {
	items := []cart.LineItem{{LineID: "l1", ItemID: "1", Quantity: 1}}
	_, err := New(items, cart.Totals{}, time.Now())
	require.ErrorIs(t, err, ErrEmptyCheckout)
}

func TestNew_Success(t *testing.T) {
	placedAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	items := []cart.LineItem{{LineID: "l1", ItemID: "1", UnitPrice: dec("10.00"), Quantity: 1}}

	o, err := New(items, sampleTotals(), placedAt)
	require.NoError(t, err)

	assert.NotEmpty(t, o.OrderID)
	assert.Equal(t, StatusPreparing, o.Status)
	assert.Equal(t, placedAt, o.PlacedAt)
	assert.True(t, o.GrandTotal.Equal(dec("15.80")))
	assert.Equal(t, items, o.Items)
}

func TestLedger_SortedByPlacedAtDescending(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	l := NewLedger()
	l.Append(Order{OrderID: "a", PlacedAt: base})
	l.Append(Order{OrderID: "b", PlacedAt: base.Add(2 * time.Hour)})
	l.Append(Order{OrderID: "c", PlacedAt: base.Add(time.Hour)})

	got := l.Sorted()
	require.Len(t, got, 3)
	assert.Equal(t, "b", got[0].OrderID)
	assert.Equal(t, "c", got[1].OrderID)
	assert.Equal(t, "a", got[2].OrderID)

	// Reads are restartable: a second derivation sees the same view.
	assert.Equal(t, got, l.Sorted())
}

func TestLedger_AppendIdempotentByID(t *testing.T) {
	l := NewLedger()
	o := Order{OrderID: "a", PlacedAt: time.Now()}
	l.Append(o)
	l.Append(o)

	assert.Equal(t, 1, l.Len())
}
