package gateway

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/kitchen-storefront/internal/domain/cart"
	"github.com/xenking/kitchen-storefront/internal/domain/order"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func sampleItems() []cart.LineItem {
	return []cart.LineItem{
		{
			LineID:    "l1",
			ItemID:    "1",
			Name:      "Brown Sugar Latte",
			BasePrice: dec("5.99"),
			UnitPrice: dec("7.49"),
			Quantity:  2,
			Size:      cart.SizeLarge,
			Sweetness: cart.SweetnessRegular,
			Additions: []string{"boba", "extra shot"},
			Icon:      "latte.png",
		},
		{
			LineID:    "l2",
			ItemID:    "4",
			Name:      "Matcha Tea",
			BasePrice: dec("4.55"),
			UnitPrice: dec("4.55"),
			Quantity:  1,
		},
	}
}

func TestCartDocument_RoundTrip(t *testing.T) {
	updatedAt := time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC)
	items := sampleItems()

	data := EncodeCart(items, updatedAt)
	gotItems, gotAt, err := DecodeCart(data)
	require.NoError(t, err)

	assert.Equal(t, items, gotItems)
	assert.True(t, updatedAt.Equal(gotAt))
}

func TestCartDocument_EmptyCart(t *testing.T) {
	updatedAt := time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC)

	data := EncodeCart(nil, updatedAt)
	items, _, err := DecodeCart(data)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestDecodeCart_Malformed(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", "not-json{"},
		{"wrong item shape", `{"items":[{"lineId":42}]}`},
		{"missing line id", `{"items":[{"quantity":1}]}`},
		{"zero quantity", `{"items":[{"lineId":"l1","quantity":0}]}`},
		{"unknown size", `{"items":[{"lineId":"l1","quantity":1,"size":"venti"}]}`},
		{"bad price", `{"items":[{"lineId":"l1","quantity":1,"unitPrice":"abc"}]}`},
		{"bad timestamp", `{"items":[],"updatedAt":"yesterday"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := DecodeCart([]byte(tt.data))
			require.Error(t, err)
		})
	}
}

func TestDecodeCart_NormalizesAdditionOrder(t *testing.T) {
	data := []byte(`{"items":[{"lineId":"l1","itemId":"1","quantity":1,"additions":["extra shot","boba"]}],"updatedAt":"2025-06-01T12:00:00Z"}`)

	items, _, err := DecodeCart(data)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, []string{"boba", "extra shot"}, items[0].Additions)
}

func TestOrderDocument_RoundTrip(t *testing.T) {
	o := &order.Order{
		OrderID:     "f6f0ac1e-5c3f-4c36-9f7b-0f3a1f2d59aa",
		Items:       sampleItems(),
		Subtotal:    dec("19.48"),
		Tax:         dec("1.56"),
		DeliveryFee: dec("5.15"),
		GrandTotal:  dec("26.19"),
		PlacedAt:    time.Date(2025, 6, 1, 13, 0, 0, 0, time.UTC),
		Status:      order.StatusPreparing,
	}

	got, err := DecodeOrder(EncodeOrder(o))
	require.NoError(t, err)
	assert.Equal(t, o, got)
}

func TestDecodeOrder_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", "..."},
		{"missing order id", `{"items":[],"status":"preparing"}`},
		{"unknown status", `{"orderId":"a","status":"teleported"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeOrder([]byte(tt.data))
			require.Error(t, err)
		})
	}
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "users/u1/cart/current", CartKey("u1"))
	assert.Equal(t, "users/u1/history/o1", OrderKey("u1", "o1"))
	assert.Equal(t, "users/u1/history/", HistoryPrefix("u1"))
}
