package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xenking/kitchen-storefront/internal/domain/cart"
	"github.com/xenking/kitchen-storefront/internal/domain/catalog"
	"github.com/xenking/kitchen-storefront/internal/session"
	"github.com/xenking/kitchen-storefront/internal/storage/memstore"
)

// --- Stub catalog ---

type stubCatalog struct {
	items     []catalog.Item
	additions []catalog.Addition
	err       error
}

func (s *stubCatalog) List(_ context.Context) ([]catalog.Item, error) {
	return s.items, s.err
}

func (s *stubCatalog) GetByID(_ context.Context, id string) (*catalog.Item, error) {
	if s.err != nil {
		return nil, s.err
	}
	for i := range s.items {
		if s.items[i].ID == id {
			return &s.items[i], nil
		}
	}
	return nil, catalog.ErrNotFound
}

func (s *stubCatalog) Additions(_ context.Context) ([]catalog.Addition, error) {
	return s.additions, s.err
}

// --- Setup ---

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func setupAPI(t *testing.T) (*http.ServeMux, *memstore.Store) {
	t.Helper()

	cat := &stubCatalog{
		items: []catalog.Item{
			{ID: "1", Name: "Brown Sugar Milk Tea", BasePrice: dec("5.99"), Category: "milk-tea", Icon: "brown-sugar.png"},
			{ID: "2", Name: "Matcha Latte", BasePrice: dec("5.75"), Category: "coffee", Icon: "matcha.png"},
		},
		additions: []catalog.Addition{{Name: "boba", Price: dec("0.75")}},
	}
	store := memstore.New()
	retry := session.RetryPolicy{Attempts: 3, InitialInterval: time.Millisecond, Multiplier: 2}
	manager := session.NewManager(cat, store, cart.DefaultPricing(), retry, zap.NewNop())
	manager.Start(context.Background())
	t.Cleanup(manager.Close)

	mux := http.NewServeMux()
	NewHandler(cat, manager).Register(mux)
	return mux, store
}

func doRequest(t *testing.T, mux *http.ServeMux, method, path, user, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if user != "" {
		req.Header.Set("X-User-ID", user)
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

// --- Menu ---

func TestGetMenu(t *testing.T) {
	mux, _ := setupAPI(t)

	rec := doRequest(t, mux, http.MethodGet, "/api/menu", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeBody[menuResponse](t, rec)
	require.Len(t, resp.Items, 2)
	assert.Equal(t, "5.99", resp.Items[0].BasePrice)
	require.Len(t, resp.Additions, 1)
	assert.Equal(t, "boba", resp.Additions[0].Name)
}

func TestGetMenu_CatalogDown(t *testing.T) {
	cat := &stubCatalog{err: errors.New("db down")}
	store := memstore.New()
	manager := session.NewManager(cat, store, cart.DefaultPricing(), session.DefaultRetryPolicy(), zap.NewNop())
	manager.Start(context.Background())
	t.Cleanup(manager.Close)
	mux := http.NewServeMux()
	NewHandler(cat, manager).Register(mux)

	rec := doRequest(t, mux, http.MethodGet, "/api/menu", "", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

// --- Cart ---

func TestAddItem_RequiresUser(t *testing.T) {
	mux, _ := setupAPI(t)

	rec := doRequest(t, mux, http.MethodPost, "/api/cart/items", "",
		`{"itemId":"1","quantity":1}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAddItem_MalformedBody(t *testing.T) {
	mux, _ := setupAPI(t)

	rec := doRequest(t, mux, http.MethodPost, "/api/cart/items", "u1", `{"itemId":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAddItem_Success(t *testing.T) {
	mux, _ := setupAPI(t)

	rec := doRequest(t, mux, http.MethodPost, "/api/cart/items", "u1",
		`{"itemId":"1","size":"large","additions":["boba"],"quantity":2}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	line := decodeBody[lineItemJSON](t, rec)
	assert.Equal(t, "1", line.ItemID)
	// 5.99 + 0.75 + 1.50
	assert.Equal(t, "8.24", line.UnitPrice)
	assert.Equal(t, 2, line.Quantity)
	assert.NotEmpty(t, line.LineID)
}

func TestAddItem_ValidationFailures(t *testing.T) {
	mux, _ := setupAPI(t)

	tests := []struct {
		name string
		body string
	}{
		{"zero quantity", `{"itemId":"1","quantity":0}`},
		{"unknown item", `{"itemId":"404","quantity":1}`},
		{"unknown size", `{"itemId":"1","size":"venti","quantity":1}`},
		{"unknown addition", `{"itemId":"1","additions":["glitter"],"quantity":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, mux, http.MethodPost, "/api/cart/items", "u1", tt.body)
			assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		})
	}
}

func TestAddItem_PersistenceFailure(t *testing.T) {
	mux, store := setupAPI(t)
	store.FailWrites(3, errors.New("store down"))

	rec := doRequest(t, mux, http.MethodPost, "/api/cart/items", "u1",
		`{"itemId":"1","quantity":1}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestCartFlow(t *testing.T) {
	mux, _ := setupAPI(t)

	rec := doRequest(t, mux, http.MethodPost, "/api/cart/items", "u1",
		`{"itemId":"1","size":"large","quantity":2}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	line := decodeBody[lineItemJSON](t, rec)

	// Read the cart back with totals: subtotal 14.98, tax 1.20, fee 5.00.
	rec = doRequest(t, mux, http.MethodGet, "/api/cart", "u1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeBody[cartJSON](t, rec)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "14.98", got.Totals.Subtotal)
	assert.Equal(t, "1.2", got.Totals.Tax)
	assert.Equal(t, "5", got.Totals.DeliveryFee)
	assert.Equal(t, "21.18", got.Totals.GrandTotal)

	// Bump the quantity by one.
	rec = doRequest(t, mux, http.MethodPatch, "/api/cart/items/"+line.LineID, "u1", `{"delta":1}`)
	require.Equal(t, http.StatusOK, rec.Code)
	got = decodeBody[cartJSON](t, rec)
	require.Len(t, got.Items, 1)
	assert.Equal(t, 3, got.Items[0].Quantity)

	// Remove the line.
	rec = doRequest(t, mux, http.MethodDelete, "/api/cart/items/"+line.LineID, "u1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	got = decodeBody[cartJSON](t, rec)
	assert.Empty(t, got.Items)
	assert.Equal(t, "0", got.Totals.GrandTotal)
}

func TestClearCart(t *testing.T) {
	mux, _ := setupAPI(t)

	rec := doRequest(t, mux, http.MethodPost, "/api/cart/items", "u1",
		`{"itemId":"1","quantity":1}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doRequest(t, mux, http.MethodDelete, "/api/cart", "u1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeBody[cartJSON](t, rec)
	assert.Empty(t, got.Items)
}

// --- Checkout & history ---

func TestCheckout_EmptyCart(t *testing.T) {
	mux, _ := setupAPI(t)

	rec := doRequest(t, mux, http.MethodPost, "/api/checkout", "u1", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestCheckoutAndHistory(t *testing.T) {
	mux, _ := setupAPI(t)

	rec := doRequest(t, mux, http.MethodPost, "/api/cart/items", "u1",
		`{"itemId":"2","quantity":1}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doRequest(t, mux, http.MethodPost, "/api/checkout", "u1", "")
	require.Equal(t, http.StatusCreated, rec.Code)
	placed := decodeBody[orderJSON](t, rec)
	assert.Equal(t, "preparing", placed.Status)
	assert.NotEmpty(t, placed.OrderID)

	// The cart is empty after checkout.
	rec = doRequest(t, mux, http.MethodGet, "/api/cart", "u1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeBody[cartJSON](t, rec).Items)

	// The order shows up in history.
	rec = doRequest(t, mux, http.MethodGet, "/api/orders", "u1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	history := decodeBody[ordersResponse](t, rec)
	require.Len(t, history.Orders, 1)
	assert.Equal(t, placed.OrderID, history.Orders[0].OrderID)

	// Another user's history is empty.
	rec = doRequest(t, mux, http.MethodGet, "/api/orders", "u2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeBody[ordersResponse](t, rec).Orders)
}
