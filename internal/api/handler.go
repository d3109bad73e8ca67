// Package api exposes the storefront command surface over HTTP JSON. It is
// the boundary the single-page UI talks to; all business behaviour lives in
// the session and domain packages.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/kitchen-storefront/internal/domain/cart"
	"github.com/xenking/kitchen-storefront/internal/domain/catalog"
	"github.com/xenking/kitchen-storefront/internal/domain/order"
	"github.com/xenking/kitchen-storefront/internal/session"
)

// userHeader carries the opaque session user id. Authentication itself is an
// upstream concern; the storefront only needs a stable identifier.
const userHeader = "X-User-ID"

// Handler serves the storefront API.
type Handler struct {
	catalog  catalog.Repository
	sessions *session.Manager
}

// NewHandler constructs a Handler with the required dependencies.
func NewHandler(cat catalog.Repository, sessions *session.Manager) *Handler {
	return &Handler{catalog: cat, sessions: sessions}
}

// Register installs the API routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/menu", h.getMenu)
	mux.HandleFunc("GET /api/cart", h.getCart)
	mux.HandleFunc("POST /api/cart/items", h.addItem)
	mux.HandleFunc("PATCH /api/cart/items/{lineID}", h.updateItem)
	mux.HandleFunc("DELETE /api/cart/items/{lineID}", h.removeItem)
	mux.HandleFunc("DELETE /api/cart", h.clearCart)
	mux.HandleFunc("POST /api/checkout", h.checkout)
	mux.HandleFunc("GET /api/orders", h.listOrders)
}

// errorResponse is the uniform error body.
type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zctx.From(r.Context()).Error("encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, r, status, errorResponse{Code: status, Message: msg})
}

// writeCommandError maps domain failures onto HTTP statuses: malformed input
// 422, empty checkout 409, exhausted persistence 502, everything else 500.
func writeCommandError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *session.ValidationError
	if errors.As(err, &verr) {
		writeError(w, r, http.StatusUnprocessableEntity, verr.Error())
		return
	}
	if errors.Is(err, order.ErrEmptyCheckout) {
		writeError(w, r, http.StatusConflict, "cart is empty")
		return
	}
	var perr *session.PersistenceError
	if errors.As(err, &perr) {
		zctx.From(r.Context()).Error("persistence failure", zap.String("key", perr.Key), zap.Error(perr.Err))
		writeError(w, r, http.StatusBadGateway, "could not persist changes, please retry")
		return
	}
	zctx.From(r.Context()).Error("command failed", zap.Error(err))
	writeError(w, r, http.StatusInternalServerError, "internal error")
}

// userSession resolves the caller's session from the user header. A missing
// header is a 401; a session that cannot be established (store unreachable)
// is a 503.
func (h *Handler) userSession(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	userID := r.Header.Get(userHeader)
	if userID == "" {
		writeError(w, r, http.StatusUnauthorized, "missing "+userHeader+" header")
		return nil, false
	}
	s, err := h.sessions.Session(userID)
	if err != nil {
		zctx.From(r.Context()).Error("session unavailable", zap.Error(err))
		writeError(w, r, http.StatusServiceUnavailable, "session unavailable")
		return nil, false
	}
	return s, true
}

// --- JSON shapes ---

type menuItemJSON struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	BasePrice string `json:"basePrice"`
	Category  string `json:"category"`
	Icon      string `json:"icon"`
}

type additionJSON struct {
	Name  string `json:"name"`
	Price string `json:"price"`
}

type lineItemJSON struct {
	LineID    string   `json:"lineId"`
	ItemID    string   `json:"itemId"`
	Name      string   `json:"name"`
	BasePrice string   `json:"basePrice"`
	UnitPrice string   `json:"unitPrice"`
	Quantity  int      `json:"quantity"`
	Size      string   `json:"size,omitempty"`
	Sweetness string   `json:"sweetness,omitempty"`
	Additions []string `json:"additions,omitempty"`
	Icon      string   `json:"icon,omitempty"`
}

type totalsJSON struct {
	Subtotal    string `json:"subtotal"`
	Tax         string `json:"tax"`
	DeliveryFee string `json:"deliveryFee"`
	GrandTotal  string `json:"grandTotal"`
}

type cartJSON struct {
	Items  []lineItemJSON `json:"items"`
	Totals totalsJSON     `json:"totals"`
}

type orderJSON struct {
	OrderID     string         `json:"orderId"`
	Items       []lineItemJSON `json:"items"`
	Subtotal    string         `json:"subtotal"`
	Tax         string         `json:"tax"`
	DeliveryFee string         `json:"deliveryFee"`
	GrandTotal  string         `json:"grandTotal"`
	PlacedAt    string         `json:"placedAt"`
	Status      string         `json:"status"`
}

func toLineItemJSON(li cart.LineItem) lineItemJSON {
	return lineItemJSON{
		LineID:    li.LineID,
		ItemID:    li.ItemID,
		Name:      li.Name,
		BasePrice: li.BasePrice.String(),
		UnitPrice: li.UnitPrice.String(),
		Quantity:  li.Quantity,
		Size:      string(li.Size),
		Sweetness: string(li.Sweetness),
		Additions: li.Additions,
		Icon:      li.Icon,
	}
}

func toCartJSON(items []cart.LineItem, totals cart.Totals) cartJSON {
	out := cartJSON{
		Items: make([]lineItemJSON, len(items)),
		Totals: totalsJSON{
			Subtotal:    totals.Subtotal.String(),
			Tax:         totals.Tax.String(),
			DeliveryFee: totals.DeliveryFee.String(),
			GrandTotal:  totals.GrandTotal.String(),
		},
	}
	for i, li := range items {
		out.Items[i] = toLineItemJSON(li)
	}
	return out
}

func toOrderJSON(o order.Order) orderJSON {
	items := make([]lineItemJSON, len(o.Items))
	for i, li := range o.Items {
		items[i] = toLineItemJSON(li)
	}
	return orderJSON{
		OrderID:     o.OrderID,
		Items:       items,
		Subtotal:    o.Subtotal.String(),
		Tax:         o.Tax.String(),
		DeliveryFee: o.DeliveryFee.String(),
		GrandTotal:  o.GrandTotal.String(),
		PlacedAt:    o.PlacedAt.UTC().Format(time.RFC3339Nano),
		Status:      string(o.Status),
	}
}
