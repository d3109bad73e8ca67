package api

import (
	"encoding/json"
	"net/http"

	"github.com/xenking/kitchen-storefront/internal/domain/cart"
	"github.com/xenking/kitchen-storefront/internal/session"
)

type addItemRequest struct {
	ItemID    string   `json:"itemId"`
	Size      string   `json:"size"`
	Sweetness string   `json:"sweetness"`
	Additions []string `json:"additions"`
	Quantity  int      `json:"quantity"`
}

type updateItemRequest struct {
	Delta int `json:"delta"`
}

// getCart returns the caller's current cart with derived totals.
func (h *Handler) getCart(w http.ResponseWriter, r *http.Request) {
	s, ok := h.userSession(w, r)
	if !ok {
		return
	}
	items, totals := s.CartView()
	writeJSON(w, r, http.StatusOK, toCartJSON(items, totals))
}

// addItem adds a customized menu item to the cart.
func (h *Handler) addItem(w http.ResponseWriter, r *http.Request) {
	s, ok := h.userSession(w, r)
	if !ok {
		return
	}

	var req addItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "malformed request body")
		return
	}

	line, err := s.AddToCart(r.Context(), session.AddRequest{
		ItemID:    req.ItemID,
		Size:      cart.Size(req.Size),
		Sweetness: cart.Sweetness(req.Sweetness),
		Additions: req.Additions,
		Quantity:  req.Quantity,
	})
	if err != nil {
		writeCommandError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, toLineItemJSON(*line))
}

// updateItem adjusts a line's quantity by a signed delta.
func (h *Handler) updateItem(w http.ResponseWriter, r *http.Request) {
	s, ok := h.userSession(w, r)
	if !ok {
		return
	}

	var req updateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "malformed request body")
		return
	}

	if err := s.UpdateQuantity(r.Context(), r.PathValue("lineID"), req.Delta); err != nil {
		writeCommandError(w, r, err)
		return
	}
	items, totals := s.CartView()
	writeJSON(w, r, http.StatusOK, toCartJSON(items, totals))
}

// removeItem deletes a line from the cart.
func (h *Handler) removeItem(w http.ResponseWriter, r *http.Request) {
	s, ok := h.userSession(w, r)
	if !ok {
		return
	}
	if err := s.RemoveItem(r.Context(), r.PathValue("lineID")); err != nil {
		writeCommandError(w, r, err)
		return
	}
	items, totals := s.CartView()
	writeJSON(w, r, http.StatusOK, toCartJSON(items, totals))
}

// clearCart empties the cart.
func (h *Handler) clearCart(w http.ResponseWriter, r *http.Request) {
	s, ok := h.userSession(w, r)
	if !ok {
		return
	}
	if err := s.ClearCart(r.Context()); err != nil {
		writeCommandError(w, r, err)
		return
	}
	items, totals := s.CartView()
	writeJSON(w, r, http.StatusOK, toCartJSON(items, totals))
}
