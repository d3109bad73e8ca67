package api

import "net/http"

type ordersResponse struct {
	Orders []orderJSON `json:"orders"`
}

// checkout finalizes the cart into an order.
func (h *Handler) checkout(w http.ResponseWriter, r *http.Request) {
	s, ok := h.userSession(w, r)
	if !ok {
		return
	}

	o, err := s.Checkout(r.Context())
	if err != nil {
		// The order may have been placed even when the follow-up cart
		// write failed; the client re-syncs via the order list.
		writeCommandError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, toOrderJSON(*o))
}

// listOrders returns the caller's order history, most recent first.
func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	s, ok := h.userSession(w, r)
	if !ok {
		return
	}

	orders, err := s.LoadHistory(r.Context())
	if err != nil {
		writeCommandError(w, r, err)
		return
	}

	resp := ordersResponse{Orders: make([]orderJSON, len(orders))}
	for i, o := range orders {
		resp.Orders[i] = toOrderJSON(o)
	}
	writeJSON(w, r, http.StatusOK, resp)
}
