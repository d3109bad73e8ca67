package api

import (
	"net/http"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

type menuResponse struct {
	Items     []menuItemJSON `json:"items"`
	Additions []additionJSON `json:"additions"`
}

// getMenu returns the full catalog with the available priced additions.
func (h *Handler) getMenu(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	items, err := h.catalog.List(ctx)
	if err != nil {
		zctx.From(ctx).Error("list menu", zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "could not load menu")
		return
	}
	additions, err := h.catalog.Additions(ctx)
	if err != nil {
		zctx.From(ctx).Error("list additions", zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "could not load menu")
		return
	}

	resp := menuResponse{
		Items:     make([]menuItemJSON, len(items)),
		Additions: make([]additionJSON, len(additions)),
	}
	for i, it := range items {
		resp.Items[i] = menuItemJSON{
			ID:        it.ID,
			Name:      it.Name,
			BasePrice: it.BasePrice.String(),
			Category:  it.Category,
			Icon:      it.Icon,
		}
	}
	for i, a := range additions {
		resp.Additions[i] = additionJSON{Name: a.Name, Price: a.Price.String()}
	}
	writeJSON(w, r, http.StatusOK, resp)
}
