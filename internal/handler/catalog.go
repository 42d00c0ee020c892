package handler

import (
	"net/http"
)

// Products handles GET /data/products.json with the current catalog.
func (h *Handler) Products(w http.ResponseWriter, _ *http.Request) {
	raw := h.catalog.Raw()
	if raw == nil {
		writeError(w, http.StatusServiceUnavailable, "Catalog unavailable.")
		return
	}
	w.Header().Set("Cache-Control", "no-cache")
	writeJSON(w, http.StatusOK, raw)
}
