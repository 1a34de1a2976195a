package handlers

import (
	"encoding/json"
	"net/http"

	"brandgen/internal/catalog"
	"brandgen/internal/httpkit"
)

// ListBrands serves the catalog elements as stored, unknown fields included.
// A missing or malformed catalog is logged and served as an empty list.
func (h *Handler) ListBrands(w http.ResponseWriter, r *http.Request) {
	log := h.log.FromContext(r.Context())

	brands := []json.RawMessage{}
	c, err := catalog.LoadFile(h.catalogPath)
	if err != nil {
		log.Warn("catalog unavailable, serving empty list",
			"path", h.catalogPath,
			"error", err.Error(),
		)
	} else {
		c.LogSkipped(log)
		brands = c.Raw
	}

	httpkit.WriteJSON(w, http.StatusOK, catalog.BrandsResponse{
		Success: true,
		Count:   len(brands),
		Brands:  brands,
	})
}
