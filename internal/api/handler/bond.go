// internal/api/handler/bond.go
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Root is the API liveness check.
// GET {prefix}/
func (h *MarketplaceHandler) Root(w http.ResponseWriter, r *http.Request) {
	h.respondWithJSON(w, http.StatusOK, map[string]string{"message": "Sovereign Bond Marketplace API"})
}

// ListBonds returns the catalog. Every call reprices each bond, so prices
// drift between polls.
// GET {prefix}/bonds
func (h *MarketplaceHandler) ListBonds(w http.ResponseWriter, r *http.Request) {
	bonds, err := h.catalog.ListBonds(r.Context())
	if err != nil {
		h.respondWithError(w, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, bonds)
}

// GetBond handles the get bond request.
// GET {prefix}/bonds/{bondID}
func (h *MarketplaceHandler) GetBond(w http.ResponseWriter, r *http.Request) {
	bond, err := h.catalog.GetBond(r.Context(), chi.URLParam(r, "bondID"))
	if err != nil {
		h.respondWithError(w, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, bond)
}

// GetBondYield handles the risk-adjusted yield request.
// GET {prefix}/bonds/{bondID}/yield
func (h *MarketplaceHandler) GetBondYield(w http.ResponseWriter, r *http.Request) {
	quote, err := h.catalog.GetYield(r.Context(), chi.URLParam(r, "bondID"))
	if err != nil {
		h.respondWithError(w, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, quote)
}
