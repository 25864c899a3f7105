// internal/api/handler/market.go
package handler

import "net/http"

// GetMarketStats returns the catalog-wide rollup.
// GET {prefix}/market-stats
func (h *MarketplaceHandler) GetMarketStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.market.Stats(r.Context())
	if err != nil {
		h.respondWithError(w, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, stats)
}
