// internal/api/handler/portfolio.go
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"bondmarket/internal/api/types"
)

// GetPortfolio returns the enriched portfolio of a user address. Unknown
// users get an empty portfolio, never 404.
// GET {prefix}/portfolio/{userAddress}
func (h *MarketplaceHandler) GetPortfolio(w http.ResponseWriter, r *http.Request) {
	view, err := h.portfolio.GetPortfolio(r.Context(), chi.URLParam(r, "userAddress"))
	if err != nil {
		h.respondWithError(w, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, view)
}

// GetTransactionHistory handles the get transaction history request.
// GET {prefix}/portfolio/{userAddress}/transactions
func (h *MarketplaceHandler) GetTransactionHistory(w http.ResponseWriter, r *http.Request) {
	userAddress := chi.URLParam(r, "userAddress")

	page := types.ParsePage(r.URL.Query())
	transactions, totalCount, err := h.portfolio.GetTransactionHistory(r.Context(), userAddress, page.Limit, page.Offset)
	if err != nil {
		h.respondWithError(w, err)
		return
	}

	h.respondWithJSON(w, http.StatusOK, types.NewPaginatedResponse(transactions, page, totalCount))
}
