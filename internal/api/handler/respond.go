// internal/api/handler/respond.go
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"bondmarket/internal/service"
	"bondmarket/internal/util"
)

// DefaultTimeout bounds every non-streaming request.
const DefaultTimeout = 15 * time.Second

// MarketplaceHandler handles HTTP requests of the bond marketplace.
type MarketplaceHandler struct {
	catalog   service.CatalogService
	trades    service.TradeService
	portfolio service.PortfolioService
	market    service.MarketService
	logger    *slog.Logger
}

// NewMarketplaceHandler creates a new MarketplaceHandler.
func NewMarketplaceHandler(
	catalog service.CatalogService,
	trades service.TradeService,
	portfolio service.PortfolioService,
	market service.MarketService,
	logger *slog.Logger,
) *MarketplaceHandler {
	return &MarketplaceHandler{
		catalog:   catalog,
		trades:    trades,
		portfolio: portfolio,
		market:    market,
		logger:    logger,
	}
}

// Helper function to send JSON responses.
func (h *MarketplaceHandler) respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("Failed to marshal JSON response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(response)
}

// Helper function to send error responses. Business-rule failures carry
// their reason; store and unexpected failures do not leak details.
func (h *MarketplaceHandler) respondWithError(w http.ResponseWriter, err error) {
	statusCode := http.StatusInternalServerError
	message := "Internal server error"

	switch {
	case util.IsError(err, util.ErrBondNotFound):
		statusCode = http.StatusNotFound
		message = "Bond not found"
	case util.IsError(err, util.ErrNotFound):
		statusCode = http.StatusNotFound
		message = "Resource not found"
	case util.IsError(err, util.ErrInvalidInput),
		util.IsError(err, util.ErrInvalidTrade),
		util.IsError(err, util.ErrInsufficientSupply),
		util.IsError(err, util.ErrInsufficientHoldings),
		util.IsError(err, util.ErrInvalidSupply):
		statusCode = http.StatusBadRequest
		message = err.Error()
	case util.IsError(err, util.ErrStoreUnavailable):
		statusCode = http.StatusServiceUnavailable
		message = "Store unavailable, retry later"
		h.logger.Error("Store unavailable", "error", err)
	default:
		h.logger.Error("Unhandled service error", "error", err)
	}

	h.respondWithJSON(w, statusCode, map[string]string{"error": message})
}
