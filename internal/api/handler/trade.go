// internal/api/handler/trade.go
package handler

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"

	"bondmarket/internal/domain"
	"bondmarket/internal/util"
)

// TradeRequest represents the request body for a trade.
type TradeRequest struct {
	UserAddress     string `json:"user_address"`
	BondID          string `json:"bond_id"`
	Quantity        int64  `json:"quantity"`
	TransactionType string `json:"transaction_type"`
}

// TradeResponse is returned for a settled trade.
type TradeResponse struct {
	Success           bool            `json:"success"`
	TransactionID     string          `json:"transaction_id"`
	TradePrice        decimal.Decimal `json:"trade_price"`
	TotalAmount       decimal.Decimal `json:"total_amount"`
	NewPortfolioValue decimal.Decimal `json:"new_portfolio_value"`
	AvailableSupply   int64           `json:"available_supply"`
}

// ExecuteTrade handles a buy or sell order.
// POST {prefix}/trade
func (h *MarketplaceHandler) ExecuteTrade(w http.ResponseWriter, r *http.Request) {
	var req TradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondWithError(w, fmt.Errorf("%w: malformed request body", util.ErrInvalidTrade))
		return
	}

	side, err := domain.ParseTradeSide(req.TransactionType)
	if err != nil {
		h.respondWithError(w, fmt.Errorf("%w: %w", util.ErrInvalidTrade, err))
		return
	}

	receipt, err := h.trades.ExecuteTrade(r.Context(), domain.TradeRequest{
		UserAddress: req.UserAddress,
		BondID:      req.BondID,
		Side:        side,
		Quantity:    req.Quantity,
	})
	if err != nil {
		h.respondWithError(w, err)
		return
	}

	h.respondWithJSON(w, http.StatusOK, TradeResponse{
		Success:           true,
		TransactionID:     receipt.TransactionID,
		TradePrice:        receipt.TradePrice,
		TotalAmount:       receipt.TotalAmount,
		NewPortfolioValue: receipt.NewPortfolioValue,
		AvailableSupply:   receipt.AvailableSupply,
	})
}
