// internal/domain/market.go
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TradeRequest is a client's buy or sell instruction.
type TradeRequest struct {
	UserAddress string
	BondID      string
	Side        TradeSide
	Quantity    int64
}

// TradeReceipt summarises a settled trade.
type TradeReceipt struct {
	TransactionID     string
	TradePrice        decimal.Decimal
	TotalAmount       decimal.Decimal
	NewPortfolioValue decimal.Decimal
	AvailableSupply   int64
}

// YieldQuote is the risk-adjusted yield view of one bond.
type YieldQuote struct {
	BondID       string          `json:"bond_id"`
	Country      string          `json:"country"`
	BaseYield    decimal.Decimal `json:"base_yield"`
	RiskFactor   decimal.Decimal `json:"risk_factor"`
	DynamicYield decimal.Decimal `json:"dynamic_yield"`
	CurrentPrice decimal.Decimal `json:"current_price"`
	FaceValue    decimal.Decimal `json:"face_value"`
}

// Holding is one enriched portfolio position.
type Holding struct {
	Bond          Bond            `json:"bond"`
	Quantity      int64           `json:"quantity"`
	CurrentValue  decimal.Decimal `json:"current_value"`
	DynamicYield  decimal.Decimal `json:"dynamic_yield"`
	UnrealizedPnL decimal.Decimal `json:"unrealized_pnl"`
}

// PortfolioSummary aggregates a portfolio view.
type PortfolioSummary struct {
	TotalBonds   int             `json:"total_bonds"`
	TotalValue   decimal.Decimal `json:"total_value"`
	AverageYield decimal.Decimal `json:"average_yield"`
}

// PortfolioView is the read model returned for a user address.
type PortfolioView struct {
	Portfolio        *Portfolio       `json:"portfolio"`
	DetailedHoldings []Holding        `json:"detailed_holdings"`
	Summary          PortfolioSummary `json:"summary"`
}

// MarketStats is the read-only rollup over the catalog and transaction log.
type MarketStats struct {
	TotalMarketValue  decimal.Decimal `json:"total_market_value"`
	TotalVolume24h    decimal.Decimal `json:"total_volume_24h"`
	AverageYield      decimal.Decimal `json:"average_yield"`
	ActiveBonds       int             `json:"active_bonds"`
	TotalTransactions int64           `json:"total_transactions"`
}

// MarketEventType names events pushed to live subscribers.
type MarketEventType string

const (
	MarketEventPriceUpdate MarketEventType = "price_update"
	MarketEventTrade       MarketEventType = "trade"
)

// MarketEvent is a price or trade notification.
type MarketEvent struct {
	Type            MarketEventType `json:"type"`
	BondID          string          `json:"bond_id"`
	Price           decimal.Decimal `json:"price"`
	AvailableSupply int64           `json:"available_supply"`
	Side            TradeSide       `json:"side,omitempty"`
	Quantity        int64           `json:"quantity,omitempty"`
	Timestamp       time.Time       `json:"timestamp"`
}
