// internal/domain/transaction.go
package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal" // For precise monetary calculations
)

// TradeSide is the direction of a bond trade.
type TradeSide string

const (
	TradeSideBuy  TradeSide = "buy"
	TradeSideSell TradeSide = "sell"
)

// ParseTradeSide validates a transaction_type value.
func ParseTradeSide(s string) (TradeSide, error) {
	switch side := TradeSide(strings.ToLower(strings.TrimSpace(s))); side {
	case TradeSideBuy, TradeSideSell:
		return side, nil
	default:
		return "", fmt.Errorf("unknown transaction_type %q", s)
	}
}

// SupplyDelta is the change applied to a bond's available supply.
func (s TradeSide) SupplyDelta(quantity int64) int64 {
	if s == TradeSideBuy {
		return -quantity
	}
	return quantity
}

// Transaction is an immutable record of an executed trade.
type Transaction struct {
	ID              string          `db:"id" json:"id"`
	UserAddress     string          `db:"user_address" json:"user_address"`
	BondID          string          `db:"bond_id" json:"bond_id"`
	TransactionType TradeSide       `db:"transaction_type" json:"transaction_type"`
	Quantity        int64           `db:"quantity" json:"quantity"`
	PricePerBond    decimal.Decimal `db:"price_per_bond" json:"price_per_bond"`
	TotalAmount     decimal.Decimal `db:"total_amount" json:"total_amount"`
	Timestamp       time.Time       `db:"timestamp" json:"timestamp"`
}

// NewTransaction creates a new Transaction instance.
func NewTransaction(
	userAddress string,
	bondID string,
	side TradeSide,
	quantity int64,
	price decimal.Decimal,
	now time.Time,
) *Transaction {
	return &Transaction{
		ID:              uuid.NewString(),
		UserAddress:     userAddress,
		BondID:          bondID,
		TransactionType: side,
		Quantity:        quantity,
		PricePerBond:    price,
		TotalAmount:     price.Mul(decimal.NewFromInt(quantity)),
		Timestamp:       now,
	}
}
