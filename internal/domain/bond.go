// internal/domain/bond.go
package domain

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal" // For precise monetary calculations
)

func init() {
	// Prices and rates travel as JSON numbers, not strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// Bond represents a tokenized sovereign bond instrument.
type Bond struct {
	ID              string          `db:"id" json:"id"`
	Country         string          `db:"country" json:"country"`
	CountryCode     string          `db:"country_code" json:"country_code"`
	FaceValue       decimal.Decimal `db:"face_value" json:"face_value"`
	CouponRate      decimal.Decimal `db:"coupon_rate" json:"coupon_rate"` // Annual, percent
	IssueDate       Date            `db:"issue_date" json:"issue_date"`
	MaturityDate    Date            `db:"maturity_date" json:"maturity_date"`
	CurrentPrice    decimal.Decimal `db:"current_price" json:"current_price"`
	RiskFactor      decimal.Decimal `db:"risk_factor" json:"risk_factor"` // Country risk, percent
	Currency        string          `db:"currency" json:"currency"`
	TotalSupply     int64           `db:"total_supply" json:"total_supply"`
	AvailableSupply int64           `db:"available_supply" json:"available_supply"`
}

// NewBondID generates a fresh opaque bond identifier.
func NewBondID() string {
	return uuid.NewString()
}

// CanAdjustSupply reports whether applying delta keeps available supply
// within [0, TotalSupply].
func (b *Bond) CanAdjustSupply(delta int64) bool {
	next := b.AvailableSupply + delta
	return next >= 0 && next <= b.TotalSupply
}
