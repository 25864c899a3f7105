// Package pricing holds the AMM price function and the risk-adjusted yield
// function. Both are pure: all time and randomness arrive as arguments.
package pricing

import (
	"math"
	"time"

	"github.com/shopspring/decimal"

	"bondmarket/internal/domain"
)

// NeutralDemand leaves the price unaffected by the demand term.
const NeutralDemand = 1.0

var (
	scarcityPremium   = decimal.NewFromInt(50)
	riskDiscountRate  = decimal.NewFromInt(10)
	demandSensitivity = decimal.NewFromInt(25)
	priceFloorRatio   = decimal.RequireFromString("0.7")

	daysPerYear         = decimal.RequireFromString("365.25")
	maturityThreshold   = decimal.NewFromInt(2)
	maturityPremiumRate = decimal.RequireFromString("0.3")
	hundred             = decimal.NewFromInt(100)
)

// Price derives the next price of a bond from its last observed price, the
// scarcity of its remaining supply, its country risk and a demand signal.
// The result never falls below 70% of face value and carries 2 decimals.
func Price(b domain.Bond, demand float64) decimal.Decimal {
	scarcity := decimal.Zero
	if b.TotalSupply > 0 {
		ratio := decimal.NewFromInt(b.AvailableSupply).Div(decimal.NewFromInt(b.TotalSupply))
		scarcity = decimal.NewFromInt(1).Sub(ratio).Mul(scarcityPremium)
	}
	riskDiscount := b.RiskFactor.Mul(riskDiscountRate)
	demandAdj := decimal.NewFromFloat(demand).Sub(decimal.NewFromInt(1)).Mul(demandSensitivity)

	raw := b.CurrentPrice.Add(scarcity).Sub(riskDiscount).Add(demandAdj)
	floor := b.FaceValue.Mul(priceFloorRatio)

	if raw.LessThan(floor) {
		return floor.RoundCeil(2)
	}
	rounded := raw.Round(2)
	if rounded.LessThan(floor) {
		return floor.RoundCeil(2)
	}
	return rounded
}

// Yield returns the annualised yield in percent: the coupon scaled by
// country risk, plus 0.3 points per year of remaining maturity beyond two
// years. Matured bonds get no maturity premium.
func Yield(b domain.Bond, now time.Time) decimal.Decimal {
	riskAdjusted := b.CouponRate.Mul(decimal.NewFromInt(1).Add(b.RiskFactor.Div(hundred)))

	years := YearsToMaturity(b.MaturityDate, now)
	premium := decimal.Max(decimal.Zero, years.Sub(maturityThreshold)).Mul(maturityPremiumRate)

	return riskAdjusted.Add(premium).Round(2)
}

// YearsToMaturity counts whole days from now until maturity, expressed in
// years of 365.25 days. It is negative once the bond has matured.
func YearsToMaturity(maturity domain.Date, now time.Time) decimal.Decimal {
	days := math.Floor(maturity.Time.Sub(now.UTC()).Hours() / 24)
	return decimal.NewFromFloat(days).Div(daysPerYear)
}
