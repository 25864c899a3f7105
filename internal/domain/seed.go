// internal/domain/seed.go
package domain

import "github.com/shopspring/decimal"

// SeedBonds returns the fixed catalog of sovereign issuances with freshly
// generated identifiers.
func SeedBonds() []Bond {
	return []Bond{
		{
			ID:              NewBondID(),
			Country:         "Ghana",
			CountryCode:     "GH",
			FaceValue:       decimal.NewFromInt(1000),
			CouponRate:      decimal.RequireFromString("7.5"),
			IssueDate:       MustParseDate("2024-01-01"),
			MaturityDate:    MustParseDate("2029-12-31"),
			CurrentPrice:    decimal.NewFromInt(950),
			RiskFactor:      decimal.RequireFromString("2.3"),
			Currency:        "USD",
			TotalSupply:     10000,
			AvailableSupply: 7500,
		},
		{
			ID:              NewBondID(),
			Country:         "Nigeria",
			CountryCode:     "NG",
			FaceValue:       decimal.NewFromInt(1000),
			CouponRate:      decimal.RequireFromString("8.2"),
			IssueDate:       MustParseDate("2023-07-01"),
			MaturityDate:    MustParseDate("2026-06-30"),
			CurrentPrice:    decimal.NewFromInt(920),
			RiskFactor:      decimal.RequireFromString("4.1"),
			Currency:        "USD",
			TotalSupply:     15000,
			AvailableSupply: 12000,
		},
		{
			ID:              NewBondID(),
			Country:         "Kenya",
			CountryCode:     "KE",
			FaceValue:       decimal.NewFromInt(1000),
			CouponRate:      decimal.RequireFromString("6.8"),
			IssueDate:       MustParseDate("2023-03-15"),
			MaturityDate:    MustParseDate("2028-03-15"),
			CurrentPrice:    decimal.NewFromInt(965),
			RiskFactor:      decimal.RequireFromString("1.8"),
			Currency:        "USD",
			TotalSupply:     8000,
			AvailableSupply: 5500,
		},
		{
			ID:              NewBondID(),
			Country:         "South Africa",
			CountryCode:     "ZA",
			FaceValue:       decimal.NewFromInt(1000),
			CouponRate:      decimal.RequireFromString("9.1"),
			IssueDate:       MustParseDate("2023-10-01"),
			MaturityDate:    MustParseDate("2027-09-30"),
			CurrentPrice:    decimal.NewFromInt(890),
			RiskFactor:      decimal.RequireFromString("5.2"),
			Currency:        "USD",
			TotalSupply:     20000,
			AvailableSupply: 18500,
		},
	}
}
