// internal/service/market_service.go
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"bondmarket/internal/domain"
	"bondmarket/internal/pricing"
)

// VolumeWindow is the trailing window of total_volume_24h.
const VolumeWindow = 24 * time.Hour

// MarketService aggregates catalog-wide statistics.
type MarketService interface {
	Stats(ctx context.Context) (*domain.MarketStats, error)
}

type marketService struct {
	deps Dependencies
}

// NewMarketService creates a new instance of MarketService.
func NewMarketService(deps Dependencies) MarketService {
	return &marketService{deps: deps.withDefaults()}
}

func (s *marketService) Stats(ctx context.Context) (*domain.MarketStats, error) {
	now := s.deps.Clock()

	bonds, err := s.deps.Bonds.ListBonds(ctx, s.deps.DBExecutor)
	if err != nil {
		return nil, fmt.Errorf("market stats: %w", err)
	}
	volume, err := s.deps.Transactions.SumVolumeSince(ctx, s.deps.DBExecutor, now.Add(-VolumeWindow))
	if err != nil {
		return nil, fmt.Errorf("market stats: %w", err)
	}
	count, err := s.deps.Transactions.CountTransactions(ctx, s.deps.DBExecutor)
	if err != nil {
		return nil, fmt.Errorf("market stats: %w", err)
	}

	marketValue := decimal.Zero
	yieldSum := decimal.Zero
	for _, b := range bonds {
		marketValue = marketValue.Add(b.CurrentPrice.Mul(decimal.NewFromInt(b.TotalSupply)))
		yieldSum = yieldSum.Add(pricing.Yield(b, now))
	}
	averageYield := decimal.Zero
	if len(bonds) > 0 {
		averageYield = yieldSum.Div(decimal.NewFromInt(int64(len(bonds))))
	}

	return &domain.MarketStats{
		TotalMarketValue:  marketValue.Round(2),
		TotalVolume24h:    volume.Round(2),
		AverageYield:      averageYield.Round(2),
		ActiveBonds:       len(bonds),
		TotalTransactions: count,
	}, nil
}
