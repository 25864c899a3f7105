// internal/service/portfolio_service.go
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"bondmarket/internal/domain"
	"bondmarket/internal/pricing"
	"bondmarket/internal/util"
)

// PortfolioService serves read models of user portfolios.
type PortfolioService interface {
	// GetPortfolio never fails with not-found: unknown users get an empty view.
	GetPortfolio(ctx context.Context, userAddress string) (*domain.PortfolioView, error)
	GetTransactionHistory(ctx context.Context, userAddress string, limit, offset int) ([]domain.Transaction, int64, error)
}

type portfolioService struct {
	deps Dependencies
}

// NewPortfolioService creates a new instance of PortfolioService.
func NewPortfolioService(deps Dependencies) PortfolioService {
	return &portfolioService{deps: deps.withDefaults()}
}

func (s *portfolioService) GetPortfolio(ctx context.Context, userAddress string) (*domain.PortfolioView, error) {
	if strings.TrimSpace(userAddress) == "" {
		return nil, fmt.Errorf("%w: user_address is required", util.ErrInvalidInput)
	}

	now := s.deps.Clock()
	portfolio, err := s.deps.Portfolios.GetPortfolioByUser(ctx, s.deps.DBExecutor, userAddress)
	if errors.Is(err, util.ErrNotFound) {
		return &domain.PortfolioView{
			Portfolio:        domain.NewPortfolio(userAddress, now),
			DetailedHoldings: []domain.Holding{},
			Summary:          domain.PortfolioSummary{TotalValue: decimal.Zero, AverageYield: decimal.Zero},
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get portfolio of %s: %w", userAddress, err)
	}

	holdings := make([]domain.Holding, 0, len(portfolio.Bonds))
	for _, bondID := range portfolio.Bonds.BondIDs() {
		bond, err := s.deps.Bonds.GetBondByID(ctx, s.deps.DBExecutor, bondID)
		if errors.Is(err, util.ErrBondNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("get portfolio: failed to get bond %s: %w", bondID, err)
		}
		qty := decimal.NewFromInt(portfolio.Bonds[bondID])
		holdings = append(holdings, domain.Holding{
			Bond:          *bond,
			Quantity:      portfolio.Bonds[bondID],
			CurrentValue:  bond.CurrentPrice.Mul(qty).Round(2),
			DynamicYield:  pricing.Yield(*bond, now),
			UnrealizedPnL: bond.CurrentPrice.Sub(bond.FaceValue).Mul(qty).Round(2),
		})
	}

	return &domain.PortfolioView{
		Portfolio:        portfolio,
		DetailedHoldings: holdings,
		Summary: domain.PortfolioSummary{
			TotalBonds:   len(portfolio.Bonds),
			TotalValue:   portfolio.TotalValue,
			AverageYield: portfolio.TotalYield,
		},
	}, nil
}

// GetTransactionHistory retrieves a paginated list of a user's transactions.
func (s *portfolioService) GetTransactionHistory(ctx context.Context, userAddress string, limit, offset int) ([]domain.Transaction, int64, error) {
	if strings.TrimSpace(userAddress) == "" || limit <= 0 || offset < 0 {
		return nil, 0, util.ErrInvalidInput
	}

	transactions, totalCount, err := s.deps.Transactions.GetTransactionsByUser(ctx, s.deps.DBExecutor, userAddress, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to retrieve transaction history: %w", err)
	}
	return transactions, totalCount, nil
}
