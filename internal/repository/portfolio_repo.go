// internal/repository/portfolio_repo.go
package repository

import (
	"context"

	"bondmarket/internal/domain"
)

// PortfolioRepository defines the interface for portfolio data operations.
type PortfolioRepository interface {
	// GetPortfolioByUser retrieves the portfolio of a user address; util.ErrNotFound if none exists.
	GetPortfolioByUser(ctx context.Context, q DBExecutor, userAddress string) (*domain.Portfolio, error)
	// GetPortfolioByUserForUpdate is GetPortfolioByUser with a row lock.
	GetPortfolioByUserForUpdate(ctx context.Context, q DBExecutor, userAddress string) (*domain.Portfolio, error)
	// EnsurePortfolio inserts p unless the user already has a portfolio, so a
	// following GetPortfolioByUserForUpdate always has a row to lock.
	EnsurePortfolio(ctx context.Context, q DBExecutor, p *domain.Portfolio) error
	// UpsertPortfolio inserts or replaces the portfolio keyed by user address.
	UpsertPortfolio(ctx context.Context, q DBExecutor, portfolio *domain.Portfolio) error
}
