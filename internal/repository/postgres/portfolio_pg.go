// internal/repository/postgres/portfolio_pg.go
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"bondmarket/internal/domain"
	"bondmarket/internal/repository"
	"bondmarket/internal/util"
)

const portfolioColumns = `id, user_address, bonds, total_value, total_yield, created_at, updated_at`

// PortfolioRepository implements repository.PortfolioRepository for PostgreSQL.
type PortfolioRepository struct{}

// NewPortfolioRepository creates a new PortfolioRepository.
func NewPortfolioRepository(db *sqlx.DB) repository.PortfolioRepository {
	return &PortfolioRepository{}
}

// GetPortfolioByUser retrieves the portfolio owned by a user address.
func (r *PortfolioRepository) GetPortfolioByUser(ctx context.Context, q repository.DBExecutor, userAddress string) (*domain.Portfolio, error) {
	return r.getPortfolio(ctx, q, `SELECT `+portfolioColumns+` FROM portfolios WHERE user_address = $1`, userAddress)
}

// GetPortfolioByUserForUpdate retrieves the portfolio and locks its row.
func (r *PortfolioRepository) GetPortfolioByUserForUpdate(ctx context.Context, q repository.DBExecutor, userAddress string) (*domain.Portfolio, error) {
	return r.getPortfolio(ctx, q, `SELECT `+portfolioColumns+` FROM portfolios WHERE user_address = $1 FOR UPDATE`, userAddress)
}

func (r *PortfolioRepository) getPortfolio(ctx context.Context, q repository.DBExecutor, query, userAddress string) (*domain.Portfolio, error) {
	var portfolio domain.Portfolio
	err := q.GetContext(ctx, &portfolio, query, userAddress)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, util.ErrNotFound
		}
		return nil, storeError(fmt.Sprintf("get portfolio of %s", userAddress), err)
	}
	return &portfolio, nil
}

// EnsurePortfolio inserts p when the user has no portfolio row yet. Two
// first trades of the same user then contend on the row lock instead of
// overwriting each other's upsert.
func (r *PortfolioRepository) EnsurePortfolio(ctx context.Context, q repository.DBExecutor, p *domain.Portfolio) error {
	query := `INSERT INTO portfolios (` + portfolioColumns + `)
              VALUES ($1, $2, $3, $4, $5, $6, $7)
              ON CONFLICT (user_address) DO NOTHING`

	_, err := q.ExecContext(ctx, query,
		p.ID,
		p.UserAddress,
		p.Bonds,
		p.TotalValue,
		p.TotalYield,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		return storeError(fmt.Sprintf("ensure portfolio of %s", p.UserAddress), err)
	}
	return nil
}

// UpsertPortfolio inserts the portfolio or replaces holdings and aggregates
// of the existing row for the same user address.
func (r *PortfolioRepository) UpsertPortfolio(ctx context.Context, q repository.DBExecutor, p *domain.Portfolio) error {
	query := `INSERT INTO portfolios (` + portfolioColumns + `)
              VALUES ($1, $2, $3, $4, $5, $6, $7)
              ON CONFLICT (user_address) DO UPDATE
              SET bonds = EXCLUDED.bonds,
                  total_value = EXCLUDED.total_value,
                  total_yield = EXCLUDED.total_yield,
                  updated_at = EXCLUDED.updated_at
              RETURNING id, created_at`

	err := q.QueryRowContext(ctx, query,
		p.ID,
		p.UserAddress,
		p.Bonds,
		p.TotalValue,
		p.TotalYield,
		p.CreatedAt,
		p.UpdatedAt,
	).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return storeError(fmt.Sprintf("upsert portfolio of %s", p.UserAddress), err)
	}
	return nil
}
