// internal/repository/bond_repo.go
package repository

import (
	"context"

	"github.com/shopspring/decimal"

	"bondmarket/internal/domain"
)

// BondRepository defines the interface for bond catalog operations.
type BondRepository interface {
	// SeedBonds inserts bonds only if the catalog is empty and returns how many were inserted.
	SeedBonds(ctx context.Context, q DBExecutor, bonds []domain.Bond) (int, error)
	// CountBonds returns the catalog size.
	CountBonds(ctx context.Context, q DBExecutor) (int, error)
	// GetBondByID retrieves a bond by its ID.
	GetBondByID(ctx context.Context, q DBExecutor, id string) (*domain.Bond, error)
	// GetBondByIDForUpdate retrieves a bond and locks its row until the transaction ends.
	GetBondByIDForUpdate(ctx context.Context, q DBExecutor, id string) (*domain.Bond, error)
	// ListBonds returns all bonds in insertion order.
	ListBonds(ctx context.Context, q DBExecutor) ([]domain.Bond, error)
	// UpdateBondPrice overwrites a bond's current price.
	UpdateBondPrice(ctx context.Context, q DBExecutor, id string, price decimal.Decimal) error
	// AdjustBondSupply adds delta to available supply and returns the new value.
	// It fails with util.ErrInvalidSupply if the result leaves [0, total_supply].
	AdjustBondSupply(ctx context.Context, q DBExecutor, id string, delta int64) (int64, error)
}
