// internal/repository/postgres/bond_pg.go
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"bondmarket/internal/domain"
	"bondmarket/internal/repository"
	"bondmarket/internal/util"
)

const bondColumns = `id, country, country_code, face_value, coupon_rate, issue_date, maturity_date,
	current_price, risk_factor, currency, total_supply, available_supply`

// BondRepository implements repository.BondRepository for PostgreSQL.
type BondRepository struct{}

// NewBondRepository creates a new BondRepository.
func NewBondRepository(db *sqlx.DB) repository.BondRepository {
	return &BondRepository{}
}

// SeedBonds inserts the given bonds when the catalog is empty. Concurrent
// seeders are serialized by a transaction-scoped advisory lock, so q must be
// a transaction for the guard to hold.
func (r *BondRepository) SeedBonds(ctx context.Context, q repository.DBExecutor, bonds []domain.Bond) (int, error) {
	if _, err := q.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext('bonds_seed'))`); err != nil {
		return 0, storeError("take seed lock", err)
	}

	count, err := r.CountBonds(ctx, q)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		return 0, nil
	}

	query := `INSERT INTO bonds (` + bondColumns + `)
              VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	for _, b := range bonds {
		_, err := q.ExecContext(ctx, query,
			b.ID,
			b.Country,
			b.CountryCode,
			b.FaceValue,
			b.CouponRate,
			b.IssueDate,
			b.MaturityDate,
			b.CurrentPrice,
			b.RiskFactor,
			b.Currency,
			b.TotalSupply,
			b.AvailableSupply,
		)
		if err != nil {
			return 0, storeError(fmt.Sprintf("insert bond %s", b.Country), err)
		}
	}
	return len(bonds), nil
}

// CountBonds returns the number of bonds in the catalog.
func (r *BondRepository) CountBonds(ctx context.Context, q repository.DBExecutor) (int, error) {
	var count int
	if err := q.GetContext(ctx, &count, `SELECT COUNT(*) FROM bonds`); err != nil {
		return 0, storeError("count bonds", err)
	}
	return count, nil
}

// GetBondByID retrieves a bond by its ID using the provided DBExecutor.
func (r *BondRepository) GetBondByID(ctx context.Context, q repository.DBExecutor, id string) (*domain.Bond, error) {
	return r.getBond(ctx, q, `SELECT `+bondColumns+` FROM bonds WHERE id = $1`, id)
}

// GetBondByIDForUpdate retrieves a bond and holds its row lock until the
// surrounding transaction ends.
func (r *BondRepository) GetBondByIDForUpdate(ctx context.Context, q repository.DBExecutor, id string) (*domain.Bond, error) {
	return r.getBond(ctx, q, `SELECT `+bondColumns+` FROM bonds WHERE id = $1 FOR UPDATE`, id)
}

func (r *BondRepository) getBond(ctx context.Context, q repository.DBExecutor, query, id string) (*domain.Bond, error) {
	var bond domain.Bond
	err := q.GetContext(ctx, &bond, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, util.ErrBondNotFound
		}
		return nil, storeError(fmt.Sprintf("get bond by ID %s", id), err)
	}
	return &bond, nil
}

// ListBonds returns every bond in insertion order.
func (r *BondRepository) ListBonds(ctx context.Context, q repository.DBExecutor) ([]domain.Bond, error) {
	bonds := []domain.Bond{}
	if err := q.SelectContext(ctx, &bonds, `SELECT `+bondColumns+` FROM bonds ORDER BY seq`); err != nil {
		return nil, storeError("list bonds", err)
	}
	return bonds, nil
}

// UpdateBondPrice overwrites the current price of a bond.
func (r *BondRepository) UpdateBondPrice(ctx context.Context, q repository.DBExecutor, id string, price decimal.Decimal) error {
	result, err := q.ExecContext(ctx, `UPDATE bonds SET current_price = $1 WHERE id = $2`, price, id)
	if err != nil {
		return storeError(fmt.Sprintf("update price of bond %s", id), err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return storeError(fmt.Sprintf("get rows affected after updating price of bond %s", id), err)
	}
	if rowsAffected == 0 {
		return util.ErrBondNotFound
	}
	return nil
}

// AdjustBondSupply applies delta to available supply in a single guarded
// statement; a result outside [0, total_supply] matches no row.
func (r *BondRepository) AdjustBondSupply(ctx context.Context, q repository.DBExecutor, id string, delta int64) (int64, error) {
	query := `UPDATE bonds SET available_supply = available_supply + $1
              WHERE id = $2 AND available_supply + $1 BETWEEN 0 AND total_supply
              RETURNING available_supply`

	var available int64
	err := q.QueryRowContext(ctx, query, delta, id).Scan(&available)
	if err == nil {
		return available, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, storeError(fmt.Sprintf("adjust supply of bond %s", id), err)
	}

	var exists bool
	if err := q.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM bonds WHERE id = $1)`, id); err != nil {
		return 0, storeError(fmt.Sprintf("check bond %s", id), err)
	}
	if !exists {
		return 0, util.ErrBondNotFound
	}
	return 0, fmt.Errorf("%w: bond %s, delta %d", util.ErrInvalidSupply, id, delta)
}
