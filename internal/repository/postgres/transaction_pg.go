// internal/repository/postgres/transaction_pg.go
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"bondmarket/internal/domain"
	"bondmarket/internal/repository"
)

const transactionColumns = `id, user_address, bond_id, transaction_type, quantity, price_per_bond, total_amount, timestamp`

// TransactionRepository implements repository.TransactionRepository for PostgreSQL.
type TransactionRepository struct{}

// NewTransactionRepository creates a new TransactionRepository.
func NewTransactionRepository(db *sqlx.DB) repository.TransactionRepository {
	return &TransactionRepository{}
}

// CreateTransaction inserts a new transaction record into the database using the provided DBExecutor.
func (r *TransactionRepository) CreateTransaction(ctx context.Context, q repository.DBExecutor, transaction *domain.Transaction) error {
	query := `INSERT INTO transactions (` + transactionColumns + `)
              VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := q.ExecContext(ctx, query,
		transaction.ID,
		transaction.UserAddress,
		transaction.BondID,
		transaction.TransactionType,
		transaction.Quantity,
		transaction.PricePerBond,
		transaction.TotalAmount,
		transaction.Timestamp,
	)
	if err != nil {
		return storeError("create transaction", err)
	}
	return nil
}

// GetTransactionsByUser retrieves a paginated list of a user's transactions.
// It performs two queries: one for the data and one for the total count.
func (r *TransactionRepository) GetTransactionsByUser(ctx context.Context, q repository.DBExecutor, userAddress string, limit, offset int) ([]domain.Transaction, int64, error) {
	transactions := []domain.Transaction{}

	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE user_address = $1
		ORDER BY timestamp DESC, id
		LIMIT $2 OFFSET $3`
	err := q.SelectContext(ctx, &transactions, query, userAddress, limit, offset)
	if err != nil {
		return nil, 0, storeError(fmt.Sprintf("fetch transactions of %s", userAddress), err)
	}

	var totalCount int64
	err = q.GetContext(ctx, &totalCount, `SELECT COUNT(*) FROM transactions WHERE user_address = $1`, userAddress)
	if err != nil {
		return nil, 0, storeError(fmt.Sprintf("count transactions of %s", userAddress), err)
	}

	return transactions, totalCount, nil
}

// CountTransactions returns the size of the whole log.
func (r *TransactionRepository) CountTransactions(ctx context.Context, q repository.DBExecutor) (int64, error) {
	var count int64
	if err := q.GetContext(ctx, &count, `SELECT COUNT(*) FROM transactions`); err != nil {
		return 0, storeError("count transactions", err)
	}
	return count, nil
}

// SumVolumeSince totals total_amount over transactions at or after since.
func (r *TransactionRepository) SumVolumeSince(ctx context.Context, q repository.DBExecutor, since time.Time) (decimal.Decimal, error) {
	var volume decimal.Decimal
	query := `SELECT COALESCE(SUM(total_amount), 0) FROM transactions WHERE timestamp >= $1`
	if err := q.GetContext(ctx, &volume, query, since); err != nil {
		return decimal.Zero, storeError("sum transaction volume", err)
	}
	return volume, nil
}
