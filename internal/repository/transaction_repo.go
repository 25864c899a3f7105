// internal/repository/transaction_repo.go
package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"bondmarket/internal/domain"
)

// TransactionRepository defines the interface for the append-only trade log.
type TransactionRepository interface {
	// CreateTransaction appends a transaction record using the provided DBExecutor.
	CreateTransaction(ctx context.Context, q DBExecutor, transaction *domain.Transaction) error
	// GetTransactionsByUser returns a page of a user's transactions, newest first, and the user's total count.
	GetTransactionsByUser(ctx context.Context, q DBExecutor, userAddress string, limit, offset int) ([]domain.Transaction, int64, error)
	// CountTransactions returns the size of the whole log.
	CountTransactions(ctx context.Context, q DBExecutor) (int64, error)
	// SumVolumeSince totals the amount of transactions at or after since.
	SumVolumeSince(ctx context.Context, q DBExecutor, since time.Time) (decimal.Decimal, error)
}
