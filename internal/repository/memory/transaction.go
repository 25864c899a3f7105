package memory

import (
	"context"
	"database/sql"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"bondmarket/internal/domain"
	"bondmarket/internal/repository"
)

// TransactionRepository implements repository.TransactionRepository over a Store.
type TransactionRepository struct {
	store *Store
}

// NewTransactionRepository creates a TransactionRepository backed by s.
func NewTransactionRepository(s *Store) repository.TransactionRepository {
	return &TransactionRepository{store: s}
}

// CreateTransaction appends to the log. Inside a transaction the record is
// appended on Commit; reads of the log only see committed records.
func (r *TransactionRepository) CreateTransaction(ctx context.Context, q repository.DBExecutor, transaction *domain.Transaction) error {
	s := r.store
	record := *transaction
	apply := func() { s.transactions = append(s.transactions, record) }

	tx := s.txOf(q)
	if tx == nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		apply()
		return nil
	}

	tx.mu.Lock()
	defer tx.mu.Unlock()
	if tx.done {
		return sql.ErrTxDone
	}
	tx.stage(apply)
	return nil
}

func (r *TransactionRepository) GetTransactionsByUser(ctx context.Context, q repository.DBExecutor, userAddress string, limit, offset int) ([]domain.Transaction, int64, error) {
	r.store.mu.RLock()
	var mine []domain.Transaction
	for _, t := range r.store.transactions {
		if t.UserAddress == userAddress {
			mine = append(mine, t)
		}
	}
	r.store.mu.RUnlock()

	// Newest first; the log is appended in time order, so reverse before the
	// stable sort keeps equal timestamps newest first too.
	for i, j := 0, len(mine)-1; i < j; i, j = i+1, j-1 {
		mine[i], mine[j] = mine[j], mine[i]
	}
	sort.SliceStable(mine, func(i, j int) bool {
		return mine[i].Timestamp.After(mine[j].Timestamp)
	})

	total := int64(len(mine))
	page := []domain.Transaction{}
	if offset < len(mine) {
		end := len(mine)
		if limit >= 0 && offset+limit < end {
			end = offset + limit
		}
		page = append(page, mine[offset:end]...)
	}
	return page, total, nil
}

func (r *TransactionRepository) CountTransactions(ctx context.Context, q repository.DBExecutor) (int64, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	return int64(len(r.store.transactions)), nil
}

func (r *TransactionRepository) SumVolumeSince(ctx context.Context, q repository.DBExecutor, since time.Time) (decimal.Decimal, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	volume := decimal.Zero
	for _, t := range r.store.transactions {
		if !t.Timestamp.Before(since) {
			volume = volume.Add(t.TotalAmount)
		}
	}
	return volume, nil
}
