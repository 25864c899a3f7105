// internal/service/mocks_test.go
package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"bondmarket/internal/domain"
	"bondmarket/internal/repository"
)

// MockDBExecutor is a mock implementation of repository.DBExecutor.
type MockDBExecutor struct {
	mock.Mock
}

func (m *MockDBExecutor) GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	argsCalled := m.Called(ctx, dest, query, args)
	return argsCalled.Error(0)
}

func (m *MockDBExecutor) SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	argsCalled := m.Called(ctx, dest, query, args)
	return argsCalled.Error(0)
}

func (m *MockDBExecutor) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	argsCalled := m.Called(ctx, query, args)
	return argsCalled.Get(0).(sql.Result), argsCalled.Error(1)
}

func (m *MockDBExecutor) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	m.Called(ctx, query, args)
	return &sql.Row{}
}

// MockBondRepository is a mock implementation of repository.BondRepository.
type MockBondRepository struct {
	mock.Mock
}

func (m *MockBondRepository) SeedBonds(ctx context.Context, q repository.DBExecutor, bonds []domain.Bond) (int, error) {
	args := m.Called(ctx, q, bonds)
	return args.Int(0), args.Error(1)
}

func (m *MockBondRepository) CountBonds(ctx context.Context, q repository.DBExecutor) (int, error) {
	args := m.Called(ctx, q)
	return args.Int(0), args.Error(1)
}

func (m *MockBondRepository) GetBondByID(ctx context.Context, q repository.DBExecutor, id string) (*domain.Bond, error) {
	args := m.Called(ctx, q, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Bond), args.Error(1)
}

func (m *MockBondRepository) GetBondByIDForUpdate(ctx context.Context, q repository.DBExecutor, id string) (*domain.Bond, error) {
	args := m.Called(ctx, q, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Bond), args.Error(1)
}

func (m *MockBondRepository) ListBonds(ctx context.Context, q repository.DBExecutor) ([]domain.Bond, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Bond), args.Error(1)
}

func (m *MockBondRepository) UpdateBondPrice(ctx context.Context, q repository.DBExecutor, id string, price decimal.Decimal) error {
	args := m.Called(ctx, q, id, price)
	return args.Error(0)
}

func (m *MockBondRepository) AdjustBondSupply(ctx context.Context, q repository.DBExecutor, id string, delta int64) (int64, error) {
	args := m.Called(ctx, q, id, delta)
	return args.Get(0).(int64), args.Error(1)
}

// MockPortfolioRepository is a mock implementation of repository.PortfolioRepository.
type MockPortfolioRepository struct {
	mock.Mock
}

func (m *MockPortfolioRepository) GetPortfolioByUser(ctx context.Context, q repository.DBExecutor, userAddress string) (*domain.Portfolio, error) {
	args := m.Called(ctx, q, userAddress)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Portfolio), args.Error(1)
}

func (m *MockPortfolioRepository) GetPortfolioByUserForUpdate(ctx context.Context, q repository.DBExecutor, userAddress string) (*domain.Portfolio, error) {
	args := m.Called(ctx, q, userAddress)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Portfolio), args.Error(1)
}

func (m *MockPortfolioRepository) EnsurePortfolio(ctx context.Context, q repository.DBExecutor, portfolio *domain.Portfolio) error {
	args := m.Called(ctx, q, portfolio)
	return args.Error(0)
}

func (m *MockPortfolioRepository) UpsertPortfolio(ctx context.Context, q repository.DBExecutor, portfolio *domain.Portfolio) error {
	args := m.Called(ctx, q, portfolio)
	return args.Error(0)
}

// MockTransactionRepository is a mock implementation of repository.TransactionRepository.
type MockTransactionRepository struct {
	mock.Mock
}

func (m *MockTransactionRepository) CreateTransaction(ctx context.Context, q repository.DBExecutor, transaction *domain.Transaction) error {
	args := m.Called(ctx, q, transaction)
	return args.Error(0)
}

func (m *MockTransactionRepository) GetTransactionsByUser(ctx context.Context, q repository.DBExecutor, userAddress string, limit, offset int) ([]domain.Transaction, int64, error) {
	args := m.Called(ctx, q, userAddress, limit, offset)
	return args.Get(0).([]domain.Transaction), args.Get(1).(int64), args.Error(2)
}

func (m *MockTransactionRepository) CountTransactions(ctx context.Context, q repository.DBExecutor) (int64, error) {
	args := m.Called(ctx, q)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTransactionRepository) SumVolumeSince(ctx context.Context, q repository.DBExecutor, since time.Time) (decimal.Decimal, error) {
	args := m.Called(ctx, q, since)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

// MockDBBeginner is a mock implementation of db.DBTxBeginner.
type MockDBBeginner struct {
	mock.Mock
}

func (m *MockDBBeginner) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	args := m.Called(ctx, opts)
	return &sqlx.Tx{}, args.Error(1)
}

// MockTxController is a mock implementation of db.TxController.
// It also implicitly implements repository.DBExecutor for testing purposes
// by embedding MockDBExecutor.
type MockTxController struct {
	mock.Mock
	MockDBExecutor // Embed MockDBExecutor to satisfy repository.DBExecutor interface
}

func (m *MockTxController) Commit() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockTxController) Rollback() error {
	args := m.Called()
	return args.Error(0)
}
