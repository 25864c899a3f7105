// internal/service/trade_service_test.go
package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"bondmarket/internal/domain"
	"bondmarket/internal/util"
	"bondmarket/pkg/db"
)

var referenceNow = time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC)

type tradeMocks struct {
	bonds        *MockBondRepository
	portfolios   *MockPortfolioRepository
	transactions *MockTransactionRepository
	beginner     *MockDBBeginner
	executor     *MockDBExecutor
	tx           *MockTxController
}

func newTradeMocks() *tradeMocks {
	return &tradeMocks{
		bonds:        new(MockBondRepository),
		portfolios:   new(MockPortfolioRepository),
		transactions: new(MockTransactionRepository),
		beginner:     new(MockDBBeginner),
		executor:     new(MockDBExecutor),
		tx:           new(MockTxController),
	}
}

func (m *tradeMocks) deps() Dependencies {
	return Dependencies{
		DBBeginner:   m.beginner,
		DBExecutor:   m.executor,
		Bonds:        m.bonds,
		Portfolios:   m.portfolios,
		Transactions: m.transactions,
		BeginTx: func(ctx context.Context, dbConn db.DBTxBeginner) (db.TxController, error) {
			return m.tx, nil
		},
		CommitTx: func(tx db.TxController) error {
			return m.tx.Commit()
		},
		RollbackTx: func(tx db.TxController) {
			_ = m.tx.Rollback()
		},
		Clock: func() time.Time { return referenceNow },
	}
}

func (m *tradeMocks) assertExpectations(t *testing.T) {
	mock.AssertExpectationsForObjects(t, m.beginner, m.executor, m.tx, m.bonds, m.portfolios, m.transactions)
}

func ghana() *domain.Bond {
	for _, b := range domain.SeedBonds() {
		if b.Country == "Ghana" {
			return &b
		}
	}
	panic("ghana bond missing from seed set")
}

// TestExecuteTrade tests the ExecuteTrade method of TradeService.
func TestExecuteTrade(t *testing.T) {
	t.Run("SuccessfulBuy", func(t *testing.T) {
		ctx := context.Background()
		m := newTradeMocks()
		service := NewTradeService(m.deps())

		bond := ghana()
		tradePrice := decimal.RequireFromString("939.5")
		repriced := *bond
		repriced.CurrentPrice = tradePrice
		repriced.AvailableSupply = 7495

		m.tx.On("Commit").Return(nil).Once()
		m.tx.On("Rollback").Return(nil).Maybe() // deferred rollback after commit is a no-op

		m.bonds.On("GetBondByIDForUpdate", ctx, mock.Anything, bond.ID).Return(bond, nil).Once()
		m.portfolios.On("EnsurePortfolio", ctx, mock.Anything, mock.AnythingOfType("*domain.Portfolio")).Return(nil).Once()
		m.portfolios.On("GetPortfolioByUserForUpdate", ctx, mock.Anything, "0xabc").Return(nil, util.ErrNotFound).Once()
		m.transactions.On("CreateTransaction", ctx, mock.Anything, mock.AnythingOfType("*domain.Transaction")).Return(nil).Once()
		m.bonds.On("AdjustBondSupply", ctx, mock.Anything, bond.ID, int64(-5)).Return(int64(7495), nil).Once()
		m.bonds.On("UpdateBondPrice", ctx, mock.Anything, bond.ID, mock.MatchedBy(func(p decimal.Decimal) bool {
			return p.Equal(tradePrice)
		})).Return(nil).Once()
		m.bonds.On("GetBondByID", ctx, mock.Anything, bond.ID).Return(&repriced, nil).Once()
		m.portfolios.On("UpsertPortfolio", ctx, mock.Anything, mock.MatchedBy(func(p *domain.Portfolio) bool {
			return p.UserAddress == "0xabc" && p.Quantity(bond.ID) == 5
		})).Return(nil).Once()

		receipt, err := service.ExecuteTrade(ctx, domain.TradeRequest{UserAddress: "0xabc", BondID: bond.ID, Side: domain.TradeSideBuy, Quantity: 5})

		assert.NoError(t, err)
		assert.NotNil(t, receipt)
		assert.True(t, tradePrice.Equal(receipt.TradePrice))
		assert.True(t, decimal.RequireFromString("4697.5").Equal(receipt.TotalAmount))
		assert.True(t, receipt.TotalAmount.Equal(receipt.NewPortfolioValue))
		assert.Equal(t, int64(7495), receipt.AvailableSupply)
		assert.NotEmpty(t, receipt.TransactionID)

		m.assertExpectations(t)
	})

	t.Run("InvalidRequest", func(t *testing.T) {
		ctx := context.Background()
		m := newTradeMocks()
		service := NewTradeService(m.deps())

		for _, req := range []domain.TradeRequest{
			{UserAddress: "0xabc", BondID: "b1", Side: domain.TradeSideBuy, Quantity: 0},
			{UserAddress: "0xabc", BondID: "b1", Side: domain.TradeSideSell, Quantity: -3},
			{UserAddress: "0xabc", BondID: "b1", Side: "hold", Quantity: 1},
			{UserAddress: " ", BondID: "b1", Side: domain.TradeSideBuy, Quantity: 1},
			{UserAddress: "0xabc", BondID: "", Side: domain.TradeSideBuy, Quantity: 1},
		} {
			receipt, err := service.ExecuteTrade(ctx, req)
			assert.ErrorIs(t, err, util.ErrInvalidTrade)
			assert.Nil(t, receipt)
		}

		// Validation happens before any transaction is begun.
		m.beginner.AssertNotCalled(t, "BeginTxx", mock.Anything, mock.Anything)
		m.tx.AssertNotCalled(t, "Commit")
		m.tx.AssertNotCalled(t, "Rollback")

		m.assertExpectations(t)
	})

	t.Run("BondNotFound", func(t *testing.T) {
		ctx := context.Background()
		m := newTradeMocks()
		service := NewTradeService(m.deps())

		m.bonds.On("GetBondByIDForUpdate", ctx, mock.Anything, "missing").Return(nil, util.ErrBondNotFound).Once()
		m.tx.On("Rollback").Return(nil).Once()

		receipt, err := service.ExecuteTrade(ctx, domain.TradeRequest{UserAddress: "0xabc", BondID: "missing", Side: domain.TradeSideBuy, Quantity: 1})

		assert.ErrorIs(t, err, util.ErrBondNotFound)
		assert.Nil(t, receipt)
		m.tx.AssertNotCalled(t, "Commit")
		m.transactions.AssertNotCalled(t, "CreateTransaction", mock.Anything, mock.Anything, mock.Anything)

		m.assertExpectations(t)
	})

	t.Run("InsufficientSupply", func(t *testing.T) {
		ctx := context.Background()
		m := newTradeMocks()
		service := NewTradeService(m.deps())
		bond := ghana()

		m.bonds.On("GetBondByIDForUpdate", ctx, mock.Anything, bond.ID).Return(bond, nil).Once()
		m.tx.On("Rollback").Return(nil).Once()

		_, err := service.ExecuteTrade(ctx, domain.TradeRequest{UserAddress: "0xabc", BondID: bond.ID, Side: domain.TradeSideBuy, Quantity: 7501})

		assert.ErrorIs(t, err, util.ErrInsufficientSupply)
		assert.Contains(t, err.Error(), "available 7500")
		m.tx.AssertNotCalled(t, "Commit")

		m.assertExpectations(t)
	})

	t.Run("InsufficientHoldings", func(t *testing.T) {
		ctx := context.Background()
		m := newTradeMocks()
		service := NewTradeService(m.deps())
		bond := ghana()

		portfolio := domain.NewPortfolio("0xabc", referenceNow)
		portfolio.Apply(bond.ID, domain.TradeSideBuy, 2)

		m.bonds.On("GetBondByIDForUpdate", ctx, mock.Anything, bond.ID).Return(bond, nil).Once()
		m.portfolios.On("EnsurePortfolio", ctx, mock.Anything, mock.AnythingOfType("*domain.Portfolio")).Return(nil).Once()
		m.portfolios.On("GetPortfolioByUserForUpdate", ctx, mock.Anything, "0xabc").Return(portfolio, nil).Once()
		m.tx.On("Rollback").Return(nil).Once()

		_, err := service.ExecuteTrade(ctx, domain.TradeRequest{UserAddress: "0xabc", BondID: bond.ID, Side: domain.TradeSideSell, Quantity: 3})

		assert.ErrorIs(t, err, util.ErrInsufficientHoldings)
		m.tx.AssertNotCalled(t, "Commit")
		m.transactions.AssertNotCalled(t, "CreateTransaction", mock.Anything, mock.Anything, mock.Anything)
		m.bonds.AssertNotCalled(t, "AdjustBondSupply", mock.Anything, mock.Anything, mock.Anything, mock.Anything)

		m.assertExpectations(t)
	})

	t.Run("SupplyUpdateFailureRollsBack", func(t *testing.T) {
		ctx := context.Background()
		m := newTradeMocks()
		service := NewTradeService(m.deps())
		bond := ghana()
		storeErr := errors.New("connection reset")

		m.bonds.On("GetBondByIDForUpdate", ctx, mock.Anything, bond.ID).Return(bond, nil).Once()
		m.portfolios.On("EnsurePortfolio", ctx, mock.Anything, mock.AnythingOfType("*domain.Portfolio")).Return(nil).Once()
		m.portfolios.On("GetPortfolioByUserForUpdate", ctx, mock.Anything, "0xabc").Return(nil, util.ErrNotFound).Once()
		m.transactions.On("CreateTransaction", ctx, mock.Anything, mock.AnythingOfType("*domain.Transaction")).Return(nil).Once()
		m.bonds.On("AdjustBondSupply", ctx, mock.Anything, bond.ID, int64(-1)).Return(int64(0), storeErr).Once()
		m.tx.On("Rollback").Return(nil).Once()

		_, err := service.ExecuteTrade(ctx, domain.TradeRequest{UserAddress: "0xabc", BondID: bond.ID, Side: domain.TradeSideBuy, Quantity: 1})

		assert.ErrorIs(t, err, storeErr)
		m.tx.AssertNotCalled(t, "Commit")
		m.portfolios.AssertNotCalled(t, "UpsertPortfolio", mock.Anything, mock.Anything, mock.Anything)

		m.assertExpectations(t)
	})

	t.Run("BeginTxFailure", func(t *testing.T) {
		ctx := context.Background()
		m := newTradeMocks()
		deps := m.deps()
		deps.BeginTx = func(ctx context.Context, dbConn db.DBTxBeginner) (db.TxController, error) {
			return nil, errors.New("too many connections")
		}
		service := NewTradeService(deps)

		_, err := service.ExecuteTrade(ctx, domain.TradeRequest{UserAddress: "0xabc", BondID: "b1", Side: domain.TradeSideBuy, Quantity: 1})

		assert.ErrorIs(t, err, util.ErrStoreUnavailable)
		m.assertExpectations(t)
	})

	t.Run("CommitFailure", func(t *testing.T) {
		ctx := context.Background()
		m := newTradeMocks()
		service := NewTradeService(m.deps())
		bond := ghana()

		m.bonds.On("GetBondByIDForUpdate", ctx, mock.Anything, bond.ID).Return(bond, nil).Once()
		m.portfolios.On("EnsurePortfolio", ctx, mock.Anything, mock.AnythingOfType("*domain.Portfolio")).Return(nil).Once()
		m.portfolios.On("GetPortfolioByUserForUpdate", ctx, mock.Anything, "0xabc").Return(nil, util.ErrNotFound).Once()
		m.transactions.On("CreateTransaction", ctx, mock.Anything, mock.AnythingOfType("*domain.Transaction")).Return(nil).Once()
		m.bonds.On("AdjustBondSupply", ctx, mock.Anything, bond.ID, int64(-1)).Return(int64(7499), nil).Once()
		m.bonds.On("UpdateBondPrice", ctx, mock.Anything, bond.ID, mock.Anything).Return(nil).Once()
		m.bonds.On("GetBondByID", ctx, mock.Anything, bond.ID).Return(bond, nil).Once()
		m.portfolios.On("UpsertPortfolio", ctx, mock.Anything, mock.Anything).Return(nil).Once()
		m.tx.On("Commit").Return(errors.New("serialization failure")).Once()
		m.tx.On("Rollback").Return(nil).Once()

		receipt, err := service.ExecuteTrade(ctx, domain.TradeRequest{UserAddress: "0xabc", BondID: bond.ID, Side: domain.TradeSideBuy, Quantity: 1})

		assert.ErrorIs(t, err, util.ErrStoreUnavailable)
		assert.Nil(t, receipt)
		m.assertExpectations(t)
	})
}
