// internal/service/trade_service.go
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"bondmarket/internal/domain"
	"bondmarket/internal/lock"
	"bondmarket/internal/pricing"
	"bondmarket/internal/repository"
	"bondmarket/internal/util"
)

// TradeService settles buy and sell orders against the AMM.
type TradeService interface {
	ExecuteTrade(ctx context.Context, req domain.TradeRequest) (*domain.TradeReceipt, error)
}

type tradeService struct {
	deps Dependencies
}

// NewTradeService creates a new instance of TradeService.
func NewTradeService(deps Dependencies) TradeService {
	return &tradeService{deps: deps.withDefaults()}
}

func validateTrade(req domain.TradeRequest) error {
	switch {
	case strings.TrimSpace(req.UserAddress) == "":
		return fmt.Errorf("%w: user_address is required", util.ErrInvalidTrade)
	case strings.TrimSpace(req.BondID) == "":
		return fmt.Errorf("%w: bond_id is required", util.ErrInvalidTrade)
	case req.Quantity <= 0:
		return fmt.Errorf("%w: quantity must be positive, got %d", util.ErrInvalidTrade, req.Quantity)
	case req.Side != domain.TradeSideBuy && req.Side != domain.TradeSideSell:
		return fmt.Errorf("%w: transaction_type must be buy or sell, got %q", util.ErrInvalidTrade, req.Side)
	}
	return nil
}

// ExecuteTrade settles a trade atomically. The bond lock is always taken
// before the user lock. Every business rule is checked before the first
// write, and any later failure rolls the whole settlement back.
func (s *tradeService) ExecuteTrade(ctx context.Context, req domain.TradeRequest) (*domain.TradeReceipt, error) {
	if err := validateTrade(req); err != nil {
		return nil, err
	}

	release, err := s.deps.lockKeys(ctx, lock.BondKey(req.BondID), lock.UserKey(req.UserAddress))
	if err != nil {
		return nil, fmt.Errorf("trade: %w", err)
	}
	defer release()

	txController, txExecutor, err := s.deps.begin(ctx, "trade")
	if err != nil {
		return nil, err
	}
	defer s.deps.RollbackTx(txController)

	bond, err := s.deps.Bonds.GetBondByIDForUpdate(ctx, txExecutor, req.BondID)
	if err != nil {
		return nil, fmt.Errorf("trade: failed to get bond %s: %w", req.BondID, err)
	}
	if req.Side == domain.TradeSideBuy && req.Quantity > bond.AvailableSupply {
		return nil, fmt.Errorf("%w: requested %d, available %d", util.ErrInsufficientSupply, req.Quantity, bond.AvailableSupply)
	}

	now := s.deps.Clock()
	if err := s.deps.Portfolios.EnsurePortfolio(ctx, txExecutor, domain.NewPortfolio(req.UserAddress, now)); err != nil {
		return nil, fmt.Errorf("trade: failed to create portfolio of %s: %w", req.UserAddress, err)
	}
	portfolio, err := s.deps.Portfolios.GetPortfolioByUserForUpdate(ctx, txExecutor, req.UserAddress)
	switch {
	case errors.Is(err, util.ErrNotFound):
		portfolio = domain.NewPortfolio(req.UserAddress, now)
	case err != nil:
		return nil, fmt.Errorf("trade: failed to get portfolio of %s: %w", req.UserAddress, err)
	}
	if req.Side == domain.TradeSideSell && req.Quantity > portfolio.Quantity(req.BondID) {
		return nil, fmt.Errorf("%w: requested %d, held %d", util.ErrInsufficientHoldings, req.Quantity, portfolio.Quantity(req.BondID))
	}

	price := pricing.Price(*bond, pricing.NeutralDemand)
	transaction := domain.NewTransaction(req.UserAddress, req.BondID, req.Side, req.Quantity, price, now)
	if err := s.deps.Transactions.CreateTransaction(ctx, txExecutor, transaction); err != nil {
		return nil, fmt.Errorf("trade: failed to create transaction: %w", err)
	}

	available, err := s.deps.Bonds.AdjustBondSupply(ctx, txExecutor, req.BondID, req.Side.SupplyDelta(req.Quantity))
	if err != nil {
		return nil, fmt.Errorf("trade: failed to adjust supply: %w", err)
	}
	if err := s.deps.Bonds.UpdateBondPrice(ctx, txExecutor, req.BondID, price); err != nil {
		return nil, fmt.Errorf("trade: failed to update price: %w", err)
	}

	portfolio.Apply(req.BondID, req.Side, req.Quantity)
	if err := s.revalue(ctx, txExecutor, portfolio); err != nil {
		return nil, fmt.Errorf("trade: %w", err)
	}
	portfolio.UpdatedAt = now
	if err := s.deps.Portfolios.UpsertPortfolio(ctx, txExecutor, portfolio); err != nil {
		return nil, fmt.Errorf("trade: failed to save portfolio: %w", err)
	}

	if err := s.deps.commit("trade", txController); err != nil {
		return nil, err
	}

	s.deps.Logger.Info("Trade settled",
		"transaction_id", transaction.ID,
		"user_address", req.UserAddress,
		"bond_id", req.BondID,
		"side", req.Side,
		"quantity", req.Quantity,
		"price", price.String(),
	)
	s.deps.Publisher.Publish(domain.MarketEvent{
		Type:            domain.MarketEventTrade,
		BondID:          req.BondID,
		Price:           price,
		AvailableSupply: available,
		Side:            req.Side,
		Quantity:        req.Quantity,
		Timestamp:       now,
	})

	return &domain.TradeReceipt{
		TransactionID:     transaction.ID,
		TradePrice:        price,
		TotalAmount:       transaction.TotalAmount,
		NewPortfolioValue: portfolio.TotalValue,
		AvailableSupply:   available,
	}, nil
}

// revalue recomputes the cached value and value-weighted yield of p from the
// bonds as seen inside the settlement transaction.
func (s *tradeService) revalue(ctx context.Context, q repository.DBExecutor, p *domain.Portfolio) error {
	totalValue := decimal.Zero
	weightedYield := decimal.Zero
	now := s.deps.Clock()

	for _, bondID := range p.Bonds.BondIDs() {
		bond, err := s.deps.Bonds.GetBondByID(ctx, q, bondID)
		if errors.Is(err, util.ErrBondNotFound) {
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to get held bond %s: %w", bondID, err)
		}
		value := bond.CurrentPrice.Mul(decimal.NewFromInt(p.Bonds[bondID]))
		totalValue = totalValue.Add(value)
		weightedYield = weightedYield.Add(pricing.Yield(*bond, now).Mul(value))
	}

	p.TotalValue = totalValue.Round(2)
	if totalValue.IsZero() {
		p.TotalYield = decimal.Zero
		return nil
	}
	p.TotalYield = weightedYield.Div(totalValue).Round(2)
	return nil
}
