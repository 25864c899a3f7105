package postgres_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bondmarket/internal/config"
	"bondmarket/internal/domain"
	"bondmarket/internal/pricing"
	"bondmarket/internal/repository/postgres"
	"bondmarket/internal/service"
	"bondmarket/internal/util"
	"bondmarket/pkg/db"
)

// passLocker grants every lock at once, leaving serialization to the
// database row locks and guarded updates.
type passLocker struct{}

func (passLocker) Lock(context.Context, string) (func(), error) {
	return func() {}, nil
}

type pgMarket struct {
	db      *sqlx.DB
	deps    service.Dependencies
	catalog service.CatalogService
	trades  service.TradeService
	folios  service.PortfolioService
	stats   service.MarketService
}

// newPGMarket connects to the configured Postgres and runs every test in a
// fresh schema that is dropped afterwards.
func newPGMarket(t *testing.T) *pgMarket {
	t.Helper()
	cfg, err := config.LoadConfig()
	require.NoError(t, err)
	if cfg.DB.URL == "" && os.Getenv("DB_HOST") == "" {
		t.Skip("DATABASE_URL or DB_HOST not set; skipping PostgreSQL tests")
	}
	ctx := context.Background()

	admin, err := db.NewPostgresDB(ctx, cfg.DB)
	require.NoError(t, err)
	schema := fmt.Sprintf("bondmarket_test_%d", time.Now().UnixNano())
	_, err = admin.ExecContext(ctx, "CREATE SCHEMA "+schema)
	require.NoError(t, err)

	scoped := cfg.DB
	scoped.SearchPath = schema
	database, err := db.NewPostgresDB(ctx, scoped)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = database.Close()
		_, _ = admin.ExecContext(context.Background(), "DROP SCHEMA "+schema+" CASCADE")
		_ = admin.Close()
	})
	require.NoError(t, db.EnsureSchema(ctx, database))

	deps := service.Dependencies{
		DBBeginner:   database,
		DBExecutor:   database,
		Bonds:        postgres.NewBondRepository(database),
		Portfolios:   postgres.NewPortfolioRepository(database),
		Transactions: postgres.NewTransactionRepository(database),
		Locker:       passLocker{},
		Demand:       pricing.FixedDemand(pricing.NeutralDemand),
	}
	return &pgMarket{
		db:      database,
		deps:    deps,
		catalog: service.NewCatalogService(deps),
		trades:  service.NewTradeService(deps),
		folios:  service.NewPortfolioService(deps),
		stats:   service.NewMarketService(deps),
	}
}

func (m *pgMarket) seed(t *testing.T) {
	t.Helper()
	_, err := m.catalog.Seed(context.Background())
	require.NoError(t, err)
}

func (m *pgMarket) bond(t *testing.T, country string) domain.Bond {
	t.Helper()
	bonds, err := m.deps.Bonds.ListBonds(context.Background(), m.db)
	require.NoError(t, err)
	for _, b := range bonds {
		if b.Country == country {
			return b
		}
	}
	t.Fatalf("bond %s not in catalog", country)
	return domain.Bond{}
}

func (m *pgMarket) transactionCount(t *testing.T) int64 {
	t.Helper()
	n, err := m.deps.Transactions.CountTransactions(context.Background(), m.db)
	require.NoError(t, err)
	return n
}

func buy(user, bondID string, qty int64) domain.TradeRequest {
	return domain.TradeRequest{UserAddress: user, BondID: bondID, Side: domain.TradeSideBuy, Quantity: qty}
}

func sell(user, bondID string, qty int64) domain.TradeRequest {
	return domain.TradeRequest{UserAddress: user, BondID: bondID, Side: domain.TradeSideSell, Quantity: qty}
}

func TestSeedHasSingleWinner(t *testing.T) {
	m := newPGMarket(t)
	ctx := context.Background()

	// Separate services do not share a singleflight group, so only the
	// advisory lock keeps the catalog from being seeded twice.
	var (
		wg       sync.WaitGroup
		inserted atomic.Int64
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := service.NewCatalogService(m.deps).Seed(ctx)
			if assert.NoError(t, err) {
				inserted.Add(int64(n))
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(4), inserted.Load())

	bonds, err := m.deps.Bonds.ListBonds(ctx, m.db)
	require.NoError(t, err)
	require.Len(t, bonds, 4)
	var countries []string
	for _, b := range bonds {
		countries = append(countries, b.Country)
	}
	assert.Equal(t, []string{"Ghana", "Nigeria", "Kenya", "South Africa"}, countries)

	ghana := m.bond(t, "Ghana")
	assert.Equal(t, domain.MustParseDate("2024-01-01"), ghana.IssueDate)
	assert.Equal(t, domain.MustParseDate("2029-12-31"), ghana.MaturityDate)
	assert.True(t, decimal.NewFromInt(950).Equal(ghana.CurrentPrice))
	assert.True(t, decimal.RequireFromString("2.3").Equal(ghana.RiskFactor))
}

func TestBuyThenSellScenario(t *testing.T) {
	m := newPGMarket(t)
	m.seed(t)
	ctx := context.Background()
	ghana := m.bond(t, "Ghana")

	receipt, err := m.trades.ExecuteTrade(ctx, buy("0xabc", ghana.ID, 5))
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("939.5").Equal(receipt.TradePrice), "got %s", receipt.TradePrice)
	assert.Equal(t, int64(7495), receipt.AvailableSupply)

	afterBuy := m.bond(t, "Ghana")
	assert.Equal(t, int64(7495), afterBuy.AvailableSupply)
	assert.True(t, receipt.TradePrice.Equal(afterBuy.CurrentPrice))

	view, err := m.folios.GetPortfolio(ctx, "0xabc")
	require.NoError(t, err)
	assert.Equal(t, domain.Holdings{ghana.ID: 5}, view.Portfolio.Bonds)
	assert.True(t, decimal.RequireFromString("4697.5").Equal(view.Portfolio.TotalValue), "got %s", view.Portfolio.TotalValue)
	require.Len(t, view.DetailedHoldings, 1)

	// Overselling is rejected with nothing written.
	_, err = m.trades.ExecuteTrade(ctx, sell("0xabc", ghana.ID, 6))
	assert.ErrorIs(t, err, util.ErrInsufficientHoldings)
	assert.Equal(t, afterBuy, m.bond(t, "Ghana"))
	assert.Equal(t, int64(1), m.transactionCount(t))
	again, err := m.folios.GetPortfolio(ctx, "0xabc")
	require.NoError(t, err)
	assert.Equal(t, view.Portfolio.Bonds, again.Portfolio.Bonds)

	// A rejected first trade leaves no placeholder portfolio behind.
	_, err = m.trades.ExecuteTrade(ctx, sell("0xnobody", ghana.ID, 1))
	assert.ErrorIs(t, err, util.ErrInsufficientHoldings)
	_, err = m.deps.Portfolios.GetPortfolioByUser(ctx, m.db, "0xnobody")
	assert.ErrorIs(t, err, util.ErrNotFound)

	receipt, err = m.trades.ExecuteTrade(ctx, sell("0xabc", ghana.ID, 5))
	require.NoError(t, err)
	assert.Equal(t, int64(7500), receipt.AvailableSupply)

	emptied, err := m.folios.GetPortfolio(ctx, "0xabc")
	require.NoError(t, err)
	assert.Empty(t, emptied.Portfolio.Bonds)
	assert.Equal(t, view.Portfolio.ID, emptied.Portfolio.ID)
	assert.True(t, emptied.Portfolio.TotalValue.IsZero())
}

func TestTradeOnUnknownBondWritesNothing(t *testing.T) {
	m := newPGMarket(t)
	m.seed(t)

	_, err := m.trades.ExecuteTrade(context.Background(), buy("0xabc", "no-such-bond", 1))
	assert.ErrorIs(t, err, util.ErrBondNotFound)
	assert.Zero(t, m.transactionCount(t))
}

func TestConcurrentBuysNeverOversell(t *testing.T) {
	m := newPGMarket(t)
	m.seed(t)
	ctx := context.Background()
	kenya := m.bond(t, "Kenya")

	const buyers = 16
	qty := kenya.AvailableSupply/10 + 1
	var (
		wg       sync.WaitGroup
		accepted atomic.Int64
	)
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := m.trades.ExecuteTrade(ctx, buy(fmt.Sprintf("0xuser%d", i%4), kenya.ID, qty))
			switch {
			case err == nil:
				accepted.Add(qty)
			case errors.Is(err, util.ErrInsufficientSupply):
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	assert.LessOrEqual(t, accepted.Load(), kenya.AvailableSupply)
	assert.Equal(t, kenya.AvailableSupply/qty*qty, accepted.Load())

	after := m.bond(t, "Kenya")
	assert.Equal(t, kenya.AvailableSupply-accepted.Load(), after.AvailableSupply)
	assert.Equal(t, accepted.Load()/qty, m.transactionCount(t))

	var held int64
	for u := 0; u < 4; u++ {
		view, err := m.folios.GetPortfolio(ctx, fmt.Sprintf("0xuser%d", u))
		require.NoError(t, err)
		held += view.Portfolio.Quantity(kenya.ID)
	}
	assert.Equal(t, accepted.Load(), held)
}

func TestFirstTradesOnDifferentBondsKeepEveryHolding(t *testing.T) {
	m := newPGMarket(t)
	m.seed(t)
	ctx := context.Background()

	bonds, err := m.deps.Bonds.ListBonds(ctx, m.db)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for _, b := range bonds {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, err := m.trades.ExecuteTrade(ctx, buy("0xnewcomer", id, 1))
			assert.NoError(t, err)
		}(b.ID)
	}
	wg.Wait()

	view, err := m.folios.GetPortfolio(ctx, "0xnewcomer")
	require.NoError(t, err)
	assert.Len(t, view.Portfolio.Bonds, len(bonds))
	for _, b := range bonds {
		assert.Equal(t, int64(1), view.Portfolio.Quantity(b.ID), b.Country)
	}
}

func TestTransactionHistoryPaging(t *testing.T) {
	m := newPGMarket(t)
	m.seed(t)
	ctx := context.Background()
	ghana := m.bond(t, "Ghana")

	var tick atomic.Int64
	base := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	deps := m.deps
	deps.Clock = func() time.Time { return base.Add(time.Duration(tick.Add(1)) * time.Second) }
	trades := service.NewTradeService(deps)

	for i := int64(1); i <= 3; i++ {
		_, err := trades.ExecuteTrade(ctx, buy("0xabc", ghana.ID, i))
		require.NoError(t, err)
	}
	_, err := trades.ExecuteTrade(ctx, buy("0xother", ghana.ID, 9))
	require.NoError(t, err)

	page, total, err := m.folios.GetTransactionHistory(ctx, "0xabc", 2, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, page, 2)
	assert.Equal(t, int64(3), page[0].Quantity)
	assert.Equal(t, int64(2), page[1].Quantity)
	assert.Equal(t, domain.TradeSideBuy, page[0].TransactionType)
	assert.True(t, page[0].PricePerBond.Mul(decimal.NewFromInt(3)).Equal(page[0].TotalAmount))

	rest, total, err := m.folios.GetTransactionHistory(ctx, "0xabc", 2, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, rest, 1)
	assert.Equal(t, int64(1), rest[0].Quantity)

	stats, err := m.stats.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), stats.TotalTransactions)
	assert.Equal(t, 4, stats.ActiveBonds)
}

func TestBondRepositoryGuards(t *testing.T) {
	m := newPGMarket(t)
	ctx := context.Background()
	repo := m.deps.Bonds

	volume, err := m.deps.Transactions.SumVolumeSince(ctx, m.db, time.Time{})
	require.NoError(t, err)
	assert.True(t, volume.IsZero())

	m.seed(t)
	ghana := m.bond(t, "Ghana")

	_, err = repo.AdjustBondSupply(ctx, m.db, ghana.ID, -(ghana.AvailableSupply + 1))
	assert.ErrorIs(t, err, util.ErrInvalidSupply)
	_, err = repo.AdjustBondSupply(ctx, m.db, ghana.ID, ghana.TotalSupply)
	assert.ErrorIs(t, err, util.ErrInvalidSupply)
	_, err = repo.AdjustBondSupply(ctx, m.db, "missing", 1)
	assert.ErrorIs(t, err, util.ErrBondNotFound)

	left, err := repo.AdjustBondSupply(ctx, m.db, ghana.ID, -ghana.AvailableSupply)
	require.NoError(t, err)
	assert.Zero(t, left)

	_, err = repo.GetBondByID(ctx, m.db, "missing")
	assert.ErrorIs(t, err, util.ErrBondNotFound)
	assert.ErrorIs(t, repo.UpdateBondPrice(ctx, m.db, "missing", decimal.NewFromInt(1)), util.ErrBondNotFound)
}

func TestPortfolioRepositoryKeepsIdentity(t *testing.T) {
	m := newPGMarket(t)
	ctx := context.Background()
	repo := m.deps.Portfolios
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	first := domain.NewPortfolio("0xabc", created)
	first.Apply("b1", domain.TradeSideBuy, 2)
	require.NoError(t, repo.UpsertPortfolio(ctx, m.db, first))

	require.NoError(t, repo.EnsurePortfolio(ctx, m.db, domain.NewPortfolio("0xabc", created.Add(time.Hour))))

	second := domain.NewPortfolio("0xabc", created.Add(2*time.Hour))
	second.Apply("b2", domain.TradeSideBuy, 7)
	require.NoError(t, repo.UpsertPortfolio(ctx, m.db, second))
	assert.Equal(t, first.ID, second.ID)
	assert.True(t, created.Equal(second.CreatedAt))

	got, err := repo.GetPortfolioByUser(ctx, m.db, "0xabc")
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)
	assert.Equal(t, domain.Holdings{"b2": 7}, got.Bonds)

	_, err = repo.GetPortfolioByUser(ctx, m.db, "0xnobody")
	assert.ErrorIs(t, err, util.ErrNotFound)
}
