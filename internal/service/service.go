// internal/service/service.go
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"bondmarket/internal/domain"
	"bondmarket/internal/lock"
	"bondmarket/internal/pricing"
	"bondmarket/internal/repository"
	"bondmarket/internal/util"
	"bondmarket/pkg/db"
)

// EventPublisher receives market events after the state they describe is committed.
type EventPublisher interface {
	Publish(event domain.MarketEvent)
}

// processLocker serializes services that were built without an explicit Locker.
var processLocker = lock.NewKeyedMutex()

type nopPublisher struct{}

func (nopPublisher) Publish(domain.MarketEvent) {}

// Dependencies are shared by every service.
type Dependencies struct {
	DBBeginner   db.DBTxBeginner       // For starting transactions (e.g., *sqlx.DB)
	DBExecutor   repository.DBExecutor // For non-transactional reads (e.g., *sqlx.DB)
	Bonds        repository.BondRepository
	Portfolios   repository.PortfolioRepository
	Transactions repository.TransactionRepository
	BeginTx      db.BeginTxFunc
	CommitTx     db.CommitTxFunc
	RollbackTx   db.RollbackTxFunc
	Locker       lock.Locker
	Publisher    EventPublisher
	Clock        func() time.Time
	Demand       pricing.DemandSource
	Logger       *slog.Logger
}

func (d Dependencies) withDefaults() Dependencies {
	if d.BeginTx == nil {
		d.BeginTx = db.BeginTx
	}
	if d.CommitTx == nil {
		d.CommitTx = db.CommitTx
	}
	if d.RollbackTx == nil {
		d.RollbackTx = db.RollbackTx
	}
	if d.Locker == nil {
		d.Locker = processLocker
	}
	if d.Publisher == nil {
		d.Publisher = nopPublisher{}
	}
	if d.Clock == nil {
		d.Clock = func() time.Time { return time.Now().UTC() }
	}
	if d.Demand == nil {
		d.Demand = pricing.UniformDemand{Min: 0.8, Max: 1.3}
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	return d
}

// begin starts a transaction and returns it along with its executor view.
func (d Dependencies) begin(ctx context.Context, op string) (db.TxController, repository.DBExecutor, error) {
	txController, err := d.BeginTx(ctx, d.DBBeginner)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w: failed to begin transaction: %w", op, util.ErrStoreUnavailable, err)
	}
	txExecutor, ok := txController.(repository.DBExecutor)
	if !ok {
		d.RollbackTx(txController)
		return nil, nil, fmt.Errorf("%s: transaction controller does not implement DBExecutor", op)
	}
	return txController, txExecutor, nil
}

func (d Dependencies) commit(op string, txController db.TxController) error {
	if err := d.CommitTx(txController); err != nil {
		return fmt.Errorf("%s: %w: failed to commit transaction: %w", op, util.ErrStoreUnavailable, err)
	}
	return nil
}

// lockKeys acquires keys in the given order and returns a function releasing
// them in reverse.
func (d Dependencies) lockKeys(ctx context.Context, keys ...string) (func(), error) {
	unlocks := make([]func(), 0, len(keys))
	release := func() {
		for i := len(unlocks) - 1; i >= 0; i-- {
			unlocks[i]()
		}
	}
	for _, key := range keys {
		unlock, err := d.Locker.Lock(ctx, key)
		if err != nil {
			release()
			return nil, fmt.Errorf("%w: %w", util.ErrStoreUnavailable, err)
		}
		unlocks = append(unlocks, unlock)
	}
	return release, nil
}
