// internal/service/catalog_service.go
package service

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"bondmarket/internal/domain"
	"bondmarket/internal/lock"
	"bondmarket/internal/pricing"
)

// CatalogService defines the bond catalog operations.
type CatalogService interface {
	// Seed inserts the fixed bond set when the catalog is empty. It returns
	// the number of bonds inserted.
	Seed(ctx context.Context) (int, error)
	// ListBonds seeds if needed, reprices every bond with a sampled demand
	// signal, and returns the catalog in insertion order.
	ListBonds(ctx context.Context) ([]domain.Bond, error)
	GetBond(ctx context.Context, id string) (*domain.Bond, error)
	GetYield(ctx context.Context, id string) (*domain.YieldQuote, error)
}

// seedTimeout bounds a shared seeding attempt, which no longer follows the
// cancellation of the request that started it.
const seedTimeout = 30 * time.Second

type catalogService struct {
	deps  Dependencies
	group singleflight.Group
}

// NewCatalogService creates a new instance of CatalogService.
func NewCatalogService(deps Dependencies) CatalogService {
	return &catalogService{deps: deps.withDefaults()}
}

func (s *catalogService) Seed(ctx context.Context) (int, error) {
	count, err := s.deps.Bonds.CountBonds(ctx, s.deps.DBExecutor)
	if err != nil {
		return 0, fmt.Errorf("seed: %w", err)
	}
	if count > 0 {
		return 0, nil
	}

	// Concurrent first-touch requests share one seeding attempt, so it must
	// not die with whichever request happened to start it.
	v, err, _ := s.group.Do("seed", func() (interface{}, error) {
		seedCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), seedTimeout)
		defer cancel()
		return s.seed(seedCtx)
	})
	if err != nil {
		return 0, err
	}
	return v.(int), nil
}

func (s *catalogService) seed(ctx context.Context) (int, error) {
	release, err := s.deps.lockKeys(ctx, lock.SeedKey)
	if err != nil {
		return 0, fmt.Errorf("seed: %w", err)
	}
	defer release()

	txController, txExecutor, err := s.deps.begin(ctx, "seed")
	if err != nil {
		return 0, err
	}
	defer s.deps.RollbackTx(txController)

	inserted, err := s.deps.Bonds.SeedBonds(ctx, txExecutor, domain.SeedBonds())
	if err != nil {
		return 0, fmt.Errorf("seed: %w", err)
	}
	if err := s.deps.commit("seed", txController); err != nil {
		return 0, err
	}
	if inserted > 0 {
		s.deps.Logger.Info("Bond catalog seeded", "bonds", inserted)
	}
	return inserted, nil
}

func (s *catalogService) ListBonds(ctx context.Context) ([]domain.Bond, error) {
	if _, err := s.Seed(ctx); err != nil {
		return nil, fmt.Errorf("list bonds: %w", err)
	}

	bonds, err := s.deps.Bonds.ListBonds(ctx, s.deps.DBExecutor)
	if err != nil {
		return nil, fmt.Errorf("list bonds: %w", err)
	}
	for _, b := range bonds {
		if err := s.refreshPrice(ctx, b.ID); err != nil {
			return nil, fmt.Errorf("list bonds: %w", err)
		}
	}

	bonds, err = s.deps.Bonds.ListBonds(ctx, s.deps.DBExecutor)
	if err != nil {
		return nil, fmt.Errorf("list bonds: failed to re-fetch bonds: %w", err)
	}
	return bonds, nil
}

// refreshPrice reprices one bond under its settlement lock so a concurrent
// trade never reads a half-applied price.
func (s *catalogService) refreshPrice(ctx context.Context, bondID string) error {
	release, err := s.deps.lockKeys(ctx, lock.BondKey(bondID))
	if err != nil {
		return fmt.Errorf("refresh price of %s: %w", bondID, err)
	}
	defer release()

	txController, txExecutor, err := s.deps.begin(ctx, "refresh price")
	if err != nil {
		return err
	}
	defer s.deps.RollbackTx(txController)

	bond, err := s.deps.Bonds.GetBondByIDForUpdate(ctx, txExecutor, bondID)
	if err != nil {
		return fmt.Errorf("refresh price: failed to get bond %s: %w", bondID, err)
	}
	price := pricing.Price(*bond, s.deps.Demand.Sample())
	if err := s.deps.Bonds.UpdateBondPrice(ctx, txExecutor, bondID, price); err != nil {
		return fmt.Errorf("refresh price: failed to update bond %s: %w", bondID, err)
	}
	if err := s.deps.commit("refresh price", txController); err != nil {
		return err
	}

	s.deps.Publisher.Publish(domain.MarketEvent{
		Type:            domain.MarketEventPriceUpdate,
		BondID:          bondID,
		Price:           price,
		AvailableSupply: bond.AvailableSupply,
		Timestamp:       s.deps.Clock(),
	})
	return nil
}

func (s *catalogService) GetBond(ctx context.Context, id string) (*domain.Bond, error) {
	bond, err := s.deps.Bonds.GetBondByID(ctx, s.deps.DBExecutor, id)
	if err != nil {
		return nil, fmt.Errorf("get bond %s: %w", id, err)
	}
	return bond, nil
}

func (s *catalogService) GetYield(ctx context.Context, id string) (*domain.YieldQuote, error) {
	bond, err := s.GetBond(ctx, id)
	if err != nil {
		return nil, err
	}
	return &domain.YieldQuote{
		BondID:       bond.ID,
		Country:      bond.Country,
		BaseYield:    bond.CouponRate,
		RiskFactor:   bond.RiskFactor,
		DynamicYield: pricing.Yield(*bond, s.deps.Clock()),
		CurrentPrice: bond.CurrentPrice,
		FaceValue:    bond.FaceValue,
	}, nil
}
