package memory

import (
	"context"
	"database/sql"

	"bondmarket/internal/domain"
	"bondmarket/internal/repository"
	"bondmarket/internal/util"
)

// PortfolioRepository implements repository.PortfolioRepository over a Store.
type PortfolioRepository struct {
	store *Store
}

// NewPortfolioRepository creates a PortfolioRepository backed by s.
func NewPortfolioRepository(s *Store) repository.PortfolioRepository {
	return &PortfolioRepository{store: s}
}

func (r *PortfolioRepository) GetPortfolioByUser(ctx context.Context, q repository.DBExecutor, userAddress string) (*domain.Portfolio, error) {
	if tx := r.store.txOf(q); tx != nil {
		if p, ok := tx.portfolio(userAddress); ok {
			return p, nil
		}
	}

	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	p, ok := r.store.portfolios[userAddress]
	if !ok {
		return nil, util.ErrNotFound
	}
	return p.Clone(), nil
}

func (r *PortfolioRepository) GetPortfolioByUserForUpdate(ctx context.Context, q repository.DBExecutor, userAddress string) (*domain.Portfolio, error) {
	return r.GetPortfolioByUser(ctx, q, userAddress)
}

// EnsurePortfolio stores p unless the user already has a portfolio.
func (r *PortfolioRepository) EnsurePortfolio(ctx context.Context, q repository.DBExecutor, p *domain.Portfolio) error {
	if _, err := r.GetPortfolioByUser(ctx, q, p.UserAddress); err == nil {
		return nil
	}
	return r.write(q, p, false)
}

// UpsertPortfolio stores a copy of p. An existing portfolio keeps its ID and
// creation time.
func (r *PortfolioRepository) UpsertPortfolio(ctx context.Context, q repository.DBExecutor, p *domain.Portfolio) error {
	if prev, err := r.GetPortfolioByUser(ctx, q, p.UserAddress); err == nil {
		p.ID = prev.ID
		p.CreatedAt = prev.CreatedAt
	}
	return r.write(q, p, true)
}

func (r *PortfolioRepository) write(q repository.DBExecutor, p *domain.Portfolio, replace bool) error {
	s := r.store
	addr := p.UserAddress
	cp := p.Clone()
	apply := func() {
		prev, existed := s.portfolios[addr]
		if existed && !replace {
			return
		}
		stored := cp.Clone()
		if existed {
			stored.ID = prev.ID
			stored.CreatedAt = prev.CreatedAt
		}
		s.portfolios[addr] = stored
	}

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
	tx.portfolios[addr] = cp
	tx.stage(apply)
	return nil
}
