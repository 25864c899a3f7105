package memory

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"

	"bondmarket/internal/domain"
	"bondmarket/internal/repository"
	"bondmarket/internal/util"
)

// BondRepository implements repository.BondRepository over a Store.
type BondRepository struct {
	store *Store
}

// NewBondRepository creates a BondRepository backed by s.
func NewBondRepository(s *Store) repository.BondRepository {
	return &BondRepository{store: s}
}

// SeedBonds inserts bonds when the catalog is empty. Inside a transaction the
// bonds are staged and only inserted on Commit if the catalog is still empty.
func (r *BondRepository) SeedBonds(ctx context.Context, q repository.DBExecutor, bonds []domain.Bond) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s := r.store
	staged := make([]domain.Bond, len(bonds))
	copy(staged, bonds)

	insert := func() {
		if len(s.bonds) > 0 {
			return
		}
		for i := range staged {
			b := staged[i]
			s.bonds[b.ID] = &b
			s.bondOrder = append(s.bondOrder, b.ID)
		}
	}

	tx := s.txOf(q)
	if tx == nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		if len(s.bonds) > 0 {
			return 0, nil
		}
		insert()
		return len(staged), nil
	}

	s.mu.RLock()
	empty := len(s.bonds) == 0
	s.mu.RUnlock()

	tx.mu.Lock()
	defer tx.mu.Unlock()
	if tx.done {
		return 0, sql.ErrTxDone
	}
	if !empty || len(tx.seeded) > 0 {
		return 0, nil
	}
	for i := range staged {
		b := staged[i]
		tx.bonds[b.ID] = &b
		tx.seeded = append(tx.seeded, b.ID)
	}
	tx.stage(insert)
	return len(staged), nil
}

func (r *BondRepository) CountBonds(ctx context.Context, q repository.DBExecutor) (int, error) {
	bonds, err := r.ListBonds(ctx, q)
	if err != nil {
		return 0, err
	}
	return len(bonds), nil
}

func (r *BondRepository) GetBondByID(ctx context.Context, q repository.DBExecutor, id string) (*domain.Bond, error) {
	if tx := r.store.txOf(q); tx != nil {
		if b, ok := tx.bond(id); ok {
			return &b, nil
		}
	}

	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	b, ok := r.store.bonds[id]
	if !ok {
		return nil, util.ErrBondNotFound
	}
	cp := *b
	return &cp, nil
}

// GetBondByIDForUpdate is GetBondByID; row locking is left to internal/lock.
func (r *BondRepository) GetBondByIDForUpdate(ctx context.Context, q repository.DBExecutor, id string) (*domain.Bond, error) {
	return r.GetBondByID(ctx, q, id)
}

// ListBonds returns the catalog in insertion order. A transaction sees its
// own staged seed and writes.
func (r *BondRepository) ListBonds(ctx context.Context, q repository.DBExecutor) ([]domain.Bond, error) {
	s := r.store
	tx := s.txOf(q)

	s.mu.RLock()
	order := append([]string(nil), s.bondOrder...)
	base := make(map[string]domain.Bond, len(s.bonds))
	for id, b := range s.bonds {
		base[id] = *b
	}
	s.mu.RUnlock()

	if tx != nil && len(order) == 0 {
		tx.mu.Lock()
		order = append(order, tx.seeded...)
		tx.mu.Unlock()
	}

	bonds := make([]domain.Bond, 0, len(order))
	for _, id := range order {
		if tx != nil {
			if b, ok := tx.bond(id); ok {
				bonds = append(bonds, b)
				continue
			}
		}
		if b, ok := base[id]; ok {
			bonds = append(bonds, b)
		}
	}
	return bonds, nil
}

func (r *BondRepository) UpdateBondPrice(ctx context.Context, q repository.DBExecutor, id string, price decimal.Decimal) error {
	set := func(b *domain.Bond) { b.CurrentPrice = price }

	if tx := r.store.txOf(q); tx != nil {
		return tx.updateBond(id, func(b *domain.Bond) error {
			set(b)
			return nil
		}, set)
	}

	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bonds[id]
	if !ok {
		return util.ErrBondNotFound
	}
	set(b)
	return nil
}

func (r *BondRepository) AdjustBondSupply(ctx context.Context, q repository.DBExecutor, id string, delta int64) (int64, error) {
	check := func(b *domain.Bond) error {
		if !b.CanAdjustSupply(delta) {
			return fmt.Errorf("%w: bond %s, available %d, delta %d", util.ErrInvalidSupply, id, b.AvailableSupply, delta)
		}
		b.AvailableSupply += delta
		return nil
	}

	if tx := r.store.txOf(q); tx != nil {
		var available int64
		err := tx.updateBond(id, func(b *domain.Bond) error {
			if err := check(b); err != nil {
				return err
			}
			available = b.AvailableSupply
			return nil
		}, func(b *domain.Bond) { b.AvailableSupply += delta })
		if err != nil {
			return 0, err
		}
		return available, nil
	}

	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bonds[id]
	if !ok {
		return 0, util.ErrBondNotFound
	}
	if err := check(b); err != nil {
		return 0, err
	}
	return b.AvailableSupply, nil
}
