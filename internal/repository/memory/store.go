// Package memory is an in-process implementation of the repository
// interfaces.
//
// Writes made through a Tx are staged on the transaction and published to
// the shared store in one step on Commit, so other readers only ever see
// committed state. Rollback discards the staged writes.
package memory

import (
	"context"
	"database/sql"
	"errors"
	"sync"

	"bondmarket/internal/domain"
	"bondmarket/internal/repository"
	"bondmarket/internal/util"
	"bondmarket/pkg/db"
)

var errNoSQL = errors.New("memory store does not execute SQL")

// Store holds the bond catalog, portfolios and the transaction log.
type Store struct {
	mu           sync.RWMutex
	bonds        map[string]*domain.Bond
	bondOrder    []string
	portfolios   map[string]*domain.Portfolio
	transactions []domain.Transaction
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		bonds:      make(map[string]*domain.Bond),
		portfolios: make(map[string]*domain.Portfolio),
	}
}

// BeginTx starts a transaction. It matches db.BeginTxFunc; the beginner
// argument is ignored.
func (s *Store) BeginTx(ctx context.Context, _ db.DBTxBeginner) (db.TxController, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &Tx{
		store:      s,
		bonds:      make(map[string]*domain.Bond),
		portfolios: make(map[string]*domain.Portfolio),
	}, nil
}

// Executor returns an autocommit executor: reads see committed state and
// writes are applied immediately.
func (s *Store) Executor() repository.DBExecutor {
	return autocommit{}
}

// txOf returns q as an open transaction of s, or nil for autocommit access.
func (s *Store) txOf(q repository.DBExecutor) *Tx {
	if tx, ok := q.(*Tx); ok && tx.store == s {
		return tx
	}
	return nil
}

// Tx is a memory transaction. It satisfies db.TxController and, so that
// services can hand it to repositories, repository.DBExecutor.
//
// The transaction keeps private copies of the bonds and portfolios it wrote
// (its view) and a redo log replayed against the store on Commit. A Tx is
// meant for one goroutine; Commit and Rollback are safe to race.
type Tx struct {
	store *Store

	mu         sync.Mutex
	done       bool
	bonds      map[string]*domain.Bond
	seeded     []string
	portfolios map[string]*domain.Portfolio
	redo       []func()
}

// Commit publishes every staged write under the store lock.
func (tx *Tx) Commit() error {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	if tx.done {
		return sql.ErrTxDone
	}
	tx.done = true

	tx.store.mu.Lock()
	for _, apply := range tx.redo {
		apply()
	}
	tx.store.mu.Unlock()
	tx.redo = nil
	return nil
}

// Rollback discards the staged writes.
func (tx *Tx) Rollback() error {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	if tx.done {
		return sql.ErrTxDone
	}
	tx.done = true
	tx.redo = nil
	tx.bonds = nil
	tx.portfolios = nil
	return nil
}

// stage queues apply for Commit. Must be called with tx.mu held.
func (tx *Tx) stage(apply func()) {
	tx.redo = append(tx.redo, apply)
}

// bond returns the transaction's view of a bond, if it wrote one.
func (tx *Tx) bond(id string) (domain.Bond, bool) {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	b, ok := tx.bonds[id]
	if !ok {
		return domain.Bond{}, false
	}
	return *b, true
}

// updateBond runs change against the transaction's view of a bond and, if
// it succeeds, stages apply against the committed bond.
func (tx *Tx) updateBond(id string, change func(b *domain.Bond) error, apply func(b *domain.Bond)) error {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	if tx.done {
		return sql.ErrTxDone
	}

	view, ok := tx.bonds[id]
	if !ok {
		tx.store.mu.RLock()
		base, found := tx.store.bonds[id]
		if found {
			cp := *base
			view = &cp
		}
		tx.store.mu.RUnlock()
		if !found {
			return util.ErrBondNotFound
		}
	}

	next := *view
	if err := change(&next); err != nil {
		return err
	}
	tx.bonds[id] = &next

	s := tx.store
	tx.stage(func() {
		if b, ok := s.bonds[id]; ok {
			apply(b)
		}
	})
	return nil
}

// portfolio returns the transaction's view of a portfolio, if it wrote one.
func (tx *Tx) portfolio(addr string) (*domain.Portfolio, bool) {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	p, ok := tx.portfolios[addr]
	if !ok {
		return nil, false
	}
	return p.Clone(), true
}

func (tx *Tx) GetContext(context.Context, interface{}, string, ...interface{}) error {
	return errNoSQL
}

func (tx *Tx) SelectContext(context.Context, interface{}, string, ...interface{}) error {
	return errNoSQL
}

func (tx *Tx) ExecContext(context.Context, string, ...interface{}) (sql.Result, error) {
	return nil, errNoSQL
}

// QueryRowContext is never called on memory executors and returns nil.
func (tx *Tx) QueryRowContext(context.Context, string, ...interface{}) *sql.Row {
	return nil
}

type autocommit struct{}

func (autocommit) GetContext(context.Context, interface{}, string, ...interface{}) error {
	return errNoSQL
}

func (autocommit) SelectContext(context.Context, interface{}, string, ...interface{}) error {
	return errNoSQL
}

func (autocommit) ExecContext(context.Context, string, ...interface{}) (sql.Result, error) {
	return nil, errNoSQL
}

func (autocommit) QueryRowContext(context.Context, string, ...interface{}) *sql.Row {
	return nil
}

var (
	_ db.TxController       = (*Tx)(nil)
	_ repository.DBExecutor = (*Tx)(nil)
	_ repository.DBExecutor = autocommit{}
)
