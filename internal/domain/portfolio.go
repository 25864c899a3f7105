// internal/domain/portfolio.go
package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Holdings maps bond ID to the quantity held. Every present entry is positive.
type Holdings map[string]int64

// Value implements driver.Valuer, storing holdings as a JSON document.
// The document is passed as text; lib/pq would send []byte as bytea.
func (h Holdings) Value() (driver.Value, error) {
	if h == nil {
		return "{}", nil
	}
	b, err := json.Marshal(map[string]int64(h))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner for JSON/JSONB columns.
func (h *Holdings) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	case nil:
		*h = Holdings{}
		return nil
	default:
		return fmt.Errorf("cannot scan %T into Holdings", src)
	}
	out := Holdings{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("decode holdings: %w", err)
	}
	*h = out
	return nil
}

// BondIDs returns the held bond IDs in lexical order.
func (h Holdings) BondIDs() []string {
	ids := make([]string, 0, len(h))
	for id := range h {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Portfolio is a user's bond holdings plus cached aggregates. TotalValue and
// TotalYield are recomputed on every settlement touching the user.
type Portfolio struct {
	ID          string          `db:"id" json:"id"`
	UserAddress string          `db:"user_address" json:"user_address"`
	Bonds       Holdings        `db:"bonds" json:"bonds"`
	TotalValue  decimal.Decimal `db:"total_value" json:"total_value"`
	TotalYield  decimal.Decimal `db:"total_yield" json:"total_yield"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updated_at"`
}

// NewPortfolio creates an empty Portfolio for a user address.
func NewPortfolio(userAddress string, now time.Time) *Portfolio {
	return &Portfolio{
		ID:          uuid.NewString(),
		UserAddress: userAddress,
		Bonds:       Holdings{},
		TotalValue:  decimal.Zero,
		TotalYield:  decimal.Zero,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Quantity returns the held quantity of a bond, zero when absent.
func (p *Portfolio) Quantity(bondID string) int64 {
	return p.Bonds[bondID]
}

// Apply adds (buy) or removes (sell) quantity of a bond. Entries that reach
// zero or below are deleted.
func (p *Portfolio) Apply(bondID string, side TradeSide, quantity int64) {
	if p.Bonds == nil {
		p.Bonds = Holdings{}
	}
	next := p.Bonds[bondID]
	if side == TradeSideBuy {
		next += quantity
	} else {
		next -= quantity
	}
	if next <= 0 {
		delete(p.Bonds, bondID)
		return
	}
	p.Bonds[bondID] = next
}

// Clone returns a deep copy of the portfolio.
func (p *Portfolio) Clone() *Portfolio {
	cp := *p
	cp.Bonds = make(Holdings, len(p.Bonds))
	for k, v := range p.Bonds {
		cp.Bonds[k] = v
	}
	return &cp
}
