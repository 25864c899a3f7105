// Package lock serializes settlements per bond and per user address.
package lock

import (
	"context"
	"errors"
)

// ErrLockHeld is returned when a lock could not be obtained before the
// caller's context ended.
var ErrLockHeld = errors.New("lock held by another holder")

// Locker grants exclusive access to a key. The returned unlock function must
// be called exactly once the critical section ends; calling it again is a no-op.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// BondKey is the lock key guarding a bond's supply and price.
func BondKey(bondID string) string {
	return "bond:" + bondID
}

// UserKey is the lock key guarding a user's portfolio.
func UserKey(userAddress string) string {
	return "user:" + userAddress
}

// SeedKey guards catalog seeding.
const SeedKey = "catalog:seed"
