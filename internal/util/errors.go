// internal/util/errors.go
package util

import "errors"

// Common application-specific errors.
var (
	ErrNotFound             = errors.New("resource not found")
	ErrInvalidInput         = errors.New("invalid input provided")
	ErrBondNotFound         = errors.New("bond not found")
	ErrInvalidTrade         = errors.New("invalid trade")
	ErrInsufficientSupply   = errors.New("insufficient bond supply")
	ErrInsufficientHoldings = errors.New("insufficient bond holdings")
	ErrInvalidSupply        = errors.New("supply adjustment out of range")
	ErrStoreUnavailable     = errors.New("store unavailable")
)

// IsError reports whether any error in err's chain matches target.
func IsError(err, target error) bool {
	return errors.Is(err, target)
}
