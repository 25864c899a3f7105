package postgres

import (
	"fmt"

	"bondmarket/internal/util"
)

// storeError marks a driver failure as util.ErrStoreUnavailable while keeping
// the driver error in the chain.
func storeError(op string, err error) error {
	return fmt.Errorf("%w: failed to %s: %w", util.ErrStoreUnavailable, op, err)
}
