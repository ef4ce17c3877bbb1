package selection

import (
	"github.com/cockroachdb/errors"
)

var (
	// ErrInsufficientFunds is returned if the available records are exhausted before the requested
	// quantity is covered.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrRecordNotCollected is returned if a record that was never collected is removed from an
	// Accumulator.
	ErrRecordNotCollected = errors.New("record not collected")
)
