package token

import (
	"math"

	"github.com/cockroachdb/errors"
)

// MaxQuantity is the largest quantity a single Record can carry.
const MaxQuantity = int64(math.MaxInt64)

// AddQuantities adds two non-negative quantities and fails explicitly instead of wrapping around.
func AddQuantities(a int64, b int64) (sum int64, err error) {
	if a < 0 || b < 0 {
		err = errors.Errorf("quantities must not be negative (%d, %d): %w", a, b, ErrQuantityOverflow)
		return
	}
	if a > MaxQuantity-b {
		err = errors.Errorf("%d + %d exceeds the representable quantity range: %w", a, b, ErrQuantityOverflow)
		return
	}
	sum = a + b

	return
}

// SumQuantities folds the quantities of the given Records with overflow-checked addition.
func SumQuantities(records []Record) (sum int64, err error) {
	for _, record := range records {
		if sum, err = AddQuantities(sum, record.Quantity()); err != nil {
			err = errors.Errorf("failed to sum quantities: %w", err)
			return
		}
	}

	return
}
