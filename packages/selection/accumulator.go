package selection

import (
	"github.com/cockroachdb/errors"
	"github.com/iotaledger/hive.go/stringify"

	"github.com/tokenkit/tokenkit/packages/token"
)

// region Accumulator //////////////////////////////////////////////////////////////////////////////////////////////////

// Accumulator is the transient working state of a selection run: a target ceiling, a running sum and
// the records collected so far. The running sum never exceeds the ceiling except for the single
// terminal addition that first reaches or exceeds it.
type Accumulator struct {
	target  int64
	sum     int64
	records []token.UnspentRecord
}

// NewAccumulator creates an empty Accumulator for the given target ceiling.
func NewAccumulator(target int64) *Accumulator {
	return &Accumulator{
		target: target,
	}
}

// Add folds a record into the Accumulator. It reports false without touching the record once the
// running sum has reached the ceiling, so the terminal addition is the only one that may overshoot.
func (a *Accumulator) Add(record token.UnspentRecord) (added bool, err error) {
	if a.Satisfied() {
		return
	}

	if a.sum, err = token.AddQuantities(a.sum, record.Record.Quantity()); err != nil {
		err = errors.Errorf("failed to add record %s: %w", record.ID, err)
		return
	}
	a.records = append(a.records, record)
	added = true

	return
}

// Remove takes a previously collected record out of the Accumulator again. Removing a record that
// was never collected is an error.
func (a *Accumulator) Remove(recordID token.RecordID) (err error) {
	for i, record := range a.records {
		if record.ID == recordID {
			a.sum -= record.Record.Quantity()
			a.records = append(a.records[:i], a.records[i+1:]...)

			return
		}
	}

	return errors.Errorf("record %s: %w", recordID, ErrRecordNotCollected)
}

// Target returns the ceiling the Accumulator collects towards.
func (a *Accumulator) Target() int64 {
	return a.target
}

// Sum returns the running sum of the collected records.
func (a *Accumulator) Sum() int64 {
	return a.sum
}

// Remaining returns how much is still missing to reach the target.
func (a *Accumulator) Remaining() int64 {
	return a.target - a.sum
}

// Satisfied returns true once the running sum has reached or exceeded the target.
func (a *Accumulator) Satisfied() bool {
	return a.sum >= a.target
}

// Records hands off the collected records. The Accumulator gives up its working list; the caller
// owns the returned slice exclusively.
func (a *Accumulator) Records() (records []token.UnspentRecord) {
	records = a.records
	a.records = nil

	return
}

// String returns a human readable version of the Accumulator.
func (a *Accumulator) String() string {
	return stringify.Struct("Accumulator",
		stringify.StructField("target", a.target),
		stringify.StructField("sum", a.sum),
		stringify.StructField("recordCount", len(a.records)),
	)
}

// endregion ///////////////////////////////////////////////////////////////////////////////////////////////////////////
