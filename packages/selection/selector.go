package selection

import (
	"github.com/cockroachdb/errors"
	"github.com/iotaledger/hive.go/identity"
	"github.com/mr-tron/base58"

	"github.com/tokenkit/tokenkit/packages/token"
)

// Select assembles a covering set of records for the given target quantity by paging through the
// given source. Pages are folded into an Accumulator one record at a time until the running sum
// first reaches or exceeds the target; records of other issuers are skipped because the source may
// only pre-filter by coarser criteria. The result is the first covering sequence in source
// iteration order, not a minimal-cardinality one. An exhausted source with remaining need left is
// an ErrInsufficientFunds failure.
func Select(target int64, issuer identity.ID, source PagedSource) (accumulator *Accumulator, err error) {
	accumulator = NewAccumulator(target)
	if accumulator.Satisfied() {
		// a non-positive target needs no records at all
		return
	}

	for cursor, done := Cursor(0), false; !done; {
		var records []token.UnspentRecord
		if records, cursor, done, err = source.NextPage(cursor); err != nil {
			err = errors.Errorf("failed to fetch page from record source: %w", err)
			return
		}

		// an empty page always signals exhaustion, whatever the source reports
		if len(records) == 0 {
			done = true
		}

		for _, record := range records {
			if record.Record.Issuer() != issuer {
				continue
			}
			if _, err = accumulator.Add(record); err != nil {
				err = errors.Errorf("failed to accumulate record: %w", err)
				return
			}
		}

		if accumulator.Satisfied() {
			return
		}
	}

	err = errors.Errorf("collected only %d of %d tokens of issuer %s: %w",
		accumulator.Sum(), target, base58.Encode(issuer.Bytes()), ErrInsufficientFunds)

	return
}
