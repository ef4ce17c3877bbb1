package token

import (
	"github.com/cockroachdb/errors"
)

var (
	// ErrTransactionInvalid is returned if a proposed transition violates one of the ledger rules.
	ErrTransactionInvalid = errors.New("transaction invalid")

	// ErrProposalMalformed is returned if a Proposal is structurally broken (missing command, empty
	// required list) before any transition rule is even evaluated.
	ErrProposalMalformed = errors.New("proposal malformed")

	// ErrQuantityOverflow is returned if summing quantities would exceed the representable range.
	ErrQuantityOverflow = errors.New("quantity overflow")
)
