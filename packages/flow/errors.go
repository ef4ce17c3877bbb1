package flow

import (
	"github.com/cockroachdb/errors"
)

var (
	// ErrSigningRefused is returned if a required party declines to co-sign a proposal. It aborts
	// the whole run for every participant.
	ErrSigningRefused = errors.New("signing refused")

	// ErrNotRelevant is returned if a party is asked to sign a proposal it has no stake in. It is
	// treated as a refusal.
	ErrNotRelevant = errors.New("proposal not relevant for party")
)
