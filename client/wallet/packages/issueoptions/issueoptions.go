// Package issueoptions holds the functional options for issuing new records from a wallet.
package issueoptions

import (
	"github.com/cockroachdb/errors"
	"github.com/iotaledger/hive.go/identity"

	"github.com/tokenkit/tokenkit/packages/token"
)

// Option is a function that configures an issue call.
type Option func(*Options) error

// Holding adds a produced record of the given quantity for the given holder. Repeated holdings for
// the same holder are folded into one record.
func Holding(holder identity.ID, quantity int64) Option {
	return func(options *Options) (err error) {
		if quantity <= 0 {
			return errors.Errorf("holding has non-positive quantity %d", quantity)
		}

		if options.Holdings == nil {
			options.Holdings = make(map[identity.ID]int64)
		}
		if options.Holdings[holder], err = token.AddQuantities(options.Holdings[holder], quantity); err != nil {
			return err
		}

		return nil
	}
}

// Notary overrides the sequencer the transaction is submitted to.
func Notary(notary identity.ID) Option {
	return func(options *Options) error {
		options.Notary = notary

		return nil
	}
}

// Options is a collection of options for an issue call.
type Options struct {
	Holdings map[identity.ID]int64
	Notary   identity.ID
}

// Build constructs the Options from the given list of Option.
func Build(options ...Option) (result *Options, err error) {
	result = &Options{}
	for _, option := range options {
		if err = option(result); err != nil {
			return nil, err
		}
	}

	if len(result.Holdings) == 0 {
		return nil, errors.New("at least one holding is required")
	}

	return
}
