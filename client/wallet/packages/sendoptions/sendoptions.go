// Package sendoptions holds the functional options for moving records between holders.
package sendoptions

import (
	"github.com/cockroachdb/errors"
	"github.com/iotaledger/hive.go/identity"

	"github.com/tokenkit/tokenkit/packages/token"
)

// Option is a function that configures a send call.
type Option func(*Options) error

// Destination adds a recipient and a quantity to transfer to it. Repeated destinations for the
// same recipient are folded into one record.
func Destination(recipient identity.ID, quantity int64) Option {
	return func(options *Options) (err error) {
		if quantity <= 0 {
			return errors.Errorf("destination has non-positive quantity %d", quantity)
		}

		if options.Destinations == nil {
			options.Destinations = make(map[identity.ID]int64)
		}
		if options.Destinations[recipient], err = token.AddQuantities(options.Destinations[recipient], quantity); err != nil {
			return err
		}

		return nil
	}
}

// Issuer selects the token to transfer. Records of other issuers are never consumed, no matter
// what the local party holds.
func Issuer(issuer identity.ID) Option {
	return func(options *Options) error {
		options.Issuer = issuer

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

// Options is a collection of options for a send call.
type Options struct {
	Destinations map[identity.ID]int64
	Issuer       identity.ID
	Notary       identity.ID
}

// RequiredQuantity returns the checked sum of all destination quantities.
func (o *Options) RequiredQuantity() (total int64, err error) {
	for _, quantity := range o.Destinations {
		if total, err = token.AddQuantities(total, quantity); err != nil {
			return 0, err
		}
	}

	return
}

// Build constructs the Options from the given list of Option.
func Build(options ...Option) (result *Options, err error) {
	result = &Options{}
	for _, option := range options {
		if err = option(result); err != nil {
			return nil, err
		}
	}

	if len(result.Destinations) == 0 {
		return nil, errors.New("at least one destination is required")
	}
	if result.Issuer == (identity.ID{}) {
		return nil, errors.New("an issuer is required to select the token to transfer")
	}

	return
}
