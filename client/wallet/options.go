package wallet

import (
	"github.com/iotaledger/hive.go/identity"
	"github.com/iotaledger/hive.go/logger"
)

// Option is a function that configures a Wallet.
type Option func(*Wallet)

// WithLocalIdentity sets the signing identity the wallet acts for.
func WithLocalIdentity(local *identity.LocalIdentity) Option {
	return func(wallet *Wallet) {
		wallet.local = local
	}
}

// WithConnector sets the collaborators the wallet acts through.
func WithConnector(connector Connector) Option {
	return func(wallet *Wallet) {
		wallet.connector = connector
	}
}

// WithNotary sets the default sequencer for transactions initiated by the wallet.
func WithNotary(notary identity.ID) Option {
	return func(wallet *Wallet) {
		wallet.notary = notary
	}
}

// WithLogger sets the logger of the wallet.
func WithLogger(log *logger.Logger) Option {
	return func(wallet *Wallet) {
		wallet.log = log
	}
}
