package flow

import (
	"context"

	"github.com/iotaledger/hive.go/identity"

	"github.com/tokenkit/tokenkit/packages/token"
)

// Session is a request/response channel to one remote party: it carries a proposal over and brings
// back either a signature or a refusal.
type Session interface {
	// Counterparty returns the identity of the remote party the session is connected to.
	Counterparty() identity.ID

	// RequestSignature asks the remote party to co-sign the given proposal. A refusal is reported
	// as an error wrapping ErrSigningRefused or ErrNotRelevant.
	RequestSignature(ctx context.Context, proposal *token.Proposal) (token.Signature, error)
}

// SessionProvider opens sessions to remote parties. It abstracts transport and party discovery,
// which are not a concern of this package.
type SessionProvider interface {
	OpenSession(counterparty identity.ID) (Session, error)
}

// Sequencer represents the external sequencing service (the notary role): it accepts a fully-signed
// transaction plus the sessions of all other participants, establishes global ordering, guarantees
// that every record is consumed at most once across the whole ledger and returns the attested
// transaction to all participants. It never finalizes a transaction that is missing a required
// signature.
type Sequencer interface {
	Finalize(ctx context.Context, transaction *token.Transaction, sessions []Session) (*token.Transaction, error)
}

// Registrar records finalized transactions in a party's local view of the ledger.
type Registrar interface {
	RecordTransaction(transaction *token.Transaction) error
}
