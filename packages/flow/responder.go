package flow

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/iotaledger/hive.go/identity"
	"github.com/iotaledger/hive.go/logger"
	"github.com/mr-tron/base58"

	"github.com/tokenkit/tokenkit/packages/token"
)

// Policy is a party-supplied predicate over a proposal that may refuse co-signing for business
// reasons beyond the base transition rules (risk limits, counterparty allow-lists, ...). A nil
// error accepts the proposal.
type Policy func(proposal *token.Proposal, local identity.ID) error

// region Responder ////////////////////////////////////////////////////////////////////////////////////////////////////

// Responder is the counterpart of every co-signing request: it defends the local party against
// signing away tokens it has no interest in, applies the party's own Policy and re-validates the
// proposal before producing a signature.
type Responder struct {
	local     *identity.LocalIdentity
	policy    Policy
	registrar Registrar
	log       *logger.Logger
}

// NewResponder creates a Responder for the given local party. A nil Policy accepts every relevant,
// well-formed proposal.
func NewResponder(local *identity.LocalIdentity, policy Policy, registrar Registrar, log *logger.Logger) *Responder {
	return &Responder{
		local:     local,
		policy:    policy,
		registrar: registrar,
		log:       log,
	}
}

// LocalID returns the identity of the party the Responder defends.
func (r *Responder) LocalID() identity.ID {
	return r.local.ID()
}

// CounterSign decides whether the local party co-signs the given proposal. A proposal that consumes
// no record issued by or held by the local party is refused as not relevant; the party's Policy may
// refuse for any further reason; and a proposal that fails the transition rules is never signed.
func (r *Responder) CounterSign(ctx context.Context, proposal *token.Proposal) (signature token.Signature, err error) {
	if err = ctx.Err(); err != nil {
		return
	}

	if !r.relevant(proposal) {
		err = errors.Errorf("no consumed record is issued by or held by %s: %w",
			base58.Encode(r.local.ID().Bytes()), ErrNotRelevant)
		return
	}

	if r.policy != nil {
		if policyErr := r.policy(proposal, r.local.ID()); policyErr != nil {
			err = errors.Errorf("policy of %s refused %s (%v): %w",
				base58.Encode(r.local.ID().Bytes()), proposal.ID(), policyErr, ErrSigningRefused)
			return
		}
	}

	if validationErr := proposal.Validate(proposal.RequiredSigners()); validationErr != nil {
		err = errors.Errorf("proposal %s is not well-formed (%v): %w",
			proposal.ID(), validationErr, ErrSigningRefused)
		return
	}

	if r.log != nil {
		r.log.Debugf("co-signing %s", proposal.ID())
	}
	signature = token.Sign(r.local, proposal.EssenceBytes())

	return
}

// ReceiveFinalized records a finalized transaction that the sequencer delivered to the local party.
func (r *Responder) ReceiveFinalized(transaction *token.Transaction) (err error) {
	if !transaction.Attested() {
		return errors.Errorf("transaction %s carries no attestation", transaction.ID())
	}

	return r.registrar.RecordTransaction(transaction)
}

// a party has a stake in a proposal iff it is the issuer or the holder of at least one consumed
// record
func (r *Responder) relevant(proposal *token.Proposal) bool {
	localID := r.local.ID()
	for _, input := range proposal.Inputs() {
		if input.Record.Issuer() == localID || input.Record.Holder() == localID {
			return true
		}
	}

	return false
}

// endregion ///////////////////////////////////////////////////////////////////////////////////////////////////////////
