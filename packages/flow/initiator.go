package flow

import (
	"bytes"
	"context"
	"sort"

	"github.com/cockroachdb/errors"
	"github.com/iotaledger/hive.go/identity"
	"github.com/iotaledger/hive.go/logger"
	"github.com/mr-tron/base58"
	"go.uber.org/atomic"

	"github.com/tokenkit/tokenkit/packages/token"
)

// region Initiator ////////////////////////////////////////////////////////////////////////////////////////////////////

// Initiator drives transaction runs on behalf of the local party: it assembles candidate
// transactions, validates them, collects the required signatures and hands them to the sequencer
// for finality. Each run owns its state exclusively; an Initiator can drive any number of runs
// concurrently.
type Initiator struct {
	local     *identity.LocalIdentity
	sessions  SessionProvider
	sequencer Sequencer
	registrar Registrar
	events    *Events
	log       *logger.Logger
}

// NewInitiator creates an Initiator for the given local party and collaborators.
func NewInitiator(local *identity.LocalIdentity, sessions SessionProvider, sequencer Sequencer, registrar Registrar, log *logger.Logger) *Initiator {
	return &Initiator{
		local:     local,
		sessions:  sessions,
		sequencer: sequencer,
		registrar: registrar,
		events:    newEvents(),
		log:       log,
	}
}

// LocalID returns the identity of the party the Initiator acts for.
func (i *Initiator) LocalID() identity.ID {
	return i.local.ID()
}

// Events returns the observational events of the Initiator's runs.
func (i *Initiator) Events() *Events {
	return i.events
}

// Issue runs the single-signer shape: the local party is the sole issuer and the sole signer of the
// produced records. The finalized transaction is pushed to every distinct holder by the sequencer
// and force-recorded locally even when the issuer holds nothing itself, so it can keep track of its
// total issued supply.
func (i *Initiator) Issue(ctx context.Context, outputs token.Records, notary identity.ID) (finalized *token.Transaction, err error) {
	for _, output := range outputs {
		if output.Issuer() != i.local.ID() {
			return nil, errors.Errorf("party %s cannot issue on behalf of %s: %w",
				base58.Encode(i.local.ID().Bytes()), base58.Encode(output.Issuer().Bytes()), ErrNotRelevant)
		}
	}

	proposal, err := token.NewProposal(token.CommandIssue, nil, outputs, notary)
	if err != nil {
		return nil, errors.Errorf("failed to build issue proposal: %w", err)
	}

	run := i.newRun(proposal)
	if finalized, err = run.executeSingleSigner(ctx); err != nil {
		return nil, errors.Errorf("issue of %d records failed: %w", len(outputs), err)
	}

	return
}

// Execute runs the multi-signer shape for the given proposal: the required signer set is the union
// of every issuer and holder referenced by the consumed and produced records, the local party has
// to be one of them, and every other member is asked for a counter-signature before the sequencer
// is invoked. Any refusal or validation failure aborts the whole run without partial commit.
func (i *Initiator) Execute(ctx context.Context, proposal *token.Proposal) (finalized *token.Transaction, err error) {
	required := proposal.RequiredSigners()
	if !required.Has(i.local.ID()) {
		return nil, errors.Errorf("party %s is not among the required signers of %s: %w",
			base58.Encode(i.local.ID().Bytes()), proposal.ID(), ErrNotRelevant)
	}

	run := i.newRun(proposal)
	if finalized, err = run.executeMultiSigner(ctx, required); err != nil {
		return nil, errors.Errorf("run for %s failed: %w", proposal.ID(), err)
	}

	return
}

func (i *Initiator) newRun(proposal *token.Proposal) *run {
	return &run{
		initiator: i,
		proposal:  proposal,
		step:      atomic.NewUint32(uint32(StepGenerating)),
	}
}

// endregion ///////////////////////////////////////////////////////////////////////////////////////////////////////////

// region run //////////////////////////////////////////////////////////////////////////////////////////////////////////

// run is the working state of one transaction run. It is owned by a single goroutine; the step
// counter is atomic only so that event handlers on other goroutines observe a consistent position.
type run struct {
	initiator *Initiator
	proposal  *token.Proposal
	step      *atomic.Uint32
}

// Step returns the current position of the run in its state machine.
func (r *run) Step() Step {
	return Step(r.step.Load())
}

func (r *run) enter(step Step) {
	r.step.Store(uint32(step))
	r.initiator.events.StepTaken.Trigger(r.proposal.ID(), step)
}

func (r *run) abort(err error) error {
	r.initiator.events.RunAborted.Trigger(r.proposal.ID(), r.Step())
	if r.initiator.log != nil {
		r.initiator.log.Warnf("run for %s aborted in step %s: %s", r.proposal.ID(), r.Step(), err)
	}

	return err
}

func (r *run) executeSingleSigner(ctx context.Context) (finalized *token.Transaction, err error) {
	local := r.initiator.local

	r.enter(StepValidating)
	if err = r.proposal.Validate(token.NewSignerSet(local.ID())); err != nil {
		return nil, r.abort(errors.Errorf("local validation failed: %w", err))
	}

	r.enter(StepLocallySigning)
	signature := token.Sign(local, r.proposal.EssenceBytes())

	r.enter(StepFinalizing)
	transaction := token.NewTransaction(r.proposal, token.Signatures{signature})
	if finalized, err = r.initiator.sequencer.Finalize(ctx, transaction, nil); err != nil {
		return nil, r.abort(errors.Errorf("sequencer refused transaction: %w", err))
	}

	if err = r.initiator.registrar.RecordTransaction(finalized); err != nil {
		return nil, r.abort(errors.Errorf("failed to record finalized transaction: %w", err))
	}

	r.enter(StepDone)
	r.initiator.events.TransactionFinalized.Trigger(finalized)

	return
}

func (r *run) executeMultiSigner(ctx context.Context, required token.SignerSet) (finalized *token.Transaction, err error) {
	local := r.initiator.local

	r.enter(StepValidating)
	if err = r.proposal.Validate(required); err != nil {
		return nil, r.abort(errors.Errorf("local validation failed: %w", err))
	}

	r.enter(StepLocallySigning)
	signatures := token.Signatures{token.Sign(local, r.proposal.EssenceBytes())}

	// every other required signer is asked for a counter-signature; with no other signers the
	// collection step is skipped entirely
	counterparties := otherSigners(required, local.ID())
	var sessions []Session
	if len(counterparties) > 0 {
		r.enter(StepCollectingSignatures)
		for _, counterparty := range counterparties {
			session, sessionErr := r.initiator.sessions.OpenSession(counterparty)
			if sessionErr != nil {
				return nil, r.abort(errors.Errorf("failed to open session to %s: %w",
					base58.Encode(counterparty.Bytes()), sessionErr))
			}

			signature, signErr := session.RequestSignature(ctx, r.proposal)
			if signErr != nil {
				return nil, r.abort(errors.Errorf("party %s did not co-sign: %w",
					base58.Encode(counterparty.Bytes()), signErr))
			}
			if signature.SignerID() != counterparty || !signature.Valid(r.proposal.EssenceBytes()) {
				return nil, r.abort(errors.Errorf("party %s returned an unusable signature: %w",
					base58.Encode(counterparty.Bytes()), ErrSigningRefused))
			}

			signatures = append(signatures, signature)
			sessions = append(sessions, session)
		}
	}

	r.enter(StepFinalizing)
	transaction := token.NewTransaction(r.proposal, signatures)
	if finalized, err = r.initiator.sequencer.Finalize(ctx, transaction, sessions); err != nil {
		return nil, r.abort(errors.Errorf("sequencer refused transaction: %w", err))
	}

	if err = r.initiator.registrar.RecordTransaction(finalized); err != nil {
		return nil, r.abort(errors.Errorf("failed to record finalized transaction: %w", err))
	}

	r.enter(StepDone)
	r.initiator.events.TransactionFinalized.Trigger(finalized)

	return
}

// otherSigners returns the members of the set without the local party, in deterministic order.
func otherSigners(signers token.SignerSet, local identity.ID) (others []identity.ID) {
	for _, signer := range signers.Slice() {
		if signer != local {
			others = append(others, signer)
		}
	}
	sort.Slice(others, func(i, j int) bool {
		return bytes.Compare(others[i].Bytes(), others[j].Bytes()) < 0
	})

	return
}

// endregion ///////////////////////////////////////////////////////////////////////////////////////////////////////////
