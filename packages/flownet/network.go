package flownet

import (
	"context"
	"runtime"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/iotaledger/hive.go/identity"
	"github.com/iotaledger/hive.go/logger"
	"github.com/iotaledger/hive.go/workerpool"
	"github.com/mr-tron/base58"

	"github.com/tokenkit/tokenkit/packages/flow"
	"github.com/tokenkit/tokenkit/packages/registry"
	"github.com/tokenkit/tokenkit/packages/selection"
	"github.com/tokenkit/tokenkit/packages/token"
)

var (
	// ErrUnknownParty is returned if a session to a party that never joined the network is opened.
	ErrUnknownParty = errors.New("unknown party")

	// ErrRecordConsumed is returned if a transaction consumes a record that an earlier finalized
	// transaction already consumed.
	ErrRecordConsumed = errors.New("record already consumed")

	// ErrWrongNotary is returned if a transaction is submitted to a sequencer it does not designate.
	ErrWrongNotary = errors.New("transaction designates a different notary")

	// ErrSignaturesIncomplete is returned if a submitted transaction is missing a required
	// signature; the sequencer never finalizes such a transaction.
	ErrSignaturesIncomplete = errors.New("signature set incomplete")
)

var (
	signingWorkerCount     = runtime.GOMAXPROCS(0)
	signingWorkerQueueSize = 64
)

// region Network //////////////////////////////////////////////////////////////////////////////////////////////////////

// Network is an in-process fabric connecting parties and a sequencer through channels. It
// implements the SessionProvider and Sequencer collaborators of the flow package deterministically,
// which makes it the reference fabric for tests and demos; real transports live outside this
// repository.
type Network struct {
	notary *identity.LocalIdentity
	log    *logger.Logger

	mu       sync.RWMutex
	peers    map[identity.ID]*Peer
	consumed map[token.RecordID]token.TransactionID

	signingWorkerPool *workerpool.WorkerPool
}

// New creates a Network sequenced by the given notary identity.
func New(notary *identity.LocalIdentity, log *logger.Logger) (network *Network) {
	network = &Network{
		notary:   notary,
		log:      log,
		peers:    make(map[identity.ID]*Peer),
		consumed: make(map[token.RecordID]token.TransactionID),
	}

	network.signingWorkerPool = workerpool.New(func(task workerpool.Task) {
		responder := task.Param(0).(*flow.Responder)
		ctx := task.Param(1).(context.Context)
		proposal := task.Param(2).(*token.Proposal)

		signature, err := responder.CounterSign(ctx, proposal)
		task.Return(&signingResult{signature: signature, err: err})
	}, workerpool.WorkerCount(signingWorkerCount), workerpool.QueueSize(signingWorkerQueueSize))
	network.signingWorkerPool.Start()

	return
}

// NotaryID returns the identity of the network's sequencer.
func (n *Network) NotaryID() identity.ID {
	return n.notary.ID()
}

// Join connects a party to the network: its responder serves counter-signing requests and its
// registry receives every finalized transaction it participates in.
func (n *Network) Join(local *identity.LocalIdentity, policy flow.Policy, partyRegistry *registry.Registry) (peer *Peer, err error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if _, alreadyJoined := n.peers[local.ID()]; alreadyJoined {
		return nil, errors.Errorf("party %s already joined", base58.Encode(local.ID().Bytes()))
	}

	peer = &Peer{
		network:   n,
		local:     local,
		registry:  partyRegistry,
		responder: flow.NewResponder(local, policy, partyRegistry, n.log),
	}
	n.peers[local.ID()] = peer

	if n.log != nil {
		n.log.Infof("party %s joined", base58.Encode(local.ID().Bytes()))
	}

	return
}

// Shutdown stops the network's worker pool.
func (n *Network) Shutdown() {
	n.signingWorkerPool.Stop()
}

// OpenSession opens a signing session to the given party.
func (n *Network) OpenSession(counterparty identity.ID) (flow.Session, error) {
	n.mu.RLock()
	peer, exists := n.peers[counterparty]
	n.mu.RUnlock()
	if !exists {
		return nil, errors.Errorf("party %s: %w", base58.Encode(counterparty.Bytes()), ErrUnknownParty)
	}

	return &session{
		network: n,
		peer:    peer,
	}, nil
}

// Finalize implements the sequencer role: it refuses transactions that designate another notary,
// are missing a required signature or consume an already-consumed record; everything else is
// attested, globally ordered and delivered to every participating party. Marking the inputs as
// consumed together with the attestation is the commit point: once a transaction is attested it
// stays final, and a party whose registrar cannot take the delivery has a local problem, not a
// veto. Such failures are logged and the remaining parties are still served.
func (n *Network) Finalize(ctx context.Context, transaction *token.Transaction, _ []flow.Session) (finalized *token.Transaction, err error) {
	if err = ctx.Err(); err != nil {
		return
	}

	proposal := transaction.Proposal()
	if proposal.Notary() != n.notary.ID() {
		return nil, errors.Errorf("transaction %s: %w", transaction.ID(), ErrWrongNotary)
	}
	if !transaction.SignaturesComplete() {
		return nil, errors.Errorf("transaction %s: %w", transaction.ID(), ErrSignaturesIncomplete)
	}

	n.mu.Lock()
	for _, input := range proposal.Inputs() {
		if consumerID, alreadyConsumed := n.consumed[input.ID]; alreadyConsumed {
			n.mu.Unlock()
			return nil, errors.Errorf("record %s was consumed by %s: %w", input.ID, consumerID, ErrRecordConsumed)
		}
	}
	for _, input := range proposal.Inputs() {
		n.consumed[input.ID] = transaction.ID()
	}
	participants := n.participantPeers(proposal)
	n.mu.Unlock()

	finalized = transaction.WithAttestation(token.Sign(n.notary, proposal.EssenceBytes()))

	for _, peer := range participants {
		if deliveryErr := peer.responder.ReceiveFinalized(finalized); deliveryErr != nil && n.log != nil {
			n.log.Warnf("failed to deliver %s to %s: %s",
				finalized.ID(), base58.Encode(peer.local.ID().Bytes()), deliveryErr)
		}
	}

	if n.log != nil {
		n.log.Infof("finalized %s (%s)", finalized.ID(), proposal.Command())
	}

	return
}

// participantPeers returns the joined peers referenced by the proposal; the caller holds the lock.
func (n *Network) participantPeers(proposal *token.Proposal) (participants []*Peer) {
	referenced := proposal.RequiredSigners()
	referenced.AddAll(proposal.Outputs().Holders())

	for partyID := range referenced {
		if peer, exists := n.peers[partyID]; exists {
			participants = append(participants, peer)
		}
	}

	return
}

// endregion ///////////////////////////////////////////////////////////////////////////////////////////////////////////

// region session //////////////////////////////////////////////////////////////////////////////////////////////////////

type signingResult struct {
	signature token.Signature
	err       error
}

// session asks one remote peer's responder for a counter-signature. The request is served on the
// network's worker pool; the caller suspends on the result channel without polling.
type session struct {
	network *Network
	peer    *Peer
}

// Counterparty returns the identity of the remote party.
func (s *session) Counterparty() identity.ID {
	return s.peer.local.ID()
}

// RequestSignature submits the proposal to the remote responder and waits for its verdict.
func (s *session) RequestSignature(ctx context.Context, proposal *token.Proposal) (signature token.Signature, err error) {
	resultChan, submitted := s.network.signingWorkerPool.TrySubmit(s.peer.responder, ctx, proposal)
	if !submitted {
		err = errors.Errorf("signing worker pool rejected request to %s", base58.Encode(s.peer.local.ID().Bytes()))
		return
	}

	select {
	case result := <-resultChan:
		signingResult := result.(*signingResult)
		return signingResult.signature, signingResult.err
	case <-ctx.Done():
		err = ctx.Err()
		return
	}
}

// endregion ///////////////////////////////////////////////////////////////////////////////////////////////////////////

// region Peer /////////////////////////////////////////////////////////////////////////////////////////////////////////

// Peer is one party's attachment to the Network. It bundles the external collaborators a wallet
// needs: the paged record source, the session provider, the sequencer and the registrar.
type Peer struct {
	network   *Network
	local     *identity.LocalIdentity
	registry  *registry.Registry
	responder *flow.Responder
}

// LocalIdentity returns the party's signing identity.
func (p *Peer) LocalIdentity() *identity.LocalIdentity {
	return p.local
}

// Registry returns the party's local ledger view.
func (p *Peer) Registry() *registry.Registry {
	return p.registry
}

// Source returns a paged view over the party's unspent records matching the given filter.
func (p *Peer) Source(filter selection.Filter) selection.PagedSource {
	return p.registry.Source(filter)
}

// Sessions returns the session provider of the network.
func (p *Peer) Sessions() flow.SessionProvider {
	return p.network
}

// Sequencer returns the sequencer of the network.
func (p *Peer) Sequencer() flow.Sequencer {
	return p.network
}

// Registrar returns the party's registrar.
func (p *Peer) Registrar() flow.Registrar {
	return p.registry
}

// endregion ///////////////////////////////////////////////////////////////////////////////////////////////////////////
