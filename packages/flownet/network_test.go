package flownet

import (
	"context"
	"testing"

	"github.com/iotaledger/hive.go/identity"
	"github.com/iotaledger/hive.go/kvstore/mapdb"
	"github.com/iotaledger/hive.go/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tokenkit/tokenkit/packages/flow"
	"github.com/tokenkit/tokenkit/packages/registry"
	"github.com/tokenkit/tokenkit/packages/token"
)

type testParty struct {
	local    *identity.LocalIdentity
	peer     *Peer
	registry *registry.Registry
}

func newTestNetwork(t *testing.T, partyCount int) (network *Network, parties []*testParty) {
	log := logger.NewExampleLogger(t.Name())
	network = New(identity.GenerateLocalIdentity(), log)
	t.Cleanup(network.Shutdown)

	for i := 0; i < partyCount; i++ {
		local := identity.GenerateLocalIdentity()
		partyRegistry, err := registry.New(mapdb.NewMapDB(), registry.WithLogger(log))
		require.NoError(t, err)

		peer, err := network.Join(local, nil, partyRegistry)
		require.NoError(t, err)

		parties = append(parties, &testParty{local: local, peer: peer, registry: partyRegistry})
	}

	return
}

func newInitiator(party *testParty, log *logger.Logger) *flow.Initiator {
	return flow.NewInitiator(party.local, party.peer.Sessions(), party.peer.Sequencer(), party.peer.Registrar(), log)
}

func TestNetwork_IssueMoveRedeem(t *testing.T) {
	network, parties := newTestNetwork(t, 2)
	issuer, holder := parties[0], parties[1]
	log := logger.NewExampleLogger(t.Name())

	// the issuer mints 100 units for the holder
	issued, err := newInitiator(issuer, log).Issue(context.Background(),
		token.Records{token.NewRecord(issuer.local.ID(), holder.local.ID(), 100)}, network.NotaryID())
	require.NoError(t, err)
	assert.True(t, issued.Attested())

	// finality reached both ledger views
	issuerBalance, err := issuer.registry.Balance(issuer.local.ID(), holder.local.ID())
	require.NoError(t, err)
	assert.EqualValues(t, 100, issuerBalance)
	holderBalance, err := holder.registry.Balance(issuer.local.ID(), holder.local.ID())
	require.NoError(t, err)
	assert.EqualValues(t, 100, holderBalance)

	// the holder moves 100 back to the issuer; the issuer counter-signs
	minted := holder.registry.Unspent()
	require.Len(t, minted, 1)
	moveProposal, err := token.NewProposal(token.CommandMove, minted,
		token.Records{token.NewRecord(issuer.local.ID(), issuer.local.ID(), 100)}, network.NotaryID())
	require.NoError(t, err)
	moved, err := newInitiator(holder, log).Execute(context.Background(), moveProposal)
	require.NoError(t, err)
	assert.True(t, moved.Attested())

	// the issuer redeems its own holding; both roles are local so no session is opened
	returned := issuer.registry.Unspent()
	require.Len(t, returned, 1)
	redeemProposal, err := token.NewProposal(token.CommandRedeem, returned, nil, network.NotaryID())
	require.NoError(t, err)
	_, err = newInitiator(issuer, log).Execute(context.Background(), redeemProposal)
	require.NoError(t, err)

	assert.Zero(t, issuer.registry.Outstanding(issuer.local.ID()))
}

func TestNetwork_RejectsDoubleSpend(t *testing.T) {
	network, parties := newTestNetwork(t, 2)
	issuer, holder := parties[0], parties[1]
	log := logger.NewExampleLogger(t.Name())

	_, err := newInitiator(issuer, log).Issue(context.Background(),
		token.Records{token.NewRecord(issuer.local.ID(), holder.local.ID(), 40)}, network.NotaryID())
	require.NoError(t, err)

	minted := holder.registry.Unspent()
	require.Len(t, minted, 1)

	spend := func() error {
		proposal, err := token.NewProposal(token.CommandMove, minted,
			token.Records{token.NewRecord(issuer.local.ID(), issuer.local.ID(), 40)}, network.NotaryID())
		require.NoError(t, err)
		_, err = newInitiator(holder, log).Execute(context.Background(), proposal)
		return err
	}

	require.NoError(t, spend())
	err = spend()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRecordConsumed)
}

func TestNetwork_AttestationSurvivesDeliveryFailure(t *testing.T) {
	network, parties := newTestNetwork(t, 2)
	issuer, holder := parties[0], parties[1]

	issue := func(quantity int64) (*token.Transaction, error) {
		proposal, err := token.NewProposal(token.CommandIssue, nil,
			token.Records{token.NewRecord(issuer.local.ID(), holder.local.ID(), quantity)}, network.NotaryID())
		require.NoError(t, err)
		transaction := token.NewTransaction(proposal,
			token.Signatures{token.Sign(issuer.local, proposal.EssenceBytes())})
		return network.Finalize(context.Background(), transaction, nil)
	}

	// saturate the supply counters so that recording any further mint overflows
	first, err := issue(token.MaxQuantity)
	require.NoError(t, err)
	require.True(t, first.Attested())

	// the registrars cannot take this one, but the sequencer's verdict stands
	second, err := issue(1)
	require.NoError(t, err)
	require.True(t, second.Attested())

	// the earlier state is untouched
	assert.Len(t, holder.registry.Unspent(), 1)
	assert.Equal(t, token.MaxQuantity, holder.registry.TotalIssued(issuer.local.ID()))
}

func TestNetwork_RefusesForeignNotary(t *testing.T) {
	_, parties := newTestNetwork(t, 1)
	issuer := parties[0]
	log := logger.NewExampleLogger(t.Name())

	_, err := newInitiator(issuer, log).Issue(context.Background(),
		token.Records{token.NewRecord(issuer.local.ID(), issuer.local.ID(), 10)}, identity.GenerateIdentity().ID())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrWrongNotary)
}

func TestNetwork_UnknownParty(t *testing.T) {
	network, _ := newTestNetwork(t, 1)

	_, err := network.OpenSession(identity.GenerateIdentity().ID())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownParty)
}

func TestNetwork_DuplicateJoin(t *testing.T) {
	network, parties := newTestNetwork(t, 1)

	partyRegistry, err := registry.New(mapdb.NewMapDB())
	require.NoError(t, err)
	_, err = network.Join(parties[0].local, nil, partyRegistry)
	require.Error(t, err)
}
