package wallet

import (
	"context"
	"testing"

	"github.com/iotaledger/hive.go/identity"
	"github.com/iotaledger/hive.go/kvstore/mapdb"
	"github.com/iotaledger/hive.go/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tokenkit/tokenkit/client/wallet/packages/issueoptions"
	"github.com/tokenkit/tokenkit/client/wallet/packages/sendoptions"
	"github.com/tokenkit/tokenkit/packages/flownet"
	"github.com/tokenkit/tokenkit/packages/registry"
	"github.com/tokenkit/tokenkit/packages/selection"
	"github.com/tokenkit/tokenkit/packages/token"
)

func newTestWallets(t *testing.T, count int) (network *flownet.Network, wallets []*Wallet) {
	log := logger.NewExampleLogger(t.Name())
	network = flownet.New(identity.GenerateLocalIdentity(), log)
	t.Cleanup(network.Shutdown)

	for i := 0; i < count; i++ {
		local := identity.GenerateLocalIdentity()
		partyRegistry, err := registry.New(mapdb.NewMapDB(), registry.WithLogger(log))
		require.NoError(t, err)
		peer, err := network.Join(local, nil, partyRegistry)
		require.NoError(t, err)

		partyWallet, err := New(
			WithLocalIdentity(local),
			WithConnector(peer),
			WithNotary(network.NotaryID()),
			WithLogger(log),
		)
		require.NoError(t, err)

		wallets = append(wallets, partyWallet)
	}

	return
}

func TestWallet_Issue(t *testing.T) {
	_, wallets := newTestWallets(t, 3)
	issuer, alice, bob := wallets[0], wallets[1], wallets[2]

	finalized, err := issuer.Issue(context.Background(),
		issueoptions.Holding(alice.LocalID(), 50),
		issueoptions.Holding(bob.LocalID(), 30),
	)
	require.NoError(t, err)

	assert.Empty(t, finalized.Proposal().Inputs())
	assert.Len(t, finalized.Proposal().Outputs(), 2)
	assert.Len(t, finalized.Signatures(), 1)
	assert.True(t, finalized.SignedBy(issuer.LocalID()))
	assert.True(t, finalized.Attested())

	aliceBalance, err := alice.AvailableBalance(issuer.LocalID())
	require.NoError(t, err)
	assert.EqualValues(t, 50, aliceBalance)
	bobBalance, err := bob.AvailableBalance(issuer.LocalID())
	require.NoError(t, err)
	assert.EqualValues(t, 30, bobBalance)
}

func TestWallet_SendFundsWithChange(t *testing.T) {
	_, wallets := newTestWallets(t, 3)
	issuer, alice, bob := wallets[0], wallets[1], wallets[2]

	_, err := issuer.Issue(context.Background(), issueoptions.Holding(alice.LocalID(), 100))
	require.NoError(t, err)

	finalized, err := alice.SendFunds(context.Background(),
		sendoptions.Destination(bob.LocalID(), 60),
		sendoptions.Issuer(issuer.LocalID()),
	)
	require.NoError(t, err)
	assert.True(t, finalized.Attested())

	aliceBalance, err := alice.AvailableBalance(issuer.LocalID())
	require.NoError(t, err)
	assert.EqualValues(t, 40, aliceBalance)
	bobBalance, err := bob.AvailableBalance(issuer.LocalID())
	require.NoError(t, err)
	assert.EqualValues(t, 60, bobBalance)
}

func TestWallet_SendFundsInsufficient(t *testing.T) {
	_, wallets := newTestWallets(t, 2)
	issuer, alice := wallets[0], wallets[1]

	_, err := issuer.Issue(context.Background(), issueoptions.Holding(alice.LocalID(), 10))
	require.NoError(t, err)

	_, err = alice.SendFunds(context.Background(),
		sendoptions.Destination(issuer.LocalID(), 50),
		sendoptions.Issuer(issuer.LocalID()),
	)
	require.Error(t, err)
	assert.ErrorIs(t, err, selection.ErrInsufficientFunds)
}

func TestWallet_RedeemExactWithSplit(t *testing.T) {
	_, wallets := newTestWallets(t, 2)
	issuer, alice := wallets[0], wallets[1]

	// two records of 70 cannot cover 100 exactly, a preparatory split is needed
	_, err := issuer.Issue(context.Background(), issueoptions.Holding(alice.LocalID(), 70))
	require.NoError(t, err)
	_, err = issuer.Issue(context.Background(), issueoptions.Holding(alice.LocalID(), 70))
	require.NoError(t, err)

	change, finalized, err := issuer.RedeemExact(context.Background(), identity.ID{}, issuer.LocalID(), alice.LocalID(), 100)
	require.NoError(t, err)
	require.NotNil(t, change)

	changeOutputs := change.Proposal().Outputs()
	require.Len(t, changeOutputs, 2)
	assert.EqualValues(t, 100, changeOutputs[0].Quantity())
	assert.EqualValues(t, 40, changeOutputs[1].Quantity())
	assert.Equal(t, alice.LocalID(), changeOutputs[0].Holder())
	assert.Equal(t, alice.LocalID(), changeOutputs[1].Holder())

	require.Len(t, finalized.Proposal().Inputs(), 1)
	assert.EqualValues(t, 100, finalized.Proposal().Inputs()[0].Record.Quantity())
	assert.Equal(t, token.CommandRedeem, finalized.Proposal().Command())

	aliceBalance, err := alice.AvailableBalance(issuer.LocalID())
	require.NoError(t, err)
	assert.EqualValues(t, 40, aliceBalance)
}

func TestWallet_RedeemExactWithoutSplit(t *testing.T) {
	_, wallets := newTestWallets(t, 2)
	issuer, alice := wallets[0], wallets[1]

	_, err := issuer.Issue(context.Background(), issueoptions.Holding(alice.LocalID(), 25))
	require.NoError(t, err)

	change, finalized, err := alice.RedeemExact(context.Background(), identity.ID{}, issuer.LocalID(), alice.LocalID(), 25)
	require.NoError(t, err)
	assert.Nil(t, change)
	require.NotNil(t, finalized)

	aliceBalance, err := alice.AvailableBalance(issuer.LocalID())
	require.NoError(t, err)
	assert.Zero(t, aliceBalance)
}

func TestWallet_RedeemByReference(t *testing.T) {
	_, wallets := newTestWallets(t, 2)
	issuer, alice := wallets[0], wallets[1]

	_, err := issuer.Issue(context.Background(), issueoptions.Holding(alice.LocalID(), 15))
	require.NoError(t, err)

	unspent := aliceUnspent(t, alice, issuer.LocalID())
	require.Len(t, unspent, 1)

	_, err = alice.Redeem(context.Background(), unspent...)
	require.NoError(t, err)

	aliceBalance, err := alice.AvailableBalance(issuer.LocalID())
	require.NoError(t, err)
	assert.Zero(t, aliceBalance)
}

func TestWallet_New(t *testing.T) {
	_, err := New()
	require.Error(t, err)
}

// aliceUnspent pages the wallet's source the way the selector would.
func aliceUnspent(t *testing.T, w *Wallet, issuer identity.ID) (unspent []token.UnspentRecord) {
	source := w.connector.Source(selection.Filter{Participant: w.LocalID(), Issuer: issuer})
	var cursor selection.Cursor
	for {
		records, next, done, err := source.NextPage(cursor)
		require.NoError(t, err)
		unspent = append(unspent, records...)
		if done || len(records) == 0 {
			return
		}
		cursor = next
	}
}
