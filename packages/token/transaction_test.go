package token

import (
	"math"
	"testing"

	"github.com/iotaledger/hive.go/identity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProposal_RequiredSigners(t *testing.T) {
	issuerIdentity := identity.GenerateLocalIdentity()
	holderIdentity := identity.GenerateLocalIdentity()
	notary := identity.GenerateIdentity().ID()

	issuer := issuerIdentity.ID()
	holder := holderIdentity.ID()

	issueProposal, err := NewProposal(CommandIssue, nil, Records{NewRecord(issuer, holder, 100)}, notary)
	require.NoError(t, err)
	assert.True(t, issueProposal.RequiredSigners().Equals(NewSignerSet(issuer)))

	redeemProposal, err := NewProposal(CommandRedeem, []UnspentRecord{{
		ID:     NewRecordID(issueProposal.ID(), 0),
		Record: NewRecord(issuer, holder, 100),
	}}, nil, notary)
	require.NoError(t, err)
	assert.True(t, redeemProposal.RequiredSigners().Equals(NewSignerSet(issuer, holder)))
}

func TestProposal_MoveRecipientDoesNotSign(t *testing.T) {
	issuer := identity.GenerateIdentity().ID()
	sender := identity.GenerateIdentity().ID()
	recipient := identity.GenerateIdentity().ID()
	notary := identity.GenerateIdentity().ID()

	moveProposal, err := NewProposal(CommandMove, []UnspentRecord{{
		ID:     NewRecordID(TransactionID{1}, 0),
		Record: NewRecord(issuer, sender, 100),
	}}, Records{
		NewRecord(issuer, recipient, 60),
		NewRecord(issuer, sender, 40),
	}, notary)
	require.NoError(t, err)

	// the recipient gives up nothing and is never asked for a signature
	signers := moveProposal.RequiredSigners()
	assert.True(t, signers.Equals(NewSignerSet(issuer, sender)))
	assert.False(t, signers.Has(recipient))
}

func TestProposal_EmptyIsMalformed(t *testing.T) {
	notary := identity.GenerateIdentity().ID()

	_, err := NewProposal(CommandMove, nil, nil, notary)
	assert.Error(t, err)
}

func TestProposal_IdenticalContentDistinctIdentity(t *testing.T) {
	issuer := identity.GenerateIdentity().ID()
	holder := identity.GenerateIdentity().ID()
	notary := identity.GenerateIdentity().ID()

	first, err := NewProposal(CommandIssue, nil, Records{NewRecord(issuer, holder, 70)}, notary)
	require.NoError(t, err)
	second, err := NewProposal(CommandIssue, nil, Records{NewRecord(issuer, holder, 70)}, notary)
	require.NoError(t, err)

	// minting the same quantity twice creates two transactions, not one replayed
	assert.NotEqual(t, first.ID(), second.ID())
	assert.NotEqual(t, NewRecordID(first.ID(), 0), NewRecordID(second.ID(), 0))
}

func TestProposal_TooManyRecordsMalformed(t *testing.T) {
	issuer := identity.GenerateIdentity().ID()
	holder := identity.GenerateIdentity().ID()
	notary := identity.GenerateIdentity().ID()

	outputs := make(Records, math.MaxUint16+1)
	for i := range outputs {
		outputs[i] = NewRecord(issuer, holder, 1)
	}

	_, err := NewProposal(CommandIssue, nil, outputs, notary)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrProposalMalformed)
}

func TestTransaction_MarshalRoundtrip(t *testing.T) {
	issuerIdentity := identity.GenerateLocalIdentity()
	holder := identity.GenerateIdentity().ID()
	notary := identity.GenerateIdentity().ID()

	proposal, err := NewProposal(CommandIssue, nil, Records{
		NewRecord(issuerIdentity.ID(), holder, 50),
		NewRecord(issuerIdentity.ID(), holder, 30),
	}, notary)
	require.NoError(t, err)

	transaction := NewTransaction(proposal, Signatures{Sign(issuerIdentity, proposal.EssenceBytes())})
	require.True(t, transaction.SignedBy(issuerIdentity.ID()))
	require.True(t, transaction.SignaturesComplete())
	require.False(t, transaction.Attested())

	restored, consumedBytes, err := TransactionFromBytes(transaction.Bytes())
	require.NoError(t, err)
	assert.Equal(t, len(transaction.Bytes()), consumedBytes)
	assert.Equal(t, transaction.ID(), restored.ID())
	assert.True(t, restored.SignedBy(issuerIdentity.ID()))
}

func TestTransaction_SignatureOfStrangerDoesNotCount(t *testing.T) {
	issuerIdentity := identity.GenerateLocalIdentity()
	strangerIdentity := identity.GenerateLocalIdentity()
	holder := identity.GenerateIdentity().ID()
	notary := identity.GenerateIdentity().ID()

	proposal, err := NewProposal(CommandIssue, nil, Records{NewRecord(issuerIdentity.ID(), holder, 1)}, notary)
	require.NoError(t, err)

	transaction := NewTransaction(proposal, Signatures{Sign(strangerIdentity, proposal.EssenceBytes())})
	assert.False(t, transaction.SignedBy(issuerIdentity.ID()))
	assert.False(t, transaction.SignaturesComplete())
}
