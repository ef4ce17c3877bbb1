// Package wallet implements a party-facing facade over the token flow machinery: it selects
// unspent records, assembles proposals and drives them to finality through a Connector.
package wallet

import (
	"bytes"
	"context"
	"sort"

	"github.com/cockroachdb/errors"
	"github.com/iotaledger/hive.go/identity"
	"github.com/iotaledger/hive.go/logger"

	"github.com/tokenkit/tokenkit/client/wallet/packages/issueoptions"
	"github.com/tokenkit/tokenkit/client/wallet/packages/sendoptions"
	"github.com/tokenkit/tokenkit/packages/flow"
	"github.com/tokenkit/tokenkit/packages/selection"
	"github.com/tokenkit/tokenkit/packages/token"
)

// Wallet is a facade for a single party: it tracks nothing itself but composes the record source,
// the selection logic and the transaction flow behind issue, send and redeem entry points.
type Wallet struct {
	local     *identity.LocalIdentity
	connector Connector
	notary    identity.ID
	log       *logger.Logger

	initiator *flow.Initiator
}

// New creates a Wallet from the given options. A local identity, a connector and a default notary
// are required.
func New(options ...Option) (wallet *Wallet, err error) {
	wallet = &Wallet{}
	for _, option := range options {
		option(wallet)
	}

	if wallet.local == nil {
		return nil, errors.New("a local identity is required")
	}
	if wallet.connector == nil {
		return nil, errors.New("a connector is required")
	}
	if wallet.notary == (identity.ID{}) {
		return nil, errors.New("a default notary is required")
	}

	wallet.initiator = flow.NewInitiator(wallet.local, wallet.connector.Sessions(),
		wallet.connector.Sequencer(), wallet.connector.Registrar(), wallet.log)

	return
}

// LocalID returns the identity of the party the wallet acts for.
func (w *Wallet) LocalID() identity.ID {
	return w.local.ID()
}

// Events returns the observational events of the wallet's transaction runs.
func (w *Wallet) Events() *flow.Events {
	return w.initiator.Events()
}

// Issue mints new records with the local party as their issuer.
func (w *Wallet) Issue(ctx context.Context, options ...issueoptions.Option) (finalized *token.Transaction, err error) {
	issueOptions, err := issueoptions.Build(options...)
	if err != nil {
		return nil, errors.Errorf("invalid issue options: %w", err)
	}

	outputs := make(token.Records, 0, len(issueOptions.Holdings))
	for _, holder := range sortedParties(issueOptions.Holdings) {
		outputs = append(outputs, token.NewRecord(w.local.ID(), holder, issueOptions.Holdings[holder]))
	}

	return w.initiator.Issue(ctx, outputs, w.notaryOrDefault(issueOptions.Notary))
}

// SendFunds moves records of one issuer from the local party to the given destinations. Inputs are
// selected from the wallet's unspent records until the requested quantity is reached; any surplus
// of the selection returns to the local party as change.
func (w *Wallet) SendFunds(ctx context.Context, options ...sendoptions.Option) (finalized *token.Transaction, err error) {
	sendOptions, err := sendoptions.Build(options...)
	if err != nil {
		return nil, errors.Errorf("invalid send options: %w", err)
	}
	target, err := sendOptions.RequiredQuantity()
	if err != nil {
		return nil, err
	}
	notary := w.notaryOrDefault(sendOptions.Notary)

	accumulator, err := selection.Select(target, sendOptions.Issuer, w.connector.Source(selection.Filter{
		Participant: w.local.ID(),
		Notary:      notary,
		Issuer:      sendOptions.Issuer,
	}))
	if err != nil {
		return nil, errors.Errorf("failed to fund transfer of %d: %w", target, err)
	}

	outputs := make(token.Records, 0, len(sendOptions.Destinations)+1)
	for _, recipient := range sortedParties(sendOptions.Destinations) {
		outputs = append(outputs, token.NewRecord(sendOptions.Issuer, recipient, sendOptions.Destinations[recipient]))
	}
	if change := accumulator.Sum() - target; change > 0 {
		outputs = append(outputs, token.NewRecord(sendOptions.Issuer, w.local.ID(), change))
	}

	proposal, err := token.NewProposal(token.CommandMove, accumulator.Records(), outputs, notary)
	if err != nil {
		return nil, err
	}

	return w.initiator.Execute(ctx, proposal)
}

// Redeem retires the given records from circulation. The local party has to be the issuer or the
// holder of every consumed record; the other role counter-signs.
func (w *Wallet) Redeem(ctx context.Context, records ...token.UnspentRecord) (finalized *token.Transaction, err error) {
	proposal, err := token.NewProposal(token.CommandRedeem, records, nil, w.notary)
	if err != nil {
		return nil, err
	}

	return w.initiator.Execute(ctx, proposal)
}

// RedeemExact retires exactly the given quantity of the issuer's token held by the given holder.
// When no subset of the holder's records sums to the exact quantity, a preparatory move splits the
// selection into an exactly sized record plus change before the redeem consumes only the former;
// the returned change transaction is nil when no split was needed. A zero notary falls back to the
// wallet's default.
func (w *Wallet) RedeemExact(ctx context.Context, notary identity.ID, issuer identity.ID, holder identity.ID, total int64) (change *token.Transaction, finalized *token.Transaction, err error) {
	if total <= 0 {
		return nil, nil, errors.Errorf("cannot redeem non-positive quantity %d", total)
	}
	notary = w.notaryOrDefault(notary)

	accumulator, err := selection.Select(total, issuer, w.connector.Source(selection.Filter{
		Participant: holder,
		Notary:      notary,
		Issuer:      issuer,
	}))
	if err != nil {
		return nil, nil, errors.Errorf("failed to fund redemption of %d: %w", total, err)
	}

	toRedeem := accumulator.Records()
	if surplus := accumulator.Sum() - total; surplus > 0 {
		outputs := token.Records{
			token.NewRecord(issuer, holder, total),
			token.NewRecord(issuer, holder, surplus),
		}
		splitProposal, splitErr := token.NewProposal(token.CommandMove, toRedeem, outputs, notary)
		if splitErr != nil {
			return nil, nil, splitErr
		}
		if change, err = w.initiator.Execute(ctx, splitProposal); err != nil {
			return nil, nil, errors.Errorf("failed to split holdings for exact redemption: %w", err)
		}

		toRedeem = []token.UnspentRecord{{
			ID:     token.NewRecordID(change.ID(), 0),
			Record: outputs[0],
		}}
	}

	redeemProposal, err := token.NewProposal(token.CommandRedeem, toRedeem, nil, notary)
	if err != nil {
		return change, nil, err
	}
	if finalized, err = w.initiator.Execute(ctx, redeemProposal); err != nil {
		return change, nil, err
	}

	return
}

// AvailableBalance sums the unspent records of the given issuer held by the local party.
func (w *Wallet) AvailableBalance(issuer identity.ID) (balance int64, err error) {
	source := w.connector.Source(selection.Filter{
		Participant: w.local.ID(),
		Notary:      w.notary,
		Issuer:      issuer,
	})

	var cursor selection.Cursor
	for {
		records, next, done, pageErr := source.NextPage(cursor)
		if pageErr != nil {
			return 0, pageErr
		}
		for _, unspent := range records {
			if unspent.Record.Holder() != w.local.ID() {
				continue
			}
			if balance, err = token.AddQuantities(balance, unspent.Record.Quantity()); err != nil {
				return 0, err
			}
		}
		if done || len(records) == 0 {
			return balance, nil
		}
		cursor = next
	}
}

func (w *Wallet) notaryOrDefault(notary identity.ID) identity.ID {
	if notary == (identity.ID{}) {
		return w.notary
	}

	return notary
}

// sortedParties returns the keys of the map in deterministic order.
func sortedParties(quantities map[identity.ID]int64) (parties []identity.ID) {
	parties = make([]identity.ID, 0, len(quantities))
	for party := range quantities {
		parties = append(parties, party)
	}
	sort.Slice(parties, func(i, j int) bool {
		return bytes.Compare(parties[i].Bytes(), parties[j].Bytes()) < 0
	})

	return
}
