// The tokenkit command runs a self-contained demonstration of the token flow: a notary-sequenced
// in-process network is assembled, an issuer mints records for a set of holders, one holder moves
// part of its balance to another and the issuer finally redeems an exact quantity, splitting a
// holding on the way when no exact subset exists.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/iotaledger/hive.go/configuration"
	"github.com/iotaledger/hive.go/events"
	"github.com/iotaledger/hive.go/identity"
	"github.com/iotaledger/hive.go/kvstore/mapdb"
	"github.com/iotaledger/hive.go/logger"
	"github.com/mr-tron/base58"
	flag "github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/tokenkit/tokenkit/client/wallet"
	"github.com/tokenkit/tokenkit/client/wallet/packages/issueoptions"
	"github.com/tokenkit/tokenkit/client/wallet/packages/sendoptions"
	"github.com/tokenkit/tokenkit/packages/flow"
	"github.com/tokenkit/tokenkit/packages/flownet"
	"github.com/tokenkit/tokenkit/packages/registry"
	"github.com/tokenkit/tokenkit/packages/token"
)

const (
	// CfgHolders is the number of holder parties joining the network next to the issuer.
	CfgHolders = "holders"
	// CfgIssueQuantity is the quantity minted for every holder.
	CfgIssueQuantity = "issueQuantity"
	// CfgSendQuantity is the quantity the first holder moves to the second.
	CfgSendQuantity = "sendQuantity"
	// CfgRedeemQuantity is the quantity the issuer redeems exactly at the end.
	CfgRedeemQuantity = "redeemQuantity"
)

func init() {
	flag.Int(CfgHolders, 2, "number of holder parties")
	flag.Int64(CfgIssueQuantity, 70, "quantity minted per holder")
	flag.Int64(CfgSendQuantity, 30, "quantity the first holder sends to the second")
	flag.Int64(CfgRedeemQuantity, 50, "quantity the issuer redeems exactly")
}

func main() {
	flag.Parse()
	if err := viper.BindPFlags(flag.CommandLine); err != nil {
		fail(err)
	}
	if err := logger.InitGlobalLogger(configuration.New()); err != nil {
		fail(err)
	}
	log := logger.NewLogger("tokenkit")

	holderCount := viper.GetInt(CfgHolders)
	if holderCount < 2 {
		fail(fmt.Errorf("at least 2 holders are required, got %d", holderCount))
	}

	network := flownet.New(identity.GenerateLocalIdentity(), logger.NewLogger("flownet"))
	defer network.Shutdown()
	log.Infof("sequencer ready, notary %s", base58.Encode(network.NotaryID().Bytes()))

	issuer := join(network, log, "issuer")
	holders := make([]*wallet.Wallet, holderCount)
	for i := range holders {
		holders[i] = join(network, log, fmt.Sprintf("holder-%d", i))
	}

	ctx := context.Background()
	issueQuantity := viper.GetInt64(CfgIssueQuantity)
	for _, holder := range holders {
		if _, err := issuer.Issue(ctx, issueoptions.Holding(holder.LocalID(), issueQuantity)); err != nil {
			fail(err)
		}
		log.Infof("issued %d to %s", issueQuantity, base58.Encode(holder.LocalID().Bytes()))
	}

	sendQuantity := viper.GetInt64(CfgSendQuantity)
	if _, err := holders[0].SendFunds(ctx,
		sendoptions.Destination(holders[1].LocalID(), sendQuantity),
		sendoptions.Issuer(issuer.LocalID()),
	); err != nil {
		fail(err)
	}
	log.Infof("moved %d from %s to %s", sendQuantity,
		base58.Encode(holders[0].LocalID().Bytes()), base58.Encode(holders[1].LocalID().Bytes()))

	redeemQuantity := viper.GetInt64(CfgRedeemQuantity)
	change, redeemed, err := issuer.RedeemExact(ctx, network.NotaryID(), issuer.LocalID(), holders[1].LocalID(), redeemQuantity)
	if err != nil {
		fail(err)
	}
	if change != nil {
		log.Infof("split holdings of %s with %s before redeeming",
			base58.Encode(holders[1].LocalID().Bytes()), change.ID())
	}
	log.Infof("redeemed %d with %s", redeemQuantity, redeemed.ID())

	for i, holder := range holders {
		balance, balanceErr := holder.AvailableBalance(issuer.LocalID())
		if balanceErr != nil {
			fail(balanceErr)
		}
		log.Infof("holder-%d balance: %d", i, balance)
	}
}

// join connects a fresh party to the network and wraps it in a wallet that logs every step of its
// transaction runs.
func join(network *flownet.Network, log *logger.Logger, name string) *wallet.Wallet {
	local := identity.GenerateLocalIdentity()
	partyRegistry, err := registry.New(mapdb.NewMapDB(), registry.WithLogger(logger.NewLogger(name)))
	if err != nil {
		fail(err)
	}
	peer, err := network.Join(local, nil, partyRegistry)
	if err != nil {
		fail(err)
	}

	partyWallet, err := wallet.New(
		wallet.WithLocalIdentity(local),
		wallet.WithConnector(peer),
		wallet.WithNotary(network.NotaryID()),
		wallet.WithLogger(logger.NewLogger(name)),
	)
	if err != nil {
		fail(err)
	}

	partyWallet.Events().StepTaken.Attach(events.NewClosure(func(transactionID token.TransactionID, step flow.Step) {
		log.Debugf("%s: run for %s entered %s", name, transactionID, step)
	}))
	partyWallet.Events().TransactionFinalized.Attach(events.NewClosure(func(transaction *token.Transaction) {
		log.Infof("%s: %s finalized as %s", name, transaction.Proposal().Command(), transaction.ID())
	}))

	return partyWallet
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
