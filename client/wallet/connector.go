package wallet

import (
	"github.com/tokenkit/tokenkit/packages/flow"
	"github.com/tokenkit/tokenkit/packages/selection"
)

// Connector bundles the external collaborators a wallet acts through: the paged view over the
// unspent records visible to the local party, the session fabric for counter-signatures, the
// sequencer and the local registrar. The in-process fabric satisfies it directly; a remote
// transport would satisfy it with network clients.
type Connector interface {
	// Source returns a paged view over the unspent records matching the given filter.
	Source(filter selection.Filter) selection.PagedSource

	// Sessions returns the provider of signing sessions to other parties.
	Sessions() flow.SessionProvider

	// Sequencer returns the sequencer transactions are submitted to for finality.
	Sequencer() flow.Sequencer

	// Registrar returns the sink for finalized transactions the local party participated in.
	Registrar() flow.Registrar
}
