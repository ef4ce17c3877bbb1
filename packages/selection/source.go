package selection

import (
	"github.com/iotaledger/hive.go/identity"

	"github.com/tokenkit/tokenkit/packages/token"
)

// region Cursor ///////////////////////////////////////////////////////////////////////////////////////////////////////

// Cursor is an immutable position in a paged record source. The zero value addresses the first page.
type Cursor uint64

// Next returns the Cursor of the following page.
func (c Cursor) Next() Cursor {
	return c + 1
}

// endregion ///////////////////////////////////////////////////////////////////////////////////////////////////////////

// region Filter ///////////////////////////////////////////////////////////////////////////////////////////////////////

// Filter describes the coarse criteria a record source pre-filters by. The Issuer criterion is
// optional (zero value = any issuer); sources are allowed to ignore it, which is why Select filters
// for the exact issuer again on every page.
type Filter struct {
	Participant identity.ID
	Notary      identity.ID
	Issuer      identity.ID
}

// MatchesIssuer returns true if the filter restricts results to a specific issuer.
func (f Filter) MatchesIssuer() bool {
	return f.Issuer != identity.ID{}
}

// MatchesNotary returns true if the filter restricts results to records sequenced by a specific
// notary.
func (f Filter) MatchesNotary() bool {
	return f.Notary != identity.ID{}
}

// endregion ///////////////////////////////////////////////////////////////////////////////////////////////////////////

// region PagedSource //////////////////////////////////////////////////////////////////////////////////////////////////

// PagedSource represents the external collaborator that serves candidate records page by page. An
// empty page signals exhaustion. Implementations carry their filter criteria; the selection
// algorithm only advances the cursor.
type PagedSource interface {
	// NextPage returns the records of the page addressed by the given cursor, together with the
	// cursor of the following page. It reports done once no further records are available.
	NextPage(cursor Cursor) (records []token.UnspentRecord, next Cursor, done bool, err error)
}

// endregion ///////////////////////////////////////////////////////////////////////////////////////////////////////////
