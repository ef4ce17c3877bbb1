package selection

import (
	"crypto/rand"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/iotaledger/hive.go/identity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tokenkit/tokenkit/packages/token"
)

// pagedStub serves a fixed sequence of pages and counts how often each page was requested.
type pagedStub struct {
	pages    [][]token.UnspentRecord
	requests map[Cursor]int
}

func newPagedStub(pages ...[]token.UnspentRecord) *pagedStub {
	return &pagedStub{
		pages:    pages,
		requests: make(map[Cursor]int),
	}
}

func (p *pagedStub) NextPage(cursor Cursor) (records []token.UnspentRecord, next Cursor, done bool, err error) {
	p.requests[cursor]++
	if int(cursor) >= len(p.pages) {
		done = true
		return
	}

	records = p.pages[int(cursor)]
	next = cursor.Next()
	done = int(next) >= len(p.pages)

	return
}

func testRecords(t *testing.T, issuer identity.ID, holder identity.ID, quantities ...int64) (records []token.UnspentRecord) {
	for i, quantity := range quantities {
		transactionID, err := randomTransactionID()
		require.NoError(t, err)
		records = append(records, token.UnspentRecord{
			ID:     token.NewRecordID(transactionID, uint16(i)),
			Record: token.NewRecord(issuer, holder, quantity),
		})
	}

	return
}

func randomTransactionID() (transactionID token.TransactionID, err error) {
	transactionIDBytes := make([]byte, token.TransactionIDLength)
	if _, err = rand.Read(transactionIDBytes); err != nil {
		return
	}
	transactionID, _, err = token.TransactionIDFromBytes(transactionIDBytes)

	return
}

func TestSelect_FirstReachingOvershoot(t *testing.T) {
	issuer := identity.GenerateIdentity().ID()
	holder := identity.GenerateIdentity().ID()

	source := newPagedStub(
		testRecords(t, issuer, holder, 100),
		testRecords(t, issuer, holder, 80),
	)

	accumulator, err := Select(150, issuer, source)
	require.NoError(t, err)

	assert.EqualValues(t, 180, accumulator.Sum())
	assert.True(t, accumulator.Satisfied())
	assert.Len(t, accumulator.Records(), 2)
}

func TestSelect_InsufficientFunds(t *testing.T) {
	issuer := identity.GenerateIdentity().ID()
	holder := identity.GenerateIdentity().ID()

	source := newPagedStub(
		testRecords(t, issuer, holder, 200, 200),
		testRecords(t, issuer, holder, 100),
	)

	_, err := Select(1000, issuer, source)
	assert.True(t, errors.Is(err, ErrInsufficientFunds))
}

func TestSelect_StopsAtExactTarget(t *testing.T) {
	issuer := identity.GenerateIdentity().ID()
	holder := identity.GenerateIdentity().ID()

	source := newPagedStub(
		testRecords(t, issuer, holder, 60, 40, 25),
	)

	accumulator, err := Select(100, issuer, source)
	require.NoError(t, err)

	// the fold stops adding once the sum first reaches the target
	assert.EqualValues(t, 100, accumulator.Sum())
	assert.Len(t, accumulator.Records(), 2)
}

func TestSelect_SkipsForeignIssuers(t *testing.T) {
	issuer := identity.GenerateIdentity().ID()
	foreignIssuer := identity.GenerateIdentity().ID()
	holder := identity.GenerateIdentity().ID()

	page := testRecords(t, foreignIssuer, holder, 500)
	page = append(page, testRecords(t, issuer, holder, 70, 50)...)

	accumulator, err := Select(100, issuer, source(page))
	require.NoError(t, err)

	assert.EqualValues(t, 120, accumulator.Sum())
	for _, record := range accumulator.Records() {
		assert.Equal(t, issuer, record.Record.Issuer())
	}
}

func TestSelect_NonPositiveTargetNeedsNoRecords(t *testing.T) {
	issuer := identity.GenerateIdentity().ID()

	stub := newPagedStub()
	accumulator, err := Select(0, issuer, stub)
	require.NoError(t, err)

	assert.EqualValues(t, 0, accumulator.Sum())
	assert.Empty(t, stub.requests, "no page may be fetched for a non-positive target")
}

func TestSelect_NeverRevisitsAPage(t *testing.T) {
	issuer := identity.GenerateIdentity().ID()
	holder := identity.GenerateIdentity().ID()

	stub := newPagedStub(
		testRecords(t, issuer, holder, 10),
		testRecords(t, issuer, holder, 10),
		testRecords(t, issuer, holder, 10),
	)

	_, err := Select(100, issuer, stub)
	assert.True(t, errors.Is(err, ErrInsufficientFunds))
	for cursor, count := range stub.requests {
		assert.Equal(t, 1, count, "page %d fetched more than once", cursor)
	}
}

func TestAccumulator_RemoveUncollectedRecord(t *testing.T) {
	issuer := identity.GenerateIdentity().ID()
	holder := identity.GenerateIdentity().ID()

	accumulator := NewAccumulator(100)
	records := testRecords(t, issuer, holder, 60, 50)

	added, err := accumulator.Add(records[0])
	require.NoError(t, err)
	require.True(t, added)

	err = accumulator.Remove(records[1].ID)
	assert.True(t, errors.Is(err, ErrRecordNotCollected))

	require.NoError(t, accumulator.Remove(records[0].ID))
	assert.EqualValues(t, 0, accumulator.Sum())
}

func source(page []token.UnspentRecord) PagedSource {
	return newPagedStub(page)
}
