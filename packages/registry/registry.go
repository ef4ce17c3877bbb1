package registry

import (
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/iotaledger/hive.go/identity"
	"github.com/iotaledger/hive.go/kvstore"
	"github.com/iotaledger/hive.go/logger"

	"github.com/tokenkit/tokenkit/packages/selection"
	"github.com/tokenkit/tokenkit/packages/token"
)

// region Registry /////////////////////////////////////////////////////////////////////////////////////////////////////

// DefaultPageSize is the number of records served per page unless configured otherwise.
const DefaultPageSize = 10

var (
	// ErrNotAttested is returned if a transaction without a sequencer attestation is recorded.
	ErrNotAttested = errors.New("transaction not attested")

	// ErrUnknownTransaction is returned if a transaction is looked up that was never recorded.
	ErrUnknownTransaction = errors.New("unknown transaction")

	transactionsRealm = kvstore.Realm{0x01}
	recordsRealm      = kvstore.Realm{0x02}
)

// unspentEntry keeps an unspent record together with the notary of the transaction that created it,
// so that notary-filtered pages can be served without loading the transaction again.
type unspentEntry struct {
	record token.UnspentRecord
	notary identity.ID
}

// Registry is a party's local view of the ledger: it stores the finalized transactions the party
// participated in, maintains the index of unspent records and serves them page by page to the
// selection algorithm. Nothing enters the Registry before finality.
type Registry struct {
	transactionsStore kvstore.KVStore
	recordsStore      kvstore.KVStore
	log               *logger.Logger

	mu          sync.RWMutex
	unspent     []unspentEntry
	totalIssued map[identity.ID]int64
	outstanding map[identity.ID]int64

	pageSize int
}

// New creates a Registry on top of the given key-value store.
func New(store kvstore.KVStore, options ...Option) (registry *Registry, err error) {
	registry = &Registry{
		totalIssued: make(map[identity.ID]int64),
		outstanding: make(map[identity.ID]int64),
		pageSize:    DefaultPageSize,
	}
	for _, option := range options {
		option(registry)
	}

	if registry.transactionsStore, err = store.WithRealm(transactionsRealm); err != nil {
		err = errors.Errorf("failed to open transactions realm: %w", err)
		return
	}
	if registry.recordsStore, err = store.WithRealm(recordsRealm); err != nil {
		err = errors.Errorf("failed to open records realm: %w", err)
		return
	}

	return
}

// RecordTransaction stores a finalized transaction and updates the unspent index: the consumed
// records disappear, the produced records become spendable. Recording the same transaction twice is
// a no-op, so the issuer-side force-record and the sequencer broadcast never conflict.
func (r *Registry) RecordTransaction(transaction *token.Transaction) (err error) {
	if !transaction.Attested() {
		return errors.Errorf("refusing to record %s: %w", transaction.ID(), ErrNotAttested)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	transactionID := transaction.ID()
	alreadyRecorded, err := r.transactionsStore.Has(transactionID.Bytes())
	if err != nil {
		return errors.Errorf("failed to check for %s: %w", transactionID, err)
	}
	if alreadyRecorded {
		return
	}

	// the supply counters are the only step that can refuse; update them before touching the
	// stores so a refused transaction leaves no trace
	proposal := transaction.Proposal()
	if err = r.updateSupply(proposal); err != nil {
		return errors.Errorf("failed to update supply counters: %w", err)
	}

	if err = r.transactionsStore.Set(transactionID.Bytes(), transaction.Bytes()); err != nil {
		return errors.Errorf("failed to store %s: %w", transactionID, err)
	}

	for _, input := range proposal.Inputs() {
		if err = r.recordsStore.Delete(input.ID.Bytes()); err != nil {
			return errors.Errorf("failed to drop consumed record %s: %w", input.ID, err)
		}
		r.dropUnspent(input.ID)
	}
	for outputIndex, output := range proposal.Outputs() {
		unspentRecord := token.UnspentRecord{
			ID:     token.NewRecordID(transactionID, uint16(outputIndex)),
			Record: output,
		}
		if err = r.recordsStore.Set(unspentRecord.ID.Bytes(), unspentRecord.Record.Bytes()); err != nil {
			return errors.Errorf("failed to store produced record %s: %w", unspentRecord.ID, err)
		}
		r.unspent = append(r.unspent, unspentEntry{record: unspentRecord, notary: proposal.Notary()})
	}

	if r.log != nil {
		r.log.Debugf("recorded %s (%s, %d inputs, %d outputs)",
			transactionID, proposal.Command(), len(proposal.Inputs()), len(proposal.Outputs()))
	}

	return
}

// Transaction loads a previously recorded transaction.
func (r *Registry) Transaction(transactionID token.TransactionID) (transaction *token.Transaction, err error) {
	transactionBytes, err := r.transactionsStore.Get(transactionID.Bytes())
	if err != nil {
		if errors.Is(err, kvstore.ErrKeyNotFound) {
			err = errors.Errorf("%s: %w", transactionID, ErrUnknownTransaction)
			return
		}
		err = errors.Errorf("failed to load %s: %w", transactionID, err)
		return
	}

	if transaction, _, err = token.TransactionFromBytes(transactionBytes); err != nil {
		err = errors.Errorf("failed to parse stored transaction %s: %w", transactionID, err)
		return
	}

	return
}

// Unspent returns a copy of the current unspent records, in the order they entered the ledger view.
func (r *Registry) Unspent() (records []token.UnspentRecord) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	records = make([]token.UnspentRecord, len(r.unspent))
	for i, entry := range r.unspent {
		records[i] = entry.record
	}

	return
}

// Balance sums the unspent quantities a holder is owed by an issuer.
func (r *Registry) Balance(issuer identity.ID, holder identity.ID) (balance int64, err error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, entry := range r.unspent {
		if entry.record.Record.Issuer() != issuer || entry.record.Record.Holder() != holder {
			continue
		}
		if balance, err = token.AddQuantities(balance, entry.record.Record.Quantity()); err != nil {
			err = errors.Errorf("failed to sum balance: %w", err)
			return
		}
	}

	return
}

// TotalIssued returns the cumulative quantity an issuer has ever issued.
func (r *Registry) TotalIssued(issuer identity.ID) int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.totalIssued[issuer]
}

// Outstanding returns the quantity an issuer has issued and not yet seen redeemed.
func (r *Registry) Outstanding(issuer identity.ID) int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.outstanding[issuer]
}

// Source returns a paged view over the unspent records matching the given filter, for consumption
// by the selection algorithm.
func (r *Registry) Source(filter selection.Filter) selection.PagedSource {
	return &pagedView{
		registry: r,
		filter:   filter,
	}
}

// dropUnspent removes a record from the in-memory index; the caller holds the write lock.
func (r *Registry) dropUnspent(recordID token.RecordID) {
	for i, entry := range r.unspent {
		if entry.record.ID == recordID {
			r.unspent = append(r.unspent[:i], r.unspent[i+1:]...)
			return
		}
	}
}

// updateSupply maintains the per-issuer counters; the caller holds the write lock.
func (r *Registry) updateSupply(proposal *token.Proposal) (err error) {
	switch proposal.Command() {
	case token.CommandIssue:
		issuedQuantities, quantitiesErr := proposal.Outputs().QuantitiesByIssuer()
		if quantitiesErr != nil {
			return quantitiesErr
		}
		for issuer, quantity := range issuedQuantities {
			if r.totalIssued[issuer], err = token.AddQuantities(r.totalIssued[issuer], quantity); err != nil {
				return
			}
			if r.outstanding[issuer], err = token.AddQuantities(r.outstanding[issuer], quantity); err != nil {
				return
			}
		}
	case token.CommandRedeem:
		redeemedQuantities, quantitiesErr := proposal.ConsumedRecords().QuantitiesByIssuer()
		if quantitiesErr != nil {
			return quantitiesErr
		}
		for issuer, quantity := range redeemedQuantities {
			r.outstanding[issuer] -= quantity
		}
	case token.CommandMove:
		// conservation: moves never change any issuer's outstanding supply
	}

	return
}

// endregion ///////////////////////////////////////////////////////////////////////////////////////////////////////////

// region pagedView ////////////////////////////////////////////////////////////////////////////////////////////////////

// pagedView serves filter-matching unspent records page by page. The coarse criteria (participant,
// notary) are applied here; exact issuer matching remains the selection algorithm's job.
type pagedView struct {
	registry *Registry
	filter   selection.Filter
}

// NextPage returns the records of the page addressed by the given cursor.
func (p *pagedView) NextPage(cursor selection.Cursor) (records []token.UnspentRecord, next selection.Cursor, done bool, err error) {
	matching := p.matching()

	pageStart := int(cursor) * p.registry.pageSize
	if pageStart >= len(matching) {
		done = true
		return
	}

	pageEnd := pageStart + p.registry.pageSize
	if pageEnd >= len(matching) {
		pageEnd = len(matching)
		done = true
	}

	records = matching[pageStart:pageEnd]
	next = cursor.Next()

	return
}

func (p *pagedView) matching() (matching []token.UnspentRecord) {
	p.registry.mu.RLock()
	defer p.registry.mu.RUnlock()

	for _, entry := range p.registry.unspent {
		if entry.record.Record.Holder() != p.filter.Participant {
			continue
		}
		if p.filter.MatchesNotary() && entry.notary != p.filter.Notary {
			continue
		}
		if p.filter.MatchesIssuer() && entry.record.Record.Issuer() != p.filter.Issuer {
			continue
		}
		matching = append(matching, entry.record)
	}

	return
}

// endregion ///////////////////////////////////////////////////////////////////////////////////////////////////////////
