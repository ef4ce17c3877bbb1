package token

import (
	"encoding/binary"
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/iotaledger/hive.go/identity"
	"github.com/iotaledger/hive.go/marshalutil"
	"github.com/iotaledger/hive.go/stringify"
	"github.com/mr-tron/base58"
)

// region Record ///////////////////////////////////////////////////////////////////////////////////////////////////////

// RecordLength contains the amount of bytes of a marshaled Record.
const RecordLength = 2*identity.IDLength + marshalutil.Int64Size

// Record is an immutable holding of tokens: a quantity owed by an issuer to a holder. Records are
// created only as outputs of a transaction and destroyed only by being consumed as inputs of a later
// transaction - "updating" a holding means consuming the old Record and issuing new ones.
type Record struct {
	issuer   identity.ID
	holder   identity.ID
	quantity int64
}

// NewRecord creates a new Record with the given issuer, holder and quantity.
func NewRecord(issuer identity.ID, holder identity.ID, quantity int64) Record {
	return Record{
		issuer:   issuer,
		holder:   holder,
		quantity: quantity,
	}
}

// RecordFromBytes unmarshals a Record from a sequence of bytes.
func RecordFromBytes(bytes []byte) (record Record, consumedBytes int, err error) {
	marshalUtil := marshalutil.New(bytes)
	if record, err = RecordFromMarshalUtil(marshalUtil); err != nil {
		err = errors.Errorf("failed to parse Record from MarshalUtil: %w", err)
		return
	}
	consumedBytes = marshalUtil.ReadOffset()

	return
}

// RecordFromMarshalUtil unmarshals a Record using a MarshalUtil (for easier unmarshaling).
func RecordFromMarshalUtil(marshalUtil *marshalutil.MarshalUtil) (record Record, err error) {
	if record.issuer, err = identity.IDFromMarshalUtil(marshalUtil); err != nil {
		err = errors.Errorf("failed to parse issuer from MarshalUtil: %w", err)
		return
	}
	if record.holder, err = identity.IDFromMarshalUtil(marshalUtil); err != nil {
		err = errors.Errorf("failed to parse holder from MarshalUtil: %w", err)
		return
	}
	if record.quantity, err = marshalUtil.ReadInt64(); err != nil {
		err = errors.Errorf("failed to parse quantity from MarshalUtil: %w", err)
		return
	}

	return
}

// Issuer returns the identity of the party that owes the tokens.
func (r Record) Issuer() identity.ID {
	return r.issuer
}

// Holder returns the identity of the party that the tokens are owed to.
func (r Record) Holder() identity.ID {
	return r.holder
}

// Quantity returns the amount of tokens that this Record represents.
func (r Record) Quantity() int64 {
	return r.quantity
}

// WithHolder returns a copy of the Record that is held by the given party.
func (r Record) WithHolder(holder identity.ID) Record {
	return NewRecord(r.issuer, holder, r.quantity)
}

// Bytes returns a marshaled version of the Record.
func (r Record) Bytes() []byte {
	return marshalutil.New(RecordLength).
		WriteBytes(r.issuer.Bytes()).
		WriteBytes(r.holder.Bytes()).
		WriteInt64(r.quantity).
		Bytes()
}

// String returns a human readable version of the Record.
func (r Record) String() string {
	return stringify.Struct("Record",
		stringify.StructField("issuer", base58.Encode(r.issuer.Bytes())),
		stringify.StructField("holder", base58.Encode(r.holder.Bytes())),
		stringify.StructField("quantity", r.quantity),
	)
}

// endregion ///////////////////////////////////////////////////////////////////////////////////////////////////////////

// region Records //////////////////////////////////////////////////////////////////////////////////////////////////////

// Records represents an ordered collection of Records.
type Records []Record

// Issuers returns the set of distinct issuers appearing in the collection.
func (r Records) Issuers() (issuers SignerSet) {
	issuers = NewSignerSet()
	for _, record := range r {
		issuers.Add(record.Issuer())
	}

	return
}

// Holders returns the set of distinct holders appearing in the collection.
func (r Records) Holders() (holders SignerSet) {
	holders = NewSignerSet()
	for _, record := range r {
		holders.Add(record.Holder())
	}

	return
}

// QuantitiesByIssuer groups the collection by issuer and sums the quantities per issuer with
// overflow-checked addition.
func (r Records) QuantitiesByIssuer() (quantities map[identity.ID]int64, err error) {
	quantities = make(map[identity.ID]int64)
	for _, record := range r {
		if quantities[record.Issuer()], err = AddQuantities(quantities[record.Issuer()], record.Quantity()); err != nil {
			err = errors.Errorf("failed to sum quantities of issuer %s: %w", base58.Encode(record.Issuer().Bytes()), err)
			return
		}
	}

	return
}

// String returns a human readable version of the Records.
func (r Records) String() string {
	structBuilder := stringify.StructBuilder("Records")
	for i, record := range r {
		structBuilder.AddField(stringify.StructField(strconv.Itoa(i), record))
	}

	return structBuilder.String()
}

// endregion ///////////////////////////////////////////////////////////////////////////////////////////////////////////

// region RecordID /////////////////////////////////////////////////////////////////////////////////////////////////////

// RecordIDLength contains the amount of bytes of a marshaled RecordID.
const RecordIDLength = TransactionIDLength + marshalutil.Uint16Size

// RecordID is the ledger identity of a Record: its position as an output of a specific finalized
// transaction. The RecordID is not part of the Record itself.
type RecordID [RecordIDLength]byte

// NewRecordID creates a RecordID from the given TransactionID and output index.
func NewRecordID(transactionID TransactionID, outputIndex uint16) (recordID RecordID) {
	copy(recordID[:TransactionIDLength], transactionID.Bytes())
	binary.LittleEndian.PutUint16(recordID[TransactionIDLength:], outputIndex)

	return
}

// RecordIDFromBytes unmarshals a RecordID from a sequence of bytes.
func RecordIDFromBytes(bytes []byte) (recordID RecordID, consumedBytes int, err error) {
	marshalUtil := marshalutil.New(bytes)
	if recordID, err = RecordIDFromMarshalUtil(marshalUtil); err != nil {
		err = errors.Errorf("failed to parse RecordID from MarshalUtil: %w", err)
		return
	}
	consumedBytes = marshalUtil.ReadOffset()

	return
}

// RecordIDFromBase58 creates a RecordID from a base58 encoded string.
func RecordIDFromBase58(base58String string) (recordID RecordID, err error) {
	decodedBytes, err := base58.Decode(base58String)
	if err != nil {
		err = errors.Errorf("error while decoding base58 encoded RecordID (%v): %w", err, ErrProposalMalformed)
		return
	}

	if recordID, _, err = RecordIDFromBytes(decodedBytes); err != nil {
		err = errors.Errorf("failed to parse RecordID from bytes: %w", err)
		return
	}

	return
}

// RecordIDFromMarshalUtil unmarshals a RecordID using a MarshalUtil (for easier unmarshaling).
func RecordIDFromMarshalUtil(marshalUtil *marshalutil.MarshalUtil) (recordID RecordID, err error) {
	recordIDBytes, err := marshalUtil.ReadBytes(RecordIDLength)
	if err != nil {
		err = errors.Errorf("failed to parse RecordID bytes from MarshalUtil: %w", err)
		return
	}
	copy(recordID[:], recordIDBytes)

	return
}

// TransactionID returns the TransactionID part of the RecordID.
func (r RecordID) TransactionID() (transactionID TransactionID) {
	copy(transactionID[:], r[:TransactionIDLength])

	return
}

// OutputIndex returns the output index part of the RecordID.
func (r RecordID) OutputIndex() uint16 {
	return binary.LittleEndian.Uint16(r[TransactionIDLength:])
}

// Bytes returns a marshaled version of the RecordID.
func (r RecordID) Bytes() []byte {
	return r[:]
}

// Base58 returns a base58 encoded version of the RecordID.
func (r RecordID) Base58() string {
	return base58.Encode(r[:])
}

// String returns a human readable version of the RecordID.
func (r RecordID) String() string {
	return "RecordID(" + r.Base58() + ")"
}

// endregion ///////////////////////////////////////////////////////////////////////////////////////////////////////////

// region UnspentRecord ////////////////////////////////////////////////////////////////////////////////////////////////

// UnspentRecord is a Record together with its ledger reference. It is the currency of the selection
// algorithm and the input side of a Proposal.
type UnspentRecord struct {
	ID     RecordID
	Record Record
}

// UnspentRecordFromMarshalUtil unmarshals an UnspentRecord using a MarshalUtil (for easier unmarshaling).
func UnspentRecordFromMarshalUtil(marshalUtil *marshalutil.MarshalUtil) (unspentRecord UnspentRecord, err error) {
	if unspentRecord.ID, err = RecordIDFromMarshalUtil(marshalUtil); err != nil {
		err = errors.Errorf("failed to parse RecordID from MarshalUtil: %w", err)
		return
	}
	if unspentRecord.Record, err = RecordFromMarshalUtil(marshalUtil); err != nil {
		err = errors.Errorf("failed to parse Record from MarshalUtil: %w", err)
		return
	}

	return
}

// Bytes returns a marshaled version of the UnspentRecord.
func (u UnspentRecord) Bytes() []byte {
	return marshalutil.New(RecordIDLength + RecordLength).
		WriteBytes(u.ID.Bytes()).
		WriteBytes(u.Record.Bytes()).
		Bytes()
}

// String returns a human readable version of the UnspentRecord.
func (u UnspentRecord) String() string {
	return stringify.Struct("UnspentRecord",
		stringify.StructField("id", u.ID),
		stringify.StructField("record", u.Record),
	)
}

// endregion ///////////////////////////////////////////////////////////////////////////////////////////////////////////
