package token

import (
	"math"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/iotaledger/hive.go/identity"
	"github.com/iotaledger/hive.go/marshalutil"
	"github.com/iotaledger/hive.go/stringify"
	"github.com/mr-tron/base58"
	"golang.org/x/crypto/blake2b"
)

// region TransactionID ////////////////////////////////////////////////////////////////////////////////////////////////

// TransactionIDLength contains the amount of bytes that a marshaled version of the ID contains.
const TransactionIDLength = 32

// TransactionID is the type that represents the identifier of a transaction: the blake2b digest of
// the essence bytes of its Proposal.
type TransactionID [TransactionIDLength]byte

// TransactionIDFromBytes unmarshals a TransactionID from a sequence of bytes.
func TransactionIDFromBytes(bytes []byte) (transactionID TransactionID, consumedBytes int, err error) {
	marshalUtil := marshalutil.New(bytes)
	if transactionID, err = TransactionIDFromMarshalUtil(marshalUtil); err != nil {
		err = errors.Errorf("failed to parse TransactionID from MarshalUtil: %w", err)
		return
	}
	consumedBytes = marshalUtil.ReadOffset()

	return
}

// TransactionIDFromBase58 creates a TransactionID from a base58 encoded string.
func TransactionIDFromBase58(base58String string) (transactionID TransactionID, err error) {
	decodedBytes, err := base58.Decode(base58String)
	if err != nil {
		err = errors.Errorf("error while decoding base58 encoded TransactionID (%v): %w", err, ErrProposalMalformed)
		return
	}

	if transactionID, _, err = TransactionIDFromBytes(decodedBytes); err != nil {
		err = errors.Errorf("failed to parse TransactionID from bytes: %w", err)
		return
	}

	return
}

// TransactionIDFromMarshalUtil unmarshals a TransactionID using a MarshalUtil (for easier unmarshaling).
func TransactionIDFromMarshalUtil(marshalUtil *marshalutil.MarshalUtil) (transactionID TransactionID, err error) {
	transactionIDBytes, err := marshalUtil.ReadBytes(TransactionIDLength)
	if err != nil {
		err = errors.Errorf("failed to parse TransactionID bytes from MarshalUtil: %w", err)
		return
	}
	copy(transactionID[:], transactionIDBytes)

	return
}

// Bytes returns a marshaled version of the TransactionID.
func (t TransactionID) Bytes() []byte {
	return t[:]
}

// Base58 returns a base58 encoded version of the TransactionID.
func (t TransactionID) Base58() string {
	return base58.Encode(t[:])
}

// String returns a human readable version of the TransactionID.
func (t TransactionID) String() string {
	return "TransactionID(" + t.Base58() + ")"
}

// endregion ///////////////////////////////////////////////////////////////////////////////////////////////////////////

// region Proposal /////////////////////////////////////////////////////////////////////////////////////////////////////

// Proposal is a candidate transaction: a command together with the Records it consumes, the Records
// it produces and the sequencer that is in charge of finalizing it. A Proposal carries no
// signatures - those are attached when it is promoted to a Transaction. The creation timestamp is
// part of the signed essence, so two otherwise identical proposals still describe two distinct
// transactions.
type Proposal struct {
	command   Command
	timestamp time.Time
	inputs    []UnspentRecord
	outputs   Records
	notary    identity.ID

	id           *TransactionID
	idMutex      sync.RWMutex
	essenceBytes []byte
	essenceMutex sync.RWMutex
}

// NewProposal creates a new Proposal from the given details, stamped with the current time.
func NewProposal(command Command, inputs []UnspentRecord, outputs Records, notary identity.ID) (proposal *Proposal, err error) {
	if command > CommandRedeem {
		err = errors.Errorf("unknown command (%d): %w", command, ErrProposalMalformed)
		return
	}
	if len(inputs) == 0 && len(outputs) == 0 {
		err = errors.Errorf("a proposal must consume or produce at least one record: %w", ErrProposalMalformed)
		return
	}
	if len(inputs) > math.MaxUint16 {
		err = errors.Errorf("too many inputs (%d): %w", len(inputs), ErrProposalMalformed)
		return
	}
	if len(outputs) > math.MaxUint16 {
		err = errors.Errorf("too many outputs (%d): %w", len(outputs), ErrProposalMalformed)
		return
	}

	proposal = &Proposal{
		command:   command,
		timestamp: time.Now(),
		inputs:    inputs,
		outputs:   outputs,
		notary:    notary,
	}

	return
}

// ProposalFromBytes unmarshals a Proposal from a sequence of bytes.
func ProposalFromBytes(bytes []byte) (proposal *Proposal, consumedBytes int, err error) {
	marshalUtil := marshalutil.New(bytes)
	if proposal, err = ProposalFromMarshalUtil(marshalUtil); err != nil {
		err = errors.Errorf("failed to parse Proposal from MarshalUtil: %w", err)
		return
	}
	consumedBytes = marshalUtil.ReadOffset()

	return
}

// ProposalFromMarshalUtil unmarshals a Proposal using a MarshalUtil (for easier unmarshaling).
func ProposalFromMarshalUtil(marshalUtil *marshalutil.MarshalUtil) (proposal *Proposal, err error) {
	proposal = &Proposal{}
	if proposal.command, err = CommandFromMarshalUtil(marshalUtil); err != nil {
		err = errors.Errorf("failed to parse Command from MarshalUtil: %w", err)
		return
	}
	if proposal.timestamp, err = marshalUtil.ReadTime(); err != nil {
		err = errors.Errorf("failed to parse timestamp from MarshalUtil: %w", err)
		return
	}
	if proposal.notary, err = identity.IDFromMarshalUtil(marshalUtil); err != nil {
		err = errors.Errorf("failed to parse notary from MarshalUtil: %w", err)
		return
	}

	inputCount, err := marshalUtil.ReadUint16()
	if err != nil {
		err = errors.Errorf("failed to parse input count from MarshalUtil: %w", err)
		return
	}
	proposal.inputs = make([]UnspentRecord, inputCount)
	for i := uint16(0); i < inputCount; i++ {
		if proposal.inputs[i], err = UnspentRecordFromMarshalUtil(marshalUtil); err != nil {
			err = errors.Errorf("failed to parse input %d from MarshalUtil: %w", i, err)
			return
		}
	}

	outputCount, err := marshalUtil.ReadUint16()
	if err != nil {
		err = errors.Errorf("failed to parse output count from MarshalUtil: %w", err)
		return
	}
	proposal.outputs = make(Records, outputCount)
	for i := uint16(0); i < outputCount; i++ {
		if proposal.outputs[i], err = RecordFromMarshalUtil(marshalUtil); err != nil {
			err = errors.Errorf("failed to parse output %d from MarshalUtil: %w", i, err)
			return
		}
	}

	return
}

// Command returns the intent of the Proposal.
func (p *Proposal) Command() Command {
	return p.command
}

// Timestamp returns the creation time of the Proposal.
func (p *Proposal) Timestamp() time.Time {
	return p.timestamp
}

// Inputs returns the consumed Records together with their ledger references (empty for Issue).
func (p *Proposal) Inputs() []UnspentRecord {
	return p.inputs
}

// ConsumedRecords returns the Records that the Proposal consumes.
func (p *Proposal) ConsumedRecords() (records Records) {
	records = make(Records, len(p.inputs))
	for i, input := range p.inputs {
		records[i] = input.Record
	}

	return
}

// Outputs returns the Records that the Proposal produces (empty for Redeem).
func (p *Proposal) Outputs() Records {
	return p.outputs
}

// Notary returns the identity of the sequencing service that is designated to finalize the Proposal.
func (p *Proposal) Notary() identity.ID {
	return p.notary
}

// RequiredSigners returns the identities whose signatures are required before the Proposal can be
// finalized: the issuers of the produced Records for an Issue, and the union of every issuer and
// every holder referenced by the consumed Records otherwise. A party that merely receives a
// produced Record gives up nothing and therefore never co-signs; it only gets the finalized
// transaction delivered.
func (p *Proposal) RequiredSigners() (signers SignerSet) {
	if p.command == CommandIssue {
		return p.outputs.Issuers()
	}

	consumed := p.ConsumedRecords()
	signers = consumed.Issuers()
	signers.AddAll(consumed.Holders())
	signers.AddAll(p.outputs.Issuers())

	return
}

// Validate runs the transition rules of the Proposal's command against the given signer set.
func (p *Proposal) Validate(signers SignerSet) error {
	return ValidateTransition(p.command, p.ConsumedRecords(), p.outputs, signers)
}

// EssenceBytes returns the marshaled essence of the Proposal: the byte sequence that the parties
// sign and the TransactionID is derived from.
func (p *Proposal) EssenceBytes() (essenceBytes []byte) {
	p.essenceMutex.RLock()
	if essenceBytes = p.essenceBytes; essenceBytes != nil {
		p.essenceMutex.RUnlock()
		return
	}

	p.essenceMutex.RUnlock()
	p.essenceMutex.Lock()
	defer p.essenceMutex.Unlock()
	if essenceBytes = p.essenceBytes; essenceBytes != nil {
		return
	}

	marshalUtil := marshalutil.New().
		WriteByte(byte(p.command)).
		WriteTime(p.timestamp).
		WriteBytes(p.notary.Bytes()).
		WriteUint16(uint16(len(p.inputs)))
	for _, input := range p.inputs {
		marshalUtil.WriteBytes(input.Bytes())
	}
	marshalUtil.WriteUint16(uint16(len(p.outputs)))
	for _, output := range p.outputs {
		marshalUtil.WriteBytes(output.Bytes())
	}

	essenceBytes = marshalUtil.Bytes()
	p.essenceBytes = essenceBytes

	return
}

// ID returns the identifier of the transaction that the Proposal describes.
func (p *Proposal) ID() (transactionID TransactionID) {
	p.idMutex.RLock()
	if p.id != nil {
		transactionID = *p.id
		p.idMutex.RUnlock()
		return
	}

	p.idMutex.RUnlock()
	p.idMutex.Lock()
	defer p.idMutex.Unlock()
	if p.id != nil {
		transactionID = *p.id
		return
	}

	transactionID = blake2b.Sum256(p.EssenceBytes())
	p.id = &transactionID

	return
}

// Bytes returns a marshaled version of the Proposal.
func (p *Proposal) Bytes() []byte {
	return p.EssenceBytes()
}

// String returns a human readable version of the Proposal.
func (p *Proposal) String() string {
	structBuilder := stringify.StructBuilder("Proposal")
	structBuilder.AddField(stringify.StructField("id", p.ID()))
	structBuilder.AddField(stringify.StructField("command", p.command.String()))
	structBuilder.AddField(stringify.StructField("timestamp", p.timestamp))
	structBuilder.AddField(stringify.StructField("notary", base58.Encode(p.notary.Bytes())))
	for _, input := range p.inputs {
		structBuilder.AddField(stringify.StructField("input", input))
	}
	for _, output := range p.outputs {
		structBuilder.AddField(stringify.StructField("output", output))
	}

	return structBuilder.String()
}

// endregion ///////////////////////////////////////////////////////////////////////////////////////////////////////////

// region Transaction //////////////////////////////////////////////////////////////////////////////////////////////////

// Transaction is a Proposal with its collected signatures. Once the designated sequencer has
// attached its attestation the Transaction is finalized and immutable; its outputs become spendable
// Records of the ledger.
type Transaction struct {
	proposal    *Proposal
	signatures  Signatures
	attestation *Signature
}

// NewTransaction creates a new Transaction from the given Proposal and signatures.
func NewTransaction(proposal *Proposal, signatures Signatures) *Transaction {
	return &Transaction{
		proposal:   proposal,
		signatures: signatures,
	}
}

// TransactionFromBytes unmarshals a Transaction from a sequence of bytes.
func TransactionFromBytes(bytes []byte) (transaction *Transaction, consumedBytes int, err error) {
	marshalUtil := marshalutil.New(bytes)
	if transaction, err = TransactionFromMarshalUtil(marshalUtil); err != nil {
		err = errors.Errorf("failed to parse Transaction from MarshalUtil: %w", err)
		return
	}
	consumedBytes = marshalUtil.ReadOffset()

	return
}

// TransactionFromMarshalUtil unmarshals a Transaction using a MarshalUtil (for easier unmarshaling).
func TransactionFromMarshalUtil(marshalUtil *marshalutil.MarshalUtil) (transaction *Transaction, err error) {
	transaction = &Transaction{}
	if transaction.proposal, err = ProposalFromMarshalUtil(marshalUtil); err != nil {
		err = errors.Errorf("failed to parse Proposal from MarshalUtil: %w", err)
		return
	}

	signatureCount, err := marshalUtil.ReadUint16()
	if err != nil {
		err = errors.Errorf("failed to parse signature count from MarshalUtil: %w", err)
		return
	}
	transaction.signatures = make(Signatures, signatureCount)
	for i := uint16(0); i < signatureCount; i++ {
		if transaction.signatures[i], err = SignatureFromMarshalUtil(marshalUtil); err != nil {
			err = errors.Errorf("failed to parse signature %d from MarshalUtil: %w", i, err)
			return
		}
	}

	attested, err := marshalUtil.ReadBool()
	if err != nil {
		err = errors.Errorf("failed to parse attestation flag from MarshalUtil: %w", err)
		return
	}
	if attested {
		attestation, attestationErr := SignatureFromMarshalUtil(marshalUtil)
		if attestationErr != nil {
			err = errors.Errorf("failed to parse attestation from MarshalUtil: %w", attestationErr)
			return
		}
		transaction.attestation = &attestation
	}

	return
}

// ID returns the identifier of the Transaction.
func (t *Transaction) ID() TransactionID {
	return t.proposal.ID()
}

// Proposal returns the Proposal that the Transaction was built from.
func (t *Transaction) Proposal() *Proposal {
	return t.proposal
}

// Signatures returns the signatures collected for the Transaction.
func (t *Transaction) Signatures() Signatures {
	return t.signatures
}

// SignedBy returns true if the Transaction carries a valid signature of the given party.
func (t *Transaction) SignedBy(signer identity.ID) bool {
	for _, signature := range t.signatures {
		if signature.SignerID() == signer && signature.Valid(t.proposal.EssenceBytes()) {
			return true
		}
	}

	return false
}

// SignaturesComplete returns true if every required signer of the underlying Proposal has produced
// a valid signature.
func (t *Transaction) SignaturesComplete() bool {
	for signer := range t.proposal.RequiredSigners() {
		if !t.SignedBy(signer) {
			return false
		}
	}

	return true
}

// Attested returns true if the designated sequencer has attached its attestation.
func (t *Transaction) Attested() bool {
	return t.attestation != nil
}

// Attestation returns the sequencer's attestation of the Transaction.
func (t *Transaction) Attestation() (attestation Signature, exists bool) {
	if t.attestation == nil {
		return
	}

	return *t.attestation, true
}

// WithAttestation returns a finalized copy of the Transaction carrying the given attestation. The
// original Transaction is left untouched.
func (t *Transaction) WithAttestation(attestation Signature) *Transaction {
	return &Transaction{
		proposal:    t.proposal,
		signatures:  t.signatures,
		attestation: &attestation,
	}
}

// Bytes returns a marshaled version of the Transaction.
func (t *Transaction) Bytes() []byte {
	marshalUtil := marshalutil.New().
		WriteBytes(t.proposal.Bytes()).
		WriteUint16(uint16(len(t.signatures)))
	for _, signature := range t.signatures {
		marshalUtil.WriteBytes(signature.Bytes())
	}
	marshalUtil.WriteBool(t.attestation != nil)
	if t.attestation != nil {
		marshalUtil.WriteBytes(t.attestation.Bytes())
	}

	return marshalUtil.Bytes()
}

// String returns a human readable version of the Transaction.
func (t *Transaction) String() string {
	return stringify.Struct("Transaction",
		stringify.StructField("proposal", t.proposal),
		stringify.StructField("signatureCount", len(t.signatures)),
		stringify.StructField("attested", t.attestation != nil),
	)
}

// endregion ///////////////////////////////////////////////////////////////////////////////////////////////////////////
