package token

import (
	"github.com/cockroachdb/errors"
	"github.com/iotaledger/hive.go/crypto/ed25519"
	"github.com/iotaledger/hive.go/identity"
	"github.com/iotaledger/hive.go/marshalutil"
	"github.com/iotaledger/hive.go/stringify"
	"github.com/iotaledger/hive.go/types"
	"github.com/mr-tron/base58"
)

// region Signature ////////////////////////////////////////////////////////////////////////////////////////////////////

// SignatureLength contains the amount of bytes of a marshaled Signature.
const SignatureLength = ed25519.PublicKeySize + ed25519.SignatureSize

// Signature is a party's ed25519 signature over the essence bytes of a Proposal, together with the
// public key that produced it.
type Signature struct {
	publicKey ed25519.PublicKey
	signature ed25519.Signature
}

// NewSignature creates a Signature from the given public key and raw signature.
func NewSignature(publicKey ed25519.PublicKey, signature ed25519.Signature) Signature {
	return Signature{
		publicKey: publicKey,
		signature: signature,
	}
}

// Sign signs the given essence bytes with the given local identity.
func Sign(local *identity.LocalIdentity, essenceBytes []byte) Signature {
	return NewSignature(local.PublicKey(), local.Sign(essenceBytes))
}

// SignatureFromMarshalUtil unmarshals a Signature using a MarshalUtil (for easier unmarshaling).
func SignatureFromMarshalUtil(marshalUtil *marshalutil.MarshalUtil) (signature Signature, err error) {
	if signature.publicKey, err = ed25519.ParsePublicKey(marshalUtil); err != nil {
		err = errors.Errorf("failed to parse public key from MarshalUtil: %w", err)
		return
	}
	if signature.signature, err = ed25519.ParseSignature(marshalUtil); err != nil {
		err = errors.Errorf("failed to parse signature from MarshalUtil: %w", err)
		return
	}

	return
}

// SignerID returns the identity of the party that produced the Signature.
func (s Signature) SignerID() identity.ID {
	return identity.NewID(s.publicKey)
}

// PublicKey returns the public key that produced the Signature.
func (s Signature) PublicKey() ed25519.PublicKey {
	return s.publicKey
}

// Valid checks the Signature against the given essence bytes.
func (s Signature) Valid(essenceBytes []byte) bool {
	return s.publicKey.VerifySignature(essenceBytes, s.signature)
}

// Bytes returns a marshaled version of the Signature.
func (s Signature) Bytes() []byte {
	return marshalutil.New(SignatureLength).
		WriteBytes(s.publicKey.Bytes()).
		WriteBytes(s.signature.Bytes()).
		Bytes()
}

// String returns a human readable version of the Signature.
func (s Signature) String() string {
	return stringify.Struct("Signature",
		stringify.StructField("signer", base58.Encode(s.SignerID().Bytes())),
	)
}

// endregion ///////////////////////////////////////////////////////////////////////////////////////////////////////////

// region Signatures ///////////////////////////////////////////////////////////////////////////////////////////////////

// Signatures is an ordered collection of Signatures attached to a Proposal.
type Signatures []Signature

// SignerIDs returns the set of identities that produced the Signatures.
func (s Signatures) SignerIDs() (signers SignerSet) {
	signers = NewSignerSet()
	for _, signature := range s {
		signers.Add(signature.SignerID())
	}

	return
}

// endregion ///////////////////////////////////////////////////////////////////////////////////////////////////////////

// region SignerSet ////////////////////////////////////////////////////////////////////////////////////////////////////

// SignerSet is an unordered set of party identities.
type SignerSet map[identity.ID]types.Empty

// NewSignerSet creates a SignerSet containing the given identities.
func NewSignerSet(signers ...identity.ID) (signerSet SignerSet) {
	signerSet = make(SignerSet)
	for _, signer := range signers {
		signerSet.Add(signer)
	}

	return
}

// Add adds an identity to the set.
func (s SignerSet) Add(signer identity.ID) {
	s[signer] = types.Void
}

// Has returns true if the given identity is a member of the set.
func (s SignerSet) Has(signer identity.ID) (has bool) {
	_, has = s[signer]

	return
}

// AddAll adds every identity of the other set to the set.
func (s SignerSet) AddAll(other SignerSet) {
	for signer := range other {
		s.Add(signer)
	}
}

// Equals returns true if the two sets contain exactly the same identities.
func (s SignerSet) Equals(other SignerSet) bool {
	if len(s) != len(other) {
		return false
	}
	for signer := range s {
		if !other.Has(signer) {
			return false
		}
	}

	return true
}

// Size returns the number of identities in the set.
func (s SignerSet) Size() int {
	return len(s)
}

// Slice returns the identities of the set in unspecified order.
func (s SignerSet) Slice() (signers []identity.ID) {
	signers = make([]identity.ID, 0, len(s))
	for signer := range s {
		signers = append(signers, signer)
	}

	return
}

// String returns a human readable version of the SignerSet.
func (s SignerSet) String() string {
	structBuilder := stringify.StructBuilder("SignerSet")
	for signer := range s {
		structBuilder.AddField(stringify.StructField("signer", base58.Encode(signer.Bytes())))
	}

	return structBuilder.String()
}

// endregion ///////////////////////////////////////////////////////////////////////////////////////////////////////////
