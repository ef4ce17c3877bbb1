package token

import (
	"github.com/cockroachdb/errors"
	"github.com/iotaledger/hive.go/marshalutil"
)

// region Command //////////////////////////////////////////////////////////////////////////////////////////////////////

const (
	// CommandIssue creates new Records out of thin air, authorized by their issuers.
	CommandIssue Command = iota

	// CommandMove consumes existing Records and produces new ones, conserving the total per issuer.
	CommandMove

	// CommandRedeem consumes existing Records without producing replacements.
	CommandRedeem
)

// Command represents the intent of a transaction: it determines which transition rules apply.
type Command uint8

// CommandFromMarshalUtil unmarshals a Command using a MarshalUtil (for easier unmarshaling).
func CommandFromMarshalUtil(marshalUtil *marshalutil.MarshalUtil) (command Command, err error) {
	commandByte, err := marshalUtil.ReadByte()
	if err != nil {
		err = errors.Errorf("failed to parse Command from MarshalUtil: %w", err)
		return
	}

	if command = Command(commandByte); command > CommandRedeem {
		err = errors.Errorf("unknown Command (%d): %w", commandByte, ErrProposalMalformed)
		return
	}

	return
}

// Bytes returns a marshaled version of the Command.
func (c Command) Bytes() []byte {
	return []byte{byte(c)}
}

// String returns a human readable representation of the Command.
func (c Command) String() string {
	return [...]string{
		"Issue",
		"Move",
		"Redeem",
	}[c]
}

// endregion ///////////////////////////////////////////////////////////////////////////////////////////////////////////
