package token

import (
	"github.com/cockroachdb/errors"
	"github.com/mr-tron/base58"
)

// ValidateTransition decides whether consuming the given inputs and producing the given outputs is a
// legal transition under the given command, authorized by the given signer set. It is a pure
// function: deterministic, idempotent and free of side effects. Any violated rule is reported as a
// descriptive error wrapping ErrTransactionInvalid.
func ValidateTransition(command Command, inputs Records, outputs Records, signers SignerSet) (err error) {
	// strictly positive quantities are a shared precondition of every command
	for _, record := range inputs {
		if record.Quantity() <= 0 {
			return errors.Errorf("input quantity %d of issuer %s is not strictly positive: %w",
				record.Quantity(), base58.Encode(record.Issuer().Bytes()), ErrTransactionInvalid)
		}
	}
	for _, record := range outputs {
		if record.Quantity() <= 0 {
			return errors.Errorf("output quantity %d of issuer %s is not strictly positive: %w",
				record.Quantity(), base58.Encode(record.Issuer().Bytes()), ErrTransactionInvalid)
		}
	}

	switch command {
	case CommandIssue:
		return validateIssue(inputs, outputs, signers)
	case CommandMove:
		return validateMove(inputs, outputs, signers)
	case CommandRedeem:
		return validateRedeem(inputs, outputs, signers)
	default:
		return errors.Errorf("unknown command (%d): %w", command, ErrProposalMalformed)
	}
}

func validateIssue(inputs Records, outputs Records, signers SignerSet) (err error) {
	if len(inputs) != 0 {
		return errors.Errorf("an issue must not consume records (%d consumed): %w", len(inputs), ErrTransactionInvalid)
	}
	if len(outputs) == 0 {
		return errors.Errorf("an issue must produce at least one record: %w", ErrTransactionInvalid)
	}
	for issuer := range outputs.Issuers() {
		if !signers.Has(issuer) {
			return errors.Errorf("issuer %s of a produced record is not a signer: %w",
				base58.Encode(issuer.Bytes()), ErrTransactionInvalid)
		}
	}

	return
}

func validateMove(inputs Records, outputs Records, signers SignerSet) (err error) {
	if len(inputs) == 0 {
		return errors.Errorf("a move must consume at least one record: %w", ErrTransactionInvalid)
	}
	if len(outputs) == 0 {
		return errors.Errorf("a move must produce at least one record: %w", ErrTransactionInvalid)
	}

	// conservation law: the total owed by any issuer never changes in a move
	consumedQuantities, err := inputs.QuantitiesByIssuer()
	if err != nil {
		return errors.Errorf("failed to sum consumed quantities: %w", err)
	}
	producedQuantities, err := outputs.QuantitiesByIssuer()
	if err != nil {
		return errors.Errorf("failed to sum produced quantities: %w", err)
	}
	if len(consumedQuantities) != len(producedQuantities) {
		return errors.Errorf("consumed and produced records reference different issuer sets: %w", ErrTransactionInvalid)
	}
	for issuer, consumedQuantity := range consumedQuantities {
		producedQuantity, issuerProduced := producedQuantities[issuer]
		if !issuerProduced {
			return errors.Errorf("issuer %s is consumed but not produced: %w",
				base58.Encode(issuer.Bytes()), ErrTransactionInvalid)
		}
		if consumedQuantity != producedQuantity {
			return errors.Errorf("issuer %s consumes %d but produces %d: %w",
				base58.Encode(issuer.Bytes()), consumedQuantity, producedQuantity, ErrTransactionInvalid)
		}
	}

	for holder := range inputs.Holders() {
		if !signers.Has(holder) {
			return errors.Errorf("holder %s of a consumed record is not a signer: %w",
				base58.Encode(holder.Bytes()), ErrTransactionInvalid)
		}
	}

	return
}

func validateRedeem(inputs Records, outputs Records, signers SignerSet) (err error) {
	if len(inputs) == 0 {
		return errors.Errorf("a redeem must consume at least one record: %w", ErrTransactionInvalid)
	}
	if len(outputs) != 0 {
		return errors.Errorf("a redeem must not produce records (%d produced): %w", len(outputs), ErrTransactionInvalid)
	}
	for issuer := range inputs.Issuers() {
		if !signers.Has(issuer) {
			return errors.Errorf("issuer %s of a consumed record is not a signer: %w",
				base58.Encode(issuer.Bytes()), ErrTransactionInvalid)
		}
	}
	for holder := range inputs.Holders() {
		if !signers.Has(holder) {
			return errors.Errorf("holder %s of a consumed record is not a signer: %w",
				base58.Encode(holder.Bytes()), ErrTransactionInvalid)
		}
	}

	return
}
