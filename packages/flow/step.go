package flow

// region Step /////////////////////////////////////////////////////////////////////////////////////////////////////////

const (
	// StepGenerating is the initial step: the candidate transaction is being assembled.
	StepGenerating Step = iota

	// StepValidating runs the transition rules against the candidate before anything is signed.
	StepValidating

	// StepLocallySigning attaches the initiating party's own signature.
	StepLocallySigning

	// StepCollectingSignatures requests a counter-signature from every other required party.
	StepCollectingSignatures

	// StepFinalizing submits the fully-signed transaction to the sequencer for global ordering.
	StepFinalizing

	// StepDone marks a finalized run.
	StepDone
)

// Step represents the position of a transaction run in its protocol state machine. Steps are
// strictly sequential and purely observational: they are emitted on the Events of the run but never
// gate control flow.
type Step uint8

// String returns a human readable representation of the Step.
func (s Step) String() string {
	return [...]string{
		"Generating",
		"Validating",
		"LocallySigning",
		"CollectingSignatures",
		"Finalizing",
		"Done",
	}[s]
}

// endregion ///////////////////////////////////////////////////////////////////////////////////////////////////////////
