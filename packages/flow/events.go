package flow

import (
	"github.com/iotaledger/hive.go/events"

	"github.com/tokenkit/tokenkit/packages/token"
)

// Events defines the observational events of transaction runs.
type Events struct {
	// StepTaken gets triggered whenever a run enters the next step of its state machine.
	StepTaken *events.Event

	// TransactionFinalized gets triggered when the sequencer has attested a run's transaction.
	TransactionFinalized *events.Event

	// RunAborted gets triggered when a run fails; it carries the step the run failed in.
	RunAborted *events.Event
}

func newEvents() *Events {
	return &Events{
		StepTaken:            events.NewEvent(stepEvent),
		TransactionFinalized: events.NewEvent(transactionEvent),
		RunAborted:           events.NewEvent(stepEvent),
	}
}

func stepEvent(handler interface{}, params ...interface{}) {
	handler.(func(token.TransactionID, Step))(params[0].(token.TransactionID), params[1].(Step))
}

func transactionEvent(handler interface{}, params ...interface{}) {
	handler.(func(*token.Transaction))(params[0].(*token.Transaction))
}
