package pipeline

import "fmt"

// ItemState is the position of one upload item in its lifecycle
type ItemState string

const (
	StateDiscovered ItemState = "discovered"
	StateValidated  ItemState = "validated"  // local file exists
	StateRegistered ItemState = "registered" // remote row exists
	StateUploaded   ItemState = "uploaded"
	StateFinalized  ItemState = "finalized"
	StateFailed     ItemState = "failed"
)

// StateTransition represents a valid state transition
type StateTransition struct {
	From ItemState
	To   ItemState
}

// validTransitions defines every step an item may take. Failed and finalized are terminal.
var validTransitions = map[StateTransition]bool{
	{StateDiscovered, StateValidated}: true,
	{StateDiscovered, StateFailed}:    true,

	{StateValidated, StateRegistered}: true,
	{StateValidated, StateFailed}:     true,

	{StateRegistered, StateUploaded}: true,
	{StateRegistered, StateFailed}:   true,

	{StateUploaded, StateFinalized}: true,
	{StateUploaded, StateFailed}:    true,
}

// ValidateTransition checks if a state transition is valid
func ValidateTransition(from, to ItemState) error {
	if !validTransitions[StateTransition{From: from, To: to}] {
		return fmt.Errorf("invalid state transition from %s to %s", from, to)
	}
	return nil
}

// IsTerminalState reports whether no further transitions are possible
func IsTerminalState(state ItemState) bool {
	return state == StateFinalized || state == StateFailed
}

// HasRemoteRow reports whether an item in this state has been registered
func HasRemoteRow(state ItemState) bool {
	return state == StateRegistered || state == StateUploaded || state == StateFinalized
}
