package requeststore

import (
	"fmt"
)

// ErrRequestNotFound is returned when there is no record for a request.
type ErrRequestNotFound struct {
	RequestID string
}

func NewErrRequestNotFound(id string) ErrRequestNotFound {
	return ErrRequestNotFound{RequestID: id}
}

func (e ErrRequestNotFound) Error() string {
	return "request not found: " + e.RequestID
}

// ErrRequestAlreadySubmitted is returned when a submitted request would be
// moved to another state.
type ErrRequestAlreadySubmitted struct {
	RequestID string
	NewState  State
}

func NewErrRequestAlreadySubmitted(id string, newState State) ErrRequestAlreadySubmitted {
	return ErrRequestAlreadySubmitted{RequestID: id, NewState: newState}
}

func (e ErrRequestAlreadySubmitted) Error() string {
	return fmt.Sprintf("request %s was already submitted and cannot transition to %s", e.RequestID, e.NewState)
}

// ValidateTransition checks that a record in state current may be replaced
// by one in state next.
func ValidateTransition(id string, current, next State) error {
	if current == StateSubmitted && next != StateSubmitted {
		return NewErrRequestAlreadySubmitted(id, next)
	}
	return nil
}

func validateRecord(r Record) error {
	if r.ID == "" {
		return fmt.Errorf("request record has no id")
	}
	if r.State == stateUndefined {
		return fmt.Errorf("request %s has no state", r.ID)
	}
	return nil
}

// Validate checks the fields every stored record must have.
func (r Record) Validate() error {
	return validateRecord(r)
}
