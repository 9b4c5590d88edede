package cr

import (
	"errors"
	"strings"
)

// Sentinel errors for change request storage and lifecycle.
var (
	// ErrInvalidID indicates a change request id that is not CR-YYMMDD-NNN.
	ErrInvalidID = errors.New("invalid change request id")
	// ErrNotFound indicates no record exists for the id.
	ErrNotFound = errors.New("change request not found")
	// ErrCorruptRecord indicates a record whose header cannot be trusted.
	ErrCorruptRecord = errors.New("corrupt change request record")
	// ErrInvalidTransition indicates a status change outside the transition table.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrWrongState indicates an action invoked in a status it does not accept.
	ErrWrongState = errors.New("wrong status for action")
	// ErrInvalidStatus indicates an unrecognized status value.
	ErrInvalidStatus = errors.New("invalid status")
	// ErrIDExhausted indicates every sequence number for the day is taken.
	ErrIDExhausted = errors.New("change request ids exhausted for the day")
)

// IntegrityError reports a persisted record that failed to load.
type IntegrityError struct {
	ID   string
	Path string
	Err  error
}

// Error returns a human-readable string naming the record.
func (e *IntegrityError) Error() string {
	return e.Path + ": " + e.Err.Error()
}

// Unwrap returns the underlying error for use with errors.Is/As.
func (e *IntegrityError) Unwrap() error {
	return e.Err
}

// StateError reports an action rejected by its status precondition.
type StateError struct {
	Action   Action
	ID       string
	Actual   Status
	Required []Status
}

// Error names the action, the actual status and the accepted ones.
func (e *StateError) Error() string {
	req := make([]string, len(e.Required))
	for i, s := range e.Required {
		req[i] = string(s)
	}
	var b strings.Builder
	b.WriteString("cannot ")
	b.WriteString(string(e.Action))
	if e.ID != "" {
		b.WriteString(" " + e.ID)
	}
	b.WriteString(": status is " + string(e.Actual))
	b.WriteString(", requires " + strings.Join(req, " or "))
	return b.String()
}

// Unwrap returns ErrWrongState.
func (e *StateError) Unwrap() error {
	return ErrWrongState
}
