package cr

import (
	"fmt"
	"time"
)

// transitions is the complete lifecycle graph. Terminal statuses have no
// outgoing edges.
var transitions = map[Status][]Status{
	StatusInitiated:      {StatusAnalyzing, StatusCancelled},
	StatusAnalyzing:      {StatusImpactAnalyzed, StatusCancelled},
	StatusImpactAnalyzed: {StatusApproved, StatusCancelled},
	StatusApproved:       {StatusPropagating, StatusCancelled},
	StatusPropagating:    {StatusValidated, StatusApproved, StatusCancelled},
	StatusValidated:      {StatusCompleted, StatusCancelled},
}

// Statuses returns every status in lifecycle order.
func Statuses() []Status {
	return []Status{
		StatusInitiated, StatusAnalyzing, StatusImpactAnalyzed, StatusApproved,
		StatusPropagating, StatusValidated, StatusCompleted, StatusCancelled,
	}
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	for _, known := range Statuses() {
		if s == known {
			return true
		}
	}
	return false
}

// Terminal reports whether s permits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// ParseStatus validates a user-supplied status name.
func ParseStatus(name string) (Status, error) {
	s := Status(name)
	if !s.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, name)
	}
	return s, nil
}

// ValidateTransition reports whether from -> to is a declared edge.
func ValidateTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Transition moves c to status to, appending a history entry and stamping
// Updated. The record is left untouched when the edge is not declared.
func (c *ChangeRequest) Transition(to Status, reason string, at time.Time) error {
	if !ValidateTransition(c.Status, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, c.Status, to)
	}
	c.Status = to
	c.Updated = at
	c.History = append(c.History, HistoryEntry{Status: to, Entered: at, Reason: reason})
	return nil
}
