package workflow

import "errors"

// Sentinel errors for the action surface.
var (
	// ErrValidation indicates a malformed request. Nothing was changed.
	ErrValidation = errors.New("invalid request")
	// ErrPendingSteps indicates validation was requested while propagation
	// steps are still pending and partial validation was not allowed.
	ErrPendingSteps = errors.New("propagation steps still pending")
)
