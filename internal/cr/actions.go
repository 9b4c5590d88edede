package cr

// Action names a verb of the change request surface.
type Action string

// Change request actions.
const (
	ActionCreate        Action = "create"
	ActionAnalyze       Action = "analyze"
	ActionApprove       Action = "approve"
	ActionPropagateNext Action = "propagate_next"
	ActionValidate      Action = "validate"
	ActionComplete      Action = "complete"
	ActionStatus        Action = "status"
	ActionList          Action = "list"
	ActionCancel        Action = "cancel"
	ActionReapprove     Action = "reapprove"
)

// preconditions lists the statuses each mutating action accepts.
var preconditions = map[Action][]Status{
	ActionAnalyze:       {StatusInitiated},
	ActionApprove:       {StatusImpactAnalyzed},
	ActionPropagateNext: {StatusApproved, StatusPropagating},
	ActionValidate:      {StatusPropagating},
	ActionComplete:      {StatusValidated},
	ActionReapprove:     {StatusPropagating},
	ActionCancel: {
		StatusInitiated, StatusAnalyzing, StatusImpactAnalyzed,
		StatusApproved, StatusPropagating, StatusValidated,
	},
}

// Required returns the statuses action accepts, or nil for actions without
// a precondition.
func (a Action) Required() []Status {
	return append([]Status(nil), preconditions[a]...)
}

// RequireStatus rejects c with a *StateError unless its status satisfies
// the action's precondition. It does not consult the transition table.
func RequireStatus(a Action, c *ChangeRequest) error {
	required, ok := preconditions[a]
	if !ok {
		return nil
	}
	for _, s := range required {
		if c.Status == s {
			return nil
		}
	}
	return &StateError{Action: a, ID: c.ID, Actual: c.Status, Required: append([]Status(nil), required...)}
}
