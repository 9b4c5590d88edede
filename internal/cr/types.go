// Package cr persists change requests and enforces their lifecycle.
//
// A change request is stored as one Markdown file per id: a +++ TOML
// header holding the structured record, followed by a narrative generated
// from that header on every write. The header is the source of truth.
package cr

import (
	"time"

	"github.com/papapumpkin/vchain/internal/chain"
)

// Status is the lifecycle state of a change request.
type Status string

// Change request statuses.
const (
	StatusInitiated      Status = "INITIATED"
	StatusAnalyzing      Status = "ANALYZING"
	StatusImpactAnalyzed Status = "IMPACT_ANALYZED"
	StatusApproved       Status = "APPROVED"
	StatusPropagating    Status = "PROPAGATING"
	StatusValidated      Status = "VALIDATED"
	StatusCompleted      Status = "COMPLETED"
	StatusCancelled      Status = "CANCELLED"
)

// Direction says whether a propagation step reviews an upstream document
// or regenerates a downstream one.
type Direction string

// Propagation directions.
const (
	DirectionUpstream   Direction = "upstream"
	DirectionDownstream Direction = "downstream"
)

// StepStatus is the progress of a single propagation step.
type StepStatus string

// Step statuses.
const (
	StepPending StepStatus = "pending"
	StepDone    StepStatus = "done"
	StepSkipped StepStatus = "skipped"
)

// OverlapType classifies a conflict between two change requests.
type OverlapType string

// Overlap types, in order of precedence.
const (
	OverlapIdentifier OverlapType = "identifier"
	OverlapDocument   OverlapType = "document"
)

// HistoryEntry records one status the change request entered.
type HistoryEntry struct {
	Status  Status    `toml:"status" json:"status" yaml:"status"`
	Entered time.Time `toml:"entered" json:"entered" yaml:"entered"`
	Reason  string    `toml:"reason,omitempty" json:"reason,omitempty" yaml:"reason,omitempty"`
}

// PropagationStep is one unit of remediation work in a plan.
type PropagationStep struct {
	DocType   chain.DocType `toml:"doc_type" json:"doc_type" yaml:"doc_type"`
	Direction Direction     `toml:"direction" json:"direction" yaml:"direction"`
	Status    StepStatus    `toml:"status" json:"status" yaml:"status"`
	Note      string        `toml:"note,omitempty" json:"note,omitempty" yaml:"note,omitempty"`
}

// ConflictWarning is an advisory overlap with another active change request.
type ConflictWarning struct {
	CRID        string      `toml:"cr_id" json:"cr_id" yaml:"cr_id"`
	OverlapType OverlapType `toml:"overlap_type" json:"overlap_type" yaml:"overlap_type"`
	Overlapping []string    `toml:"overlapping" json:"overlapping" yaml:"overlapping"`
}

// ChangeRequest is the persisted record of one edit and its ripple through
// the chain. Steps before PropagationIndex are done or skipped; steps at or
// after it are pending.
type ChangeRequest struct {
	ID               string            `toml:"id" json:"id" yaml:"id"`
	Status           Status            `toml:"status" json:"status" yaml:"status"`
	OriginDoc        chain.DocType     `toml:"origin_doc" json:"origin_doc" yaml:"origin_doc"`
	Description      string            `toml:"description" json:"description" yaml:"description"`
	ChangedIDs       []string          `toml:"changed_ids" json:"changed_ids" yaml:"changed_ids"`
	ImpactSummary    string            `toml:"impact_summary" json:"impact_summary" yaml:"impact_summary"`
	PropagationSteps []PropagationStep `toml:"propagation_steps" json:"propagation_steps" yaml:"propagation_steps"`
	PropagationIndex int               `toml:"propagation_index" json:"propagation_index" yaml:"propagation_index"`
	ConflictWarnings []ConflictWarning `toml:"conflict_warnings" json:"conflict_warnings" yaml:"conflict_warnings"`
	Created          time.Time         `toml:"created" json:"created" yaml:"created"`
	Updated          time.Time         `toml:"updated" json:"updated" yaml:"updated"`
	History          []HistoryEntry    `toml:"history" json:"history" yaml:"history"`
}

// Summary is the index view of a change request.
type Summary struct {
	ID          string        `json:"id" yaml:"id"`
	Status      Status        `json:"status" yaml:"status"`
	OriginDoc   chain.DocType `json:"origin_doc" yaml:"origin_doc"`
	Description string        `json:"description" yaml:"description"`
	Created     time.Time     `json:"created" yaml:"created"`
	Updated     time.Time     `json:"updated" yaml:"updated"`
}

// Summary returns the index view of c.
func (c *ChangeRequest) Summary() Summary {
	return Summary{
		ID:          c.ID,
		Status:      c.Status,
		OriginDoc:   c.OriginDoc,
		Description: c.Description,
		Created:     c.Created,
		Updated:     c.Updated,
	}
}

// PendingSteps returns the steps not yet processed.
func (c *ChangeRequest) PendingSteps() []PropagationStep {
	var out []PropagationStep
	for _, s := range c.PropagationSteps {
		if s.Status == StepPending {
			out = append(out, s)
		}
	}
	return out
}

// PropagationDone reports whether the cursor has consumed every step.
func (c *ChangeRequest) PropagationDone() bool {
	return c.PropagationIndex >= len(c.PropagationSteps)
}
