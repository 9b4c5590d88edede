// Package propagate derives a change request's remediation plan from the
// chain schema and advances it one step at a time.
package propagate

import (
	"fmt"
	"strings"

	"github.com/papapumpkin/vchain/internal/chain"
	"github.com/papapumpkin/vchain/internal/cr"
)

// Plan returns the ordered steps for a change originating in origin: the
// direct upstream documents in schema declaration order, then every
// document reachable downstream in topological order. Ties in the
// topological order fall back to declaration order. All steps are pending.
func Plan(s *chain.Schema, origin chain.DocType) ([]cr.PropagationStep, error) {
	if !s.Known(origin) {
		return nil, fmt.Errorf("%w: %s", chain.ErrUnknownDocType, origin)
	}

	steps := []cr.PropagationStep{}
	for _, up := range s.Predecessors(origin) {
		steps = append(steps, cr.PropagationStep{
			DocType:   up,
			Direction: cr.DirectionUpstream,
			Status:    cr.StepPending,
		})
	}

	g := s.Graph()
	closure := g.Subgraph(g.Descendants(string(origin)))
	order, err := closure.TopologicalSort()
	if err != nil {
		return nil, fmt.Errorf("ordering downstream of %s: %w", origin, err)
	}
	for _, id := range order {
		steps = append(steps, cr.PropagationStep{
			DocType:   chain.DocType(id),
			Direction: cr.DirectionDownstream,
			Status:    cr.StepPending,
		})
	}
	return steps, nil
}

// Options controls how Next records the processed step.
type Options struct {
	Skip bool
	Note string
}

// Instruction describes the step Next just processed.
type Instruction struct {
	Index     int           `json:"index" yaml:"index"` // zero-based position of the step
	DocType   chain.DocType `json:"doc_type" yaml:"doc_type"`
	Direction cr.Direction  `json:"direction" yaml:"direction"`
	Status    cr.StepStatus `json:"status" yaml:"status"`
	Text      string        `json:"instruction" yaml:"instruction"`
	Remaining int           `json:"remaining" yaml:"remaining"`
}

// Next processes exactly the step at the cursor: it marks it done or
// skipped, records the note, and advances the cursor by one. When the
// cursor is already at the end it changes nothing and reports done=true.
func Next(c *cr.ChangeRequest, opts Options) (Instruction, bool) {
	if c.PropagationDone() {
		return Instruction{Index: c.PropagationIndex}, true
	}
	i := c.PropagationIndex
	step := &c.PropagationSteps[i]
	step.Status = cr.StepDone
	if opts.Skip {
		step.Status = cr.StepSkipped
	}
	if opts.Note != "" {
		step.Note = opts.Note
	}
	c.PropagationIndex++

	return Instruction{
		Index:     i,
		DocType:   step.DocType,
		Direction: step.Direction,
		Status:    step.Status,
		Text:      Instruct(*step, c.OriginDoc, c.ChangedIDs),
		Remaining: len(c.PropagationSteps) - c.PropagationIndex,
	}, false
}

// Instruct renders the direction-specific instruction for step. Upstream
// steps only suggest a review; downstream steps ask for regeneration.
func Instruct(step cr.PropagationStep, origin chain.DocType, changed []string) string {
	ids := "(no identifiers recorded)"
	if len(changed) > 0 {
		ids = strings.Join(changed, ", ")
	}
	if step.Direction == cr.DirectionUpstream {
		return fmt.Sprintf("Review upstream %s for consistency with the change to %s affecting %s. "+
			"Suggest edits only; do not modify %s automatically.", step.DocType, origin, ids, step.DocType)
	}
	return fmt.Sprintf("Regenerate downstream %s to cascade the change to %s affecting %s.",
		step.DocType, origin, ids)
}
