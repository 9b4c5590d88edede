package workflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/papapumpkin/vchain/internal/audit"
	"github.com/papapumpkin/vchain/internal/chain"
	"github.com/papapumpkin/vchain/internal/cr"
	"github.com/papapumpkin/vchain/internal/extract"
	"github.com/papapumpkin/vchain/internal/propagate"
	"github.com/papapumpkin/vchain/internal/xref"
)

// AnalyzeResult is returned by Analyze.
type AnalyzeResult struct {
	ChangeRequest *cr.ChangeRequest `json:"change_request"`
	Report        *xref.Report      `json:"report"`
}

// PropagateResult is returned by PropagateNext.
type PropagateResult struct {
	ChangeRequest *cr.ChangeRequest      `json:"change_request"`
	Instruction   *propagate.Instruction `json:"instruction,omitempty"`
	Done          bool                   `json:"done"`
	Checkpoint    string                 `json:"checkpoint,omitempty"`
}

// ValidateResult is returned by Validate.
type ValidateResult struct {
	ChangeRequest *cr.ChangeRequest `json:"change_request"`
	Report        *xref.Report      `json:"report"`
}

// Create opens a change request in INITIATED.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*cr.ChangeRequest, error) {
	if err := s.checkRequest(req); err != nil {
		return nil, err
	}
	origin, err := s.schema.ParseDocType(req.OriginDoc)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	var changed []string
	switch {
	case len(req.ChangedIDs) > 0:
		changed = normalizeIDs(req.ChangedIDs)
	case req.OldContent != "" || req.NewContent != "":
		changed = extract.New(s.schema.Prefixes()).ChangedIDs(req.OldContent, req.NewContent)
	default:
		return nil, fmt.Errorf("%w: changed_ids or old_content/new_content is required", ErrValidation)
	}

	ws, err := s.workspace(req.WorkspacePath)
	if err != nil {
		return nil, err
	}
	c := &cr.ChangeRequest{
		OriginDoc:        origin,
		Description:      strings.TrimSpace(req.Description),
		ChangedIDs:       changed,
		PropagationSteps: []cr.PropagationStep{},
		ConflictWarnings: []cr.ConflictWarning{},
	}
	if err := ws.store.Create(ctx, c); err != nil {
		return nil, err
	}
	s.record(ws, audit.Event{
		Timestamp: c.Created,
		Kind:      audit.KindCreated,
		CRID:      c.ID,
		Action:    string(cr.ActionCreate),
		To:        string(c.Status),
		Summary:   fmt.Sprintf("origin %s, %d changed id(s)", c.OriginDoc, len(c.ChangedIDs)),
	})
	s.flushMetrics()
	return c, nil
}

// Analyze runs the chain analysis and derives the propagation plan. Both
// INITIATED -> ANALYZING -> IMPACT_ANALYZED transitions land in one write.
func (s *Service) Analyze(ctx context.Context, req AnalyzeRequest) (*AnalyzeResult, error) {
	if err := s.checkRequest(req); err != nil {
		return nil, err
	}
	ws, err := s.workspace(req.WorkspacePath)
	if err != nil {
		return nil, err
	}

	var report *xref.Report
	c, err := s.mutate(ctx, ws, req.CRID, cr.ActionAnalyze, func(c *cr.ChangeRequest) (bool, error) {
		project, err := s.loadProject(ws, req.ConfigPath)
		if err != nil {
			return false, err
		}
		if !project.Schema.Known(c.OriginDoc) {
			return false, fmt.Errorf("%w: %w: %s", ErrValidation, chain.ErrUnknownDocType, c.OriginDoc)
		}
		now := ws.store.Now()
		if err := c.Transition(cr.StatusAnalyzing, "", now); err != nil {
			return false, err
		}
		report, err = xref.Run(ctx, project)
		if err != nil {
			return false, err
		}
		steps, err := propagate.Plan(project.Schema, c.OriginDoc)
		if err != nil {
			return false, err
		}
		c.PropagationSteps = steps
		c.PropagationIndex = 0
		c.ImpactSummary = impactSummary(c, steps, report)
		s.opts.Metrics.ObserveAnalysis(len(report.Links), len(report.OrphanedIDs), len(report.MissingIDs))
		reason := fmt.Sprintf("%d step(s) planned", len(steps))
		return false, c.Transition(cr.StatusImpactAnalyzed, reason, now)
	})
	if err != nil {
		return nil, err
	}
	return &AnalyzeResult{ChangeRequest: c, Report: report}, nil
}

// Approve records advisory conflict warnings and moves to APPROVED.
func (s *Service) Approve(ctx context.Context, req ApproveRequest) (*cr.ChangeRequest, error) {
	if err := s.checkRequest(req); err != nil {
		return nil, err
	}
	ws, err := s.workspace(req.WorkspacePath)
	if err != nil {
		return nil, err
	}
	return s.mutate(ctx, ws, req.CRID, cr.ActionApprove, func(c *cr.ChangeRequest) (bool, error) {
		if err := s.detectConflicts(ctx, ws, c); err != nil {
			return false, err
		}
		return false, c.Transition(cr.StatusApproved, conflictReason(c), ws.store.Now())
	})
}

// PropagateNext processes the step at the cursor. From APPROVED it first
// checkpoints the workspace and enters PROPAGATING. With the cursor at the
// end it reports completion and changes nothing.
func (s *Service) PropagateNext(ctx context.Context, req PropagateNextRequest) (*PropagateResult, error) {
	if err := s.checkRequest(req); err != nil {
		return nil, err
	}
	ws, err := s.workspace(req.WorkspacePath)
	if err != nil {
		return nil, err
	}

	res := &PropagateResult{}
	c, err := s.mutate(ctx, ws, req.CRID, cr.ActionPropagateNext, func(c *cr.ChangeRequest) (bool, error) {
		entering := c.Status == cr.StatusApproved
		if entering {
			res.Checkpoint = s.checkpoint(ctx, ws, c.ID, req.ConfigPath)
			reason := ""
			if res.Checkpoint != "" {
				reason = "checkpoint " + res.Checkpoint
			}
			if err := c.Transition(cr.StatusPropagating, reason, ws.store.Now()); err != nil {
				return false, err
			}
		}
		ins, done := propagate.Next(c, propagate.Options{Skip: req.Skip, Note: req.Note})
		res.Done = done
		if done {
			return !entering, nil
		}
		res.Instruction = &ins
		c.Updated = ws.store.Now()
		return false, nil
	})
	if err != nil {
		return nil, err
	}
	res.ChangeRequest = c
	if ins := res.Instruction; ins != nil {
		s.record(ws, audit.Event{
			Timestamp: c.Updated,
			Kind:      audit.KindStep,
			CRID:      c.ID,
			Action:    string(cr.ActionPropagateNext),
			Summary:   fmt.Sprintf("step %d %s %s: %s", ins.Index+1, ins.Direction, ins.DocType, ins.Status),
		})
		s.opts.Metrics.ObserveStep(string(ins.Direction), string(ins.Status))
		s.flushMetrics()
	}
	return res, nil
}

// Validate re-runs the full chain analysis and moves to VALIDATED. Pending
// steps are an error unless Partial is set.
func (s *Service) Validate(ctx context.Context, req ValidateRequest) (*ValidateResult, error) {
	if err := s.checkRequest(req); err != nil {
		return nil, err
	}
	ws, err := s.workspace(req.WorkspacePath)
	if err != nil {
		return nil, err
	}

	var report *xref.Report
	c, err := s.mutate(ctx, ws, req.CRID, cr.ActionValidate, func(c *cr.ChangeRequest) (bool, error) {
		pending := c.PendingSteps()
		if len(pending) > 0 && !req.Partial {
			names := make([]string, len(pending))
			for i, p := range pending {
				names[i] = string(p.DocType)
			}
			return false, fmt.Errorf("%w: %s", ErrPendingSteps, strings.Join(names, ", "))
		}
		project, err := s.loadProject(ws, req.ConfigPath)
		if err != nil {
			return false, err
		}
		report, err = xref.Run(ctx, project)
		if err != nil {
			return false, err
		}
		s.opts.Metrics.ObserveAnalysis(len(report.Links), len(report.OrphanedIDs), len(report.MissingIDs))
		reason := fmt.Sprintf("%d link(s) analyzed, %d orphaned, %d missing",
			len(report.Links), len(report.OrphanedIDs), len(report.MissingIDs))
		if len(pending) > 0 {
			reason += fmt.Sprintf("; partial with %d step(s) pending", len(pending))
		}
		return false, c.Transition(cr.StatusValidated, reason, ws.store.Now())
	})
	if err != nil {
		return nil, err
	}
	return &ValidateResult{ChangeRequest: c, Report: report}, nil
}

// Complete closes a validated change request.
func (s *Service) Complete(ctx context.Context, req CompleteRequest) (*cr.ChangeRequest, error) {
	if err := s.checkRequest(req); err != nil {
		return nil, err
	}
	ws, err := s.workspace(req.WorkspacePath)
	if err != nil {
		return nil, err
	}
	return s.mutate(ctx, ws, req.CRID, cr.ActionComplete, func(c *cr.ChangeRequest) (bool, error) {
		return false, c.Transition(cr.StatusCompleted, "", ws.store.Now())
	})
}

// Cancel moves any non-terminal change request to CANCELLED.
func (s *Service) Cancel(ctx context.Context, req CancelRequest) (*cr.ChangeRequest, error) {
	if err := s.checkRequest(req); err != nil {
		return nil, err
	}
	ws, err := s.workspace(req.WorkspacePath)
	if err != nil {
		return nil, err
	}
	return s.mutate(ctx, ws, req.CRID, cr.ActionCancel, func(c *cr.ChangeRequest) (bool, error) {
		return false, c.Transition(cr.StatusCancelled, strings.TrimSpace(req.Reason), ws.store.Now())
	})
}

// Reapprove sends a propagating change request back to APPROVED, refreshing
// its conflict warnings. The cursor is kept, so the next PropagateNext
// checkpoints again and resumes where propagation stopped.
func (s *Service) Reapprove(ctx context.Context, req ReapproveRequest) (*cr.ChangeRequest, error) {
	if err := s.checkRequest(req); err != nil {
		return nil, err
	}
	ws, err := s.workspace(req.WorkspacePath)
	if err != nil {
		return nil, err
	}
	return s.mutate(ctx, ws, req.CRID, cr.ActionReapprove, func(c *cr.ChangeRequest) (bool, error) {
		if err := s.detectConflicts(ctx, ws, c); err != nil {
			return false, err
		}
		reason := strings.TrimSpace(req.Reason)
		if cw := conflictReason(c); cw != "" {
			if reason != "" {
				reason += "; "
			}
			reason += cw
		}
		return false, c.Transition(cr.StatusApproved, reason, ws.store.Now())
	})
}
