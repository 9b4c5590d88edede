package mcpserver

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papapumpkin/vchain/internal/cr"
	"github.com/papapumpkin/vchain/internal/workflow"
)

// changeRequestInput is the union of every action's arguments. Fields an
// action does not use are ignored.
type changeRequestInput struct {
	Action        string   `json:"action" jsonschema:"One of create, analyze, approve, propagate_next, validate, complete, status, list, cancel, reapprove"`
	WorkspacePath string   `json:"workspace_path" jsonschema:"Absolute path of the document workspace"`
	CRID          string   `json:"cr_id,omitempty" jsonschema:"Change request id (CR-YYMMDD-NNN)"`
	OriginDoc     string   `json:"origin_doc,omitempty" jsonschema:"create: document type where the change originated"`
	Description   string   `json:"description,omitempty" jsonschema:"create: what changed and why"`
	ChangedIDs    []string `json:"changed_ids,omitempty" jsonschema:"create: identifiers affected by the change"`
	OldContent    string   `json:"old_content,omitempty" jsonschema:"create: document text before the edit, used when changed_ids is empty"`
	NewContent    string   `json:"new_content,omitempty" jsonschema:"create: document text after the edit"`
	ConfigPath    string   `json:"config_path,omitempty" jsonschema:"analyze/propagate_next/validate: project config path, default vchain.toml"`
	Note          string   `json:"note,omitempty" jsonschema:"propagate_next: note stored on the processed step"`
	Skip          bool     `json:"skip,omitempty" jsonschema:"propagate_next: mark the step skipped instead of done"`
	Partial       bool     `json:"partial,omitempty" jsonschema:"validate: allow pending steps"`
	StatusFilter  string   `json:"status_filter,omitempty" jsonschema:"list: only return change requests in this status"`
	Reason        string   `json:"reason,omitempty" jsonschema:"cancel/reapprove: reason recorded in history"`
}

// registerChangeRequestTool registers the change_request tool.
func (s *Server) registerChangeRequestTool() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name: "change_request",
		Description: "Drive a change request through its lifecycle: create, analyze impact, approve, " +
			"propagate one step at a time, validate, complete, or cancel. status and list are read-only.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in changeRequestInput) (*mcp.CallToolResult, any, error) {
		out, err := s.dispatch(ctx, in)
		if err != nil {
			s.logger.Debug("change_request failed", "action", in.Action, "cr", in.CRID, "error", err)
			return nil, nil, err
		}
		return jsonResult(out)
	})
}

// dispatch routes in to the workflow method named by its action.
func (s *Server) dispatch(ctx context.Context, in changeRequestInput) (any, error) {
	switch cr.Action(strings.ToLower(strings.TrimSpace(in.Action))) {
	case cr.ActionCreate:
		return s.svc.Create(ctx, workflow.CreateRequest{
			WorkspacePath: in.WorkspacePath,
			OriginDoc:     in.OriginDoc,
			Description:   in.Description,
			ChangedIDs:    in.ChangedIDs,
			OldContent:    in.OldContent,
			NewContent:    in.NewContent,
		})
	case cr.ActionAnalyze:
		return s.svc.Analyze(ctx, workflow.AnalyzeRequest{
			WorkspacePath: in.WorkspacePath,
			CRID:          in.CRID,
			ConfigPath:    in.ConfigPath,
		})
	case cr.ActionApprove:
		return s.svc.Approve(ctx, workflow.ApproveRequest{WorkspacePath: in.WorkspacePath, CRID: in.CRID})
	case cr.ActionPropagateNext:
		return s.svc.PropagateNext(ctx, workflow.PropagateNextRequest{
			WorkspacePath: in.WorkspacePath,
			CRID:          in.CRID,
			ConfigPath:    in.ConfigPath,
			Note:          in.Note,
			Skip:          in.Skip,
		})
	case cr.ActionValidate:
		return s.svc.Validate(ctx, workflow.ValidateRequest{
			WorkspacePath: in.WorkspacePath,
			CRID:          in.CRID,
			ConfigPath:    in.ConfigPath,
			Partial:       in.Partial,
		})
	case cr.ActionComplete:
		return s.svc.Complete(ctx, workflow.CompleteRequest{WorkspacePath: in.WorkspacePath, CRID: in.CRID})
	case cr.ActionStatus:
		return s.svc.Status(ctx, workflow.StatusRequest{WorkspacePath: in.WorkspacePath, CRID: in.CRID})
	case cr.ActionList:
		list, err := s.svc.List(ctx, workflow.ListRequest{
			WorkspacePath: in.WorkspacePath,
			StatusFilter:  in.StatusFilter,
		})
		if err != nil {
			return nil, err
		}
		return map[string]any{"change_requests": list}, nil
	case cr.ActionCancel:
		return s.svc.Cancel(ctx, workflow.CancelRequest{
			WorkspacePath: in.WorkspacePath,
			CRID:          in.CRID,
			Reason:        in.Reason,
		})
	case cr.ActionReapprove:
		return s.svc.Reapprove(ctx, workflow.ReapproveRequest{
			WorkspacePath: in.WorkspacePath,
			CRID:          in.CRID,
			Reason:        in.Reason,
		})
	default:
		return nil, fmt.Errorf("%w: unknown action %q", workflow.ErrValidation, in.Action)
	}
}
