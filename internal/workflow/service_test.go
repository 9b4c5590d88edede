package workflow

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/papapumpkin/vchain/internal/audit"
	"github.com/papapumpkin/vchain/internal/chain"
	"github.com/papapumpkin/vchain/internal/checkpoint"
	"github.com/papapumpkin/vchain/internal/cr"
)

var testNow = time.Date(2026, 10, 18, 9, 30, 0, 0, time.UTC)

// newWorkspace writes a small document chain and returns its root.
func newWorkspace(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	docs := map[chain.DocType]string{
		chain.Requirements:  "# Requirements\n\n- REQ-001 Login\n- REQ-002 Logout\n- REQ-003 Reset password\n",
		chain.FunctionsList: "# Functions\n\n| FN-001 | REQ-001 |\n| FN-002 | REQ-002 |\n",
		chain.BasicDesign:   "# Basic design\n\nSCR-001 covers REQ-001 via FN-001.\n",
	}
	for dt, body := range docs {
		path := filepath.Join(root, chain.DefaultDocumentPath(dt))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func newTestService(t *testing.T, opts Options) *Service {
	t.Helper()
	if opts.CheckpointMode == "" {
		opts.CheckpointMode = checkpoint.ModeOff
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return testNow }
	}
	s := New(chain.Default(), opts)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func mustCreate(t *testing.T, s *Service, ws string, origin chain.DocType, ids ...string) *cr.ChangeRequest {
	t.Helper()
	c, err := s.Create(context.Background(), CreateRequest{
		WorkspacePath: ws,
		OriginDoc:     string(origin),
		Description:   "update " + string(origin),
		ChangedIDs:    ids,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return c
}

// driveToPropagating creates, analyzes and approves a change request.
func driveToPropagating(t *testing.T, s *Service, ws string, origin chain.DocType, ids ...string) *cr.ChangeRequest {
	t.Helper()
	ctx := context.Background()
	c := mustCreate(t, s, ws, origin, ids...)
	if _, err := s.Analyze(ctx, AnalyzeRequest{WorkspacePath: ws, CRID: c.ID}); err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if _, err := s.Approve(ctx, ApproveRequest{WorkspacePath: ws, CRID: c.ID}); err != nil {
		t.Fatalf("Approve: %v", err)
	}
	res, err := s.PropagateNext(ctx, PropagateNextRequest{WorkspacePath: ws, CRID: c.ID})
	if err != nil {
		t.Fatalf("PropagateNext: %v", err)
	}
	return res.ChangeRequest
}

func historyStatuses(c *cr.ChangeRequest) []cr.Status {
	out := make([]cr.Status, len(c.History))
	for i, h := range c.History {
		out[i] = h.Status
	}
	return out
}

func TestFullLifecycle(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	ws := newWorkspace(t)
	s := newTestService(t, Options{})

	c := mustCreate(t, s, ws, chain.Requirements, "REQ-003")
	if c.ID != "CR-261018-001" || c.Status != cr.StatusInitiated {
		t.Fatalf("created %s in %s", c.ID, c.Status)
	}

	ar, err := s.Analyze(ctx, AnalyzeRequest{WorkspacePath: ws, CRID: c.ID})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if ar.ChangeRequest.Status != cr.StatusImpactAnalyzed {
		t.Fatalf("status after analyze = %s", ar.ChangeRequest.Status)
	}
	if ar.Report == nil {
		t.Fatal("Analyze returned no report")
	}
	steps := ar.ChangeRequest.PropagationSteps
	if len(steps) != 16 {
		t.Fatalf("len(steps) = %d, want 16", len(steps))
	}
	for _, st := range steps {
		if st.Direction != cr.DirectionDownstream || st.Status != cr.StepPending {
			t.Errorf("step %s: direction=%s status=%s", st.DocType, st.Direction, st.Status)
		}
	}
	if !strings.Contains(ar.ChangeRequest.ImpactSummary, "1 identifier") {
		t.Errorf("impact summary %q", ar.ChangeRequest.ImpactSummary)
	}

	if _, err := s.Approve(ctx, ApproveRequest{WorkspacePath: ws, CRID: c.ID}); err != nil {
		t.Fatalf("Approve: %v", err)
	}

	for i := 0; i < len(steps); i++ {
		res, err := s.PropagateNext(ctx, PropagateNextRequest{WorkspacePath: ws, CRID: c.ID, Note: "ok"})
		if err != nil {
			t.Fatalf("PropagateNext %d: %v", i, err)
		}
		if res.Done || res.Instruction == nil {
			t.Fatalf("step %d reported done early", i)
		}
		if res.Instruction.Index != i || res.Instruction.DocType != steps[i].DocType {
			t.Errorf("step %d processed %d/%s", i, res.Instruction.Index, res.Instruction.DocType)
		}
		if res.ChangeRequest.Status != cr.StatusPropagating {
			t.Errorf("status = %s, want PROPAGATING", res.ChangeRequest.Status)
		}
	}
	res, err := s.PropagateNext(ctx, PropagateNextRequest{WorkspacePath: ws, CRID: c.ID})
	if err != nil {
		t.Fatalf("final PropagateNext: %v", err)
	}
	if !res.Done || res.Instruction != nil {
		t.Errorf("final PropagateNext done=%v instruction=%v", res.Done, res.Instruction)
	}

	vr, err := s.Validate(ctx, ValidateRequest{WorkspacePath: ws, CRID: c.ID})
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if vr.ChangeRequest.Status != cr.StatusValidated || vr.Report == nil {
		t.Fatalf("validate status=%s report=%v", vr.ChangeRequest.Status, vr.Report)
	}

	done, err := s.Complete(ctx, CompleteRequest{WorkspacePath: ws, CRID: c.ID})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	want := []cr.Status{
		cr.StatusInitiated, cr.StatusAnalyzing, cr.StatusImpactAnalyzed, cr.StatusApproved,
		cr.StatusPropagating, cr.StatusValidated, cr.StatusCompleted,
	}
	if diff := cmp.Diff(want, historyStatuses(done)); diff != "" {
		t.Errorf("history (-want +got):\n%s", diff)
	}

	list, err := s.List(ctx, ListRequest{WorkspacePath: ws, StatusFilter: string(cr.StatusCompleted)})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 1 || list[0].ID != c.ID {
		t.Errorf("List(COMPLETED) = %+v, want only %s", list, c.ID)
	}

	events, err := audit.ReadAll(s.AuditPath(ws), c.ID)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	// created + 6 transitions + 16 steps
	if len(events) != 23 {
		t.Errorf("audit events = %d, want 23", len(events))
	}
	if len(events) > 0 && events[0].Kind != audit.KindCreated {
		t.Errorf("first audit event kind = %s", events[0].Kind)
	}
}

func TestTerminalRecordsRejectMutation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	ws := newWorkspace(t)
	s := newTestService(t, Options{})

	c := mustCreate(t, s, ws, chain.BasicDesign, "SCR-001")
	if _, err := s.Cancel(ctx, CancelRequest{WorkspacePath: ws, CRID: c.ID, Reason: "superseded"}); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	before, err := os.ReadFile(filepath.Join(ws, DefaultStateDir, "change-requests", c.ID+".md"))
	if err != nil {
		t.Fatal(err)
	}

	calls := map[cr.Action]func() error{
		cr.ActionAnalyze: func() error {
			_, err := s.Analyze(ctx, AnalyzeRequest{WorkspacePath: ws, CRID: c.ID})
			return err
		},
		cr.ActionApprove: func() error {
			_, err := s.Approve(ctx, ApproveRequest{WorkspacePath: ws, CRID: c.ID})
			return err
		},
		cr.ActionPropagateNext: func() error {
			_, err := s.PropagateNext(ctx, PropagateNextRequest{WorkspacePath: ws, CRID: c.ID})
			return err
		},
		cr.ActionValidate: func() error {
			_, err := s.Validate(ctx, ValidateRequest{WorkspacePath: ws, CRID: c.ID, Partial: true})
			return err
		},
		cr.ActionComplete: func() error {
			_, err := s.Complete(ctx, CompleteRequest{WorkspacePath: ws, CRID: c.ID})
			return err
		},
		cr.ActionCancel: func() error {
			_, err := s.Cancel(ctx, CancelRequest{WorkspacePath: ws, CRID: c.ID})
			return err
		},
		cr.ActionReapprove: func() error {
			_, err := s.Reapprove(ctx, ReapproveRequest{WorkspacePath: ws, CRID: c.ID})
			return err
		},
	}
	for action, call := range calls {
		err := call()
		var se *cr.StateError
		if !errors.As(err, &se) || !errors.Is(err, cr.ErrWrongState) {
			t.Errorf("%s on CANCELLED: err = %v, want *StateError", action, err)
			continue
		}
		if se.Actual != cr.StatusCancelled {
			t.Errorf("%s: Actual = %s", action, se.Actual)
		}
	}

	after, err := os.ReadFile(filepath.Join(ws, DefaultStateDir, "change-requests", c.ID+".md"))
	if err != nil {
		t.Fatal(err)
	}
	if string(before) != string(after) {
		t.Error("cancelled record changed on disk")
	}
}

func TestWrongStateLeavesRecordUnchanged(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	ws := newWorkspace(t)
	s := newTestService(t, Options{})

	c := mustCreate(t, s, ws, chain.Requirements, "REQ-001")
	_, err := s.Approve(ctx, ApproveRequest{WorkspacePath: ws, CRID: c.ID})
	var se *cr.StateError
	if !errors.As(err, &se) {
		t.Fatalf("Approve on INITIATED: err = %v", err)
	}
	if se.Actual != cr.StatusInitiated {
		t.Errorf("Actual = %s", se.Actual)
	}
	got, err := s.Status(ctx, StatusRequest{WorkspacePath: ws, CRID: c.ID})
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if got.Status != cr.StatusInitiated || len(got.History) != 1 {
		t.Errorf("record changed: status=%s history=%d", got.Status, len(got.History))
	}
}

func TestCreateValidation(t *testing.T) {
	t.Parallel()
	ws := newWorkspace(t)
	s := newTestService(t, Options{})

	tests := []struct {
		name    string
		req     CreateRequest
		wantErr error
	}{
		{
			name:    "missing description",
			req:     CreateRequest{WorkspacePath: ws, OriginDoc: "requirements", ChangedIDs: []string{"REQ-001"}},
			wantErr: ErrValidation,
		},
		{
			name:    "unknown origin",
			req:     CreateRequest{WorkspacePath: ws, OriginDoc: "roadmap", Description: "x", ChangedIDs: []string{"REQ-001"}},
			wantErr: chain.ErrUnknownDocType,
		},
		{
			name:    "no ids and no content",
			req:     CreateRequest{WorkspacePath: ws, OriginDoc: "requirements", Description: "x"},
			wantErr: ErrValidation,
		},
		{
			name:    "workspace missing",
			req:     CreateRequest{WorkspacePath: filepath.Join(ws, "nope"), OriginDoc: "requirements", Description: "x", ChangedIDs: []string{"REQ-001"}},
			wantErr: ErrValidation,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := s.Create(context.Background(), tt.req)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Create() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestCreateDerivesChangedIDs(t *testing.T) {
	t.Parallel()
	ws := newWorkspace(t)
	s := newTestService(t, Options{})

	c, err := s.Create(context.Background(), CreateRequest{
		WorkspacePath: ws,
		OriginDoc:     "Requirements",
		Description:   "reword logout",
		OldContent:    "- REQ-001 Login\n- REQ-002 Logout\n",
		NewContent:    "- REQ-001 Login\n- REQ-002 Sign out\n- REQ-004 Audit\n",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if diff := cmp.Diff([]string{"REQ-002", "REQ-004"}, c.ChangedIDs); diff != "" {
		t.Errorf("ChangedIDs (-want +got):\n%s", diff)
	}
	if c.OriginDoc != chain.Requirements {
		t.Errorf("OriginDoc = %s", c.OriginDoc)
	}
}

func TestRequestFieldValidation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	ws := newWorkspace(t)
	s := newTestService(t, Options{})

	_, err := s.Status(ctx, StatusRequest{WorkspacePath: ws, CRID: "CR-1"})
	if !errors.Is(err, ErrValidation) || !errors.Is(err, cr.ErrInvalidID) {
		t.Errorf("Status(bad id) = %v", err)
	}
	_, err = s.Status(ctx, StatusRequest{WorkspacePath: ws, CRID: "CR-261018-042"})
	if !errors.Is(err, cr.ErrNotFound) {
		t.Errorf("Status(unknown id) = %v, want ErrNotFound", err)
	}
	_, err = s.List(ctx, ListRequest{WorkspacePath: ws, StatusFilter: "DONE"})
	if !errors.Is(err, ErrValidation) || !errors.Is(err, cr.ErrInvalidStatus) {
		t.Errorf("List(bad status) = %v", err)
	}
	_, err = s.Status(ctx, StatusRequest{CRID: "CR-261018-001"})
	if !errors.Is(err, ErrValidation) || !strings.Contains(err.Error(), "workspace_path") {
		t.Errorf("Status(no workspace) = %v", err)
	}
}
