package workflow

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/papapumpkin/vchain/internal/checkpoint"
	"github.com/papapumpkin/vchain/internal/conflict"
	"github.com/papapumpkin/vchain/internal/cr"
	"github.com/papapumpkin/vchain/internal/extract"
	"github.com/papapumpkin/vchain/internal/xref"
)

// detectConflicts replaces c's warnings with a fresh comparison against
// every other active change request.
func (s *Service) detectConflicts(ctx context.Context, ws *workspace, c *cr.ChangeRequest) error {
	records, err := ws.store.Records(ctx)
	if err != nil {
		return err
	}
	c.ConflictWarnings = conflict.Detect(c, activeOthers(records, c.ID))
	return nil
}

// checkpoint snapshots the documents configured by configPath before
// propagation starts. Failures are logged and yield "".
func (s *Service) checkpoint(ctx context.Context, ws *workspace, label, configPath string) string {
	var files []string
	if project, err := s.loadProject(ws, configPath); err == nil {
		for _, p := range project.DocumentPaths() {
			files = append(files, p)
		}
		sort.Strings(files)
	} else {
		s.logger.Warn("checkpoint: project config unavailable", "error", err)
	}
	ref, err := ws.ckpt.Checkpoint(ctx, label, files)
	if err != nil {
		if !errors.Is(err, checkpoint.ErrDisabled) {
			s.logger.Warn("checkpoint failed", "cr", label, "error", err)
		}
		return ""
	}
	return ref
}

func conflictReason(c *cr.ChangeRequest) string {
	if len(c.ConflictWarnings) == 0 {
		return ""
	}
	ids := make([]string, len(c.ConflictWarnings))
	for i, w := range c.ConflictWarnings {
		ids[i] = w.CRID
	}
	return fmt.Sprintf("%d conflict warning(s): %s", len(ids), strings.Join(ids, ", "))
}

// impactSummary describes the plan and where the changed ids appear.
func impactSummary(c *cr.ChangeRequest, steps []cr.PropagationStep, r *xref.Report) string {
	up, down := 0, 0
	for _, st := range steps {
		if st.Direction == cr.DirectionUpstream {
			up++
		} else {
			down++
		}
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Change to %s affecting %d identifier(s). ", c.OriginDoc, len(c.ChangedIDs))
	fmt.Fprintf(&b, "Plan: %d upstream review(s), %d downstream regeneration(s). ", up, down)
	fmt.Fprintf(&b, "Chain: %d link(s) analyzed, %d orphaned, %d missing",
		len(r.Links), len(r.OrphanedIDs), len(r.MissingIDs))
	if len(r.Unavailable) > 0 {
		fmt.Fprintf(&b, ", %d document(s) unavailable", len(r.Unavailable))
	}
	b.WriteString(".")

	changed := extract.NewIDSet(c.ChangedIDs...)
	for _, e := range r.TraceabilityMatrix {
		if !changed.Has(e.ID) || len(e.DownstreamRefs) == 0 {
			continue
		}
		refs := make([]string, len(e.DownstreamRefs))
		for i, d := range e.DownstreamRefs {
			refs[i] = string(d)
		}
		fmt.Fprintf(&b, " %s appears in %s.", e.ID, strings.Join(refs, ", "))
	}
	return b.String()
}
