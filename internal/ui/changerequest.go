package ui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/papapumpkin/vchain/internal/ansi"
	"github.com/papapumpkin/vchain/internal/cr"
	"github.com/papapumpkin/vchain/internal/workflow"
)

const timeLayout = "2006-01-02 15:04"

// StatusColor returns the ANSI color used for a change request status.
func StatusColor(s cr.Status) string {
	switch s {
	case cr.StatusCompleted, cr.StatusValidated:
		return ansi.Green
	case cr.StatusCancelled:
		return ansi.Red
	case cr.StatusPropagating, cr.StatusApproved:
		return ansi.Yellow
	default:
		return ansi.Blue
	}
}

func (p *Printer) status(s cr.Status) string {
	return p.paint(StatusColor(s)+ansi.Bold, string(s))
}

// ChangeRequest prints the record header, its plan and its warnings.
func (p *Printer) ChangeRequest(c *cr.ChangeRequest) {
	p.section(c.ID)
	fmt.Fprintf(p.out, "  status:       %s\n", p.status(c.Status))
	fmt.Fprintf(p.out, "  origin:       %s\n", c.OriginDoc)
	fmt.Fprintf(p.out, "  description:  %s\n", orDash(c.Description))
	fmt.Fprintf(p.out, "  changed ids:  %s\n", orDash(strings.Join(c.ChangedIDs, ", ")))
	fmt.Fprintf(p.out, "  created:      %s\n", c.Created.Format(timeLayout))
	fmt.Fprintf(p.out, "  updated:      %s\n", c.Updated.Format(timeLayout))
	if c.ImpactSummary != "" {
		fmt.Fprintf(p.out, "  impact:       %s\n", c.ImpactSummary)
	}

	if len(c.PropagationSteps) > 0 {
		fmt.Fprintln(p.out)
		p.Steps(c)
	}
	if len(c.ConflictWarnings) > 0 {
		fmt.Fprintln(p.out)
		p.Conflicts(c.ConflictWarnings)
	}
}

// Steps prints the propagation plan with the cursor marked.
func (p *Printer) Steps(c *cr.ChangeRequest) {
	p.section(fmt.Sprintf("propagation (%d/%d)", c.PropagationIndex, len(c.PropagationSteps)))
	rows := make([][]string, len(c.PropagationSteps))
	for i, st := range c.PropagationSteps {
		marker := ""
		if i == c.PropagationIndex {
			marker = "←"
		}
		rows[i] = []string{strconv.Itoa(i + 1), string(st.DocType), string(st.Direction), string(st.Status), orDash(st.Note), marker}
	}
	fmt.Fprintln(p.out, p.renderTable([]string{"#", "document", "direction", "status", "note", ""}, rows))
}

// Conflicts prints advisory overlaps with other change requests.
func (p *Printer) Conflicts(ws []cr.ConflictWarning) {
	fmt.Fprintln(p.out, p.paint(ansi.Yellow+ansi.Bold, fmt.Sprintf("⚠ %d conflict warning(s)", len(ws))))
	for _, w := range ws {
		fmt.Fprintf(p.out, "  • %s: %s overlap on %s\n", w.CRID, w.OverlapType, strings.Join(w.Overlapping, ", "))
	}
}

// History prints the status history.
func (p *Printer) History(c *cr.ChangeRequest) {
	rows := make([][]string, len(c.History))
	for i, h := range c.History {
		rows[i] = []string{string(h.Status), h.Entered.Format(time.RFC3339), orDash(h.Reason)}
	}
	p.section("history")
	fmt.Fprintln(p.out, p.renderTable([]string{"status", "entered", "reason"}, rows))
}

// ChangeRequestList prints one row per summary.
func (p *Printer) ChangeRequestList(list []cr.Summary) {
	if len(list) == 0 {
		p.Info("no change requests")
		return
	}
	rows := make([][]string, len(list))
	for i, s := range list {
		rows[i] = []string{s.ID, string(s.Status), string(s.OriginDoc), s.Updated.Format(timeLayout), s.Description}
	}
	fmt.Fprintln(p.out, p.renderTable([]string{"id", "status", "origin", "updated", "description"}, rows))
}

// Propagation prints the outcome of one propagate_next call.
func (p *Printer) Propagation(res *workflow.PropagateResult) {
	if res.Checkpoint != "" {
		p.Info("checkpoint " + res.Checkpoint)
	}
	if res.Done {
		p.Success(fmt.Sprintf("%s: all %d step(s) processed; run validate next",
			res.ChangeRequest.ID, len(res.ChangeRequest.PropagationSteps)))
		return
	}
	ins := res.Instruction
	color := ansi.Blue
	if ins.Direction == cr.DirectionUpstream {
		color = ansi.Magenta
	}
	head := fmt.Sprintf("step %d/%d %s %s", ins.Index+1, len(res.ChangeRequest.PropagationSteps), ins.Direction, ins.DocType)
	fmt.Fprintf(p.out, "%s  [%s]\n", p.paint(color+ansi.Bold, head), ins.Status)
	fmt.Fprintf(p.out, "  %s\n", ins.Text)
	fmt.Fprintf(p.out, "  %s\n", p.paint(ansi.Dim, fmt.Sprintf("%d step(s) remaining", ins.Remaining)))
}
