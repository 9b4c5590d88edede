package ui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/papapumpkin/vchain/internal/ansi"
	"github.com/papapumpkin/vchain/internal/xref"
)

// ChainReport prints a chain analysis: a per-link summary table followed
// by the findings.
func (p *Printer) ChainReport(r *xref.Report) {
	if len(r.Links) == 0 {
		p.Info("no chain links could be analyzed")
	} else {
		rows := make([][]string, len(r.Links))
		for i, l := range r.Links {
			rows[i] = []string{
				string(l.Upstream), string(l.Downstream),
				strconv.Itoa(len(l.OrphanedIDs)), strconv.Itoa(len(l.MissingIDs)),
			}
		}
		p.section("links")
		fmt.Fprintln(p.out, p.renderTable([]string{"upstream", "downstream", "orphaned", "missing"}, rows))
	}

	if len(r.OrphanedIDs) > 0 {
		fmt.Fprintln(p.out)
		p.section(fmt.Sprintf("orphaned ids (%d)", len(r.OrphanedIDs)))
		for _, o := range r.OrphanedIDs {
			fmt.Fprintf(p.out, "  %s %s defined in %s, not referenced in %s\n",
				p.paint(ansi.Yellow, "•"), o.ID, o.DefinedIn, o.ExpectedIn)
		}
	}
	if len(r.MissingIDs) > 0 {
		fmt.Fprintln(p.out)
		p.section(fmt.Sprintf("missing ids (%d)", len(r.MissingIDs)))
		for _, m := range r.MissingIDs {
			fmt.Fprintf(p.out, "  %s %s referenced in %s, not defined in %s\n",
				p.paint(ansi.Red, "•"), m.ID, m.ReferencedIn, m.ExpectedFrom)
		}
	}
	if len(r.Unavailable) > 0 {
		fmt.Fprintln(p.out)
		p.section("unavailable documents")
		for _, u := range r.Unavailable {
			fmt.Fprintf(p.out, "  %s %s: %s\n", p.paint(ansi.Dim, "-"), u.DocType, u.Reason)
		}
	}

	fmt.Fprintln(p.out)
	if r.Clean() {
		p.Success(fmt.Sprintf("%d link(s) consistent", len(r.Links)))
	} else {
		p.Warn(fmt.Sprintf("%d orphaned, %d missing", len(r.OrphanedIDs), len(r.MissingIDs)))
	}
}

// Traceability prints which later documents mention each identifier.
func (p *Printer) Traceability(r *xref.Report) {
	rows := make([][]string, 0, len(r.TraceabilityMatrix))
	for _, e := range r.TraceabilityMatrix {
		refs := make([]string, len(e.DownstreamRefs))
		for i, d := range e.DownstreamRefs {
			refs[i] = string(d)
		}
		rows = append(rows, []string{e.ID, string(e.DocType), orDash(strings.Join(refs, ", "))})
	}
	p.section("traceability")
	fmt.Fprintln(p.out, p.renderTable([]string{"id", "document", "mentioned in"}, rows))
}

// WatchChange prints a watcher notification.
func (p *Printer) WatchChange(change xref.Change) {
	verb := "changed"
	if change.Removed {
		verb = "removed"
	}
	p.Info(fmt.Sprintf("%s %s (%s), re-analyzing", change.DocType, verb, change.File))
}
