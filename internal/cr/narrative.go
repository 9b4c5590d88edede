package cr

import (
	"fmt"
	"strings"
	"time"
)

// RenderNarrative renders the human-readable body of a record. It is a
// projection of the header and is regenerated on every write.
func RenderNarrative(c *ChangeRequest) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", c.ID)
	b.WriteString("| Field | Value |\n|---|---|\n")
	fmt.Fprintf(&b, "| Status | %s |\n", c.Status)
	fmt.Fprintf(&b, "| Origin | %s |\n", c.OriginDoc)
	fmt.Fprintf(&b, "| Created | %s |\n", formatTime(c.Created))
	fmt.Fprintf(&b, "| Updated | %s |\n", formatTime(c.Updated))

	b.WriteString("\n## Description\n\n")
	b.WriteString(orNone(c.Description))
	b.WriteString("\n")

	b.WriteString("\n## Changed identifiers\n\n")
	if len(c.ChangedIDs) == 0 {
		b.WriteString("_none_\n")
	}
	for _, id := range c.ChangedIDs {
		fmt.Fprintf(&b, "- %s\n", id)
	}

	b.WriteString("\n## Impact summary\n\n")
	b.WriteString(orNone(c.ImpactSummary))
	b.WriteString("\n")

	fmt.Fprintf(&b, "\n## Propagation progress (%d/%d)\n\n", c.PropagationIndex, len(c.PropagationSteps))
	if len(c.PropagationSteps) == 0 {
		b.WriteString("_no plan yet_\n")
	} else {
		b.WriteString("| # | Document | Direction | Status | Note |\n|---|---|---|---|---|\n")
		for i, s := range c.PropagationSteps {
			marker := ""
			if i == c.PropagationIndex {
				marker = " ←"
			}
			fmt.Fprintf(&b, "| %d%s | %s | %s | %s | %s |\n",
				i+1, marker, s.DocType, s.Direction, s.Status, cell(s.Note))
		}
	}

	b.WriteString("\n## Conflict warnings\n\n")
	if len(c.ConflictWarnings) == 0 {
		b.WriteString("_none_\n")
	}
	for _, w := range c.ConflictWarnings {
		fmt.Fprintf(&b, "- %s: %s overlap (%s)\n", w.CRID, w.OverlapType, strings.Join(w.Overlapping, ", "))
	}

	b.WriteString("\n## History\n\n| Status | Entered | Reason |\n|---|---|---|\n")
	for _, h := range c.History {
		fmt.Fprintf(&b, "| %s | %s | %s |\n", h.Status, formatTime(h.Entered), cell(h.Reason))
	}
	return b.String()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}

func orNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return "_none_"
	}
	return s
}

// cell makes s safe for a single Markdown table cell.
func cell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}
