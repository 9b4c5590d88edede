package extract

import (
	"slices"
	"strings"
)

// ChangedIDs compares two revisions of a document. It returns, sorted, the
// identifiers that appear in next but not in prev, plus identifiers present
// in both whose containing lines differ between the revisions.
func (e *Extractor) ChangedIDs(prev, next string) []string {
	before := e.linesByID(prev)
	after := e.linesByID(next)

	changed := make(IDSet)
	for id, lines := range after {
		old, ok := before[id]
		if !ok || !slices.Equal(old, lines) {
			changed.Add(id)
		}
	}
	return changed.Sorted()
}

// linesByID maps every defined identifier to the sorted, trimmed lines
// that mention it.
func (e *Extractor) linesByID(text string) map[string][]string {
	out := make(map[string][]string)
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		for id := range e.Defined(line) {
			out[id] = append(out[id], line)
		}
	}
	for id := range out {
		slices.Sort(out[id])
	}
	return out
}
