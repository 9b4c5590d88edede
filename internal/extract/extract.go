// Package extract scans document text for chain identifiers.
//
// Two modes run over the same text. Fixed-prefix extraction only matches
// identifiers whose base prefix is owned by some document type, and yields
// the referenced set. Open-ended extraction matches any CAPS-NNN shaped
// token so project-local prefixes are still seen; the union of both modes
// is the defined set. Both modes accept feature-scoped identifiers of the
// form PREFIX-FEATURE-NNN.
package extract

import (
	"regexp"
	"sort"
	"strings"
)

// openPattern matches any identifier-shaped token.
var openPattern = regexp.MustCompile(`\b[A-Z][A-Z0-9]*(?:-[A-Z][A-Z0-9]*)?-\d{1,4}\b`)

// Extractor holds the compiled fixed-prefix pattern for one prefix set.
// It is safe for concurrent use.
type Extractor struct {
	prefixes []string
	fixed    *regexp.Regexp
}

// New compiles an extractor for the given owned prefixes. An empty prefix
// list disables fixed-prefix extraction.
func New(prefixes []string) *Extractor {
	ps := make([]string, 0, len(prefixes))
	seen := make(map[string]bool, len(prefixes))
	for _, p := range prefixes {
		p = strings.ToUpper(strings.TrimSpace(p))
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		ps = append(ps, p)
	}
	// Longer prefixes first so SCRN is tried before SCR.
	sort.Slice(ps, func(i, j int) bool {
		if len(ps[i]) != len(ps[j]) {
			return len(ps[i]) > len(ps[j])
		}
		return ps[i] < ps[j]
	})

	e := &Extractor{prefixes: ps}
	if len(ps) == 0 {
		return e
	}
	quoted := make([]string, len(ps))
	for i, p := range ps {
		quoted[i] = regexp.QuoteMeta(p)
	}
	e.fixed = regexp.MustCompile(`\b(?:` + strings.Join(quoted, "|") + `)(?:-[A-Z][A-Z0-9]*)?-\d{1,4}\b`)
	return e
}

// Prefixes returns the prefixes the extractor recognizes, longest first.
func (e *Extractor) Prefixes() []string {
	return append([]string(nil), e.prefixes...)
}

// Referenced returns the identifiers with a known prefix found in text.
func (e *Extractor) Referenced(text string) IDSet {
	set := make(IDSet)
	if e.fixed == nil {
		return set
	}
	for _, m := range e.fixed.FindAllString(text, -1) {
		set.Add(m)
	}
	return set
}

// Defined returns every identifier-shaped token found in text, known
// prefix or not.
func (e *Extractor) Defined(text string) IDSet {
	set := e.Referenced(text)
	for _, m := range openPattern.FindAllString(text, -1) {
		set.Add(m)
	}
	return set
}

// Extract runs both modes and returns the document's identifier sets.
func (e *Extractor) Extract(text string) DocIDs {
	ref := e.Referenced(text)
	def := make(IDSet, len(ref))
	for id := range ref {
		def.Add(id)
	}
	for _, m := range openPattern.FindAllString(text, -1) {
		def.Add(m)
	}
	return DocIDs{Defined: def, Referenced: ref}
}

// BasePrefix returns the ownership prefix of id: its first segment.
// "SCR-AUTH-014" and "SCR-014" both yield "SCR".
func BasePrefix(id string) string {
	if i := strings.IndexByte(id, '-'); i >= 0 {
		return id[:i]
	}
	return id
}
