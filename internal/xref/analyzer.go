// Package xref analyzes cross-references between the documents of a chain.
//
// For every chain edge whose two documents are both available it reports
// identifiers the upstream document defines but the downstream one never
// references (orphaned), and identifiers the downstream document references
// with an upstream-owned prefix that the upstream document never defines
// (missing). It also builds a traceability matrix by literal substring
// search over later documents. That matrix is an approximation: a mention
// in a later document is not proof of a structural trace.
package xref

import (
	"fmt"
	"strings"

	"github.com/papapumpkin/vchain/internal/chain"
	"github.com/papapumpkin/vchain/internal/extract"
)

// Graph maps each available document type to its identifier footprint.
type Graph map[chain.DocType]extract.DocIDs

// Analyzer computes chain reports against one schema.
type Analyzer struct {
	schema    *chain.Schema
	extractor *extract.Extractor
}

// NewAnalyzer returns an analyzer that extracts every prefix the schema owns.
func NewAnalyzer(schema *chain.Schema) *Analyzer {
	return &Analyzer{
		schema:    schema,
		extractor: extract.New(schema.Prefixes()),
	}
}

// Extractor returns the identifier extractor bound to the schema.
func (a *Analyzer) Extractor() *extract.Extractor {
	return a.extractor
}

// BuildGraph extracts the identifier sets of every given document.
// Document types the schema does not declare are ignored.
func (a *Analyzer) BuildGraph(docs map[chain.DocType]string) Graph {
	g := make(Graph, len(docs))
	for dt, text := range docs {
		if !a.schema.Known(dt) {
			continue
		}
		g[dt] = a.extractor.Extract(text)
	}
	return g
}

// Analyze builds the identifier graph of docs and reports orphaned and
// missing identifiers per chain edge, the traceability matrix, and one
// suggestion per finding. Edges with an absent endpoint are skipped.
func (a *Analyzer) Analyze(docs map[chain.DocType]string) *Report {
	g := a.BuildGraph(docs)
	r := &Report{
		Links:              []LinkReport{},
		OrphanedIDs:        []OrphanedID{},
		MissingIDs:         []MissingID{},
		TraceabilityMatrix: []TraceEntry{},
		Suggestions:        []string{},
	}

	for _, e := range a.schema.Edges() {
		up, okUp := g[e.Upstream]
		down, okDown := g[e.Downstream]
		if !okUp || !okDown {
			continue
		}
		link := a.analyzeLink(e, up, down)
		r.Links = append(r.Links, link)
		for _, id := range link.OrphanedIDs {
			r.OrphanedIDs = append(r.OrphanedIDs, OrphanedID{ID: id, DefinedIn: e.Upstream, ExpectedIn: e.Downstream})
			r.Suggestions = append(r.Suggestions,
				fmt.Sprintf("%s defined in %s but not referenced in %s", id, e.Upstream, e.Downstream))
		}
		for _, id := range link.MissingIDs {
			r.MissingIDs = append(r.MissingIDs, MissingID{ID: id, ReferencedIn: e.Downstream, ExpectedFrom: e.Upstream})
			r.Suggestions = append(r.Suggestions,
				fmt.Sprintf("%s referenced in %s but not defined in %s", id, e.Downstream, e.Upstream))
		}
	}

	r.TraceabilityMatrix = a.traceability(g, docs)
	return r
}

func (a *Analyzer) analyzeLink(e chain.Edge, up, down extract.DocIDs) LinkReport {
	link := LinkReport{
		Upstream:    e.Upstream,
		Downstream:  e.Downstream,
		OrphanedIDs: []string{},
		MissingIDs:  []string{},
	}
	for _, id := range up.Defined.Sorted() {
		if a.schema.Owns(e.Upstream, extract.BasePrefix(id)) && !down.Referenced.Has(id) {
			link.OrphanedIDs = append(link.OrphanedIDs, id)
		}
	}
	for _, id := range down.Referenced.Sorted() {
		if a.schema.Owns(e.Upstream, extract.BasePrefix(id)) && !up.Defined.Has(id) {
			link.MissingIDs = append(link.MissingIDs, id)
		}
	}
	return link
}

// traceability emits one entry per identifier defined by a document that
// owns its prefix. When two owners define the same id the one earlier in
// trace order wins.
func (a *Analyzer) traceability(g Graph, docs map[chain.DocType]string) []TraceEntry {
	var order []chain.DocType
	for _, dt := range a.schema.Order() {
		if _, ok := g[dt]; ok {
			order = append(order, dt)
		}
	}

	entries := []TraceEntry{}
	seen := make(map[string]bool)
	for i, dt := range order {
		for _, id := range g[dt].Defined.Sorted() {
			if seen[id] || !a.schema.Owns(dt, extract.BasePrefix(id)) {
				continue
			}
			seen[id] = true
			refs := []chain.DocType{}
			for _, later := range order[i+1:] {
				if strings.Contains(docs[later], id) {
					refs = append(refs, later)
				}
			}
			entries = append(entries, TraceEntry{ID: id, DocType: dt, DownstreamRefs: refs})
		}
	}
	return entries
}
