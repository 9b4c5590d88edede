package chain

import (
	"fmt"
	"sort"
	"strings"

	"github.com/papapumpkin/vchain/internal/dag"
)

// Schema is the immutable, indexed form of a document-type table and its
// chain edges. Build it once with Default or NewSchema and share it.
type Schema struct {
	docs   []DocSpec
	rank   map[DocType]int
	owners map[string][]DocType
	edges  []Edge
	up     map[DocType][]DocType
	graph  *dag.DAG
}

// Default returns the standard V-model schema.
func Default() *Schema {
	s, err := NewSchema(standardDocs, standardEdges)
	if err != nil {
		// The standard tables are covered by tests; failure is a programming error.
		panic(fmt.Sprintf("chain: invalid standard schema: %v", err))
	}
	return s
}

// NewSchema indexes the given document specs and edges. Returns an error
// if a type is declared twice, an edge references an undeclared type, or
// the edges contain a cycle.
func NewSchema(docs []DocSpec, edges []Edge) (*Schema, error) {
	s := &Schema{
		rank:   make(map[DocType]int, len(docs)),
		owners: make(map[string][]DocType),
		up:     make(map[DocType][]DocType),
		graph:  dag.New(),
	}

	for i, d := range docs {
		if _, dup := s.rank[d.Type]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateDocType, d.Type)
		}
		spec := DocSpec{Type: d.Type, Phase: d.Phase, Prefixes: normalizePrefixes(d.Prefixes)}
		s.docs = append(s.docs, spec)
		s.rank[d.Type] = i
		for _, p := range spec.Prefixes {
			s.owners[p] = append(s.owners[p], d.Type)
		}
		if err := s.graph.AddNode(string(d.Type), i); err != nil {
			return nil, fmt.Errorf("chain: %w", err)
		}
	}

	for _, e := range edges {
		if !s.Known(e.Upstream) {
			return nil, fmt.Errorf("%w: edge %s references %s", ErrUnknownDocType, e, e.Upstream)
		}
		if !s.Known(e.Downstream) {
			return nil, fmt.Errorf("%w: edge %s references %s", ErrUnknownDocType, e, e.Downstream)
		}
		// Downstream documents depend on their upstream.
		if err := s.graph.AddEdge(string(e.Downstream), string(e.Upstream)); err != nil {
			return nil, fmt.Errorf("chain: edge %s: %w", e, err)
		}
		s.edges = append(s.edges, e)
		s.up[e.Downstream] = append(s.up[e.Downstream], e.Upstream)
	}
	for dt := range s.up {
		s.sortByRank(s.up[dt])
	}
	return s, nil
}

// WithOwnedPrefixes returns a copy of the schema in which each listed
// document type additionally owns the given prefixes.
func (s *Schema) WithOwnedPrefixes(extra map[DocType][]string) (*Schema, error) {
	if len(extra) == 0 {
		return s, nil
	}
	docs := make([]DocSpec, len(s.docs))
	for i, d := range s.docs {
		prefixes := append([]string(nil), d.Prefixes...)
		prefixes = append(prefixes, extra[d.Type]...)
		docs[i] = DocSpec{Type: d.Type, Phase: d.Phase, Prefixes: prefixes}
	}
	for dt := range extra {
		if !s.Known(dt) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownDocType, dt)
		}
	}
	return NewSchema(docs, s.edges)
}

// DocTypes returns all document types in declaration order.
func (s *Schema) DocTypes() []DocType {
	out := make([]DocType, len(s.docs))
	for i, d := range s.docs {
		out[i] = d.Type
	}
	return out
}

// Order returns the linear trace order used for traceability. It is the
// declaration order.
func (s *Schema) Order() []DocType {
	return s.DocTypes()
}

// Known reports whether dt is declared in the schema.
func (s *Schema) Known(dt DocType) bool {
	_, ok := s.rank[dt]
	return ok
}

// Rank returns dt's position in declaration order, or -1 when unknown.
func (s *Schema) Rank(dt DocType) int {
	if r, ok := s.rank[dt]; ok {
		return r
	}
	return -1
}

// Phase returns the phase group of dt.
func (s *Schema) Phase(dt DocType) Phase {
	if r, ok := s.rank[dt]; ok {
		return s.docs[r].Phase
	}
	return ""
}

// OwnedPrefixes returns the prefixes owned by dt.
func (s *Schema) OwnedPrefixes(dt DocType) []string {
	if r, ok := s.rank[dt]; ok {
		return append([]string(nil), s.docs[r].Prefixes...)
	}
	return nil
}

// Owns reports whether dt owns the given base prefix.
func (s *Schema) Owns(dt DocType, prefix string) bool {
	for _, owner := range s.owners[prefix] {
		if owner == dt {
			return true
		}
	}
	return false
}

// Owners returns the document types that own prefix, in declaration order.
func (s *Schema) Owners(prefix string) []DocType {
	return append([]DocType(nil), s.owners[prefix]...)
}

// Prefixes returns every owned prefix, sorted.
func (s *Schema) Prefixes() []string {
	out := make([]string, 0, len(s.owners))
	for p := range s.owners {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Edges returns the chain edges in declaration order.
func (s *Schema) Edges() []Edge {
	return append([]Edge(nil), s.edges...)
}

// Predecessors returns the direct upstream document types of dt in
// declaration order.
func (s *Schema) Predecessors(dt DocType) []DocType {
	return append([]DocType(nil), s.up[dt]...)
}

// Graph returns the dependency graph of the chain. Nodes are document
// types ranked by declaration order; each downstream type depends on its
// upstream types. Callers must not mutate it.
func (s *Schema) Graph() *dag.DAG {
	return s.graph
}

// ParseDocType validates a user-supplied document type name.
func (s *Schema) ParseDocType(name string) (DocType, error) {
	dt := DocType(strings.TrimSpace(strings.ToLower(name)))
	if !s.Known(dt) {
		return "", fmt.Errorf("%w: %q", ErrUnknownDocType, name)
	}
	return dt, nil
}

func (s *Schema) sortByRank(types []DocType) {
	sort.SliceStable(types, func(i, j int) bool {
		return s.rank[types[i]] < s.rank[types[j]]
	})
}

// normalizePrefixes upper-cases, trims and de-duplicates prefixes while
// keeping their first-seen order.
func normalizePrefixes(in []string) []string {
	seen := make(map[string]bool, len(in))
	var out []string
	for _, p := range in {
		p = strings.ToUpper(strings.TrimSpace(p))
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}
