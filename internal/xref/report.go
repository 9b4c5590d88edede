package xref

import "github.com/papapumpkin/vchain/internal/chain"

// Report is the result of one chain analysis.
type Report struct {
	Links              []LinkReport  `json:"links" yaml:"links"`
	OrphanedIDs        []OrphanedID  `json:"orphaned_ids" yaml:"orphaned_ids"`
	MissingIDs         []MissingID   `json:"missing_ids" yaml:"missing_ids"`
	TraceabilityMatrix []TraceEntry  `json:"traceability_matrix" yaml:"traceability_matrix"`
	Suggestions        []string      `json:"suggestions" yaml:"suggestions"`
	Unavailable        []Unavailable `json:"unavailable,omitempty" yaml:"unavailable,omitempty"`
}

// LinkReport holds the findings for one analyzed chain edge.
type LinkReport struct {
	Upstream    chain.DocType `json:"upstream" yaml:"upstream"`
	Downstream  chain.DocType `json:"downstream" yaml:"downstream"`
	OrphanedIDs []string      `json:"orphaned_ids" yaml:"orphaned_ids"`
	MissingIDs  []string      `json:"missing_ids" yaml:"missing_ids"`
}

// OrphanedID is an identifier defined upstream but never referenced by a
// directly downstream document.
type OrphanedID struct {
	ID         string        `json:"id" yaml:"id"`
	DefinedIn  chain.DocType `json:"defined_in" yaml:"defined_in"`
	ExpectedIn chain.DocType `json:"expected_in" yaml:"expected_in"`
}

// MissingID is an identifier referenced downstream, with a prefix owned by
// the upstream document, that the upstream document never defines.
type MissingID struct {
	ID           string        `json:"id" yaml:"id"`
	ReferencedIn chain.DocType `json:"referenced_in" yaml:"referenced_in"`
	ExpectedFrom chain.DocType `json:"expected_from" yaml:"expected_from"`
}

// TraceEntry lists the later documents whose text mentions an identifier.
// The match is a literal substring search, so a mention is a textual
// co-occurrence and not a verified trace.
type TraceEntry struct {
	ID             string          `json:"id" yaml:"id"`
	DocType        chain.DocType   `json:"doc_type" yaml:"doc_type"`
	DownstreamRefs []chain.DocType `json:"downstream_refs" yaml:"downstream_refs"`
}

// Unavailable names a document type that could not be analyzed.
type Unavailable struct {
	DocType chain.DocType `json:"doc_type" yaml:"doc_type"`
	Reason  string        `json:"reason" yaml:"reason"`
}

// Clean reports whether the analysis found no orphaned or missing ids.
func (r *Report) Clean() bool {
	return len(r.OrphanedIDs) == 0 && len(r.MissingIDs) == 0
}
