package extract

import "sort"

// IDSet is a set of identifiers.
type IDSet map[string]struct{}

// NewIDSet returns a set holding ids.
func NewIDSet(ids ...string) IDSet {
	s := make(IDSet, len(ids))
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

// Add inserts id.
func (s IDSet) Add(id string) { s[id] = struct{}{} }

// Has reports whether id is in the set.
func (s IDSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Sorted returns the members in lexicographic order.
func (s IDSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Intersect returns the sorted members present in both sets.
func (s IDSet) Intersect(other IDSet) []string {
	var out []string
	for id := range s {
		if other.Has(id) {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

// DocIDs is the identifier footprint of one document. Referenced is always
// a subset of Defined because both are scanned from the same text.
type DocIDs struct {
	Defined    IDSet
	Referenced IDSet
}

// Len returns the number of members.
func (s IDSet) Len() int { return len(s) }
