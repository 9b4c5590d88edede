// Package dag provides a small directed acyclic graph engine for modeling
// document dependencies. It supports topological sorting with stable,
// rank-based tie-breaking, cycle detection, and descendant queries.
package dag

import (
	"errors"
	"fmt"
	"sort"
)

// ErrCycle is returned when the graph contains a dependency cycle.
var ErrCycle = errors.New("cycle detected")

// ErrNodeNotFound is returned when an operation references a non-existent node.
var ErrNodeNotFound = errors.New("node not found")

// ErrDuplicateNode is returned when adding a node that already exists.
var ErrDuplicateNode = errors.New("duplicate node")

// ErrSelfEdge is returned when an edge would create a self-loop.
var ErrSelfEdge = errors.New("self-referencing edge")

// node is a vertex in the DAG. Rank orders otherwise unordered nodes:
// lower ranks sort first, ties fall back to the ID.
type node struct {
	ID   string
	Rank int
}

// DAG is a directed acyclic graph. Edges point from a node to its
// dependencies: if A depends on B, there is an edge from A to B.
type DAG struct {
	nodes map[string]*node
	// adjacency maps nodeID → set of dependency IDs (forward edges).
	adjacency map[string]map[string]bool
	// reverse maps nodeID → set of dependent IDs (backward edges).
	reverse map[string]map[string]bool
}

// New creates an empty DAG.
func New() *DAG {
	return &DAG{
		nodes:     make(map[string]*node),
		adjacency: make(map[string]map[string]bool),
		reverse:   make(map[string]map[string]bool),
	}
}

// AddNode adds a node with the given ID and rank. Returns ErrDuplicateNode
// if a node with that ID already exists.
func (d *DAG) AddNode(id string, rank int) error {
	if _, exists := d.nodes[id]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateNode, id)
	}
	d.nodes[id] = &node{ID: id, Rank: rank}
	d.adjacency[id] = make(map[string]bool)
	d.reverse[id] = make(map[string]bool)
	return nil
}

// AddEdge records that from depends on to. Both nodes must already exist.
// Returns an error if either node is missing, the edge is a self-loop, or
// the edge would introduce a cycle. Adding an existing edge is a no-op.
func (d *DAG) AddEdge(from, to string) error {
	if from == to {
		return fmt.Errorf("%w: %s", ErrSelfEdge, from)
	}
	if _, ok := d.nodes[from]; !ok {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, from)
	}
	if _, ok := d.nodes[to]; !ok {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, to)
	}
	if d.adjacency[from][to] {
		return nil
	}
	// A path to → ... → from plus the new edge from → to closes a cycle.
	if d.hasPath(to, from) {
		return fmt.Errorf("%w: edge %s → %s would create a cycle", ErrCycle, from, to)
	}
	d.adjacency[from][to] = true
	d.reverse[to][from] = true
	return nil
}

// Descendants returns all transitive dependents of id in rank order.
// Returns nil if the node does not exist.
func (d *DAG) Descendants(id string) []string {
	if _, ok := d.nodes[id]; !ok {
		return nil
	}
	visited := make(map[string]bool)
	d.collect(id, d.reverse, visited)
	return d.rankSorted(keys(visited))
}

// Subgraph returns a new DAG restricted to the given IDs, keeping every
// edge whose endpoints are both in the set. Unknown IDs are ignored.
func (d *DAG) Subgraph(ids []string) *DAG {
	sub := New()
	for _, id := range ids {
		n, ok := d.nodes[id]
		if !ok {
			continue
		}
		if _, dup := sub.nodes[id]; dup {
			continue
		}
		sub.nodes[id] = &node{ID: n.ID, Rank: n.Rank}
		sub.adjacency[id] = make(map[string]bool)
		sub.reverse[id] = make(map[string]bool)
	}
	for from := range sub.nodes {
		for to := range d.adjacency[from] {
			if _, ok := sub.nodes[to]; ok {
				sub.adjacency[from][to] = true
				sub.reverse[to][from] = true
			}
		}
	}
	return sub
}

// TopologicalSort returns node IDs in a valid topological order
// (dependencies come before dependents). Among nodes that become ready at
// the same time, lower-ranked nodes appear first. Returns ErrCycle if the
// graph contains a cycle.
func (d *DAG) TopologicalSort() ([]string, error) {
	inDegree := make(map[string]int, len(d.nodes))
	var ready []string
	for id := range d.nodes {
		inDegree[id] = len(d.adjacency[id])
		if inDegree[id] == 0 {
			ready = append(ready, id)
		}
	}
	ready = d.rankSorted(ready)

	sorted := make([]string, 0, len(d.nodes))
	for len(ready) > 0 {
		id := ready[0]
		ready = ready[1:]
		sorted = append(sorted, id)

		freed := false
		for dependent := range d.reverse[id] {
			inDegree[dependent]--
			if inDegree[dependent] == 0 {
				ready = append(ready, dependent)
				freed = true
			}
		}
		// Keep the frontier ordered so the result is reproducible.
		if freed {
			ready = d.rankSorted(ready)
		}
	}

	if len(sorted) != len(d.nodes) {
		return nil, fmt.Errorf("%w: not all nodes could be ordered (%d of %d)",
			ErrCycle, len(sorted), len(d.nodes))
	}
	return sorted, nil
}

// hasPath reports whether there is a directed path from src to dst
// following dependency edges.
func (d *DAG) hasPath(src, dst string) bool {
	if src == dst {
		return false
	}
	visited := make(map[string]bool)
	queue := []string{src}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for dep := range d.adjacency[cur] {
			if dep == dst {
				return true
			}
			if !visited[dep] {
				visited[dep] = true
				queue = append(queue, dep)
			}
		}
	}
	return false
}

// collect walks edges from id and records every reachable node.
func (d *DAG) collect(id string, edges map[string]map[string]bool, visited map[string]bool) {
	for next := range edges[id] {
		if !visited[next] {
			visited[next] = true
			d.collect(next, edges, visited)
		}
	}
}

// rankSorted sorts ids in place by rank ascending, then ID.
func (d *DAG) rankSorted(ids []string) []string {
	sort.Slice(ids, func(i, j int) bool {
		ri, rj := d.rank(ids[i]), d.rank(ids[j])
		if ri != rj {
			return ri < rj
		}
		return ids[i] < ids[j]
	})
	return ids
}

func (d *DAG) rank(id string) int {
	if n, ok := d.nodes[id]; ok {
		return n.Rank
	}
	return 0
}

func keys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
