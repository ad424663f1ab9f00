package ponavail

// graph.go checks the structural invariants of a Topology.  The tree is
// converted into the data structures of the gonum graph package so that its
// traversal and ordering algorithms can do the connectivity and cycle checks.

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
	"gonum.org/v1/gonum/graph/traverse"
)

// buildConnGraph returns a directed gonum graph whose nodes carry the
// NodeIDs of the topology and whose edges point from parent to child
func buildConnGraph(t *Topology) *simple.DirectedGraph {
	connGraph := simple.NewDirectedGraph()
	for _, n := range t.nodes {
		connGraph.AddNode(simple.Node(n.ID))
	}
	for _, e := range t.edges {
		// Connect refuses self loops, and SetEdge panics on them
		if e.From == e.To {
			continue
		}
		connGraph.SetEdge(connGraph.NewEdge(simple.Node(e.From), simple.Node(e.To)))
	}
	return connGraph
}

// Validate checks every structural invariant the availability engine
// relies on and returns all the violations found, folded into one error
// that wraps ErrInvariant.
//   - there is exactly one root, and it has no parent
//   - every other node has exactly one parent
//   - every node is reachable from the root, and there is no cycle
//   - leaves have no children and hubs have at least one
//   - availabilities lie in (0,1]
func (t *Topology) Validate() error {
	errs := []error{}
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: %s", ErrInvariant, fmt.Sprintf(format, args...)))
	}

	if len(t.nodes) == 0 {
		fail("topology %s is empty", t.Name)
		return ReportErrs(errs)
	}

	roots := 0
	for _, n := range t.nodes {
		if !validAvaila(n.Availa) {
			fail("node %s availability %g outside (0,1]", t.nodeName(n.ID), n.Availa)
		}

		switch n.Role {
		case Root:
			roots += 1
			if n.in != noEdge {
				fail("root %s has a parent", t.nodeName(n.ID))
			}
		case LeafPrimary, LeafAlternate:
			if len(n.out) > 0 {
				fail("leaf %s has %d children", t.nodeName(n.ID), len(n.out))
			}
		case PassiveHub, ActiveHub:
			if len(n.out) == 0 {
				fail("hub %s has no children", t.nodeName(n.ID))
			}
		default:
			fail("node %s has unrecognized role %d", t.nodeName(n.ID), int(n.Role))
		}

		if n.Role != Root && n.in == noEdge {
			fail("node %s has no parent", t.nodeName(n.ID))
		}
	}
	if roots != 1 {
		fail("topology has %d roots, want 1", roots)
	}

	// Connect guarantees at most one incoming edge, count anyway since
	// a Topology can be assembled by other means in this package
	inCount := make(map[NodeID]int)
	for _, e := range t.edges {
		inCount[e.To] += 1
		if !validAvaila(e.Availa) {
			fail("link %s -> %s availability %g outside (0,1]",
				t.nodeName(e.From), t.nodeName(e.To), e.Availa)
		}
	}
	for id, cnt := range inCount {
		if cnt > 1 {
			fail("node %s has %d parents", t.nodeName(id), cnt)
		}
	}

	connGraph := buildConnGraph(t)

	if _, err := topo.Sort(connGraph); err != nil {
		var cycles topo.Unorderable
		if errors.As(err, &cycles) {
			fail("topology has %d cycle(s)", len(cycles))
		} else {
			fail("topology cannot be ordered: %v", err)
		}
	}

	if t.root != NoNode {
		visited := 0
		dfs := traverse.DepthFirst{
			Visit: func(graph.Node) { visited += 1 },
		}
		dfs.Walk(connGraph, simple.Node(t.root), nil)
		if visited != len(t.nodes) {
			fail("%d of %d nodes are not reachable from the root", len(t.nodes)-visited, len(t.nodes))
		}
	} else if roots > 0 {
		fail("root node was not added with AddRoot")
	}

	return ReportErrs(errs)
}

// validAvaila reports whether a is a usable availability value
func validAvaila(a float64) bool {
	return a > 0 && a <= 1
}

// Depth returns the number of edges between the root and the node
func (t *Topology) Depth(id NodeID) int {
	depth := 0
	for {
		up, err := t.Upstream(id)
		if err != nil {
			return depth
		}
		depth += 1
		id = up.Peer
		if depth > len(t.nodes) {
			violated(id, "parent chain does not end at a root")
		}
	}
}
