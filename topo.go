package ponavail

// topo.go holds the run-time representation of a PON topology: a rooted
// tree whose nodes carry a role and a self-availability, and whose edges,
// directed from parent to child, carry a link availability.

import (
	"fmt"
	"math"
	"strings"

	"golang.org/x/exp/slices"
)

// Role identifies what a node does in the PON.  The set is closed; every
// switch over a Role in this package covers all five values.
type Role int

const (
	// Root is the head-end (OLT) of the network
	Root Role = iota

	// LeafPrimary is an ordinary terminal endpoint (ONU)
	LeafPrimary

	// LeafAlternate is a terminal endpoint that also has a connection
	// into another operator's network (inter-operator ONU)
	LeafAlternate

	// PassiveHub is a passive remote node, a splitter
	PassiveHub

	// ActiveHub is an active remote node that can switch between
	// any of its neighbours
	ActiveHub
)

var roleToStr map[Role]string = map[Role]string{
	Root:          "olt",
	LeafPrimary:   "onu",
	LeafAlternate: "ico",
	PassiveHub:    "prn",
	ActiveHub:     "arn",
}

func (r Role) String() string {
	str, present := roleToStr[r]
	if !present {
		return fmt.Sprintf("role(%d)", int(r))
	}
	return str
}

// ParseRole turns the short name of a role back into a Role.
// The long names "root", "leaf-primary", "leaf-alternate", "passive-hub"
// and "active-hub" are accepted as well.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(s) {
	case "olt", "root":
		return Root, nil
	case "onu", "leaf-primary":
		return LeafPrimary, nil
	case "ico", "leaf-alternate":
		return LeafAlternate, nil
	case "prn", "passive-hub":
		return PassiveHub, nil
	case "arn", "active-hub":
		return ActiveHub, nil
	}
	return Root, fmt.Errorf("unrecognized role %q", s)
}

// IsLeaf reports whether the role is a terminal service endpoint
func (r Role) IsLeaf() bool {
	return r == LeafPrimary || r == LeafAlternate
}

// IsHub reports whether the role is an internal distribution point
func (r Role) IsHub() bool {
	return r == PassiveHub || r == ActiveHub
}

// NodeID indexes a node within its Topology
type NodeID int

// NoNode stands for 'no neighbour', e.g. as the arrived-from argument of
// a top-level availability query
const NoNode NodeID = -1

// EdgeID indexes an edge within its Topology
type EdgeID int

const noEdge EdgeID = -1

// A Node is one vertex of the tree
type Node struct {
	ID     NodeID
	Role   Role
	Availa float64 // self-availability, in (0,1]
	Name   string  // optional label

	in  EdgeID   // edge from the parent, noEdge for the root
	out []EdgeID // edges to the children, in creation order
}

// An Edge connects a parent (From) to a child (To)
type Edge struct {
	ID     EdgeID
	From   NodeID
	To     NodeID
	Availa float64 // link availability, in (0,1]
}

// A Link is an edge seen from one of its ends: Peer is the node at the
// other end
type Link struct {
	Edge   EdgeID
	Peer   NodeID
	Availa float64
}

// Topology is the tree.  It is built once, by the generator or by
// BuildTopology, and is only read afterwards.
type Topology struct {
	Name  string
	nodes []*Node
	edges []*Edge
	root  NodeID
}

// CreateTopology is a constructor
func CreateTopology(name string) *Topology {
	return &Topology{Name: name, nodes: []*Node{}, edges: []*Edge{}, root: NoNode}
}

// AddRoot creates the single root node
func (topo *Topology) AddRoot(availa float64) (NodeID, error) {
	if topo.root != NoNode {
		return NoNode, fmt.Errorf("topology %s already has root %d", topo.Name, topo.root)
	}
	topo.root = topo.AddNode(Root, availa)
	return topo.root, nil
}

// AddNode creates a node with no edges and returns its id.  Use AddRoot
// for the root, so that the topology remembers which node it is.
func (topo *Topology) AddNode(role Role, availa float64) NodeID {
	id := NodeID(len(topo.nodes))
	topo.nodes = append(topo.nodes, &Node{ID: id, Role: role, Availa: availa, in: noEdge, out: []EdgeID{}})
	return id
}

// Connect adds an edge from parent to child.  A node accepts at most one
// incoming edge, and the root accepts none.
func (topo *Topology) Connect(parent, child NodeID, availa float64) (EdgeID, error) {
	if !topo.valid(parent) || !topo.valid(child) {
		return noEdge, fmt.Errorf("connect %d -> %d: unknown node", parent, child)
	}
	if parent == child {
		return noEdge, fmt.Errorf("connect %d -> %d: self loop", parent, child)
	}
	cn := topo.nodes[child]
	if cn.Role == Root {
		return noEdge, fmt.Errorf("connect %d -> %d: root cannot have a parent", parent, child)
	}
	if cn.in != noEdge {
		return noEdge, fmt.Errorf("connect %d -> %d: node already has parent %d",
			parent, child, topo.edges[cn.in].From)
	}

	id := EdgeID(len(topo.edges))
	topo.edges = append(topo.edges, &Edge{ID: id, From: parent, To: child, Availa: availa})
	cn.in = id
	pn := topo.nodes[parent]
	pn.out = append(pn.out, id)
	return id, nil
}

func (topo *Topology) valid(id NodeID) bool {
	return id >= 0 && int(id) < len(topo.nodes)
}

// Root returns the id of the root, NoNode if none was added
func (topo *Topology) Root() NodeID {
	return topo.root
}

// Node returns the node with the given id, nil if there is none
func (topo *Topology) Node(id NodeID) *Node {
	if !topo.valid(id) {
		return nil
	}
	return topo.nodes[id]
}

// Edge returns the edge with the given id, nil if there is none
func (topo *Topology) Edge(id EdgeID) *Edge {
	if id < 0 || int(id) >= len(topo.edges) {
		return nil
	}
	return topo.edges[id]
}

func (topo *Topology) NumNodes() int { return len(topo.nodes) }
func (topo *Topology) NumEdges() int { return len(topo.edges) }

// Upstream returns the link to the parent of the node.  The root, and
// any node not yet connected, has none.
func (topo *Topology) Upstream(id NodeID) (Link, error) {
	if !topo.valid(id) {
		return Link{}, fmt.Errorf("upstream of %d: unknown node", id)
	}
	n := topo.nodes[id]
	if n.in == noEdge {
		return Link{}, fmt.Errorf("upstream of %d (%s): %w", id, n.Role, ErrNoUpstream)
	}
	e := topo.edges[n.in]
	return Link{Edge: e.ID, Peer: e.From, Availa: e.Availa}, nil
}

// Downstream returns the links to the children of the node, in the order
// the children were connected
func (topo *Topology) Downstream(id NodeID) []Link {
	if !topo.valid(id) {
		return nil
	}
	n := topo.nodes[id]
	links := make([]Link, 0, len(n.out))
	for _, eid := range n.out {
		e := topo.edges[eid]
		links = append(links, Link{Edge: e.ID, Peer: e.To, Availa: e.Availa})
	}
	return links
}

// Neighbours returns every link of the node: the children first, then
// the parent if there is one
func (topo *Topology) Neighbours(id NodeID) []Link {
	links := topo.Downstream(id)
	if up, err := topo.Upstream(id); err == nil {
		links = append(links, up)
	}
	return links
}

// Terminals lists the leaf nodes (both leaf roles) in ascending id order
func (topo *Topology) Terminals() []NodeID {
	terms := []NodeID{}
	for _, n := range topo.nodes {
		if n.Role.IsLeaf() {
			terms = append(terms, n.ID)
		}
	}
	return terms
}

// CountRoles returns how many nodes of each role the topology holds
func (topo *Topology) CountRoles() map[Role]int {
	cnt := make(map[Role]int)
	for _, n := range topo.nodes {
		cnt[n.Role] += 1
	}
	return cnt
}

// NodeByName finds a node from its label, NoNode if no node carries it
func (topo *Topology) NodeByName(name string) NodeID {
	idx := slices.IndexFunc(topo.nodes, func(n *Node) bool { return n.Name == name })
	if idx < 0 {
		return NoNode
	}
	return NodeID(idx)
}

// NameNodes labels every node "v" followed by its position (counting from 1),
// zero-padded to the number of digits of the node count: v1..v9, v01..v42, v001..v365
func (topo *Topology) NameNodes() {
	number := len(topo.nodes)
	if number == 0 {
		return
	}
	width := int(math.Log10(float64(number))) + 1
	for idx, n := range topo.nodes {
		n.Name = fmt.Sprintf("v%0*d", width, idx+1)
	}
}

// nodeName returns the label of a node, or its id when it has none
func (topo *Topology) nodeName(id NodeID) string {
	if id == NoNode {
		return ""
	}
	n := topo.Node(id)
	if n == nil {
		return fmt.Sprintf("#%d", id)
	}
	if len(n.Name) > 0 {
		return n.Name
	}
	return fmt.Sprintf("#%d", id)
}
