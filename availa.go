package ponavail

// availa.go computes the probability that a node of a Topology is
// reachable from the root.  The computation is a recursion over the
// tree in which every call knows the neighbour it arrived from, and leaves
// that neighbour out of the set of redundant paths it considers.
//
// Components fail independently, so
//   - a series of components is up with the product of their availabilities
//   - a set of alternative paths is down with the product of the
//     probabilities that each one of them is down

import (
	"context"
	"math"

	"golang.org/x/sync/errgroup"
)

// Result maps each terminal to its computed availability
type Result map[NodeID]float64

// reachKey identifies one memoized reach computation
type reachKey struct {
	node NodeID
	from NodeID
}

// Engine evaluates availabilities over one Topology.  The topology is never
// modified.  An Engine is not safe for concurrent use, but any number of
// Engines may share a Topology.
type Engine struct {
	topo     *Topology
	leafMode string
	memoOn   bool
	memo     map[reachKey]float64
	trace    *TraceManager

	// terminal whose evaluation is in progress, for trace records
	terminal NodeID
}

// EngineOption configures an Engine
type EngineOption func(*Engine)

// WithLeafMode selects how leaves met as neighbours are treated,
// LeafEndpoint (the default) or LeafInterOperator
func WithLeafMode(mode string) EngineOption {
	return func(eng *Engine) {
		if len(mode) > 0 {
			eng.leafMode = mode
		}
	}
}

// WithMemo turns the (node, arrived-from) cache on or off.  It is on by
// default, and changes only the running time, never a result.
func WithMemo(on bool) EngineOption {
	return func(eng *Engine) { eng.memoOn = on }
}

// WithTrace records every step of the recursion in tm
func WithTrace(tm *TraceManager) EngineOption {
	return func(eng *Engine) { eng.trace = tm }
}

// NewEngine is a constructor.  The memo cache belongs to the Engine, so it
// never outlives the topology it describes.
func NewEngine(topo *Topology, opts ...EngineOption) *Engine {
	eng := &Engine{
		topo:     topo,
		leafMode: LeafEndpoint,
		memoOn:   true,
		memo:     make(map[reachKey]float64),
		terminal: NoNode,
	}
	for _, opt := range opts {
		opt(eng)
	}
	return eng
}

// Reach returns the availability of the node, reached from the root.
// It is the top-level query, with no neighbour excluded.
func (eng *Engine) Reach(id NodeID) (availa float64, err error) {
	return eng.ReachFrom(id, NoNode)
}

// ReachFrom returns the availability of the node when the neighbour from
// is excluded from the paths that may serve it.  from must be NoNode or
// a neighbour of id.
func (eng *Engine) ReachFrom(id, from NodeID) (availa float64, err error) {
	defer recoverInvariant(&err)
	eng.checkArgs(id, from)
	eng.terminal = id
	return eng.reach(id, from), nil
}

// TraceUp climbs from node id (arrived at from its child from) through the
// chain of passive hubs above it, and returns the two products the climb
// accumulates: the series availability of the chain, and the probability
// that every alternative to it is down.
func (eng *Engine) TraceUp(id, from NodeID) (availa, down float64, err error) {
	defer recoverInvariant(&err)
	eng.checkArgs(id, from)
	eng.terminal = id
	availa, down = eng.traceUp(id, from)
	return availa, down, nil
}

// checkArgs validates the arguments of a public query
func (eng *Engine) checkArgs(id, from NodeID) {
	n := eng.topo.Node(id)
	if n == nil {
		violated(id, "no such node")
	}
	if from == NoNode {
		return
	}
	for _, l := range eng.topo.Neighbours(id) {
		if l.Peer == from {
			return
		}
	}
	violated(id, "arrived-from node %d is not a neighbour", from)
}

// reach is the recursion.  It dispatches on the role of the node.
func (eng *Engine) reach(id, from NodeID) float64 {
	key := reachKey{node: id, from: from}
	if eng.memoOn {
		if availa, present := eng.memo[key]; present {
			eng.record("memo", id, from, availa)
			return availa
		}
	}

	n := eng.topo.nodes[id]

	var availa float64
	switch n.Role {
	case Root:
		availa = n.Availa
	case LeafPrimary, LeafAlternate:
		availa = eng.reachLeaf(n, from)
	case ActiveHub:
		availa = n.Availa * (1 - eng.parallel(id, from, true))
	case PassiveHub:
		availa = eng.reachPassive(n, from)
	default:
		violated(id, "unrecognized role %d", int(n.Role))
	}

	if math.IsNaN(availa) || availa < 0 || availa > 1 {
		violated(id, "availability %g outside [0,1]", availa)
	}

	if eng.memoOn {
		eng.memo[key] = availa
	}
	eng.record("reach", id, from, availa)
	return availa
}

// reachLeaf handles the two ways a leaf is met: as the subject of a
// top-level query, when it is served through its parent, or as a neighbour
// of a hub whose redundancy is being evaluated.
func (eng *Engine) reachLeaf(n *Node, from NodeID) float64 {
	interOp := (eng.leafMode == LeafInterOperator)

	if from != NoNode {
		// reached from the parent, the only neighbour a leaf has
		if interOp && n.Role == LeafPrimary {
			// an ordinary endpoint leads nowhere else
			return 0
		}
		return n.Availa
	}

	if interOp && n.Role == LeafAlternate {
		// served by the other operator, whatever happens upstream
		return n.Availa
	}

	up := eng.upstream(n.ID)
	return n.Availa * up.Availa * eng.reach(up.Peer, n.ID)
}

// reachPassive handles a passive hub.  Going downstream (arrived from the
// parent) the hub combines all its other neighbours in parallel, like an
// active hub.  Climbing upstream (arrived from a child) it has to trace
// through the chain of passive hubs above it.
func (eng *Engine) reachPassive(n *Node, from NodeID) float64 {
	up := eng.upstream(n.ID)
	if up.Peer == from {
		return n.Availa * (1 - eng.parallel(n.ID, from, true))
	}
	availa, down := eng.traceUp(n.ID, from)
	return availa * (1 - down)
}

// parallel returns the probability that every neighbour of the node other
// than from is unreachable through its link.  The parent counts among
// the neighbours only when includeUp is set.
func (eng *Engine) parallel(id, from NodeID, includeUp bool) float64 {
	product := 1.0
	for _, l := range eng.topo.Downstream(id) {
		if l.Peer == from {
			continue
		}
		product *= 1 - l.Availa*eng.reach(l.Peer, id)
	}
	if includeUp {
		up := eng.upstream(id)
		if up.Peer != from {
			product *= 1 - up.Availa*eng.reach(up.Peer, id)
		}
	}
	return product
}

// traceUp returns (series availability, all-alternatives-down) for the climb
// from node id, arrived at from from, up to the first ancestor that is not a
// passive hub.
//
// At that ancestor the climb starts with its self-availability and, for an
// active hub, the probability that all of its own alternatives (other than
// the branch climbed from) are down; a root has none.  Every hop on the
// way down again multiplies in its link and node availability, and the
// probability that the hop's other downstream branches are all down.
func (eng *Engine) traceUp(id, from NodeID) (float64, float64) {
	up := eng.upstream(id)
	pn := eng.topo.nodes[up.Peer]

	var availa, down float64
	switch pn.Role {
	case Root:
		availa, down = pn.Availa, 0
	case ActiveHub:
		availa, down = pn.Availa, eng.parallel(pn.ID, id, true)
	case PassiveHub:
		availa, down = eng.traceUp(pn.ID, id)
	case LeafPrimary, LeafAlternate:
		violated(id, "parent %d is a leaf", pn.ID)
	default:
		violated(pn.ID, "unrecognized role %d", int(pn.Role))
	}

	availa *= up.Availa * eng.topo.nodes[id].Availa
	down *= eng.parallel(id, from, false)

	eng.record("trace", id, from, availa*(1-down))
	return availa, down
}

// upstream returns the link to the parent; a missing one violates the
// single-parent invariant
func (eng *Engine) upstream(id NodeID) Link {
	up, err := eng.topo.Upstream(id)
	if err != nil {
		violated(id, "%v", err)
	}
	return up
}

// record adds a step to the trace, when one is being kept
func (eng *Engine) record(op string, id, from NodeID, value float64) {
	if eng.trace == nil || !eng.trace.Active() {
		return
	}
	eng.trace.AddTrace(int(eng.terminal), TraceInst{
		Op:    op,
		Node:  eng.topo.nodeName(id),
		From:  eng.topo.nodeName(from),
		Value: value,
	})
}

// ReachAll evaluates every terminal of the topology in turn
func (eng *Engine) ReachAll(ctx context.Context) (Result, error) {
	return eng.reachList(ctx, eng.topo.Terminals())
}

func (eng *Engine) reachList(ctx context.Context, terms []NodeID) (Result, error) {
	res := make(Result, len(terms))
	for _, id := range terms {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		availa, err := eng.Reach(id)
		if err != nil {
			return nil, err
		}
		res[id] = availa
	}
	return res, nil
}

// EvaluateAll computes the availability of every terminal of the topology.
// With workers > 1 the terminals are spread over that many goroutines, each
// with an Engine of its own; the topology is only read, so no locking is
// needed and the results are those of a sequential run.
func EvaluateAll(ctx context.Context, topo *Topology, workers int, opts ...EngineOption) (Result, error) {
	terms := topo.Terminals()
	if workers <= 1 || len(terms) < 2 {
		return NewEngine(topo, opts...).reachList(ctx, terms)
	}
	if workers > len(terms) {
		workers = len(terms)
	}

	// deal the terminals out round-robin
	shares := make([][]NodeID, workers)
	for idx, id := range terms {
		shares[idx%workers] = append(shares[idx%workers], id)
	}

	partial := make([]Result, workers)
	grp, gctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		w := w
		grp.Go(func() error {
			res, err := NewEngine(topo, opts...).reachList(gctx, shares[w])
			partial[w] = res
			return err
		})
	}
	if err := grp.Wait(); err != nil {
		return nil, err
	}

	res := make(Result, len(terms))
	for _, part := range partial {
		for id, availa := range part {
			res[id] = availa
		}
	}
	return res, nil
}
