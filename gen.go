package ponavail

// gen.go builds random PON topologies.  Generation is depth-first: every
// call of generateFurther creates one node and the fiber that feeds it,
// and a hub goes on to create its children before its siblings are built.
// Stages are counted from 0; a node created at stage Stages is a terminal.

import (
	"fmt"
)

// generator carries the state of one depth-first build
type generator struct {
	params *Params
	src    RandSource
	topo   *Topology
}

// GeneratePON builds a random topology from the parameters, drawing every
// random choice from src.  The parameters are validated first, and an
// invalid set is reported as a configuration error before anything is built.
func GeneratePON(params *Params, src RandSource) (*Topology, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if src == nil {
		return nil, configErrorf("no random source")
	}

	gen := &generator{
		params: params,
		src:    src,
		topo:   CreateTopology(fmt.Sprintf("pon-%d", params.Seed)),
	}

	olt, err := gen.topo.AddRoot(params.OltAvaila)
	if err != nil {
		return nil, err
	}

	// the subtrees of the root all start at stage 0, fed by feeder fiber
	for idx := 0; idx < params.feeders(); idx++ {
		if err := gen.generateFurther(0, olt); err != nil {
			return nil, err
		}
	}

	gen.topo.NameNodes()
	return gen.topo, nil
}

// generateFurther creates a node at the given stage, connected to pn (the
// previous node).  The random draws are made in a fixed order, the role
// of the node first and then, for each child in turn, the skip decision
// followed by the whole of that child's subtree, so that the same seed
// always gives the same tree.
func (gen *generator) generateFurther(stage int, pn NodeID) error {
	p := gen.params

	var role Role
	var nodeAvaila, fiberAvaila float64

	terminal := (stage == p.Stages)
	if terminal {
		// the end of the line.  Not a stage, just an endpoint
		role = LeafPrimary
		if bernoulli(gen.src, p.AlternateProb) {
			role = LeafAlternate
		}
		nodeAvaila = p.OnuAvaila
		fiberAvaila = p.LastAvaila
	} else {
		role = PassiveHub
		nodeAvaila = p.PrnAvaila
		if bernoulli(gen.src, p.ActiveProb) {
			role = ActiveHub
			nodeAvaila = p.ArnAvaila
		}
		fiberAvaila = p.DistAvaila
		if stage == 0 {
			fiberAvaila = p.FeederAvaila
		}
	}

	n := gen.topo.AddNode(role, nodeAvaila)
	if _, err := gen.topo.Connect(pn, n, fiberAvaila); err != nil {
		return err
	}

	if terminal {
		return nil
	}

	for idx := 0; idx < p.SplitRatio; idx++ {
		nstage := stage + 1
		if bernoulli(gen.src, p.SkipProb) {
			nstage = p.Stages
		}
		if err := gen.generateFurther(nstage, n); err != nil {
			return err
		}
	}
	return nil
}
