package ponavail

import (
	"context"
	"fmt"

	"gonum.org/v1/gonum/stat"
)

// MeanAvaila returns the mean availability over all terminals of the
// topology.  Every terminal must have an entry in res; a missing one
// means the evaluation pass was incomplete, and is an invariant violation.
func MeanAvaila(topo *Topology, res Result) (float64, error) {
	terms := topo.Terminals()
	if len(terms) == 0 {
		return 0, fmt.Errorf("%w: topology %s has no terminals", ErrInvariant, topo.Name)
	}

	values := make([]float64, 0, len(terms))
	for _, id := range terms {
		availa, present := res[id]
		if !present {
			return 0, &InvariantError{Node: id, Msg: "terminal has no computed availability"}
		}
		values = append(values, availa)
	}
	return stat.Mean(values, nil), nil
}

// CalcMeanAvaila evaluates every terminal and returns their mean availability
func CalcMeanAvaila(ctx context.Context, topo *Topology, opts ...EngineOption) (float64, error) {
	res, err := EvaluateAll(ctx, topo, 1, opts...)
	if err != nil {
		return 0, err
	}
	return MeanAvaila(topo, res)
}

// Summarize returns the mean and the sample standard deviation of a set of
// per-run means.  With a single value the deviation is 0.
func Summarize(means []float64) (mean, stdDev float64) {
	switch len(means) {
	case 0:
		return 0, 0
	case 1:
		return means[0], 0
	}
	return stat.MeanStdDev(means, nil)
}
