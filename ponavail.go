// Package ponavail estimates the availability of randomly generated
// multi-stage passive optical networks.  A topology is generated from a
// set of parameters, the probability that each terminal is reachable from
// the root is computed analytically, and the terminal values are reduced
// to a mean.
package ponavail

// ponavail.go has the code that ties generation, evaluation and
// aggregation together into an experiment

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
)

// Experiment describes one run of the tool
type Experiment struct {
	Params *Params

	// Logger receives progress messages.  nil discards them
	Logger *slog.Logger

	// Metrics, when not nil, is updated as topologies are built and evaluated
	Metrics *Metrics

	// Trace, when active, records the evaluation of the first replication
	Trace *TraceManager

	// Workers is the number of goroutines evaluating terminals, 1 if < 1
	Workers int

	// NewSource creates the random source for a seed.  nil selects NewRandSource
	NewSource func(seed int64) RandSource
}

// RunResult is the outcome of one replication
type RunResult struct {
	Seed      int64   `json:"seed" yaml:"seed"`
	Nodes     int     `json:"nodes" yaml:"nodes"`
	Terminals int     `json:"terminals" yaml:"terminals"`
	Mean      float64 `json:"mean" yaml:"mean"`
}

// Report gathers the results of every replication of an experiment
type Report struct {
	RunID  string      `json:"runid" yaml:"runid"`
	Params *Params     `json:"params" yaml:"params"`
	Runs   []RunResult `json:"runs" yaml:"runs"`

	// mean and sample standard deviation of the per-run means
	Mean   float64 `json:"mean" yaml:"mean"`
	StdDev float64 `json:"stddev" yaml:"stddev"`
}

func (exp *Experiment) logger() *slog.Logger {
	if exp.Logger != nil {
		return exp.Logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func (exp *Experiment) source(seed int64) RandSource {
	if exp.NewSource != nil {
		return exp.NewSource(seed)
	}
	return NewRandSource(seed)
}

func (exp *Experiment) engineOpts(traced bool) []EngineOption {
	mode := LeafEndpoint
	if exp.Params != nil {
		mode = exp.Params.leafMode()
	}
	opts := []EngineOption{WithLeafMode(mode)}
	if traced && exp.Trace.Active() {
		opts = append(opts, WithTrace(exp.Trace))
	}
	return opts
}

// RunExperiment generates and evaluates one topology per replication,
// using seeds Seed, Seed+1, ...  The parameters are validated before
// anything else is done, and a failure is returned as a configuration error.
func RunExperiment(ctx context.Context, exp *Experiment) (*Report, error) {
	if exp == nil {
		return nil, configErrorf("no experiment")
	}
	if err := exp.Params.Validate(); err != nil {
		return nil, err
	}
	logger := exp.logger()

	report := &Report{RunID: uuid.NewString(), Params: exp.Params, Runs: []RunResult{}}
	logger.Info("experiment started", "runid", report.RunID,
		"replications", exp.Params.replications(), "seed", exp.Params.Seed)

	means := make([]float64, 0, exp.Params.replications())
	for rep := 0; rep < exp.Params.replications(); rep++ {
		seed := exp.Params.Seed + int64(rep)

		topo, err := GeneratePON(exp.Params, exp.source(seed))
		if err != nil {
			return nil, fmt.Errorf("seed %d: %w", seed, err)
		}
		exp.Metrics.ObserveTopology(topo)
		logger.Debug("topology generated", "seed", seed,
			"nodes", topo.NumNodes(), "terminals", len(topo.Terminals()))

		traced := (rep == 0)
		if traced {
			exp.Trace.AddTopology(topo)
		}

		run, err := evaluate(ctx, topo, exp, traced)
		if err != nil {
			return nil, fmt.Errorf("seed %d: %w", seed, err)
		}
		run.Seed = seed
		report.Runs = append(report.Runs, *run)
		means = append(means, run.Mean)
	}

	report.Mean, report.StdDev = Summarize(means)
	logger.Info("experiment finished", "runid", report.RunID,
		"mean", report.Mean, "stddev", report.StdDev)
	return report, nil
}

// EvaluateTopology computes the mean terminal availability of a topology
// that was built elsewhere, e.g. read from a description.  Only the
// LeafMode, Workers, Logger, Metrics and Trace settings of exp are used.
func EvaluateTopology(ctx context.Context, topo *Topology, exp *Experiment) (*RunResult, error) {
	if err := topo.Validate(); err != nil {
		return nil, err
	}
	exp.Trace.AddTopology(topo)
	return evaluate(ctx, topo, exp, true)
}

func evaluate(ctx context.Context, topo *Topology, exp *Experiment, traced bool) (*RunResult, error) {
	start := time.Now()
	res, err := EvaluateAll(ctx, topo, exp.Workers, exp.engineOpts(traced)...)
	var mean float64
	if err == nil {
		mean, err = MeanAvaila(topo, res)
	}
	exp.Metrics.ObserveEvaluation(len(res), mean, time.Since(start), err)
	if err != nil {
		exp.logger().Error("evaluation failed", "topology", topo.Name, "err", err)
		return nil, err
	}

	exp.logger().Debug("topology evaluated", "topology", topo.Name,
		"terminals", len(res), "mean", mean, "elapsed", time.Since(start))
	return &RunResult{Nodes: topo.NumNodes(), Terminals: len(res), Mean: mean}, nil
}

// WriteToFile stores the Report struct to the file whose name is given.
// Serialization to json or to yaml is selected based on the extension of this name.
func (r *Report) WriteToFile(filename string) error {
	bytes, err := marshalByExt(filename, r)
	if err != nil {
		return err
	}
	return os.WriteFile(filename, bytes, 0o644)
}

// GetExperimentDicts accepts a map that holds the names of the input files of
// an experiment, under the keys "params" and "topo", and returns the
// structures they describe.  Either may be absent, giving nil.  Whether a
// file holds yaml or json is decided by its extension.
func GetExperimentDicts(syn map[string]string) (*Params, *TopoDesc, error) {
	var params *Params
	var td *TopoDesc
	var errs []error
	var err error

	if len(syn["params"]) > 0 {
		params, err = ReadParams(syn["params"], UseYAML(syn["params"]), nil)
		errs = append(errs, err)
	}
	if len(syn["topo"]) > 0 {
		td, err = ReadTopoDesc(syn["topo"], UseYAML(syn["topo"]), nil)
		errs = append(errs, err)
	}

	if err := ReportErrs(errs); err != nil {
		return nil, nil, err
	}
	return params, td, nil
}
