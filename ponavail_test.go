package ponavail

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func regressionParams() *Params {
	p := DefaultParams()
	p.SplitRatio = 2
	p.Stages = 1
	p.OltAvaila, p.OnuAvaila, p.PrnAvaila, p.ArnAvaila = 0.99, 0.99, 0.99, 0.99
	p.FeederAvaila, p.DistAvaila, p.LastAvaila = 0.999, 0.999, 0.999
	p.ActiveProb, p.AlternateProb, p.SkipProb = 0, 0, 0
	return p
}

func TestRunExperimentRegression(t *testing.T) {
	params := regressionParams()
	params.Replications = 3

	var logs bytes.Buffer
	exp := &Experiment{
		Params:  params,
		Logger:  slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug})),
		Metrics: NewMetrics(),
	}
	report, err := RunExperiment(context.Background(), exp)
	require.NoError(t, err)

	require.Len(t, report.Runs, 3)
	for idx, run := range report.Runs {
		assert.Equal(t, params.Seed+int64(idx), run.Seed)
		assert.Equal(t, 7, run.Nodes)
		assert.Equal(t, 4, run.Terminals)
	}
	assert.InDelta(t, 0.99*0.99*0.99*0.999*0.999, report.Mean, 1e-15)
	assert.InDelta(t, 0, report.StdDev, 1e-15)
	assert.NotEmpty(t, report.RunID)

	assert.Contains(t, logs.String(), "experiment finished")
	assert.Contains(t, logs.String(), "topology evaluated")

	assert.Equal(t, 3.0, testutil.ToFloat64(exp.Metrics.topologiesGenerated))
	assert.Equal(t, 12.0, testutil.ToFloat64(exp.Metrics.terminalsEvaluated))
	assert.Equal(t, 6.0, testutil.ToFloat64(exp.Metrics.nodesGenerated.WithLabelValues("prn")))
	assert.InDelta(t, report.Mean, testutil.ToFloat64(exp.Metrics.meanAvaila), 1e-15)
}

func TestRunExperimentReproducible(t *testing.T) {
	params := DefaultParams()
	params.Stages = 3
	params.Replications = 2

	first, err := RunExperiment(context.Background(), &Experiment{Params: params})
	require.NoError(t, err)
	second, err := RunExperiment(context.Background(), &Experiment{Params: params, Workers: 3})
	require.NoError(t, err)

	assert.Equal(t, first.Runs, second.Runs)
	assert.Equal(t, first.Mean, second.Mean)
	assert.NotEqual(t, first.RunID, second.RunID)
}

func TestRunExperimentConfigError(t *testing.T) {
	params := DefaultParams()
	params.SkipProb = 1.5
	_, err := RunExperiment(context.Background(), &Experiment{Params: params})
	assert.ErrorIs(t, err, ErrConfig)

	_, err = RunExperiment(context.Background(), nil)
	assert.ErrorIs(t, err, ErrConfig)

	_, err = RunExperiment(context.Background(), &Experiment{})
	assert.ErrorIs(t, err, ErrConfig)
}

func TestRunExperimentTraceFirstReplication(t *testing.T) {
	params := regressionParams()
	params.Replications = 2
	exp := &Experiment{Params: params, Trace: CreateTraceManager("reg", true)}
	_, err := RunExperiment(context.Background(), exp)
	require.NoError(t, err)

	assert.Len(t, exp.Trace.NameByID, 7)
	assert.Len(t, exp.Trace.Traces, 4)
}

func TestRunExperimentCustomSource(t *testing.T) {
	params := regressionParams()
	params.ActiveProb = 0.5
	exp := &Experiment{
		Params: params,
		// every draw below 0.5 makes every hub active
		NewSource: func(seed int64) RandSource { return &scriptedSource{draws: make([]float64, 64)} },
	}
	report, err := RunExperiment(context.Background(), exp)
	require.NoError(t, err)
	require.Len(t, report.Runs, 1)
	assert.Less(t, report.Mean, 1.0)
}

func TestEvaluateTopology(t *testing.T) {
	topo, _, _ := activeFan(t, LeafPrimary, LeafAlternate)
	metrics := NewMetrics()

	run, err := EvaluateTopology(context.Background(), topo, &Experiment{Metrics: metrics})
	require.NoError(t, err)
	assert.Equal(t, 2, run.Terminals)

	inter, err := EvaluateTopology(context.Background(), topo,
		&Experiment{Params: &Params{LeafMode: LeafInterOperator}})
	require.NoError(t, err)
	assert.NotEqual(t, run.Mean, inter.Mean)

	broken := CreateTopology("broken")
	_, _ = broken.AddRoot(0.9)
	_, err = EvaluateTopology(context.Background(), broken, &Experiment{Metrics: metrics})
	assert.ErrorIs(t, err, ErrInvariant)
}

func TestEvaluateTopologyTwiceTraced(t *testing.T) {
	topo, _, _ := activeFan(t, LeafPrimary, LeafAlternate)
	topo.NameNodes()
	exp := &Experiment{Trace: CreateTraceManager("twice", true)}

	first, err := EvaluateTopology(context.Background(), topo, exp)
	require.NoError(t, err)
	second, err := EvaluateTopology(context.Background(), topo, exp)
	require.NoError(t, err)

	assert.Equal(t, first.Mean, second.Mean)
	assert.Len(t, exp.Trace.NameByID, topo.NumNodes())
}

func TestReportAndMetricsFiles(t *testing.T) {
	params := regressionParams()
	exp := &Experiment{Params: params, Metrics: NewMetrics()}
	report, err := RunExperiment(context.Background(), exp)
	require.NoError(t, err)

	dir := t.TempDir()
	require.NoError(t, report.WriteToFile(filepath.Join(dir, "report.json")))
	require.NoError(t, exp.Metrics.WriteToTextfile(filepath.Join(dir, "ponavail.prom")))

	prom, err := os.ReadFile(filepath.Join(dir, "ponavail.prom"))
	require.NoError(t, err)
	assert.Contains(t, string(prom), "ponavail_topologies_generated_total 1")

	var none *Metrics
	assert.NoError(t, none.WriteToTextfile(filepath.Join(dir, "none.prom")))
	assert.Nil(t, none.Registry())
}

func TestGetExperimentDicts(t *testing.T) {
	dir := t.TempDir()
	paramsFile := filepath.Join(dir, "params.yaml")
	topoFile := filepath.Join(dir, "topo.json")

	p := regressionParams()
	require.NoError(t, p.WriteToFile(paramsFile))
	topo, err := GeneratePON(p, NewRandSource(p.Seed))
	require.NoError(t, err)
	require.NoError(t, topo.Desc().WriteToFile(topoFile))

	params, td, err := GetExperimentDicts(map[string]string{"params": paramsFile, "topo": topoFile})
	require.NoError(t, err)
	assert.Equal(t, p, params)
	assert.Len(t, td.Nodes, 7)

	_, _, err = GetExperimentDicts(map[string]string{"topo": filepath.Join(dir, "missing.yaml")})
	assert.Error(t, err)
}
