package ponavail

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors of an experiment.  A nil
// *Metrics is valid, and every method on it does nothing.
type Metrics struct {
	registry *prometheus.Registry

	topologiesGenerated prometheus.Counter
	nodesGenerated      *prometheus.CounterVec
	terminalsEvaluated  prometheus.Counter
	invariantFailures   prometheus.Counter
	evalSeconds         prometheus.Histogram
	meanAvaila          prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with a registry
// of their own
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		topologiesGenerated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ponavail",
			Name:      "topologies_generated_total",
			Help:      "Number of random topologies generated",
		}),
		nodesGenerated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ponavail",
			Name:      "nodes_generated_total",
			Help:      "Number of nodes generated, by role",
		}, []string{"role"}),
		terminalsEvaluated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ponavail",
			Name:      "terminals_evaluated_total",
			Help:      "Number of terminal availabilities computed",
		}),
		invariantFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ponavail",
			Name:      "invariant_failures_total",
			Help:      "Number of topology evaluations abandoned on a violated invariant",
		}),
		evalSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "ponavail",
			Name:      "evaluation_seconds",
			Help:      "Time taken to evaluate every terminal of one topology",
			Buckets:   prometheus.ExponentialBuckets(1e-5, 4, 10),
		}),
		meanAvaila: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "ponavail",
			Name:      "mean_availability",
			Help:      "Mean terminal availability of the last evaluated topology",
		}),
	}

	m.registry.MustRegister(
		m.topologiesGenerated,
		m.nodesGenerated,
		m.terminalsEvaluated,
		m.invariantFailures,
		m.evalSeconds,
		m.meanAvaila,
	)
	return m
}

// Registry exposes the underlying registry, e.g. for an HTTP handler
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveTopology counts a generated topology and its nodes
func (m *Metrics) ObserveTopology(topo *Topology) {
	if m == nil {
		return
	}
	m.topologiesGenerated.Inc()
	for role, cnt := range topo.CountRoles() {
		m.nodesGenerated.WithLabelValues(role.String()).Add(float64(cnt))
	}
}

// ObserveEvaluation records the outcome of evaluating one topology
func (m *Metrics) ObserveEvaluation(terminals int, mean float64, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	m.evalSeconds.Observe(elapsed.Seconds())
	if err != nil {
		if errors.Is(err, ErrInvariant) {
			m.invariantFailures.Inc()
		}
		return
	}
	m.terminalsEvaluated.Add(float64(terminals))
	m.meanAvaila.Set(mean)
}

// WriteToTextfile writes the current values in the text exposition format,
// for collection by node_exporter's textfile collector
func (m *Metrics) WriteToTextfile(filename string) error {
	if m == nil {
		return nil
	}
	return prometheus.WriteToTextfile(filename, m.registry)
}
