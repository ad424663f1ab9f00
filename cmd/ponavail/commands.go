package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/go-viper/mapstructure/v2"
	"github.com/iti/ponavail"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var (
	rootCmd = &cobra.Command{
		Use:   "ponavail",
		Short: "Availability of randomly generated multi-stage PONs",
		Long: `ponavail builds random passive optical network topologies and computes,
for every terminal, the probability that it is reachable from the OLT.`,
		SilenceUsage: true,
	}
	runCmd = &cobra.Command{
		Use:   "run",
		Short: "Generate topologies and print their mean terminal availability",
		Args:  cobra.NoArgs,
		RunE:  runExperiment,
	}
	generateCmd = &cobra.Command{
		Use:   "generate [output file]",
		Short: "Generate one topology and write its description (yaml or json)",
		Args:  cobra.ExactArgs(1),
		RunE:  runGenerate,
	}
	evalCmd = &cobra.Command{
		Use:   "eval [topology file]",
		Short: "Evaluate a topology description and print its mean terminal availability",
		Args:  cobra.ExactArgs(1),
		RunE:  runEval,
	}

	configFile  string
	reportFile  string
	traceFile   string
	metricsFile string
	workers     int
	logLevel    string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "debug, info, warn or error")
	rootCmd.PersistentFlags().IntVar(&workers, "workers", 1, "goroutines evaluating terminals")
	rootCmd.PersistentFlags().StringVar(&traceFile, "trace", "", "write the evaluation trace to this yaml or json file")
	rootCmd.PersistentFlags().StringVar(&metricsFile, "metrics-file", "", "write metrics in text exposition format to this file")

	for _, cmd := range []*cobra.Command{runCmd, generateCmd} {
		addParamFlags(cmd.Flags())
		cmd.Flags().StringVar(&configFile, "config", "", "parameter file (yaml or json); flags override its values")
	}
	runCmd.Flags().StringVar(&reportFile, "report", "", "write the report to this yaml or json file")
	evalCmd.Flags().String("leaf-mode", ponavail.DefaultParams().LeafMode, "endpoint or interoperator")

	rootCmd.AddCommand(runCmd, generateCmd, evalCmd)
}

// addParamFlags declares one flag per parameter, named after its yaml key.
// loadParams reads them back through viper.
func addParamFlags(fs *pflag.FlagSet) {
	d := ponavail.DefaultParams()
	fs.Int("branching-factor", d.SplitRatio, "children created at every hub")
	fs.Int("stage-count", d.Stages, "hub layers before terminals are forced")
	fs.Int("feeders", d.Feeders, "subtrees attached to the root, 0 for branching-factor")
	fs.Float64("olt-availa", d.OltAvaila, "root (OLT) availability")
	fs.Float64("onu-availa", d.OnuAvaila, "terminal (ONU) availability")
	fs.Float64("prn-availa", d.PrnAvaila, "passive hub availability")
	fs.Float64("arn-availa", d.ArnAvaila, "active hub availability")
	fs.Float64("feeder-availa", d.FeederAvaila, "feeder fiber availability")
	fs.Float64("distribution-availa", d.DistAvaila, "distribution fiber availability")
	fs.Float64("last-mile-availa", d.LastAvaila, "last-mile fiber availability")
	fs.Float64("active-prob", d.ActiveProb, "probability a hub is active")
	fs.Float64("alternate-prob", d.AlternateProb, "probability a terminal is inter-operator")
	fs.Float64("skip-prob", d.SkipProb, "probability a hub child skips to the terminal stage")
	fs.Int64("seed", d.Seed, "random seed")
	fs.String("leaf-mode", d.LeafMode, "endpoint or interoperator")
	fs.Int("replications", d.Replications, "number of seeds to run")
}

// loadParams returns the parameters of the command.  Viper layers them:
// a flag set on the command line wins over the config file, which wins
// over the flag defaults (the values of DefaultParams).
func loadParams(cmd *cobra.Command) (*ponavail.Params, error) {
	v := viper.New()
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return nil, err
	}
	if len(configFile) > 0 {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ponavail.ErrConfig, configFile, err)
		}
	}

	// the yaml keys of Params are the flag names
	params := ponavail.DefaultParams()
	err := v.Unmarshal(params, func(dc *mapstructure.DecoderConfig) { dc.TagName = "yaml" })
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ponavail.ErrConfig, err)
	}
	return params, nil
}

// newLogger returns a text logger on stderr at the level of --log-level
func newLogger(w io.Writer) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(logLevel)); err != nil {
		return nil, fmt.Errorf("%w: log-level: %v", ponavail.ErrConfig, err)
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})), nil
}

// newExperiment assembles the experiment the persistent flags describe
func newExperiment(params *ponavail.Params) (*ponavail.Experiment, error) {
	logger, err := newLogger(os.Stderr)
	if err != nil {
		return nil, err
	}
	exp := &ponavail.Experiment{
		Params:  params,
		Logger:  logger,
		Workers: workers,
		Trace:   ponavail.CreateTraceManager("ponavail", len(traceFile) > 0),
	}
	if len(metricsFile) > 0 {
		exp.Metrics = ponavail.NewMetrics()
	}
	return exp, nil
}

// finish writes the trace and metrics files that were asked for
func finish(exp *ponavail.Experiment) error {
	if len(traceFile) > 0 {
		if _, err := exp.Trace.WriteToFile(traceFile); err != nil {
			return err
		}
	}
	if len(metricsFile) > 0 {
		if err := exp.Metrics.WriteToTextfile(metricsFile); err != nil {
			return err
		}
	}
	return nil
}

func runExperiment(cmd *cobra.Command, args []string) error {
	params, err := loadParams(cmd)
	if err != nil {
		return err
	}
	exp, err := newExperiment(params)
	if err != nil {
		return err
	}

	report, err := ponavail.RunExperiment(cmd.Context(), exp)
	if err != nil {
		return err
	}
	if len(reportFile) > 0 {
		if err := report.WriteToFile(reportFile); err != nil {
			return err
		}
	}
	fmt.Fprintln(cmd.OutOrStdout(), report.Mean)
	return finish(exp)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	params, err := loadParams(cmd)
	if err != nil {
		return err
	}
	topo, err := ponavail.GeneratePON(params, ponavail.NewRandSource(params.Seed))
	if err != nil {
		return err
	}
	return topo.Desc().WriteToFile(args[0])
}

func runEval(cmd *cobra.Command, args []string) error {
	_, td, err := ponavail.GetExperimentDicts(map[string]string{"topo": args[0]})
	if err != nil {
		return err
	}
	topo, err := ponavail.BuildTopology(td)
	if err != nil {
		return err
	}

	params, err := loadParams(cmd)
	if err != nil {
		return err
	}
	exp, err := newExperiment(params)
	if err != nil {
		return err
	}
	run, err := ponavail.EvaluateTopology(cmd.Context(), topo, exp)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), run.Mean)
	return finish(exp)
}
