package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/AsyncFlow-Sim/AsyncFlow/analyzer"
	"github.com/AsyncFlow-Sim/AsyncFlow/scenario"
	"github.com/AsyncFlow-Sim/AsyncFlow/simulation"
	"github.com/AsyncFlow-Sim/AsyncFlow/trace"
)

var (
	outDir string
	seed   int64
)

var runCmd = &cobra.Command{
	Use:   "run <scenario.yaml>",
	Short: "Run an AsyncFlow scenario to completion",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		setLogLevel()

		sc, err := scenario.Load(args[0])
		if err != nil {
			logrus.Fatalf("loading scenario: %v", err)
		}
		if err := sc.Validate(); err != nil {
			logrus.Fatalf("invalid scenario:\n%v", err)
		}

		logrus.Infof("scenario %q loaded, horizon=%vs", args[0], sc.SimSettings.TotalSimulationTime)
		result, err := simulation.Run(sc, seed)
		if err != nil {
			logrus.Fatalf("simulation failed: %v", err)
		}

		if err := writeResults(outDir, result); err != nil {
			logrus.Fatalf("writing results: %v", err)
		}
		logrus.Infof("results written to %s", outDir)
	},
}

// writeResults persists the run's output artifacts as JSON: the structured
// per-request latency record, the sampled metric series, and the decision
// trace (routing choices and drops, with an aggregate summary).
func writeResults(dir string, res *simulation.Result) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	latenciesPayload := struct {
		Requests []analyzer.RequestRecord `json:"requests"`
		Summary  analyzer.LatencySummary  `json:"summary"`
	}{
		Requests: res.Analyzer.Records,
		Summary:  res.Analyzer.LatencySummary(),
	}
	if err := writeJSON(filepath.Join(dir, "latencies.json"), latenciesPayload); err != nil {
		return err
	}

	if err := writeJSON(filepath.Join(dir, "series.json"), res.Analyzer.SampledSeries()); err != nil {
		return err
	}

	tracePayload := struct {
		Summary  *trace.Summary        `json:"summary"`
		Routings []trace.RoutingRecord `json:"routings"`
		Drops    []trace.DropRecord    `json:"drops"`
	}{
		Summary:  trace.Summarize(res.Trace),
		Routings: res.Trace.Routings,
		Drops:    res.Trace.Drops,
	}
	return writeJSON(filepath.Join(dir, "trace.json"), tracePayload)
}

func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func init() {
	runCmd.Flags().StringVar(&outDir, "out", "./out", "Directory to write latencies.json, series.json and trace.json into")
	runCmd.Flags().Int64Var(&seed, "seed", 1, "Master RNG seed")
}
