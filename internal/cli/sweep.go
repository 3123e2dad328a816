/*
PURPOSE:
  Defines the 'sweep' subcommand.
  Estimates every selected gpu x model x scenario and records the results.

REQUIREMENTS:
  User-specified:
  - Selection and exclusion overrides on the command line.
  - Results saved to CSV and JSONL, previous files rotated (.1, .2, ...).

  Implementation-discovered:
  - Need to load config first.
  - Apply flag overrides to config.

ARCHITECTURE INTEGRATION:
  - Calls: internal/engine.Runner
  - Uses: internal/config, internal/metrics

ERROR HANDLING:
  - Returns error if the selection is invalid or the writers cannot start.

IMPLEMENTATION RULES:
  - Logic: Load Config -> Override -> Runner.Run.

USAGE:
  gpu-sim sweep --gpus rtx-4090,h100-sxm --exclude 70b -o ./results

SELF-HEALING INSTRUCTIONS:
  - Check flag names match Config struct fields generally.

RELATED FILES:
  - internal/engine/runner.go

MAINTENANCE:
  - Update when adding new CLI overrides.
*/

package cli

import (
	"fmt"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/Imtiaj-Sajin/ai-gpu-simulator/internal/engine"
	"github.com/Imtiaj-Sajin/ai-gpu-simulator/internal/metrics"
	"github.com/Imtiaj-Sajin/ai-gpu-simulator/internal/model"
)

func newSweepCmd(a *app) *cobra.Command {
	var (
		gpus        []string
		models      []string
		exclude     []string
		outputDir   string
		metricsFile string
		quiet       bool
	)

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Estimate every gpu x model x scenario",
		Long: `Estimates every combination of the selected GPUs, models and the scenarios in
the config file's sweep block.

Results are saved to CSV and JSONL, with automatic file versioning
(e.g., gpusim_results.csv.1) to keep previous sweeps.`,
		Example: `  # Sweep the whole dataset with the default scenarios
  gpu-sim sweep

  # Two cards, no 70B models, results in ./results
  gpu-sim sweep --gpus rtx-4090,h100-sxm --exclude 70b -o ./results

  # Also write Prometheus metrics for a node_exporter textfile collector
  gpu-sim sweep --metrics-file gpusim.prom`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg
			if len(gpus) > 0 {
				cfg.Sweep.GPUs = gpus
			}
			if len(models) > 0 {
				cfg.Sweep.Models = models
			}
			if len(exclude) > 0 {
				cfg.Sweep.Exclude = exclude
			}
			if outputDir != "" {
				cfg.Output.Dir = outputDir
			}
			if metricsFile != "" {
				cfg.Output.MetricsFile = metricsFile
			}

			est, err := a.estimator()
			if err != nil {
				return err
			}
			rec, err := metrics.NewRecorder()
			if err != nil {
				return err
			}

			opts := []engine.Option{engine.WithMetrics(rec)}
			if !quiet {
				var bar *progressbar.ProgressBar
				opts = append(opts, engine.WithProgress(func(done, total int) {
					if bar == nil {
						bar = progressbar.NewOptions(
							total,
							progressbar.OptionSetWriter(cmd.ErrOrStderr()),
							progressbar.OptionSetDescription("sweeping"),
							progressbar.OptionShowCount(),
							progressbar.OptionClearOnFinish(),
						)
					}
					_ = bar.Set(done)
				}))
			}

			summary, err := engine.New(cfg, est, opts...).Run(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%d estimates: %d high, %d medium, %d low confidence; %d do not fit\n",
				summary.Total,
				summary.ByConfidence[model.ConfidenceHigh],
				summary.ByConfidence[model.ConfidenceMedium],
				summary.ByConfidence[model.ConfidenceLow],
				summary.Infeasible,
			)
			fmt.Fprintf(out, "CSV:  %s\nJSON: %s\n", summary.CSVPath, summary.JSONPath)
			if summary.MetricsPath != "" {
				fmt.Fprintf(out, "Metrics: %s\n", summary.MetricsPath)
			}
			if summary.WriteErrors > 0 {
				return fmt.Errorf("%d result rows failed to write", summary.WriteErrors)
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&gpus, "gpus", nil, "Comma-separated list of GPU ids to sweep (default all)")
	cmd.Flags().StringSliceVar(&models, "models", nil, "Comma-separated list of model ids to sweep (default all)")
	cmd.Flags().StringSliceVar(&exclude, "exclude", nil, "Comma-separated list of substrings to exclude from gpu and model ids")
	cmd.Flags().StringVarP(&outputDir, "output-dir", "o", "", "Output directory for results (CSV/JSONL)")
	cmd.Flags().StringVar(&metricsFile, "metrics-file", "", "Also write Prometheus metrics to this file in the output directory")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Hide the progress bar")
	return cmd
}
