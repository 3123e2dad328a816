/*
PURPOSE:
  Defines the root Cobra command for the gpu-sim CLI.
  Handles global flags, config loading and logger setup.

REQUIREMENTS:
  User-specified:
  - Provide a CLI interface.
  - Support global flags like --config, --dataset, --log-level, --log-format.

  Implementation-discovered:
  - Needs to expose an Execute() function for main.go.
  - Commands are built by constructors rather than init() so tests get a
    fresh tree (and fresh flag values) per run.
  - The dataset is loaded lazily: `dataset validate` must be able to report
    on a broken dataset file instead of failing in pre-run.

ARCHITECTURE INTEGRATION:
  - Called by: cmd/gpu-sim/main.go
  - Calls: Child commands (estimate, play, compare, list, sweep, dataset)
  - Uses: internal/config, internal/output, internal/dataset, internal/estimator

ERROR HANDLING:
  - Returns error to main.go for exit code handling.
  - Usage output is suppressed for runtime errors (SilenceUsage).

IMPLEMENTATION RULES:
  - Use `PersistentFlags()` for flags available to all subcommands.
  - Commands write to cmd.OutOrStdout(); logs and progress go to stderr.

USAGE:
  Called by main.go.

RELATED FILES:
  - cmd/gpu-sim/main.go
  - internal/config/config.go

MAINTENANCE:
  - Update when adding global configuration options.
*/

package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Imtiaj-Sajin/ai-gpu-simulator/internal/config"
	"github.com/Imtiaj-Sajin/ai-gpu-simulator/internal/dataset"
	"github.com/Imtiaj-Sajin/ai-gpu-simulator/internal/estimator"
	"github.com/Imtiaj-Sajin/ai-gpu-simulator/internal/output"
)

// app carries global flag values and lazily loaded state to subcommands.
type app struct {
	// cfgFile stores the path to the config file (if specified via flag)
	cfgFile     string
	datasetFile string
	logLevel    string
	logFormat   string

	cfg *config.Config
	est *estimator.Estimator
}

// Execute executes the root command. SIGINT and SIGTERM cancel the
// command's context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return NewRootCmd().ExecuteContext(ctx)
}

// NewRootCmd builds the full command tree.
func NewRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "gpu-sim",
		Short: "Estimate LLM inference performance on GPUs",
		Long: `gpu-sim estimates time-to-first-token, decode throughput and VRAM needs for
GPU/model combinations. Estimates come from published benchmarks where they
exist, scaled benchmarks for nearby model sizes, and a conservative analytical
model otherwise. Every estimate says which one it used.

Use 'estimate --help' to get started, or 'play' to watch an estimate stream.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default is ./gpusim.yaml)")
	flags.StringVar(&a.datasetFile, "dataset", "", "YAML file merged over the built-in dataset")
	flags.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error")
	flags.StringVar(&a.logFormat, "log-format", "", "log format: text or json")

	rootCmd.AddCommand(
		newEstimateCmd(a),
		newPlayCmd(a),
		newCompareCmd(a),
		newListCmd(a),
		newSweepCmd(a),
		newDatasetCmd(a),
	)
	return rootCmd
}

// setup loads config, applies global flag overrides and configures logging.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.cfgFile)
	if err != nil {
		return err
	}
	if a.datasetFile != "" {
		cfg.DatasetFile = a.datasetFile
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}
	if a.logFormat != "" {
		cfg.Logging.Format = a.logFormat
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := output.Configure(cmd.ErrOrStderr(), cfg.Logging.Level, cfg.Logging.Format); err != nil {
		return err
	}
	if cfg.Source != "" {
		output.Logger.Debug("Loaded config", "file", cfg.Source)
	}
	a.cfg = cfg
	return nil
}

// estimator loads the dataset on first use.
func (a *app) estimator() (*estimator.Estimator, error) {
	if a.est != nil {
		return a.est, nil
	}
	repo, err := dataset.LoadFile(a.cfg.DatasetFile)
	if err != nil {
		return nil, err
	}
	if a.cfg.DatasetFile != "" {
		output.Logger.Debug("Loaded dataset", "file", a.cfg.DatasetFile,
			"gpus", len(repo.GPUs()), "models", len(repo.Models()), "benchmarks", len(repo.Benchmarks()))
	}
	a.est = estimator.New(repo)
	return a.est, nil
}
