/*
PURPOSE:
  Defines the 'list' subcommand.
  Shows what the dataset knows: GPUs by tier, models by family, and the
  benchmark datapoints behind high-confidence estimates.

REQUIREMENTS:
  User-specified:
  - list gpus | models | benchmarks, with an optional --filter.

  Implementation-discovered:
  - --filter is fuzzy ("4090", "hopper", "qwen") so ids need not be typed
    exactly.

ARCHITECTURE INTEGRATION:
  - Uses: internal/dataset

ERROR HANDLING:
  - Only dataset load errors.

IMPLEMENTATION RULES:
  - Groups with no matching entries are omitted.

USAGE:
  gpu-sim list gpus --filter hopper
*/

package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Imtiaj-Sajin/ai-gpu-simulator/internal/dataset"
)

func newListCmd(a *app) *cobra.Command {
	var filter string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the GPUs, models and benchmarks in the dataset",
	}
	cmd.PersistentFlags().StringVarP(&filter, "filter", "f", "", "fuzzy filter on id, name, tier, architecture or family")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "gpus",
			Short: "List GPUs grouped by tier",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				est, err := a.estimator()
				if err != nil {
					return err
				}
				listGPUs(cmd.OutOrStdout(), est.Repository(), filter)
				return nil
			},
		},
		&cobra.Command{
			Use:   "models",
			Short: "List models grouped by family",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				est, err := a.estimator()
				if err != nil {
					return err
				}
				listModels(cmd.OutOrStdout(), est.Repository(), filter)
				return nil
			},
		},
		&cobra.Command{
			Use:   "benchmarks",
			Short: "List benchmark datapoints",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				est, err := a.estimator()
				if err != nil {
					return err
				}
				listBenchmarks(cmd.OutOrStdout(), est.Repository(), filter)
				return nil
			},
		},
	)
	return cmd
}

func listGPUs(w io.Writer, repo dataset.Repository, filter string) {
	byTier := dataset.GPUsByTier(repo)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, tier := range dataset.Tiers() {
		var rows []dataset.GpuSpec
		for _, g := range byTier[tier] {
			if dataset.MatchGPU(g, filter) {
				rows = append(rows, g)
			}
		}
		if len(rows) == 0 {
			continue
		}
		fmt.Fprintf(tw, "%s\n", tier)
		for _, g := range rows {
			fmt.Fprintf(tw, "  %s\t%s\t%s\t%gGB\t%s\t%s\n",
				g.ID, g.Name, g.Architecture, g.VRAMGB, optional(g.MemoryBandwidthGBs, "GB/s"), optional(g.FP16Tflops, "TFLOPS"))
		}
	}
	tw.Flush()
}

func listModels(w io.Writer, repo dataset.Repository, filter string) {
	byFamily := dataset.ModelsByFamily(repo)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, fam := range dataset.Families() {
		var rows []dataset.ModelSpec
		for _, m := range byFamily[fam] {
			if dataset.MatchModel(m, filter) {
				rows = append(rows, m)
			}
		}
		if len(rows) == 0 {
			continue
		}
		fmt.Fprintf(tw, "%s\n", fam)
		for _, m := range rows {
			fmt.Fprintf(tw, "  %s\t%s\t%gB\tctx %d\n", m.ID, m.Name, m.ParamsB, m.DefaultContext)
		}
	}
	tw.Flush()
}

// listBenchmarks shows points whose gpu or model matches the filter.
func listBenchmarks(w io.Writer, repo dataset.Repository, filter string) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tGPU\tMODEL\tPRECISION\tMODE\tCONTEXT\tDECODE\tPREFILL")
	for _, b := range repo.Benchmarks() {
		if filter != "" && !benchmarkMatches(repo, b, filter) {
			continue
		}
		prefill := "-"
		if b.PrefillTps != nil {
			prefill = fmt.Sprintf("%g", *b.PrefillTps)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\t%g\t%s\n",
			b.ID, b.GPUID, b.ModelID, b.Precision, b.Mode, b.Context, b.DecodeTps, prefill)
	}
	tw.Flush()
}

func benchmarkMatches(repo dataset.Repository, b dataset.BenchmarkPoint, filter string) bool {
	if g, ok := repo.GPU(b.GPUID); ok && dataset.MatchGPU(g, filter) {
		return true
	}
	if m, ok := repo.Model(b.ModelID); ok && dataset.MatchModel(m, filter) {
		return true
	}
	return false
}

func optional(v *float64, unit string) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%g%s", *v, unit)
}
