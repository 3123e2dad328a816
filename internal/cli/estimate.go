/*
PURPOSE:
  Defines the 'estimate' subcommand and the workload flags shared with
  'play'.

REQUIREMENTS:
  User-specified:
  - Estimate one gpu/model/workload combination.
  - --json for machine-readable output, --explain for the VRAM breakdown
    and the formulas behind the numbers.

  Implementation-discovered:
  - Flags that are not set fall back to the config file's defaults block,
    not to the flag defaults, so a gpusim.yaml can pin a favourite setup.
  - Unknown ids are not errors (the estimator falls back to a baseline),
    but a typo deserves a warning with suggestions.

ARCHITECTURE INTEGRATION:
  - Calls: internal/estimator
  - Uses: internal/config (defaults), internal/dataset (suggestions)

ERROR HANDLING:
  - Unknown precision or mode values are rejected before estimating.

IMPLEMENTATION RULES:
  - Results go to cmd.OutOrStdout(); warnings go through output.Logger.

USAGE:
  gpu-sim estimate --gpu rtx-4090 --model llama-3-1-8b --precision int4

RELATED FILES:
  - internal/cli/play.go
  - internal/estimator/estimator.go

MAINTENANCE:
  - Keep the --explain formulas in step with internal/estimator.
*/

package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Imtiaj-Sajin/ai-gpu-simulator/internal/config"
	"github.com/Imtiaj-Sajin/ai-gpu-simulator/internal/dataset"
	"github.com/Imtiaj-Sajin/ai-gpu-simulator/internal/estimator"
	"github.com/Imtiaj-Sajin/ai-gpu-simulator/internal/model"
	"github.com/Imtiaj-Sajin/ai-gpu-simulator/internal/output"
)

// workloadFlags holds the request flags of estimate and play.
type workloadFlags struct {
	gpu, model         string
	input, output, ctx int
	precision, mode    string
	batch, concurrency int
}

// register adds the workload flags to cmd. ids adds --gpu and --model too.
func (w *workloadFlags) register(cmd *cobra.Command, ids bool) {
	d := config.DefaultConfig().Defaults
	f := cmd.Flags()
	if ids {
		f.StringVar(&w.gpu, "gpu", d.GPU, "GPU id (see 'list gpus')")
		f.StringVar(&w.model, "model", d.Model, "model id (see 'list models')")
	}
	f.IntVar(&w.input, "input", d.InputTokens, "input (prompt) tokens")
	f.IntVar(&w.output, "output", d.OutputTokens, "output (generated) tokens")
	f.IntVar(&w.ctx, "context", d.Context, "context window in tokens")
	f.StringVar(&w.precision, "precision", string(d.Precision), "weight precision: fp16, int8, int4")
	f.StringVar(&w.mode, "mode", string(d.Mode), "workload mode: single or throughput")
	f.IntVar(&w.batch, "batch", d.BatchSize, "batch size (throughput mode)")
	f.IntVar(&w.concurrency, "concurrency", d.Concurrency, "concurrent requests (throughput mode)")
}

// scenario overlays the flags the user set onto the configured defaults.
func (w *workloadFlags) scenario(cmd *cobra.Command, defaults config.Scenario) (config.Scenario, error) {
	s := defaults
	f := cmd.Flags()
	if f.Changed("gpu") {
		s.GPU = w.gpu
	}
	if f.Changed("model") {
		s.Model = w.model
	}
	if f.Changed("input") {
		s.InputTokens = w.input
	}
	if f.Changed("output") {
		s.OutputTokens = w.output
	}
	if f.Changed("context") {
		s.Context = w.ctx
	}
	if f.Changed("precision") {
		s.Precision = model.Precision(w.precision)
	}
	if f.Changed("mode") {
		s.Mode = model.Mode(w.mode)
	}
	if f.Changed("batch") {
		s.BatchSize = w.batch
	}
	if f.Changed("concurrency") {
		s.Concurrency = w.concurrency
	}

	p, ok := model.ParsePrecision(string(s.Precision))
	if !ok {
		return s, fmt.Errorf("unknown precision %q (want fp16, int8 or int4)", s.Precision)
	}
	m, ok := model.ParseMode(string(s.Mode))
	if !ok {
		return s, fmt.Errorf("unknown mode %q (want single or throughput)", s.Mode)
	}
	s.Precision, s.Mode = p, m
	return s, nil
}

func newEstimateCmd(a *app) *cobra.Command {
	var (
		w       workloadFlags
		asJSON  bool
		explain bool
	)

	cmd := &cobra.Command{
		Use:   "estimate",
		Short: "Estimate TTFT, throughput and VRAM for one configuration",
		Long: `Estimates time-to-first-token, prefill and decode throughput, total time and
VRAM requirement for one GPU, model and workload.

Flags that are not given fall back to the 'defaults' block of the config file.`,
		Example: `  # Defaults: rtx-4090, llama-3-1-8b, 512 in / 256 out, fp16
  gpu-sim estimate

  # A quantized 70B on a datacenter card
  gpu-sim estimate --gpu h100-sxm --model llama-3-1-70b --precision int4

  # Batched serving, with the formulas behind the numbers
  gpu-sim estimate --mode throughput --batch 16 --concurrency 16 --explain`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			est, in, out, err := a.resolve(cmd, &w)
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(struct {
					Input  model.EstimateInput  `json:"input"`
					Output model.EstimateOutput `json:"output"`
				}{in, out})
			}

			printEstimate(cmd.OutOrStdout(), est.Repository(), in, out)
			if explain {
				printExplain(cmd.OutOrStdout(), est.Repository(), in, out)
			}
			return nil
		},
	}

	w.register(cmd, true)
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the request and estimate as JSON")
	cmd.Flags().BoolVar(&explain, "explain", false, "show the VRAM breakdown and formulas")
	return cmd
}

// resolve builds the normalized request from flags and defaults and
// estimates it.
func (a *app) resolve(cmd *cobra.Command, w *workloadFlags) (*estimator.Estimator, model.EstimateInput, model.EstimateOutput, error) {
	est, err := a.estimator()
	if err != nil {
		return nil, model.EstimateInput{}, model.EstimateOutput{}, err
	}
	s, err := w.scenario(cmd, a.cfg.Defaults)
	if err != nil {
		return nil, model.EstimateInput{}, model.EstimateOutput{}, err
	}
	in := est.Normalize(s.Input(s.GPU, s.Model))
	warnUnknown(est.Repository(), in)
	return est, in, est.Estimate(in), nil
}

// warnUnknown logs ids the dataset does not know, with suggestions.
func warnUnknown(repo dataset.Repository, in model.EstimateInput) {
	if _, ok := repo.GPU(in.GPUID); !ok {
		output.Logger.Warn("Unknown gpu, using baseline estimate", "gpu", in.GPUID,
			"did_you_mean", strings.Join(dataset.SuggestGPU(repo, in.GPUID), ","))
	}
	if _, ok := repo.Model(in.ModelID); !ok {
		output.Logger.Warn("Unknown model, using baseline estimate", "model", in.ModelID,
			"did_you_mean", strings.Join(dataset.SuggestModel(repo, in.ModelID), ","))
	}
}

// gpuName is "Name (id)" when the id resolves.
func gpuName(repo dataset.Repository, id string) string {
	if g, ok := repo.GPU(id); ok {
		return fmt.Sprintf("%s (%s)", g.Name, g.ID)
	}
	return id + " (unknown)"
}

func modelName(repo dataset.Repository, id string) string {
	if m, ok := repo.Model(id); ok {
		return fmt.Sprintf("%s (%s)", m.Name, m.ID)
	}
	return id + " (unknown)"
}

func workloadLine(in model.EstimateInput) string {
	s := fmt.Sprintf("%d in / %d out, context %d, %s, %s", in.InputTokens, in.OutputTokens, in.Context, in.Precision, in.Mode)
	if in.Mode == model.ModeThroughput {
		s += fmt.Sprintf(", batch %d, concurrency %d", in.BatchSize, in.Concurrency)
	}
	return s
}

func seconds(v float64) string {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return "∞"
	}
	return fmt.Sprintf("%.2fs", v)
}

func tps(v float64) string {
	return fmt.Sprintf("%.1f tok/s", v)
}

func vramLine(out model.EstimateOutput) string {
	v := out.VRAM
	if v == nil || !v.Evaluated {
		return "not checked (unknown gpu or model)"
	}
	verdict := "fits"
	if !v.Fits {
		verdict = "does not fit"
	}
	return fmt.Sprintf("~%.1fGB required, %.1fGB available (%s)", v.RequiredGB, v.AvailableGB, verdict)
}

func printEstimate(w io.Writer, repo dataset.Repository, in model.EstimateInput, out model.EstimateOutput) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "GPU:\t%s\n", gpuName(repo, in.GPUID))
	fmt.Fprintf(tw, "Model:\t%s\n", modelName(repo, in.ModelID))
	fmt.Fprintf(tw, "Workload:\t%s\n", workloadLine(in))
	fmt.Fprintf(tw, "Confidence:\t%s\n", out.Confidence)
	fmt.Fprintf(tw, "TTFT:\t%s\n", seconds(out.TTFTSeconds))
	fmt.Fprintf(tw, "Prefill:\t%s\n", tps(out.PrefillTps))
	fmt.Fprintf(tw, "Decode:\t%s\n", tps(out.DecodeTps))
	fmt.Fprintf(tw, "Total:\t%s\n", seconds(out.TotalSeconds))
	fmt.Fprintf(tw, "VRAM:\t%s\n", vramLine(out))
	fmt.Fprintf(tw, "Rationale:\t%s\n", out.Rationale)
	if c := out.Citation; c != nil {
		fmt.Fprintf(tw, "Source:\t%s %s\n", c.Label, c.URL)
	}
	tw.Flush()
}

func printExplain(w io.Writer, repo dataset.Repository, in model.EstimateInput, out model.EstimateOutput) {
	bpp, kvm, speedup := estimator.PrecisionFactors(in.Precision)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "VRAM (fit check)")
	fmt.Fprintf(w, "  weightsGB  = paramsB × %.2f\n", bpp)
	fmt.Fprintf(w, "  kvGB       = paramsB × (context/4096) × %.2f\n", kvm)
	fmt.Fprintln(w, "  overheadGB = max(2, weightsGB × 0.25)")
	fmt.Fprintln(w, "  requiredGB = weightsGB + kvGB + overheadGB")
	if v := out.VRAM; v != nil && v.Evaluated {
		fmt.Fprintf(w, "  now: %.1f + %.1f + %.1f = %.1fGB of %.1fGB\n",
			v.WeightsGB, v.KVCacheGB, v.OverheadGB, v.RequiredGB, v.AvailableGB)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Speed (decode)")
	fmt.Fprintln(w, "  decodeTps ≈ min(bwScore, tfScore)")
	fmt.Fprintln(w, "              ÷ (paramsB/8)^0.78")
	fmt.Fprintln(w, "              × architectureMultiplier")
	fmt.Fprintf(w, "              × precisionMultiplier (%.2f for %s)\n", speedup, in.Precision)
	if m, ok := repo.Model(in.ModelID); ok {
		fmt.Fprintf(w, "  clamped by size caps: at most %.0f tok/s for %gB parameters\n",
			estimator.MaxReasonableDecodeTps(m.ParamsB), m.ParamsB)
	}
	fmt.Fprintln(w, "  A matching benchmark is used first, then held to the same caps.")

	fmt.Fprintln(w)
	fmt.Fprintln(w, "TTFT + total time")
	fmt.Fprintln(w, "  ttftSeconds  = inputTokens / prefillTps")
	fmt.Fprintln(w, "  genSeconds   = outputTokens / decodeTps")
	fmt.Fprintln(w, "  totalSeconds = ttftSeconds + genSeconds")
	if out.Fits() {
		fmt.Fprintf(w, "  now: %d / %.1f + %d / %.1f = %s\n",
			in.InputTokens, out.PrefillTps, in.OutputTokens, out.DecodeTps, seconds(out.TotalSeconds))
	}
}
