/*
PURPOSE:
  Defines the 'compare' subcommand.
  Estimates two gpu:model pairs under the same workload and shows them side
  by side, optionally playing both back at once.

REQUIREMENTS:
  User-specified:
  - --a and --b take gpu:model pairs.
  - --play runs two independent simulators concurrently.

  Implementation-discovered:
  - Both sides share the workload flags so the comparison is like for like.
  - A side that cannot stream (infeasible) is reported and skipped by
    --play; the other side still plays.

ARCHITECTURE INTEGRATION:
  - Calls: internal/estimator, internal/playback

ERROR HANDLING:
  - Malformed pairs are rejected before estimating.

USAGE:
  gpu-sim compare --a rtx-4090:llama-3-1-8b --b h100-sxm:llama-3-1-8b --play

RELATED FILES:
  - internal/cli/estimate.go
  - internal/cli/play.go
*/

package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Imtiaj-Sajin/ai-gpu-simulator/internal/dataset"
	"github.com/Imtiaj-Sajin/ai-gpu-simulator/internal/model"
	"github.com/Imtiaj-Sajin/ai-gpu-simulator/internal/output"
	"github.com/Imtiaj-Sajin/ai-gpu-simulator/internal/playback"
)

// side is one column of a comparison.
type side struct {
	label string
	in    model.EstimateInput
	out   model.EstimateOutput
}

// parsePair splits "gpu:model".
func parsePair(s string) (gpuID, modelID string, err error) {
	gpuID, modelID, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || gpuID == "" || modelID == "" {
		return "", "", fmt.Errorf("invalid pair %q, want gpu:model", s)
	}
	return gpuID, modelID, nil
}

func newCompareCmd(a *app) *cobra.Command {
	var (
		w      workloadFlags
		pf     playFlags
		pairA  string
		pairB  string
		doPlay bool
	)

	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Compare two gpu:model configurations side by side",
		Example: `  # Same model, two cards
  gpu-sim compare --a rtx-4090:llama-3-1-8b --b h100-sxm:llama-3-1-8b

  # Quantized 70B vs 8B on one card, played back together
  gpu-sim compare --a rtx-4090:llama-3-1-8b --b rtx-4090:llama-3-1-70b --precision int4 --play`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			est, err := a.estimator()
			if err != nil {
				return err
			}
			s, err := w.scenario(cmd, a.cfg.Defaults)
			if err != nil {
				return err
			}

			var sides []side
			for _, p := range []struct{ label, pair string }{{"A", pairA}, {"B", pairB}} {
				gpuID, modelID, err := parsePair(p.pair)
				if err != nil {
					return fmt.Errorf("--%s: %w", strings.ToLower(p.label), err)
				}
				in := est.Normalize(s.Input(gpuID, modelID))
				warnUnknown(est.Repository(), in)
				sides = append(sides, side{label: p.label, in: in, out: est.Estimate(in)})
			}

			printComparison(cmd.OutOrStdout(), est.Repository(), sides)
			if !doPlay {
				return nil
			}
			return playBoth(cmd.Context(), cmd.ErrOrStderr(), cmd.OutOrStdout(), sides, pf.options(cmd, a))
		},
	}

	cmd.Flags().StringVar(&pairA, "a", "", "first configuration as gpu:model")
	cmd.Flags().StringVar(&pairB, "b", "", "second configuration as gpu:model")
	cmd.Flags().BoolVar(&doPlay, "play", false, "play both estimates back concurrently")
	_ = cmd.MarkFlagRequired("a")
	_ = cmd.MarkFlagRequired("b")
	w.register(cmd, false)
	pf.register(cmd, false)
	return cmd
}

func printComparison(w io.Writer, repo dataset.Repository, sides []side) {
	a, b := sides[0], sides[1]
	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	row := func(name string, f func(s side) string) {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", name, f(a), f(b))
	}
	row("", func(s side) string { return s.label })
	row("GPU", func(s side) string { return gpuName(repo, s.in.GPUID) })
	row("Model", func(s side) string { return modelName(repo, s.in.ModelID) })
	row("Confidence", func(s side) string { return string(s.out.Confidence) })
	row("TTFT", func(s side) string { return seconds(s.out.TTFTSeconds) })
	row("Prefill", func(s side) string { return tps(s.out.PrefillTps) })
	row("Decode", func(s side) string { return tps(s.out.DecodeTps) })
	row("Total", func(s side) string { return seconds(s.out.TotalSeconds) })
	row("VRAM", func(s side) string {
		if v := s.out.VRAM; v != nil && v.Evaluated {
			if !v.Fits {
				return fmt.Sprintf("%.1f/%.1fGB (no fit)", v.RequiredGB, v.AvailableGB)
			}
			return fmt.Sprintf("%.1f/%.1fGB", v.RequiredGB, v.AvailableGB)
		}
		return "n/a"
	})
	tw.Flush()

	fmt.Fprintf(w, "\nWorkload: %s\n", workloadLine(a.in))
	fmt.Fprintln(w, verdict(a, b))
}

// verdict names the faster side by total time.
func verdict(a, b side) string {
	switch {
	case !a.out.Runnable() && !b.out.Runnable():
		return "Neither configuration can run."
	case !b.out.Runnable():
		return "Only A can run."
	case !a.out.Runnable():
		return "Only B can run."
	case a.out.TotalSeconds == b.out.TotalSeconds:
		return "Both finish at the same time."
	}
	fast, slow := a, b
	if b.out.TotalSeconds < a.out.TotalSeconds {
		fast, slow = b, a
	}
	return fmt.Sprintf("%s finishes first: %.1fx faster end to end, %.1fx the decode rate.",
		fast.label, slow.out.TotalSeconds/fast.out.TotalSeconds, fast.out.DecodeTps/slow.out.DecodeTps)
}

// laneView redraws one status line for all lanes on every update.
type laneView struct {
	mu     sync.Mutex
	w      io.Writer
	labels []string
	last   []playback.Update
}

func (v *laneView) observe(i int) func(playback.Update) {
	return func(u playback.Update) {
		v.mu.Lock()
		defer v.mu.Unlock()
		v.last[i] = u
		parts := make([]string, len(v.labels))
		for j, l := range v.labels {
			st := v.last[j]
			if st.State == "" {
				parts[j] = l + ": -"
				continue
			}
			parts[j] = fmt.Sprintf("%s: %s %d/%d", l, st.State, st.Emitted, st.Total)
		}
		fmt.Fprintf(v.w, "\r%s   ", strings.Join(parts, " | "))
	}
}

// playBoth plays every runnable side concurrently and waits for all of them.
func playBoth(ctx context.Context, status, out io.Writer, sides []side, opts []playback.Option) error {
	view := &laneView{w: status}
	var sims []*playback.Simulator
	for _, s := range sides {
		if !s.out.Runnable() {
			output.Logger.Warn("Skipping playback", "side", s.label, "reason", s.out.Rationale)
			continue
		}
		sim := playback.New(opts...)
		sim.Subscribe(view.observe(len(view.labels)))
		view.labels = append(view.labels, s.label)
		view.last = append(view.last, playback.Update{})
		sims = append(sims, sim)
	}
	if len(sims) == 0 {
		return fmt.Errorf("%w: neither configuration fits", playback.ErrNotRunnable)
	}

	j := 0
	for _, s := range sides {
		if !s.out.Runnable() {
			continue
		}
		if err := sims[j].Start(ctx, playback.ParamsFrom(s.out, s.in.OutputTokens)); err != nil {
			return err
		}
		j++
	}
	for _, sim := range sims {
		if err := sim.Wait(context.Background()); err != nil {
			return err
		}
	}
	fmt.Fprintln(status)

	for i, sim := range sims {
		st := sim.Status()
		fmt.Fprintf(out, "%s: %d/%d tokens\n", view.labels[i], st.Emitted, st.Total)
	}
	return nil
}
