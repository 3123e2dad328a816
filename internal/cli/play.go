/*
PURPOSE:
  Defines the 'play' subcommand.
  Plays an estimate back in (optionally scaled) real time: a pause for the
  time to first token, then output at the estimated decode rate.

REQUIREMENTS:
  User-specified:
  - Same workload flags as 'estimate'.
  - A progress bar by default, streamed filler words with --text.
  - Ctrl-C stops the run and reports how far it got.

  Implementation-discovered:
  - Infeasible estimates cannot be played; the error carries the rationale
    so the user sees why.
  - The bar goes to stderr so --text output on stdout stays clean.

ARCHITECTURE INTEGRATION:
  - Calls: internal/playback, internal/estimator
  - Uses: internal/metrics (playback counters, optional textfile)

ERROR HANDLING:
  - Returns playback.ErrNotRunnable (wrapped) for estimates that cannot stream.
  - A failed metrics write is returned after the run completes.

IMPLEMENTATION RULES:
  - Tick and speed default to the config's playback block.

USAGE:
  gpu-sim play --model qwen-2-5-14b --precision int4 --speed 4 --text

RELATED FILES:
  - internal/playback/simulator.go
  - internal/cli/estimate.go
*/

package cli

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"path/filepath"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/Imtiaj-Sajin/ai-gpu-simulator/internal/config"
	"github.com/Imtiaj-Sajin/ai-gpu-simulator/internal/metrics"
	"github.com/Imtiaj-Sajin/ai-gpu-simulator/internal/model"
	"github.com/Imtiaj-Sajin/ai-gpu-simulator/internal/output"
	"github.com/Imtiaj-Sajin/ai-gpu-simulator/internal/playback"
)

// Playback outcomes recorded in metrics.
const (
	runFinished = "finished"
	runStopped  = "stopped"
)

// playFlags are the playback knobs shared by play and compare --play.
type playFlags struct {
	tick  time.Duration
	speed float64
	text  bool
}

func (p *playFlags) register(cmd *cobra.Command, withText bool) {
	d := config.DefaultConfig().Playback
	cmd.Flags().DurationVar(&p.tick, "tick", d.Tick, "interval between streaming updates")
	cmd.Flags().Float64Var(&p.speed, "speed", d.Speed, "playback speed factor (2 plays twice as fast)")
	if withText {
		cmd.Flags().BoolVar(&p.text, "text", false, "stream filler words instead of a progress bar")
	}
}

// options resolves tick and speed against the config's playback block.
func (p *playFlags) options(cmd *cobra.Command, a *app) []playback.Option {
	tick, speed := a.cfg.Playback.Tick, a.cfg.Playback.Speed
	if cmd.Flags().Changed("tick") {
		tick = p.tick
	}
	if cmd.Flags().Changed("speed") {
		speed = p.speed
	}
	return []playback.Option{playback.WithTick(tick), playback.WithSpeed(speed)}
}

func newPlayCmd(a *app) *cobra.Command {
	var (
		w  workloadFlags
		pf playFlags
	)

	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play an estimate back in real time",
		Long: `Estimates a configuration and plays it back: a pause for the time to first
token, then output streamed at the estimated decode rate. Use --speed to
play faster or slower, and --text to watch filler words stream instead of
a progress bar. Ctrl-C stops the run.`,
		Example: `  # Feel the latency of a 70B model on a workstation card
  gpu-sim play --gpu rtx-a6000 --model llama-3-1-70b --precision int4

  # Stream text at four times the estimated speed
  gpu-sim play --speed 4 --text`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			est, in, out, err := a.resolve(cmd, &w)
			if err != nil {
				return err
			}
			if !out.Runnable() {
				return fmt.Errorf("%w: %s", playback.ErrNotRunnable, out.Rationale)
			}

			sim := playback.New(pf.options(cmd, a)...)
			var bar *progressbar.ProgressBar
			if pf.text {
				tr := playback.NewTranscript(rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())), cmd.OutOrStdout())
				sim.Subscribe(tr.Observe)
			} else {
				bar = newPlaybackBar(cmd.ErrOrStderr(), in.OutputTokens)
				sim.Subscribe(func(u playback.Update) {
					bar.Describe(string(u.State))
					if u.Delta > 0 {
						_ = bar.Set(u.Emitted)
					}
				})
			}

			output.Logger.Info("Playing estimate",
				"gpu", in.GPUID,
				"model", in.ModelID,
				"ttft", seconds(out.TTFTSeconds),
				"decode_tps", fmt.Sprintf("%.1f", out.DecodeTps),
				"confidence", out.Confidence,
			)

			ctx := cmd.Context()
			if err := sim.Start(ctx, playback.ParamsFrom(out, in.OutputTokens)); err != nil {
				return err
			}
			// A cancelled ctx ends the run on its own; wait for it to settle.
			if err := sim.Wait(context.Background()); err != nil {
				return err
			}
			if bar != nil {
				_ = bar.Finish()
			}

			st := sim.Status()
			outcome := runFinished
			if st.Emitted < st.Total {
				outcome = runStopped
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\n%s: %d/%d tokens, %.0f%% (%s at %s, ttft %s)\n",
				outcome, st.Emitted, st.Total, 100*st.Progress(), gpuName(est.Repository(), in.GPUID), tps(out.DecodeTps), seconds(out.TTFTSeconds))

			return a.recordPlayback(in, out, outcome, st.Emitted)
		},
	}

	w.register(cmd, true)
	pf.register(cmd, true)
	return cmd
}

func newPlaybackBar(w io.Writer, total int) *progressbar.ProgressBar {
	return progressbar.NewOptions(
		total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(string(playback.StatePrefill)),
		progressbar.OptionShowCount(),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionClearOnFinish(),
	)
}

// recordPlayback writes playback metrics when a metrics file is configured.
func (a *app) recordPlayback(in model.EstimateInput, out model.EstimateOutput, outcome string, emitted int) error {
	if a.cfg.Output.MetricsFile == "" {
		return nil
	}
	rec, err := metrics.NewRecorder()
	if err != nil {
		return err
	}
	rec.ObserveEstimate(in, out)
	rec.ObservePlayback(outcome, emitted)

	if err := os.MkdirAll(a.cfg.Output.Dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory %s: %w", a.cfg.Output.Dir, err)
	}
	path := filepath.Join(a.cfg.Output.Dir, a.cfg.Output.MetricsFile)
	if err := rec.WriteTextfile(path); err != nil {
		return err
	}
	output.Logger.Debug("Wrote playback metrics", "file", path)
	return nil
}
