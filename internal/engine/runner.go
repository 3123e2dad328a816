/*
PURPOSE:
  High-level runner that orchestrates a sweep.
  Loops through GPUs -> Models -> Scenarios, estimates each combination
  and records the results.

REQUIREMENTS:
  User-specified:
  - Run every scenario against every selected gpu and model.
  - Log results to CSV/JSON, and optionally a Prometheus text file.

  Implementation-discovered:
  - Needs to report progress to CLI.
  - Unknown ids in the gpu/model selection are reported up front; a typo
    should not silently produce an empty sweep.

ARCHITECTURE INTEGRATION:
  - Called by: internal/cli (sweep)
  - Uses: internal/estimator, internal/output, internal/metrics, internal/config

ERROR HANDLING:
  - A writer failure on one row is logged and the sweep continues (resilience).
  - Setup failures (output dir, writers, unknown ids) abort before any work.
  - Context cancellation stops between rows and returns ctx.Err().

IMPLEMENTATION RULES:
  - Iterate GPUs in dataset order, then models, then scenarios, so output
    files are stable across runs.
  - Exclusions are case-insensitive substring matches on gpu and model ids.

USAGE:
  r := engine.New(cfg, est, engine.WithMetrics(rec))
  summary, err := r.Run(ctx)

RELATED FILES:
  - internal/output/csv.go
  - internal/output/json.go
  - internal/metrics/metrics.go

MAINTENANCE:
  - Update iteration logic if parallelism is introduced.
*/

package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"k8s.io/utils/clock"

	"github.com/Imtiaj-Sajin/ai-gpu-simulator/internal/config"
	"github.com/Imtiaj-Sajin/ai-gpu-simulator/internal/dataset"
	"github.com/Imtiaj-Sajin/ai-gpu-simulator/internal/estimator"
	"github.com/Imtiaj-Sajin/ai-gpu-simulator/internal/metrics"
	"github.com/Imtiaj-Sajin/ai-gpu-simulator/internal/model"
	"github.com/Imtiaj-Sajin/ai-gpu-simulator/internal/output"
)

// Job is one row of a sweep.
type Job struct {
	GPU      dataset.GpuSpec
	Model    dataset.ModelSpec
	Scenario config.Scenario
}

// Summary counts what a sweep produced.
type Summary struct {
	Total        int
	ByConfidence map[model.Confidence]int
	Infeasible   int
	WriteErrors  int

	CSVPath     string
	JSONPath    string
	MetricsPath string
}

// Option configures a Runner.
type Option func(*Runner)

// WithMetrics records every estimate into rec.
func WithMetrics(rec *metrics.Recorder) Option {
	return func(r *Runner) { r.rec = rec }
}

// WithClock sets the clock used for result timestamps.
func WithClock(c clock.PassiveClock) Option {
	return func(r *Runner) { r.clock = c }
}

// WithProgress is called after every row with the rows done and the total.
func WithProgress(fn func(done, total int)) Option {
	return func(r *Runner) { r.progress = fn }
}

// Runner executes sweeps.
type Runner struct {
	cfg      *config.Config
	est      *estimator.Estimator
	rec      *metrics.Recorder
	clock    clock.PassiveClock
	progress func(done, total int)
}

// New creates a runner.
func New(cfg *config.Config, est *estimator.Estimator, opts ...Option) *Runner {
	r := &Runner{
		cfg:   cfg,
		est:   est,
		clock: clock.RealClock{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Plan expands the configured selection into jobs.
func (r *Runner) Plan() ([]Job, error) {
	repo := r.est.Repository()
	sw := r.cfg.Sweep

	gpus, err := selectByID(repo.GPUs(), sw.GPUs,
		func(g dataset.GpuSpec) string { return g.ID },
		func(id string) []string { return dataset.SuggestGPU(repo, id) })
	if err != nil {
		return nil, fmt.Errorf("invalid gpu selection: %w", err)
	}
	models, err := selectByID(repo.Models(), sw.Models,
		func(m dataset.ModelSpec) string { return m.ID },
		func(id string) []string { return dataset.SuggestModel(repo, id) })
	if err != nil {
		return nil, fmt.Errorf("invalid model selection: %w", err)
	}

	var jobs []Job
	for _, g := range gpus {
		if ex := excludedBy(g.ID, sw.Exclude); ex != "" {
			output.Logger.Debug("Skipping gpu (excluded)", "gpu", g.ID, "filter", ex)
			continue
		}
		for _, m := range models {
			if ex := excludedBy(m.ID, sw.Exclude); ex != "" {
				output.Logger.Debug("Skipping model (excluded)", "model", m.ID, "filter", ex)
				continue
			}
			for _, s := range sw.Scenarios {
				jobs = append(jobs, Job{GPU: g, Model: m, Scenario: s})
			}
		}
	}
	return jobs, nil
}

// Run executes the sweep and writes its outputs.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	summary := Summary{ByConfidence: map[model.Confidence]int{}}

	jobs, err := r.Plan()
	if err != nil {
		return summary, err
	}
	if len(jobs) == 0 {
		return summary, fmt.Errorf("nothing to sweep: selection and exclusions leave no gpu/model/scenario combinations")
	}

	out := r.cfg.Output
	if err := os.MkdirAll(out.Dir, 0755); err != nil {
		return summary, fmt.Errorf("failed to create output directory %s: %w", out.Dir, err)
	}

	summary.CSVPath = filepath.Join(out.Dir, out.CSVFile)
	csvWriter, err := output.NewCSVWriter(summary.CSVPath)
	if err != nil {
		return summary, fmt.Errorf("failed to init CSV writer at %s: %w", summary.CSVPath, err)
	}
	defer csvWriter.Close()

	summary.JSONPath = filepath.Join(out.Dir, out.JSONFile)
	jsonWriter, err := output.NewJSONWriter(summary.JSONPath)
	if err != nil {
		return summary, fmt.Errorf("failed to init JSON writer at %s: %w", summary.JSONPath, err)
	}
	defer jsonWriter.Close()

	output.Logger.Info("Starting sweep", "rows", len(jobs), "scenarios", len(r.cfg.Sweep.Scenarios))

	for i, job := range jobs {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		res := r.Estimate(job)
		summary.Total++
		summary.ByConfidence[res.Output.Confidence]++
		if !res.Output.Fits() {
			summary.Infeasible++
		}

		output.Logger.Debug("Estimated",
			"gpu", job.GPU.ID,
			"model", job.Model.ID,
			"scenario", job.Scenario.Name,
			"decode_tps", fmt.Sprintf("%.1f", res.Output.DecodeTps),
			"confidence", res.Output.Confidence,
		)

		if err := csvWriter.Write(res); err != nil {
			output.Logger.Error("Failed to write result to CSV", "error", err)
			summary.WriteErrors++
		}
		if err := jsonWriter.Write(res); err != nil {
			output.Logger.Error("Failed to write result to JSON", "error", err)
			summary.WriteErrors++
		}
		if r.progress != nil {
			r.progress(i+1, len(jobs))
		}
	}

	if out.MetricsFile != "" && r.rec != nil {
		summary.MetricsPath = filepath.Join(out.Dir, out.MetricsFile)
		if err := r.rec.WriteTextfile(summary.MetricsPath); err != nil {
			return summary, err
		}
	}

	output.Logger.Info("Sweep complete",
		"rows", summary.Total,
		"infeasible", summary.Infeasible,
		"high", summary.ByConfidence[model.ConfidenceHigh],
		"medium", summary.ByConfidence[model.ConfidenceMedium],
		"low", summary.ByConfidence[model.ConfidenceLow],
		"csv", summary.CSVPath,
		"json_rows", jsonWriter.Rows(),
	)
	return summary, nil
}

// Estimate runs a single job.
func (r *Runner) Estimate(job Job) model.Result {
	in := r.est.Normalize(job.Scenario.Input(job.GPU.ID, job.Model.ID))
	out := r.est.Estimate(in)
	if r.rec != nil {
		r.rec.ObserveEstimate(in, out)
	}
	return model.Result{
		Timestamp: r.clock.Now(),
		GPUName:   job.GPU.Name,
		ModelName: job.Model.Name,
		Scenario:  job.Scenario.Name,
		Input:     in,
		Output:    out,
	}
}

// selectByID keeps items whose id is in want, in dataset order. An empty
// want keeps everything.
func selectByID[T any](items []T, want []string, id func(T) string, suggest func(string) []string) ([]T, error) {
	if len(want) == 0 {
		return items, nil
	}
	var missing []string
	for _, w := range want {
		if slices.ContainsFunc(items, func(it T) bool { return id(it) == w }) {
			continue
		}
		if hints := suggest(w); len(hints) > 0 {
			w = fmt.Sprintf("%s (did you mean %s?)", w, strings.Join(hints, ", "))
		}
		missing = append(missing, w)
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("unknown ids: %s", strings.Join(missing, ", "))
	}
	return slices.DeleteFunc(slices.Clone(items), func(it T) bool {
		return !slices.Contains(want, id(it))
	}), nil
}

func excludedBy(id string, filters []string) string {
	for _, ex := range filters {
		if ex != "" && strings.Contains(strings.ToLower(id), strings.ToLower(ex)) {
			return ex
		}
	}
	return ""
}
