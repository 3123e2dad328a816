/*
PURPOSE:
  Prometheus metrics for estimates and playback runs, exported as a text
  exposition file (node_exporter textfile collector format) after a sweep
  or a play session.

REQUIREMENTS:
  User-specified:
  - Sweeps can leave a metrics file next to the CSV/JSONL output.

  Implementation-discovered:
  - gpu-sim is a short-lived CLI, so there is no /metrics endpoint; the
    registry is written once with prometheus.WriteToTextfile.
  - The estimator stays pure, so callers record after each Estimate.

ARCHITECTURE INTEGRATION:
  - Called by: internal/engine (sweeps), internal/cli (sweep, play)
  - Dependencies: github.com/prometheus/client_golang

ERROR HANDLING:
  - Registration errors are returned from NewRecorder.

IMPLEMENTATION RULES:
  - Each Recorder owns a private registry so tests don't collide.

USAGE:
  rec, err := metrics.NewRecorder()
  rec.ObserveEstimate(in, out)
  rec.WriteTextfile("gpusim.prom")

RELATED FILES:
  - internal/engine/runner.go
*/

package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Imtiaj-Sajin/ai-gpu-simulator/internal/model"
)

const namespace = "gpusim"

// Label names.
const (
	LabelConfidence = "confidence"
	LabelPrecision  = "precision"
	LabelMode       = "mode"
	LabelGPU        = "gpu"
	LabelState      = "state"
)

// Recorder holds the gpu-sim collectors and the registry they live in.
type Recorder struct {
	registry *prometheus.Registry

	estimatesTotal  *prometheus.CounterVec
	infeasibleTotal *prometheus.CounterVec
	decodeTps       *prometheus.HistogramVec
	prefillTps      *prometheus.HistogramVec
	playbackTokens  prometheus.Counter
	playbackRuns    *prometheus.CounterVec
}

// NewRecorder creates a recorder with a fresh registry.
func NewRecorder() (*Recorder, error) {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		estimatesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "estimates_total",
				Help:      "Total number of estimates by confidence, precision and mode",
			},
			[]string{LabelConfidence, LabelPrecision, LabelMode},
		),
		infeasibleTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "infeasible_total",
				Help:      "Total number of estimates rejected by the VRAM check, per GPU",
			},
			[]string{LabelGPU},
		),
		decodeTps: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "decode_tokens_per_second",
				Help:      "Estimated decode throughput of feasible configurations",
				Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
			},
			[]string{LabelConfidence},
		),
		prefillTps: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "prefill_tokens_per_second",
				Help:      "Estimated prefill throughput of feasible configurations",
				Buckets:   prometheus.ExponentialBuckets(10, 2, 12),
			},
			[]string{LabelConfidence},
		),
		playbackTokens: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "playback_tokens_total",
				Help:      "Total number of tokens emitted by playback runs",
			},
		),
		playbackRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "playback_runs_total",
				Help:      "Total number of playback runs by final state",
			},
			[]string{LabelState},
		),
	}

	for name, c := range map[string]prometheus.Collector{
		"estimatesTotal":  r.estimatesTotal,
		"infeasibleTotal": r.infeasibleTotal,
		"decodeTps":       r.decodeTps,
		"prefillTps":      r.prefillTps,
		"playbackTokens":  r.playbackTokens,
		"playbackRuns":    r.playbackRuns,
	} {
		if err := r.registry.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register %s metric: %w", name, err)
		}
	}
	return r, nil
}

// Registry exposes the registry, e.g. for Gather in tests.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// ObserveEstimate records one estimate. in should be the normalized input.
func (r *Recorder) ObserveEstimate(in model.EstimateInput, out model.EstimateOutput) {
	r.estimatesTotal.With(prometheus.Labels{
		LabelConfidence: string(out.Confidence),
		LabelPrecision:  string(in.Precision),
		LabelMode:       string(in.Mode),
	}).Inc()

	if !out.Fits() {
		r.infeasibleTotal.WithLabelValues(in.GPUID).Inc()
		return
	}
	r.decodeTps.WithLabelValues(string(out.Confidence)).Observe(out.DecodeTps)
	r.prefillTps.WithLabelValues(string(out.Confidence)).Observe(out.PrefillTps)
}

// ObservePlayback records a finished or stopped playback run.
func (r *Recorder) ObservePlayback(state string, emitted int) {
	r.playbackRuns.WithLabelValues(state).Inc()
	r.playbackTokens.Add(float64(emitted))
}

// WriteTextfile writes every metric to path in the text exposition format.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}
