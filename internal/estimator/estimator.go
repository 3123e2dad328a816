/*
PURPOSE:
  The estimation engine: turns an EstimateInput into an EstimateOutput by
  combining a VRAM fit check, benchmark lookup and an analytical fallback.

REQUIREMENTS:
  User-specified:
  - Pure and deterministic for a given dataset.
  - Never fails on unknown ids or malformed numbers; every outcome is data
    (confidence, infinite times, rationale).
  - Benchmarks are held to the same decode ceiling as the analytical path.

  Implementation-discovered:
  - The clamp range for context follows the dataset: at least 32768, or the
    largest benchmarked context up to 131072.
  - Batch size and concurrency are clamped too, so a zero or negative value
    cannot skew benchmark similarity scores.

ARCHITECTURE INTEGRATION:
  - Called by: internal/engine (sweeps), internal/cli (estimate, play, compare)
  - Depends on: internal/dataset (Repository), internal/model

ERROR HANDLING:
  - No error returns. Division by zero is guarded even though both sources
    guarantee decode >= 0.5 tok/s.

IMPLEMENTATION RULES:
  - No logging, no metrics, no clocks in this package. Callers record.

USAGE:
  est := estimator.New(repo)
  out := est.Estimate(model.EstimateInput{GPUID: "rtx-4090", ...})

RELATED FILES:
  - internal/estimator/feasibility.go
  - internal/estimator/matcher.go
  - internal/estimator/fallback.go
*/

package estimator

import (
	"fmt"
	"math"

	"github.com/Imtiaj-Sajin/ai-gpu-simulator/internal/dataset"
	"github.com/Imtiaj-Sajin/ai-gpu-simulator/internal/model"
)

// Input bounds applied by Normalize.
const (
	MinTokens          = 1
	MaxTokens          = 2_000_000
	MinContext         = 1024
	BaseMaxContext     = 32768
	CeilingMaxContext  = 131072
	MaxBatchSize       = 256
	MaxConcurrency     = 1024
	missingPrefillMult = 7.0
)

const (
	exactRationale  = "Direct benchmark match (with conservative caps)."
	scaledRationale = "Scaled from nearby benchmark data (with conservative caps)."
)

// Estimator estimates inference performance over a read-only dataset.
// It holds no mutable state and is safe for concurrent use.
type Estimator struct {
	repo       dataset.Repository
	maxContext int
}

// New creates an Estimator over repo.
func New(repo dataset.Repository) *Estimator {
	maxCtx := BaseMaxContext
	for _, b := range repo.Benchmarks() {
		maxCtx = max(maxCtx, b.Context)
	}
	return &Estimator{
		repo:       repo,
		maxContext: min(maxCtx, CeilingMaxContext),
	}
}

// Repository returns the dataset the estimator reads.
func (e *Estimator) Repository() dataset.Repository {
	return e.repo
}

// MaxContext is the upper bound Normalize clamps context to.
func (e *Estimator) MaxContext() int {
	return e.maxContext
}

// Normalize clamps numeric fields to sane bounds and replaces unknown
// precision and mode values with fp16 and single.
func (e *Estimator) Normalize(in model.EstimateInput) model.EstimateInput {
	in.InputTokens = clampInt(in.InputTokens, MinTokens, MaxTokens)
	in.OutputTokens = clampInt(in.OutputTokens, MinTokens, MaxTokens)
	in.Context = clampInt(in.Context, MinContext, e.maxContext)
	in.BatchSize = clampInt(in.BatchSize, 1, MaxBatchSize)
	in.Concurrency = clampInt(in.Concurrency, 1, MaxConcurrency)
	if p, ok := model.ParsePrecision(string(in.Precision)); ok {
		in.Precision = p
	} else {
		in.Precision = model.PrecisionFP16
	}
	if m, ok := model.ParseMode(string(in.Mode)); ok {
		in.Mode = m
	} else {
		in.Mode = model.ModeSingle
	}
	return in
}

// Estimate produces the estimate for in.
//
// An infeasible configuration short-circuits with zero throughput and
// infinite times. Otherwise the best benchmark match is used (capped), and
// the analytical fallback covers everything else with low confidence.
func (e *Estimator) Estimate(in model.EstimateInput) model.EstimateOutput {
	in = e.Normalize(in)

	vram := e.CheckFeasibility(in.GPUID, in.ModelID, in.Precision, in.Context)
	if !vram.Fits {
		return model.EstimateOutput{
			TTFTSeconds:  math.Inf(1),
			PrefillTps:   0,
			DecodeTps:    0,
			TotalSeconds: math.Inf(1),
			Confidence:   model.ConfidenceLow,
			Rationale: fmt.Sprintf("Model does not fit in VRAM (~%.1fGB required, %.1fGB available). Try quantization or a larger VRAM GPU.",
				vram.RequiredGB, vram.AvailableGB),
			VRAM: &vram,
		}
	}

	if m := e.FindBestMatch(in); m != nil {
		decode := m.Point.DecodeTps * m.ScaleFactor
		prefill := decode * missingPrefillMult
		if m.Point.PrefillTps != nil {
			prefill = *m.Point.PrefillTps
		}
		if spec, ok := e.repo.Model(in.ModelID); ok {
			ceiling := MaxReasonableDecodeTps(spec.ParamsB)
			decode = math.Min(decode, ceiling)
			prefill = math.Min(prefill, ceiling*prefillCapFactor)
		}

		rationale := exactRationale
		if m.Confidence != model.ConfidenceHigh {
			rationale = scaledRationale
		}
		out := timed(in, prefill, decode)
		out.Confidence = m.Confidence
		out.Rationale = rationale
		out.Citation = m.Point.Source
		out.VRAM = &vram
		return out
	}

	spec := e.EstimateFromSpecs(in)
	out := timed(in, spec.PrefillTps, spec.DecodeTps)
	out.Confidence = model.ConfidenceLow
	out.Rationale = spec.Rationale
	out.VRAM = &vram
	return out
}

// timed fills throughputs and derived times.
func timed(in model.EstimateInput, prefill, decode float64) model.EstimateOutput {
	ttft := safeDiv(float64(in.InputTokens), prefill)
	return model.EstimateOutput{
		TTFTSeconds:  ttft,
		PrefillTps:   prefill,
		DecodeTps:    decode,
		TotalSeconds: ttft + safeDiv(float64(in.OutputTokens), decode),
	}
}

func safeDiv(n, d float64) float64 {
	if d <= 0 {
		return math.Inf(1)
	}
	return n / d
}

func clampInt(v, lo, hi int) int {
	return min(hi, max(lo, v))
}
