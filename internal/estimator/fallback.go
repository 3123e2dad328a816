/*
PURPOSE:
  Analytical decode and prefill rates for requests no benchmark covers.
  The rate is the lower of a bandwidth score and a compute score, shrunk
  for larger models, then adjusted for architecture, precision and mode.

REQUIREMENTS:
  Implementation-discovered:
  - GPUs missing bandwidth or TFLOPS fall back to mid-range defaults.
  - Context length does not change the decode rate; it only moves VRAM
    and, through prefill, the time to first token.

ARCHITECTURE INTEGRATION:
  - Called by: Estimator.Estimate
  - Uses: calibration.go (precision profiles, decode ceilings)

IMPLEMENTATION RULES:
  - The constants below are calibrated together. Change them as a set.

RELATED FILES:
  - internal/estimator/calibration.go
*/

package estimator

import (
	"math"

	"github.com/Imtiaj-Sajin/ai-gpu-simulator/internal/model"
)

// Calibration points of the analytical model. They keep the simulator's
// outputs in a plausible range and must not be tuned independently.
const (
	defaultBandwidthGBs = 900.0
	defaultFP16Tflops   = 120.0

	// Scores are tokens/sec for the reference model size.
	bandwidthScale   = 75.0
	computeReference = 150.0
	computeScale     = 75.0
	referenceParamsB = 8.0
	sizePenaltyExpo  = 0.78

	batchBoostExpo       = 0.35
	batchBoostCap        = 2.2
	concurrencyBoostExpo = 0.15
	concurrencyBoostCap  = 1.5

	minDecodeTps       = 0.5
	prefillDecodeRatio = 5.5
	minPrefillTps      = 1.0
	maxPrefillTps      = 25_000.0
	baselinePrefillTps = 200.0
	baselineDecodeTps  = 20.0
)

const (
	specRationale     = "Estimated conservatively from GPU bandwidth/compute, model size, precision, and workload mode (capped to avoid unrealistic outputs)."
	baselineRationale = "Missing GPU or model spec; using a fixed baseline of 20 tok/s decode and 200 tok/s prefill."
)

// SpecEstimate is the analytical fallback's result.
type SpecEstimate struct {
	PrefillTps float64
	DecodeTps  float64
	Rationale  string
}

// EstimateFromSpecs derives throughput from GPU and model specs alone.
//
// Decode speed is the smaller of a bandwidth ceiling and a compute ceiling,
// divided by a sub-linear model size penalty, then adjusted for architecture,
// precision and (in throughput mode) batching and concurrency. The result is
// clamped to MaxReasonableDecodeTps. Prefill is a fixed multiple of decode.
// Unknown ids yield a fixed baseline instead of failing.
func (e *Estimator) EstimateFromSpecs(in model.EstimateInput) SpecEstimate {
	gpu, ok := e.repo.GPU(in.GPUID)
	if !ok {
		return SpecEstimate{PrefillTps: baselinePrefillTps, DecodeTps: baselineDecodeTps, Rationale: baselineRationale}
	}
	spec, ok := e.repo.Model(in.ModelID)
	if !ok {
		return SpecEstimate{PrefillTps: baselinePrefillTps, DecodeTps: baselineDecodeTps, Rationale: baselineRationale}
	}

	bw := defaultBandwidthGBs
	if gpu.MemoryBandwidthGBs != nil {
		bw = *gpu.MemoryBandwidthGBs
	}
	tf := defaultFP16Tflops
	if gpu.FP16Tflops != nil {
		tf = *gpu.FP16Tflops
	}

	bandwidthScore := bw / 1000 * bandwidthScale
	computeScore := math.Sqrt(tf/computeReference) * computeScale
	speed := math.Min(bandwidthScore, computeScore)

	speed /= math.Pow(spec.ParamsB/referenceParamsB, sizePenaltyExpo)
	speed *= archMultiplier(gpu.Architecture)
	speed *= profileFor(in.Precision).speedup

	if in.Mode == model.ModeThroughput {
		speed *= math.Min(math.Pow(math.Max(1, float64(in.BatchSize)), batchBoostExpo), batchBoostCap)
		speed *= math.Min(math.Pow(math.Max(1, float64(in.Concurrency)), concurrencyBoostExpo), concurrencyBoostCap)
	}

	decode := clamp(speed, minDecodeTps, MaxReasonableDecodeTps(spec.ParamsB))
	return SpecEstimate{
		DecodeTps:  decode,
		PrefillTps: clamp(decode*prefillDecodeRatio, minPrefillTps, maxPrefillTps),
		Rationale:  specRationale,
	}
}
