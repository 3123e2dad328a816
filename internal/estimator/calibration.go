/*
PURPOSE:
  Per-precision constants and the plausibility ceilings every estimate is
  clamped to.

ARCHITECTURE INTEGRATION:
  - Used by: feasibility.go, fallback.go, estimator.go

MAINTENANCE:
  - Adding a precision means a new profile here and in model.Precisions.
*/

package estimator

import (
	"github.com/Imtiaj-Sajin/ai-gpu-simulator/internal/dataset"
	"github.com/Imtiaj-Sajin/ai-gpu-simulator/internal/model"
)

// precisionProfile holds the per-precision constants used by the memory
// model and the analytical fallback.
type precisionProfile struct {
	bytesPerParam float64 // weight bytes per parameter
	kvMultiplier  float64 // KV-cache GB per B params at the 4096-token reference
	speedup       float64 // decode speedup over fp16
}

var precisionProfiles = map[model.Precision]precisionProfile{
	model.PrecisionFP16: {bytesPerParam: 2.0, kvMultiplier: 0.8, speedup: 1.00},
	model.PrecisionINT8: {bytesPerParam: 1.0, kvMultiplier: 0.6, speedup: 1.35},
	model.PrecisionINT4: {bytesPerParam: 0.5, kvMultiplier: 0.5, speedup: 1.55},
}

func profileFor(p model.Precision) precisionProfile {
	if prof, ok := precisionProfiles[p]; ok {
		return prof
	}
	return precisionProfiles[model.PrecisionFP16]
}

var archMultipliers = map[dataset.Architecture]float64{
	dataset.ArchBlackwell: 1.20,
	dataset.ArchHopper:    1.10,
	dataset.ArchAda:       1.00,
	dataset.ArchAmpere:    0.90,
}

func archMultiplier(a dataset.Architecture) float64 {
	if m, ok := archMultipliers[a]; ok {
		return m
	}
	return 1.0
}

// decodeCap is one step of the size-based decode ceiling.
type decodeCap struct {
	maxParamsB float64
	tps        float64
}

var decodeCaps = []decodeCap{
	{8, 180},
	{15, 90},
	{35, 45},
	{80, 25},
	{130, 14},
}

const largeModelDecodeCap = 8

// prefillCapFactor scales the decode ceiling into the prefill ceiling
// applied to benchmark-derived numbers.
const prefillCapFactor = 6.0

// MaxReasonableDecodeTps is the decode ceiling for a model of paramsB billion
// parameters. Both the benchmark path and the analytical path are held to it.
func MaxReasonableDecodeTps(paramsB float64) float64 {
	for _, c := range decodeCaps {
		if paramsB <= c.maxParamsB {
			return c.tps
		}
	}
	return largeModelDecodeCap
}

func clamp(v, lo, hi float64) float64 {
	return min(hi, max(lo, v))
}

// PrecisionFactors exposes the per-precision constants for display: weight
// bytes per parameter, KV-cache GB per billion parameters at 4096 tokens,
// and the decode speedup over fp16.
func PrecisionFactors(p model.Precision) (bytesPerParam, kvMultiplier, speedup float64) {
	prof := profileFor(p)
	return prof.bytesPerParam, prof.kvMultiplier, prof.speedup
}
