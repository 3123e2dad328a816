/*
PURPOSE:
  VRAM model: weights + KV cache + runtime overhead against the card's
  memory.

ERROR HANDLING:
  - Unknown gpu or model ids are not errors; the result is unevaluated.
*/

package estimator

import (
	"github.com/Imtiaj-Sajin/ai-gpu-simulator/internal/model"
)

const (
	// kvReferenceContext is the context length the KV multipliers are quoted at.
	kvReferenceContext = 4096
	overheadFraction   = 0.25
	minOverheadGB      = 2.0
)

// CheckFeasibility estimates the VRAM a configuration needs and whether the
// GPU holds it. The memory model is deliberately conservative so that it
// warns early. Unknown ids fail open: Fits is true and nothing is evaluated.
func (e *Estimator) CheckFeasibility(gpuID, modelID string, p model.Precision, contextTokens int) model.Feasibility {
	gpu, ok := e.repo.GPU(gpuID)
	if !ok {
		return model.Feasibility{Fits: true}
	}
	spec, ok := e.repo.Model(modelID)
	if !ok {
		return model.Feasibility{Fits: true}
	}

	prof := profileFor(p)
	weights := spec.ParamsB * prof.bytesPerParam
	kv := spec.ParamsB * (float64(contextTokens) / kvReferenceContext) * prof.kvMultiplier
	overhead := max(minOverheadGB, weights*overheadFraction)
	required := weights + kv + overhead

	return model.Feasibility{
		Fits:        required <= gpu.VRAMGB,
		Evaluated:   true,
		RequiredGB:  required,
		AvailableGB: gpu.VRAMGB,
		WeightsGB:   weights,
		KVCacheGB:   kv,
		OverheadGB:  overhead,
	}
}
