/*
PURPOSE:
  Finds the benchmark datapoint that best stands in for a request.
  An exact class hit (same gpu, model, precision and mode) wins, scored by
  how close its context, batch size and concurrency are. Otherwise a point
  on the same gpu for a nearby model size is scaled by the size ratio.

REQUIREMENTS:
  User-specified:
  - Prefer measured numbers over the analytical model whenever one applies.

  Implementation-discovered:
  - Dataset overrides can leave points that name unknown gpus or models;
    those are skipped rather than matched.
  - Ties keep dataset order.

ARCHITECTURE INTEGRATION:
  - Called by: Estimator.Estimate
  - Uses: dataset.Repository

ERROR HANDLING:
  - None. No match is a nil *Match and the caller falls back.

IMPLEMENTATION RULES:
  - Never modify the slice a Repository returns.

RELATED FILES:
  - internal/estimator/estimator.go
  - internal/estimator/fallback.go
*/

package estimator

import (
	"math"
	"sort"

	"github.com/Imtiaj-Sajin/ai-gpu-simulator/internal/dataset"
	"github.com/Imtiaj-Sajin/ai-gpu-simulator/internal/model"
)

// Similarity weights for exact-class candidates. Context dominates because it
// moves both memory and throughput the most.
const (
	contextWeight     = 0.5
	batchWeight       = 0.25
	concurrencyWeight = 0.25

	contextOctaves   = 4.0  // log2 distance at which context similarity reaches 0
	batchSpan        = 32.0 // batch size distance at which similarity reaches 0
	concurrencySpan  = 64.0 // concurrency distance at which similarity reaches 0
	defaultPointCtx  = 4096
	defaultPointUnit = 1
)

// Cross-model scaling accepts benchmarks whose model size ratio lies strictly
// inside (minScaleRatio, maxScaleRatio).
const (
	minScaleRatio    = 0.3
	maxScaleRatio    = 3.0
	scaleRatioExpo   = 0.65
	exactScaleFactor = 1.0
)

// Match is a benchmark chosen to back an estimate.
type Match struct {
	Point       dataset.BenchmarkPoint
	ScaleFactor float64
	Confidence  model.Confidence
}

// FindBestMatch searches the benchmarks for the request. An exact class
// (gpu, model, precision, mode) match is scored by similarity and returned
// with high confidence. Failing that, the first benchmark on the same gpu and
// precision whose model is within the size ratio window is returned scaled,
// with medium confidence. Family is not considered. Returns nil when neither
// applies. Points whose gpu or model id does not resolve are skipped.
func (e *Estimator) FindBestMatch(in model.EstimateInput) *Match {
	points := e.resolvable()

	var candidates []dataset.BenchmarkPoint
	for _, b := range points {
		if b.GPUID == in.GPUID && b.ModelID == in.ModelID && b.Precision == in.Precision && b.Mode == in.Mode {
			candidates = append(candidates, b)
		}
	}
	if len(candidates) > 0 {
		type scored struct {
			point dataset.BenchmarkPoint
			score float64
		}
		ranked := make([]scored, len(candidates))
		for i, b := range candidates {
			ranked[i] = scored{point: b, score: similarity(b, in)}
		}
		sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })
		return &Match{Point: ranked[0].point, ScaleFactor: exactScaleFactor, Confidence: model.ConfidenceHigh}
	}

	requested, ok := e.repo.Model(in.ModelID)
	if !ok {
		return nil
	}
	for _, b := range points {
		if b.GPUID != in.GPUID || b.Precision != in.Precision {
			continue
		}
		benched, _ := e.repo.Model(b.ModelID)
		ratio := benched.ParamsB / requested.ParamsB
		if ratio > minScaleRatio && ratio < maxScaleRatio {
			return &Match{
				Point:       b,
				ScaleFactor: math.Pow(ratio, scaleRatioExpo),
				Confidence:  model.ConfidenceMedium,
			}
		}
	}
	return nil
}

// resolvable returns the benchmarks whose references resolve, in dataset order.
// It never writes into the repository's slice, which may be shared.
func (e *Estimator) resolvable() []dataset.BenchmarkPoint {
	all := e.repo.Benchmarks()
	out := make([]dataset.BenchmarkPoint, 0, len(all))
	for _, b := range all {
		if _, ok := e.repo.GPU(b.GPUID); !ok {
			continue
		}
		if _, ok := e.repo.Model(b.ModelID); !ok {
			continue
		}
		out = append(out, b)
	}
	return out
}

// similarity scores how close a benchmark's conditions are to the request, in [0, 1].
func similarity(b dataset.BenchmarkPoint, in model.EstimateInput) float64 {
	ctx := float64(orDefault(b.Context, defaultPointCtx))
	bs := float64(orDefault(b.BatchSize, defaultPointUnit))
	cc := float64(orDefault(b.Concurrency, defaultPointUnit))

	ctxScore := 1 - math.Min(1, math.Abs(math.Log2(ctx/math.Max(1, float64(in.Context))))/contextOctaves)
	bsScore := 1 - math.Min(1, math.Abs(bs-float64(in.BatchSize))/batchSpan)
	ccScore := 1 - math.Min(1, math.Abs(cc-float64(in.Concurrency))/concurrencySpan)

	return ctxScore*contextWeight + bsScore*batchWeight + ccScore*concurrencyWeight
}

func orDefault(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}
