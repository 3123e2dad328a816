/*
PURPOSE:
  Defines the core data structures shared by the estimator, the playback
  simulator, the sweep runner and the result writers.

REQUIREMENTS:
  User-specified:
  - Requests carry gpu/model ids, token counts, context, precision, mode,
    batch size and concurrency.
  - Responses carry TTFT, prefill/decode throughput, total time, a
    confidence label, a rationale and an optional VRAM summary.

  Implementation-discovered:
  - encoding/json cannot encode +Inf, but infeasible estimates use +Inf
    seconds. EstimateOutput encodes infinite durations as null.
  - Precision and Mode live here (not in dataset) so both the dataset and
    the estimator can share them without an import cycle.

ARCHITECTURE INTEGRATION:
  - Used by: internal/dataset, internal/estimator, internal/playback,
    internal/engine, internal/output, internal/cli

ERROR HANDLING:
  - None (pure data structs).

IMPLEMENTATION RULES:
  - Keep structs simple and public.
  - Values only. An EstimateOutput is recomputed, never mutated.

RELATED FILES:
  - internal/output/csv.go
  - internal/output/json.go

MAINTENANCE:
  - Adding a precision: add the constant here and its profile in
    internal/estimator/calibration.go.
*/

package model

import (
	"encoding/json"
	"math"
	"strings"
	"time"
)

// Precision is the numeric format used for model weights.
type Precision string

const (
	PrecisionFP16 Precision = "fp16"
	PrecisionINT8 Precision = "int8"
	PrecisionINT4 Precision = "int4"
)

// Precisions lists the supported precisions, widest first.
func Precisions() []Precision {
	return []Precision{PrecisionFP16, PrecisionINT8, PrecisionINT4}
}

// ParsePrecision matches s case-insensitively against the supported precisions.
func ParsePrecision(s string) (Precision, bool) {
	p := Precision(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Precisions() {
		if p == known {
			return p, true
		}
	}
	return "", false
}

// Mode is the serving workload mode.
type Mode string

const (
	ModeSingle     Mode = "single"
	ModeThroughput Mode = "throughput"
)

// ParseMode matches s case-insensitively against the supported modes.
func ParseMode(s string) (Mode, bool) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeSingle, ModeThroughput:
		return m, true
	}
	return "", false
}

// Confidence labels how an estimate was produced. It is provenance, not a
// statistical bound.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"   // exact benchmark match
	ConfidenceMedium Confidence = "medium" // benchmark scaled from a nearby model
	ConfidenceLow    Confidence = "low"    // analytical fallback or infeasible
)

// Citation points at the source of a benchmark datapoint.
type Citation struct {
	Label string `json:"label" yaml:"label"`
	URL   string `json:"url" yaml:"url"`
	Date  string `json:"date,omitempty" yaml:"date,omitempty"`
}

// EstimateInput is a single estimation request.
type EstimateInput struct {
	GPUID        string    `json:"gpu_id" yaml:"gpu_id"`
	ModelID      string    `json:"model_id" yaml:"model_id"`
	InputTokens  int       `json:"input_tokens" yaml:"input_tokens"`
	OutputTokens int       `json:"output_tokens" yaml:"output_tokens"`
	Context      int       `json:"context" yaml:"context"`
	Precision    Precision `json:"precision" yaml:"precision"`
	Mode         Mode      `json:"mode" yaml:"mode"`
	BatchSize    int       `json:"batch_size" yaml:"batch_size"`
	Concurrency  int       `json:"concurrency" yaml:"concurrency"`
}

// Feasibility summarizes the VRAM fit check. When Evaluated is false the
// gpu or model was unknown and the size fields are unset.
type Feasibility struct {
	Fits        bool    `json:"fits"`
	Evaluated   bool    `json:"-"`
	RequiredGB  float64 `json:"required_gb,omitempty"`
	AvailableGB float64 `json:"available_gb,omitempty"`

	// Breakdown of RequiredGB.
	WeightsGB  float64 `json:"weights_gb,omitempty"`
	KVCacheGB  float64 `json:"kv_cache_gb,omitempty"`
	OverheadGB float64 `json:"overhead_gb,omitempty"`
}

// EstimateOutput is the result of an estimation.
type EstimateOutput struct {
	TTFTSeconds  float64      `json:"ttft_seconds"`
	PrefillTps   float64      `json:"prefill_tps"`
	DecodeTps    float64      `json:"decode_tps"`
	TotalSeconds float64      `json:"total_seconds"`
	Confidence   Confidence   `json:"confidence"`
	Rationale    string       `json:"rationale"`
	Citation     *Citation    `json:"citation,omitempty"`
	VRAM         *Feasibility `json:"vram,omitempty"`
}

// Fits reports whether the configuration fits in VRAM. Unknown ids fail open.
func (o EstimateOutput) Fits() bool {
	return o.VRAM == nil || o.VRAM.Fits
}

// Runnable reports whether the estimate can drive a playback run.
func (o EstimateOutput) Runnable() bool {
	return o.DecodeTps > 0 && !math.IsInf(o.TTFTSeconds, 0) && !math.IsNaN(o.TTFTSeconds)
}

// MarshalJSON encodes infinite durations as null.
func (o EstimateOutput) MarshalJSON() ([]byte, error) {
	type plain EstimateOutput
	return json.Marshal(struct {
		plain
		TTFTSeconds  *float64 `json:"ttft_seconds"`
		TotalSeconds *float64 `json:"total_seconds"`
	}{
		plain:        plain(o),
		TTFTSeconds:  finite(o.TTFTSeconds),
		TotalSeconds: finite(o.TotalSeconds),
	})
}

func finite(v float64) *float64 {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return nil
	}
	return &v
}

// Result is one row of a sweep: the request, what it resolved to, and the estimate.
type Result struct {
	Timestamp time.Time      `json:"timestamp"`
	GPUName   string         `json:"gpu_name"`
	ModelName string         `json:"model_name"`
	Scenario  string         `json:"scenario"`
	Input     EstimateInput  `json:"input"`
	Output    EstimateOutput `json:"output"`
}
