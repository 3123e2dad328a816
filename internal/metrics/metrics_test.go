package metrics

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Imtiaj-Sajin/ai-gpu-simulator/internal/model"
)

func TestRecorder_ObserveEstimate(t *testing.T) {
	r, err := NewRecorder()
	require.NoError(t, err)

	in := model.EstimateInput{GPUID: "rtx-4090", Precision: model.PrecisionINT4, Mode: model.ModeSingle}
	r.ObserveEstimate(in, model.EstimateOutput{
		DecodeTps: 180, PrefillTps: 1080, Confidence: model.ConfidenceHigh,
		VRAM: &model.Feasibility{Fits: true, Evaluated: true},
	})
	r.ObserveEstimate(in, model.EstimateOutput{
		TTFTSeconds: math.Inf(1), Confidence: model.ConfidenceLow,
		VRAM: &model.Feasibility{Fits: false, Evaluated: true},
	})
	r.ObservePlayback("done", 256)
	r.ObservePlayback("done", 44)

	families, err := r.Registry().Gather()
	require.NoError(t, err)
	byName := map[string]float64{}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			switch {
			case m.GetCounter() != nil:
				byName[mf.GetName()] += m.GetCounter().GetValue()
			case m.GetHistogram() != nil:
				byName[mf.GetName()] += float64(m.GetHistogram().GetSampleCount())
			}
		}
	}
	assert.Equal(t, 2.0, byName["gpusim_estimates_total"])
	assert.Equal(t, 1.0, byName["gpusim_infeasible_total"])
	assert.Equal(t, 1.0, byName["gpusim_decode_tokens_per_second"])
	assert.Equal(t, 300.0, byName["gpusim_playback_tokens_total"])
	assert.Equal(t, 2.0, byName["gpusim_playback_runs_total"])
}

func TestRecorder_WriteTextfile(t *testing.T) {
	r, err := NewRecorder()
	require.NoError(t, err)
	r.ObserveEstimate(
		model.EstimateInput{GPUID: "h100-sxm", Precision: model.PrecisionFP16, Mode: model.ModeThroughput},
		model.EstimateOutput{DecodeTps: 25, PrefillTps: 150, Confidence: model.ConfidenceMedium},
	)

	path := filepath.Join(t.TempDir(), "gpusim.prom")
	require.NoError(t, r.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, "# TYPE gpusim_estimates_total counter")
	assert.Contains(t, text, `gpusim_estimates_total{confidence="medium",mode="throughput",precision="fp16"} 1`)
	assert.Contains(t, text, "gpusim_decode_tokens_per_second_count")
}
