package engine

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	clocktesting "k8s.io/utils/clock/testing"

	"github.com/Imtiaj-Sajin/ai-gpu-simulator/internal/config"
	"github.com/Imtiaj-Sajin/ai-gpu-simulator/internal/dataset"
	"github.com/Imtiaj-Sajin/ai-gpu-simulator/internal/estimator"
	"github.com/Imtiaj-Sajin/ai-gpu-simulator/internal/metrics"
	"github.com/Imtiaj-Sajin/ai-gpu-simulator/internal/model"
)

var sweepTime = time.Date(2025, 9, 1, 8, 30, 0, 0, time.UTC)

func sweepConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Output.Dir = t.TempDir()
	cfg.Sweep.GPUs = []string{"h100-sxm", "rtx-4090"}
	cfg.Sweep.Models = []string{"llama-3-1-8b", "llama-3-1-70b"}
	cfg.Sweep.Exclude = []string{"70B"}
	return cfg
}

func newRunner(t *testing.T, cfg *config.Config, opts ...Option) *Runner {
	t.Helper()
	est := estimator.New(dataset.MustLoad())
	opts = append([]Option{WithClock(clocktesting.NewFakePassiveClock(sweepTime))}, opts...)
	return New(cfg, est, opts...)
}

func TestPlan_SelectionAndExclusions(t *testing.T) {
	r := newRunner(t, sweepConfig(t))
	jobs, err := r.Plan()
	require.NoError(t, err)
	require.Len(t, jobs, 2*4)

	// Dataset order, not selection order.
	assert.Equal(t, "rtx-4090", jobs[0].GPU.ID)
	assert.Equal(t, "h100-sxm", jobs[4].GPU.ID)
	for _, j := range jobs {
		assert.Equal(t, "llama-3-1-8b", j.Model.ID)
	}
	assert.Equal(t, "chat", jobs[0].Scenario.Name)
	assert.Equal(t, "serving", jobs[3].Scenario.Name)
}

func TestPlan_UnknownIDs(t *testing.T) {
	cfg := sweepConfig(t)
	cfg.Sweep.GPUs = []string{"rtx4090"}
	_, err := newRunner(t, cfg).Plan()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid gpu selection")
	assert.Contains(t, err.Error(), "did you mean rtx-4090")

	cfg = sweepConfig(t)
	cfg.Sweep.Models = []string{"no-such-model"}
	_, err = newRunner(t, cfg).Plan()
	assert.ErrorContains(t, err, "invalid model selection")
}

func TestRun_WritesOutputs(t *testing.T) {
	cfg := sweepConfig(t)
	cfg.Output.MetricsFile = "gpusim.prom"
	rec, err := metrics.NewRecorder()
	require.NoError(t, err)

	var calls, lastDone, lastTotal int
	r := newRunner(t, cfg, WithMetrics(rec), WithProgress(func(done, total int) {
		calls++
		lastDone, lastTotal = done, total
	}))

	summary, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 8, summary.Total)
	assert.Equal(t, 3, summary.Infeasible)
	assert.Equal(t, 3, summary.ByConfidence[model.ConfidenceHigh])
	assert.Equal(t, 5, summary.ByConfidence[model.ConfidenceLow])
	assert.Zero(t, summary.WriteErrors)
	assert.Equal(t, 8, calls)
	assert.Equal(t, 8, lastDone)
	assert.Equal(t, 8, lastTotal)

	f, err := os.Open(summary.CSVPath)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 9)
	assert.Equal(t, sweepTime.Format(time.RFC3339), rows[1][0])

	assert.FileExists(t, summary.JSONPath)
	require.FileExists(t, summary.MetricsPath)
	prom, err := os.ReadFile(summary.MetricsPath)
	require.NoError(t, err)
	assert.Contains(t, string(prom), `gpusim_infeasible_total{gpu="rtx-4090"} 3`)
}

func TestRun_RotatesPreviousResults(t *testing.T) {
	cfg := sweepConfig(t)
	r := newRunner(t, cfg)

	_, err := r.Run(context.Background())
	require.NoError(t, err)
	summary, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.FileExists(t, summary.CSVPath+".1")
	assert.FileExists(t, summary.JSONPath+".1")
	assert.NoFileExists(t, filepath.Join(cfg.Output.Dir, "gpusim.prom"))
}

func TestRun_Errors(t *testing.T) {
	cfg := sweepConfig(t)
	cfg.Sweep.Exclude = []string{"llama"}
	_, err := newRunner(t, cfg).Run(context.Background())
	assert.ErrorContains(t, err, "nothing to sweep")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = newRunner(t, sweepConfig(t)).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
