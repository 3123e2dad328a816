package dataset

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Imtiaj-Sajin/ai-gpu-simulator/internal/model"
)

func TestLoad_Builtin(t *testing.T) {
	c, err := Load()
	require.NoError(t, err)

	assert.Len(t, c.GPUs(), 12)
	assert.Len(t, c.Models(), 12)
	assert.Len(t, c.Benchmarks(), 9)

	g, ok := c.GPU("rtx-4090")
	require.True(t, ok)
	assert.Equal(t, 24.0, g.VRAMGB)
	assert.Equal(t, ArchAda, g.Architecture)
	require.NotNil(t, g.MemoryBandwidthGBs)
	assert.Equal(t, 1008.0, *g.MemoryBandwidthGBs)

	// Optional fields stay absent rather than zero.
	g, ok = c.GPU("rtx-pro-6000-blackwell-48gb")
	require.True(t, ok)
	assert.Nil(t, g.MemoryBandwidthGBs)
	assert.Nil(t, g.FP16Tflops)

	m, ok := c.Model("mixtral-8x7b")
	require.True(t, ok)
	assert.Equal(t, 46.7, m.ParamsB)
	assert.Equal(t, FamilyMistral, m.Family)
}

func TestLoad_BenchmarkOrderIsStable(t *testing.T) {
	c := MustLoad()
	b := c.Benchmarks()
	require.GreaterOrEqual(t, len(b), 3)
	assert.Equal(t, "bench-rtx4090-llama8b-fp16-single", b[0].ID)
	assert.Equal(t, "bench-rtx4090-llama8b-awq-single", b[1].ID)
	assert.Equal(t, "bench-rtx4090-llama8b-gptq-single", b[2].ID)
	assert.Equal(t, model.PrecisionINT4, b[2].Precision)
	require.NotNil(t, b[2].Source)
	assert.Equal(t, "2024-09", b[2].Source.Date)
}

func TestCatalog_UnknownIDs(t *testing.T) {
	c := MustLoad()
	_, ok := c.GPU("tpu-v5")
	assert.False(t, ok)
	_, ok = c.Model("")
	assert.False(t, ok)
}

func TestCatalog_AccessorsReturnCopies(t *testing.T) {
	c := New([]GpuSpec{{ID: "g", VRAMGB: 8}}, nil, nil)
	gpus := c.GPUs()
	gpus[0].VRAMGB = 1000

	g, _ := c.GPU("g")
	assert.Equal(t, 8.0, g.VRAMGB)
}

func TestValidate(t *testing.T) {
	gpus := []GpuSpec{{ID: "g1", VRAMGB: 24}, {ID: "g1", VRAMGB: 16}}
	models := []ModelSpec{{ID: "m1", ParamsB: 8}, {ID: "m2"}}
	benches := []BenchmarkPoint{
		{ID: "ok", GPUID: "g1", ModelID: "m1", Precision: model.PrecisionFP16, Mode: model.ModeSingle, DecodeTps: 10},
		{ID: "dangling", GPUID: "nope", ModelID: "m1", Precision: model.PrecisionFP16, Mode: model.ModeSingle, DecodeTps: 10},
		{ID: "bad", GPUID: "g1", ModelID: "m1", Precision: "fp64", Mode: "batch", DecodeTps: 0},
	}

	err := Validate(New(gpus, models, benches))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDanglingReference))
	assert.True(t, errors.Is(err, ErrDuplicateID))
	assert.True(t, errors.Is(err, ErrInvalidRecord))
	assert.Contains(t, err.Error(), `benchmark "dangling": gpu "nope"`)
	assert.Contains(t, err.Error(), `model "m2"`)
	assert.Contains(t, err.Error(), `unknown precision "fp64"`)
}

func TestLoadFile_MergesByID(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "extra.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
gpus:
  - id: rtx-4090
    name: RTX 4090 (48GB mod)
    tier: consumer
    architecture: Ada
    vram_gb: 48
  - id: l40s
    name: L40S
    tier: datacenter
    architecture: Ada
    vram_gb: 48
    memory_bandwidth_gbs: 864
benchmarks:
  - id: bench-l40s-llama8b
    gpu_id: l40s
    model_id: llama-3-1-8b
    context: 4096
    precision: fp16
    mode: single
    batch_size: 1
    concurrency: 1
    decode_tps: 95
`), 0o644))

	c, err := LoadFile(path)
	require.NoError(t, err)

	gpus := c.GPUs()
	assert.Len(t, gpus, 13)
	assert.Equal(t, "rtx-4090", gpus[2].ID, "replaced records keep their position")
	assert.Equal(t, 48.0, gpus[2].VRAMGB)
	assert.Equal(t, "l40s", gpus[12].ID)

	b := c.Benchmarks()
	assert.Equal(t, "bench-l40s-llama8b", b[len(b)-1].ID)
	assert.Nil(t, b[len(b)-1].PrefillTps)
}

func TestLoadFile_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadFile(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open dataset file")

	typo := filepath.Join(dir, "typo.yaml")
	require.NoError(t, os.WriteFile(typo, []byte("gpus:\n  - id: x\n    vram: 8\n"), 0o644))
	_, err = LoadFile(typo)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse dataset file")

	dangling := filepath.Join(dir, "dangling.yaml")
	require.NoError(t, os.WriteFile(dangling, []byte(`
benchmarks:
  - id: b
    gpu_id: ghost
    model_id: llama-3-1-8b
    precision: fp16
    mode: single
    decode_tps: 1
`), 0o644))
	_, err = LoadFile(dangling)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDanglingReference)
}

func TestFiles(t *testing.T) {
	data, err := os.ReadFile(filepath.Join("data", "gpus.yaml"))
	require.NoError(t, err)

	f, err := Files().Open("gpus.yaml")
	require.NoError(t, err)
	defer f.Close()
	doc, err := Parse(f)
	require.NoError(t, err)
	assert.NotEmpty(t, doc.GPUs)
	assert.True(t, strings.HasPrefix(string(data), "#"))
}

func TestGrouping(t *testing.T) {
	c := MustLoad()
	byTier := GPUsByTier(c)
	assert.Len(t, byTier[TierDatacenter], 3)
	assert.Equal(t, "rtx-a6000", byTier[TierWorkstation][0].ID)

	byFamily := ModelsByFamily(c)
	assert.Len(t, byFamily[FamilyQwen], 4)
	assert.Len(t, byFamily[FamilyDeepSeek], 1)
}

func TestSuggest(t *testing.T) {
	c := MustLoad()

	got := SuggestGPU(c, "rtx4090")
	require.NotEmpty(t, got)
	assert.Equal(t, "rtx-4090", got[0])

	got = SuggestModel(c, "llama-70b")
	require.NotEmpty(t, got)
	assert.Contains(t, got, "llama-3-1-70b")

	assert.Empty(t, SuggestGPU(c, ""))
	assert.LessOrEqual(t, len(SuggestGPU(c, "rtx")), 3)
}

func TestMatch(t *testing.T) {
	c := MustLoad()
	g, _ := c.GPU("h100-sxm")
	assert.True(t, MatchGPU(g, "hopper"))
	assert.True(t, MatchGPU(g, "datacenter"))
	assert.True(t, MatchGPU(g, ""))
	assert.False(t, MatchGPU(g, "blackwell"))

	m, _ := c.Model("qwen-2-5-14b")
	assert.True(t, MatchModel(m, "qwen"))
	assert.False(t, MatchModel(m, "mixtral"))
}
