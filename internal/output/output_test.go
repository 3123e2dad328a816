package output

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Imtiaj-Sajin/ai-gpu-simulator/internal/model"
)

func sampleResults() []model.Result {
	ts := time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)
	in := model.EstimateInput{
		GPUID: "rtx-4090", ModelID: "llama-3-1-8b", InputTokens: 512, OutputTokens: 256,
		Context: 4096, Precision: model.PrecisionINT4, Mode: model.ModeSingle, BatchSize: 1, Concurrency: 1,
	}
	ok := model.Result{
		Timestamp: ts, GPUName: "NVIDIA GeForce RTX 4090", ModelName: "Llama 3.1 8B", Scenario: "chat", Input: in,
		Output: model.EstimateOutput{
			TTFTSeconds: 0.5, PrefillTps: 1080, DecodeTps: 180, TotalSeconds: 1.9,
			Confidence: model.ConfidenceHigh, Rationale: "Direct benchmark match (with conservative caps).",
			Citation: &model.Citation{Label: "AWQ, 4-bit", URL: "https://example.com"},
			VRAM:     &model.Feasibility{Fits: true, Evaluated: true, RequiredGB: 10, AvailableGB: 24},
		},
	}
	in.ModelID = "llama-3-1-70b"
	in.Precision = model.PrecisionFP16
	bad := model.Result{
		Timestamp: ts, Scenario: "chat", Input: in,
		Output: model.EstimateOutput{
			TTFTSeconds: math.Inf(1), TotalSeconds: math.Inf(1), Confidence: model.ConfidenceLow,
			VRAM: &model.Feasibility{Fits: false, Evaluated: true, RequiredGB: 231, AvailableGB: 24},
		},
	}
	return []model.Result{ok, bad}
}

func TestCSVWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	w, err := NewCSVWriter(path)
	require.NoError(t, err)
	for _, r := range sampleResults() {
		require.NoError(t, w.Write(r))
	}
	require.NoError(t, w.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, Header, rows[0])

	col := func(row []string, name string) string {
		for i, h := range Header {
			if h == name {
				return row[i]
			}
		}
		t.Fatalf("no column %s", name)
		return ""
	}
	assert.Equal(t, "2025-08-01T12:00:00Z", col(rows[1], "timestamp"))
	assert.Equal(t, "int4", col(rows[1], "precision"))
	assert.Equal(t, "180.00", col(rows[1], "decode_tps"))
	assert.Equal(t, "0.5000", col(rows[1], "ttft_s"))
	assert.Equal(t, "AWQ, 4-bit", col(rows[1], "citation"))
	assert.Equal(t, "true", col(rows[1], "fits"))

	assert.Equal(t, "false", col(rows[2], "fits"))
	assert.Equal(t, "231.00", col(rows[2], "required_gb"))
	assert.Empty(t, col(rows[2], "ttft_s"))
	assert.Empty(t, col(rows[2], "total_s"))
}

func TestJSONWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.jsonl")
	w, err := NewJSONWriter(path)
	require.NoError(t, err)
	for _, r := range sampleResults() {
		require.NoError(t, w.Write(r))
	}
	assert.Equal(t, 2, w.Rows())
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var lines []map[string]any
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		var m map[string]any
		require.NoError(t, json.Unmarshal(sc.Bytes(), &m))
		lines = append(lines, m)
	}
	require.Len(t, lines, 2)

	out := lines[1]["output"].(map[string]any)
	assert.Nil(t, out["ttft_seconds"])
	assert.Equal(t, "low", out["confidence"])
	assert.Equal(t, "chat", lines[0]["scenario"])
}

func TestRotate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "results.csv")

	require.NoError(t, Rotate(path), "missing file is fine")

	for _, body := range []string{"first", "second", "third"} {
		require.NoError(t, Rotate(path))
		require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	}

	read := func(p string) string {
		b, err := os.ReadFile(p)
		require.NoError(t, err)
		return string(b)
	}
	assert.Equal(t, "third", read(path))
	assert.Equal(t, "second", read(path+".1"))
	assert.Equal(t, "first", read(path+".2"))
	assert.NoFileExists(t, path+".3")
}

func TestRotate_DropsOldest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.jsonl")
	for i := 0; i <= MaxBackups+2; i++ {
		require.NoError(t, Rotate(path))
		require.NoError(t, os.WriteFile(path, []byte{byte('a' + i)}, 0o644))
	}
	assert.FileExists(t, backupName(path, MaxBackups))
	assert.NoFileExists(t, backupName(path, MaxBackups+1))
}

func TestConfigure(t *testing.T) {
	defer SetLogger(Logger)

	var buf bytes.Buffer
	require.NoError(t, Configure(&buf, "warn", "json"))
	Logger.Info("hidden")
	Logger.Warn("shown", "gpu", "rtx-4090")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "shown", rec["msg"])
	assert.Equal(t, "rtx-4090", rec["gpu"])

	assert.Error(t, Configure(&buf, "loud", "text"))
	assert.Error(t, Configure(&buf, "info", "xml"))
}
