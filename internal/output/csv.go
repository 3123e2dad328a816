/*
PURPOSE:
  Writes sweep results to a CSV file.
  Ensures data integrity by flushing writes immediately.

REQUIREMENTS:
  User-specified:
  - Output to CSV, one row per gpu x model x scenario.

  Implementation-discovered:
  - Infeasible rows have infinite times; they are written as empty cells
    rather than "+Inf" so spreadsheets don't choke.
  - An existing file is rotated aside (see rotate.go), not truncated.

ARCHITECTURE INTEGRATION:
  - Called by: internal/engine
  - Consumes: internal/model.Result

ERROR HANDLING:
  - Returns error on file creation or write failure.

IMPLEMENTATION RULES:
  - Use encoding/csv.
  - Flush() after every write (critical for crash resilience).
  - Use Mutex so one writer can be shared; the sweep runner itself writes
    rows one at a time.

USAGE:
  w, err := output.NewCSVWriter("results.csv")
  w.Write(result)
  w.Close()

RELATED FILES:
  - internal/model/types.go
  - internal/output/rotate.go

MAINTENANCE:
  - Update Header and record() when Result changes.
*/

package output

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/Imtiaj-Sajin/ai-gpu-simulator/internal/model"
)

// Header is the CSV column layout.
var Header = []string{
	"timestamp", "scenario", "gpu_id", "gpu_name", "model_id", "model_name",
	"precision", "mode", "context", "batch_size", "concurrency",
	"input_tokens", "output_tokens",
	"fits", "required_gb", "available_gb",
	"ttft_s", "prefill_tps", "decode_tps", "total_s",
	"confidence", "rationale", "citation",
}

// CSVWriter handles writing results to a CSV file.
type CSVWriter struct {
	file   *os.File
	writer *csv.Writer
	mu     sync.Mutex
}

// NewCSVWriter creates a new CSVWriter. An existing file at path is
// rotated to path.1 first.
func NewCSVWriter(path string) (*CSVWriter, error) {
	if err := Rotate(path); err != nil {
		return nil, err
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}

	w := csv.NewWriter(f)
	if err := w.Write(Header); err != nil {
		f.Close()
		return nil, err
	}
	w.Flush()

	return &CSVWriter{
		file:   f,
		writer: w,
	}, nil
}

// Write writes a single result to the CSV file.
// It is thread-safe.
func (cw *CSVWriter) Write(r model.Result) error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	if err := cw.writer.Write(record(r)); err != nil {
		return err
	}
	cw.writer.Flush()
	return cw.writer.Error()
}

// Close closes the underlying file.
func (cw *CSVWriter) Close() error {
	cw.writer.Flush()
	return cw.file.Close()
}

func record(r model.Result) []string {
	in, out := r.Input, r.Output

	fits, required, available := "true", "", ""
	if out.VRAM != nil {
		fits = strconv.FormatBool(out.VRAM.Fits)
		if out.VRAM.Evaluated {
			required = fmt.Sprintf("%.2f", out.VRAM.RequiredGB)
			available = fmt.Sprintf("%.2f", out.VRAM.AvailableGB)
		}
	}
	citation := ""
	if out.Citation != nil {
		citation = out.Citation.Label
	}

	return []string{
		r.Timestamp.Format(time.RFC3339),
		r.Scenario,
		in.GPUID,
		r.GPUName,
		in.ModelID,
		r.ModelName,
		string(in.Precision),
		string(in.Mode),
		strconv.Itoa(in.Context),
		strconv.Itoa(in.BatchSize),
		strconv.Itoa(in.Concurrency),
		strconv.Itoa(in.InputTokens),
		strconv.Itoa(in.OutputTokens),
		fits,
		required,
		available,
		seconds(out.TTFTSeconds),
		fmt.Sprintf("%.2f", out.PrefillTps),
		fmt.Sprintf("%.2f", out.DecodeTps),
		seconds(out.TotalSeconds),
		string(out.Confidence),
		out.Rationale,
		citation,
	}
}

func seconds(v float64) string {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return ""
	}
	return fmt.Sprintf("%.4f", v)
}
