/*
PURPOSE:
  Mirrors the sweep CSV as JSON Lines: one model.Result object per line,
  nested the way the estimator returns it (input, output, vram, citation).

REQUIREMENTS:
  User-specified:
  - A machine-readable copy of every sweep row.

  Implementation-discovered:
  - Infeasible rows must stay valid JSON. EstimateOutput's MarshalJSON turns
    the infinite times into null, so nothing is special-cased here.
  - A row that fails to encode must not leave half a line behind, so each
    line is marshalled fully before it touches the file.

ARCHITECTURE INTEGRATION:
  - Called by: internal/engine (one writer per sweep, next to the CSV)

ERROR HANDLING:
  - Encode errors name the gpu and model, write errors the row number.
  - Close reports the sync error before the close error.

USAGE:
  w, err := output.NewJSONWriter("gpusim_results.jsonl")
  w.Write(result)
  w.Close()
*/

package output

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/Imtiaj-Sajin/ai-gpu-simulator/internal/model"
)

// JSONWriter appends sweep results to a JSON Lines file.
type JSONWriter struct {
	mu   sync.Mutex
	f    *os.File
	rows int
}

// NewJSONWriter rotates any existing file at path and opens a fresh one.
func NewJSONWriter(path string) (*JSONWriter, error) {
	if err := Rotate(path); err != nil {
		return nil, err
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return &JSONWriter{f: f}, nil
}

// Write appends r as one line.
func (w *JSONWriter) Write(r model.Result) error {
	line, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode row %s/%s: %w", r.Input.GPUID, r.Input.ModelID, err)
	}
	line = append(line, '\n')

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := w.f.Write(line); err != nil {
		return fmt.Errorf("write row %d: %w", w.rows+1, err)
	}
	w.rows++
	return nil
}

// Rows is the number of lines written so far.
func (w *JSONWriter) Rows() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.rows
}

func (w *JSONWriter) Close() error {
	return errors.Join(w.f.Sync(), w.f.Close())
}
