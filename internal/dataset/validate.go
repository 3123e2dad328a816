package dataset

import (
	"errors"
	"fmt"

	"github.com/Imtiaj-Sajin/ai-gpu-simulator/internal/model"
)

var (
	// ErrDanglingReference marks a benchmark whose gpu or model id does not resolve.
	ErrDanglingReference = errors.New("dangling reference")
	// ErrDuplicateID marks two records of the same collection sharing an id.
	ErrDuplicateID = errors.New("duplicate id")
	// ErrInvalidRecord marks a record with a missing or out-of-range field.
	ErrInvalidRecord = errors.New("invalid record")
)

// Validate checks dataset integrity and returns every problem found, joined.
// These are authoring bugs: the estimator itself tolerates them by skipping
// unresolvable benchmark points.
func Validate(repo Repository) error {
	var errs []error

	seen := map[string]bool{}
	for _, g := range repo.GPUs() {
		if seen[g.ID] {
			errs = append(errs, fmt.Errorf("gpu %q: %w", g.ID, ErrDuplicateID))
		}
		seen[g.ID] = true
		if g.ID == "" || g.VRAMGB <= 0 {
			errs = append(errs, fmt.Errorf("gpu %q: id and positive vram_gb required: %w", g.ID, ErrInvalidRecord))
		}
		if (g.MemoryBandwidthGBs != nil && *g.MemoryBandwidthGBs <= 0) || (g.FP16Tflops != nil && *g.FP16Tflops <= 0) {
			errs = append(errs, fmt.Errorf("gpu %q: bandwidth and tflops must be positive when set: %w", g.ID, ErrInvalidRecord))
		}
	}

	seen = map[string]bool{}
	for _, m := range repo.Models() {
		if seen[m.ID] {
			errs = append(errs, fmt.Errorf("model %q: %w", m.ID, ErrDuplicateID))
		}
		seen[m.ID] = true
		if m.ID == "" || m.ParamsB <= 0 {
			errs = append(errs, fmt.Errorf("model %q: id and positive params_b required: %w", m.ID, ErrInvalidRecord))
		}
	}

	seen = map[string]bool{}
	for _, b := range repo.Benchmarks() {
		if seen[b.ID] {
			errs = append(errs, fmt.Errorf("benchmark %q: %w", b.ID, ErrDuplicateID))
		}
		seen[b.ID] = true
		if _, ok := repo.GPU(b.GPUID); !ok {
			errs = append(errs, fmt.Errorf("benchmark %q: gpu %q: %w", b.ID, b.GPUID, ErrDanglingReference))
		}
		if _, ok := repo.Model(b.ModelID); !ok {
			errs = append(errs, fmt.Errorf("benchmark %q: model %q: %w", b.ID, b.ModelID, ErrDanglingReference))
		}
		if b.DecodeTps <= 0 || (b.PrefillTps != nil && *b.PrefillTps <= 0) {
			errs = append(errs, fmt.Errorf("benchmark %q: throughputs must be positive: %w", b.ID, ErrInvalidRecord))
		}
		if _, ok := model.ParsePrecision(string(b.Precision)); !ok {
			errs = append(errs, fmt.Errorf("benchmark %q: unknown precision %q: %w", b.ID, b.Precision, ErrInvalidRecord))
		}
		if _, ok := model.ParseMode(string(b.Mode)); !ok {
			errs = append(errs, fmt.Errorf("benchmark %q: unknown mode %q: %w", b.ID, b.Mode, ErrInvalidRecord))
		}
	}

	return errors.Join(errs...)
}
