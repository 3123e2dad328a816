/*
PURPOSE:
  Defines the configuration structure and loading logic for gpu-sim.
  Adheres to "Config IS Code" philosophy.

REQUIREMENTS:
  User-specified:
  - Default estimate inputs, playback pacing, sweep matrix and output paths
    are configurable.
  - An alternate dataset file can be named in config.

  Implementation-discovered:
  - Needs to support YAML parsing.
  - Needs to support Environment variables overrides (GPUSIM_...), applied
    after the file so CI can tweak a checked-in config.
  - Durations are YAML strings ("60ms"), which yaml.v3 decodes into
    time.Duration directly.

ARCHITECTURE INTEGRATION:
  - Used by: internal/cli, internal/engine
  - Dependencies: gopkg.in/yaml.v3

ERROR HANDLING:
  - Returns explicit error if config file is invalid.
  - A missing default file is not an error; a missing explicit path is.
  - Validate() joins every problem it finds into one error.

IMPLEMENTATION RULES:
  - Config struct tags should support yaml.
  - Defaults should match the estimator's documented defaults
    (rtx-4090, llama-3-1-8b, 512 in, 256 out, 4096 context, fp16, single).

USAGE:
  cfg, err := config.Load("gpusim.yaml")

RELATED FILES:
  - internal/cli/root.go
  - internal/engine/runner.go

MAINTENANCE:
  - Update when adding new tuning parameters.
*/

package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Imtiaj-Sajin/ai-gpu-simulator/internal/model"
)

// DefaultFiles are searched, in order, when no config path is given.
var DefaultFiles = []string{"gpusim.yaml", "gpu-sim.yaml", ".gpusim.yaml"}

// Environment overrides.
const (
	EnvDataset   = "GPUSIM_DATASET"
	EnvOutputDir = "GPUSIM_OUTPUT_DIR"
	EnvLogLevel  = "GPUSIM_LOG_LEVEL"
	EnvLogFormat = "GPUSIM_LOG_FORMAT"
	EnvTick      = "GPUSIM_TICK"
	EnvSpeed     = "GPUSIM_SPEED"
)

// Config represents the full configuration for gpu-sim.
type Config struct {
	// DatasetFile is merged over the embedded dataset when set.
	DatasetFile string         `yaml:"dataset_file"`
	Defaults    Scenario       `yaml:"defaults"`
	Playback    PlaybackConfig `yaml:"playback"`
	Sweep       SweepConfig    `yaml:"sweep"`
	Output      OutputConfig   `yaml:"output"`
	Logging     LoggingConfig  `yaml:"logging"`

	// Source is the file the config was read from, empty for defaults.
	Source string `yaml:"-"`
}

// Scenario is a workload shape: everything in an estimate request except
// the gpu and model.
type Scenario struct {
	Name         string          `yaml:"name,omitempty"`
	GPU          string          `yaml:"gpu,omitempty"`
	Model        string          `yaml:"model,omitempty"`
	InputTokens  int             `yaml:"input_tokens"`
	OutputTokens int             `yaml:"output_tokens"`
	Context      int             `yaml:"context"`
	Precision    model.Precision `yaml:"precision"`
	Mode         model.Mode      `yaml:"mode"`
	BatchSize    int             `yaml:"batch_size"`
	Concurrency  int             `yaml:"concurrency"`
}

// Input builds an estimate request for gpu and model. Single mode forces
// batch size and concurrency to 1.
func (s Scenario) Input(gpuID, modelID string) model.EstimateInput {
	in := model.EstimateInput{
		GPUID:        gpuID,
		ModelID:      modelID,
		InputTokens:  s.InputTokens,
		OutputTokens: s.OutputTokens,
		Context:      s.Context,
		Precision:    s.Precision,
		Mode:         s.Mode,
		BatchSize:    s.BatchSize,
		Concurrency:  s.Concurrency,
	}
	if in.Mode != model.ModeThroughput {
		in.BatchSize = 1
		in.Concurrency = 1
	}
	return in
}

type PlaybackConfig struct {
	Tick  time.Duration `yaml:"tick"`
	Speed float64       `yaml:"speed"`
}

type SweepConfig struct {
	// GPUs and Models restrict the sweep to these ids; empty means all.
	GPUs   []string `yaml:"gpus"`
	Models []string `yaml:"models"`
	// Exclude is a list of strings to filter gpu and model ids (substring match)
	Exclude   []string   `yaml:"exclude"`
	Scenarios []Scenario `yaml:"scenarios"`
}

type OutputConfig struct {
	Dir         string `yaml:"dir"`
	CSVFile     string `yaml:"csv_file"`
	JSONFile    string `yaml:"json_file"`
	MetricsFile string `yaml:"metrics_file"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Defaults: Scenario{
			Name:         "default",
			GPU:          "rtx-4090",
			Model:        "llama-3-1-8b",
			InputTokens:  512,
			OutputTokens: 256,
			Context:      4096,
			Precision:    model.PrecisionFP16,
			Mode:         model.ModeSingle,
			BatchSize:    1,
			Concurrency:  1,
		},
		Playback: PlaybackConfig{
			Tick:  60 * time.Millisecond,
			Speed: 1.0,
		},
		Sweep: SweepConfig{
			Scenarios: []Scenario{
				{Name: "chat", InputTokens: 512, OutputTokens: 256, Context: 4096, Precision: model.PrecisionFP16, Mode: model.ModeSingle, BatchSize: 1, Concurrency: 1},
				{Name: "chat-int4", InputTokens: 512, OutputTokens: 256, Context: 4096, Precision: model.PrecisionINT4, Mode: model.ModeSingle, BatchSize: 1, Concurrency: 1},
				{Name: "long-context", InputTokens: 8192, OutputTokens: 512, Context: 16384, Precision: model.PrecisionINT8, Mode: model.ModeSingle, BatchSize: 1, Concurrency: 1},
				{Name: "serving", InputTokens: 1024, OutputTokens: 256, Context: 4096, Precision: model.PrecisionFP16, Mode: model.ModeThroughput, BatchSize: 16, Concurrency: 16},
			},
		},
		Output: OutputConfig{
			Dir:         ".",
			CSVFile:     "gpusim_results.csv",
			JSONFile:    "gpusim_results.jsonl",
			MetricsFile: "",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads configuration from a file.
// If path is specified, it attempts to load that file.
// If path is empty, it searches for default files in order.
// If no file found, returns default config.
// Environment overrides are applied in every case.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	var data []byte
	var err error

	if path != "" {
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	} else {
		for _, name := range DefaultFiles {
			data, err = os.ReadFile(name)
			if err == nil {
				path = name
				break
			}
		}
	}

	if path != "" {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
		cfg.Source = path
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overlays GPUSIM_* variables read through lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvDataset); ok {
		c.DatasetFile = v
	}
	if v, ok := lookup(EnvOutputDir); ok {
		c.Output.Dir = v
	}
	if v, ok := lookup(EnvLogLevel); ok {
		c.Logging.Level = v
	}
	if v, ok := lookup(EnvLogFormat); ok {
		c.Logging.Format = v
	}
	if v, ok := lookup(EnvTick); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvTick, v, err)
		}
		c.Playback.Tick = d
	}
	if v, ok := lookup(EnvSpeed); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvSpeed, v, err)
		}
		c.Playback.Speed = f
	}
	return nil
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var errs []error
	if c.Playback.Tick <= 0 {
		errs = append(errs, fmt.Errorf("playback.tick must be positive, got %s", c.Playback.Tick))
	}
	if c.Playback.Speed <= 0 {
		errs = append(errs, fmt.Errorf("playback.speed must be positive, got %g", c.Playback.Speed))
	}
	if err := c.Defaults.validate("defaults"); err != nil {
		errs = append(errs, err)
	}
	seen := make(map[string]bool, len(c.Sweep.Scenarios))
	for i, s := range c.Sweep.Scenarios {
		label := fmt.Sprintf("sweep.scenarios[%d]", i)
		if s.Name == "" {
			errs = append(errs, fmt.Errorf("%s: name is required", label))
		} else if seen[s.Name] {
			errs = append(errs, fmt.Errorf("%s: duplicate name %q", label, s.Name))
		}
		seen[s.Name] = true
		if err := s.validate(label); err != nil {
			errs = append(errs, err)
		}
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format))
	}
	return errors.Join(errs...)
}

func (s Scenario) validate(label string) error {
	var errs []error
	if _, ok := model.ParsePrecision(string(s.Precision)); !ok {
		errs = append(errs, fmt.Errorf("%s: unknown precision %q", label, s.Precision))
	}
	if _, ok := model.ParseMode(string(s.Mode)); !ok {
		errs = append(errs, fmt.Errorf("%s: unknown mode %q", label, s.Mode))
	}
	if s.InputTokens < 1 || s.OutputTokens < 1 {
		errs = append(errs, fmt.Errorf("%s: token counts must be at least 1", label))
	}
	if s.Context < 1 {
		errs = append(errs, fmt.Errorf("%s: context must be positive", label))
	}
	return errors.Join(errs...)
}
