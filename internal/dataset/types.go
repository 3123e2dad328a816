/*
PURPOSE:
  Record types for the GPU, model and benchmark catalog, with their YAML
  field names.

RELATED FILES:
  - internal/dataset/data/*.yaml
  - internal/dataset/validate.go
*/

package dataset

import "github.com/Imtiaj-Sajin/ai-gpu-simulator/internal/model"

// Tier is the market segment of a GPU.
type Tier string

const (
	TierConsumer    Tier = "consumer"
	TierWorkstation Tier = "workstation"
	TierDatacenter  Tier = "datacenter"
)

// Tiers lists the GPU tiers in display order.
func Tiers() []Tier {
	return []Tier{TierConsumer, TierWorkstation, TierDatacenter}
}

// Architecture is the GPU architecture family.
type Architecture string

const (
	ArchAda       Architecture = "Ada"
	ArchAmpere    Architecture = "Ampere"
	ArchHopper    Architecture = "Hopper"
	ArchBlackwell Architecture = "Blackwell"
	ArchOther     Architecture = "Other"
)

// Family is the model family.
type Family string

const (
	FamilyLlama    Family = "llama"
	FamilyMistral  Family = "mistral"
	FamilyQwen     Family = "qwen"
	FamilyDeepSeek Family = "deepseek"
	FamilyOther    Family = "other"
)

// Families lists the model families in display order.
func Families() []Family {
	return []Family{FamilyLlama, FamilyMistral, FamilyQwen, FamilyDeepSeek, FamilyOther}
}

// Source is a citation for a spec record.
type Source struct {
	Label string `yaml:"label" json:"label"`
	URL   string `yaml:"url" json:"url"`
}

// GpuSpec describes one GPU.
type GpuSpec struct {
	ID                 string       `yaml:"id" json:"id"`
	Name               string       `yaml:"name" json:"name"`
	Tier               Tier         `yaml:"tier" json:"tier"`
	Architecture       Architecture `yaml:"architecture,omitempty" json:"architecture,omitempty"`
	VRAMGB             float64      `yaml:"vram_gb" json:"vram_gb"`
	MemoryBandwidthGBs *float64     `yaml:"memory_bandwidth_gbs,omitempty" json:"memory_bandwidth_gbs,omitempty"`
	FP16Tflops         *float64     `yaml:"fp16_tflops,omitempty" json:"fp16_tflops,omitempty"`
	Notes              string       `yaml:"notes,omitempty" json:"notes,omitempty"`
	Sources            []Source     `yaml:"sources,omitempty" json:"sources,omitempty"`
}

// ModelSpec describes one model.
type ModelSpec struct {
	ID             string   `yaml:"id" json:"id"`
	Name           string   `yaml:"name" json:"name"`
	Family         Family   `yaml:"family" json:"family"`
	ParamsB        float64  `yaml:"params_b" json:"params_b"`
	DefaultContext int      `yaml:"default_context" json:"default_context"`
	Notes          string   `yaml:"notes,omitempty" json:"notes,omitempty"`
	Sources        []Source `yaml:"sources,omitempty" json:"sources,omitempty"`
}

// BenchmarkPoint is an empirical observation. GPUID and ModelID are
// resolved against the catalog at query time.
type BenchmarkPoint struct {
	ID          string          `yaml:"id" json:"id"`
	GPUID       string          `yaml:"gpu_id" json:"gpu_id"`
	ModelID     string          `yaml:"model_id" json:"model_id"`
	Context     int             `yaml:"context" json:"context"`
	Precision   model.Precision `yaml:"precision" json:"precision"`
	Mode        model.Mode      `yaml:"mode" json:"mode"`
	BatchSize   int             `yaml:"batch_size" json:"batch_size"`
	Concurrency int             `yaml:"concurrency" json:"concurrency"`
	PrefillTps  *float64        `yaml:"prefill_tps,omitempty" json:"prefill_tps,omitempty"`
	DecodeTps   float64         `yaml:"decode_tps" json:"decode_tps"`
	Source      *model.Citation `yaml:"source,omitempty" json:"source,omitempty"`
}

// Float returns a pointer to v, for optional spec fields.
func Float(v float64) *float64 {
	return &v
}
