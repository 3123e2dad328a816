/*
PURPOSE:
  Read-only repository over the GPU, model and benchmark collections.

REQUIREMENTS:
  User-specified:
  - All three collections are available synchronously before the first
    estimate.
  - The dataset is injected, so tests can substitute fixtures.

  Implementation-discovered:
  - Lookups by id are hot (every estimate does several), so the catalog
    indexes ids once at construction.
  - Collection order is significant: the matcher breaks ties by dataset
    order, so slices are kept in load order.

ARCHITECTURE INTEGRATION:
  - Used by: internal/estimator, internal/engine, internal/cli
  - Built by: Load / LoadFile / New

ERROR HANDLING:
  - None. Missing ids are reported with the ok flag; integrity problems are
    reported by Validate.

IMPLEMENTATION RULES:
  - Never mutate after construction. Accessors return copies of slices.

RELATED FILES:
  - internal/dataset/load.go
  - internal/dataset/validate.go
*/

package dataset

// Repository is the read-only view of the dataset consumed by the estimator.
type Repository interface {
	GPU(id string) (GpuSpec, bool)
	Model(id string) (ModelSpec, bool)
	GPUs() []GpuSpec
	Models() []ModelSpec
	Benchmarks() []BenchmarkPoint
}

// Catalog is the in-memory Repository. It is safe for concurrent use.
type Catalog struct {
	gpus       []GpuSpec
	models     []ModelSpec
	benchmarks []BenchmarkPoint

	gpuIndex   map[string]int
	modelIndex map[string]int
}

var _ Repository = (*Catalog)(nil)

// New builds a catalog from the given collections. It does not validate;
// use Validate for that. Later duplicates of an id shadow earlier ones in lookups.
func New(gpus []GpuSpec, models []ModelSpec, benchmarks []BenchmarkPoint) *Catalog {
	c := &Catalog{
		gpus:       append([]GpuSpec(nil), gpus...),
		models:     append([]ModelSpec(nil), models...),
		benchmarks: append([]BenchmarkPoint(nil), benchmarks...),
		gpuIndex:   make(map[string]int, len(gpus)),
		modelIndex: make(map[string]int, len(models)),
	}
	for i, g := range c.gpus {
		c.gpuIndex[g.ID] = i
	}
	for i, m := range c.models {
		c.modelIndex[m.ID] = i
	}
	return c
}

// GPU looks up a GPU by id.
func (c *Catalog) GPU(id string) (GpuSpec, bool) {
	i, ok := c.gpuIndex[id]
	if !ok {
		return GpuSpec{}, false
	}
	return c.gpus[i], true
}

// Model looks up a model by id.
func (c *Catalog) Model(id string) (ModelSpec, bool) {
	i, ok := c.modelIndex[id]
	if !ok {
		return ModelSpec{}, false
	}
	return c.models[i], true
}

func (c *Catalog) GPUs() []GpuSpec {
	return append([]GpuSpec(nil), c.gpus...)
}

func (c *Catalog) Models() []ModelSpec {
	return append([]ModelSpec(nil), c.models...)
}

func (c *Catalog) Benchmarks() []BenchmarkPoint {
	return append([]BenchmarkPoint(nil), c.benchmarks...)
}

// GPUsByTier groups GPUs by tier, preserving dataset order within a tier.
func GPUsByTier(repo Repository) map[Tier][]GpuSpec {
	out := make(map[Tier][]GpuSpec)
	for _, g := range repo.GPUs() {
		out[g.Tier] = append(out[g.Tier], g)
	}
	return out
}

// ModelsByFamily groups models by family, preserving dataset order within a family.
func ModelsByFamily(repo Repository) map[Family][]ModelSpec {
	out := make(map[Family][]ModelSpec)
	for _, m := range repo.Models() {
		out[m.Family] = append(out[m.Family], m)
	}
	return out
}
