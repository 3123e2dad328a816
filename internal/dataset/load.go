/*
PURPOSE:
  Loads the dataset from the YAML files embedded in the binary, optionally
  extended by a user-supplied YAML file with the same schema.

REQUIREMENTS:
  User-specified:
  - Static data, loaded once at start, available synchronously.

  Implementation-discovered:
  - An override file is merged by id: records with a known id replace the
    embedded record in place, new records are appended. This keeps the
    embedded order (and with it the matcher's tie-breaking) stable.
  - yaml.v3 KnownFields catches typos in hand-written override files.

ARCHITECTURE INTEGRATION:
  - Called by: internal/cli (root command setup), tests
  - Dependencies: gopkg.in/yaml.v3, embed

ERROR HANDLING:
  - Parse errors are wrapped with the offending file name.
  - Load / LoadFile validate and return the joined integrity errors.

USAGE:
  repo, err := dataset.Load()
  repo, err := dataset.LoadFile("my_gpus.yaml")
*/

package dataset

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed data/*.yaml
var embedded embed.FS

// embeddedFiles is the load order of the built-in dataset.
var embeddedFiles = []string{"data/gpus.yaml", "data/models.yaml", "data/benchmarks.yaml"}

// Document is the on-disk schema. Each file may carry any subset of the collections.
type Document struct {
	GPUs       []GpuSpec        `yaml:"gpus,omitempty"`
	Models     []ModelSpec      `yaml:"models,omitempty"`
	Benchmarks []BenchmarkPoint `yaml:"benchmarks,omitempty"`
}

// Files exposes the embedded dataset files, rooted at "data".
func Files() fs.FS {
	sub, err := fs.Sub(embedded, "data")
	if err != nil {
		// Only reachable if the embed pattern above is changed.
		panic(err)
	}
	return sub
}

// Parse decodes one YAML document.
func Parse(r io.Reader) (Document, error) {
	var doc Document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return Document{}, err
	}
	return doc, nil
}

// Builtin returns the embedded dataset as a single document.
func Builtin() (Document, error) {
	var all Document
	for _, name := range embeddedFiles {
		data, err := embedded.ReadFile(name)
		if err != nil {
			return Document{}, fmt.Errorf("failed to read embedded %s: %w", name, err)
		}
		doc, err := Parse(bytes.NewReader(data))
		if err != nil {
			return Document{}, fmt.Errorf("failed to parse embedded %s: %w", name, err)
		}
		all = Merge(all, doc)
	}
	return all, nil
}

// Merge overlays b onto a by id.
func Merge(a, b Document) Document {
	return Document{
		GPUs:       mergeByID(a.GPUs, b.GPUs, func(g GpuSpec) string { return g.ID }),
		Models:     mergeByID(a.Models, b.Models, func(m ModelSpec) string { return m.ID }),
		Benchmarks: mergeByID(a.Benchmarks, b.Benchmarks, func(p BenchmarkPoint) string { return p.ID }),
	}
}

func mergeByID[T any](base, overlay []T, id func(T) string) []T {
	out := append([]T(nil), base...)
	pos := make(map[string]int, len(out))
	for i, v := range out {
		pos[id(v)] = i
	}
	for _, v := range overlay {
		if i, ok := pos[id(v)]; ok {
			out[i] = v
			continue
		}
		pos[id(v)] = len(out)
		out = append(out, v)
	}
	return out
}

// Catalog builds a catalog from the document.
func (d Document) Catalog() *Catalog {
	return New(d.GPUs, d.Models, d.Benchmarks)
}

// Load returns the validated built-in dataset.
func Load() (*Catalog, error) {
	doc, err := Builtin()
	if err != nil {
		return nil, err
	}
	c := doc.Catalog()
	if err := Validate(c); err != nil {
		return nil, fmt.Errorf("built-in dataset is invalid: %w", err)
	}
	return c, nil
}

// LoadFile returns the built-in dataset extended by the file at path.
// An empty path is the same as Load.
func LoadFile(path string) (*Catalog, error) {
	if path == "" {
		return Load()
	}
	base, err := Builtin()
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset file %s: %w", path, err)
	}
	defer f.Close()

	extra, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse dataset file %s: %w", path, err)
	}
	c := Merge(base, extra).Catalog()
	if err := Validate(c); err != nil {
		return nil, fmt.Errorf("dataset file %s is invalid: %w", path, err)
	}
	return c, nil
}

// MustLoad is Load for package initialization and tests.
func MustLoad() *Catalog {
	c, err := Load()
	if err != nil {
		panic(err)
	}
	return c
}
