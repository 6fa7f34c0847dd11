package postprocessors

import (
	"fmt"
	"sort"

	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// BuilderFunc creates a PostProcessor from generic config, usually a TOML
// table flattened into a map.
type BuilderFunc func(cfg map[string]any) (driven.PostProcessor, error)

// Stage names one pipeline step and its config.
type Stage struct {
	Name   string
	Config map[string]any
}

// Registry maps processor names to their builders.
type Registry struct {
	builders map[string]BuilderFunc
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		builders: make(map[string]BuilderFunc),
	}
}

// Register adds a builder. The name should match the processor's Name().
func (r *Registry) Register(name string, builder BuilderFunc) {
	r.builders[name] = builder
}

// Build creates one processor by name.
func (r *Registry) Build(name string, cfg map[string]any) (driven.PostProcessor, error) {
	builder, ok := r.builders[name]
	if !ok {
		return nil, fmt.Errorf("unknown processor: %s", name)
	}
	return builder(cfg)
}

// Pipeline builds every stage and chains them in order.
func (r *Registry) Pipeline(stages []Stage) (*Pipeline, error) {
	p := NewPipeline()
	for _, st := range stages {
		proc, err := r.Build(st.Name, st.Config)
		if err != nil {
			return nil, err
		}
		p.Add(proc)
	}
	return p, nil
}

// Has returns true if a processor with the given name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.builders[name]
	return ok
}

// Names returns all registered processor names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.builders))
	for name := range r.builders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
