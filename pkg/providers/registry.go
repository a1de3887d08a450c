package providers

import (
	"fmt"
	"slices"
	"strings"

	"github.com/lehigh-university-libraries/textrecog/pkg/recognition"
)

// Factory builds an engine from settings. Engines are constructed lazily so
// that credentials are only required for the engine actually used.
type Factory func(settings Settings) (recognition.Engine, error)

// Registry manages all available engines
type Registry struct {
	factories map[string]Factory
}

// NewRegistry creates a new engine registry
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
	}
}

// Register adds an engine factory under name
func (r *Registry) Register(name string, factory Factory) {
	r.factories[strings.ToLower(name)] = factory
}

// Get builds the engine registered under name
func (r *Registry) Get(name string, settings Settings) (recognition.Engine, error) {
	factory, exists := r.factories[strings.ToLower(name)]
	if !exists {
		return nil, fmt.Errorf("engine %s not found (available: %s)", name, strings.Join(r.List(), ", "))
	}
	engine, err := factory(settings)
	if err != nil {
		return nil, fmt.Errorf("failed to create engine %s: %w", name, err)
	}
	return engine, nil
}

// List returns all available engine names, sorted
func (r *Registry) List() []string {
	var names []string
	for name := range r.factories {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// HasEngine checks if an engine is registered
func (r *Registry) HasEngine(name string) bool {
	_, exists := r.factories[strings.ToLower(name)]
	return exists
}
