package source

import (
	"github.com/rotisserie/eris"
)

// ErrUnknownSource is returned by Get for unregistered source names.
var ErrUnknownSource = eris.New("source: unknown source")

// Registry maps source names to their implementations. It is populated once
// at startup and read-only afterwards.
type Registry struct {
	sources map[string]Source
	order   []string // insertion order for deterministic listing
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{sources: make(map[string]Source)}
}

// Register adds a source. Registering the same name twice replaces the
// earlier entry but keeps its position.
func (r *Registry) Register(s Source) {
	name := s.Name()
	if _, exists := r.sources[name]; !exists {
		r.order = append(r.order, name)
	}
	r.sources[name] = s
}

// Get returns a source by name.
func (r *Registry) Get(name string) (Source, error) {
	s, ok := r.sources[name]
	if !ok {
		return nil, eris.Wrapf(ErrUnknownSource, "source: %q", name)
	}
	return s, nil
}

// List returns the Info of every source in registration order.
func (r *Registry) List() []Info {
	out := make([]Info, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, Describe(r.sources[name]))
	}
	return out
}
