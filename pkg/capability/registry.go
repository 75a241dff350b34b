package capability

import (
	"fmt"
	"sort"
)

// Registry maps system names to the instances that configuration refers to.
// Behaviors and data instances live in separate tables so a configured source
// kind only ever sees instances of that kind.
type Registry struct {
	// behaviors maps system name to a live behavior instance.
	behaviors map[string]any

	// data maps system name to a static capability implementation.
	data map[string]Initializable
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		behaviors: make(map[string]any),
		data:      make(map[string]Initializable),
	}
}

// RegisterBehavior registers a live behavior under name.
func (r *Registry) RegisterBehavior(name string, behavior any) error {
	if _, exists := r.behaviors[name]; exists {
		return fmt.Errorf("behavior %s already registered", name)
	}
	r.behaviors[name] = behavior
	return nil
}

// RegisterData registers a static data instance under name.
func (r *Registry) RegisterData(name string, data Initializable) error {
	if _, exists := r.data[name]; exists {
		return fmt.Errorf("data system %s already registered", name)
	}
	r.data[name] = data
	return nil
}

// Ref builds the reference for a configured system. A name that is not
// registered for the given source yields a ref with an empty source, which
// Resolve rejects.
func (r *Registry) Ref(name string, source SourceKind) SystemRef {
	ref := SystemRef{Name: name, Source: source}
	switch source {
	case SourceBehavior:
		ref.Behavior = r.behaviors[name]
	case SourceData:
		ref.Data = r.data[name]
	}
	return ref
}

// Names lists every registered name with its source kind, sorted by name.
func (r *Registry) Names() map[SourceKind][]string {
	out := map[SourceKind][]string{
		SourceBehavior: keys(r.behaviors),
		SourceData:     keys(r.data),
	}
	return out
}

func keys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
