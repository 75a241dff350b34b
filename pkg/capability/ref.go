package capability

import (
	"fmt"
	"reflect"
)

// SourceKind selects which field of a SystemRef is authoritative.
type SourceKind string

const (
	// SourceBehavior designates a live behavior instance that is expected to
	// implement the requested capability.
	SourceBehavior SourceKind = "behavior"

	// SourceData designates a statically defined instance that is a
	// capability implementation by construction.
	SourceData SourceKind = "data"
)

// Validate checks if the source kind is valid.
func (k SourceKind) Validate() error {
	switch k {
	case SourceBehavior, SourceData:
		return nil
	default:
		return fmt.Errorf("invalid system source: %q", k)
	}
}

// SystemRef names one configured system. Exactly one source is active, as
// selected by Source.
type SystemRef struct {
	// Name identifies the system in logs and errors.
	Name string

	// Source selects Behavior or Data.
	Source SourceKind

	// Behavior is any live value expected to implement the capability.
	Behavior any

	// Data is a static instance that implements Initializable.
	Data Initializable
}

// BehaviorRef builds a reference to a live behavior.
func BehaviorRef(name string, behavior any) SystemRef {
	return SystemRef{Name: name, Source: SourceBehavior, Behavior: behavior}
}

// DataRef builds a reference to a static data instance.
func DataRef(name string, data Initializable) SystemRef {
	return SystemRef{Name: name, Source: SourceData, Data: data}
}

// ResolveError reports a system reference that cannot be resolved. It is
// always a configuration error.
type ResolveError struct {
	Name       string
	Source     SourceKind
	Capability string
	Reason     string
}

// Error implements the error interface.
func (e *ResolveError) Error() string {
	return fmt.Sprintf("system %q (source=%s) cannot resolve to %s: %s",
		e.Name, e.Source, e.Capability, e.Reason)
}

// Resolve returns the capability T designated by ref.
func Resolve[T any](ref SystemRef) (T, error) {
	var zero T
	capName := reflect.TypeOf((*T)(nil)).Elem().String()

	fail := func(reason string) (T, error) {
		return zero, &ResolveError{
			Name:       ref.Name,
			Source:     ref.Source,
			Capability: capName,
			Reason:     reason,
		}
	}

	var source any
	switch ref.Source {
	case SourceBehavior:
		if isNil(ref.Behavior) {
			return fail("behavior source is not set")
		}
		source = ref.Behavior
	case SourceData:
		if isNil(ref.Data) {
			return fail("data source is not set")
		}
		source = ref.Data
	default:
		return fail(fmt.Sprintf("unknown source kind %q", ref.Source))
	}

	c, ok := source.(T)
	if !ok {
		return fail(fmt.Sprintf("%T does not implement %s", source, capName))
	}
	return c, nil
}

// ResolveAll resolves refs in order and stops at the first failure.
func ResolveAll[T any](refs []SystemRef) ([]T, error) {
	out := make([]T, 0, len(refs))
	for _, ref := range refs {
		c, err := Resolve[T](ref)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
