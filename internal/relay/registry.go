package relay

import (
	"fmt"
	"sort"

	"github.com/ylorant/HedgeBot-sub001/internal/domain"
)

// Factory constructs fresh, uninitialized clients of one adapter type.
type Factory struct {
	Type string
	New  func() domain.RelayClient
}

type Registry struct {
	factories map[string]Factory
}

// NewRegistry builds the type table. Two factories declaring the same type tag are a
// programming error and fail here, at startup, rather than at resolution time.
func NewRegistry(factories ...Factory) (*Registry, error) {
	r := &Registry{factories: make(map[string]Factory, len(factories))}
	for _, f := range factories {
		if f.Type == "" {
			return nil, fmt.Errorf("relay factory with empty type tag")
		}
		if f.New == nil {
			return nil, fmt.Errorf("relay factory %q has no constructor", f.Type)
		}
		if _, exists := r.factories[f.Type]; exists {
			return nil, fmt.Errorf("relay type %q registered twice", f.Type)
		}
		r.factories[f.Type] = f
	}
	return r, nil
}

// MustNewRegistry is like NewRegistry but panics on error.
func MustNewRegistry(factories ...Factory) *Registry {
	r, err := NewRegistry(factories...)
	if err != nil {
		panic(err)
	}
	return r
}

// ResolveClient returns a new uninitialized client for clientType, or false if the type is unknown.
func (r *Registry) ResolveClient(clientType string) (domain.RelayClient, bool) {
	f, ok := r.factories[clientType]
	if !ok {
		return nil, false
	}
	return f.New(), true
}

// ClientTypes returns all known type tags, sorted.
func (r *Registry) ClientTypes() []string {
	types := make([]string, 0, len(r.factories))
	for t := range r.factories {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
