package scanner

import (
	"fmt"
	"sort"

	"ResearchDigest/internal/domain"
)

// Endpoint is a concrete URL of a source (e.g. one arXiv category feed).
type Endpoint struct {
	Name string
	URL  string
}

// Request carries everything an adapter needs besides the document itself.
type Request struct {
	Source   string
	Category domain.Category
	Endpoint Endpoint
	Options  map[string]string
}

// Option returns a request option or the fallback when it is unset.
func (r Request) Option(key, fallback string) string {
	if v, ok := r.Options[key]; ok && v != "" {
		return v
	}
	return fallback
}

// Adapter turns one fetched document into candidate items.
// Implementations are pure: no network I/O, malformed records are skipped,
// and a nil document yields no items.
type Adapter interface {
	Name() string
	Parse(doc []byte, req Request) []domain.Item
}

// Registry keeps a mapping from adapter names to their implementations.
type Registry struct {
	adapters map[string]Adapter
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{adapters: map[string]Adapter{}}
}

// Register adds or replaces an adapter implementation.
func (r *Registry) Register(adapter Adapter) {
	if r.adapters == nil {
		r.adapters = map[string]Adapter{}
	}
	r.adapters[adapter.Name()] = adapter
}

// Resolve returns an adapter by name or an error if it is absent.
func (r *Registry) Resolve(name string) (Adapter, error) {
	if adapter, ok := r.adapters[name]; ok {
		return adapter, nil
	}
	return nil, fmt.Errorf("adapter %s is not registered", name)
}

// Names lists registered adapters, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
