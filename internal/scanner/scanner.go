package scanner

import (
	"fmt"

	"AINewsDigest/internal/domain"
	"AINewsDigest/internal/ports"
)

// Registry keeps a mapping from source types to their fetchers.
type Registry struct {
	fetchers map[domain.SourceType]ports.Fetcher
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{fetchers: map[domain.SourceType]ports.Fetcher{}}
}

// Register adds or replaces the fetcher for its source type.
func (r *Registry) Register(fetcher ports.Fetcher) {
	if r.fetchers == nil {
		r.fetchers = map[domain.SourceType]ports.Fetcher{}
	}
	r.fetchers[fetcher.Source()] = fetcher
}

// Resolve returns a fetcher by source type or an error if it is absent.
func (r *Registry) Resolve(source domain.SourceType) (ports.Fetcher, error) {
	if fetcher, ok := r.fetchers[source]; ok {
		return fetcher, nil
	}
	return nil, fmt.Errorf("fetcher for %s is not registered", source)
}

// All returns registered fetchers in canonical source order.
func (r *Registry) All() []ports.Fetcher {
	out := make([]ports.Fetcher, 0, len(r.fetchers))
	for _, st := range domain.SourceTypes() {
		if f, ok := r.fetchers[st]; ok {
			out = append(out, f)
		}
	}
	return out
}

// Len reports how many fetchers are registered.
func (r *Registry) Len() int {
	return len(r.fetchers)
}
