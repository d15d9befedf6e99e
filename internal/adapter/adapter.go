package adapter

import (
	"context"
	"fmt"

	"NewsIngest/internal/domain"
)

// Adapter converts one source's feeds into normalized scraped items.
// Implementations exist per source type (rss, api).
type Adapter interface {
	Type() domain.SourceType
	Items(ctx context.Context, source domain.Source) ([]domain.ScrapedItem, error)
}

// Registry keeps a mapping from source types to their adapters.
type Registry struct {
	adapters map[domain.SourceType]Adapter
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{adapters: map[domain.SourceType]Adapter{}}
}

// Register adds or replaces an adapter implementation.
func (r *Registry) Register(a Adapter) {
	if r.adapters == nil {
		r.adapters = map[domain.SourceType]Adapter{}
	}
	r.adapters[a.Type()] = a
}

// Resolve returns an adapter by source type or an error if it is absent.
func (r *Registry) Resolve(t domain.SourceType) (Adapter, error) {
	if a, ok := r.adapters[t]; ok {
		return a, nil
	}
	return nil, fmt.Errorf("no adapter registered for source type %q", t)
}
