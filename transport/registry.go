package transport

import (
	"fmt"
	"strings"
	"sync"

	"github.com/goliatone/go-admin-client/core"
)

// Registry maps transport kinds to adapters. The client resolves KindREST
// for JSON calls and KindUpload for multipart calls.
type Registry struct {
	mu       sync.RWMutex
	adapters map[string]core.TransportAdapter
}

func NewRegistry(adapters ...core.TransportAdapter) (*Registry, error) {
	registry := &Registry{adapters: map[string]core.TransportAdapter{}}
	for _, adapter := range adapters {
		if err := registry.Register(adapter); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

// NewDefaultRegistry registers the JSON and upload adapters sharing client.
func NewDefaultRegistry(client HTTPDoer) *Registry {
	return &Registry{adapters: map[string]core.TransportAdapter{
		KindREST:   NewRESTAdapter(client),
		KindUpload: NewUploadAdapter(client),
	}}
}

// Register adds adapter under its kind. A kind can be bound once.
func (r *Registry) Register(adapter core.TransportAdapter) error {
	if r == nil {
		return fmt.Errorf("transport: registry is nil")
	}
	if adapter == nil {
		return fmt.Errorf("transport: adapter is nil")
	}
	kind := normalizeKind(adapter.Kind())
	if kind == "" {
		return fmt.Errorf("transport: adapter kind is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.adapters[kind]; exists {
		return fmt.Errorf("transport: adapter kind %q already registered", kind)
	}
	r.adapters[kind] = adapter
	return nil
}

func (r *Registry) Resolve(kind string) (core.TransportAdapter, error) {
	if r == nil {
		return nil, fmt.Errorf("transport: registry is nil")
	}
	r.mu.RLock()
	adapter, ok := r.adapters[normalizeKind(kind)]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("transport: adapter kind %q not registered", kind)
	}
	return adapter, nil
}

func normalizeKind(kind string) string {
	return strings.TrimSpace(strings.ToLower(kind))
}

var _ core.TransportResolver = (*Registry)(nil)
