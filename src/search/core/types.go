package core

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Result is one raw hit from a search backend, before tiering.
type Result struct {
	Title   string
	URL     string
	Snippet string
	Score   float64
}

// Backend is one concrete search provider behind the aggregator.
type Backend interface {
	Name() string
	Search(ctx context.Context, query string, maxResults int) ([]Result, error)
}

// FactoryConfig captures the inputs required to construct a backend.
type FactoryConfig struct {
	TavilyKey  string
	BraveKey   string
	MaxResults int
	Depth      string // tavily search_depth
}

// BackendFactory implements backend-specific construction.
type BackendFactory func(FactoryConfig) (Backend, error)

var (
	mu        sync.RWMutex
	factories = map[string]BackendFactory{}
)

// RegisterBackend registers a backend factory by name.
func RegisterBackend(name string, factory BackendFactory) {
	mu.Lock()
	defer mu.Unlock()
	factories[strings.ToLower(name)] = factory
}

// NewBackends constructs the enabled backends from configuration.
// Unknown names error; a backend that fails to construct (missing key)
// errors too, so misconfiguration is caught at startup.
func NewBackends(cfg FactoryConfig, enabled []string) ([]Backend, error) {
	var backends []Backend
	for _, name := range enabled {
		mu.RLock()
		factory := factories[strings.ToLower(strings.TrimSpace(name))]
		mu.RUnlock()
		if factory == nil {
			return nil, fmt.Errorf("search: backend %q not registered", name)
		}
		b, err := factory(cfg)
		if err != nil {
			return nil, err
		}
		backends = append(backends, b)
	}
	return backends, nil
}
