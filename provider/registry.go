package provider

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
)

// ProviderRegistry maps provider names to factories. Names are case-insensitive.
type ProviderRegistry struct {
	mu        sync.RWMutex
	factories map[string]ProviderFactory
}

// NewProviderRegistry creates an empty registry
func NewProviderRegistry() *ProviderRegistry {
	return &ProviderRegistry{factories: make(map[string]ProviderFactory)}
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Register adds or replaces the factory of a provider. It panics on a nil factory
// since registration happens from init functions.
func (r *ProviderRegistry) Register(name string, factory ProviderFactory) {
	if factory == nil {
		panic("provider: nil factory registered for " + name)
	}

	r.mu.Lock()
	r.factories[normalizeName(name)] = factory
	r.mu.Unlock()
}

// Get returns the factory of a provider
func (r *ProviderRegistry) Get(name string) (ProviderFactory, error) {
	r.mu.RLock()
	factory, ok := r.factories[normalizeName(name)]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("payment provider '%s' is not registered: %w", name, ErrProviderNotFound)
	}
	return factory, nil
}

// CreateProvider returns a new, uninitialized provider instance
func (r *ProviderRegistry) CreateProvider(name string) (PaymentProvider, error) {
	factory, err := r.Get(name)
	if err != nil {
		return nil, err
	}

	p := factory()
	if p == nil {
		return nil, fmt.Errorf("payment provider '%s' factory returned nil", name)
	}
	return p, nil
}

// GetAvailableProviders returns the registered names in sorted order
func (r *ProviderRegistry) GetAvailableProviders() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return slices.Sorted(maps.Keys(r.factories))
}

// DefaultRegistry holds the providers that register themselves on import
var DefaultRegistry = NewProviderRegistry()

// Register registers a provider with the default registry
func Register(name string, factory ProviderFactory) {
	DefaultRegistry.Register(name, factory)
}

// Get retrieves a provider factory from the default registry
func Get(name string) (ProviderFactory, error) {
	return DefaultRegistry.Get(name)
}

// CreateProvider creates a provider instance from the default registry
func CreateProvider(name string) (PaymentProvider, error) {
	return DefaultRegistry.CreateProvider(name)
}

// GetAvailableProviders returns the provider names registered with the default registry
func GetAvailableProviders() []string {
	return DefaultRegistry.GetAvailableProviders()
}
