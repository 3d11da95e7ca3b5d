package services

import (
	"context"
	"sort"
	"sync"
	"time"
)

// DefaultCheckTimeout bounds a single dependency check
const DefaultCheckTimeout = 2 * time.Second

// Registry holds the dependencies /ready reports on: the content service
// always, and the attempt database and intro flag store when configured.
type Registry struct {
	mu      sync.RWMutex
	deps    map[string]Provider
	timeout time.Duration
}

// NewRegistry creates an empty registry using DefaultCheckTimeout
func NewRegistry() *Registry {
	return &Registry{
		deps:    make(map[string]Provider),
		timeout: DefaultCheckTimeout,
	}
}

// SetCheckTimeout changes the per-dependency timeout; non-positive values are ignored
func (r *Registry) SetCheckTimeout(d time.Duration) {
	if d <= 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.timeout = d
}

// Register adds or replaces a dependency
func (r *Registry) Register(name string, provider Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deps[name] = provider
}

// Get returns the dependency registered under name, or nil
func (r *Registry) Get(name string) Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.deps[name]
}

// List returns the registered names in order
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.deps))
	for name := range r.deps {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Status is the result of checking one dependency
type Status struct {
	Name string
	Type string
	Err  error
}

// Check runs every dependency check concurrently, each under the check
// timeout, and returns the results ordered by name. A slow content service
// cannot hold /ready past the timeout.
func (r *Registry) Check(ctx context.Context) []Status {
	r.mu.RLock()
	timeout := r.timeout
	statuses := make([]Status, 0, len(r.deps))
	providers := make([]Provider, 0, len(r.deps))
	for name, p := range r.deps {
		statuses = append(statuses, Status{Name: name, Type: p.Type()})
		providers = append(providers, p)
	}
	r.mu.RUnlock()

	var wg sync.WaitGroup
	for i := range providers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			checkCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			statuses[i].Err = providers[i].HealthCheck(checkCtx)
		}(i)
	}
	wg.Wait()

	sort.Slice(statuses, func(i, j int) bool { return statuses[i].Name < statuses[j].Name })
	return statuses
}

// Healthy reports whether every status passed
func Healthy(statuses []Status) bool {
	for _, s := range statuses {
		if s.Err != nil {
			return false
		}
	}
	return true
}
