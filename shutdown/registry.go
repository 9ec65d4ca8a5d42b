package shutdown

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Func releases one resource during shutdown.
type Func func(ctx context.Context) error

type entry struct {
	name     string
	priority int
	fn       Func
}

// Registry runs cleanup functions in ascending priority order, once.
type Registry struct {
	mu      sync.Mutex
	entries []entry
	closed  bool
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds fn. Lower priorities run first; equal priorities run in
// registration order. Registering after Run is a no-op.
func (r *Registry) Register(name string, priority int, fn Func) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.entries = append(r.entries, entry{name: name, priority: priority, fn: fn})
}

// Run calls every function, even after failures, and returns their errors
// prefixed with the function name.
func (r *Registry) Run(ctx context.Context) []error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	sorted := r.sortedLocked()
	r.mu.Unlock()

	var errs []error
	for _, e := range sorted {
		if err := e.fn(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", e.name, err))
		}
	}
	return errs
}

// Names lists the registered functions in execution order.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	sorted := r.sortedLocked()
	names := make([]string, len(sorted))
	for i, e := range sorted {
		names[i] = e.name
	}
	return names
}

func (r *Registry) sortedLocked() []entry {
	sorted := append([]entry(nil), r.entries...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].priority < sorted[j].priority
	})
	return sorted
}
