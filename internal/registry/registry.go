// Package registry holds the named detectors for a scan. It is built once at
// startup; the snapshot order is the tie-break for output stability.
package registry

import (
	"errors"
	"fmt"
	"sync"

	"github.com/leakgate/leakgate/internal/detectors"
)

// ErrDuplicateDetector is returned when a detector name is registered twice.
var ErrDuplicateDetector = errors.New("duplicate detector")

// Registry is a name-unique, insertion-ordered set of detectors.
type Registry struct {
	mu     sync.RWMutex
	order  []detectors.Detector
	byName map[string]int
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{byName: make(map[string]int)}
}

// Register adds d. A second detector with the same name is rejected.
func (r *Registry) Register(d detectors.Detector) error {
	if d == nil {
		return errors.New("nil detector")
	}
	name := d.Name()
	if name == "" {
		return errors.New("detector has empty name")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byName[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateDetector, name)
	}
	r.byName[name] = len(r.order)
	r.order = append(r.order, d)
	return nil
}

// MustRegister is Register for static setup; it panics on error.
func (r *Registry) MustRegister(ds ...detectors.Detector) {
	for _, d := range ds {
		if err := r.Register(d); err != nil {
			panic(err)
		}
	}
}

// All returns a snapshot in registration order. Later registrations do not
// affect a snapshot already handed out.
func (r *Registry) All() []detectors.Detector {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]detectors.Detector, len(r.order))
	copy(out, r.order)
	return out
}

// Get looks up a detector by name.
func (r *Registry) Get(name string) (detectors.Detector, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i, ok := r.byName[name]
	if !ok {
		return nil, false
	}
	return r.order[i], true
}

// Names lists registered names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.order))
	for i, d := range r.order {
		out[i] = d.Name()
	}
	return out
}

// Len reports the number of registered detectors.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}
