package backend

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/gogpu/gpucontext"
)

// Factory creates a new backend instance.
type Factory func() Backend

// Entry represents a registered backend.
type Entry struct {
	// Name is the unique identifier for this backend.
	Name string

	// Priority determines selection order (higher = preferred).
	// Standard priorities:
	//   - 100: GPU texture sharing (wgpu HAL)
	//   - 50: shared-memory handles (memfd)
	//   - 10: software fallback
	Priority int

	// Renderers lists the host renderers this backend can present to.
	// An empty list means any renderer.
	Renderers []Renderer

	// Factory creates backend instances.
	Factory Factory

	// Available reports if the backend is usable on this system.
	Available func() bool
}

// Supports reports whether the entry can serve renderer r.
func (e *Entry) Supports(r Renderer) bool {
	return len(e.Renderers) == 0 || slices.Contains(e.Renderers, r)
}

// Registry manages registered backends.
//
// Backend packages register themselves from init:
//
//	func init() {
//	    backend.Register(backend.Entry{Name: "wgpu", Priority: 100, Factory: New})
//	}
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*Entry
}

// globalRegistry is the default registry.
var globalRegistry = NewRegistry()

// NewRegistry creates a new empty registry.
// Most code should use the global registry via Register and Default.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*Entry)}
}

// Default returns the process-wide registry backend packages register into.
func Default() *Registry { return globalRegistry }

// Register adds a backend to the global registry.
func Register(e Entry) { globalRegistry.Register(e) }

// Unregister removes a backend from the global registry.
func Unregister(name string) { globalRegistry.Unregister(name) }

// Register adds a backend to this registry.
// Registering a name that already exists replaces the previous entry.
func (r *Registry) Register(e Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.entries == nil {
		r.entries = make(map[string]*Entry)
	}
	if e.Available == nil {
		e.Available = func() bool { return true }
	}
	r.entries[e.Name] = &e
}

// Unregister removes a backend from this registry.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, name)
}

// Get returns a copy of a registered entry.
func (r *Registry) Get(name string) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[name]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// Candidates returns the names of available backends supporting renderer,
// sorted by priority (highest first).
func (r *Registry) Candidates(renderer Renderer) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := make([]*Entry, 0, len(r.entries))
	for _, e := range r.entries {
		if e.Supports(renderer) && e.Available() {
			entries = append(entries, e)
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Priority != entries[j].Priority {
			return entries[i].Priority > entries[j].Priority
		}
		return entries[i].Name < entries[j].Name
	})

	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name
	}
	return names
}

// Select returns the best backend that can open a device for renderer.
// The probe device is closed before returning; players open their own.
func (r *Registry) Select(renderer Renderer, presentation gpucontext.DeviceProvider) (Backend, error) {
	var errs []error
	for _, name := range r.Candidates(renderer) {
		b, err := r.probe(name, presentation)
		if err == nil {
			return b, nil
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return nil, fmt.Errorf("%w: renderer %s", ErrBackendNotAvailable, renderer)
	}
	return nil, fmt.Errorf("%w: renderer %s: %w", ErrBackendNotAvailable, renderer, errors.Join(errs...))
}

// SelectByName returns the named backend if it can serve renderer.
func (r *Registry) SelectByName(name string, renderer Renderer, presentation gpucontext.DeviceProvider) (Backend, error) {
	e, ok := r.Get(name)
	if !ok {
		return nil, &NotFoundError{Name: name}
	}
	if !e.Supports(renderer) || !e.Available() {
		return nil, &UnavailableError{Name: name, Renderer: renderer}
	}
	return r.probe(name, presentation)
}

func (r *Registry) probe(name string, presentation gpucontext.DeviceProvider) (Backend, error) {
	e, ok := r.Get(name)
	if !ok {
		return nil, &NotFoundError{Name: name}
	}
	b := e.Factory()
	if b == nil {
		return nil, &UnavailableError{Name: name}
	}
	dev, err := b.Open(presentation)
	if err != nil {
		return nil, fmt.Errorf("backend %s: %w", name, err)
	}
	if err := dev.Close(); err != nil {
		slogger().Warn("backend: probe device close failed", "backend", name, "err", err)
	}
	return b, nil
}

// NotFoundError indicates a named backend is not registered.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return "backend: not found: " + e.Name
}

// UnavailableError indicates a backend exists but cannot serve the renderer.
type UnavailableError struct {
	Name     string
	Renderer Renderer
}

func (e *UnavailableError) Error() string {
	return "backend: unavailable: " + e.Name + " for " + e.Renderer.String()
}

// Is makes UnavailableError match ErrBackendNotAvailable.
func (e *UnavailableError) Is(target error) bool { return target == ErrBackendNotAvailable }
