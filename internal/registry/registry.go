package registry

import (
	"fmt"
	"log/slog"
	"sync"
)

// Target is the render target an instance is mounted on. The registry stamps
// the instance id onto the target so later renders of the same target reuse
// the instance.
type Target interface {
	InstanceID() string
	SetInstanceID(id string)
}

// Stamp is a ready-made Target implementation meant to be embedded in
// render target types.
type Stamp struct {
	id string
}

func (s *Stamp) InstanceID() string      { return s.id }
func (s *Stamp) SetInstanceID(id string) { s.id = id }

// Registry is the shared table of live instances.
type Registry struct {
	mu        sync.RWMutex
	instances map[string]*Instance
	nextID    uint64
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{instances: make(map[string]*Instance)}
}

// Create mints a new instance, stamps its id onto the target, and inserts it
// into the table.
func (r *Registry) Create(target Target) *Instance {
	r.mu.Lock()
	r.nextID++
	id := fmt.Sprintf("bk-%d", r.nextID)
	in := &Instance{id: id, reg: r, data: map[string]any{}}
	r.instances[id] = in
	r.mu.Unlock()

	target.SetInstanceID(id)
	slog.Debug("Instance created.", "instance", id)
	return in
}

// Get looks up an instance by id.
func (r *Registry) Get(id string) (*Instance, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	in, ok := r.instances[id]
	return in, ok
}

// Acquire returns the instance already stamped onto the target, or creates
// one. A stale stamp (destroyed instance) is replaced.
func (r *Registry) Acquire(target Target) (*Instance, bool) {
	if id := target.InstanceID(); id != "" {
		if in, ok := r.Get(id); ok {
			return in, false
		}
	}
	return r.Create(target), true
}

// Len reports the number of live instances.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.instances)
}

// DestroyAll destroys every instance the predicate selects. A nil predicate
// selects everything; this is the teardown path for a removed container.
func (r *Registry) DestroyAll(predicate func(*Instance) bool) {
	r.mu.RLock()
	selected := make([]*Instance, 0, len(r.instances))
	for _, in := range r.instances {
		if predicate == nil || predicate(in) {
			selected = append(selected, in)
		}
	}
	r.mu.RUnlock()

	for _, in := range selected {
		in.Destroy()
	}
}

func (r *Registry) remove(id string) {
	r.mu.Lock()
	delete(r.instances, id)
	r.mu.Unlock()
}
