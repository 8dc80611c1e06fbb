package registry

import (
	"log/slog"
	"sync"
)

// Instance represents one mounted, live rendering and its resources.
type Instance struct {
	id  string
	reg *Registry

	mu        sync.Mutex
	data      map[string]any
	cleanups  []func()
	destroyed bool
}

// ID returns the opaque instance id.
func (in *Instance) ID() string { return in.id }

// Get reads a value from the instance's data bag.
func (in *Instance) Get(key string) (any, bool) {
	in.mu.Lock()
	defer in.mu.Unlock()
	v, ok := in.data[key]
	return v, ok
}

// Set writes a value into the instance's data bag.
func (in *Instance) Set(key string, v any) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.data[key] = v
}

// Delete removes a key from the data bag.
func (in *Instance) Delete(key string) {
	in.mu.Lock()
	defer in.mu.Unlock()
	delete(in.data, key)
}

// OnDestroy registers a cleanup closure. Cleanups run in registration order
// when the instance is destroyed. Registering on an already-destroyed
// instance runs the closure immediately, so late subscriptions cannot leak.
func (in *Instance) OnDestroy(fn func()) {
	in.mu.Lock()
	if in.destroyed {
		in.mu.Unlock()
		runCleanup(in.id, fn)
		return
	}
	in.cleanups = append(in.cleanups, fn)
	in.mu.Unlock()
}

// Destroyed reports whether Destroy has run.
func (in *Instance) Destroyed() bool {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.destroyed
}

// Destroy tears the instance down exactly once: every registered cleanup
// runs in registration order, then the registry entry is removed. Cleanups
// are best-effort; one failing must not stop the rest or keep the entry
// alive.
func (in *Instance) Destroy() {
	in.mu.Lock()
	if in.destroyed {
		in.mu.Unlock()
		return
	}
	in.destroyed = true
	cleanups := in.cleanups
	in.cleanups = nil
	in.data = map[string]any{}
	in.mu.Unlock()

	for _, fn := range cleanups {
		runCleanup(in.id, fn)
	}
	in.reg.remove(in.id)
	slog.Debug("Instance destroyed.", "instance", in.id)
}

func runCleanup(id string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			slog.Warn("Instance cleanup panicked.", "instance", id, "panic", r)
		}
	}()
	fn()
}
