package metadata

import "sync"

// EventKind identifies a change feed.
type EventKind int

const (
	// MetadataChanged fires when a document's front matter is written.
	MetadataChanged EventKind = iota
	// ActiveViewChanged fires when the focused document changes.
	ActiveViewChanged
)

// Event is one change notification.
type Event struct {
	Kind EventKind
	Path string
}

// Handler consumes events. Handlers run synchronously on the publishing
// goroutine; slow work belongs behind the render coordinator, not here.
type Handler func(Event)

// Bus is the observer interface the refresh engine subscribes through. The
// returned unsubscribe function is idempotent.
type Bus interface {
	Subscribe(kind EventKind, fn Handler) (unsubscribe func())
}

// MemBus is a minimal in-process Bus.
type MemBus struct {
	mu     sync.Mutex
	nextID int
	subs   map[EventKind]map[int]Handler
}

// Subscribe registers a handler for one event kind.
func (b *MemBus) Subscribe(kind EventKind, fn Handler) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.subs == nil {
		b.subs = make(map[EventKind]map[int]Handler)
	}
	if b.subs[kind] == nil {
		b.subs[kind] = make(map[int]Handler)
	}
	b.nextID++
	id := b.nextID
	b.subs[kind][id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs[kind], id)
			b.mu.Unlock()
		})
	}
}

func (b *MemBus) publish(ev Event) {
	b.mu.Lock()
	handlers := make([]Handler, 0, len(b.subs[ev.Kind]))
	for _, fn := range b.subs[ev.Kind] {
		handlers = append(handlers, fn)
	}
	b.mu.Unlock()
	for _, fn := range handlers {
		fn(ev)
	}
}
