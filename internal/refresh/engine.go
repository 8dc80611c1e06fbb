package refresh

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/ccmdi/blockkit/internal/ctxlog"
	"github.com/ccmdi/blockkit/internal/metadata"
	"github.com/ccmdi/blockkit/internal/query"
	"github.com/ccmdi/blockkit/internal/registry"
	"github.com/ccmdi/blockkit/internal/resolver"
)

// snapshotKey is the data bag slot holding the cached watched-key values
// from the previous render.
const snapshotKey = "refresh.snapshot"

// lastActiveKey caches the last active-view path this instance reacted to.
const lastActiveKey = "refresh.lastActive"

// Engine attaches refresh listeners for instances. One engine serves the
// whole process; all per-instance state lives in the instance data bag.
type Engine struct {
	store metadata.Store
	bus   metadata.Bus
	clk   clock.Clock
}

// NewEngine creates an engine over the host's metadata store and change feed.
func NewEngine(store metadata.Store, bus metadata.Bus, clk clock.Clock) *Engine {
	return &Engine{store: store, bus: bus, clk: clk}
}

// Binding describes one instance's refresh wiring.
type Binding struct {
	Instance *registry.Instance
	DocPath  string
	Watched  *resolver.WatchedKeys
	// InSidePanel gates the active-view strategy: it is only attached when
	// the render target lives inside a side-panel context.
	InSidePanel bool
	// Trigger requests a refresh; the render coordinator serializes it.
	Trigger func()
}

// Attach wires exactly one listener per distinct strategy and registers the
// corresponding teardown with the instance. It also primes the watched-key
// snapshot used for smart diffing.
func (e *Engine) Attach(ctx context.Context, b Binding, strategies []Strategy) {
	logger := ctxlog.FromContext(ctx)
	strategies = Dedupe(strategies)

	b.Instance.Set(snapshotKey, e.snapshot(b.DocPath, b.Watched))

	for _, s := range strategies {
		switch s.Kind {
		case MetadataSelf:
			e.subscribeMetadata(b, func(ev metadata.Event) bool {
				return ev.Path == b.DocPath && e.watchedChanged(b, b.DocPath)
			})

		case MetadataAny:
			e.subscribeMetadata(b, func(ev metadata.Event) bool {
				if ev.Path == b.DocPath {
					return e.watchedChanged(b, b.DocPath)
				}
				return true
			})

		case MetadataQuery:
			q, err := query.Parse(s.Query)
			if err != nil {
				logger.Warn("Skipping metadata-query strategy with invalid query.",
					"instance", b.Instance.ID(), "query", s.Query, "error", err)
				continue
			}
			e.subscribeMetadata(b, func(ev metadata.Event) bool {
				doc, ok := e.store.Document(ev.Path)
				return ok && q.Matches(doc.QueryDoc())
			})

		case ActiveView:
			if !b.InSidePanel {
				continue
			}
			e.subscribeActiveView(b)

		case Daily:
			e.armBoundary(b, nextDaily)

		case Hourly:
			e.armBoundary(b, nextHourly)

		case Interval:
			every := s.Every
			e.armBoundary(b, func(time.Time) time.Duration { return every })
		}
	}

	logger.Debug("Refresh strategies attached.",
		"instance", b.Instance.ID(), "count", len(strategies))
}

// subscribeMetadata wires one metadata-changed listener with the given
// relevance predicate and registers its unsubscribe as instance cleanup.
func (e *Engine) subscribeMetadata(b Binding, relevant func(metadata.Event) bool) {
	unsub := e.bus.Subscribe(metadata.MetadataChanged, func(ev metadata.Event) {
		if b.Instance.Destroyed() {
			return
		}
		if relevant(ev) {
			b.Trigger()
		}
	})
	b.Instance.OnDestroy(unsub)
}

// subscribeActiveView fires when the focused document genuinely changes and
// the watched keys differ on the newly active document.
func (e *Engine) subscribeActiveView(b Binding) {
	unsub := e.bus.Subscribe(metadata.ActiveViewChanged, func(ev metadata.Event) {
		if b.Instance.Destroyed() {
			return
		}
		if last, _ := b.Instance.Get(lastActiveKey); last == ev.Path {
			return
		}
		b.Instance.Set(lastActiveKey, ev.Path)
		if e.watchedChanged(b, ev.Path) {
			b.Trigger()
		}
	})
	b.Instance.OnDestroy(unsub)
}

// watchedChanged performs the smart diff: it compares the newly observed
// values of every watched key on the given document against the cached
// snapshot, updating the cache when they differ. With no watched keys there
// is no diff basis, so the refresh proceeds.
func (e *Engine) watchedChanged(b Binding, docPath string) bool {
	if b.Watched == nil || b.Watched.Empty() {
		return true
	}
	current := e.snapshot(docPath, b.Watched)
	previous, _ := b.Instance.Get(snapshotKey)
	if prev, ok := previous.(map[string]string); ok && equalSnapshots(prev, current) {
		return false
	}
	b.Instance.Set(snapshotKey, current)
	return true
}

// snapshot evaluates every watched access against a document's front matter.
func (e *Engine) snapshot(docPath string, watched *resolver.WatchedKeys) map[string]string {
	out := map[string]string{}
	if watched == nil {
		return out
	}
	doc, ok := e.store.Document(docPath)
	if !ok {
		return out
	}
	ctx := doc.Context()
	for _, a := range watched.Accesses() {
		out[a.String()] = ctx.Lookup(a.Path).Display()
	}
	return out
}

func equalSnapshots(a, b map[string]string) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if b[k] != v {
			return false
		}
	}
	return true
}

// armBoundary schedules trigger at the delay the next function computes from
// the current wall clock, re-arming after every firing. Destroying the
// instance stops the chain.
func (e *Engine) armBoundary(b Binding, next func(time.Time) time.Duration) {
	ra := &rearm{clk: e.clk, next: next, b: b}
	ra.schedule()
	b.Instance.OnDestroy(ra.stop)
}

type rearm struct {
	clk  clock.Clock
	next func(time.Time) time.Duration
	b    Binding

	mu      sync.Mutex
	stopped bool
	timer   *clock.Timer
}

func (r *rearm) schedule() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped {
		return
	}
	r.timer = r.clk.AfterFunc(r.next(r.clk.Now()), r.fire)
}

func (r *rearm) fire() {
	if r.b.Instance.Destroyed() {
		return
	}
	r.b.Trigger()
	r.schedule()
}

func (r *rearm) stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopped = true
	if r.timer != nil {
		r.timer.Stop()
	}
}

// nextDaily is the exact wall-clock delay to the next local midnight.
func nextDaily(now time.Time) time.Duration {
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).AddDate(0, 0, 1)
	return midnight.Sub(now)
}

// nextHourly is the delay to the top of the next hour.
func nextHourly(now time.Time) time.Duration {
	return now.Truncate(time.Hour).Add(time.Hour).Sub(now)
}
