// Package render serializes widget renders per instance and runs the
// bounded recovery path for renders that referenced metadata which was
// not yet available.
package render

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/ccmdi/blockkit/internal/ctxlog"
	"github.com/ccmdi/blockkit/internal/expr"
	"github.com/ccmdi/blockkit/internal/metadata"
	"github.com/ccmdi/blockkit/internal/registry"
)

const (
	recoveryMaxEvents = 5
	recoveryTimeout   = 10 * time.Second
)

// RenderFunc performs one render pass.
type RenderFunc func(ctx context.Context) error

// Coordinator guards every instance's render path with a small state
// machine: idle, rendering, and a pending flag. Refreshes requested while
// a render is in flight collapse into a single trailing render.
type Coordinator struct {
	store metadata.Store
	bus   metadata.Bus
	clk   clock.Clock

	mu     sync.Mutex
	states map[string]*state
}

type state struct {
	rendering  bool
	pending    bool
	recovering bool
}

// NewCoordinator wires the coordinator to the metadata feed used by the
// recovery path. A nil clk falls back to the real clock.
func NewCoordinator(store metadata.Store, bus metadata.Bus, clk clock.Clock) *Coordinator {
	if clk == nil {
		clk = clock.New()
	}
	return &Coordinator{
		store:  store,
		bus:    bus,
		clk:    clk,
		states: make(map[string]*state),
	}
}

func (c *Coordinator) stateFor(inst *registry.Instance) *state {
	c.mu.Lock()
	defer c.mu.Unlock()
	st, ok := c.states[inst.ID()]
	if !ok {
		st = &state{}
		c.states[inst.ID()] = st
		id := inst.ID()
		inst.OnDestroy(func() {
			c.mu.Lock()
			delete(c.states, id)
			c.mu.Unlock()
		})
	}
	return st
}

// Request runs fn for inst, or queues a single trailing run when a render
// is already in flight. The call returns after the instance is idle again,
// so a request that only sets the pending flag returns immediately.
func (c *Coordinator) Request(ctx context.Context, inst *registry.Instance, fn RenderFunc) {
	if inst.Destroyed() {
		return
	}
	st := c.stateFor(inst)

	c.mu.Lock()
	if st.rendering {
		st.pending = true
		c.mu.Unlock()
		return
	}
	st.rendering = true
	c.mu.Unlock()

	log := ctxlog.FromContext(ctx)
	for {
		if err := fn(ctx); err != nil {
			log.Warn("Render pass failed.", "instance", inst.ID(), "error", err)
		}

		c.mu.Lock()
		if st.pending && !inst.Destroyed() {
			st.pending = false
			c.mu.Unlock()
			continue
		}
		st.pending = false
		st.rendering = false
		c.mu.Unlock()
		return
	}
}

// recovery is the one-shot listener state for a render that saw missing
// document references.
type recovery struct {
	mu     sync.Mutex
	events int
	done   bool
	unsub  func()
	timer  *clock.Timer
}

func (r *recovery) finish() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.done {
		return false
	}
	r.done = true
	if r.unsub != nil {
		r.unsub()
	}
	if r.timer != nil {
		r.timer.Stop()
	}
	return true
}

// ArmRecovery attaches a one-shot metadata listener that waits for the
// given missing references on docPath to appear. The listener detaches
// when the data shows up, after a bounded number of change events, or
// after a timeout; every terminal case forces one refresh. At most one
// recovery listener is active per instance.
func (c *Coordinator) ArmRecovery(ctx context.Context, inst *registry.Instance, docPath string, missing []expr.Access, refresh func()) {
	if len(missing) == 0 || inst.Destroyed() {
		return
	}
	st := c.stateFor(inst)

	c.mu.Lock()
	if st.recovering {
		c.mu.Unlock()
		return
	}
	st.recovering = true
	c.mu.Unlock()

	log := ctxlog.FromContext(ctx)
	r := &recovery{}
	terminal := func(reason string) {
		if !r.finish() {
			return
		}
		c.mu.Lock()
		st.recovering = false
		c.mu.Unlock()
		log.Debug("Recovery listener detached.", "instance", inst.ID(), "doc", docPath, "reason", reason)
		if !inst.Destroyed() {
			refresh()
		}
	}

	r.mu.Lock()
	r.unsub = c.bus.Subscribe(metadata.MetadataChanged, func(ev metadata.Event) {
		if ev.Path != docPath {
			return
		}
		if inst.Destroyed() {
			terminal("destroyed")
			return
		}
		if c.refsPresent(docPath, missing) {
			terminal("resolved")
			return
		}
		r.mu.Lock()
		r.events++
		exhausted := r.events >= recoveryMaxEvents
		r.mu.Unlock()
		if exhausted {
			terminal("exhausted")
		}
	})
	r.timer = c.clk.AfterFunc(recoveryTimeout, func() {
		terminal("timeout")
	})
	r.mu.Unlock()

	inst.OnDestroy(func() {
		// Detach quietly; a destroyed instance gets no forced refresh.
		r.finish()
	})
}

func (c *Coordinator) refsPresent(docPath string, refs []expr.Access) bool {
	doc, ok := c.store.Document(docPath)
	if !ok {
		return false
	}
	mctx := doc.Context()
	for _, a := range refs {
		if mctx.Lookup(a.Path).IsMissing() {
			return false
		}
	}
	return true
}
