// Package handlers holds the registry of component render handlers. Each
// module registers its handlers here under the names its manifests claim;
// the engine validates parity between the two at startup.
package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/benbjohnson/clock"
	"github.com/zclconf/go-cty/cty"

	"github.com/ccmdi/blockkit/internal/metadata"
	"github.com/ccmdi/blockkit/internal/registry"
)

// RenderContext carries everything a handler may need for one render pass.
type RenderContext struct {
	// Doc is the document hosting the block. It is never nil; a block in
	// an unknown document gets an empty one.
	Doc *metadata.Document

	Store metadata.Store

	// Args is the validated, typed argument map with defaults applied.
	Args map[string]cty.Value

	// CSSOverrides holds the trailing-! properties, already validated
	// against the manifest.
	CSSOverrides map[string]string

	Instance *registry.Instance
	Clock    clock.Clock
}

// Func renders one block body.
type Func func(ctx context.Context, rc *RenderContext) (string, error)

// Module is the unit of registration: a package that contributes handlers
// and the component manifest describing them.
type Module interface {
	Register(h *Handlers)
	Manifest() []byte
}

// Handlers is the handler registry.
type Handlers struct {
	all map[string]Func
}

// New creates an empty registry.
func New() *Handlers {
	return &Handlers{all: make(map[string]Func)}
}

// Register registers a render handler. Registration happens during startup
// wiring, so a duplicate name is a programming error.
func (h *Handlers) Register(name string, fn Func) {
	if _, exists := h.all[name]; exists {
		panic(fmt.Sprintf("render handler with name '%s' already registered", name))
	}
	slog.Debug("Registering render handler.", "name", name)
	h.all[name] = fn
}

// Get looks up a handler by name.
func (h *Handlers) Get(name string) (Func, bool) {
	fn, ok := h.all[name]
	return fn, ok
}

// Names returns every registered handler name, sorted.
func (h *Handlers) Names() []string {
	out := make([]string, 0, len(h.all))
	for name := range h.all {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
