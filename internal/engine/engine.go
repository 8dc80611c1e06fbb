// Package engine renders component blocks end to end: it resolves block
// arguments, validates them against the component manifest, runs the
// registered handler through the render coordinator, and attaches the
// block's refresh strategies.
package engine

import (
	"context"
	"fmt"

	"github.com/benbjohnson/clock"
	"github.com/zclconf/go-cty/cty"

	"github.com/ccmdi/blockkit/internal/ctxlog"
	"github.com/ccmdi/blockkit/internal/expr"
	"github.com/ccmdi/blockkit/internal/handlers"
	"github.com/ccmdi/blockkit/internal/manifest"
	"github.com/ccmdi/blockkit/internal/metadata"
	"github.com/ccmdi/blockkit/internal/refresh"
	"github.com/ccmdi/blockkit/internal/registry"
	"github.com/ccmdi/blockkit/internal/render"
	"github.com/ccmdi/blockkit/internal/resolver"
)

const (
	outputKey   = "render.output"
	errorKey    = "render.error"
	attachedKey = "render.attached"
	docKey      = "render.doc"
)

// Block is a component invocation mounted on a document. The embedded
// Stamp lets the instance registry reuse the same instance across renders
// of the same block.
type Block struct {
	registry.Stamp

	// Component is the manifest type to render.
	Component string

	// Source is the raw block body, one key=value argument per line.
	Source string

	// DocPath locates the hosting document in the metadata store.
	DocPath string

	// InSidePanel enables the active-view refresh strategy.
	InSidePanel bool
}

// Output is the result of the latest render pass for a block.
type Output struct {
	Component    string
	Enabled      bool
	Body         string
	Args         map[string]cty.Value
	CSSOverrides map[string]string
}

// Options wires an Engine. Store and Bus are usually the same object.
type Options struct {
	Manifests *manifest.Set
	Handlers  *handlers.Handlers
	Store     metadata.Store
	Bus       metadata.Bus
	Clock     clock.Clock
}

// Engine owns the render pipeline and the instance table behind it.
type Engine struct {
	manifests *manifest.Set
	handlers  *handlers.Handlers
	store     metadata.Store
	bus       metadata.Bus
	instances *registry.Registry
	resolver  *resolver.Resolver
	coord     *render.Coordinator
	refresher *refresh.Engine
	clk       clock.Clock
}

// New assembles an engine. A nil clock falls back to the real one.
func New(opts Options) *Engine {
	clk := opts.Clock
	if clk == nil {
		clk = clock.New()
	}
	return &Engine{
		manifests: opts.Manifests,
		handlers:  opts.Handlers,
		store:     opts.Store,
		bus:       opts.Bus,
		instances: registry.New(),
		resolver:  resolver.New(clk),
		coord:     render.NewCoordinator(opts.Store, opts.Bus, clk),
		refresher: refresh.NewEngine(opts.Store, opts.Bus, clk),
		clk:       clk,
	}
}

// Validate checks manifest/handler parity. It is called once at startup,
// before any block renders.
func (e *Engine) Validate() error {
	return e.manifests.ValidateHandlers(e.handlers.Names())
}

// Instances exposes the instance registry for lifecycle management.
func (e *Engine) Instances() *registry.Registry { return e.instances }

// RenderBlock renders b, reusing its live instance when one exists, and
// returns the latest output. Validation failures are returned to the
// caller so they can be shown inline in place of the widget.
func (e *Engine) RenderBlock(ctx context.Context, b *Block) (*Output, error) {
	comp, ok := e.manifests.Component(b.Component)
	if !ok {
		return nil, fmt.Errorf("unknown component %q", b.Component)
	}
	fn, ok := e.handlers.Get(comp.Handler)
	if !ok {
		return nil, fmt.Errorf("component %q names unregistered handler %q", b.Component, comp.Handler)
	}

	inst, created := e.instances.Acquire(b)
	if created {
		inst.Set(docKey, b.DocPath)
	}

	e.coord.Request(ctx, inst, e.renderFunc(b, comp, fn, inst))
	return lastOutput(inst)
}

// Eval evaluates a single expression against docPath's metadata. A document
// not present in the store evaluates against an empty context.
func (e *Engine) Eval(expression, docPath string) (expr.Value, error) {
	doc, ok := e.store.Document(docPath)
	if !ok {
		doc = &metadata.Document{Path: docPath}
	}
	return e.resolver.Eval(expression, doc)
}

// DestroyDocument tears down every instance mounted on the given document,
// as happens when its container is removed.
func (e *Engine) DestroyDocument(path string) {
	e.instances.DestroyAll(func(in *registry.Instance) bool {
		doc, ok := in.Get(docKey)
		return ok && doc == path
	})
}

// Close destroys every live instance.
func (e *Engine) Close() {
	e.instances.DestroyAll(nil)
}

func (e *Engine) renderFunc(b *Block, comp *manifest.Component, fn handlers.Func, inst *registry.Instance) render.RenderFunc {
	var renderFn render.RenderFunc
	trigger := func() {
		e.coord.Request(context.Background(), inst, renderFn)
	}

	renderFn = func(ctx context.Context) error {
		logger := ctxlog.FromContext(ctx)

		doc, ok := e.store.Document(b.DocPath)
		if !ok {
			doc = &metadata.Document{Path: b.DocPath}
		}
		res := e.resolver.Resolve(ctx, b.Source, doc, comp.AliasTable())

		// Strategies attach once per instance, after the first resolution
		// has produced the watched key set.
		if _, attached := inst.Get(attachedKey); !attached {
			inst.Set(attachedKey, true)
			strategies := refresh.Dedupe(append(
				append([]refresh.Strategy(nil), comp.Refresh...),
				refresh.Infer(&res.Watched, res.Args)...,
			))
			e.refresher.Attach(ctx, refresh.Binding{
				Instance:    inst,
				DocPath:     b.DocPath,
				Watched:     &res.Watched,
				InSidePanel: b.InSidePanel,
				Trigger:     trigger,
			}, strategies)
		}

		if !res.Enabled {
			logger.Debug("Block disabled, skipping render.", "component", b.Component, "doc", b.DocPath)
			setOutput(inst, &Output{Component: b.Component})
			return nil
		}

		args, err := comp.ValidateArgs(res)
		if err != nil {
			setError(inst, err)
			return err
		}

		body, err := fn(ctx, &handlers.RenderContext{
			Doc:          doc,
			Store:        e.store,
			Args:         args,
			CSSOverrides: res.CSSOverrides,
			Instance:     inst,
			Clock:        e.clk,
		})
		if err != nil {
			setError(inst, err)
			return err
		}

		setOutput(inst, &Output{
			Component:    b.Component,
			Enabled:      true,
			Body:         body,
			Args:         args,
			CSSOverrides: res.CSSOverrides,
		})

		if res.RecoveryNeeded {
			e.coord.ArmRecovery(ctx, inst, b.DocPath, e.missingFileRefs(b.DocPath, &res.Watched), trigger)
		}
		return nil
	}
	return renderFn
}

// missingFileRefs re-reads the document and returns every file.-rooted
// watched access that still has no value.
func (e *Engine) missingFileRefs(docPath string, watched *resolver.WatchedKeys) []expr.Access {
	var mctx expr.MapContext
	if doc, ok := e.store.Document(docPath); ok {
		mctx = doc.Context()
	}
	var out []expr.Access
	for _, a := range watched.Accesses() {
		if a.Root != "file" {
			continue
		}
		if mctx.Lookup(a.Path).IsMissing() {
			out = append(out, a)
		}
	}
	return out
}

func setOutput(inst *registry.Instance, out *Output) {
	inst.Set(outputKey, out)
	inst.Delete(errorKey)
}

func setError(inst *registry.Instance, err error) {
	inst.Set(errorKey, err)
}

func lastOutput(inst *registry.Instance) (*Output, error) {
	var out *Output
	if v, ok := inst.Get(outputKey); ok {
		out = v.(*Output)
	}
	if v, ok := inst.Get(errorKey); ok {
		return out, v.(error)
	}
	return out, nil
}
