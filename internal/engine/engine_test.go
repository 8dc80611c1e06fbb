package engine

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ccmdi/blockkit/internal/expr"
	"github.com/ccmdi/blockkit/internal/handlers"
	"github.com/ccmdi/blockkit/internal/manifest"
	"github.com/ccmdi/blockkit/internal/metadata"
)

const echoManifest = `
component "echo" {
  handler = "RenderEcho"
  css     = ["accent-color"]

  input "title" {
    type    = string
    default = ""
  }

  input "query" {
    type    = string
    default = ""
    aliases = ["q"]
  }
}
`

type fixture struct {
	store  *metadata.MemStore
	clk    *clock.Mock
	engine *Engine

	mu      sync.Mutex
	renders int
	last    map[string]string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store: metadata.NewMemStore(),
		clk:   clock.NewMock(),
		last:  map[string]string{},
	}

	components, err := manifest.ParseBytes(context.Background(), []byte(echoManifest), "echo.hcl")
	require.NoError(t, err)
	set, err := manifest.NewSet(components...)
	require.NoError(t, err)

	h := handlers.New()
	h.Register("RenderEcho", func(_ context.Context, rc *handlers.RenderContext) (string, error) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.renders++
		f.last = map[string]string{}
		for k, v := range rc.Args {
			f.last[k] = v.AsString()
		}
		return fmt.Sprintf("title=%s", f.last["title"]), nil
	})

	f.engine = New(Options{
		Manifests: set,
		Handlers:  h,
		Store:     f.store,
		Bus:       f.store,
		Clock:     f.clk,
	})
	require.NoError(t, f.engine.Validate())
	return f
}

func (f *fixture) renderCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.renders
}

func TestRenderBlock_EndToEnd(t *testing.T) {
	f := newFixture(t)
	f.store.SetFrontMatter("notes/a.md", map[string]expr.Value{
		"title": expr.StringVal("Quarterly Plan"),
	})

	out, err := f.engine.RenderBlock(context.Background(), &Block{
		Component: "echo",
		Source:    "title=fm.title\naccent-color!=red",
		DocPath:   "notes/a.md",
	})
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.True(t, out.Enabled)
	assert.Equal(t, "title=Quarterly Plan", out.Body)
	assert.Equal(t, map[string]string{"accent-color": "red"}, out.CSSOverrides)
}

func TestRenderBlock_UnknownComponent(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.RenderBlock(context.Background(), &Block{
		Component: "ghost",
		DocPath:   "a.md",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown component")
}

func TestRenderBlock_AliasResolvesToCanonicalInput(t *testing.T) {
	f := newFixture(t)
	f.store.SetFrontMatter("a.md", map[string]expr.Value{})

	_, err := f.engine.RenderBlock(context.Background(), &Block{
		Component: "echo",
		Source:    `q="#projects"`,
		DocPath:   "a.md",
	})
	require.NoError(t, err)

	f.mu.Lock()
	defer f.mu.Unlock()
	assert.Equal(t, "#projects", f.last["query"])
}

func TestRenderBlock_EnabledGate(t *testing.T) {
	f := newFixture(t)
	f.store.SetFrontMatter("a.md", map[string]expr.Value{})

	out, err := f.engine.RenderBlock(context.Background(), &Block{
		Component: "echo",
		Source:    "enabled=false\ntitle=hi",
		DocPath:   "a.md",
	})
	require.NoError(t, err)
	assert.False(t, out.Enabled)
	assert.Equal(t, 0, f.renderCount())
}

func TestRenderBlock_InvalidPropertySurfaces(t *testing.T) {
	f := newFixture(t)
	f.store.SetFrontMatter("a.md", map[string]expr.Value{})

	_, err := f.engine.RenderBlock(context.Background(), &Block{
		Component: "echo",
		Source:    "font-size!=12px",
		DocPath:   "a.md",
	})
	var invalid *manifest.InvalidPropertyError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "font-size", invalid.Property)
}

func TestRenderBlock_ReusesInstance(t *testing.T) {
	f := newFixture(t)
	f.store.SetFrontMatter("a.md", map[string]expr.Value{})

	b := &Block{Component: "echo", Source: "title=hi", DocPath: "a.md"}
	_, err := f.engine.RenderBlock(context.Background(), b)
	require.NoError(t, err)
	_, err = f.engine.RenderBlock(context.Background(), b)
	require.NoError(t, err)

	assert.Equal(t, 1, f.engine.Instances().Len())
	assert.Equal(t, 2, f.renderCount())
}

func TestRenderBlock_InferredMetadataRefresh(t *testing.T) {
	f := newFixture(t)
	f.store.SetFrontMatter("a.md", map[string]expr.Value{
		"title": expr.StringVal("one"),
	})

	_, err := f.engine.RenderBlock(context.Background(), &Block{
		Component: "echo",
		Source:    "title=fm.title",
		DocPath:   "a.md",
	})
	require.NoError(t, err)
	require.Equal(t, 1, f.renderCount())

	// A change to the watched key re-renders through the refresh engine.
	f.store.SetFrontMatter("a.md", map[string]expr.Value{
		"title": expr.StringVal("two"),
	})
	assert.Equal(t, 2, f.renderCount())

	f.mu.Lock()
	assert.Equal(t, "two", f.last["title"])
	f.mu.Unlock()

	// Republishing the same value is suppressed by the smart diff.
	f.store.SetFrontMatter("a.md", map[string]expr.Value{
		"title": expr.StringVal("two"),
	})
	assert.Equal(t, 2, f.renderCount())
}

func TestRenderBlock_RecoversWhenFileRefAppears(t *testing.T) {
	f := newFixture(t)
	f.store.SetFrontMatter("a.md", map[string]expr.Value{})

	out, err := f.engine.RenderBlock(context.Background(), &Block{
		Component: "echo",
		Source:    "title=file.status",
		DocPath:   "a.md",
	})
	require.NoError(t, err)
	assert.Equal(t, "title=", out.Body)

	f.store.SetFrontMatter("a.md", map[string]expr.Value{
		"status": expr.StringVal("done"),
	})

	f.mu.Lock()
	defer f.mu.Unlock()
	assert.Equal(t, "done", f.last["title"])
}

func TestDestroyDocument(t *testing.T) {
	f := newFixture(t)
	f.store.SetFrontMatter("a.md", map[string]expr.Value{})
	f.store.SetFrontMatter("b.md", map[string]expr.Value{})

	_, err := f.engine.RenderBlock(context.Background(), &Block{Component: "echo", Source: "title=x", DocPath: "a.md"})
	require.NoError(t, err)
	_, err = f.engine.RenderBlock(context.Background(), &Block{Component: "echo", Source: "title=y", DocPath: "b.md"})
	require.NoError(t, err)
	require.Equal(t, 2, f.engine.Instances().Len())

	f.engine.DestroyDocument("a.md")
	assert.Equal(t, 1, f.engine.Instances().Len())

	f.engine.Close()
	assert.Equal(t, 0, f.engine.Instances().Len())
}

func TestValidate_ReportsOrphanHandler(t *testing.T) {
	f := newFixture(t)
	components, err := manifest.ParseBytes(context.Background(), []byte(echoManifest), "echo.hcl")
	require.NoError(t, err)
	set, err := manifest.NewSet(components...)
	require.NoError(t, err)

	h := handlers.New()
	h.Register("RenderEcho", func(context.Context, *handlers.RenderContext) (string, error) { return "", nil })
	h.Register("RenderGhost", func(context.Context, *handlers.RenderContext) (string, error) { return "", nil })

	e := New(Options{Manifests: set, Handlers: h, Store: f.store, Bus: f.store, Clock: f.clk})
	err = e.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RenderGhost")
}
