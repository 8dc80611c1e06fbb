// Package clock renders the current wall-clock time.
package clock

import (
	"context"
	_ "embed"

	"github.com/ccmdi/blockkit/internal/handlers"
)

//go:embed manifest.hcl
var manifestHCL []byte

// Module implements the handlers.Module interface for this package.
type Module struct{}

// Manifest returns the embedded component manifest.
func (m *Module) Manifest() []byte { return manifestHCL }

// Register registers the handler with the engine.
func (m *Module) Register(h *handlers.Handlers) {
	h.Register("RenderClock", RenderClock)
}

// RenderClock formats the engine clock's current time. Using the engine
// clock rather than time.Now keeps interval refreshes and the rendered
// value in step, and makes the widget testable against a mock clock.
func RenderClock(_ context.Context, rc *handlers.RenderContext) (string, error) {
	out := rc.Clock.Now().Format(rc.Args["format"].AsString())
	if label := rc.Args["label"].AsString(); label != "" {
		out = label + " " + out
	}
	return out, nil
}
