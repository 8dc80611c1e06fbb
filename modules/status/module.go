// Package status renders an availability probe that retries failed checks
// with exponential backoff. The probe itself is pluggable; the widget only
// reports the probe's latest state.
package status

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/zclconf/go-cty/cty"

	"github.com/ccmdi/blockkit/internal/handlers"
	"github.com/ccmdi/blockkit/internal/registry"
	"github.com/ccmdi/blockkit/internal/retry"
)

//go:embed manifest.hcl
var manifestHCL []byte

const (
	opKey    = "status.op"
	stateKey = "status.state"
)

// Module implements the handlers.Module interface for this package.
type Module struct {
	// Probe checks the target. A nil probe always succeeds.
	Probe func(target string) error
}

// Manifest returns the embedded component manifest.
func (m *Module) Manifest() []byte { return manifestHCL }

// Register registers the handler with the engine.
func (m *Module) Register(h *handlers.Handlers) {
	probe := m.Probe
	if probe == nil {
		probe = func(string) error { return nil }
	}
	h.Register("RenderStatus", func(ctx context.Context, rc *handlers.RenderContext) (string, error) {
		return renderStatus(ctx, rc, probe)
	})
}

func renderStatus(_ context.Context, rc *handlers.RenderContext, probe func(string) error) (string, error) {
	target := rc.Args["target"].AsString()

	// The probe starts on the first render; later renders only report the
	// state the retry callbacks have written since.
	if _, running := rc.Instance.Get(opKey); !running {
		inst := rc.Instance
		setState(inst, fmt.Sprintf("%s: checking", target))

		op := retry.New(inst, func() error { return probe(target) }, retry.Options{
			MaxRetries: asInt(rc.Args["max-retries"]),
			BaseDelay:  asMillis(rc.Args["base-delay"]),
			MaxDelay:   asMillis(rc.Args["max-delay"]),
			OnError: func(err error, attempt int, next *time.Duration) {
				if next == nil {
					setState(inst, fmt.Sprintf("%s: unreachable after %d attempts: %v", target, attempt, err))
					return
				}
				setState(inst, fmt.Sprintf("%s: retrying in %s (attempt %d)", target, next, attempt))
			},
			OnSuccess: func() {
				setState(inst, fmt.Sprintf("%s: ok", target))
			},
		}, rc.Clock)
		inst.Set(opKey, op)
		op.Retry()
	}

	state, _ := rc.Instance.Get(stateKey)
	return state.(string), nil
}

func setState(inst *registry.Instance, s string) {
	inst.Set(stateKey, s)
}

func asInt(v cty.Value) int {
	f, _ := v.AsBigFloat().Float64()
	return int(f)
}

func asMillis(v cty.Value) time.Duration {
	f, _ := v.AsBigFloat().Float64()
	return time.Duration(f) * time.Millisecond
}
