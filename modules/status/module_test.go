package status

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	bclock "github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"

	"github.com/ccmdi/blockkit/internal/handlers"
	"github.com/ccmdi/blockkit/internal/registry"
)

func statusContext(clk bclock.Clock, inst *registry.Instance) *handlers.RenderContext {
	return &handlers.RenderContext{
		Args: map[string]cty.Value{
			"target":      cty.StringVal("db"),
			"max-retries": cty.NumberIntVal(5),
			"base-delay":  cty.NumberIntVal(5000),
			"max-delay":   cty.NumberIntVal(60000),
		},
		Instance: inst,
		Clock:    clk,
	}
}

func register(t *testing.T, m *Module) handlers.Func {
	t.Helper()
	h := handlers.New()
	m.Register(h)
	fn, ok := h.Get("RenderStatus")
	require.True(t, ok)
	return fn
}

func TestRenderStatus_OKOnFirstProbe(t *testing.T) {
	fn := register(t, &Module{})
	inst := registry.New().Create(&registry.Stamp{})

	out, err := fn(context.Background(), statusContext(bclock.NewMock(), inst))
	require.NoError(t, err)
	assert.Equal(t, "db: ok", out)
}

func TestRenderStatus_RetriesWithBackoff(t *testing.T) {
	var healthy atomic.Bool
	fn := register(t, &Module{
		Probe: func(string) error {
			if healthy.Load() {
				return nil
			}
			return errors.New("connection refused")
		},
	})

	clk := bclock.NewMock()
	inst := registry.New().Create(&registry.Stamp{})
	rc := statusContext(clk, inst)

	out, err := fn(context.Background(), rc)
	require.NoError(t, err)
	assert.Equal(t, "db: retrying in 5s (attempt 1)", out)

	// The scheduled retry fires once the backoff elapses, and succeeds now
	// that the target is healthy.
	healthy.Store(true)
	clk.Add(5 * time.Second)

	require.Eventually(t, func() bool {
		state, _ := inst.Get(stateKey)
		return state == "db: ok"
	}, 2*time.Second, 10*time.Millisecond)

	// A later render reports the recovered state without re-probing.
	out, err = fn(context.Background(), rc)
	require.NoError(t, err)
	assert.Equal(t, "db: ok", out)
}

func TestRenderStatus_ExhaustionIsTerminal(t *testing.T) {
	fn := register(t, &Module{
		Probe: func(string) error { return errors.New("connection refused") },
	})

	clk := bclock.NewMock()
	inst := registry.New().Create(&registry.Stamp{})
	rc := statusContext(clk, inst)
	rc.Args["max-retries"] = cty.NumberIntVal(2)

	_, err := fn(context.Background(), rc)
	require.NoError(t, err)

	clk.Add(5 * time.Second)
	require.Eventually(t, func() bool {
		state, _ := inst.Get(stateKey)
		return state == "db: unreachable after 2 attempts: connection refused"
	}, 2*time.Second, 10*time.Millisecond)

	// Nothing further is scheduled.
	clk.Add(time.Hour)
	state, _ := inst.Get(stateKey)
	assert.Equal(t, "db: unreachable after 2 attempts: connection refused", state)
}

func TestRenderStatus_DestroyCancelsProbe(t *testing.T) {
	var calls atomic.Int32
	fn := register(t, &Module{
		Probe: func(string) error {
			calls.Add(1)
			return errors.New("connection refused")
		},
	})

	clk := bclock.NewMock()
	inst := registry.New().Create(&registry.Stamp{})

	_, err := fn(context.Background(), statusContext(clk, inst))
	require.NoError(t, err)
	require.Equal(t, int32(1), calls.Load())

	inst.Destroy()
	clk.Add(time.Hour)
	assert.Equal(t, int32(1), calls.Load())
}
