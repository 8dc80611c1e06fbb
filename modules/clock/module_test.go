package clock

import (
	"context"
	"testing"
	"time"

	bclock "github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"

	"github.com/ccmdi/blockkit/internal/handlers"
)

func TestRenderClock(t *testing.T) {
	clk := bclock.NewMock()
	clk.Set(time.Date(2026, 1, 12, 9, 30, 15, 0, time.UTC))

	out, err := RenderClock(context.Background(), &handlers.RenderContext{
		Args: map[string]cty.Value{
			"format": cty.StringVal("15:04:05"),
			"label":  cty.StringVal(""),
		},
		Clock: clk,
	})
	require.NoError(t, err)
	assert.Equal(t, "09:30:15", out)
}

func TestRenderClock_Label(t *testing.T) {
	clk := bclock.NewMock()
	clk.Set(time.Date(2026, 1, 12, 9, 30, 15, 0, time.UTC))

	out, err := RenderClock(context.Background(), &handlers.RenderContext{
		Args: map[string]cty.Value{
			"format": cty.StringVal("2006-01-02"),
			"label":  cty.StringVal("today:"),
		},
		Clock: clk,
	})
	require.NoError(t, err)
	assert.Equal(t, "today: 2026-01-12", out)
}
