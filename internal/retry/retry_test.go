package retry

import (
	"errors"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ccmdi/blockkit/internal/registry"
)

func waitDelay(t *testing.T, ch <-chan *time.Duration) *time.Duration {
	t.Helper()
	select {
	case d := <-ch:
		return d
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for OnError")
		return nil
	}
}

func TestRetry_BackoffSequence(t *testing.T) {
	clk := clock.NewMock()
	delays := make(chan *time.Duration, 1)

	op := New(nil, func() error { return errors.New("boom") }, Options{
		MaxRetries: 10,
		BaseDelay:  5000 * time.Millisecond,
		MaxDelay:   60000 * time.Millisecond,
		OnError: func(_ error, _ int, next *time.Duration) {
			delays <- next
		},
	}, clk)

	op.Retry()

	want := []time.Duration{
		5000 * time.Millisecond,
		10000 * time.Millisecond,
		20000 * time.Millisecond,
		40000 * time.Millisecond,
		60000 * time.Millisecond,
		60000 * time.Millisecond,
	}
	for i, w := range want {
		next := waitDelay(t, delays)
		require.NotNil(t, next, "attempt %d", i+1)
		assert.Equal(t, w, *next, "attempt %d", i+1)
		clk.Add(*next)
	}
	op.Cancel()
}

func TestRetry_SuccessResetsAttempts(t *testing.T) {
	clk := clock.NewMock()
	fail := true
	successes := 0
	var got []time.Duration

	op := New(nil, func() error {
		if fail {
			return errors.New("boom")
		}
		return nil
	}, Options{
		MaxRetries: 10,
		BaseDelay:  5 * time.Second,
		MaxDelay:   60 * time.Second,
		OnError: func(_ error, _ int, next *time.Duration) {
			if next != nil {
				got = append(got, *next)
			}
		},
		OnSuccess: func() { successes++ },
	}, clk)

	op.Retry()
	op.Retry()
	require.Equal(t, []time.Duration{5 * time.Second, 10 * time.Second}, got)

	fail = false
	op.Retry()
	require.Equal(t, 1, successes)

	// The counter reset, so the next failure starts over at BaseDelay.
	fail = true
	op.Retry()
	require.Equal(t, 5*time.Second, got[len(got)-1])
	op.Cancel()
}

func TestRetry_ExhaustionReportsNilDelay(t *testing.T) {
	clk := clock.NewMock()
	var nexts []*time.Duration

	op := New(nil, func() error { return errors.New("boom") }, Options{
		MaxRetries: 2,
		BaseDelay:  time.Second,
		MaxDelay:   time.Minute,
		OnError: func(_ error, _ int, next *time.Duration) {
			nexts = append(nexts, next)
		},
	}, clk)

	op.Retry()
	op.Retry()
	require.Len(t, nexts, 2)
	assert.NotNil(t, nexts[0])
	assert.Nil(t, nexts[1])

	// Exhausted: nothing is scheduled, so advancing time runs no ops.
	clk.Add(10 * time.Minute)
	assert.Len(t, nexts, 2)
}

func TestRetry_CancelStopsPendingTimer(t *testing.T) {
	clk := clock.NewMock()
	calls := 0

	op := New(nil, func() error {
		calls++
		return errors.New("boom")
	}, Options{
		MaxRetries: 10,
		BaseDelay:  time.Second,
		MaxDelay:   time.Minute,
	}, clk)

	op.Retry()
	require.Equal(t, 1, calls)

	op.Cancel()
	op.Cancel()
	clk.Add(time.Hour)
	assert.Equal(t, 1, calls)
}

func TestRetry_DestroyingInstanceCancels(t *testing.T) {
	clk := clock.NewMock()
	reg := registry.New()
	inst := reg.Create(&registry.Stamp{})
	calls := 0

	op := New(inst, func() error {
		calls++
		return errors.New("boom")
	}, Options{
		MaxRetries: 10,
		BaseDelay:  time.Second,
		MaxDelay:   time.Minute,
	}, clk)

	op.Retry()
	require.Equal(t, 1, calls)

	inst.Destroy()
	clk.Add(time.Hour)
	assert.Equal(t, 1, calls)
}
