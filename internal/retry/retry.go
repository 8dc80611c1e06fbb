// Package retry provides an exponential-backoff wrapper for fallible
// operations tied to an instance lifecycle. Cancelling is idempotent and
// is registered as instance cleanup, so destroying the instance stops
// every outstanding retry.
package retry

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/ccmdi/blockkit/internal/registry"
)

// Options configures a retryable operation.
type Options struct {
	// MaxRetries bounds the number of failed attempts before the
	// operation is considered exhausted.
	MaxRetries int

	// BaseDelay is the delay after the first failure; each subsequent
	// failure doubles it, capped at MaxDelay.
	BaseDelay time.Duration
	MaxDelay  time.Duration

	// OnError is called after every failed attempt with the attempt
	// number (1-based) and the delay before the next attempt, or nil
	// when no attempts remain.
	OnError func(err error, attempt int, next *time.Duration)

	// OnSuccess is called after every successful attempt.
	OnSuccess func()
}

// Op is a small explicit state machine around a fallible operation:
// an attempt counter, a cancelled flag, and at most one pending timer.
type Op struct {
	op   func() error
	opts Options
	clk  clock.Clock

	mu        sync.Mutex
	attempt   int
	cancelled bool
	timer     *clock.Timer
}

// New builds a retryable wrapper around op and registers its Cancel as a
// cleanup on inst. A nil clk falls back to the real clock.
func New(inst *registry.Instance, op func() error, opts Options, clk clock.Clock) *Op {
	if clk == nil {
		clk = clock.New()
	}
	r := &Op{op: op, opts: opts, clk: clk}
	if inst != nil {
		inst.OnDestroy(r.Cancel)
	}
	return r
}

// Retry invokes the operation. On success the attempt counter resets and
// OnSuccess runs. On failure the counter increments, OnError reports the
// computed backoff delay (nil when attempts are exhausted), and a timer
// re-invokes Retry after that delay unless cancelled or exhausted.
func (r *Op) Retry() {
	r.mu.Lock()
	if r.cancelled {
		r.mu.Unlock()
		return
	}
	if r.timer != nil {
		r.timer.Stop()
	}
	r.timer = nil
	r.mu.Unlock()

	err := r.op()

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancelled {
		return
	}
	if err == nil {
		r.attempt = 0
		if r.opts.OnSuccess != nil {
			r.opts.OnSuccess()
		}
		return
	}

	r.attempt++
	delay := r.backoff(r.attempt)
	exhausted := r.attempt >= r.opts.MaxRetries

	if r.opts.OnError != nil {
		var next *time.Duration
		if !exhausted {
			d := delay
			next = &d
		}
		r.opts.OnError(err, r.attempt, next)
	}
	if exhausted {
		return
	}
	r.timer = r.clk.AfterFunc(delay, r.Retry)
}

// Cancel marks the operation cancelled and clears any pending timer.
// It is safe to call more than once.
func (r *Op) Cancel() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cancelled = true
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
}

func (r *Op) backoff(attempt int) time.Duration {
	d := r.opts.BaseDelay
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= r.opts.MaxDelay {
			return r.opts.MaxDelay
		}
	}
	if d > r.opts.MaxDelay {
		return r.opts.MaxDelay
	}
	return d
}
