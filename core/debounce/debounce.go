// Package debounce delays a call until a burst of triggers has quieted down.
package debounce

import (
	"context"
	"sync"
	"time"
)

// Timer is the part of *time.Timer used by the Debouncer.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f after d. time.AfterFunc is used unless overridden.
type AfterFunc func(d time.Duration, f func()) Timer

func stdAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

type Option func(*Debouncer)

// WithAfterFunc overrides the timer factory (tests drive time manually with it).
func WithAfterFunc(fn AfterFunc) Option {
	return func(d *Debouncer) { d.afterFunc = fn }
}

// Debouncer runs only the last call of each burst, `delay` after that call.
// A Debouncer is safe for concurrent use.
type Debouncer struct {
	delay     time.Duration
	afterFunc AfterFunc

	mu    sync.Mutex
	timer Timer
	gen   uint64
}

func New(delay time.Duration, opts ...Option) *Debouncer {
	d := &Debouncer{delay: delay, afterFunc: stdAfterFunc}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Delay returns the quiet period.
func (d *Debouncer) Delay() time.Duration {
	return d.delay
}

// Trigger cancels any pending call and schedules fn.
// ctx is the cancellation token: fn is skipped if ctx is done when the delay elapses, and receives ctx otherwise.
func (d *Debouncer) Trigger(ctx context.Context, fn func(context.Context)) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopLocked()
	d.gen++
	gen := d.gen
	d.timer = d.afterFunc(d.delay, func() {
		d.mu.Lock()
		// a newer Trigger or a Cancel may have raced with this timer firing
		current := gen == d.gen
		if current {
			d.timer = nil
		}
		d.mu.Unlock()

		if !current || ctx.Err() != nil {
			return
		}
		fn(ctx)
	})
}

// Cancel drops the pending call, if any.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopLocked()
	d.gen++
}

// Pending reports whether a call is scheduled.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}

func (d *Debouncer) stopLocked() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
