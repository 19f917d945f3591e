// Package loop provides the single event loop every tray component runs on.
//
// D-Bus signal goroutines, X11 event readers, file watchers and timers never
// touch the tray model directly; they post closures with [Loop.Post] and the
// loop executes them one at a time.
package loop

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Stopper cancels a pending timer.
type Stopper interface {
	// Stop prevents the timer callback from running. It reports whether the
	// call stopped the timer, false if it already ran or was stopped.
	Stop() bool
}

// Scheduler runs callbacks after a delay on the event loop.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) Stopper
}

// Loop is a serial executor of posted closures.
type Loop struct {
	queue chan func()
	done  chan struct{}
	once  sync.Once
}

// New returns a new [Loop] with a buffered queue.
func New() *Loop {
	return &Loop{
		queue: make(chan func(), 256),
		done:  make(chan struct{}),
	}
}

// Post schedules fn to run on the loop. It is safe to call from any
// goroutine. Closures posted after the loop stopped are dropped.
func (l *Loop) Post(fn func()) {
	select {
	case <-l.done:
	case l.queue <- fn:
	}
}

// Run executes posted closures until ctx is done.
func (l *Loop) Run(ctx context.Context) error {
	defer l.once.Do(func() { close(l.done) })

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case fn := <-l.queue:
			fn()
		}
	}
}

// AfterFunc runs fn on the loop once d elapses.
//
// The cancellation flag is checked on the loop itself, so a timer stopped
// from a loop callback never runs, even if it already expired and its
// closure is queued.
func (l *Loop) AfterFunc(d time.Duration, fn func()) Stopper {
	t := &timer{}
	t.timer = time.AfterFunc(d, func() {
		l.Post(func() {
			if t.fired.CompareAndSwap(false, true) {
				fn()
			}
		})
	})

	return t
}

type timer struct {
	timer *time.Timer
	fired atomic.Bool
}

func (t *timer) Stop() bool {
	t.timer.Stop()
	return t.fired.CompareAndSwap(false, true)
}
