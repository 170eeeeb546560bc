package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/omochice/toy-room-chat/internal/chat"
)

// ErrClosed is returned for work submitted after the loop has stopped.
var ErrClosed = errors.New("session closed")

// Loop runs posted functions one at a time on the goroutine calling Run.
// Posting never blocks, so connection callbacks and timers can feed it
// without risking a deadlock against the loop itself.
type Loop struct {
	mu    sync.Mutex
	queue []func()
	wake  chan struct{}

	stopped  chan struct{}
	stopOnce sync.Once
}

// NewLoop creates an idle loop.
func NewLoop() *Loop {
	return &Loop{wake: make(chan struct{}, 1), stopped: make(chan struct{})}
}

// Post queues fn.
func (l *Loop) Post(fn func()) {
	l.mu.Lock()
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Do runs fn on the loop and waits for its result. It returns ErrClosed
// once Run has returned.
func (l *Loop) Do(ctx context.Context, fn func() error) error {
	done := make(chan error, 1)
	l.Post(func() { done <- fn() })
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-l.stopped:
		select {
		case err := <-done:
			return err
		default:
			return ErrClosed
		}
	}
}

// Run processes posted functions until ctx is done. A loop runs once.
func (l *Loop) Run(ctx context.Context) error {
	defer l.stop()
	select {
	case <-l.stopped:
		return ErrClosed
	default:
	}
	for {
		l.mu.Lock()
		batch := l.queue
		l.queue = nil
		l.mu.Unlock()

		for _, fn := range batch {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			fn()
		}
		if len(batch) > 0 {
			continue
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wake:
		}
	}
}

func (l *Loop) stop() {
	l.stopOnce.Do(func() { close(l.stopped) })
}

// Clock wraps base so timer callbacks run on the loop instead of the timer
// goroutine.
func (l *Loop) Clock(base chat.Clock) chat.Clock {
	return loopClock{base: base, loop: l}
}

type loopClock struct {
	base chat.Clock
	loop *Loop
}

func (c loopClock) Now() time.Time { return c.base.Now() }

func (c loopClock) AfterFunc(d time.Duration, f func()) chat.Timer {
	return c.base.AfterFunc(d, func() { c.loop.Post(f) })
}
