package main

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Timer is a pending timeout or interval
type Timer interface {
	Stop()
}

// Scheduler runs deferred callbacks on the engine's event loop
type Scheduler interface {
	SetTimeout(d time.Duration, fn func()) Timer
	SetInterval(d time.Duration, fn func()) Timer
}

// EventLoop executes tasks one at a time on a single goroutine. After every
// task the checkpoint hooks run (the page flushes its mutation records there).
type EventLoop struct {
	tasks      chan func()
	checkpoint []func()
	done       chan struct{}
	stopOnce   sync.Once
}

// NewEventLoop creates a loop with a buffered task queue
func NewEventLoop() *EventLoop {
	return &EventLoop{tasks: make(chan func(), 256), done: make(chan struct{})}
}

// OnCheckpoint adds a hook that runs after each task. Call before Run.
func (l *EventLoop) OnCheckpoint(fn func()) {
	l.checkpoint = append(l.checkpoint, fn)
}

// Post queues fn. It reports false when the loop has been stopped; tasks
// still queued at that point never run.
func (l *EventLoop) Post(fn func()) bool {
	select {
	case <-l.done:
		return false
	default:
	}
	select {
	case l.tasks <- fn:
		return true
	case <-l.done:
		return false
	}
}

// Call runs fn on the loop and waits for its result. It returns "" if the
// loop stops before fn has run.
func (l *EventLoop) Call(fn func() string) string {
	result := make(chan string, 1)
	if !l.Post(func() { result <- fn() }) {
		return ""
	}
	select {
	case r := <-result:
		return r
	case <-l.done:
		select {
		case r := <-result:
			return r
		default:
			return ""
		}
	}
}

// Done is closed once Run has returned
func (l *EventLoop) Done() <-chan struct{} {
	return l.done
}

// Run processes tasks until ctx is done
func (l *EventLoop) Run(ctx context.Context) {
	defer l.stopOnce.Do(func() { close(l.done) })
	for {
		select {
		case <-ctx.Done():
			return
		case fn := <-l.tasks:
			fn()
			for _, hook := range l.checkpoint {
				hook()
			}
		}
	}
}

type loopTimer struct {
	stopped atomic.Bool
	timer   *time.Timer
	ticker  *time.Ticker
	done    chan struct{}
}

func (t *loopTimer) Stop() {
	if t.stopped.Swap(true) {
		return
	}
	if t.timer != nil {
		t.timer.Stop()
	}
	if t.ticker != nil {
		t.ticker.Stop()
		close(t.done)
	}
}

// SetTimeout posts fn to the loop once after d unless stopped first
func (l *EventLoop) SetTimeout(d time.Duration, fn func()) Timer {
	t := &loopTimer{}
	t.timer = time.AfterFunc(d, func() {
		l.Post(func() {
			if t.stopped.Swap(true) {
				return
			}
			fn()
		})
	})
	return t
}

// SetInterval posts fn to the loop every d until stopped
func (l *EventLoop) SetInterval(d time.Duration, fn func()) Timer {
	t := &loopTimer{ticker: time.NewTicker(d), done: make(chan struct{})}
	go func() {
		for {
			select {
			case <-t.done:
				return
			case <-t.ticker.C:
				l.Post(func() {
					if !t.stopped.Load() {
						fn()
					}
				})
			}
		}
	}()
	return t
}
