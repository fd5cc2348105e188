// Package loop runs posted work to completion on a single goroutine and
// provides a rendering-frame clock for deferred callbacks.
package loop

import (
	"context"
	"sync"
	"time"
)

// DefaultFrameInterval approximates one display frame.
const DefaultFrameInterval = 16 * time.Millisecond

type Loop struct {
	interval time.Duration

	mu      sync.Mutex
	tasks   []func()
	frames  []func()
	timer   *time.Timer
	frameID uint64
	idle    []func()
	wake    chan struct{}
}

func New(interval time.Duration) *Loop {
	if interval <= 0 {
		interval = DefaultFrameInterval
	}
	return &Loop{
		interval: interval,
		wake:     make(chan struct{}, 1),
	}
}

// Interval returns the frame interval.
func (l *Loop) Interval() time.Duration { return l.interval }

// Post queues fn to run on the loop. It is safe to call from any goroutine.
func (l *Loop) Post(fn func()) {
	if fn == nil {
		return
	}
	l.mu.Lock()
	l.tasks = append(l.tasks, fn)
	l.mu.Unlock()
	l.signal()
}

// RequestFrame queues fn for the next frame boundary. Callbacks requested
// while a frame is running wait for the following frame.
func (l *Loop) RequestFrame(fn func()) {
	if fn == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.frames = append(l.frames, fn)
	if l.timer != nil {
		return
	}
	id := l.frameID
	l.timer = time.AfterFunc(l.interval, func() {
		l.Post(func() { l.runFrame(id) })
	})
}

// OnIdle registers fn to run on the loop whenever the task queue empties.
func (l *Loop) OnIdle(fn func()) {
	l.mu.Lock()
	l.idle = append(l.idle, fn)
	l.mu.Unlock()
}

func (l *Loop) signal() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

func (l *Loop) runFrame(id uint64) {
	l.mu.Lock()
	if id != l.frameID {
		l.mu.Unlock()
		return
	}
	callbacks := l.frames
	l.frames = nil
	l.timer = nil
	l.frameID++
	l.mu.Unlock()

	for _, fn := range callbacks {
		fn()
	}
}

// runTasks executes queued tasks until the queue is empty and reports
// whether any ran.
func (l *Loop) runTasks() bool {
	ran := false
	for {
		l.mu.Lock()
		if len(l.tasks) == 0 {
			l.mu.Unlock()
			return ran
		}
		fn := l.tasks[0]
		l.tasks[0] = nil
		l.tasks = l.tasks[1:]
		l.mu.Unlock()

		fn()
		ran = true
	}
}

func (l *Loop) runIdle() {
	l.mu.Lock()
	hooks := append([]func(){}, l.idle...)
	l.mu.Unlock()
	for _, fn := range hooks {
		fn()
	}
}

// Run processes tasks until ctx is done.
func (l *Loop) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-l.wake:
		}
		if l.runTasks() {
			l.runIdle()
		}
	}
}

// Drain runs every queued task and forces pending frames until nothing is
// left to do. It must not be called while Run is active.
func (l *Loop) Drain() {
	for {
		if l.runTasks() {
			continue
		}

		l.mu.Lock()
		if len(l.frames) == 0 {
			l.mu.Unlock()
			break
		}
		if l.timer != nil {
			l.timer.Stop()
		}
		id := l.frameID
		l.mu.Unlock()

		l.runFrame(id)
	}
	l.runIdle()
}

// Pending reports whether tasks or frame callbacks are waiting.
func (l *Loop) Pending() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.tasks) > 0 || len(l.frames) > 0
}
