package scroll

import (
	"sync"
	"sync/atomic"
	"time"
)

// Timer is a cancellable scheduled callback.
type Timer interface {
	// Stop prevents the callback from running. It reports whether the call
	// stopped a pending callback.
	Stop() bool
}

// Scheduler is the time source for every deferred step of the coordinator:
// debounce, cooldown, frame chains and retries. Callbacks always run on the
// event loop that owns the coordinator.
type Scheduler interface {
	After(d time.Duration, fn func()) Timer
	NextFrame(fn func()) Timer
	Now() time.Time
}

// DefaultFrame approximates one display refresh.
const DefaultFrame = 16 * time.Millisecond

// LoopScheduler runs timers on goroutines and hands the callbacks to
// dispatch, which must enqueue them onto the owning event loop.
type LoopScheduler struct {
	dispatch func(func())
	frame    time.Duration
}

// NewLoopScheduler creates a scheduler that delivers callbacks via dispatch.
func NewLoopScheduler(dispatch func(func()), frame time.Duration) *LoopScheduler {
	if frame <= 0 {
		frame = DefaultFrame
	}
	return &LoopScheduler{dispatch: dispatch, frame: frame}
}

type loopTimer struct {
	timer   *time.Timer
	stopped atomic.Bool
}

func (t *loopTimer) Stop() bool {
	if t.stopped.Swap(true) {
		return false
	}
	t.timer.Stop()
	return true
}

func (s *LoopScheduler) After(d time.Duration, fn func()) Timer {
	t := &loopTimer{}
	t.timer = time.AfterFunc(d, func() {
		s.dispatch(func() {
			// Stop may have raced with the dispatch; the loop is the arbiter.
			if t.stopped.Swap(true) {
				return
			}
			fn()
		})
	})
	return t
}

func (s *LoopScheduler) NextFrame(fn func()) Timer {
	return s.After(s.frame, fn)
}

func (s *LoopScheduler) Now() time.Time {
	return time.Now()
}

// timerGroup tracks outstanding timers of one component so teardown can
// cancel all of them.
type timerGroup struct {
	mu     sync.Mutex
	sched  Scheduler
	next   int
	timers map[int]Timer
}

func newTimerGroup(sched Scheduler) *timerGroup {
	return &timerGroup{sched: sched, timers: make(map[int]Timer)}
}

func (g *timerGroup) track(schedule func(func()) Timer, fn func()) Timer {
	g.mu.Lock()
	id := g.next
	g.next++
	g.mu.Unlock()

	t := schedule(func() {
		g.forget(id)
		fn()
	})

	g.mu.Lock()
	g.timers[id] = t
	g.mu.Unlock()
	return t
}

func (g *timerGroup) after(d time.Duration, fn func()) Timer {
	return g.track(func(f func()) Timer { return g.sched.After(d, f) }, fn)
}

func (g *timerGroup) nextFrame(fn func()) Timer {
	return g.track(g.sched.NextFrame, fn)
}

// frames runs fn after n frames.
func (g *timerGroup) frames(n int, fn func()) {
	if n <= 0 {
		fn()
		return
	}
	g.nextFrame(func() { g.frames(n-1, fn) })
}

func (g *timerGroup) forget(id int) {
	g.mu.Lock()
	delete(g.timers, id)
	g.mu.Unlock()
}

func (g *timerGroup) pending() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.timers)
}

func (g *timerGroup) stopAll() {
	g.mu.Lock()
	timers := g.timers
	g.timers = make(map[int]Timer)
	g.mu.Unlock()
	for _, t := range timers {
		t.Stop()
	}
}
