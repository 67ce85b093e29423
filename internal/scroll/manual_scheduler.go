package scroll

import (
	"sort"
	"time"
)

// ManualScheduler is a deterministic Scheduler: time only moves through
// Advance and frames only run through Frame.
type ManualScheduler struct {
	now    time.Time
	seq    int
	timers []*manualTimer
	frames []*manualTimer
}

type manualTimer struct {
	at      time.Time
	seq     int
	fn      func()
	stopped bool
}

func (t *manualTimer) Stop() bool {
	if t.stopped {
		return false
	}
	t.stopped = true
	return true
}

// NewManualScheduler starts the virtual clock at a fixed instant.
func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (s *ManualScheduler) Now() time.Time { return s.now }

func (s *ManualScheduler) After(d time.Duration, fn func()) Timer {
	s.seq++
	t := &manualTimer{at: s.now.Add(d), seq: s.seq, fn: fn}
	s.timers = append(s.timers, t)
	return t
}

func (s *ManualScheduler) NextFrame(fn func()) Timer {
	s.seq++
	t := &manualTimer{at: s.now, seq: s.seq, fn: fn}
	s.frames = append(s.frames, t)
	return t
}

// Frame runs the callbacks queued before this call. Callbacks queued while
// running wait for the next Frame.
func (s *ManualScheduler) Frame() {
	queued := s.frames
	s.frames = nil
	for _, t := range queued {
		if t.stopped {
			continue
		}
		t.stopped = true
		t.fn()
	}
}

// Frames runs n frames.
func (s *ManualScheduler) Frames(n int) {
	for i := 0; i < n; i++ {
		s.Frame()
	}
}

// Advance moves the clock forward, firing due timers in order.
func (s *ManualScheduler) Advance(d time.Duration) {
	target := s.now.Add(d)
	for {
		t := s.nextDue(target)
		if t == nil {
			break
		}
		if t.at.After(s.now) {
			s.now = t.at
		}
		t.stopped = true
		t.fn()
	}
	s.now = target
}

// Settle runs frames and fires timers until nothing is pending within
// horizon.
func (s *ManualScheduler) Settle(horizon time.Duration) {
	for i := 0; i < 64; i++ {
		s.Frames(4)
		before := s.PendingTimers()
		s.Advance(horizon)
		if len(s.frames) == 0 && before == 0 {
			return
		}
	}
}

// PendingTimers counts timers that have neither fired nor been stopped.
func (s *ManualScheduler) PendingTimers() int {
	n := 0
	for _, t := range s.timers {
		if !t.stopped {
			n++
		}
	}
	return n
}

// PendingFrames counts queued frame callbacks.
func (s *ManualScheduler) PendingFrames() int {
	n := 0
	for _, t := range s.frames {
		if !t.stopped {
			n++
		}
	}
	return n
}

func (s *ManualScheduler) nextDue(limit time.Time) *manualTimer {
	live := s.timers[:0]
	for _, t := range s.timers {
		if !t.stopped {
			live = append(live, t)
		}
	}
	s.timers = live
	sort.SliceStable(s.timers, func(i, j int) bool {
		if s.timers[i].at.Equal(s.timers[j].at) {
			return s.timers[i].seq < s.timers[j].seq
		}
		return s.timers[i].at.Before(s.timers[j].at)
	})
	if len(s.timers) == 0 || s.timers[0].at.After(limit) {
		return nil
	}
	return s.timers[0]
}
