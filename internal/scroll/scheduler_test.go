package scroll

import (
	"testing"
	"time"
)

func TestLoopSchedulerDispatchesOnLoop(t *testing.T) {
	loop := make(chan func(), 4)
	s := NewLoopScheduler(func(fn func()) { loop <- fn }, time.Millisecond)

	ran := false
	s.After(2*time.Millisecond, func() { ran = true })

	select {
	case fn := <-loop:
		if ran {
			t.Fatal("callback ran off the loop")
		}
		fn()
	case <-time.After(time.Second):
		t.Fatal("timer never dispatched")
	}
	if !ran {
		t.Fatal("callback did not run")
	}
}

func TestLoopSchedulerStopBeforeFire(t *testing.T) {
	loop := make(chan func(), 4)
	s := NewLoopScheduler(func(fn func()) { loop <- fn }, time.Millisecond)

	timer := s.After(20*time.Millisecond, func() { t.Fatal("stopped timer ran") })
	if !timer.Stop() {
		t.Fatal("Stop: got false want true")
	}
	if timer.Stop() {
		t.Fatal("second Stop: got true want false")
	}

	select {
	case <-loop:
		t.Fatal("stopped timer dispatched")
	case <-time.After(60 * time.Millisecond):
	}
}

func TestLoopSchedulerStopAfterDispatch(t *testing.T) {
	loop := make(chan func(), 4)
	s := NewLoopScheduler(func(fn func()) { loop <- fn }, time.Millisecond)

	ran := false
	timer := s.NextFrame(func() { ran = true })
	fn := <-loop
	timer.Stop()
	fn()
	if ran {
		t.Fatal("callback ran after Stop")
	}
}

func TestManualSchedulerOrdersTimers(t *testing.T) {
	s := NewManualScheduler()
	var order []int
	s.After(30*time.Millisecond, func() { order = append(order, 3) })
	s.After(10*time.Millisecond, func() {
		order = append(order, 1)
		s.After(5*time.Millisecond, func() { order = append(order, 2) })
	})
	s.After(time.Second, func() { order = append(order, 4) })

	s.Advance(100 * time.Millisecond)

	want := []int{1, 2, 3}
	if len(order) != len(want) {
		t.Fatalf("order: got %v want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order: got %v want %v", order, want)
		}
	}
	if s.PendingTimers() != 1 {
		t.Fatalf("pending: got %d want 1", s.PendingTimers())
	}
}

func TestManualSchedulerFramesDefer(t *testing.T) {
	s := NewManualScheduler()
	count := 0
	s.NextFrame(func() {
		count++
		s.NextFrame(func() { count++ })
	})

	s.Frame()
	if count != 1 {
		t.Fatalf("after one frame: got %d want 1", count)
	}
	s.Frame()
	if count != 2 {
		t.Fatalf("after two frames: got %d want 2", count)
	}
}

func TestTimerGroupStopAll(t *testing.T) {
	s := NewManualScheduler()
	g := newTimerGroup(s)
	fired := 0
	g.after(time.Millisecond, func() { fired++ })
	g.frames(2, func() { fired++ })
	if g.pending() != 2 {
		t.Fatalf("pending: got %d want 2", g.pending())
	}

	g.stopAll()
	s.Frames(3)
	s.Advance(time.Second)
	if fired != 0 {
		t.Fatalf("fired: got %d want 0", fired)
	}
}
