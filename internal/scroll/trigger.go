package scroll

import (
	"time"

	"github.com/rs/zerolog"
)

// TriggerOptions configure a TopLoadTrigger attachment.
type TriggerOptions struct {
	HasMore    func() bool
	OnLoadMore LoadFunc
	// Threshold widens the "near top" band beyond Policy.TopEpsilon.
	Threshold int
	// Debounce and Cooldown override the policy when positive.
	Debounce time.Duration
	Cooldown time.Duration
	// BeforeLoad and AfterLoad bracket every load on the event loop.
	BeforeLoad func()
	AfterLoad  func(err error)
}

// TopLoadTrigger calls OnLoadMore when the top sentinel becomes visible, at
// most one load at a time.
type TopLoadTrigger struct {
	container Container
	sched     Scheduler
	policy    Policy
	log       zerolog.Logger
	timers    *timerGroup

	sentinel VisibilityObserver
	opts     TriggerOptions
	attached bool
	observed bool

	isFetching      bool
	sentinelVisible bool
	debounce        Timer
	cooldownUntil   time.Time
	cooldownRetry   Timer
	loadSeq         int

	listener func(fetching bool)
}

// NewTopLoadTrigger creates a detached trigger.
func NewTopLoadTrigger(container Container, sched Scheduler, policy Policy, log zerolog.Logger) *TopLoadTrigger {
	return &TopLoadTrigger{
		container: container,
		sched:     sched,
		policy:    policy.withDefaults(),
		log:       log.With().Str("component", "top-trigger").Logger(),
		timers:    newTimerGroup(sched),
	}
}

// SetListener registers a callback for isFetching transitions.
func (t *TopLoadTrigger) SetListener(fn func(fetching bool)) {
	t.listener = fn
}

// Attach starts watching sentinel. A previous attachment is replaced.
func (t *TopLoadTrigger) Attach(sentinel VisibilityObserver, opts TriggerOptions) {
	t.Detach()
	if opts.Debounce <= 0 {
		opts.Debounce = t.policy.Debounce
	}
	if opts.Cooldown <= 0 {
		opts.Cooldown = t.policy.Cooldown
	}
	t.sentinel = sentinel
	t.opts = opts
	t.attached = true
	if !t.hasMore() {
		t.log.Debug().Msg("nothing more to load, not observing")
		t.attached = false
		return
	}
	t.observe()
}

// Detach stops observing and cancels pending timers. An in-flight load
// still completes but does not re-observe.
func (t *TopLoadTrigger) Detach() {
	t.unobserve()
	t.attached = false
	t.sentinelVisible = false
	t.timers.stopAll()
	t.debounce = nil
	t.cooldownRetry = nil
}

// IsFetching reports whether a load is in flight.
func (t *TopLoadTrigger) IsFetching() bool {
	return t.isFetching
}

// Attached reports whether the trigger is still watching for loads.
func (t *TopLoadTrigger) Attached() bool {
	return t.attached
}

func (t *TopLoadTrigger) observe() {
	if t.sentinel == nil || t.observed {
		return
	}
	t.observed = true
	t.sentinel.Observe(t.OnSentinelVisibility)
}

func (t *TopLoadTrigger) unobserve() {
	if t.sentinel == nil || !t.observed {
		return
	}
	t.observed = false
	t.sentinel.Unobserve()
}

func (t *TopLoadTrigger) hasMore() bool {
	return t.opts.HasMore == nil || t.opts.HasMore()
}

// OnSentinelVisibility is the primary signal.
func (t *TopLoadTrigger) OnSentinelVisibility(visible bool) {
	t.sentinelVisible = visible
	if !visible || !t.attached || t.isFetching {
		return
	}
	t.schedule()
}

// OnScroll is the fallback signal for intersections lost to layout thrash.
func (t *TopLoadTrigger) OnScroll() {
	if !t.attached || t.isFetching || t.container == nil {
		return
	}
	if t.container.Metrics().ScrollTop <= t.policy.TopEpsilon {
		t.schedule()
	}
}

// schedule coalesces bursts of signals into one attempt.
func (t *TopLoadTrigger) schedule() {
	if t.debounce != nil {
		t.debounce.Stop()
	}
	t.debounce = t.timers.after(t.opts.Debounce, func() {
		t.debounce = nil
		t.fire()
	})
}

func (t *TopLoadTrigger) nearTop() bool {
	if t.container == nil {
		t.log.Debug().Msg("no container")
		return false
	}
	m := t.container.Metrics()
	if !m.Scrollable() {
		return false
	}
	return m.ScrollTop <= max(t.opts.Threshold, t.policy.TopEpsilon)
}

func (t *TopLoadTrigger) fire() {
	if !t.attached || t.isFetching {
		return
	}
	if now := t.sched.Now(); now.Before(t.cooldownUntil) {
		if t.cooldownRetry == nil {
			t.cooldownRetry = t.timers.after(t.cooldownUntil.Sub(now), func() {
				t.cooldownRetry = nil
				if t.sentinelVisible || t.nearTop() {
					t.schedule()
				}
			})
		}
		return
	}
	if !t.hasMore() {
		t.Detach()
		return
	}
	if !t.nearTop() {
		return
	}
	if t.opts.OnLoadMore == nil {
		t.log.Debug().Msg("no load function")
		return
	}

	t.loadSeq++
	seq := t.loadSeq
	t.setFetching(true)
	t.unobserve()
	if t.opts.BeforeLoad != nil {
		t.opts.BeforeLoad()
	}
	t.log.Debug().Int("load", seq).Msg("loading older items")

	completed := false
	t.opts.OnLoadMore(func(err error) {
		if completed {
			return
		}
		completed = true
		t.finish(seq, err)
	})
}

func (t *TopLoadTrigger) finish(seq int, err error) {
	if err != nil {
		t.log.Debug().Err(err).Int("load", seq).Msg("load failed")
	}
	t.cooldownUntil = t.sched.Now().Add(t.opts.Cooldown)
	t.setFetching(false)
	if t.opts.AfterLoad != nil {
		t.opts.AfterLoad(err)
	}
	if !t.attached {
		return
	}
	if !t.hasMore() {
		t.log.Debug().Msg("history exhausted, disconnecting")
		t.Detach()
		return
	}
	t.observe()
}

func (t *TopLoadTrigger) setFetching(v bool) {
	if t.isFetching == v {
		return
	}
	t.isFetching = v
	if t.listener != nil {
		t.listener(v)
	}
}

// Close detaches and cancels all timers.
func (t *TopLoadTrigger) Close() {
	t.Detach()
}
