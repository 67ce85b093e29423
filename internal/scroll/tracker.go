package scroll

import (
	"time"

	"github.com/rs/zerolog"
)

// Phase is the tracker's position in its state machine.
type Phase int

const (
	PhaseHydrating Phase = iota
	PhaseAtBottom
	PhaseReadingHistory
)

func (p Phase) String() string {
	switch p {
	case PhaseHydrating:
		return "hydrating"
	case PhaseAtBottom:
		return "at-bottom"
	case PhaseReadingHistory:
		return "reading-history"
	default:
		return "unknown"
	}
}

// State is a snapshot of the tracker.
type State struct {
	Phase        Phase
	IsAtBottom   bool
	UnreadCount  int
	Suppressed   bool
	LastDistance int
}

// HasNew reports whether unread items are pending.
func (s State) HasNew() bool {
	return s.UnreadCount > 0
}

// Tracker decides auto-scroll and unread accounting for a bottom-anchored
// list. All methods must be called from the event loop.
type Tracker struct {
	container Container
	sched     Scheduler
	policy    Policy
	log       zerolog.Logger

	timers       *timerGroup // image re-asserts, ignore windows
	bottomTimers *timerGroup // scrollToBottom frames and retries

	hydrated            bool
	isAtBottom          bool
	unread              int
	suppressed          bool
	lastDistance        int
	lastScrollTop       int
	lastUpwardAt        time.Time
	bottomAnchorVisible bool
	ignoreBottom        bool
	ignoreGen           int

	prev  []string
	known map[string]struct{}

	listener func(prev, next State)
}

// NewTracker creates a tracker in the hydrating phase.
func NewTracker(container Container, sched Scheduler, policy Policy, log zerolog.Logger) *Tracker {
	return &Tracker{
		container:    container,
		sched:        sched,
		policy:       policy.withDefaults(),
		log:          log.With().Str("component", "tracker").Logger(),
		timers:       newTimerGroup(sched),
		bottomTimers: newTimerGroup(sched),
		isAtBottom:   true,
		known:        make(map[string]struct{}),
	}
}

// SetListener registers a callback invoked after every state change.
func (t *Tracker) SetListener(fn func(prev, next State)) {
	t.listener = fn
}

// Policy returns the policy in effect after defaults were applied.
func (t *Tracker) Policy() Policy {
	return t.policy
}

// State returns the current snapshot.
func (t *Tracker) State() State {
	phase := PhaseAtBottom
	switch {
	case !t.hydrated:
		phase = PhaseHydrating
	case t.suppressed:
		phase = PhaseReadingHistory
	}
	return State{
		Phase:        phase,
		IsAtBottom:   t.isAtBottom,
		UnreadCount:  t.unread,
		Suppressed:   t.suppressed,
		LastDistance: t.lastDistance,
	}
}

func (t *Tracker) metrics() (Metrics, bool) {
	if t.container == nil {
		t.log.Debug().Msg("no container")
		return Metrics{}, false
	}
	return t.container.Metrics(), true
}

// OnScrollEvent samples the container after a scroll.
func (t *Tracker) OnScrollEvent() {
	m, ok := t.metrics()
	if !ok {
		return
	}
	before := t.State()
	dist := m.DistanceFromBottom()
	delta := m.ScrollTop - t.lastScrollTop
	t.lastScrollTop = m.ScrollTop
	t.lastDistance = dist

	if delta < 0 {
		t.lastUpwardAt = t.sched.Now()
	}
	if t.ignoreBottom {
		// Corrective writes only move down, so an upward move is the user's.
		if delta < 0 && dist > t.policy.proximityGuard(m.ClientHeight) {
			t.suppressed = true
			t.isAtBottom = dist <= t.policy.BottomThreshold
		}
		t.emit(before)
		return
	}

	if dist <= t.policy.HardBottom {
		t.isAtBottom = true
		t.unread = 0
		t.suppressed = false
	} else {
		t.isAtBottom = dist <= t.policy.BottomThreshold
		if delta < 0 && dist > t.policy.proximityGuard(m.ClientHeight) {
			t.suppressed = true
		}
	}
	t.emit(before)
}

// OnBottomAnchorVisibility feeds the bottom anchor's visibility observer.
func (t *Tracker) OnBottomAnchorVisibility(visible bool) {
	if t.ignoreBottom {
		t.log.Debug().Bool("visible", visible).Msg("bottom signal ignored")
		return
	}
	before := t.State()
	t.bottomAnchorVisible = visible
	if visible {
		t.isAtBottom = true
	}
	t.emit(before)
}

// SuppressNextBottomSignal ignores bottom-visibility signals for the given
// number of frames. Scroll events in that window can still latch suppression
// but never count as reaching the bottom.
func (t *Tracker) SuppressNextBottomSignal(frames int) {
	if frames <= 0 {
		return
	}
	t.ignoreGen++
	gen := t.ignoreGen
	t.ignoreBottom = true
	t.timers.frames(frames, func() {
		if gen == t.ignoreGen {
			t.ignoreBottom = false
		}
	})
}

// OnItemsChanged is called with every new identity of the item list.
func (t *Tracker) OnItemsChanged(items []Item) {
	ids := idsOf(items)
	if !t.hydrated {
		if len(ids) == 0 {
			t.prev = ids
			return
		}
		t.hydrate(ids)
		return
	}

	c := Classify(t.prev, ids)
	previouslyKnown := t.known
	t.remember(ids)
	if c.Unchanged() || c.PurePrepend() {
		return
	}

	if c.Reset && !anyKnown(ids, previouslyKnown) {
		t.log.Debug().Int("items", len(ids)).Msg("list replaced, rehydrating")
		if len(ids) == 0 {
			t.clear()
			return
		}
		t.hydrate(ids)
		return
	}

	appended := countTrailingNew(ids, previouslyKnown)
	if appended == 0 {
		return
	}
	if appended == len(ids) {
		t.hydrate(ids)
		return
	}
	t.handleAppend(items[len(items)-appended:])
}

// clear drops all reading state for an emptied list. There is nothing to
// scroll, so the container is left alone.
func (t *Tracker) clear() {
	before := t.State()
	t.timers.stopAll()
	t.bottomTimers.stopAll()
	t.ignoreBottom = false
	t.isAtBottom = true
	t.unread = 0
	t.suppressed = false
	t.lastUpwardAt = time.Time{}
	t.lastDistance = 0
	t.emit(before)
}

func anyKnown(ids []string, known map[string]struct{}) bool {
	for _, id := range ids {
		if _, ok := known[id]; ok {
			return true
		}
	}
	return false
}

func (t *Tracker) hydrate(ids []string) {
	before := t.State()
	t.remember(ids)
	t.hydrated = true
	t.timers.stopAll()
	t.ignoreBottom = false
	t.scrollToBottom(BehaviorInstant)
	t.emit(before)
}

func (t *Tracker) remember(ids []string) {
	t.prev = ids
	known := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		known[id] = struct{}{}
	}
	t.known = known
}

// countTrailingNew walks back from the tail until it meets a known id.
func countTrailingNew(ids []string, known map[string]struct{}) int {
	n := 0
	for i := len(ids) - 1; i >= 0; i-- {
		if _, ok := known[ids[i]]; ok {
			break
		}
		n++
	}
	return n
}

func (t *Tracker) handleAppend(added []Item) {
	m, ok := t.metrics()
	if !ok {
		return
	}
	before := t.State()

	recentUpward := !t.lastUpwardAt.IsZero() && t.sched.Now().Sub(t.lastUpwardAt) < t.policy.RecentUpwardWindow
	userIsReading := t.suppressed || recentUpward
	wasNearBottom := t.lastDistance <= t.policy.autoScrollBand()

	if wasNearBottom && (t.isAtBottom || t.bottomAnchorVisible) && !userIsReading {
		t.scrollToBottom(BehaviorInstant)
		if containsImage(added) {
			for _, d := range t.policy.ImageReassert {
				t.timers.after(d, func() {
					if !t.suppressed {
						t.bottomPass(BehaviorInstant)
					}
				})
			}
		}
		t.emit(before)
		return
	}

	dist := m.DistanceFromBottom()
	readZone := !t.suppressed && t.lastDistance <= t.policy.BottomThreshold
	t.lastDistance = dist
	if dist <= t.policy.HardBottom || readZone {
		t.emit(before)
		return
	}

	t.unread += len(added)
	t.suppressed = true
	t.isAtBottom = false
	t.log.Debug().Int("added", len(added)).Int("unread", t.unread).Int("distance", dist).Msg("append counted unread")
	t.emit(before)
}

func containsImage(items []Item) bool {
	for _, item := range items {
		if img, ok := item.(ImageItem); ok && img.HasImage() {
			return true
		}
	}
	return false
}

// ScrollToBottom is the explicit return to the bottom: it clears unread and
// suppression and pins the container to its end.
func (t *Tracker) ScrollToBottom(behavior Behavior) {
	before := t.State()
	t.scrollToBottom(behavior)
	t.emit(before)
}

func (t *Tracker) scrollToBottom(behavior Behavior) {
	t.isAtBottom = true
	t.unread = 0
	t.suppressed = false
	t.lastUpwardAt = time.Time{}
	t.lastDistance = 0

	t.bottomTimers.stopAll()
	t.bottomTimers.frames(2, func() { t.bottomPass(behavior) })
	for _, d := range t.policy.BottomRetries {
		t.bottomTimers.after(d, func() {
			if !t.suppressed {
				t.bottomPass(behavior)
			}
		})
	}
}

// bottomPass scrolls the anchor into view, then forces scrollTop to its
// maximum to cover trailing padding the anchor does not account for.
func (t *Tracker) bottomPass(behavior Behavior) {
	if t.container == nil {
		t.log.Debug().Msg("scroll to bottom without container")
		return
	}
	t.container.ScrollAnchorIntoView(behavior)
	m := t.container.Metrics()
	t.container.SetScrollTop(m.MaxScrollTop())
	t.OnScrollEvent()
}

func (t *Tracker) emit(before State) {
	if t.listener == nil {
		return
	}
	after := t.State()
	if after != before {
		t.listener(before, after)
	}
}

// Close cancels every pending timer.
func (t *Tracker) Close() {
	t.timers.stopAll()
	t.bottomTimers.stopAll()
}
