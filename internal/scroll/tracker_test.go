package scroll

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type trackerHarness struct {
	sched     *ManualScheduler
	container *fakeContainer
	tracker   *Tracker
	items     []Item
	next      int
}

// newTrackerHarness hydrates a tracker with n items of height 40 in a
// 400 high viewport.
func newTrackerHarness(t *testing.T, n int) *trackerHarness {
	t.Helper()
	h := &trackerHarness{
		sched:     NewManualScheduler(),
		container: newFakeContainer(400, 40),
	}
	h.tracker = NewTracker(h.container, h.sched, DefaultPolicy(), zerolog.Nop())
	h.items = makeItems("m", 0, n)
	h.next = n
	h.deliver(h.items)
	h.settle()
	return h
}

func (h *trackerHarness) deliver(items []Item) {
	h.items = items
	h.container.setItems(items)
	h.tracker.OnItemsChanged(items)
}

func (h *trackerHarness) append(n int) []Item {
	added := makeItems("m", h.next, n)
	h.next += n
	h.deliver(concat(h.items, added))
	return added
}

func (h *trackerHarness) scrollBy(delta int) {
	h.container.scrollBy(delta)
	h.tracker.OnScrollEvent()
}

func (h *trackerHarness) settle() {
	h.sched.Settle(time.Second)
}

func TestTrackerHydrationPinsToBottom(t *testing.T) {
	h := newTrackerHarness(t, 25)

	s := h.tracker.State()
	assert.Equal(t, PhaseAtBottom, s.Phase)
	assert.True(t, s.IsAtBottom)
	assert.Zero(t, s.UnreadCount)
	assert.Equal(t, 0, h.container.distance())
	assert.Positive(t, h.container.anchorCalls)
}

func TestTrackerHydrationWaitsForItems(t *testing.T) {
	sched := NewManualScheduler()
	c := newFakeContainer(400, 20)
	tr := NewTracker(c, sched, DefaultPolicy(), zerolog.Nop())

	tr.OnItemsChanged(nil)
	assert.Equal(t, PhaseHydrating, tr.State().Phase)

	items := makeItems("m", 0, 5)
	c.setItems(items)
	tr.OnItemsChanged(items)
	assert.Equal(t, PhaseAtBottom, tr.State().Phase)
	assert.Zero(t, tr.State().UnreadCount)
}

func TestTrackerKeepsZeroBottomThreshold(t *testing.T) {
	p := DefaultPolicy()
	p.HardBottom = 0
	p.BottomThreshold = 0
	sched := NewManualScheduler()
	c := newFakeContainer(400, 40)
	tr := NewTracker(c, sched, p, zerolog.Nop())
	assert.Zero(t, tr.Policy().BottomThreshold)

	items := makeItems("m", 0, 25)
	c.setItems(items)
	tr.OnItemsChanged(items)
	sched.Settle(time.Second)
	require.True(t, tr.State().IsAtBottom)

	c.scrollBy(-10)
	tr.OnScrollEvent()
	s := tr.State()
	assert.False(t, s.IsAtBottom, "no read zone above the bottom")
	assert.False(t, s.Suppressed, "inside the proximity guard")
}

func TestTrackerAppendAtBottomAutoScrolls(t *testing.T) {
	h := newTrackerHarness(t, 25)

	h.append(1)
	h.settle()

	s := h.tracker.State()
	assert.Zero(t, s.UnreadCount)
	assert.True(t, s.IsAtBottom)
	assert.Equal(t, 0, h.container.distance())
}

func TestTrackerScrollUpThenAppendCountsUnread(t *testing.T) {
	h := newTrackerHarness(t, 25)

	h.scrollBy(-300)
	require.True(t, h.tracker.State().Suppressed)
	require.Equal(t, PhaseReadingHistory, h.tracker.State().Phase)
	top := h.container.top

	h.append(2)
	h.settle()

	s := h.tracker.State()
	assert.Equal(t, 2, s.UnreadCount)
	assert.True(t, s.HasNew())
	assert.False(t, s.IsAtBottom)
	assert.Equal(t, top, h.container.top, "reading position must not move")

	// Returning to the hard bottom clears everything.
	h.scrollBy(10_000)
	s = h.tracker.State()
	assert.Zero(t, s.UnreadCount)
	assert.False(t, s.Suppressed)
	assert.Equal(t, PhaseAtBottom, s.Phase)
}

func TestTrackerUnreadAccumulatesAcrossBursts(t *testing.T) {
	h := newTrackerHarness(t, 25)
	h.scrollBy(-300)

	h.append(3)
	h.sched.Advance(2 * time.Second)
	h.append(2)
	h.settle()

	assert.Equal(t, 5, h.tracker.State().UnreadCount)
	assert.Equal(t, PhaseReadingHistory, h.tracker.State().Phase)
}

func TestTrackerSmallUpwardScrollDoesNotSuppress(t *testing.T) {
	h := newTrackerHarness(t, 25)

	h.scrollBy(-150)
	s := h.tracker.State()
	assert.False(t, s.Suppressed)
	assert.False(t, s.IsAtBottom)
}

func TestTrackerHardBottomAtAppendIsRead(t *testing.T) {
	h := newTrackerHarness(t, 25)
	h.scrollBy(-300)
	require.True(t, h.tracker.State().Suppressed)

	// The platform keeps the viewport pinned to the end in the same tick
	// the items arrive, before any scroll event reaches the tracker.
	added := makeItems("m", h.next, 1)
	h.next++
	items := concat(h.items, added)
	h.container.setItems(items)
	h.container.top = h.container.Metrics().MaxScrollTop() - 2
	h.items = items
	h.tracker.OnItemsChanged(items)

	assert.Zero(t, h.tracker.State().UnreadCount)
}

func TestTrackerReadZoneAppendIsRead(t *testing.T) {
	h := newTrackerHarness(t, 25)

	// 45 is inside the read zone but outside the auto-scroll band.
	h.scrollBy(-45)
	h.sched.Advance(time.Second)
	top := h.container.top

	h.append(1)
	h.settle()

	s := h.tracker.State()
	assert.Zero(t, s.UnreadCount)
	assert.False(t, s.Suppressed)
	assert.Equal(t, top, h.container.top, "read zone does not auto-scroll")
}

func TestTrackerRecentUpwardScrollBlocksAutoScroll(t *testing.T) {
	h := newTrackerHarness(t, 25)

	h.scrollBy(-20)
	top := h.container.top
	h.append(1)

	assert.Equal(t, top, h.container.top)
	assert.Zero(t, h.tracker.State().UnreadCount, "still within the read zone")
	assert.Zero(t, h.sched.PendingFrames())
}

func TestTrackerPrependDoesNotTouchUnread(t *testing.T) {
	h := newTrackerHarness(t, 25)
	h.scrollBy(-300)
	h.append(2)
	before := h.tracker.State()

	older := makeItems("old", 0, 10)
	h.deliver(concat(older, h.items))
	h.settle()

	assert.Equal(t, before, h.tracker.State())
}

func TestTrackerSimultaneousPrependAndAppendCountsTail(t *testing.T) {
	h := newTrackerHarness(t, 25)
	h.scrollBy(-300)

	older := makeItems("old", 0, 4)
	newer := makeItems("m", h.next, 3)
	h.next += 3
	h.deliver(concat(older, h.items, newer))

	assert.Equal(t, 3, h.tracker.State().UnreadCount)
}

func TestTrackerReplacementRehydrates(t *testing.T) {
	h := newTrackerHarness(t, 25)
	h.scrollBy(-300)
	h.append(2)
	require.Equal(t, 2, h.tracker.State().UnreadCount)

	h.deliver(makeItems("other", 0, 30))
	h.settle()

	s := h.tracker.State()
	assert.Zero(t, s.UnreadCount)
	assert.False(t, s.Suppressed)
	assert.Equal(t, 0, h.container.distance())
}

func TestTrackerReplacementWithEmptyListClears(t *testing.T) {
	h := newTrackerHarness(t, 25)
	h.scrollBy(-300)
	h.append(3)
	require.Equal(t, 3, h.tracker.State().UnreadCount)

	h.deliver(nil)
	s := h.tracker.State()
	assert.Equal(t, PhaseAtBottom, s.Phase)
	assert.True(t, s.IsAtBottom)
	assert.Zero(t, s.UnreadCount)
	assert.False(t, s.Suppressed)
	assert.Zero(t, h.sched.PendingTimers())

	// The first item of the new list pins to the bottom.
	h.deliver(makeItems("fresh", 0, 1))
	h.settle()
	assert.Zero(t, h.tracker.State().UnreadCount)
	assert.True(t, h.tracker.State().IsAtBottom)
}

func TestTrackerImageAppendReasserts(t *testing.T) {
	h := newTrackerHarness(t, 25)

	added := testItem{id: "img-1", image: true}
	h.deliver(concat(h.items, []Item{added}))
	h.sched.Frames(2)
	require.Equal(t, 0, h.container.distance())

	// The image finishes loading and grows the content.
	h.sched.Advance(200 * time.Millisecond)
	h.container.padding = 120
	require.Positive(t, h.container.distance())

	h.sched.Advance(150 * time.Millisecond)
	assert.Equal(t, 0, h.container.distance())
	assert.Zero(t, h.tracker.State().UnreadCount)
}

func TestTrackerScrollToBottomCoversPadding(t *testing.T) {
	h := newTrackerHarness(t, 25)
	h.container.padding = 30
	h.scrollBy(-300)
	h.append(4)

	h.tracker.ScrollToBottom(BehaviorSmooth)
	s := h.tracker.State()
	assert.Zero(t, s.UnreadCount)
	assert.False(t, s.Suppressed)

	h.sched.Frames(2)
	assert.Equal(t, 0, h.container.distance(), "direct write covers trailing padding")
}

func TestTrackerBottomRetriesStopWhenUserLeaves(t *testing.T) {
	h := newTrackerHarness(t, 25)
	h.tracker.ScrollToBottom(BehaviorInstant)
	h.sched.Frames(2)

	h.scrollBy(-300)
	top := h.container.top
	h.sched.Advance(time.Second)

	assert.Equal(t, top, h.container.top)
}

func TestTrackerIgnoresBottomSignalWhileShielded(t *testing.T) {
	h := newTrackerHarness(t, 25)
	h.scrollBy(-300)
	h.tracker.OnBottomAnchorVisibility(false)

	h.tracker.SuppressNextBottomSignal(2)
	h.tracker.OnBottomAnchorVisibility(true)
	assert.False(t, h.tracker.State().IsAtBottom)

	h.sched.Frames(2)
	h.tracker.OnBottomAnchorVisibility(true)
	assert.True(t, h.tracker.State().IsAtBottom)
}

func TestTrackerShieldKeepsUserUpwardScroll(t *testing.T) {
	h := newTrackerHarness(t, 25)

	h.tracker.SuppressNextBottomSignal(2)
	h.scrollBy(-300)

	s := h.tracker.State()
	assert.True(t, s.Suppressed)
	assert.False(t, s.IsAtBottom)
	assert.Equal(t, PhaseReadingHistory, s.Phase)

	// Reaching the bottom while shielded does not clear the latch.
	h.scrollBy(300)
	assert.True(t, h.tracker.State().Suppressed)

	h.sched.Frames(2)
	h.scrollBy(-10)
	h.scrollBy(10)
	assert.False(t, h.tracker.State().Suppressed)
}

func TestTrackerShieldRecordsRecentUpwardScroll(t *testing.T) {
	h := newTrackerHarness(t, 25)

	h.tracker.SuppressNextBottomSignal(2)
	h.scrollBy(-20)
	h.sched.Frames(2)

	top := h.container.top
	h.append(1)
	assert.Equal(t, top, h.container.top, "a fresh upward scroll blocks auto-scroll")
	assert.Zero(t, h.sched.PendingFrames())
}

func TestTrackerListenerSeesTransitions(t *testing.T) {
	h := newTrackerHarness(t, 25)
	var seen []State
	h.tracker.SetListener(func(_, next State) { seen = append(seen, next) })

	h.scrollBy(-300)
	h.append(1)

	require.NotEmpty(t, seen)
	assert.Equal(t, 1, seen[len(seen)-1].UnreadCount)
}

func TestTrackerCloseCancelsTimers(t *testing.T) {
	h := newTrackerHarness(t, 25)
	h.deliver(concat(h.items, []Item{testItem{id: "img", image: true}}))
	h.tracker.Close()

	assert.Zero(t, h.sched.PendingTimers())
	assert.Zero(t, h.sched.PendingFrames())
}

func TestTrackerWithoutContainerIsNoop(t *testing.T) {
	tr := NewTracker(nil, NewManualScheduler(), DefaultPolicy(), zerolog.Nop())
	tr.OnScrollEvent()
	tr.OnItemsChanged(makeItems("m", 0, 3))
	tr.OnItemsChanged(makeItems("m", 0, 4))
	tr.ScrollToBottom(BehaviorInstant)
	assert.Zero(t, tr.State().UnreadCount)
}

func TestProximityGuard(t *testing.T) {
	p := DefaultPolicy()
	assert.Equal(t, 200, p.proximityGuard(400))
	assert.Equal(t, 250, p.proximityGuard(1000))
	p.BottomThreshold = 150
	assert.Equal(t, 300, p.proximityGuard(400))
}
