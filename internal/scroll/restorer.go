package scroll

import (
	"slices"

	"github.com/rs/zerolog"
)

// Snapshot is the scroll geometry captured right before a load.
type Snapshot struct {
	ScrollTop    int
	ScrollHeight int
	FirstID      string
	AnchorOffset int
}

// PendingLoad lives from MarkBeforeLoadMore until the prepend it produced
// has been restored, or the load settled without one.
type PendingLoad struct {
	IsFetching bool
	Before     Snapshot
}

// PrependRestorer keeps the visible content still when older items are
// inserted above it.
type PrependRestorer struct {
	container Container
	sched     Scheduler
	gate      BottomSignalGate
	policy    Policy
	log       zerolog.Logger
	timers    *timerGroup

	pending    *PendingLoad
	last       []string
	lastHeight int

	onWrite func()

	restored int
	skipped  int
}

// NewPrependRestorer creates a restorer. gate may be nil.
func NewPrependRestorer(container Container, sched Scheduler, gate BottomSignalGate, policy Policy, log zerolog.Logger) *PrependRestorer {
	return &PrependRestorer{
		container: container,
		sched:     sched,
		gate:      gate,
		policy:    policy.withDefaults(),
		log:       log.With().Str("component", "restorer").Logger(),
		timers:    newTimerGroup(sched),
	}
}

// Pending returns the outstanding snapshot, if any.
func (r *PrependRestorer) Pending() *PendingLoad {
	return r.pending
}

// MarkBeforeLoadMore records the geometry that restoration is relative to.
func (r *PrependRestorer) MarkBeforeLoadMore(items []Item) {
	if r.container == nil {
		r.log.Debug().Msg("mark without container")
		return
	}
	m := r.container.Metrics()
	snap := Snapshot{ScrollTop: m.ScrollTop, ScrollHeight: m.ScrollHeight}
	if len(items) > 0 {
		snap.FirstID = items[0].ItemID()
		if off, ok := r.container.OffsetOf(snap.FirstID); ok {
			snap.AnchorOffset = off
		}
	}
	r.pending = &PendingLoad{IsFetching: true, Before: snap}
}

// LoadSettled marks the in-flight load as finished. A later snapshot that
// is not a prepend then discards the pending restoration.
func (r *PrependRestorer) LoadSettled() {
	if r.pending != nil {
		r.pending.IsFetching = false
	}
}

// HandleAfterMessages inspects a new list identity and restores the scroll
// position if it is a pure prepend of a marked load.
func (r *PrependRestorer) HandleAfterMessages(items []Item) {
	ids := idsOf(items)
	if slices.Equal(ids, r.last) {
		return
	}
	prev := r.last
	r.last = ids
	growth := 0
	if r.container != nil {
		height := r.container.Metrics().ScrollHeight
		growth = height - r.lastHeight
		r.lastHeight = height
	}

	if r.pending == nil {
		return
	}
	c := Classify(prev, ids)
	switch {
	case c.PurePrepend():
		pending := r.pending
		r.pending = nil
		r.restore(pending.Before)
	case c.Reset:
		r.log.Debug().Msg("reset while load pending, dropping snapshot")
		r.pending = nil
	case !r.pending.IsFetching:
		r.pending = nil
	case c.DidAppend:
		// Live items landed below while fetching; their height is not part
		// of the prepend.
		r.pending.Before.ScrollHeight += growth
	}
}

func (r *PrependRestorer) restore(before Snapshot) {
	if r.container == nil {
		return
	}
	m := r.container.Metrics()
	delta := m.ScrollHeight - before.ScrollHeight
	if delta > 0 {
		target := clamp(before.ScrollTop+delta, 0, m.MaxScrollTop())
		r.apply(target)
		return
	}
	r.restoreFromAnchor(before, true)
}

// apply writes target across two frames so a late layout pass cannot undo it.
func (r *PrependRestorer) apply(target int) {
	r.timers.nextFrame(func() {
		r.shield()
		r.write(target)
		r.timers.nextFrame(func() {
			r.write(target)
		})
	})
}

func (r *PrependRestorer) write(target int) {
	m := r.container.Metrics()
	r.container.SetScrollTop(clamp(target, 0, m.MaxScrollTop()))
	if r.onWrite != nil {
		r.onWrite()
	}
}

// SetWriteHook registers a callback run after every corrective write.
func (r *PrependRestorer) SetWriteHook(fn func()) {
	r.onWrite = fn
}

func (r *PrependRestorer) restoreFromAnchor(before Snapshot, retry bool) {
	off, ok := r.container.OffsetOf(before.FirstID)
	if !ok || before.FirstID == "" {
		if retry {
			r.timers.nextFrame(func() { r.restoreFromAnchor(before, false) })
			return
		}
		r.skipped++
		r.log.Debug().Str("first_id", before.FirstID).Msg("anchor not found, skipping restoration")
		return
	}
	shift := off - before.AnchorOffset
	if shift == 0 {
		return
	}
	m := r.container.Metrics()
	r.apply(m.ScrollTop + shift)
}

func (r *PrependRestorer) shield() {
	r.restored++
	if r.gate != nil {
		r.gate.SuppressNextBottomSignal(r.policy.IgnoreBottomFrames)
	}
}

// Stats reports how many restorations were applied and skipped.
func (r *PrependRestorer) Stats() (restored, skipped int) {
	return r.restored, r.skipped
}

// Close cancels pending frame work.
func (r *PrependRestorer) Close() {
	r.timers.stopAll()
	r.pending = nil
}
