package scroll

// Item is one entry of a chronologically ordered list (oldest first).
type Item interface {
	ItemID() string
}

// ImageItem is implemented by items whose content can grow after layout
// (images, embeds). Appends containing one get extra bottom re-asserts.
type ImageItem interface {
	HasImage() bool
}

// ItemsOf converts a typed slice into the []Item the coordinator consumes.
func ItemsOf[T Item](values []T) []Item {
	items := make([]Item, len(values))
	for i, v := range values {
		items[i] = v
	}
	return items
}

// Metrics is a sample of the container's scroll geometry.
type Metrics struct {
	ScrollTop    int
	ScrollHeight int
	ClientHeight int
}

// DistanceFromBottom is how far the viewport's bottom edge sits above the
// end of the content.
func (m Metrics) DistanceFromBottom() int {
	return m.ScrollHeight - (m.ScrollTop + m.ClientHeight)
}

// MaxScrollTop is the largest valid ScrollTop.
func (m Metrics) MaxScrollTop() int {
	if m.ScrollHeight <= m.ClientHeight {
		return 0
	}
	return m.ScrollHeight - m.ClientHeight
}

// Scrollable reports whether content overflows the viewport.
func (m Metrics) Scrollable() bool {
	return m.ScrollHeight > m.ClientHeight
}

// Behavior mirrors the smooth/instant distinction of a scroll request.
type Behavior int

const (
	BehaviorInstant Behavior = iota
	BehaviorSmooth
)

func (b Behavior) String() string {
	if b == BehaviorSmooth {
		return "smooth"
	}
	return "instant"
}

// Container is the scrollable region holding the rendered list.
type Container interface {
	Metrics() Metrics
	SetScrollTop(top int)
	// ScrollAnchorIntoView brings the bottom anchor (the element after the
	// last item) into view.
	ScrollAnchorIntoView(behavior Behavior)
	// OffsetOf returns the content offset of the rendered item with the given
	// id, or false if it is not rendered.
	OffsetOf(id string) (int, bool)
}

// VisibilityObserver reports visibility changes of a sentinel element.
// Observe delivers the current state once and then every change.
type VisibilityObserver interface {
	Observe(fn func(visible bool))
	Unobserve()
}

// LoadFunc starts fetching older items. done must be called exactly once,
// on the event loop, after the resulting items have been delivered.
type LoadFunc func(done func(error))

// BottomSignalGate lets a component that writes scrollTop tell the tracker
// to disregard bottom-visibility signals caused by that write.
type BottomSignalGate interface {
	SuppressNextBottomSignal(frames int)
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		hi = lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func idsOf(items []Item) []string {
	ids := make([]string, len(items))
	for i, item := range items {
		ids[i] = item.ItemID()
	}
	return ids
}
