package scroll

import (
	"fmt"
	"slices"
)

type testItem struct {
	id    string
	image bool
}

func (i testItem) ItemID() string { return i.id }
func (i testItem) HasImage() bool { return i.image }

func makeItems(prefix string, from, n int) []Item {
	items := make([]Item, n)
	for i := range items {
		items[i] = testItem{id: fmt.Sprintf("%s-%03d", prefix, from+i)}
	}
	return items
}

func concat(parts ...[]Item) []Item {
	var out []Item
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// fakeContainer lays items out at a fixed height each, followed by
// trailing padding the anchor does not cover.
type fakeContainer struct {
	top        int
	client     int
	itemHeight int
	padding    int
	order      []string
	hidden     map[string]bool
	// fixedHeight pins ScrollHeight, as a virtualized list would.
	fixedHeight int

	writes      []int
	anchorCalls int
}

func newFakeContainer(client, itemHeight int) *fakeContainer {
	return &fakeContainer{client: client, itemHeight: itemHeight, hidden: map[string]bool{}}
}

func (f *fakeContainer) setItems(items []Item) {
	f.order = idsOf(items)
}

func (f *fakeContainer) contentHeight() int {
	return len(f.order) * f.itemHeight
}

func (f *fakeContainer) Metrics() Metrics {
	height := f.contentHeight() + f.padding
	if f.fixedHeight > 0 {
		height = f.fixedHeight
	}
	m := Metrics{ScrollHeight: height, ClientHeight: f.client}
	m.ScrollTop = clamp(f.top, 0, m.MaxScrollTop())
	return m
}

func (f *fakeContainer) SetScrollTop(top int) {
	f.top = clamp(top, 0, f.Metrics().MaxScrollTop())
	f.writes = append(f.writes, f.top)
}

func (f *fakeContainer) ScrollAnchorIntoView(Behavior) {
	f.anchorCalls++
	f.top = max(0, f.contentHeight()-f.client)
}

func (f *fakeContainer) OffsetOf(id string) (int, bool) {
	if f.hidden[id] {
		return 0, false
	}
	idx := slices.Index(f.order, id)
	if idx < 0 {
		return 0, false
	}
	return idx * f.itemHeight, true
}

// scrollBy moves the viewport like a user would.
func (f *fakeContainer) scrollBy(delta int) {
	f.top = clamp(f.top+delta, 0, f.Metrics().MaxScrollTop())
}

func (f *fakeContainer) distance() int {
	return f.Metrics().DistanceFromBottom()
}

type fakeObserver struct {
	fn       func(bool)
	visible  bool
	observed bool
	observes int
}

func (o *fakeObserver) Observe(fn func(bool)) {
	o.fn = fn
	o.observed = true
	o.observes++
	fn(o.visible)
}

func (o *fakeObserver) Unobserve() {
	o.observed = false
}

func (o *fakeObserver) set(visible bool) {
	o.visible = visible
	if o.observed && o.fn != nil {
		o.fn(visible)
	}
}

type fakeGate struct {
	calls []int
}

func (g *fakeGate) SuppressNextBottomSignal(frames int) {
	g.calls = append(g.calls, frames)
}
