package chat

import (
	"github.com/adamavenir/tavern/internal/scroll"
	"github.com/charmbracelet/bubbles/viewport"
)

// viewportContainer exposes the message viewport to the scroll coordinator.
// Rows are the unit: ScrollTop is the viewport's YOffset and ScrollHeight
// the rendered line count.
type viewportContainer struct {
	vp      *viewport.Model
	offsets map[string]int
}

func newViewportContainer(vp *viewport.Model) *viewportContainer {
	return &viewportContainer{vp: vp, offsets: map[string]int{}}
}

func (c *viewportContainer) Metrics() scroll.Metrics {
	return scroll.Metrics{
		ScrollTop:    c.vp.YOffset,
		ScrollHeight: c.vp.TotalLineCount(),
		ClientHeight: c.vp.Height,
	}
}

func (c *viewportContainer) SetScrollTop(top int) {
	c.vp.SetYOffset(top)
}

// ScrollAnchorIntoView has no smooth mode in a terminal.
func (c *viewportContainer) ScrollAnchorIntoView(scroll.Behavior) {
	c.vp.GotoBottom()
}

func (c *viewportContainer) OffsetOf(id string) (int, bool) {
	offset, ok := c.offsets[id]
	return offset, ok
}

// atTop reports whether the first rendered line is showing.
func (c *viewportContainer) atTop() bool {
	return c.vp.YOffset <= 0
}

// anchorVisible reports whether the line after the last message is showing.
func (c *viewportContainer) anchorVisible() bool {
	return c.Metrics().DistanceFromBottom() <= 0
}

// lineObserver emulates an intersection observer over viewport rows. The
// model calls check after anything that moves or resizes the content.
type lineObserver struct {
	visible func() bool
	fn      func(bool)
	last    bool
}

func newLineObserver(visible func() bool) *lineObserver {
	return &lineObserver{visible: visible}
}

func (o *lineObserver) Observe(fn func(visible bool)) {
	o.fn = fn
	o.last = o.visible()
	fn(o.last)
}

func (o *lineObserver) Unobserve() {
	o.fn = nil
}

func (o *lineObserver) check() {
	if o.fn == nil {
		return
	}
	v := o.visible()
	if v == o.last {
		return
	}
	o.last = v
	o.fn(v)
}
