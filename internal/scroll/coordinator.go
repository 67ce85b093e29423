package scroll

import "github.com/rs/zerolog"

// View is what the surrounding UI renders: the "new messages" control and
// the "loading older" indicator.
type View struct {
	IsAtBottom  bool
	HasNew      bool
	UnreadCount int
	IsFetching  bool
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithPolicy overrides DefaultPolicy.
func WithPolicy(p Policy) Option {
	return func(c *Coordinator) { c.policy = p }
}

// WithLogger sets the debug trace logger.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Coordinator) { c.log = log }
}

// WithStateListener is called after every tracker state change.
func WithStateListener(fn func(prev, next State)) Option {
	return func(c *Coordinator) { c.onState = fn }
}

// WithFetchListener is called when a load starts or finishes.
func WithFetchListener(fn func(fetching bool)) Option {
	return func(c *Coordinator) { c.onFetch = fn }
}

// Coordinator wires the tracker, top trigger and restorer to one container
// and routes every event source to them in a fixed order.
type Coordinator struct {
	policy  Policy
	log     zerolog.Logger
	onState func(prev, next State)
	onFetch func(fetching bool)

	tracker  *Tracker
	trigger  *TopLoadTrigger
	restorer *PrependRestorer

	items  []Item
	closed bool
}

// New builds a coordinator for container.
func New(container Container, sched Scheduler, opts ...Option) *Coordinator {
	c := &Coordinator{
		policy: DefaultPolicy(),
		log:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.tracker = NewTracker(container, sched, c.policy, c.log)
	c.trigger = NewTopLoadTrigger(container, sched, c.policy, c.log)
	c.restorer = NewPrependRestorer(container, sched, c.tracker, c.policy, c.log)
	c.restorer.SetWriteHook(c.tracker.OnScrollEvent)
	if c.onState != nil {
		c.tracker.SetListener(c.onState)
	}
	if c.onFetch != nil {
		c.trigger.SetListener(c.onFetch)
	}
	return c
}

// Tracker exposes the underlying tracker.
func (c *Coordinator) Tracker() *Tracker { return c.tracker }

// Trigger exposes the underlying top trigger.
func (c *Coordinator) Trigger() *TopLoadTrigger { return c.trigger }

// Restorer exposes the underlying restorer.
func (c *Coordinator) Restorer() *PrependRestorer { return c.restorer }

// AttachTop starts watching the top sentinel. Each load is bracketed by a
// restorer snapshot.
func (c *Coordinator) AttachTop(sentinel VisibilityObserver, opts TriggerOptions) {
	if c.closed {
		return
	}
	before, after := opts.BeforeLoad, opts.AfterLoad
	opts.BeforeLoad = func() {
		c.restorer.MarkBeforeLoadMore(c.items)
		if before != nil {
			before()
		}
	}
	opts.AfterLoad = func(err error) {
		c.restorer.LoadSettled()
		if after != nil {
			after(err)
		}
	}
	c.trigger.Attach(sentinel, opts)
}

// ItemsChanged delivers a new identity of the item list.
func (c *Coordinator) ItemsChanged(items []Item) {
	if c.closed {
		return
	}
	c.items = items
	c.restorer.HandleAfterMessages(items)
	c.tracker.OnItemsChanged(items)
}

// OnScroll delivers a container scroll event.
func (c *Coordinator) OnScroll() {
	if c.closed {
		return
	}
	c.tracker.OnScrollEvent()
	c.trigger.OnScroll()
}

// OnBottomAnchorVisibility delivers the bottom anchor observer signal.
func (c *Coordinator) OnBottomAnchorVisibility(visible bool) {
	if c.closed {
		return
	}
	c.tracker.OnBottomAnchorVisibility(visible)
}

// ScrollToBottom is the "jump to latest" action.
func (c *Coordinator) ScrollToBottom(behavior Behavior) {
	if c.closed {
		return
	}
	c.tracker.ScrollToBottom(behavior)
}

// View returns the current outputs.
func (c *Coordinator) View() View {
	s := c.tracker.State()
	return View{
		IsAtBottom:  s.IsAtBottom,
		HasNew:      s.HasNew(),
		UnreadCount: s.UnreadCount,
		IsFetching:  c.trigger.IsFetching(),
	}
}

// Close tears down every timer and detaches the trigger. Results of an
// in-flight load are ignored afterwards.
func (c *Coordinator) Close() {
	if c.closed {
		return
	}
	c.closed = true
	c.trigger.Close()
	c.restorer.Close()
	c.tracker.Close()
}
