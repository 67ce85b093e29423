package chat

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/adamavenir/tavern/internal/db"
	"github.com/adamavenir/tavern/internal/scroll"
	"github.com/adamavenir/tavern/internal/types"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	zone "github.com/lrstanley/bubblezone"
	"github.com/rs/zerolog"
)

const defaultPollInterval = time.Second

// Options configure chat.
type Options struct {
	DB *sql.DB
	// DBPath is watched for writes from other processes. Empty disables the
	// watcher and leaves polling as the only change feed.
	DBPath       string
	Campaign     string
	Username     string
	PageSize     int
	Notify       bool
	PollInterval time.Duration
	// Policy is used as given; nil selects scroll.TerminalPolicy.
	Policy       *scroll.Policy
	Frame        time.Duration
	Logger       zerolog.Logger
	// Scheduler replaces the event-loop scheduler. Tests pass a
	// scroll.ManualScheduler.
	Scheduler scroll.Scheduler
}

// Run starts the chat UI.
func Run(opts Options) error {
	model, err := NewModel(opts)
	if err != nil {
		return err
	}
	fmt.Printf("\033]0;%s\007", "tavern · "+model.campaign)

	program := tea.NewProgram(model, tea.WithMouseCellMotion())
	_, err = program.Run()
	model.Close()
	return err
}

// Model implements the chat UI.
type Model struct {
	db           *sql.DB
	campaign     string
	username     string
	pageSize     int
	notify       bool
	pollInterval time.Duration
	baseLog      zerolog.Logger
	log          zerolog.Logger

	viewport    viewport.Model
	input       textarea.Model
	zoneManager *zone.Manager
	width       int
	height      int
	ready       bool
	status      string

	messages     []types.Message
	known        map[string]struct{}
	lastCursor   *types.MessageCursor
	oldestCursor *types.MessageCursor
	hasMore      bool
	total        int

	sched     scroll.Scheduler
	tasks     *taskQueue
	coord     *scroll.Coordinator
	container *viewportContainer
	top       *lineObserver
	bottom    *lineObserver
	loadDone  func(error)

	watcher *dbWatcher
	pending []tea.Cmd
	closed  bool
}

// NewModel creates a chat model with the latest page of the campaign loaded.
func NewModel(opts Options) (*Model, error) {
	if opts.DB == nil {
		return nil, errors.New("chat: database is required")
	}
	if opts.PageSize <= 0 {
		opts.PageSize = 50
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	if opts.Campaign == "" {
		opts.Campaign = "default"
	}
	policy := scroll.TerminalPolicy()
	if opts.Policy != nil {
		policy = *opts.Policy
	}

	m := &Model{
		db:           opts.DB,
		campaign:     opts.Campaign,
		username:     opts.Username,
		pageSize:     opts.PageSize,
		notify:       opts.Notify,
		pollInterval: opts.PollInterval,
		baseLog:      opts.Logger,
		log:          opts.Logger.With().Str("campaign", opts.Campaign).Logger(),
		viewport:     viewport.New(0, 0),
		input:        newInputModel(),
		zoneManager:  zone.New(),
		tasks:        newTaskQueue(),
	}
	m.container = newViewportContainer(&m.viewport)
	m.top = newLineObserver(m.container.atTop)
	m.bottom = newLineObserver(m.container.anchorVisible)

	m.sched = opts.Scheduler
	if m.sched == nil {
		m.sched = scroll.NewLoopScheduler(m.tasks.dispatch, opts.Frame)
	}
	m.coord = scroll.New(m.container, m.sched,
		scroll.WithPolicy(policy),
		scroll.WithLogger(opts.Logger),
		scroll.WithStateListener(m.onScrollState),
	)

	if err := db.EnsureCampaign(m.db, m.campaign); err != nil {
		return nil, err
	}
	if err := m.loadLatest(); err != nil {
		return nil, err
	}

	if opts.DBPath != "" {
		w, err := newDBWatcher(opts.DBPath, m.log)
		if err != nil {
			m.log.Warn().Err(err).Msg("database watcher unavailable, polling only")
		} else {
			m.watcher = w
		}
	}
	return m, nil
}

func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{textarea.Blink, m.pollCmd(), m.tasks.wait()}
	if m.watcher != nil {
		cmds = append(cmds, m.watcher.wait())
	}
	return tea.Batch(cmds...)
}

func (m *Model) Close() {
	if m.closed {
		return
	}
	m.closed = true
	m.coord.Close()
	m.tasks.close()
	if m.watcher != nil {
		m.watcher.close()
	}
	if m.db != nil {
		_ = m.db.Close()
	}
}

// loadLatest replaces the message list with the campaign's latest page.
func (m *Model) loadLatest() error {
	messages, err := db.GetMessages(m.db, &types.MessageQueryOptions{
		Campaign: m.campaign,
		Limit:    m.pageSize,
	})
	if err != nil {
		return fmt.Errorf("load messages: %w", err)
	}
	total, err := db.CountMessages(m.db, m.campaign)
	if err != nil {
		return fmt.Errorf("count messages: %w", err)
	}

	m.messages = messages
	m.total = total
	m.lastCursor, m.oldestCursor = nil, nil
	m.hasMore = false
	m.known = make(map[string]struct{}, len(messages))
	m.remember(messages)
	if len(messages) > 0 {
		m.oldestCursor = messages[0].Cursor()
		m.lastCursor = latestCursor(nil, messages)
		m.hasMore, err = db.HasOlder(m.db, m.campaign, m.oldestCursor)
		if err != nil {
			return fmt.Errorf("check older messages: %w", err)
		}
	}
	return nil
}

func (m *Model) remember(messages []types.Message) {
	for _, msg := range messages {
		m.known[msg.ID] = struct{}{}
	}
}

func (m *Model) unknown(messages []types.Message) []types.Message {
	fresh := make([]types.Message, 0, len(messages))
	for _, msg := range messages {
		if _, ok := m.known[msg.ID]; !ok {
			fresh = append(fresh, msg)
		}
	}
	return fresh
}

// refreshContent re-renders the message list into the viewport. The scroll
// offset is left alone; the coordinator decides where it goes.
func (m *Model) refreshContent() {
	content, offsets := renderMessages(m.messages, m.viewport.Width, !m.hasMore)
	m.viewport.SetContent(content)
	m.container.offsets = offsets
}

// deliverItems renders and hands the new list identity to the coordinator.
func (m *Model) deliverItems() {
	m.refreshContent()
	if m.ready {
		m.coord.ItemsChanged(scroll.ItemsOf(m.messages))
	}
}

// syncObservers re-evaluates the sentinel and anchor after anything that
// moved or resized the content.
func (m *Model) syncObservers() {
	if !m.ready || m.closed {
		return
	}
	m.top.check()
	m.bottom.check()
}

func (m *Model) attachTop() {
	if m.coord.Trigger().Attached() {
		return
	}
	m.coord.AttachTop(m.top, scroll.TriggerOptions{
		HasMore:    func() bool { return m.hasMore },
		OnLoadMore: m.loadOlder,
	})
}

// queue defers a command until the current Update returns. Coordinator
// callbacks run outside Update's return path and use it to start I/O.
func (m *Model) queue(cmd tea.Cmd) {
	if cmd != nil {
		m.pending = append(m.pending, cmd)
	}
}

func (m *Model) flush(cmd tea.Cmd) tea.Cmd {
	if len(m.pending) == 0 {
		return cmd
	}
	cmds := append(m.pending, cmd)
	m.pending = nil
	return tea.Batch(cmds...)
}

func (m *Model) onScrollState(prev, next scroll.State) {
	m.log.Debug().
		Str("phase", next.Phase.String()).
		Bool("at_bottom", next.IsAtBottom).
		Int("unread", next.UnreadCount).
		Msg("scroll state")
	if next.UnreadCount > prev.UnreadCount && m.notify && len(m.messages) > 0 {
		last := m.messages[len(m.messages)-1]
		if last.Author != m.username {
			m.queue(notifyCmd(last, m.campaign, next.UnreadCount))
		}
	}
}
