package chat

import (
	"strings"

	"github.com/adamavenir/tavern/internal/db"
	"github.com/adamavenir/tavern/internal/scroll"
	"github.com/adamavenir/tavern/internal/types"
	tea "github.com/charmbracelet/bubbletea"
)

const (
	headerHeight    = 1
	indicatorHeight = 1
	statusHeight    = 1
	inputHeight     = 2
)

type errMsg struct {
	err error
}

type postedMsg struct {
	message types.Message
	err     error
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.handleWindowSize(msg)
	case tea.KeyMsg:
		cmd = m.handleKey(msg)
	case tea.MouseMsg:
		cmd = m.handleMouse(msg)
	case taskMsg:
		msg.fn()
		cmd = m.tasks.wait()
	case newMessagesMsg:
		cmd = m.handleNewMessages(msg)
	case olderLoadedMsg:
		m.handleOlderLoaded(msg)
	case dbChangedMsg:
		cmd = tea.Batch(m.fetchNewCmd(), m.watcher.wait())
	case postedMsg:
		cmd = m.handlePosted(msg)
	case errMsg:
		m.status = msg.err.Error()
	default:
		m.input, cmd = m.input.Update(msg)
	}
	m.syncObservers()
	return m, m.flush(cmd)
}

func (m *Model) handleWindowSize(msg tea.WindowSizeMsg) {
	wasAtBottom := !m.ready || m.coord.View().IsAtBottom
	m.width = msg.Width
	m.height = msg.Height
	m.resize()
	m.refreshContent()

	if !m.ready {
		// First layout: start at the bottom, then hand the list over.
		m.ready = true
		m.container.ScrollAnchorIntoView(scroll.BehaviorInstant)
		m.coord.ItemsChanged(scroll.ItemsOf(m.messages))
		m.bottom.Observe(m.coord.OnBottomAnchorVisibility)
		m.attachTop()
		return
	}
	if wasAtBottom {
		m.container.ScrollAnchorIntoView(scroll.BehaviorInstant)
	}
	m.coord.OnScroll()
}

func (m *Model) resize() {
	if m.width == 0 || m.height == 0 {
		return
	}
	m.input.SetWidth(max(m.width, 1))
	m.input.SetHeight(inputHeight)
	m.viewport.Width = m.width
	m.viewport.Height = max(m.height-headerHeight-indicatorHeight-inputHeight-statusHeight, 1)
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.Type {
	case tea.KeyCtrlC, tea.KeyEsc:
		return tea.Quit
	case tea.KeyEnter:
		value := m.input.Value()
		m.input.Reset()
		return m.handleSubmit(value)
	case tea.KeyPgUp, tea.KeyPgDown:
		return m.scrollViewport(msg)
	case tea.KeyHome:
		before := m.viewport.YOffset
		m.viewport.GotoTop()
		m.afterUserScroll(before)
		return nil
	case tea.KeyEnd:
		m.coord.ScrollToBottom(scroll.BehaviorInstant)
		return nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return cmd
}

func (m *Model) handleMouse(msg tea.MouseMsg) tea.Cmd {
	if msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft {
		if z := m.zoneManager.Get(newMessagesZone); z != nil && z.InBounds(msg) {
			m.coord.ScrollToBottom(scroll.BehaviorSmooth)
			return nil
		}
	}
	return m.scrollViewport(msg)
}

// scrollViewport lets the viewport handle a scroll gesture and reports the
// resulting offset change to the coordinator.
func (m *Model) scrollViewport(msg tea.Msg) tea.Cmd {
	before := m.viewport.YOffset
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	m.afterUserScroll(before)
	return cmd
}

func (m *Model) afterUserScroll(before int) {
	if m.viewport.YOffset != before {
		m.coord.OnScroll()
	}
}

// handleSubmit posts the input or runs a slash command. Posting returns the
// reader to the bottom.
func (m *Model) handleSubmit(value string) tea.Cmd {
	value = strings.TrimSpace(normalizeNewlines(value))
	if value == "" {
		return nil
	}
	if strings.HasPrefix(value, "/") {
		return m.handleSlashCommand(value)
	}
	m.coord.ScrollToBottom(scroll.BehaviorInstant)
	return m.postCmd(types.Message{
		Campaign: m.campaign,
		Author:   m.username,
		Body:     value,
		Type:     types.MessageTypeChat,
	})
}

func (m *Model) handleSlashCommand(value string) tea.Cmd {
	fields := strings.Fields(value)
	name, args := fields[0], strings.TrimSpace(strings.TrimPrefix(value, fields[0]))
	switch name {
	case "/roll":
		roll, err := ParseRoll(args)
		if err != nil {
			m.status = err.Error()
			return nil
		}
		result := roll.Roll(defaultRoller)
		m.coord.ScrollToBottom(scroll.BehaviorInstant)
		return m.postCmd(types.Message{
			Campaign: m.campaign,
			Author:   m.username,
			Body:     result.String(),
			Type:     types.MessageTypeRoll,
		})
	case "/me":
		if args == "" {
			m.status = "usage: /me <action>"
			return nil
		}
		m.coord.ScrollToBottom(scroll.BehaviorInstant)
		return m.postCmd(types.Message{
			Campaign: m.campaign,
			Author:   m.username,
			Body:     m.username + " " + args,
			Type:     types.MessageTypeSystem,
		})
	case "/campaign":
		if args == "" {
			m.status = "usage: /campaign <name>"
			return nil
		}
		if err := m.switchCampaign(args); err != nil {
			m.status = err.Error()
		}
		return nil
	case "/copy":
		m.copyMessage(args)
		return nil
	case "/quit":
		return tea.Quit
	}
	m.status = "unknown command: " + name
	return nil
}

// switchCampaign replaces the whole list. No id survives, so the tracker
// re-hydrates and the restorer drops any pending snapshot.
func (m *Model) switchCampaign(name string) error {
	if name == m.campaign {
		return nil
	}
	if err := db.EnsureCampaign(m.db, name); err != nil {
		return err
	}
	prev := m.campaign
	m.campaign = name
	if err := m.loadLatest(); err != nil {
		m.campaign = prev
		return err
	}
	m.log = m.baseLog.With().Str("campaign", name).Logger()
	m.status = "joined " + name
	m.deliverItems()
	m.container.ScrollAnchorIntoView(scroll.BehaviorInstant)
	m.attachTop()
	return nil
}

func (m *Model) postCmd(message types.Message) tea.Cmd {
	conn := m.db
	return func() tea.Msg {
		created, err := db.CreateMessage(conn, message)
		return postedMsg{message: created, err: err}
	}
}

func (m *Model) handlePosted(msg postedMsg) tea.Cmd {
	if msg.err != nil {
		m.log.Warn().Err(msg.err).Msg("post failed")
		m.status = "post failed: " + msg.err.Error()
		return nil
	}
	return m.fetchNewCmd()
}
