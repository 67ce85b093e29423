package chat

import (
	"database/sql"
	"time"

	"github.com/adamavenir/tavern/internal/db"
	"github.com/adamavenir/tavern/internal/types"
	tea "github.com/charmbracelet/bubbletea"
)

type newMessagesMsg struct {
	campaign string
	messages []types.Message
	err      error
	// tick marks the result of the periodic poll, which re-arms itself.
	tick bool
}

type olderLoadedMsg struct {
	campaign string
	messages []types.Message
	hasMore  bool
	err      error
}

func fetchNew(conn *sql.DB, campaign string, cursor *types.MessageCursor, limit int, tick bool) tea.Msg {
	options := &types.MessageQueryOptions{Campaign: campaign, Since: cursor}
	if cursor == nil {
		options.Limit = limit
	}
	messages, err := db.GetMessages(conn, options)
	return newMessagesMsg{campaign: campaign, messages: messages, err: err, tick: tick}
}

func (m *Model) pollCmd() tea.Cmd {
	conn, campaign, cursor, limit := m.db, m.campaign, m.lastCursor, m.pageSize
	return tea.Tick(m.pollInterval, func(time.Time) tea.Msg {
		return fetchNew(conn, campaign, cursor, limit, true)
	})
}

// fetchNewCmd polls once, outside the tick chain.
func (m *Model) fetchNewCmd() tea.Cmd {
	conn, campaign, cursor, limit := m.db, m.campaign, m.lastCursor, m.pageSize
	return func() tea.Msg {
		return fetchNew(conn, campaign, cursor, limit, false)
	}
}

func (m *Model) handleNewMessages(msg newMessagesMsg) tea.Cmd {
	var next tea.Cmd
	if msg.tick {
		next = m.pollCmd()
	}
	if msg.err != nil {
		m.log.Warn().Err(msg.err).Msg("poll failed")
		m.status = "poll failed: " + msg.err.Error()
		return next
	}
	if msg.campaign != m.campaign {
		return next
	}
	fresh := m.unknown(msg.messages)
	if len(fresh) == 0 {
		return next
	}

	m.messages = append(m.messages, fresh...)
	m.lastCursor = latestCursor(m.lastCursor, fresh)
	if m.oldestCursor == nil {
		m.oldestCursor = m.messages[0].Cursor()
	}
	m.total += len(fresh)
	m.remember(fresh)
	m.deliverItems()
	return next
}

// latestCursor returns the cursor of the most recently inserted message, so
// the next poll resumes by insertion order rather than timestamp.
func latestCursor(current *types.MessageCursor, messages []types.Message) *types.MessageCursor {
	latest := current
	for _, msg := range messages {
		if latest == nil || msg.Seq > latest.Seq {
			latest = msg.Cursor()
		}
	}
	return latest
}

// loadOlder is the coordinator's LoadFunc. done runs from Update once the
// page has been prepended.
func (m *Model) loadOlder(done func(error)) {
	if m.oldestCursor == nil {
		m.hasMore = false
		done(nil)
		return
	}
	m.loadDone = done
	m.queue(m.fetchOlderCmd())
}

func (m *Model) fetchOlderCmd() tea.Cmd {
	conn, campaign, cursor, limit := m.db, m.campaign, *m.oldestCursor, m.pageSize
	return func() tea.Msg {
		messages, err := db.GetMessages(conn, &types.MessageQueryOptions{
			Campaign: campaign,
			Before:   &cursor,
			Limit:    limit,
		})
		if err != nil {
			return olderLoadedMsg{campaign: campaign, err: err}
		}
		hasMore := false
		if len(messages) > 0 {
			hasMore, err = db.HasOlder(conn, campaign, messages[0].Cursor())
		}
		return olderLoadedMsg{campaign: campaign, messages: messages, hasMore: hasMore, err: err}
	}
}

func (m *Model) handleOlderLoaded(msg olderLoadedMsg) {
	done := m.loadDone
	m.loadDone = nil
	finish := func(err error) {
		if done != nil {
			done(err)
		}
	}

	if msg.err != nil {
		m.log.Warn().Err(msg.err).Msg("load older failed")
		m.status = "load older failed: " + msg.err.Error()
		finish(msg.err)
		return
	}
	if msg.campaign != m.campaign {
		finish(nil)
		return
	}

	markerAppears := m.hasMore && !msg.hasMore
	m.hasMore = msg.hasMore
	older := m.unknown(msg.messages)
	if len(older) > 0 {
		m.messages = append(older, m.messages...)
		m.oldestCursor = older[0].Cursor()
		m.remember(older)
	}
	// Re-render even without new rows: the beginning marker may appear.
	m.deliverItems()
	if markerAppears && len(older) == 0 && len(m.messages) > 0 {
		// The list is unchanged so nothing restores; keep the rows still.
		m.viewport.SetYOffset(m.viewport.YOffset + beginningRows)
	}
	m.log.Debug().Int("loaded", len(older)).Bool("has_more", m.hasMore).Msg("older messages")
	finish(nil)
}
