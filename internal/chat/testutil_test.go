package chat

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/adamavenir/tavern/internal/db"
	"github.com/adamavenir/tavern/internal/scroll"
	"github.com/adamavenir/tavern/internal/types"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

const (
	testCampaign = "strahd"
	testWidth    = 80
	testHeight   = 20
	// viewport rows left after header, indicator, input and status
	testViewport = testHeight - headerHeight - indicatorHeight - inputHeight - statusHeight
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	conn, err := db.Open(filepath.Join(t.TempDir(), "tavern.db"))
	require.NoError(t, err)
	return conn
}

// seed inserts n two-row messages (header and body) with ids msg-0000...
func seed(t *testing.T, conn *sql.DB, campaign string, from, n int) {
	t.Helper()
	for i := from; i < from+n; i++ {
		_, err := db.CreateMessage(conn, types.Message{
			ID:       fmt.Sprintf("msg-%04d", i),
			TS:       int64(1_700_000_000 + i),
			Campaign: campaign,
			Author:   "dm",
			Body:     fmt.Sprintf("line %d", i),
		})
		require.NoError(t, err)
	}
}

type harness struct {
	m     *Model
	sched *scroll.ManualScheduler
	conn  *sql.DB
}

func newHarness(t *testing.T, seeded, pageSize int) *harness {
	t.Helper()
	conn := openTestDB(t)
	seed(t, conn, testCampaign, 0, seeded)

	sched := scroll.NewManualScheduler()
	m, err := NewModel(Options{
		DB:        conn,
		Campaign:  testCampaign,
		Username:  "ireena",
		PageSize:  pageSize,
		Scheduler: sched,
		Logger:    zerolog.Nop(),
	})
	require.NoError(t, err)
	t.Cleanup(m.Close)

	m.Update(tea.WindowSizeMsg{Width: testWidth, Height: testHeight})
	sched.Frames(2)
	return &harness{m: m, sched: sched, conn: conn}
}

func (h *harness) key(k tea.KeyType) tea.Cmd {
	_, cmd := h.m.Update(tea.KeyMsg{Type: k})
	return cmd
}

// arrive posts a message from another player and delivers it the way a
// poll would.
func (h *harness) arrive(t *testing.T, id, author string) tea.Cmd {
	t.Helper()
	_, err := db.CreateMessage(h.conn, types.Message{
		ID:       id,
		TS:       1_800_000_000,
		Campaign: h.m.campaign,
		Author:   author,
		Body:     "a new line",
	})
	require.NoError(t, err)
	_, cmd := h.m.Update(fetchNew(h.conn, h.m.campaign, h.m.lastCursor, h.m.pageSize, false))
	return cmd
}

// runPending executes commands queued by coordinator callbacks outside
// Update and feeds their results back in.
func (h *harness) runPending() {
	cmds := h.m.pending
	h.m.pending = nil
	for _, cmd := range cmds {
		h.exec(cmd)
	}
}

// exec runs cmd and delivers the result, expanding batches.
func (h *harness) exec(cmd tea.Cmd) {
	if cmd == nil {
		return
	}
	switch msg := cmd().(type) {
	case nil:
	case tea.BatchMsg:
		for _, c := range msg {
			h.exec(c)
		}
	default:
		_, next := h.m.Update(msg)
		h.exec(next)
	}
}

func (h *harness) view() scroll.View {
	return h.m.coord.View()
}
