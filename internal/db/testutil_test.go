package db

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/adamavenir/tavern/internal/types"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	conn, err := Open(filepath.Join(t.TempDir(), "nested", "tavern.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() {
		_ = conn.Close()
	})
	return conn
}

func seedMessages(t *testing.T, conn *sql.DB, campaign string, n int) []string {
	t.Helper()
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		msg, err := CreateMessage(conn, types.Message{
			Campaign: campaign,
			Author:   "dm",
			Body:     fmt.Sprintf("line %d", i),
			TS:       int64(1_700_000_000 + i/2),
			ID:       fmt.Sprintf("msg-%04d", i),
		})
		if err != nil {
			t.Fatalf("create message %d: %v", i, err)
		}
		ids = append(ids, msg.ID)
	}
	return ids
}
