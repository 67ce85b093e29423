package db

import (
	"database/sql"
	"fmt"
	"strconv"
)

const schemaVersion = 1

const schemaSQL = `
-- Key/value settings
CREATE TABLE IF NOT EXISTS tavern_config (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL
);

-- Campaigns
CREATE TABLE IF NOT EXISTS tavern_campaigns (
  name TEXT PRIMARY KEY,
  created_at INTEGER NOT NULL
);

-- Campaign messages, chronological by (ts, guid)
CREATE TABLE IF NOT EXISTS tavern_messages (
  guid TEXT PRIMARY KEY,               -- e.g., "msg-1f3a9c0d2b7e"
  ts INTEGER NOT NULL,                 -- unix timestamp
  campaign TEXT NOT NULL,
  author TEXT NOT NULL,
  body TEXT NOT NULL,
  type TEXT NOT NULL DEFAULT 'chat',   -- chat, roll, system
  attachments TEXT NOT NULL DEFAULT '[]', -- JSON array of attachments
  FOREIGN KEY (campaign) REFERENCES tavern_campaigns(name)
);

CREATE INDEX IF NOT EXISTS idx_tavern_messages_campaign_ts ON tavern_messages(campaign, ts, guid);
`

// InitSchema creates tables if needed and records the schema version.
func InitSchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	current, err := GetConfig(db, "schema_version")
	if err != nil {
		return err
	}
	if current != "" {
		v, err := strconv.Atoi(current)
		if err != nil {
			return fmt.Errorf("schema version %q: %w", current, err)
		}
		if v > schemaVersion {
			return fmt.Errorf("database schema v%d is newer than this build (v%d)", v, schemaVersion)
		}
	}
	return SetConfig(db, "schema_version", strconv.Itoa(schemaVersion))
}

// GetConfig returns a config value.
func GetConfig(db *sql.DB, key string) (string, error) {
	row := db.QueryRow("SELECT value FROM tavern_config WHERE key = ?", key)
	var value string
	if err := row.Scan(&value); err != nil {
		if err == sql.ErrNoRows {
			return "", nil
		}
		return "", err
	}
	return value, nil
}

// SetConfig sets a config value.
func SetConfig(db *sql.DB, key, value string) error {
	_, err := db.Exec("INSERT OR REPLACE INTO tavern_config (key, value) VALUES (?, ?)", key, value)
	return err
}
