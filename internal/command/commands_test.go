package command

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/adamavenir/tavern/internal/types"
)

// setupEnv isolates config lookup and returns a fresh database path.
func setupEnv(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USER", "")
	return filepath.Join(home, "tavern.db")
}

func run(t *testing.T, dbPath string, args ...string) string {
	t.Helper()
	output, err := executeCommand(NewRootCmd("test"), append([]string{"--db", dbPath}, args...)...)
	if err != nil {
		t.Fatalf("%v: unexpected error %v\n%s", args, err, output)
	}
	return output
}

func runErr(t *testing.T, dbPath string, args ...string) string {
	t.Helper()
	output, err := executeCommand(NewRootCmd("test"), append([]string{"--db", dbPath}, args...)...)
	if err == nil {
		t.Fatalf("%v: expected error, got output %q", args, output)
	}
	return output
}

type historyPayload struct {
	Campaign string           `json:"campaign"`
	Messages []map[string]any `json:"messages"`
	HasMore  bool             `json:"has_more"`
}

func decodeHistory(t *testing.T, output string) historyPayload {
	t.Helper()
	var payload historyPayload
	if err := json.Unmarshal([]byte(output), &payload); err != nil {
		t.Fatalf("decode history: %v\n%s", err, output)
	}
	return payload
}

func TestInitStoresUsername(t *testing.T) {
	dbPath := setupEnv(t)

	output := run(t, dbPath, "init", "--username", "mira")
	if !strings.Contains(output, "username: mira") {
		t.Fatalf("expected init summary, got %q", output)
	}

	run(t, dbPath, "post", "hello there")
	payload := decodeHistory(t, run(t, dbPath, "--json", "history"))
	if len(payload.Messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(payload.Messages))
	}
	if payload.Messages[0]["author"] != "mira" {
		t.Fatalf("expected author mira, got %v", payload.Messages[0]["author"])
	}
}

func TestInitRequiresUsername(t *testing.T) {
	dbPath := setupEnv(t)

	output := runErr(t, dbPath, "init")
	if !strings.Contains(output, "--username is required") {
		t.Fatalf("expected username error, got %q", output)
	}
}

func TestInitWritesConfig(t *testing.T) {
	dbPath := setupEnv(t)
	configPath := filepath.Join(t.TempDir(), "tavern.toml")

	output := run(t, dbPath, "init", "-u", "mira", "--write-config", "--config", configPath)
	if !strings.Contains(output, "config:   "+configPath) {
		t.Fatalf("expected config path in summary, got %q", output)
	}
	if _, err := os.Stat(configPath); err != nil {
		t.Fatalf("expected config file: %v", err)
	}

	// A second init keeps the existing file.
	run(t, dbPath, "init", "-u", "mira", "--write-config", "--config", configPath)
}

func TestPostRequiresAuthor(t *testing.T) {
	dbPath := setupEnv(t)

	output := runErr(t, dbPath, "post", "hello")
	if !strings.Contains(output, "--as is required") {
		t.Fatalf("expected author error, got %q", output)
	}
}

func TestPostTypeAndAttachments(t *testing.T) {
	dbPath := setupEnv(t)

	output := run(t, dbPath, "--json", "post", "--as", "gm", "--type", "system",
		"--attach", "map.png:image/png", "--attach", "notes.txt", "the party rests")

	var payload map[string]any
	if err := json.Unmarshal([]byte(output), &payload); err != nil {
		t.Fatalf("decode post: %v", err)
	}
	if payload["type"] != "system" {
		t.Fatalf("expected system type, got %v", payload["type"])
	}
	attachments, _ := payload["attachments"].([]any)
	if len(attachments) != 2 {
		t.Fatalf("expected 2 attachments, got %v", payload["attachments"])
	}
	second, _ := attachments[1].(map[string]any)
	if second["mime"] != "application/octet-stream" {
		t.Fatalf("expected default mime, got %v", second["mime"])
	}
}

func TestPostAttachmentOnly(t *testing.T) {
	dbPath := setupEnv(t)

	output := run(t, dbPath, "post", "--as", "ash", "--attach", "sketch.jpg:image/jpeg")
	if !strings.Contains(output, "Posted to default as ash") {
		t.Fatalf("expected post confirmation, got %q", output)
	}
}

func TestPostEmptyMessageHint(t *testing.T) {
	dbPath := setupEnv(t)

	output := runErr(t, dbPath, "post", "--as", "ash", "   ")
	if !strings.Contains(output, "Hint: pass the message text") {
		t.Fatalf("expected empty message hint, got %q", output)
	}
}

func TestPostRoll(t *testing.T) {
	dbPath := setupEnv(t)

	run(t, dbPath, "post", "--as", "tobin", "--roll", "2d6")
	payload := decodeHistory(t, run(t, dbPath, "--json", "history"))
	if len(payload.Messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(payload.Messages))
	}
	msg := payload.Messages[0]
	if msg["type"] != string(types.MessageTypeRoll) {
		t.Fatalf("expected roll, got %v", msg["type"])
	}
	body, _ := msg["body"].(string)
	if !regexp.MustCompile(`^2d6: \[\d+ \d+\] = \d+$`).MatchString(body) {
		t.Fatalf("unexpected roll body %q", body)
	}
}

func TestPostRejectsUnknownType(t *testing.T) {
	dbPath := setupEnv(t)

	output := runErr(t, dbPath, "post", "--as", "ash", "--type", "whisper", "psst")
	if !strings.Contains(output, `unknown message type "whisper"`) {
		t.Fatalf("expected type error, got %q", output)
	}
}

func TestHistoryPagesBackward(t *testing.T) {
	dbPath := setupEnv(t)
	run(t, dbPath, "seed", "25")

	first := decodeHistory(t, run(t, dbPath, "--json", "history", "-n", "10"))
	if len(first.Messages) != 10 || !first.HasMore {
		t.Fatalf("expected 10 messages with more, got %d more=%v", len(first.Messages), first.HasMore)
	}

	oldest := first.Messages[0]["id"].(string)
	second := decodeHistory(t, run(t, dbPath, "--json", "history", "-n", "10", "--before", oldest))
	if len(second.Messages) != 10 || !second.HasMore {
		t.Fatalf("expected second page with more, got %d more=%v", len(second.Messages), second.HasMore)
	}
	if second.Messages[9]["created_at"].(string) > first.Messages[0]["created_at"].(string) {
		t.Fatalf("second page should be older than the first")
	}

	third := decodeHistory(t, run(t, dbPath, "--json", "history", "-n", "10", "--before", second.Messages[0]["id"].(string)))
	if len(third.Messages) != 5 || third.HasMore {
		t.Fatalf("expected final page of 5, got %d more=%v", len(third.Messages), third.HasMore)
	}
}

func TestHistoryTextHint(t *testing.T) {
	dbPath := setupEnv(t)
	run(t, dbPath, "seed", "5")

	output := run(t, dbPath, "history", "-n", "3")
	if !strings.Contains(output, "Older: tavern history -c default --before msg-") {
		t.Fatalf("expected paging hint, got %q", output)
	}
}

func TestHistoryUnknownBefore(t *testing.T) {
	dbPath := setupEnv(t)

	output := runErr(t, dbPath, "history", "--before", "#msg-missing")
	if !strings.Contains(output, "message msg-missing not found") {
		t.Fatalf("expected not found error, got %q", output)
	}
}

func TestHistorySinceTime(t *testing.T) {
	dbPath := setupEnv(t)
	run(t, dbPath, "seed", "5")

	recent := decodeHistory(t, run(t, dbPath, "--json", "history", "--since", "1h"))
	if len(recent.Messages) != 5 {
		t.Fatalf("expected all 5 messages within the hour, got %d", len(recent.Messages))
	}
	old := decodeHistory(t, run(t, dbPath, "--json", "history", "--before", "1h"))
	if len(old.Messages) != 0 {
		t.Fatalf("expected nothing older than an hour, got %d", len(old.Messages))
	}

	output := runErr(t, dbPath, "history", "--since", "eventually")
	if !strings.Contains(output, "invalid time expression") {
		t.Fatalf("expected parse error, got %q", output)
	}
}

func TestHistoryFiltersAuthor(t *testing.T) {
	dbPath := setupEnv(t)
	run(t, dbPath, "post", "--as", "mira", "one")
	run(t, dbPath, "post", "--as", "tobin", "two")

	payload := decodeHistory(t, run(t, dbPath, "--json", "history", "--from", "tobin"))
	if len(payload.Messages) != 1 || payload.Messages[0]["author"] != "tobin" {
		t.Fatalf("expected only tobin, got %v", payload.Messages)
	}
}

func TestSeedRejectsBadCount(t *testing.T) {
	dbPath := setupEnv(t)

	output := runErr(t, dbPath, "seed", "lots")
	if !strings.Contains(output, "count must be a positive integer") {
		t.Fatalf("expected count error, got %q", output)
	}
}

func TestSeedMixesKinds(t *testing.T) {
	var rolls, images int
	for i := range 70 {
		msg := seedMessage("c", i, int64(i))
		if msg.Type == types.MessageTypeRoll {
			rolls++
		}
		if msg.HasImage() {
			images++
		}
	}
	if rolls == 0 || images != 7 {
		t.Fatalf("expected rolls and 7 images, got rolls=%d images=%d", rolls, images)
	}
}

func TestCampaignsMarksCurrent(t *testing.T) {
	dbPath := setupEnv(t)
	run(t, dbPath, "-c", "greyhawk", "post", "--as", "gm", "welcome")
	run(t, dbPath, "-c", "eberron", "post", "--as", "gm", "welcome")

	output := run(t, dbPath, "-c", "greyhawk", "campaigns")
	if !strings.Contains(output, "* greyhawk") {
		t.Fatalf("expected current campaign marker, got %q", output)
	}
	if !strings.Contains(output, "  eberron") {
		t.Fatalf("expected other campaign, got %q", output)
	}
}

func TestConfigShowsOverrides(t *testing.T) {
	dbPath := setupEnv(t)
	t.Setenv("TAVERN_CHAT_PAGE_SIZE", "77")

	output := run(t, dbPath, "config")
	if !strings.Contains(output, "page_size = 77") {
		t.Fatalf("expected env override in config, got %q", output)
	}

	var payload map[string]map[string]any
	if err := json.Unmarshal([]byte(run(t, dbPath, "--json", "config")), &payload); err != nil {
		t.Fatalf("decode config: %v", err)
	}
	if payload["db"]["path"] != dbPath {
		t.Fatalf("expected --db override, got %v", payload["db"]["path"])
	}
}

func TestConfigInitRefusesOverwrite(t *testing.T) {
	dbPath := setupEnv(t)

	output := run(t, dbPath, "config", "init")
	if !strings.Contains(output, "Wrote ") {
		t.Fatalf("expected write confirmation, got %q", output)
	}
	output = runErr(t, dbPath, "config", "init")
	if !strings.Contains(output, "already exists") {
		t.Fatalf("expected overwrite refusal, got %q", output)
	}
	// The written file is picked up as the default config.
	run(t, dbPath, "config")
}

func TestFormatMessage(t *testing.T) {
	msg := types.Message{ID: "msg-1", TS: 0, Author: "mira", Body: "hi", Type: types.MessageTypeChat,
		Attachments: []types.Attachment{{Name: "map.png", MIME: "image/png"}}}
	line := FormatMessage(msg)
	if !strings.HasPrefix(line, "[msg-1] ") || !strings.HasSuffix(line, "mira: hi [map.png]") {
		t.Fatalf("unexpected line %q", line)
	}

	msg.Type = types.MessageTypeRoll
	msg.Attachments = nil
	msg.Body = "1d20: [4] = 4"
	if line := FormatMessage(msg); !strings.HasSuffix(line, "mira rolled 1d20: [4] = 4") {
		t.Fatalf("unexpected roll line %q", line)
	}
}

func TestParseAttachment(t *testing.T) {
	if _, err := parseAttachment(":image/png"); err == nil {
		t.Fatalf("expected error for missing name")
	}
	a, err := parseAttachment(" map.png : image/png ")
	if err != nil || a.Name != "map.png" || a.MIME != "image/png" || !a.IsImage() {
		t.Fatalf("unexpected attachment %+v err=%v", a, err)
	}
}
