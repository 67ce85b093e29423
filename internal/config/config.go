package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adamavenir/tavern/internal/scroll"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	gotoml "github.com/pelletier/go-toml/v2"
)

// EnvPrefix is the prefix of environment overrides, e.g.
// TAVERN_CHAT_PAGE_SIZE=100 sets chat.page_size.
const EnvPrefix = "TAVERN_"

// Config holds application configuration.
type Config struct {
	DB     DBConfig     `koanf:"db" toml:"db" json:"db"`
	Chat   ChatConfig   `koanf:"chat" toml:"chat" json:"chat"`
	Log    LogConfig    `koanf:"log" toml:"log" json:"log"`
	Scroll ScrollConfig `koanf:"scroll" toml:"scroll" json:"scroll"`
}

type DBConfig struct {
	Path string `koanf:"path" toml:"path" json:"path"`
}

type ChatConfig struct {
	Campaign string `koanf:"campaign" toml:"campaign" json:"campaign"`
	Username string `koanf:"username" toml:"username" json:"username"`
	PageSize int    `koanf:"page_size" toml:"page_size" json:"page_size"`
	Notify   bool   `koanf:"notify" toml:"notify" json:"notify"`
	PollMS   int    `koanf:"poll_ms" toml:"poll_ms" json:"poll_ms"`
}

type LogConfig struct {
	Level string `koanf:"level" toml:"level" json:"level"`
	File  string `koanf:"file" toml:"file" json:"file"`
}

// ScrollConfig mirrors scroll.Policy in config-friendly units. Distances are
// terminal rows, durations milliseconds.
type ScrollConfig struct {
	HardBottom            int     `koanf:"hard_bottom" toml:"hard_bottom" json:"hard_bottom"`
	BottomThreshold       int     `koanf:"bottom_threshold" toml:"bottom_threshold" json:"bottom_threshold"`
	AutoScrollCap         int     `koanf:"auto_scroll_cap" toml:"auto_scroll_cap" json:"auto_scroll_cap"`
	GuardFloor            int     `koanf:"guard_floor" toml:"guard_floor" json:"guard_floor"`
	GuardMin              int     `koanf:"guard_min" toml:"guard_min" json:"guard_min"`
	GuardViewportFraction float64 `koanf:"guard_viewport_fraction" toml:"guard_viewport_fraction" json:"guard_viewport_fraction"`
	RecentUpwardMS        int     `koanf:"recent_upward_ms" toml:"recent_upward_ms" json:"recent_upward_ms"`
	ImageReassertMS       []int   `koanf:"image_reassert_ms" toml:"image_reassert_ms" json:"image_reassert_ms"`
	BottomRetriesMS       []int   `koanf:"bottom_retries_ms" toml:"bottom_retries_ms" json:"bottom_retries_ms"`
	TopEpsilon            int     `koanf:"top_epsilon" toml:"top_epsilon" json:"top_epsilon"`
	DebounceMS            int     `koanf:"debounce_ms" toml:"debounce_ms" json:"debounce_ms"`
	CooldownMS            int     `koanf:"cooldown_ms" toml:"cooldown_ms" json:"cooldown_ms"`
	IgnoreBottomFrames    int     `koanf:"ignore_bottom_frames" toml:"ignore_bottom_frames" json:"ignore_bottom_frames"`
	FrameMS               int     `koanf:"frame_ms" toml:"frame_ms" json:"frame_ms"`
}

// Policy converts the section into a scroll.Policy.
func (s ScrollConfig) Policy() scroll.Policy {
	return scroll.Policy{
		HardBottom:            s.HardBottom,
		BottomThreshold:       s.BottomThreshold,
		AutoScrollCap:         s.AutoScrollCap,
		GuardFloor:            s.GuardFloor,
		GuardMin:              s.GuardMin,
		GuardViewportFraction: s.GuardViewportFraction,
		RecentUpwardWindow:    ms(s.RecentUpwardMS),
		ImageReassert:         durations(s.ImageReassertMS),
		BottomRetries:         durations(s.BottomRetriesMS),
		TopEpsilon:            s.TopEpsilon,
		Debounce:              ms(s.DebounceMS),
		Cooldown:              ms(s.CooldownMS),
		IgnoreBottomFrames:    s.IgnoreBottomFrames,
	}
}

// Frame is the duration of one scheduler frame.
func (s ScrollConfig) Frame() time.Duration {
	if s.FrameMS <= 0 {
		return scroll.DefaultFrame
	}
	return ms(s.FrameMS)
}

func ms(v int) time.Duration {
	return time.Duration(v) * time.Millisecond
}

func durations(values []int) []time.Duration {
	out := make([]time.Duration, len(values))
	for i, v := range values {
		out[i] = ms(v)
	}
	return out
}

func millis(values []time.Duration) []int {
	out := make([]int, len(values))
	for i, d := range values {
		out[i] = int(d / time.Millisecond)
	}
	return out
}

// GetConfigDir returns the config directory.
func GetConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "tavern"), nil
}

// DefaultPath returns the default config file location.
func DefaultPath() (string, error) {
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

func dataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".tavern"
	}
	return filepath.Join(home, ".tavern")
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	p := scroll.TerminalPolicy()
	return Config{
		DB: DBConfig{Path: filepath.Join(dataDir(), "tavern.db")},
		Chat: ChatConfig{
			Campaign: "default",
			Username: os.Getenv("USER"),
			PageSize: 50,
			Notify:   true,
			PollMS:   1000,
		},
		Log: LogConfig{Level: "info", File: filepath.Join(dataDir(), "debug.log")},
		Scroll: ScrollConfig{
			HardBottom:            p.HardBottom,
			BottomThreshold:       p.BottomThreshold,
			AutoScrollCap:         p.AutoScrollCap,
			GuardFloor:            p.GuardFloor,
			GuardMin:              p.GuardMin,
			GuardViewportFraction: p.GuardViewportFraction,
			RecentUpwardMS:        int(p.RecentUpwardWindow / time.Millisecond),
			ImageReassertMS:       millis(p.ImageReassert),
			BottomRetriesMS:       millis(p.BottomRetries),
			TopEpsilon:            p.TopEpsilon,
			DebounceMS:            int(p.Debounce / time.Millisecond),
			CooldownMS:            int(p.Cooldown / time.Millisecond),
			IgnoreBottomFrames:    p.IgnoreBottomFrames,
			FrameMS:               int(scroll.DefaultFrame / time.Millisecond),
		},
	}
}

func defaultMap() map[string]interface{} {
	d := Defaults()
	return map[string]interface{}{
		"db.path":                        d.DB.Path,
		"chat.campaign":                  d.Chat.Campaign,
		"chat.username":                  d.Chat.Username,
		"chat.page_size":                 d.Chat.PageSize,
		"chat.notify":                    d.Chat.Notify,
		"chat.poll_ms":                   d.Chat.PollMS,
		"log.level":                      d.Log.Level,
		"log.file":                       d.Log.File,
		"scroll.hard_bottom":             d.Scroll.HardBottom,
		"scroll.bottom_threshold":        d.Scroll.BottomThreshold,
		"scroll.auto_scroll_cap":         d.Scroll.AutoScrollCap,
		"scroll.guard_floor":             d.Scroll.GuardFloor,
		"scroll.guard_min":               d.Scroll.GuardMin,
		"scroll.guard_viewport_fraction": d.Scroll.GuardViewportFraction,
		"scroll.recent_upward_ms":        d.Scroll.RecentUpwardMS,
		"scroll.image_reassert_ms":       d.Scroll.ImageReassertMS,
		"scroll.bottom_retries_ms":       d.Scroll.BottomRetriesMS,
		"scroll.top_epsilon":             d.Scroll.TopEpsilon,
		"scroll.debounce_ms":             d.Scroll.DebounceMS,
		"scroll.cooldown_ms":             d.Scroll.CooldownMS,
		"scroll.ignore_bottom_frames":    d.Scroll.IgnoreBottomFrames,
		"scroll.frame_ms":                d.Scroll.FrameMS,
	}
}

// envKey maps TAVERN_SCROLL_BOTTOM_THRESHOLD to scroll.bottom_threshold.
func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.Replace(key, "_", ".", 1)
}

// Load layers defaults, the TOML file and environment overrides. An empty
// path means the default location, which may be absent.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaultMap(), "."), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	explicit := path != ""
	if !explicit {
		if p, err := DefaultPath(); err == nil {
			path = p
		}
	}
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
				return nil, fmt.Errorf("error loading config: %w", err)
			}
		} else if explicit {
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects values the chat cannot run with.
func (c *Config) Validate() error {
	if c.DB.Path == "" {
		return fmt.Errorf("db.path is required")
	}
	if c.Chat.PageSize <= 0 {
		return fmt.Errorf("chat.page_size must be positive, got %d", c.Chat.PageSize)
	}
	if c.Scroll.BottomThreshold < c.Scroll.HardBottom {
		return fmt.Errorf("scroll.bottom_threshold (%d) must be >= scroll.hard_bottom (%d)",
			c.Scroll.BottomThreshold, c.Scroll.HardBottom)
	}
	return nil
}

// WriteDefault writes the built-in configuration to path. It refuses to
// overwrite an existing file.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("configuration file already exists at %s: %w", path, os.ErrExist)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := gotoml.Marshal(Defaults())
	if err != nil {
		return err
	}
	header := []byte("# tavern configuration\n# Distances are terminal rows, durations milliseconds.\n\n")
	return os.WriteFile(path, append(header, data...), 0o644)
}

// Encode renders cfg as TOML.
func Encode(cfg *Config) ([]byte, error) {
	return gotoml.Marshal(cfg)
}
