package command

import (
	"database/sql"
	"fmt"

	"github.com/adamavenir/tavern/internal/config"
	"github.com/adamavenir/tavern/internal/db"
	"github.com/adamavenir/tavern/internal/logging"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// CommandContext provides shared command resources.
type CommandContext struct {
	DB       *sql.DB
	Config   *config.Config
	Campaign string
	JSONMode bool
	Log      zerolog.Logger
}

// loadConfig resolves the effective configuration, applying flag overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if dbPath, _ := cmd.Flags().GetString("db"); dbPath != "" {
		cfg.DB.Path = dbPath
	}
	if campaign, _ := cmd.Flags().GetString("campaign"); campaign != "" {
		cfg.Chat.Campaign = campaign
	}
	return cfg, nil
}

// GetContext loads configuration and opens the database.
func GetContext(cmd *cobra.Command) (*CommandContext, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	jsonMode, _ := cmd.Flags().GetBool("json")

	log, err := logging.Console(cfg.Log.Level)
	if err != nil {
		return nil, err
	}

	conn, err := db.Open(cfg.DB.Path)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", cfg.DB.Path, err)
	}
	log.Debug().Str("db", cfg.DB.Path).Str("campaign", cfg.Chat.Campaign).Msg("opened database")

	return &CommandContext{
		DB:       conn,
		Config:   cfg,
		Campaign: cfg.Chat.Campaign,
		JSONMode: jsonMode,
		Log:      log,
	}, nil
}

// resolveUsername prefers an explicit value, then config, then the name
// stored by `tavern init`.
func resolveUsername(ctx *CommandContext, explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	stored, err := db.GetConfig(ctx.DB, "username")
	if err != nil {
		return "", err
	}
	if stored != "" {
		return stored, nil
	}
	return ctx.Config.Chat.Username, nil
}
