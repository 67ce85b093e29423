package command

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/adamavenir/tavern/internal/config"
	"github.com/adamavenir/tavern/internal/db"
	"github.com/spf13/cobra"
)

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the database and remember who you are",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			username, _ := cmd.Flags().GetString("username")
			writeConfig, _ := cmd.Flags().GetBool("write-config")

			// Written before loading: an explicit --config path must exist.
			configPath := ""
			if writeConfig {
				var err error
				configPath, _ = cmd.Flags().GetString("config")
				if configPath == "" {
					configPath, err = config.DefaultPath()
					if err != nil {
						return writeCommandError(cmd, err)
					}
				}
				if err := config.WriteDefault(configPath); err != nil && !errors.Is(err, os.ErrExist) {
					return writeCommandError(cmd, err)
				}
			}

			ctx, err := GetContext(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer ctx.DB.Close()

			if username == "" {
				username = ctx.Config.Chat.Username
			}
			if username == "" {
				return writeCommandError(cmd, fmt.Errorf("--username is required"))
			}
			if err := db.SetConfig(ctx.DB, "username", username); err != nil {
				return writeCommandError(cmd, err)
			}
			if err := db.EnsureCampaign(ctx.DB, ctx.Campaign); err != nil {
				return writeCommandError(cmd, err)
			}

			if ctx.JSONMode {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{
					"db":       ctx.Config.DB.Path,
					"username": username,
					"campaign": ctx.Campaign,
					"config":   configPath,
				})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Initialized %s\n", ctx.Config.DB.Path)
			fmt.Fprintf(out, "  username: %s\n", username)
			fmt.Fprintf(out, "  campaign: %s\n", ctx.Campaign)
			if configPath != "" {
				fmt.Fprintf(out, "  config:   %s\n", configPath)
			}
			return nil
		},
	}

	cmd.Flags().StringP("username", "u", "", "your name in chat")
	cmd.Flags().Bool("write-config", false, "write a default config file if none exists")

	return cmd
}
