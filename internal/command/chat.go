package command

import (
	"fmt"
	"time"

	"github.com/adamavenir/tavern/internal/chat"
	"github.com/adamavenir/tavern/internal/logging"
	"github.com/spf13/cobra"
)

// NewChatCmd creates the interactive chat command.
func NewChatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat [campaign]",
		Short: "Open the interactive campaign chat",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer ctx.DB.Close()

			if len(args) > 0 {
				ctx.Campaign = args[0]
			}
			as, _ := cmd.Flags().GetString("as")
			username, err := resolveUsername(ctx, as)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			if username == "" {
				return writeCommandError(cmd, fmt.Errorf("no username. Use 'tavern init --username <name>' or --as"))
			}

			noNotify, _ := cmd.Flags().GetBool("no-notify")
			logFile, _ := cmd.Flags().GetString("log-file")
			if logFile == "" {
				logFile = ctx.Config.Log.File
			}
			log, closer, err := logging.OpenFile(logFile, ctx.Config.Log.Level)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer closer.Close()

			log.Info().Str("campaign", ctx.Campaign).Str("user", username).Msg("chat starting")
			policy := ctx.Config.Scroll.Policy()
			err = chat.Run(chat.Options{
				DB:           ctx.DB,
				DBPath:       ctx.Config.DB.Path,
				Campaign:     ctx.Campaign,
				Username:     username,
				PageSize:     ctx.Config.Chat.PageSize,
				Notify:       ctx.Config.Chat.Notify && !noNotify,
				PollInterval: time.Duration(ctx.Config.Chat.PollMS) * time.Millisecond,
				Policy:       &policy,
				Frame:        ctx.Config.Scroll.Frame(),
				Logger:       log,
			})
			if err != nil {
				log.Error().Err(err).Msg("chat exited")
				return writeCommandError(cmd, err)
			}
			return nil
		},
	}

	cmd.Flags().String("as", "", "chat as this name (defaults to the init username)")
	cmd.Flags().Bool("no-notify", false, "disable desktop notifications")
	cmd.Flags().String("log-file", "", "debug log path (overrides log.file)")

	return cmd
}
