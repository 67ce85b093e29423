package command

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/adamavenir/tavern/internal/chat"
	"github.com/adamavenir/tavern/internal/db"
	"github.com/adamavenir/tavern/internal/types"
	"github.com/spf13/cobra"
)

// NewPostCmd creates the post command.
func NewPostCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "post [message]",
		Short: "Post a message to a campaign",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer ctx.DB.Close()

			as, _ := cmd.Flags().GetString("as")
			msgType, _ := cmd.Flags().GetString("type")
			roll, _ := cmd.Flags().GetString("roll")
			attachFlags, _ := cmd.Flags().GetStringArray("attach")

			author, err := resolveUsername(ctx, as)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			if author == "" {
				return writeCommandError(cmd, fmt.Errorf("--as is required. Use 'tavern init --username <name>' to set a default"))
			}

			body := ""
			if len(args) > 0 {
				body = args[0]
			}
			kind := types.MessageType(msgType)
			if roll != "" {
				dice, err := chat.ParseRoll(roll)
				if err != nil {
					return writeCommandError(cmd, err)
				}
				body = dice.Roll(nil).String()
				kind = types.MessageTypeRoll
			}
			if !kind.Valid() {
				return writeCommandError(cmd, fmt.Errorf("unknown message type %q (chat, roll, system)", msgType))
			}

			var attachments []types.Attachment
			for _, value := range attachFlags {
				a, err := parseAttachment(value)
				if err != nil {
					return writeCommandError(cmd, err)
				}
				attachments = append(attachments, a)
			}

			created, err := db.CreateMessage(ctx.DB, types.Message{
				Campaign:    ctx.Campaign,
				Author:      author,
				Body:        strings.TrimSpace(body),
				Type:        kind,
				Attachments: attachments,
			})
			if err != nil {
				return writeCommandError(cmd, err)
			}
			ctx.Log.Debug().Str("id", created.ID).Str("campaign", created.Campaign).Msg("posted")

			if ctx.JSONMode {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(messagesPayload([]types.Message{created})[0])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "[%s] Posted to %s as %s\n", created.ID, created.Campaign, author)
			return nil
		},
	}

	cmd.Flags().String("as", "", "author name (defaults to the init username)")
	cmd.Flags().String("type", string(types.MessageTypeChat), "message type: chat, roll, system")
	cmd.Flags().String("roll", "", "roll dice, e.g. 2d6+1, and post the result")
	cmd.Flags().StringArray("attach", nil, "attachment as name[:mime] (repeatable)")

	return cmd
}
