package command

import (
	"encoding/json"
	"fmt"

	"github.com/adamavenir/tavern/internal/core"
	"github.com/adamavenir/tavern/internal/db"
	"github.com/adamavenir/tavern/internal/types"
	"github.com/spf13/cobra"
)

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show campaign messages, newest page first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer ctx.DB.Close()

			limit, _ := cmd.Flags().GetInt("last")
			sinceExpr, _ := cmd.Flags().GetString("since")
			beforeExpr, _ := cmd.Flags().GetString("before")
			author, _ := cmd.Flags().GetString("from")
			if limit <= 0 {
				limit = ctx.Config.Chat.PageSize
			}

			var since, before *types.MessageCursor
			if sinceExpr != "" {
				if since, err = core.ParseTimeExpression(ctx.DB, ctx.Campaign, sinceExpr); err != nil {
					return writeCommandError(cmd, err)
				}
			}
			if beforeExpr != "" {
				if before, err = core.ParseTimeExpression(ctx.DB, ctx.Campaign, beforeExpr); err != nil {
					return writeCommandError(cmd, err)
				}
			}

			rows, err := db.GetMessages(ctx.DB, &types.MessageQueryOptions{
				Campaign: ctx.Campaign,
				Limit:    limit,
				Since:    since,
				Before:   before,
				Author:   author,
			})
			if err != nil {
				return writeCommandError(cmd, err)
			}

			hasMore := false
			if len(rows) > 0 {
				hasMore, err = db.HasOlder(ctx.DB, ctx.Campaign, rows[0].Cursor())
				if err != nil {
					return writeCommandError(cmd, err)
				}
			}

			if ctx.JSONMode {
				payload := map[string]any{
					"campaign": ctx.Campaign,
					"messages": messagesPayload(rows),
					"has_more": hasMore,
				}
				return json.NewEncoder(cmd.OutOrStdout()).Encode(payload)
			}

			out := cmd.OutOrStdout()
			if len(rows) == 0 {
				fmt.Fprintf(out, "No messages in %s\n", ctx.Campaign)
				return nil
			}
			for _, row := range rows {
				fmt.Fprintln(out, FormatMessage(row))
			}
			if hasMore {
				fmt.Fprintf(out, "\nOlder: tavern history -c %s --before %s\n", ctx.Campaign, rows[0].ID)
			}
			return nil
		},
	}

	cmd.Flags().IntP("last", "n", 0, "number of messages (default chat.page_size)")
	cmd.Flags().String("since", "", "show messages from a time (2h, today, 2026-01-02) or after #id")
	cmd.Flags().String("before", "", "show messages before a time or #id")
	cmd.Flags().String("from", "", "only messages by this author")

	return cmd
}
