package command

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/adamavenir/tavern/internal/chat"
	"github.com/adamavenir/tavern/internal/db"
	"github.com/adamavenir/tavern/internal/types"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var seedAuthors = []string{"mira", "tobin", "gm", "ash"}

var seedLines = []string{
	"the door creaks open",
	"I check for traps",
	"roll for initiative",
	"anyone have a torch?",
	"the innkeeper eyes you suspiciously",
	"I whisper to the raven",
}

// seedMessage builds the i-th synthetic message. Every tenth carries an
// image and every seventh is a roll so the transcript exercises both.
func seedMessage(campaign string, i int, ts int64) types.Message {
	msg := types.Message{
		Campaign: campaign,
		Author:   seedAuthors[i%len(seedAuthors)],
		Body:     fmt.Sprintf("%s (#%d)", seedLines[i%len(seedLines)], i+1),
		Type:     types.MessageTypeChat,
		TS:       ts,
	}
	switch {
	case i%10 == 9:
		msg.Attachments = []types.Attachment{{Name: fmt.Sprintf("map-%d.png", i+1), MIME: "image/png"}}
	case i%7 == 6:
		dice, _ := chat.ParseRoll("1d20")
		msg.Type = types.MessageTypeRoll
		msg.Body = dice.Roll(nil).String()
	}
	return msg
}

// NewSeedCmd creates the seed command.
func NewSeedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed <count>",
		Short: "Fill a campaign with sample messages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			count, err := strconv.Atoi(args[0])
			if err != nil || count <= 0 {
				return writeCommandError(cmd, fmt.Errorf("count must be a positive integer, got %q", args[0]))
			}

			ctx, err := GetContext(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer ctx.DB.Close()

			start := time.Now().Unix() - int64(count)
			for i := range count {
				if _, err := db.CreateMessage(ctx.DB, seedMessage(ctx.Campaign, i, start+int64(i))); err != nil {
					return writeCommandError(cmd, err)
				}
			}

			total, err := db.CountMessages(ctx.DB, ctx.Campaign)
			if err != nil {
				return writeCommandError(cmd, err)
			}

			if ctx.JSONMode {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{
					"campaign": ctx.Campaign,
					"added":    count,
					"total":    total,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s messages to %s (%s total)\n",
				humanize.Comma(int64(count)), ctx.Campaign, humanize.Comma(int64(total)))
			return nil
		},
	}

	return cmd
}
