package command

import (
	"encoding/json"
	"fmt"

	"github.com/adamavenir/tavern/internal/db"
	"github.com/spf13/cobra"
)

// NewCampaignsCmd creates the campaigns command.
func NewCampaignsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "campaigns",
		Short: "List campaigns",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer ctx.DB.Close()

			campaigns, err := db.ListCampaigns(ctx.DB)
			if err != nil {
				return writeCommandError(cmd, err)
			}

			if ctx.JSONMode {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(campaigns)
			}

			out := cmd.OutOrStdout()
			if len(campaigns) == 0 {
				fmt.Fprintln(out, "No campaigns yet. Use 'tavern post' or 'tavern chat' to start one.")
				return nil
			}
			for _, c := range campaigns {
				marker := " "
				if c.Name == ctx.Campaign {
					marker = "*"
				}
				fmt.Fprintf(out, "%s %-20s %6d messages  last %s\n", marker, c.Name, c.MessageCount, formatLastActivity(c.LastTS))
			}
			return nil
		},
	}

	return cmd
}
