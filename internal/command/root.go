package command

import (
	"os"

	"github.com/spf13/cobra"
)

const AppName = "tavern"

// Version is overwritten at build time using -ldflags.
var Version = "dev"

func NewRootCmd(version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:           AppName,
		Short:         "Tavern - campaign chat for tabletop groups",
		Long:          "Tavern is a terminal chat for tabletop campaigns with dice rolls and long scrollback.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.Version = version
	cmd.SetVersionTemplate(AppName + " version {{.Version}}\n")
	cmd.SetOut(os.Stdout)
	cmd.SetErr(os.Stderr)

	cmd.PersistentFlags().String("config", "", "config file (default ~/.config/tavern/config.toml)")
	cmd.PersistentFlags().String("db", "", "database path (overrides db.path)")
	cmd.PersistentFlags().StringP("campaign", "c", "", "campaign (overrides chat.campaign)")
	cmd.PersistentFlags().Bool("json", false, "output in JSON format")

	cmd.AddCommand(
		NewInitCmd(),
		NewPostCmd(),
		NewHistoryCmd(),
		NewSeedCmd(),
		NewCampaignsCmd(),
		NewChatCmd(),
		NewConfigCmd(),
	)

	return cmd
}

func Execute() error {
	return NewRootCmd(Version).Execute()
}
