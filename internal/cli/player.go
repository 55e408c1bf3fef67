package cli

import (
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newPlayerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "player",
		Short: "Local player identity commands",
	}

	cmd.AddCommand(newPlayerWhoamiCmd())
	cmd.AddCommand(newPlayerNewCmd())

	return cmd
}

func newPlayerWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the player ID commands act as",
		RunE: func(cmd *cobra.Command, args []string) error {
			output(cmd).Print(PlayerInfo{PlayerID: cfg.PlayerID, PlayerFile: cfg.PlayerFile})
			return nil
		},
	}
}

func newPlayerNewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "new",
		Short: "Generate and save a fresh player ID",
		Long: `Generate a fresh player ID and save it to the player file.

Rooms you joined as the previous ID keep that player; join again to play
as the new one.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.SavePlayer(uuid.NewString()); err != nil {
				return err
			}
			output(cmd).Print(PlayerInfo{PlayerID: cfg.PlayerID, PlayerFile: cfg.PlayerFile})
			return nil
		},
	}
}
