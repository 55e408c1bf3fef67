package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newRoomCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "room",
		Short: "Room management commands",
	}

	cmd.AddCommand(newRoomCreateCmd())
	cmd.AddCommand(newRoomGetCmd())
	cmd.AddCommand(newRoomListCmd())
	cmd.AddCommand(newRoomQRCmd())

	return cmd
}

func newRoomCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create",
		Short: "Create a room with a generated code",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result CreatedRoom

			if err := client.Post(cmd.Context(), "/api/v1/rooms", nil, &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}
}

func newRoomGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <room>",
		Short: "Show a room as you see it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Room

			if err := client.Get(cmd.Context(), roomPath(args[0]), &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}
}

func newRoomListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List live rooms",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result RoomList

			if err := client.Get(cmd.Context(), "/api/v1/rooms", &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}
}

func newRoomQRCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "qr <room>",
		Short: "Save the room's invite QR code as a PNG",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" {
				file = args[0] + ".png"
			}

			png, err := client.GetRaw(cmd.Context(), roomPath(args[0], "qr.png"))
			if err != nil {
				return err
			}
			if err := os.WriteFile(file, png, 0644); err != nil {
				return fmt.Errorf("failed to save QR code: %w", err)
			}

			output(cmd).PrintMessage("QR code saved to " + file)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Output file (default: <room>.png)")

	return cmd
}

func newJoinCmd() *cobra.Command {
	var nickname, team, role string

	cmd := &cobra.Command{
		Use:   "join <room>",
		Short: "Join a room, creating it if needed",
		Long: `Join a room as your player, creating the room if it does not exist yet.

Joining a room you are already in updates your nickname. New players can
only join while the room is in the lobby.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if nickname == "" {
				return fmt.Errorf("--nickname is required")
			}

			req := map[string]string{
				"nickname": nickname,
				"team":     team,
				"role":     role,
			}
			var result Room

			if err := client.Post(cmd.Context(), roomPath(args[0], "join"), req, &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}

	cmd.Flags().StringVarP(&nickname, "nickname", "n", "", "Nickname (required)")
	cmd.Flags().StringVar(&team, "team", "", "Preferred team: green or purple (default: smaller team)")
	cmd.Flags().StringVar(&role, "role", "", "Preferred role: tagger or codebreaker")
	_ = cmd.MarkFlagRequired("nickname")

	return cmd
}

func newLeaveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "leave <room>",
		Short: "Leave a room",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := client.Post(cmd.Context(), roomPath(args[0], "leave"), nil, nil); err != nil {
				return err
			}

			output(cmd).PrintMessage("Left room " + args[0])
			return nil
		},
	}
}

func newTeamCmd() *cobra.Command {
	var target string

	cmd := &cobra.Command{
		Use:   "team <room> <green|purple>",
		Short: "Switch team (admin may move others with --target)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]string{"playerId": target, "team": args[1]}
			var result Room

			if err := client.Post(cmd.Context(), roomPath(args[0], "team"), req, &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&target, "target", "", "Player to move (default: yourself)")

	return cmd
}

func newRoleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "role <room> <player> <tagger|codebreaker>",
		Short: "Assign a player's role (admin only)",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]string{"playerId": args[1], "role": args[2]}
			var result Room

			if err := client.Post(cmd.Context(), roomPath(args[0], "role"), req, &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}

	return cmd
}
