package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

// nextPhase mirrors the server's forward-only phase order
var nextPhase = map[string]string{
	"lobby":            "descriptionPhase",
	"descriptionPhase": "guessingPhase",
	"guessingPhase":    "gameOver",
}

func newGameCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "game",
		Short: "Game commands",
	}

	cmd.AddCommand(newGameStartCmd())
	cmd.AddCommand(newGameSkipCmd())
	cmd.AddCommand(newGameDescribeCmd())
	cmd.AddCommand(newGameUndescribeCmd())
	cmd.AddCommand(newGameGuessCmd())
	cmd.AddCommand(newGameResetCmd())

	return cmd
}

func newGameStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start <room>",
		Short: "Start the description phase (admin only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Room

			if err := client.Post(cmd.Context(), roomPath(args[0], "start"), nil, &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}
}

func newGameSkipCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "skip <room> [phase]",
		Short: "Skip to the next phase without waiting for the timer (admin only)",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			phase := ""
			if len(args) == 2 {
				phase = args[1]
			} else {
				var room Room
				if err := client.Get(cmd.Context(), roomPath(args[0]), &room); err != nil {
					return err
				}
				next, ok := nextPhase[room.Phase]
				if !ok {
					return fmt.Errorf("room %s is in %s, which has no next phase", args[0], room.Phase)
				}
				phase = next
			}

			req := map[string]any{"phase": phase, "skipToPhase": true}
			var result Room

			if err := client.Post(cmd.Context(), roomPath(args[0], "phase"), req, &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}
}

func newGameDescribeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "describe <room> <image> <text...>",
		Short: "Describe an image, replacing your previous description of it",
		Long: `Describe an image during the description phase.

<image> is the image ID or its 1-based position on the board as shown by
"room get". Other players cannot see your description until guessing starts.`,
		Args: cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			imageID, err := resolveImage(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}

			req := map[string]string{"imageId": imageID, "text": strings.Join(args[2:], " ")}
			var result Room

			if err := client.Post(cmd.Context(), roomPath(args[0], "descriptions"), req, &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}
}

func newGameUndescribeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "undescribe <room> <image>",
		Short: "Remove your description of an image",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			imageID, err := resolveImage(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}

			var result Room

			if err := client.Delete(cmd.Context(), roomPath(args[0], "descriptions", imageID), &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}
}

func newGameGuessCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "guess <room> <word> <count>",
		Short: "Guess a word as your team's codebreaker",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			count, err := strconv.Atoi(args[2])
			if err != nil {
				return fmt.Errorf("invalid count: %w", err)
			}

			req := map[string]any{"word": args[1], "count": count}
			var result GuessResult

			if err := client.Post(cmd.Context(), roomPath(args[0], "guess"), req, &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}
}

func newGameResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset <room>",
		Short: "Return a finished game to the lobby with a new board (admin only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Room

			if err := client.Post(cmd.Context(), roomPath(args[0], "reset"), nil, &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}
}

// resolveImage accepts an image ID or a 1-based board position
func resolveImage(ctx context.Context, roomID, ref string) (string, error) {
	n, err := strconv.Atoi(ref)
	if err != nil {
		return ref, nil
	}

	var room Room
	if err := client.Get(ctx, roomPath(roomID), &room); err != nil {
		return "", err
	}
	if n < 1 || n > len(room.Images) {
		return "", fmt.Errorf("image %d is not on the board (1-%d)", n, len(room.Images))
	}
	return room.Images[n-1].ID, nil
}
