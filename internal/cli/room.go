package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mcoot/bingoroom/internal/api/request"
	"github.com/mcoot/bingoroom/internal/api/response"
	"github.com/mcoot/bingoroom/internal/model"
)

func newRoomCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "room",
		Short: "Room management commands",
	}

	cmd.AddCommand(newRoomCreateCmd())
	cmd.AddCommand(newRoomGetCmd())
	cmd.AddCommand(newRoomPlayersCmd())
	cmd.AddCommand(newRoomJoinCmd())
	cmd.AddCommand(newRoomClaimHostCmd())
	cmd.AddCommand(newRoomStartCmd())
	cmd.AddCommand(newRoomSubmitCmd())
	cmd.AddCommand(newRoomLeaderboardCmd())
	cmd.AddCommand(newRoomQRCmd())

	return cmd
}

// codeArg parses and normalizes the room code argument
func codeArg(args []string) (model.RoomCode, error) {
	return model.ParseCode(args[0])
}

func newRoomCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create",
		Short: "Create a new room",
		RunE: func(cmd *cobra.Command, args []string) error {
			room, err := client.CreateRoom(cmd.Context())
			if err != nil {
				return err
			}

			NewOutput(cfg.Output).Print(room)
			return nil
		},
	}
}

func newRoomGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <code>",
		Short: "Get room details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := codeArg(args)
			if err != nil {
				return err
			}

			room, err := client.Room(cmd.Context(), code)
			if err != nil {
				return err
			}

			NewOutput(cfg.Output).Print(room)
			return nil
		},
	}
}

func newRoomPlayersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "players <code>",
		Short: "List the players in a room",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := codeArg(args)
			if err != nil {
				return err
			}

			roster, err := client.Roster(cmd.Context(), code)
			if err != nil {
				return err
			}

			NewOutput(cfg.Output).Print(roster)
			return nil
		},
	}
}

func newRoomJoinCmd() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "join <code>",
		Short: "Join a room",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := codeArg(args)
			if err != nil {
				return err
			}

			var player response.Player
			if err := client.Post(cmd.Context(), roomPath(code, "/players"), request.JoinRoomRequest{Name: name}, &player); err != nil {
				return err
			}

			NewOutput(cfg.Output).Print(player)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Display name (required)")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func newRoomClaimHostCmd() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "claim-host <code>",
		Short: "Claim host of a room if nobody holds it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := codeArg(args)
			if err != nil {
				return err
			}

			var claim response.HostClaim
			if err := client.Post(cmd.Context(), roomPath(code, "/host"), request.ClaimHostRequest{Name: name}, &claim); err != nil {
				return err
			}

			NewOutput(cfg.Output).Print(claim)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Display name (required)")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func newRoomStartCmd() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "start <code>",
		Short: "Start the game (host only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := codeArg(args)
			if err != nil {
				return err
			}

			if err := client.Start(cmd.Context(), code, name); err != nil {
				return err
			}

			NewOutput(cfg.Output).PrintMessage("Game started")
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Host display name (required)")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func newRoomSubmitCmd() *cobra.Command {
	var req request.SubmitResultRequest

	cmd := &cobra.Command{
		Use:   "submit <code>",
		Short: "Submit a finished game's result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := codeArg(args)
			if err != nil {
				return err
			}

			var result response.Result
			if err := client.Post(cmd.Context(), roomPath(code, "/results"), req, &result); err != nil {
				return err
			}

			NewOutput(cfg.Output).Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&req.PlayerName, "name", "", "Display name (required)")
	cmd.Flags().IntVar(&req.Score, "score", 0, "Number of correct answers")
	cmd.Flags().IntVar(&req.TotalTime, "time", 0, "Total time in seconds")
	cmd.Flags().IntVar(&req.BestStreak, "streak", 0, "Best streak")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func newRoomLeaderboardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "leaderboard <code>",
		Short: "Show a room's ranked results",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := codeArg(args)
			if err != nil {
				return err
			}

			board, err := client.Board(cmd.Context(), code)
			if err != nil {
				return err
			}

			NewOutput(cfg.Output).Print(board)
			return nil
		},
	}
}

func newRoomQRCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "qr <code>",
		Short: "Save a QR code linking to the room",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := codeArg(args)
			if err != nil {
				return err
			}

			png, err := client.QR(cmd.Context(), code)
			if err != nil {
				return err
			}

			path := file
			if path == "" {
				path = fmt.Sprintf("%s.png", code)
			}
			if err := os.WriteFile(path, png, 0o644); err != nil {
				return err
			}

			NewOutput(cfg.Output).PrintMessage(fmt.Sprintf("Saved QR code to %s", path))
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Output path (default: <code>.png)")

	return cmd
}
