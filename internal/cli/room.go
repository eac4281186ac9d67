package cli

import (
	"github.com/spf13/cobra"
)

func newRoomCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "room",
		Short: "Room lifecycle commands",
	}

	cmd.AddCommand(newRoomJoinStageCmd())
	cmd.AddCommand(newRoomJoinCmd())
	cmd.AddCommand(newRoomLeaveCmd())
	cmd.AddCommand(newRoomReadyCmd())
	cmd.AddCommand(newRoomContextCmd())
	cmd.AddCommand(newRoomCompleteCmd())
	cmd.AddCommand(newRoomGetCmd())

	return cmd
}

// roomResult handles the 200-with-room / 204-no-room split on endpoints
// that may leave the caller roomless after a transition
func roomResult(path string, body any) error {
	var result RoomDetail

	if err := client.Post(path, body, &result); err != nil {
		return err
	}

	out := NewOutput(cfg.Output)
	if result.RoomID == "" {
		out.PrintMessage("Not in a room")
		return nil
	}
	out.Print(result)
	return nil
}

func newRoomJoinStageCmd() *cobra.Command {
	var stage string

	cmd := &cobra.Command{
		Use:   "join-stage",
		Short: "Join any open room of a pipeline stage",
		RunE: func(cmd *cobra.Command, args []string) error {
			return roomResult("/api/v1/rooms/join", map[string]string{"stage": stage})
		},
	}

	cmd.Flags().StringVar(&stage, "stage", "lobby", "Pipeline stage: lobby, preparation, game, after-game")

	return cmd
}

func newRoomJoinCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "join <room-id>",
		Short: "Join a specific room",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return roomResult("/api/v1/rooms/"+args[0]+"/join", nil)
		},
	}
}

func newRoomLeaveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "leave <room-id>",
		Short: "Leave a room",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := client.Post("/api/v1/rooms/"+args[0]+"/leave", nil, nil); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.PrintMessage("Left room")
			return nil
		},
	}
}

func newRoomReadyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ready <room-id>",
		Short: "Mark yourself ready in a room",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return roomResult("/api/v1/rooms/"+args[0]+"/ready", nil)
		},
	}
}

func newRoomContextCmd() *cobra.Command {
	var key, value string

	cmd := &cobra.Command{
		Use:   "context <room-id>",
		Short: "Set a carry-over context value on a room",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]string{"key": key, "value": value}
			return roomResult("/api/v1/rooms/"+args[0]+"/context", req)
		},
	}

	cmd.Flags().StringVar(&key, "key", "", "Context key (required)")
	cmd.Flags().StringVar(&value, "value", "", "Context value")
	_ = cmd.MarkFlagRequired("key")

	return cmd
}

func newRoomCompleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "complete <room-id>",
		Short: "Complete the current stage for the room's group",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return roomResult("/api/v1/rooms/"+args[0]+"/complete", nil)
		},
	}
}

func newRoomGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <room-id>",
		Short: "Show a room",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result RoomDetail

			if err := client.Get("/api/v1/rooms/"+args[0], &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}
