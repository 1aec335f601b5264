package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mcoot/topple/internal/api/request"
	"github.com/mcoot/topple/internal/api/response"
)

func newMatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "match",
		Short: "Match commands",
	}

	cmd.AddCommand(newMatchStartCmd())
	cmd.AddCommand(newMatchListCmd())
	cmd.AddCommand(newMatchGetCmd())
	cmd.AddCommand(newMatchLaunchCmd())
	cmd.AddCommand(newMatchRestartCmd())
	cmd.AddCommand(newMatchEndCmd())

	return cmd
}

func newMatchStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start a new match against the bot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var result response.Match

			if err := client.Post(cmd.Context(), "/api/v1/matches", nil, &result); err != nil {
				return err
			}

			NewOutput(cfg.Output, cmd.OutOrStdout()).Print(result)
			return nil
		},
	}
}

func newMatchListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored matches",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var result response.MatchListResponse

			if err := client.Get(cmd.Context(), "/api/v1/matches", &result); err != nil {
				return err
			}

			NewOutput(cfg.Output, cmd.OutOrStdout()).Print(result)
			return nil
		},
	}
}

func newMatchGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Get match state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := getMatch(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			NewOutput(cfg.Output, cmd.OutOrStdout()).Print(*result)
			return nil
		},
	}
}

func newMatchLaunchCmd() *cobra.Command {
	var (
		angle float64
		power float64
		hold  time.Duration
		wait  bool
	)

	cmd := &cobra.Command{
		Use:   "launch <id>",
		Short: "Take your turn",
		Long: `Launch the projectile at the structure.

The angle is in degrees above the horizontal. Give the launch strength either
directly with --power or as --hold, the time the launch button would have been
held: power climbs by one every 40ms and wraps back to zero at the maximum.

With --wait the command returns once the bot has answered, or the match is over.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]

			req := request.LaunchRequest{AngleDeg: &angle}
			if cmd.Flags().Changed("hold") {
				ms := hold.Milliseconds()
				req.HoldMS = &ms
			} else {
				req.Power = &power
			}

			var result response.Match
			if err := client.Post(cmd.Context(), fmt.Sprintf("/api/v1/matches/%s/turns", id), req, &result); err != nil {
				return err
			}

			if wait {
				final, err := waitForPlayerTurn(cmd.Context(), id, 500*time.Millisecond)
				if err != nil {
					return err
				}
				result = *final
			}

			NewOutput(cfg.Output, cmd.OutOrStdout()).Print(result)
			return nil
		},
	}

	cmd.Flags().Float64Var(&angle, "angle", 45, "Launch angle in degrees")
	cmd.Flags().Float64Var(&power, "power", 0, "Launch power")
	cmd.Flags().DurationVar(&hold, "hold", 0, "Hold duration converted to power (e.g. 1.2s)")
	cmd.Flags().BoolVar(&wait, "wait", false, "Wait until the bot has taken its turn")
	cmd.MarkFlagsOneRequired("power", "hold")
	cmd.MarkFlagsMutuallyExclusive("power", "hold")

	return cmd
}

func newMatchRestartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restart <id>",
		Short: "Start the match over from round 1",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result response.Match

			if err := client.Post(cmd.Context(), fmt.Sprintf("/api/v1/matches/%s/restart", args[0]), nil, &result); err != nil {
				return err
			}

			NewOutput(cfg.Output, cmd.OutOrStdout()).Print(result)
			return nil
		},
	}
}

func newMatchEndCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "end <id>",
		Short: "End the match",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result response.Match

			if err := client.Delete(cmd.Context(), fmt.Sprintf("/api/v1/matches/%s", args[0]), &result); err != nil {
				return err
			}

			NewOutput(cfg.Output, cmd.OutOrStdout()).Print(result)
			return nil
		},
	}
}

func getMatch(ctx context.Context, id string) (*response.Match, error) {
	var result response.Match
	if err := client.Get(ctx, fmt.Sprintf("/api/v1/matches/%s", id), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// waitForPlayerTurn polls until the player may launch again or the match ends
func waitForPlayerTurn(ctx context.Context, id string, interval time.Duration) (*response.Match, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		m, err := getMatch(ctx, id)
		if err != nil {
			return nil, err
		}
		if m.Phase == "end" || (m.ActiveSide == "player" && !m.TurnInProgress) {
			return m, nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("waiting for match %s: %w", id, ctx.Err())
		case <-ticker.C:
		}
	}
}
