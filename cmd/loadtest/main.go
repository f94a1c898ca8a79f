package main

import (
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/starweave/starweave/internal/ai"
	"github.com/starweave/starweave/internal/factory"
	"github.com/starweave/starweave/internal/model"
)

// newRootCmd creates the loadtest command
func newRootCmd() *cobra.Command {
	opts := ai.DefaultOptions()
	var verbose bool

	cmd := &cobra.Command{
		Use:   "loadtest",
		Short: "Run a bot farm against an in-process game core",
		Long: `loadtest stands up the full game core with in-memory storage and
floods it with bot players. Each room gets its own set of bots; the
first one configures the map and starts the game, then everyone plays
until a single survivor remains.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			level := slog.LevelInfo
			if verbose {
				level = slog.LevelDebug
			}
			logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
				Level: level,
			}))

			app, err := factory.New(factory.Config{Logger: logger})
			if err != nil {
				return err
			}

			start := time.Now()
			farm := ai.NewFarm(app.Dispatcher, app.Random, logger)
			if err := farm.Run(cmd.Context(), opts); err != nil {
				return err
			}

			logger.Info("load test complete",
				slog.Int("rooms", opts.Rooms),
				slog.Int("bots_per_room", opts.BotsPerRoom),
				slog.Duration("elapsed", time.Since(start)))
			return nil
		},
	}

	defaults := model.DefaultGameOptions()
	cmd.Flags().IntVar(&opts.Rooms, "rooms", opts.Rooms, "Number of rooms to fill with bots")
	cmd.Flags().IntVar(&opts.BotsPerRoom, "bots-per-room", opts.BotsPerRoom, "Number of bots per room")
	cmd.Flags().IntVar(&opts.GameOptions.MapWidth, "map-width", defaults.MapWidth, "Map width in cells")
	cmd.Flags().IntVar(&opts.GameOptions.MapHeight, "map-height", defaults.MapHeight, "Map height in cells")
	cmd.Flags().IntVar(&opts.GameOptions.NeutralPlanets, "neutral-planets", defaults.NeutralPlanets, "Number of neutral planets")
	cmd.Flags().DurationVar(&opts.JoinDelay, "join-delay", opts.JoinDelay, "Pause between bot connections")
	cmd.Flags().DurationVar(&opts.TurnDelay, "turn-delay", opts.TurnDelay, "Pause between turn submissions")
	cmd.Flags().IntVar(&opts.MaxTurns, "max-turns", opts.MaxTurns, "Stop after this many turns (0 = play to the end)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")

	return cmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
