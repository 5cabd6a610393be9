package cli

import (
	"context"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/vietddude/blockprice/internal/control"
)

var syncBlocksCmd = &cobra.Command{
	Use:   "sync-blocks <network> <start> <end>",
	Short: "Warm the block timestamp cache of a network",
	Args:  cobra.ExactArgs(3),
	RunE:  runSyncBlocks,
}

var warmNow bool

var warmCmd = &cobra.Command{
	Use:   "warm",
	Short: "Keep the configured watchlist warm on a schedule and serve health",
	Args:  cobra.NoArgs,
	RunE:  runWarm,
}

func init() {
	warmCmd.Flags().BoolVar(&warmNow, "now", false, "run one warm pass before the first scheduled run")
	rootCmd.AddCommand(syncBlocksCmd, warmCmd)
}

func runSyncBlocks(cmd *cobra.Command, args []string) error {
	network, err := parseNetwork(args[0])
	if err != nil {
		return err
	}
	start, err := parseUnix("start", args[1])
	if err != nil {
		return err
	}
	end, err := parseUnix("end", args[2])
	if err != nil {
		return err
	}

	return withApp(cmd, func(ctx context.Context, app *control.App) error {
		cached, err := app.Service().SyncBlocks(ctx, network, start, end)
		if err != nil {
			return err
		}
		slog.Info("Blocks synced", "network", network.String(), "cached", cached)
		return nil
	})
}

func runWarm(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, app *control.App) error {
		if err := app.Start(ctx); err != nil {
			return err
		}
		slog.Info("Warmer running", "config", cfgPath, "port", appConfig.Server.Port)

		if warmNow {
			if err := app.Warmer().RunOnce(ctx); err != nil {
				slog.Warn("Initial warm pass finished with errors", "error", err)
			}
		}

		<-ctx.Done()
		slog.Info("Received signal, shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := app.Stop(shutdownCtx); err != nil {
			slog.Error("Error during shutdown", "error", err)
			return err
		}
		return nil
	})
}
