package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
	"github.com/vietddude/stylelog"

	"github.com/vietddude/blockprice/internal/control"
	"github.com/vietddude/blockprice/internal/core/config"
	"github.com/vietddude/blockprice/internal/core/domain"
)

// ExitCancelled is the status used when a signal cancels the run.
const ExitCancelled = 130

var (
	cfgPath     string
	isDebug     bool
	cacheDir    string
	forceReload bool

	appConfig *config.AppConfig
)

var rootCmd = &cobra.Command{
	Use:   "blockprice",
	Short: "Historical token prices aligned to blocks",
	Long: `blockprice fetches, caches and merges block timestamps and token USD
price histories, and answers point, range and spot price queries.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	code := exitCode(err)
	if code == 1 {
		slog.Error("Command failed", "error", err)
	}
	os.Exit(code)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "config.yaml", "config file (default is config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&isDebug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&cacheDir, "cache-dir", "", "override cache.path for the file backend")
	rootCmd.PersistentFlags().BoolVar(&forceReload, "force-reload", false, "ignore persisted snapshots and rebuild from remote")
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, context.Canceled):
		return ExitCancelled
	default:
		return 1
	}
}

func setup(cmd *cobra.Command, args []string) error {
	_ = godotenv.Load()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		stylelog.InitDefault()
		return err
	}
	if cacheDir != "" {
		cfg.Cache.Path = cacheDir
	}
	if forceReload {
		cfg.Cache.ForceReload = true
	}

	slogLevel := slog.LevelInfo
	if isDebug || cfg.Logging.Level == "debug" {
		slogLevel = slog.LevelDebug
	}
	stylelog.InitDefault(&tint.Options{
		Level:      slogLevel,
		TimeFormat: time.RFC3339,
	})

	appConfig = cfg
	return nil
}

// withApp builds the application for one command and closes it afterwards.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, app *control.App) error) error {
	ctx := cmd.Context()
	app, err := control.NewApp(ctx, appConfig, slog.Default())
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}
	defer func() {
		if err := app.Close(); err != nil {
			slog.Warn("Failed to close", "error", err)
		}
	}()
	return fn(ctx, app)
}

func parseNetwork(arg string) (domain.Network, error) {
	return domain.ParseNetwork(arg)
}

func parseUnix(name, arg string) (int64, error) {
	v, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: expected unix seconds", name, arg)
	}
	return v, nil
}
