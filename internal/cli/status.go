package cli

import (
	"context"
	"fmt"
	"log/slog"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/vietddude/blockprice/internal/control"
	"github.com/vietddude/blockprice/internal/core/cache"
	"github.com/vietddude/blockprice/internal/core/domain"
	"github.com/vietddude/blockprice/internal/infra/storage"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the cached partitions and their entry counts",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	store, _, err := control.OpenStore(ctx, appConfig)
	if err != nil {
		return err
	}
	defer func() {
		_ = store.Close()
	}()

	return printStatus(ctx, cmd, store)
}

func printStatus(ctx context.Context, cmd *cobra.Command, store storage.SnapshotStore) error {
	partitions, err := store.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list partitions: %w", err)
	}

	opts := cache.Options{Logger: slog.Default()}
	blocks := cache.NewBlockCache(store, opts)
	prices := cache.NewPriceCache(store, opts)

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
	_, _ = fmt.Fprintln(w, "PARTITION\tKIND\tENTRIES\tFIRST\tLAST")

	for _, name := range partitions {
		key, err := domain.ParsePartitionKey(name)
		if err != nil {
			slog.Debug("Skipping unknown partition", "partition", name, "error", err)
			continue
		}

		var kind string
		var entries int
		var lo, hi int64
		if key.IsBlocks() {
			s := blocks.Load(ctx, key)
			kind, entries = "blocks", len(s)
			lo, hi, _ = s.Bounds()
		} else {
			s := prices.Load(ctx, key)
			kind, entries = "prices", len(s)
			lo, hi, _ = s.Bounds()
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\n", key, kind, entries, lo, hi)
	}
	return w.Flush()
}
