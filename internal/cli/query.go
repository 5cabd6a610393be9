package cli

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/vietddude/blockprice/internal/control"
)

var priceAtCmd = &cobra.Command{
	Use:   "price-at <network> <token> <unix>",
	Short: "Print the price of a token at a unix timestamp",
	Args:  cobra.ExactArgs(3),
	RunE:  runPriceAt,
}

var pricesCmd = &cobra.Command{
	Use:   "prices <network> <token> <start> <end>",
	Short: "Print the price of a token at every block between two timestamps",
	Args:  cobra.ExactArgs(4),
	RunE:  runPrices,
}

var priceNowCmd = &cobra.Command{
	Use:   "price-now <network> <token>",
	Short: "Print the current spot price of a token",
	Args:  cobra.ExactArgs(2),
	RunE:  runPriceNow,
}

func init() {
	rootCmd.AddCommand(priceAtCmd, pricesCmd, priceNowCmd)
}

func runPriceAt(cmd *cobra.Command, args []string) error {
	network, err := parseNetwork(args[0])
	if err != nil {
		return err
	}
	ts, err := parseUnix("timestamp", args[2])
	if err != nil {
		return err
	}

	return withApp(cmd, func(ctx context.Context, app *control.App) error {
		res, err := app.Service().PriceAt(ctx, network, args[1], ts)
		if err != nil {
			return err
		}
		warnIncomplete(res.Complete)
		return writeJSON(cmd, map[string]float64{strconv.FormatInt(ts, 10): res.Price})
	})
}

func runPrices(cmd *cobra.Command, args []string) error {
	network, err := parseNetwork(args[0])
	if err != nil {
		return err
	}
	start, err := parseUnix("start", args[2])
	if err != nil {
		return err
	}
	end, err := parseUnix("end", args[3])
	if err != nil {
		return err
	}

	return withApp(cmd, func(ctx context.Context, app *control.App) error {
		res, err := app.Service().PricesInDuration(ctx, network, args[1], start, end)
		if err != nil {
			return err
		}
		warnIncomplete(res.Complete)
		return writeJSON(cmd, res.Prices)
	})
}

func runPriceNow(cmd *cobra.Command, args []string) error {
	network, err := parseNetwork(args[0])
	if err != nil {
		return err
	}

	return withApp(cmd, func(ctx context.Context, app *control.App) error {
		price, err := app.Service().CurrentPrice(ctx, network, args[1])
		if err != nil {
			return err
		}
		return writeJSON(cmd, price)
	})
}

func warnIncomplete(complete bool) {
	if !complete {
		slog.Warn("Price history is incomplete, some remote fetches failed; result built from partial data")
	}
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
