package cli

import (
	"log/slog"
	"path/filepath"
	"time"

	"github.com/asiflhr/data-engineering-journey/internal/pipeline/orders"
	"github.com/asiflhr/data-engineering-journey/internal/state"
	"github.com/spf13/cobra"
)

var ordersCmd = &cobra.Command{
	Use:   "orders",
	Short: "Ingest new orders, skipping IDs processed by earlier runs",
	RunE:  runOrders,
}

func init() {
	rootCmd.AddCommand(ordersCmd)
}

func runOrders(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	validator, err := newValidator(cfg)
	if err != nil {
		return err
	}

	processed, err := state.OpenProcessedSet(filepath.Join(cfg.Paths.StateDir, "processed_order_ids.txt"))
	if err != nil {
		return err
	}
	defer processed.Close()

	now := time.Now().UTC()
	sink, err := openSink(cfg, now)
	if err != nil {
		return err
	}
	defer sink.Close()

	summary, err := orders.Run(cmd.Context(), orders.Deps{
		Fetcher:   newFetcher(cfg),
		Validator: validator,
		Sink:      sink,
		Processed: processed,
	}, orders.Params{
		OutputRoot: cfg.Paths.OutputDir,
		PageSize:   cfg.API.PageSize,
		MaxItems:   cfg.API.MaxItems,
		RunTime:    now,
	})
	if err != nil {
		return err
	}

	slog.Info("Order ingestion completed",
		"ingested", summary.Ingested,
		"skipped", summary.Skipped,
		"rejected", summary.Rejected)
	return nil
}
