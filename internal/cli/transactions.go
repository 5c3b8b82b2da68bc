package cli

import (
	"log/slog"
	"path/filepath"

	"github.com/asiflhr/data-engineering-journey/internal/pipeline/transactions"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var transactionsCmd = &cobra.Command{
	Use:   "transactions",
	Short: "Aggregate new daily transaction files incrementally",
	RunE:  runTransactions,
}

func init() {
	rootCmd.AddCommand(transactionsCmd)
}

func runTransactions(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	summary, err := transactions.Run(cmd.Context(), transactions.Params{
		InputDir:           cfg.Paths.InputDir,
		OutputDir:          cfg.Paths.OutputDir,
		StatePath:          filepath.Join(cfg.Paths.StateDir, "last_processed_date.txt"),
		HighValueThreshold: decimal.NewFromFloat(cfg.Transactions.HighValueThreshold),
	})
	if err != nil {
		return err
	}

	slog.Info("Transaction aggregation completed",
		"files", summary.FilesProcessed,
		"rows", summary.RowsAggregated,
		"skipped", summary.RowsSkipped,
		"high_value", summary.HighValueCount)
	return nil
}
