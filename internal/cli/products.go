package cli

import (
	"log/slog"
	"time"

	"github.com/asiflhr/data-engineering-journey/internal/core/storage/postgres"
	"github.com/asiflhr/data-engineering-journey/internal/migrations"
	"github.com/asiflhr/data-engineering-journey/internal/pipeline/products"
	"github.com/spf13/cobra"
)

var productsDate string

var productsCmd = &cobra.Command{
	Use:   "products",
	Short: "Merge the product and inventory feeds and load them into Postgres",
	RunE:  runProducts,
}

func init() {
	productsCmd.Flags().StringVar(&productsDate, "date", "", "input partition date as YYYYMMDD (default: today)")
	rootCmd.AddCommand(productsCmd)
}

func runProducts(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	runDate, err := resolveDate(productsDate)
	if err != nil {
		return err
	}

	store, err := postgres.NewAdapter(cfg.Database.DSN(), cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := migrations.Run(store.DB(), cfg.Database.AutoMigrate); err != nil {
		return err
	}
	if err := store.ValidateSchema(); err != nil {
		return err
	}

	validator, err := newValidator(cfg)
	if err != nil {
		return err
	}

	sink, err := openSink(cfg, runDate)
	if err != nil {
		return err
	}
	defer sink.Close()

	summary, err := products.Run(cmd.Context(), products.Deps{
		Validator: validator,
		Sink:      sink,
		Store:     store,
	}, products.Params{
		InputDir: cfg.Paths.InputDir,
		RunDate:  runDate,
	})
	if err != nil {
		return err
	}

	slog.Info("ETL pipeline completed",
		"loaded", summary.Loaded,
		"load_failures", summary.LoadFailures,
		"quarantined", summary.Quarantined)
	return nil
}

// resolveDate parses a YYYYMMDD flag value, defaulting to today (UTC).
func resolveDate(flag string) (time.Time, error) {
	if flag == "" {
		return time.Now().UTC(), nil
	}
	return time.Parse("20060102", flag)
}
