// Package cli wires the batch pipelines into the datapipe command tree.
package cli

import (
	"os"
	"time"

	"github.com/asiflhr/data-engineering-journey/internal/core/config"
	"github.com/asiflhr/data-engineering-journey/internal/core/validate"
	"github.com/asiflhr/data-engineering-journey/internal/fetch"
	"github.com/asiflhr/data-engineering-journey/internal/quarantine"
	"github.com/spf13/cobra"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:          "datapipe",
	Short:        "Batch data ingestion and transformation pipelines",
	Long:         "datapipe runs one-shot batch pipelines: API ingestion, CSV aggregation, and the product/inventory ETL into Postgres.",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "datapipe.yaml", "path to configuration file")
}

// Execute runs the command tree. Errors are returned to main for exit
// status handling.
func Execute() error {
	return rootCmd.Execute()
}

// loadConfig parses and validates config. Any violation aborts the command
// before the pipeline performs I/O. The default config file is optional;
// an explicitly flagged one is not.
func loadConfig() (*config.Config, error) {
	if !rootCmd.PersistentFlags().Changed("config") {
		if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
			return config.Load("")
		}
	}
	return config.Load(cfgPath)
}

// newValidator builds the record validator: built-in rule sets, shadowed
// by the configured rules directory when one is set.
func newValidator(cfg *config.Config) (*validate.Validator, error) {
	v, err := validate.NewValidator()
	if err != nil {
		return nil, err
	}
	if cfg.Validation.RulesDir != "" {
		if err := v.LoadDir(cfg.Validation.RulesDir); err != nil {
			return nil, err
		}
	}
	return v, nil
}

// newFetcher builds the retrying fetcher from the API config section.
func newFetcher(cfg *config.Config) *fetch.Fetcher {
	return fetch.New(cfg.API.BaseURL, cfg.API.TimeoutDuration(), fetch.Policy{
		MaxAttempts:   cfg.API.Retry.MaxAttempts,
		InitialDelay:  cfg.API.Retry.InitialDelayDuration(),
		BackoffFactor: cfg.API.Retry.BackoffFactor,
	})
}

// openSink opens the daily quarantine file for this run.
func openSink(cfg *config.Config, now time.Time) (*quarantine.Sink, error) {
	return quarantine.OpenSink(cfg.Paths.BadRecordsDir, now)
}
