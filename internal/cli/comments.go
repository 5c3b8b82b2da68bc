package cli

import (
	"log/slog"
	"time"

	"github.com/asiflhr/data-engineering-journey/internal/pipeline/comments"
	"github.com/spf13/cobra"
)

var commentsCmd = &cobra.Command{
	Use:   "comments",
	Short: "Fetch, validate, and enrich comments into partitioned JSONL",
	RunE:  runComments,
}

func init() {
	rootCmd.AddCommand(commentsCmd)
}

func runComments(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	validator, err := newValidator(cfg)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	sink, err := openSink(cfg, now)
	if err != nil {
		return err
	}
	defer sink.Close()

	summary, err := comments.Run(cmd.Context(), comments.Deps{
		Fetcher:   newFetcher(cfg),
		Validator: validator,
		Sink:      sink,
	}, comments.Params{
		OutputRoot: cfg.Paths.OutputDir,
		PageSize:   cfg.API.PageSize,
		MaxItems:   cfg.API.MaxItems,
		RunTime:    now,
	})
	if err != nil {
		return err
	}

	slog.Info("Comment ingestion completed",
		"processed", summary.Processed,
		"skipped", summary.Skipped,
		"output", summary.OutputPath)
	return nil
}
