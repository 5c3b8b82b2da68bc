package cli

import (
	"errors"
	"log/slog"
	"time"

	"github.com/asiflhr/data-engineering-journey/internal/pipeline/users"
	"github.com/spf13/cobra"
)

var usersCity string

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Fetch users and filter them by city",
	RunE:  runUsers,
}

func init() {
	usersCmd.Flags().StringVar(&usersCity, "city", "", "city to filter users by (required)")
	rootCmd.AddCommand(usersCmd)
}

func runUsers(cmd *cobra.Command, _ []string) error {
	if usersCity == "" {
		return errors.New("--city is required")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	summary, err := users.Run(cmd.Context(), newFetcher(cfg), users.Params{
		OutputDir: cfg.Paths.OutputDir,
		City:      usersCity,
		RunTime:   time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	slog.Info("User filtering completed",
		"fetched", summary.Fetched,
		"matched", summary.Matched,
		"output", summary.OutputPath)
	return nil
}
