package main

import (
	"log/slog"
	"os"

	"github.com/asiflhr/data-engineering-journey/internal/cli"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := cli.Execute(); err != nil {
		slog.Error("Run failed", "error", err)
		os.Exit(1)
	}
}
