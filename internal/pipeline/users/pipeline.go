// Package users fetches the remote user collection, filters it by city,
// and writes the filtered set as a JSON array file.
package users

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/asiflhr/data-engineering-journey/internal/core/partition"
	"github.com/asiflhr/data-engineering-journey/internal/core/record"
	"github.com/asiflhr/data-engineering-journey/internal/fetch"
)

// Params configure one run.
type Params struct {
	OutputDir string
	City      string
	RunTime   time.Time
}

// Summary reports what one run did.
type Summary struct {
	Fetched    int
	Matched    int
	OutputPath string
}

// Run fetches all users in one call and keeps those whose address.city
// matches. Output is a pretty-printed JSON array.
func Run(ctx context.Context, fetcher *fetch.Fetcher, params Params) (*Summary, error) {
	var all []record.Record
	if err := fetcher.GetJSON(ctx, "/users", &all); err != nil {
		return nil, err
	}
	slog.Info("[Users] Fetched users", "count", len(all), "city_filter", params.City)

	filtered := make([]record.Record, 0)
	for _, user := range all {
		if cityOf(user) == params.City {
			filtered = append(filtered, user)
		}
	}

	outPath := filepath.Join(params.OutputDir,
		fmt.Sprintf("users_%s_%s.json", params.City, partition.DateStamp(params.RunTime)))
	if err := os.MkdirAll(params.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("output dir: %w", err)
	}

	data, err := json.MarshalIndent(filtered, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling filtered users: %w", err)
	}
	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		return nil, fmt.Errorf("writing %s: %w", outPath, err)
	}

	slog.Info("[Users] Filtered users written", "matched", len(filtered), "path", outPath)
	return &Summary{Fetched: len(all), Matched: len(filtered), OutputPath: outPath}, nil
}

// cityOf safely digs address.city out of a user record.
func cityOf(user record.Record) string {
	address, ok := user["address"].(map[string]interface{})
	if !ok {
		return ""
	}
	city, _ := address["city"].(string)
	return city
}
