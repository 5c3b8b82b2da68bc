// Package orders ingests the remote order collection incrementally:
// already-processed order IDs are skipped without re-validation, the rest
// are validated, written to date-partitioned JSONL, and durably marked.
package orders

import (
	"context"
	"log/slog"
	"time"

	"github.com/asiflhr/data-engineering-journey/internal/core/partition"
	"github.com/asiflhr/data-engineering-journey/internal/core/record"
	"github.com/asiflhr/data-engineering-journey/internal/core/validate"
	"github.com/asiflhr/data-engineering-journey/internal/fetch"
	"github.com/asiflhr/data-engineering-journey/internal/output"
	"github.com/asiflhr/data-engineering-journey/internal/quarantine"
	"github.com/asiflhr/data-engineering-journey/internal/state"
)

// Deps are the collaborators the pipeline needs.
type Deps struct {
	Fetcher   *fetch.Fetcher
	Validator *validate.Validator
	Sink      *quarantine.Sink
	Processed *state.ProcessedSet
}

// Params configure one run.
type Params struct {
	OutputRoot string
	PageSize   int
	MaxItems   int
	RunTime    time.Time
}

// Summary reports what one run did.
type Summary struct {
	Ingested   int
	Skipped    int // already processed in an earlier run
	Rejected   int
	OutputPath string
}

// Run fetches orders page by page. An ID found in the processed set is
// skipped entirely — not re-validated, not re-written. Each valid order is
// written before its ID is marked, so a crash between the two can only
// produce a duplicate line on replay, never a silently dropped order.
func Run(ctx context.Context, deps Deps, params Params) (*Summary, error) {
	outPath := partition.FilePath(params.OutputRoot, "orders", params.RunTime)
	writer, err := output.NewJSONLWriter(outPath)
	if err != nil {
		return nil, err
	}
	defer writer.Close()

	summary := &Summary{OutputPath: outPath}

	err = deps.Fetcher.Pages(ctx, "/orders", params.PageSize, params.MaxItems, func(page []record.Record) error {
		for _, order := range page {
			id := order.String("id")
			if id != "" && deps.Processed.Contains(id) {
				summary.Skipped++
				continue
			}

			res, err := deps.Validator.Validate("orders_api", order)
			if err != nil {
				return err
			}
			if !res.Valid {
				slog.Warn("[Orders] Order failed validation", "order_id", id, "reasons", res.Errors)
				summary.Rejected++
				if err := deps.Sink.Reject(quarantine.Entry{
					Source:  quarantine.SourceOrdersAPI,
					Record:  order,
					Reasons: res.Errors,
				}); err != nil {
					return err
				}
				continue
			}

			if err := writer.Write(order); err != nil {
				return err
			}
			// Mark is durable before it returns; losing it would mean
			// re-processing, losing the write would mean a duplicate skip.
			if err := deps.Processed.Mark(id); err != nil {
				return err
			}
			summary.Ingested++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("[Orders] Finished ingesting",
		"ingested", summary.Ingested,
		"skipped", summary.Skipped,
		"rejected", summary.Rejected,
		"output", outPath)
	return summary, nil
}
