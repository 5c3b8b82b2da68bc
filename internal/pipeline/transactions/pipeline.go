// Package transactions implements the incremental daily transaction
// aggregator: new transactions_<YYYYMMDD>.csv files are folded into
// per-(category, region) totals and written out as a CSV report.
package transactions

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/asiflhr/data-engineering-journey/internal/core/aggregation"
	"github.com/asiflhr/data-engineering-journey/internal/core/partition"
	"github.com/asiflhr/data-engineering-journey/internal/core/record"
	"github.com/asiflhr/data-engineering-journey/internal/output"
	"github.com/asiflhr/data-engineering-journey/internal/state"
	"github.com/shopspring/decimal"
)

// requiredColumns are the CSV columns each transaction row must carry.
var requiredColumns = []string{"TransactionID", "ProductCategory", "Amount", "Region"}

// outputHeader is the aggregation report's CSV header.
var outputHeader = []string{"ProductCategory", "Region", "TotalSales", "AveragePrice", "TransactionCount"}

// Params configure one aggregation run.
type Params struct {
	InputDir           string
	OutputDir          string
	StatePath          string // last-processed-date file
	HighValueThreshold decimal.Decimal
}

// Summary reports what one run did.
type Summary struct {
	FilesProcessed int
	RowsAggregated int
	RowsSkipped    int
	HighValueCount int
	OutputPath     string // empty when there was nothing to write
}

// Run scans the input dir for transaction files newer than the last
// processed date, aggregates them, writes the report, and advances the
// state file. A rerun with no new files is a no-op.
func Run(ctx context.Context, params Params) (*Summary, error) {
	lastDate := state.LastDate{Path: params.StatePath}
	last, hasLast, err := lastDate.Load()
	if err != nil {
		return nil, err
	}
	if hasLast {
		slog.Info("[Transactions] Last processed date", "date", last.Format("2006-01-02"))
	} else {
		slog.Info("[Transactions] No previous state, processing all files")
	}

	files, latest, err := newFiles(params.InputDir, last, hasLast)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		slog.Info("[Transactions] No new transaction files to process")
		return &Summary{}, nil
	}
	slog.Info("[Transactions] Processing new files", "count", len(files))

	agg := aggregation.New()
	summary := &Summary{FilesProcessed: len(files)}
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := aggregateFile(path, params.HighValueThreshold, agg, summary); err != nil {
			return nil, err
		}
	}

	if agg.Len() == 0 {
		slog.Info("[Transactions] No new valid transactions to aggregate")
		return summary, nil
	}

	rows := make([][]string, 0, agg.Len())
	for _, r := range agg.Snapshot() {
		parts := r.Key.Parts()
		rows = append(rows, []string{
			parts[0],
			parts[1],
			r.Total.StringFixed(2),
			r.Average.StringFixed(2),
			fmt.Sprintf("%d", r.Count),
		})
	}

	outPath := filepath.Join(params.OutputDir,
		fmt.Sprintf("daily_aggregated_sales_%s.csv", partition.DateStamp(latest)))
	if err := output.WriteCSV(outPath, outputHeader, rows); err != nil {
		return nil, err
	}
	summary.OutputPath = outPath
	slog.Info("[Transactions] Aggregated data written", "path", outPath, "groups", len(rows))

	// Advance state only after a successful write so a failed run replays
	// its files next time.
	if err := lastDate.Store(latest); err != nil {
		return nil, err
	}
	slog.Info("[Transactions] Updated last processed date", "date", latest.Format("2006-01-02"))

	return summary, nil
}

// newFiles lists transactions_*.csv under dir whose filename date is newer
// than the last processed date, sorted, plus the newest date seen.
func newFiles(dir string, last time.Time, hasLast bool) ([]string, time.Time, error) {
	all, err := filepath.Glob(filepath.Join(dir, "transactions_*.csv"))
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("listing transaction files: %w", err)
	}
	sort.Strings(all)

	var (
		files  []string
		latest time.Time
	)
	for _, path := range all {
		name := filepath.Base(path)
		stamp := strings.TrimSuffix(strings.TrimPrefix(name, "transactions_"), ".csv")
		fileDate, err := partition.ParseDateStamp(stamp)
		if err != nil {
			slog.Warn("[Transactions] Could not parse date from filename, skipping", "file", name)
			continue
		}

		if hasLast && !fileDate.After(last) {
			slog.Info("[Transactions] Skipping already processed file", "file", name)
			continue
		}
		files = append(files, path)
		if fileDate.After(latest) {
			latest = fileDate
		}
	}
	return files, latest, nil
}

// aggregateFile folds one day's CSV into the aggregator. Rows with missing
// columns or non-positive amounts are skipped with a log line; they never
// reach the aggregator, so TransactionCount only counts valid rows.
func aggregateFile(path string, highValue decimal.Decimal, agg *aggregation.Aggregator, summary *Summary) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening transactions file %s: %w", path, err)
	}
	defer f.Close()

	slog.Info("[Transactions] Reading file", "path", path)

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	header, err := reader.Read()
	if err != nil {
		return fmt.Errorf("reading header of %s: %w", path, err)
	}

	colIdx := make(map[string]int, len(header))
	for i, col := range header {
		colIdx[col] = i
	}
	for _, col := range requiredColumns {
		if _, ok := colIdx[col]; !ok {
			return fmt.Errorf("file %s: missing expected column %q", filepath.Base(path), col)
		}
	}

	name := filepath.Base(path)
	for line := 2; ; line++ {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("reading %s line %d: %w", path, line, err)
		}

		cell := func(col string) string {
			i := colIdx[col]
			if i >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[i])
		}

		txnID := cell("TransactionID")
		category := cell("ProductCategory")
		region := cell("Region")
		rawAmount := cell("Amount")

		amount, ok := record.Decimal(rawAmount)
		if !ok || amount.LessThanOrEqual(decimal.Zero) {
			slog.Warn("[Transactions] Invalid or non-positive amount, skipping row",
				"file", name, "line", line, "transaction_id", txnID, "amount", rawAmount)
			summary.RowsSkipped++
			continue
		}

		if amount.GreaterThan(highValue) {
			summary.HighValueCount++
			slog.Debug("[Transactions] High value transaction",
				"transaction_id", txnID, "amount", amount)
		}

		agg.Add(aggregation.NewKey(category, region), amount)
		summary.RowsAggregated++
	}
	return nil
}
