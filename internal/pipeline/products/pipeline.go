// Package products implements the product/inventory merge ETL: two daily
// feeds validated, joined on product_id, and upserted into Postgres.
package products

import (
	"bufio"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	etlerr "github.com/asiflhr/data-engineering-journey/internal/core/errors"
	"github.com/asiflhr/data-engineering-journey/internal/core/merge"
	"github.com/asiflhr/data-engineering-journey/internal/core/partition"
	"github.com/asiflhr/data-engineering-journey/internal/core/record"
	"github.com/asiflhr/data-engineering-journey/internal/core/storage"
	"github.com/asiflhr/data-engineering-journey/internal/core/validate"
	"github.com/asiflhr/data-engineering-journey/internal/quarantine"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// Deps are the collaborators the pipeline needs. All required.
type Deps struct {
	Validator *validate.Validator
	Sink      *quarantine.Sink
	Store     storage.ProductStore
}

// Params select the run's input partition.
type Params struct {
	InputDir string
	RunDate  time.Time
}

// Summary reports what one run did.
type Summary struct {
	ProductsExtracted  int
	InventoryExtracted int
	Quarantined        int
	Unmatched          []string
	Loaded             int
	LoadFailures       int
}

// Run executes the full pipeline: EXTRACT → VALIDATE → MERGE → LOAD.
// Record-local failures are quarantined and the batch continues; only
// setup and quarantine-write failures abort.
func Run(ctx context.Context, deps Deps, params Params) (*Summary, error) {
	if deps.Validator == nil || deps.Sink == nil || deps.Store == nil {
		panic("products: all deps must be non-nil")
	}

	stamp := partition.DateStamp(params.RunDate)
	productsPath := filepath.Join(params.InputDir, fmt.Sprintf("products_%s.csv", stamp))
	inventoryPath := filepath.Join(params.InputDir, fmt.Sprintf("inventory_%s.jsonl", stamp))

	// The two feeds are independent; extract them concurrently. Quarantine
	// writes stay serialized behind the sink's own mutex.
	var products, inventory map[string]record.Record
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		products, err = extractProducts(gctx, productsPath, deps)
		return err
	})
	g.Go(func() error {
		var err error
		inventory, err = extractInventory(gctx, inventoryPath, deps)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	joined, unmatched := merge.Merge(products, inventory, merge.FieldMap{
		Copy: []string{"stock_quantity", "last_updated"},
		Defaults: record.Record{
			"stock_quantity": int64(0),
			"last_updated":   nil,
		},
		Derive: deriveCurrentValue,
	})

	for _, key := range unmatched {
		slog.Warn("[Products] Inventory record has no matching product details, not loaded", "product_id", key)
		entry := inventory[key].Clone()
		entry["product_id"] = key
		if err := deps.Sink.Reject(quarantine.Entry{
			Source:  quarantine.SourceUnmatchedInventory,
			Record:  entry,
			Reasons: []string{"No matching product details found"},
		}); err != nil {
			return nil, err
		}
	}

	summary := &Summary{
		ProductsExtracted:  len(products),
		InventoryExtracted: len(inventory),
		Unmatched:          unmatched,
	}

	slog.Info("[Products] Loading merged products", "count", len(joined))
	for _, j := range joined {
		p := toProduct(j.Fields)
		if err := deps.Store.Upsert(ctx, p); err != nil {
			lerr := &etlerr.LoadError{Key: p.ProductID, Err: err}
			slog.Error("[Products] Failed to load product", "product_id", p.ProductID, "error", err)
			summary.LoadFailures++
			if qerr := deps.Sink.Reject(quarantine.Entry{
				Source:  quarantine.SourceDBLoadFailure,
				Record:  j.Fields,
				Reasons: []string{lerr.Error()},
			}); qerr != nil {
				return nil, qerr
			}
			continue
		}
		summary.Loaded++
	}

	summary.Quarantined = deps.Sink.Count()
	slog.Info("[Products] Pipeline completed",
		"loaded", summary.Loaded,
		"load_failures", summary.LoadFailures,
		"unmatched_inventory", len(summary.Unmatched),
		"quarantined", summary.Quarantined)
	return summary, nil
}

// extractProducts reads the product master CSV, validating each row. A
// missing feed file is a warning, not an error: the merge proceeds with
// an empty primary set.
func extractProducts(ctx context.Context, path string, deps Deps) (map[string]record.Record, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		slog.Warn("[Products] Products CSV not found, skipping product extraction", "path", path)
		return map[string]record.Record{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening products CSV %s: %w", path, err)
	}
	defer f.Close()

	slog.Info("[Products] Extracting products", "path", path)

	reader := csv.NewReader(f)
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading products CSV header: %w", err)
	}

	out := make(map[string]record.Record)
	for line := 2; ; line++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading products CSV line %d: %w", line, err)
		}

		rec := make(record.Record, len(header))
		for i, col := range header {
			if i < len(row) {
				rec[col] = row[i]
			}
		}

		res, err := deps.Validator.Validate("products_csv", rec)
		if err != nil {
			return nil, err
		}
		if !res.Valid {
			slog.Warn("[Products] Bad record from CSV", "line", line, "reasons", res.Errors)
			if err := deps.Sink.Reject(quarantine.Entry{
				Source:  quarantine.SourceProductsCSV,
				Record:  rec,
				Reasons: res.Errors,
			}); err != nil {
				return nil, err
			}
			continue
		}

		id := res.Fields.String("ProductID")
		out[id] = record.Record{
			"product_id":   id,
			"product_name": res.Fields["Name"],
			"category":     res.Fields["Category"],
			"base_price":   res.Fields["BasePrice"],
			"supplier_id":  res.Fields["SupplierID"],
		}
	}
	return out, nil
}

// extractInventory reads the newline-delimited inventory JSON feed.
// Undecodable lines and invalid records are quarantined individually.
func extractInventory(ctx context.Context, path string, deps Deps) (map[string]record.Record, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		slog.Warn("[Products] Inventory file not found, skipping inventory extraction", "path", path)
		return map[string]record.Record{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening inventory file %s: %w", path, err)
	}
	defer f.Close()

	slog.Info("[Products] Extracting inventory", "path", path)

	out := make(map[string]record.Record)
	scanner := bufio.NewScanner(f)
	for line := 1; scanner.Scan(); line++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		raw := scanner.Text()
		if len(raw) == 0 {
			continue
		}

		var rec record.Record
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			slog.Error("[Products] Invalid JSON line in inventory feed", "line", line)
			if err := deps.Sink.Reject(quarantine.Entry{
				Source:  quarantine.SourceInventoryJSON,
				RawLine: raw,
				Reasons: []string{"JSON Decode Error"},
			}); err != nil {
				return nil, err
			}
			continue
		}

		res, err := deps.Validator.Validate("inventory_json", rec)
		if err != nil {
			return nil, err
		}
		if !res.Valid {
			slog.Warn("[Products] Bad record from inventory JSON", "line", line, "reasons", res.Errors)
			if err := deps.Sink.Reject(quarantine.Entry{
				Source:  quarantine.SourceInventoryJSON,
				Record:  rec,
				Reasons: res.Errors,
			}); err != nil {
				return nil, err
			}
			continue
		}

		id := res.Fields.String("product_id")
		out[id] = record.Record{
			"product_id":     id,
			"stock_quantity": res.Fields["stock_quantity"],
			"last_updated":   res.Fields["last_updated"],
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading inventory file %s: %w", path, err)
	}
	return out, nil
}

// deriveCurrentValue computes current_value = base_price * stock_quantity,
// falling back to 0.0 when either operand is missing or mistyped.
func deriveCurrentValue(fields record.Record, _ bool) {
	price, okPrice := fields["base_price"].(decimal.Decimal)
	qty, okQty := fields["stock_quantity"].(int64)
	if !okPrice || !okQty {
		slog.Warn("[Products] Could not calculate current value, defaulting to 0.0",
			"product_id", fields.String("product_id"))
		fields["current_value"] = decimal.Zero
		return
	}
	fields["current_value"] = price.Mul(decimal.NewFromInt(qty))
}

// toProduct converts a joined record to the storage row.
func toProduct(fields record.Record) *storage.Product {
	p := &storage.Product{
		ProductID:   fields.String("product_id"),
		ProductName: fields.String("product_name"),
		Category:    fields.String("category"),
		SupplierID:  fields.String("supplier_id"),
	}
	if d, ok := fields["base_price"].(decimal.Decimal); ok {
		p.BasePrice = d
	}
	if n, ok := fields["stock_quantity"].(int64); ok {
		p.StockQuantity = n
	}
	if t, ok := fields["last_updated"].(time.Time); ok {
		p.LastUpdated = t
	}
	if d, ok := fields["current_value"].(decimal.Decimal); ok {
		p.CurrentValue = d
	}
	return p
}
