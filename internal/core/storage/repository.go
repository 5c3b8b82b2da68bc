package storage

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Product is one merged product/inventory row, keyed by ProductID.
// A zero LastUpdated maps to SQL NULL.
type Product struct {
	ProductID     string
	ProductName   string
	Category      string
	BasePrice     decimal.Decimal
	SupplierID    string
	StockQuantity int64
	LastUpdated   time.Time
	CurrentValue  decimal.Decimal
}

// ProductStore persists merged products with insert-or-update semantics.
type ProductStore interface {
	// Upsert inserts the product if its primary key is absent, else updates
	// every non-key column to the new values (last-write-wins). Each call is
	// an independent unit of work; a failure never rolls back earlier calls.
	Upsert(ctx context.Context, p *Product) error

	Close() error
}
