package validate

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/asiflhr/data-engineering-journey/internal/core/record"
)

func newTestValidator(t *testing.T) *Validator {
	t.Helper()
	v, err := NewValidator()
	require.NoError(t, err)
	return v
}

func TestValidate_ProductsCSV(t *testing.T) {
	tests := []struct {
		name       string
		rec        record.Record
		wantErrors []string
	}{
		{
			name: "valid row",
			rec: record.Record{
				"ProductID": "P001", "Name": "Laptop Pro", "Category": "Electronics",
				"BasePrice": "1200.00", "SupplierID": "S001",
			},
			wantErrors: nil,
		},
		{
			name: "unparseable price",
			rec: record.Record{
				"ProductID": "P006", "Name": "Damaged Product", "Category": "Electronics",
				"BasePrice": "invalid_price", "SupplierID": "S001",
			},
			wantErrors: []string{"Invalid BasePrice format: 'invalid_price'"},
		},
		{
			name: "negative price",
			rec: record.Record{
				"ProductID": "P004", "Name": "Desk Lamp", "Category": "Home Goods",
				"BasePrice": "-10.00", "SupplierID": "S002",
			},
			wantErrors: []string{"BasePrice must be positive: '-10.00'"},
		},
		{
			name: "missing id and name",
			rec: record.Record{
				"ProductID": "", "Name": " ", "Category": "Books",
				"BasePrice": "9.99", "SupplierID": "S003",
			},
			wantErrors: []string{"Missing ProductID", "Missing Product Name"},
		},
		{
			name: "unknown category",
			rec: record.Record{
				"ProductID": "P009", "Name": "Gadget", "Category": "Toys",
				"BasePrice": "5.00", "SupplierID": "S001",
			},
			wantErrors: []string{"Invalid or missing Category: 'Toys'"},
		},
		{
			name: "every field broken accumulates",
			rec: record.Record{
				"ProductID": "", "Name": "", "Category": "",
				"BasePrice": "free", "SupplierID": "",
			},
			wantErrors: []string{
				"Missing ProductID",
				"Missing Product Name",
				"Invalid or missing Category: ''",
				"Invalid BasePrice format: 'free'",
			},
		},
	}

	v := newTestValidator(t)
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res, err := v.Validate("products_csv", tc.rec)
			require.NoError(t, err)
			require.Equal(t, tc.wantErrors, res.Errors)
			require.Equal(t, len(tc.wantErrors) == 0, res.Valid)
		})
	}
}

func TestValidate_ProductsCSV_CoercedFields(t *testing.T) {
	v := newTestValidator(t)

	res, err := v.Validate("products_csv", record.Record{
		"ProductID": "P002", "Name": "Novel", "Category": "Books",
		"BasePrice": "15.50", "SupplierID": "S003",
	})
	require.NoError(t, err)
	require.True(t, res.Valid)

	price, ok := res.Fields["BasePrice"].(decimal.Decimal)
	require.True(t, ok)
	require.True(t, price.Equal(decimal.RequireFromString("15.50")))
	require.Equal(t, "P002", res.Fields["ProductID"])
}

func TestValidate_InventoryJSON(t *testing.T) {
	tests := []struct {
		name       string
		rec        record.Record
		wantErrors []string
	}{
		{
			name: "valid entry",
			rec: record.Record{
				"product_id": "P001", "stock_quantity": float64(15),
				"last_updated": "2025-07-25T10:00:00Z",
			},
			wantErrors: nil,
		},
		{
			name: "missing product id",
			rec: record.Record{
				"product_id": "", "stock_quantity": float64(5),
				"last_updated": "2025-07-25T10:00:00Z",
			},
			wantErrors: []string{"Missing product_id"},
		},
		{
			name: "negative stock",
			rec: record.Record{
				"product_id": "P003", "stock_quantity": float64(-4),
				"last_updated": "2025-07-25T10:00:00Z",
			},
			wantErrors: []string{"Stock quantity must be non-negative: '-4'"},
		},
		{
			name: "fractional stock",
			rec: record.Record{
				"product_id": "P004", "stock_quantity": "12.5",
				"last_updated": "2025-07-25T10:00:00Z",
			},
			wantErrors: []string{"Invalid stock_quantity format: '12.5'"},
		},
		{
			name: "bad timestamp",
			rec: record.Record{
				"product_id": "P005", "stock_quantity": float64(3),
				"last_updated": "yesterday",
			},
			wantErrors: []string{"Invalid last_updated format: 'yesterday'"},
		},
	}

	v := newTestValidator(t)
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res, err := v.Validate("inventory_json", tc.rec)
			require.NoError(t, err)
			require.Equal(t, tc.wantErrors, res.Errors)
		})
	}
}

func TestValidate_InventoryJSON_CoercedTypes(t *testing.T) {
	v := newTestValidator(t)

	res, err := v.Validate("inventory_json", record.Record{
		"product_id": "P001", "stock_quantity": float64(15),
		"last_updated": "2025-07-25T10:00:00Z",
	})
	require.NoError(t, err)
	require.True(t, res.Valid)
	require.Equal(t, int64(15), res.Fields["stock_quantity"])

	ts, ok := res.Fields["last_updated"].(time.Time)
	require.True(t, ok)
	require.Equal(t, time.Date(2025, 7, 25, 10, 0, 0, 0, time.UTC), ts.UTC())
}

func TestValidate_UnknownSourceKind(t *testing.T) {
	v := newTestValidator(t)

	_, err := v.Validate("nonsense_feed", record.Record{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "nonsense_feed")
}

func TestValidate_Deterministic(t *testing.T) {
	v := newTestValidator(t)
	rec := record.Record{
		"ProductID": "", "Name": "", "Category": "Toys",
		"BasePrice": "-1", "SupplierID": "S001",
	}

	first, err := v.Validate("products_csv", rec)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		res, err := v.Validate("products_csv", rec)
		require.NoError(t, err)
		require.Equal(t, first.Errors, res.Errors)
	}
}

func TestLoadDir_ShadowsBuiltins(t *testing.T) {
	dir := t.TempDir()
	override := `source: "products_csv"
fields:
  - field: "ProductID"
    required: true
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "products.yaml"), []byte(override), 0o644))

	v := newTestValidator(t)
	require.NoError(t, v.LoadDir(dir))

	// The replacement set no longer checks Category.
	res, err := v.Validate("products_csv", record.Record{"ProductID": "P001", "Category": "Toys"})
	require.NoError(t, err)
	require.True(t, res.Valid)
}

func TestLoadDir_MissingDirIsFine(t *testing.T) {
	v := newTestValidator(t)
	require.NoError(t, v.LoadDir(filepath.Join(t.TempDir(), "nope")))
}

func TestLoadDir_RejectsBadRuleFile(t *testing.T) {
	dir := t.TempDir()
	bad := `source: "broken"
fields:
  - field: "x"
    type: "complex128"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.yaml"), []byte(bad), 0o644))

	v := newTestValidator(t)
	require.Error(t, v.LoadDir(dir))
}
