package postgres

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/asiflhr/data-engineering-journey/internal/core/storage"
)

func newMockAdapter(t *testing.T) (*Adapter, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return &Adapter{db: db}, mock
}

func sampleProduct() *storage.Product {
	return &storage.Product{
		ProductID:     "P001",
		ProductName:   "Laptop Pro",
		Category:      "Electronics",
		BasePrice:     decimal.RequireFromString("1200.00"),
		SupplierID:    "S001",
		StockQuantity: 15,
		LastUpdated:   time.Date(2025, 7, 25, 10, 0, 0, 0, time.UTC),
		CurrentValue:  decimal.RequireFromString("18000.00"),
	}
}

func TestUpsert(t *testing.T) {
	a, mock := newMockAdapter(t)
	p := sampleProduct()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO products")).
		WithArgs(p.ProductID, p.ProductName, p.Category, p.BasePrice,
			p.SupplierID, p.StockQuantity, sqlmock.AnyArg(), p.CurrentValue).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, a.Upsert(context.Background(), p))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsert_SecondWriteSameKey(t *testing.T) {
	// The statement carries ON CONFLICT DO UPDATE, so replaying the same
	// product is one row affected either way, never an error.
	a, mock := newMockAdapter(t)
	p := sampleProduct()

	for i := 0; i < 2; i++ {
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO products")).
			WithArgs(p.ProductID, p.ProductName, p.Category, p.BasePrice,
				p.SupplierID, p.StockQuantity, sqlmock.AnyArg(), p.CurrentValue).
			WillReturnResult(sqlmock.NewResult(0, 1))
	}

	require.NoError(t, a.Upsert(context.Background(), p))
	require.NoError(t, a.Upsert(context.Background(), p))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsert_ZeroLastUpdatedIsNull(t *testing.T) {
	a, mock := newMockAdapter(t)
	p := sampleProduct()
	p.LastUpdated = time.Time{}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO products")).
		WithArgs(p.ProductID, p.ProductName, p.Category, p.BasePrice,
			p.SupplierID, p.StockQuantity, nil, p.CurrentValue).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, a.Upsert(context.Background(), p))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsert_DatabaseError(t *testing.T) {
	a, mock := newMockAdapter(t)
	p := sampleProduct()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO products")).
		WillReturnError(context.DeadlineExceeded)

	err := a.Upsert(context.Background(), p)
	require.Error(t, err)
	require.Contains(t, err.Error(), "P001")
}

func TestValidateSchema(t *testing.T) {
	a, mock := newMockAdapter(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS")).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	require.NoError(t, a.ValidateSchema())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestValidateSchema_MissingTable(t *testing.T) {
	a, mock := newMockAdapter(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS")).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	err := a.ValidateSchema()
	require.Error(t, err)
	require.Contains(t, err.Error(), "migrations")
}
