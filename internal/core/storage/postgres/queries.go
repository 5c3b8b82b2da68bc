package postgres

// SQL statements for the products table. Upsert is keyed by product_id:
// insert when absent, otherwise overwrite every non-key column
// (last-write-wins, no optimistic-concurrency check).
const (
	queryUpsertProduct = `
		INSERT INTO products (
			product_id, product_name, category, base_price,
			supplier_id, stock_quantity, last_updated, current_value
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (product_id)
		DO UPDATE SET
			product_name   = EXCLUDED.product_name,
			category       = EXCLUDED.category,
			base_price     = EXCLUDED.base_price,
			supplier_id    = EXCLUDED.supplier_id,
			stock_quantity = EXCLUDED.stock_quantity,
			last_updated   = EXCLUDED.last_updated,
			current_value  = EXCLUDED.current_value
	`

	queryCheckProductsTable = `
		SELECT EXISTS (
			SELECT FROM information_schema.tables
			WHERE table_name = 'products'
		)
	`
)
