// internal/store/items.go
package store

import (
	"context"
	"database/sql"

	"mfg-orchestrator/internal/common/errors"
	"mfg-orchestrator/internal/models"
)

const itemColumns = `id, name, sku, category, quantity_on_hand, reorder_point,
	cost_per_unit, vendor_lead_time_days, vendor_name, uom`

func scanItem(row rowScanner) (*models.Item, error) {
	var (
		item     models.Item
		category sql.NullString
		vendor   sql.NullString
	)
	if err := row.Scan(
		&item.ID, &item.Name, &item.SKU, &category, &item.QuantityOnHand, &item.ReorderPoint,
		&item.CostPerUnit, &item.VendorLeadTimeDays, &vendor, &item.UOM,
	); err != nil {
		return nil, err
	}
	item.Category = category.String
	item.VendorName = vendor.String
	return &item, nil
}

func (s *Store) queryItems(ctx context.Context, queryType, query string, args ...interface{}) ([]models.Item, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError(queryType, err)
	}
	defer rows.Close()

	items := []models.Item{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, errors.NewQueryExecutionFailedError(queryType, err)
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewQueryExecutionFailedError(queryType, err)
	}
	return items, nil
}

func (s *Store) GetItem(ctx context.Context, id int64) (*models.Item, error) {
	item, err := scanItem(s.db.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM items WHERE id = $1`, id))
	if isNoRows(err) {
		return nil, errors.NewItemNotFoundError(id, err)
	}
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("get_item", err)
	}
	return item, nil
}

func (s *Store) GetItemBySKU(ctx context.Context, sku string) (*models.Item, error) {
	item, err := scanItem(s.db.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM items WHERE sku = $1`, sku))
	if isNoRows(err) {
		return nil, errors.NewItemNotFoundError(0, err).WithMetadata("sku", sku)
	}
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("get_item_by_sku", err)
	}
	return item, nil
}

// FindItemsByName matches case-insensitively on any part of the name.
func (s *Store) FindItemsByName(ctx context.Context, name string) ([]models.Item, error) {
	return s.queryItems(ctx, "find_items_by_name",
		`SELECT `+itemColumns+` FROM items WHERE name ILIKE $1 ORDER BY name`, "%"+name+"%")
}

func (s *Store) ListItems(ctx context.Context) ([]models.Item, error) {
	return s.queryItems(ctx, "list_items", `SELECT `+itemColumns+` FROM items ORDER BY name`)
}

func (s *Store) LowStockItems(ctx context.Context) ([]models.Item, error) {
	return s.queryItems(ctx, "low_stock_items",
		`SELECT `+itemColumns+` FROM items WHERE quantity_on_hand < reorder_point ORDER BY name`)
}

func (s *Store) SetQuantity(ctx context.Context, id int64, quantity int) (*models.Item, error) {
	item, err := scanItem(s.db.QueryRowContext(ctx, `
		UPDATE items SET quantity_on_hand = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING `+itemColumns, id, quantity))
	if isNoRows(err) {
		return nil, errors.NewItemNotFoundError(id, err)
	}
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("set_quantity", err)
	}
	return item, nil
}

// CreateItem is used by the seed command.
func (s *Store) CreateItem(ctx context.Context, item models.Item) (*models.Item, error) {
	uom := item.UOM
	if uom == "" {
		uom = "each"
	}
	created, err := scanItem(s.db.QueryRowContext(ctx, `
		INSERT INTO items (name, sku, category, quantity_on_hand, reorder_point,
			cost_per_unit, vendor_lead_time_days, vendor_name, uom)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+itemColumns,
		item.Name, item.SKU, nullString(item.Category), item.QuantityOnHand, item.ReorderPoint,
		item.CostPerUnit, item.VendorLeadTimeDays, nullString(item.VendorName), uom,
	))
	if err != nil {
		return nil, errors.NewDatabaseInsertFailedError(err)
	}
	return created, nil
}
