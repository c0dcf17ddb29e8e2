package postgres

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/ghuser/branchpos/services/inventory/domain/models"
)

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

const itemColumns = `id, name, sku, barcode, category_id, cost_price, selling_price, margin,
	margin_percentage, quantity, unit, low_stock_threshold, reorder_point, branch_id,
	is_active, created_by, created_at, updated_at`

func scanItem(row rowScanner) (*models.Item, error) {
	var (
		it       models.Item
		name     string
		sku      string
		category uuid.NullUUID
		branch   uuid.NullUUID
	)
	if err := row.Scan(
		&it.ID, &name, &sku, &it.Barcode, &category,
		&it.Pricing.CostPrice, &it.Pricing.SellingPrice, &it.Pricing.Margin, &it.Pricing.MarginPercentage,
		&it.Stock.Quantity, &it.Stock.Unit, &it.Stock.LowStockThreshold, &it.Stock.ReorderPoint,
		&branch, &it.IsActive, &it.CreatedBy, &it.CreatedAt, &it.UpdatedAt,
	); err != nil {
		return nil, err
	}
	it.Name = models.ItemName(name)
	it.SKU = models.SKU(sku)
	it.CategoryID = category.UUID
	it.BranchID = branch.UUID
	return &it, nil
}

const stockLogColumns = `id, item_id, type, quantity, previous_quantity, new_quantity, cost_price,
	supplier_id, reason, reference, performed_by, branch_id, created_at`

func scanStockLog(row rowScanner) (*models.StockLogEntry, error) {
	var (
		e        models.StockLogEntry
		typ      string
		supplier uuid.NullUUID
		branch   uuid.NullUUID
	)
	if err := row.Scan(
		&e.ID, &e.ItemID, &typ, &e.Quantity, &e.PreviousQuantity, &e.NewQuantity, &e.CostPrice,
		&supplier, &e.Reason, &e.Reference, &e.PerformedBy, &branch, &e.CreatedAt,
	); err != nil {
		return nil, err
	}
	e.Type = models.MovementType(typ)
	e.SupplierID = supplier.UUID
	e.BranchID = branch.UUID
	return &e, nil
}

// read_by is selected as JSON text so database/sql can scan it without
// driver-specific array types.
const alertColumns = `id, type, severity, title, message, item_id, branch_id, is_read,
	array_to_json(read_by)::text, created_at, expires_at`

func scanAlert(row rowScanner) (*models.Alert, error) {
	var (
		a       models.Alert
		typ     string
		sev     string
		item    uuid.NullUUID
		branch  uuid.NullUUID
		readBy  string
		expires sql.NullTime
	)
	if err := row.Scan(
		&a.ID, &typ, &sev, &a.Title, &a.Message, &item, &branch, &a.IsRead,
		&readBy, &a.CreatedAt, &expires,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(readBy), &a.ReadBy); err != nil {
		return nil, fmt.Errorf("decode read_by: %w", err)
	}
	a.Type = models.AlertType(typ)
	a.Severity = models.Severity(sev)
	a.ItemID = item.UUID
	a.BranchID = branch.UUID
	if expires.Valid {
		t := expires.Time
		a.ExpiresAt = &t
	}
	return &a, nil
}

// nullable maps uuid.Nil to SQL NULL.
func nullable(id uuid.UUID) uuid.NullUUID {
	return uuid.NullUUID{UUID: id, Valid: id != uuid.Nil}
}
