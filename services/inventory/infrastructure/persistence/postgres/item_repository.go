package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ghuser/branchpos/pkg/database"
	"github.com/ghuser/branchpos/pkg/events"
	inventorydomain "github.com/ghuser/branchpos/services/inventory/domain"
	domainevents "github.com/ghuser/branchpos/services/inventory/domain/events"
	"github.com/ghuser/branchpos/services/inventory/domain/models"
)

const skuConstraint = "items_sku_key"

// ItemRepository implements repositories.ItemRepository against PostgreSQL.
type ItemRepository struct {
	db  *database.Database
	bus *events.EventBus
}

// NewItemRepository returns an ItemRepository backed by the given connection pool
// and event bus. bus may be nil, in which case no events are published.
func NewItemRepository(db *database.Database, bus *events.EventBus) *ItemRepository {
	return &ItemRepository{db: db, bus: bus}
}

// Create persists a new Item, its initial-stock alert (if any) and an
// ItemCreatedEvent within one transaction.
// Returns ErrItemAlreadyExists when the SKU is taken.
func (r *ItemRepository) Create(ctx context.Context, item *models.Item, alert *models.Alert) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO items (`+itemColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`,
			item.ID, item.Name.String(), item.SKU.String(), item.Barcode, nullable(item.CategoryID),
			item.Pricing.CostPrice, item.Pricing.SellingPrice, item.Pricing.Margin, item.Pricing.MarginPercentage,
			item.Stock.Quantity, item.Stock.Unit, item.Stock.LowStockThreshold, item.Stock.ReorderPoint,
			nullable(item.BranchID), item.IsActive, item.CreatedBy, item.CreatedAt, item.UpdatedAt,
		)
		if err != nil {
			if database.IsUniqueViolation(err, skuConstraint) {
				return inventorydomain.ErrItemAlreadyExists
			}
			return fmt.Errorf("insert item: %w", err)
		}

		if alert != nil {
			if err := NewStockTx(tx, r.bus).InsertAlert(ctx, alert); err != nil {
				return err
			}
		}

		if r.bus == nil {
			return nil
		}
		ev := domainevents.ItemCreatedEvent{
			EventID:    uuid.New(),
			Version:    1,
			ItemID:     item.ID,
			BranchID:   item.BranchID,
			SKU:        item.SKU.String(),
			Name:       item.Name.String(),
			Quantity:   item.Stock.Quantity,
			OccurredAt: item.CreatedAt,
		}
		if err := r.bus.PublishInTx(ctx, tx, domainevents.TopicItemCreated, ev.EventID.String(), ev.Version, ev); err != nil {
			return fmt.Errorf("publish item created: %w", err)
		}
		return nil
	})
}

// GetByID retrieves an Item by ID. Returns ErrItemNotFound if not found.
func (r *ItemRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Item, error) {
	row := r.db.DB().QueryRowContext(ctx, `SELECT `+itemColumns+` FROM items WHERE id = $1`, id)
	item, err := scanItem(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, inventorydomain.ErrItemNotFound
		}
		return nil, fmt.Errorf("query item: %w", err)
	}
	return item, nil
}

// FindLowStock returns active items at or below their threshold, emptiest
// first. Items without a branch are included under any branch scope.
func (r *ItemRepository) FindLowStock(ctx context.Context, branch *uuid.UUID) ([]*models.Item, error) {
	var branchArg uuid.NullUUID
	if branch != nil {
		branchArg = uuid.NullUUID{UUID: *branch, Valid: true}
	}
	rows, err := r.db.DB().QueryContext(ctx, `
		SELECT `+itemColumns+`
		FROM items
		WHERE is_active
		  AND quantity <= low_stock_threshold
		  AND ($1::uuid IS NULL OR branch_id = $1 OR branch_id IS NULL)
		ORDER BY quantity, name`, branchArg)
	if err != nil {
		return nil, fmt.Errorf("query low stock: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var items []*models.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// UpdatePricing persists the prices and margin and publishes an
// ItemPricingChangedEvent in the same transaction.
func (r *ItemRepository) UpdatePricing(ctx context.Context, item *models.Item) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE items
			SET cost_price = $2, selling_price = $3, margin = $4, margin_percentage = $5, updated_at = $6
			WHERE id = $1`,
			item.ID, item.Pricing.CostPrice, item.Pricing.SellingPrice,
			item.Pricing.Margin, item.Pricing.MarginPercentage, item.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("update pricing: %w", err)
		}
		if err := requireRow(res, inventorydomain.ErrItemNotFound); err != nil {
			return err
		}

		if r.bus == nil {
			return nil
		}
		ev := domainevents.ItemPricingChangedEvent{
			EventID:      uuid.New(),
			Version:      1,
			ItemID:       item.ID,
			CostPrice:    item.Pricing.CostPrice.String(),
			SellingPrice: item.Pricing.SellingPrice.String(),
			OccurredAt:   item.UpdatedAt,
		}
		if err := r.bus.PublishInTx(ctx, tx, domainevents.TopicItemPricingChange, ev.EventID.String(), ev.Version, ev); err != nil {
			return fmt.Errorf("publish pricing changed: %w", err)
		}
		return nil
	})
}

// Deactivate flips is_active off.
func (r *ItemRepository) Deactivate(ctx context.Context, id uuid.UUID, at time.Time) error {
	res, err := r.db.DB().ExecContext(ctx,
		`UPDATE items SET is_active = FALSE, updated_at = $2 WHERE id = $1`, id, at)
	if err != nil {
		return fmt.Errorf("deactivate item: %w", err)
	}
	return requireRow(res, inventorydomain.ErrItemNotFound)
}

func requireRow(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
