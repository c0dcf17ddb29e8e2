package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/ghuser/branchpos/pkg/database"
	"github.com/ghuser/branchpos/pkg/events"
	domainevents "github.com/ghuser/branchpos/services/inventory/domain/events"
	"github.com/ghuser/branchpos/services/inventory/domain/models"
	"github.com/ghuser/branchpos/services/inventory/domain/repositories"
)

// StockTx implements repositories.StockWriter on an open transaction.
// Other contexts embed it to add their own writes to the same unit of work.
type StockTx struct {
	Tx  *sql.Tx
	bus *events.EventBus
}

// NewStockTx binds a StockTx to tx. bus may be nil.
func NewStockTx(tx *sql.Tx, bus *events.EventBus) *StockTx {
	return &StockTx{Tx: tx, bus: bus}
}

// LockItems takes row locks with SELECT ... FOR UPDATE. Ids are de-duplicated
// and locked in ascending order so concurrent sales cannot deadlock.
func (s *StockTx) LockItems(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.Item, error) {
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, id.String())
	}
	slices.Sort(keys)
	keys = slices.Compact(keys)

	rows, err := s.Tx.QueryContext(ctx, `
		SELECT `+itemColumns+`
		FROM items
		WHERE id = ANY($1::uuid[])
		ORDER BY id
		FOR UPDATE`, keys)
	if err != nil {
		return nil, fmt.Errorf("lock items: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	locked := make(map[uuid.UUID]*models.Item, len(keys))
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		locked[item.ID] = item
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("lock items: %w", err)
	}
	return locked, nil
}

func (s *StockTx) SaveStock(ctx context.Context, item *models.Item) error {
	_, err := s.Tx.ExecContext(ctx, `
		UPDATE items
		SET quantity = $2, cost_price = $3, selling_price = $4, margin = $5,
		    margin_percentage = $6, updated_at = $7
		WHERE id = $1`,
		item.ID, item.Stock.Quantity, item.Pricing.CostPrice, item.Pricing.SellingPrice,
		item.Pricing.Margin, item.Pricing.MarginPercentage, item.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update stock: %w", err)
	}
	return nil
}

// AppendStockLog inserts the ledger row and publishes a StockMovedEvent.
func (s *StockTx) AppendStockLog(ctx context.Context, e *models.StockLogEntry) error {
	_, err := s.Tx.ExecContext(ctx, `
		INSERT INTO stock_logs (`+stockLogColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		e.ID, e.ItemID, string(e.Type), e.Quantity, e.PreviousQuantity, e.NewQuantity, e.CostPrice,
		nullable(e.SupplierID), e.Reason, e.Reference, e.PerformedBy, nullable(e.BranchID), e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert stock log: %w", err)
	}

	if s.bus == nil {
		return nil
	}
	ev := domainevents.StockMovedEvent{
		EventID:     uuid.New(),
		Version:     1,
		EntryID:     e.ID,
		ItemID:      e.ItemID,
		BranchID:    e.BranchID,
		Type:        string(e.Type),
		Delta:       e.Quantity,
		NewQuantity: e.NewQuantity,
		Reference:   e.Reference,
		OccurredAt:  e.CreatedAt,
	}
	if err := s.bus.PublishInTx(ctx, s.Tx, domainevents.TopicStockMoved, ev.EventID.String(), ev.Version, ev); err != nil {
		return fmt.Errorf("publish stock moved: %w", err)
	}
	return nil
}

// InsertAlert inserts the alert and publishes a StockAlertRaisedEvent.
func (s *StockTx) InsertAlert(ctx context.Context, a *models.Alert) error {
	var expires sql.NullTime
	if a.ExpiresAt != nil {
		expires = sql.NullTime{Time: *a.ExpiresAt, Valid: true}
	}
	_, err := s.Tx.ExecContext(ctx, `
		INSERT INTO alerts (id, type, severity, title, message, item_id, branch_id, is_read, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		a.ID, string(a.Type), string(a.Severity), a.Title, a.Message,
		nullable(a.ItemID), nullable(a.BranchID), a.IsRead, a.CreatedAt, expires,
	)
	if err != nil {
		return fmt.Errorf("insert alert: %w", err)
	}

	if s.bus == nil {
		return nil
	}
	ev := domainevents.StockAlertRaisedEvent{
		EventID:    uuid.New(),
		Version:    1,
		AlertID:    a.ID,
		ItemID:     a.ItemID,
		BranchID:   a.BranchID,
		Type:       string(a.Type),
		Severity:   string(a.Severity),
		Title:      a.Title,
		OccurredAt: a.CreatedAt,
	}
	if err := s.bus.PublishInTx(ctx, s.Tx, domainevents.TopicStockAlertRaised, ev.EventID.String(), ev.Version, ev); err != nil {
		return fmt.Errorf("publish stock alert: %w", err)
	}
	return nil
}

// StockUnitOfWork implements repositories.StockUnitOfWork with one
// database transaction per call.
type StockUnitOfWork struct {
	db  *database.Database
	bus *events.EventBus
}

func NewStockUnitOfWork(db *database.Database, bus *events.EventBus) *StockUnitOfWork {
	return &StockUnitOfWork{db: db, bus: bus}
}

func (u *StockUnitOfWork) Do(ctx context.Context, fn func(ctx context.Context, w repositories.StockWriter) error) error {
	return u.db.WithTx(ctx, func(tx *sql.Tx) error {
		return fn(ctx, NewStockTx(tx, u.bus))
	})
}
