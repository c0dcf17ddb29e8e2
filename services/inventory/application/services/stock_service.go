package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ghuser/branchpos/pkg/auth"
	"github.com/ghuser/branchpos/pkg/logger"
	inventorydomain "github.com/ghuser/branchpos/services/inventory/domain"
	"github.com/ghuser/branchpos/services/inventory/domain/models"
	"github.com/ghuser/branchpos/services/inventory/domain/repositories"
	domainsvcs "github.com/ghuser/branchpos/services/inventory/domain/services"
)

const defaultAdjustReason = "Manual adjustment"

// RefillInput describes a purchase received into stock.
type RefillInput struct {
	ItemID     uuid.UUID
	Quantity   int
	CostPrice  decimal.NullDecimal // when valid, becomes the item's new cost price
	SupplierID uuid.UUID
	Reason     string
}

// AdjustInput sets an item's quantity to an absolute value after a count.
type AdjustInput struct {
	ItemID      uuid.UUID
	NewQuantity int
	Reason      string
}

// StockMovementResult is the outcome of a refill or adjustment.
type StockMovementResult struct {
	Item  *models.Item
	Entry *models.StockLogEntry
	Alert *models.Alert
}

// StockService applies manual stock movements and reads the ledger.
type StockService struct {
	uow      repositories.StockUnitOfWork
	logs     repositories.StockLogRepository
	log      logger.Logger
	alertTTL time.Duration
	now      func() time.Time
}

func NewStockService(uow repositories.StockUnitOfWork, logs repositories.StockLogRepository, log logger.Logger, alertTTL time.Duration) *StockService {
	return &StockService{uow: uow, logs: logs, log: log, alertTTL: alertTTL, now: time.Now}
}

// Refill adds Quantity units as a purchase. A supplied cost price replaces
// the item's cost and is recorded on the ledger entry.
func (s *StockService) Refill(ctx context.Context, actor auth.Actor, in RefillInput) (*StockMovementResult, error) {
	if in.Quantity < 1 {
		return nil, fmt.Errorf("%w: quantity must be at least 1", inventorydomain.ErrInvalidMovement)
	}
	if in.CostPrice.Valid && in.CostPrice.Decimal.IsNegative() {
		return nil, fmt.Errorf("%w: cost price must not be negative", inventorydomain.ErrInvalidMovement)
	}

	return s.move(ctx, actor, in.ItemID, func(item *models.Item, at time.Time) (domainsvcs.StockChange, error) {
		if in.CostPrice.Valid {
			if err := item.SetCostPrice(in.CostPrice.Decimal, at); err != nil {
				return domainsvcs.StockChange{}, fmt.Errorf("%w: %w", inventorydomain.ErrInvalidMovement, err)
			}
		}
		return domainsvcs.StockChange{
			Type:        models.MovementPurchase,
			Delta:       in.Quantity,
			CostPrice:   in.CostPrice,
			SupplierID:  in.SupplierID,
			Reason:      in.Reason,
			PerformedBy: actor.UserID,
		}, nil
	})
}

// Adjust sets the item's quantity to NewQuantity and records the difference.
func (s *StockService) Adjust(ctx context.Context, actor auth.Actor, in AdjustInput) (*StockMovementResult, error) {
	if in.NewQuantity < 0 {
		return nil, fmt.Errorf("%w: new quantity must not be negative", inventorydomain.ErrInvalidMovement)
	}
	reason := in.Reason
	if reason == "" {
		reason = defaultAdjustReason
	}

	return s.move(ctx, actor, in.ItemID, func(item *models.Item, _ time.Time) (domainsvcs.StockChange, error) {
		return domainsvcs.StockChange{
			Type:        models.MovementAdjustment,
			Delta:       in.NewQuantity - item.Stock.Quantity,
			Reason:      reason,
			PerformedBy: actor.UserID,
		}, nil
	})
}

// move locks one item, builds the change from its current state and records it.
// Only owners and managers move stock, and only for items they can see.
func (s *StockService) move(ctx context.Context, actor auth.Actor, itemID uuid.UUID, build func(*models.Item, time.Time) (domainsvcs.StockChange, error)) (*StockMovementResult, error) {
	if !actor.HasRole(auth.RoleOwner, auth.RoleManager) {
		return nil, auth.ErrForbidden
	}

	var out StockMovementResult
	err := s.uow.Do(ctx, func(ctx context.Context, w repositories.StockWriter) error {
		locked, err := w.LockItems(ctx, []uuid.UUID{itemID})
		if err != nil {
			return fmt.Errorf("lock item: %w", err)
		}
		item, ok := locked[itemID]
		if !ok || !item.VisibleTo(actor.BranchScope()) {
			return &inventorydomain.ItemError{ItemID: itemID, Err: inventorydomain.ErrItemNotFound}
		}

		at := s.now()
		ch, err := build(item, at)
		if err != nil {
			return err
		}
		ch.At = at
		ch.AlertTTL = s.alertTTL

		res, err := RecordStockChange(ctx, w, item, ch)
		if err != nil {
			return err
		}
		out = StockMovementResult{Item: item, Entry: res.Entry, Alert: res.Alert}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "stock moved",
		"item_id", out.Item.ID,
		"type", out.Entry.Type,
		"delta", out.Entry.Quantity,
		"new_quantity", out.Entry.NewQuantity,
	)
	return &out, nil
}

// Logs returns ledger entries newest first. Non-owners only see their branch.
func (s *StockService) Logs(ctx context.Context, actor auth.Actor, q repositories.StockLogQuery) ([]*models.StockLogEntry, int, error) {
	if scope := actor.BranchScope(); scope != nil {
		q.BranchID = scope
	}
	if q.Limit <= 0 {
		q.QueryOpts = repositories.NewQueryOpts(1, 0)
	}
	entries, total, err := s.logs.Find(ctx, q)
	if err != nil {
		return nil, 0, fmt.Errorf("find stock logs: %w", err)
	}
	return entries, total, nil
}
