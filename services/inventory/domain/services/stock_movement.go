package services

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ghuser/branchpos/services/inventory/domain"
	"github.com/ghuser/branchpos/services/inventory/domain/models"
)

// StockChange is a single movement to apply to an item the caller has locked.
type StockChange struct {
	Type        models.MovementType
	Delta       int
	CostPrice   decimal.NullDecimal
	SupplierID  uuid.UUID
	Reason      string
	Reference   string
	PerformedBy uuid.UUID
	At          time.Time
	// AlertTTL sets ExpiresAt on a raised alert; zero means no expiry.
	AlertTTL time.Duration
}

// StockChangeResult holds the records produced by ApplyStockChange.
// Alert is nil unless the movement crossed the low-stock threshold.
type StockChangeResult struct {
	Entry *models.StockLogEntry
	Alert *models.Alert
}

// ApplyStockChange mutates item's quantity, builds the matching ledger entry
// and evaluates the threshold alert. The item is left untouched on error.
// Callers persist the item, the entry and the alert in that order within one
// unit of work.
func ApplyStockChange(item *models.Item, ch StockChange) (StockChangeResult, error) {
	prev := item.Stock.Quantity
	next := prev + ch.Delta
	if next < 0 {
		return StockChangeResult{}, &domain.InsufficientStockError{
			ItemID:    item.ID,
			Name:      item.Name.String(),
			Available: prev,
			Requested: -ch.Delta,
		}
	}

	entry, err := models.NewStockLogEntry(models.StockLogParams{
		ItemID:      item.ID,
		Type:        ch.Type,
		Previous:    prev,
		Delta:       ch.Delta,
		CostPrice:   ch.CostPrice,
		SupplierID:  ch.SupplierID,
		Reason:      ch.Reason,
		Reference:   ch.Reference,
		PerformedBy: ch.PerformedBy,
		BranchID:    item.BranchID,
		At:          ch.At,
	})
	if err != nil {
		return StockChangeResult{}, fmt.Errorf("%w: %w", domain.ErrInvalidMovement, err)
	}

	item.Stock.Quantity = next
	item.UpdatedAt = ch.At.UTC()

	return StockChangeResult{
		Entry: entry,
		Alert: ThresholdCrossingAlert(item, prev, ch.At, ch.AlertTTL),
	}, nil
}

// ThresholdCrossingAlert returns an alert only when stock moved from above
// the item's threshold to at or below it. Movements that stay low, or that
// start low, return nil.
func ThresholdCrossingAlert(item *models.Item, previous int, at time.Time, ttl time.Duration) *models.Alert {
	threshold := item.Stock.LowStockThreshold
	if previous <= threshold || item.Stock.Quantity > threshold {
		return nil
	}
	return stockAlert(item, at, ttl)
}

// InitialStockAlert returns an alert for an item created at or below its
// threshold, nil otherwise.
func InitialStockAlert(item *models.Item, ttl time.Duration) *models.Alert {
	if !item.IsLowStock() {
		return nil
	}
	return stockAlert(item, item.CreatedAt, ttl)
}

func stockAlert(item *models.Item, at time.Time, ttl time.Duration) *models.Alert {
	a := &models.Alert{
		ID:        uuid.New(),
		Type:      models.AlertLowStock,
		Severity:  models.SeverityWarning,
		Title:     "Low Stock: " + item.Name.String(),
		ItemID:    item.ID,
		BranchID:  item.BranchID,
		CreatedAt: at.UTC(),
		Message:   fmt.Sprintf("%s now has %d %s remaining", item.Name, item.Stock.Quantity, item.Stock.Unit),
	}
	if item.Stock.Quantity == 0 {
		a.Type = models.AlertOutOfStock
		a.Severity = models.SeverityCritical
		a.Title = "Out of Stock: " + item.Name.String()
	}
	if ttl > 0 {
		exp := a.CreatedAt.Add(ttl)
		a.ExpiresAt = &exp
	}
	return a
}
