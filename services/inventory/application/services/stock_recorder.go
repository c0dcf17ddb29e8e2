package services

import (
	"context"
	"fmt"

	"github.com/ghuser/branchpos/services/inventory/domain/models"
	"github.com/ghuser/branchpos/services/inventory/domain/repositories"
	domainsvcs "github.com/ghuser/branchpos/services/inventory/domain/services"
)

// RecordStockChange applies ch to a locked item and writes the new quantity,
// the ledger entry and any threshold alert through w, in that order.
// Both StockService and the sales processor go through here so every
// quantity change leaves exactly one ledger entry.
func RecordStockChange(ctx context.Context, w repositories.StockWriter, item *models.Item, ch domainsvcs.StockChange) (domainsvcs.StockChangeResult, error) {
	res, err := domainsvcs.ApplyStockChange(item, ch)
	if err != nil {
		return domainsvcs.StockChangeResult{}, err
	}
	if err := w.SaveStock(ctx, item); err != nil {
		return domainsvcs.StockChangeResult{}, fmt.Errorf("save stock: %w", err)
	}
	if err := w.AppendStockLog(ctx, res.Entry); err != nil {
		return domainsvcs.StockChangeResult{}, fmt.Errorf("append stock log: %w", err)
	}
	if res.Alert != nil {
		if err := w.InsertAlert(ctx, res.Alert); err != nil {
			return domainsvcs.StockChangeResult{}, fmt.Errorf("insert alert: %w", err)
		}
	}
	return res, nil
}
