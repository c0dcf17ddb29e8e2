package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"

	"github.com/ghuser/branchpos/pkg/logger"
	inventoryevents "github.com/ghuser/branchpos/services/inventory/domain/events"
	salessvcs "github.com/ghuser/branchpos/services/sales/application/services"
	salesevents "github.com/ghuser/branchpos/services/sales/domain/events"
)

// itemEvicter removes catalog read-model entries. *cache.ItemCache satisfies it.
type itemEvicter interface {
	Delete(ctx context.Context, itemIDs ...uuid.UUID) error
}

// statsEvicter removes cached sales stats. *cache.JSONCache satisfies it.
type statsEvicter interface {
	Delete(ctx context.Context, keys ...string) error
}

type handlerFunc = func(context.Context, *message.Message) error

// subscription binds a topic to its handler.
type subscription struct {
	topic   string
	handler handlerFunc
}

// subscriptions lists every handler the worker runs. Handlers must be
// idempotent since EventBus retries up to 3x on failure.
func subscriptions(items itemEvicter, stats statsEvicter, log logger.Logger) []subscription {
	return []subscription{
		{inventoryevents.TopicItemCreated, handleItemCreated(log)},
		{inventoryevents.TopicStockMoved, handleStockMoved(items, log)},
		{inventoryevents.TopicItemPricingChange, handlePricingChanged(items, log)},
		{inventoryevents.TopicStockAlertRaised, handleStockAlertRaised(log)},
		{salesevents.TopicSaleCompleted, handleSaleCompleted(stats, log)},
	}
}

func decode[T any](msg *message.Message) (T, error) {
	var evt T
	if err := json.Unmarshal(msg.Payload, &evt); err != nil {
		return evt, fmt.Errorf("decode %s: %w", msg.UUID, err)
	}
	return evt, nil
}

func handleItemCreated(log logger.Logger) handlerFunc {
	return func(ctx context.Context, msg *message.Message) error {
		evt, err := decode[inventoryevents.ItemCreatedEvent](msg)
		if err != nil {
			return err
		}
		log.InfoContext(ctx, "item created",
			"item_id", evt.ItemID, "branch_id", evt.BranchID, "sku", evt.SKU, "quantity", evt.Quantity)
		return nil
	}
}

// handleStockMoved evicts the item's cached read model so the next read
// sees the new quantity.
func handleStockMoved(items itemEvicter, log logger.Logger) handlerFunc {
	return func(ctx context.Context, msg *message.Message) error {
		evt, err := decode[inventoryevents.StockMovedEvent](msg)
		if err != nil {
			return err
		}
		if items == nil {
			return nil
		}
		if err := items.Delete(ctx, evt.ItemID); err != nil {
			return fmt.Errorf("evict item %s: %w", evt.ItemID, err)
		}
		log.DebugContext(ctx, "item cache evicted", "item_id", evt.ItemID, "type", evt.Type, "new_quantity", evt.NewQuantity)
		return nil
	}
}

func handlePricingChanged(items itemEvicter, log logger.Logger) handlerFunc {
	return func(ctx context.Context, msg *message.Message) error {
		evt, err := decode[inventoryevents.ItemPricingChangedEvent](msg)
		if err != nil {
			return err
		}
		if items == nil {
			return nil
		}
		if err := items.Delete(ctx, evt.ItemID); err != nil {
			return fmt.Errorf("evict item %s: %w", evt.ItemID, err)
		}
		log.DebugContext(ctx, "item cache evicted", "item_id", evt.ItemID, "reason", "pricing")
		return nil
	}
}

func handleStockAlertRaised(log logger.Logger) handlerFunc {
	return func(ctx context.Context, msg *message.Message) error {
		evt, err := decode[inventoryevents.StockAlertRaisedEvent](msg)
		if err != nil {
			return err
		}
		log.WarnContext(ctx, "stock alert raised",
			"alert_id", evt.AlertID, "item_id", evt.ItemID, "branch_id", evt.BranchID,
			"type", evt.Type, "severity", evt.Severity, "title", evt.Title)
		return nil
	}
}

// handleSaleCompleted drops the cached stats of the sale's branch and the
// owners' all-branches view.
func handleSaleCompleted(stats statsEvicter, log logger.Logger) handlerFunc {
	return func(ctx context.Context, msg *message.Message) error {
		evt, err := decode[salesevents.SaleCompletedEvent](msg)
		if err != nil {
			return err
		}
		if stats == nil {
			return nil
		}
		keys := []string{salessvcs.StatsCacheKey(nil)}
		if evt.BranchID != uuid.Nil {
			keys = append(keys, salessvcs.StatsCacheKey(&evt.BranchID))
		}
		if err := stats.Delete(ctx, keys...); err != nil {
			return fmt.Errorf("invalidate stats for sale %s: %w", evt.SaleID, err)
		}
		log.DebugContext(ctx, "sales stats invalidated", "sale_id", evt.SaleID, "keys", keys)
		return nil
	}
}
