package events

import (
	"time"

	"github.com/google/uuid"
)

// Watermill topics published by the inventory context.
const (
	TopicItemCreated       = "inventory.item_created"
	TopicStockMoved        = "inventory.stock_moved"
	TopicStockAlertRaised  = "inventory.stock_alert_raised"
	TopicItemPricingChange = "inventory.item_pricing_changed"
)

// ItemCreatedEvent is published after a new Item is persisted.
type ItemCreatedEvent struct {
	EventID    uuid.UUID `json:"event_id"` // Unique publish-time identifier for deduplication
	Version    int       `json:"version"`  // Schema version; increment on breaking changes
	ItemID     uuid.UUID `json:"item_id"`
	BranchID   uuid.UUID `json:"branch_id"`
	SKU        string    `json:"sku"`
	Name       string    `json:"name"`
	Quantity   int       `json:"quantity"`
	OccurredAt time.Time `json:"occurred_at"`
}

// StockMovedEvent mirrors one ledger entry. Published in the transaction
// that appends the entry.
type StockMovedEvent struct {
	EventID     uuid.UUID `json:"event_id"`
	Version     int       `json:"version"`
	EntryID     uuid.UUID `json:"entry_id"`
	ItemID      uuid.UUID `json:"item_id"`
	BranchID    uuid.UUID `json:"branch_id"`
	Type        string    `json:"type"`
	Delta       int       `json:"delta"`
	NewQuantity int       `json:"new_quantity"`
	Reference   string    `json:"reference,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// StockAlertRaisedEvent is published when a movement crosses an item's
// low-stock threshold.
type StockAlertRaisedEvent struct {
	EventID    uuid.UUID `json:"event_id"`
	Version    int       `json:"version"`
	AlertID    uuid.UUID `json:"alert_id"`
	ItemID     uuid.UUID `json:"item_id"`
	BranchID   uuid.UUID `json:"branch_id"`
	Type       string    `json:"type"`
	Severity   string    `json:"severity"`
	Title      string    `json:"title"`
	OccurredAt time.Time `json:"occurred_at"`
}

// ItemPricingChangedEvent is published after a price update.
type ItemPricingChangedEvent struct {
	EventID      uuid.UUID `json:"event_id"`
	Version      int       `json:"version"`
	ItemID       uuid.UUID `json:"item_id"`
	CostPrice    string    `json:"cost_price"`
	SellingPrice string    `json:"selling_price"`
	OccurredAt   time.Time `json:"occurred_at"`
}
