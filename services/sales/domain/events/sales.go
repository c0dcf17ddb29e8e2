package events

import (
	"time"

	"github.com/google/uuid"
)

// TopicSaleCompleted is published in the transaction that records a sale.
const TopicSaleCompleted = "sales.sale_completed"

// SaleCompletedEvent summarizes a committed sale. Money fields are decimal
// strings so consumers never round through float64.
type SaleCompletedEvent struct {
	EventID       uuid.UUID   `json:"event_id"` // Unique publish-time identifier for deduplication
	Version       int         `json:"version"`  // Schema version; increment on breaking changes
	SaleID        uuid.UUID   `json:"sale_id"`
	InvoiceNumber string      `json:"invoice_number"`
	BranchID      uuid.UUID   `json:"branch_id"`
	CashierID     uuid.UUID   `json:"cashier_id"`
	ItemIDs       []uuid.UUID `json:"item_ids"`
	Total         string      `json:"total"`
	Profit        string      `json:"profit"`
	OccurredAt    time.Time   `json:"occurred_at"`
}
