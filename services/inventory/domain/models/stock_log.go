package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MovementType classifies a ledger entry.
type MovementType string

const (
	MovementPurchase   MovementType = "purchase"
	MovementSale       MovementType = "sale"
	MovementAdjustment MovementType = "adjustment"
	MovementReturn     MovementType = "return"
)

// ParseMovementType validates s against the known movement types.
func ParseMovementType(s string) (MovementType, error) {
	switch t := MovementType(s); t {
	case MovementPurchase, MovementSale, MovementAdjustment, MovementReturn:
		return t, nil
	}
	return "", fmt.Errorf("unknown movement type %q", s)
}

// StockLogEntry is one immutable row of the stock ledger.
// NewQuantity always equals PreviousQuantity + Quantity.
type StockLogEntry struct {
	ID               uuid.UUID
	ItemID           uuid.UUID
	Type             MovementType
	Quantity         int // signed delta
	PreviousQuantity int
	NewQuantity      int
	CostPrice        decimal.NullDecimal
	SupplierID       uuid.UUID
	Reason           string
	Reference        string
	PerformedBy      uuid.UUID
	BranchID         uuid.UUID
	CreatedAt        time.Time
}

// StockLogParams carries the inputs for NewStockLogEntry.
type StockLogParams struct {
	ItemID      uuid.UUID
	Type        MovementType
	Previous    int
	Delta       int
	CostPrice   decimal.NullDecimal
	SupplierID  uuid.UUID
	Reason      string
	Reference   string
	PerformedBy uuid.UUID
	BranchID    uuid.UUID
	At          time.Time
}

// NewStockLogEntry builds a ledger entry and enforces the sign rules of each
// movement type: sales remove stock, purchases and returns add it, and
// adjustments may move it either way (including not at all).
func NewStockLogEntry(p StockLogParams) (*StockLogEntry, error) {
	switch p.Type {
	case MovementSale:
		if p.Delta >= 0 {
			return nil, fmt.Errorf("sale movement must decrease stock, got %+d", p.Delta)
		}
	case MovementPurchase, MovementReturn:
		if p.Delta <= 0 {
			return nil, fmt.Errorf("%s movement must increase stock, got %+d", p.Type, p.Delta)
		}
	case MovementAdjustment:
	default:
		return nil, fmt.Errorf("unknown movement type %q", p.Type)
	}

	next := p.Previous + p.Delta
	if next < 0 {
		return nil, fmt.Errorf("movement leaves negative stock (%d%+d)", p.Previous, p.Delta)
	}

	return &StockLogEntry{
		ID:               uuid.New(),
		ItemID:           p.ItemID,
		Type:             p.Type,
		Quantity:         p.Delta,
		PreviousQuantity: p.Previous,
		NewQuantity:      next,
		CostPrice:        p.CostPrice,
		SupplierID:       p.SupplierID,
		Reason:           p.Reason,
		Reference:        p.Reference,
		PerformedBy:      p.PerformedBy,
		BranchID:         p.BranchID,
		CreatedAt:        p.At.UTC(),
	}, nil
}
