package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Stock defaults applied when an item is created without explicit values.
const (
	DefaultUnit              = "pcs"
	DefaultLowStockThreshold = 10
	DefaultReorderPoint      = 5
)

var hundred = decimal.NewFromInt(100)

// Pricing holds the item's prices and the margin derived from them.
// Margin and MarginPercentage are only ever written by NewPricing.
type Pricing struct {
	CostPrice        decimal.Decimal
	SellingPrice     decimal.Decimal
	Margin           decimal.Decimal
	MarginPercentage decimal.Decimal
}

// NewPricing validates the prices and derives the margin:
// margin = selling − cost, percentage = margin / cost × 100 rounded to 2
// places (0 when cost is 0).
func NewPricing(cost, selling decimal.Decimal) (Pricing, error) {
	if cost.IsNegative() {
		return Pricing{}, fmt.Errorf("cost price must not be negative")
	}
	if selling.IsNegative() {
		return Pricing{}, fmt.Errorf("selling price must not be negative")
	}
	margin := selling.Sub(cost)
	pct := decimal.Zero
	if !cost.IsZero() {
		pct = margin.Div(cost).Mul(hundred).Round(2)
	}
	return Pricing{
		CostPrice:        cost,
		SellingPrice:     selling,
		Margin:           margin,
		MarginPercentage: pct,
	}, nil
}

// Stock is the on-hand quantity and its alerting thresholds.
type Stock struct {
	Quantity          int
	Unit              string
	LowStockThreshold int
	ReorderPoint      int
}

// Item is the catalog aggregate. Quantity is only changed through
// domain/services.ApplyStockChange so every change is mirrored in the ledger.
type Item struct {
	ID         uuid.UUID
	Name       ItemName
	SKU        SKU
	Barcode    string
	CategoryID uuid.UUID
	Pricing    Pricing
	Stock      Stock
	BranchID   uuid.UUID // uuid.Nil for items shared by all branches
	IsActive   bool
	CreatedBy  uuid.UUID
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// NewItemParams carries the inputs for NewItem. Zero-valued Unit and
// LowStockThreshold/ReorderPoint pointers fall back to the package defaults.
type NewItemParams struct {
	Name              ItemName
	SKU               SKU
	Barcode           string
	CategoryID        uuid.UUID
	CostPrice         decimal.Decimal
	SellingPrice      decimal.Decimal
	Quantity          int
	Unit              string
	LowStockThreshold *int
	ReorderPoint      *int
	BranchID          uuid.UUID
	CreatedBy         uuid.UUID
	Now               time.Time
}

// NewItem constructs an active Item with a generated ID.
func NewItem(p NewItemParams) (*Item, error) {
	pricing, err := NewPricing(p.CostPrice, p.SellingPrice)
	if err != nil {
		return nil, err
	}
	if p.Quantity < 0 {
		return nil, fmt.Errorf("initial quantity must not be negative")
	}

	stock := Stock{
		Quantity:          p.Quantity,
		Unit:              p.Unit,
		LowStockThreshold: DefaultLowStockThreshold,
		ReorderPoint:      DefaultReorderPoint,
	}
	if stock.Unit == "" {
		stock.Unit = DefaultUnit
	}
	if p.LowStockThreshold != nil {
		stock.LowStockThreshold = *p.LowStockThreshold
	}
	if p.ReorderPoint != nil {
		stock.ReorderPoint = *p.ReorderPoint
	}
	if stock.LowStockThreshold < 0 || stock.ReorderPoint < 0 {
		return nil, fmt.Errorf("stock thresholds must not be negative")
	}

	now := p.Now
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()

	return &Item{
		ID:         uuid.New(),
		Name:       p.Name,
		SKU:        p.SKU,
		Barcode:    p.Barcode,
		CategoryID: p.CategoryID,
		Pricing:    pricing,
		Stock:      stock,
		BranchID:   p.BranchID,
		IsActive:   true,
		CreatedBy:  p.CreatedBy,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// SetPricing replaces both prices and recomputes the margin.
func (i *Item) SetPricing(cost, selling decimal.Decimal, at time.Time) error {
	p, err := NewPricing(cost, selling)
	if err != nil {
		return err
	}
	i.Pricing = p
	i.UpdatedAt = at.UTC()
	return nil
}

// SetCostPrice keeps the selling price and recomputes the margin against a
// new cost, as happens on a purchase at a different supplier price.
func (i *Item) SetCostPrice(cost decimal.Decimal, at time.Time) error {
	return i.SetPricing(cost, i.Pricing.SellingPrice, at)
}

// Deactivate hides the item from sale without deleting its history.
func (i *Item) Deactivate(at time.Time) {
	i.IsActive = false
	i.UpdatedAt = at.UTC()
}

// IsLowStock reports whether quantity is at or below the low-stock threshold.
func (i *Item) IsLowStock() bool {
	return i.Stock.Quantity <= i.Stock.LowStockThreshold
}

// VisibleTo reports whether an item is readable under a branch scope.
// Items without a branch are visible everywhere.
func (i *Item) VisibleTo(scope *uuid.UUID) bool {
	return scope == nil || i.BranchID == uuid.Nil || i.BranchID == *scope
}
