package handlers

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ghuser/branchpos/services/inventory/domain/models"
)

// CreateItemRequest is the request body for POST /items.
type CreateItemRequest struct {
	Name              string          `json:"name" validate:"required,min=1,max=255" example:"Rice 5kg"`
	SKU               string          `json:"sku" validate:"required,max=64" example:"RICE-5KG"`
	Barcode           string          `json:"barcode,omitempty" validate:"max=64" example:"8901234567890"`
	CategoryID        string          `json:"category_id,omitempty" validate:"omitempty,uuid"`
	CostPrice         decimal.Decimal `json:"cost_price" swaggertype:"string" example:"300.00"`
	SellingPrice      decimal.Decimal `json:"selling_price" swaggertype:"string" example:"350.00"`
	Quantity          int             `json:"quantity" validate:"gte=0" example:"40"`
	Unit              string          `json:"unit,omitempty" validate:"max=16" example:"pcs"`
	LowStockThreshold *int            `json:"low_stock_threshold,omitempty" validate:"omitempty,gte=0" example:"10"`
	ReorderPoint      *int            `json:"reorder_point,omitempty" validate:"omitempty,gte=0" example:"5"`
	BranchID          string          `json:"branch_id,omitempty" validate:"omitempty,uuid"`
} // @name CreateItemRequest

// UpdatePricingRequest is the request body for PUT /items/{id}/pricing.
type UpdatePricingRequest struct {
	CostPrice    decimal.Decimal `json:"cost_price" swaggertype:"string" example:"310.00"`
	SellingPrice decimal.Decimal `json:"selling_price" swaggertype:"string" example:"360.00"`
} // @name UpdatePricingRequest

// RefillRequest is the request body for POST /stock/refill.
type RefillRequest struct {
	ItemID     string              `json:"item_id" validate:"required,uuid"`
	Quantity   int                 `json:"quantity" validate:"gt=0" example:"24"`
	CostPrice  decimal.NullDecimal `json:"cost_price,omitempty" swaggertype:"string" example:"295.00"`
	SupplierID string              `json:"supplier_id,omitempty" validate:"omitempty,uuid"`
	Reason     string              `json:"reason,omitempty" validate:"max=500" example:"Weekly delivery"`
} // @name RefillRequest

// AdjustRequest is the request body for POST /stock/adjust.
type AdjustRequest struct {
	ItemID      string `json:"item_id" validate:"required,uuid"`
	NewQuantity *int   `json:"new_quantity" validate:"required,gte=0" example:"17"`
	Reason      string `json:"reason,omitempty" validate:"max=500" example:"Stock count"`
} // @name AdjustRequest

// ItemResponse is a catalog item.
type ItemResponse struct {
	ID                uuid.UUID       `json:"id"`
	Name              string          `json:"name" example:"Rice 5kg"`
	SKU               string          `json:"sku" example:"RICE-5KG"`
	Barcode           string          `json:"barcode,omitempty"`
	CategoryID        *uuid.UUID      `json:"category_id,omitempty"`
	CostPrice         decimal.Decimal `json:"cost_price" swaggertype:"string"`
	SellingPrice      decimal.Decimal `json:"selling_price" swaggertype:"string"`
	Margin            decimal.Decimal `json:"margin" swaggertype:"string"`
	MarginPercentage  decimal.Decimal `json:"margin_percentage" swaggertype:"string"`
	Quantity          int             `json:"quantity" example:"40"`
	Unit              string          `json:"unit" example:"pcs"`
	LowStockThreshold int             `json:"low_stock_threshold" example:"10"`
	ReorderPoint      int             `json:"reorder_point" example:"5"`
	IsActive          bool            `json:"is_active"`
	BranchID          *uuid.UUID      `json:"branch_id,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
} // @name ItemResponse

// CreateItemResponse is returned on successful item creation. Alert is set
// when the item starts at or below its low-stock threshold.
type CreateItemResponse struct {
	Item  ItemResponse   `json:"item"`
	Alert *AlertResponse `json:"alert,omitempty"`
} // @name CreateItemResponse

// StockLogResponse is one ledger entry.
type StockLogResponse struct {
	ID               uuid.UUID        `json:"id"`
	ItemID           uuid.UUID        `json:"item_id"`
	Type             string           `json:"type" example:"sale"`
	Quantity         int              `json:"quantity" example:"-3"`
	PreviousQuantity int              `json:"previous_quantity" example:"10"`
	NewQuantity      int              `json:"new_quantity" example:"7"`
	CostPrice        *decimal.Decimal `json:"cost_price,omitempty" swaggertype:"string"`
	SupplierID       *uuid.UUID       `json:"supplier_id,omitempty"`
	Reason           string           `json:"reason,omitempty"`
	Reference        string           `json:"reference,omitempty" example:"INV2504160042"`
	PerformedBy      uuid.UUID        `json:"performed_by"`
	BranchID         *uuid.UUID       `json:"branch_id,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
} // @name StockLogResponse

// StockMovementResponse is returned by refill and adjust.
type StockMovementResponse struct {
	Item  ItemResponse     `json:"item"`
	Entry StockLogResponse `json:"entry"`
	Alert *AlertResponse   `json:"alert,omitempty"`
} // @name StockMovementResponse

// StockLogListResponse is a page of ledger entries.
type StockLogListResponse struct {
	Entries []StockLogResponse `json:"entries"`
	Total   int                `json:"total"`
	Page    int                `json:"page"`
	Limit   int                `json:"limit"`
} // @name StockLogListResponse

// AlertResponse is a stock alert.
type AlertResponse struct {
	ID        uuid.UUID   `json:"id"`
	Type      string      `json:"type" example:"low_stock"`
	Severity  string      `json:"severity" example:"warning"`
	Title     string      `json:"title" example:"Low Stock: Rice 5kg"`
	Message   string      `json:"message" example:"Rice 5kg now has 7 pcs remaining"`
	ItemID    uuid.UUID   `json:"item_id"`
	BranchID  *uuid.UUID  `json:"branch_id,omitempty"`
	IsRead    bool        `json:"is_read"`
	ReadBy    []uuid.UUID `json:"read_by"`
	CreatedAt time.Time   `json:"created_at"`
	ExpiresAt *time.Time  `json:"expires_at,omitempty"`
} // @name AlertResponse

func optional(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	return &id
}

func toItemResponse(it *models.Item) ItemResponse {
	return ItemResponse{
		ID:                it.ID,
		Name:              it.Name.String(),
		SKU:               string(it.SKU),
		Barcode:           it.Barcode,
		CategoryID:        optional(it.CategoryID),
		CostPrice:         it.Pricing.CostPrice,
		SellingPrice:      it.Pricing.SellingPrice,
		Margin:            it.Pricing.Margin,
		MarginPercentage:  it.Pricing.MarginPercentage,
		Quantity:          it.Stock.Quantity,
		Unit:              it.Stock.Unit,
		LowStockThreshold: it.Stock.LowStockThreshold,
		ReorderPoint:      it.Stock.ReorderPoint,
		IsActive:          it.IsActive,
		BranchID:          optional(it.BranchID),
		CreatedAt:         it.CreatedAt,
		UpdatedAt:         it.UpdatedAt,
	}
}

func toStockLogResponse(e *models.StockLogEntry) StockLogResponse {
	resp := StockLogResponse{
		ID:               e.ID,
		ItemID:           e.ItemID,
		Type:             string(e.Type),
		Quantity:         e.Quantity,
		PreviousQuantity: e.PreviousQuantity,
		NewQuantity:      e.NewQuantity,
		SupplierID:       optional(e.SupplierID),
		Reason:           e.Reason,
		Reference:        e.Reference,
		PerformedBy:      e.PerformedBy,
		BranchID:         optional(e.BranchID),
		CreatedAt:        e.CreatedAt,
	}
	if e.CostPrice.Valid {
		c := e.CostPrice.Decimal
		resp.CostPrice = &c
	}
	return resp
}

func toAlertResponse(a *models.Alert) *AlertResponse {
	if a == nil {
		return nil
	}
	readBy := a.ReadBy
	if readBy == nil {
		readBy = []uuid.UUID{}
	}
	return &AlertResponse{
		ID:        a.ID,
		Type:      string(a.Type),
		Severity:  string(a.Severity),
		Title:     a.Title,
		Message:   a.Message,
		ItemID:    a.ItemID,
		BranchID:  optional(a.BranchID),
		IsRead:    a.IsRead,
		ReadBy:    readBy,
		CreatedAt: a.CreatedAt,
		ExpiresAt: a.ExpiresAt,
	}
}
