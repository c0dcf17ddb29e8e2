package handlers

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ghuser/branchpos/services/sales/domain/models"
)

// SaleLineRequest is one line of POST /sales.
type SaleLineRequest struct {
	ItemID   string `json:"item_id" validate:"required,uuid" example:"123e4567-e89b-12d3-a456-426614174000"`
	Quantity int    `json:"quantity" validate:"gt=0" example:"2"`
} // @name SaleLineRequest

// CustomerRequest carries optional walk-in customer details.
type CustomerRequest struct {
	Name  string `json:"name" validate:"max=255" example:"Asha"`
	Phone string `json:"phone" validate:"max=32" example:"+91 98765 43210"`
	Email string `json:"email" validate:"omitempty,email" example:"asha@example.com"`
} // @name CustomerRequest

// PaymentRequest is how the customer paid. Both fields are required.
type PaymentRequest struct {
	Method     string           `json:"method" validate:"required,oneof=cash card upi other" example:"cash"`
	AmountPaid *decimal.Decimal `json:"amount_paid" validate:"required" swaggertype:"string" example:"500.00"`
} // @name PaymentRequest

// TotalsRequest carries the caller-supplied tax and discount. Both default to 0.
type TotalsRequest struct {
	Tax      decimal.Decimal `json:"tax" swaggertype:"string" example:"0"`
	Discount decimal.Decimal `json:"discount" swaggertype:"string" example:"0"`
} // @name TotalsRequest

// CreateSaleRequest is the request body for POST /sales. Money fields accept
// JSON numbers or decimal strings. Unknown fields are rejected.
type CreateSaleRequest struct {
	Items    []SaleLineRequest `json:"items" validate:"required,min=1,dive"`
	Payment  *PaymentRequest   `json:"payment" validate:"required"`
	Totals   *TotalsRequest    `json:"totals,omitempty"`
	Customer *CustomerRequest  `json:"customer,omitempty"`
	BranchID string            `json:"branch_id,omitempty" validate:"omitempty,uuid"`
} // @name CreateSaleRequest

// SaleLineResponse is a snapshot of one sold line.
type SaleLineResponse struct {
	ItemID       uuid.UUID       `json:"item_id"`
	Name         string          `json:"name" example:"Rice 5kg"`
	Quantity     int             `json:"quantity" example:"2"`
	CostPrice    decimal.Decimal `json:"cost_price" swaggertype:"string" example:"300.00"`
	SellingPrice decimal.Decimal `json:"selling_price" swaggertype:"string" example:"350.00"`
	Subtotal     decimal.Decimal `json:"subtotal" swaggertype:"string" example:"700.00"`
	Profit       decimal.Decimal `json:"profit" swaggertype:"string" example:"100.00"`
} // @name SaleLineResponse

// CustomerResponse is the stored customer of a sale.
type CustomerResponse struct {
	Name  string `json:"name,omitempty"`
	Phone string `json:"phone,omitempty" example:"+919876543210"`
	Email string `json:"email,omitempty"`
} // @name CustomerResponse

// SaleResponse is a recorded sale.
type SaleResponse struct {
	ID            uuid.UUID          `json:"id"`
	InvoiceNumber string             `json:"invoice_number" example:"INV2504160042"`
	Items         []SaleLineResponse `json:"items"`
	Subtotal      decimal.Decimal    `json:"subtotal" swaggertype:"string"`
	Tax           decimal.Decimal    `json:"tax" swaggertype:"string"`
	Discount      decimal.Decimal    `json:"discount" swaggertype:"string"`
	Total         decimal.Decimal    `json:"total" swaggertype:"string"`
	Profit        decimal.Decimal    `json:"profit" swaggertype:"string"`
	PaymentMethod string             `json:"payment_method" example:"cash"`
	AmountPaid    decimal.Decimal    `json:"amount_paid" swaggertype:"string"`
	Change        decimal.Decimal    `json:"change" swaggertype:"string"`
	Customer      *CustomerResponse  `json:"customer,omitempty"`
	CashierID     uuid.UUID          `json:"cashier_id"`
	BranchID      *uuid.UUID         `json:"branch_id,omitempty"`
	Status        string             `json:"status" example:"completed"`
	CreatedAt     time.Time          `json:"created_at"`
} // @name SaleResponse

// SaleListResponse is a page of sales.
type SaleListResponse struct {
	Sales []SaleResponse `json:"sales"`
	Total int            `json:"total" example:"42"`
	Page  int            `json:"page" example:"1"`
	Limit int            `json:"limit" example:"20"`
} // @name SaleListResponse

func toSaleResponse(s *models.Sale) SaleResponse {
	lines := make([]SaleLineResponse, len(s.Lines))
	for i, l := range s.Lines {
		lines[i] = SaleLineResponse{
			ItemID:       l.ItemID,
			Name:         l.Name,
			Quantity:     l.Quantity,
			CostPrice:    l.CostPrice,
			SellingPrice: l.SellingPrice,
			Subtotal:     l.Subtotal,
			Profit:       l.Profit,
		}
	}
	resp := SaleResponse{
		ID:            s.ID,
		InvoiceNumber: s.InvoiceNumber,
		Items:         lines,
		Subtotal:      s.Totals.Subtotal,
		Tax:           s.Totals.Tax,
		Discount:      s.Totals.Discount,
		Total:         s.Totals.Total,
		Profit:        s.Totals.Profit,
		PaymentMethod: string(s.Payment.Method),
		AmountPaid:    s.Payment.AmountPaid,
		Change:        s.Payment.Change,
		CashierID:     s.CashierID,
		Status:        string(s.Status),
		CreatedAt:     s.CreatedAt,
	}
	if s.Customer != nil {
		resp.Customer = &CustomerResponse{Name: s.Customer.Name, Phone: s.Customer.Phone, Email: s.Customer.Email}
	}
	if s.BranchID != uuid.Nil {
		b := s.BranchID
		resp.BranchID = &b
	}
	return resp
}
