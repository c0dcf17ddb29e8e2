package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PaymentMethod string

const (
	PaymentCash  PaymentMethod = "cash"
	PaymentCard  PaymentMethod = "card"
	PaymentUPI   PaymentMethod = "upi"
	PaymentOther PaymentMethod = "other"
)

// ParsePaymentMethod accepts the four known methods. The method is always
// required.
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	switch m := PaymentMethod(s); m {
	case PaymentCash, PaymentCard, PaymentUPI, PaymentOther:
		return m, nil
	case "":
		return "", errors.New("payment method is required")
	}
	return "", fmt.Errorf("unknown payment method %q", s)
}

type Status string

const (
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusRefunded  Status = "refunded"
)

func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusCompleted, StatusCancelled, StatusRefunded:
		return st, nil
	}
	return "", fmt.Errorf("unknown sale status %q", s)
}

// SaleLine is a snapshot of one item at the moment of sale. Later catalog
// price changes never touch it.
type SaleLine struct {
	ItemID       uuid.UUID
	Name         string
	Quantity     int
	CostPrice    decimal.Decimal
	SellingPrice decimal.Decimal
	Subtotal     decimal.Decimal
	Profit       decimal.Decimal
}

// NewSaleLine computes subtotal = selling × qty and profit = (selling − cost) × qty.
func NewSaleLine(itemID uuid.UUID, name string, qty int, cost, selling decimal.Decimal) SaleLine {
	q := decimal.NewFromInt(int64(qty))
	return SaleLine{
		ItemID:       itemID,
		Name:         name,
		Quantity:     qty,
		CostPrice:    cost,
		SellingPrice: selling,
		Subtotal:     selling.Mul(q),
		Profit:       selling.Sub(cost).Mul(q),
	}
}

// Totals always satisfies Total = Subtotal + Tax − Discount.
type Totals struct {
	Subtotal decimal.Decimal
	Tax      decimal.Decimal
	Discount decimal.Decimal
	Total    decimal.Decimal
	Profit   decimal.Decimal
}

// ComputeTotals sums the lines and applies the caller-supplied tax and
// discount. A discount larger than subtotal + tax yields a negative total;
// it is not rejected here.
func ComputeTotals(lines []SaleLine, tax, discount decimal.Decimal) Totals {
	subtotal, profit := decimal.Zero, decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(l.Subtotal)
		profit = profit.Add(l.Profit)
	}
	return Totals{
		Subtotal: subtotal,
		Tax:      tax,
		Discount: discount,
		Total:    subtotal.Add(tax).Sub(discount),
		Profit:   profit,
	}
}

// Payment records how the customer paid. Change = AmountPaid − Total and is
// negative when the customer underpaid.
type Payment struct {
	Method     PaymentMethod
	AmountPaid decimal.Decimal
	Change     decimal.Decimal
}

// Sale is an immutable record of one checkout.
type Sale struct {
	ID            uuid.UUID
	InvoiceNumber string
	Lines         []SaleLine
	Totals        Totals
	Payment       Payment
	Customer      *Customer
	CashierID     uuid.UUID
	BranchID      uuid.UUID // uuid.Nil when an owner sells without a branch
	Status        Status
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewSaleParams carries the inputs for NewSale.
type NewSaleParams struct {
	InvoiceNumber string
	Lines         []SaleLine
	Tax           decimal.Decimal
	Discount      decimal.Decimal
	Method        PaymentMethod
	AmountPaid    decimal.Decimal
	Customer      *Customer
	CashierID     uuid.UUID
	BranchID      uuid.UUID
	At            time.Time
}

// NewSale builds a completed sale and derives its totals and change.
func NewSale(p NewSaleParams) *Sale {
	totals := ComputeTotals(p.Lines, p.Tax, p.Discount)
	at := p.At.UTC()
	return &Sale{
		ID:            uuid.New(),
		InvoiceNumber: p.InvoiceNumber,
		Lines:         p.Lines,
		Totals:        totals,
		Payment: Payment{
			Method:     p.Method,
			AmountPaid: p.AmountPaid,
			Change:     p.AmountPaid.Sub(totals.Total),
		},
		Customer:  p.Customer,
		CashierID: p.CashierID,
		BranchID:  p.BranchID,
		Status:    StatusCompleted,
		CreatedAt: at,
		UpdatedAt: at,
	}
}

// ItemCount returns the number of units sold across all lines.
func (s *Sale) ItemCount() int {
	n := 0
	for _, l := range s.Lines {
		n += l.Quantity
	}
	return n
}
