package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	inventoryrepos "github.com/ghuser/branchpos/services/inventory/domain/repositories"
	"github.com/ghuser/branchpos/services/sales/domain/models"
)

// SaleTx is the set of writes available to the sale processor. Stock,
// ledger and alert writes share the transaction with the sale insert.
type SaleTx interface {
	inventoryrepos.StockWriter

	// InsertSale persists the sale and its lines. Returns
	// domain.ErrInvoiceConflict when the invoice number is taken.
	InsertSale(ctx context.Context, sale *models.Sale) error
}

// UnitOfWork runs fn atomically: every write made through tx is committed
// when fn returns nil and discarded otherwise.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(ctx context.Context, tx SaleTx) error) error
}

// SaleQuery filters the sales list. Nil fields are not applied.
type SaleQuery struct {
	BranchID  *uuid.UUID
	CashierID *uuid.UUID
	Status    *models.Status
	From      *time.Time
	To        *time.Time
	inventoryrepos.QueryOpts
}

// Aggregate is the sum over a set of completed sales.
type Aggregate struct {
	TotalSales  decimal.Decimal
	TotalProfit decimal.Decimal
	Count       int
}

// SaleRepository reads recorded sales.
type SaleRepository interface {
	// Find returns matching sales newest first plus the total match count.
	Find(ctx context.Context, q SaleQuery) ([]*models.Sale, int, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Sale, error)

	// SumCompleted aggregates completed sales created at or after since.
	// A nil branch covers every branch.
	SumCompleted(ctx context.Context, branch *uuid.UUID, since time.Time) (Aggregate, error)
}
