package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ghuser/branchpos/pkg/auth"
	"github.com/ghuser/branchpos/pkg/logger"
	inventorysvcs "github.com/ghuser/branchpos/services/inventory/application/services"
	inventorydomain "github.com/ghuser/branchpos/services/inventory/domain"
	inventorymodels "github.com/ghuser/branchpos/services/inventory/domain/models"
	domainsvcs "github.com/ghuser/branchpos/services/inventory/domain/services"
	salesdomain "github.com/ghuser/branchpos/services/sales/domain"
	"github.com/ghuser/branchpos/services/sales/domain/models"
	"github.com/ghuser/branchpos/services/sales/domain/repositories"
)

const (
	instrumentationName = "github.com/ghuser/branchpos/services/sales"
	defaultSaleTimeout  = 10 * time.Second
)

// SaleLineRequest is one requested line: an item and how many units.
type SaleLineRequest struct {
	ItemID   uuid.UUID
	Quantity int
}

// CustomerRequest carries optional walk-in customer details.
type CustomerRequest struct {
	Name  string
	Phone string
	Email string
}

// SaleRequest is the input of SaleProcessor.Process. Tax and Discount are
// taken as given; zero values mean none.
type SaleRequest struct {
	Lines         []SaleLineRequest
	PaymentMethod string
	AmountPaid    decimal.Decimal
	Customer      *CustomerRequest
	Tax           decimal.Decimal
	Discount      decimal.Decimal
	BranchID      uuid.UUID // honoured for owners only
}

// ProcessorConfig holds the tunables of SaleProcessor.
type ProcessorConfig struct {
	Timeout            time.Duration // deadline of the unit of work; default 10s
	AlertTTL           time.Duration // expiry of raised stock alerts; 0 = never
	PhoneDefaultRegion string        // region for customer numbers without a country code
	Invoices           InvoiceNumberer
}

// InvoiceNumberer hands out invoice numbers. *models.InvoiceGenerator is the
// production implementation.
type InvoiceNumberer interface {
	Next(t time.Time) string
}

// SaleProcessor records a checkout as one atomic unit: stock decrements,
// ledger entries, threshold alerts and the sale itself either all commit or
// none do.
type SaleProcessor struct {
	uow     repositories.UnitOfWork
	cfg     ProcessorConfig
	log     logger.Logger
	tracer  trace.Tracer
	metrics *saleMetrics
	now     func() time.Time
}

// NewSaleProcessor wires a processor using the global OTel providers.
func NewSaleProcessor(uow repositories.UnitOfWork, cfg ProcessorConfig, log logger.Logger) (*SaleProcessor, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultSaleTimeout
	}
	if cfg.Invoices == nil {
		cfg.Invoices = models.NewInvoiceGenerator(models.DefaultInvoicePrefix, time.UTC)
	}
	m, err := newSaleMetrics(otel.Meter(instrumentationName))
	if err != nil {
		return nil, fmt.Errorf("sale metrics: %w", err)
	}
	return &SaleProcessor{
		uow:     uow,
		cfg:     cfg,
		log:     log,
		tracer:  otel.Tracer(instrumentationName),
		metrics: m,
		now:     time.Now,
	}, nil
}

// Process validates req, then applies every line in submitted order inside
// one unit of work and records the sale.
//
// The unit of work runs under its own deadline and is not cut short when ctx
// is cancelled, so a client disconnect cannot interrupt a commit.
//
// Errors: ErrInvalidSale (nothing attempted), *inventory.ItemError wrapping
// ErrItemNotFound or ErrItemInactive, *inventory.InsufficientStockError,
// ErrInvoiceConflict, ErrPersistence.
func (p *SaleProcessor) Process(ctx context.Context, req SaleRequest, actor auth.Actor) (*models.Sale, error) {
	start := p.now()
	ctx, span := p.tracer.Start(ctx, "sales.process",
		trace.WithAttributes(
			attribute.Int("sale.lines", len(req.Lines)),
			attribute.String("actor.role", string(actor.Role)),
		))
	defer span.End()

	sale, err := p.process(ctx, req, actor)
	p.metrics.record(ctx, p.now().Sub(start), err)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, failureReason(err))
		p.log.WarnContext(ctx, "sale failed",
			"reason", failureReason(err),
			"retryable", salesdomain.IsRetryable(err),
			"user_id", actor.UserID,
			"error", err,
		)
		return nil, err
	}

	span.SetAttributes(
		attribute.String("sale.id", sale.ID.String()),
		attribute.String("sale.invoice_number", sale.InvoiceNumber),
	)
	p.log.InfoContext(ctx, "sale completed",
		"sale_id", sale.ID,
		"invoice_number", sale.InvoiceNumber,
		"branch_id", sale.BranchID,
		"lines", len(sale.Lines),
		"total", sale.Totals.Total.String(),
	)
	return sale, nil
}

func (p *SaleProcessor) process(ctx context.Context, req SaleRequest, actor auth.Actor) (*models.Sale, error) {
	method, customer, err := p.validate(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", salesdomain.ErrInvalidSale, err)
	}

	branch := req.BranchID
	if !actor.IsOwner() {
		branch = actor.BranchID
	}

	at := p.now()
	invoice := p.cfg.Invoices.Next(at)

	uowCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.cfg.Timeout)
	defer cancel()

	ids := make([]uuid.UUID, len(req.Lines))
	for i, l := range req.Lines {
		ids[i] = l.ItemID
	}

	var sale *models.Sale
	err = p.uow.Do(uowCtx, func(ctx context.Context, tx repositories.SaleTx) error {
		locked, err := tx.LockItems(ctx, ids)
		if err != nil {
			return fmt.Errorf("lock items: %w", err)
		}

		lines := make([]models.SaleLine, 0, len(req.Lines))
		for _, l := range req.Lines {
			// Repeated item ids share one locked record, so later lines see
			// the stock left by earlier ones.
			item, ok := locked[l.ItemID]
			if !ok {
				return &inventorydomain.ItemError{ItemID: l.ItemID, Err: inventorydomain.ErrItemNotFound}
			}
			if !item.IsActive {
				return &inventorydomain.ItemError{ItemID: item.ID, Name: item.Name.String(), Err: inventorydomain.ErrItemInactive}
			}

			lines = append(lines, models.NewSaleLine(
				item.ID, item.Name.String(), l.Quantity, item.Pricing.CostPrice, item.Pricing.SellingPrice,
			))

			if _, err := inventorysvcs.RecordStockChange(ctx, tx, item, domainsvcs.StockChange{
				Type:        inventorymodels.MovementSale,
				Delta:       -l.Quantity,
				Reference:   invoice,
				PerformedBy: actor.UserID,
				At:          at,
				AlertTTL:    p.cfg.AlertTTL,
			}); err != nil {
				return err
			}
		}

		sale = models.NewSale(models.NewSaleParams{
			InvoiceNumber: invoice,
			Lines:         lines,
			Tax:           req.Tax,
			Discount:      req.Discount,
			Method:        method,
			AmountPaid:    req.AmountPaid,
			Customer:      customer,
			CashierID:     actor.UserID,
			BranchID:      branch,
			At:            at,
		})
		return tx.InsertSale(ctx, sale)
	})
	if err != nil {
		return nil, classify(err)
	}
	return sale, nil
}

func (p *SaleProcessor) validate(req SaleRequest) (models.PaymentMethod, *models.Customer, error) {
	if len(req.Lines) == 0 {
		return "", nil, errors.New("at least one line is required")
	}
	for i, l := range req.Lines {
		if l.ItemID == uuid.Nil {
			return "", nil, fmt.Errorf("line %d: item id is required", i+1)
		}
		if l.Quantity < 1 {
			return "", nil, fmt.Errorf("line %d: quantity must be at least 1", i+1)
		}
	}

	method, err := models.ParsePaymentMethod(req.PaymentMethod)
	if err != nil {
		return "", nil, err
	}
	if req.AmountPaid.IsNegative() {
		return "", nil, errors.New("amount paid must not be negative")
	}
	if req.Tax.IsNegative() {
		return "", nil, errors.New("tax must not be negative")
	}
	if req.Discount.IsNegative() {
		return "", nil, errors.New("discount must not be negative")
	}

	var customer *models.Customer
	if c := req.Customer; c != nil {
		customer, err = models.NewCustomer(c.Name, c.Phone, c.Email, p.cfg.PhoneDefaultRegion)
		if err != nil {
			return "", nil, err
		}
	}
	return method, customer, nil
}

// classify leaves domain failures as they are and folds every storage-level
// failure (deadline, deadlock, lost connection, failed write) into
// ErrPersistence.
func classify(err error) error {
	switch {
	case errors.Is(err, inventorydomain.ErrItemNotFound),
		errors.Is(err, inventorydomain.ErrItemInactive),
		errors.Is(err, inventorydomain.ErrInsufficientStock),
		errors.Is(err, inventorydomain.ErrInvalidMovement),
		errors.Is(err, salesdomain.ErrInvoiceConflict),
		errors.Is(err, salesdomain.ErrPersistence):
		return err
	}
	return fmt.Errorf("%w: %w", salesdomain.ErrPersistence, err)
}
