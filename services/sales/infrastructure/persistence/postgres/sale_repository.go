package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ghuser/branchpos/pkg/database"
	"github.com/ghuser/branchpos/pkg/events"
	inventorypg "github.com/ghuser/branchpos/services/inventory/infrastructure/persistence/postgres"
	salesdomain "github.com/ghuser/branchpos/services/sales/domain"
	domainevents "github.com/ghuser/branchpos/services/sales/domain/events"
	"github.com/ghuser/branchpos/services/sales/domain/models"
	"github.com/ghuser/branchpos/services/sales/domain/repositories"
)

const invoiceConstraint = "sales_invoice_number_key"

const saleColumns = `id, invoice_number, subtotal, tax, discount, total, profit, payment_method,
	amount_paid, change, customer_name, customer_phone, customer_email, cashier_id, branch_id,
	status, created_at, updated_at`

// UnitOfWork implements repositories.UnitOfWork. Stock, ledger and alert
// writes go through the inventory StockTx on the same transaction.
type UnitOfWork struct {
	db  *database.Database
	bus *events.EventBus
}

// NewUnitOfWork returns a UnitOfWork. bus may be nil, in which case no
// events are published.
func NewUnitOfWork(db *database.Database, bus *events.EventBus) *UnitOfWork {
	return &UnitOfWork{db: db, bus: bus}
}

// Do runs fn in one transaction. Serialization failures, deadlocks, lock
// timeouts and expired deadlines are reported as ErrPersistence.
func (u *UnitOfWork) Do(ctx context.Context, fn func(ctx context.Context, tx repositories.SaleTx) error) error {
	err := u.db.WithTx(ctx, func(tx *sql.Tx) error {
		return fn(ctx, &saleTx{StockTx: inventorypg.NewStockTx(tx, u.bus), bus: u.bus})
	})
	if err != nil && database.IsTransient(err) {
		return fmt.Errorf("%w: %w", salesdomain.ErrPersistence, err)
	}
	return err
}

type saleTx struct {
	*inventorypg.StockTx
	bus *events.EventBus
}

// InsertSale writes the sale, its lines and a SaleCompletedEvent.
func (t *saleTx) InsertSale(ctx context.Context, s *models.Sale) error {
	var cust models.Customer
	if s.Customer != nil {
		cust = *s.Customer
	}
	_, err := t.Tx.ExecContext(ctx, `
		INSERT INTO sales (`+saleColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`,
		s.ID, s.InvoiceNumber, s.Totals.Subtotal, s.Totals.Tax, s.Totals.Discount, s.Totals.Total, s.Totals.Profit,
		string(s.Payment.Method), s.Payment.AmountPaid, s.Payment.Change,
		cust.Name, cust.Phone, cust.Email, s.CashierID, nullable(s.BranchID),
		string(s.Status), s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err, invoiceConstraint) {
			return fmt.Errorf("%w: %s", salesdomain.ErrInvoiceConflict, s.InvoiceNumber)
		}
		return fmt.Errorf("insert sale: %w", err)
	}

	for i, l := range s.Lines {
		if _, err := t.Tx.ExecContext(ctx, `
			INSERT INTO sale_lines (sale_id, position, item_id, name, quantity, cost_price, selling_price, subtotal, profit)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			s.ID, i, l.ItemID, l.Name, l.Quantity, l.CostPrice, l.SellingPrice, l.Subtotal, l.Profit,
		); err != nil {
			return fmt.Errorf("insert sale line %d: %w", i+1, err)
		}
	}

	if t.bus == nil {
		return nil
	}
	itemIDs := make([]uuid.UUID, len(s.Lines))
	for i, l := range s.Lines {
		itemIDs[i] = l.ItemID
	}
	ev := domainevents.SaleCompletedEvent{
		EventID:       uuid.New(),
		Version:       1,
		SaleID:        s.ID,
		InvoiceNumber: s.InvoiceNumber,
		BranchID:      s.BranchID,
		CashierID:     s.CashierID,
		ItemIDs:       itemIDs,
		Total:         s.Totals.Total.String(),
		Profit:        s.Totals.Profit.String(),
		OccurredAt:    s.CreatedAt,
	}
	if err := t.bus.PublishInTx(ctx, t.Tx, domainevents.TopicSaleCompleted, ev.EventID.String(), ev.Version, ev); err != nil {
		return fmt.Errorf("publish sale completed: %w", err)
	}
	return nil
}

// SaleRepository implements repositories.SaleRepository.
type SaleRepository struct {
	db *database.Database
}

func NewSaleRepository(db *database.Database) *SaleRepository {
	return &SaleRepository{db: db}
}

func (r *SaleRepository) Find(ctx context.Context, q repositories.SaleQuery) ([]*models.Sale, int, error) {
	var (
		clauses []string
		args    []any
	)
	add := func(clause string, arg any) {
		args = append(args, arg)
		clauses = append(clauses, strings.ReplaceAll(clause, "?", "$"+strconv.Itoa(len(args))))
	}
	if q.BranchID != nil {
		add("branch_id = ?", *q.BranchID)
	}
	if q.CashierID != nil {
		add("cashier_id = ?", *q.CashierID)
	}
	if q.Status != nil {
		add("status = ?", string(*q.Status))
	}
	if q.From != nil {
		add("created_at >= ?", *q.From)
	}
	if q.To != nil {
		add("created_at <= ?", *q.To)
	}
	where := ""
	if len(clauses) > 0 {
		where = " WHERE " + strings.Join(clauses, " AND ")
	}

	var total int
	if err := r.db.DB().QueryRowContext(ctx, `SELECT count(*) FROM sales`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count sales: %w", err)
	}

	n := len(args)
	rows, err := r.db.DB().QueryContext(ctx, `SELECT `+saleColumns+` FROM sales`+where+
		` ORDER BY created_at DESC, id LIMIT $`+strconv.Itoa(n+1)+` OFFSET $`+strconv.Itoa(n+2),
		append(args, q.Limit, q.Offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("query sales: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var (
		sales []*models.Sale
		byID  = map[uuid.UUID]*models.Sale{}
		ids   []uuid.UUID
	)
	for rows.Next() {
		s, err := scanSale(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan sale: %w", err)
		}
		sales = append(sales, s)
		byID[s.ID] = s
		ids = append(ids, s.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("query sales: %w", err)
	}

	if err := r.loadLines(ctx, ids, byID); err != nil {
		return nil, 0, err
	}
	return sales, total, nil
}

func (r *SaleRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Sale, error) {
	s, err := scanSale(r.db.DB().QueryRowContext(ctx, `SELECT `+saleColumns+` FROM sales WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, salesdomain.ErrSaleNotFound
		}
		return nil, fmt.Errorf("query sale: %w", err)
	}
	if err := r.loadLines(ctx, []uuid.UUID{id}, map[uuid.UUID]*models.Sale{id: s}); err != nil {
		return nil, err
	}
	return s, nil
}

func (r *SaleRepository) SumCompleted(ctx context.Context, branch *uuid.UUID, since time.Time) (repositories.Aggregate, error) {
	var branchArg uuid.NullUUID
	if branch != nil {
		branchArg = uuid.NullUUID{UUID: *branch, Valid: true}
	}
	var agg repositories.Aggregate
	err := r.db.DB().QueryRowContext(ctx, `
		SELECT COALESCE(SUM(total), 0), COALESCE(SUM(profit), 0), count(*)
		FROM sales
		WHERE status = 'completed'
		  AND created_at >= $1
		  AND ($2::uuid IS NULL OR branch_id = $2)`, since, branchArg,
	).Scan(&agg.TotalSales, &agg.TotalProfit, &agg.Count)
	if err != nil {
		return repositories.Aggregate{}, fmt.Errorf("sum sales: %w", err)
	}
	return agg, nil
}

func (r *SaleRepository) loadLines(ctx context.Context, ids []uuid.UUID, byID map[uuid.UUID]*models.Sale) error {
	if len(ids) == 0 {
		return nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = id.String()
	}
	rows, err := r.db.DB().QueryContext(ctx, `
		SELECT sale_id, item_id, name, quantity, cost_price, selling_price, subtotal, profit
		FROM sale_lines
		WHERE sale_id = ANY($1::uuid[])
		ORDER BY sale_id, position`, keys)
	if err != nil {
		return fmt.Errorf("query sale lines: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	for rows.Next() {
		var (
			saleID uuid.UUID
			l      models.SaleLine
		)
		if err := rows.Scan(&saleID, &l.ItemID, &l.Name, &l.Quantity, &l.CostPrice, &l.SellingPrice, &l.Subtotal, &l.Profit); err != nil {
			return fmt.Errorf("scan sale line: %w", err)
		}
		if s, ok := byID[saleID]; ok {
			s.Lines = append(s.Lines, l)
		}
	}
	return rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSale(row rowScanner) (*models.Sale, error) {
	var (
		s       models.Sale
		method  string
		status  string
		cust    models.Customer
		branch  uuid.NullUUID
		subtot  decimal.Decimal
	)
	if err := row.Scan(
		&s.ID, &s.InvoiceNumber, &subtot, &s.Totals.Tax, &s.Totals.Discount, &s.Totals.Total, &s.Totals.Profit,
		&method, &s.Payment.AmountPaid, &s.Payment.Change, &cust.Name, &cust.Phone, &cust.Email,
		&s.CashierID, &branch, &status, &s.CreatedAt, &s.UpdatedAt,
	); err != nil {
		return nil, err
	}
	s.Totals.Subtotal = subtot
	s.Payment.Method = models.PaymentMethod(method)
	s.Status = models.Status(status)
	s.BranchID = branch.UUID
	if cust != (models.Customer{}) {
		s.Customer = &cust
	}
	return &s, nil
}

func nullable(id uuid.UUID) uuid.NullUUID {
	return uuid.NullUUID{UUID: id, Valid: id != uuid.Nil}
}
