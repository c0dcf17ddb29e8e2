// Package memory keeps sales in process, sharing units of work with the
// inventory memory store so sale inserts commit or roll back together with
// the stock writes.
package memory

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	inventorymemory "github.com/ghuser/branchpos/services/inventory/infrastructure/persistence/memory"
	salesdomain "github.com/ghuser/branchpos/services/sales/domain"
	"github.com/ghuser/branchpos/services/sales/domain/models"
	"github.com/ghuser/branchpos/services/sales/domain/repositories"
)

// OpInsertSale is the fault-injection point checked by InsertSale.
// Arm it with Store.FailOn.
const OpInsertSale = "insert_sale"

// Store implements repositories.UnitOfWork and repositories.SaleRepository.
type Store struct {
	inv   *inventorymemory.Store
	mu    sync.RWMutex
	sales []models.Sale
}

func NewStore(inv *inventorymemory.Store) *Store {
	return &Store{inv: inv}
}

// FailOn arms a fault on the shared inventory store. See inventorymemory.Store.FailOn.
func (s *Store) FailOn(op string, err error) {
	s.inv.FailOn(op, err)
}

// Seed stores sales as-is. Intended for tests and fixtures.
func (s *Store) Seed(sales ...*models.Sale) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sale := range sales {
		s.sales = append(s.sales, clone(sale))
	}
}

type saleTx struct {
	*inventorymemory.Tx
	store   *Store
	pending []models.Sale
}

// Do runs fn inside an inventory memory transaction. Sales inserted by fn
// become visible to readers only once the transaction commits.
func (s *Store) Do(ctx context.Context, fn func(ctx context.Context, tx repositories.SaleTx) error) error {
	return s.inv.RunInTx(ctx, func(tx *inventorymemory.Tx) error {
		st := &saleTx{Tx: tx, store: s}
		tx.OnCommit(st.publish)
		return fn(ctx, st)
	})
}

func (t *saleTx) InsertSale(_ context.Context, sale *models.Sale) error {
	if err := t.Fault(OpInsertSale); err != nil {
		return err
	}
	if t.store.invoiceTaken(sale.InvoiceNumber) || slices.ContainsFunc(t.pending, func(p models.Sale) bool {
		return p.InvoiceNumber == sale.InvoiceNumber
	}) {
		return salesdomain.ErrInvoiceConflict
	}
	t.pending = append(t.pending, clone(sale))
	return nil
}

func (t *saleTx) publish() {
	if len(t.pending) == 0 {
		return
	}
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	t.store.sales = append(t.store.sales, t.pending...)
}

func (s *Store) invoiceTaken(invoice string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.ContainsFunc(s.sales, func(sale models.Sale) bool { return sale.InvoiceNumber == invoice })
}

func (s *Store) Find(_ context.Context, q repositories.SaleQuery) ([]*models.Sale, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*models.Sale
	for i := range s.sales {
		sale := &s.sales[i]
		if q.BranchID != nil && sale.BranchID != *q.BranchID {
			continue
		}
		if q.CashierID != nil && sale.CashierID != *q.CashierID {
			continue
		}
		if q.Status != nil && sale.Status != *q.Status {
			continue
		}
		if q.From != nil && sale.CreatedAt.Before(*q.From) {
			continue
		}
		if q.To != nil && sale.CreatedAt.After(*q.To) {
			continue
		}
		c := clone(sale)
		matched = append(matched, &c)
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	q.Offset = max(q.Offset, 0)
	if q.Offset >= total {
		return nil, total, nil
	}
	end := total
	if q.Limit > 0 && q.Offset+q.Limit < end {
		end = q.Offset + q.Limit
	}
	return matched[q.Offset:end], total, nil
}

func (s *Store) GetByID(_ context.Context, id uuid.UUID) (*models.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.sales {
		if s.sales[i].ID == id {
			c := clone(&s.sales[i])
			return &c, nil
		}
	}
	return nil, salesdomain.ErrSaleNotFound
}

func (s *Store) SumCompleted(_ context.Context, branch *uuid.UUID, since time.Time) (repositories.Aggregate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	agg := repositories.Aggregate{TotalSales: decimal.Zero, TotalProfit: decimal.Zero}
	for _, sale := range s.sales {
		if sale.Status != models.StatusCompleted || sale.CreatedAt.Before(since) {
			continue
		}
		if branch != nil && sale.BranchID != *branch {
			continue
		}
		agg.TotalSales = agg.TotalSales.Add(sale.Totals.Total)
		agg.TotalProfit = agg.TotalProfit.Add(sale.Totals.Profit)
		agg.Count++
	}
	return agg, nil
}

func clone(s *models.Sale) models.Sale {
	c := *s
	c.Lines = slices.Clone(s.Lines)
	if s.Customer != nil {
		cust := *s.Customer
		c.Customer = &cust
	}
	return c
}
