// Package memory provides an in-process inventory store for tests and local
// development. Units of work are serialized under one mutex and rolled back
// by restoring a snapshot, which gives serializable isolation.
package memory

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	inventorydomain "github.com/ghuser/branchpos/services/inventory/domain"
	"github.com/ghuser/branchpos/services/inventory/domain/models"
	"github.com/ghuser/branchpos/services/inventory/domain/repositories"
)

// Fault-injection points checked by Tx writes.
const (
	OpLockItems   = "lock_items"
	OpSaveStock   = "save_stock"
	OpAppendLog   = "append_log"
	OpInsertAlert = "insert_alert"
)

// Store implements the inventory repositories and StockUnitOfWork in memory.
type Store struct {
	mu     sync.Mutex
	items  map[uuid.UUID]models.Item
	logs   []models.StockLogEntry
	alerts []models.Alert
	faults map[string]error
}

func NewStore() *Store {
	return &Store{
		items:  make(map[uuid.UUID]models.Item),
		faults: make(map[string]error),
	}
}

// Seed stores items as-is. Intended for tests and fixtures.
func (s *Store) Seed(items ...*models.Item) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, it := range items {
		s.items[it.ID] = *it
	}
}

// FailOn makes the next write at op return err inside a unit of work.
// Pass a nil err to clear it.
func (s *Store) FailOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.faults, op)
		return
	}
	s.faults[op] = err
}

// =============================================================================
// UNIT OF WORK
// =============================================================================

type snapshot struct {
	items   map[uuid.UUID]models.Item
	logsLen int
	alerts  []models.Alert
}

func (s *Store) snapshot() snapshot {
	items := make(map[uuid.UUID]models.Item, len(s.items))
	for k, v := range s.items {
		items[k] = v
	}
	alerts := make([]models.Alert, len(s.alerts))
	for i, a := range s.alerts {
		a.ReadBy = slices.Clone(a.ReadBy)
		alerts[i] = a
	}
	return snapshot{items: items, logsLen: len(s.logs), alerts: alerts}
}

func (s *Store) restore(snap snapshot) {
	s.items = snap.items
	s.logs = s.logs[:snap.logsLen]
	s.alerts = snap.alerts
}

// Tx is the transactional view handed to unit-of-work callbacks.
type Tx struct {
	store    *Store
	onCommit []func()
}

// OnCommit registers fn to run once the unit of work has committed, still
// under the store lock. Stores layered on top of this one buffer their
// writes and publish them here, so nothing is visible before commit.
func (t *Tx) OnCommit(fn func()) {
	t.onCommit = append(t.onCommit, fn)
}

// Fault returns the injected error for op, consuming it.
func (t *Tx) Fault(op string) error {
	err, ok := t.store.faults[op]
	if !ok {
		return nil
	}
	delete(t.store.faults, op)
	return err
}

// RunInTx runs fn with exclusive access to the store. If fn fails, or ctx
// is done by the time fn returns, every write is undone.
func (s *Store) RunInTx(ctx context.Context, fn func(tx *Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.snapshot()
	tx := &Tx{store: s}

	err := fn(tx)
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		s.restore(snap)
		return err
	}
	for _, fn := range tx.onCommit {
		fn()
	}
	return nil
}

// Do implements repositories.StockUnitOfWork.
func (s *Store) Do(ctx context.Context, fn func(ctx context.Context, w repositories.StockWriter) error) error {
	return s.RunInTx(ctx, func(tx *Tx) error {
		return fn(ctx, tx)
	})
}

func (t *Tx) LockItems(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.Item, error) {
	if err := t.Fault(OpLockItems); err != nil {
		return nil, err
	}
	out := make(map[uuid.UUID]*models.Item, len(ids))
	for _, id := range ids {
		if it, ok := t.store.items[id]; ok {
			out[id] = &it
		}
	}
	return out, nil
}

func (t *Tx) SaveStock(_ context.Context, item *models.Item) error {
	if err := t.Fault(OpSaveStock); err != nil {
		return err
	}
	cur, ok := t.store.items[item.ID]
	if !ok {
		return inventorydomain.ErrItemNotFound
	}
	cur.Stock.Quantity = item.Stock.Quantity
	cur.Pricing = item.Pricing
	cur.UpdatedAt = item.UpdatedAt
	t.store.items[item.ID] = cur
	return nil
}

func (t *Tx) AppendStockLog(_ context.Context, entry *models.StockLogEntry) error {
	if err := t.Fault(OpAppendLog); err != nil {
		return err
	}
	t.store.logs = append(t.store.logs, *entry)
	return nil
}

func (t *Tx) InsertAlert(_ context.Context, alert *models.Alert) error {
	if err := t.Fault(OpInsertAlert); err != nil {
		return err
	}
	a := *alert
	a.ReadBy = slices.Clone(alert.ReadBy)
	t.store.alerts = append(t.store.alerts, a)
	return nil
}

// =============================================================================
// ITEMS
// =============================================================================

func (s *Store) Create(ctx context.Context, item *models.Item, alert *models.Alert) error {
	return s.RunInTx(ctx, func(tx *Tx) error {
		for _, it := range s.items {
			if it.SKU == item.SKU {
				return inventorydomain.ErrItemAlreadyExists
			}
		}
		s.items[item.ID] = *item
		if alert != nil {
			return tx.InsertAlert(ctx, alert)
		}
		return nil
	})
}

func (s *Store) GetByID(_ context.Context, id uuid.UUID) (*models.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[id]
	if !ok {
		return nil, inventorydomain.ErrItemNotFound
	}
	return &it, nil
}

func (s *Store) FindLowStock(_ context.Context, branch *uuid.UUID) ([]*models.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Item
	for _, it := range s.items {
		if !it.IsActive || !it.IsLowStock() {
			continue
		}
		if !it.VisibleTo(branch) {
			continue
		}
		out = append(out, &it)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Stock.Quantity != out[j].Stock.Quantity {
			return out[i].Stock.Quantity < out[j].Stock.Quantity
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (s *Store) UpdatePricing(_ context.Context, item *models.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.items[item.ID]
	if !ok {
		return inventorydomain.ErrItemNotFound
	}
	cur.Pricing = item.Pricing
	cur.UpdatedAt = item.UpdatedAt
	s.items[item.ID] = cur
	return nil
}

func (s *Store) Deactivate(_ context.Context, id uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.items[id]
	if !ok {
		return inventorydomain.ErrItemNotFound
	}
	cur.Deactivate(at)
	s.items[id] = cur
	return nil
}

// =============================================================================
// STOCK LOGS
// =============================================================================

// StockLogs is the read side of the ledger. It shares the Store's data.
type StockLogs struct{ *Store }

func (l StockLogs) Find(_ context.Context, q repositories.StockLogQuery) ([]*models.StockLogEntry, int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var matched []*models.StockLogEntry
	for i := len(l.logs) - 1; i >= 0; i-- {
		e := l.logs[i]
		if q.ItemID != nil && e.ItemID != *q.ItemID {
			continue
		}
		if q.Type != nil && e.Type != *q.Type {
			continue
		}
		if q.BranchID != nil && e.BranchID != *q.BranchID {
			continue
		}
		if q.From != nil && e.CreatedAt.Before(*q.From) {
			continue
		}
		if q.To != nil && e.CreatedAt.After(*q.To) {
			continue
		}
		matched = append(matched, &e)
	}
	return paginate(matched, q.QueryOpts), len(matched), nil
}

func paginate[T any](all []T, opts repositories.QueryOpts) []T {
	opts.Offset = max(opts.Offset, 0)
	if opts.Offset >= len(all) {
		return nil
	}
	end := len(all)
	if opts.Limit > 0 && opts.Offset+opts.Limit < end {
		end = opts.Offset + opts.Limit
	}
	return all[opts.Offset:end]
}

// =============================================================================
// ALERTS
// =============================================================================

// Alerts is the alert repository view over the Store.
type Alerts struct{ *Store }

func (a Alerts) Find(_ context.Context, q repositories.AlertQuery) ([]*models.Alert, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	var out []*models.Alert
	for i := len(a.alerts) - 1; i >= 0; i-- {
		al := a.alerts[i]
		if q.BranchID != nil && al.BranchID != *q.BranchID {
			continue
		}
		if q.Type != nil && al.Type != *q.Type {
			continue
		}
		if q.UnreadOnly && al.IsRead {
			continue
		}
		al.ReadBy = slices.Clone(al.ReadBy)
		out = append(out, &al)
		if q.Limit > 0 && len(out) == q.Limit {
			break
		}
	}
	return out, nil
}

func (a Alerts) GetByID(_ context.Context, id uuid.UUID) (*models.Alert, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, al := range a.alerts {
		if al.ID == id {
			al.ReadBy = slices.Clone(al.ReadBy)
			return &al, nil
		}
	}
	return nil, inventorydomain.ErrAlertNotFound
}

func (a Alerts) MarkRead(_ context.Context, id, userID uuid.UUID) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	for i := range a.alerts {
		if a.alerts[i].ID == id {
			a.alerts[i].MarkRead(userID)
			return nil
		}
	}
	return inventorydomain.ErrAlertNotFound
}

func (a Alerts) DeleteExpired(_ context.Context, now time.Time) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	kept := a.alerts[:0]
	removed := 0
	for _, al := range a.alerts {
		if al.Expired(now) {
			removed++
			continue
		}
		kept = append(kept, al)
	}
	a.alerts = kept
	return removed, nil
}
