package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ghuser/branchpos/services/inventory/domain/models"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
	maxPage          = 1_000_000 // keeps (page-1)*limit far from overflow
)

// QueryOpts contains pagination parameters for list queries.
type QueryOpts struct {
	Limit  int // Maximum number of records to return
	Offset int // Number of records to skip
}

// NewQueryOpts converts 1-based page/limit input into QueryOpts, clamping
// limit to [1, 100] with a default of 20 and page to [1, 1e6].
func NewQueryOpts(page, limit int) QueryOpts {
	if limit <= 0 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	if page < 1 {
		page = 1
	}
	if page > maxPage {
		page = maxPage
	}
	return QueryOpts{Limit: limit, Offset: (page - 1) * limit}
}

// ItemRepository is the persistence interface for the Item aggregate.
// Quantity changes never go through it; see StockWriter.
type ItemRepository interface {
	// Create persists a new Item and, when non-nil, the alert raised for its
	// initial stock, atomically.
	Create(ctx context.Context, item *models.Item, alert *models.Alert) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Item, error)

	// FindLowStock returns active items at or below their threshold.
	// A nil branch returns every branch.
	FindLowStock(ctx context.Context, branch *uuid.UUID) ([]*models.Item, error)

	// UpdatePricing persists the item's prices and derived margin only.
	UpdatePricing(ctx context.Context, item *models.Item) error

	// Deactivate flips IsActive off. Returns ErrItemNotFound for unknown ids.
	Deactivate(ctx context.Context, id uuid.UUID, at time.Time) error
}

// StockWriter is the set of writes available inside a stock unit of work.
// Implementations hold row locks on every item returned by LockItems until
// the unit of work ends.
type StockWriter interface {
	// LockItems locks the given items in ascending id order, ignoring
	// duplicates, and returns the ones that exist keyed by id.
	LockItems(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.Item, error)

	// SaveStock writes the item's quantity, prices and UpdatedAt.
	SaveStock(ctx context.Context, item *models.Item) error

	AppendStockLog(ctx context.Context, entry *models.StockLogEntry) error
	InsertAlert(ctx context.Context, alert *models.Alert) error
}

// StockUnitOfWork runs fn atomically: every write made through w is
// committed when fn returns nil and discarded otherwise.
type StockUnitOfWork interface {
	Do(ctx context.Context, fn func(ctx context.Context, w StockWriter) error) error
}

// StockLogQuery filters the stock ledger. Nil fields are not applied.
type StockLogQuery struct {
	ItemID   *uuid.UUID
	Type     *models.MovementType
	BranchID *uuid.UUID
	From     *time.Time
	To       *time.Time
	QueryOpts
}

// StockLogRepository reads the append-only ledger.
type StockLogRepository interface {
	// Find returns matching entries newest first plus the total match count.
	Find(ctx context.Context, q StockLogQuery) ([]*models.StockLogEntry, int, error)
}

// AlertQuery filters alerts. Nil fields are not applied.
type AlertQuery struct {
	BranchID   *uuid.UUID
	Type       *models.AlertType
	UnreadOnly bool
	Limit      int
}

// AlertRepository reads and maintains alerts.
type AlertRepository interface {
	Find(ctx context.Context, q AlertQuery) ([]*models.Alert, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Alert, error)
	// MarkRead records userID as a reader of the alert.
	MarkRead(ctx context.Context, id, userID uuid.UUID) error
	// DeleteExpired removes alerts whose expiry is at or before now and
	// returns how many were removed.
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}
