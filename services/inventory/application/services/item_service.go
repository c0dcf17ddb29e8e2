package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/ghuser/branchpos/pkg/auth"
	pkgcache "github.com/ghuser/branchpos/pkg/cache"
	"github.com/ghuser/branchpos/pkg/logger"
	inventorydomain "github.com/ghuser/branchpos/services/inventory/domain"
	"github.com/ghuser/branchpos/services/inventory/domain/models"
	"github.com/ghuser/branchpos/services/inventory/domain/repositories"
	domainsvcs "github.com/ghuser/branchpos/services/inventory/domain/services"
)

// CreateItemInput is the application-level input for ItemService.Create.
type CreateItemInput struct {
	Name              string
	SKU               string
	Barcode           string
	CategoryID        uuid.UUID
	CostPrice         decimal.Decimal
	SellingPrice      decimal.Decimal
	Quantity          int
	Unit              string
	LowStockThreshold *int
	ReorderPoint      *int
	BranchID          uuid.UUID
}

// ItemService orchestrates the catalog. Event publishing is handled by the
// repository layer (outbox pattern). Reads are served from Redis when available.
type ItemService struct {
	repo     repositories.ItemRepository
	cache    *pkgcache.ItemCache
	log      logger.Logger
	alertTTL time.Duration
	now      func() time.Time
}

// NewItemService returns an ItemService. itemCache may be nil.
func NewItemService(repo repositories.ItemRepository, itemCache *pkgcache.ItemCache, log logger.Logger, alertTTL time.Duration) *ItemService {
	return &ItemService{repo: repo, cache: itemCache, log: log, alertTTL: alertTTL, now: time.Now}
}

// Create validates and persists an Item. Items created at or below their
// threshold raise a stock alert in the same transaction. Non-owners always
// create items in their own branch.
func (s *ItemService) Create(ctx context.Context, actor auth.Actor, in CreateItemInput) (*models.Item, *models.Alert, error) {
	name, err := models.NewItemName(in.Name)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", inventorydomain.ErrInvalidItem, err)
	}
	sku, err := models.NewSKU(in.SKU)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", inventorydomain.ErrInvalidItem, err)
	}

	branch := in.BranchID
	if !actor.IsOwner() {
		branch = actor.BranchID
	}

	item, err := models.NewItem(models.NewItemParams{
		Name:              name,
		SKU:               sku,
		Barcode:           in.Barcode,
		CategoryID:        in.CategoryID,
		CostPrice:         in.CostPrice,
		SellingPrice:      in.SellingPrice,
		Quantity:          in.Quantity,
		Unit:              in.Unit,
		LowStockThreshold: in.LowStockThreshold,
		ReorderPoint:      in.ReorderPoint,
		BranchID:          branch,
		CreatedBy:         actor.UserID,
		Now:               s.now(),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", inventorydomain.ErrInvalidItem, err)
	}

	if err := domainsvcs.ValidateItemForCreation(item); err != nil {
		return nil, nil, fmt.Errorf("%w: %w", inventorydomain.ErrInvalidItem, err)
	}

	alert := domainsvcs.InitialStockAlert(item, s.alertTTL)
	if err := s.repo.Create(ctx, item, alert); err != nil {
		return nil, nil, fmt.Errorf("save item: %w", err)
	}

	s.log.InfoContext(ctx, "item created", "item_id", item.ID, "sku", item.SKU, "branch_id", item.BranchID)
	return item, alert, nil
}

// GetByID retrieves an Item using a read-through cache pattern:
//  1. Check Redis cache first.
//  2. On cache miss (or cache error), query Postgres.
//  3. Asynchronously warm the cache with the Postgres result.
//
// Items outside the actor's branch are reported as not found.
func (s *ItemService) GetByID(ctx context.Context, actor auth.Actor, id uuid.UUID) (*models.Item, error) {
	scope := actor.BranchScope()

	if s.cache != nil {
		cached, err := s.cache.Get(ctx, id)
		switch {
		case err == nil:
			item := fromCached(cached)
			if !item.VisibleTo(scope) {
				return nil, inventorydomain.ErrItemNotFound
			}
			return item, nil
		case !errors.Is(err, redis.Nil):
			s.log.WarnContext(ctx, "item cache read failed", "item_id", id, "error", err)
		}
	}

	item, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}

	if s.cache != nil {
		go func() {
			_ = s.cache.Set(context.Background(), toCached(item))
		}()
	}

	if !item.VisibleTo(scope) {
		return nil, inventorydomain.ErrItemNotFound
	}
	return item, nil
}

// ListLowStock returns active items at or below their threshold within the
// actor's branch scope.
func (s *ItemService) ListLowStock(ctx context.Context, actor auth.Actor) ([]*models.Item, error) {
	items, err := s.repo.FindLowStock(ctx, actor.BranchScope())
	if err != nil {
		return nil, fmt.Errorf("list low stock: %w", err)
	}
	return items, nil
}

// UpdatePricing replaces both prices and recomputes the margin.
func (s *ItemService) UpdatePricing(ctx context.Context, actor auth.Actor, id uuid.UUID, cost, selling decimal.Decimal) (*models.Item, error) {
	item, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	if !item.VisibleTo(actor.BranchScope()) {
		return nil, inventorydomain.ErrItemNotFound
	}
	if err := item.SetPricing(cost, selling, s.now()); err != nil {
		return nil, fmt.Errorf("%w: %w", inventorydomain.ErrInvalidItem, err)
	}
	if err := s.repo.UpdatePricing(ctx, item); err != nil {
		return nil, fmt.Errorf("update pricing: %w", err)
	}
	s.evict(ctx, id)
	return item, nil
}

// Deactivate soft-deletes an item: it stays in the ledger and in past sales
// but can no longer be sold.
func (s *ItemService) Deactivate(ctx context.Context, actor auth.Actor, id uuid.UUID) error {
	item, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get item: %w", err)
	}
	if !item.VisibleTo(actor.BranchScope()) {
		return inventorydomain.ErrItemNotFound
	}
	if err := s.repo.Deactivate(ctx, id, s.now()); err != nil {
		return fmt.Errorf("deactivate item: %w", err)
	}
	s.evict(ctx, id)
	s.log.InfoContext(ctx, "item deactivated", "item_id", id, "user_id", actor.UserID)
	return nil
}

func (s *ItemService) evict(ctx context.Context, id uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(context.WithoutCancel(ctx), id); err != nil {
		s.log.WarnContext(ctx, "item cache evict failed", "item_id", id, "error", err)
	}
}

func toCached(item *models.Item) *pkgcache.CachedItem {
	return &pkgcache.CachedItem{
		ID:                item.ID,
		BranchID:          item.BranchID,
		Name:              item.Name.String(),
		SKU:               item.SKU.String(),
		Barcode:           item.Barcode,
		CategoryID:        item.CategoryID,
		Unit:              item.Stock.Unit,
		CostPrice:         item.Pricing.CostPrice,
		SellingPrice:      item.Pricing.SellingPrice,
		Quantity:          item.Stock.Quantity,
		LowStockThreshold: item.Stock.LowStockThreshold,
		ReorderPoint:      item.Stock.ReorderPoint,
		IsActive:          item.IsActive,
		CreatedBy:         item.CreatedBy,
		CreatedAt:         item.CreatedAt,
		UpdatedAt:         item.UpdatedAt,
	}
}

func fromCached(c *pkgcache.CachedItem) *models.Item {
	pricing, _ := models.NewPricing(c.CostPrice, c.SellingPrice)
	return &models.Item{
		ID:         c.ID,
		BranchID:   c.BranchID,
		Name:       models.ItemName(c.Name),
		SKU:        models.SKU(c.SKU),
		Barcode:    c.Barcode,
		CategoryID: c.CategoryID,
		Pricing:    pricing,
		Stock: models.Stock{
			Quantity:          c.Quantity,
			Unit:              c.Unit,
			LowStockThreshold: c.LowStockThreshold,
			ReorderPoint:      c.ReorderPoint,
		},
		IsActive:  c.IsActive,
		CreatedBy: c.CreatedBy,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}
