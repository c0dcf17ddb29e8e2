package services

import (
	"github.com/ghuser/branchpos/pkg/app"
	"github.com/ghuser/branchpos/pkg/cache"
	"github.com/ghuser/branchpos/services/inventory/infrastructure/persistence/postgres"
)

// Services is the application-layer service container for the inventory context.
type Services struct {
	Items  *ItemService
	Stock  *StockService
	Alerts *AlertService
}

// New wires the inventory services with Postgres repositories and, when
// Redis is configured, the item read cache.
func New(a *app.Application) *Services {
	var itemCache *cache.ItemCache
	if a.Redis != nil {
		itemCache = cache.NewItemCache(a.Redis)
	}
	ttl := a.Config.AlertRetention
	log := a.Logger.With("context", "inventory")

	return &Services{
		Items:  NewItemService(postgres.NewItemRepository(a.Db, a.EventBus), itemCache, log, ttl),
		Stock:  NewStockService(postgres.NewStockUnitOfWork(a.Db, a.EventBus), postgres.NewStockLogRepository(a.Db), log, ttl),
		Alerts: NewAlertService(postgres.NewAlertRepository(a.Db), log),
	}
}
