package services

import (
	"fmt"

	"github.com/ghuser/branchpos/pkg/app"
	"github.com/ghuser/branchpos/pkg/cache"
	"github.com/ghuser/branchpos/pkg/lock"
	"github.com/ghuser/branchpos/services/sales/domain/models"
	"github.com/ghuser/branchpos/services/sales/infrastructure/persistence/postgres"
)

// StatsCachePrefix namespaces the Redis keys holding sales stats.
const StatsCachePrefix = "stats"

// Services is the application-layer service container for the sales context.
type Services struct {
	Processor *SaleProcessor
	Reports   *ReportService
}

// New wires the sales services with Postgres repositories. Stats caching
// and its recompute lock are enabled when Redis is configured.
func New(a *app.Application) (*Services, error) {
	loc, err := a.Config.Location()
	if err != nil {
		return nil, err
	}
	log := a.Logger.With("context", "sales")

	processor, err := NewSaleProcessor(postgres.NewUnitOfWork(a.Db, a.EventBus), ProcessorConfig{
		Timeout:            a.Config.SaleTimeout,
		AlertTTL:           a.Config.AlertRetention,
		PhoneDefaultRegion: a.Config.PhoneDefaultRegion,
		Invoices:           models.NewInvoiceGenerator(a.Config.InvoicePrefix, loc),
	}, log)
	if err != nil {
		return nil, fmt.Errorf("sale processor: %w", err)
	}

	var (
		statsCache StatsCache
		locker     Locker
	)
	if a.Redis != nil {
		statsCache = cache.NewJSONCache(a.Redis, StatsCachePrefix)
		locker = lock.NewLocker(a.Redis)
	}
	reports := NewReportService(postgres.NewSaleRepository(a.Db), statsCache, locker, ReportConfig{
		Location: loc,
		CacheTTL: a.Config.StatsCacheTTL,
	}, log)

	return &Services{Processor: processor, Reports: reports}, nil
}
