package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ghuser/branchpos/pkg/auth"
	"github.com/ghuser/branchpos/pkg/lock"
	"github.com/ghuser/branchpos/pkg/logger"
	inventoryrepos "github.com/ghuser/branchpos/services/inventory/domain/repositories"
	salesdomain "github.com/ghuser/branchpos/services/sales/domain"
	"github.com/ghuser/branchpos/services/sales/domain/models"
	"github.com/ghuser/branchpos/services/sales/domain/repositories"
	"github.com/ghuser/branchpos/services/sales/infrastructure/export"
)

const (
	statsLockTTL    = 5 * time.Second
	exportPageLimit = 500
)

// PeriodStats sums the completed sales of one period.
type PeriodStats struct {
	TotalSales  decimal.Decimal `json:"total_sales"`
	TotalProfit decimal.Decimal `json:"total_profit"`
	Count       int             `json:"count"`
}

// SalesStats holds today's, this week's and this month's figures. Day is the
// local date the buckets were computed for.
type SalesStats struct {
	Day   string      `json:"day"`
	Today PeriodStats `json:"today"`
	Week  PeriodStats `json:"week"`
	Month PeriodStats `json:"month"`
}

// StatsCache stores computed stats. *cache.JSONCache satisfies it.
type StatsCache interface {
	Get(ctx context.Context, key string, dst any) error
	Set(ctx context.Context, key string, v any, ttl time.Duration) error
}

// Locker serializes stats recomputation across instances. *lock.Locker
// satisfies it.
type Locker interface {
	Obtain(ctx context.Context, name string, ttl time.Duration) (lock.Release, error)
}

// ReportConfig holds the tunables of ReportService.
type ReportConfig struct {
	Location *time.Location // period boundaries; default UTC
	CacheTTL time.Duration
}

// ReportService answers read-side questions about recorded sales.
type ReportService struct {
	repo   repositories.SaleRepository
	cache  StatsCache
	locker Locker
	cfg    ReportConfig
	log    logger.Logger
	now    func() time.Time
}

// NewReportService returns a ReportService. cache and locker may be nil, in
// which case stats are computed on every call.
func NewReportService(repo repositories.SaleRepository, cache StatsCache, locker Locker, cfg ReportConfig, log logger.Logger) *ReportService {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &ReportService{repo: repo, cache: cache, locker: locker, cfg: cfg, log: log, now: time.Now}
}

// StatsCacheKey is the cache key holding the stats of branch. A nil branch
// is the all-branches view used for owners.
func StatsCacheKey(branch *uuid.UUID) string {
	if branch == nil {
		return "all"
	}
	return branch.String()
}

// Stats returns today/week/month totals of completed sales, restricted to
// the actor's branch unless the actor is an owner.
func (s *ReportService) Stats(ctx context.Context, actor auth.Actor) (*SalesStats, error) {
	branch := actor.BranchScope()
	now := s.now()
	day := now.In(s.cfg.Location).Format(time.DateOnly)
	key := StatsCacheKey(branch)

	if s.cache == nil || s.cfg.CacheTTL <= 0 {
		return s.computeStats(ctx, branch, now)
	}
	if st, ok := s.cached(ctx, key, day); ok {
		return st, nil
	}

	if s.locker != nil {
		release, err := s.locker.Obtain(ctx, "stats:"+key, statsLockTTL)
		switch {
		case errors.Is(err, lock.ErrNotObtained):
			// Another instance is refreshing this key.
			return s.computeStats(ctx, branch, now)
		case err != nil:
			s.log.WarnContext(ctx, "stats lock unavailable", "key", key, "error", err)
			return s.computeStats(ctx, branch, now)
		}
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				s.log.WarnContext(ctx, "stats lock release failed", "key", key, "error", err)
			}
		}()
		if st, ok := s.cached(ctx, key, day); ok {
			return st, nil
		}
	}

	st, err := s.computeStats(ctx, branch, now)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, key, st, s.cfg.CacheTTL); err != nil {
		s.log.WarnContext(ctx, "stats cache write failed", "key", key, "error", err)
	}
	return st, nil
}

// cached returns the stored stats for key when they were computed for day.
func (s *ReportService) cached(ctx context.Context, key, day string) (*SalesStats, bool) {
	var st SalesStats
	if err := s.cache.Get(ctx, key, &st); err != nil {
		return nil, false
	}
	return &st, st.Day == day
}

func (s *ReportService) computeStats(ctx context.Context, branch *uuid.UUID, now time.Time) (*SalesStats, error) {
	day, week, month := PeriodStarts(now, s.cfg.Location)

	st := &SalesStats{Day: day.Format(time.DateOnly)}
	for _, p := range []struct {
		since time.Time
		dst   *PeriodStats
	}{
		{day, &st.Today},
		{week, &st.Week},
		{month, &st.Month},
	} {
		agg, err := s.repo.SumCompleted(ctx, branch, p.since)
		if err != nil {
			return nil, fmt.Errorf("sales stats: %w", err)
		}
		*p.dst = PeriodStats{TotalSales: agg.TotalSales, TotalProfit: agg.TotalProfit, Count: agg.Count}
	}
	return st, nil
}

// PeriodStarts returns local midnight of now's day, of the most recent
// Sunday and of the first of the month, all in loc.
func PeriodStarts(now time.Time, loc *time.Location) (day, week, month time.Time) {
	n := now.In(loc)
	day = time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, loc)
	week = day.AddDate(0, 0, -int(n.Weekday()))
	month = time.Date(n.Year(), n.Month(), 1, 0, 0, 0, 0, loc)
	return day, week, month
}

// List returns sales newest first with the total match count. Non-owners
// only see their own branch.
func (s *ReportService) List(ctx context.Context, actor auth.Actor, q repositories.SaleQuery) ([]*models.Sale, int, error) {
	q.BranchID = actor.BranchScope()
	if q.Limit <= 0 {
		q.QueryOpts = inventoryrepos.NewQueryOpts(1, 0)
	}
	return s.repo.Find(ctx, q)
}

// GetByID returns one sale. Sales outside the actor's branch scope are
// reported as not found.
func (s *ReportService) GetByID(ctx context.Context, actor auth.Actor, id uuid.UUID) (*models.Sale, error) {
	sale, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if scope := actor.BranchScope(); scope != nil && sale.BranchID != *scope {
		return nil, salesdomain.ErrSaleNotFound
	}
	return sale, nil
}

// Export writes every sale matching q as an xlsx workbook to w. Pagination
// fields of q are ignored.
func (s *ReportService) Export(ctx context.Context, actor auth.Actor, q repositories.SaleQuery, w io.Writer) error {
	q.BranchID = actor.BranchScope()
	q.QueryOpts = inventoryrepos.QueryOpts{Limit: exportPageLimit}

	var all []*models.Sale
	for {
		page, total, err := s.repo.Find(ctx, q)
		if err != nil {
			return fmt.Errorf("export sales: %w", err)
		}
		all = append(all, page...)
		q.Offset += len(page)
		if len(page) == 0 || q.Offset >= total {
			break
		}
	}

	s.log.InfoContext(ctx, "exporting sales", "rows", len(all), "user_id", actor.UserID)
	return export.WriteSales(w, all, s.cfg.Location)
}
