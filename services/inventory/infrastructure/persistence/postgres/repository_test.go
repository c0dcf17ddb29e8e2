package postgres

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ghuser/branchpos/pkg/config"
	"github.com/ghuser/branchpos/pkg/database"
	"github.com/ghuser/branchpos/pkg/logger"
	"github.com/ghuser/branchpos/pkg/migrator"
	inventorydomain "github.com/ghuser/branchpos/services/inventory/domain"
	"github.com/ghuser/branchpos/services/inventory/domain/models"
	"github.com/ghuser/branchpos/services/inventory/domain/repositories"
	domainsvcs "github.com/ghuser/branchpos/services/inventory/domain/services"
)

func TestWhere(t *testing.T) {
	var w where
	if got := w.String(); got != "" {
		t.Fatalf("empty where = %q", got)
	}
	w.add("a = ?", 1)
	w.add("b >= ?", 2)
	if got, want := w.String(), " WHERE a = $1 AND b >= $2"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
	if len(w.args) != 2 {
		t.Fatalf("args = %v", w.args)
	}
}

func TestNullable(t *testing.T) {
	if nullable(uuid.Nil).Valid {
		t.Fatal("uuid.Nil must map to NULL")
	}
	id := uuid.New()
	if n := nullable(id); !n.Valid || n.UUID != id {
		t.Fatalf("got %+v", n)
	}
}

// Integration tests: skipped unless DATABASE_URL is set.
func TestRepositoriesIntegration(t *testing.T) {
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL not set; skipping integration tests")
	}
	if err := migrator.RunMigrations(url, os.DirFS("../../../../../migrations/pos")); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	ctx := context.Background()
	log := logger.New(&config.Config{LogLevel: "error"})
	db, err := database.NewPool(ctx, url, log)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer db.Close() //nolint:errcheck

	items := NewItemRepository(db, nil)
	uow := NewStockUnitOfWork(db, nil)
	logs := NewStockLogRepository(db)
	alerts := NewAlertRepository(db)

	branch := uuid.New()
	th, rp := 10, 5
	item, err := models.NewItem(models.NewItemParams{
		Name:              "Integration Milk",
		SKU:               models.SKU("IT-" + uuid.NewString()[:8]),
		CostPrice:         decimal.RequireFromString("40.00"),
		SellingPrice:      decimal.RequireFromString("52.50"),
		Quantity:          12,
		LowStockThreshold: &th,
		ReorderPoint:      &rp,
		BranchID:          branch,
		CreatedBy:         uuid.New(),
	})
	if err != nil {
		t.Fatalf("new item: %v", err)
	}

	t.Run("create and get", func(t *testing.T) {
		if err := items.Create(ctx, item, nil); err != nil {
			t.Fatalf("create: %v", err)
		}
		if err := items.Create(ctx, item, nil); !errors.Is(err, inventorydomain.ErrItemAlreadyExists) {
			t.Fatalf("duplicate create: %v", err)
		}
		got, err := items.GetByID(ctx, item.ID)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if !got.Pricing.SellingPrice.Equal(item.Pricing.SellingPrice) || got.BranchID != branch {
			t.Fatalf("got %+v", got)
		}
	})

	t.Run("stock change writes ledger and alert atomically", func(t *testing.T) {
		user := uuid.New()
		err := uow.Do(ctx, func(ctx context.Context, w repositories.StockWriter) error {
			locked, err := w.LockItems(ctx, []uuid.UUID{item.ID, item.ID})
			if err != nil {
				return err
			}
			it := locked[item.ID]
			res, err := domainsvcs.ApplyStockChange(it, domainsvcs.StockChange{
				Type: models.MovementSale, Delta: -3, PerformedBy: user, Reference: "INV-TEST", At: time.Now(), AlertTTL: time.Hour,
			})
			if err != nil {
				return err
			}
			if err := w.SaveStock(ctx, it); err != nil {
				return err
			}
			if err := w.AppendStockLog(ctx, res.Entry); err != nil {
				return err
			}
			if res.Alert == nil {
				return errors.New("expected threshold alert")
			}
			return w.InsertAlert(ctx, res.Alert)
		})
		if err != nil {
			t.Fatalf("unit of work: %v", err)
		}

		entries, total, err := logs.Find(ctx, repositories.StockLogQuery{ItemID: &item.ID, QueryOpts: repositories.NewQueryOpts(1, 10)})
		if err != nil || total != 1 || entries[0].NewQuantity != 9 || entries[0].Reference != "INV-TEST" {
			t.Fatalf("logs: %v %d %+v", err, total, entries)
		}

		found, err := alerts.Find(ctx, repositories.AlertQuery{BranchID: &branch, UnreadOnly: true})
		if err != nil || len(found) != 1 {
			t.Fatalf("alerts: %v %d", err, len(found))
		}
		if err := alerts.MarkRead(ctx, found[0].ID, user); err != nil {
			t.Fatalf("mark read: %v", err)
		}
		if err := alerts.MarkRead(ctx, found[0].ID, user); err != nil {
			t.Fatalf("mark read twice: %v", err)
		}
		a, err := alerts.GetByID(ctx, found[0].ID)
		if err != nil || !a.IsRead || len(a.ReadBy) != 1 {
			t.Fatalf("alert after read: %v %+v", err, a)
		}
	})

	t.Run("failed unit of work leaves stock untouched", func(t *testing.T) {
		boom := errors.New("boom")
		err := uow.Do(ctx, func(ctx context.Context, w repositories.StockWriter) error {
			locked, err := w.LockItems(ctx, []uuid.UUID{item.ID})
			if err != nil {
				return err
			}
			it := locked[item.ID]
			it.Stock.Quantity = 0
			if err := w.SaveStock(ctx, it); err != nil {
				return err
			}
			return boom
		})
		if !errors.Is(err, boom) {
			t.Fatalf("got %v", err)
		}
		got, err := items.GetByID(ctx, item.ID)
		if err != nil || got.Stock.Quantity != 9 {
			t.Fatalf("quantity after rollback: %v %+v", err, got)
		}
	})
}
