package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ghuser/branchpos/pkg/auth"
	"github.com/ghuser/branchpos/pkg/config"
	"github.com/ghuser/branchpos/pkg/logger"
	inventorydomain "github.com/ghuser/branchpos/services/inventory/domain"
	inventorymodels "github.com/ghuser/branchpos/services/inventory/domain/models"
	inventoryrepos "github.com/ghuser/branchpos/services/inventory/domain/repositories"
	inventorymemory "github.com/ghuser/branchpos/services/inventory/infrastructure/persistence/memory"
	salesdomain "github.com/ghuser/branchpos/services/sales/domain"
	"github.com/ghuser/branchpos/services/sales/domain/models"
	"github.com/ghuser/branchpos/services/sales/domain/repositories"
	salesmemory "github.com/ghuser/branchpos/services/sales/infrastructure/persistence/memory"
)

var (
	branchA = uuid.MustParse("00000000-0000-0000-0000-00000000000a")
	branchB = uuid.MustParse("00000000-0000-0000-0000-00000000000b")
	owner   = auth.Actor{UserID: uuid.New(), Role: auth.RoleOwner}
	cashier = auth.Actor{UserID: uuid.New(), Role: auth.RoleCashier, BranchID: branchA}
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type fixedInvoices struct{ number string }

func (f fixedInvoices) Next(time.Time) string { return f.number }

type fixture struct {
	inv       *inventorymemory.Store
	sales     *salesmemory.Store
	processor *SaleProcessor
}

func newFixture(t *testing.T, cfg ProcessorConfig) *fixture {
	t.Helper()
	inv := inventorymemory.NewStore()
	sales := salesmemory.NewStore(inv)
	p, err := NewSaleProcessor(sales, cfg, logger.New(&config.Config{LogLevel: "error"}))
	require.NoError(t, err)
	return &fixture{inv: inv, sales: sales, processor: p}
}

func (f *fixture) seed(t *testing.T, name string, qty, threshold int, cost, selling string) *inventorymodels.Item {
	t.Helper()
	th, rp := threshold, 0
	item, err := inventorymodels.NewItem(inventorymodels.NewItemParams{
		Name:              inventorymodels.ItemName(name),
		SKU:               inventorymodels.SKU("SKU-" + uuid.NewString()[:8]),
		CostPrice:         dec(cost),
		SellingPrice:      dec(selling),
		Quantity:          qty,
		LowStockThreshold: &th,
		ReorderPoint:      &rp,
		BranchID:          branchA,
		CreatedBy:         owner.UserID,
	})
	require.NoError(t, err)
	f.inv.Seed(item)
	return item
}

func (f *fixture) quantity(t *testing.T, id uuid.UUID) int {
	t.Helper()
	item, err := f.inv.GetByID(context.Background(), id)
	require.NoError(t, err)
	return item.Stock.Quantity
}

func (f *fixture) ledger(t *testing.T) []*inventorymodels.StockLogEntry {
	t.Helper()
	logs, _, err := inventorymemory.StockLogs{Store: f.inv}.Find(context.Background(),
		inventoryrepos.StockLogQuery{QueryOpts: inventoryrepos.QueryOpts{Limit: 100}})
	require.NoError(t, err)
	return logs
}

func (f *fixture) alerts(t *testing.T) []*inventorymodels.Alert {
	t.Helper()
	alerts, err := inventorymemory.Alerts{Store: f.inv}.Find(context.Background(), inventoryrepos.AlertQuery{Limit: 100})
	require.NoError(t, err)
	return alerts
}

func (f *fixture) saleCount(t *testing.T) int {
	t.Helper()
	_, total, err := f.sales.Find(context.Background(), repositories.SaleQuery{})
	require.NoError(t, err)
	return total
}

func TestProcess_TotalsAndLedger(t *testing.T) {
	f := newFixture(t, ProcessorConfig{})
	rice := f.seed(t, "Rice", 10, 5, "40", "50")
	milk := f.seed(t, "Milk", 1, 5, "20", "25")

	sale, err := f.processor.Process(context.Background(), SaleRequest{
		Lines: []SaleLineRequest{
			{ItemID: rice.ID, Quantity: 3},
			{ItemID: milk.ID, Quantity: 1},
		},
		PaymentMethod: "cash",
		AmountPaid:    dec("200"),
		Tax:           dec("8.75"),
		Discount:      dec("3.75"),
	}, cashier)
	require.NoError(t, err)

	assert.Equal(t, models.StatusCompleted, sale.Status)
	assert.Equal(t, branchA, sale.BranchID)
	assert.Equal(t, cashier.UserID, sale.CashierID)
	assert.True(t, sale.Totals.Subtotal.Equal(dec("175")), sale.Totals.Subtotal.String())
	assert.True(t, sale.Totals.Profit.Equal(dec("35")), sale.Totals.Profit.String())
	assert.True(t, sale.Totals.Total.Equal(dec("180")), sale.Totals.Total.String())
	assert.True(t, sale.Payment.Change.Equal(dec("20")), sale.Payment.Change.String())
	require.Len(t, sale.Lines, 2)
	assert.Equal(t, "Rice", sale.Lines[0].Name)
	assert.True(t, sale.Lines[0].SellingPrice.Equal(dec("50")))

	assert.Equal(t, 7, f.quantity(t, rice.ID))
	assert.Equal(t, 0, f.quantity(t, milk.ID))

	logs := f.ledger(t)
	require.Len(t, logs, 2)
	for _, e := range logs {
		assert.Equal(t, inventorymodels.MovementSale, e.Type)
		assert.Equal(t, sale.InvoiceNumber, e.Reference)
		assert.Equal(t, e.PreviousQuantity+e.Quantity, e.NewQuantity)
	}

	// Rice went 10 -> 7 and stays above its threshold of 5; milk ran out.
	alerts := f.alerts(t)
	require.Len(t, alerts, 1)
	assert.Equal(t, milk.ID, alerts[0].ItemID)
	assert.Equal(t, inventorymodels.AlertOutOfStock, alerts[0].Type)
	assert.Equal(t, inventorymodels.SeverityCritical, alerts[0].Severity)
	assert.Equal(t, "Out of Stock: Milk", alerts[0].Title)

	stored, err := f.sales.GetByID(context.Background(), sale.ID)
	require.NoError(t, err)
	assert.Equal(t, sale.InvoiceNumber, stored.InvoiceNumber)
}

func TestProcess_LowStockAlertIsEdgeTriggered(t *testing.T) {
	f := newFixture(t, ProcessorConfig{AlertTTL: time.Hour})
	item := f.seed(t, "Bread", 10, 7, "20", "30")

	sell := func(qty int) {
		_, err := f.processor.Process(context.Background(), SaleRequest{
			Lines:         []SaleLineRequest{{ItemID: item.ID, Quantity: qty}},
			PaymentMethod: "cash",
		}, cashier)
		require.NoError(t, err)
	}

	sell(3) // 10 -> 7 crosses the threshold
	alerts := f.alerts(t)
	require.Len(t, alerts, 1)
	assert.Equal(t, inventorymodels.AlertLowStock, alerts[0].Type)
	assert.Equal(t, inventorymodels.SeverityWarning, alerts[0].Severity)
	assert.Equal(t, "Bread now has 7 pcs remaining", alerts[0].Message)
	require.NotNil(t, alerts[0].ExpiresAt)

	sell(2) // 7 -> 5 was already low
	assert.Len(t, f.alerts(t), 1)
}

func TestProcess_SaleStartingAtThresholdRaisesNoAlert(t *testing.T) {
	f := newFixture(t, ProcessorConfig{AlertTTL: time.Hour})
	item := f.seed(t, "Eggs", 10, 10, "5", "8")

	_, err := f.processor.Process(context.Background(), SaleRequest{
		Lines:         []SaleLineRequest{{ItemID: item.ID, Quantity: 3}},
		PaymentMethod: "cash",
	}, cashier)
	require.NoError(t, err)

	assert.Equal(t, 7, f.quantity(t, item.ID))
	assert.Len(t, f.ledger(t), 1)
	assert.Empty(t, f.alerts(t), "stock already at the threshold was low before the sale")
}

func TestProcess_RepeatedItemAccumulates(t *testing.T) {
	f := newFixture(t, ProcessorConfig{})
	item := f.seed(t, "Eggs", 5, 1, "5", "6")

	_, err := f.processor.Process(context.Background(), SaleRequest{
		Lines: []SaleLineRequest{
			{ItemID: item.ID, Quantity: 3},
			{ItemID: item.ID, Quantity: 3},
		},
		PaymentMethod: "cash",
	}, cashier)

	var stockErr *inventorydomain.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, 2, stockErr.Available)
	assert.Equal(t, 3, stockErr.Requested)
	assert.Equal(t, 5, f.quantity(t, item.ID))
	assert.Empty(t, f.ledger(t))
}

func TestProcess_AtomicOnFailure(t *testing.T) {
	tests := []struct {
		name  string
		setup func(f *fixture) []SaleLineRequest
		check func(t *testing.T, err error)
	}{
		{
			name: "unknown item on a later line",
			setup: func(f *fixture) []SaleLineRequest {
				return []SaleLineRequest{{ItemID: f.seedQuiet("Tea", 10).ID, Quantity: 2}, {ItemID: uuid.New(), Quantity: 1}}
			},
			check: func(t *testing.T, err error) {
				var itemErr *inventorydomain.ItemError
				require.ErrorAs(t, err, &itemErr)
				assert.ErrorIs(t, err, inventorydomain.ErrItemNotFound)
			},
		},
		{
			name: "inactive item",
			setup: func(f *fixture) []SaleLineRequest {
				tea := f.seedQuiet("Tea", 10)
				coffee := f.seedQuiet("Coffee", 10)
				_ = f.inv.Deactivate(context.Background(), coffee.ID, time.Now())
				return []SaleLineRequest{{ItemID: tea.ID, Quantity: 2}, {ItemID: coffee.ID, Quantity: 1}}
			},
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, inventorydomain.ErrItemInactive)
			},
		},
		{
			name: "insufficient stock on the last line",
			setup: func(f *fixture) []SaleLineRequest {
				return []SaleLineRequest{{ItemID: f.seedQuiet("Tea", 10).ID, Quantity: 2}, {ItemID: f.seedQuiet("Sugar", 1).ID, Quantity: 4}}
			},
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, inventorydomain.ErrInsufficientStock)
				assert.False(t, salesdomain.IsRetryable(err))
			},
		},
		{
			name: "sale insert fails",
			setup: func(f *fixture) []SaleLineRequest {
				f.sales.FailOn(salesmemory.OpInsertSale, errors.New("disk full"))
				return []SaleLineRequest{{ItemID: f.seedQuiet("Tea", 10).ID, Quantity: 9}}
			},
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, salesdomain.ErrPersistence)
				assert.True(t, salesdomain.IsRetryable(err))
			},
		},
		{
			name: "alert insert fails",
			setup: func(f *fixture) []SaleLineRequest {
				f.inv.FailOn(inventorymemory.OpInsertAlert, errors.New("connection reset"))
				return []SaleLineRequest{{ItemID: f.seedQuiet("Tea", 10).ID, Quantity: 10}}
			},
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, salesdomain.ErrPersistence)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, ProcessorConfig{})
			lines := tt.setup(f)

			before := map[uuid.UUID]int{}
			for _, l := range lines {
				if it, err := f.inv.GetByID(context.Background(), l.ItemID); err == nil {
					before[l.ItemID] = it.Stock.Quantity
				}
			}

			sale, err := f.processor.Process(context.Background(), SaleRequest{Lines: lines, PaymentMethod: "cash"}, cashier)
			require.Error(t, err)
			assert.Nil(t, sale)
			tt.check(t, err)

			for id, qty := range before {
				assert.Equal(t, qty, f.quantity(t, id))
			}
			assert.Empty(t, f.ledger(t))
			assert.Empty(t, f.alerts(t))
			assert.Zero(t, f.saleCount(t))
		})
	}
}

// seedQuiet seeds an item in branch A with a threshold low enough that no
// alert is raised unless the stock runs out.
func (f *fixture) seedQuiet(name string, qty int) *inventorymodels.Item {
	th, rp := 0, 0
	item, err := inventorymodels.NewItem(inventorymodels.NewItemParams{
		Name:              inventorymodels.ItemName(name),
		SKU:               inventorymodels.SKU("SKU-" + uuid.NewString()[:8]),
		CostPrice:         dec("1"),
		SellingPrice:      dec("2"),
		Quantity:          qty,
		LowStockThreshold: &th,
		ReorderPoint:      &rp,
		BranchID:          branchA,
	})
	if err != nil {
		panic(err)
	}
	f.inv.Seed(item)
	return item
}

func TestProcess_InvoiceConflict(t *testing.T) {
	f := newFixture(t, ProcessorConfig{Invoices: fixedInvoices{"INV2501010001"}})
	item := f.seed(t, "Salt", 10, 2, "8", "10")

	_, err := f.processor.Process(context.Background(), SaleRequest{
		Lines:         []SaleLineRequest{{ItemID: item.ID, Quantity: 1}},
		PaymentMethod: "cash",
	}, cashier)
	require.NoError(t, err)

	_, err = f.processor.Process(context.Background(), SaleRequest{
		Lines:         []SaleLineRequest{{ItemID: item.ID, Quantity: 1}},
		PaymentMethod: "cash",
	}, cashier)
	require.ErrorIs(t, err, salesdomain.ErrInvoiceConflict)
	assert.True(t, salesdomain.IsRetryable(err))

	assert.Equal(t, 9, f.quantity(t, item.ID))
	assert.Len(t, f.ledger(t), 1)
	assert.Equal(t, 1, f.saleCount(t))
}

func TestProcess_ConcurrentSalesDoNotOversell(t *testing.T) {
	f := newFixture(t, ProcessorConfig{})
	item := f.seed(t, "Last Cake", 1, 0, "100", "150")

	const buyers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		short     int
	)
	for range buyers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.processor.Process(context.Background(), SaleRequest{
				Lines:         []SaleLineRequest{{ItemID: item.ID, Quantity: 1}},
				PaymentMethod: "cash",
			}, cashier)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, inventorydomain.ErrInsufficientStock):
				short++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, buyers-1, short)
	assert.Equal(t, 0, f.quantity(t, item.ID))
	assert.Len(t, f.ledger(t), 1)
}

func TestProcess_Validation(t *testing.T) {
	f := newFixture(t, ProcessorConfig{PhoneDefaultRegion: "IN"})
	item := f.seed(t, "Oil", 10, 2, "90", "110")
	line := []SaleLineRequest{{ItemID: item.ID, Quantity: 1}}

	tests := []struct {
		name string
		req  SaleRequest
	}{
		{"no lines", SaleRequest{}},
		{"zero quantity", SaleRequest{Lines: []SaleLineRequest{{ItemID: item.ID, Quantity: 0}}}},
		{"nil item id", SaleRequest{Lines: []SaleLineRequest{{Quantity: 1}}}},
		{"missing payment method", SaleRequest{Lines: line}},
		{"unknown payment method", SaleRequest{Lines: line, PaymentMethod: "cheque"}},
		{"negative amount paid", SaleRequest{Lines: line, PaymentMethod: "cash", AmountPaid: dec("-1")}},
		{"negative tax", SaleRequest{Lines: line, PaymentMethod: "cash", Tax: dec("-0.5")}},
		{"negative discount", SaleRequest{Lines: line, PaymentMethod: "cash", Discount: dec("-2")}},
		{"bad phone", SaleRequest{Lines: line, PaymentMethod: "cash", Customer: &CustomerRequest{Phone: "12"}}},
		{"bad email", SaleRequest{Lines: line, PaymentMethod: "cash", Customer: &CustomerRequest{Email: "nobody@"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.processor.Process(context.Background(), tt.req, cashier)
			require.ErrorIs(t, err, salesdomain.ErrInvalidSale)
			assert.False(t, salesdomain.IsRetryable(err))
		})
	}

	assert.Equal(t, 10, f.quantity(t, item.ID))
	assert.Empty(t, f.ledger(t))
}

func TestProcess_Branch(t *testing.T) {
	f := newFixture(t, ProcessorConfig{})
	item := f.seed(t, "Jam", 20, 2, "30", "45")
	req := SaleRequest{Lines: []SaleLineRequest{{ItemID: item.ID, Quantity: 1}}, PaymentMethod: "cash", BranchID: branchB}

	sale, err := f.processor.Process(context.Background(), req, cashier)
	require.NoError(t, err)
	assert.Equal(t, branchA, sale.BranchID, "non-owners always sell for their own branch")

	sale, err = f.processor.Process(context.Background(), req, owner)
	require.NoError(t, err)
	assert.Equal(t, branchB, sale.BranchID)
}

func TestProcess_Customer(t *testing.T) {
	f := newFixture(t, ProcessorConfig{PhoneDefaultRegion: "IN"})
	item := f.seed(t, "Ghee", 20, 2, "400", "480")

	sale, err := f.processor.Process(context.Background(), SaleRequest{
		Lines:         []SaleLineRequest{{ItemID: item.ID, Quantity: 1}},
		PaymentMethod: "upi",
		AmountPaid:    dec("480"),
		Customer:      &CustomerRequest{Name: "Ravi", Phone: "98765 43210", Email: "Ravi@Example.com"},
	}, cashier)
	require.NoError(t, err)
	require.NotNil(t, sale.Customer)
	assert.Equal(t, "+919876543210", sale.Customer.Phone)
	assert.Equal(t, "ravi@example.com", sale.Customer.Email)
	assert.Equal(t, models.PaymentUPI, sale.Payment.Method)
	assert.True(t, sale.Payment.Change.IsZero())
}

func TestProcess_UnderpaymentYieldsNegativeChange(t *testing.T) {
	f := newFixture(t, ProcessorConfig{})
	item := f.seed(t, "Honey", 20, 2, "150", "200")

	sale, err := f.processor.Process(context.Background(), SaleRequest{
		Lines:         []SaleLineRequest{{ItemID: item.ID, Quantity: 2}},
		PaymentMethod: "cash",
		AmountPaid:    dec("350"),
	}, cashier)
	require.NoError(t, err)
	assert.True(t, sale.Payment.Change.Equal(dec("-50")), sale.Payment.Change.String())
	assert.Equal(t, models.PaymentCash, sale.Payment.Method)
}

func TestProcess_CallerCancellationDoesNotAbort(t *testing.T) {
	f := newFixture(t, ProcessorConfig{})
	item := f.seed(t, "Butter", 20, 2, "50", "60")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sale, err := f.processor.Process(ctx, SaleRequest{
		Lines:         []SaleLineRequest{{ItemID: item.ID, Quantity: 4}},
		PaymentMethod: "cash",
	}, cashier)
	require.NoError(t, err)
	assert.NotNil(t, sale)
	assert.Equal(t, 16, f.quantity(t, item.ID))
}

// stalledUnitOfWork never runs fn and waits for the deadline instead.
type stalledUnitOfWork struct{}

func (stalledUnitOfWork) Do(ctx context.Context, _ func(context.Context, repositories.SaleTx) error) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestProcess_DeadlineIsPersistenceError(t *testing.T) {
	p, err := NewSaleProcessor(stalledUnitOfWork{}, ProcessorConfig{Timeout: 20 * time.Millisecond},
		logger.New(&config.Config{LogLevel: "error"}))
	require.NoError(t, err)

	_, err = p.Process(context.Background(), SaleRequest{
		Lines:         []SaleLineRequest{{ItemID: uuid.New(), Quantity: 1}},
		PaymentMethod: "cash",
	}, cashier)
	require.ErrorIs(t, err, salesdomain.ErrPersistence)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, "persistence", failureReason(err))
}

func TestFailureReason(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{salesdomain.ErrInvalidSale, "invalid"},
		{&inventorydomain.ItemError{Err: inventorydomain.ErrItemNotFound}, "item_not_found"},
		{&inventorydomain.ItemError{Err: inventorydomain.ErrItemInactive}, "item_inactive"},
		{&inventorydomain.InsufficientStockError{}, "insufficient_stock"},
		{salesdomain.ErrInvoiceConflict, "invoice_conflict"},
		{classify(errors.New("boom")), "persistence"},
		{errors.New("boom"), "other"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, failureReason(tt.err), tt.err.Error())
	}
}
