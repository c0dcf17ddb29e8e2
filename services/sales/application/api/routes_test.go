package api_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ghuser/branchpos/pkg/auth"
	"github.com/ghuser/branchpos/pkg/config"
	"github.com/ghuser/branchpos/pkg/errhttp"
	"github.com/ghuser/branchpos/pkg/logger"
	inventorymodels "github.com/ghuser/branchpos/services/inventory/domain/models"
	inventorymemory "github.com/ghuser/branchpos/services/inventory/infrastructure/persistence/memory"
	"github.com/ghuser/branchpos/services/sales/application/api"
	"github.com/ghuser/branchpos/services/sales/application/handlers"
	appsvcs "github.com/ghuser/branchpos/services/sales/application/services"
	salesmemory "github.com/ghuser/branchpos/services/sales/infrastructure/persistence/memory"
)

var branch = uuid.MustParse("00000000-0000-0000-0000-0000000000aa")

func newRouter(t *testing.T, actor auth.Actor) (http.Handler, *inventorymodels.Item) {
	t.Helper()
	log := logger.New(&config.Config{LogLevel: "error"})
	inv := inventorymemory.NewStore()
	store := salesmemory.NewStore(inv)

	threshold := 2
	item, err := inventorymodels.NewItem(inventorymodels.NewItemParams{
		Name:              "Rice 5kg",
		SKU:               "RICE-5",
		CostPrice:         decimal.NewFromInt(300),
		SellingPrice:      decimal.NewFromInt(350),
		Quantity:          3,
		LowStockThreshold: &threshold,
		BranchID:          branch,
	})
	if err != nil {
		t.Fatalf("new item: %v", err)
	}
	inv.Seed(item)

	processor, err := appsvcs.NewSaleProcessor(store, appsvcs.ProcessorConfig{PhoneDefaultRegion: "IN"}, log)
	if err != nil {
		t.Fatalf("new processor: %v", err)
	}
	svcs := &appsvcs.Services{
		Processor: processor,
		Reports:   appsvcs.NewReportService(store, nil, nil, appsvcs.ReportConfig{}, log),
	}

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(auth.WithActor(req.Context(), actor)))
		})
	})
	api.Mount(r, svcs, time.UTC, false)
	return r, item
}

func do(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestPostSale(t *testing.T) {
	cashier := auth.Actor{UserID: uuid.New(), Role: auth.RoleCashier, BranchID: branch}
	h, item := newRouter(t, cashier)

	w := do(h, http.MethodPost, "/sales", `{
		"items": [{"item_id": "`+item.ID.String()+`", "quantity": 2}],
		"payment": {"method": "card", "amount_paid": "700"},
		"customer": {"name": "Asha", "phone": "98765 43210"}
	}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body)
	}

	var sale handlers.SaleResponse
	if err := json.Unmarshal(w.Body.Bytes(), &sale); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !sale.Total.Equal(decimal.NewFromInt(700)) {
		t.Errorf("expected total 700, got %s", sale.Total)
	}
	if sale.Customer == nil || sale.Customer.Phone != "+919876543210" {
		t.Errorf("unexpected customer %+v", sale.Customer)
	}
	if sale.BranchID == nil || *sale.BranchID != branch {
		t.Errorf("expected branch %s, got %v", branch, sale.BranchID)
	}

	w = do(h, http.MethodGet, "/sales/"+sale.ID.String(), "")
	if w.Code != http.StatusOK {
		t.Fatalf("get: expected 200, got %d", w.Code)
	}
}

func TestPostSale_Errors(t *testing.T) {
	cashier := auth.Actor{UserID: uuid.New(), Role: auth.RoleCashier, BranchID: branch}
	h, item := newRouter(t, cashier)
	line := `{"item_id": "` + item.ID.String() + `", "quantity": 1}`
	cash := `"payment": {"method": "cash", "amount_paid": "350"}`

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantCode   string
	}{
		{"malformed json", `{"items": [`, http.StatusBadRequest, ""},
		{"zero quantity", `{"items": [{"item_id": "` + item.ID.String() + `", "quantity": 0}], ` + cash + `}`, http.StatusUnprocessableEntity, ""},
		{"missing payment", `{"items": [` + line + `]}`, http.StatusUnprocessableEntity, ""},
		{"missing payment method", `{"items": [` + line + `], "payment": {"amount_paid": "350"}}`, http.StatusUnprocessableEntity, ""},
		{"missing amount paid", `{"items": [` + line + `], "payment": {"method": "cash"}}`, http.StatusUnprocessableEntity, ""},
		{"null amount paid", `{"items": [` + line + `], "payment": {"method": "cash", "amount_paid": null}}`, http.StatusUnprocessableEntity, ""},
		{"unknown payment method", `{"items": [` + line + `], "payment": {"method": "barter", "amount_paid": "350"}}`, http.StatusUnprocessableEntity, ""},
		{"camel case payment key", `{"items": [` + line + `], "payment": {"method": "cash", "amountPaid": 1000}}`, http.StatusBadRequest, ""},
		{"flat payment keys", `{"items": [` + line + `], "payment_method": "cash", "amount_paid": "350"}`, http.StatusBadRequest, ""},
		{"unknown item", `{"items": [{"item_id": "` + uuid.NewString() + `", "quantity": 1}], ` + cash + `}`, http.StatusNotFound, "item_not_found"},
		{"insufficient stock", `{"items": [{"item_id": "` + item.ID.String() + `", "quantity": 4}], ` + cash + `}`, http.StatusConflict, "insufficient_stock"},
		{"negative amount paid", `{"items": [` + line + `], "payment": {"method": "cash", "amount_paid": "-1"}}`, http.StatusUnprocessableEntity, "invalid_sale"},
		{"negative tax", `{"items": [` + line + `], ` + cash + `, "totals": {"tax": "-1"}}`, http.StatusUnprocessableEntity, "invalid_sale"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(h, http.MethodPost, "/sales", tt.body)
			if w.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d: %s", tt.wantStatus, w.Code, w.Body)
			}
			if tt.wantCode == "" {
				return
			}
			var body errhttp.ErrorResponse
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Code != tt.wantCode {
				t.Errorf("expected code %q, got %q", tt.wantCode, body.Code)
			}
		})
	}

	w := do(h, http.MethodGet, "/sales", "")
	var list handlers.SaleListResponse
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if list.Total != 0 {
		t.Errorf("rejected requests must not record sales, got %d", list.Total)
	}
}

func TestPostSale_TotalsObject(t *testing.T) {
	cashier := auth.Actor{UserID: uuid.New(), Role: auth.RoleCashier, BranchID: branch}
	h, item := newRouter(t, cashier)

	w := do(h, http.MethodPost, "/sales", `{
		"items": [{"item_id": "`+item.ID.String()+`", "quantity": 1}],
		"payment": {"method": "upi", "amount_paid": 400},
		"totals": {"tax": "17.50", "discount": "7.50"}
	}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body)
	}
	var sale handlers.SaleResponse
	if err := json.Unmarshal(w.Body.Bytes(), &sale); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !sale.Total.Equal(decimal.NewFromInt(360)) {
		t.Errorf("expected total 360, got %s", sale.Total)
	}
	if !sale.Change.Equal(decimal.NewFromInt(40)) {
		t.Errorf("expected change 40, got %s", sale.Change)
	}
	if sale.PaymentMethod != "upi" {
		t.Errorf("expected upi, got %s", sale.PaymentMethod)
	}
}

func TestSalesReads(t *testing.T) {
	cashier := auth.Actor{UserID: uuid.New(), Role: auth.RoleCashier, BranchID: branch}
	h, _ := newRouter(t, cashier)

	if w := do(h, http.MethodGet, "/sales?limit=5", ""); w.Code != http.StatusOK {
		t.Errorf("list: expected 200, got %d", w.Code)
	}
	if w := do(h, http.MethodGet, "/sales?page=92233720368547760&limit=100", ""); w.Code != http.StatusOK {
		t.Errorf("huge page: expected 200 with an empty page, got %d: %s", w.Code, w.Body)
	}
	if w := do(h, http.MethodGet, "/sales?from=yesterday", ""); w.Code != http.StatusBadRequest {
		t.Errorf("bad from: expected 400, got %d", w.Code)
	}
	if w := do(h, http.MethodGet, "/sales/stats", ""); w.Code != http.StatusOK {
		t.Errorf("stats: expected 200, got %d", w.Code)
	}
	if w := do(h, http.MethodGet, "/sales/not-a-uuid", ""); w.Code != http.StatusBadRequest {
		t.Errorf("bad id: expected 400, got %d", w.Code)
	}
	if w := do(h, http.MethodGet, "/sales/"+uuid.NewString(), ""); w.Code != http.StatusNotFound {
		t.Errorf("unknown id: expected 404, got %d", w.Code)
	}
	if w := do(h, http.MethodGet, "/sales/export", ""); w.Code != http.StatusForbidden {
		t.Errorf("export as cashier: expected 403, got %d", w.Code)
	}
}

func TestExportSales(t *testing.T) {
	manager := auth.Actor{UserID: uuid.New(), Role: auth.RoleManager, BranchID: branch}
	h, _ := newRouter(t, manager)

	w := do(h, http.MethodGet, "/sales/export?status=completed", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body)
	}
	if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "spreadsheetml") {
		t.Errorf("unexpected Content-Type %q", ct)
	}
}
