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
	"github.com/ghuser/branchpos/services/inventory/application/api"
	"github.com/ghuser/branchpos/services/inventory/application/handlers"
	appsvcs "github.com/ghuser/branchpos/services/inventory/application/services"
	"github.com/ghuser/branchpos/services/inventory/infrastructure/persistence/memory"
)

var branch = uuid.MustParse("00000000-0000-0000-0000-0000000000aa")

func newRouter(actor auth.Actor) http.Handler {
	log := logger.New(&config.Config{LogLevel: "error"})
	store := memory.NewStore()
	svcs := &appsvcs.Services{
		Items:  appsvcs.NewItemService(store, nil, log, time.Hour),
		Stock:  appsvcs.NewStockService(store, memory.StockLogs{Store: store}, log, time.Hour),
		Alerts: appsvcs.NewAlertService(memory.Alerts{Store: store}, log),
	}

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(auth.WithActor(req.Context(), actor)))
		})
	})
	api.Mount(r, svcs, time.UTC, false)
	return r
}

func do(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %s: %v", w.Body, err)
	}
	return v
}

func TestItemAndStockFlow(t *testing.T) {
	manager := auth.Actor{UserID: uuid.New(), Role: auth.RoleManager, BranchID: branch}
	h := newRouter(manager)

	w := do(h, http.MethodPost, "/items", `{
		"name": "Rice 5kg", "sku": "rice-5kg",
		"cost_price": "300", "selling_price": "350",
		"quantity": 12, "low_stock_threshold": 10
	}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %s", w.Code, w.Body)
	}
	created := decode[handlers.CreateItemResponse](t, w)
	if created.Item.SKU != "RICE-5KG" {
		t.Errorf("expected upper-cased SKU, got %q", created.Item.SKU)
	}
	if created.Alert != nil {
		t.Errorf("unexpected alert %+v", created.Alert)
	}
	id := created.Item.ID.String()

	w = do(h, http.MethodPost, "/items", `{"name": "Rice", "sku": "RICE-5KG", "cost_price": "1", "selling_price": "2"}`)
	if w.Code != http.StatusConflict {
		t.Errorf("duplicate sku: expected 409, got %d", w.Code)
	}

	w = do(h, http.MethodPost, "/stock/adjust", `{"item_id": "`+id+`", "new_quantity": 9, "reason": "count"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("adjust: expected 200, got %d: %s", w.Code, w.Body)
	}
	moved := decode[handlers.StockMovementResponse](t, w)
	if moved.Entry.Quantity != -3 || moved.Alert == nil || moved.Alert.Type != "low_stock" {
		t.Errorf("unexpected movement %+v", moved)
	}

	w = do(h, http.MethodPost, "/stock/refill", `{"item_id": "`+id+`", "quantity": 6, "cost_price": "310"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("refill: expected 200, got %d: %s", w.Code, w.Body)
	}
	moved = decode[handlers.StockMovementResponse](t, w)
	if moved.Item.Quantity != 15 || moved.Entry.CostPrice == nil {
		t.Errorf("unexpected refill %+v", moved)
	}

	w = do(h, http.MethodGet, "/stock/logs?item_id="+id, "")
	if w.Code != http.StatusOK {
		t.Fatalf("logs: expected 200, got %d", w.Code)
	}
	if logs := decode[handlers.StockLogListResponse](t, w); logs.Total != 2 {
		t.Errorf("expected 2 ledger entries, got %d", logs.Total)
	}

	w = do(h, http.MethodGet, "/alerts?unread=true", "")
	alerts := decode[[]handlers.AlertResponse](t, w)
	if len(alerts) != 1 {
		t.Fatalf("expected 1 alert, got %d", len(alerts))
	}
	w = do(h, http.MethodPost, "/alerts/"+alerts[0].ID.String()+"/read", "")
	if w.Code != http.StatusOK || !decode[handlers.AlertResponse](t, w).IsRead {
		t.Errorf("mark read: got %d: %s", w.Code, w.Body)
	}

	w = do(h, http.MethodPut, "/items/"+id+"/pricing", `{"cost_price": "300", "selling_price": "390"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("pricing: expected 200, got %d: %s", w.Code, w.Body)
	}
	if item := decode[handlers.ItemResponse](t, w); !item.MarginPercentage.Equal(decimal.NewFromInt(30)) {
		t.Errorf("expected 30%% margin, got %s", item.MarginPercentage)
	}

	if w = do(h, http.MethodDelete, "/items/"+id, ""); w.Code != http.StatusNoContent {
		t.Errorf("deactivate: expected 204, got %d", w.Code)
	}
}

func TestInventoryRoutes_Errors(t *testing.T) {
	cashier := auth.Actor{UserID: uuid.New(), Role: auth.RoleCashier, BranchID: branch}
	h := newRouter(cashier)

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
		wantCode   string
	}{
		{"cashier cannot create items", http.MethodPost, "/items", `{}`, http.StatusForbidden, ""},
		{"cashier cannot refill", http.MethodPost, "/stock/refill", `{}`, http.StatusForbidden, ""},
		{"unknown item", http.MethodGet, "/items/" + uuid.NewString(), "", http.StatusNotFound, "item_not_found"},
		{"malformed id", http.MethodGet, "/items/abc", "", http.StatusBadRequest, ""},
		{"bad movement type", http.MethodGet, "/stock/logs?type=gift", "", http.StatusBadRequest, ""},
		{"bad alert type", http.MethodGet, "/alerts?type=loud", "", http.StatusBadRequest, ""},
		{"unknown alert", http.MethodPost, "/alerts/" + uuid.NewString() + "/read", "", http.StatusNotFound, "alert_not_found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(h, tt.method, tt.path, tt.body)
			if w.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d: %s", tt.wantStatus, w.Code, w.Body)
			}
			if tt.wantCode != "" {
				if got := decode[errhttp.ErrorResponse](t, w).Code; got != tt.wantCode {
					t.Errorf("expected code %q, got %q", tt.wantCode, got)
				}
			}
		})
	}

	if w := do(h, http.MethodGet, "/items/low-stock", ""); w.Code != http.StatusOK {
		t.Errorf("low stock: expected 200, got %d", w.Code)
	}
}
