package errhttp

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/ghuser/branchpos/pkg/auth"
	inventorydomain "github.com/ghuser/branchpos/services/inventory/domain"
	salesdomain "github.com/ghuser/branchpos/services/sales/domain"
)

func TestWriteError_StatusCodes(t *testing.T) {
	tests := []struct {
		name          string
		err           error
		wantStatus    int
		wantCode      string
		wantRetryable bool
	}{
		{"invalid sale", fmt.Errorf("%w: no lines", salesdomain.ErrInvalidSale), http.StatusUnprocessableEntity, "invalid_sale", false},
		{"invalid item", inventorydomain.ErrInvalidItem, http.StatusUnprocessableEntity, "invalid_item", false},
		{"invalid movement", inventorydomain.ErrInvalidMovement, http.StatusUnprocessableEntity, "invalid_movement", false},
		{"item not found", &inventorydomain.ItemError{ItemID: uuid.New(), Err: inventorydomain.ErrItemNotFound}, http.StatusNotFound, "item_not_found", false},
		{"item inactive", &inventorydomain.ItemError{Err: inventorydomain.ErrItemInactive}, http.StatusUnprocessableEntity, "item_inactive", false},
		{"insufficient stock", &inventorydomain.InsufficientStockError{Available: 1, Requested: 2}, http.StatusConflict, "insufficient_stock", false},
		{"duplicate sku", inventorydomain.ErrItemAlreadyExists, http.StatusConflict, "item_already_exists", false},
		{"alert not found", inventorydomain.ErrAlertNotFound, http.StatusNotFound, "alert_not_found", false},
		{"sale not found", salesdomain.ErrSaleNotFound, http.StatusNotFound, "sale_not_found", false},
		{"invoice conflict", salesdomain.ErrInvoiceConflict, http.StatusConflict, "invoice_conflict", true},
		{"persistence", fmt.Errorf("%w: deadline", salesdomain.ErrPersistence), http.StatusServiceUnavailable, "persistence_failure", true},
		{"unauthenticated", auth.ErrActorNotFound, http.StatusUnauthorized, "unauthenticated", false},
		{"forbidden", auth.ErrForbidden, http.StatusForbidden, "forbidden", false},
		{"unknown error", errors.New("something unexpected"), http.StatusInternalServerError, "internal", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			WriteError(w, tt.err)

			if w.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d", tt.wantStatus, w.Code)
			}
			var body ErrorResponse
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("response body is not valid JSON: %v", err)
			}
			if body.Code != tt.wantCode {
				t.Errorf("expected code %q, got %q", tt.wantCode, body.Code)
			}
			if body.Retryable != tt.wantRetryable {
				t.Errorf("expected retryable=%v, got %v", tt.wantRetryable, body.Retryable)
			}
		})
	}
}

func TestWriteError_InsufficientStockDetails(t *testing.T) {
	id := uuid.New()
	w := httptest.NewRecorder()
	WriteError(w, fmt.Errorf("sale: %w", &inventorydomain.InsufficientStockError{
		ItemID: id, Name: "Rice", Available: 2, Requested: 5,
	}))

	var body ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("response body is not valid JSON: %v", err)
	}
	if body.Details["item_id"] != id.String() {
		t.Errorf("expected item_id %s, got %v", id, body.Details["item_id"])
	}
	if body.Details["available"] != float64(2) || body.Details["requested"] != float64(5) {
		t.Errorf("unexpected details %v", body.Details)
	}
}

func TestWrite_MasksServerErrorsInProduction(t *testing.T) {
	w := httptest.NewRecorder()
	Write(w, fmt.Errorf("%w: pq: connection refused", salesdomain.ErrPersistence), true)

	var body ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("response body is not valid JSON: %v", err)
	}
	if body.Error != http.StatusText(http.StatusServiceUnavailable) {
		t.Errorf("expected masked message, got %q", body.Error)
	}
	if !body.Retryable {
		t.Error("masking must keep the retryable flag")
	}

	w = httptest.NewRecorder()
	Write(w, salesdomain.ErrSaleNotFound, true)
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("response body is not valid JSON: %v", err)
	}
	if body.Error != salesdomain.ErrSaleNotFound.Error() {
		t.Errorf("4xx messages are not masked, got %q", body.Error)
	}
}

func TestWriteError_ContentType(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(w, inventorydomain.ErrItemNotFound)

	ct := w.Header().Get("Content-Type")
	if ct == "" {
		t.Fatal("Content-Type header not set")
	}
}
