// Package errhttp maps domain sentinel errors to HTTP responses.
// Add a case to classify for each new domain sentinel error.
package errhttp

import (
	"errors"
	"net/http"

	"github.com/ghuser/branchpos/pkg/auth"
	"github.com/ghuser/branchpos/pkg/httpx"
	inventorydomain "github.com/ghuser/branchpos/services/inventory/domain"
	salesdomain "github.com/ghuser/branchpos/services/sales/domain"
)

// ErrorResponse is the body of every error response. Code is stable and
// machine-readable; Retryable tells clients whether resubmitting may succeed.
type ErrorResponse struct {
	Error     string         `json:"error" example:"insufficient stock for Rice: available 2, requested 3"`
	Code      string         `json:"code" example:"insufficient_stock"`
	Retryable bool           `json:"retryable" example:"false"`
	Details   map[string]any `json:"details,omitempty"`
} // @name ErrorResponse

type classified struct {
	status    int
	code      string
	retryable bool
}

// WriteError writes err unmasked. Use Write in handlers that know whether
// they run in production.
func WriteError(w http.ResponseWriter, err error) {
	Write(w, err, false)
}

// Write maps err to a status code and writes an ErrorResponse. In production
// the message of 5xx responses is replaced with the status text.
// Uses errors.Is() so wrapped sentinel errors are matched correctly.
func Write(w http.ResponseWriter, err error, isProduction bool) {
	c := classify(err)
	httpx.JSON(w, c.status, ErrorResponse{
		Error:     httpx.SafeError(err, c.status, isProduction),
		Code:      c.code,
		Retryable: c.retryable,
		Details:   details(err),
	})
}

func classify(err error) classified {
	switch {
	case errors.Is(err, auth.ErrActorNotFound):
		return classified{http.StatusUnauthorized, "unauthenticated", false}
	case errors.Is(err, auth.ErrForbidden):
		return classified{http.StatusForbidden, "forbidden", false}
	case errors.Is(err, salesdomain.ErrInvalidSale):
		return classified{http.StatusUnprocessableEntity, "invalid_sale", false}
	case errors.Is(err, inventorydomain.ErrInvalidItem):
		return classified{http.StatusUnprocessableEntity, "invalid_item", false}
	case errors.Is(err, inventorydomain.ErrInvalidMovement):
		return classified{http.StatusUnprocessableEntity, "invalid_movement", false}
	case errors.Is(err, inventorydomain.ErrItemNotFound):
		return classified{http.StatusNotFound, "item_not_found", false}
	case errors.Is(err, inventorydomain.ErrItemInactive):
		return classified{http.StatusUnprocessableEntity, "item_inactive", false}
	case errors.Is(err, inventorydomain.ErrInsufficientStock):
		return classified{http.StatusConflict, "insufficient_stock", false}
	case errors.Is(err, inventorydomain.ErrItemAlreadyExists):
		return classified{http.StatusConflict, "item_already_exists", false}
	case errors.Is(err, inventorydomain.ErrAlertNotFound):
		return classified{http.StatusNotFound, "alert_not_found", false}
	case errors.Is(err, salesdomain.ErrSaleNotFound):
		return classified{http.StatusNotFound, "sale_not_found", false}
	case errors.Is(err, salesdomain.ErrInvoiceConflict):
		return classified{http.StatusConflict, "invoice_conflict", true}
	case errors.Is(err, salesdomain.ErrPersistence):
		return classified{http.StatusServiceUnavailable, "persistence_failure", true}
	default:
		return classified{http.StatusInternalServerError, "internal", false}
	}
}

// details exposes the offending item of item-level failures.
func details(err error) map[string]any {
	var stockErr *inventorydomain.InsufficientStockError
	if errors.As(err, &stockErr) {
		return map[string]any{
			"item_id":   stockErr.ItemID,
			"name":      stockErr.Name,
			"available": stockErr.Available,
			"requested": stockErr.Requested,
		}
	}
	var itemErr *inventorydomain.ItemError
	if errors.As(err, &itemErr) {
		d := map[string]any{"item_id": itemErr.ItemID}
		if itemErr.Name != "" {
			d["name"] = itemErr.Name
		}
		return d
	}
	return nil
}
