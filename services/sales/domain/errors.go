package domain

import "errors"

// Sentinel errors for the sales domain. Use errors.Is() to check these.
// Item-level failures (not found, inactive, insufficient stock) come from the
// inventory domain and pass through the sale processor unchanged.
var (
	// ErrInvalidSale indicates a malformed sale request. Nothing was written.
	ErrInvalidSale = errors.New("invalid sale")

	// ErrSaleNotFound indicates the requested sale does not exist.
	ErrSaleNotFound = errors.New("sale not found")

	// ErrInvoiceConflict indicates the generated invoice number was already
	// taken. The sale was rolled back and may be resubmitted.
	ErrInvoiceConflict = errors.New("invoice number conflict")

	// ErrPersistence indicates the unit of work failed in storage (deadline,
	// deadlock, serialization failure, lost connection). Nothing was written.
	ErrPersistence = errors.New("sale could not be persisted")
)

// IsRetryable reports whether resubmitting the same request may succeed.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrPersistence) || errors.Is(err, ErrInvoiceConflict)
}
