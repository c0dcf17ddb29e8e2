package domain

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Sentinel errors for the inventory domain. Use errors.Is() to check these.
var (
	// ErrItemNotFound indicates the requested item does not exist.
	ErrItemNotFound = errors.New("item not found")

	// ErrItemAlreadyExists indicates an item with the same SKU already exists.
	ErrItemAlreadyExists = errors.New("item already exists")

	// ErrInvalidItem indicates the item violates domain constraints.
	ErrInvalidItem = errors.New("invalid item")

	// ErrItemInactive indicates the item has been deactivated and cannot be sold or restocked.
	ErrItemInactive = errors.New("item is not active")

	// ErrInsufficientStock indicates a movement would take stock below zero.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrInvalidMovement indicates a stock movement with an invalid quantity or type.
	ErrInvalidMovement = errors.New("invalid stock movement")

	// ErrAlertNotFound indicates the requested alert does not exist.
	ErrAlertNotFound = errors.New("alert not found")
)

// ItemError attaches the offending item to a sentinel such as
// ErrItemNotFound or ErrItemInactive.
type ItemError struct {
	ItemID uuid.UUID
	Name   string
	Err    error
}

func (e *ItemError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("%v: %s", e.Err, e.Name)
	}
	return fmt.Sprintf("%v: %s", e.Err, e.ItemID)
}

func (e *ItemError) Unwrap() error { return e.Err }

// InsufficientStockError reports how much stock was available when a
// movement asked for more.
type InsufficientStockError struct {
	ItemID    uuid.UUID
	Name      string
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: available %d, requested %d", e.Name, e.Available, e.Requested)
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }
