package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
)

func TestSentinelErrors_WrappedIdentity(t *testing.T) {
	wrapped := fmt.Errorf("context: %w", ErrItemNotFound)
	if !errors.Is(wrapped, ErrItemNotFound) {
		t.Fatal("errors.Is must match wrapped ErrItemNotFound")
	}

	wrapped2 := fmt.Errorf("%w: %w", ErrInvalidItem, errors.New("sku too long"))
	if !errors.Is(wrapped2, ErrInvalidItem) {
		t.Fatal("errors.Is must match double-wrapped ErrInvalidItem")
	}
}

func TestItemError(t *testing.T) {
	id := uuid.MustParse("11111111-1111-1111-1111-111111111111")

	t.Run("unwraps to sentinel", func(t *testing.T) {
		err := fmt.Errorf("line 2: %w", &ItemError{ItemID: id, Err: ErrItemInactive})
		if !errors.Is(err, ErrItemInactive) {
			t.Fatal("expected ErrItemInactive")
		}
		var ie *ItemError
		if !errors.As(err, &ie) || ie.ItemID != id {
			t.Fatalf("expected ItemError for %v, got %v", id, err)
		}
	})

	t.Run("message prefers name", func(t *testing.T) {
		err := &ItemError{ItemID: id, Name: "Milk 1L", Err: ErrItemInactive}
		if got := err.Error(); got != "item is not active: Milk 1L" {
			t.Fatalf("unexpected message %q", got)
		}
	})

	t.Run("message falls back to id", func(t *testing.T) {
		err := &ItemError{ItemID: id, Err: ErrItemNotFound}
		if got := err.Error(); got != "item not found: "+id.String() {
			t.Fatalf("unexpected message %q", got)
		}
	})
}

func TestInsufficientStockError(t *testing.T) {
	err := error(&InsufficientStockError{ItemID: uuid.New(), Name: "Rice 5kg", Available: 2, Requested: 3})

	if !errors.Is(err, ErrInsufficientStock) {
		t.Fatal("expected ErrInsufficientStock")
	}
	if got := err.Error(); got != "insufficient stock for Rice 5kg: available 2, requested 3" {
		t.Fatalf("unexpected message %q", got)
	}
}
