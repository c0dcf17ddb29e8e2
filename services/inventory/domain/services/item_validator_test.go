package services

import (
	"testing"

	"github.com/google/uuid"

	"github.com/ghuser/branchpos/services/inventory/domain/models"
)

func TestValidateName(t *testing.T) {
	tests := []struct {
		name    string
		input   models.ItemName
		wantErr bool
	}{
		{"valid name", "Basmati Rice 5kg", false},
		{"valid name with special chars", "Soap-Bar_100g!", false},
		{"leading whitespace", " Name", true},
		{"trailing whitespace", "Name ", true},
		{"only whitespace", "   ", true},
		{"tab character (control)", "Name\tName", true},
		{"null byte (control)", "Name\x00", true},
		{"consecutive spaces", "Item  Name", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateName(%q) error = %v, wantErr = %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateItemForCreation(t *testing.T) {
	valid := func() *models.Item {
		return &models.Item{
			ID:        uuid.New(),
			Name:      "Valid Item",
			SKU:       "VALID-1",
			CreatedBy: uuid.New(),
			Stock:     models.Stock{LowStockThreshold: 10, ReorderPoint: 5},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*models.Item)
		wantErr bool
	}{
		{"valid item", func(*models.Item) {}, false},
		{"zero ID", func(i *models.Item) { i.ID = uuid.Nil }, true},
		{"missing SKU", func(i *models.Item) { i.SKU = "" }, true},
		{"missing creator", func(i *models.Item) { i.CreatedBy = uuid.Nil }, true},
		{"invalid name", func(i *models.Item) { i.Name = " leading space" }, true},
		{"reorder above threshold", func(i *models.Item) { i.Stock.ReorderPoint = 11 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := valid()
			tt.mutate(item)
			if err := ValidateItemForCreation(item); (err != nil) != tt.wantErr {
				t.Fatalf("ValidateItemForCreation() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}

	t.Run("nil item returns error", func(t *testing.T) {
		if err := ValidateItemForCreation(nil); err == nil {
			t.Fatal("expected error for nil item")
		}
	})
}
