package models

import (
	"strings"
	"testing"
)

func TestNewItemName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"single character", "a", false},
		{"normal name", "Basmati Rice 5kg", false},
		{"255 characters", strings.Repeat("x", 255), false},
		{"255 multibyte runes", strings.Repeat("é", 255), false},
		{"empty", "", true},
		{"256 characters", strings.Repeat("x", 256), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := NewItemName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewItemName() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && n.String() != tt.input {
				t.Fatalf("expected %q, got %q", tt.input, n.String())
			}
		})
	}
}

func TestNewSKU(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    SKU
		wantErr bool
	}{
		{"upper-cases", "rice-5kg", "RICE-5KG", false},
		{"trims", "  MLK_1L ", "MLK_1L", false},
		{"empty", "   ", "", true},
		{"space inside", "RICE 5KG", "", true},
		{"too long", strings.Repeat("A", 65), "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewSKU(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewSKU() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}
