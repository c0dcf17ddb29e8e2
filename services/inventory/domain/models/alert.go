package models

import (
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
)

type AlertType string

const (
	AlertLowStock      AlertType = "low_stock"
	AlertOutOfStock    AlertType = "out_of_stock"
	AlertHighValueSale AlertType = "high_value_sale"
	AlertSystem        AlertType = "system"
)

// ParseAlertType validates s against the known alert types.
func ParseAlertType(s string) (AlertType, error) {
	switch t := AlertType(s); t {
	case AlertLowStock, AlertOutOfStock, AlertHighValueSale, AlertSystem:
		return t, nil
	}
	return "", fmt.Errorf("unknown alert type %q", s)
}

type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Alert is a notification raised when stock crosses an item's threshold.
type Alert struct {
	ID        uuid.UUID
	Type      AlertType
	Severity  Severity
	Title     string
	Message   string
	ItemID    uuid.UUID
	BranchID  uuid.UUID
	IsRead    bool
	ReadBy    []uuid.UUID
	CreatedAt time.Time
	ExpiresAt *time.Time
}

// MarkRead records userID as a reader. Repeated calls are no-ops.
func (a *Alert) MarkRead(userID uuid.UUID) {
	a.IsRead = true
	if !slices.Contains(a.ReadBy, userID) {
		a.ReadBy = append(a.ReadBy, userID)
	}
}

// Expired reports whether the alert is past its expiry at now.
func (a *Alert) Expired(now time.Time) bool {
	return a.ExpiresAt != nil && !now.Before(*a.ExpiresAt)
}
