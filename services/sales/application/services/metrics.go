package services

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	inventorydomain "github.com/ghuser/branchpos/services/inventory/domain"
	salesdomain "github.com/ghuser/branchpos/services/sales/domain"
)

// saleMetrics are exported through the Prometheus reader as
// pos_sales_completed_total, pos_sales_failed_total{reason} and
// pos_sale_duration_seconds.
type saleMetrics struct {
	completed metric.Int64Counter
	failed    metric.Int64Counter
	duration  metric.Float64Histogram
}

func newSaleMetrics(meter metric.Meter) (*saleMetrics, error) {
	completed, err := meter.Int64Counter("pos_sales_completed",
		metric.WithDescription("Sales committed"))
	if err != nil {
		return nil, err
	}
	failed, err := meter.Int64Counter("pos_sales_failed",
		metric.WithDescription("Sales rejected or rolled back, by reason"))
	if err != nil {
		return nil, err
	}
	duration, err := meter.Float64Histogram("pos_sale_duration",
		metric.WithDescription("Time to process one sale"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}
	return &saleMetrics{completed: completed, failed: failed, duration: duration}, nil
}

func (m *saleMetrics) record(ctx context.Context, took time.Duration, err error) {
	outcome := "completed"
	if err != nil {
		outcome = "failed"
		m.failed.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", failureReason(err))))
	} else {
		m.completed.Add(ctx, 1)
	}
	m.duration.Record(ctx, took.Seconds(), metric.WithAttributes(attribute.String("outcome", outcome)))
}

// failureReason maps an error to a low-cardinality metric label.
func failureReason(err error) string {
	switch {
	case errors.Is(err, salesdomain.ErrInvalidSale):
		return "invalid"
	case errors.Is(err, inventorydomain.ErrItemNotFound):
		return "item_not_found"
	case errors.Is(err, inventorydomain.ErrItemInactive):
		return "item_inactive"
	case errors.Is(err, inventorydomain.ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, salesdomain.ErrInvoiceConflict):
		return "invoice_conflict"
	case errors.Is(err, salesdomain.ErrPersistence):
		return "persistence"
	default:
		return "other"
	}
}
