// Package workflows holds the inventory context's Temporal workflows.
package workflows

import (
	"context"
	"fmt"
	"time"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"
)

const (
	// AlertExpiryWorkflowID is fixed so only one cron run exists per namespace.
	AlertExpiryWorkflowID = "inventory-alert-expiry"

	// AlertExpirySchedule runs the purge every 15 minutes.
	AlertExpirySchedule = "*/15 * * * *"
)

// AlertPurger deletes alerts past their expiry. *services.AlertService
// satisfies it.
type AlertPurger interface {
	PurgeExpired(ctx context.Context) (int, error)
}

// Activities are the alert-expiry activities.
type Activities struct {
	Alerts AlertPurger
}

// PurgeExpiredAlerts removes expired alerts and returns how many went.
func (a *Activities) PurgeExpiredAlerts(ctx context.Context) (int, error) {
	n, err := a.Alerts.PurgeExpired(ctx)
	if err != nil {
		return 0, err
	}
	activity.GetLogger(ctx).Info("expired alerts purged", "removed", n)
	return n, nil
}

// AlertExpiryWorkflow runs one purge.
func AlertExpiryWorkflow(ctx workflow.Context) (int, error) {
	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval: 5 * time.Second,
			MaximumAttempts: 3,
		},
	})

	var a *Activities
	var removed int
	if err := workflow.ExecuteActivity(ctx, a.PurgeExpiredAlerts).Get(ctx, &removed); err != nil {
		return 0, err
	}
	return removed, nil
}

// Register adds the workflow and its activities to w.
func Register(w worker.Registry, acts *Activities) {
	w.RegisterWorkflow(AlertExpiryWorkflow)
	w.RegisterActivity(acts)
}

// StartAlertExpiry schedules the cron workflow on taskQueue. An already
// running schedule is left in place.
func StartAlertExpiry(ctx context.Context, c client.Client, taskQueue string) error {
	_, err := c.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:           AlertExpiryWorkflowID,
		TaskQueue:    taskQueue,
		CronSchedule: AlertExpirySchedule,
	}, AlertExpiryWorkflow)
	if err != nil {
		return fmt.Errorf("start alert expiry workflow: %w", err)
	}
	return nil
}
