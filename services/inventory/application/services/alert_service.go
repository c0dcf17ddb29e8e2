package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ghuser/branchpos/pkg/auth"
	"github.com/ghuser/branchpos/pkg/logger"
	inventorydomain "github.com/ghuser/branchpos/services/inventory/domain"
	"github.com/ghuser/branchpos/services/inventory/domain/models"
	"github.com/ghuser/branchpos/services/inventory/domain/repositories"
)

const defaultAlertLimit = 50

// AlertService lists, acknowledges and purges stock alerts.
type AlertService struct {
	repo repositories.AlertRepository
	log  logger.Logger
	now  func() time.Time
}

func NewAlertService(repo repositories.AlertRepository, log logger.Logger) *AlertService {
	return &AlertService{repo: repo, log: log, now: time.Now}
}

// List returns alerts newest first, restricted to the actor's branch for non-owners.
func (s *AlertService) List(ctx context.Context, actor auth.Actor, q repositories.AlertQuery) ([]*models.Alert, error) {
	if scope := actor.BranchScope(); scope != nil {
		q.BranchID = scope
	}
	if q.Limit <= 0 {
		q.Limit = defaultAlertLimit
	}
	alerts, err := s.repo.Find(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("find alerts: %w", err)
	}
	return alerts, nil
}

// MarkRead records the actor as a reader and returns the updated alert.
func (s *AlertService) MarkRead(ctx context.Context, actor auth.Actor, id uuid.UUID) (*models.Alert, error) {
	alert, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get alert: %w", err)
	}
	if scope := actor.BranchScope(); scope != nil && alert.BranchID != uuid.Nil && alert.BranchID != *scope {
		return nil, inventorydomain.ErrAlertNotFound
	}
	if err := s.repo.MarkRead(ctx, id, actor.UserID); err != nil {
		return nil, fmt.Errorf("mark alert read: %w", err)
	}
	alert.MarkRead(actor.UserID)
	return alert, nil
}

// PurgeExpired deletes alerts past their expiry.
func (s *AlertService) PurgeExpired(ctx context.Context) (int, error) {
	n, err := s.repo.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("purge expired alerts: %w", err)
	}
	if n > 0 {
		s.log.InfoContext(ctx, "expired alerts purged", "count", n)
	}
	return n, nil
}
