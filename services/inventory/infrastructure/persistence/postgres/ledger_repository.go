package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ghuser/branchpos/pkg/database"
	inventorydomain "github.com/ghuser/branchpos/services/inventory/domain"
	"github.com/ghuser/branchpos/services/inventory/domain/models"
	"github.com/ghuser/branchpos/services/inventory/domain/repositories"
)

// where accumulates AND-ed predicates with positional arguments.
type where struct {
	clauses []string
	args    []any
}

func (w *where) add(clause string, arg any) {
	w.args = append(w.args, arg)
	w.clauses = append(w.clauses, strings.ReplaceAll(clause, "?", "$"+strconv.Itoa(len(w.args))))
}

func (w *where) String() string {
	if len(w.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.clauses, " AND ")
}

// StockLogRepository implements repositories.StockLogRepository.
type StockLogRepository struct {
	db *database.Database
}

func NewStockLogRepository(db *database.Database) *StockLogRepository {
	return &StockLogRepository{db: db}
}

func (r *StockLogRepository) Find(ctx context.Context, q repositories.StockLogQuery) ([]*models.StockLogEntry, int, error) {
	var w where
	if q.ItemID != nil {
		w.add("item_id = ?", *q.ItemID)
	}
	if q.Type != nil {
		w.add("type = ?", string(*q.Type))
	}
	if q.BranchID != nil {
		w.add("branch_id = ?", *q.BranchID)
	}
	if q.From != nil {
		w.add("created_at >= ?", *q.From)
	}
	if q.To != nil {
		w.add("created_at <= ?", *q.To)
	}

	var total int
	if err := r.db.DB().QueryRowContext(ctx, `SELECT count(*) FROM stock_logs`+w.String(), w.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count stock logs: %w", err)
	}

	args := append(w.args, q.Limit, q.Offset)
	n := len(w.args)
	rows, err := r.db.DB().QueryContext(ctx, `SELECT `+stockLogColumns+` FROM stock_logs`+w.String()+
		` ORDER BY created_at DESC, id LIMIT $`+strconv.Itoa(n+1)+` OFFSET $`+strconv.Itoa(n+2), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query stock logs: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var entries []*models.StockLogEntry
	for rows.Next() {
		e, err := scanStockLog(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan stock log: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, total, rows.Err()
}

// AlertRepository implements repositories.AlertRepository.
type AlertRepository struct {
	db *database.Database
}

func NewAlertRepository(db *database.Database) *AlertRepository {
	return &AlertRepository{db: db}
}

func (r *AlertRepository) Find(ctx context.Context, q repositories.AlertQuery) ([]*models.Alert, error) {
	var w where
	if q.BranchID != nil {
		w.add("branch_id = ?", *q.BranchID)
	}
	if q.Type != nil {
		w.add("type = ?", string(*q.Type))
	}
	if q.UnreadOnly {
		w.clauses = append(w.clauses, "NOT is_read")
	}

	query := `SELECT ` + alertColumns + ` FROM alerts` + w.String() + ` ORDER BY created_at DESC`
	args := w.args
	if q.Limit > 0 {
		args = append(args, q.Limit)
		query += ` LIMIT $` + strconv.Itoa(len(args))
	}

	rows, err := r.db.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query alerts: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var alerts []*models.Alert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

func (r *AlertRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Alert, error) {
	a, err := scanAlert(r.db.DB().QueryRowContext(ctx, `SELECT `+alertColumns+` FROM alerts WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, inventorydomain.ErrAlertNotFound
		}
		return nil, fmt.Errorf("query alert: %w", err)
	}
	return a, nil
}

func (r *AlertRepository) MarkRead(ctx context.Context, id, userID uuid.UUID) error {
	res, err := r.db.DB().ExecContext(ctx, `
		UPDATE alerts
		SET is_read = TRUE,
		    read_by = CASE WHEN $2::uuid = ANY(read_by) THEN read_by ELSE array_append(read_by, $2::uuid) END
		WHERE id = $1`, id, userID)
	if err != nil {
		return fmt.Errorf("mark alert read: %w", err)
	}
	return requireRow(res, inventorydomain.ErrAlertNotFound)
}

func (r *AlertRepository) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	res, err := r.db.DB().ExecContext(ctx,
		`DELETE FROM alerts WHERE expires_at IS NOT NULL AND expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired alerts: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return int(n), nil
}
