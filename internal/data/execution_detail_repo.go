package data

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/target/notifyd/internal/data/pgxutil"
	"github.com/target/notifyd/internal/domain/model"
	apperrors "github.com/target/notifyd/internal/errors"
)

var executionDetailColumns = []string{
	"id",
	"job_id",
	"organization_id",
	"environment_id",
	"subscriber_id",
	"transaction_id",
	"channel",
	"detail",
	"source",
	"status",
	"is_test",
	"is_retry",
	"raw",
	"created_at",
}

// ExecutionDetailRepo persists execution details. Rows are append-only.
type ExecutionDetailRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
	newID        func() string
	logger       *slog.Logger
}

// NewExecutionDetailRepo creates a new ExecutionDetailRepo.
func NewExecutionDetailRepo(db *sql.DB, cfg RepoConfig) *ExecutionDetailRepo {
	tp := clockOrSystem(cfg.TimeProvider)
	newID := cfg.IDGenerator
	if newID == nil {
		newID = newUUID
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &ExecutionDetailRepo{
		DB:           db,
		timeProvider: tp,
		newID:        newID,
		logger:       logger.With("component", "execution_detail_repo"),
	}
}

func (r *ExecutionDetailRepo) copyRows(specs []model.ExecutionDetailSpec) [][]any {
	now := r.timeProvider.Now().UTC()
	rows := make([][]any, len(specs))
	for i := range specs {
		s := &specs[i]
		var raw any
		if len(s.Raw) > 0 {
			raw = []byte(s.Raw)
		}
		rows[i] = []any{
			r.newID(), s.JobID, s.OrganizationID, s.EnvironmentID, s.SubscriberID, s.TransactionID,
			string(s.Channel), string(s.Detail), string(s.Source), string(s.Status),
			s.IsTest, s.IsRetry, raw, now,
		}
	}
	return rows
}

// BulkInsert writes all specs with a single COPY. It returns the number of rows written.
func (r *ExecutionDetailRepo) BulkInsert(ctx context.Context, specs []model.ExecutionDetailSpec) (int, error) {
	if len(specs) == 0 {
		return 0, nil
	}
	rows := r.copyRows(specs)

	copied, err := pgxutil.CopyFrom(ctx, r.DB, pgxutil.CopySpec{
		Table:   "execution_details",
		Columns: executionDetailColumns,
		Rows:    rows,
	})
	if err != nil {
		return 0, apperrors.AuditWrite(apperrors.MapDBError(err), "copy execution details")
	}
	return int(copied), nil
}

// ListByJob returns the execution details of a job in creation order.
func (r *ExecutionDetailRepo) ListByJob(ctx context.Context, jobID string) ([]*model.ExecutionDetail, error) {
	if jobID == "" {
		return nil, jobIDRequired()
	}
	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, job_id, organization_id, environment_id, subscriber_id, transaction_id,
		       channel, detail, source, status, is_test, is_retry, raw, created_at
		FROM execution_details
		WHERE job_id = $1
		ORDER BY created_at ASC, id ASC
	`, jobID)
	if err != nil {
		return nil, fmt.Errorf("list execution details: %w", apperrors.MapDBError(err))
	}
	defer rows.Close()

	var out []*model.ExecutionDetail
	for rows.Next() {
		var (
			d                               model.ExecutionDetail
			channel, detail, source, status string
			raw                             []byte
		)
		if err := rows.Scan(
			&d.ID, &d.JobID, &d.OrganizationID, &d.EnvironmentID, &d.SubscriberID, &d.TransactionID,
			&channel, &detail, &source, &status, &d.IsTest, &d.IsRetry, &raw, &d.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan execution detail: %w", err)
		}
		d.Channel = model.StepType(channel)
		d.Detail = model.DetailEnum(detail)
		d.Source = model.ExecutionDetailSource(source)
		d.Status = model.ExecutionDetailStatus(status)
		if len(raw) > 0 {
			d.Raw = append([]byte(nil), raw...)
		}
		d.CreatedAt = d.CreatedAt.UTC()
		out = append(out, &d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate execution details: %w", err)
	}
	return out, nil
}
