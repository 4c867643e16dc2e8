package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/target/notifyd/internal/core"
	"github.com/target/notifyd/internal/data/database"
	"github.com/target/notifyd/internal/data/pgxutil"
	"github.com/target/notifyd/internal/domain/model"
	apperrors "github.com/target/notifyd/internal/errors"
)

func newUUID() string { return uuid.NewString() }

func jobIDRequired() error {
	return &apperrors.AppError{Code: apperrors.ErrCodeValidation, Message: ErrJobIDRequired.Error(), Field: "job_id", Cause: ErrJobIDRequired}
}

// buildJobs turns specs into jobs with generated ids and timestamps, preserving input order.
func (r *JobRepo) buildJobs(specs []model.JobSpec) []*model.Job {
	now := r.timeProvider.Now().UTC()
	jobs := make([]*model.Job, len(specs))
	for i := range specs {
		s := &specs[i]
		payload := cloneJSON(s.Payload)
		jobs[i] = &model.Job{
			ID:             r.newID(),
			OrganizationID: s.OrganizationID,
			EnvironmentID:  s.EnvironmentID,
			SubscriberID:   s.SubscriberID,
			UserID:         s.UserID,
			TransactionID:  s.TransactionID,
			TemplateID:     s.TemplateID,
			Type:           s.Type,
			Payload:        payload,
			Status:         model.JobStatusPending,
			BatchIndex:     i,
			IsTest:         s.IsTest,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
	}
	return jobs
}

// buildInsertQuery builds one multi-row INSERT for the whole batch.
func buildInsertQuery(jobs []*model.Job) (string, []any) {
	const perRow = 14
	var q strings.Builder
	q.WriteString(`INSERT INTO jobs (
		id, organization_id, environment_id, subscriber_id, user_id, transaction_id,
		template_id, type, payload, status, batch_index, is_test, created_at, updated_at
	) VALUES `)

	args := make([]any, 0, len(jobs)*perRow)
	for i, j := range jobs {
		if i > 0 {
			q.WriteString(", ")
		}
		q.WriteString("(")
		for c := range perRow {
			if c > 0 {
				q.WriteString(", ")
			}
			fmt.Fprintf(&q, "$%d", i*perRow+c+1)
		}
		q.WriteString(")")
		args = append(args,
			j.ID, j.OrganizationID, j.EnvironmentID, j.SubscriberID, j.UserID, j.TransactionID,
			nullableString(j.TemplateID), string(j.Type), []byte(j.Payload), string(j.Status),
			j.BatchIndex, j.IsTest, j.CreatedAt, j.UpdatedAt,
		)
	}
	return q.String(), args
}

// StoreJobs persists the batch in one transaction and returns the stored jobs in input order.
// Nothing is written if any row fails.
func (r *JobRepo) StoreJobs(ctx context.Context, specs []model.JobSpec) ([]*model.Job, error) {
	if _, err := model.ValidateBatch(specs); err != nil {
		return nil, err
	}

	jobs := r.buildJobs(specs)
	query, args := buildInsertQuery(jobs)

	err := pgxutil.WithSQLTx(ctx, r.DB, pgxutil.SQLTxConfig{
		Fn: func(tx *sql.Tx) error {
			res, err := tx.ExecContext(ctx, query, args...)
			if err != nil {
				return err
			}
			n, err := res.RowsAffected()
			if err != nil {
				return err
			}
			if int(n) != len(jobs) {
				return fmt.Errorf("inserted %d of %d jobs", n, len(jobs))
			}
			return nil
		},
	})
	if err != nil {
		return nil, apperrors.Persistence(apperrors.MapDBError(err), "store jobs")
	}

	r.logger.DebugContext(ctx, "stored job batch",
		"count", len(jobs),
		"environment_id", jobs[0].EnvironmentID,
		"subscriber_id", jobs[0].SubscriberID,
		"transaction_id", jobs[0].TransactionID,
	)
	return jobs, nil
}

// GetByID retrieves a job by its ID.
func (r *JobRepo) GetByID(ctx context.Context, id string) (*model.Job, error) {
	if strings.TrimSpace(id) == "" {
		return nil, jobIDRequired()
	}
	row := r.DB.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id)
	job, err := scanJobFromRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &apperrors.AppError{Code: apperrors.ErrCodeNotFound, Message: "job not found", Cause: ErrJobNotFound}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", apperrors.MapDBError(err))
	}
	return job, nil
}

// MarkQueued moves a pending job to queued and stamps dispatched_at.
// It returns false when the job is not pending anymore, which makes repeated dispatch safe.
func (r *JobRepo) MarkQueued(ctx context.Context, id string) (bool, error) {
	if strings.TrimSpace(id) == "" {
		return false, jobIDRequired()
	}
	now := r.timeProvider.Now().UTC()
	res, err := r.DB.ExecContext(ctx, `
		UPDATE jobs
		SET status = $2, dispatched_at = $3, updated_at = $3
		WHERE id = $1 AND status = $4
	`, id, string(model.JobStatusQueued), now, string(model.JobStatusPending))
	if err != nil {
		return false, fmt.Errorf("mark job queued: %w", apperrors.MapDBError(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark job queued rows: %w", err)
	}
	return n > 0, nil
}

// ListUndispatched returns first-of-batch jobs that are still pending after opts.OlderThan.
func (r *JobRepo) ListUndispatched(ctx context.Context, opts core.ListUndispatchedOptions) ([]*model.Job, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 100
	}
	cutoff := r.timeProvider.Now().UTC().Add(-opts.OlderThan)

	query, args := database.BuildListQuery(database.NewListQueryOptions("jobs",
		database.WithColumns(jobColumnList...),
		database.WithCondition(database.WhereCond("batch_index", database.Equal, 0)),
		database.WithCondition(database.WhereCond("status", database.Equal, string(model.JobStatusPending))),
		database.WithCondition(database.WhereCond("created_at", database.LessThan, cutoff)),
		database.WithOrderBy("created_at", "ASC"),
		database.WithLimit(limit),
	))

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list undispatched jobs: %w", apperrors.MapDBError(err))
	}
	defer rows.Close()

	var jobs []*model.Job
	for rows.Next() {
		job, scanErr := scanJobFromRow(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scan job: %w", scanErr)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate jobs: %w", err)
	}
	return jobs, nil
}
