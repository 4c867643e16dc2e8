package data

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/target/notifyd/internal/domain/model"
)

// ErrJobNotFound is returned when a job is not found.
var ErrJobNotFound = errors.New("job not found")

// RepoConfig holds configuration options for the SQL repositories.
type RepoConfig struct {
	Logger       *slog.Logger
	TimeProvider TimeProvider
	// IDGenerator overrides id generation; tests use it for deterministic ids.
	IDGenerator func() string
}

// JobRepo provides database operations for job management.
type JobRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
	newID        func() string
	logger       *slog.Logger
}

// NewJobRepo creates a new JobRepo instance with the given database connection and configuration.
func NewJobRepo(db *sql.DB, cfg RepoConfig) *JobRepo {
	tp := clockOrSystem(cfg.TimeProvider)
	newID := cfg.IDGenerator
	if newID == nil {
		newID = newUUID
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &JobRepo{
		DB:           db,
		timeProvider: tp,
		newID:        newID,
		logger:       logger.With("component", "job_repo"),
	}
}

var jobColumnList = []string{
	"id",
	"organization_id",
	"environment_id",
	"subscriber_id",
	"user_id",
	"transaction_id",
	"template_id",
	"type",
	"payload",
	"status",
	"batch_index",
	"is_test",
	"dispatched_at",
	"created_at",
	"updated_at",
}

var jobColumns = strings.Join(jobColumnList, ", ")

type jobRowScanner interface {
	Scan(dest ...any) error
}

type jobRowData struct {
	jobType, status string
	payload         []byte
	templateID      sql.NullString
	dispatchedAt    sql.NullTime
}

func (d *jobRowData) scanInto(scanner jobRowScanner, job *model.Job) error {
	return scanner.Scan(
		&job.ID,
		&job.OrganizationID,
		&job.EnvironmentID,
		&job.SubscriberID,
		&job.UserID,
		&job.TransactionID,
		&d.templateID,
		&d.jobType,
		&d.payload,
		&d.status,
		&job.BatchIndex,
		&job.IsTest,
		&d.dispatchedAt,
		&job.CreatedAt,
		&job.UpdatedAt,
	)
}

func (d *jobRowData) apply(job *model.Job) {
	job.Type = model.StepType(d.jobType)
	job.Status = model.JobStatus(d.status)
	job.Payload = cloneJSON(d.payload)
	job.TemplateID = cloneNullableString(d.templateID)
	job.DispatchedAt = cloneNullableTime(d.dispatchedAt)
	job.CreatedAt = job.CreatedAt.UTC()
	job.UpdatedAt = job.UpdatedAt.UTC()
}

func scanJobFromRow(scanner jobRowScanner) (*model.Job, error) {
	job := &model.Job{}
	var data jobRowData
	if err := data.scanInto(scanner, job); err != nil {
		return nil, err
	}
	data.apply(job)
	return job, nil
}

func cloneJSON(raw []byte) json.RawMessage {
	if len(raw) == 0 {
		return json.RawMessage(`{}`)
	}
	return append(json.RawMessage(nil), raw...)
}

func cloneNullableString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func cloneNullableTime(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time.UTC()
	return &t
}

func nullableString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
