// Package model defines the core data types shared by the job pipeline and the feed count cache.
package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	apperrors "github.com/target/notifyd/internal/errors"
)

// StepType is the kind of workflow step a job executes; for delivery steps it names the channel.
//
//nolint:recvcheck // UnmarshalText needs pointer receiver, Valid needs value receiver
type StepType string

// JobStatus represents the current status of a job.
type JobStatus string

const (
	StepTypeInApp   StepType = "in_app"
	StepTypeEmail   StepType = "email"
	StepTypeSMS     StepType = "sms"
	StepTypePush    StepType = "push"
	StepTypeChat    StepType = "chat"
	StepTypeDigest  StepType = "digest"
	StepTypeDelay   StepType = "delay"
	StepTypeTrigger StepType = "trigger"

	// JobStatusPending indicates a job is stored but not yet handed to the queue.
	JobStatusPending JobStatus = "pending"
	// JobStatusQueued indicates a job has been placed on the processing queue.
	JobStatusQueued JobStatus = "queued"
	// JobStatusCompleted indicates the queue consumer finished the job.
	JobStatusCompleted JobStatus = "completed"
	// JobStatusFailed indicates the queue consumer gave up on the job.
	JobStatusFailed JobStatus = "failed"
)

// UnmarshalText implements encoding.TextUnmarshaler so step types can be read from JSON and env.
func (t *StepType) UnmarshalText(text []byte) error {
	v := StepType(strings.ToLower(strings.TrimSpace(string(text))))
	if !v.Valid() {
		return fmt.Errorf("invalid step type: %q", v)
	}
	*t = v
	return nil
}

// Valid returns true if the StepType is known.
func (t StepType) Valid() bool {
	switch t {
	case StepTypeInApp, StepTypeEmail, StepTypeSMS, StepTypePush, StepTypeChat,
		StepTypeDigest, StepTypeDelay, StepTypeTrigger:
		return true
	default:
		return false
	}
}

// IsChannel reports whether the step delivers a message on a channel.
func (t StepType) IsChannel() bool {
	switch t {
	case StepTypeInApp, StepTypeEmail, StepTypeSMS, StepTypePush, StepTypeChat:
		return true
	default:
		return false
	}
}

// Valid returns true if the JobStatus is valid.
func (s JobStatus) Valid() bool {
	return s == JobStatusPending || s == JobStatusQueued || s == JobStatusCompleted ||
		s == JobStatusFailed
}

// Job is one unit of per-channel or per-step work derived from a workflow trigger.
type Job struct {
	ID             string          `json:"id"                      db:"id"`
	OrganizationID string          `json:"organization_id"         db:"organization_id"`
	EnvironmentID  string          `json:"environment_id"          db:"environment_id"`
	SubscriberID   string          `json:"subscriber_id"           db:"subscriber_id"`
	UserID         string          `json:"user_id"                 db:"user_id"`
	TransactionID  string          `json:"transaction_id"          db:"transaction_id"`
	TemplateID     *string         `json:"template_id,omitempty"   db:"template_id"`
	Type           StepType        `json:"type"                    db:"type"`
	Payload        json.RawMessage `json:"payload"                 db:"payload"`
	Status         JobStatus       `json:"status"                  db:"status"`
	BatchIndex     int             `json:"batch_index"             db:"batch_index"`
	IsTest         bool            `json:"is_test"                 db:"is_test"`
	DispatchedAt   *time.Time      `json:"dispatched_at,omitempty" db:"dispatched_at"`
	CreatedAt      time.Time       `json:"created_at"              db:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"              db:"updated_at"`
}

// JobSpec describes a job to be stored. Identifiers, status and timestamps are generated by the store.
type JobSpec struct {
	OrganizationID string          `json:"organization_id"`
	EnvironmentID  string          `json:"environment_id"`
	SubscriberID   string          `json:"subscriber_id"`
	UserID         string          `json:"user_id"`
	TransactionID  string          `json:"transaction_id"`
	TemplateID     *string         `json:"template_id,omitempty"`
	Type           StepType        `json:"type"`
	Payload        json.RawMessage `json:"payload,omitempty"`
	IsTest         bool            `json:"is_test,omitempty"`
}

// Validate validates a single JobSpec.
func (s *JobSpec) Validate() error {
	if strings.TrimSpace(s.OrganizationID) == "" {
		return apperrors.ValidationField("organization_id", "organization_id is required")
	}
	if strings.TrimSpace(s.EnvironmentID) == "" {
		return apperrors.ValidationField("environment_id", "environment_id is required")
	}
	if strings.TrimSpace(s.SubscriberID) == "" {
		return apperrors.ValidationField("subscriber_id", "subscriber_id is required")
	}
	if !s.Type.Valid() {
		return apperrors.ValidationField("type", fmt.Sprintf("invalid step type: %q", s.Type))
	}
	if len(s.Payload) > 0 && !json.Valid(s.Payload) {
		return apperrors.ValidationField("payload", "payload must be valid JSON")
	}
	return nil
}

// Tenant groups the identifiers every job of a batch must share.
type Tenant struct {
	OrganizationID string
	EnvironmentID  string
	SubscriberID   string
}

// ValidateBatch enforces the batch invariants: non-empty, each spec valid,
// and every spec sharing the tenant identifiers of the first one.
func ValidateBatch(specs []JobSpec) (Tenant, error) {
	if len(specs) == 0 {
		return Tenant{}, apperrors.Validation("job batch must not be empty")
	}

	for i := range specs {
		if err := specs[i].Validate(); err != nil {
			return Tenant{}, apperrors.Wrapf(err, apperrors.ErrCodeValidation, "job %d", i)
		}
	}

	tenant := Tenant{
		OrganizationID: specs[0].OrganizationID,
		EnvironmentID:  specs[0].EnvironmentID,
		SubscriberID:   specs[0].SubscriberID,
	}
	for i := 1; i < len(specs); i++ {
		if specs[i].OrganizationID != tenant.OrganizationID ||
			specs[i].EnvironmentID != tenant.EnvironmentID ||
			specs[i].SubscriberID != tenant.SubscriberID {
			return Tenant{}, apperrors.Validationf("job %d does not share the batch tenant identifiers", i)
		}
	}
	return tenant, nil
}

// DispatchMessage is the queue payload emitted for a dispatched job.
type DispatchMessage struct {
	OrganizationID string `json:"organization_id"`
	EnvironmentID  string `json:"environment_id"`
	UserID         string `json:"user_id"`
	SubscriberID   string `json:"subscriber_id"`
	JobID          string `json:"job_id"`
	Job            *Job   `json:"job"`
}

// NewDispatchMessage builds the queue payload for a stored job.
func NewDispatchMessage(job *Job) DispatchMessage {
	return DispatchMessage{
		OrganizationID: job.OrganizationID,
		EnvironmentID:  job.EnvironmentID,
		UserID:         job.UserID,
		SubscriberID:   job.SubscriberID,
		JobID:          job.ID,
		Job:            job,
	}
}
