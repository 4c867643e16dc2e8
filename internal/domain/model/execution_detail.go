package model

import (
	"encoding/json"
	"time"
)

// DetailEnum names the lifecycle event an execution detail records.
type DetailEnum string

// ExecutionDetailSource names where an execution detail originated.
type ExecutionDetailSource string

// ExecutionDetailStatus is the outcome recorded by an execution detail.
type ExecutionDetailStatus string

const (
	DetailStepCreated        DetailEnum = "Step created"
	DetailStepQueued         DetailEnum = "Step queued"
	DetailStepDispatchFailed DetailEnum = "Step dispatch failed"

	SourceInternal    ExecutionDetailSource = "Internal"
	SourceExternal    ExecutionDetailSource = "External"
	SourceCredentials ExecutionDetailSource = "Credentials"
	SourcePayload     ExecutionDetailSource = "Payload"
	SourceWebhook     ExecutionDetailSource = "Webhook"

	DetailStatusPending ExecutionDetailStatus = "Pending"
	DetailStatusSuccess ExecutionDetailStatus = "Success"
	DetailStatusFailed  ExecutionDetailStatus = "Failed"
	DetailStatusWarning ExecutionDetailStatus = "Warning"
	DetailStatusQueued  ExecutionDetailStatus = "Queued"
)

// ExecutionDetail is an immutable audit record describing a job lifecycle transition.
type ExecutionDetail struct {
	ID             string                `json:"id"              db:"id"`
	JobID          string                `json:"job_id"          db:"job_id"`
	OrganizationID string                `json:"organization_id" db:"organization_id"`
	EnvironmentID  string                `json:"environment_id"  db:"environment_id"`
	SubscriberID   string                `json:"subscriber_id"   db:"subscriber_id"`
	TransactionID  string                `json:"transaction_id"  db:"transaction_id"`
	Channel        StepType              `json:"channel"         db:"channel"`
	Detail         DetailEnum            `json:"detail"          db:"detail"`
	Source         ExecutionDetailSource `json:"source"          db:"source"`
	Status         ExecutionDetailStatus `json:"status"          db:"status"`
	IsTest         bool                  `json:"is_test"         db:"is_test"`
	IsRetry        bool                  `json:"is_retry"        db:"is_retry"`
	Raw            json.RawMessage       `json:"raw,omitempty"   db:"raw"`
	CreatedAt      time.Time             `json:"created_at"      db:"created_at"`
}

// ExecutionDetailSpec describes an execution detail to append.
type ExecutionDetailSpec struct {
	JobID          string
	OrganizationID string
	EnvironmentID  string
	SubscriberID   string
	TransactionID  string
	Channel        StepType
	Detail         DetailEnum
	Source         ExecutionDetailSource
	Status         ExecutionDetailStatus
	IsTest         bool
	IsRetry        bool
	Raw            json.RawMessage
}

// DetailParams are the caller-supplied parts of an execution detail.
type DetailParams struct {
	Detail  DetailEnum
	Source  ExecutionDetailSource
	Status  ExecutionDetailStatus
	IsTest  bool
	IsRetry bool
	Raw     json.RawMessage
}

// DetailsFromJob derives an execution detail spec from a stored job.
// Tenant identifiers, job id, transaction and channel are copied from the job.
func DetailsFromJob(job *Job, p DetailParams) ExecutionDetailSpec {
	return ExecutionDetailSpec{
		JobID:          job.ID,
		OrganizationID: job.OrganizationID,
		EnvironmentID:  job.EnvironmentID,
		SubscriberID:   job.SubscriberID,
		TransactionID:  job.TransactionID,
		Channel:        job.Type,
		Detail:         p.Detail,
		Source:         p.Source,
		Status:         p.Status,
		IsTest:         p.IsTest,
		IsRetry:        p.IsRetry,
		Raw:            p.Raw,
	}
}

// BulkExecutionDetails groups the details of one job batch for a single append.
type BulkExecutionDetails struct {
	OrganizationID string
	EnvironmentID  string
	SubscriberID   string
	Details        []ExecutionDetailSpec
}
