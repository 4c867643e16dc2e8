// Package testutil provides testing utilities and helpers for the notification pipeline.
package testutil

import (
	"encoding/json"
	"fmt"

	"github.com/target/notifyd/internal/domain/model"
)

// JobSpecBuilder provides a fluent interface for building JobSpec values for testing.
type JobSpecBuilder struct {
	spec model.JobSpec
}

// NewJobSpec creates a JobSpecBuilder with sensible defaults.
func NewJobSpec() *JobSpecBuilder {
	return &JobSpecBuilder{
		spec: model.JobSpec{
			OrganizationID: "org-1",
			EnvironmentID:  "env-1",
			SubscriberID:   "sub-1",
			UserID:         "user-1",
			TransactionID:  "txn-1",
			Type:           model.StepTypeInApp,
			Payload:        json.RawMessage(`{"title":"hello"}`),
		},
	}
}

// WithTenant sets the organization and environment.
func (b *JobSpecBuilder) WithTenant(orgID, envID string) *JobSpecBuilder {
	b.spec.OrganizationID = orgID
	b.spec.EnvironmentID = envID
	return b
}

// WithSubscriber sets the subscriber id.
func (b *JobSpecBuilder) WithSubscriber(subscriberID string) *JobSpecBuilder {
	b.spec.SubscriberID = subscriberID
	return b
}

// WithTransaction sets the transaction id.
func (b *JobSpecBuilder) WithTransaction(txnID string) *JobSpecBuilder {
	b.spec.TransactionID = txnID
	return b
}

// WithType sets the step type.
func (b *JobSpecBuilder) WithType(t model.StepType) *JobSpecBuilder {
	b.spec.Type = t
	return b
}

// WithTemplate sets the template id.
func (b *JobSpecBuilder) WithTemplate(templateID string) *JobSpecBuilder {
	b.spec.TemplateID = &templateID
	return b
}

// WithPayloadString sets the payload from a string.
func (b *JobSpecBuilder) WithPayloadString(payload string) *JobSpecBuilder {
	b.spec.Payload = json.RawMessage(payload)
	return b
}

// AsTest marks the job as a test job.
func (b *JobSpecBuilder) AsTest() *JobSpecBuilder {
	b.spec.IsTest = true
	return b
}

// Build returns the constructed JobSpec.
func (b *JobSpecBuilder) Build() model.JobSpec {
	return b.spec
}

// Batch returns a workflow batch: the first step followed by types[1:], sharing tenant,
// subscriber and transaction.
func (b *JobSpecBuilder) Batch(types ...model.StepType) []model.JobSpec {
	if len(types) == 0 {
		return []model.JobSpec{b.spec}
	}
	out := make([]model.JobSpec, 0, len(types))
	for _, t := range types {
		s := b.spec
		s.Type = t
		out = append(out, s)
	}
	return out
}

// NewMessage returns a CreateMessageRequest for the subscriber, optionally tied to a job.
func NewMessage(envID, subscriberID string, jobID *string) *model.CreateMessageRequest {
	return &model.CreateMessageRequest{
		EnvironmentID: envID,
		SubscriberID:  subscriberID,
		JobID:         jobID,
		Channel:       model.StepTypeInApp,
	}
}

// Subscribers returns n distinct subscriber ids with the given prefix.
func Subscribers(prefix string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("%s-%d", prefix, i+1)
	}
	return out
}
