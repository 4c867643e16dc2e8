package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/target/notifyd/internal/errors"
)

func validSpec(t StepType) JobSpec {
	return JobSpec{
		OrganizationID: "org-1",
		EnvironmentID:  "env-1",
		SubscriberID:   "sub-1",
		UserID:         "user-1",
		TransactionID:  "txn-1",
		Type:           t,
		Payload:        json.RawMessage(`{"k":"v"}`),
	}
}

func TestStepType_Valid(t *testing.T) {
	for _, st := range []StepType{
		StepTypeInApp, StepTypeEmail, StepTypeSMS, StepTypePush, StepTypeChat,
		StepTypeDigest, StepTypeDelay, StepTypeTrigger,
	} {
		assert.True(t, st.Valid(), st)
	}
	assert.False(t, StepType("fax").Valid())
}

func TestStepType_IsChannel(t *testing.T) {
	assert.True(t, StepTypeInApp.IsChannel())
	assert.True(t, StepTypeEmail.IsChannel())
	assert.False(t, StepTypeDigest.IsChannel())
	assert.False(t, StepTypeDelay.IsChannel())
}

func TestStepType_UnmarshalText(t *testing.T) {
	var st StepType
	require.NoError(t, st.UnmarshalText([]byte(" SMS ")))
	assert.Equal(t, StepTypeSMS, st)

	err := st.UnmarshalText([]byte("carrier-pigeon"))
	require.Error(t, err)
}

func TestJobSpec_Validate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*JobSpec)
		wantField string
	}{
		{name: "valid", mutate: func(*JobSpec) {}},
		{name: "missing organization", mutate: func(s *JobSpec) { s.OrganizationID = " " }, wantField: "organization_id"},
		{name: "missing environment", mutate: func(s *JobSpec) { s.EnvironmentID = "" }, wantField: "environment_id"},
		{name: "missing subscriber", mutate: func(s *JobSpec) { s.SubscriberID = "" }, wantField: "subscriber_id"},
		{name: "unknown type", mutate: func(s *JobSpec) { s.Type = "fax" }, wantField: "type"},
		{name: "invalid payload", mutate: func(s *JobSpec) { s.Payload = json.RawMessage(`{`) }, wantField: "payload"},
		{name: "empty payload allowed", mutate: func(s *JobSpec) { s.Payload = nil }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := validSpec(StepTypeInApp)
			tt.mutate(&spec)
			err := spec.Validate()
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, apperrors.IsValidation(err))
			assert.Equal(t, tt.wantField, apperrors.GetField(err))
		})
	}
}

func TestValidateBatch(t *testing.T) {
	t.Run("empty batch", func(t *testing.T) {
		_, err := ValidateBatch(nil)
		require.Error(t, err)
		assert.True(t, apperrors.IsValidation(err))
	})

	t.Run("shared tenant", func(t *testing.T) {
		tenant, err := ValidateBatch([]JobSpec{validSpec(StepTypeInApp), validSpec(StepTypeEmail)})
		require.NoError(t, err)
		assert.Equal(t, Tenant{OrganizationID: "org-1", EnvironmentID: "env-1", SubscriberID: "sub-1"}, tenant)
	})

	t.Run("mixed subscribers", func(t *testing.T) {
		other := validSpec(StepTypeEmail)
		other.SubscriberID = "sub-2"
		_, err := ValidateBatch([]JobSpec{validSpec(StepTypeInApp), other})
		require.Error(t, err)
		assert.True(t, apperrors.IsValidation(err))
	})

	t.Run("mixed environments", func(t *testing.T) {
		other := validSpec(StepTypeEmail)
		other.EnvironmentID = "env-2"
		_, err := ValidateBatch([]JobSpec{validSpec(StepTypeInApp), other})
		require.Error(t, err)
	})

	t.Run("invalid member", func(t *testing.T) {
		bad := validSpec("fax")
		_, err := ValidateBatch([]JobSpec{validSpec(StepTypeInApp), bad})
		require.Error(t, err)
		assert.True(t, apperrors.IsValidation(err))
		assert.Contains(t, err.Error(), "job 1")
	})
}

func TestNewDispatchMessage(t *testing.T) {
	job := &Job{
		ID:             "job-1",
		OrganizationID: "org-1",
		EnvironmentID:  "env-1",
		SubscriberID:   "sub-1",
		UserID:         "user-1",
		Type:           StepTypeInApp,
	}
	msg := NewDispatchMessage(job)
	assert.Equal(t, "job-1", msg.JobID)
	assert.Equal(t, "org-1", msg.OrganizationID)
	assert.Equal(t, "env-1", msg.EnvironmentID)
	assert.Equal(t, "user-1", msg.UserID)
	assert.Equal(t, "sub-1", msg.SubscriberID)
	assert.Same(t, job, msg.Job)
}

func TestDetailsFromJob(t *testing.T) {
	job := &Job{
		ID:             "job-1",
		OrganizationID: "org-1",
		EnvironmentID:  "env-1",
		SubscriberID:   "sub-1",
		TransactionID:  "txn-1",
		Type:           StepTypeSMS,
	}
	p := DetailParams{
		Detail: DetailStepCreated,
		Source: SourceInternal,
		Status: DetailStatusPending,
		IsTest: true,
	}

	got := DetailsFromJob(job, p)
	assert.Equal(t, ExecutionDetailSpec{
		JobID:          "job-1",
		OrganizationID: "org-1",
		EnvironmentID:  "env-1",
		SubscriberID:   "sub-1",
		TransactionID:  "txn-1",
		Channel:        StepTypeSMS,
		Detail:         DetailStepCreated,
		Source:         SourceInternal,
		Status:         DetailStatusPending,
		IsTest:         true,
	}, got)
	assert.Equal(t, got, DetailsFromJob(job, p))
}
