package model

import (
	"strings"
	"time"

	apperrors "github.com/target/notifyd/internal/errors"
)

// Message is a delivered in-app notification. The queue consumer creates messages;
// this service only reads them and flips their seen/read flags.
type Message struct {
	ID            string     `json:"id"                db:"id"`
	EnvironmentID string     `json:"environment_id"    db:"environment_id"`
	SubscriberID  string     `json:"subscriber_id"     db:"subscriber_id"`
	JobID         *string    `json:"job_id,omitempty"  db:"job_id"`
	Channel       StepType   `json:"channel"           db:"channel"`
	Seen          bool       `json:"seen"              db:"seen"`
	Read          bool       `json:"read"              db:"read"`
	SeenAt        *time.Time `json:"seen_at,omitempty" db:"seen_at"`
	ReadAt        *time.Time `json:"read_at,omitempty" db:"read_at"`
	CreatedAt     time.Time  `json:"created_at"        db:"created_at"`
}

// CreateMessageRequest is used to insert a message, mainly for seeding and tests.
type CreateMessageRequest struct {
	EnvironmentID string   `json:"environment_id"`
	SubscriberID  string   `json:"subscriber_id"`
	JobID         *string  `json:"job_id,omitempty"`
	Channel       StepType `json:"channel"`
}

// Validate validates the CreateMessageRequest.
func (r *CreateMessageRequest) Validate() error {
	if strings.TrimSpace(r.EnvironmentID) == "" {
		return apperrors.ValidationField("environment_id", "environment_id is required")
	}
	if strings.TrimSpace(r.SubscriberID) == "" {
		return apperrors.ValidationField("subscriber_id", "subscriber_id is required")
	}
	if r.Channel == "" {
		r.Channel = StepTypeInApp
	}
	if !r.Channel.IsChannel() {
		return apperrors.ValidationField("channel", "channel must be a delivery channel")
	}
	return nil
}

// MessageRef addresses one message of one subscriber.
type MessageRef struct {
	EnvironmentID string
	SubscriberID  string
	MessageID     string
}

// Validate validates the MessageRef.
func (r MessageRef) Validate() error {
	if strings.TrimSpace(r.EnvironmentID) == "" {
		return apperrors.ValidationField("environment_id", "environment_id is required")
	}
	if strings.TrimSpace(r.SubscriberID) == "" {
		return apperrors.ValidationField("subscriber_id", "subscriber_id is required")
	}
	if strings.TrimSpace(r.MessageID) == "" {
		return apperrors.ValidationField("message_id", "message_id is required")
	}
	return nil
}
