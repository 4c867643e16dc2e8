package data

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/target/notifyd/internal/data/database"
	"github.com/target/notifyd/internal/domain/model"
	apperrors "github.com/target/notifyd/internal/errors"
)

// MessageRepo reads and updates delivered in-app messages.
type MessageRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
	newID        func() string
	logger       *slog.Logger
}

// NewMessageRepo creates a new MessageRepo.
func NewMessageRepo(db *sql.DB, cfg RepoConfig) *MessageRepo {
	tp := clockOrSystem(cfg.TimeProvider)
	newID := cfg.IDGenerator
	if newID == nil {
		newID = newUUID
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &MessageRepo{
		DB:           db,
		timeProvider: tp,
		newID:        newID,
		logger:       logger.With("component", "message_repo"),
	}
}

// Create inserts a new unseen, unread message.
func (r *MessageRepo) Create(ctx context.Context, req *model.CreateMessageRequest) (*model.Message, error) {
	if req == nil {
		return nil, apperrors.Validation("message request is required")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	msg := &model.Message{
		ID:            r.newID(),
		EnvironmentID: req.EnvironmentID,
		SubscriberID:  req.SubscriberID,
		JobID:         req.JobID,
		Channel:       req.Channel,
		CreatedAt:     r.timeProvider.Now().UTC(),
	}
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO messages (id, environment_id, subscriber_id, job_id, channel, seen, read, created_at)
		VALUES ($1, $2, $3, $4, $5, FALSE, FALSE, $6)
	`, msg.ID, msg.EnvironmentID, msg.SubscriberID, nullableString(msg.JobID), string(msg.Channel), msg.CreatedAt)
	if err != nil {
		return nil, apperrors.Persistence(apperrors.MapDBError(err), "create message")
	}
	return msg, nil
}

// CountFeed counts the subscriber's in-app messages matching the seen/read filter.
// The count is bounded by q.Limit so large feeds are never fully scanned.
func (r *MessageRepo) CountFeed(ctx context.Context, q model.FeedCountQuery) (int, error) {
	opts := []database.ListQueryOption{
		database.WithCountOnly(),
		database.WithCondition(database.WhereCond("environment_id", database.Equal, q.EnvironmentID)),
		database.WithCondition(database.WhereCond("subscriber_id", database.Equal, q.SubscriberID)),
		database.WithCondition(database.WhereCond("channel", database.Equal, string(model.StepTypeInApp))),
	}
	if q.Seen != nil {
		opts = append(opts, database.WithCondition(database.WhereCond("seen", database.Equal, *q.Seen)))
	}
	if q.Read != nil {
		opts = append(opts, database.WithCondition(database.WhereCond("read", database.Equal, *q.Read)))
	}
	if q.Limit > 0 {
		opts = append(opts, database.WithLimit(q.Limit))
	}

	query, args := database.BuildListQuery(database.NewListQueryOptions("messages", opts...))

	var count int
	if err := r.DB.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count feed: %w", apperrors.MapDBError(err))
	}
	return count, nil
}

type flagUpdate struct {
	column    string
	timestamp string
}

var (
	seenUpdate = flagUpdate{column: "seen", timestamp: "seen_at"}
	readUpdate = flagUpdate{column: "read", timestamp: "read_at"}
)

func (r *MessageRepo) setFlag(ctx context.Context, ref model.MessageRef, u flagUpdate) (bool, error) {
	if err := ref.Validate(); err != nil {
		return false, err
	}
	query := fmt.Sprintf(`
		UPDATE messages
		SET %[1]s = TRUE, %[2]s = $4
		WHERE id = $1 AND environment_id = $2 AND subscriber_id = $3 AND %[1]s = FALSE
	`, u.column, u.timestamp)

	res, err := r.DB.ExecContext(ctx, query, ref.MessageID, ref.EnvironmentID, ref.SubscriberID, r.timeProvider.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("mark message %s: %w", u.column, apperrors.MapDBError(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark message %s rows: %w", u.column, err)
	}
	if n > 0 {
		return true, nil
	}
	return false, r.ensureExists(ctx, ref)
}

// ensureExists distinguishes "already flagged" from "no such message".
func (r *MessageRepo) ensureExists(ctx context.Context, ref model.MessageRef) error {
	var exists bool
	err := r.DB.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM messages WHERE id = $1 AND environment_id = $2 AND subscriber_id = $3)
	`, ref.MessageID, ref.EnvironmentID, ref.SubscriberID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check message: %w", apperrors.MapDBError(err))
	}
	if !exists {
		return apperrors.NotFoundf("message %s not found", ref.MessageID)
	}
	return nil
}

// MarkSeen sets the seen flag. It returns false if the message was already seen.
func (r *MessageRepo) MarkSeen(ctx context.Context, ref model.MessageRef) (bool, error) {
	return r.setFlag(ctx, ref, seenUpdate)
}

// MarkRead sets the read flag only; seen is left untouched. It returns false if the message was already read.
func (r *MessageRepo) MarkRead(ctx context.Context, ref model.MessageRef) (bool, error) {
	return r.setFlag(ctx, ref, readUpdate)
}
