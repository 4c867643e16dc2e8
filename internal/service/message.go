package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/target/notifyd/internal/cachekey"
	"github.com/target/notifyd/internal/core"
	"github.com/target/notifyd/internal/domain/model"
)

// MessageEventListener is told when a subscriber's message state changes.
type MessageEventListener interface {
	OnMessageSeen(ctx context.Context, d cachekey.Dimensions) error
	OnMessageRead(ctx context.Context, d cachekey.Dimensions) error
	InvalidateSubscriber(ctx context.Context, d cachekey.Dimensions) error
}

// MessageServiceOptions groups dependencies for MessageService.
type MessageServiceOptions struct {
	Repo   core.MessageRepository // Required
	Cache  MessageEventListener   // Required
	Logger *slog.Logger
}

// MessageService mutates message state and evicts the affected cached counts before returning.
type MessageService struct {
	repo   core.MessageRepository
	cache  MessageEventListener
	logger *slog.Logger
}

// NewMessageService constructs a MessageService.
func NewMessageService(opts MessageServiceOptions) (*MessageService, error) {
	if opts.Repo == nil {
		return nil, errors.New("MessageRepository is required")
	}
	if opts.Cache == nil {
		return nil, errors.New("MessageEventListener is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &MessageService{
		repo:   opts.Repo,
		cache:  opts.Cache,
		logger: logger.With("component", "message_service"),
	}, nil
}

// Create inserts a message and evicts the subscriber's cached counts.
func (s *MessageService) Create(ctx context.Context, req *model.CreateMessageRequest) (*model.Message, error) {
	msg, err := s.repo.Create(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("create message: %w", err)
	}
	d := cachekey.Dimensions{EnvironmentID: msg.EnvironmentID, SubscriberID: msg.SubscriberID}
	if err := s.cache.InvalidateSubscriber(ctx, d); err != nil {
		return msg, fmt.Errorf("create message: %w", err)
	}
	return msg, nil
}

// MarkSeen sets the seen flag. It reports whether the flag changed. Cached counts are evicted
// on every call so a retry after a failed eviction still clears them.
func (s *MessageService) MarkSeen(ctx context.Context, ref model.MessageRef) (bool, error) {
	changed, err := s.repo.MarkSeen(ctx, ref)
	if err != nil {
		return false, fmt.Errorf("mark message seen: %w", err)
	}
	if err := s.cache.OnMessageSeen(ctx, dimensionsOf(ref)); err != nil {
		return changed, fmt.Errorf("mark message seen: %w", err)
	}
	s.logger.DebugContext(ctx, "message marked seen", "message_id", ref.MessageID, "changed", changed)
	return changed, nil
}

// MarkRead sets the read flag. The seen flag is left as it is.
func (s *MessageService) MarkRead(ctx context.Context, ref model.MessageRef) (bool, error) {
	changed, err := s.repo.MarkRead(ctx, ref)
	if err != nil {
		return false, fmt.Errorf("mark message read: %w", err)
	}
	if err := s.cache.OnMessageRead(ctx, dimensionsOf(ref)); err != nil {
		return changed, fmt.Errorf("mark message read: %w", err)
	}
	s.logger.DebugContext(ctx, "message marked read", "message_id", ref.MessageID, "changed", changed)
	return changed, nil
}

func dimensionsOf(ref model.MessageRef) cachekey.Dimensions {
	return cachekey.Dimensions{EnvironmentID: ref.EnvironmentID, SubscriberID: ref.SubscriberID}
}
