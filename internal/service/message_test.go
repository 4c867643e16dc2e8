package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/target/notifyd/internal/cachekey"
	"github.com/target/notifyd/internal/domain/model"
	apperrors "github.com/target/notifyd/internal/errors"
	"github.com/target/notifyd/internal/mocks"
)

func messageRef() model.MessageRef {
	return model.MessageRef{EnvironmentID: "env-1", SubscriberID: "sub-1", MessageID: "msg-1"}
}

func newMessageService(t *testing.T) (*MessageService, *mocks.MockMessageRepository, *mocks.MockCacheRepository) {
	t.Helper()
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockMessageRepository(ctrl)
	cache := mocks.NewMockCacheRepository(ctrl)
	invalidator, err := NewInvalidateCacheService(InvalidateCacheServiceOptions{Cache: cache, Logger: discardLogger()})
	require.NoError(t, err)
	svc, err := NewMessageService(MessageServiceOptions{Repo: repo, Cache: invalidator, Logger: discardLogger()})
	require.NoError(t, err)
	return svc, repo, cache
}

func expectSubscriberEviction(cache *mocks.MockCacheRepository, after *gomock.Call) {
	d := cachekey.Dimensions{EnvironmentID: "env-1", SubscriberID: "sub-1"}
	cache.EXPECT().DeletePrefix(gomock.Any(), cachekey.NamespaceFeed.Pattern(d).Prefix()).Return(1, nil).After(after)
	cache.EXPECT().DeletePrefix(gomock.Any(), cachekey.NamespaceMessageCount.Pattern(d).Prefix()).Return(1, nil).After(after)
}

func TestNewMessageService_RequiresCollaborators(t *testing.T) {
	_, err := NewMessageService(MessageServiceOptions{})
	require.Error(t, err)
}

func TestMessageService_MarkSeenInvalidatesAfterUpdate(t *testing.T) {
	svc, repo, cache := newMessageService(t)
	update := repo.EXPECT().MarkSeen(gomock.Any(), messageRef()).Return(true, nil)
	expectSubscriberEviction(cache, update)

	changed, err := svc.MarkSeen(context.Background(), messageRef())
	require.NoError(t, err)
	assert.True(t, changed)
}

func TestMessageService_MarkReadInvalidatesAfterUpdate(t *testing.T) {
	svc, repo, cache := newMessageService(t)
	update := repo.EXPECT().MarkRead(gomock.Any(), messageRef()).Return(true, nil)
	expectSubscriberEviction(cache, update)

	changed, err := svc.MarkRead(context.Background(), messageRef())
	require.NoError(t, err)
	assert.True(t, changed)
}

func TestMessageService_UnchangedFlagStillInvalidates(t *testing.T) {
	svc, repo, cache := newMessageService(t)
	update := repo.EXPECT().MarkSeen(gomock.Any(), messageRef()).Return(false, nil)
	expectSubscriberEviction(cache, update)

	changed, err := svc.MarkSeen(context.Background(), messageRef())
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestMessageService_UpdateFailureSkipsInvalidation(t *testing.T) {
	svc, repo, _ := newMessageService(t)
	repo.EXPECT().MarkRead(gomock.Any(), messageRef()).Return(false, apperrors.NotFoundf("message %s not found", "msg-1"))

	_, err := svc.MarkRead(context.Background(), messageRef())
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestMessageService_InvalidationFailureIsReturned(t *testing.T) {
	svc, repo, cache := newMessageService(t)
	boom := errors.New("redis down")
	repo.EXPECT().MarkSeen(gomock.Any(), messageRef()).Return(true, nil)
	cache.EXPECT().DeletePrefix(gomock.Any(), gomock.Any()).Return(0, boom).Times(2)

	changed, err := svc.MarkSeen(context.Background(), messageRef())
	assert.True(t, changed)
	assert.ErrorIs(t, err, boom)
}

func TestMessageService_Create(t *testing.T) {
	svc, repo, cache := newMessageService(t)
	req := &model.CreateMessageRequest{EnvironmentID: "env-1", SubscriberID: "sub-1"}
	create := repo.EXPECT().Create(gomock.Any(), req).Return(&model.Message{
		ID: "msg-1", EnvironmentID: "env-1", SubscriberID: "sub-1", Channel: model.StepTypeInApp,
	}, nil)
	expectSubscriberEviction(cache, create)

	msg, err := svc.Create(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "msg-1", msg.ID)
}
