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

type storeJobsFixture struct {
	log        *callLog
	jobs       *mocks.MockJobRepository
	recorder   *mocks.MockExecutionDetailRecorder
	dispatcher *fakeDispatcher
	cache      *fakeJobsStoredListener
	svc        *StoreSubscriberJobsService
}

func newStoreJobsFixture(t *testing.T) *storeJobsFixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	log := &callLog{}
	f := &storeJobsFixture{
		log:        log,
		jobs:       mocks.NewMockJobRepository(ctrl),
		recorder:   mocks.NewMockExecutionDetailRecorder(ctrl),
		dispatcher: &fakeDispatcher{log: log},
		cache:      &fakeJobsStoredListener{log: log},
	}
	svc, err := NewStoreSubscriberJobsService(StoreSubscriberJobsServiceOptions{
		Jobs:       f.jobs,
		Recorder:   f.recorder,
		Dispatcher: f.dispatcher,
		Cache:      f.cache,
		Logger:     discardLogger(),
	})
	require.NoError(t, err)
	f.svc = svc
	return f
}

func (f *storeJobsFixture) expectStore(specs []model.JobSpec, jobs []*model.Job, err error) {
	f.jobs.EXPECT().StoreJobs(gomock.Any(), specs).
		DoAndReturn(func(context.Context, []model.JobSpec) ([]*model.Job, error) {
			f.log.add("store")
			return jobs, err
		})
}

func (f *storeJobsFixture) expectAudit(t *testing.T, want int) {
	f.recorder.EXPECT().BulkCreate(gomock.Any(), gomock.Any()).
		Do(func(_ context.Context, details []model.ExecutionDetailSpec) {
			f.log.add("audit")
			require.Len(t, details, want)
			for i, d := range details {
				assert.Equal(t, model.DetailStepCreated, d.Detail)
				assert.Equal(t, model.SourceInternal, d.Source)
				assert.Equal(t, model.DetailStatusPending, d.Status)
				assert.Equal(t, "org-1", d.OrganizationID)
				assert.Equal(t, "env-1", d.EnvironmentID)
				assert.Equal(t, "sub-1", d.SubscriberID)
				assert.Equal(t, storedJobs(batchSpecs(want))[i].ID, d.JobID)
			}
		})
}

func TestNewStoreSubscriberJobsService_RequiresCollaborators(t *testing.T) {
	_, err := NewStoreSubscriberJobsService(StoreSubscriberJobsServiceOptions{})
	require.Error(t, err)
}

func TestStoreSubscriberJobs_ProcessingOrder(t *testing.T) {
	f := newStoreJobsFixture(t)
	specs := batchSpecs(3)
	jobs := storedJobs(specs)

	f.expectStore(specs, jobs, nil)
	f.expectAudit(t, 3)

	got, err := f.svc.Execute(context.Background(), specs)
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, []string{"store", "audit", "invalidate", "dispatch"}, f.log.list())
	require.Len(t, f.dispatcher.jobs, 1)
	assert.Same(t, jobs[0], f.dispatcher.jobs[0])
	assert.Equal(t, []cachekey.Dimensions{{EnvironmentID: "env-1", SubscriberID: "sub-1"}}, f.cache.seen)
}

func TestStoreSubscriberJobs_SingleJobBatch(t *testing.T) {
	f := newStoreJobsFixture(t)
	specs := batchSpecs(1)
	jobs := storedJobs(specs)

	f.expectStore(specs, jobs, nil)
	f.expectAudit(t, 1)

	_, err := f.svc.Execute(context.Background(), specs)
	require.NoError(t, err)
	assert.Len(t, f.dispatcher.jobs, 1)
}

func TestStoreSubscriberJobs_ValidationBeforeStore(t *testing.T) {
	tests := []struct {
		name  string
		specs []model.JobSpec
	}{
		{name: "empty batch", specs: nil},
		{name: "mixed subscribers", specs: func() []model.JobSpec {
			s := batchSpecs(2)
			s[1].SubscriberID = "sub-2"
			return s
		}()},
		{name: "unknown step type", specs: func() []model.JobSpec {
			s := batchSpecs(1)
			s[0].Type = "fax"
			return s
		}()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newStoreJobsFixture(t)
			_, err := f.svc.Execute(context.Background(), tt.specs)
			require.Error(t, err)
			assert.True(t, apperrors.IsValidation(err))
			assert.Empty(t, f.log.list())
		})
	}
}

func TestStoreSubscriberJobs_StoreFailureSkipsAuditAndDispatch(t *testing.T) {
	f := newStoreJobsFixture(t)
	specs := batchSpecs(2)
	f.expectStore(specs, nil, apperrors.Persistence(errors.New("tx aborted"), "store jobs"))

	got, err := f.svc.Execute(context.Background(), specs)
	require.Error(t, err)
	assert.Nil(t, got)
	assert.True(t, apperrors.IsPersistence(err))
	assert.Equal(t, []string{"store"}, f.log.list())
}

func TestStoreSubscriberJobs_DispatchFailureReturnsStoredJobs(t *testing.T) {
	f := newStoreJobsFixture(t)
	specs := batchSpecs(2)
	jobs := storedJobs(specs)
	f.dispatcher.err = apperrors.Dispatch(errors.New("queue down"), "enqueue job")

	f.expectStore(specs, jobs, nil)
	f.expectAudit(t, 2)

	got, err := f.svc.Execute(context.Background(), specs)
	require.Error(t, err)
	assert.True(t, apperrors.IsDispatch(err))
	assert.Len(t, got, 2)
}

func TestStoreSubscriberJobs_InvalidationFailureDoesNotFailTrigger(t *testing.T) {
	f := newStoreJobsFixture(t)
	specs := batchSpecs(1)
	f.cache.err = errors.New("redis down")

	f.expectStore(specs, storedJobs(specs), nil)
	f.expectAudit(t, 1)

	_, err := f.svc.Execute(context.Background(), specs)
	require.NoError(t, err)
	assert.Equal(t, []string{"store", "audit", "invalidate", "dispatch"}, f.log.list())
}

func TestStoreSubscriberJobs_WithRealDispatcher(t *testing.T) {
	ctrl := gomock.NewController(t)
	jobsRepo := mocks.NewMockJobRepository(ctrl)
	recorder := mocks.NewMockExecutionDetailRecorder(ctrl)
	producer := mocks.NewMockQueueProducer(ctrl)

	dispatcher, err := NewJobDispatcher(JobDispatcherOptions{
		Producer: producer, Jobs: jobsRepo, Recorder: recorder, Logger: discardLogger(),
	})
	require.NoError(t, err)
	svc, err := NewStoreSubscriberJobsService(StoreSubscriberJobsServiceOptions{
		Jobs: jobsRepo, Recorder: recorder, Dispatcher: dispatcher, Logger: discardLogger(),
	})
	require.NoError(t, err)

	specs := batchSpecs(4)
	jobs := storedJobs(specs)
	gomock.InOrder(
		jobsRepo.EXPECT().StoreJobs(gomock.Any(), specs).Return(jobs, nil),
		recorder.EXPECT().BulkCreate(gomock.Any(), gomock.Len(4)),
		producer.EXPECT().Enqueue(gomock.Any(), model.NewDispatchMessage(jobs[0])).Return(true, nil),
		jobsRepo.EXPECT().MarkQueued(gomock.Any(), jobs[0].ID).Return(true, nil),
	)

	got, err := svc.Execute(context.Background(), specs)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusQueued, got[0].Status)
	for _, j := range got[1:] {
		assert.Equal(t, model.JobStatusPending, j.Status)
	}
}
