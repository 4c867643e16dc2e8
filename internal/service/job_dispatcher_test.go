package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/mock/gomock"

	"github.com/target/notifyd/internal/domain/model"
	apperrors "github.com/target/notifyd/internal/errors"
	"github.com/target/notifyd/internal/mocks"
	"github.com/target/notifyd/internal/observability/metrics"
	"github.com/target/notifyd/internal/observability/statsd"
)

type dispatcherFixture struct {
	producer *mocks.MockQueueProducer
	jobs     *mocks.MockJobRepository
	recorder *mocks.MockExecutionDetailRecorder
	sink     *statsd.Recorder
	spans    *tracetest.InMemoryExporter
	svc      *JobDispatcher
}

func newDispatcherFixture(t *testing.T) *dispatcherFixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	spans := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(spans))
	f := &dispatcherFixture{
		producer: mocks.NewMockQueueProducer(ctrl),
		jobs:     mocks.NewMockJobRepository(ctrl),
		recorder: mocks.NewMockExecutionDetailRecorder(ctrl),
		sink:     &statsd.Recorder{},
		spans:    spans,
	}
	svc, err := NewJobDispatcher(JobDispatcherOptions{
		Producer: f.producer,
		Jobs:     f.jobs,
		Recorder: f.recorder,
		Backend:  "redis",
		Logger:   discardLogger(),
		Metrics:  f.sink,
		Tracer:   tp.Tracer("test"),
	})
	require.NoError(t, err)
	f.svc = svc
	return f
}

func TestNewJobDispatcher_RequiresProducer(t *testing.T) {
	_, err := NewJobDispatcher(JobDispatcherOptions{})
	require.Error(t, err)
}

func TestJobDispatcher_EnqueueFirstJob(t *testing.T) {
	f := newDispatcherFixture(t)
	job := storedJobs(batchSpecs(1))[0]

	gomock.InOrder(
		f.producer.EXPECT().Enqueue(gomock.Any(), model.NewDispatchMessage(job)).Return(true, nil),
		f.jobs.EXPECT().MarkQueued(gomock.Any(), job.ID).Return(true, nil),
	)

	require.NoError(t, f.svc.EnqueueFirstJob(context.Background(), job))
	assert.Equal(t, model.JobStatusQueued, job.Status)

	dispatches := f.sink.Named(metrics.DispatchEnqueue)
	require.Len(t, dispatches, 1)
	assert.Equal(t, metrics.ResultSuccess, dispatches[0].Tags["result"])
	require.Len(t, f.spans.GetSpans(), 1)
	assert.Equal(t, "job.dispatch", f.spans.GetSpans()[0].Name)
}

func TestJobDispatcher_MessageCarriesRoutingMetadata(t *testing.T) {
	f := newDispatcherFixture(t)
	job := storedJobs(batchSpecs(1))[0]

	f.producer.EXPECT().Enqueue(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, msg model.DispatchMessage) (bool, error) {
			assert.Equal(t, "org-1", msg.OrganizationID)
			assert.Equal(t, "env-1", msg.EnvironmentID)
			assert.Equal(t, "user-1", msg.UserID)
			assert.Equal(t, "sub-1", msg.SubscriberID)
			assert.Equal(t, job.ID, msg.JobID)
			assert.Same(t, job, msg.Job)
			return true, nil
		})
	f.jobs.EXPECT().MarkQueued(gomock.Any(), job.ID).Return(true, nil)

	require.NoError(t, f.svc.EnqueueFirstJob(context.Background(), job))
}

func TestJobDispatcher_DuplicateEnqueueIsNoop(t *testing.T) {
	f := newDispatcherFixture(t)
	job := storedJobs(batchSpecs(1))[0]

	f.producer.EXPECT().Enqueue(gomock.Any(), gomock.Any()).Return(false, nil)
	f.jobs.EXPECT().MarkQueued(gomock.Any(), job.ID).Return(false, nil)

	require.NoError(t, f.svc.EnqueueFirstJob(context.Background(), job))
	assert.Equal(t, model.JobStatusPending, job.Status)
	assert.Equal(t, metrics.ResultNoop, f.sink.Named(metrics.DispatchEnqueue)[0].Tags["result"])
}

func TestJobDispatcher_MarkQueuedFailureIsBestEffort(t *testing.T) {
	f := newDispatcherFixture(t)
	job := storedJobs(batchSpecs(1))[0]

	f.producer.EXPECT().Enqueue(gomock.Any(), gomock.Any()).Return(true, nil)
	f.jobs.EXPECT().MarkQueued(gomock.Any(), job.ID).Return(false, errors.New("db down"))

	require.NoError(t, f.svc.EnqueueFirstJob(context.Background(), job))
}

func TestJobDispatcher_EnqueueFailure(t *testing.T) {
	f := newDispatcherFixture(t)
	job := storedJobs(batchSpecs(1))[0]
	cause := errors.New("redis unavailable")

	f.producer.EXPECT().Enqueue(gomock.Any(), gomock.Any()).Return(false, cause)
	f.recorder.EXPECT().BulkCreate(gomock.Any(), gomock.Any()).
		Do(func(_ context.Context, details []model.ExecutionDetailSpec) {
			require.Len(t, details, 1)
			assert.Equal(t, model.DetailStepDispatchFailed, details[0].Detail)
			assert.Equal(t, model.DetailStatusFailed, details[0].Status)
			assert.Equal(t, model.SourceInternal, details[0].Source)
			assert.Equal(t, job.ID, details[0].JobID)
			assert.False(t, details[0].IsRetry)
			assert.Contains(t, string(details[0].Raw), "redis unavailable")
		})

	err := f.svc.EnqueueFirstJob(context.Background(), job)
	require.Error(t, err)
	assert.True(t, apperrors.IsDispatch(err))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, model.JobStatusPending, job.Status)

	spans := f.spans.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status.Code)
}

func TestJobDispatcher_RejectsUnstoredJob(t *testing.T) {
	f := newDispatcherFixture(t)

	err := f.svc.EnqueueFirstJob(context.Background(), nil)
	assert.True(t, apperrors.IsValidation(err))

	err = f.svc.EnqueueFirstJob(context.Background(), &model.Job{})
	assert.True(t, apperrors.IsValidation(err))
}

func TestJobDispatcher_Redispatch(t *testing.T) {
	t.Run("pending job is enqueued and audited as retry", func(t *testing.T) {
		f := newDispatcherFixture(t)
		job := storedJobs(batchSpecs(1))[0]

		f.jobs.EXPECT().GetByID(gomock.Any(), job.ID).Return(job, nil)
		f.producer.EXPECT().Enqueue(gomock.Any(), gomock.Any()).Return(true, nil)
		f.jobs.EXPECT().MarkQueued(gomock.Any(), job.ID).Return(true, nil)
		f.recorder.EXPECT().BulkCreate(gomock.Any(), gomock.Any()).
			Do(func(_ context.Context, details []model.ExecutionDetailSpec) {
				assert.Equal(t, model.DetailStepQueued, details[0].Detail)
				assert.True(t, details[0].IsRetry)
			})

		got, err := f.svc.Redispatch(context.Background(), job.ID)
		require.NoError(t, err)
		assert.Equal(t, model.JobStatusQueued, got.Status)
	})

	t.Run("already queued job is left alone", func(t *testing.T) {
		f := newDispatcherFixture(t)
		job := storedJobs(batchSpecs(1))[0]
		job.Status = model.JobStatusQueued

		f.jobs.EXPECT().GetByID(gomock.Any(), job.ID).Return(job, nil)

		got, err := f.svc.Redispatch(context.Background(), job.ID)
		require.NoError(t, err)
		assert.Same(t, job, got)
	})

	t.Run("missing job", func(t *testing.T) {
		f := newDispatcherFixture(t)
		f.jobs.EXPECT().GetByID(gomock.Any(), "nope").Return(nil, apperrors.NotFoundf("job %s not found", "nope"))

		_, err := f.svc.Redispatch(context.Background(), "nope")
		assert.True(t, apperrors.IsNotFound(err))
	})

	t.Run("enqueue failure surfaces dispatch error", func(t *testing.T) {
		f := newDispatcherFixture(t)
		job := storedJobs(batchSpecs(1))[0]

		f.jobs.EXPECT().GetByID(gomock.Any(), job.ID).Return(job, nil)
		f.producer.EXPECT().Enqueue(gomock.Any(), gomock.Any()).Return(false, errors.New("down"))
		f.recorder.EXPECT().BulkCreate(gomock.Any(), gomock.Any())

		_, err := f.svc.Redispatch(context.Background(), job.ID)
		assert.True(t, apperrors.IsDispatch(err))
	})
}
