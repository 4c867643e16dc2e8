package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/target/notifyd/config"
	"github.com/target/notifyd/internal/core"
	"github.com/target/notifyd/internal/domain/model"
	"github.com/target/notifyd/internal/mocks"
	"github.com/target/notifyd/internal/observability/metrics"
	"github.com/target/notifyd/internal/observability/statsd"
)

type fakeRedispatcher struct {
	fail map[string]error
	ids  []string
}

func (f *fakeRedispatcher) Redispatch(_ context.Context, jobID string) (*model.Job, error) {
	f.ids = append(f.ids, jobID)
	if err := f.fail[jobID]; err != nil {
		return nil, err
	}
	return &model.Job{ID: jobID, Status: model.JobStatusQueued}, nil
}

func newTestSweeper(t *testing.T, jobs core.JobRepository, d JobRedispatcher, sink statsd.Sink) *RedispatchSweeper {
	t.Helper()
	s, err := NewRedispatchSweeper(RedispatchSweeperOptions{
		Jobs:       jobs,
		Dispatcher: d,
		Config: config.RedispatchConfig{
			Interval: time.Minute, Grace: 2 * time.Minute, BatchSize: 10, RatePerSecond: 1000,
		},
		Logger:  discardLogger(),
		Metrics: sink,
	})
	require.NoError(t, err)
	return s
}

func TestNewRedispatchSweeper_RequiresCollaborators(t *testing.T) {
	_, err := NewRedispatchSweeper(RedispatchSweeperOptions{})
	require.Error(t, err)
	_, err = NewRedispatchSweeper(RedispatchSweeperOptions{Jobs: mocks.NewMockJobRepository(gomock.NewController(t))})
	require.Error(t, err)
}

func TestRedispatchSweeper_Sweep(t *testing.T) {
	ctrl := gomock.NewController(t)
	jobs := mocks.NewMockJobRepository(ctrl)
	sink := &statsd.Recorder{}
	d := &fakeRedispatcher{fail: map[string]error{"job-1": errors.New("queue down")}}

	pending := storedJobs(batchSpecs(3))
	jobs.EXPECT().ListUndispatched(gomock.Any(), core.ListUndispatchedOptions{OlderThan: 2 * time.Minute, Limit: 10}).
		Return(pending, nil)

	res, err := newTestSweeper(t, jobs, d, sink).Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SweepResult{Found: 3, Redispatched: 2, Failed: 1}, res)
	assert.Equal(t, []string{"job-0", "job-1", "job-2"}, d.ids)

	counts := sink.Named(metrics.RedispatchJobs)
	require.Len(t, counts, 2)
	assert.InDelta(t, 2, counts[0].Value, 0)
	assert.InDelta(t, 1, counts[1].Value, 0)
}

func TestRedispatchSweeper_NothingToDo(t *testing.T) {
	ctrl := gomock.NewController(t)
	jobs := mocks.NewMockJobRepository(ctrl)
	sink := &statsd.Recorder{}
	jobs.EXPECT().ListUndispatched(gomock.Any(), gomock.Any()).Return(nil, nil)

	res, err := newTestSweeper(t, jobs, &fakeRedispatcher{}, sink).Sweep(context.Background())
	require.NoError(t, err)
	assert.Zero(t, res.Found)
	assert.Equal(t, metrics.ResultNoop, sink.Named(metrics.RedispatchSweep)[0].Tags["result"])
}

func TestRedispatchSweeper_ListError(t *testing.T) {
	ctrl := gomock.NewController(t)
	jobs := mocks.NewMockJobRepository(ctrl)
	boom := errors.New("db down")
	jobs.EXPECT().ListUndispatched(gomock.Any(), gomock.Any()).Return(nil, boom)

	_, err := newTestSweeper(t, jobs, &fakeRedispatcher{}, nil).Sweep(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestRedispatchSweeper_StopsOnCancel(t *testing.T) {
	ctrl := gomock.NewController(t)
	jobs := mocks.NewMockJobRepository(ctrl)
	jobs.EXPECT().ListUndispatched(gomock.Any(), gomock.Any()).Return(nil, nil).AnyTimes()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- newTestSweeper(t, jobs, &fakeRedispatcher{}, nil).Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("sweeper did not stop")
	}
}
