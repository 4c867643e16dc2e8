package redispatcher

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/target/notifyd/config"
	"github.com/target/notifyd/internal/domain/model"
	"github.com/target/notifyd/internal/mocks"
)

type stubDispatcher struct{ ids []string }

func (s *stubDispatcher) Redispatch(_ context.Context, id string) (*model.Job, error) {
	s.ids = append(s.ids, id)
	return &model.Job{ID: id}, nil
}

func TestNewRunner_Validation(t *testing.T) {
	_, err := NewRunner(RunnerOptions{})
	require.Error(t, err)

	_, err = NewRunner(RunnerOptions{Dispatcher: &stubDispatcher{}})
	require.Error(t, err, "no DB and no repository")
}

func TestRunner_SweepOnce(t *testing.T) {
	ctrl := gomock.NewController(t)
	jobs := mocks.NewMockJobRepository(ctrl)
	jobs.EXPECT().ListUndispatched(gomock.Any(), gomock.Any()).
		Return([]*model.Job{{ID: "a"}, {ID: "b"}}, nil)

	d := &stubDispatcher{}
	r, err := NewRunner(RunnerOptions{
		Jobs:       jobs,
		Dispatcher: d,
		Config:     config.RedispatchConfig{Interval: time.Minute, Grace: time.Minute, BatchSize: 5, RatePerSecond: 100},
	})
	require.NoError(t, err)

	res, err := r.SweepOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Redispatched)
	assert.Equal(t, []string{"a", "b"}, d.ids)
}
