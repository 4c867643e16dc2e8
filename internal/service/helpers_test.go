package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/target/notifyd/internal/cachekey"
	"github.com/target/notifyd/internal/domain/model"
)

var serviceTestTime = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func batchSpecs(n int) []model.JobSpec {
	types := []model.StepType{model.StepTypeInApp, model.StepTypeEmail, model.StepTypeSMS, model.StepTypePush}
	specs := make([]model.JobSpec, n)
	for i := range specs {
		specs[i] = model.JobSpec{
			OrganizationID: "org-1",
			EnvironmentID:  "env-1",
			SubscriberID:   "sub-1",
			UserID:         "user-1",
			TransactionID:  "txn-1",
			Type:           types[i%len(types)],
			Payload:        json.RawMessage(`{"step":` + fmt.Sprint(i) + `}`),
		}
	}
	return specs
}

func storedJobs(specs []model.JobSpec) []*model.Job {
	jobs := make([]*model.Job, len(specs))
	for i, s := range specs {
		jobs[i] = &model.Job{
			ID:             fmt.Sprintf("job-%d", i),
			OrganizationID: s.OrganizationID,
			EnvironmentID:  s.EnvironmentID,
			SubscriberID:   s.SubscriberID,
			UserID:         s.UserID,
			TransactionID:  s.TransactionID,
			Type:           s.Type,
			Payload:        s.Payload,
			Status:         model.JobStatusPending,
			BatchIndex:     i,
			IsTest:         s.IsTest,
			CreatedAt:      serviceTestTime,
			UpdatedAt:      serviceTestTime,
		}
	}
	return jobs
}

// callLog records the order in which collaborators are invoked.
type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (c *callLog) add(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, name)
}

func (c *callLog) list() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.calls...)
}

type fakeDispatcher struct {
	log  *callLog
	err  error
	jobs []*model.Job
}

func (f *fakeDispatcher) EnqueueFirstJob(_ context.Context, job *model.Job) error {
	f.log.add("dispatch")
	f.jobs = append(f.jobs, job)
	return f.err
}

type fakeJobsStoredListener struct {
	log  *callLog
	err  error
	seen []cachekey.Dimensions
}

func (f *fakeJobsStoredListener) OnJobsStored(_ context.Context, d cachekey.Dimensions) error {
	f.log.add("invalidate")
	f.seen = append(f.seen, d)
	return f.err
}

func boolPtr(v bool) *bool { return &v }
