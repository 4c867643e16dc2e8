// Package httpx provides the HTTP surface of the notification job pipeline.
package httpx

import (
	"context"
	"net/http"

	apperrors "github.com/target/notifyd/internal/errors"
	"github.com/target/notifyd/internal/domain/model"
)

// BatchStorer stores a subscriber's job batch and dispatches its first job.
type BatchStorer interface {
	Execute(ctx context.Context, specs []model.JobSpec) ([]*model.Job, error)
}

// JobRedispatcher re-enqueues a stored job.
type JobRedispatcher interface {
	Redispatch(ctx context.Context, jobID string) (*model.Job, error)
}

// JobHandlers provides HTTP handlers for job-related operations.
type JobHandlers struct {
	Store        BatchStorer
	Redispatcher JobRedispatcher
	MaxBodyBytes int64
}

// CreateBatchRequest is the body of POST /v1/jobs/batches.
type CreateBatchRequest struct {
	Jobs []model.JobSpec `json:"jobs"`
}

// CreateBatchResponse lists the stored jobs. On a dispatch failure the jobs are still
// stored and the error fields describe what went wrong.
type CreateBatchResponse struct {
	Jobs    []*model.Job `json:"jobs"`
	Error   string       `json:"error,omitempty"`
	Message string       `json:"message,omitempty"`
}

// CreateBatch handles HTTP requests to store and dispatch a job batch.
func (h *JobHandlers) CreateBatch(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes())

	var req CreateBatchRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	jobs, err := h.Store.Execute(r.Context(), req.Jobs)
	switch {
	case err == nil:
		WriteJSON(w, http.StatusCreated, CreateBatchResponse{Jobs: jobs})
	case apperrors.IsDispatch(err) && len(jobs) > 0:
		WriteJSON(w, http.StatusBadGateway, CreateBatchResponse{
			Jobs:    jobs,
			Error:   string(apperrors.ErrCodeDispatch),
			Message: apperrors.PublicMessage(err),
		})
	default:
		WriteAppError(w, err)
	}
}

// Redispatch handles HTTP requests to re-enqueue a pending job.
func (h *JobHandlers) Redispatch(w http.ResponseWriter, r *http.Request) {
	job, err := h.Redispatcher.Redispatch(r.Context(), r.PathValue(paramJobID))
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, job)
}

func (h *JobHandlers) maxBodyBytes() int64 {
	if h.MaxBodyBytes > 0 {
		return h.MaxBodyBytes
	}
	return DefaultMaxBodyBytes
}
