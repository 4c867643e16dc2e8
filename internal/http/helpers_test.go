package httpx

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/target/notifyd/internal/domain/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeFeedCounter struct {
	got   model.FeedCountRequest
	calls int
	res   model.FeedCountResult
	err   error
}

func (f *fakeFeedCounter) GetCount(_ context.Context, req model.FeedCountRequest) (model.FeedCountResult, error) {
	f.calls++
	f.got = req
	return f.res, f.err
}

type fakeBatchStorer struct {
	got  []model.JobSpec
	jobs []*model.Job
	err  error
}

func (f *fakeBatchStorer) Execute(_ context.Context, specs []model.JobSpec) ([]*model.Job, error) {
	f.got = specs
	return f.jobs, f.err
}

type fakeRedispatcher struct {
	gotID string
	job   *model.Job
	err   error
}

func (f *fakeRedispatcher) Redispatch(_ context.Context, jobID string) (*model.Job, error) {
	f.gotID = jobID
	return f.job, f.err
}

type fakeMessageMarker struct {
	seen    []model.MessageRef
	read    []model.MessageRef
	updated bool
	err     error
}

func (f *fakeMessageMarker) MarkSeen(_ context.Context, ref model.MessageRef) (bool, error) {
	f.seen = append(f.seen, ref)
	return f.updated, f.err
}

func (f *fakeMessageMarker) MarkRead(_ context.Context, ref model.MessageRef) (bool, error) {
	f.read = append(f.read, ref)
	return f.updated, f.err
}

// serve runs one request through the full router.
func serve(t *testing.T, svcs RouterServices, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()

	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	rec := httptest.NewRecorder()
	NewRouter(svcs).ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Field   string `json:"field"`
}

func assertStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	require.Equal(t, want, rec.Code, "body: %s", rec.Body.String())
}
