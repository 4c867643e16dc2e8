package testutil

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"
)

// JobRow is a flattened view of one jobs row for assertions and debug logging.
type JobRow struct {
	ID           string
	Type         string
	Status       string
	SubscriberID string
	BatchIndex   int
	DispatchedAt *time.Time
}

// InspectJobStates returns every job row in creation order.
func InspectJobStates(t testing.TB, db *sql.DB) []JobRow {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	rows, err := db.QueryContext(ctx, `
		SELECT id, type, status, subscriber_id, batch_index, dispatched_at
		FROM jobs
		ORDER BY created_at, batch_index`)
	if err != nil {
		t.Fatalf("query jobs: %v", err)
	}
	defer func() { _ = rows.Close() }()

	var out []JobRow
	for rows.Next() {
		var r JobRow
		if err := rows.Scan(&r.ID, &r.Type, &r.Status, &r.SubscriberID, &r.BatchIndex, &r.DispatchedAt); err != nil {
			t.Fatalf("scan job: %v", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		t.Fatalf("iterate jobs: %v", err)
	}
	return out
}

// LogJobStates dumps the jobs table to the test log under label.
func LogJobStates(t testing.TB, db *sql.DB, label string) {
	t.Helper()
	for i, r := range InspectJobStates(t, db) {
		t.Logf("%s #%d id=%s type=%s status=%s sub=%s batch=%d dispatched=%v",
			label, i, r.ID, r.Type, r.Status, r.SubscriberID, r.BatchIndex, r.DispatchedAt)
	}
}

// RunConcurrent starts every fn at once and fails the test if any returns an error.
func RunConcurrent(t testing.TB, fns ...func() error) {
	t.Helper()
	var g errgroup.Group
	for _, fn := range fns {
		g.Go(fn)
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("concurrent operation failed: %v", err)
	}
}

// BoolPtr returns &b.
func BoolPtr(b bool) *bool { return &b }
