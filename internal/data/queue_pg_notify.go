package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/target/notifyd/internal/data/pgxutil"
	"github.com/target/notifyd/internal/domain/model"
)

// DefaultDispatchChannel is the NOTIFY channel used by PgNotifyQueue.
const DefaultDispatchChannel = "job_dispatched"

// PgNotifyQueue dispatches by flipping the job to queued and sending a NOTIFY in the same
// transaction. Workers LISTEN on the channel and load the job by id. The conditional update
// makes dispatch idempotent.
type PgNotifyQueue struct {
	db           *sql.DB
	channel      string
	timeProvider TimeProvider
}

// NewPgNotifyQueue creates a PgNotifyQueue. An empty channel uses DefaultDispatchChannel.
func NewPgNotifyQueue(db *sql.DB, channel string, tp TimeProvider) (*PgNotifyQueue, error) {
	if db == nil {
		return nil, errors.New("database is required")
	}
	if channel == "" {
		channel = DefaultDispatchChannel
	}
	return &PgNotifyQueue{db: db, channel: channel, timeProvider: clockOrSystem(tp)}, nil
}

// Enqueue marks the job queued and notifies listeners. Returns false if the job was not pending.
func (q *PgNotifyQueue) Enqueue(ctx context.Context, msg model.DispatchMessage) (bool, error) {
	if msg.JobID == "" {
		return false, ErrJobIDRequired
	}

	var enqueued bool
	err := pgxutil.WithSQLTx(ctx, q.db, pgxutil.SQLTxConfig{
		Fn: func(tx *sql.Tx) error {
			now := q.timeProvider.Now().UTC()
			res, err := tx.ExecContext(ctx, `
				UPDATE jobs
				SET status = $2, dispatched_at = $3, updated_at = $3
				WHERE id = $1 AND status = $4
			`, msg.JobID, string(model.JobStatusQueued), now, string(model.JobStatusPending))
			if err != nil {
				return fmt.Errorf("mark job queued: %w", err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("mark job queued rows: %w", err)
			}
			if n == 0 {
				return nil
			}
			if _, err := tx.ExecContext(ctx, `SELECT pg_notify($1::text, $2::text)`, q.channel, msg.JobID); err != nil {
				return fmt.Errorf("send dispatch notification: %w", err)
			}
			enqueued = true
			return nil
		},
	})
	if err != nil {
		return false, err
	}
	return enqueued, nil
}
