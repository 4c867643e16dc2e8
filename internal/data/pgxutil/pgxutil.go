// Package pgxutil holds transaction and COPY helpers shared by the Postgres repositories.
package pgxutil

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
)

// SQLTxConfig groups parameters for WithSQLTx.
type SQLTxConfig struct {
	Opts *sql.TxOptions
	Fn   func(*sql.Tx) error
}

// WithSQLTx runs cfg.Fn inside a transaction. The transaction commits only when Fn returns nil;
// any error, including a failed rollback, is returned to the caller.
func WithSQLTx(ctx context.Context, db *sql.DB, cfg SQLTxConfig) (err error) {
	if cfg.Fn == nil {
		return errors.New("pgxutil: tx func is required")
	}
	tx, err := db.BeginTx(ctx, cfg.Opts)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	committed := false
	defer func() {
		if committed {
			return
		}
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			err = errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
	}()

	if err = cfg.Fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	committed = true
	return nil
}

// CopySpec describes a COPY FROM STDIN into one table.
type CopySpec struct {
	Table   string
	Columns []string
	Rows    [][]any
}

// CopyFrom streams spec.Rows into spec.Table over a pooled connection unwrapped to *pgx.Conn.
// COPY is atomic: either every row lands or none does.
func CopyFrom(ctx context.Context, db *sql.DB, spec CopySpec) (int64, error) {
	if spec.Table == "" || len(spec.Columns) == 0 {
		return 0, errors.New("pgxutil: copy table and columns are required")
	}
	if len(spec.Rows) == 0 {
		return 0, nil
	}

	var copied int64
	err := withPgxConn(ctx, db, func(conn *pgx.Conn) error {
		n, err := conn.CopyFrom(ctx, pgx.Identifier{spec.Table}, spec.Columns, pgx.CopyFromRows(spec.Rows))
		copied = n
		return err
	})
	return copied, err
}

func withPgxConn(ctx context.Context, db *sql.DB, fn func(*pgx.Conn) error) (err error) {
	conn, err := db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquire conn: %w", err)
	}
	defer func() {
		if cErr := conn.Close(); cErr != nil && !errors.Is(cErr, sql.ErrConnDone) {
			err = errors.Join(err, fmt.Errorf("release conn: %w", cErr))
		}
	}()

	return conn.Raw(func(driverConn any) error {
		std, ok := driverConn.(*stdlib.Conn)
		if !ok {
			return fmt.Errorf("pgxutil: driver connection is %T, want *stdlib.Conn", driverConn)
		}
		return fn(std.Conn())
	})
}
