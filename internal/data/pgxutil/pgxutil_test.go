package pgxutil

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func TestWithSQLTx_Commits(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO jobs").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := WithSQLTx(context.Background(), db, SQLTxConfig{Fn: func(tx *sql.Tx) error {
		_, err := tx.ExecContext(context.Background(), "INSERT INTO jobs DEFAULT VALUES")
		return err
	}})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithSQLTx_RollsBackOnError(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	boom := errors.New("boom")
	err := WithSQLTx(context.Background(), db, SQLTxConfig{Fn: func(*sql.Tx) error { return boom }})
	require.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithSQLTx_RollbackFailureIsJoined(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectRollback().WillReturnError(errors.New("conn lost"))

	boom := errors.New("boom")
	err := WithSQLTx(context.Background(), db, SQLTxConfig{Fn: func(*sql.Tx) error { return boom }})
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "rollback: conn lost")
}

func TestWithSQLTx_BeginFailure(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin().WillReturnError(errors.New("no conn"))

	err := WithSQLTx(context.Background(), db, SQLTxConfig{Fn: func(*sql.Tx) error { return nil }})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "begin tx")
}

func TestWithSQLTx_RequiresFunc(t *testing.T) {
	db, _ := newMock(t)
	require.Error(t, WithSQLTx(context.Background(), db, SQLTxConfig{}))
}

func TestCopyFrom_Validation(t *testing.T) {
	db, _ := newMock(t)

	_, err := CopyFrom(context.Background(), db, CopySpec{Columns: []string{"id"}})
	require.Error(t, err)

	n, err := CopyFrom(context.Background(), db, CopySpec{Table: "execution_details", Columns: []string{"id"}})
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCopyFrom_RejectsNonPgxDriver(t *testing.T) {
	db, _ := newMock(t)
	_, err := CopyFrom(context.Background(), db, CopySpec{
		Table:   "execution_details",
		Columns: []string{"id"},
		Rows:    [][]any{{"a"}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "want *stdlib.Conn")
}
