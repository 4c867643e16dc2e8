package errors

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestMapDBError_NilError(t *testing.T) {
	if err := MapDBError(nil); err != nil {
		t.Errorf("MapDBError(nil) = %v, want nil", err)
	}
}

func TestMapDBError_Codes(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode ErrorCode
	}{
		{name: "deadline exceeded", err: context.DeadlineExceeded, wantCode: ErrCodeTimeout},
		{name: "canceled", err: fmt.Errorf("query: %w", context.Canceled), wantCode: ErrCodeCanceled},
		{name: "pgx no rows", err: pgx.ErrNoRows, wantCode: ErrCodeNotFound},
		{name: "sql no rows", err: sql.ErrNoRows, wantCode: ErrCodeNotFound},
		{
			name:     "unique violation",
			err:      &pgconn.PgError{Code: pgerrcode.UniqueViolation, TableName: "jobs", Detail: "Key (id)=(x) already exists."},
			wantCode: ErrCodeConflict,
		},
		{
			name:     "foreign key violation",
			err:      &pgconn.PgError{Code: pgerrcode.ForeignKeyViolation, TableName: "execution_details"},
			wantCode: ErrCodeForeignKey,
		},
		{
			name:     "not null violation",
			err:      &pgconn.PgError{Code: pgerrcode.NotNullViolation, TableName: "jobs", ColumnName: "subscriber_id"},
			wantCode: ErrCodeValidation,
		},
		{
			name:     "serialization failure",
			err:      &pgconn.PgError{Code: pgerrcode.SerializationFailure},
			wantCode: ErrCodePersistence,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := MapDBError(tt.err)
			if got := GetCode(err); got != tt.wantCode {
				t.Errorf("MapDBError() code = %q, want %q", got, tt.wantCode)
			}
			if !errors.Is(err, tt.err) {
				t.Errorf("MapDBError() lost the original cause")
			}
		})
	}
}

func TestMapDBError_UniqueFieldFromDetail(t *testing.T) {
	err := MapDBError(&pgconn.PgError{
		Code:      pgerrcode.UniqueViolation,
		TableName: "jobs",
		Detail:    "Key (id)=(3f0c) already exists.",
	})
	if got := GetField(err); got != "id" {
		t.Errorf("GetField() = %q, want %q", got, "id")
	}
	if got := err.Error(); got == "" {
		t.Error("expected a message")
	}
}

func TestMapDBError_PassThrough(t *testing.T) {
	plain := errors.New("network unreachable")
	if err := MapDBError(plain); !errors.Is(err, plain) || GetCode(err) != "" {
		t.Errorf("MapDBError(plain) = %v, want unchanged error", err)
	}
}
