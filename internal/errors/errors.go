// Package errors defines the application error taxonomy shared by the job pipeline,
// the feed count cache and the HTTP layer.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCode classifies an AppError. HTTP status mapping and retry decisions key off it.
type ErrorCode string

const (
	// ErrCodeValidation indicates bad caller input. Surfaced verbatim, never retried.
	ErrCodeValidation ErrorCode = "validation"
	// ErrCodePersistence indicates a store read or write failed.
	ErrCodePersistence ErrorCode = "persistence"
	// ErrCodeDispatch indicates a job could not be handed to the processing queue.
	ErrCodeDispatch ErrorCode = "dispatch"
	// ErrCodeAuditWrite indicates an execution detail write failed. Logged only.
	ErrCodeAuditWrite ErrorCode = "audit_write"
	// ErrCodeNotFound indicates a resource was not found.
	ErrCodeNotFound ErrorCode = "not_found"
	// ErrCodeConflict indicates a conflict with existing data (e.g., unique constraint violation).
	ErrCodeConflict ErrorCode = "conflict"
	// ErrCodeForeignKey indicates a foreign key constraint violation.
	ErrCodeForeignKey ErrorCode = "foreign_key"
	// ErrCodeInternal indicates an internal server error.
	ErrCodeInternal ErrorCode = "internal"
	// ErrCodeTimeout indicates a timeout occurred.
	ErrCodeTimeout ErrorCode = "timeout"
	// ErrCodeCanceled indicates the operation was canceled.
	ErrCodeCanceled ErrorCode = "canceled"
)

// AppError carries a code alongside the message. Field names the offending input for
// validation failures; Cause is the wrapped lower-level error, if any.
type AppError struct {
	Code    ErrorCode
	Message string
	Cause   error
	Field   string
}

func (e *AppError) Error() string {
	if e.Cause == nil {
		return e.Message
	}
	return e.Message + ": " + e.Cause.Error()
}

func (e *AppError) Unwrap() error { return e.Cause }

func newErr(code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// Validation returns a validation error whose message is shown to callers unchanged.
func Validation(message string) *AppError { return newErr(ErrCodeValidation, message) }

func Validationf(format string, args ...any) *AppError {
	return newErr(ErrCodeValidation, fmt.Sprintf(format, args...))
}

// ValidationField is Validation tagged with the offending field.
func ValidationField(field, message string) *AppError {
	e := newErr(ErrCodeValidation, message)
	e.Field = field
	return e
}

func NotFound(message string) *AppError { return newErr(ErrCodeNotFound, message) }

func NotFoundf(format string, args ...any) *AppError {
	return newErr(ErrCodeNotFound, fmt.Sprintf(format, args...))
}

// Persistence, Dispatch and AuditWrite wrap a failure from the store, the queue
// and the execution detail recorder respectively. A nil err yields nil.
func Persistence(err error, message string) *AppError { return Wrap(err, ErrCodePersistence, message) }

func Dispatch(err error, message string) *AppError { return Wrap(err, ErrCodeDispatch, message) }

func AuditWrite(err error, message string) *AppError { return Wrap(err, ErrCodeAuditWrite, message) }

// Wrap attaches code and message to err, keeping err as the cause. A nil err yields nil.
func Wrap(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{Code: code, Message: message, Cause: err}
}

func Wrapf(err error, code ErrorCode, format string, args ...any) *AppError {
	return Wrap(err, code, fmt.Sprintf(format, args...))
}

// outermost returns the first AppError in err's chain, or nil.
func outermost(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}

// GetCode returns the code of the outermost AppError in err's chain, or "".
func GetCode(err error) ErrorCode {
	if e := outermost(err); e != nil {
		return e.Code
	}
	return ""
}

// GetField returns the field of the outermost AppError in err's chain, or "".
func GetField(err error) string {
	if e := outermost(err); e != nil {
		return e.Field
	}
	return ""
}

func IsValidation(err error) bool  { return GetCode(err) == ErrCodeValidation }
func IsPersistence(err error) bool { return GetCode(err) == ErrCodePersistence }
func IsDispatch(err error) bool    { return GetCode(err) == ErrCodeDispatch }
func IsAuditWrite(err error) bool  { return GetCode(err) == ErrCodeAuditWrite }
func IsNotFound(err error) bool    { return GetCode(err) == ErrCodeNotFound }

// PublicMessage is the text safe to return to API callers. Validation errors drop their
// cause so the message matches exactly; non-AppErrors are masked.
func PublicMessage(err error) string {
	e := outermost(err)
	switch {
	case e == nil:
		return "internal error"
	case e.Code == ErrCodeValidation:
		return e.Message
	default:
		return e.Error()
	}
}
