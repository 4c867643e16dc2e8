package httpx

import (
	"context"
	"errors"
	"net/http"

	apperrors "github.com/target/notifyd/internal/errors"
)

// DetermineErrorStatus maps an error to the HTTP status reported to callers.
// Context errors that escaped the service layer unwrapped map to timeout and client-closed statuses.
func DetermineErrorStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}

	switch apperrors.GetCode(err) {
	case apperrors.ErrCodeValidation:
		return http.StatusBadRequest
	case apperrors.ErrCodeNotFound:
		return http.StatusNotFound
	case apperrors.ErrCodeConflict, apperrors.ErrCodeForeignKey:
		return http.StatusConflict
	case apperrors.ErrCodeDispatch:
		return http.StatusBadGateway
	case apperrors.ErrCodeTimeout:
		return http.StatusGatewayTimeout
	case apperrors.ErrCodeCanceled:
		return statusClientClosedRequest
	case apperrors.ErrCodePersistence, apperrors.ErrCodeAuditWrite, apperrors.ErrCodeInternal:
		return http.StatusInternalServerError
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return statusClientClosedRequest
	default:
		return http.StatusInternalServerError
	}
}
