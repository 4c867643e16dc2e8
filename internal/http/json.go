package httpx

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"

	apperrors "github.com/target/notifyd/internal/errors"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// DecodeJSON strictly decodes the request body into dst. On failure it has already written a
// 413 (body over the limit) or 400 response and returns false.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	err := dec.Decode(dst)
	if err == nil {
		return true
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		WriteJSON(w, http.StatusRequestEntityTooLarge, errorBody{Error: "body_too_large", Message: err.Error()})
	} else {
		WriteJSON(w, http.StatusBadRequest, errorBody{Error: "invalid_json", Message: err.Error()})
	}
	return false
}

// WriteJSON encodes v before touching the response, so an encoding failure still yields a clean 500.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w) // client went away; nothing left to report to
}

// WriteAppError maps err to a status and body. Errors without an application code are reported
// as internal without leaking their text.
func WriteAppError(w http.ResponseWriter, err error) {
	code := apperrors.GetCode(err)
	if code == "" {
		code = apperrors.ErrCodeInternal
	}
	WriteJSON(w, DetermineErrorStatus(err), errorBody{
		Error:   string(code),
		Message: apperrors.PublicMessage(err),
		Field:   apperrors.GetField(err),
	})
}
