package httpx

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const healthResponse = `{"status":"ok"}`

const defaultReadinessTimeout = 2 * time.Second

// ReadinessCheck reports whether one dependency is usable.
type ReadinessCheck func(ctx context.Context) error

// healthHandler returns a simple 200 OK status for liveness checks.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	if _, err := io.WriteString(w, healthResponse); err != nil {
		// Nothing more to do if the client connection is gone.
		return
	}
}

// ReadinessHandlers runs named dependency checks for the readiness probe.
type ReadinessHandlers struct {
	Checks  map[string]ReadinessCheck
	Timeout time.Duration
	Logger  *slog.Logger
}

// Ready responds 200 when every check passes and 503 with the failing names otherwise.
func (h *ReadinessHandlers) Ready(w http.ResponseWriter, r *http.Request) {
	timeout := h.Timeout
	if timeout <= 0 {
		timeout = defaultReadinessTimeout
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeout)
	defer cancel()

	failed := make(map[string]string)
	for name, check := range h.Checks {
		if err := check(ctx); err != nil {
			failed[name] = err.Error()
			if h.Logger != nil {
				h.Logger.WarnContext(ctx, "readiness check failed", "check", name, "error", err)
			}
		}
	}

	if len(failed) > 0 {
		WriteJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "unavailable", "failed": failed})
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
