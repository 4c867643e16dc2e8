package httpx

import (
	"log/slog"
	"net/http"
)

// RouterServices holds all the services needed by the HTTP router.
type RouterServices struct {
	FeedCount    FeedCounter
	StoreJobs    BatchStorer
	Redispatcher JobRedispatcher
	Messages     MessageMarker
	// Optional: dependency checks served on /readyz.
	Readiness    map[string]ReadinessCheck
	MaxBodyBytes int64
	Logger       *slog.Logger // Logger for readiness failures (optional)
}

// NewRouter creates and configures a new HTTP router.
func NewRouter(services RouterServices) http.Handler {
	mux := http.NewServeMux()

	if services.FeedCount != nil {
		registerFeedRoutes(mux, &FeedHandlers{Counter: services.FeedCount})
	}
	if services.StoreJobs != nil || services.Redispatcher != nil {
		registerJobRoutes(mux, &JobHandlers{
			Store:        services.StoreJobs,
			Redispatcher: services.Redispatcher,
			MaxBodyBytes: services.MaxBodyBytes,
		})
	}
	if services.Messages != nil {
		registerMessageRoutes(mux, &MessageHandlers{Messages: services.Messages})
	}

	mux.Handle("GET /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("HEAD /healthz", http.HandlerFunc(healthHandler))
	ready := &ReadinessHandlers{Checks: services.Readiness, Logger: services.Logger}
	mux.HandleFunc("GET /readyz", ready.Ready)

	// Catch-all so unmatched routes get a JSON body instead of the mux's plain text.
	mux.HandleFunc("/", notFoundHandler)

	return mux
}

func notFoundHandler(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusNotFound, errorBody{Error: "not_found", Message: "route not found"})
}

const subscriberPrefix = "/v1/environments/{environmentId}/subscribers/{subscriberId}"

func registerFeedRoutes(mux *http.ServeMux, h *FeedHandlers) {
	mux.HandleFunc("GET "+subscriberPrefix+"/notifications/count", h.Count)
}

func registerJobRoutes(mux *http.ServeMux, h *JobHandlers) {
	if h.Store != nil {
		mux.HandleFunc("POST /v1/jobs/batches", h.CreateBatch)
	}
	if h.Redispatcher != nil {
		mux.HandleFunc("POST /v1/jobs/{id}/redispatch", h.Redispatch)
	}
}

func registerMessageRoutes(mux *http.ServeMux, h *MessageHandlers) {
	mux.HandleFunc("POST "+subscriberPrefix+"/messages/{messageId}/seen", h.MarkSeen)
	mux.HandleFunc("POST "+subscriberPrefix+"/messages/{messageId}/read", h.MarkRead)
}
