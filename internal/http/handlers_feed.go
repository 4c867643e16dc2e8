package httpx

import (
	"context"
	"net/http"

	"github.com/target/notifyd/internal/domain/model"
)

// FeedCounter answers feed count queries.
type FeedCounter interface {
	GetCount(ctx context.Context, req model.FeedCountRequest) (model.FeedCountResult, error)
}

// FeedHandlers serves the subscriber feed read API.
type FeedHandlers struct {
	Counter FeedCounter
}

// Count handles GET .../notifications/count?seen=&read=&limit=.
func (h *FeedHandlers) Count(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	seen, err := model.ParseOptionalBool("seen", q.Get("seen"))
	if err != nil {
		WriteAppError(w, err)
		return
	}
	read, err := model.ParseOptionalBool("read", q.Get("read"))
	if err != nil {
		WriteAppError(w, err)
		return
	}

	res, err := h.Counter.GetCount(r.Context(), model.FeedCountRequest{
		EnvironmentID: r.PathValue(paramEnvironmentID),
		SubscriberID:  r.PathValue(paramSubscriberID),
		Seen:          seen,
		Read:          read,
		Limit:         q.Get("limit"),
	})
	if err != nil {
		WriteAppError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, res)
}
