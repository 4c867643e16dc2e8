package httpx

import (
	"context"
	"net/http"

	"github.com/target/notifyd/internal/domain/model"
)

// MessageMarker flips message flags.
type MessageMarker interface {
	MarkSeen(ctx context.Context, ref model.MessageRef) (bool, error)
	MarkRead(ctx context.Context, ref model.MessageRef) (bool, error)
}

// MessageHandlers serves subscriber message mutations.
type MessageHandlers struct {
	Messages MessageMarker
}

type markResponse struct {
	Updated bool `json:"updated"`
}

// MarkSeen handles POST .../messages/{messageId}/seen.
func (h *MessageHandlers) MarkSeen(w http.ResponseWriter, r *http.Request) {
	h.mark(w, r, h.Messages.MarkSeen)
}

// MarkRead handles POST .../messages/{messageId}/read.
func (h *MessageHandlers) MarkRead(w http.ResponseWriter, r *http.Request) {
	h.mark(w, r, h.Messages.MarkRead)
}

func (h *MessageHandlers) mark(
	w http.ResponseWriter,
	r *http.Request,
	fn func(context.Context, model.MessageRef) (bool, error),
) {
	updated, err := fn(r.Context(), model.MessageRef{
		EnvironmentID: r.PathValue(paramEnvironmentID),
		SubscriberID:  r.PathValue(paramSubscriberID),
		MessageID:     r.PathValue(paramMessageID),
	})
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, markResponse{Updated: updated})
}
