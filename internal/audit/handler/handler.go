package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	dErrors "rotacultural/pkg/domain-errors"
	"rotacultural/pkg/platform/audit"
	"rotacultural/pkg/platform/httputil"
	request "rotacultural/pkg/platform/middleware/request"
)

// Lister reads a user's audit trail.
type Lister interface {
	List(ctx context.Context, userID string) ([]audit.Event, error)
}

// EventsResponse lists events oldest first.
type EventsResponse struct {
	UserID string        `json:"user_id"`
	Events []audit.Event `json:"events"`
}

// Handler exposes the audit trail to operators.
type Handler struct {
	events       Lister
	requireAdmin func(http.Handler) http.Handler
	logger       *slog.Logger
}

func New(events Lister, requireAdmin func(http.Handler) http.Handler, logger *slog.Logger) *Handler {
	return &Handler{events: events, requireAdmin: requireAdmin, logger: logger}
}

// Register registers the audit routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.With(h.requireAdmin).Get("/admin/audit/users/{id}", h.handleListUserEvents)
}

func (h *Handler) handleListUserEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := chi.URLParam(r, "id")

	events, err := h.events.List(ctx, userID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list audit events",
			"request_id", request.GetRequestID(ctx),
			"user_id", userID,
			"error", err,
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list audit events"))
		return
	}
	if events == nil {
		events = []audit.Event{}
	}
	httputil.WriteJSON(w, http.StatusOK, EventsResponse{UserID: userID, Events: events})
}
