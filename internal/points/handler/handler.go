package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	authModels "rotacultural/internal/auth/models"
	"rotacultural/internal/points/models"
	"rotacultural/internal/points/service"
	dErrors "rotacultural/pkg/domain-errors"
	"rotacultural/pkg/platform/httputil"
	request "rotacultural/pkg/platform/middleware/request"
)

const maxBodyBytes = 1 << 20

// Service defines the registry operations the handler needs.
type Service interface {
	CreateFor(ctx context.Context, raw models.RawInput, userID string) (string, error)
	List(ctx context.Context, params service.ListParams) (*service.Page, error)
	Search(ctx context.Context, term string) ([]*models.CulturalPoint, error)
	GetByID(ctx context.Context, id string) (*models.CulturalPoint, error)
	DeleteOwned(ctx context.Context, id, userID string) error
	Categories() models.Categories
}

// Oracle identifies the caller of a request.
type Oracle interface {
	CurrentUser(ctx context.Context) (*authModels.Principal, bool)
}

// Handler serves the cultural point endpoints.
type Handler struct {
	points      Service
	oracle      Oracle
	requireAuth func(http.Handler) http.Handler
	limitWrites func(http.Handler) http.Handler
	logger      *slog.Logger
}

// Option configures a Handler.
type Option func(*Handler)

// WithRateLimit throttles point submission and deletion.
func WithRateLimit(mw func(http.Handler) http.Handler) Option {
	return func(h *Handler) {
		if mw != nil {
			h.limitWrites = mw
		}
	}
}

func passThrough(next http.Handler) http.Handler { return next }

// New creates a points Handler. requireAuth guards the write endpoints.
func New(points Service, oracle Oracle, requireAuth func(http.Handler) http.Handler, logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{
		points:      points,
		oracle:      oracle,
		requireAuth: requireAuth,
		limitWrites: passThrough,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register registers the point routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/categories", h.handleCategories)
	r.Route("/points", func(r chi.Router) {
		r.Get("/", h.handleList)
		r.Get("/search", h.handleSearch)
		r.Get("/{id}", h.handleGet)

		r.Group(func(r chi.Router) {
			r.Use(h.requireAuth, h.limitWrites)
			r.With(request.ContentTypeJSON).Post("/", h.handleCreate)
			r.Delete("/{id}", h.handleDelete)
		})
	})
}

func (h *Handler) handleCategories(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, CategoriesResponse{Categories: h.points.Categories()})
}

// handleCreate stores a point owned by the authenticated user.
func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	user, ok := h.oracle.CurrentUser(ctx)
	if !ok {
		h.logger.ErrorContext(ctx, "user missing from context despite auth middleware",
			"request_id", requestID,
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return
	}

	var raw models.RawInput
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	decoder.UseNumber()
	if err := decoder.Decode(&raw); err != nil || raw == nil {
		h.logger.WarnContext(ctx, "invalid create point request",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "request body must be a JSON object"))
		return
	}

	id, err := h.points.CreateFor(ctx, raw, user.ID)
	if err != nil {
		h.writeServiceError(ctx, w, "failed to create point", err)
		return
	}
	w.Header().Set("Location", "/points/"+id)
	httputil.WriteJSON(w, http.StatusCreated, CreateResponse{ID: id})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()

	page, err := intParam(query.Get("page"), "page")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	limit, err := intParam(query.Get("limit"), "limit")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	result, err := h.points.List(ctx, service.ListParams{
		Page:     page,
		Category: strings.TrimSpace(query.Get("category")),
		Limit:    limit,
	})
	if err != nil {
		h.writeServiceError(ctx, w, "failed to list points", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toListResponse(result))
}

func (h *Handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	points, err := h.points.Search(ctx, strings.TrimSpace(r.URL.Query().Get("q")))
	if err != nil {
		h.writeServiceError(ctx, w, "failed to search points", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, SearchResponse{Items: nonNil(points)})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	point, err := h.points.GetByID(ctx, chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(ctx, w, "failed to get point", err)
		return
	}
	if point == nil {
		httputil.WriteError(w, service.ErrPointNotFound)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, point)
}

// handleDelete removes a point; only its creator may do so.
func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, ok := h.oracle.CurrentUser(ctx)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return
	}

	if err := h.points.DeleteOwned(ctx, chi.URLParam(r, "id"), user.ID); err != nil {
		h.writeServiceError(ctx, w, "failed to delete point", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// writeServiceError logs server-side failures and renders the error. Client
// errors are logged at warn level.
func (h *Handler) writeServiceError(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	requestID := request.GetRequestID(ctx)
	switch dErrors.CodeOf(err) {
	case dErrors.CodeStore, dErrors.CodeInternal:
		h.logger.ErrorContext(ctx, msg, "request_id", requestID, "error", err)
	default:
		h.logger.WarnContext(ctx, msg, "request_id", requestID, "error", err)
	}
	httputil.WriteError(w, err)
}

var errNotANumber = errors.New("not a number")

// intParam parses an optional integer query parameter; empty means zero.
func intParam(value, name string) (int, error) {
	if value == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, dErrors.Wrap(errNotANumber, dErrors.CodeBadRequest, name+" must be an integer")
	}
	return n, nil
}
