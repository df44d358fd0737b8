package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"rotacultural/internal/auth/models"
	dErrors "rotacultural/pkg/domain-errors"
	"rotacultural/pkg/platform/httputil"
	request "rotacultural/pkg/platform/middleware/request"
)

const maxBodyBytes = 64 << 10

// Service defines the account operations the handler needs.
type Service interface {
	Register(ctx context.Context, creds models.Credentials) (*models.User, error)
	Login(ctx context.Context, creds models.Credentials) (*models.TokenResult, error)
	Logout(ctx context.Context, token string) error
	GetUser(ctx context.Context, userID string) (*models.User, error)
	DeleteUser(ctx context.Context, userID string) error
}

// Oracle identifies the caller of a request.
type Oracle interface {
	CurrentUser(ctx context.Context) (*models.Principal, bool)
}

// Handler serves registration, login and account endpoints.
type Handler struct {
	auth         Service
	oracle       Oracle
	requireAuth  func(http.Handler) http.Handler
	requireAdmin func(http.Handler) http.Handler
	limitLogin   func(http.Handler) http.Handler
	logger       *slog.Logger
}

// Option configures a Handler.
type Option func(*Handler)

// WithRateLimit throttles registration and login.
func WithRateLimit(mw func(http.Handler) http.Handler) Option {
	return func(h *Handler) {
		if mw != nil {
			h.limitLogin = mw
		}
	}
}

// New creates an auth Handler. requireAuth guards the account endpoints and
// requireAdmin the operator endpoints.
func New(
	auth Service,
	oracle Oracle,
	requireAuth func(http.Handler) http.Handler,
	requireAdmin func(http.Handler) http.Handler,
	logger *slog.Logger,
	opts ...Option) *Handler {
	h := &Handler{
		auth:         auth,
		oracle:       oracle,
		requireAuth:  requireAuth,
		requireAdmin: requireAdmin,
		limitLogin:   func(next http.Handler) http.Handler { return next },
		logger:       logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register registers the auth routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/auth", func(r chi.Router) {
		r.With(h.limitLogin, request.ContentTypeJSON).Post("/register", h.handleRegister)
		r.With(h.limitLogin, request.ContentTypeJSON).Post("/login", h.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(h.requireAuth)
			r.Post("/logout", h.handleLogout)
			r.Get("/me", h.handleMe)
			r.Delete("/me", h.handleDeleteMe)
		})
	})
	r.With(h.requireAdmin).Delete("/admin/users/{id}", h.handleAdminDeleteUser)
}

func (h *Handler) decodeCredentials(w http.ResponseWriter, r *http.Request) (models.Credentials, bool) {
	var creds models.Credentials
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&creds); err != nil {
		ctx := r.Context()
		h.logger.WarnContext(ctx, "invalid credentials request",
			"request_id", request.GetRequestID(ctx),
			"error", err.Error(),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return creds, false
	}
	return creds, true
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	creds, ok := h.decodeCredentials(w, r)
	if !ok {
		return
	}
	user, err := h.auth.Register(r.Context(), creds)
	if err != nil {
		h.writeServiceError(r.Context(), w, "failed to register user", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, user.ToResponse())
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	creds, ok := h.decodeCredentials(w, r)
	if !ok {
		return
	}
	result, err := h.auth.Login(r.Context(), creds)
	if err != nil {
		h.writeServiceError(r.Context(), w, "failed to log in", err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if err := h.auth.Logout(r.Context(), token); err != nil {
		h.writeServiceError(r.Context(), w, "failed to log out", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal, ok := h.oracle.CurrentUser(ctx)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return
	}
	user, err := h.auth.GetUser(ctx, principal.ID)
	if err != nil {
		h.writeServiceError(ctx, w, "failed to load current user", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, user.ToResponse())
}

func (h *Handler) handleDeleteMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal, ok := h.oracle.CurrentUser(ctx)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return
	}
	h.deleteUser(w, r, principal.ID)
}

func (h *Handler) handleAdminDeleteUser(w http.ResponseWriter, r *http.Request) {
	h.deleteUser(w, r, chi.URLParam(r, "id"))
}

func (h *Handler) deleteUser(w http.ResponseWriter, r *http.Request, userID string) {
	if err := h.auth.DeleteUser(r.Context(), userID); err != nil {
		h.writeServiceError(r.Context(), w, "failed to delete user", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeServiceError(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	requestID := request.GetRequestID(ctx)
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, msg, "request_id", requestID, "error", err)
	} else {
		h.logger.WarnContext(ctx, msg, "request_id", requestID, "error", err)
	}
	httputil.WriteError(w, err)
}
