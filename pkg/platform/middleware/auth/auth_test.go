package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"rotacultural/pkg/requestcontext"
)

type stubRevocations struct {
	revoked map[string]bool
	err     error
}

func (s stubRevocations) IsTokenRevoked(_ context.Context, jti string) (bool, error) {
	return s.revoked[jti], s.err
}

type stubValidator struct {
	claims *JWTClaims
	err    error
	got    string
}

func (s *stubValidator) ValidateToken(token string) (*JWTClaims, error) {
	s.got = token
	return s.claims, s.err
}

func TestRequireAuth(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	var gotUser, gotEmail string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser = requestcontext.UserID(r.Context())
		gotEmail = requestcontext.UserEmail(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})

	t.Run("valid token", func(t *testing.T) {
		validator := &stubValidator{claims: &JWTClaims{UserID: "u1", Email: "ana@example.com"}}
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer tok")
		w := httptest.NewRecorder()

		RequireAuth(validator, nil, logger)(next).ServeHTTP(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, "tok", validator.got)
		assert.Equal(t, "u1", gotUser)
		assert.Equal(t, "ana@example.com", gotEmail)
	})

	t.Run("missing header", func(t *testing.T) {
		w := httptest.NewRecorder()
		RequireAuth(&stubValidator{}, nil, logger)(next).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.JSONEq(t, `{"error":"unauthorized","error_description":"Missing or invalid Authorization header"}`, w.Body.String())
	})

	t.Run("invalid token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer nope")
		w := httptest.NewRecorder()
		RequireAuth(&stubValidator{err: errors.New("expired")}, nil, logger)(next).ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "Invalid or expired token")
	})

	t.Run("revoked token", func(t *testing.T) {
		validator := &stubValidator{claims: &JWTClaims{UserID: "u1", JTI: "jti-1"}}
		revocations := stubRevocations{revoked: map[string]bool{"jti-1": true}}
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer tok")
		w := httptest.NewRecorder()
		RequireAuth(validator, revocations, logger)(next).ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "Token has been revoked")
	})

	t.Run("revocation lookup fails", func(t *testing.T) {
		validator := &stubValidator{claims: &JWTClaims{UserID: "u1", JTI: "jti-1"}}
		revocations := stubRevocations{err: errors.New("redis down")}
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer tok")
		w := httptest.NewRecorder()
		RequireAuth(validator, revocations, logger)(next).ServeHTTP(w, req)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}
