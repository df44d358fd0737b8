package service

import (
	"context"

	"rotacultural/internal/auth/models"
	"rotacultural/pkg/requestcontext"
)

// ContextOracle answers "who is calling" from the request context populated
// by the auth middleware.
type ContextOracle struct{}

// CurrentUser returns the authenticated caller, or false when the request
// carries no user.
func (ContextOracle) CurrentUser(ctx context.Context) (*models.Principal, bool) {
	id := requestcontext.UserID(ctx)
	if id == "" {
		return nil, false
	}
	return &models.Principal{ID: id, Email: requestcontext.UserEmail(ctx)}, true
}
