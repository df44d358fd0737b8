package service

import (
	"context"
	"errors"

	dErrors "rotacultural/pkg/domain-errors"
	"rotacultural/pkg/platform/audit"
	"rotacultural/pkg/platform/sentinel"
	"rotacultural/pkg/requestcontext"
)

// DeleteUser removes an account. Points the user created are kept.
func (s *Service) DeleteUser(ctx context.Context, userID string) error {
	if userID == "" {
		return ErrUserIDRequired
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return ErrUserNotFound
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to lookup user")
	}

	if err := s.users.Delete(ctx, userID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return ErrUserNotFound
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete user")
	}

	s.logger.InfoContext(ctx, "user deleted",
		"user_id", userID,
		"email", user.Email,
	)
	event := audit.Event{Action: audit.ActionUserDeleted, UserID: userID, Email: user.Email}
	if actor := requestcontext.UserID(ctx); actor != userID {
		event.ActorID = actor
	}
	s.emitAudit(ctx, event)
	return nil
}
