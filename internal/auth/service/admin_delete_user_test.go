package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/mock/gomock"

	"rotacultural/internal/auth/models"
	"rotacultural/internal/auth/service/mocks"
	"rotacultural/internal/auth/store/revocation"
	dErrors "rotacultural/pkg/domain-errors"
	"rotacultural/pkg/platform/sentinel"
)

func (s *ServiceSuite) TestDeleteUser() {
	user := s.register("ana@example.com", "segredo1")

	s.Require().NoError(s.service.DeleteUser(s.ctx, user.ID))
	_, err := s.service.GetUser(s.ctx, user.ID)
	s.ErrorIs(err, ErrUserNotFound)

	s.Run("email can be registered again", func() {
		s.register("ana@example.com", "segredo2")
	})

	s.Run("missing user", func() {
		s.ErrorIs(s.service.DeleteUser(s.ctx, user.ID), ErrUserNotFound)
	})
}

// TestDeleteUser_ErrorPropagation covers store failures that the in-memory
// store cannot produce.
func (s *ServiceSuite) TestDeleteUser_ErrorPropagation() {
	ctx := context.Background()
	existingUser := &models.User{ID: "u1", Email: "user@example.com"}

	newService := func() (*Service, *mocks.MockUserStore) {
		ctrl := gomock.NewController(s.T())
		store := mocks.NewMockUserStore(ctrl)
		return New(store, s.tokens, revocation.NewInMemoryTRL(), time.Hour), store
	}

	s.Run("user lookup fails", func() {
		svc, store := newService()
		store.EXPECT().FindByID(ctx, "u1").Return(nil, errors.New("db down"))

		err := svc.DeleteUser(ctx, "u1")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	})

	s.Run("user not found", func() {
		svc, store := newService()
		store.EXPECT().FindByID(ctx, "u1").Return(nil, sentinel.ErrNotFound)

		err := svc.DeleteUser(ctx, "u1")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("user delete fails", func() {
		svc, store := newService()
		store.EXPECT().FindByID(ctx, "u1").Return(existingUser, nil)
		store.EXPECT().Delete(ctx, "u1").Return(errors.New("write fail"))

		err := svc.DeleteUser(ctx, "u1")
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	})

	s.Run("empty id", func() {
		svc, _ := newService()
		s.ErrorIs(svc.DeleteUser(ctx, ""), ErrUserIDRequired)
	})
}
