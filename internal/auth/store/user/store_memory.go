package user

import (
	"context"
	"sync"

	"rotacultural/internal/auth/models"
	"rotacultural/pkg/platform/sentinel"
)

// ErrNotFound is returned when no user matches the lookup.
var ErrNotFound = sentinel.ErrNotFound

// ErrEmailTaken is returned when saving a new user with a registered email.
var ErrEmailTaken = sentinel.ErrAlreadyUsed

// InMemoryUserStore keeps users in process, indexed by id and email.
type InMemoryUserStore struct {
	mu      sync.RWMutex
	users   map[string]*models.User
	byEmail map[string]string
}

func New() *InMemoryUserStore {
	return &InMemoryUserStore{
		users:   make(map[string]*models.User),
		byEmail: make(map[string]string),
	}
}

// Save inserts or updates a user. The email must not belong to another user.
func (s *InMemoryUserStore) Save(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ownerID, ok := s.byEmail[user.Email]; ok && ownerID != user.ID {
		return ErrEmailTaken
	}
	if existing, ok := s.users[user.ID]; ok && existing.Email != user.Email {
		delete(s.byEmail, existing.Email)
	}
	stored := *user
	s.users[user.ID] = &stored
	s.byEmail[user.Email] = user.ID
	return nil
}

func (s *InMemoryUserStore) FindByID(_ context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if user, ok := s.users[id]; ok {
		found := *user
		return &found, nil
	}
	return nil, ErrNotFound
}

func (s *InMemoryUserStore) FindByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if id, ok := s.byEmail[email]; ok {
		found := *s.users[id]
		return &found, nil
	}
	return nil, ErrNotFound
}

func (s *InMemoryUserStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return ErrNotFound
	}
	delete(s.byEmail, user.Email)
	delete(s.users, id)
	return nil
}
