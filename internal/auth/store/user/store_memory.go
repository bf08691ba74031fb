package user

import (
	"context"
	"fmt"
	"sync"

	"takenotes/internal/auth/models"
	id "takenotes/pkg/domain"
	"takenotes/pkg/platform/sentinel"
)

// Error Contract:
// - ErrNotFound when the requested user does not exist
// - ErrConflict when Create would duplicate an email or Google subject, or
//   ActivateUnverified targets a user that is already verified

// InMemoryUserStore keeps users in memory for development and tests. Users
// are copied on the way in and out.
type InMemoryUserStore struct {
	mu       sync.RWMutex
	users    map[id.UserID]*models.User
	byEmail  map[string]id.UserID
	byGoogle map[string]id.UserID
}

func New() *InMemoryUserStore {
	return &InMemoryUserStore{
		users:    make(map[id.UserID]*models.User),
		byEmail:  make(map[string]id.UserID),
		byGoogle: make(map[string]id.UserID),
	}
}

func (s *InMemoryUserStore) Create(_ context.Context, user *models.User) error {
	if user == nil {
		return fmt.Errorf("user is required: %w", sentinel.ErrInvalidState)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byEmail[user.Email]; exists {
		return fmt.Errorf("user with email already exists: %w", sentinel.ErrConflict)
	}
	if user.GoogleID != "" {
		if _, exists := s.byGoogle[user.GoogleID]; exists {
			return fmt.Errorf("user with google id already exists: %w", sentinel.ErrConflict)
		}
	}
	if _, exists := s.users[user.ID]; exists {
		return fmt.Errorf("user id already exists: %w", sentinel.ErrConflict)
	}

	cp := *user
	s.users[user.ID] = &cp
	s.byEmail[user.Email] = user.ID
	if user.GoogleID != "" {
		s.byGoogle[user.GoogleID] = user.ID
	}
	return nil
}

func (s *InMemoryUserStore) FindByID(_ context.Context, userID id.UserID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if u, ok := s.users[userID]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
}

func (s *InMemoryUserStore) FindByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if userID, ok := s.byEmail[email]; ok {
		cp := *s.users[userID]
		return &cp, nil
	}
	return nil, fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
}

// ActivateUnverified overwrites an unverified user with the registration
// details in user. The check and the write happen under one lock.
func (s *InMemoryUserStore) ActivateUnverified(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.users[user.ID]
	if !ok {
		return fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
	}
	if existing.Verified {
		return fmt.Errorf("user already verified: %w", sentinel.ErrConflict)
	}
	if existing.Email != user.Email {
		return fmt.Errorf("email cannot change on activation: %w", sentinel.ErrInvalidState)
	}
	cp := *user
	cp.CreatedAt = existing.CreatedAt
	s.users[user.ID] = &cp
	return nil
}
