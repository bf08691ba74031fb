package service

import (
	"context"
	"errors"

	"takenotes/internal/auth/models"
	id "takenotes/pkg/domain"
	dErrors "takenotes/pkg/domain-errors"
	"takenotes/pkg/platform/sentinel"
)

// Me returns the user a bearer token was issued to.
func (s *Service) Me(ctx context.Context, userID id.UserID) (*models.User, error) {
	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "User not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}
	return user, nil
}
