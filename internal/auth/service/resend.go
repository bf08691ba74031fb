package service

import (
	"context"
	"errors"

	"takenotes/internal/auth/models"
	dErrors "takenotes/pkg/domain-errors"
	"takenotes/pkg/email"
	"takenotes/pkg/platform/sentinel"
)

// ResendOTP issues a new code for an outstanding registration, invalidating
// the previous one. Without a pending entry an unverified user must exist.
func (s *Service) ResendOTP(ctx context.Context, address string) (_ *models.CodeIssued, err error) {
	ctx, end := s.startSpan(ctx, "auth.ResendOTP")
	defer func() { end(err) }()

	address = email.Normalize(address)
	if address == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "Email is required")
	}

	var draft models.RegistrationDraft
	entry, err := s.pending.Get(ctx, address)
	switch {
	case err == nil:
		draft = entry.Draft
	case errors.Is(err, sentinel.ErrNotFound), errors.Is(err, sentinel.ErrExpired):
		user, findErr := s.users.FindByEmail(ctx, address)
		if findErr != nil && !errors.Is(findErr, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(findErr, dErrors.CodeInternal, "failed to look up user")
		}
		if user == nil || user.Verified {
			return nil, dErrors.New(dErrors.CodeNotFound, "No pending verification for this email.")
		}
		draft = models.RegistrationDraft{
			Email:          address,
			Provider:       models.ProviderLocal,
			ExistingUserID: &user.ID,
		}
	default:
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read pending registration")
	}

	return s.issueCode(ctx, address, draft, flowResend)
}
