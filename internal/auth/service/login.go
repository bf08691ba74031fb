package service

import (
	"context"
	"errors"

	"takenotes/internal/auth/models"
	dErrors "takenotes/pkg/domain-errors"
	"takenotes/pkg/email"
	"takenotes/pkg/platform/audit"
	"takenotes/pkg/platform/sentinel"
)

const invalidCredentialsMessage = "Invalid email or password"

// Login authenticates a local password user. Unknown emails, federated
// accounts and wrong passwords all yield the same error after comparable work.
func (s *Service) Login(ctx context.Context, address, password string) (_ *models.AuthResult, err error) {
	ctx, end := s.startSpan(ctx, "auth.Login")
	defer func() { end(err) }()

	address = email.Normalize(address)
	if address == "" || password == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "Email and password are required")
	}
	if !email.IsValid(address) {
		return nil, dErrors.New(dErrors.CodeValidation, "Please provide a valid email address")
	}

	user, err := s.users.FindByEmail(ctx, address)
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up user")
	}

	if user == nil || !user.HasPassword() {
		s.hasher.VerifyDummy(ctx, password)
		return nil, s.loginFailed(ctx, address, "unknown_account")
	}
	if !s.hasher.Verify(ctx, password, user.PasswordHash) {
		return nil, s.loginFailed(ctx, address, "wrong_password")
	}

	result, err := s.issueCredential(user, false)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue token")
	}
	s.emitAudit(ctx, audit.Event{
		Action:   audit.EventLoginSucceeded,
		UserID:   user.ID.String(),
		Email:    user.Email,
		Provider: string(models.ProviderLocal),
	})
	return result, nil
}

// loginFailed records the real reason internally and returns the generic error.
func (s *Service) loginFailed(ctx context.Context, address, reason string) error {
	s.metrics.IncrementLoginFailures(string(models.ProviderLocal))
	s.emitAudit(ctx, audit.Event{Action: audit.EventAuthFailed, Email: address, Reason: reason})
	return dErrors.New(dErrors.CodeInvalidCredentials, invalidCredentialsMessage)
}
