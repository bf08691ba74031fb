package service

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"takenotes/internal/auth/models"
	id "takenotes/pkg/domain"
	dErrors "takenotes/pkg/domain-errors"
	"takenotes/pkg/email"
	"takenotes/pkg/platform/audit"
	"takenotes/pkg/platform/sentinel"
)

// GoogleLogin signs in with a Google ID token. The email is the linking key:
// an existing user with that email is logged in whatever its provider,
// otherwise a verified Google user is created.
func (s *Service) GoogleLogin(ctx context.Context, token string) (_ *models.AuthResult, err error) {
	ctx, end := s.startSpan(ctx, "auth.GoogleLogin")
	defer func() { end(err) }()

	token = strings.TrimSpace(token)
	if token == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "Google token is required")
	}
	if s.verifier == nil {
		return nil, dErrors.New(dErrors.CodeInvalidToken, "Google sign-in is not configured")
	}

	claims, err := s.verifier.Verify(ctx, token)
	if err != nil {
		s.metrics.IncrementLoginFailures(string(models.ProviderGoogle))
		s.emitAudit(ctx, audit.Event{Action: audit.EventAuthFailed, Provider: string(models.ProviderGoogle), Reason: "invalid_token"})
		s.logger.WarnContext(ctx, "google token rejected",
			"error", err,
			"request_id", requestIDFrom(ctx),
		)
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidToken, "Invalid Google token")
	}

	address := email.Normalize(claims.Email)
	user, err := s.users.FindByEmail(ctx, address)
	switch {
	case err == nil:
		return s.federatedLogin(ctx, user)
	case !errors.Is(err, sentinel.ErrNotFound):
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up user")
	}

	firstName, lastName := federatedNames(claims, address)
	user, err = models.NewFederatedUser(id.NewUserID(), firstName, lastName, address, claims.Subject, s.now(ctx))
	if err != nil {
		return nil, err
	}
	if err := s.users.Create(ctx, user); err != nil {
		if !errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create user")
		}
		// A concurrent first sign-in for the same identity won the insert.
		existing, findErr := s.users.FindByEmail(ctx, address)
		if findErr != nil {
			if errors.Is(findErr, sentinel.ErrNotFound) {
				return nil, dErrors.New(dErrors.CodeConflict, "Google account is already linked to another user")
			}
			return nil, dErrors.Wrap(findErr, dErrors.CodeInternal, "failed to look up user")
		}
		return s.federatedLogin(ctx, existing)
	}

	s.metrics.IncrementUsersCreated(string(models.ProviderGoogle))
	s.emitAudit(ctx, audit.Event{
		Action:   audit.EventUserCreated,
		UserID:   user.ID.String(),
		Email:    user.Email,
		Provider: string(models.ProviderGoogle),
	})

	result, err := s.issueCredential(user, true)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue token")
	}
	return result, nil
}

func (s *Service) federatedLogin(ctx context.Context, user *models.User) (*models.AuthResult, error) {
	result, err := s.issueCredential(user, false)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue token")
	}
	s.emitAudit(ctx, audit.Event{
		Action:   audit.EventLoginSucceeded,
		UserID:   user.ID.String(),
		Email:    user.Email,
		Provider: string(models.ProviderGoogle),
	})
	return result, nil
}

// federatedNames prefers the token's given and family names and fills gaps
// from the email local part.
func federatedNames(claims *models.FederatedClaims, address string) (string, string) {
	derivedFirst, derivedLast := email.DeriveNameFromEmail(address)
	firstName, lastName := claims.GivenName, claims.FamilyName
	if firstName == "" {
		firstName = derivedFirst
	}
	if lastName == "" {
		lastName = derivedLast
	}
	return truncateRunes(firstName, models.MaxNameLength), truncateRunes(lastName, models.MaxNameLength)
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
