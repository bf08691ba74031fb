package service

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"takenotes/internal/auth/models"
	dErrors "takenotes/pkg/domain-errors"
	"takenotes/pkg/email"
	"takenotes/pkg/platform/sentinel"
)

// maxPasswordBytes is bcrypt's input limit.
const maxPasswordBytes = 72

// SignupInput is the registration form. DateOfBirth is optional, YYYY-MM-DD.
type SignupInput struct {
	FirstName   string
	LastName    string
	Email       string
	Password    string
	DateOfBirth string
}

// Signup validates the draft and sends a one-time code to its email. No user
// is written until the code is confirmed.
func (s *Service) Signup(ctx context.Context, in SignupInput) (_ *models.CodeIssued, err error) {
	ctx, end := s.startSpan(ctx, "auth.Signup")
	defer func() { end(err) }()

	draft, err := s.buildDraft(ctx, in)
	if err != nil {
		return nil, err
	}

	existing, err := s.users.FindByEmail(ctx, draft.Email)
	switch {
	case err == nil && existing.Verified:
		return nil, dErrors.New(dErrors.CodeConflict, "User already exists with this email")
	case err == nil:
		draft.ExistingUserID = &existing.ID
	case !errors.Is(err, sentinel.ErrNotFound):
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up user")
	}

	return s.issueCode(ctx, draft.Email, draft, flowSignup)
}

func (s *Service) buildDraft(ctx context.Context, in SignupInput) (models.RegistrationDraft, error) {
	firstName := strings.TrimSpace(in.FirstName)
	lastName := strings.TrimSpace(in.LastName)
	if err := models.ValidateNames(firstName, lastName); err != nil {
		return models.RegistrationDraft{}, err
	}

	address := email.Normalize(in.Email)
	if !email.IsValid(address) {
		return models.RegistrationDraft{}, dErrors.New(dErrors.CodeValidation, "Please provide a valid email address")
	}
	if err := validatePassword(in.Password); err != nil {
		return models.RegistrationDraft{}, err
	}

	dob, err := models.ParseDateOfBirth(in.DateOfBirth)
	if err != nil {
		return models.RegistrationDraft{}, err
	}
	if err := models.ValidateDateOfBirth(dob, s.now(ctx)); err != nil {
		return models.RegistrationDraft{}, err
	}

	return models.RegistrationDraft{
		FirstName:   firstName,
		LastName:    lastName,
		Email:       address,
		Password:    in.Password,
		DateOfBirth: dob,
		Provider:    models.ProviderLocal,
	}, nil
}

func validatePassword(password string) error {
	if utf8.RuneCountInString(password) < models.MinPasswordLength {
		return dErrors.New(dErrors.CodeValidation, "Password must be at least 6 characters long")
	}
	if len(password) > maxPasswordBytes {
		return dErrors.New(dErrors.CodeValidation, "Password must be at most 72 bytes long")
	}
	return nil
}
