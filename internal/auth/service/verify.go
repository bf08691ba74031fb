package service

import (
	"context"
	"errors"
	"time"

	"takenotes/internal/auth/models"
	"takenotes/internal/auth/store/pending"
	id "takenotes/pkg/domain"
	dErrors "takenotes/pkg/domain-errors"
	"takenotes/pkg/email"
	"takenotes/pkg/platform/audit"
	"takenotes/pkg/platform/sentinel"
)

// Mismatched and missing codes share one wording so responses do not reveal
// whether a code is outstanding.
const invalidOTPMessage = "Invalid or expired OTP"

// VerifyOTP consumes the pending code for address and turns its draft into a
// verified user. A code can be consumed at most once.
func (s *Service) VerifyOTP(ctx context.Context, address, code string) (_ *models.AuthResult, err error) {
	ctx, end := s.startSpan(ctx, "auth.VerifyOTP")
	defer func() { end(err) }()

	address = email.Normalize(address)
	if address == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "Email is required")
	}
	if !pending.IsWellFormedCode(code) {
		return nil, dErrors.New(dErrors.CodeValidation, "OTP must be a 6-digit number")
	}

	entry, err := s.pending.ConsumeIfMatch(ctx, address, code)
	if err != nil {
		return nil, s.codeRejection(ctx, address, err)
	}

	user, err := s.persistDraft(ctx, entry.Draft)
	if err != nil {
		if !dErrors.HasCode(err, dErrors.CodeConflict) {
			s.restorePending(ctx, entry)
		}
		return nil, err
	}

	s.metrics.IncrementUsersCreated(string(user.Provider))
	s.emitAudit(ctx, audit.Event{Action: audit.EventOTPVerified, UserID: user.ID.String(), Email: user.Email})
	s.emitAudit(ctx, audit.Event{Action: audit.EventUserCreated, UserID: user.ID.String(), Email: user.Email, Provider: string(user.Provider)})

	result, err := s.issueCredential(user, true)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue token")
	}
	return result, nil
}

// restorePending returns a consumed code to the store after persistence
// failed, so the same code can be retried until it expires.
func (s *Service) restorePending(ctx context.Context, entry *models.PendingRegistration) {
	if err := s.pending.Restore(context.WithoutCancel(ctx), entry); err != nil {
		s.logger.WarnContext(ctx, "pending registration not restored",
			"error", err,
			"request_id", requestIDFrom(ctx),
		)
	}
}

func (s *Service) codeRejection(ctx context.Context, address string, err error) error {
	switch {
	case errors.Is(err, sentinel.ErrMismatch):
		s.metrics.IncrementCodeVerifyFailures("mismatch")
		s.emitAudit(ctx, audit.Event{Action: audit.EventAuthFailed, Email: address, Reason: "otp_mismatch"})
		return dErrors.New(dErrors.CodeInvalidCode, invalidOTPMessage)
	case errors.Is(err, sentinel.ErrNotFound), errors.Is(err, sentinel.ErrExpired):
		s.metrics.IncrementCodeVerifyFailures("absent")
		s.emitAudit(ctx, audit.Event{Action: audit.EventAuthFailed, Email: address, Reason: "otp_absent"})
		return dErrors.New(dErrors.CodeInvalidOrExpiredCode, invalidOTPMessage)
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to read pending registration")
	}
}

// persistDraft either creates a local user from the draft or activates the
// unverified placeholder the draft points at.
func (s *Service) persistDraft(ctx context.Context, draft models.RegistrationDraft) (*models.User, error) {
	now := s.now(ctx)
	if draft.ExistingUserID != nil {
		return s.activatePlaceholder(ctx, *draft.ExistingUserID, draft, now)
	}

	hash, err := s.hashPassword(ctx, draft.Password)
	if err != nil {
		return nil, err
	}
	user, err := models.NewLocalUser(id.NewUserID(), draft.FirstName, draft.LastName, draft.Email, hash, draft.DateOfBirth, now)
	if err != nil {
		return nil, err
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "User already exists with this email")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create user")
	}
	return user, nil
}

// activatePlaceholder verifies an existing unverified user. Fields the draft
// does not carry, as after a resend without a pending signup, keep the
// placeholder's values.
func (s *Service) activatePlaceholder(ctx context.Context, userID id.UserID, draft models.RegistrationDraft, now time.Time) (*models.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeInvalidOrExpiredCode, invalidOTPMessage)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}

	hash := user.PasswordHash
	if draft.Password != "" {
		if hash, err = s.hashPassword(ctx, draft.Password); err != nil {
			return nil, err
		}
	}
	firstName, lastName := draft.FirstName, draft.LastName
	if firstName == "" || lastName == "" {
		firstName, lastName = user.FirstName, user.LastName
	}
	dob := draft.DateOfBirth
	if dob == nil {
		dob = user.DateOfBirth
	}
	user.ApplyRegistration(firstName, lastName, hash, dob, now)

	if err := s.users.ActivateUnverified(ctx, user); err != nil {
		switch {
		case errors.Is(err, sentinel.ErrConflict):
			return nil, dErrors.New(dErrors.CodeConflict, "User already exists with this email")
		case errors.Is(err, sentinel.ErrNotFound):
			return nil, dErrors.New(dErrors.CodeInvalidOrExpiredCode, invalidOTPMessage)
		default:
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to activate user")
		}
	}
	return user, nil
}

func (s *Service) hashPassword(ctx context.Context, password string) (string, error) {
	hash, err := s.hasher.Hash(ctx, password)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeValidation) {
			return "", err
		}
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash password")
	}
	return hash, nil
}
