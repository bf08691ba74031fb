package models

import (
	"strings"
	"time"
	"unicode/utf8"

	id "takenotes/pkg/domain"
	dErrors "takenotes/pkg/domain-errors"
)

const (
	// MaxNameLength bounds first and last names.
	MaxNameLength = 50
	// MinPasswordLength is the shortest password accepted at registration.
	MinPasswordLength = 6
	// MinimumAge is the youngest age, in years, allowed to register with a date of birth.
	MinimumAge = 13
	// DateOfBirthLayout is the wire format of dates of birth.
	DateOfBirthLayout = "2006-01-02"
)

// Provider identifies how a user authenticates.
type Provider string

const (
	ProviderLocal  Provider = "local"
	ProviderGoogle Provider = "google"
)

func (p Provider) IsValid() bool {
	return p == ProviderLocal || p == ProviderGoogle
}

// User is a persistent identity.
//
// Invariants:
//   - Email is normalized and unique across users
//   - Local users carry a password hash; federated users do not
//   - FirstName and LastName are non-empty and at most 50 characters
//   - DateOfBirth, when set, implies an age of at least 13
type User struct {
	ID           id.UserID  `json:"id"`
	FirstName    string     `json:"first_name"`
	LastName     string     `json:"last_name"`
	Email        string     `json:"email"`
	DateOfBirth  *time.Time `json:"date_of_birth,omitempty"`
	PasswordHash string     `json:"-"`
	Provider     Provider   `json:"provider"`
	GoogleID     string     `json:"google_id,omitempty"`
	Verified     bool       `json:"verified"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// NewLocalUser builds a verified password user.
func NewLocalUser(userID id.UserID, firstName, lastName, email, passwordHash string, dob *time.Time, now time.Time) (*User, error) {
	if err := ValidateNames(firstName, lastName); err != nil {
		return nil, err
	}
	if email == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "email is required")
	}
	if passwordHash == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "password is required")
	}
	if err := ValidateDateOfBirth(dob, now); err != nil {
		return nil, err
	}
	return &User{
		ID:           userID,
		FirstName:    firstName,
		LastName:     lastName,
		Email:        email,
		DateOfBirth:  dob,
		PasswordHash: passwordHash,
		Provider:     ProviderLocal,
		Verified:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// NewFederatedUser builds a verified Google user without a password.
func NewFederatedUser(userID id.UserID, firstName, lastName, email, googleID string, now time.Time) (*User, error) {
	if err := ValidateNames(firstName, lastName); err != nil {
		return nil, err
	}
	if email == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "email is required")
	}
	return &User{
		ID:        userID,
		FirstName: firstName,
		LastName:  lastName,
		Email:     email,
		Provider:  ProviderGoogle,
		GoogleID:  googleID,
		Verified:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// ApplyRegistration activates an unverified placeholder with the details
// confirmed through a one-time code.
func (u *User) ApplyRegistration(firstName, lastName, passwordHash string, dob *time.Time, now time.Time) {
	u.FirstName = firstName
	u.LastName = lastName
	u.PasswordHash = passwordHash
	u.DateOfBirth = dob
	u.Provider = ProviderLocal
	u.Verified = true
	u.UpdatedAt = now
}

// HasPassword reports whether the user can log in with a password.
func (u *User) HasPassword() bool {
	return u.Provider == ProviderLocal && u.PasswordHash != ""
}

// ValidateNames checks the first and last name constraints.
func ValidateNames(firstName, lastName string) error {
	if firstName == "" {
		return dErrors.New(dErrors.CodeValidation, "first name is required")
	}
	if lastName == "" {
		return dErrors.New(dErrors.CodeValidation, "last name is required")
	}
	if utf8.RuneCountInString(firstName) > MaxNameLength {
		return dErrors.New(dErrors.CodeValidation, "first name must be at most 50 characters")
	}
	if utf8.RuneCountInString(lastName) > MaxNameLength {
		return dErrors.New(dErrors.CodeValidation, "last name must be at most 50 characters")
	}
	return nil
}

// ParseDateOfBirth parses a YYYY-MM-DD date. An empty string yields nil.
func ParseDateOfBirth(value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	dob, err := time.Parse(DateOfBirthLayout, value)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeValidation, "date of birth must be in YYYY-MM-DD format")
	}
	return &dob, nil
}

// ValidateDateOfBirth rejects future dates and ages under MinimumAge.
func ValidateDateOfBirth(dob *time.Time, now time.Time) error {
	if dob == nil {
		return nil
	}
	if dob.After(now) {
		return dErrors.New(dErrors.CodeValidation, "date of birth cannot be in the future")
	}
	if AgeAt(*dob, now) < MinimumAge {
		return dErrors.New(dErrors.CodeValidation, "you must be at least 13 years old to register")
	}
	return nil
}

// AgeAt returns the age in whole years on now.
func AgeAt(dob, now time.Time) int {
	years := now.Year() - dob.Year()
	if now.Month() < dob.Month() || (now.Month() == dob.Month() && now.Day() < dob.Day()) {
		years--
	}
	return years
}

// RegistrationDraft is what a pending registration will become once its code
// is confirmed. ExistingUserID is set when the code reactivates an unverified
// user instead of creating a new one.
type RegistrationDraft struct {
	FirstName      string
	LastName       string
	Email          string
	Password       string
	DateOfBirth    *time.Time
	Provider       Provider
	ExistingUserID *id.UserID
}

// PendingRegistration is an unconfirmed one-time code for an email address.
type PendingRegistration struct {
	Email     string
	Code      string
	Draft     RegistrationDraft
	CreatedAt time.Time
	ExpiresAt time.Time
}

// IsExpiredAt reports whether the code is unusable at now.
func (p *PendingRegistration) IsExpiredAt(now time.Time) bool {
	return !now.Before(p.ExpiresAt)
}

// FederatedClaims are the verified identity facts from a Google ID token.
type FederatedClaims struct {
	Subject       string
	Email         string
	EmailVerified bool
	GivenName     string
	FamilyName    string
	Name          string
	Picture       string
}

// AuthResult is returned by every operation that issues a credential.
type AuthResult struct {
	User        *User
	AccessToken string
	ExpiresAt   time.Time
	// Created is true when the operation created the user.
	Created bool
}

// CodeIssued acknowledges a one-time code issuance. The code itself is never
// returned to callers.
type CodeIssued struct {
	Email     string
	ExpiresAt time.Time
}
