package handler

import (
	"strings"

	"takenotes/internal/auth/store/pending"
	dErrors "takenotes/pkg/domain-errors"
	"takenotes/pkg/email"
)

// SignupRequest is the body of POST /signup. The service applies the full
// name, password and date of birth rules.
type SignupRequest struct {
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	DateOfBirth string `json:"dateOfBirth,omitempty"`
}

func (r *SignupRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.LastName = strings.TrimSpace(r.LastName)
	r.Email = email.Normalize(r.Email)
	r.DateOfBirth = strings.TrimSpace(r.DateOfBirth)

	if r.FirstName == "" {
		return dErrors.New(dErrors.CodeValidation, "First name is required")
	}
	if r.LastName == "" {
		return dErrors.New(dErrors.CodeValidation, "Last name is required")
	}
	if !email.IsValid(r.Email) {
		return dErrors.New(dErrors.CodeValidation, "Please provide a valid email address")
	}
	if r.Password == "" {
		return dErrors.New(dErrors.CodeValidation, "Password is required")
	}
	return nil
}

// VerifyOTPRequest is the body of POST /verify-otp.
type VerifyOTPRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

func (r *VerifyOTPRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.Email = email.Normalize(r.Email)

	if !email.IsValid(r.Email) {
		return dErrors.New(dErrors.CodeValidation, "Please provide a valid email address")
	}
	if r.OTP == "" {
		return dErrors.New(dErrors.CodeValidation, "OTP is required")
	}
	// The code is taken verbatim; surrounding whitespace makes it malformed.
	if !pending.IsWellFormedCode(r.OTP) {
		return dErrors.New(dErrors.CodeValidation, "OTP must be a 6-digit number")
	}
	return nil
}

// LoginRequest is the body of POST /login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *LoginRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.Email = email.Normalize(r.Email)

	if r.Email == "" || r.Password == "" {
		return dErrors.New(dErrors.CodeValidation, "Email and password are required")
	}
	if !email.IsValid(r.Email) {
		return dErrors.New(dErrors.CodeValidation, "Please provide a valid email address")
	}
	return nil
}

// GoogleRequest is the body of POST /google.
type GoogleRequest struct {
	Token string `json:"token"`
}

func (r *GoogleRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.Token = strings.TrimSpace(r.Token)
	if r.Token == "" {
		return dErrors.New(dErrors.CodeValidation, "Google token is required")
	}
	return nil
}

// ResendOTPRequest is the body of POST /resend-otp.
type ResendOTPRequest struct {
	Email string `json:"email"`
}

func (r *ResendOTPRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.Email = email.Normalize(r.Email)
	if r.Email == "" {
		return dErrors.New(dErrors.CodeValidation, "Email is required")
	}
	return nil
}
