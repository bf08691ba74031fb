// Package federation verifies identity tokens from external providers.
package federation

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"google.golang.org/api/idtoken"
	"google.golang.org/api/option"

	"takenotes/internal/auth/models"
	dErrors "takenotes/pkg/domain-errors"
)

// DefaultTimeout bounds one verification, including certificate fetches.
const DefaultTimeout = 5 * time.Second

var googleIssuers = map[string]struct{}{
	"accounts.google.com":         {},
	"https://accounts.google.com": {},
}

// TokenValidator checks a token's signature, expiry and audience.
// *idtoken.Validator satisfies it.
type TokenValidator interface {
	Validate(ctx context.Context, idToken string, audience string) (*idtoken.Payload, error)
}

// GoogleVerifier validates Google ID tokens issued to one OAuth client.
type GoogleVerifier struct {
	validator TokenValidator
	clientID  string
	timeout   time.Duration
}

// Option configures a GoogleVerifier.
type Option func(*GoogleVerifier)

// WithTimeout sets the per-call deadline.
func WithTimeout(d time.Duration) Option {
	return func(v *GoogleVerifier) {
		if d > 0 {
			v.timeout = d
		}
	}
}

// WithValidator replaces the idtoken validator (tests).
func WithValidator(validator TokenValidator) Option {
	return func(v *GoogleVerifier) {
		if validator != nil {
			v.validator = validator
		}
	}
}

// NewGoogleVerifier builds a verifier for clientID. Google's signing
// certificates are fetched and cached by the idtoken package over an HTTP
// client bounded by the same timeout.
func NewGoogleVerifier(ctx context.Context, clientID string, opts ...Option) (*GoogleVerifier, error) {
	v := &GoogleVerifier{clientID: clientID, timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(v)
	}
	if v.validator == nil {
		validator, err := idtoken.NewValidator(ctx, option.WithHTTPClient(&http.Client{Timeout: v.timeout}))
		if err != nil {
			return nil, fmt.Errorf("create google token validator: %w", err)
		}
		v.validator = validator
	}
	return v, nil
}

// Verify returns the identity asserted by token. Any failure, including a
// timeout, is reported as CodeInvalidToken; the cause is kept for logs.
func (v *GoogleVerifier) Verify(ctx context.Context, token string) (*models.FederatedClaims, error) {
	if v.clientID == "" {
		return nil, dErrors.New(dErrors.CodeInvalidToken, "google sign-in is not configured")
	}

	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	payload, err := v.validator.Validate(ctx, token, v.clientID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidToken, "invalid Google token")
	}
	if _, ok := googleIssuers[payload.Issuer]; !ok {
		return nil, dErrors.New(dErrors.CodeInvalidToken, "invalid Google token issuer")
	}

	claims := &models.FederatedClaims{
		Subject:       payload.Subject,
		Email:         strings.TrimSpace(stringClaim(payload.Claims, "email")),
		EmailVerified: boolClaim(payload.Claims, "email_verified"),
		GivenName:     strings.TrimSpace(stringClaim(payload.Claims, "given_name")),
		FamilyName:    strings.TrimSpace(stringClaim(payload.Claims, "family_name")),
		Name:          strings.TrimSpace(stringClaim(payload.Claims, "name")),
		Picture:       stringClaim(payload.Claims, "picture"),
	}
	if claims.Subject == "" {
		return nil, dErrors.New(dErrors.CodeInvalidToken, "Google token has no subject")
	}
	if claims.Email == "" {
		return nil, dErrors.New(dErrors.CodeInvalidToken, "Google token has no email")
	}
	if !claims.EmailVerified {
		return nil, dErrors.New(dErrors.CodeInvalidToken, "Google email is not verified")
	}
	return claims, nil
}

func stringClaim(claims map[string]interface{}, key string) string {
	if v, ok := claims[key].(string); ok {
		return v
	}
	return ""
}

// boolClaim accepts both JSON booleans and the "true" string some Google
// tokens carry.
func boolClaim(claims map[string]interface{}, key string) bool {
	switch v := claims[key].(type) {
	case bool:
		return v
	case string:
		return strings.EqualFold(v, "true")
	default:
		return false
	}
}
