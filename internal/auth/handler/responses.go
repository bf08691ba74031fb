package handler

import (
	"takenotes/internal/auth/models"
)

// AckResponse acknowledges a code issuance.
type AckResponse struct {
	Message string `json:"message"`
	Email   string `json:"email"`
}

// UserSummary is the public view of a user.
type UserSummary struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// AuthResponse is returned by every endpoint that issues a bearer token.
type AuthResponse struct {
	Message     string      `json:"message"`
	AccessToken string      `json:"access_token"`
	User        UserSummary `json:"user"`
}

// MeResponse is returned by GET /me.
type MeResponse struct {
	User UserSummary `json:"user"`
}

func newUserSummary(u *models.User) UserSummary {
	return UserSummary{
		ID:        u.ID.String(),
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
	}
}

func newAuthResponse(message string, result *models.AuthResult) *AuthResponse {
	return &AuthResponse{
		Message:     message,
		AccessToken: result.AccessToken,
		User:        newUserSummary(result.User),
	}
}
