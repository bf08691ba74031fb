// Package domain holds typed identifiers shared across packages.
package domain

import (
	"github.com/google/uuid"

	dErrors "takenotes/pkg/domain-errors"
)

// UserID identifies a persistent User. The distinct type keeps user ids from
// being mixed up with other UUIDs at compile time.
type UserID uuid.UUID

// NewUserID returns a fresh random user id.
func NewUserID() UserID {
	return UserID(uuid.New())
}

// ParseUserID validates an id received from an untrusted source (token subject,
// path parameter). The nil UUID is rejected.
func ParseUserID(s string) (UserID, error) {
	parsed, err := parseUUID(s)
	if err != nil {
		return UserID{}, err
	}
	return UserID(parsed), nil
}

func (id UserID) String() string {
	return uuid.UUID(id).String()
}

// IsNil reports whether id is the zero value.
func (id UserID) IsNil() bool {
	return uuid.UUID(id) == uuid.Nil
}

// MarshalText lets UserID render as a plain UUID string in JSON.
func (id UserID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText parses a UUID string.
func (id *UserID) UnmarshalText(b []byte) error {
	parsed, err := ParseUserID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func parseUUID(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id is required")
	}
	if len(s) > 64 {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id is too long")
	}
	parsed, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id must be a valid UUID")
	}
	if parsed == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id must not be nil")
	}
	return parsed, nil
}
