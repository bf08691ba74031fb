package service

import (
	"fmt"

	"takenotes/pkg/platform/sentinel"
)

func userNotFound() error {
	return fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
}

func userConflict() error {
	return fmt.Errorf("user with email already exists: %w", sentinel.ErrConflict)
}
