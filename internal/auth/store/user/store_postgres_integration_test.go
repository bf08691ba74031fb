//go:build integration

package user_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"takenotes/internal/auth/models"
	"takenotes/internal/auth/store/user"
	id "takenotes/pkg/domain"
	"takenotes/pkg/platform/sentinel"
	"takenotes/pkg/testutil/containers"
)

type PostgresUserStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *user.PostgresStore
}

func TestPostgresUserStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresUserStoreSuite))
}

func (s *PostgresUserStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = user.NewPostgres(s.postgres.DB)
}

func (s *PostgresUserStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "users"))
}

func newLocalUser(email string) *models.User {
	now := time.Now().UTC().Truncate(time.Microsecond)
	dob := time.Date(1990, 7, 4, 0, 0, 0, 0, time.UTC)
	return &models.User{
		ID:           id.NewUserID(),
		FirstName:    "Jane",
		LastName:     "Doe",
		Email:        email,
		DateOfBirth:  &dob,
		PasswordHash: "$2a$10$hash",
		Provider:     models.ProviderLocal,
		Verified:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func (s *PostgresUserStoreSuite) TestRoundTrip() {
	ctx := context.Background()
	u := newLocalUser("jane@example.com")
	s.Require().NoError(s.store.Create(ctx, u))

	byID, err := s.store.FindByID(ctx, u.ID)
	s.Require().NoError(err)
	s.Equal(u.Email, byID.Email)
	s.Equal(u.PasswordHash, byID.PasswordHash)
	s.Require().NotNil(byID.DateOfBirth)
	s.True(u.DateOfBirth.Equal(*byID.DateOfBirth))
	s.True(u.CreatedAt.Equal(byID.CreatedAt))

	byEmail, err := s.store.FindByEmail(ctx, "JANE@example.com")
	s.Require().NoError(err)
	s.Equal(u.ID, byEmail.ID)

	_, err = s.store.FindByID(ctx, id.NewUserID())
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresUserStoreSuite) TestFederatedUserHasNoPassword() {
	ctx := context.Background()
	now := time.Now().UTC()
	u, err := models.NewFederatedUser(id.NewUserID(), "Grace", "Hopper", "grace@example.com", "google-sub", now)
	s.Require().NoError(err)
	s.Require().NoError(s.store.Create(ctx, u))

	found, err := s.store.FindByEmail(ctx, "grace@example.com")
	s.Require().NoError(err)
	s.Empty(found.PasswordHash)
	s.Nil(found.DateOfBirth)
	s.Equal("google-sub", found.GoogleID)
	s.Equal(models.ProviderGoogle, found.Provider)
}

// TestConcurrentUniqueEmailViolation verifies that concurrent creation attempts
// with the same email result in exactly one success.
func (s *PostgresUserStoreSuite) TestConcurrentUniqueEmailViolation() {
	ctx := context.Background()
	const goroutines = 20

	var wg sync.WaitGroup
	var successCount, conflictCount atomic.Int32
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.store.Create(ctx, newLocalUser("race@example.com"))
			switch {
			case err == nil:
				successCount.Add(1)
			case errors.Is(err, sentinel.ErrConflict):
				conflictCount.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), successCount.Load())
	s.Equal(int32(goroutines-1), conflictCount.Load())
}

func (s *PostgresUserStoreSuite) TestActivateUnverified() {
	ctx := context.Background()
	placeholder := newLocalUser("pending@example.com")
	placeholder.Verified = false
	placeholder.PasswordHash = ""
	s.Require().NoError(s.store.Create(ctx, placeholder))

	activated := *placeholder
	activated.ApplyRegistration("Ada", "Lovelace", "$2a$10$new", nil, time.Now().UTC())
	s.Require().NoError(s.store.ActivateUnverified(ctx, &activated))

	found, err := s.store.FindByID(ctx, placeholder.ID)
	s.Require().NoError(err)
	s.True(found.Verified)
	s.Equal("Ada", found.FirstName)

	s.ErrorIs(s.store.ActivateUnverified(ctx, &activated), sentinel.ErrConflict)
	s.ErrorIs(s.store.ActivateUnverified(ctx, newLocalUser("ghost@example.com")), sentinel.ErrNotFound)
}
