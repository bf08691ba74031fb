package user

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"takenotes/internal/auth/models"
	id "takenotes/pkg/domain"
	"takenotes/pkg/platform/sentinel"
)

type InMemoryUserStoreSuite struct {
	suite.Suite
	store *InMemoryUserStore
}

func (s *InMemoryUserStoreSuite) SetupTest() {
	s.store = New()
}

func TestInMemoryUserStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryUserStoreSuite))
}

func newUser(email string) *models.User {
	now := time.Now()
	return &models.User{
		ID:           id.NewUserID(),
		Email:        email,
		FirstName:    "Jane",
		LastName:     "Doe",
		PasswordHash: "$2a$10$hash",
		Provider:     models.ProviderLocal,
		Verified:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// TestLookupBehavior tests user retrieval by ID and email.
func (s *InMemoryUserStoreSuite) TestLookupBehavior() {
	ctx := context.Background()

	s.Run("returns user by ID when exists", func() {
		user := newUser("jane.doe@example.com")
		s.Require().NoError(s.store.Create(ctx, user))

		found, err := s.store.FindByID(ctx, user.ID)
		s.Require().NoError(err)
		s.Equal(user, found)
	})

	s.Run("returns user by email when exists", func() {
		user := newUser("email.lookup@example.com")
		s.Require().NoError(s.store.Create(ctx, user))

		found, err := s.store.FindByEmail(ctx, user.Email)
		s.Require().NoError(err)
		s.Equal(user.ID, found.ID)
	})

	s.Run("returns ErrNotFound when user ID does not exist", func() {
		_, err := s.store.FindByID(ctx, id.NewUserID())
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("returns ErrNotFound when email does not exist", func() {
		_, err := s.store.FindByEmail(ctx, "missing@example.com")
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("returned users are copies", func() {
		user := newUser("copy@example.com")
		s.Require().NoError(s.store.Create(ctx, user))

		found, err := s.store.FindByID(ctx, user.ID)
		s.Require().NoError(err)
		found.FirstName = "Mutated"

		again, err := s.store.FindByID(ctx, user.ID)
		s.Require().NoError(err)
		s.Equal("Jane", again.FirstName)
	})
}

// TestUniqueness tests the one-user-per-email invariant.
func (s *InMemoryUserStoreSuite) TestUniqueness() {
	ctx := context.Background()

	s.Run("duplicate email conflicts", func() {
		s.Require().NoError(s.store.Create(ctx, newUser("dup@example.com")))
		err := s.store.Create(ctx, newUser("dup@example.com"))
		s.ErrorIs(err, sentinel.ErrConflict)
	})

	s.Run("duplicate google subject conflicts", func() {
		a := newUser("g1@example.com")
		a.Provider, a.GoogleID, a.PasswordHash = models.ProviderGoogle, "sub-1", ""
		b := newUser("g2@example.com")
		b.Provider, b.GoogleID, b.PasswordHash = models.ProviderGoogle, "sub-1", ""

		s.Require().NoError(s.store.Create(ctx, a))
		s.ErrorIs(s.store.Create(ctx, b), sentinel.ErrConflict)
	})

	s.Run("concurrent creates for one email yield one user", func() {
		const goroutines = 20
		var wg sync.WaitGroup
		var created atomic.Int32
		for i := 0; i < goroutines; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := s.store.Create(ctx, newUser("race@example.com")); err == nil {
					created.Add(1)
				}
			}()
		}
		wg.Wait()
		s.Equal(int32(1), created.Load())
	})
}

// TestActivateUnverified tests in-place activation of placeholder users.
func (s *InMemoryUserStoreSuite) TestActivateUnverified() {
	ctx := context.Background()

	s.Run("activates an unverified user", func() {
		placeholder := newUser("pending@example.com")
		placeholder.Verified = false
		placeholder.PasswordHash = ""
		s.Require().NoError(s.store.Create(ctx, placeholder))

		activated := *placeholder
		activated.ApplyRegistration("Ada", "Lovelace", "$2a$10$new", nil, time.Now())
		s.Require().NoError(s.store.ActivateUnverified(ctx, &activated))

		found, err := s.store.FindByEmail(ctx, "pending@example.com")
		s.Require().NoError(err)
		s.True(found.Verified)
		s.Equal("Ada", found.FirstName)
		s.Equal(placeholder.CreatedAt, found.CreatedAt)
	})

	s.Run("verified user conflicts", func() {
		user := newUser("done@example.com")
		s.Require().NoError(s.store.Create(ctx, user))
		s.ErrorIs(s.store.ActivateUnverified(ctx, user), sentinel.ErrConflict)
	})

	s.Run("missing user is not found", func() {
		s.ErrorIs(s.store.ActivateUnverified(ctx, newUser("ghost@example.com")), sentinel.ErrNotFound)
	})
}
