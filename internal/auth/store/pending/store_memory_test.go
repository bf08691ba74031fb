package pending

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

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type PendingStoreSuite struct {
	suite.Suite
	clock *fakeClock
	store *InMemoryStore
	ctx   context.Context
}

func (s *PendingStoreSuite) SetupTest() {
	s.clock = &fakeClock{now: time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)}
	s.store = New(WithClock(s.clock.Now))
	s.ctx = context.Background()
}

func TestPendingStoreSuite(t *testing.T) {
	suite.Run(t, new(PendingStoreSuite))
}

func draftFor(email string) models.RegistrationDraft {
	return models.RegistrationDraft{
		FirstName: "Ada",
		LastName:  "Lovelace",
		Email:     email,
		Password:  "secret1",
		Provider:  models.ProviderLocal,
	}
}

func (s *PendingStoreSuite) TestPutAndGet() {
	s.Run("stores entry with ten minute deadline", func() {
		entry, err := s.store.Put(s.ctx, "a@b.com", "123456", draftFor("a@b.com"))
		s.Require().NoError(err)
		s.Equal(s.clock.Now().Add(10*time.Minute), entry.ExpiresAt)

		got, err := s.store.Get(s.ctx, "a@b.com")
		s.Require().NoError(err)
		s.Equal("123456", got.Code)
		s.Equal("Ada", got.Draft.FirstName)
	})

	s.Run("reissue replaces the previous code", func() {
		_, err := s.store.Put(s.ctx, "re@b.com", "111111", draftFor("re@b.com"))
		s.Require().NoError(err)
		_, err = s.store.Put(s.ctx, "re@b.com", "222222", draftFor("re@b.com"))
		s.Require().NoError(err)

		got, err := s.store.Get(s.ctx, "re@b.com")
		s.Require().NoError(err)
		s.Equal("222222", got.Code)

		_, err = s.store.ConsumeIfMatch(s.ctx, "re@b.com", "111111")
		s.ErrorIs(err, sentinel.ErrMismatch)
	})

	s.Run("absent entry is not found", func() {
		_, err := s.store.Get(s.ctx, "missing@b.com")
		s.ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("returned entries are copies", func() {
		uid := id.NewUserID()
		d := draftFor("copy@b.com")
		d.ExistingUserID = &uid
		_, err := s.store.Put(s.ctx, "copy@b.com", "333333", d)
		s.Require().NoError(err)

		got, err := s.store.Get(s.ctx, "copy@b.com")
		s.Require().NoError(err)
		got.Code = "000000"
		*got.Draft.ExistingUserID = id.NewUserID()

		again, err := s.store.Get(s.ctx, "copy@b.com")
		s.Require().NoError(err)
		s.Equal("333333", again.Code)
		s.Equal(uid, *again.Draft.ExistingUserID)
	})
}

func (s *PendingStoreSuite) TestExpiry() {
	s.Run("entry is readable just before the deadline", func() {
		_, err := s.store.Put(s.ctx, "edge@b.com", "123456", draftFor("edge@b.com"))
		s.Require().NoError(err)

		s.clock.Advance(10*time.Minute - time.Nanosecond)
		_, err = s.store.Get(s.ctx, "edge@b.com")
		s.NoError(err)
	})

	s.Run("entry expires exactly at the deadline and is evicted", func() {
		s.clock.Advance(time.Nanosecond)
		_, err := s.store.Get(s.ctx, "edge@b.com")
		s.ErrorIs(err, sentinel.ErrExpired)

		_, err = s.store.Get(s.ctx, "edge@b.com")
		s.ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("expired code cannot be consumed even when it matches", func() {
		_, err := s.store.Put(s.ctx, "late@b.com", "654321", draftFor("late@b.com"))
		s.Require().NoError(err)
		s.clock.Advance(11 * time.Minute)

		_, err = s.store.ConsumeIfMatch(s.ctx, "late@b.com", "654321")
		s.ErrorIs(err, sentinel.ErrExpired)
	})

	s.Run("custom ttl is honoured", func() {
		store := New(WithClock(s.clock.Now), WithTTL(time.Minute))
		entry, err := store.Put(s.ctx, "short@b.com", "123456", draftFor("short@b.com"))
		s.Require().NoError(err)
		s.Equal(s.clock.Now().Add(time.Minute), entry.ExpiresAt)
	})
}

func (s *PendingStoreSuite) TestConsumeIfMatch() {
	s.Run("matching code consumes entry once", func() {
		_, err := s.store.Put(s.ctx, "c@b.com", "123456", draftFor("c@b.com"))
		s.Require().NoError(err)

		got, err := s.store.ConsumeIfMatch(s.ctx, "c@b.com", "123456")
		s.Require().NoError(err)
		s.Equal("c@b.com", got.Draft.Email)

		_, err = s.store.ConsumeIfMatch(s.ctx, "c@b.com", "123456")
		s.ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("mismatch leaves the entry in place", func() {
		_, err := s.store.Put(s.ctx, "m@b.com", "123456", draftFor("m@b.com"))
		s.Require().NoError(err)

		_, err = s.store.ConsumeIfMatch(s.ctx, "m@b.com", "999999")
		s.ErrorIs(err, sentinel.ErrMismatch)

		_, err = s.store.ConsumeIfMatch(s.ctx, "m@b.com", "123456")
		s.NoError(err)
	})

	s.Run("concurrent confirmations succeed exactly once", func() {
		_, err := s.store.Put(s.ctx, "race@b.com", "424242", draftFor("race@b.com"))
		s.Require().NoError(err)

		const goroutines = 32
		var wg sync.WaitGroup
		var successes atomic.Int32
		for i := 0; i < goroutines; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := s.store.ConsumeIfMatch(s.ctx, "race@b.com", "424242"); err == nil {
					successes.Add(1)
				}
			}()
		}
		wg.Wait()
		s.Equal(int32(1), successes.Load())
	})
}

func (s *PendingStoreSuite) TestRestore() {
	s.Run("consumed entry comes back with its code and deadline", func() {
		put, err := s.store.Put(s.ctx, "back@b.com", "123456", draftFor("back@b.com"))
		s.Require().NoError(err)
		consumed, err := s.store.ConsumeIfMatch(s.ctx, "back@b.com", "123456")
		s.Require().NoError(err)

		s.Require().NoError(s.store.Restore(s.ctx, consumed))

		got, err := s.store.Get(s.ctx, "back@b.com")
		s.Require().NoError(err)
		s.Equal("123456", got.Code)
		s.Equal(put.ExpiresAt, got.ExpiresAt)

		_, err = s.store.ConsumeIfMatch(s.ctx, "back@b.com", "123456")
		s.NoError(err)
	})

	s.Run("newer entry is not overwritten", func() {
		_, err := s.store.Put(s.ctx, "newer@b.com", "111111", draftFor("newer@b.com"))
		s.Require().NoError(err)
		consumed, err := s.store.ConsumeIfMatch(s.ctx, "newer@b.com", "111111")
		s.Require().NoError(err)
		_, err = s.store.Put(s.ctx, "newer@b.com", "222222", draftFor("newer@b.com"))
		s.Require().NoError(err)

		err = s.store.Restore(s.ctx, consumed)
		s.ErrorIs(err, sentinel.ErrConflict)

		got, err := s.store.Get(s.ctx, "newer@b.com")
		s.Require().NoError(err)
		s.Equal("222222", got.Code)
	})

	s.Run("expired entry is not restored", func() {
		_, err := s.store.Put(s.ctx, "gone@b.com", "333333", draftFor("gone@b.com"))
		s.Require().NoError(err)
		consumed, err := s.store.ConsumeIfMatch(s.ctx, "gone@b.com", "333333")
		s.Require().NoError(err)
		s.clock.Advance(11 * time.Minute)

		err = s.store.Restore(s.ctx, consumed)
		s.ErrorIs(err, sentinel.ErrExpired)
		_, err = s.store.Get(s.ctx, "gone@b.com")
		s.ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("nil entry is rejected", func() {
		s.ErrorIs(s.store.Restore(s.ctx, nil), sentinel.ErrInvalidState)
	})
}

func (s *PendingStoreSuite) TestRemoveAndSweep() {
	s.Run("remove is idempotent", func() {
		_, err := s.store.Put(s.ctx, "r@b.com", "123456", draftFor("r@b.com"))
		s.Require().NoError(err)
		s.NoError(s.store.Remove(s.ctx, "r@b.com"))
		s.NoError(s.store.Remove(s.ctx, "r@b.com"))
		_, err = s.store.Get(s.ctx, "r@b.com")
		s.ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("delete expired drops only stale entries", func() {
		store := New(WithClock(s.clock.Now))
		_, err := store.Put(s.ctx, "old@b.com", "111111", draftFor("old@b.com"))
		s.Require().NoError(err)
		s.clock.Advance(9 * time.Minute)
		_, err = store.Put(s.ctx, "new@b.com", "222222", draftFor("new@b.com"))
		s.Require().NoError(err)
		s.clock.Advance(2 * time.Minute)

		deleted, err := store.DeleteExpired(s.ctx)
		s.Require().NoError(err)
		s.Equal(1, deleted)
		s.Equal(1, store.Len())
	})

	s.Run("sweeper stops with its context", func() {
		ctx, cancel := context.WithCancel(s.ctx)
		done := make(chan error, 1)
		go func() { done <- s.store.RunSweeper(ctx, time.Millisecond, nil) }()
		cancel()

		select {
		case err := <-done:
			s.ErrorIs(err, context.Canceled)
		case <-time.After(time.Second):
			s.Fail("sweeper did not stop")
		}
	})
}

func (s *PendingStoreSuite) TestGenerateCode() {
	seen := make(map[string]struct{})
	for i := 0; i < 200; i++ {
		code, err := GenerateCode()
		s.Require().NoError(err)
		s.True(IsWellFormedCode(code), "code %q", code)
		seen[code] = struct{}{}
	}
	s.Greater(len(seen), 150, "codes should not repeat often")
}

func (s *PendingStoreSuite) TestIsWellFormedCode() {
	s.True(IsWellFormedCode("000123"))
	s.False(IsWellFormedCode("12345"))
	s.False(IsWellFormedCode("1234567"))
	s.False(IsWellFormedCode("12a456"))
	s.False(IsWellFormedCode("１２３４５６"))
}
