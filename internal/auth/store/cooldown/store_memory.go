// Package cooldown enforces a minimum interval between one-time code
// issuances for the same email address.
package cooldown

import (
	"context"
	"fmt"
	"sync"
	"time"

	"takenotes/pkg/platform/sentinel"
)

// Error Contract:
// Acquire returns sentinel.ErrRateLimited together with the remaining wait
// when the previous issuance is more recent than interval. An interval of
// zero or less always succeeds.

// InMemoryStore records the last issuance per email in process memory.
type InMemoryStore struct {
	mu    sync.Mutex
	last  map[string]time.Time
	clock func() time.Time
}

// Option configures an InMemoryStore.
type Option func(*InMemoryStore)

// WithClock sets the time source.
func WithClock(clock func() time.Time) Option {
	return func(s *InMemoryStore) {
		if clock != nil {
			s.clock = clock
		}
	}
}

func NewInMemory(opts ...Option) *InMemoryStore {
	s := &InMemoryStore{
		last:  make(map[string]time.Time),
		clock: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *InMemoryStore) Acquire(_ context.Context, email string, interval time.Duration) (time.Duration, error) {
	if interval <= 0 {
		return 0, nil
	}
	now := s.clock()

	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.last[email]; ok {
		if wait := prev.Add(interval).Sub(now); wait > 0 {
			return wait, fmt.Errorf("code issued too recently: %w", sentinel.ErrRateLimited)
		}
	}
	s.last[email] = now
	s.prune(now, interval)
	return 0, nil
}

// prune drops records old enough that they can no longer block anyone.
// Callers must hold s.mu.
func (s *InMemoryStore) prune(now time.Time, interval time.Duration) {
	if len(s.last) < 1024 {
		return
	}
	for email, at := range s.last {
		if !now.Before(at.Add(interval)) {
			delete(s.last, email)
		}
	}
}
