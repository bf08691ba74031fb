package pending

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"
	"sync"
	"time"

	"takenotes/internal/auth/models"
	"takenotes/pkg/platform/sentinel"
)

// DefaultTTL is how long an issued code stays valid.
const DefaultTTL = 10 * time.Minute

// CodeLength is the number of decimal digits in a one-time code.
const CodeLength = 6

var codeSpace = big.NewInt(1_000_000)

// Error Contract:
// - ErrNotFound when no entry exists for the email
// - ErrExpired when the entry exists but its deadline has passed (the entry is evicted)
// - ErrMismatch when ConsumeIfMatch is given the wrong code (the entry is kept)

// InMemoryStore keeps at most one pending registration per normalized email.
// Entries are copied in and out so callers never share state with the map.
type InMemoryStore struct {
	mu      sync.Mutex
	entries map[string]*models.PendingRegistration
	clock   func() time.Time
	ttl     time.Duration
}

// Option configures an InMemoryStore.
type Option func(*InMemoryStore)

// WithClock sets the time source used for issuance and expiry.
func WithClock(clock func() time.Time) Option {
	return func(s *InMemoryStore) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithTTL sets the code lifetime.
func WithTTL(ttl time.Duration) Option {
	return func(s *InMemoryStore) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

func New(opts ...Option) *InMemoryStore {
	s := &InMemoryStore{
		entries: make(map[string]*models.PendingRegistration),
		clock:   time.Now,
		ttl:     DefaultTTL,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Put inserts or replaces the entry for email. A reissue invalidates the
// previous code.
func (s *InMemoryStore) Put(_ context.Context, email, code string, draft models.RegistrationDraft) (*models.PendingRegistration, error) {
	if email == "" || code == "" {
		return nil, fmt.Errorf("pending registration requires email and code: %w", sentinel.ErrInvalidState)
	}
	now := s.clock()
	entry := &models.PendingRegistration{
		Email:     email,
		Code:      code,
		Draft:     draft,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}

	s.mu.Lock()
	s.entries[email] = entry
	s.mu.Unlock()

	return clone(entry), nil
}

// Get returns a copy of the live entry for email.
func (s *InMemoryStore) Get(_ context.Context, email string) (*models.PendingRegistration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, err := s.liveLocked(email)
	if err != nil {
		return nil, err
	}
	return clone(entry), nil
}

// Remove deletes the entry for email. Removing an absent entry is not an error.
func (s *InMemoryStore) Remove(_ context.Context, email string) error {
	s.mu.Lock()
	delete(s.entries, email)
	s.mu.Unlock()
	return nil
}

// ConsumeIfMatch removes and returns the entry when code matches. Lookup,
// comparison and removal happen under one lock so two concurrent confirmations
// of the same code cannot both succeed.
func (s *InMemoryStore) ConsumeIfMatch(_ context.Context, email, code string) (*models.PendingRegistration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, err := s.liveLocked(email)
	if err != nil {
		return nil, err
	}
	if subtle.ConstantTimeCompare([]byte(entry.Code), []byte(code)) != 1 {
		return nil, fmt.Errorf("pending code mismatch: %w", sentinel.ErrMismatch)
	}
	delete(s.entries, email)
	return clone(entry), nil
}

// Restore puts a consumed entry back with its original code and deadline, for
// a confirmation that failed after ConsumeIfMatch. It refuses with
// sentinel.ErrConflict when a newer entry was issued meanwhile and with
// sentinel.ErrExpired when the deadline has passed.
func (s *InMemoryStore) Restore(_ context.Context, entry *models.PendingRegistration) error {
	if entry == nil || entry.Email == "" {
		return fmt.Errorf("pending registration requires email: %w", sentinel.ErrInvalidState)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.IsExpiredAt(s.clock()) {
		return fmt.Errorf("pending registration expired: %w", sentinel.ErrExpired)
	}
	if _, err := s.liveLocked(entry.Email); err == nil {
		return fmt.Errorf("newer pending registration exists: %w", sentinel.ErrConflict)
	}
	s.entries[entry.Email] = clone(entry)
	return nil
}

// DeleteExpired removes every entry whose deadline has passed.
func (s *InMemoryStore) DeleteExpired(_ context.Context) (int, error) {
	now := s.clock()
	s.mu.Lock()
	defer s.mu.Unlock()

	deleted := 0
	for email, entry := range s.entries {
		if entry.IsExpiredAt(now) {
			delete(s.entries, email)
			deleted++
		}
	}
	return deleted, nil
}

// Len returns the number of entries held, live or not yet swept.
func (s *InMemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// RunSweeper calls DeleteExpired every interval until ctx is cancelled. The
// lazy check in Get and ConsumeIfMatch decides validity; sweeping only frees
// memory held by abandoned registrations. onSweep, when non-nil, receives the
// count removed and the count remaining.
func (s *InMemoryStore) RunSweeper(ctx context.Context, interval time.Duration, onSweep func(removed, remaining int)) error {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			removed, err := s.DeleteExpired(ctx)
			if err != nil {
				return err
			}
			if onSweep != nil {
				onSweep(removed, s.Len())
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// liveLocked returns the stored entry, evicting it when expired.
// Callers must hold s.mu.
func (s *InMemoryStore) liveLocked(email string) (*models.PendingRegistration, error) {
	entry, ok := s.entries[email]
	if !ok {
		return nil, fmt.Errorf("pending registration not found: %w", sentinel.ErrNotFound)
	}
	if entry.IsExpiredAt(s.clock()) {
		delete(s.entries, email)
		return nil, fmt.Errorf("pending registration expired: %w", sentinel.ErrExpired)
	}
	return entry, nil
}

func clone(p *models.PendingRegistration) *models.PendingRegistration {
	cp := *p
	if p.Draft.DateOfBirth != nil {
		dob := *p.Draft.DateOfBirth
		cp.Draft.DateOfBirth = &dob
	}
	if p.Draft.ExistingUserID != nil {
		uid := *p.Draft.ExistingUserID
		cp.Draft.ExistingUserID = &uid
	}
	return &cp
}

// GenerateCode returns a uniformly random, zero-padded six digit code.
func GenerateCode() (string, error) {
	n, err := rand.Int(rand.Reader, codeSpace)
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	return fmt.Sprintf("%0*d", CodeLength, n.Int64()), nil
}

// IsWellFormedCode reports whether code is exactly six ASCII digits.
func IsWellFormedCode(code string) bool {
	if len(code) != CodeLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return false
		}
	}
	return true
}
