// Package password hashes and verifies user passwords with bcrypt.
package password

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"

	dErrors "takenotes/pkg/domain-errors"
)

// Cost is the bcrypt work factor for new hashes.
const Cost = bcrypt.DefaultCost

// Hasher bounds concurrent bcrypt work so a burst of signups or logins cannot
// occupy every CPU.
type Hasher struct {
	sem  *semaphore.Weighted
	cost int

	dummyOnce sync.Once
	dummy     []byte
}

// Option configures a Hasher.
type Option func(*Hasher)

// WithConcurrency sets how many hashes may run at once (default GOMAXPROCS).
func WithConcurrency(n int64) Option {
	return func(h *Hasher) {
		if n > 0 {
			h.sem = semaphore.NewWeighted(n)
		}
	}
}

// WithCost overrides the bcrypt cost. Tests use bcrypt.MinCost.
func WithCost(cost int) Option {
	return func(h *Hasher) {
		if cost >= bcrypt.MinCost && cost <= bcrypt.MaxCost {
			h.cost = cost
		}
	}
}

func New(opts ...Option) *Hasher {
	h := &Hasher{
		sem:  semaphore.NewWeighted(int64(runtime.GOMAXPROCS(0))),
		cost: Cost,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Hash returns the bcrypt digest of plaintext.
func (h *Hasher) Hash(ctx context.Context, plaintext string) (string, error) {
	if plaintext == "" {
		return "", dErrors.New(dErrors.CodeValidation, "password is required")
	}
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return "", fmt.Errorf("acquire hashing slot: %w", err)
	}
	defer h.sem.Release(1)

	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", dErrors.New(dErrors.CodeValidation, "password must be at most 72 bytes")
		}
		return "", fmt.Errorf("could not hash password: %w", err)
	}
	return string(hashed), nil
}

// Verify reports whether plaintext matches digest. Malformed digests and
// cancelled contexts yield false.
func (h *Hasher) Verify(ctx context.Context, plaintext, digest string) bool {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return false
	}
	defer h.sem.Release(1)
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext)) == nil
}

// VerifyDummy spends the same work as Verify against a fixed digest. Login
// calls it for unknown accounts so response time does not reveal whether an
// email is registered.
func (h *Hasher) VerifyDummy(ctx context.Context, plaintext string) {
	h.dummyOnce.Do(func() {
		h.dummy, _ = bcrypt.GenerateFromPassword([]byte("takenotes-dummy-password"), h.cost)
	})
	_ = h.Verify(ctx, plaintext, string(h.dummy))
}
