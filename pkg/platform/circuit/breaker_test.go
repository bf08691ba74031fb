package circuit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// step is one outcome fed to the breaker and the state expected afterwards.
type step struct {
	fail     bool
	wantOpen bool
}

func TestBreakerTransitions(t *testing.T) {
	tests := []struct {
		name  string
		opts  []Option
		steps []step
	}{
		{
			name: "opens on the threshold failure",
			opts: []Option{WithFailureThreshold(3)},
			steps: []step{
				{fail: true}, {fail: true}, {fail: true, wantOpen: true},
			},
		},
		{
			name: "success clears the failure streak",
			opts: []Option{WithFailureThreshold(3)},
			steps: []step{
				{fail: true}, {fail: true}, {fail: false},
				{fail: true}, {fail: true}, {fail: true, wantOpen: true},
			},
		},
		{
			name: "closing needs consecutive successes",
			opts: []Option{WithFailureThreshold(1), WithSuccessThreshold(3)},
			steps: []step{
				{fail: true, wantOpen: true},
				{fail: false, wantOpen: true}, {fail: false, wantOpen: true},
				{fail: true, wantOpen: true},
				{fail: false, wantOpen: true}, {fail: false, wantOpen: true},
				{fail: false, wantOpen: false},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := New("smtp", tt.opts...)
			for i, s := range tt.steps {
				if s.fail {
					b.RecordFailure()
				} else {
					b.RecordSuccess()
				}
				assert.Equal(t, s.wantOpen, b.IsOpen(), "after step %d", i)
			}
		})
	}
}

func TestBreakerReportsChanges(t *testing.T) {
	b := New("smtp", WithFailureThreshold(2))
	assert.Equal(t, "smtp", b.Name())
	assert.Equal(t, StateClosed, b.State())

	useFallback, change := b.RecordFailure()
	assert.False(t, useFallback)
	assert.Equal(t, Change{}, change)

	useFallback, change = b.RecordFailure()
	assert.True(t, useFallback)
	assert.True(t, change.Opened)

	useFallback, change = b.RecordFailure()
	assert.True(t, useFallback)
	assert.False(t, change.Opened, "already open")

	usePrimary, change := b.RecordSuccess()
	assert.True(t, usePrimary)
	assert.True(t, change.Closed)

	b.RecordFailure()
	b.RecordFailure()
	b.Reset()
	assert.Equal(t, StateClosed, b.State())
}

func TestBreakerAllowWaitsForCooldown(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	b := New("smtp", WithFailureThreshold(2), WithCooldown(time.Minute), WithClock(func() time.Time { return now }))

	b.RecordFailure()
	assert.True(t, b.Allow(), "below threshold")

	b.RecordFailure()
	assert.False(t, b.Allow())

	now = now.Add(59 * time.Second)
	assert.False(t, b.Allow())

	now = now.Add(time.Second)
	assert.True(t, b.Allow(), "trial call after cooldown")

	b.RecordFailure()
	assert.False(t, b.Allow(), "failed trial call restarts the cooldown")
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "open", StateOpen.String())
}
