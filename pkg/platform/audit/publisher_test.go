package audit

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	mu     sync.Mutex
	events []Event
	err    error
	closed bool
}

func (s *recordingSink) Emit(_ context.Context, e Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, e)
	return nil
}

func (s *recordingSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *recordingSink) snapshot() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event(nil), s.events...)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func TestEventCategory(t *testing.T) {
	assert.Equal(t, CategoryCompliance, EventUserCreated.Category())
	assert.Equal(t, CategorySecurity, EventAuthFailed.Category())
	assert.Equal(t, CategoryOperations, EventOTPIssued.Category())
	assert.Equal(t, CategoryOperations, AuditEvent("unknown").Category())
}

func TestEventQueue_DiscardsOldestAtLimit(t *testing.T) {
	q := newEventQueue(2)
	assert.False(t, q.push(Event{Email: "a"}))
	assert.False(t, q.push(Event{Email: "b"}))
	assert.True(t, q.push(Event{Email: "c"}))

	events := q.take()
	require.Len(t, events, 2)
	assert.Equal(t, "b", events[0].Email)
	assert.Equal(t, "c", events[1].Email)
	assert.Empty(t, q.take())
}

// stalledSink blocks the drain worker on its first event until released.
type stalledSink struct {
	recordingSink
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (s *stalledSink) Emit(ctx context.Context, e Event) error {
	s.once.Do(func() {
		close(s.started)
		<-s.release
	})
	return s.recordingSink.Emit(ctx, e)
}

func TestBufferedPublisher_CountsDroppedEvents(t *testing.T) {
	sink := &stalledSink{started: make(chan struct{}), release: make(chan struct{})}
	pub := NewBufferedPublisher(sink, discardLogger(), WithBufferSize(2), WithFlushInterval(time.Hour))

	require.NoError(t, pub.Emit(context.Background(), Event{Email: "first"}))
	<-sink.started

	for _, email := range []string{"a", "b", "c", "d"} {
		require.NoError(t, pub.Emit(context.Background(), Event{Email: email}))
	}
	assert.EqualValues(t, 2, pub.Dropped())

	close(sink.release)
	require.NoError(t, pub.Close())

	var emails []string
	for _, e := range sink.snapshot() {
		emails = append(emails, e.Email)
	}
	assert.Equal(t, []string{"first", "c", "d"}, emails)
}

func TestBufferedPublisher_DeliversAndDrainsOnClose(t *testing.T) {
	sink := &recordingSink{}
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	pub := NewBufferedPublisher(sink, discardLogger(),
		WithBufferSize(100),
		WithFlushInterval(time.Hour),
		WithClock(func() time.Time { return now }),
	)

	for range 10 {
		require.NoError(t, pub.Emit(context.Background(), Event{Action: EventOTPIssued, Email: "ada@example.com"}))
	}
	require.NoError(t, pub.Close())

	events := sink.snapshot()
	require.Len(t, events, 10)
	assert.Equal(t, CategoryOperations, events[0].Category)
	assert.Equal(t, now, events[0].Timestamp)
	assert.True(t, sink.closed)
}

func TestBufferedPublisher_SinkFailureIsSwallowed(t *testing.T) {
	sink := &recordingSink{err: errors.New("broker down")}
	pub := NewBufferedPublisher(sink, discardLogger())

	require.NoError(t, pub.Emit(context.Background(), Event{Action: EventAuthFailed}))
	require.NoError(t, pub.Close())
	assert.Empty(t, sink.snapshot())
}

func TestLogPublisher(t *testing.T) {
	var buf bytes.Buffer
	pub := NewLogPublisher(slog.New(slog.NewJSONHandler(&buf, nil)))

	require.NoError(t, pub.Emit(context.Background(), Event{Action: EventLoginSucceeded, Email: "ada@example.com", Device: "Chrome on macOS"}))
	assert.Contains(t, buf.String(), `"action":"login_succeeded"`)
	assert.Contains(t, buf.String(), "Chrome on macOS")
}
