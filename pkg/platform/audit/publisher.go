package audit

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Publisher delivers audit events to a sink.
type Publisher interface {
	Emit(ctx context.Context, event Event) error
	Close() error
}

// LogPublisher writes events to the structured log.
type LogPublisher struct {
	logger *slog.Logger
}

func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Emit(ctx context.Context, event Event) error {
	p.logger.InfoContext(ctx, "audit",
		"category", string(event.Category),
		"action", string(event.Action),
		"user_id", event.UserID,
		"email", event.Email,
		"provider", event.Provider,
		"reason", event.Reason,
		"ip", event.IP,
		"device", event.Device,
		"request_id", event.RequestID,
	)
	return nil
}

func (p *LogPublisher) Close() error { return nil }

const (
	defaultQueueSize     = 1024
	defaultFlushInterval = 100 * time.Millisecond
)

// eventQueue holds events between Emit and the drain worker. At capacity the
// oldest event is discarded.
type eventQueue struct {
	mu     sync.Mutex
	events []Event
	limit  int
}

func newEventQueue(limit int) *eventQueue {
	if limit <= 0 {
		limit = defaultQueueSize
	}
	return &eventQueue{limit: limit}
}

// push appends event and reports whether an older event was discarded.
func (q *eventQueue) push(event Event) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	overflow := len(q.events) >= q.limit
	if overflow {
		copy(q.events, q.events[1:])
		q.events = q.events[:len(q.events)-1]
	}
	q.events = append(q.events, event)
	return overflow
}

// take hands over everything queued, oldest first.
func (q *eventQueue) take() []Event {
	q.mu.Lock()
	defer q.mu.Unlock()

	events := q.events
	q.events = nil
	return events
}

// BufferedPublisher decouples request handling from a slow sink. Emit never
// blocks: events go to a bounded queue that a single worker drains into the
// sink. Sink failures are logged and the event is dropped.
type BufferedPublisher struct {
	sink     Publisher
	queue    *eventQueue
	dropped  atomic.Int64
	logger   *slog.Logger
	clock    func() time.Time
	interval time.Duration

	wake chan struct{}
	done chan struct{}
	once sync.Once
	wg   sync.WaitGroup
}

type BufferedOption func(*BufferedPublisher)

func WithBufferSize(n int) BufferedOption {
	return func(p *BufferedPublisher) {
		p.queue = newEventQueue(n)
	}
}

func WithFlushInterval(d time.Duration) BufferedOption {
	return func(p *BufferedPublisher) {
		if d > 0 {
			p.interval = d
		}
	}
}

func WithClock(clock func() time.Time) BufferedOption {
	return func(p *BufferedPublisher) {
		p.clock = clock
	}
}

// NewBufferedPublisher starts the drain worker. Close stops it after a final
// flush.
func NewBufferedPublisher(sink Publisher, logger *slog.Logger, opts ...BufferedOption) *BufferedPublisher {
	p := &BufferedPublisher{
		sink:     sink,
		queue:    newEventQueue(0),
		logger:   logger,
		clock:    time.Now,
		interval: defaultFlushInterval,
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.wg.Add(1)
	go p.run()
	return p
}

func (p *BufferedPublisher) Emit(_ context.Context, event Event) error {
	if p.queue.push(event.Normalize(p.clock())) {
		p.dropped.Add(1)
	}
	select {
	case p.wake <- struct{}{}:
	default:
	}
	return nil
}

// Dropped reports events discarded because the queue was full.
func (p *BufferedPublisher) Dropped() int64 {
	return p.dropped.Load()
}

func (p *BufferedPublisher) run() {
	defer p.wg.Done()
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.done:
			p.flush()
			return
		case <-p.wake:
			p.flush()
		case <-ticker.C:
			p.flush()
		}
	}
}

func (p *BufferedPublisher) flush() {
	for _, event := range p.queue.take() {
		// Detached from any request so a cancelled caller cannot lose the event.
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := p.sink.Emit(ctx, event); err != nil {
			p.logger.Warn("audit event dropped",
				"action", string(event.Action),
				"error", err,
			)
		}
		cancel()
	}
}

// Close drains pending events and closes the sink.
func (p *BufferedPublisher) Close() error {
	p.once.Do(func() {
		close(p.done)
	})
	p.wg.Wait()
	return p.sink.Close()
}
