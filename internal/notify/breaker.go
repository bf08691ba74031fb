package notify

import (
	"context"
	"fmt"
	"log/slog"

	"takenotes/pkg/platform/circuit"
	"takenotes/pkg/platform/sentinel"
)

// BreakerNotifier fails fast while the wrapped notifier keeps failing, so a
// dead mail server does not hold every signup for the full send timeout.
type BreakerNotifier struct {
	next    Notifier
	breaker *circuit.Breaker
	logger  *slog.Logger
}

func NewBreakerNotifier(next Notifier, breaker *circuit.Breaker, logger *slog.Logger) *BreakerNotifier {
	return &BreakerNotifier{next: next, breaker: breaker, logger: logger}
}

func (n *BreakerNotifier) Send(ctx context.Context, msg Message) error {
	if !n.breaker.Allow() {
		return fmt.Errorf("%s circuit open: %w", n.breaker.Name(), sentinel.ErrUnavailable)
	}

	if err := n.next.Send(ctx, msg); err != nil {
		if _, change := n.breaker.RecordFailure(); change.Opened {
			n.logger.WarnContext(ctx, "notifier circuit opened",
				"breaker", n.breaker.Name(),
				"error", err,
			)
		}
		return err
	}

	if _, change := n.breaker.RecordSuccess(); change.Closed {
		n.logger.InfoContext(ctx, "notifier circuit closed",
			"breaker", n.breaker.Name(),
		)
	}
	return nil
}
