package service

import (
	"context"

	"takenotes/internal/auth/device"
	"takenotes/pkg/platform/audit"
	"takenotes/pkg/requestcontext"
)

func requestIDFrom(ctx context.Context) string {
	return requestcontext.RequestID(ctx)
}

// emitAudit enriches event with request metadata, logs it and hands it to the
// publisher. Audit failures never fail the operation.
func (s *Service) emitAudit(ctx context.Context, event audit.Event) {
	event.RequestID = requestIDFrom(ctx)
	event.IP = requestcontext.ClientIP(ctx)
	if ua := requestcontext.UserAgent(ctx); ua != "" {
		event.Device = device.ParseUserAgent(ua)
		if s.device != nil {
			event.DeviceFingerprint = s.device.ComputeFingerprint(ua)
		}
	}
	event = event.Normalize(s.now(ctx))

	s.logger.InfoContext(ctx, string(event.Action),
		"event", string(event.Action),
		"log_type", "audit",
		"user_id", event.UserID,
		"reason", event.Reason,
		"request_id", event.RequestID,
	)

	if s.auditPublisher == nil {
		return
	}
	if err := s.auditPublisher.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "failed to publish audit event",
			"event", string(event.Action),
			"error", err,
		)
	}
}
