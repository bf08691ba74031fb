package service

import (
	"context"
	"errors"

	"takenotes/internal/auth/models"
	"takenotes/internal/auth/store/pending"
	"takenotes/internal/notify"
	dErrors "takenotes/pkg/domain-errors"
	"takenotes/pkg/platform/audit"
	"takenotes/pkg/platform/sentinel"
)

const (
	flowSignup = "signup"
	flowResend = "resend"
)

// issueCode replaces any outstanding code for email with a fresh one and
// delivers it. A failed delivery leaves the new entry in place so a resend
// can reuse the draft.
func (s *Service) issueCode(ctx context.Context, email string, draft models.RegistrationDraft, flow string) (*models.CodeIssued, error) {
	if err := s.checkCooldown(ctx, email); err != nil {
		return nil, err
	}

	code, err := pending.GenerateCode()
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate code")
	}
	entry, err := s.pending.Put(ctx, email, code, draft)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store pending registration")
	}

	purpose := notify.PurposeSignup
	if flow == flowResend {
		purpose = notify.PurposeResend
	}
	msg, err := notify.NewOTPMessage(purpose, email, code, entry.ExpiresAt.Sub(entry.CreatedAt))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to render code email")
	}

	sendCtx, cancel := context.WithTimeout(ctx, s.notifyTimeout)
	defer cancel()
	if err := s.notifier.Send(sendCtx, msg); err != nil {
		s.metrics.IncrementDeliveryFailures()
		s.logger.ErrorContext(ctx, "failed to deliver one-time code",
			"error", err,
			"flow", flow,
			"request_id", requestIDFrom(ctx),
		)
		return nil, dErrors.Wrap(err, dErrors.CodeDeliveryFailed, deliveryFailureMessage(flow))
	}

	s.metrics.IncrementCodesIssued(flow)
	s.emitAudit(ctx, audit.Event{Action: audit.EventOTPIssued, Email: email, Reason: flow})
	return &models.CodeIssued{Email: email, ExpiresAt: entry.ExpiresAt}, nil
}

func (s *Service) checkCooldown(ctx context.Context, email string) error {
	if s.cooldown == nil || s.resendInterval <= 0 {
		return nil
	}
	wait, err := s.cooldown.Acquire(ctx, email, s.resendInterval)
	if err == nil {
		return nil
	}
	if errors.Is(err, sentinel.ErrRateLimited) {
		s.metrics.IncrementIssuanceRateLimited()
		return newThrottledError(wait)
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check issuance cooldown")
}

func deliveryFailureMessage(flow string) string {
	if flow == flowResend {
		return "Failed to resend OTP email. Please try again later."
	}
	return "Failed to send OTP email. Please try again later."
}
