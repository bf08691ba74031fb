package audit

import (
	"time"
)

// EventCategory classifies audit events by their primary purpose so sinks can
// route or retain them differently.
type EventCategory string

const (
	// CategoryCompliance covers account lifecycle events that must be kept.
	CategoryCompliance EventCategory = "compliance"
	// CategorySecurity covers failures relevant to abuse monitoring.
	CategorySecurity EventCategory = "security"
	// CategoryOperations covers routine activity that may be sampled.
	CategoryOperations EventCategory = "operations"
)

type AuditEvent string

const (
	EventUserCreated    AuditEvent = "user_created"
	EventOTPIssued      AuditEvent = "otp_issued"
	EventOTPVerified    AuditEvent = "otp_verified"
	EventLoginSucceeded AuditEvent = "login_succeeded"
	EventAuthFailed     AuditEvent = "auth_failed"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventUserCreated:    CategoryCompliance,
	EventOTPVerified:    CategoryCompliance,
	EventAuthFailed:     CategorySecurity,
	EventOTPIssued:      CategoryOperations,
	EventLoginSucceeded: CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so sinks can fan out.
type Event struct {
	Category          EventCategory `json:"category"`
	Timestamp         time.Time     `json:"timestamp"`
	Action            AuditEvent    `json:"action"`
	UserID            string        `json:"user_id,omitempty"`
	Email             string        `json:"email,omitempty"`
	Provider          string        `json:"provider,omitempty"`
	Reason            string        `json:"reason,omitempty"`
	IP                string        `json:"ip,omitempty"`
	Device            string        `json:"device,omitempty"`
	DeviceFingerprint string        `json:"device_fingerprint,omitempty"`
	RequestID         string        `json:"request_id,omitempty"`
}

// Normalize fills the category from the action and stamps a zero timestamp.
func (e Event) Normalize(now time.Time) Event {
	if e.Category == "" {
		e.Category = e.Action.Category()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = now
	}
	return e
}
