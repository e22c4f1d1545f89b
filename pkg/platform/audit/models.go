package audit

import (
	"context"
	"time"
)

// EventCategory classifies audit events by their primary purpose.
// This enables different retention policies and routing downstream.
type EventCategory string

const (
	// CategoryCompliance covers events with legal significance: completed
	// authentications, issued and revoked sessions.
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers events relevant to security monitoring: failed
	// verifications, compromised sessions, failed device checks.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers routine activity that can be sampled.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so sinks can fan out.
type Event struct {
	Category  EventCategory `json:"category"`
	Timestamp time.Time     `json:"timestamp"`
	// Subject is the hashed user identifier when known, otherwise the device.
	Subject     string `json:"subject"`
	MobileUID   string `json:"mobileUid,omitempty"`
	Action      string `json:"action"`
	ProcessID   string `json:"processId,omitempty"`
	SchemaCode  string `json:"schemaCode,omitempty"`
	Method      string `json:"method,omitempty"`
	SessionType string `json:"sessionType,omitempty"`
	Platform    string `json:"platform,omitempty"`
	Outcome     string `json:"outcome,omitempty"`
	ProcessCode string `json:"processCode,omitempty"`
	Reason      string `json:"reason,omitempty"`
	RequestID   string `json:"requestId,omitempty"`
}

type AuditEvent string

const (
	// Step orchestration events
	EventStepMethodSet    AuditEvent = "step_method_set"
	EventMethodVerified   AuditEvent = "auth_method_verified"
	EventMethodFailed     AuditEvent = "auth_method_failed"
	EventAttemptsExceeded AuditEvent = "auth_attempts_exceeded"
	EventStepsCompleted   AuditEvent = "auth_steps_completed"
	EventStepsRevoked     AuditEvent = "auth_steps_revoked"

	// Token events
	EventTokenIssued      AuditEvent = "token_issued"
	EventTokenRotated     AuditEvent = "token_rotated"
	EventTokenRevoked     AuditEvent = "token_revoked"
	EventTokenCompromised AuditEvent = "token_compromised"

	// Challenge events
	EventChallengeSucceeded AuditEvent = "challenge_succeeded"
	EventChallengeFailed    AuditEvent = "challenge_failed"
)

// eventCategories maps each audit event to its category.
var eventCategories = map[AuditEvent]EventCategory{
	EventStepsCompleted: CategoryCompliance,
	EventTokenIssued:    CategoryCompliance,
	EventTokenRevoked:   CategoryCompliance,

	EventMethodFailed:     CategorySecurity,
	EventAttemptsExceeded: CategorySecurity,
	EventStepsRevoked:     CategorySecurity,
	EventTokenCompromised: CategorySecurity,
	EventChallengeFailed:  CategorySecurity,

	EventStepMethodSet:      CategoryOperations,
	EventMethodVerified:     CategoryOperations,
	EventTokenRotated:       CategoryOperations,
	EventChallengeSucceeded: CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Store is the sink events are appended to.
type Store interface {
	Append(ctx context.Context, event Event) error
}

// Emitter is what domain services depend on.
type Emitter interface {
	Emit(ctx context.Context, event Event) error
}
