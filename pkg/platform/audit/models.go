package audit

import (
	"context"
	"time"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out. Raw email addresses
// never appear here; only commitments and identities do.
type Event struct {
	Timestamp      time.Time `json:"timestamp"`
	Action         string    `json:"action"`
	Actor          string    `json:"actor,omitempty"`   // identity performing the action
	Subject        string    `json:"subject,omitempty"` // identity acted upon
	Role           string    `json:"role,omitempty"`
	SessionID      string    `json:"session_id,omitempty"`
	AdminRequestID string    `json:"admin_request_id,omitempty"`
	Decision       string    `json:"decision,omitempty"`
	Reason         string    `json:"reason,omitempty"`
	RequestID      string    `json:"request_id,omitempty"` // HTTP request correlation
}

// Aggregate returns the outbox aggregate the event belongs to.
func (e Event) Aggregate() (aggregateType, aggregateID string) {
	switch {
	case e.AdminRequestID != "":
		return "admin_request", e.AdminRequestID
	case e.SessionID != "":
		return "registration", e.SessionID
	default:
		return "registry_record", e.Subject
	}
}

// Emitter is the interface for audit event emission.
// Satisfied by publisher.Publisher.
type Emitter interface {
	Emit(ctx context.Context, event Event) error
}

type AuditEvent string

const (
	EventRegistrationStarted    AuditEvent = "registration_started"
	EventEmailCollected         AuditEvent = "email_collected"
	EventProofGenerated         AuditEvent = "proof_generated"
	EventRegistrationSubmitted  AuditEvent = "registration_submitted"
	EventRegistrationCompleted  AuditEvent = "registration_completed"
	EventRegistrationReconciled AuditEvent = "registration_reconciled"
	EventRegistrationFailed     AuditEvent = "registration_failed"
	EventRegistrationRestarted  AuditEvent = "registration_restarted"
	EventRegistrationAbandoned  AuditEvent = "registration_abandoned"
	EventRequestCreated         AuditEvent = "request_created"
	EventRequestApproved        AuditEvent = "request_approved"
	EventRequestRejected        AuditEvent = "request_rejected"
	EventAdminGranted           AuditEvent = "admin_granted"
	EventAdminDenied            AuditEvent = "admin_denied"
	EventRecordDeactivated      AuditEvent = "record_deactivated"
	EventRecordActivated        AuditEvent = "record_activated"
)

// Category groups events by the consumer that cares about them.
type Category string

const (
	CategoryCompliance Category = "compliance"
	CategorySecurity   Category = "security"
	CategoryOperations Category = "operations"
)

// Category returns the event category. Unknown events are operational.
func (e AuditEvent) Category() Category {
	switch e {
	case EventRegistrationCompleted, EventRegistrationReconciled,
		EventRequestApproved, EventRequestRejected,
		EventAdminGranted, EventRecordDeactivated, EventRecordActivated:
		return CategoryCompliance
	case EventAdminDenied:
		return CategorySecurity
	default:
		return CategoryOperations
	}
}
