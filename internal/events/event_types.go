package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/sav-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated         EventType = "ticket_created"
	EventTicketStatusChanged   EventType = "ticket_status_changed"
	EventTicketPriorityChanged EventType = "ticket_priority_changed"
	EventSLAWarning            EventType = "sla_warning"
	EventSLABreached           EventType = "sla_breached"
)

// Actor encapsulates actor metadata for an event. The SLA sweeper publishes
// with the system role.
type Actor struct {
	Role      domain.Role `json:"role"`
	SubjectID string      `json:"subject_id,omitempty"`
}

// SystemActor identifies events raised by background jobs.
var SystemActor = Actor{Role: "system"}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// NewEvent stamps an event with a fresh id and the current time.
func NewEvent(eventType EventType, ticketID string, actor Actor, payload interface{}) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		TicketID:  ticketID,
		Actor:     actor,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Reference string                `json:"reference"`
	ClientID  string                `json:"client_id"`
	ProjectID *string               `json:"project_id,omitempty"`
	Priority  domain.TicketPriority `json:"priority"`
	Title     string                `json:"title"`
	Deadline  *time.Time            `json:"sla_deadline,omitempty"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
	Comment   string              `json:"comment,omitempty"`
}

// TicketPriorityChangedPayload payload.
type TicketPriorityChangedPayload struct {
	OldPriority domain.TicketPriority `json:"old_priority"`
	NewPriority domain.TicketPriority `json:"new_priority"`
	Deadline    *time.Time            `json:"sla_deadline,omitempty"`
}

// SLAEscalationPayload is carried by sla_warning and sla_breached events.
type SLAEscalationPayload struct {
	Reference       string                `json:"reference"`
	ClientID        string                `json:"client_id"`
	Priority        domain.TicketPriority `json:"priority"`
	Previous        string                `json:"previous_classification"`
	Classification  string                `json:"classification"`
	Deadline        time.Time             `json:"deadline"`
	ProgressPercent float64               `json:"progress_percent"`
	Label           string                `json:"label"`
}
