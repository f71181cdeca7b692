package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen          TicketStatus = "open"
	TicketStatusInProgress    TicketStatus = "in_progress"
	TicketStatusWaitingClient TicketStatus = "waiting_client"
	TicketStatusResolved      TicketStatus = "resolved"
	TicketStatusClosed        TicketStatus = "closed"
)

// TicketPriority is the SLA urgency label of a ticket.
type TicketPriority string

const (
	TicketPriorityUrgent TicketPriority = "urgent"
	TicketPriorityHigh   TicketPriority = "high"
	TicketPriorityNormal TicketPriority = "normal"
	TicketPriorityLow    TicketPriority = "low"
)

// ActiveStatuses are the statuses during which the SLA clock runs.
var ActiveStatuses = []TicketStatus{TicketStatusOpen, TicketStatusInProgress, TicketStatusWaitingClient}

// Ticket is a client support request filed against a project.
type Ticket struct {
	ID          string
	Reference   string
	ClientID    string
	ProjectID   *string
	Title       string
	Description string
	Status      TicketStatus
	Priority    TicketPriority
	CreatedBy   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	ClosedAt    *time.Time
}

// IsActive reports whether the SLA clock is running for the ticket.
func (t *Ticket) IsActive() bool {
	for _, s := range ActiveStatuses {
		if t.Status == s {
			return true
		}
	}
	return false
}

// ValidPriority reports whether p is one of the known labels.
func ValidPriority(p TicketPriority) bool {
	switch p {
	case TicketPriorityUrgent, TicketPriorityHigh, TicketPriorityNormal, TicketPriorityLow:
		return true
	}
	return false
}
