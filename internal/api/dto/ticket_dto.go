package dto

import (
	"time"

	"github.com/spec-kit/sav-service/internal/domain"
)

// CreateTicketRequest payload. ClientID is ignored for client accounts.
type CreateTicketRequest struct {
	ClientID    string                `json:"client_id"`
	ProjectID   *string               `json:"project_id"`
	Title       string                `json:"title"`
	Description string                `json:"description"`
	Priority    domain.TicketPriority `json:"priority"`
}

// UpdateStatusRequest payload.
type UpdateStatusRequest struct {
	Status  domain.TicketStatus `json:"status"`
	Comment string              `json:"comment"`
}

// UpdatePriorityRequest payload.
type UpdatePriorityRequest struct {
	Priority domain.TicketPriority `json:"priority"`
}

// TicketResponse is the ticket representation. SLA is omitted once the
// ticket is resolved or closed.
type TicketResponse struct {
	ID          string                `json:"id"`
	Reference   string                `json:"reference"`
	ClientID    string                `json:"client_id"`
	ProjectID   *string               `json:"project_id"`
	Title       string                `json:"title"`
	Description string                `json:"description"`
	Status      domain.TicketStatus   `json:"status"`
	Priority    domain.TicketPriority `json:"priority"`
	CreatedBy   string                `json:"created_by"`
	CreatedAt   time.Time             `json:"created_at"`
	UpdatedAt   time.Time             `json:"updated_at"`
	ClosedAt    *time.Time            `json:"closed_at"`
	SLA         *SLAResponse          `json:"sla,omitempty"`
}

// TicketHistoryResponse is one audit entry.
type TicketHistoryResponse struct {
	ID          string                  `json:"id"`
	ChangeType  domain.TicketChangeType `json:"change_type"`
	ChangedBy   domain.Role             `json:"changed_by_role"`
	ChangedByID string                  `json:"changed_by_id"`
	OldValue    map[string]any          `json:"old_value"`
	NewValue    map[string]any          `json:"new_value"`
	CreatedAt   time.Time               `json:"created_at"`
}
