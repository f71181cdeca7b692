package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/sav-service/internal/domain"
	"github.com/spec-kit/sav-service/internal/events"
	"github.com/spec-kit/sav-service/internal/repository"
	"github.com/spec-kit/sav-service/internal/sla"
	apperrors "github.com/spec-kit/sav-service/pkg/util/errorutil"
)

// listBatchSize bounds each repository page when a full scan is needed.
const listBatchSize = 200

// TicketService coordinates ticket workflows.
type TicketService struct {
	tickets    repository.TicketRepository
	history    repository.TicketHistoryRepository
	sla        *SLAService
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo  repository.TicketRepository
	HistoryRepo repository.TicketHistoryRepository
	SLA         *SLAService
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	ClientID    string
	ProjectID   *string
	Title       string
	Description string
	Priority    domain.TicketPriority
}

// TicketListFilter describes listing filters. Classification only matches
// active tickets.
type TicketListFilter struct {
	ClientID       *string
	ProjectID      *string
	Statuses       []domain.TicketStatus
	Priorities     []domain.TicketPriority
	SearchTerm     *string
	CreatedFrom    *time.Time
	CreatedTo      *time.Time
	Classification *sla.Classification
	Limit          int
	Offset         int
}

// TicketView is a ticket with its SLA evaluation (nil when inactive).
type TicketView struct {
	Ticket domain.Ticket
	SLA    *Evaluation
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TicketService{
		tickets:    deps.TicketRepo,
		history:    deps.HistoryRepo,
		sla:        deps.SLA,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		now:        time.Now,
	}
}

// CreateTicket files a ticket. Clients always file for their own client id.
func (s *TicketService) CreateTicket(ctx context.Context, actor *domain.Principal, input TicketCreateInput) (*TicketView, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	if actor.Role == domain.RoleClient {
		if actor.ClientID == nil {
			return nil, apperrors.NewForbidden("client account required")
		}
		input.ClientID = *actor.ClientID
	}
	input.Title = strings.TrimSpace(input.Title)
	input.Description = strings.TrimSpace(input.Description)
	if input.ClientID == "" || input.Title == "" || input.Description == "" {
		return nil, apperrors.NewValidationError("client_id, title, description required", nil)
	}
	if input.Priority == "" {
		input.Priority = domain.TicketPriorityNormal
	}
	if !domain.ValidPriority(input.Priority) {
		return nil, apperrors.NewValidationError("invalid priority", map[string]any{"priority": input.Priority})
	}

	ticket := &domain.Ticket{
		Reference:   generateTicketReference(),
		ClientID:    input.ClientID,
		ProjectID:   input.ProjectID,
		Title:       input.Title,
		Description: input.Description,
		Status:      domain.TicketStatusOpen,
		Priority:    input.Priority,
		CreatedBy:   actor.SubjectID,
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}

	view := s.view(ctx, ticket)
	s.publishEvent(ctx, events.NewEvent(events.EventTicketCreated, ticket.ID, actorOf(actor), events.TicketCreatedPayload{
		Reference: ticket.Reference,
		ClientID:  ticket.ClientID,
		ProjectID: ticket.ProjectID,
		Priority:  ticket.Priority,
		Title:     ticket.Title,
		Deadline:  deadlineOf(view.SLA),
	}))
	return view, nil
}

// GetTicket fetches a ticket the actor may see.
func (s *TicketService) GetTicket(ctx context.Context, actor *domain.Principal, ticketID string) (*TicketView, error) {
	ticket, err := s.load(ctx, actor, ticketID)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, ticket), nil
}

// ListTickets returns a page of tickets with their SLA. Clients only see
// their own tickets.
func (s *TicketService) ListTickets(ctx context.Context, actor *domain.Principal, filter TicketListFilter) ([]TicketView, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	repoFilter := repository.TicketFilter{
		ClientID:    filter.ClientID,
		ProjectID:   filter.ProjectID,
		Statuses:    filter.Statuses,
		Priorities:  filter.Priorities,
		SearchTerm:  filter.SearchTerm,
		CreatedFrom: filter.CreatedFrom,
		CreatedTo:   filter.CreatedTo,
		Limit:       filter.Limit,
		Offset:      filter.Offset,
	}
	if actor.Role == domain.RoleClient {
		repoFilter.ClientID = actor.ClientID
	}

	now := s.now()
	if filter.Classification == nil {
		tickets, err := s.tickets.ListWithFilter(ctx, repoFilter)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		return s.views(ctx, tickets, now), nil
	}

	// Classification is computed, not stored: scan the matching active
	// tickets and paginate after filtering.
	repoFilter.Statuses = activeOnly(repoFilter.Statuses)
	if len(repoFilter.Statuses) == 0 {
		return []TicketView{}, nil
	}
	limit, offset := repoFilter.Limit, repoFilter.Offset
	if limit <= 0 {
		limit = 20
	}
	var matched []TicketView
	err := s.scan(ctx, repoFilter, func(batch []domain.Ticket) error {
		for _, v := range s.views(ctx, batch, now) {
			if v.SLA != nil && v.SLA.Classification == *filter.Classification {
				matched = append(matched, v)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if offset >= len(matched) {
		return []TicketView{}, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], nil
}

// ScanActive walks every active ticket in creation order, batch by batch.
func (s *TicketService) ScanActive(ctx context.Context, fn func([]domain.Ticket) error) error {
	return s.scan(ctx, repository.TicketFilter{Statuses: domain.ActiveStatuses}, fn)
}

func (s *TicketService) scan(ctx context.Context, filter repository.TicketFilter, fn func([]domain.Ticket) error) error {
	filter.Limit = listBatchSize
	filter.Offset = 0
	for {
		batch, err := s.tickets.ListWithFilter(ctx, filter)
		if err != nil {
			return apperrors.MapError(err)
		}
		if len(batch) > 0 {
			if err := fn(batch); err != nil {
				return err
			}
		}
		if len(batch) < listBatchSize {
			return nil
		}
		filter.Offset += len(batch)
	}
}

// UpdateStatus moves a ticket along the workflow. Staff only.
func (s *TicketService) UpdateStatus(ctx context.Context, actor *domain.Principal, ticketID string, newStatus domain.TicketStatus, comment string) (*TicketView, error) {
	if !actor.IsStaff() {
		return nil, apperrors.NewForbidden("support role required")
	}
	ticket, err := s.load(ctx, actor, ticketID)
	if err != nil {
		return nil, err
	}
	if !isValidTransition(ticket.Status, newStatus) {
		return nil, apperrors.NewConflict("invalid status transition", map[string]any{
			"from": ticket.Status,
			"to":   newStatus,
		})
	}
	oldStatus := ticket.Status
	ticket.Status = newStatus
	if ticket.IsActive() {
		ticket.ClosedAt = nil
	} else if ticket.ClosedAt == nil {
		now := s.now()
		ticket.ClosedAt = &now
	}
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}
	if err := s.recordChange(ctx, actor, ticket.ID, domain.ChangeTypeStatus,
		map[string]any{"status": oldStatus},
		map[string]any{"status": newStatus, "comment": comment}); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.publishEvent(ctx, events.NewEvent(events.EventTicketStatusChanged, ticket.ID, actorOf(actor), events.TicketStatusChangedPayload{
		OldStatus: oldStatus,
		NewStatus: newStatus,
		Comment:   comment,
	}))
	return s.view(ctx, ticket), nil
}

// UpdatePriority changes the priority, which moves the SLA deadline.
// Staff only.
func (s *TicketService) UpdatePriority(ctx context.Context, actor *domain.Principal, ticketID string, newPriority domain.TicketPriority) (*TicketView, error) {
	if !actor.IsStaff() {
		return nil, apperrors.NewForbidden("support role required")
	}
	if !domain.ValidPriority(newPriority) {
		return nil, apperrors.NewValidationError("invalid priority", map[string]any{"priority": newPriority})
	}
	ticket, err := s.load(ctx, actor, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.Priority == newPriority {
		return s.view(ctx, ticket), nil
	}
	oldPriority := ticket.Priority
	ticket.Priority = newPriority
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}
	if err := s.recordChange(ctx, actor, ticket.ID, domain.ChangeTypePriority,
		map[string]any{"priority": oldPriority},
		map[string]any{"priority": newPriority}); err != nil {
		return nil, apperrors.MapError(err)
	}
	view := s.view(ctx, ticket)
	s.publishEvent(ctx, events.NewEvent(events.EventTicketPriorityChanged, ticket.ID, actorOf(actor), events.TicketPriorityChangedPayload{
		OldPriority: oldPriority,
		NewPriority: newPriority,
		Deadline:    deadlineOf(view.SLA),
	}))
	return view, nil
}

// ListHistory returns the audit trail of a ticket. Staff only.
func (s *TicketService) ListHistory(ctx context.Context, actor *domain.Principal, ticketID string) ([]domain.TicketHistory, error) {
	if !actor.IsStaff() {
		return nil, apperrors.NewForbidden("support role required")
	}
	if _, err := s.load(ctx, actor, ticketID); err != nil {
		return nil, err
	}
	if s.history == nil {
		return []domain.TicketHistory{}, nil
	}
	entries, err := s.history.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return entries, nil
}

func (s *TicketService) load(ctx context.Context, actor *domain.Principal, ticketID string) (*domain.Ticket, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	if _, err := uuid.Parse(ticketID); err != nil {
		return nil, apperrors.NewNotFound("ticket", map[string]any{"id": ticketID})
	}
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if actor.Role == domain.RoleClient && (actor.ClientID == nil || *actor.ClientID != ticket.ClientID) {
		return nil, apperrors.NewNotFound("ticket", map[string]any{"id": ticketID})
	}
	return ticket, nil
}

func (s *TicketService) view(ctx context.Context, ticket *domain.Ticket) *TicketView {
	v := &TicketView{Ticket: *ticket}
	if s.sla != nil {
		v.SLA = s.sla.EvaluateTicket(ctx, ticket, s.now())
	}
	return v
}

func (s *TicketService) views(ctx context.Context, tickets []domain.Ticket, now time.Time) []TicketView {
	var evals map[string]*Evaluation
	if s.sla != nil {
		evals = s.sla.EvaluateTickets(ctx, tickets, now)
	}
	out := make([]TicketView, 0, len(tickets))
	for _, t := range tickets {
		out = append(out, TicketView{Ticket: t, SLA: evals[t.ID]})
	}
	return out
}

func (s *TicketService) recordChange(ctx context.Context, actor *domain.Principal, ticketID string, change domain.TicketChangeType, oldValue, newValue map[string]any) error {
	if s.history == nil {
		return nil
	}
	return s.history.Create(ctx, &domain.TicketHistory{
		TicketID:    ticketID,
		ChangedByID: actor.SubjectID,
		ChangedBy:   actor.Role,
		ChangeType:  change,
		OldValue:    oldValue,
		NewValue:    newValue,
	})
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handler failed", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}

func generateTicketReference() string {
	return "SAV-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

func actorOf(p *domain.Principal) events.Actor {
	return events.Actor{Role: p.Role, SubjectID: p.SubjectID}
}

func deadlineOf(ev *Evaluation) *time.Time {
	if ev == nil || !ev.Computed {
		return nil
	}
	d := ev.Status.Deadline
	return &d
}

func activeOnly(statuses []domain.TicketStatus) []domain.TicketStatus {
	if len(statuses) == 0 {
		return append([]domain.TicketStatus(nil), domain.ActiveStatuses...)
	}
	out := make([]domain.TicketStatus, 0, len(statuses))
	for _, st := range statuses {
		t := domain.Ticket{Status: st}
		if t.IsActive() {
			out = append(out, st)
		}
	}
	return out
}

var allowedTransitions = map[domain.TicketStatus][]domain.TicketStatus{
	domain.TicketStatusOpen:          {domain.TicketStatusInProgress, domain.TicketStatusWaitingClient, domain.TicketStatusResolved, domain.TicketStatusClosed},
	domain.TicketStatusInProgress:    {domain.TicketStatusWaitingClient, domain.TicketStatusResolved, domain.TicketStatusClosed},
	domain.TicketStatusWaitingClient: {domain.TicketStatusInProgress, domain.TicketStatusResolved, domain.TicketStatusClosed},
	domain.TicketStatusResolved:      {domain.TicketStatusClosed, domain.TicketStatusInProgress},
	domain.TicketStatusClosed:        {},
}

func isValidTransition(current, next domain.TicketStatus) bool {
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}
