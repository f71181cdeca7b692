package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/sav-service/internal/domain"
	"github.com/spec-kit/sav-service/internal/repository"
	"github.com/spec-kit/sav-service/internal/sla"
	apperrors "github.com/spec-kit/sav-service/pkg/util/errorutil"
)

// SLAService resolves threshold tables and evaluates tickets against the
// business calendar.
type SLAService struct {
	clock    *sla.Clock
	rules    repository.SLARuleRepository
	defaults sla.Thresholds
	logger   *zap.Logger
	now      func() time.Time
}

// Evaluation is the SLA standing of one ticket at one instant. Computed is
// false when no deadline could be derived; Label then reads "indéterminé".
type Evaluation struct {
	Computed       bool
	Status         sla.Status
	Label          string
	Classification sla.Classification
}

// RuleView pairs a stored rule (nil when none exists) with the effective
// table after inheritance.
type RuleView struct {
	ClientID  *string
	Rule      *domain.SLARule
	Effective sla.Thresholds
}

// PreviewInput describes an ad-hoc deadline computation.
type PreviewInput struct {
	CreatedAt time.Time
	Priority  string
	Now       *time.Time
	ClientID  *string
}

// NewSLAService constructs the service. A nil rules repository disables
// per-client overrides.
func NewSLAService(clock *sla.Clock, rules repository.SLARuleRepository, defaults sla.Thresholds, logger *zap.Logger) *SLAService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(defaults) == 0 {
		defaults = sla.DefaultThresholds()
	}
	return &SLAService{
		clock:    clock,
		rules:    rules,
		defaults: defaults,
		logger:   logger,
		now:      time.Now,
	}
}

// Calendar returns the calendar the service evaluates against.
func (s *SLAService) Calendar() *sla.Calendar {
	return s.clock.Calendar()
}

// Defaults returns a copy of the deployment-wide thresholds.
func (s *SLAService) Defaults() sla.Thresholds {
	return s.defaults.Merge(nil)
}

// ResolveThresholds returns the table for clientID: the client rule, then
// the global rule, then the configured defaults. Missing priorities inherit
// from the next level. Lookup failures are logged and skipped.
func (s *SLAService) ResolveThresholds(ctx context.Context, clientID string) sla.Thresholds {
	effective := s.defaults.Merge(nil)
	if s.rules == nil {
		return effective
	}
	if global := s.lookup(ctx, "", s.rules.GetGlobal); global != nil {
		effective = sla.Thresholds(global.Thresholds).Merge(effective)
	}
	if clientID == "" {
		return effective
	}
	client := s.lookup(ctx, clientID, func(ctx context.Context) (*domain.SLARule, error) {
		return s.rules.GetByClient(ctx, clientID)
	})
	if client != nil {
		effective = sla.Thresholds(client.Thresholds).Merge(effective)
	}
	return effective
}

func (s *SLAService) lookup(ctx context.Context, clientID string, get func(context.Context) (*domain.SLARule, error)) *domain.SLARule {
	rule, err := get(ctx)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return nil
	case err != nil:
		s.logger.Warn("sla rule lookup failed, using inherited thresholds",
			zap.String("client_id", clientID), zap.Error(err))
		return nil
	}
	return rule
}

// EvaluateTicket evaluates ticket at now. It returns nil for tickets whose
// SLA clock has stopped (resolved or closed).
func (s *SLAService) EvaluateTicket(ctx context.Context, ticket *domain.Ticket, now time.Time) *Evaluation {
	if ticket == nil || !ticket.IsActive() {
		return nil
	}
	thresholds := s.ResolveThresholds(ctx, ticket.ClientID)
	ev := s.evaluate(ticket.ID, ticket.CreatedAt, string(ticket.Priority), thresholds, now)
	return &ev
}

// EvaluateTickets evaluates a batch, resolving each client's table once.
// The result is keyed by ticket id and omits inactive tickets.
func (s *SLAService) EvaluateTickets(ctx context.Context, tickets []domain.Ticket, now time.Time) map[string]*Evaluation {
	out := make(map[string]*Evaluation, len(tickets))
	tables := make(map[string]sla.Thresholds)
	for i := range tickets {
		t := &tickets[i]
		if !t.IsActive() {
			continue
		}
		thresholds, ok := tables[t.ClientID]
		if !ok {
			thresholds = s.ResolveThresholds(ctx, t.ClientID)
			tables[t.ClientID] = thresholds
		}
		ev := s.evaluate(t.ID, t.CreatedAt, string(t.Priority), thresholds, now)
		out[t.ID] = &ev
	}
	return out
}

// Preview computes the SLA of a hypothetical ticket.
func (s *SLAService) Preview(ctx context.Context, input PreviewInput) (*Evaluation, error) {
	if input.CreatedAt.IsZero() {
		return nil, apperrors.NewValidationError("created_at required", nil)
	}
	if input.Priority == "" {
		input.Priority = sla.PriorityNormal
	}
	now := s.now()
	if input.Now != nil {
		now = *input.Now
	}
	clientID := ""
	if input.ClientID != nil {
		clientID = *input.ClientID
	}
	ev := s.evaluate("", input.CreatedAt, input.Priority, s.ResolveThresholds(ctx, clientID), now)
	return &ev, nil
}

func (s *SLAService) evaluate(ticketID string, createdAt time.Time, priority string, thresholds sla.Thresholds, now time.Time) Evaluation {
	if createdAt.IsZero() {
		s.logger.Warn("sla not computable: missing creation time", zap.String("ticket_id", ticketID))
		return Evaluation{Label: sla.UnknownLabel, Classification: sla.ClassificationUnknown}
	}
	if _, err := thresholds.HoursFor(priority); err != nil {
		s.logger.Warn("unknown priority, using normal threshold",
			zap.String("ticket_id", ticketID), zap.String("priority", priority))
	}
	st := s.clock.Evaluate(now, createdAt, priority, thresholds)
	return Evaluation{
		Computed:       true,
		Status:         st,
		Label:          st.Countdown.String(),
		Classification: st.Classification,
	}
}

// GetRule returns the stored rule for clientID (nil for the global rule)
// with its effective table.
func (s *SLAService) GetRule(ctx context.Context, clientID *string) (*RuleView, error) {
	view := &RuleView{ClientID: clientID}
	if s.rules != nil {
		var (
			rule *domain.SLARule
			err  error
		)
		if clientID == nil {
			rule, err = s.rules.GetGlobal(ctx)
		} else {
			rule, err = s.rules.GetByClient(ctx, *clientID)
		}
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.MapError(err)
		}
		view.Rule = rule
	}
	scope := ""
	if clientID != nil {
		scope = *clientID
	}
	view.Effective = s.ResolveThresholds(ctx, scope)
	return view, nil
}

// UpsertRule stores thresholds for clientID (nil for the global rule).
// Only admins may change rules.
func (s *SLAService) UpsertRule(ctx context.Context, actor *domain.Principal, clientID *string, thresholds map[string]int) (*RuleView, error) {
	if actor == nil || actor.Role != domain.RoleAdmin {
		return nil, apperrors.NewForbidden("admin role required")
	}
	if s.rules == nil {
		return nil, apperrors.NewInternalError(errors.New("sla rule storage not configured"))
	}
	if clientID != nil && *clientID == "" {
		return nil, apperrors.NewValidationError("client_id must not be empty", nil)
	}
	if err := ValidateThresholds(thresholds); err != nil {
		return nil, err
	}
	rule := &domain.SLARule{
		ClientID:   clientID,
		Thresholds: thresholds,
		UpdatedBy:  actor.SubjectID,
	}
	if err := s.rules.Upsert(ctx, rule); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.logger.Info("sla rule updated",
		zap.Stringp("client_id", clientID),
		zap.String("updated_by", actor.SubjectID),
		zap.Any("thresholds", thresholds))
	return s.GetRule(ctx, clientID)
}

// ValidateThresholds accepts a non-empty table of known priority labels
// mapped to positive hour counts.
func ValidateThresholds(thresholds map[string]int) error {
	if len(thresholds) == 0 {
		return apperrors.NewValidationError("thresholds required", nil)
	}
	known := make(map[string]struct{}, 4)
	for _, p := range sla.Priorities() {
		known[p] = struct{}{}
	}
	invalid := map[string]any{}
	for priority, hours := range thresholds {
		if _, ok := known[priority]; !ok {
			invalid[priority] = "unknown priority"
			continue
		}
		if hours <= 0 {
			invalid[priority] = fmt.Sprintf("hours must be positive, got %d", hours)
		}
	}
	if len(invalid) > 0 {
		return apperrors.NewValidationError("invalid thresholds", invalid)
	}
	return nil
}
