package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/spec-kit/sav-service/internal/domain"
	"github.com/spec-kit/sav-service/internal/events"
	"github.com/spec-kit/sav-service/internal/observability"
	"github.com/spec-kit/sav-service/internal/service"
	"github.com/spec-kit/sav-service/internal/sla"
)

// SLA levels remembered between sweeps, in escalation order.
const (
	LevelOK       = "ok"
	LevelWarning  = "warning"
	LevelCritical = "critical"
	LevelBreached = "breached"
)

var levelRank = map[string]int{
	LevelOK:       0,
	LevelWarning:  1,
	LevelCritical: 2,
	LevelBreached: 3,
}

// TicketSource iterates over the active tickets.
type TicketSource interface {
	ScanActive(ctx context.Context, fn func([]domain.Ticket) error) error
}

// Evaluator computes the SLA of a batch of tickets.
type Evaluator interface {
	EvaluateTickets(ctx context.Context, tickets []domain.Ticket, now time.Time) map[string]*service.Evaluation
}

// LevelStore remembers the last level notified for each ticket.
type LevelStore interface {
	Get(ctx context.Context, ticketID string) (string, error)
	Set(ctx context.Context, ticketID, level string) error
}

// SweeperDependencies bundles the sweeper collaborators.
type SweeperDependencies struct {
	Tickets    TicketSource
	Evaluator  Evaluator
	Levels     LevelStore
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
	Logger     *zap.Logger
}

// SweepResult summarises one sweep.
type SweepResult struct {
	Evaluated int
	Escalated int
	Failed    int
}

// SLASweeper periodically re-evaluates active tickets and publishes
// sla_warning and sla_breached events when a ticket moves to a worse level.
type SLASweeper struct {
	deps     SweeperDependencies
	spec     string
	schedule cron.Schedule
	now      func() time.Time
}

// NewSLASweeper parses a standard five-field cron expression.
func NewSLASweeper(spec string, deps SweeperDependencies) (*SLASweeper, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	sched, err := parser.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid sla sweep schedule %q: %w", spec, err)
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &SLASweeper{deps: deps, spec: spec, schedule: sched, now: time.Now}, nil
}

// Run sweeps on every schedule tick until ctx is cancelled.
func (w *SLASweeper) Run(ctx context.Context) {
	logger := w.deps.Logger
	logger.Info("sla sweeper scheduled", zap.String("schedule", w.spec))
	for {
		now := w.now()
		next := w.schedule.Next(now)
		timer := time.NewTimer(next.Sub(now))
		logger.Debug("next sla sweep", zap.Time("at", next))

		select {
		case <-ctx.Done():
			timer.Stop()
			logger.Info("sla sweeper stopped")
			return
		case <-timer.C:
		}

		result, err := w.SweepOnce(ctx)
		if err != nil {
			logger.Error("sla sweep failed", zap.Error(err))
			continue
		}
		logger.Info("sla sweep complete",
			zap.Int("evaluated", result.Evaluated),
			zap.Int("escalated", result.Escalated),
			zap.Int("failed", result.Failed))
	}
}

// SweepOnce evaluates every active ticket once.
func (w *SLASweeper) SweepOnce(ctx context.Context) (SweepResult, error) {
	var result SweepResult
	now := w.now()
	err := w.deps.Tickets.ScanActive(ctx, func(batch []domain.Ticket) error {
		evals := w.deps.Evaluator.EvaluateTickets(ctx, batch, now)
		for i := range batch {
			ev := evals[batch[i].ID]
			if ev == nil || !ev.Computed {
				continue
			}
			result.Evaluated++
			w.deps.Metrics.RecordClassification(string(ev.Classification))
			escalated, err := w.track(ctx, &batch[i], ev)
			if err != nil {
				result.Failed++
				w.deps.Logger.Warn("sla level tracking failed", zap.String("ticket_id", batch[i].ID), zap.Error(err))
				continue
			}
			if escalated {
				result.Escalated++
			}
		}
		return ctx.Err()
	})
	w.deps.Metrics.RecordSweep()
	return result, err
}

// track compares the current level with the stored one, publishing on
// escalation. Lower levels are stored silently so a later escalation is
// notified again.
func (w *SLASweeper) track(ctx context.Context, ticket *domain.Ticket, ev *service.Evaluation) (bool, error) {
	current := LevelOf(ev)
	previous, err := w.deps.Levels.Get(ctx, ticket.ID)
	if err != nil {
		return false, err
	}
	if previous == "" {
		previous = LevelOK
	}
	if current == previous {
		return false, nil
	}
	escalated := levelRank[current] > levelRank[previous]
	if escalated {
		w.publish(ctx, ticket, ev, previous, current)
	}
	return escalated, w.deps.Levels.Set(ctx, ticket.ID, current)
}

func (w *SLASweeper) publish(ctx context.Context, ticket *domain.Ticket, ev *service.Evaluation, previous, current string) {
	eventType := events.EventSLAWarning
	if current == LevelBreached {
		eventType = events.EventSLABreached
	}
	w.deps.Metrics.RecordEscalation(current)
	if w.deps.Dispatcher == nil {
		return
	}
	event := events.NewEvent(eventType, ticket.ID, events.SystemActor, events.SLAEscalationPayload{
		Reference:       ticket.Reference,
		ClientID:        ticket.ClientID,
		Priority:        ticket.Priority,
		Previous:        previous,
		Classification:  string(ev.Classification),
		Deadline:        ev.Status.Deadline,
		ProgressPercent: ev.Status.ProgressPercent,
		Label:           ev.Label,
	})
	if err := w.deps.Dispatcher.Publish(ctx, event); err != nil {
		w.deps.Logger.Warn("sla escalation handler failed", zap.String("ticket_id", ticket.ID), zap.Error(err))
	}
}

// LevelOf maps an evaluation to a level; overdue tickets are breached.
func LevelOf(ev *service.Evaluation) string {
	switch {
	case ev.Status.Countdown.Overdue:
		return LevelBreached
	case ev.Classification == sla.ClassificationCritical:
		return LevelCritical
	case ev.Classification == sla.ClassificationWarning:
		return LevelWarning
	default:
		return LevelOK
	}
}
