package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/sav-service/internal/domain"
	"github.com/spec-kit/sav-service/internal/repository"
)

type fakeTicketRepo struct {
	mu      sync.Mutex
	tickets map[string]*domain.Ticket
	clock   func() time.Time
}

func newFakeTicketRepo(clock func() time.Time) *fakeTicketRepo {
	return &fakeTicketRepo{tickets: map[string]*domain.Ticket{}, clock: clock}
}

func (r *fakeTicketRepo) Create(ctx context.Context, t *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t.ID = uuid.NewString()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = r.clock()
	}
	t.UpdatedAt = t.CreatedAt
	cp := *t
	r.tickets[t.ID] = &cp
	return nil
}

func (r *fakeTicketRepo) Update(ctx context.Context, t *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tickets[t.ID]; !ok {
		return pgx.ErrNoRows
	}
	t.UpdatedAt = r.clock()
	cp := *t
	r.tickets[t.ID] = &cp
	return nil
}

func (r *fakeTicketRepo) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *t
	return &cp, nil
}

func (r *fakeTicketRepo) ListWithFilter(ctx context.Context, f repository.TicketFilter) ([]domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var all []domain.Ticket
	for _, t := range r.tickets {
		if f.ClientID != nil && t.ClientID != *f.ClientID {
			continue
		}
		if len(f.Statuses) > 0 && !containsStatus(f.Statuses, t.Status) {
			continue
		}
		if len(f.Priorities) > 0 && !containsPriority(f.Priorities, t.Priority) {
			continue
		}
		all = append(all, *t)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID < all[j].ID
		}
		return all[i].CreatedAt.Before(all[j].CreatedAt)
	})
	limit := f.Limit
	if limit <= 0 {
		limit = 20
	}
	if f.Offset >= len(all) {
		return nil, nil
	}
	end := f.Offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[f.Offset:end], nil
}

func (r *fakeTicketRepo) put(t domain.Ticket) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	r.tickets[t.ID] = &t
	return t.ID
}

func containsStatus(list []domain.TicketStatus, s domain.TicketStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func containsPriority(list []domain.TicketPriority, p domain.TicketPriority) bool {
	for _, v := range list {
		if v == p {
			return true
		}
	}
	return false
}

type fakeHistoryRepo struct {
	entries []domain.TicketHistory
}

func (r *fakeHistoryRepo) Create(ctx context.Context, h *domain.TicketHistory) error {
	h.ID = uuid.NewString()
	r.entries = append(r.entries, *h)
	return nil
}

func (r *fakeHistoryRepo) ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketHistory, error) {
	var out []domain.TicketHistory
	for _, e := range r.entries {
		if e.TicketID == ticketID {
			out = append(out, e)
		}
	}
	return out, nil
}

type fakeRuleRepo struct {
	global  *domain.SLARule
	clients map[string]*domain.SLARule
	err     error
	upserts int
}

func newFakeRuleRepo() *fakeRuleRepo {
	return &fakeRuleRepo{clients: map[string]*domain.SLARule{}}
}

func (r *fakeRuleRepo) GetByClient(ctx context.Context, clientID string) (*domain.SLARule, error) {
	if r.err != nil {
		return nil, r.err
	}
	rule, ok := r.clients[clientID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return rule, nil
}

func (r *fakeRuleRepo) GetGlobal(ctx context.Context) (*domain.SLARule, error) {
	if r.err != nil {
		return nil, r.err
	}
	if r.global == nil {
		return nil, pgx.ErrNoRows
	}
	return r.global, nil
}

func (r *fakeRuleRepo) Upsert(ctx context.Context, rule *domain.SLARule) error {
	if r.err != nil {
		return r.err
	}
	r.upserts++
	rule.ID = uuid.NewString()
	if rule.ClientID == nil {
		r.global = rule
	} else {
		r.clients[*rule.ClientID] = rule
	}
	return nil
}

var errStorage = errors.New("storage unavailable")
