package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/sav-service/internal/domain"
)

// SLARuleRepository stores per-client and global SLA threshold overrides.
// Lookups return pgx.ErrNoRows when no rule exists.
type SLARuleRepository interface {
	GetByClient(ctx context.Context, clientID string) (*domain.SLARule, error)
	GetGlobal(ctx context.Context) (*domain.SLARule, error)
	Upsert(ctx context.Context, rule *domain.SLARule) error
}

type slaRuleRepository struct {
	pool *pgxpool.Pool
}

// NewSLARuleRepository builds the repository.
func NewSLARuleRepository(pool *pgxpool.Pool) SLARuleRepository {
	return &slaRuleRepository{pool: pool}
}

func (r *slaRuleRepository) GetByClient(ctx context.Context, clientID string) (*domain.SLARule, error) {
	const query = `
        SELECT id, client_id, thresholds, updated_by, created_at, updated_at
        FROM sla_rules WHERE client_id=$1`
	return r.fetch(ctx, query, clientID)
}

func (r *slaRuleRepository) GetGlobal(ctx context.Context) (*domain.SLARule, error) {
	const query = `
        SELECT id, client_id, thresholds, updated_by, created_at, updated_at
        FROM sla_rules WHERE client_id IS NULL`
	return r.fetch(ctx, query)
}

func (r *slaRuleRepository) fetch(ctx context.Context, query string, args ...any) (*domain.SLARule, error) {
	var rule domain.SLARule
	if err := r.pool.QueryRow(ctx, query, args...).Scan(
		&rule.ID,
		&rule.ClientID,
		&rule.Thresholds,
		&rule.UpdatedBy,
		&rule.CreatedAt,
		&rule.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &rule, nil
}

// Upsert relies on the sla_rules_scope unique index, which treats the
// NULL client as a single global row.
func (r *slaRuleRepository) Upsert(ctx context.Context, rule *domain.SLARule) error {
	const query = `
        INSERT INTO sla_rules (client_id, thresholds, updated_by)
        VALUES ($1,$2,$3)
        ON CONFLICT ((COALESCE(client_id, ''))) DO UPDATE
            SET thresholds=EXCLUDED.thresholds, updated_by=EXCLUDED.updated_by, updated_at=NOW()
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		rule.ClientID,
		rule.Thresholds,
		rule.UpdatedBy,
	).Scan(&rule.ID, &rule.CreatedAt, &rule.UpdatedAt)
}
