package domain

import "time"

// SLARule overrides SLA thresholds (business hours per priority) for a
// client. A nil ClientID marks the deployment-wide rule.
type SLARule struct {
	ID         string
	ClientID   *string
	Thresholds map[string]int
	UpdatedBy  string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
