package dto

import "time"

// SLAResponse is the SLA block attached to active tickets and previews.
// Deadline is nil and Classification "unknown" when no deadline could be
// computed.
type SLAResponse struct {
	Deadline        *time.Time `json:"deadline"`
	Overdue         bool       `json:"overdue"`
	Days            int        `json:"days"`
	Hours           int        `json:"hours"`
	Minutes         int        `json:"minutes"`
	Label           string     `json:"label"`
	Classification  string     `json:"classification"`
	ElapsedHours    float64    `json:"elapsed_hours"`
	ProgressPercent float64    `json:"progress_percent"`
	ThresholdHours  int        `json:"threshold_hours"`
}

// SLAPreviewRequest asks for the SLA of a hypothetical ticket.
type SLAPreviewRequest struct {
	CreatedAt time.Time  `json:"created_at"`
	Priority  string     `json:"priority"`
	Now       *time.Time `json:"now"`
	ClientID  *string    `json:"client_id"`
}

// SLARuleRequest replaces the thresholds of a rule.
type SLARuleRequest struct {
	Thresholds map[string]int `json:"thresholds"`
}

// SLARuleResponse shows the stored overrides and the effective table.
type SLARuleResponse struct {
	ClientID  *string        `json:"client_id"`
	Stored    map[string]int `json:"stored"`
	Effective map[string]int `json:"effective"`
	UpdatedBy string         `json:"updated_by,omitempty"`
	UpdatedAt *time.Time     `json:"updated_at,omitempty"`
}

// CalendarResponse describes the business calendar in force.
type CalendarResponse struct {
	Timezone    string         `json:"timezone"`
	StartHour   int            `json:"start_hour"`
	EndHour     int            `json:"end_hour"`
	HoursPerDay int            `json:"hours_per_day"`
	WorkDays    []int          `json:"work_days"`
	Holidays    []string       `json:"holidays"`
	Thresholds  map[string]int `json:"default_thresholds"`
}
