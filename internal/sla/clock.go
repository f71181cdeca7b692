package sla

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Priority labels understood by the default threshold table.
const (
	PriorityUrgent = "urgent"
	PriorityHigh   = "high"
	PriorityNormal = "normal"
	PriorityLow    = "low"
)

// fallbackNormalHours applies when a table has no entry for normal either.
const fallbackNormalHours = 24

// Progress ratios (percent of the threshold consumed) driving Classify.
const (
	CriticalPercent = 90.0
	WarningPercent  = 75.0
)

// UnknownLabel is displayed when no deadline can be computed.
const UnknownLabel = "indéterminé"

// Classification is the urgency tier of a ticket against its SLA.
type Classification string

const (
	ClassificationOK       Classification = "ok"
	ClassificationWarning  Classification = "warning"
	ClassificationCritical Classification = "critical"
	ClassificationUnknown  Classification = "unknown"
)

// Severity orders classifications so escalations can be detected.
func (c Classification) Severity() int {
	switch c {
	case ClassificationWarning:
		return 1
	case ClassificationCritical:
		return 2
	default:
		return 0
	}
}

// Thresholds maps a priority label to the business hours it is allowed.
type Thresholds map[string]int

// DefaultThresholds returns urgent=2, high=8, normal=24, low=72.
func DefaultThresholds() Thresholds {
	return Thresholds{
		PriorityUrgent: 2,
		PriorityHigh:   8,
		PriorityNormal: 24,
		PriorityLow:    72,
	}
}

// Priorities lists the known labels from most to least urgent.
func Priorities() []string {
	return []string{PriorityUrgent, PriorityHigh, PriorityNormal, PriorityLow}
}

// HoursFor is the strict lookup: it fails with ErrUnknownPriority when the
// label is absent.
func (t Thresholds) HoursFor(priority string) (int, error) {
	hours, ok := t[priority]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownPriority, priority)
	}
	return hours, nil
}

// Resolve returns the hours for priority, falling back to normal.
func (t Thresholds) Resolve(priority string) int {
	if hours, ok := t[priority]; ok {
		return hours
	}
	if hours, ok := t[PriorityNormal]; ok {
		return hours
	}
	return fallbackNormalHours
}

// Merge returns a copy of t where missing labels are taken from base.
func (t Thresholds) Merge(base Thresholds) Thresholds {
	out := make(Thresholds, len(base)+len(t))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range t {
		out[k] = v
	}
	return out
}

// Magnitude is a countdown split into business days, hours and minutes.
type Magnitude struct {
	Days    int `json:"days"`
	Hours   int `json:"hours"`
	Minutes int `json:"minutes"`
}

// Countdown is the time left before, or past, a deadline.
type Countdown struct {
	Overdue   bool
	Magnitude Magnitude
	Deadline  time.Time
}

// String renders the countdown the way the ticket list displays it.
func (c Countdown) String() string {
	m := c.Magnitude
	if c.Overdue {
		return "Retard : " + formatDaysHours(m)
	}
	if m.Days == 0 && m.Hours == 0 {
		return fmt.Sprintf("%d min restantes", m.Minutes)
	}
	return formatDaysHours(m) + " restantes"
}

func formatDaysHours(m Magnitude) string {
	parts := make([]string, 0, 2)
	if m.Days > 0 {
		parts = append(parts, fmt.Sprintf("%dj", m.Days))
	}
	if m.Hours > 0 || m.Days == 0 {
		parts = append(parts, fmt.Sprintf("%dh", m.Hours))
	}
	return strings.Join(parts, " ")
}

// Status gathers everything known about a ticket's SLA at one instant.
type Status struct {
	Deadline        time.Time
	Countdown       Countdown
	ThresholdHours  int
	ElapsedHours    float64
	ProgressPercent float64
	Classification  Classification
}

// Clock evaluates SLA deadlines on top of a Calendar.
type Clock struct {
	cal *Calendar
}

// NewClock wraps cal.
func NewClock(cal *Calendar) *Clock {
	return &Clock{cal: cal}
}

// Calendar returns the underlying calendar.
func (c *Clock) Calendar() *Calendar {
	return c.cal
}

// Deadline adds the priority's threshold, in business hours, to createdAt.
// Unknown priorities use the normal threshold.
func (c *Clock) Deadline(createdAt time.Time, priority string, thresholds Thresholds) time.Time {
	return c.cal.AddBusinessHours(createdAt, float64(thresholds.Resolve(priority)))
}

// Countdown reports how long remains before the deadline, or how far past
// it now is. Days are business days of HoursPerDay hours.
func (c *Clock) Countdown(now, createdAt time.Time, priority string, thresholds Thresholds) Countdown {
	return c.countdown(now, c.Deadline(createdAt, priority, thresholds))
}

func (c *Clock) countdown(now, deadline time.Time) Countdown {
	out := Countdown{Deadline: deadline}
	var hours float64
	if !now.Before(deadline) {
		out.Overdue = true
		hours = c.cal.BusinessHoursBetween(deadline, now)
	} else {
		hours = c.cal.BusinessHoursBetween(now, deadline)
	}
	out.Magnitude = c.split(hours)
	if !out.Overdue && math.Floor(hours) == 0 {
		out.Magnitude.Minutes = int(math.Floor(hours * 60))
	}
	return out
}

func (c *Clock) split(hours float64) Magnitude {
	perDay := float64(c.cal.HoursPerDay())
	days := math.Floor(hours / perDay)
	return Magnitude{
		Days:  int(days),
		Hours: int(math.Floor(hours - days*perDay)),
	}
}

// Classify returns critical once the deadline is reached or 90% of the
// threshold is consumed, warning from 75%, ok below.
func (c *Clock) Classify(now, createdAt time.Time, priority string, thresholds Thresholds) Classification {
	return c.Evaluate(now, createdAt, priority, thresholds).Classification
}

// Evaluate computes the deadline, countdown, progress and classification.
func (c *Clock) Evaluate(now, createdAt time.Time, priority string, thresholds Thresholds) Status {
	threshold := thresholds.Resolve(priority)
	deadline := c.cal.AddBusinessHours(createdAt, float64(threshold))
	st := Status{
		Deadline:       deadline,
		Countdown:      c.countdown(now, deadline),
		ThresholdHours: threshold,
		ElapsedHours:   c.cal.BusinessHoursBetween(createdAt, now),
	}
	if threshold > 0 {
		st.ProgressPercent = st.ElapsedHours / float64(threshold) * 100
	}
	st.Classification = classify(!now.Before(deadline), st.ProgressPercent)
	return st
}

func classify(overdue bool, progress float64) Classification {
	switch {
	case overdue, progress >= CriticalPercent:
		return ClassificationCritical
	case progress >= WarningPercent:
		return ClassificationWarning
	default:
		return ClassificationOK
	}
}
