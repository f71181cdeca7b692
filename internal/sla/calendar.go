// Package sla computes SLA deadlines and countdowns in business hours.
//
// A Calendar describes the work week (work days, start and end hour, time
// zone and optional holiday dates). A Clock combines a Calendar with a
// priority threshold table to project deadlines and classify how close a
// ticket is to breaching them. Both are immutable once built and safe for
// concurrent use.
package sla

import (
	"sort"
	"time"
)

const dateLayout = "2006-01-02"

// endOfDayOffset places the end boundary one millisecond before EndHour.
const endOfDayOffset = time.Millisecond

// Config describes a business calendar.
type Config struct {
	StartHour int
	EndHour   int
	WorkDays  []time.Weekday
	Timezone  string
	Holidays  []string
}

// DefaultConfig returns a Monday to Friday, 09:00-18:00 Europe/Paris calendar.
func DefaultConfig() Config {
	return Config{
		StartHour: 9,
		EndHour:   18,
		WorkDays:  []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday},
		Timezone:  "Europe/Paris",
	}
}

// Calendar answers business-time questions for a validated Config.
type Calendar struct {
	cfg      Config
	loc      *time.Location
	workDays [7]bool
	holidays map[string]struct{}
}

// New validates cfg and builds a Calendar. Invalid configurations are
// rejected with a *ConfigurationError.
func New(cfg Config) (*Calendar, error) {
	if cfg.StartHour < 0 || cfg.StartHour > 23 {
		return nil, configErr("start_hour", "%d is outside [0,23]", cfg.StartHour)
	}
	if cfg.EndHour <= cfg.StartHour || cfg.EndHour > 24 {
		return nil, configErr("end_hour", "%d must be greater than start hour %d and at most 24", cfg.EndHour, cfg.StartHour)
	}
	if len(cfg.WorkDays) == 0 {
		return nil, configErr("work_days", "at least one work day is required")
	}

	cal := &Calendar{holidays: make(map[string]struct{}, len(cfg.Holidays))}
	for _, day := range cfg.WorkDays {
		if day < time.Sunday || day > time.Saturday {
			return nil, configErr("work_days", "%d is not a weekday number", int(day))
		}
		cal.workDays[day] = true
	}

	loc := time.UTC
	if cfg.Timezone != "" {
		var err error
		loc, err = time.LoadLocation(cfg.Timezone)
		if err != nil {
			return nil, configErr("timezone", "%q: %v", cfg.Timezone, err)
		}
	}
	cal.loc = loc

	for _, raw := range cfg.Holidays {
		d, err := time.ParseInLocation(dateLayout, raw, loc)
		if err != nil {
			return nil, configErr("holidays", "%q is not a YYYY-MM-DD date", raw)
		}
		cal.holidays[d.Format(dateLayout)] = struct{}{}
	}

	cal.cfg = normalizedCopy(cfg, cal.workDays)
	return cal, nil
}

func normalizedCopy(cfg Config, days [7]bool) Config {
	out := cfg
	out.WorkDays = make([]time.Weekday, 0, 7)
	for d := time.Sunday; d <= time.Saturday; d++ {
		if days[d] {
			out.WorkDays = append(out.WorkDays, d)
		}
	}
	out.Holidays = append([]string(nil), cfg.Holidays...)
	sort.Strings(out.Holidays)
	return out
}

// Config returns a copy of the calendar configuration. WorkDays are in
// weekday order, Sunday first, and Holidays are sorted.
func (c *Calendar) Config() Config {
	out := c.cfg
	out.WorkDays = append([]time.Weekday(nil), c.cfg.WorkDays...)
	out.Holidays = append([]string(nil), c.cfg.Holidays...)
	return out
}

// Location returns the calendar time zone.
func (c *Calendar) Location() *time.Location {
	return c.loc
}

// HoursPerDay is the capacity of one business day.
func (c *Calendar) HoursPerDay() int {
	return c.cfg.EndHour - c.cfg.StartHour
}

// IsWorkDay reports whether the local date of t is a business day.
func (c *Calendar) IsWorkDay(t time.Time) bool {
	local := t.In(c.loc)
	if !c.workDays[local.Weekday()] {
		return false
	}
	_, holiday := c.holidays[local.Format(dateLayout)]
	return !holiday
}

// IsBusinessTime reports whether t falls inside business hours.
func (c *Calendar) IsBusinessTime(t time.Time) bool {
	local := t.In(c.loc)
	if !c.IsWorkDay(local) {
		return false
	}
	hour := local.Hour()
	return hour >= c.cfg.StartHour && hour < c.cfg.EndHour
}

// NextBusinessInstant returns t when it is already inside business hours,
// otherwise the start of the next business period.
func (c *Calendar) NextBusinessInstant(t time.Time) time.Time {
	if c.IsBusinessTime(t) {
		return t
	}
	local := t.In(c.loc)
	if c.IsWorkDay(local) && local.Hour() < c.cfg.StartHour {
		return c.at(local, 0, c.cfg.StartHour)
	}
	day := c.at(local, 1, 0)
	for !c.IsWorkDay(day) {
		day = c.at(day, 1, 0)
	}
	return c.at(day, 0, c.cfg.StartHour)
}

// PreviousBusinessInstant returns t when it is already inside business
// hours, otherwise the end boundary of the most recent business period.
func (c *Calendar) PreviousBusinessInstant(t time.Time) time.Time {
	if c.IsBusinessTime(t) {
		return t
	}
	local := t.In(c.loc)
	if c.IsWorkDay(local) && local.Hour() >= c.cfg.EndHour {
		return c.endOfDay(local)
	}
	day := c.at(local, -1, 0)
	for !c.IsWorkDay(day) {
		day = c.at(day, -1, 0)
	}
	return c.endOfDay(day)
}

// BusinessHoursBetween returns the business hours elapsed in [start, end).
// It is zero when start is not before end.
func (c *Calendar) BusinessHoursBetween(start, end time.Time) float64 {
	if !start.Before(end) {
		return 0
	}
	var total time.Duration
	cur := c.NextBusinessInstant(start)
	for cur.Before(end) {
		dayEnd := c.at(cur.In(c.loc), 0, c.cfg.EndHour)
		stop := dayEnd
		if end.Before(stop) {
			stop = end
		}
		if stop.After(cur) {
			total += stop.Sub(cur)
		}
		cur = c.NextBusinessInstant(dayEnd)
	}
	return total.Hours()
}

// AddBusinessHours projects start forward by the given number of business
// hours. A deadline that lands exactly on the end of a business day rolls
// over to the start of the next one.
func (c *Calendar) AddBusinessHours(start time.Time, hours float64) time.Time {
	if hours <= 0 {
		return start
	}
	remaining := time.Duration(hours * float64(time.Hour))
	cur := c.NextBusinessInstant(start)
	for {
		dayEnd := c.at(cur.In(c.loc), 0, c.cfg.EndHour)
		available := dayEnd.Sub(cur)
		if remaining < available {
			return cur.Add(remaining)
		}
		remaining -= available
		cur = c.NextBusinessInstant(dayEnd)
		if remaining <= 0 {
			return cur
		}
	}
}

// at returns local midnight shifted by days, at the given hour, in the
// calendar zone. time.Date normalizes hour 24 and DST gaps.
func (c *Calendar) at(local time.Time, days, hour int) time.Time {
	return time.Date(local.Year(), local.Month(), local.Day()+days, hour, 0, 0, 0, c.loc)
}

func (c *Calendar) endOfDay(local time.Time) time.Time {
	return c.at(local, 0, c.cfg.EndHour).Add(-endOfDayOffset)
}
