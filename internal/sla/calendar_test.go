package sla

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func paris(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Paris")
	require.NoError(t, err)
	return loc
}

func defaultCalendar(t *testing.T) *Calendar {
	t.Helper()
	cal, err := New(DefaultConfig())
	require.NoError(t, err)
	return cal
}

// July 2024: Monday 1st ... Sunday 7th.
func local(t *testing.T, day, hour, minute int) time.Time {
	t.Helper()
	return time.Date(2024, 7, day, hour, minute, 0, 0, paris(t))
}

func assertInstant(t *testing.T, want, got time.Time) {
	t.Helper()
	assert.Truef(t, want.Equal(got), "want %s, got %s", want, got.In(want.Location()))
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name  string
		mod   func(*Config)
		field string
	}{
		{"start after end", func(c *Config) { c.StartHour, c.EndHour = 18, 9 }, "end_hour"},
		{"start equals end", func(c *Config) { c.EndHour = c.StartHour }, "end_hour"},
		{"negative start", func(c *Config) { c.StartHour = -1 }, "start_hour"},
		{"end past midnight", func(c *Config) { c.EndHour = 25 }, "end_hour"},
		{"no work days", func(c *Config) { c.WorkDays = nil }, "work_days"},
		{"bad weekday", func(c *Config) { c.WorkDays = []time.Weekday{7} }, "work_days"},
		{"bad timezone", func(c *Config) { c.Timezone = "Not/A/Zone" }, "timezone"},
		{"bad holiday", func(c *Config) { c.Holidays = []string{"14/07/2024"} }, "holidays"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mod(&cfg)
			cal, err := New(cfg)
			require.Error(t, err)
			assert.Nil(t, cal)

			var cfgErr *ConfigurationError
			require.True(t, errors.As(err, &cfgErr))
			assert.Equal(t, tc.field, cfgErr.Field)
		})
	}
}

func TestNew_EmptyTimezoneIsUTC(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Timezone = ""
	cal, err := New(cfg)
	require.NoError(t, err)
	assert.Equal(t, time.UTC, cal.Location())
}

func TestCalendar_ConfigIsACopy(t *testing.T) {
	cal := defaultCalendar(t)
	cfg := cal.Config()
	cfg.WorkDays[0] = time.Sunday
	assert.Equal(t, time.Monday, cal.Config().WorkDays[0])
	assert.Equal(t, 9, cal.HoursPerDay())
}

func TestCalendar_ConfigIsOrdered(t *testing.T) {
	cfg := DefaultConfig()
	cfg.WorkDays = []time.Weekday{time.Friday, time.Monday, time.Wednesday, time.Monday}
	cfg.Holidays = []string{"2024-12-25", "2024-07-14", "2024-08-15"}
	cal, err := New(cfg)
	require.NoError(t, err)

	got := cal.Config()
	assert.Equal(t, []time.Weekday{time.Monday, time.Wednesday, time.Friday}, got.WorkDays)
	assert.Equal(t, []string{"2024-07-14", "2024-08-15", "2024-12-25"}, got.Holidays)
}

func TestIsBusinessTime(t *testing.T) {
	cal := defaultCalendar(t)

	assert.True(t, cal.IsBusinessTime(local(t, 2, 10, 0)), "Tuesday 10:00")
	assert.True(t, cal.IsBusinessTime(local(t, 2, 9, 0)), "start hour is inclusive")
	assert.False(t, cal.IsBusinessTime(local(t, 2, 18, 0)), "end hour is exclusive")
	assert.True(t, cal.IsBusinessTime(local(t, 2, 17, 59)))
	assert.False(t, cal.IsBusinessTime(local(t, 2, 8, 59)))
	assert.False(t, cal.IsBusinessTime(local(t, 6, 14, 0)), "Saturday")
}

func TestIsBusinessTime_ConvertsToCalendarZone(t *testing.T) {
	cal := defaultCalendar(t)

	// 07:30 UTC is 09:30 in Paris during summer time.
	assert.True(t, cal.IsBusinessTime(time.Date(2024, 7, 2, 7, 30, 0, 0, time.UTC)))
	// 16:30 UTC is 18:30 in Paris.
	assert.False(t, cal.IsBusinessTime(time.Date(2024, 7, 2, 16, 30, 0, 0, time.UTC)))
}

func TestNextBusinessInstant(t *testing.T) {
	cal := defaultCalendar(t)

	tests := []struct {
		name string
		in   time.Time
		want time.Time
	}{
		{"in hours is unchanged", local(t, 2, 10, 0), local(t, 2, 10, 0)},
		{"before start same day", local(t, 2, 7, 15), local(t, 2, 9, 0)},
		{"after end rolls to next day", local(t, 1, 19, 0), local(t, 2, 9, 0)},
		{"exactly end hour", local(t, 1, 18, 0), local(t, 2, 9, 0)},
		{"saturday skips weekend", local(t, 6, 14, 0), local(t, 8, 9, 0)},
		{"sunday early", local(t, 7, 3, 0), local(t, 8, 9, 0)},
		{"friday evening", local(t, 5, 20, 0), local(t, 8, 9, 0)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assertInstant(t, tc.want, cal.NextBusinessInstant(tc.in))
		})
	}
}

func TestNextBusinessInstant_IdempotentInHours(t *testing.T) {
	cal := defaultCalendar(t)
	in := local(t, 3, 11, 42).Add(123 * time.Millisecond)
	got := cal.NextBusinessInstant(in)
	assert.True(t, in.Equal(got))
	assert.True(t, got.Equal(cal.NextBusinessInstant(got)))
}

func TestNextBusinessInstant_SundayToThursdayWeek(t *testing.T) {
	cal, err := New(Config{
		StartHour: 8,
		EndHour:   16,
		WorkDays:  []time.Weekday{time.Sunday, time.Monday, time.Tuesday, time.Wednesday, time.Thursday},
		Timezone:  "Europe/Paris",
	})
	require.NoError(t, err)

	// Thursday evening waits for Sunday, not Monday.
	assertInstant(t, local(t, 7, 8, 0), cal.NextBusinessInstant(local(t, 4, 17, 0)))
	// Friday and Saturday are off.
	assertInstant(t, local(t, 7, 8, 0), cal.NextBusinessInstant(local(t, 5, 10, 0)))
}

func TestNextBusinessInstant_SingleWorkDay(t *testing.T) {
	cal, err := New(Config{StartHour: 9, EndHour: 12, WorkDays: []time.Weekday{time.Wednesday}, Timezone: "Europe/Paris"})
	require.NoError(t, err)

	assertInstant(t, local(t, 10, 9, 0), cal.NextBusinessInstant(local(t, 3, 12, 0)))
}

func TestNextBusinessInstant_SkipsHolidays(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Holidays = []string{"2024-07-15"} // Monday
	cal, err := New(cfg)
	require.NoError(t, err)

	assert.False(t, cal.IsWorkDay(local(t, 15, 10, 0)))
	assertInstant(t, local(t, 16, 9, 0), cal.NextBusinessInstant(local(t, 12, 18, 30)))
}

func TestPreviousBusinessInstant(t *testing.T) {
	cal := defaultCalendar(t)
	endBoundary := func(day int) time.Time {
		return time.Date(2024, 7, day, 17, 59, 59, int(999*time.Millisecond), paris(t))
	}

	tests := []struct {
		name string
		in   time.Time
		want time.Time
	}{
		{"in hours is unchanged", local(t, 3, 15, 0), local(t, 3, 15, 0)},
		{"after end same day", local(t, 3, 20, 0), endBoundary(3)},
		{"before start previous day", local(t, 3, 7, 0), endBoundary(2)},
		{"monday morning rewinds to friday", local(t, 8, 8, 0), endBoundary(5)},
		{"sunday rewinds to friday", local(t, 7, 12, 0), endBoundary(5)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assertInstant(t, tc.want, cal.PreviousBusinessInstant(tc.in))
		})
	}
}

func TestBusinessHoursBetween(t *testing.T) {
	cal := defaultCalendar(t)

	tests := []struct {
		name       string
		start, end time.Time
		want       float64
	}{
		{"zero length", local(t, 1, 10, 0), local(t, 1, 10, 0), 0},
		{"reversed span", local(t, 1, 15, 0), local(t, 1, 10, 0), 0},
		{"single day overlap", local(t, 1, 10, 0), local(t, 1, 15, 0), 5},
		{"cross weekend", local(t, 5, 16, 0), local(t, 8, 11, 0), 4},
		{"overnight", local(t, 1, 16, 0), local(t, 2, 10, 0), 3},
		{"starts before opening", local(t, 1, 6, 0), local(t, 1, 10, 30), 1.5},
		{"full week", local(t, 1, 0, 0), local(t, 8, 0, 0), 45},
		{"entirely outside hours", local(t, 6, 10, 0), local(t, 7, 20, 0), 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.want, cal.BusinessHoursBetween(tc.start, tc.end), 1e-9)
		})
	}
}

func TestBusinessHoursBetween_SkipsHoliday(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Holidays = []string{"2024-07-04"}
	cal, err := New(cfg)
	require.NoError(t, err)

	// Wednesday 16:00 to Friday 10:00, Thursday off: 2h + 1h.
	assert.InDelta(t, 3, cal.BusinessHoursBetween(local(t, 3, 16, 0), local(t, 5, 10, 0)), 1e-9)
}

func TestBusinessHoursBetween_AcrossSpringForward(t *testing.T) {
	cal := defaultCalendar(t)
	loc := paris(t)

	// Clocks moved forward on Sunday 31 March 2024, outside business hours.
	start := time.Date(2024, 3, 29, 17, 0, 0, 0, loc)
	end := time.Date(2024, 4, 1, 10, 0, 0, 0, loc)
	assert.InDelta(t, 2, cal.BusinessHoursBetween(start, end), 1e-9)
}

func TestBusinessHoursBetween_DSTDayCountsRealHours(t *testing.T) {
	cal, err := New(Config{
		StartHour: 0,
		EndHour:   24,
		WorkDays:  []time.Weekday{0, 1, 2, 3, 4, 5, 6},
		Timezone:  "Europe/Paris",
	})
	require.NoError(t, err)
	loc := paris(t)

	start := time.Date(2024, 3, 31, 0, 0, 0, 0, loc)
	end := time.Date(2024, 4, 1, 0, 0, 0, 0, loc)
	assert.InDelta(t, 23, cal.BusinessHoursBetween(start, end), 1e-9)
}

func TestAddBusinessHours(t *testing.T) {
	cal := defaultCalendar(t)

	tests := []struct {
		name  string
		start time.Time
		hours float64
		want  time.Time
	}{
		{"zero hours is unchanged", local(t, 6, 14, 0), 0, local(t, 6, 14, 0)},
		{"negative hours is unchanged", local(t, 1, 10, 0), -3, local(t, 1, 10, 0)},
		{"within the day", local(t, 1, 10, 0), 2, local(t, 1, 12, 0)},
		{"full day rolls to next start", local(t, 1, 9, 0), 9, local(t, 2, 9, 0)},
		{"spills into next day", local(t, 1, 16, 0), 3, local(t, 2, 10, 0)},
		{"over the weekend", local(t, 5, 16, 0), 4, local(t, 8, 11, 0)},
		{"created on saturday", local(t, 6, 11, 0), 2, local(t, 8, 11, 0)},
		{"created after hours", local(t, 1, 19, 0), 8, local(t, 2, 17, 0)},
		{"fractional hours", local(t, 1, 9, 0), 1.5, local(t, 1, 10, 30)},
		{"three days", local(t, 1, 9, 0), 24, local(t, 3, 15, 0)},
		{"seventy two hours", local(t, 1, 9, 0), 72, local(t, 11, 9, 0)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assertInstant(t, tc.want, cal.AddBusinessHours(tc.start, tc.hours))
		})
	}
}

func TestAddBusinessHours_RoundTripsWithBetween(t *testing.T) {
	cal := defaultCalendar(t)
	start := local(t, 2, 13, 20)
	for _, h := range []float64{0.5, 2, 8, 17, 30} {
		deadline := cal.AddBusinessHours(start, h)
		assert.InDelta(t, h, cal.BusinessHoursBetween(start, deadline), 1e-9, "hours=%v", h)
	}
}

func TestAddBusinessHours_DoesNotMutateInput(t *testing.T) {
	cal := defaultCalendar(t)
	start := local(t, 6, 14, 0)
	before := start
	_ = cal.AddBusinessHours(start, 5)
	assert.Equal(t, before, start)
}
