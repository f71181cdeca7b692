package sla

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultClock(t *testing.T) *Clock {
	t.Helper()
	return NewClock(defaultCalendar(t))
}

func TestThresholds_HoursFor(t *testing.T) {
	th := DefaultThresholds()

	hours, err := th.HoursFor(PriorityHigh)
	require.NoError(t, err)
	assert.Equal(t, 8, hours)

	_, err = th.HoursFor("unmapped-priority")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownPriority))
}

func TestThresholds_Resolve(t *testing.T) {
	assert.Equal(t, 2, DefaultThresholds().Resolve(PriorityUrgent))
	assert.Equal(t, 24, DefaultThresholds().Resolve("unmapped-priority"))
	assert.Equal(t, 24, Thresholds{PriorityUrgent: 1}.Resolve("whatever"))
	assert.Equal(t, 10, Thresholds{PriorityNormal: 10}.Resolve(""))
}

func TestThresholds_Merge(t *testing.T) {
	merged := Thresholds{PriorityUrgent: 1}.Merge(DefaultThresholds())
	assert.Equal(t, 1, merged[PriorityUrgent])
	assert.Equal(t, 8, merged[PriorityHigh])
	assert.Len(t, merged, 4)
}

func TestClock_Deadline(t *testing.T) {
	clock := defaultClock(t)
	th := DefaultThresholds()

	assertInstant(t, local(t, 1, 11, 0), clock.Deadline(local(t, 1, 9, 0), PriorityUrgent, th))
	assertInstant(t, local(t, 2, 9, 0), clock.Deadline(local(t, 1, 9, 0), PriorityHigh, Thresholds{PriorityHigh: 9}))
	assertInstant(t, local(t, 3, 15, 0), clock.Deadline(local(t, 1, 9, 0), PriorityNormal, th))
}

func TestClock_Deadline_UnknownPriorityBehavesLikeNormal(t *testing.T) {
	clock := defaultClock(t)
	th := DefaultThresholds()
	created := local(t, 4, 14, 25)

	assertInstant(t,
		clock.Deadline(created, PriorityNormal, th),
		clock.Deadline(created, "unmapped-priority", th))
}

func TestClock_Countdown_Remaining(t *testing.T) {
	clock := defaultClock(t)
	th := DefaultThresholds()
	created := local(t, 1, 9, 0) // normal deadline: Wednesday 15:00

	cd := clock.Countdown(local(t, 1, 10, 0), created, PriorityNormal, th)
	assert.False(t, cd.Overdue)
	assert.Equal(t, Magnitude{Days: 2, Hours: 5}, cd.Magnitude)
	assertInstant(t, local(t, 3, 15, 0), cd.Deadline)
	assert.Equal(t, "2j 5h restantes", cd.String())

	cd = clock.Countdown(local(t, 3, 11, 30), created, PriorityNormal, th)
	assert.Equal(t, Magnitude{Hours: 3}, cd.Magnitude)
	assert.Equal(t, "3h restantes", cd.String())
}

func TestClock_Countdown_ReportsMinutesUnderAnHour(t *testing.T) {
	clock := defaultClock(t)
	created := local(t, 1, 9, 0) // urgent deadline: Monday 11:00

	cd := clock.Countdown(local(t, 1, 10, 15), created, PriorityUrgent, DefaultThresholds())
	assert.False(t, cd.Overdue)
	assert.Equal(t, Magnitude{Minutes: 45}, cd.Magnitude)
	assert.Equal(t, "45 min restantes", cd.String())
}

func TestClock_Countdown_Overdue(t *testing.T) {
	clock := defaultClock(t)
	created := local(t, 1, 9, 0) // urgent deadline: Monday 11:00

	cd := clock.Countdown(local(t, 1, 11, 0), created, PriorityUrgent, DefaultThresholds())
	assert.True(t, cd.Overdue, "deadline instant itself is overdue")
	assert.Equal(t, Magnitude{}, cd.Magnitude)

	// Monday 11:00 to Wednesday 13:00 = 7 + 9 + 4 = 20 business hours.
	cd = clock.Countdown(local(t, 3, 13, 0), created, PriorityUrgent, DefaultThresholds())
	assert.True(t, cd.Overdue)
	assert.Equal(t, Magnitude{Days: 2, Hours: 2}, cd.Magnitude)
	assert.Equal(t, "Retard : 2j 2h", cd.String())
}

func TestClock_Countdown_DayLengthFollowsCalendar(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StartHour, cfg.EndHour = 9, 17
	cal, err := New(cfg)
	require.NoError(t, err)
	clock := NewClock(cal)

	// Urgent deadline Monday 11:00; by Tuesday 11:00 it is 8 business hours late.
	cd := clock.Countdown(local(t, 2, 11, 0), local(t, 1, 9, 0), PriorityUrgent, DefaultThresholds())
	assert.True(t, cd.Overdue)
	assert.Equal(t, Magnitude{Days: 1}, cd.Magnitude)
	assert.Equal(t, "Retard : 1j", cd.String())
}

func TestClock_Countdown_OverdueWeekendDoesNotCount(t *testing.T) {
	clock := defaultClock(t)
	created := local(t, 5, 9, 0) // Friday, urgent deadline 11:00

	cd := clock.Countdown(local(t, 7, 23, 0), created, PriorityUrgent, DefaultThresholds())
	assert.True(t, cd.Overdue)
	assert.Equal(t, Magnitude{Hours: 7}, cd.Magnitude)
}

func TestClock_Classify_Boundaries(t *testing.T) {
	clock := defaultClock(t)
	th := DefaultThresholds()
	created := local(t, 1, 9, 0) // normal: 24h, deadline Wednesday 15:00

	tests := []struct {
		name string
		now  time.Time
		want Classification
	}{
		{"just created", created, ClassificationOK},
		{"17.9h elapsed", local(t, 2, 17, 54), ClassificationOK},
		{"18h elapsed is 75%", local(t, 3, 9, 0), ClassificationWarning},
		{"21.6h elapsed is 90%", local(t, 3, 12, 36), ClassificationCritical},
		{"at deadline", local(t, 3, 15, 0), ClassificationCritical},
		{"long overdue", local(t, 10, 15, 0), ClassificationCritical},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, clock.Classify(tc.now, created, PriorityNormal, th))
		})
	}
}

func TestClassify_Thresholds(t *testing.T) {
	assert.Equal(t, ClassificationCritical, classify(false, 90))
	assert.Equal(t, ClassificationWarning, classify(false, 89.99))
	assert.Equal(t, ClassificationWarning, classify(false, 75))
	assert.Equal(t, ClassificationOK, classify(false, 74.58))
	assert.Equal(t, ClassificationCritical, classify(true, 0))
}

func TestClock_Evaluate(t *testing.T) {
	clock := defaultClock(t)
	created := local(t, 1, 9, 0)

	st := clock.Evaluate(local(t, 1, 15, 0), created, PriorityHigh, DefaultThresholds())
	assert.Equal(t, 8, st.ThresholdHours)
	assert.InDelta(t, 6, st.ElapsedHours, 1e-9)
	assert.InDelta(t, 75, st.ProgressPercent, 1e-9)
	assert.Equal(t, ClassificationWarning, st.Classification)
	assertInstant(t, local(t, 1, 17, 0), st.Deadline)
	assert.Equal(t, Magnitude{Hours: 2}, st.Countdown.Magnitude)
}

func TestClock_Evaluate_ZeroThreshold(t *testing.T) {
	clock := defaultClock(t)
	created := local(t, 1, 10, 0)
	th := Thresholds{PriorityNormal: 0}

	st := clock.Evaluate(created, created, PriorityNormal, th)
	assert.Equal(t, ClassificationCritical, st.Classification)
	assert.True(t, st.Countdown.Overdue)
	assert.Zero(t, st.ProgressPercent)
}

func TestClassification_Severity(t *testing.T) {
	assert.Less(t, ClassificationOK.Severity(), ClassificationWarning.Severity())
	assert.Less(t, ClassificationWarning.Severity(), ClassificationCritical.Severity())
	assert.Equal(t, 0, ClassificationUnknown.Severity())
}
