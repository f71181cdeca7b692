package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/sav-service/internal/sla"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sav-service", cfg.App.Name)
	assert.Equal(t, "0.0.0.0:8080", cfg.App.Addr())
	assert.Equal(t, 30*time.Second, cfg.App.RequestTimeout())
	assert.Equal(t, 9, cfg.SLA.StartHour)
	assert.Equal(t, 18, cfg.SLA.EndHour)
	assert.Equal(t, "Europe/Paris", cfg.SLA.Timezone)
	assert.Equal(t, []time.Weekday{1, 2, 3, 4, 5}, cfg.SLA.WorkDays)
	assert.Equal(t, sla.DefaultThresholds(), cfg.SLA.Thresholds)
	assert.Equal(t, "*/5 * * * *", cfg.SLA.SweepSchedule)
	assert.Equal(t, 5*time.Minute, cfg.SLA.RuleCacheTTL())

	_, err = sla.New(cfg.SLA.CalendarConfig())
	assert.NoError(t, err)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("BUSINESS_START_HOUR", "8")
	t.Setenv("BUSINESS_END_HOUR", "16")
	t.Setenv("BUSINESS_WORK_DAYS", "sun,mon,tue,wed,thu")
	t.Setenv("BUSINESS_TIMEZONE", "Asia/Jerusalem")
	t.Setenv("SLA_HOURS_URGENT", "1")
	t.Setenv("SLA_SWEEP_SCHEDULE", "")

	cfg, err := Load()
	require.NoError(t, err)

	calCfg := cfg.SLA.CalendarConfig()
	assert.Equal(t, 8, calCfg.StartHour)
	assert.Equal(t, 16, calCfg.EndHour)
	assert.Equal(t, []time.Weekday{0, 1, 2, 3, 4}, calCfg.WorkDays)
	assert.Equal(t, "Asia/Jerusalem", calCfg.Timezone)
	assert.Equal(t, 1, cfg.SLA.Thresholds[sla.PriorityUrgent])
	assert.Equal(t, 8, cfg.SLA.Thresholds[sla.PriorityHigh])
	assert.Empty(t, cfg.SLA.SweepSchedule, "explicitly empty schedule disables the sweeper")
}

func TestLoad_InvalidWorkDays(t *testing.T) {
	t.Setenv("BUSINESS_WORK_DAYS", "1,9")
	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_HolidaysFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "holidays.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: fr-public\ndates:\n  - \"2024-07-14\"\n  - \"2024-08-15\"\n"), 0o600))
	t.Setenv("BUSINESS_HOLIDAYS_FILE", path)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-07-14", "2024-08-15"}, cfg.SLA.Holidays)
}

func TestLoadHolidayFile_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadHolidayFile(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	noName := filepath.Join(dir, "noname.yaml")
	require.NoError(t, os.WriteFile(noName, []byte("dates: [\"2024-01-01\"]\n"), 0o600))
	_, err = LoadHolidayFile(noName)
	assert.Error(t, err)

	badDate := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(badDate, []byte("name: x\ndates: [\"01/01/2024\"]\n"), 0o600))
	_, err = LoadHolidayFile(badDate)
	assert.Error(t, err)
}

func TestParseWorkDays(t *testing.T) {
	days, err := ParseWorkDays(" 1, 2 ,friday,Sat ")
	require.NoError(t, err)
	assert.Equal(t, []time.Weekday{time.Monday, time.Tuesday, time.Friday, time.Saturday}, days)

	_, err = ParseWorkDays("funday")
	assert.Error(t, err)
	_, err = ParseWorkDays("7")
	assert.Error(t, err)
}
