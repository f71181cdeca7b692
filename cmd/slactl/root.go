package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/spec-kit/sav-service/internal/config"
	"github.com/spec-kit/sav-service/internal/sla"
)

// options are the persistent flags shared by every subcommand. Zero values
// keep what the environment configures.
type options struct {
	startHour  int
	endHour    int
	workDays   string
	timezone   string
	holidays   string
	jsonOutput bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:   "slactl",
		Short: "Compute SLA deadlines in business hours",
		Long: `slactl evaluates ticket SLAs against the business calendar configured
through the service environment (BUSINESS_* and SLA_HOURS_* variables).
Flags override individual settings.

Examples:
  slactl deadline --created 2024-07-05T16:00:00+02:00 --priority high
  slactl status --created 2024-07-01T09:00:00+02:00 --priority normal --now 2024-07-03T12:36:00+02:00
  slactl calendar --at 2024-07-06T10:00:00+02:00`,
		SilenceUsage: true,
	}
	root.PersistentFlags().IntVar(&opts.startHour, "start-hour", -1, "business day start hour (default from BUSINESS_START_HOUR)")
	root.PersistentFlags().IntVar(&opts.endHour, "end-hour", -1, "business day end hour (default from BUSINESS_END_HOUR)")
	root.PersistentFlags().StringVar(&opts.workDays, "workdays", "", "comma separated work days, 0=Sunday or names")
	root.PersistentFlags().StringVar(&opts.timezone, "timezone", "", "IANA time zone")
	root.PersistentFlags().StringVar(&opts.holidays, "holidays-file", "", "YAML holiday calendar")
	root.PersistentFlags().BoolVar(&opts.jsonOutput, "json", false, "print JSON instead of text")

	root.AddCommand(newDeadlineCmd(opts), newStatusCmd(opts), newCalendarCmd(opts))
	return root
}

// load builds the clock and the default threshold table.
func (o *options) load() (*sla.Clock, sla.Thresholds, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	s := cfg.SLA
	if o.startHour >= 0 {
		s.StartHour = o.startHour
	}
	if o.endHour >= 0 {
		s.EndHour = o.endHour
	}
	if o.workDays != "" {
		days, err := config.ParseWorkDays(o.workDays)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid --workdays: %w", err)
		}
		s.WorkDays = days
	}
	if o.timezone != "" {
		s.Timezone = o.timezone
	}
	if o.holidays != "" {
		file, err := config.LoadHolidayFile(o.holidays)
		if err != nil {
			return nil, nil, err
		}
		s.Holidays = file.Dates
	}
	cal, err := sla.New(s.CalendarConfig())
	if err != nil {
		return nil, nil, err
	}
	return sla.NewClock(cal), s.Thresholds, nil
}

func newDeadlineCmd(opts *options) *cobra.Command {
	var created, priority string
	cmd := &cobra.Command{
		Use:   "deadline",
		Short: "Print the SLA deadline of a ticket",
		RunE: func(cmd *cobra.Command, args []string) error {
			clock, thresholds, err := opts.load()
			if err != nil {
				return err
			}
			createdAt, err := parseInstant(created)
			if err != nil {
				return err
			}
			deadline := clock.Deadline(createdAt, priority, thresholds).In(clock.Calendar().Location())
			if opts.jsonOutput {
				return writeJSON(cmd.OutOrStdout(), map[string]any{
					"priority":        priority,
					"threshold_hours": thresholds.Resolve(priority),
					"deadline":        deadline,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), deadline.Format(time.RFC3339))
			return nil
		},
	}
	cmd.Flags().StringVar(&created, "created", "", "ticket creation time, RFC3339 (required)")
	cmd.Flags().StringVar(&priority, "priority", sla.PriorityNormal, "ticket priority")
	_ = cmd.MarkFlagRequired("created")
	return cmd
}

func newStatusCmd(opts *options) *cobra.Command {
	var created, priority, now string
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Print countdown and classification of a ticket",
		RunE: func(cmd *cobra.Command, args []string) error {
			clock, thresholds, err := opts.load()
			if err != nil {
				return err
			}
			createdAt, err := parseInstant(created)
			if err != nil {
				return err
			}
			at := time.Now()
			if now != "" {
				if at, err = parseInstant(now); err != nil {
					return err
				}
			}
			st := clock.Evaluate(at, createdAt, priority, thresholds)
			loc := clock.Calendar().Location()
			if opts.jsonOutput {
				return writeJSON(cmd.OutOrStdout(), map[string]any{
					"deadline":         st.Deadline.In(loc),
					"overdue":          st.Countdown.Overdue,
					"magnitude":        st.Countdown.Magnitude,
					"label":            st.Countdown.String(),
					"classification":   st.Classification,
					"elapsed_hours":    st.ElapsedHours,
					"progress_percent": st.ProgressPercent,
					"threshold_hours":  st.ThresholdHours,
				})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "deadline:       %s\n", st.Deadline.In(loc).Format(time.RFC3339))
			fmt.Fprintf(out, "countdown:      %s\n", st.Countdown.String())
			fmt.Fprintf(out, "classification: %s\n", st.Classification)
			fmt.Fprintf(out, "elapsed:        %.2fh of %dh (%.1f%%)\n", st.ElapsedHours, st.ThresholdHours, st.ProgressPercent)
			return nil
		},
	}
	cmd.Flags().StringVar(&created, "created", "", "ticket creation time, RFC3339 (required)")
	cmd.Flags().StringVar(&priority, "priority", sla.PriorityNormal, "ticket priority")
	cmd.Flags().StringVar(&now, "now", "", "evaluation time, RFC3339 (default: current time)")
	_ = cmd.MarkFlagRequired("created")
	return cmd
}

func newCalendarCmd(opts *options) *cobra.Command {
	var at string
	cmd := &cobra.Command{
		Use:   "calendar",
		Short: "Show the business calendar and the business instants around a time",
		RunE: func(cmd *cobra.Command, args []string) error {
			clock, thresholds, err := opts.load()
			if err != nil {
				return err
			}
			instant := time.Now()
			if at != "" {
				if instant, err = parseInstant(at); err != nil {
					return err
				}
			}
			cal := clock.Calendar()
			cfg := cal.Config()
			loc := cal.Location()
			days := make([]string, 0, len(cfg.WorkDays))
			for _, d := range cfg.WorkDays {
				days = append(days, d.String()[:3])
			}
			if opts.jsonOutput {
				return writeJSON(cmd.OutOrStdout(), map[string]any{
					"timezone":      loc.String(),
					"start_hour":    cfg.StartHour,
					"end_hour":      cfg.EndHour,
					"work_days":     days,
					"holidays":      cfg.Holidays,
					"thresholds":    thresholds,
					"at":            instant.In(loc),
					"business_time": cal.IsBusinessTime(instant),
					"next":          cal.NextBusinessInstant(instant),
					"previous":      cal.PreviousBusinessInstant(instant),
				})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "timezone:   %s\n", loc)
			fmt.Fprintf(out, "hours:      %02d:00-%02d:00 (%dh/day)\n", cfg.StartHour, cfg.EndHour, cal.HoursPerDay())
			fmt.Fprintf(out, "work days:  %s\n", strings.Join(days, ","))
			fmt.Fprintf(out, "holidays:   %d\n", len(cfg.Holidays))
			for _, p := range sla.Priorities() {
				fmt.Fprintf(out, "sla %-7s %dh\n", p+":", thresholds.Resolve(p))
			}
			fmt.Fprintf(out, "at:         %s (business time: %t)\n", instant.In(loc).Format(time.RFC3339), cal.IsBusinessTime(instant))
			fmt.Fprintf(out, "next:       %s\n", cal.NextBusinessInstant(instant).Format(time.RFC3339))
			fmt.Fprintf(out, "previous:   %s\n", cal.PreviousBusinessInstant(instant).Format(time.RFC3339Nano))
			return nil
		},
	}
	cmd.Flags().StringVar(&at, "at", "", "reference time, RFC3339 (default: current time)")
	return cmd
}

func parseInstant(raw string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q: expected RFC3339", raw)
	}
	return t, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
