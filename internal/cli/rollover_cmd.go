package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"lab-hours/internal/models"
	"lab-hours/internal/rollover"
	"lab-hours/pkg/weekwindow"
)

// outputOptions - формат вывода отчетов
type outputOptions struct {
	asJSON bool
}

func (o *outputOptions) bind(fs *pflag.FlagSet) {
	fs.BoolVar(&o.asJSON, "json", false, "Print machine-readable JSON")
}

func newRolloverCmd(opts *globalOptions) *cobra.Command {
	var at string
	var previous bool
	out := &outputOptions{}

	cmd := &cobra.Command{
		Use:   "rollover",
		Short: "Archive the current week and reset weekly counters",
		Long: `Archive every active user's hours for the week containing --at
(default: now) and reset the current-week counters. Users already archived
for that week are skipped.

With --previous the week before the current one is archived the way
backfill does it: current-week counters are left untouched.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := opts.openApp(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			var report *rollover.Report
			switch {
			case previous && at != "":
				return fmt.Errorf("--previous and --at are mutually exclusive")
			case previous:
				// запуск по cron мог быть пропущен; счетчик уже считает текущую неделю
				report, err = app.Scheduler.CreateHistoryForWeek(cmd.Context(), app.Calculator.Previous(time.Now()).Start)
			case at == "":
				report, err = app.Scheduler.ManualReset(cmd.Context())
			default:
				ref, parseErr := app.Calculator.ParseDate(at)
				if parseErr != nil {
					return fmt.Errorf("invalid --at %q: %w", at, parseErr)
				}
				report, err = app.Scheduler.PerformRollover(cmd.Context(), ref)
			}
			if err != nil {
				return err
			}

			return out.printReport(cmd.OutOrStdout(), report, app.Calculator.Location())
		},
	}

	cmd.Flags().StringVar(&at, "at", "", "Reference date YYYY-MM-DD (default: now)")
	cmd.Flags().BoolVar(&previous, "previous", false, "Archive the week before the current one without resetting counters")
	out.bind(cmd.Flags())

	return cmd
}

func newBackfillCmd(opts *globalOptions) *cobra.Command {
	var weekStart string
	out := &outputOptions{}

	cmd := &cobra.Command{
		Use:   "backfill",
		Short: "Archive a past week without resetting counters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := opts.openApp(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			date, err := app.Calculator.ParseDate(weekStart)
			if err != nil {
				return fmt.Errorf("invalid --week-start %q: %w", weekStart, err)
			}

			report, err := app.Scheduler.CreateHistoryForWeek(cmd.Context(), date)
			if err != nil {
				return err
			}

			return out.printReport(cmd.OutOrStdout(), report, app.Calculator.Location())
		},
	}

	cmd.Flags().StringVar(&weekStart, "week-start", "", "Any date inside the week to archive, YYYY-MM-DD")
	_ = cmd.MarkFlagRequired("week-start")
	out.bind(cmd.Flags())

	return cmd
}

func newStatusCmd(opts *globalOptions) *cobra.Command {
	out := &outputOptions{}

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show rollover schedule and current week window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := opts.openApp(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			status := app.Scheduler.Status()
			window := app.Calculator.WindowFor(time.Now())

			if out.asJSON {
				return writeJSON(cmd.OutOrStdout(), struct {
					rollover.Status
					CurrentWeek weekwindow.Window `json:"current_week"`
				}{status, window})
			}

			loc := app.Calculator.Location()
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Schedule:     %s (%s)\n", status.Schedule, status.Description)
			fmt.Fprintf(w, "Timezone:     %s\n", status.Timezone)
			fmt.Fprintf(w, "Week starts:  %s\n", status.WeekStart)
			fmt.Fprintf(w, "Current week: %s\n", formatWindow(window, loc))
			fmt.Fprintf(w, "Next run:     %s\n", status.NextRun.In(loc).Format(time.RFC3339))
			return nil
		},
	}

	out.bind(cmd.Flags())

	return cmd
}

func (o *outputOptions) printReport(w io.Writer, report *rollover.Report, loc *time.Location) error {
	if o.asJSON {
		return writeJSON(w, report)
	}

	fmt.Fprintf(w, "Run %s (%s)\n", report.RunID, report.Kind)
	fmt.Fprintf(w, "Week:     %s\n", formatWindow(report.Window, loc))
	fmt.Fprintf(w, "Archived: %d (%s)\n", len(report.Archived), models.FormatHours(report.TotalHours()))
	for _, r := range report.Archived {
		fmt.Fprintf(w, "  %d %s: %s\n", r.UserID, r.UserName, models.FormatHours(r.HoursArchived))
	}
	fmt.Fprintf(w, "Skipped:  %d\n", report.Skipped)
	fmt.Fprintf(w, "Failed:   %d\n", len(report.Failures))
	for _, f := range report.Failures {
		fmt.Fprintf(w, "  %d %s: %s\n", f.UserID, f.UserName, f.Error)
	}

	if len(report.Failures) > 0 {
		return fmt.Errorf("rollover finished with %d failed user(s)", len(report.Failures))
	}
	return nil
}

func formatWindow(w weekwindow.Window, loc *time.Location) string {
	return fmt.Sprintf("%s .. %s", w.Start.In(loc).Format("2006-01-02"), w.End.In(loc).AddDate(0, 0, -1).Format("2006-01-02"))
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
