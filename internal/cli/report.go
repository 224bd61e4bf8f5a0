package cli

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/VivreleHpi/crohn-companion-app/internal/services"
	"github.com/VivreleHpi/crohn-companion-app/internal/timex"
)

func newReportCmd(rt *runtime) *cobra.Command {
	var (
		week   string
		upload bool
		format string
	)
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Summarize a week",
		Long: `Summarize the Monday-to-Sunday week containing --week (default today):
daily symptom severity, stool consistency, doses taken and an overall
remission or crisis status. With --upload the report is stored and a
time-limited link is printed for sharing with your clinician.

Examples:
  crohnlog report
  crohnlog report --week 2026-10-05 --format json
  crohnlog report --upload`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := rt.app
			ctx := cmd.Context()
			id, err := a.identity(ctx)
			if err != nil {
				return err
			}

			day := time.Now()
			if week != "" {
				day, err = time.ParseInLocation(timex.DateLayout, week, a.loc)
				if err != nil {
					return fmt.Errorf("--week must be YYYY-MM-DD: %w", err)
				}
			}
			r, err := a.reports.Weekly(ctx, day)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if format == "json" {
				if err := writeJSON(out, r); err != nil {
					return err
				}
			} else {
				printReport(out, r)
			}

			if upload {
				exp, err := a.exports.Upload(ctx, id.ID, r)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "\nShare link (valid until %s):\n%s\n", exp.ExpiresAt.In(a.loc).Format("2006-01-02 15:04"), exp.URL)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&week, "week", "", "any date in the week, YYYY-MM-DD")
	cmd.Flags().BoolVar(&upload, "upload", false, "store the report and print a share link")
	cmd.Flags().StringVar(&format, "format", "table", "output format: table or json")
	return cmd
}

func printReport(out io.Writer, r *services.WeeklyReport) {
	fmt.Fprintf(out, "Week %s to %s: %s\n\n", r.WeekStart, r.WeekEnd, r.Status)
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "DAY\tSYMPTOMS\tSEVERITY\tSTOOLS\tBRISTOL\tDOSES\n")
	for _, d := range r.Days {
		fmt.Fprintf(w, "%s %s\t%d\t%s\t%d\t%s\t%d/%d\n",
			d.Weekday, d.Date[5:], d.SymptomCount, dash(d.AverageSeverity),
			d.StoolCount, dash(d.AverageBristol), d.DosesTaken, d.DosesScheduled)
	}
	_ = w.Flush()

	fmt.Fprintf(out, "\nAverage severity: %.1f\n", r.AverageSeverity)
	fmt.Fprintf(out, "Average Bristol type: %.1f\n", r.AverageBristol)
	fmt.Fprintf(out, "Blood episodes: %d\n", r.BloodEpisodes)
	fmt.Fprintf(out, "Adherence: %.0f%%\n", r.Adherence()*100)
	if len(r.TopSymptoms) > 0 {
		fmt.Fprintf(out, "Most frequent: %v\n", r.TopSymptoms)
	}
}

func dash(n int) string {
	if n == 0 {
		return "-"
	}
	return fmt.Sprint(n)
}
