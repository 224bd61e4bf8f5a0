package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/VivreleHpi/crohn-companion-app/internal/models"
	"github.com/VivreleHpi/crohn-companion-app/internal/services"
)

func newMedCmd(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "med",
		Aliases: []string{"medication"},
		Short:   "Manage medications and today's doses",
	}

	var (
		dosage    string
		frequency int
		times     []string
	)
	add := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a medication and schedule today's doses",
		Long: `Add a medication taken up to 4 times per day. One dose per time is
scheduled for today; without --times the default times for the frequency
are used.

Examples:
  crohnlog med add Mesalamine --dosage 500mg --frequency 2 --times 08:00,20:00
  crohnlog med add Budesonide --dosage 9mg`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := rt.app
			med, doses, err := a.meds.Add(cmd.Context(), services.NewMedication{
				Name:      args[0],
				Dosage:    dosage,
				Frequency: frequency,
				Times:     times,
			})
			out := cmd.OutOrStdout()
			if med.ID != "" {
				fmt.Fprintf(out, "Added %s %s, %s at %s\n", med.Name, med.Dosage, med.Frequency, strings.Join(med.Times, ", "))
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Scheduled %d dose(s) for today\n", len(doses))
			return nil
		},
	}
	add.Flags().StringVar(&dosage, "dosage", "", "dose amount, e.g. 500mg")
	add.Flags().IntVar(&frequency, "frequency", 1, "doses per day (1-4)")
	add.Flags().StringSliceVar(&times, "times", nil, "dose times as HH:MM (comma-separated)")

	var format string
	list := &cobra.Command{
		Use:   "list",
		Short: "List medications",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			meds, err := rt.app.meds.List(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if format == "json" {
				return writeJSON(out, meds)
			}
			if len(meds) == 0 {
				fmt.Fprintln(out, "No medications")
				return nil
			}
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "NAME\tDOSAGE\tFREQUENCY\tTIMES\tID\n")
			for _, m := range meds {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", m.Name, m.Dosage, m.Frequency, strings.Join(m.Times, ","), m.ID)
			}
			return w.Flush()
		},
	}
	list.Flags().StringVar(&format, "format", "table", "output format: table or json")

	today := &cobra.Command{
		Use:   "today",
		Short: "Show today's doses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := rt.app
			entries, err := a.meds.Today(cmd.Context())
			if err != nil {
				return err
			}
			meds, err := a.meds.List(cmd.Context())
			if err != nil {
				return err
			}
			names := make(map[string]string, len(meds))
			for _, m := range meds {
				names[m.ID] = m.Name + " " + m.Dosage
			}

			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "No doses scheduled today")
				return nil
			}
			printDoses(out, "Upcoming", services.UpcomingDoses(entries), names)
			printDoses(out, "Taken", services.TakenDoses(entries), names)
			return nil
		},
	}

	take := &cobra.Command{
		Use:   "take <entry-id>",
		Short: "Mark a scheduled dose as taken",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := rt.app
			e, err := a.meds.MarkTakenByID(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Dose at %s marked as taken\n", e.Time)
			return nil
		},
	}

	cmd.AddCommand(add, list, today, take, newDeleteCmd(rt, "medication", func(a *App) deleter { return a.meds }))
	return cmd
}

func printDoses(out io.Writer, title string, doses []models.MedicationScheduleEntry, names map[string]string) {
	if len(doses) == 0 {
		return
	}
	fmt.Fprintf(out, "%s:\n", title)
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, d := range doses {
		name := names[d.MedicationID]
		if name == "" {
			name = "(removed medication)"
		}
		fmt.Fprintf(w, "  %s\t%s\t%s\n", d.Time, name, d.ID)
	}
	_ = w.Flush()
}
