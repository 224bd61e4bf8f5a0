package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/VivreleHpi/crohn-companion-app/internal/backend"
	"github.com/VivreleHpi/crohn-companion-app/internal/models"
)

type listFlags struct {
	since  string
	limit  int
	format string
}

func (lf *listFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&lf.since, "since", "", "only entries at or after this time")
	cmd.Flags().IntVar(&lf.limit, "limit", 20, "maximum entries to show (0 for all)")
	cmd.Flags().StringVar(&lf.format, "format", "table", "output format: table or json")
}

func (lf *listFlags) query(a *App) (backend.Query, error) {
	q := backend.Query{
		Order: &backend.Order{Column: "time"},
		Limit: lf.limit,
	}
	if lf.since != "" {
		t, err := a.parseWhen(lf.since)
		if err != nil {
			return q, err
		}
		q.Filters = append(q.Filters, backend.Gte("time", t.UTC()))
	}
	return q, nil
}

func writeJSON(w io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	_, err = fmt.Fprintf(w, "%s\n", b)
	return err
}

func newSymptomCmd(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "symptom",
		Short: "Log and review symptoms",
	}

	var (
		severity int
		at       string
		notes    string
	)
	add := &cobra.Command{
		Use:   "add <name>",
		Short: "Log a symptom",
		Long: `Log a symptom with a severity from 1 (mild) to 4 (very severe).

Examples:
  crohnlog symptom add "Abdominal pain" --severity 3
  crohnlog symptom add Fatigue --severity 1 --at "2026-10-17 21:30" --notes "after dinner"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := rt.app
			if err := models.ValidateSeverity(severity); err != nil {
				return err
			}
			when, err := a.parseWhen(at)
			if err != nil {
				return err
			}
			name := strings.TrimSpace(args[0])
			if name == "" {
				return fmt.Errorf("symptom name is required")
			}
			e, err := a.repos.Symptoms.Create(cmd.Context(), models.SymptomEntry{
				Name:     name,
				Severity: severity,
				Time:     when,
				Notes:    notes,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged %s (%s) %s\n", e.Name, models.SeverityLabel(e.Severity), e.ID)
			return nil
		},
	}
	add.Flags().IntVar(&severity, "severity", models.SeverityMild, "severity 1-4")
	add.Flags().StringVar(&at, "at", "", "when it happened (default now)")
	add.Flags().StringVar(&notes, "notes", "", "free-text notes")

	var lf listFlags
	list := &cobra.Command{
		Use:   "list",
		Short: "List recent symptoms",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := rt.app
			q, err := lf.query(a)
			if err != nil {
				return err
			}
			entries, err := a.repos.Symptoms.List(cmd.Context(), q)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if lf.format == "json" {
				return writeJSON(out, entries)
			}
			if len(entries) == 0 {
				fmt.Fprintln(out, "No symptoms logged")
				return nil
			}
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "TIME\tSYMPTOM\tSEVERITY\tNOTES\tID\n")
			for _, e := range entries {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", a.formatWhen(e.Time), e.Name, models.SeverityLabel(e.Severity), e.Notes, e.ID)
			}
			return w.Flush()
		},
	}
	lf.bind(list)

	suggest := &cobra.Command{
		Use:   "suggestions",
		Short: "Show common symptom names",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, s := range models.SuggestedSymptoms() {
				fmt.Fprintln(cmd.OutOrStdout(), s)
			}
			return nil
		},
	}

	cmd.AddCommand(add, list, newDeleteCmd(rt, "symptom", func(a *App) deleter { return a.repos.Symptoms }), suggest)
	return cmd
}

func newStoolCmd(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stool",
		Short: "Log and review bowel movements",
	}

	var (
		bristol int
		blood   bool
		mucus   bool
		at      string
		notes   string
	)
	add := &cobra.Command{
		Use:   "add",
		Short: "Log a bowel movement",
		Long: `Log a bowel movement using the Bristol stool scale (1-7).

Examples:
  crohnlog stool add --type 4
  crohnlog stool add --type 6 --blood --notes "urgent"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := rt.app
			if err := models.ValidateBristolType(bristol); err != nil {
				return err
			}
			when, err := a.parseWhen(at)
			if err != nil {
				return err
			}
			e, err := a.repos.Stools.Create(cmd.Context(), models.StoolEntry{
				BristolType: bristol,
				Time:        when,
				HasBlood:    blood,
				HasMucus:    mucus,
				Notes:       notes,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged type %d (%s) %s\n", e.BristolType, models.BristolDescription(e.BristolType), e.ID)
			return nil
		},
	}
	add.Flags().IntVar(&bristol, "type", 4, "Bristol stool type 1-7")
	add.Flags().BoolVar(&blood, "blood", false, "blood present")
	add.Flags().BoolVar(&mucus, "mucus", false, "mucus present")
	add.Flags().StringVar(&at, "at", "", "when it happened (default now)")
	add.Flags().StringVar(&notes, "notes", "", "free-text notes")

	var lf listFlags
	list := &cobra.Command{
		Use:   "list",
		Short: "List recent bowel movements",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := rt.app
			q, err := lf.query(a)
			if err != nil {
				return err
			}
			entries, err := a.repos.Stools.List(cmd.Context(), q)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if lf.format == "json" {
				return writeJSON(out, entries)
			}
			if len(entries) == 0 {
				fmt.Fprintln(out, "No bowel movements logged")
				return nil
			}
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "TIME\tTYPE\tBLOOD\tMUCUS\tNOTES\tID\n")
			for _, e := range entries {
				fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\t%s\n", a.formatWhen(e.Time), e.BristolType, yesNo(e.HasBlood), yesNo(e.HasMucus), e.Notes, e.ID)
			}
			return w.Flush()
		},
	}
	lf.bind(list)

	cmd.AddCommand(add, list, newDeleteCmd(rt, "stool", func(a *App) deleter { return a.repos.Stools }))
	return cmd
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
