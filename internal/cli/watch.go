package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/VivreleHpi/crohn-companion-app/internal/backend"
	"github.com/VivreleHpi/crohn-companion-app/internal/livequery"
	"github.com/VivreleHpi/crohn-companion-app/internal/models"
	"github.com/VivreleHpi/crohn-companion-app/internal/notify"
)

func newWatchCmd(rt *runtime) *cobra.Command {
	var (
		filter string
		limit  int
		once   bool
	)
	names := make([]string, 0, 5)
	for _, c := range models.Collections() {
		names = append(names, c.Name)
	}

	cmd := &cobra.Command{
		Use:   "watch <collection>",
		Short: "Follow a collection live",
		Long: fmt.Sprintf(`Load your records from a collection and print the list again whenever
it changes on the backend, until interrupted.

Collections: %s

Examples:
  crohnlog watch symptoms
  crohnlog watch medication_schedule --filter scheduled_date=eq.2026-10-18
  crohnlog watch stools --once`, strings.Join(names, ", ")),
		Args:      cobra.ExactArgs(1),
		ValidArgs: names,
		RunE: func(cmd *cobra.Command, args []string) error {
			coll, ok := models.CollectionByName(args[0])
			if !ok {
				return fmt.Errorf("%w: %s", backend.ErrUnknownCollection, args[0])
			}
			var f *backend.Filter
			if filter != "" {
				parsed, err := backend.ParseFilter(filter)
				if err != nil {
					return err
				}
				f = &parsed
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a := rt.app
			deps := livequery.Deps{
				Backend:  a.backend,
				Session:  a.session,
				Notifier: notify.Multi{notify.NewWriter(cmd.ErrOrStderr()), notify.NewLog(a.log)},
				Log:      a.log,
			}
			out := cmd.OutOrStdout()

			switch coll.Name {
			case models.Symptoms.Name:
				return follow[models.SymptomEntry](ctx, deps, coll, f, limit, once, out)
			case models.Stools.Name:
				return follow[models.StoolEntry](ctx, deps, coll, f, limit, once, out)
			case models.Medications.Name:
				return follow[models.Medication](ctx, deps, coll, f, limit, once, out)
			case models.MedicationSchedule.Name:
				return follow[models.MedicationScheduleEntry](ctx, deps, coll, f, limit, once, out)
			default:
				return follow[models.Profile](ctx, deps, coll, f, limit, once, out)
			}
		},
	}
	cmd.Flags().StringVar(&filter, "filter", "", "extra filter as column=op.value (op: eq, gte, lte)")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum records to load (0 for all)")
	cmd.Flags().BoolVar(&once, "once", false, "print the initial list and exit")
	return cmd
}

// follow runs a live query until ctx ends, printing every state change.
func follow[T models.Record](ctx context.Context, deps livequery.Deps, coll models.Collection, f *backend.Filter, limit int, once bool, out io.Writer) error {
	var printed []byte
	show := func(s livequery.State[T]) {
		if s.IsLoading {
			return
		}
		var b strings.Builder
		fmt.Fprintf(&b, "[%s] %s: %d record(s)\n", s.Status, coll.Name, len(s.Records))
		for _, r := range s.Records {
			line, err := json.Marshal(r)
			if err != nil {
				continue
			}
			fmt.Fprintf(&b, "  %s\n", line)
		}
		if b.String() == string(printed) {
			return
		}
		printed = []byte(b.String())
		_, _ = io.WriteString(out, b.String())
	}

	opts := livequery.Options[T]{
		Filter: f,
		Order:  &backend.Order{Column: "created_at"},
		Limit:  limit,
	}
	if !once {
		opts.OnChange = show
	}

	q := livequery.Open[T](ctx, deps, coll, opts)
	defer q.Close()

	select {
	case <-q.Ready():
	case <-ctx.Done():
		return nil
	}

	st := q.State()
	if st.Status == livequery.StatusIdle {
		return fmt.Errorf("not signed in, run `crohnlog login` first")
	}
	if once || st.Err != nil {
		show(st)
		return st.Err
	}
	<-ctx.Done()
	return nil
}
