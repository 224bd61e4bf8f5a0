package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/VivreleHpi/crohn-companion-app/internal/services"
)

func newProfileCmd(rt *runtime) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "View and update your profile",
		Long: `View and update your profile. The profile is created from your sign-in
details the first time it is opened.

Examples:
  crohnlog profile
  crohnlog profile show --format json
  crohnlog profile update --phone "+34 600 000 000"
  crohnlog profile update --medical-info "Ileocolonic, diagnosed 2019"`,
		Args: cobra.NoArgs,
	}
	show := func(cmd *cobra.Command, args []string) error {
		p, err := rt.app.profiles.Load(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if format == "json" {
			return writeJSON(out, p)
		}
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintf(w, "Name\t%s\n", orNotSet(p.FullName))
		fmt.Fprintf(w, "Email\t%s\n", orNotSet(p.Email))
		fmt.Fprintf(w, "Phone\t%s\n", orNotSet(p.PhoneNumber))
		fmt.Fprintf(w, "Medical info\t%s\n", orNotSet(p.MedicalInfo))
		return w.Flush()
	}
	cmd.RunE = show
	cmd.Flags().StringVar(&format, "format", "table", "output format: table or json")

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show the profile",
		Args:  cobra.NoArgs,
		RunE:  show,
	}
	showCmd.Flags().StringVar(&format, "format", "table", "output format: table or json")

	var name, email, phone, info string
	update := &cobra.Command{
		Use:   "update",
		Short: "Update profile fields",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var u services.ProfileUpdate
			flags := cmd.Flags()
			if flags.Changed("name") {
				u.FullName = &name
			}
			if flags.Changed("email") {
				u.Email = &email
			}
			if flags.Changed("phone") {
				u.PhoneNumber = &phone
			}
			if flags.Changed("medical-info") {
				u.MedicalInfo = &info
			}
			if u == (services.ProfileUpdate{}) {
				return fmt.Errorf("nothing to update, pass at least one field flag")
			}
			if _, err := rt.app.profiles.Update(cmd.Context(), u); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Profile updated")
			return nil
		},
	}
	update.Flags().StringVar(&name, "name", "", "full name")
	update.Flags().StringVar(&email, "email", "", "email")
	update.Flags().StringVar(&phone, "phone", "", "phone number")
	update.Flags().StringVar(&info, "medical-info", "", "medical notes shared with your clinician")

	cmd.AddCommand(showCmd, update)
	return cmd
}

func orNotSet(s string) string {
	if s == "" {
		return "(not set)"
	}
	return s
}
