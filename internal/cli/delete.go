package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

type deleter interface {
	Delete(ctx context.Context, id string) error
}

// newDeleteCmd removes one record by id, prompting for it when omitted.
func newDeleteCmd(rt *runtime, what string, repo func(*App) deleter) *cobra.Command {
	return &cobra.Command{
		Use:   "delete [id]",
		Short: fmt.Sprintf("Delete a %s entry", what),
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := rt.app
			if _, err := a.identity(cmd.Context()); err != nil {
				return err
			}
			var id string
			if len(args) == 1 {
				id = args[0]
			} else {
				v, err := GetSimpleText(a.reader, "Enter record id to delete", cmd.ErrOrStderr())
				if err != nil {
					return err
				}
				id = v
			}
			if id == "" {
				return fmt.Errorf("record id is required")
			}
			if err := repo(a).Delete(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", id)
			return nil
		},
	}
}
