package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/VivreleHpi/crohn-companion-app/internal/session"
)

type tokenSetter interface {
	SetToken(token string)
}

func newLoginCmd(rt *runtime) *cobra.Command {
	var (
		token   string
		devUser string
		email   string
		name    string
	)
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store an access token",
		Long: `Store the access token issued by the auth service. The token is checked
against the configured secret and saved to the token file.

With --dev-user a token is signed locally with the configured secret, which
is only useful against a development database.

Examples:
  crohnlog login
  crohnlog login --token eyJhbGciOi...
  crohnlog login --dev-user 7d9c... --email ana@example.com`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := rt.app
			ctx := cmd.Context()
			secret := []byte(a.config.JWTSecret)

			switch {
			case devUser != "":
				t, err := session.IssueToken(session.Identity{ID: devUser, Email: email, FullName: name}, secret, 24*time.Hour)
				if err != nil {
					return err
				}
				token = t
			case token == "":
				t, err := GetSecret(a.reader, "Access token", cmd.ErrOrStderr())
				if err != nil {
					return err
				}
				token = t
			}
			token = strings.TrimSpace(token)

			id, err := session.ParseToken(token, secret)
			if err != nil {
				return fmt.Errorf("token rejected: %w", err)
			}
			if err := writeToken(a.config.TokenFile, token); err != nil {
				return fmt.Errorf("save token: %w", err)
			}
			if ts, ok := a.session.(tokenSetter); ok {
				ts.SetToken(token)
			}
			a.log.Info(ctx, "signed in", "user_id", id.ID)

			if _, err := a.profiles.Load(ctx); err != nil {
				a.log.Warn(ctx, "profile not loaded", "error", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s\n", displayName(id))
			return nil
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "access token (prompted when empty)")
	cmd.Flags().StringVar(&devUser, "dev-user", "", "sign a development token for this user id")
	cmd.Flags().StringVar(&email, "email", "", "email for --dev-user")
	cmd.Flags().StringVar(&name, "name", "", "full name for --dev-user")
	return cmd
}

func newLogoutCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored access token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := rt.app
			if err := os.Remove(a.config.TokenFile); err != nil && !errors.Is(err, os.ErrNotExist) {
				return err
			}
			if ts, ok := a.session.(tokenSetter); ok {
				ts.SetToken("")
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
			return nil
		},
	}
}

func displayName(id session.Identity) string {
	switch {
	case id.FullName != "":
		return id.FullName
	case id.Email != "":
		return id.Email
	}
	return id.ID
}

func newMigrateCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := rt.app
			if a.migrate == nil {
				fmt.Fprintf(cmd.OutOrStdout(), "Nothing to migrate for the %s backend\n", a.config.Backend)
				return nil
			}
			if err := a.migrate(cmd.Context()); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Migrations applied")
			return nil
		},
	}
}
