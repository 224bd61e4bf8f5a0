// Package cli implements the crohnlog command line: logging symptoms and
// stools, managing medications, the profile, weekly reports and a live
// watch over any collection.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/VivreleHpi/crohn-companion-app/internal/backend"
	"github.com/VivreleHpi/crohn-companion-app/internal/backend/memory"
	"github.com/VivreleHpi/crohn-companion-app/internal/backend/postgres"
	"github.com/VivreleHpi/crohn-companion-app/internal/config"
	"github.com/VivreleHpi/crohn-companion-app/internal/filex"
	"github.com/VivreleHpi/crohn-companion-app/internal/logging"
	"github.com/VivreleHpi/crohn-companion-app/internal/models"
	"github.com/VivreleHpi/crohn-companion-app/internal/repositories"
	"github.com/VivreleHpi/crohn-companion-app/internal/services"
	"github.com/VivreleHpi/crohn-companion-app/internal/session"
)

// App wires the configured backend, session and services together.
type App struct {
	config  *config.Config
	log     logging.Logger
	loc     *time.Location
	backend backend.Backend
	session session.Provider

	repos    *repositories.Manager
	meds     *services.MedicationService
	profiles *services.ProfileService
	reports  *services.ReportService
	exports  *services.ExportService

	migrate func(ctx context.Context) error
	closers []func() error
	reader  *bufio.Reader
}

func tableNames() []string {
	colls := models.Collections()
	names := make([]string, 0, len(colls))
	for _, c := range colls {
		names = append(names, c.Name)
	}
	return names
}

// NewApp opens the configured backend and builds the session from the
// stored access token.
func NewApp(cfg *config.Config, log logging.Logger) (*App, error) {
	token, err := readToken(cfg.TokenFile)
	if err != nil {
		return nil, err
	}
	sp := session.NewJWT([]byte(cfg.JWTSecret), token, log)

	switch cfg.Backend {
	case config.BackendMemory:
		be := memory.New(tableNames(), memory.WithUpdatedAt(models.Medications.Name, models.Profiles.Name))
		return newApp(cfg, log, be, sp)

	case config.BackendPostgres:
		store, err := postgres.Open(cfg.DatabaseDSN, tableNames(), log)
		if err != nil {
			return nil, fmt.Errorf("db init error: %w", err)
		}
		app, err := newApp(cfg, log, store, sp)
		if err != nil {
			_ = store.Close()
			return nil, err
		}
		app.migrate = store.Migrate
		app.closers = append(app.closers, store.Close)
		return app, nil
	}
	return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
}

func newApp(cfg *config.Config, log logging.Logger, be backend.Backend, sp session.Provider) (*App, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	m := repositories.NewManager(be, sp, log)
	return &App{
		config:   cfg,
		log:      log,
		loc:      loc,
		backend:  be,
		session:  sp,
		repos:    m,
		meds:     services.NewMedicationService(m, loc, log),
		profiles: services.NewProfileService(m, sp, log),
		reports:  services.NewReportService(m, loc),
		exports:  services.NewExportService(cfg, log),
		reader:   bufio.NewReader(os.Stdin),
	}, nil
}

func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}

func readToken(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read token file: %w", err)
	}
	return strings.TrimSpace(string(b)), nil
}

func writeToken(path, token string) error {
	return filex.WritePrivate(path, []byte(token+"\n"))
}

// identity returns the signed-in user or a hint to run login.
func (a *App) identity(ctx context.Context) (session.Identity, error) {
	id, ok := a.session.CurrentIdentity(ctx)
	if !ok {
		return session.Identity{}, errors.New("not signed in, run `crohnlog login` first")
	}
	return id, nil
}

func (a *App) parseWhen(s string) (time.Time, error) {
	if s == "" {
		return time.Now(), nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04", "2006-01-02T15:04"} {
		if t, err := time.ParseInLocation(layout, s, a.loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse time %q, use YYYY-MM-DD HH:MM", s)
}

func (a *App) formatWhen(t time.Time) string {
	return t.In(a.loc).Format("2006-01-02 15:04")
}
