package services

import (
	"time"

	"github.com/VivreleHpi/crohn-companion-app/internal/backend/memory"
	"github.com/VivreleHpi/crohn-companion-app/internal/logging"
	"github.com/VivreleHpi/crohn-companion-app/internal/models"
	"github.com/VivreleHpi/crohn-companion-app/internal/repositories"
	"github.com/VivreleHpi/crohn-companion-app/internal/session"
)

var (
	ana     = session.Identity{ID: "user-1", Email: "ana@example.com", FullName: "Ana Ruiz"}
	fixedAt = time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
)

func newManager(sp session.Provider) (*repositories.Manager, *memory.Store) {
	names := make([]string, 0, 5)
	for _, c := range models.Collections() {
		names = append(names, c.Name)
	}
	store := memory.New(names,
		memory.WithUpdatedAt("medications", "profiles"),
		memory.WithClock(func() time.Time { return fixedAt }),
	)
	return repositories.NewManager(store, sp, logging.Discard()), store
}
