package repositories

import (
	"github.com/VivreleHpi/crohn-companion-app/internal/backend"
	"github.com/VivreleHpi/crohn-companion-app/internal/logging"
	"github.com/VivreleHpi/crohn-companion-app/internal/models"
	"github.com/VivreleHpi/crohn-companion-app/internal/session"
)

type (
	SymptomRepository    = Repository[models.SymptomEntry]
	StoolRepository      = Repository[models.StoolEntry]
	MedicationRepository = Repository[models.Medication]
	ScheduleRepository   = Repository[models.MedicationScheduleEntry]
	ProfileRepository    = Repository[models.Profile]
)

func NewSymptomRepository(be backend.Backend, sp session.Provider, log logging.Logger) *SymptomRepository {
	return New[models.SymptomEntry](models.Symptoms, be, sp, log)
}

func NewStoolRepository(be backend.Backend, sp session.Provider, log logging.Logger) *StoolRepository {
	return New[models.StoolEntry](models.Stools, be, sp, log)
}

func NewMedicationRepository(be backend.Backend, sp session.Provider, log logging.Logger) *MedicationRepository {
	return New[models.Medication](models.Medications, be, sp, log)
}

func NewScheduleRepository(be backend.Backend, sp session.Provider, log logging.Logger) *ScheduleRepository {
	return New[models.MedicationScheduleEntry](models.MedicationSchedule, be, sp, log)
}

func NewProfileRepository(be backend.Backend, sp session.Provider, log logging.Logger) *ProfileRepository {
	return New[models.Profile](models.Profiles, be, sp, log)
}

// Manager bundles the per-entity repositories over one backend.
type Manager struct {
	Symptoms    *SymptomRepository
	Stools      *StoolRepository
	Medications *MedicationRepository
	Schedule    *ScheduleRepository
	Profiles    *ProfileRepository
}

func NewManager(be backend.Backend, sp session.Provider, log logging.Logger) *Manager {
	return &Manager{
		Symptoms:    NewSymptomRepository(be, sp, log),
		Stools:      NewStoolRepository(be, sp, log),
		Medications: NewMedicationRepository(be, sp, log),
		Schedule:    NewScheduleRepository(be, sp, log),
		Profiles:    NewProfileRepository(be, sp, log),
	}
}
