// Package services holds the tracker's use cases built on the repositories:
// medication scheduling, the profile, weekly reports and report export.
package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/VivreleHpi/crohn-companion-app/internal/backend"
	"github.com/VivreleHpi/crohn-companion-app/internal/common"
	"github.com/VivreleHpi/crohn-companion-app/internal/logging"
	"github.com/VivreleHpi/crohn-companion-app/internal/models"
	"github.com/VivreleHpi/crohn-companion-app/internal/repositories"
	"github.com/VivreleHpi/crohn-companion-app/internal/timex"
)

// NewMedication is the medication form. Frequency is doses per day; empty
// Times selects the default times for that frequency.
type NewMedication struct {
	Name      string
	Dosage    string
	Frequency int
	Times     []string
}

func (n *NewMedication) normalize() error {
	n.Name = strings.TrimSpace(n.Name)
	n.Dosage = strings.TrimSpace(n.Dosage)
	if n.Name == "" || n.Dosage == "" {
		return fmt.Errorf("%w: name and dosage are required", common.ErrValidation)
	}
	if n.Frequency < 1 || n.Frequency > models.MaxDailyDoses {
		return fmt.Errorf("%w: frequency must be between 1 and %d doses per day", common.ErrValidation, models.MaxDailyDoses)
	}
	if len(n.Times) == 0 {
		n.Times = models.DefaultDoseTimes(n.Frequency)
	}
	if len(n.Times) != n.Frequency {
		return fmt.Errorf("%w: %d dose times given for %d doses per day", common.ErrValidation, len(n.Times), n.Frequency)
	}
	for _, t := range n.Times {
		if err := models.ValidateDoseTime(t); err != nil {
			return fmt.Errorf("%w: %v", common.ErrValidation, err)
		}
	}
	return nil
}

type MedicationService struct {
	medications *repositories.MedicationRepository
	schedule    *repositories.ScheduleRepository
	loc         *time.Location
	now         func() time.Time
	log         logging.Logger
}

func NewMedicationService(m *repositories.Manager, loc *time.Location, log logging.Logger) *MedicationService {
	return &MedicationService{
		medications: m.Medications,
		schedule:    m.Schedule,
		loc:         loc,
		now:         time.Now,
		log:         log,
	}
}

func (s *MedicationService) today() string {
	return s.now().In(s.loc).Format(timex.DateLayout)
}

// Add creates the medication and one untaken schedule entry per dose time for
// today. When the schedule write fails the medication is kept and returned
// along with the error.
func (s *MedicationService) Add(ctx context.Context, in NewMedication) (models.Medication, []models.MedicationScheduleEntry, error) {
	if err := in.normalize(); err != nil {
		return models.Medication{}, nil, err
	}

	med, err := s.medications.Create(ctx, models.Medication{
		Name:      in.Name,
		Dosage:    in.Dosage,
		Frequency: models.FrequencyDescriptor(in.Frequency),
		Times:     in.Times,
	})
	if err != nil {
		return models.Medication{}, nil, err
	}

	date := s.today()
	entries := make([]models.MedicationScheduleEntry, 0, len(in.Times))
	for _, t := range in.Times {
		entries = append(entries, models.MedicationScheduleEntry{
			MedicationID:  med.ID,
			Time:          t,
			ScheduledDate: date,
			Taken:         false,
		})
	}
	created, err := s.schedule.CreateMany(ctx, entries)
	if err != nil {
		s.log.Error(ctx, "schedule creation failed", "medication_id", med.ID, "error", err)
		return med, nil, fmt.Errorf("schedule doses for %s: %w", med.Name, err)
	}
	s.log.Info(ctx, "medication added", "medication_id", med.ID, "doses", len(created))
	return med, created, nil
}

func (s *MedicationService) List(ctx context.Context) ([]models.Medication, error) {
	return s.medications.List(ctx, backend.Query{Order: &backend.Order{Column: "created_at"}})
}

// Delete removes the medication only; its schedule entries stay.
func (s *MedicationService) Delete(ctx context.Context, id string) error {
	return s.medications.Delete(ctx, id)
}

// Today returns today's schedule ordered by time.
func (s *MedicationService) Today(ctx context.Context) ([]models.MedicationScheduleEntry, error) {
	return s.schedule.List(ctx, backend.Query{
		Filters: []backend.Filter{backend.Eq("scheduled_date", s.today())},
		Order:   &backend.Order{Column: "time", Ascending: true},
	})
}

// MarkTaken flips an untaken entry to taken and stamps taken_at. The update
// only applies while the stored entry is still untaken, so concurrent takes of
// one dose succeed once and the rest get ErrAlreadyTaken.
func (s *MedicationService) MarkTaken(ctx context.Context, entry models.MedicationScheduleEntry) (models.MedicationScheduleEntry, error) {
	if entry.Taken {
		return entry, common.ErrAlreadyTaken
	}
	updated, err := s.schedule.Update(ctx, entry.ID, backend.Row{
		"taken":    true,
		"taken_at": s.now().UTC().Format(time.RFC3339Nano),
	}, backend.Eq("taken", false))
	if err != nil {
		return entry, err
	}
	if len(updated) == 0 {
		if _, err := s.schedule.Get(ctx, entry.ID); err != nil {
			return entry, err
		}
		return entry, common.ErrAlreadyTaken
	}
	return updated[0], nil
}

// MarkTakenByID loads the entry first so an already-taken dose is rejected.
func (s *MedicationService) MarkTakenByID(ctx context.Context, id string) (models.MedicationScheduleEntry, error) {
	entry, err := s.schedule.Get(ctx, id)
	if err != nil {
		return models.MedicationScheduleEntry{}, err
	}
	return s.MarkTaken(ctx, entry)
}

// UpcomingDoses returns the untaken entries sorted by time of day.
func UpcomingDoses(entries []models.MedicationScheduleEntry) []models.MedicationScheduleEntry {
	out := make([]models.MedicationScheduleEntry, 0, len(entries))
	for _, e := range entries {
		if !e.Taken {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Time < out[j].Time })
	return out
}

// TakenDoses returns the taken entries in their original order.
func TakenDoses(entries []models.MedicationScheduleEntry) []models.MedicationScheduleEntry {
	out := make([]models.MedicationScheduleEntry, 0, len(entries))
	for _, e := range entries {
		if e.Taken {
			out = append(out, e)
		}
	}
	return out
}
