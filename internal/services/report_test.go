package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VivreleHpi/crohn-companion-app/internal/models"
	"github.com/VivreleHpi/crohn-companion-app/internal/session"
)

var monday = time.Date(2026, 10, 12, 0, 0, 0, 0, time.UTC)

func at(day, hour int) time.Time {
	return monday.AddDate(0, 0, day).Add(time.Duration(hour) * time.Hour)
}

func TestBuildWeeklyReport_Remission(t *testing.T) {
	symptoms := []models.SymptomEntry{
		{Name: "Fatigue", Severity: 1, Time: at(0, 9)},
		{Name: "Bloating", Severity: 2, Time: at(0, 18)},
		{Name: "Fatigue", Severity: 3, Time: at(2, 10)},
		{Name: "Nausea", Severity: 4, Time: at(7, 10)},
	}
	stools := []models.StoolEntry{
		{BristolType: 4, Time: at(1, 8)},
		{BristolType: 5, Time: at(1, 20)},
	}
	doses := []models.MedicationScheduleEntry{
		{ScheduledDate: "2026-10-12", Time: "08:00", Taken: true},
		{ScheduledDate: "2026-10-12", Time: "20:00"},
		{ScheduledDate: "2026-10-20", Time: "08:00", Taken: true},
	}

	r := BuildWeeklyReport(monday, time.UTC, symptoms, stools, doses)

	assert.Equal(t, "2026-10-12", r.WeekStart)
	assert.Equal(t, "2026-10-18", r.WeekEnd)
	require.Len(t, r.Days, 7)
	assert.Equal(t, "Mon", r.Days[0].Weekday)

	assert.Equal(t, 2, r.Days[0].SymptomCount)
	assert.Equal(t, 2, r.Days[0].AverageSeverity)
	assert.Equal(t, 2, r.Days[0].DosesScheduled)
	assert.Equal(t, 1, r.Days[0].DosesTaken)
	assert.Equal(t, 2, r.Days[1].StoolCount)
	assert.Equal(t, 5, r.Days[1].AverageBristol)
	assert.Equal(t, 3, r.Days[2].AverageSeverity)
	assert.Zero(t, r.Days[6].SymptomCount)

	assert.InDelta(t, 2.0, r.AverageSeverity, 1e-9)
	assert.InDelta(t, 4.5, r.AverageBristol, 1e-9)
	assert.Zero(t, r.BloodEpisodes)
	assert.Equal(t, StatusRemission, r.Status)
	assert.Equal(t, []string{"Fatigue", "Bloating"}, r.TopSymptoms)
	assert.InDelta(t, 0.5, r.Adherence(), 1e-9)
}

func TestBuildWeeklyReport_Status(t *testing.T) {
	tests := []struct {
		name     string
		symptoms []models.SymptomEntry
		stools   []models.StoolEntry
		want     ReportStatus
	}{
		{
			name: "no records",
			want: StatusRemission,
		},
		{
			name:     "severity above two",
			symptoms: []models.SymptomEntry{{Name: "Cramping", Severity: 2, Time: at(0, 1)}, {Name: "Cramping", Severity: 3, Time: at(1, 1)}},
			want:     StatusCrisis,
		},
		{
			name:   "hard stools",
			stools: []models.StoolEntry{{BristolType: 2, Time: at(3, 1)}},
			want:   StatusCrisis,
		},
		{
			name:   "loose stools",
			stools: []models.StoolEntry{{BristolType: 6, Time: at(3, 1)}, {BristolType: 7, Time: at(4, 1)}},
			want:   StatusCrisis,
		},
		{
			name:   "blood",
			stools: []models.StoolEntry{{BristolType: 4, HasBlood: true, Time: at(5, 1)}},
			want:   StatusCrisis,
		},
		{
			name:   "stools outside the week",
			stools: []models.StoolEntry{{BristolType: 7, HasBlood: true, Time: at(-1, 1)}},
			want:   StatusRemission,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := BuildWeeklyReport(monday, time.UTC, tt.symptoms, tt.stools, nil)
			assert.Equal(t, tt.want, r.Status)
		})
	}
}

func TestBuildWeeklyReport_NoStoolsIsNeutral(t *testing.T) {
	r := BuildWeeklyReport(monday, time.UTC, nil, nil, nil)
	assert.InDelta(t, 4.0, r.AverageBristol, 1e-9)
	assert.Zero(t, r.Adherence())
	assert.Empty(t, r.TopSymptoms)
}

func TestBuildWeeklyReport_LocalDays(t *testing.T) {
	madrid := time.FixedZone("UTC+2", 2*3600)
	start := time.Date(2026, 10, 12, 0, 0, 0, 0, madrid)
	symptoms := []models.SymptomEntry{
		// 23:30 UTC on Sunday is already Monday in UTC+2.
		{Name: "Fatigue", Severity: 1, Time: time.Date(2026, 10, 11, 23, 30, 0, 0, time.UTC)},
	}

	r := BuildWeeklyReport(start, madrid, symptoms, nil, nil)
	assert.Equal(t, 1, r.Days[0].SymptomCount)
}

func TestReportService_Weekly(t *testing.T) {
	m, _ := newManager(session.NewStatic(ana))
	ctx := context.Background()

	_, err := m.Symptoms.CreateMany(ctx, []models.SymptomEntry{
		{Name: "Abdominal pain", Severity: 3, Time: at(0, 9)},
		{Name: "Abdominal pain", Severity: 4, Time: at(3, 9)},
		{Name: "Fatigue", Severity: 1, Time: at(9, 9)},
	})
	require.NoError(t, err)
	_, err = m.Stools.Create(ctx, models.StoolEntry{BristolType: 6, HasBlood: true, Time: at(3, 10)})
	require.NoError(t, err)
	_, err = m.Schedule.CreateMany(ctx, []models.MedicationScheduleEntry{
		{MedicationID: "m1", Time: "08:00", ScheduledDate: "2026-10-14", Taken: true},
		{MedicationID: "m1", Time: "08:00", ScheduledDate: "2026-10-19"},
	})
	require.NoError(t, err)

	svc := NewReportService(m, time.UTC)
	svc.now = func() time.Time { return fixedAt }

	r, err := svc.Weekly(ctx, at(4, 12))
	require.NoError(t, err)

	assert.Equal(t, "2026-10-12", r.WeekStart)
	assert.Equal(t, 1, r.Days[0].SymptomCount)
	assert.Equal(t, 1, r.Days[3].SymptomCount)
	assert.Equal(t, 1, r.Days[3].StoolCount)
	assert.Equal(t, 1, r.Days[2].DosesTaken)
	assert.InDelta(t, 3.5, r.AverageSeverity, 1e-9)
	assert.Equal(t, 1, r.BloodEpisodes)
	assert.Equal(t, StatusCrisis, r.Status)
	assert.Equal(t, []string{"Abdominal pain"}, r.TopSymptoms)
	assert.True(t, fixedAt.Equal(r.GeneratedAt))
}
