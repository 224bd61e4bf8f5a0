package services

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/VivreleHpi/crohn-companion-app/internal/backend"
	"github.com/VivreleHpi/crohn-companion-app/internal/models"
	"github.com/VivreleHpi/crohn-companion-app/internal/repositories"
	"github.com/VivreleHpi/crohn-companion-app/internal/timex"
)

type ReportStatus string

const (
	StatusRemission ReportStatus = "remission"
	StatusCrisis    ReportStatus = "crisis"
)

// neutralBristol is assumed when no stool was logged during the week.
const neutralBristol = 4.0

// DayReport aggregates one calendar day. Averages are rounded half up and
// zero when nothing was logged.
type DayReport struct {
	Date            string `json:"date"`
	Weekday         string `json:"weekday"`
	SymptomCount    int    `json:"symptom_count"`
	AverageSeverity int    `json:"average_severity"`
	StoolCount      int    `json:"stool_count"`
	AverageBristol  int    `json:"average_bristol"`
	DosesScheduled  int    `json:"doses_scheduled"`
	DosesTaken      int    `json:"doses_taken"`
}

// WeeklyReport covers Monday through Sunday.
type WeeklyReport struct {
	WeekStart       string       `json:"week_start"`
	WeekEnd         string       `json:"week_end"`
	Days            []DayReport  `json:"days"`
	Status          ReportStatus `json:"status"`
	AverageSeverity float64      `json:"average_severity"`
	AverageBristol  float64      `json:"average_bristol"`
	BloodEpisodes   int          `json:"blood_episodes"`
	TopSymptoms     []string     `json:"top_symptoms,omitempty"`
	GeneratedAt     time.Time    `json:"generated_at"`
}

// Adherence is the share of scheduled doses taken, 0..1.
func (r *WeeklyReport) Adherence() float64 {
	var scheduled, taken int
	for _, d := range r.Days {
		scheduled += d.DosesScheduled
		taken += d.DosesTaken
	}
	if scheduled == 0 {
		return 0
	}
	return float64(taken) / float64(scheduled)
}

type ReportService struct {
	repos *repositories.Manager
	loc   *time.Location
	now   func() time.Time
}

func NewReportService(m *repositories.Manager, loc *time.Location) *ReportService {
	return &ReportService{repos: m, loc: loc, now: time.Now}
}

// Weekly builds the report for the Monday-based week containing day.
func (s *ReportService) Weekly(ctx context.Context, day time.Time) (*WeeklyReport, error) {
	start := timex.StartOfWeek(day, s.loc)
	end := start.AddDate(0, 0, 7).Add(-time.Millisecond)

	timeRange := []backend.Filter{
		backend.Gte("time", start.UTC()),
		backend.Lte("time", end.UTC()),
	}
	byTime := &backend.Order{Column: "time", Ascending: true}

	symptoms, err := s.repos.Symptoms.List(ctx, backend.Query{Filters: timeRange, Order: byTime})
	if err != nil {
		return nil, err
	}
	stools, err := s.repos.Stools.List(ctx, backend.Query{Filters: timeRange, Order: byTime})
	if err != nil {
		return nil, err
	}
	doses, err := s.repos.Schedule.List(ctx, backend.Query{Filters: []backend.Filter{
		backend.Gte("scheduled_date", start.Format(timex.DateLayout)),
		backend.Lte("scheduled_date", end.Format(timex.DateLayout)),
	}})
	if err != nil {
		return nil, err
	}

	r := BuildWeeklyReport(start, s.loc, symptoms, stools, doses)
	r.GeneratedAt = s.now().UTC()
	return r, nil
}

// BuildWeeklyReport aggregates already-fetched records into a report for the
// week starting at weekStart. Records outside the week are ignored.
func BuildWeeklyReport(weekStart time.Time, loc *time.Location, symptoms []models.SymptomEntry, stools []models.StoolEntry, doses []models.MedicationScheduleEntry) *WeeklyReport {
	r := &WeeklyReport{
		WeekStart: weekStart.Format(timex.DateLayout),
		WeekEnd:   weekStart.AddDate(0, 0, 6).Format(timex.DateLayout),
		Days:      make([]DayReport, 7),
	}
	index := make(map[string]int, 7)
	for i := range r.Days {
		d := weekStart.AddDate(0, 0, i)
		r.Days[i].Date = d.Format(timex.DateLayout)
		r.Days[i].Weekday = d.Weekday().String()[:3]
		index[r.Days[i].Date] = i
	}

	severitySums := make([]int, 7)
	var severityTotal, symptomCount int
	counts := map[string]int{}
	for _, s := range symptoms {
		i, ok := index[s.Time.In(loc).Format(timex.DateLayout)]
		if !ok {
			continue
		}
		r.Days[i].SymptomCount++
		severitySums[i] += s.Severity
		severityTotal += s.Severity
		symptomCount++
		counts[s.Name]++
	}

	bristolSums := make([]int, 7)
	var bristolTotal, stoolCount int
	for _, st := range stools {
		i, ok := index[st.Time.In(loc).Format(timex.DateLayout)]
		if !ok {
			continue
		}
		r.Days[i].StoolCount++
		bristolSums[i] += st.BristolType
		bristolTotal += st.BristolType
		stoolCount++
		if st.HasBlood {
			r.BloodEpisodes++
		}
	}

	for _, d := range doses {
		i, ok := index[d.ScheduledDate]
		if !ok {
			continue
		}
		r.Days[i].DosesScheduled++
		if d.Taken {
			r.Days[i].DosesTaken++
		}
	}

	for i := range r.Days {
		if n := r.Days[i].SymptomCount; n > 0 {
			r.Days[i].AverageSeverity = roundHalfUp(float64(severitySums[i]) / float64(n))
		}
		if n := r.Days[i].StoolCount; n > 0 {
			r.Days[i].AverageBristol = roundHalfUp(float64(bristolSums[i]) / float64(n))
		}
	}

	if symptomCount > 0 {
		r.AverageSeverity = float64(severityTotal) / float64(symptomCount)
	}
	r.AverageBristol = neutralBristol
	if stoolCount > 0 {
		r.AverageBristol = float64(bristolTotal) / float64(stoolCount)
	}
	r.Status = classify(r.AverageSeverity, r.AverageBristol, r.BloodEpisodes > 0)
	r.TopSymptoms = topSymptoms(counts, 3)
	return r
}

func classify(avgSeverity, avgBristol float64, blood bool) ReportStatus {
	if avgSeverity > 2 || avgBristol < 3 || avgBristol > 5 || blood {
		return StatusCrisis
	}
	return StatusRemission
}

func roundHalfUp(v float64) int {
	return int(math.Floor(v + 0.5))
}

// topSymptoms returns up to n names, most frequent first, ties by name.
func topSymptoms(counts map[string]int, n int) []string {
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sortByCount(names, counts)
	if len(names) > n {
		names = names[:n]
	}
	return names
}

func sortByCount(names []string, counts map[string]int) {
	sort.Slice(names, func(i, j int) bool {
		if counts[names[i]] != counts[names[j]] {
			return counts[names[i]] > counts[names[j]]
		}
		return names[i] < names[j]
	})
}
