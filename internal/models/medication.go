package models

import (
	"fmt"
	"time"
)

// Medication is a prescribed treatment with its daily dose times.
type Medication struct {
	ID        string    `json:"id,omitempty"`
	UserID    string    `json:"user_id,omitempty"`
	Name      string    `json:"name"`
	Dosage    string    `json:"dosage"`
	Frequency string    `json:"frequency"`
	Times     []string  `json:"times"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (m Medication) RecordID() string { return m.ID }

// MedicationScheduleEntry is one expected dose on one day.
type MedicationScheduleEntry struct {
	ID            string     `json:"id,omitempty"`
	UserID        string     `json:"user_id,omitempty"`
	MedicationID  string     `json:"medication_id"`
	Time          string     `json:"time"`
	ScheduledDate string     `json:"scheduled_date"`
	Taken         bool       `json:"taken"`
	TakenAt       *time.Time `json:"taken_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

func (e MedicationScheduleEntry) RecordID() string { return e.ID }

// MaxDailyDoses bounds the per-day frequency offered by the medication form.
const MaxDailyDoses = 4

// FrequencyDescriptor renders a times-per-day count.
func FrequencyDescriptor(timesPerDay int) string {
	if timesPerDay == 1 {
		return "1 time per day"
	}
	return fmt.Sprintf("%d times per day", timesPerDay)
}

// DefaultDoseTimes returns the dose times proposed for a given frequency.
func DefaultDoseTimes(timesPerDay int) []string {
	switch timesPerDay {
	case 1:
		return []string{"08:00"}
	case 2:
		return []string{"08:00", "20:00"}
	case 3:
		return []string{"08:00", "14:00", "20:00"}
	case 4:
		return []string{"08:00", "12:00", "16:00", "20:00"}
	default:
		return nil
	}
}

// ValidateDoseTime checks a HH:MM time of day.
func ValidateDoseTime(v string) error {
	if _, err := time.Parse("15:04", v); err != nil || len(v) != 5 {
		return fmt.Errorf("dose time must be HH:MM, got %q", v)
	}
	return nil
}
