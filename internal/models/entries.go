package models

import (
	"fmt"
	"time"
)

// SymptomEntry is one logged symptom occurrence.
type SymptomEntry struct {
	ID        string    `json:"id,omitempty"`
	UserID    string    `json:"user_id,omitempty"`
	Name      string    `json:"name"`
	Severity  int       `json:"severity"`
	Time      time.Time `json:"time"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func (s SymptomEntry) RecordID() string { return s.ID }

// StoolEntry is one bowel movement classified on the Bristol scale.
type StoolEntry struct {
	ID          string    `json:"id,omitempty"`
	UserID      string    `json:"user_id,omitempty"`
	BristolType int       `json:"bristol_type"`
	Time        time.Time `json:"time"`
	HasBlood    bool      `json:"has_blood"`
	HasMucus    bool      `json:"has_mucus"`
	Notes       string    `json:"notes,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func (s StoolEntry) RecordID() string { return s.ID }

// Severity levels for symptoms.
const (
	SeverityMild = iota + 1
	SeverityModerate
	SeveritySevere
	SeverityVerySevere
)

var severityLabels = map[int]string{
	SeverityMild:       "mild",
	SeverityModerate:   "moderate",
	SeveritySevere:     "severe",
	SeverityVerySevere: "very severe",
}

// SeverityLabel returns the human label for a severity level.
func SeverityLabel(severity int) string {
	if l, ok := severityLabels[severity]; ok {
		return l
	}
	return "unknown"
}

func ValidateSeverity(severity int) error {
	if severity < SeverityMild || severity > SeverityVerySevere {
		return fmt.Errorf("severity must be between %d and %d, got %d", SeverityMild, SeverityVerySevere, severity)
	}
	return nil
}

var bristolDescriptions = [...]string{
	"separate hard lumps, like nuts, hard to pass",
	"sausage-shaped but lumpy",
	"like a sausage but with cracks on its surface",
	"like a sausage or snake, smooth and soft",
	"soft blobs with clear-cut edges, passed easily",
	"fluffy pieces with ragged edges, a mushy stool",
	"watery, no solid pieces, entirely liquid",
}

// BristolDescription describes a Bristol stool type (1..7).
func BristolDescription(bristolType int) string {
	if bristolType < 1 || bristolType > len(bristolDescriptions) {
		return ""
	}
	return bristolDescriptions[bristolType-1]
}

func ValidateBristolType(bristolType int) error {
	if bristolType < 1 || bristolType > len(bristolDescriptions) {
		return fmt.Errorf("bristol type must be between 1 and %d, got %d", len(bristolDescriptions), bristolType)
	}
	return nil
}

// SuggestedSymptoms are offered by the symptom form; free text is accepted too.
func SuggestedSymptoms() []string {
	return []string{
		"Abdominal pain",
		"Diarrhea",
		"Fatigue",
		"Loss of appetite",
		"Nausea",
		"Fever",
		"Joint pain",
		"Weight loss",
		"Rectal bleeding",
		"Cramps",
		"Bloating",
	}
}
