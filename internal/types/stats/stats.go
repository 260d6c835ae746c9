package stats

import (
	"time"

	"github.com/google/uuid"
)

type UserStats struct {
	UserID            uuid.UUID `json:"user_id" db:"user_id"`
	TotalMeasurements int       `json:"total_measurements" db:"total_measurements"`
	RuralMeasurements int       `json:"rural_measurements" db:"rural_measurements"`
	UniqueLocations   int       `json:"unique_locations" db:"unique_locations"`
	TotalDistanceKM   float64   `json:"total_distance_km" db:"total_distance_km"`
	ContributionScore float64   `json:"contribution_score" db:"contribution_score"`
	QualityScore      float64   `json:"quality_score" db:"quality_score"`
	AccuracyRate      float64   `json:"accuracy_rate" db:"accuracy_rate"`
	VerifiedSpots     int       `json:"verified_spots" db:"verified_spots"`
	HelpfulActions    int       `json:"helpful_actions" db:"helpful_actions"`
	ConsecutiveDays   int       `json:"consecutive_days" db:"consecutive_days"`
	Points            int       `json:"points" db:"points"`
	CreatedAt         time.Time `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time `json:"updated_at" db:"updated_at"`
}

// Delta carries the per-event changes applied to a user's stats row.
// Counter fields are increments; pointer fields replace the stored value
// (callers compute running averages before handing them over).
type Delta struct {
	Measurements      int
	RuralMeasurements int
	UniqueLocations   int
	DistanceKM        float64
	VerifiedSpots     int
	HelpfulActions    int
	QualityScore      *float64
	AccuracyRate      *float64
	ConsecutiveDays   *int
}

// Apply returns the merged result of adding d to s. It does not validate.
func (s UserStats) Apply(d *Delta) UserStats {
	merged := s
	merged.TotalMeasurements += d.Measurements
	merged.RuralMeasurements += d.RuralMeasurements
	merged.UniqueLocations += d.UniqueLocations
	merged.TotalDistanceKM += d.DistanceKM
	merged.VerifiedSpots += d.VerifiedSpots
	merged.HelpfulActions += d.HelpfulActions
	if d.QualityScore != nil {
		merged.QualityScore = *d.QualityScore
	}
	if d.AccuracyRate != nil {
		merged.AccuracyRate = *d.AccuracyRate
	}
	if d.ConsecutiveDays != nil {
		merged.ConsecutiveDays = *d.ConsecutiveDays
	}
	return merged
}
