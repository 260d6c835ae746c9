package achievement

import (
	"time"

	"github.com/google/uuid"
)

type Metric string

const (
	MetricTotalMeasurements Metric = "total_measurements"
	MetricRuralMeasurements Metric = "rural_measurements"
	MetricUniqueLocations   Metric = "unique_locations"
	MetricTotalDistance     Metric = "total_distance_km"
	MetricContributionScore Metric = "contribution_score"
	MetricQualityScore      Metric = "quality_score"
	MetricAccuracyRate      Metric = "accuracy_rate"
	MetricVerifiedSpots     Metric = "verified_spots"
	MetricHelpfulActions    Metric = "helpful_actions"
	MetricConsecutiveDays   Metric = "consecutive_days"
	MetricPoints            Metric = "points"
)

type Operator string

const (
	OpEqual            Operator = "EQUAL"
	OpNotEqual         Operator = "NOT_EQUAL"
	OpGreaterThan      Operator = "GREATER_THAN"
	OpLessThan         Operator = "LESS_THAN"
	OpGreaterThanEqual Operator = "GREATER_THAN_EQUAL"
	OpLessThanEqual    Operator = "LESS_THAN_EQUAL"
)

type Category string

const (
	CategoryContribution Category = "contribution"
	CategoryStreak       Category = "streak"
	CategoryQuality      Category = "quality"
)

type Requirement struct {
	ID            uuid.UUID `json:"id" db:"id"`
	AchievementID uuid.UUID `json:"achievement_id" db:"achievement_id"`
	Metric        Metric    `json:"metric" db:"metric"`
	Operator      Operator  `json:"operator" db:"operator"`
	Value         float64   `json:"value" db:"value"`
	Description   *string   `json:"description,omitempty" db:"description"`
}

type Achievement struct {
	ID           uuid.UUID      `json:"id" db:"id"`
	Title        string         `json:"title" db:"title"`
	Description  string         `json:"description" db:"description"`
	Icon         string         `json:"icon" db:"icon"`
	Points       int            `json:"points" db:"points"`
	Rarity       string         `json:"rarity" db:"rarity"`
	Tier         int            `json:"tier" db:"tier"`
	Category     Category       `json:"category" db:"category"`
	Requirements []*Requirement `json:"requirements"`
	CreatedAt    time.Time      `json:"created_at" db:"created_at"`
}

type UserAchievement struct {
	ID            uuid.UUID  `json:"id" db:"id"`
	UserID        uuid.UUID  `json:"user_id" db:"user_id"`
	AchievementID uuid.UUID  `json:"achievement_id" db:"achievement_id"`
	Progress      int        `json:"progress" db:"progress"`
	Completed     bool       `json:"completed" db:"completed"`
	UnlockedAt    *time.Time `json:"unlocked_at,omitempty" db:"unlocked_at"`
}

type AchievementWithProgress struct {
	Achievement
	Progress   int        `json:"progress"`
	Completed  bool       `json:"completed"`
	UnlockedAt *time.Time `json:"unlocked_at,omitempty"`
}

// Unlocked is the shape returned to callers when an achievement flips to
// completed during an update.
type Unlocked struct {
	ID         uuid.UUID `json:"id"`
	Title      string    `json:"title"`
	Icon       string    `json:"icon"`
	Points     int       `json:"points"`
	Category   Category  `json:"category"`
	UnlockedAt time.Time `json:"unlocked_at"`
}
