package streak

import (
	"time"

	"github.com/google/uuid"

	"signalMapAPI/internal/types/achievement"
)

type Streak struct {
	UserID        uuid.UUID  `json:"user_id" db:"user_id"`
	CurrentStreak int        `json:"current_streak" db:"current_streak"`
	LongestStreak int        `json:"longest_streak" db:"longest_streak"`
	LastCheckin   *time.Time `json:"last_checkin" db:"last_checkin"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`
}

type UpdateResult struct {
	Streak       *Streak                 `json:"streak"`
	PointsEarned int                     `json:"points_earned"`
	Multiplier   float64                 `json:"multiplier"`
	Achievements []*achievement.Unlocked `json:"achievements"`
}

type Status struct {
	CurrentStreak   int        `json:"current_streak"`
	LongestStreak   int        `json:"longest_streak"`
	LastCheckin     *time.Time `json:"last_checkin"`
	CanCheckInToday bool       `json:"can_check_in_today"`
	Multiplier      float64    `json:"multiplier"`
}
