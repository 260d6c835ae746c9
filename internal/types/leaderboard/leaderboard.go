package leaderboard

import "github.com/google/uuid"

type Timeframe string

const (
	TimeframeDaily   Timeframe = "daily"
	TimeframeWeekly  Timeframe = "weekly"
	TimeframeMonthly Timeframe = "monthly"
	TimeframeAllTime Timeframe = "allTime"
)

func (t Timeframe) Valid() bool {
	switch t {
	case TimeframeDaily, TimeframeWeekly, TimeframeMonthly, TimeframeAllTime:
		return true
	}
	return false
}

type Entry struct {
	UserID   uuid.UUID `json:"user_id" db:"user_id"`
	Username string    `json:"username" db:"username"`
	ImageURL *string   `json:"image_url" db:"image_url"`
	Score    int       `json:"score" db:"score"`
	Rank     int       `json:"rank" db:"rank"`
}

type Leaderboard struct {
	Timeframe          Timeframe `json:"timeframe"`
	Entries            []*Entry  `json:"entries"`
	TotalUsers         int       `json:"total_users"`
	TotalContributions int       `json:"total_contributions"`
	RequesterRank      int       `json:"requester_rank,omitempty"`
	RequesterPoints    int       `json:"requester_points,omitempty"`
	Page               int       `json:"page"`
	Limit              int       `json:"limit"`
}
