package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"signalMapAPI/internal/database"
	"signalMapAPI/internal/types/achievement"
	"signalMapAPI/internal/types/streak"
	"signalMapAPI/utils"
)

// DailyCheckinBonus is the base point award for a daily check-in, before the
// streak multiplier.
const DailyCheckinBonus = 10

// multiplierTiers is scanned highest-first; the first threshold at or below
// the current streak wins. Below every tier the multiplier is 1.
var multiplierTiers = []struct {
	Days   int
	Factor float64
}{
	{365, 5},
	{90, 4},
	{30, 3},
	{14, 2},
	{7, 1.5},
}

// StreakMultiplier returns the point multiplier for a streak length.
func StreakMultiplier(days int) float64 {
	for _, tier := range multiplierTiers {
		if days >= tier.Days {
			return tier.Factor
		}
	}
	return 1
}

type StreakService struct {
	db           database.PgConnection
	achievements *AchievementService
	points       *PointsService
	notifier     utils.NotificationCreator
}

func NewStreakService(db database.PgConnection, achievements *AchievementService, points *PointsService) *StreakService {
	return &StreakService{db: db, achievements: achievements, points: points}
}

// SetNotifier wires the notification collaborator. Optional; streak updates
// work without one.
func (s *StreakService) SetNotifier(n utils.NotificationCreator) {
	s.notifier = n
}

// UpdateStreak records today's check-in. Idempotent within a UTC calendar
// day: the second call of a day earns nothing and changes nothing. The streak
// mutation, achievement unlocks and point credits all commit atomically.
func (s *StreakService) UpdateStreak(ctx context.Context, userID uuid.UUID) (*streak.UpdateResult, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin streak update: %w", err)
	}
	defer tx.Rollback(ctx)

	now := time.Now().UTC()
	startToday := startOfDayUTC(now)
	startYesterday := startToday.AddDate(0, 0, -1)

	current, err := s.lockStreak(ctx, tx, userID)
	if err != nil {
		return nil, err
	}

	var newCurrent int
	switch {
	case current == nil:
		// First ever check-in: the creating call counts as today's check-in.
		newCurrent = 1
		insertQuery := `
		INSERT INTO user_streaks (user_id, current_streak, longest_streak, last_checkin, created_at, updated_at)
		VALUES ($1, 1, 1, $2, $2, $2)
		`
		if _, err := tx.Exec(ctx, insertQuery, userID, now); err != nil {
			return nil, fmt.Errorf("failed to create streak: %w", err)
		}
		current = &streak.Streak{UserID: userID}

	case current.LastCheckin != nil && !current.LastCheckin.UTC().Before(startToday):
		// Already checked in today.
		if err := tx.Commit(ctx); err != nil {
			return nil, fmt.Errorf("failed to commit streak no-op: %w", err)
		}
		return &streak.UpdateResult{
			Streak:       current,
			PointsEarned: 0,
			Multiplier:   StreakMultiplier(current.CurrentStreak),
			Achievements: []*achievement.Unlocked{},
		}, nil

	case current.LastCheckin != nil && !current.LastCheckin.UTC().Before(startYesterday):
		// Checked in yesterday: streak continues.
		newCurrent = current.CurrentStreak + 1

	default:
		// Gap of two days or more: streak restarts, no error.
		newCurrent = 1
	}

	newLongest := current.LongestStreak
	if newCurrent > newLongest {
		newLongest = newCurrent
	}

	updateQuery := `
	UPDATE user_streaks
	SET current_streak = $2, longest_streak = $3, last_checkin = $4, updated_at = $4
	WHERE user_id = $1
	`
	if _, err := tx.Exec(ctx, updateQuery, userID, newCurrent, newLongest, now); err != nil {
		return nil, fmt.Errorf("failed to update streak: %w", err)
	}

	// Mirror the streak into the stats row so consecutive_days requirements
	// see it.
	mirrorQuery := `
	INSERT INTO user_stats (user_id, consecutive_days, created_at, updated_at)
	VALUES ($1, $2, $3, $3)
	ON CONFLICT (user_id) DO UPDATE
	SET consecutive_days = EXCLUDED.consecutive_days, updated_at = EXCLUDED.updated_at
	`
	if _, err := tx.Exec(ctx, mirrorQuery, userID, newCurrent, now); err != nil {
		return nil, fmt.Errorf("failed to mirror streak into stats: %w", err)
	}

	multiplier := StreakMultiplier(newCurrent)
	pointsEarned := int(math.Round(DailyCheckinBonus * multiplier))

	snapshot, err := s.achievements.statsSnapshot(ctx, tx, userID)
	if err != nil {
		return nil, err
	}
	snapshot.ConsecutiveDays = newCurrent

	unlocked, achievementPoints, err := s.achievements.EvaluateTx(ctx, tx, userID, snapshot, now)
	if err != nil {
		return nil, err
	}

	if _, err := s.points.CreditTx(ctx, tx, userID, pointsEarned+achievementPoints, now); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit streak update: %w", err)
	}

	if s.notifier != nil && len(unlocked) > 0 {
		go utils.AchievementsUnlocked(s.notifier, userID, unlocked)
	}

	updated := &streak.Streak{
		UserID:        userID,
		CurrentStreak: newCurrent,
		LongestStreak: newLongest,
		LastCheckin:   &now,
	}

	return &streak.UpdateResult{
		Streak:       updated,
		PointsEarned: pointsEarned,
		Multiplier:   multiplier,
		Achievements: unlocked,
	}, nil
}

// ResetStreak zeroes the current streak and stamps the check-in time. The
// longest streak survives resets.
func (s *StreakService) ResetStreak(ctx context.Context, userID uuid.UUID) (*streak.Streak, error) {
	now := time.Now().UTC()

	query := `
	INSERT INTO user_streaks (user_id, current_streak, longest_streak, last_checkin, created_at, updated_at)
	VALUES ($1, 0, 0, $2, $2, $2)
	ON CONFLICT (user_id) DO UPDATE
	SET current_streak = 0, last_checkin = EXCLUDED.last_checkin, updated_at = EXCLUDED.updated_at
	RETURNING user_id, current_streak, longest_streak, last_checkin, created_at, updated_at
	`

	st := &streak.Streak{}
	err := s.db.QueryRow(ctx, query, userID, now).Scan(
		&st.UserID, &st.CurrentStreak, &st.LongestStreak, &st.LastCheckin, &st.CreatedAt, &st.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to reset streak: %w", err)
	}

	return st, nil
}

// GetStreakStatus returns the current streak state; a user with no streak row
// gets zeros and may check in.
func (s *StreakService) GetStreakStatus(ctx context.Context, userID uuid.UUID) (*streak.Status, error) {
	query := `
	SELECT current_streak, longest_streak, last_checkin
	FROM user_streaks
	WHERE user_id = $1
	`

	status := &streak.Status{CanCheckInToday: true, Multiplier: 1}
	err := s.db.QueryRow(ctx, query, userID).Scan(&status.CurrentStreak, &status.LongestStreak, &status.LastCheckin)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return status, nil
		}
		return nil, fmt.Errorf("failed to get streak status: %w", err)
	}

	status.Multiplier = StreakMultiplier(status.CurrentStreak)
	if status.LastCheckin != nil && !status.LastCheckin.UTC().Before(startOfDayUTC(time.Now().UTC())) {
		status.CanCheckInToday = false
	}

	return status, nil
}

func (s *StreakService) lockStreak(ctx context.Context, q database.Querier, userID uuid.UUID) (*streak.Streak, error) {
	query := `
	SELECT user_id, current_streak, longest_streak, last_checkin, created_at, updated_at
	FROM user_streaks
	WHERE user_id = $1
	FOR UPDATE
	`

	st := &streak.Streak{}
	err := q.QueryRow(ctx, query, userID).Scan(
		&st.UserID, &st.CurrentStreak, &st.LongestStreak, &st.LastCheckin, &st.CreatedAt, &st.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to lock streak: %w", err)
	}

	log.Printf("UpdateStreak: user %s current=%d longest=%d", userID, st.CurrentStreak, st.LongestStreak)
	return st, nil
}
