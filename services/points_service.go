package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"signalMapAPI/internal/database"
	"signalMapAPI/internal/errvalues"
	"signalMapAPI/internal/types/leaderboard"
)

type PointsService struct {
	db database.PgConnection
}

func NewPointsService(db database.PgConnection) *PointsService {
	return &PointsService{db: db}
}

// Credit adds amount to the user's point total in its own transaction and
// returns the new total.
func (s *PointsService) Credit(ctx context.Context, userID uuid.UUID, amount int) (int, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin credit: %w", err)
	}
	defer tx.Rollback(ctx)

	total, err := s.CreditTx(ctx, tx, userID, amount, time.Now().UTC())
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit credit: %w", err)
	}

	return total, nil
}

// CreditTx performs the credit inside the caller's transaction. The increment
// runs storage-side (points = points + n), never read-modify-write, and each
// credit fans out to the per-timeframe leaderboard entries.
func (s *PointsService) CreditTx(ctx context.Context, q database.Querier, userID uuid.UUID, amount int, now time.Time) (int, error) {
	if amount < 0 {
		return 0, fmt.Errorf("%w: got %d", errvalues.ErrInvalidAmount, amount)
	}

	if amount == 0 {
		var total int
		err := q.QueryRow(ctx, `SELECT points FROM user_stats WHERE user_id = $1`, userID).Scan(&total)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return 0, nil
			}
			return 0, fmt.Errorf("failed to read points: %w", err)
		}
		return total, nil
	}

	query := `
	INSERT INTO user_stats (user_id, points, created_at, updated_at)
	VALUES ($1, $2, $3, $3)
	ON CONFLICT (user_id) DO UPDATE
	SET points = user_stats.points + EXCLUDED.points, updated_at = EXCLUDED.updated_at
	RETURNING points
	`

	var total int
	if err := q.QueryRow(ctx, query, userID, amount, now).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to credit points: %w", err)
	}

	if err := s.fanOutLeaderboard(ctx, q, userID, amount, now); err != nil {
		return 0, err
	}

	return total, nil
}

// fanOutLeaderboard upserts the credit into every timeframe entry. A stale
// period_start means the window rolled over, so the score restarts instead of
// accumulating.
func (s *PointsService) fanOutLeaderboard(ctx context.Context, q database.Querier, userID uuid.UUID, amount int, now time.Time) error {
	query := `
	INSERT INTO leaderboard_entries (user_id, timeframe, score, period_start, updated_at)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (user_id, timeframe) DO UPDATE
	SET score = CASE WHEN leaderboard_entries.period_start < EXCLUDED.period_start
			THEN EXCLUDED.score
			ELSE leaderboard_entries.score + EXCLUDED.score END,
		period_start = GREATEST(leaderboard_entries.period_start, EXCLUDED.period_start),
		updated_at = EXCLUDED.updated_at
	`

	timeframes := []leaderboard.Timeframe{
		leaderboard.TimeframeDaily,
		leaderboard.TimeframeWeekly,
		leaderboard.TimeframeMonthly,
		leaderboard.TimeframeAllTime,
	}

	for _, tf := range timeframes {
		if _, err := q.Exec(ctx, query, userID, tf, amount, periodStart(tf, now), now); err != nil {
			return fmt.Errorf("failed to upsert %s leaderboard entry: %w", tf, err)
		}
	}

	return nil
}

// All day and period boundaries are computed in UTC.
func startOfDayUTC(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func periodStart(tf leaderboard.Timeframe, now time.Time) time.Time {
	now = now.UTC()
	switch tf {
	case leaderboard.TimeframeDaily:
		return startOfDayUTC(now)
	case leaderboard.TimeframeWeekly:
		day := startOfDayUTC(now)
		// ISO week, Monday start
		offset := (int(day.Weekday()) + 6) % 7
		return day.AddDate(0, 0, -offset)
	case leaderboard.TimeframeMonthly:
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	default:
		return time.Unix(0, 0).UTC()
	}
}
