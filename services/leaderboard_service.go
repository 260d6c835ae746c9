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

const leaderboardMaxEntries = 100

type LeaderboardService struct {
	db database.PgConnection
}

func NewLeaderboardService(db database.PgConnection) *LeaderboardService {
	return &LeaderboardService{db: db}
}

// GetLeaderboard returns ranked entries for a timeframe. Rank is competition
// ranking: one more than the count of strictly greater scores, so ties share
// a rank and the next distinct score skips ahead. Ordering ties break on
// ascending user id.
func (s *LeaderboardService) GetLeaderboard(ctx context.Context, timeframe leaderboard.Timeframe, page, limit int, requesterID *uuid.UUID) (*leaderboard.Leaderboard, error) {
	if !timeframe.Valid() {
		return nil, fmt.Errorf("%w: %q", errvalues.ErrInvalidTimeframe, timeframe)
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > leaderboardMaxEntries {
		limit = leaderboardMaxEntries
	}
	offset := (page - 1) * limit

	period := periodStart(timeframe, time.Now().UTC())

	query := `
	SELECT l.user_id, u.username, u.image_url, l.score,
		(SELECT COUNT(*) + 1 FROM leaderboard_entries g
			WHERE g.timeframe = l.timeframe AND g.period_start = l.period_start AND g.score > l.score) AS rank
	FROM leaderboard_entries l
	JOIN users u ON u.id = l.user_id
	WHERE l.timeframe = $1 AND l.period_start = $2
	ORDER BY l.score DESC, l.user_id ASC
	LIMIT $3 OFFSET $4
	`

	rows, err := s.db.Query(ctx, query, timeframe, period, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch leaderboard: %w", err)
	}
	defer rows.Close()

	entries := []*leaderboard.Entry{}
	for rows.Next() {
		entry := &leaderboard.Entry{}
		if err := rows.Scan(&entry.UserID, &entry.Username, &entry.ImageURL, &entry.Score, &entry.Rank); err != nil {
			return nil, fmt.Errorf("failed to scan leaderboard entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating leaderboard: %w", err)
	}

	board := &leaderboard.Leaderboard{
		Timeframe: timeframe,
		Entries:   entries,
		Page:      page,
		Limit:     limit,
	}

	aggQuery := `
	SELECT
		(SELECT COUNT(*) FROM leaderboard_entries WHERE timeframe = $1 AND period_start = $2),
		(SELECT COALESCE(SUM(total_measurements), 0) FROM user_stats)
	`
	if err := s.db.QueryRow(ctx, aggQuery, timeframe, period).Scan(&board.TotalUsers, &board.TotalContributions); err != nil {
		return nil, fmt.Errorf("failed to fetch leaderboard aggregates: %w", err)
	}

	if requesterID != nil {
		rank, err := s.CalculateUserRank(ctx, *requesterID, timeframe)
		if err != nil {
			return nil, err
		}
		board.RequesterRank = rank

		var points int
		err = s.db.QueryRow(ctx, `SELECT points FROM user_stats WHERE user_id = $1`, *requesterID).Scan(&points)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("failed to fetch requester points: %w", err)
		}
		board.RequesterPoints = points
	}

	return board, nil
}

// CalculateUserRank returns the user's competition rank for a timeframe, or 0
// when the user has no entry in the current period.
func (s *LeaderboardService) CalculateUserRank(ctx context.Context, userID uuid.UUID, timeframe leaderboard.Timeframe) (int, error) {
	if !timeframe.Valid() {
		return 0, fmt.Errorf("%w: %q", errvalues.ErrInvalidTimeframe, timeframe)
	}

	period := periodStart(timeframe, time.Now().UTC())

	query := `
	SELECT (SELECT COUNT(*) FROM leaderboard_entries g
		WHERE g.timeframe = l.timeframe AND g.period_start = l.period_start AND g.score > l.score) + 1
	FROM leaderboard_entries l
	WHERE l.user_id = $1 AND l.timeframe = $2 AND l.period_start = $3
	`

	var rank int
	err := s.db.QueryRow(ctx, query, userID, timeframe, period).Scan(&rank)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to calculate rank: %w", err)
	}

	return rank, nil
}
